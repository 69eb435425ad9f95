// Package globalanc implements the per-sample global-ancestry accumulator
// (spec.md §4.5): during the final post-EM pass over all windows, for
// each study sample it averages per-marker posteriors across both
// haplotypes and all markers into a length-A global proportion vector.
//
// Accumulation uses gonum's mat.VecDense, following the column-accumulate
// idiom pca.go uses for its mat.Dense-based component matrices.
package globalanc

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Accumulator accumulates posterior mass for one study sample across
// windows and haplotypes, then normalizes on demand.
type Accumulator struct {
	sum   *mat.VecDense
	count float64
}

// NewAccumulator returns a zeroed Accumulator for A ancestries.
func NewAccumulator(a int) *Accumulator {
	return &Accumulator{sum: mat.NewVecDense(a, nil)}
}

// Add folds one marker's posterior vector (for one haplotype) into the
// running sum.
func (acc *Accumulator) Add(posterior []float64) error {
	if len(posterior) != acc.sum.Len() {
		return fmt.Errorf("globalanc: posterior length %d does not match A=%d", len(posterior), acc.sum.Len())
	}
	v := mat.NewVecDense(len(posterior), posterior)
	acc.sum.AddScaledVec(acc.sum, 1, v)
	acc.count++
	return nil
}

// Proportions returns the normalized global-ancestry proportion vector:
// the running sum divided by the number of (haplotype,marker) pairs
// folded in.
func (acc *Accumulator) Proportions() []float64 {
	a := acc.sum.Len()
	out := make([]float64, a)
	if acc.count == 0 {
		return out
	}
	for i := 0; i < a; i++ {
		out[i] = acc.sum.AtVec(i) / acc.count
	}
	return out
}

// Table accumulates global-ancestry proportions for every study sample,
// keyed by sample index, preserving input order for output (spec.md §6:
// "row order matches input").
type Table struct {
	accs []*Accumulator
}

// NewTable returns a Table with one fresh Accumulator per sample.
func NewTable(nSamples, nAncestries int) *Table {
	accs := make([]*Accumulator, nSamples)
	for i := range accs {
		accs[i] = NewAccumulator(nAncestries)
	}
	return &Table{accs: accs}
}

// Add folds one haplotype-marker posterior into sample s's accumulator.
func (t *Table) Add(s int, posterior []float64) error {
	return t.accs[s].Add(posterior)
}

// Rows returns every sample's final proportions, in sample order.
func (t *Table) Rows() [][]float64 {
	out := make([][]float64, len(t.accs))
	for i, acc := range t.accs {
		out[i] = acc.Proportions()
	}
	return out
}
