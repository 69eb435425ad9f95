package refidx

import "fmt"

// Index holds one RefGTRec per marker for the window currently loaded, plus
// the panel structure needed to resolve haplotype -> panel lookups during
// forward-backward (spec.md §4.1).
type Index struct {
	recs       []RefGTRec
	nPanelHaps []int // per panel, count of reference haplotypes
	hapToPanel []int
}

// NewIndex wraps a window's per-marker records together with the
// panel-haplotype mapping needed by the HMM.
func NewIndex(recs []RefGTRec, hapToPanel []int, nPanels int) (*Index, error) {
	for i, r := range recs {
		if r.NHaps() != len(hapToPanel) {
			return nil, fmt.Errorf("marker %d: record has %d haplotypes, panel map has %d", i, r.NHaps(), len(hapToPanel))
		}
	}
	counts := make([]int, nPanels)
	for _, p := range hapToPanel {
		counts[p]++
	}
	return &Index{recs: recs, nPanelHaps: counts, hapToPanel: hapToPanel}, nil
}

// Len returns the number of markers in this window.
func (ix *Index) Len() int { return len(ix.recs) }

// At returns the RefGTRec for marker i.
func (ix *Index) At(i int) RefGTRec { return ix.recs[i] }

// Panel returns the panel of reference haplotype h.
func (ix *Index) Panel(h int) int { return ix.hapToPanel[h] }

// NPanelHaps returns nPanelHaps[p] for every panel p.
func (ix *Index) NPanelHaps() []int { return ix.nPanelHaps }

// NRefHaps returns the total number of reference haplotypes.
func (ix *Index) NRefHaps() int { return len(ix.hapToPanel) }

// sparseNonNullThreshold bounds the fraction of non-major-allele
// haplotypes at which the sparse bucket encoding is still cheaper to
// build and scan than the dense array. Reference panels mix common and
// rare markers within the same window, so Builder.Build decides per
// marker rather than once for the whole window.
const sparseNonNullThreshold = 0.25

// Builder incrementally constructs dense or sparse records for a window
// (spec.md §9's closed RefGTRec sum type).
type Builder struct{}

// Build picks the dense or sparse representation for one marker's raw
// per-haplotype allele vector, choosing sparse when few haplotypes carry
// anything other than the major allele.
func (b *Builder) Build(alleles []int, nAlleles int) RefGTRec {
	if len(alleles) == 0 {
		return b.BuildDense(alleles)
	}
	null := ChooseNull(alleles, nAlleles)
	nonNull := 0
	for _, al := range alleles {
		if al != null {
			nonNull++
		}
	}
	if float64(nonNull) <= sparseNonNullThreshold*float64(len(alleles)) {
		return b.BuildSparse(alleles, null)
	}
	return b.BuildDense(alleles)
}

// BuildDense packs a raw per-haplotype allele vector into a DenseRec.
func (b *Builder) BuildDense(alleles []int) RefGTRec {
	return &DenseRec{Alleles: alleles}
}

// BuildSparse designates null as the null allele and buckets every
// haplotype whose allele differs from null. alleles has length nHaps.
func (b *Builder) BuildSparse(alleles []int, null int) RefGTRec {
	buckets := map[int][]int{}
	for h, a := range alleles {
		if a != null {
			buckets[a] = append(buckets[a], h)
		}
	}
	return NewSparseRec(len(alleles), null, buckets)
}

// ChooseNull picks the most frequent allele in alleles, which is the
// convention for the sparse encoding's null allele (spec.md §3: "one
// designated 'null' allele (typically the major)").
func ChooseNull(alleles []int, nAlleles int) int {
	counts := make([]int, nAlleles)
	for _, a := range alleles {
		counts[a]++
	}
	best, bestCount := 0, -1
	for a, c := range counts {
		if c > bestCount {
			best, bestCount = a, c
		}
	}
	return best
}
