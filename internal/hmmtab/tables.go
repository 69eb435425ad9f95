// Package hmmtab precomputes, per window, the HMM's per-marker emission
// table and per-gap transition scalars (spec.md §4.1, §4.3). Rebuilt
// whenever ModelParams change (every EM iteration), as required by §4.3.
package hmmtab

import (
	"math"

	"github.com/arvados/ancinfer/internal/params"
	"gonum.org/v1/gonum/mat"
)

// admixtureRateDivisor is the generations-per-Morgan scaling constant used
// to turn T (generations since admixture) and a cM distance into an
// admixture-switch probability r = 1 - exp(-(T/admixtureRateDivisor)*d).
// spec.md §9 leaves this ambiguous between T/50 and T/100; see DESIGN.md
// "Open-question decisions" item 1 for why 50 was chosen.
const admixtureRateDivisor = 50.0

// EmissionTable is the A x P mismatch-probability table for one window
// (shared across all markers in the window, since eps doesn't vary by
// marker — only by ancestry and panel).
type EmissionTable struct {
	Eps *mat.Dense // A x P, P(mismatch | ancestry, panel)
}

// NewEmissionTable copies the model's eps matrix, which is reused
// unchanged for every marker in a window.
func NewEmissionTable(m *params.Model) *EmissionTable {
	return &EmissionTable{Eps: mat.DenseCopyOf(m.Eps)}
}

// Prob returns P(emission | ancestry a, panel p, match). match is whether
// the study allele equals the reference allele at this (haplotype,
// marker).
func (e *EmissionTable) Prob(a, p int, match bool) float64 {
	eps := e.Eps.At(a, p)
	if match {
		return 1 - eps
	}
	return eps
}

// GapTransition holds the scalar triples (r, q[a], 1-q[a]) for one
// inter-marker gap (spec.md §4.3).
type GapTransition struct {
	R        float64   // admixture-switch probability for this gap
	Q        []float64 // per-ancestry "no pre-admixture switch" probability
	OneMinus []float64 // 1 - Q, precomputed to avoid repeated subtraction
}

// BuildGapTransition computes the scalar triples for a gap of cM distance
// d, given the model's T and per-ancestry rho.
func BuildGapTransition(m *params.Model, d float64) GapTransition {
	a := len(m.Rho)
	q := make([]float64, a)
	oneMinus := make([]float64, a)
	for i, rho := range m.Rho {
		q[i] = math.Exp(-rho * d)
		oneMinus[i] = 1 - q[i]
	}
	r := 1 - math.Exp(-(m.T/admixtureRateDivisor)*d)
	return GapTransition{R: r, Q: q, OneMinus: oneMinus}
}

// BuildGapTransitions computes one GapTransition per inter-marker gap in a
// window, given the forward distances dist[i] (distance from marker i to
// i+1), so len(dist) is the window's marker count minus one.
func BuildGapTransitions(m *params.Model, dist []float64) []GapTransition {
	out := make([]GapTransition, len(dist))
	for i, d := range dist {
		out[i] = BuildGapTransition(m, d)
	}
	return out
}

// Stationary returns π(h,a) = mu[a] * theta[a][panel(h)] / nPanelHaps[panel(h)]
// for every (h,a) pair with panel(h) eligible for a, as a dense A x Nref
// matrix (zero where panel(h) is ineligible for a).
func Stationary(m *params.Model, hapToPanel []int, nPanelHaps []int) *mat.Dense {
	a := len(m.Mu)
	nref := len(hapToPanel)
	pi := mat.NewDense(a, nref, nil)
	for anc := 0; anc < a; anc++ {
		for h, panel := range hapToPanel {
			theta := m.Theta.At(anc, panel)
			if theta == 0 {
				continue
			}
			pi.Set(anc, h, m.Mu[anc]*theta/float64(nPanelHaps[panel]))
		}
	}
	return pi
}
