// Package fb implements the forward-backward engine (spec.md §4.2): for
// one study haplotype, it computes per-marker ancestry posteriors over a
// window, exploiting the HMM transition kernel's rank-1 "switch"
// structure to avoid the O(Nref^2) cost of a direct (h,a)->(h',a')
// transition multiply.
//
// The state space is factored into a per-ancestry aggregate F_a (total
// forward/backward mass on ancestry a) and a per-haplotype deviation from
// the baseline that aggregate implies. The closed-form transition update
// derived from spec.md §4.1's two-level mixture kernel is:
//
//	F'_a  = r*mu[a] + (1-r)*F_a
//	pretrans(h,a) = F'_a * theta[a][panel(h)]/nPanelHaps[panel(h)] + (1-r)*q[a]*delta(h,a)
//
// which is O(A*Nref) per marker rather than O(Nref^2).
package fb

import (
	"fmt"
	"math"

	"github.com/arvados/ancinfer/internal/hmmtab"
	"github.com/arvados/ancinfer/internal/params"
	"github.com/arvados/ancinfer/internal/refidx"
)

// massFloor is the threshold below which a state's pre-rescale mass is
// considered numerically negligible: applyEmission sets such a state to
// zero, so its mass is dropped rather than carried into the ancestry
// aggregate.
const massFloor = 1e-300

// Result is the per-marker posterior output of decoding one study
// haplotype across a window, plus the overall log-likelihood of the
// observed allele sequence under the model.
type Result struct {
	// Posterior[m][a] = P(ancestry a | haplotype, marker m), for every
	// marker in the window (both overlap and interior; callers keep
	// only the interior slice when emitting output).
	Posterior [][]float64
	// SwitchProb[m] = P(an admixture-level switch occurred between
	// marker m and m+1 | haplotype), len == nMarkers-1. Used by
	// internal/em to estimate T (spec.md §4.4 step 2).
	SwitchProb []float64
	LogP       float64
}

// panelWeights precomputes theta[a][panel]/nPanelHaps[panel] for every
// (ancestry,panel) pair, since it is reused at every marker.
func panelWeights(model *params.Model, nPanelHaps []int) [][]float64 {
	a, p := model.Theta.Dims()
	w := make([][]float64, a)
	for anc := 0; anc < a; anc++ {
		w[anc] = make([]float64, p)
		for panel := 0; panel < p; panel++ {
			theta := model.Theta.At(anc, panel)
			if theta == 0 {
				continue
			}
			w[anc][panel] = theta / float64(nPanelHaps[panel])
		}
	}
	return w
}

func stationaryAlpha(model *params.Model, ix *refidx.Index, weights [][]float64) [][]float64 {
	a := len(model.Mu)
	nref := ix.NRefHaps()
	alpha := make([][]float64, a)
	for anc := 0; anc < a; anc++ {
		alpha[anc] = make([]float64, nref)
		w := weights[anc]
		for h := 0; h < nref; h++ {
			alpha[anc][h] = model.Mu[anc] * w[ix.Panel(h)]
		}
	}
	return alpha
}

// matchMask computes, for every reference haplotype, whether its allele
// at this marker equals studyAllele. It walks rec.NonNull once instead of
// calling rec.Get(h) once per (ancestry,haplotype) pair. When studyAllele
// is the record's null allele, the mask is first set true everywhere and
// the NonNull walk clears the haplotypes carrying another allele;
// otherwise the mask stays false except at the haplotypes NonNull visits
// with studyAllele (spec.md §9's sparse allele-coded RefGTRec).
func matchMask(rec refidx.RefGTRec, studyAllele int) []bool {
	mask := make([]bool, rec.NHaps())
	if rec.NullAllele() == studyAllele {
		for h := range mask {
			mask[h] = true
		}
	}
	rec.NonNull(func(allele int, haps []int) {
		matches := allele == studyAllele
		for _, h := range haps {
			mask[h] = matches
		}
	})
	return mask
}

// applyEmission multiplies raw(h,a) in place by the emission probability
// given the study allele at this marker, and returns the new sum (the
// rescaling factor).
func applyEmission(raw [][]float64, ix *refidx.Index, marker int, studyAllele int, emis *hmmtab.EmissionTable) float64 {
	rec := ix.At(marker)
	match := matchMask(rec, studyAllele)
	sum := 0.0
	for anc := range raw {
		row := raw[anc]
		for h := range row {
			if row[h] == 0 {
				continue
			}
			p := emis.Prob(anc, ix.Panel(h), match[h])
			v := row[h] * p
			if v < massFloor {
				v = 0
			}
			row[h] = v
			sum += v
		}
	}
	return sum
}

func normalize(raw [][]float64, sum float64) {
	if sum <= 0 {
		return
	}
	for anc := range raw {
		row := raw[anc]
		for h := range row {
			row[h] /= sum
		}
	}
}

// DecodeHaplotype runs scaled forward-backward for one study haplotype's
// allele sequence across all markers of a window (spec.md §4.2).
//
// alleles[m] is the study allele at window marker m; gaps[m] is the
// transition table for the gap between marker m and m+1 (len(gaps) ==
// len(alleles)-1).
func DecodeHaplotype(model *params.Model, ix *refidx.Index, emis *hmmtab.EmissionTable, gaps []hmmtab.GapTransition, alleles []int) (*Result, error) {
	nMarkers := ix.Len()
	if len(alleles) != nMarkers {
		return nil, fmt.Errorf("fb: alleles length %d does not match window marker count %d", len(alleles), nMarkers)
	}
	if len(gaps) != nMarkers-1 {
		return nil, fmt.Errorf("fb: gaps length %d does not match nMarkers-1=%d", len(gaps), nMarkers-1)
	}
	a := len(model.Mu)
	nPanelHaps := ix.NPanelHaps()
	weights := panelWeights(model, nPanelHaps)

	alphaHist := make([][][]float64, nMarkers)
	scale := make([]float64, nMarkers)
	logP := 0.0

	alpha := stationaryAlpha(model, ix, weights)
	sum := applyEmission(alpha, ix, 0, alleles[0], emis)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("fb: non-finite or zero forward mass at marker 0 (sum=%g)", sum)
	}
	normalize(alpha, sum)
	scale[0] = sum
	logP += math.Log(sum)
	alphaHist[0] = alpha

	for m := 1; m < nMarkers; m++ {
		gap := gaps[m-1]
		prev := alphaHist[m-1]
		fPrev := make([]float64, a)
		for anc := 0; anc < a; anc++ {
			s := 0.0
			for _, v := range prev[anc] {
				s += v
			}
			fPrev[anc] = s
		}
		fNext := make([]float64, a)
		for anc := 0; anc < a; anc++ {
			fNext[anc] = gap.R*model.Mu[anc] + (1-gap.R)*fPrev[anc]
		}

		pretrans := make([][]float64, a)
		for anc := 0; anc < a; anc++ {
			row := make([]float64, ix.NRefHaps())
			w := weights[anc]
			prevRow := prev[anc]
			coeff := (1 - gap.R) * gap.Q[anc]
			for h := range row {
				baseline := fPrev[anc] * w[ix.Panel(h)]
				delta := prevRow[h] - baseline
				row[h] = fNext[anc]*w[ix.Panel(h)] + coeff*delta
				if row[h] < 0 {
					row[h] = 0
				}
			}
			pretrans[anc] = row
		}

		sum := applyEmission(pretrans, ix, m, alleles[m], emis)
		if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
			return nil, fmt.Errorf("fb: non-finite or zero forward mass at marker %d (sum=%g)", m, sum)
		}
		normalize(pretrans, sum)
		scale[m] = sum
		logP += math.Log(sum)
		alphaHist[m] = pretrans
	}

	// Backward pass.
	nref := ix.NRefHaps()
	beta := make([][]float64, a)
	for anc := range beta {
		beta[anc] = make([]float64, nref)
		for h := range beta[anc] {
			beta[anc][h] = 1
		}
	}

	posterior := make([][]float64, nMarkers)
	posterior[nMarkers-1] = marginal(alphaHist[nMarkers-1], beta)
	switchProb := make([]float64, nMarkers-1)

	for m := nMarkers - 2; m >= 0; m-- {
		gap := gaps[m]
		rec := ix.At(m + 1)
		match := matchMask(rec, alleles[m+1])
		phi := make([][]float64, a)
		for anc := 0; anc < a; anc++ {
			phi[anc] = make([]float64, nref)
			for h := 0; h < nref; h++ {
				phi[anc][h] = emis.Prob(anc, ix.Panel(h), match[h]) * beta[anc][h]
			}
		}

		wA := make([]float64, a)
		for anc := 0; anc < a; anc++ {
			sPanel := make([]float64, len(weights[anc]))
			for h := 0; h < nref; h++ {
				sPanel[ix.Panel(h)] += phi[anc][h]
			}
			w := 0.0
			for panel, s := range sPanel {
				w += weights[anc][panel] * s
			}
			wA[anc] = w
		}
		cr := 0.0
		for anc := 0; anc < a; anc++ {
			cr += model.Mu[anc] * wA[anc]
		}
		cr *= gap.R
		if scale[m+1] > 0 {
			switchProb[m] = cr / scale[m+1]
		}

		newBeta := make([][]float64, a)
		for anc := 0; anc < a; anc++ {
			row := make([]float64, nref)
			for h := 0; h < nref; h++ {
				v := cr + (1-gap.R)*gap.Q[anc]*phi[anc][h] + (1-gap.R)*gap.OneMinus[anc]*wA[anc]
				if scale[m+1] > 0 {
					v /= scale[m+1]
				}
				if v < 0 {
					v = 0
				}
				row[h] = v
			}
			newBeta[anc] = row
		}
		beta = newBeta
		posterior[m] = marginal(alphaHist[m], beta)
	}

	return &Result{Posterior: posterior, SwitchProb: switchProb, LogP: logP}, nil
}

// marginal computes P(a|x,m) = sum_h alpha(h,a)*beta(h,a), normalized to
// sum to 1 over ancestries.
func marginal(alpha, beta [][]float64) []float64 {
	a := len(alpha)
	out := make([]float64, a)
	total := 0.0
	for anc := 0; anc < a; anc++ {
		s := 0.0
		al, be := alpha[anc], beta[anc]
		for h := range al {
			s += al[h] * be[h]
		}
		out[anc] = s
		total += s
	}
	if total > 0 {
		for anc := range out {
			out[anc] /= total
		}
	}
	return out
}
