// Package testsynth builds the synthetic reference panels, study
// haplotypes, and genetic maps used by the concrete end-to-end
// scenarios in spec.md §8 (S1-S6). Allele draws use gonum's
// stat/distuv distributions rather than raw math/rand, mirroring the
// pack's use of distuv in places that need named distributions over
// ad hoc rand calls (SPEC_FULL.md Domain Stack).
package testsynth

import (
	"github.com/arvados/ancinfer/internal/genome"
	"github.com/arvados/ancinfer/internal/refidx"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TwoPanelRef builds a reference index with two panels (P0, P1), each
// with hapsPerPanel haplotypes, over nMarkers biallelic markers where
// every P0 haplotype carries allele 0 and every P1 haplotype carries
// allele 1 at every marker (spec.md S1/S2's "distinct all-0 vs all-1
// alleles" setup).
func TwoPanelRef(nMarkers, hapsPerPanel int) (*refidx.Index, *genome.Panels) {
	nHaps := 2 * hapsPerPanel
	recs := make([]refidx.RefGTRec, nMarkers)
	for m := 0; m < nMarkers; m++ {
		alleles := make([]int, nHaps)
		for h := 0; h < hapsPerPanel; h++ {
			alleles[h] = 0
			alleles[hapsPerPanel+h] = 1
		}
		recs[m] = &refidx.DenseRec{Alleles: alleles}
	}
	hapToPanel := make([]int, nHaps)
	for h := 0; h < hapsPerPanel; h++ {
		hapToPanel[h] = 0
		hapToPanel[hapsPerPanel+h] = 1
	}
	panels, err := genome.NewPanels([]int{0, 1}, hapToPanel)
	if err != nil {
		panic(err)
	}
	ix, err := refidx.NewIndex(recs, hapToPanel, 2)
	if err != nil {
		panic(err)
	}
	return ix, panels
}

// IdentityStudyHaplotype returns nMarkers alleles all equal to panel
// (0 or 1), used for S1: a study haplotype identical to hap 0 of one
// panel throughout.
func IdentityStudyHaplotype(nMarkers, panel int) []int {
	alleles := make([]int, nMarkers)
	for i := range alleles {
		alleles[i] = panel
	}
	return alleles
}

// SwitchStudyHaplotype returns a study haplotype matching panel 0 for
// markers [0,switchAt) and panel 1 for markers [switchAt,nMarkers), for
// S2's clean-switch scenario.
func SwitchStudyHaplotype(nMarkers, switchAt int) []int {
	alleles := make([]int, nMarkers)
	for i := range alleles {
		if i < switchAt {
			alleles[i] = 0
		} else {
			alleles[i] = 1
		}
	}
	return alleles
}

// UniformCMGaps returns nMarkers-1 gap distances in cM, all equal to
// stepCM, except that gapIdx (if >= 0) is overridden to gapCM — S2's
// "10 cM gap at marker 49->50."
func UniformCMGaps(nMarkers int, stepCM float64, gapIdx int, gapCM float64) []float64 {
	gaps := make([]float64, nMarkers-1)
	for i := range gaps {
		gaps[i] = stepCM
	}
	if gapIdx >= 0 && gapIdx < len(gaps) {
		gaps[gapIdx] = gapCM
	}
	return gaps
}

// MixtureStudyHaplotype draws nMarkers alleles by, at each marker,
// picking ancestry a with probability mu[a] (via a discrete draw built
// from distuv.Uniform) and then emitting that ancestry's panel allele,
// for S3's "simulated study by drawing each allele from the per-ancestry
// panel mixture."
func MixtureStudyHaplotype(nMarkers int, mu []float64, seed uint64) []int {
	u := distuv.Uniform{Min: 0, Max: 1, Src: rand.NewSource(seed)}
	alleles := make([]int, nMarkers)
	for i := 0; i < nMarkers; i++ {
		x := u.Rand()
		cum := 0.0
		anc := len(mu) - 1
		for a, p := range mu {
			cum += p
			if x < cum {
				anc = a
				break
			}
		}
		alleles[i] = anc
	}
	return alleles
}

// AlternatingBernoulliNoise flips each allele in alleles independently
// with probability eps, using distuv.Bernoulli, to synthesize
// genotyping error for error-rate tests.
func AlternatingBernoulliNoise(alleles []int, eps float64, seed uint64) []int {
	b := distuv.Bernoulli{P: eps, Src: rand.NewSource(seed)}
	out := make([]int, len(alleles))
	for i, a := range alleles {
		if b.Rand() == 1 {
			out[i] = 1 - a
		} else {
			out[i] = a
		}
	}
	return out
}
