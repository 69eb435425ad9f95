// Package output couples forward-backward posteriors into the VCF
// FORMAT field encoding spec.md §6 describes: AN1/AN2 (argmax ancestry
// per haplotype) and, in "probs" mode, ANP1/ANP2 (posterior arrays to
// three significant digits).
package output

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

// TieBreaker deterministically breaks ties among equal-posterior
// ancestries using a seeded RNG (SPEC_FULL.md §3 item 6: the seed only
// affects random tie-breaking among equal-posterior ancestries, per
// spec.md §5's determinism guarantee).
type TieBreaker struct {
	rng *rand.Rand
}

// NewTieBreaker seeds a TieBreaker from the CLI seed= value.
func NewTieBreaker(seed int64) *TieBreaker {
	return &TieBreaker{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

// Argmax returns the index of the largest entry in posterior, breaking
// exact ties uniformly at random via the TieBreaker's RNG.
func (tb *TieBreaker) Argmax(posterior []float64) int {
	best := 0
	bestVal := posterior[0]
	ties := []int{0}
	for a := 1; a < len(posterior); a++ {
		v := posterior[a]
		switch {
		case v > bestVal:
			best, bestVal = a, v
			ties = ties[:0]
			ties = append(ties, a)
		case v == bestVal:
			ties = append(ties, a)
		}
	}
	if len(ties) > 1 {
		best = ties[tb.rng.IntN(len(ties))]
	}
	return best
}

// FormatProbs renders a posterior vector as a comma-separated list with
// three significant digits (spec.md §6: "comma-separated length-A
// probability arrays, three significant digits").
func FormatProbs(posterior []float64) string {
	parts := make([]string, len(posterior))
	for i, p := range posterior {
		parts[i] = strconv.FormatFloat(p, 'g', 3, 64)
	}
	return strings.Join(parts, ",")
}

// Call is the per-haplotype-pair output for one study sample at one
// marker: the argmax ancestry on each haplotype, and optionally the full
// posterior arrays.
type Call struct {
	AN1, AN2   int
	ANP1, ANP2 string // empty unless probs mode
}

// BuildCall couples a pair of haplotype posteriors into a Call.
func BuildCall(tb *TieBreaker, post1, post2 []float64, probs bool) Call {
	c := Call{
		AN1: tb.Argmax(post1),
		AN2: tb.Argmax(post2),
	}
	if probs {
		c.ANP1 = FormatProbs(post1)
		c.ANP2 = FormatProbs(post2)
	}
	return c
}

// FormatFields renders the per-sample values of the four FORMAT keys
// spec.md §6 adds: AN1, AN2 (each one integer) and, in probs mode, ANP1,
// ANP2 (each a comma-separated length-A array). AN1:AN2 is the FORMAT
// key pair, not a single comma-joined value — each key holds one
// haplotype's call.
func FormatFields(c Call, probs bool) (an1, an2, anp1, anp2 string) {
	an1 = strconv.Itoa(c.AN1)
	an2 = strconv.Itoa(c.AN2)
	if probs {
		anp1, anp2 = c.ANP1, c.ANP2
	}
	return an1, an2, anp1, anp2
}
