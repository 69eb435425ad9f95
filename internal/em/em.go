// Package em implements the expectation-maximization driver that
// estimates T (generations since admixture) and mu (global ancestry
// proportions), holding theta, eps, and rho fixed (spec.md §4.4).
//
// The driver is a sequential state machine; all the parallelism lives
// inside the forward-backward pass it calls each iteration (spec.md
// §4.4: "The EM driver is a sequential state machine; parallelism lives
// inside FB"). Its iterate/score/terminate shape follows the generic
// HMM-EM sketch in the pack's hmm_learn.go reference
// (CheckConvergence: tolerance + max-iteration termination), adapted to
// spec.md §4.4's exact termination rule.
package em

import (
	"math"

	"github.com/arvados/ancinfer/internal/fb"
	"github.com/arvados/ancinfer/internal/params"
)

// MinT and MaxT bound the estimated generations-since-admixture (spec.md
// §4.4 step 3: "clamped to [1, 1000]").
const (
	MinT = 1.0
	MaxT = 1000.0
	// DefaultNu is the Dirichlet pseudocount added to each ancestry's
	// accumulated posterior mass before renormalizing mu, to avoid
	// zeros (spec.md §4.4 step 3).
	DefaultNu = 1.0
	// DefaultTolerance is the convergence threshold on Δ (spec.md
	// §4.4 step 4/Termination).
	DefaultTolerance = 1e-3
	// DefaultMaxIterations bounds the EM loop (spec.md §4.4
	// Termination).
	DefaultMaxIterations = 20
)

// Accumulator holds the sufficient statistics gathered from one
// forward-backward pass over the EM window, across every study sample and
// haplotype (spec.md §4.4 step 2).
type Accumulator struct {
	NA                    []float64 // per-ancestry accumulated posterior mass
	ExpectedSwitches      float64
	ExpectedOpportunities float64
}

// NewAccumulator returns a zeroed Accumulator for A ancestries.
func NewAccumulator(a int) *Accumulator {
	return &Accumulator{NA: make([]float64, a)}
}

// Add folds one haplotype's forward-backward Result into the accumulator.
// gapCM[m] is the cM distance of the gap SwitchProb[m] refers to, so that
// ExpectedOpportunities accumulates cM rather than a bare gap count —
// UpdateT needs a rate per cM to recover T via hmmtab's r = 1 -
// exp(-(T/divisor)*d) relation. Reduction order across haplotypes is the
// caller's iteration order, which is fixed (original study-sample order,
// hap 0 then hap 1) so that repeated runs accumulate in the same order
// and produce bit-identical sums (spec.md §5 determinism / "reduction
// order is fixed").
func (acc *Accumulator) Add(res *fb.Result, gapCM []float64) {
	for _, post := range res.Posterior {
		for a, p := range post {
			acc.NA[a] += p
		}
	}
	for i, sp := range res.SwitchProb {
		if sp < 0 {
			sp = 0
		}
		if sp > 1 {
			sp = 1
		}
		acc.ExpectedSwitches += sp
		acc.ExpectedOpportunities += gapCM[i]
	}
}

// Merge adds another accumulator's totals into acc, in the order the
// caller presents them (pairwise sum, fixed order, per spec.md §5).
func (acc *Accumulator) Merge(other *Accumulator) {
	for a := range acc.NA {
		acc.NA[a] += other.NA[a]
	}
	acc.ExpectedSwitches += other.ExpectedSwitches
	acc.ExpectedOpportunities += other.ExpectedOpportunities
}

// UpdateMu computes mu' = (n_a + nu) / sum_a(n_a + nu) (spec.md §4.4 step
// 3).
func UpdateMu(na []float64, nu float64) []float64 {
	mu := make([]float64, len(na))
	total := 0.0
	for a, n := range na {
		mu[a] = n + nu
		total += mu[a]
	}
	for a := range mu {
		mu[a] /= total
	}
	return mu
}

// UpdateT computes T' = expectedSwitches/expectedOpportunities (a
// switches-per-cM rate) converted back to generations via the same
// admixtureRateDivisor hmmtab's transition kernel uses, clamped to [MinT,
// MaxT] (spec.md §4.4 step 3). expectedOpportunities must be accumulated
// as total cM (see Accumulator.Add), not a bare gap count, since the
// small-rd approximation r ≈ (T/divisor)*d needs a per-cM rate to invert.
func UpdateT(expectedSwitches, expectedOpportunities float64) float64 {
	if expectedOpportunities <= 0 {
		return MinT
	}
	rate := expectedSwitches / expectedOpportunities
	t := rate * admixtureRateDivisor
	if t < MinT {
		t = MinT
	}
	if t > MaxT {
		t = MaxT
	}
	return t
}

// admixtureRateDivisor mirrors hmmtab.admixtureRateDivisor. It is
// duplicated here because hmmtab's constant is unexported; the two values
// must stay equal. See DESIGN.md "Open-question decisions" item 1 for why
// 50 was chosen.
const admixtureRateDivisor = 50.0

// ConvergenceScore computes Δ = max(|T'-T|/T, max_a|mu'[a]-mu[a]|)
// (spec.md §4.4 step 4).
func ConvergenceScore(tOld, tNew float64, muOld, muNew []float64) float64 {
	delta := math.Abs(tNew-tOld) / tOld
	for a := range muOld {
		d := math.Abs(muNew[a] - muOld[a])
		if d > delta {
			delta = d
		}
	}
	return delta
}

// IterationLog records one EM iteration's diagnostics for the .log file
// (SPEC_FULL.md §3 item 1).
type IterationLog struct {
	Iteration int
	T         float64
	Mu        []float64
	LogP      float64
	Delta     float64
}

// RunFB is the caller-supplied hook that runs forward-backward over the
// EM window under the given model and returns an accumulator folded from
// every study haplotype's Result, plus the total log-likelihood (summed
// over haplotypes) for the improvement check.
type RunFB func(model *params.Model) (*Accumulator, float64, error)

// Run executes the EM loop of spec.md §4.4 and returns the final model
// plus a per-iteration diagnostic log. At least one iteration always
// runs.
func Run(initial *params.Model, maxIterations int, tolerance, nu float64, runFB RunFB) (*params.Model, []IterationLog, error) {
	if maxIterations < 1 {
		maxIterations = 1
	}
	model := initial.Clone()
	var logs []IterationLog
	prevLogP := math.Inf(-1)

	for iter := 0; iter < maxIterations; iter++ {
		acc, logP, err := runFB(model)
		if err != nil {
			return nil, logs, err
		}

		newT := UpdateT(acc.ExpectedSwitches, acc.ExpectedOpportunities)
		newMu := UpdateMu(acc.NA, nu)
		delta := ConvergenceScore(model.T, newT, model.Mu, newMu)

		logs = append(logs, IterationLog{
			Iteration: iter,
			T:         newT,
			Mu:        newMu,
			LogP:      logP,
			Delta:     delta,
		})

		model.T = newT
		model.Mu = newMu

		if delta < tolerance {
			break
		}
		if iter > 0 && logP < prevLogP-tolerance {
			break
		}
		prevLogP = logP
	}
	return model, logs, nil
}
