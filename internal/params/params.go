// Package params holds ModelParams (spec.md §3) and its .model file
// round-trip (spec.md §6).
package params

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model is mutable across EM iterations, immutable within one
// forward-backward pass (spec.md §3 ModelParams).
type Model struct {
	T     float64    // generations since admixture
	Mu    []float64  // per-ancestry global proportion, sums to 1
	Theta *mat.Dense // A x P, P(panel|ancestry), rows sum to 1
	Eps   *mat.Dense // A x P, per-state allele mismatch probability
	Rho   []float64  // per-ancestry exponential rate, cM^-1
}

// Clone returns a deep copy, so an EM iteration can propose updated
// parameters without mutating the ones the current forward-backward pass
// is reading (spec.md §4.2: "no mutation of shared state occurs during
// FB").
func (m *Model) Clone() *Model {
	c := &Model{
		T:   m.T,
		Mu:  append([]float64(nil), m.Mu...),
		Rho: append([]float64(nil), m.Rho...),
	}
	if m.Theta != nil {
		c.Theta = mat.DenseCopyOf(m.Theta)
	}
	if m.Eps != nil {
		c.Eps = mat.DenseCopyOf(m.Eps)
	}
	return c
}

// Validate checks the invariants in spec.md §3: proportions sum to 1 and
// are positive, theta rows sum to 1 and are zero outside ancToPanels[a],
// eps in (0,0.5) at eligible panels (eps cells outside ancToPanels[a] are
// not checked), rho > 0.
func (m *Model) Validate(ancToPanels [][]int) error {
	a := len(m.Mu)
	if a < 2 {
		return fmt.Errorf("model has fewer than 2 ancestries")
	}
	sum := 0.0
	for _, mu := range m.Mu {
		if mu <= 0 || math.IsNaN(mu) || math.IsInf(mu, 0) {
			return fmt.Errorf("mu entries must be finite and positive, got %g", mu)
		}
		sum += mu
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("mu does not sum to 1: got %g", sum)
	}
	if m.Theta == nil {
		return fmt.Errorf("theta is nil")
	}
	ra, p := m.Theta.Dims()
	if ra != a {
		return fmt.Errorf("theta has %d rows, want %d", ra, a)
	}
	eligible := make([]map[int]bool, a)
	for i, panels := range ancToPanels {
		eligible[i] = make(map[int]bool, len(panels))
		for _, pp := range panels {
			eligible[i][pp] = true
		}
	}
	for i := 0; i < a; i++ {
		rowSum := 0.0
		for j := 0; j < p; j++ {
			v := m.Theta.At(i, j)
			if eligible[i][j] {
				if v < 0 {
					return fmt.Errorf("theta[%d][%d] is negative", i, j)
				}
			} else if v != 0 {
				return fmt.Errorf("theta[%d][%d]=%g but panel %d is not eligible for ancestry %d", i, j, v, j, i)
			}
			rowSum += v
		}
		if math.Abs(rowSum-1) > 1e-9 {
			return fmt.Errorf("theta row %d sums to %g, want 1", i, rowSum)
		}
	}
	if m.Eps == nil {
		return fmt.Errorf("eps is nil")
	}
	ea, ep := m.Eps.Dims()
	if ea != a || ep != p {
		return fmt.Errorf("eps has dims %dx%d, want %dx%d", ea, ep, a, p)
	}
	for i := 0; i < ea; i++ {
		for j := 0; j < ep; j++ {
			if !eligible[i][j] {
				continue
			}
			v := m.Eps.At(i, j)
			if v <= 0 || v >= 0.5 {
				return fmt.Errorf("eps[%d][%d]=%g not in (0,0.5)", i, j, v)
			}
		}
	}
	if len(m.Rho) != a {
		return fmt.Errorf("rho has %d entries, want %d", len(m.Rho), a)
	}
	for i, r := range m.Rho {
		if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("rho[%d]=%g must be finite and positive", i, r)
		}
	}
	return nil
}

// DefaultEps builds an A x P matrix with every eligible cell set to eps0
// and every other cell zero.
func DefaultEps(ancToPanels [][]int, p int, eps0 float64) *mat.Dense {
	a := len(ancToPanels)
	m := mat.NewDense(a, p, nil)
	for i, panels := range ancToPanels {
		for _, pp := range panels {
			m.Set(i, pp, eps0)
		}
	}
	return m
}

// DefaultTheta builds an A x P matrix where each ancestry's eligible
// panels share probability mass uniformly.
func DefaultTheta(ancToPanels [][]int, p int) *mat.Dense {
	a := len(ancToPanels)
	m := mat.NewDense(a, p, nil)
	for i, panels := range ancToPanels {
		share := 1.0 / float64(len(panels))
		for _, pp := range panels {
			m.Set(i, pp, share)
		}
	}
	return m
}

// DefaultRho returns a uniform per-ancestry IBD rate.
func DefaultRho(a int, rho0 float64) []float64 {
	r := make([]float64, a)
	for i := range r {
		r[i] = rho0
	}
	return r
}

// DefaultMu returns a uniform global ancestry proportion vector.
func DefaultMu(a int) []float64 {
	mu := make([]float64, a)
	for i := range mu {
		mu[i] = 1.0 / float64(a)
	}
	return mu
}
