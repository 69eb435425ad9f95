package hmmtab

import (
	"math"
	"testing"

	"github.com/arvados/ancinfer/internal/params"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type hmmtabSuite struct{}

var _ = check.Suite(&hmmtabSuite{})

func simpleModel() *params.Model {
	ancToPanels := [][]int{{0}, {1}}
	return &params.Model{
		T:     10,
		Mu:    []float64{0.5, 0.5},
		Theta: params.DefaultTheta(ancToPanels, 2),
		Eps:   params.DefaultEps(ancToPanels, 2, 0.02),
		Rho:   []float64{1, 2},
	}
}

func (s *hmmtabSuite) TestEmissionTableMatchMismatch(c *check.C) {
	emis := NewEmissionTable(simpleModel())
	c.Check(emis.Prob(0, 0, true), check.Equals, 0.98)
	c.Check(emis.Prob(0, 0, false), check.Equals, 0.02)
}

func (s *hmmtabSuite) TestBuildGapTransitionZeroDistanceIsIdentity(c *check.C) {
	gap := BuildGapTransition(simpleModel(), 0)
	c.Check(gap.R, check.Equals, 0.0)
	for i, q := range gap.Q {
		c.Check(q, check.Equals, 1.0)
		c.Check(gap.OneMinus[i], check.Equals, 0.0)
	}
}

func (s *hmmtabSuite) TestBuildGapTransitionMatchesClosedForm(c *check.C) {
	m := simpleModel()
	gap := BuildGapTransition(m, 0.5)
	c.Check(gap.R, check.Equals, 1-math.Exp(-(m.T/admixtureRateDivisor)*0.5))
	c.Check(gap.Q[0], check.Equals, math.Exp(-m.Rho[0]*0.5))
	c.Check(gap.Q[1], check.Equals, math.Exp(-m.Rho[1]*0.5))
}

func (s *hmmtabSuite) TestBuildGapTransitionsOnePerGap(c *check.C) {
	gaps := BuildGapTransitions(simpleModel(), []float64{0.1, 0.2, 0.3})
	c.Assert(gaps, check.HasLen, 3)
}

func (s *hmmtabSuite) TestStationaryZeroForIneligiblePanel(c *check.C) {
	m := simpleModel()
	hapToPanel := []int{0, 0, 1, 1}
	nPanelHaps := []int{2, 2}
	pi := Stationary(m, hapToPanel, nPanelHaps)
	// Ancestry 0 is only eligible for panel 0 (haps 0,1); panel 1 haps
	// (2,3) must be zero.
	c.Check(pi.At(0, 2), check.Equals, 0.0)
	c.Check(pi.At(0, 3), check.Equals, 0.0)
	c.Check(pi.At(0, 0), check.Equals, 0.5*1.0/2.0)
	c.Check(pi.At(1, 0), check.Equals, 0.0)
	c.Check(pi.At(1, 2), check.Equals, 0.5*1.0/2.0)
}
