package fb

import (
	"testing"

	"github.com/arvados/ancinfer/internal/hmmtab"
	"github.com/arvados/ancinfer/internal/params"
	"github.com/arvados/ancinfer/internal/testsynth"
	"gopkg.in/check.v1"
)

type scenarioSuite struct{}

var _ = check.Suite(&scenarioSuite{})

func scenarioModel(nAncestries, nPanels int) *params.Model {
	ancToPanels := [][]int{{0}, {1}}
	return &params.Model{
		T:     10,
		Mu:    params.DefaultMu(nAncestries),
		Theta: params.DefaultTheta(ancToPanels, nPanels),
		Eps:   params.DefaultEps(ancToPanels, nPanels, 0.01),
		Rho:   []float64{1, 1},
	}
}

// TestIdenticalHaplotypeDecodesWithHighConfidence exercises S1: a study
// haplotype identical to one reference panel throughout should decode
// to that panel's ancestry with posterior well above 0.5 at every
// marker.
func (s *scenarioSuite) TestIdenticalHaplotypeDecodesWithHighConfidence(c *check.C) {
	const nMarkers = 20
	ix, _ := testsynth.TwoPanelRef(nMarkers, 5)
	model := scenarioModel(2, 2)
	emis := hmmtab.NewEmissionTable(model)
	gaps := hmmtab.BuildGapTransitions(model, testsynth.UniformCMGaps(nMarkers, 0.1, -1, 0))

	alleles := testsynth.IdentityStudyHaplotype(nMarkers, 0)
	res, err := DecodeHaplotype(model, ix, emis, gaps, alleles)
	c.Assert(err, check.IsNil)
	for m, post := range res.Posterior {
		c.Check(post[0] > post[1], check.Equals, true, check.Commentf("marker %d: %v", m, post))
	}
}

// TestCleanSwitchRecoversBothSegments exercises S2: a study haplotype
// that matches panel 0 for the first half of the window and panel 1
// for the second half, with a wide cM gap at the switch point, should
// decode each half to its matching ancestry.
func (s *scenarioSuite) TestCleanSwitchRecoversBothSegments(c *check.C) {
	const nMarkers = 100
	const switchAt = 50
	ix, _ := testsynth.TwoPanelRef(nMarkers, 10)
	model := scenarioModel(2, 2)
	emis := hmmtab.NewEmissionTable(model)
	gaps := hmmtab.BuildGapTransitions(model, testsynth.UniformCMGaps(nMarkers, 0.05, switchAt-1, 10))

	alleles := testsynth.SwitchStudyHaplotype(nMarkers, switchAt)
	res, err := DecodeHaplotype(model, ix, emis, gaps, alleles)
	c.Assert(err, check.IsNil)
	c.Check(res.Posterior[0][0] > res.Posterior[0][1], check.Equals, true)
	c.Check(res.Posterior[nMarkers-1][1] > res.Posterior[nMarkers-1][0], check.Equals, true)
}
