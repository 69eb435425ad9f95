package params

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/check.v1"
)

type modelfileSuite struct{}

var _ = check.Suite(&modelfileSuite{})

func (s *modelfileSuite) TestReadParsesWellFormedFile(c *check.C) {
	text := `AFR EUR
P0 P1
12.5
0.5 0.5
0.9 0.1
0.1 0.9
0.02 0.03
0.04 0.03
1.0 2.0
`
	fc, err := Read(strings.NewReader(text))
	c.Assert(err, check.IsNil)
	c.Check(fc.AncestryNames, check.DeepEquals, []string{"AFR", "EUR"})
	c.Check(fc.PanelNames, check.DeepEquals, []string{"P0", "P1"})
	c.Check(fc.Model.T, check.Equals, 12.5)
	c.Check(fc.Model.Mu, check.DeepEquals, []float64{0.5, 0.5})
	c.Check(fc.Model.Theta.At(0, 0), check.Equals, 0.9)
	c.Check(fc.Model.Eps.At(1, 1), check.Equals, 0.03)
	c.Check(fc.Model.Rho, check.DeepEquals, []float64{1.0, 2.0})
}

func (s *modelfileSuite) TestReadRejectsTruncatedFile(c *check.C) {
	_, err := Read(strings.NewReader("AFR EUR\nP0 P1\n"))
	c.Check(err, check.ErrorMatches, ".*missing T line.*")
}

func (s *modelfileSuite) TestWriteReadRoundTripPreservesFractionalT(c *check.C) {
	ancToPanels := [][]int{{0}, {1}}
	fc := &FileContents{
		AncestryNames: []string{"AFR", "EUR"},
		PanelNames:    []string{"P0", "P1"},
		Model: &Model{
			T:     7.3125,
			Mu:    DefaultMu(2),
			Theta: DefaultTheta(ancToPanels, 2),
			Eps:   DefaultEps(ancToPanels, 2, 0.01),
			Rho:   DefaultRho(2, 1.5),
		},
	}
	var buf bytes.Buffer
	c.Assert(Write(&buf, fc), check.IsNil)

	fc2, err := Read(&buf)
	c.Assert(err, check.IsNil)
	c.Check(fc2.Model.T, check.Equals, 7.3125)
	c.Check(fc2.AncestryNames, check.DeepEquals, fc.AncestryNames)
	c.Check(fc2.Model.Rho, check.DeepEquals, fc.Model.Rho)
}
