package output

import (
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type outputSuite struct{}

var _ = check.Suite(&outputSuite{})

func (s *outputSuite) TestArgmaxNoTie(c *check.C) {
	tb := NewTieBreaker(1)
	c.Check(tb.Argmax([]float64{0.1, 0.7, 0.2}), check.Equals, 1)
}

func (s *outputSuite) TestArgmaxTieIsDeterministicForSeed(c *check.C) {
	tb1 := NewTieBreaker(42)
	tb2 := NewTieBreaker(42)
	post := []float64{0.5, 0.5, 0.0}
	c.Check(tb1.Argmax(post), check.Equals, tb2.Argmax(post))
}

func (s *outputSuite) TestFormatProbs(c *check.C) {
	c.Check(FormatProbs([]float64{0.333333, 0.666667}), check.Equals, "0.333,0.667")
}

func (s *outputSuite) TestBuildCallProbsOff(c *check.C) {
	tb := NewTieBreaker(1)
	call := BuildCall(tb, []float64{0.9, 0.1}, []float64{0.2, 0.8}, false)
	c.Check(call.AN1, check.Equals, 0)
	c.Check(call.AN2, check.Equals, 1)
	c.Check(call.ANP1, check.Equals, "")
	c.Check(call.ANP2, check.Equals, "")
}

func (s *outputSuite) TestBuildCallProbsOn(c *check.C) {
	tb := NewTieBreaker(1)
	call := BuildCall(tb, []float64{0.9, 0.1}, []float64{0.2, 0.8}, true)
	an1, an2, anp1, anp2 := FormatFields(call, true)
	c.Check(an1, check.Equals, "0")
	c.Check(an2, check.Equals, "1")
	c.Check(anp1, check.Equals, "0.9,0.1")
	c.Check(anp2, check.Equals, "0.2,0.8")
}

func (s *outputSuite) TestFormatFieldsOmitsProbsWhenDisabled(c *check.C) {
	call := Call{AN1: 2, AN2: 3, ANP1: "stale", ANP2: "stale"}
	an1, an2, anp1, anp2 := FormatFields(call, false)
	c.Check(an1, check.Equals, "2")
	c.Check(an2, check.Equals, "3")
	c.Check(anp1, check.Equals, "")
	c.Check(anp2, check.Equals, "")
}
