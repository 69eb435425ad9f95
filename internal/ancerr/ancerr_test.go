package ancerr

import (
	"errors"
	"fmt"
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type ancerrSuite struct{}

var _ = check.Suite(&ancerrSuite{})

func (s *ancerrSuite) TestNewFormatsMessage(c *check.C) {
	err := New(InsufficientData, "no markers remain after filtering")
	c.Check(err.Error(), check.Equals, "insufficient data: no markers remain after filtering")
}

func (s *ancerrSuite) TestWrapNilCauseIsNil(c *check.C) {
	c.Check(Wrap(IO, nil, "opening %s", "x"), check.IsNil)
}

func (s *ancerrSuite) TestWrapChainsCause(c *check.C) {
	cause := errors.New("disk full")
	err := Wrap(IO, cause, "writing output")
	c.Check(err.Error(), check.Equals, "I/O error: writing output: disk full")
}

func (s *ancerrSuite) TestIsMatchesKindThroughChain(c *check.C) {
	err := fmt.Errorf("decoding window: %w", New(NumericFailure, "posterior sums to %g", 1.2))
	c.Check(Is(err, NumericFailure), check.Equals, true)
	c.Check(Is(err, MalformedInput), check.Equals, false)
}

func (s *ancerrSuite) TestIsFalseForPlainError(c *check.C) {
	c.Check(Is(errors.New("plain"), IO), check.Equals, false)
	c.Check(Is(nil, IO), check.Equals, false)
}
