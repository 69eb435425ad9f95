package nametable

import (
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type nametableSuite struct{}

var _ = check.Suite(&nametableSuite{})

func (s *nametableSuite) TestInternIsIdempotent(c *check.C) {
	tbl := New()
	a := tbl.Intern("chr1")
	b := tbl.Intern("chr2")
	a2 := tbl.Intern("chr1")
	c.Check(a, check.Equals, a2)
	c.Check(a, check.Not(check.Equals), b)
	c.Check(tbl.Len(), check.Equals, 2)
}

func (s *nametableSuite) TestNameRoundTrips(c *check.C) {
	tbl := New()
	idx := tbl.Intern("AFR")
	c.Check(tbl.Name(idx), check.Equals, "AFR")
}

func (s *nametableSuite) TestLookupUnknown(c *check.C) {
	tbl := New()
	tbl.Intern("EUR")
	_, ok := tbl.Lookup("AFR")
	c.Check(ok, check.Equals, false)
	idx, ok := tbl.Lookup("EUR")
	c.Check(ok, check.Equals, true)
	c.Check(tbl.Name(idx), check.Equals, "EUR")
}

func (s *nametableSuite) TestHashStableAndDistinct(c *check.C) {
	c.Check(Hash("chr1"), check.Equals, Hash("chr1"))
	c.Check(Hash("chr1"), check.Not(check.Equals), Hash("chr2"))
}
