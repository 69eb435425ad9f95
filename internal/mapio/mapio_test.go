package mapio

import (
	"strings"
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type mapioSuite struct{}

var _ = check.Suite(&mapioSuite{})

const sampleMap = `chr1 rs1 0.0 1000
chr1 rs2 1.0 2000
chr1 rs3 2.0 4000
chr2 rs4 5.0 500
chr2 rs5 6.0 1500
`

func (s *mapioSuite) TestReadAndInterpolateExactAndBetween(c *check.C) {
	m, err := Read(strings.NewReader(sampleMap))
	c.Assert(err, check.IsNil)

	cm1 := m.Chrom("chr1")
	c.Assert(cm1, check.NotNil)

	v, err := cm1.CM(2000)
	c.Assert(err, check.IsNil)
	c.Check(v, check.Equals, 1.0)

	v, err = cm1.CM(3000)
	c.Assert(err, check.IsNil)
	c.Check(v, check.Equals, 1.5)
}

func (s *mapioSuite) TestExtrapolationOutsideRange(c *check.C) {
	m, err := Read(strings.NewReader(sampleMap))
	c.Assert(err, check.IsNil)
	cm1 := m.Chrom("chr1")

	v, err := cm1.CM(0)
	c.Assert(err, check.IsNil)
	c.Check(v, check.Equals, -1.0)

	v, err = cm1.CM(5000)
	c.Assert(err, check.IsNil)
	c.Check(v, check.Equals, 2.5)
}

func (s *mapioSuite) TestUnknownChromosomeIsNil(c *check.C) {
	m, err := Read(strings.NewReader(sampleMap))
	c.Assert(err, check.IsNil)
	c.Check(m.Chrom("chr9"), check.IsNil)
}

func (s *mapioSuite) TestReadRejectsMalformedLine(c *check.C) {
	_, err := Read(strings.NewReader("chr1 rs1 0.0\n"))
	c.Check(err, check.ErrorMatches, ".*expected 4 fields, got 3.*")
}

func (s *mapioSuite) TestSingleEntryChromIsConstant(c *check.C) {
	m, err := Read(strings.NewReader("chr3 rs9 3.0 100\n"))
	c.Assert(err, check.IsNil)
	cm3 := m.Chrom("chr3")
	v, err := cm3.CM(999999)
	c.Assert(err, check.IsNil)
	c.Check(v, check.Equals, 3.0)
}
