package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/arvados/ancinfer/internal/ancerr"
	"github.com/arvados/ancinfer/internal/genome"
	"github.com/arvados/ancinfer/internal/globalanc"
	"github.com/arvados/ancinfer/internal/nametable"
	"github.com/arvados/ancinfer/internal/refidx"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type mainSuite struct{}

var _ = check.Suite(&mainSuite{})

func (s *mainSuite) TestRunPrintsVersionAndExitsZero(c *check.C) {
	var out bytes.Buffer
	code := Run([]string{"version"}, nil, &out, &bytes.Buffer{})
	c.Check(code, check.Equals, 0)
	c.Check(out.String(), check.Matches, "ancinfer/.*\n")
}

func (s *mainSuite) TestRunExitsTwoOnArgParseError(c *check.C) {
	var errOut bytes.Buffer
	code := Run([]string{"not-key-value"}, nil, &bytes.Buffer{}, &errOut)
	c.Check(code, check.Equals, 2)
	c.Check(errOut.Len() > 0, check.Equals, true)
}

func (s *mainSuite) TestRunExitsTwoOnMissingRequiredArgs(c *check.C) {
	var errOut bytes.Buffer
	code := Run([]string{"loglevel=error"}, nil, &bytes.Buffer{}, &errOut)
	c.Check(code, check.Equals, 2)
}

func (s *mainSuite) TestAlleleFreqPicksSecondMostCommonAllele(c *check.C) {
	rec := &refidx.DenseRec{Alleles: []int{0, 0, 0, 1, 1, 2}}
	fi := alleleFreq(rec, 3)
	c.Check(fi.secondAC, check.Equals, 2)
	c.Check(fi.secondAF, check.Equals, 2.0/6.0)
}

func (s *mainSuite) TestAlleleFreqEmptyRecord(c *check.C) {
	rec := &refidx.DenseRec{Alleles: nil}
	fi := alleleFreq(rec, 2)
	c.Check(fi, check.Equals, freqInfo{})
}

func (s *mainSuite) TestPanelNamesLooksUpLabels(c *check.C) {
	names := nametable.New()
	afr := names.Intern("AFR")
	eur := names.Intern("EUR")
	panels, err := genome.NewPanels([]int{afr, eur}, []int{0, 0, 1, 1})
	c.Assert(err, check.IsNil)
	c.Check(panelNames(panels, names), check.DeepEquals, []string{"AFR", "EUR"})
}

func (s *mainSuite) TestMarkerRecordFormatsFields(c *check.C) {
	names := nametable.New()
	chr1 := names.Intern("chr1")
	markers, err := genome.NewMarkers([]genome.Marker{
		{Chrom: chr1, Pos: 12345, Alleles: []string{"A", "G", "T"}, ID: "rs1", Qual: ".", Filter: "PASS", Info: "."},
	})
	c.Assert(err, check.IsNil)
	rec := markerRecord(markers, 0, names)
	c.Check(rec.Chrom, check.Equals, "chr1")
	c.Check(rec.Pos, check.Equals, "12345")
	c.Check(rec.Ref, check.Equals, "A")
	c.Check(rec.Alt, check.Equals, "G,T")
	c.Check(rec.Format, check.Equals, "GT")
}

func (s *mainSuite) TestWriteGlobalAncestryRoundTripsThroughGzip(c *check.C) {
	dir := c.MkDir()
	path := filepath.Join(dir, "out.tsv.gz")
	tab := globalanc.NewTable(2, 2)
	c.Assert(tab.Add(0, []float64{0.9, 0.1}), check.IsNil)
	c.Assert(tab.Add(1, []float64{0.2, 0.8}), check.IsNil)

	err := writeGlobalAncestry(path, []string{"HG001", "HG002"}, []string{"AFR", "EUR"}, tab)
	c.Assert(err, check.IsNil)

	fi, err := os.Stat(path)
	c.Assert(err, check.IsNil)
	c.Check(fi.Size() > 0, check.Equals, true)
}

func (s *mainSuite) TestExitCodeMappingForErrorKinds(c *check.C) {
	cases := []struct {
		kind ancerr.Kind
		want int
	}{
		{ancerr.MalformedInput, 2},
		{ancerr.InsufficientData, 2},
		{ancerr.InconsistentInput, 2},
		{ancerr.NumericFailure, 3},
		{ancerr.IO, 1},
	}
	for _, tc := range cases {
		err := ancerr.New(tc.kind, "boom")
		got := exitCodeForErr(err)
		c.Check(got, check.Equals, tc.want, check.Commentf("kind %v", tc.kind))
	}
}
