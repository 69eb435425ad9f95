package fb

import (
	"context"
	"testing"

	"github.com/arvados/ancinfer/internal/hmmtab"
	"github.com/arvados/ancinfer/internal/params"
	"github.com/arvados/ancinfer/internal/refidx"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type fbSuite struct{}

var _ = check.Suite(&fbSuite{})

// twoAncestryModel builds a model where ancestry 0 is backed only by panel
// 0 (two reference haplotypes carrying allele 0) and ancestry 1 only by
// panel 1 (two reference haplotypes carrying allele 1), with a low
// mismatch rate so a haplotype matching one panel exactly should be
// assigned to its ancestry with high confidence.
func twoAncestryModel() (*params.Model, *refidx.Index, *hmmtab.EmissionTable, []hmmtab.GapTransition) {
	ancToPanels := [][]int{{0}, {1}}
	model := &params.Model{
		T:     10,
		Mu:    []float64{0.5, 0.5},
		Theta: params.DefaultTheta(ancToPanels, 2),
		Eps:   params.DefaultEps(ancToPanels, 2, 0.01),
		Rho:   []float64{1, 1},
	}
	hapToPanel := []int{0, 0, 1, 1}
	recs := make([]refidx.RefGTRec, 3)
	for i := range recs {
		recs[i] = &refidx.DenseRec{Alleles: []int{0, 0, 1, 1}}
	}
	ix, err := refidx.NewIndex(recs, hapToPanel, 2)
	if err != nil {
		panic(err)
	}
	emis := hmmtab.NewEmissionTable(model)
	gaps := hmmtab.BuildGapTransitions(model, []float64{0.1, 0.1})
	return model, ix, emis, gaps
}

func (s *fbSuite) TestDecodeHaplotypeFavorsMatchingAncestry(c *check.C) {
	model, ix, emis, gaps := twoAncestryModel()
	res, err := DecodeHaplotype(model, ix, emis, gaps, []int{0, 0, 0})
	c.Assert(err, check.IsNil)
	c.Assert(res.Posterior, check.HasLen, 3)
	for m, post := range res.Posterior {
		c.Check(post[0] > post[1], check.Equals, true, check.Commentf("marker %d: %v", m, post))
		sum := post[0] + post[1]
		c.Check(sum > 0.999 && sum < 1.001, check.Equals, true)
	}
	c.Check(res.SwitchProb, check.HasLen, 2)
	for _, sp := range res.SwitchProb {
		c.Check(sp >= 0 && sp <= 1, check.Equals, true)
	}
}

func (s *fbSuite) TestDecodeHaplotypeSwitchesAncestryAcrossMarkers(c *check.C) {
	model, ix, emis, gaps := twoAncestryModel()
	res, err := DecodeHaplotype(model, ix, emis, gaps, []int{0, 1, 1})
	c.Assert(err, check.IsNil)
	c.Check(res.Posterior[0][0] > res.Posterior[0][1], check.Equals, true)
	c.Check(res.Posterior[2][1] > res.Posterior[2][0], check.Equals, true)
}

func (s *fbSuite) TestDecodeHaplotypeRejectsAllelesLengthMismatch(c *check.C) {
	model, ix, emis, gaps := twoAncestryModel()
	_, err := DecodeHaplotype(model, ix, emis, gaps, []int{0, 0})
	c.Check(err, check.ErrorMatches, ".*alleles length 2 does not match window marker count 3.*")
}

func (s *fbSuite) TestDecodeHaplotypeRejectsGapsLengthMismatch(c *check.C) {
	model, ix, emis, gaps := twoAncestryModel()
	_, err := DecodeHaplotype(model, ix, emis, gaps[:1], []int{0, 0, 0})
	c.Check(err, check.ErrorMatches, ".*gaps length 1 does not match nMarkers-1=2.*")
}

func (s *fbSuite) TestRunWindowDecodesEveryTaskInOrder(c *check.C) {
	model, ix, emis, gaps := twoAncestryModel()
	wm := &WindowModel{Model: model, Index: ix, Emis: emis, Gaps: gaps}
	tasks := []Task{
		{SampleIdx: 0, Hap: 0, Alleles: []int{0, 0, 0}},
		{SampleIdx: 0, Hap: 1, Alleles: []int{1, 1, 1}},
		{SampleIdx: 1, Hap: 0, Alleles: []int{0, 0, 0}},
	}
	results, err := RunWindow(context.Background(), 2, wm, tasks)
	c.Assert(err, check.IsNil)
	c.Assert(results, check.HasLen, 3)
	for i, r := range results {
		c.Check(r.Task, check.DeepEquals, tasks[i])
		c.Check(r.Result, check.NotNil)
	}
}

func (s *fbSuite) TestMatchMaskAgreesWithGetForDenseRec(c *check.C) {
	rec := &refidx.DenseRec{Alleles: []int{0, 1, 2, 0, 1}}
	for _, studyAllele := range []int{0, 1, 2} {
		mask := matchMask(rec, studyAllele)
		for h := 0; h < rec.NHaps(); h++ {
			c.Check(mask[h], check.Equals, rec.Get(h) == studyAllele, check.Commentf("allele %d hap %d", studyAllele, h))
		}
	}
}

func (s *fbSuite) TestMatchMaskAgreesWithGetForSparseRec(c *check.C) {
	rec := refidx.NewSparseRec(6, 0, map[int][]int{1: {2, 4}, 2: {5}})
	for _, studyAllele := range []int{0, 1, 2} {
		mask := matchMask(rec, studyAllele)
		for h := 0; h < rec.NHaps(); h++ {
			c.Check(mask[h], check.Equals, rec.Get(h) == studyAllele, check.Commentf("allele %d hap %d", studyAllele, h))
		}
	}
}

func (s *fbSuite) TestRunWindowPropagatesDecodeError(c *check.C) {
	model, ix, emis, gaps := twoAncestryModel()
	wm := &WindowModel{Model: model, Index: ix, Emis: emis, Gaps: gaps}
	tasks := []Task{{SampleIdx: 0, Hap: 0, Alleles: []int{0, 0}}} // wrong length
	_, err := RunWindow(context.Background(), 2, wm, tasks)
	c.Check(err, check.ErrorMatches, ".*does not match window marker count.*")
}
