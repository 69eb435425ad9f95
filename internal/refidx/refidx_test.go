package refidx

import (
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type refidxSuite struct{}

var _ = check.Suite(&refidxSuite{})

func (s *refidxSuite) TestDenseRecGetAndNonNull(c *check.C) {
	rec := &DenseRec{Alleles: []int{0, 1, 0, 1}}
	c.Check(rec.NHaps(), check.Equals, 4)
	c.Check(rec.NullAllele(), check.Equals, -1)
	c.Check(rec.Get(1), check.Equals, 1)

	seen := map[int][]int{}
	rec.NonNull(func(allele int, haps []int) { seen[allele] = haps })
	c.Check(seen, check.DeepEquals, map[int][]int{0: {0, 2}, 1: {1, 3}})
}

func (s *refidxSuite) TestSparseRecDefaultsToNullAllele(c *check.C) {
	rec := NewSparseRec(5, 0, map[int][]int{1: {2, 4}})
	c.Check(rec.Get(0), check.Equals, 0)
	c.Check(rec.Get(2), check.Equals, 1)
	c.Check(rec.Get(3), check.Equals, 0)
	c.Check(rec.NullAllele(), check.Equals, 0)
	c.Check(rec.NNonNull(), check.Equals, 2)
}

func (s *refidxSuite) TestBuilderBuildDenseAndSparseAgree(c *check.C) {
	alleles := []int{0, 0, 1, 0, 2}
	b := &Builder{}
	dense := b.BuildDense(alleles)
	null := ChooseNull(alleles, 3)
	c.Check(null, check.Equals, 0)
	sparse := b.BuildSparse(alleles, null)
	for h := range alleles {
		c.Check(sparse.Get(h), check.Equals, dense.Get(h))
	}
}

func (s *refidxSuite) TestBuilderBuildChoosesSparseWhenFewDeviate(c *check.C) {
	b := &Builder{}
	alleles := make([]int, 20)
	alleles[3], alleles[17] = 1, 1 // 2/20 = 10% non-null, below the threshold
	rec := b.Build(alleles, 2)
	sparse, ok := rec.(*SparseRec)
	c.Assert(ok, check.Equals, true)
	c.Check(sparse.NNonNull(), check.Equals, 2)
	for h, a := range alleles {
		c.Check(rec.Get(h), check.Equals, a)
	}
}

func (s *refidxSuite) TestBuilderBuildChoosesDenseWhenManyDeviate(c *check.C) {
	b := &Builder{}
	alleles := []int{0, 1, 0, 1, 0, 1, 0, 1, 0, 1} // 50% non-null
	rec := b.Build(alleles, 2)
	_, ok := rec.(*DenseRec)
	c.Assert(ok, check.Equals, true)
}

func (s *refidxSuite) TestBuilderBuildHandlesEmptyAlleles(c *check.C) {
	b := &Builder{}
	rec := b.Build(nil, 2)
	c.Check(rec.NHaps(), check.Equals, 0)
}

func (s *refidxSuite) TestNewIndexRejectsHaplotypeCountMismatch(c *check.C) {
	recs := []RefGTRec{&DenseRec{Alleles: []int{0, 1, 0}}}
	_, err := NewIndex(recs, []int{0, 0}, 1)
	c.Check(err, check.ErrorMatches, ".*has 3 haplotypes, panel map has 2.*")
}

func (s *refidxSuite) TestNewIndexComputesPanelCounts(c *check.C) {
	recs := []RefGTRec{&DenseRec{Alleles: []int{0, 1, 0, 1}}}
	ix, err := NewIndex(recs, []int{0, 0, 1, 1}, 2)
	c.Assert(err, check.IsNil)
	c.Check(ix.Len(), check.Equals, 1)
	c.Check(ix.NRefHaps(), check.Equals, 4)
	c.Check(ix.NPanelHaps(), check.DeepEquals, []int{2, 2})
	c.Check(ix.Panel(2), check.Equals, 1)
	c.Check(ix.At(0).Get(0), check.Equals, 0)
}
