package main

import (
	"io"

	"github.com/arvados/ancinfer/internal/ancerr"
	"github.com/arvados/ancinfer/internal/vcfio"
)

// rawStudy is the study VCF decoded into a per-marker, per-haplotype
// allele matrix, before any sample or marker filtering. Markers are
// assumed position-aligned 1:1 with the reference VCF's markers (the
// external VCF-intersection step spec.md §7 treats as out of scope);
// a length mismatch against the reference marker count is reported as
// InconsistentInput rather than silently truncated.
type rawStudy struct {
	headerText []string
	chromLine  string
	sampleIDs  []string
	// alleles[m] is a flat []int of length 2*len(sampleIDs): alleles
	// for sample s are at indices [2*s, 2*s+1].
	alleles [][]int
}

func loadStudy(gtPath string) (*rawStudy, error) {
	vr, err := vcfio.Open(gtPath)
	if err != nil {
		return nil, err
	}
	defer vr.Close()

	out := &rawStudy{
		headerText: vr.HeaderText,
		chromLine:  vr.ChromLine(),
		sampleIDs:  vr.SampleIDs,
	}
	for {
		rec, err := vr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		hapAlleles := make([]int, 0, 2*len(rec.Samples))
		for s := range rec.Samples {
			a1, a2, herr := rec.Haplotype(s)
			if herr != nil {
				return nil, herr
			}
			hapAlleles = append(hapAlleles, a1, a2)
		}
		out.alleles = append(out.alleles, hapAlleles)
	}
	if len(out.sampleIDs) == 0 {
		return nil, ancerr.New(ancerr.InsufficientData, "study VCF has no samples")
	}
	return out, nil
}
