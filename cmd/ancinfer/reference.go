package main

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arvados/ancinfer/internal/ancerr"
	"github.com/arvados/ancinfer/internal/genome"
	"github.com/arvados/ancinfer/internal/mapio"
	"github.com/arvados/ancinfer/internal/nametable"
	"github.com/arvados/ancinfer/internal/refidx"
	"github.com/arvados/ancinfer/internal/vcfio"
)

// rawReference is the reference VCF decoded into per-marker records,
// before any filtering is applied.
type rawReference struct {
	markers    []genome.Marker
	recs       []refidx.RefGTRec
	cM         []float64
	sampleIDs  []string
	nRefHaps   int
}

// loadReference reads the reference VCF and genetic map together,
// producing one RefGTRec and one interpolated cM position per marker.
func loadReference(refPath, mapPath string, names *nametable.Table) (*rawReference, error) {
	mf, err := os.Open(mapPath)
	if err != nil {
		return nil, ancerr.Wrap(ancerr.IO, err, "opening genetic map")
	}
	gmap, err := mapio.Read(mf)
	mf.Close()
	if err != nil {
		return nil, err
	}

	vr, err := vcfio.Open(refPath)
	if err != nil {
		return nil, err
	}
	defer vr.Close()

	out := &rawReference{sampleIDs: vr.SampleIDs}
	builder := &refidx.Builder{}
	for {
		rec, err := vr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		pos, perr := strconv.Atoi(rec.Pos)
		if perr != nil {
			return nil, ancerr.New(ancerr.MalformedInput, "reference VCF: bad position %q at %s:%s", rec.Pos, rec.Chrom, rec.Pos)
		}
		chromIdx := names.Intern(rec.Chrom)
		alleles := append([]string{rec.Ref}, strings.Split(rec.Alt, ",")...)
		out.markers = append(out.markers, genome.Marker{
			Chrom: chromIdx, Pos: pos, Alleles: alleles,
			ID: rec.ID, Qual: rec.Qual, Filter: rec.Filter, Info: rec.Info,
		})

		hapAlleles := make([]int, 0, 2*len(rec.Samples))
		for s := range rec.Samples {
			a1, a2, herr := rec.Haplotype(s)
			if herr != nil {
				return nil, herr
			}
			hapAlleles = append(hapAlleles, a1, a2)
		}
		if out.nRefHaps == 0 {
			out.nRefHaps = len(hapAlleles)
		}
		out.recs = append(out.recs, builder.Build(hapAlleles, len(alleles)))

		cm := gmap.Chrom(rec.Chrom)
		if cm == nil {
			return nil, ancerr.New(ancerr.MalformedInput, "genetic map has no entries for chromosome %s", rec.Chrom)
		}
		cmVal, cerr := cm.CM(int64(pos))
		if cerr != nil {
			return nil, cerr
		}
		out.cM = append(out.cM, cmVal)
	}
	if len(out.markers) == 0 {
		return nil, ancerr.New(ancerr.InsufficientData, "reference VCF has no markers")
	}
	return out, nil
}

// loadPanelMap reads a two-column (sampleID, panelName) text file and
// builds the Panels structure in the reference VCF's haplotype order.
func loadPanelMap(panelPath string, refSampleIDs []string, names *nametable.Table) (*genome.Panels, error) {
	f, err := os.Open(panelPath)
	if err != nil {
		return nil, ancerr.Wrap(ancerr.IO, err, "opening ref-panel map")
	}
	defer f.Close()

	sampleToPanel := map[string]string{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, ancerr.New(ancerr.MalformedInput, "ref-panel map: expected 2 fields, got %d in %q", len(fields), line)
		}
		sampleToPanel[fields[0]] = fields[1]
	}
	if err := sc.Err(); err != nil {
		return nil, ancerr.Wrap(ancerr.IO, err, "reading ref-panel map")
	}

	panelIdx := map[string]int{}
	var labels []int
	hapToPanel := make([]int, 2*len(refSampleIDs))
	for s, id := range refSampleIDs {
		panelName, ok := sampleToPanel[id]
		if !ok {
			return nil, ancerr.New(ancerr.InconsistentInput, "ref-panel map: no panel assignment for reference sample %q", id)
		}
		p, ok := panelIdx[panelName]
		if !ok {
			p = len(labels)
			panelIdx[panelName] = p
			labels = append(labels, names.Intern(panelName))
		}
		hapToPanel[2*s] = p
		hapToPanel[2*s+1] = p
	}
	return genome.NewPanels(labels, hapToPanel)
}
