// Package filterio applies the marker- and sample-level filters spec.md
// §6 lists as CLI parameters: min-maf/min-mac threshold filtering,
// excludemarkers, and gt-samples/gt-ancestries list parsing. The
// threshold-filter shape (a struct of thresholds with an Apply method)
// follows the teacher's filter.go (arvados/lightning), generalized from
// tile-variant coverage to reference-allele-frequency thresholds.
package filterio

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/arvados/ancinfer/internal/ancerr"
)

// MarkerFreq is the minimum information about one reference marker a
// threshold filter needs: its ID and its second-largest allele's
// frequency and count among reference haplotypes.
type MarkerFreq struct {
	ID            string
	SecondAF      float64
	SecondAC      int
	NRefHaps      int
	ArrayGenotype bool // true if this marker came from an array (min-mac ignored)
}

// Threshold holds the min-maf/min-mac filter parameters (spec.md §6:
// "When both min-maf and min-mac are active, the source applies them
// conjunctively").
type Threshold struct {
	MinMAF float64
	MinMAC int
}

// Keep reports whether m passes the configured thresholds. A marker
// must satisfy both active thresholds to be kept.
func (t Threshold) Keep(m MarkerFreq) bool {
	if t.MinMAF > 0 && m.SecondAF < t.MinMAF {
		return false
	}
	if t.MinMAC > 0 && !m.ArrayGenotype && m.SecondAC < t.MinMAC {
		return false
	}
	return true
}

// Apply filters a slice of MarkerFreq down to those passing Keep,
// returning the kept indices into the original slice (so callers can
// project matching filters onto parallel marker/genotype arrays).
func (t Threshold) Apply(freqs []MarkerFreq) []int {
	kept := make([]int, 0, len(freqs))
	for i, f := range freqs {
		if t.Keep(f) {
			kept = append(kept, i)
		}
	}
	return kept
}

// ReadIDList reads a newline-delimited list of marker IDs or CHROM:POS
// tokens, for excludemarkers (spec.md §6), as a set.
func ReadIDList(r io.Reader) (map[string]bool, error) {
	set := map[string]bool{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[line] = true
	}
	if err := sc.Err(); err != nil {
		return nil, ancerr.Wrap(ancerr.IO, err, "reading ID list")
	}
	return set, nil
}

// SampleList is a parsed gt-samples file (spec.md §6): a set of sample
// IDs plus whether the list is an exclude list (leading `^` on the
// first line) rather than an include list.
type SampleList struct {
	Exclude bool
	IDs     map[string]bool
}

// ReadSampleList parses a gt-samples-format file: one sample ID per
// line, with an optional `^` prefix on the very first non-blank line
// meaning "this is an exclude list."
func ReadSampleList(r io.Reader) (*SampleList, error) {
	sl := &SampleList{IDs: map[string]bool{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			if strings.HasPrefix(line, "^") {
				sl.Exclude = true
				line = strings.TrimPrefix(line, "^")
			}
			first = false
			if line == "" {
				continue
			}
		}
		sl.IDs[line] = true
	}
	if err := sc.Err(); err != nil {
		return nil, ancerr.Wrap(ancerr.IO, err, "reading gt-samples list")
	}
	return sl, nil
}

// Keep reports whether sample id should be retained.
func (sl *SampleList) Keep(id string) bool {
	if sl == nil {
		return true
	}
	present := sl.IDs[id]
	if sl.Exclude {
		return !present
	}
	return present
}

// AncestryPrior is one study sample's fixed prior over ancestries, as
// parsed from a gt-ancestries file (spec.md §6, §9: a sample ID
// disagreement with the study VCF is silently dropped, but a duplicate
// ID is fatal). The file carries no ancestry names: prior columns are
// read positionally in the model's ancestry order, and that order is not
// checked.
type AncestryPrior struct {
	SampleID string
	Prior    []float64
}

// ReadAncestryPriors parses a gt-ancestries file: `sampleID p0 p1 ... pA-1`
// per line, whitespace-delimited. Duplicate sample IDs are fatal
// (InconsistentInput).
func ReadAncestryPriors(r io.Reader, nAncestries int) ([]AncestryPrior, error) {
	var out []AncestryPrior
	seen := map[string]bool{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != nAncestries+1 {
			return nil, ancerr.New(ancerr.MalformedInput, "gt-ancestries line %d: expected %d fields, got %d", lineNo, nAncestries+1, len(fields))
		}
		id := fields[0]
		if seen[id] {
			return nil, ancerr.New(ancerr.InconsistentInput, "gt-ancestries: duplicate sample ID %q", id)
		}
		seen[id] = true
		prior := make([]float64, nAncestries)
		for a := 0; a < nAncestries; a++ {
			v, err := strconv.ParseFloat(fields[a+1], 64)
			if err != nil {
				return nil, ancerr.Wrap(ancerr.MalformedInput, err, "gt-ancestries line %d: bad prior value %q", lineNo, fields[a+1])
			}
			prior[a] = v
		}
		out = append(out, AncestryPrior{SampleID: id, Prior: prior})
	}
	if err := sc.Err(); err != nil {
		return nil, ancerr.Wrap(ancerr.IO, err, "reading gt-ancestries")
	}
	return out, nil
}
