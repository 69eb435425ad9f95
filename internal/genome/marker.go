// Package genome holds the immutable data-model types shared by every
// stage of the pipeline: markers, the genetic map, samples, reference
// panels, and the ancestry set (spec.md §3).
package genome

import "fmt"

// Marker is an immutable record of one VCF site.
type Marker struct {
	Chrom   int      // index into a nametable.Table, not a raw string
	Pos     int      // 1-based base position, as in VCF
	Alleles []string // Alleles[0] is REF
	ID      string   // "." if absent
	Qual    string   // raw QUAL field, "." if absent
	Filter  string   // raw FILTER field, "." if absent
	Info    string   // raw INFO field, "." if absent
}

// NAlleles returns the number of alleles at this marker.
func (m Marker) NAlleles() int { return len(m.Alleles) }

// Markers is an ordered sequence of Marker, strictly increasing in Pos
// within each chromosome's contiguous run.
type Markers struct {
	recs []Marker
}

// NewMarkers validates and wraps a slice of Marker. It takes ownership of
// recs; callers must not mutate it afterwards.
func NewMarkers(recs []Marker) (*Markers, error) {
	for i := 1; i < len(recs); i++ {
		if recs[i].Chrom == recs[i-1].Chrom {
			if recs[i].Pos <= recs[i-1].Pos {
				return nil, fmt.Errorf("markers out of order at index %d: pos %d after %d on same chromosome", i, recs[i].Pos, recs[i-1].Pos)
			}
		}
	}
	for i, m := range recs {
		if m.NAlleles() < 2 {
			return nil, fmt.Errorf("marker %d (%s:%d) has fewer than 2 alleles", i, m.ID, m.Pos)
		}
	}
	return &Markers{recs: recs}, nil
}

// Len returns the number of markers.
func (m *Markers) Len() int { return len(m.recs) }

// At returns the marker at index i.
func (m *Markers) At(i int) Marker { return m.recs[i] }

// Slice returns the markers in [lo, hi) as a new *Markers without
// re-validating (the subrange inherits the parent's validity).
func (m *Markers) Slice(lo, hi int) *Markers {
	return &Markers{recs: m.recs[lo:hi]}
}

// ChromRuns returns the [lo, hi) index ranges of each chromosome's
// contiguous run, in the order chromosomes first appear.
func (m *Markers) ChromRuns() [][2]int {
	var runs [][2]int
	start := 0
	for i := 1; i <= len(m.recs); i++ {
		if i == len(m.recs) || m.recs[i].Chrom != m.recs[start].Chrom {
			runs = append(runs, [2]int{start, i})
			start = i
		}
	}
	return runs
}
