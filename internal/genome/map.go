package genome

import "fmt"

// minSingleBaseCM is the floor applied to a per-base genetic distance to
// avoid a zero transition probability at adjacent markers with identical
// interpolated cM position (spec.md §3, MarkerMap invariant).
const minSingleBaseCM = 1e-8

// MarkerMap is parallel to Markers: for each marker, its genetic position
// in centiMorgans and the forward inter-marker distance to the next
// marker (zero for the last marker of each chromosome run).
type MarkerMap struct {
	cM   []float64
	dist []float64 // dist[i] = cM[i+1]-cM[i] within a chromosome run, else 0
}

// NewMarkerMap builds a MarkerMap from per-marker genetic positions,
// computing dist internally. runs gives the [lo,hi) chromosome runs (see
// Markers.ChromRuns) so that distance is not computed across a chromosome
// boundary.
func NewMarkerMap(cM []float64, runs [][2]int) (*MarkerMap, error) {
	dist := make([]float64, len(cM))
	for _, run := range runs {
		lo, hi := run[0], run[1]
		for i := lo; i < hi-1; i++ {
			d := cM[i+1] - cM[i]
			if d < 0 {
				return nil, fmt.Errorf("genetic positions not monotone nondecreasing at index %d: %g after %g", i+1, cM[i+1], cM[i])
			}
			if d < minSingleBaseCM {
				d = minSingleBaseCM
			}
			dist[i] = d
		}
	}
	return &MarkerMap{cM: append([]float64(nil), cM...), dist: dist}, nil
}

// CM returns the genetic position of marker i.
func (mm *MarkerMap) CM(i int) float64 { return mm.cM[i] }

// Dist returns the forward inter-marker genetic distance from marker i to
// i+1, or 0 if i is the last marker of its chromosome run.
func (mm *MarkerMap) Dist(i int) float64 { return mm.dist[i] }

// Slice returns the map entries for markers in [lo, hi).
func (mm *MarkerMap) Slice(lo, hi int) *MarkerMap {
	return &MarkerMap{cM: mm.cM[lo:hi], dist: mm.dist[lo:hi]}
}

// Len returns the number of entries.
func (mm *MarkerMap) Len() int { return len(mm.cM) }
