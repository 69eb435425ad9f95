// Package mapio loads PLINK-format genetic maps (`chrom id cM bp`) and
// interpolates genetic position at arbitrary base-pair positions,
// per spec.md §6: "Interpolation is linear within the map's range;
// outside-range positions extrapolate using the nearest two entries'
// slope."
//
// PLINK map files are plain whitespace-delimited text; no pack repo
// imports a map/interpolation library, so this is hand-rolled against
// bufio/strconv (see DESIGN.md).
package mapio

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/arvados/ancinfer/internal/ancerr"
)

// entry is one map-file row for a single chromosome.
type entry struct {
	bp int64
	cM float64
}

// ChromMap interpolates genetic position for one chromosome's entries,
// sorted by bp.
type ChromMap struct {
	entries []entry
}

// Map holds one ChromMap per chromosome name found in the file.
type Map struct {
	byChrom map[string]*ChromMap
}

// Read parses a PLINK-format genetic map from r. Lines are
// whitespace-delimited `chrom id cM bp`; blank lines are skipped.
func Read(r io.Reader) (*Map, error) {
	m := &Map{byChrom: map[string]*ChromMap{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, ancerr.New(ancerr.MalformedInput, "genetic map line %d: expected 4 fields, got %d", lineNo, len(fields))
		}
		chrom := fields[0]
		cM, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, ancerr.Wrap(ancerr.MalformedInput, err, "genetic map line %d: bad cM value %q", lineNo, fields[2])
		}
		bp, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, ancerr.Wrap(ancerr.MalformedInput, err, "genetic map line %d: bad bp value %q", lineNo, fields[3])
		}
		cm := m.byChrom[chrom]
		if cm == nil {
			cm = &ChromMap{}
			m.byChrom[chrom] = cm
		}
		cm.entries = append(cm.entries, entry{bp: bp, cM: cM})
	}
	if err := sc.Err(); err != nil {
		return nil, ancerr.Wrap(ancerr.IO, err, "reading genetic map")
	}
	for _, cm := range m.byChrom {
		sort.Slice(cm.entries, func(i, j int) bool { return cm.entries[i].bp < cm.entries[j].bp })
	}
	return m, nil
}

// Chrom returns the ChromMap for chrom, or nil if the map file has no
// entries for that chromosome.
func (m *Map) Chrom(chrom string) *ChromMap {
	return m.byChrom[chrom]
}

// CM returns the interpolated (or extrapolated) genetic position in cM
// at bp.
func (cm *ChromMap) CM(bp int64) (float64, error) {
	n := len(cm.entries)
	if n == 0 {
		return 0, ancerr.New(ancerr.InsufficientData, "genetic map has no entries for this chromosome")
	}
	if n == 1 {
		return cm.entries[0].cM, nil
	}
	i := sort.Search(n, func(i int) bool { return cm.entries[i].bp >= bp })
	switch {
	case i == 0:
		return extrapolate(cm.entries[0], cm.entries[1], bp), nil
	case i == n:
		return extrapolate(cm.entries[n-2], cm.entries[n-1], bp), nil
	case cm.entries[i].bp == bp:
		return cm.entries[i].cM, nil
	default:
		lo, hi := cm.entries[i-1], cm.entries[i]
		return interpolate(lo, hi, bp), nil
	}
}

func interpolate(lo, hi entry, bp int64) float64 {
	if hi.bp == lo.bp {
		return lo.cM
	}
	frac := float64(bp-lo.bp) / float64(hi.bp-lo.bp)
	return lo.cM + frac*(hi.cM-lo.cM)
}

func extrapolate(a, b entry, bp int64) float64 {
	if b.bp == a.bp {
		return a.cM
	}
	slope := (b.cM - a.cM) / float64(b.bp-a.bp)
	return a.cM + slope*float64(bp-a.bp)
}
