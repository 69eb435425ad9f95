// Package window partitions a chromosome's markers into overlapping
// windows sized to fit a memory budget (spec.md §3 Window, §4.2
// windowing paragraph). The shape follows the teacher's batchArgs.Slice
// chromosome/offset batching in batchargs.go: partition an ordered
// sequence into chunks of a configured size, clamped to bounds.
package window

import "fmt"

// Window is a contiguous range of marker indices ([Lo,Hi)) plus a small
// symmetric overlap used only to stabilize forward-backward at the
// boundary. The non-overlap interior ([IntLo,IntHi)) is where posteriors
// are emitted.
type Window struct {
	Lo, Hi       int // full range including overlap
	IntLo, IntHi int // interior range, posteriors emitted only here
}

// OverlapMarkers returns the number of markers needed to cover cm
// centiMorgans on one side of a window, clamped to [minOverlap,
// maxOverlap] (spec.md §4.2: "default: smallest number of markers covering
// 0.5 cM, clamped to [50, 500]").
func OverlapMarkers(cmPositions []float64, startIdx int, direction int, cm float64, minOverlap, maxOverlap int) int {
	n := 0
	if direction >= 0 {
		base := cmPositions[startIdx]
		for i := startIdx; i < len(cmPositions) && cmPositions[i]-base < cm; i++ {
			n++
		}
	} else {
		base := cmPositions[startIdx]
		for i := startIdx; i >= 0 && base-cmPositions[i] < cm; i-- {
			n++
		}
	}
	if n < minOverlap {
		n = minOverlap
	}
	if n > maxOverlap {
		n = maxOverlap
	}
	return n
}

// Plan partitions [runLo, runHi) — one chromosome's contiguous marker
// index run — into windows whose interiors tile [runLo, runHi) exactly
// once, each with up to overlap markers of context on each side, clamped
// to the run's own bounds.
func Plan(runLo, runHi, interiorSize, overlap int) ([]Window, error) {
	if interiorSize <= 0 {
		return nil, fmt.Errorf("interiorSize must be positive, got %d", interiorSize)
	}
	if runHi <= runLo {
		return nil, fmt.Errorf("empty or invalid run [%d,%d)", runLo, runHi)
	}
	var windows []Window
	for intLo := runLo; intLo < runHi; intLo += interiorSize {
		intHi := intLo + interiorSize
		if intHi > runHi {
			intHi = runHi
		}
		lo := intLo - overlap
		if lo < runLo {
			lo = runLo
		}
		hi := intHi + overlap
		if hi > runHi {
			hi = runHi
		}
		windows = append(windows, Window{Lo: lo, Hi: hi, IntLo: intLo, IntHi: intHi})
	}
	return windows, nil
}

// ChooseInteriorSize picks the number of markers a window interior should
// hold so that estimated peak memory across all worker threads stays
// within capBytes, given the per-marker-per-thread cost of the dense
// forward trellis (spec.md §5 Memory: O(threads * 2 * A * Nref *
// W_window) for the dense representation).
func ChooseInteriorSize(threads, nAncestries, nRefHaps int, capBytes int64, minInterior, maxInterior int) int {
	const bytesPerFloat64 = 8
	perMarker := int64(threads) * 2 * int64(nAncestries) * int64(nRefHaps) * bytesPerFloat64
	if perMarker <= 0 {
		return maxInterior
	}
	size := int(capBytes / perMarker)
	if size < minInterior {
		size = minInterior
	}
	if size > maxInterior {
		size = maxInterior
	}
	return size
}
