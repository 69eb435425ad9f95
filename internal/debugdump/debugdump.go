// Package debugdump writes an optional .npy dump of the final-pass
// posterior tensor for offline QC, gated off by default. It reuses the
// teacher's gonpy writer idiom from pca.go/exportnumpy.go: a
// bufio.Writer wrapped in a nopCloser so gonpy's Close doesn't also
// close the underlying file handle the caller owns.
package debugdump

import (
	"bufio"
	"io"

	"github.com/arvados/ancinfer/internal/ancerr"
	"github.com/kshedden/gonpy"
)

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// WritePosteriors writes a dense [nRows x nAncestries] array of posterior
// values (one row per study haplotype-marker pair, in caller-supplied
// order) to w as a numpy .npy file.
func WritePosteriors(w io.Writer, rows [][]float64, nAncestries int) error {
	flat := make([]float64, 0, len(rows)*nAncestries)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	bufw := bufio.NewWriterSize(w, 4*1024*1024)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return ancerr.Wrap(ancerr.IO, err, "creating npy writer")
	}
	npw.Shape = []int{len(rows), nAncestries}
	if err := npw.WriteFloat64(flat); err != nil {
		return ancerr.Wrap(ancerr.IO, err, "writing posterior npy payload")
	}
	if err := bufw.Flush(); err != nil {
		return ancerr.Wrap(ancerr.IO, err, "flushing npy writer")
	}
	return nil
}
