// Package vcfio is a thin, line-oriented VCF 4.2+ reader/writer covering
// exactly the contract spec.md §6 assigns it: phased genotype records
// with `|`-separated alleles, and a writer that clones an input study
// VCF's lines while appending the AN1/AN2 (and optional ANP1/ANP2)
// FORMAT fields plus a `##ANCESTRY=<...>` meta-line.
//
// No pack repo imports a VCF-parsing library in Go — the teacher's own
// vcf2fasta.go shells out to bcftools/samtools via os/exec rather than
// parsing VCF in Go at all — so this package is hand-rolled against
// bufio/strings/strconv (see DESIGN.md). Gzip output reuses the teacher's
// pgzip + large buffered-writer idiom from import.go; gzip input is read
// with compress/gzip.
package vcfio

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arvados/ancinfer/internal/ancerr"
	"github.com/klauspost/pgzip"
)

// Record is one parsed VCF data line: the eight fixed columns (markers
// carries the parsed position/alleles elsewhere; this package only
// needs enough structure to splice new FORMAT fields in), plus the
// per-sample genotype fields.
type Record struct {
	Chrom   string
	Pos     string
	ID      string
	Ref     string
	Alt     string
	Qual    string
	Filter  string
	Info    string
	Format  string
	Samples []string // raw per-sample field, e.g. "0|1" or "0|1:30"
}

// Haplotype returns the (allele1, allele2) pair decoded from sample s's
// GT subfield, which by contract is the first colon-delimited subfield
// and must be phased with `|`.
func (r *Record) Haplotype(s int) (int, int, error) {
	gt := r.Samples[s]
	if i := strings.IndexByte(gt, ':'); i >= 0 {
		gt = gt[:i]
	}
	parts := strings.SplitN(gt, "|", 2)
	if len(parts) != 2 {
		return 0, 0, ancerr.New(ancerr.MalformedInput, "genotype %q at %s:%s is not phased diploid", gt, r.Chrom, r.Pos)
	}
	a1, err1 := strconv.Atoi(parts[0])
	a2, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, ancerr.New(ancerr.MalformedInput, "genotype %q at %s:%s has non-integer allele", gt, r.Chrom, r.Pos)
	}
	return a1, a2, nil
}

// Reader streams VCF records, handing back the header lines (including
// #CHROM) separately from data records.
type Reader struct {
	scanner    *bufio.Scanner
	file       *os.File
	gz         io.Closer
	SampleIDs  []string
	HeaderText []string // every line read before #CHROM, verbatim
	chromLine  string
}

// Open opens the VCF file at path, transparently gunzipping if the name
// ends in .gz, and reads the header through the #CHROM line.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ancerr.Wrap(ancerr.IO, err, "opening VCF %s", path)
	}
	v := &Reader{file: f}
	var rdr io.Reader = bufio.NewReaderSize(f, 8*1024*1024)
	if strings.HasSuffix(path, ".gz") {
		gz, gerr := gzip.NewReader(rdr)
		if gerr != nil {
			f.Close()
			return nil, ancerr.Wrap(ancerr.IO, gerr, "opening gzip VCF %s", path)
		}
		rdr, v.gz = gz, gz
	}
	v.scanner = bufio.NewScanner(rdr)
	v.scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for v.scanner.Scan() {
		line := v.scanner.Text()
		if strings.HasPrefix(line, "#CHROM") {
			v.chromLine = line
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				v.SampleIDs = append([]string(nil), fields[9:]...)
			}
			break
		}
		v.HeaderText = append(v.HeaderText, line)
	}
	if err := v.scanner.Err(); err != nil {
		f.Close()
		return nil, ancerr.Wrap(ancerr.IO, err, "reading VCF header from %s", path)
	}
	return v, nil
}

// ChromLine returns the raw #CHROM header line.
func (v *Reader) ChromLine() string { return v.chromLine }

// Next reads the next data record, or returns io.EOF.
func (v *Reader) Next() (*Record, error) {
	if !v.scanner.Scan() {
		if err := v.scanner.Err(); err != nil {
			return nil, ancerr.Wrap(ancerr.IO, err, "reading VCF record")
		}
		return nil, io.EOF
	}
	line := v.scanner.Text()
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, ancerr.New(ancerr.MalformedInput, "VCF record has %d fields, need >= 8: %q", len(fields), line)
	}
	rec := &Record{
		Chrom:  fields[0],
		Pos:    fields[1],
		ID:     fields[2],
		Ref:    fields[3],
		Alt:    fields[4],
		Qual:   fields[5],
		Filter: fields[6],
		Info:   fields[7],
	}
	if len(fields) > 8 {
		rec.Format = fields[8]
		rec.Samples = fields[9:]
	}
	return rec, nil
}

// Close releases the underlying file (and gzip reader, if any).
func (v *Reader) Close() error {
	if v.gz != nil {
		v.gz.Close()
	}
	return v.file.Close()
}

// Writer clones an input study VCF's header and records while splicing
// in the AN1/AN2 (and optionally ANP1/ANP2) FORMAT fields spec.md §6
// requires, plus the `##ANCESTRY=<...>` meta-line.
type Writer struct {
	bw     *bufio.Writer
	gz     io.WriteCloser
	probs  bool
	closed bool
}

// NewWriter wraps w, gzip-compressing via pgzip when gz is true
// (spec.md output `.anc.vcf.gz` is always gzip, but the flag keeps this
// package testable against a plain buffer).
func NewWriter(w io.Writer, gz bool, probs bool) *Writer {
	wr := &Writer{probs: probs}
	if gz {
		pw := pgzip.NewWriter(w)
		wr.gz = pw
		wr.bw = bufio.NewWriterSize(pw, 64*1024*1024)
	} else {
		wr.bw = bufio.NewWriterSize(w, 64*1024*1024)
	}
	return wr
}

// WriteHeader emits the original header lines verbatim, then the
// ##ANCESTRY meta-line, then the #CHROM line.
func (w *Writer) WriteHeader(headerText []string, chromLine string, ancestryNames []string) error {
	for _, l := range headerText {
		if _, err := fmt.Fprintln(w.bw, l); err != nil {
			return ancerr.Wrap(ancerr.IO, err, "writing VCF header")
		}
	}
	names := make([]string, len(ancestryNames))
	for i, n := range ancestryNames {
		names[i] = fmt.Sprintf("%d=%s", i, n)
	}
	if _, err := fmt.Fprintf(w.bw, "##ANCESTRY=<%s>\n", strings.Join(names, ",")); err != nil {
		return ancerr.Wrap(ancerr.IO, err, "writing ANCESTRY meta-line")
	}
	if _, err := fmt.Fprintln(w.bw, chromLine); err != nil {
		return ancerr.Wrap(ancerr.IO, err, "writing #CHROM line")
	}
	return nil
}

// SampleFields is the set of new per-sample FORMAT values for one
// record, indexed the same as the record's original Samples slice.
type SampleFields struct {
	AN1, AN2   []string
	ANP1, ANP2 []string // nil unless probs mode
}

// WriteRecord re-emits rec with AN1:AN2 (and optionally ANP1:ANP2)
// appended to FORMAT and to every sample field.
func (w *Writer) WriteRecord(rec *Record, sf SampleFields) error {
	format := rec.Format + ":AN1:AN2"
	if w.probs {
		format += ":ANP1:ANP2"
	}
	var sb strings.Builder
	sb.WriteString(rec.Chrom)
	sb.WriteByte('\t')
	sb.WriteString(rec.Pos)
	sb.WriteByte('\t')
	sb.WriteString(rec.ID)
	sb.WriteByte('\t')
	sb.WriteString(rec.Ref)
	sb.WriteByte('\t')
	sb.WriteString(rec.Alt)
	sb.WriteByte('\t')
	sb.WriteString(rec.Qual)
	sb.WriteByte('\t')
	sb.WriteString(rec.Filter)
	sb.WriteByte('\t')
	sb.WriteString(rec.Info)
	sb.WriteByte('\t')
	sb.WriteString(format)
	for i, s := range rec.Samples {
		sb.WriteByte('\t')
		sb.WriteString(s)
		sb.WriteByte(':')
		sb.WriteString(sf.AN1[i])
		sb.WriteByte(':')
		sb.WriteString(sf.AN2[i])
		if w.probs {
			sb.WriteByte(':')
			sb.WriteString(sf.ANP1[i])
			sb.WriteByte(':')
			sb.WriteString(sf.ANP2[i])
		}
	}
	sb.WriteByte('\n')
	if _, err := w.bw.WriteString(sb.String()); err != nil {
		return ancerr.Wrap(ancerr.IO, err, "writing VCF record at %s:%s", rec.Chrom, rec.Pos)
	}
	return nil
}

// Close flushes buffered output and closes the gzip stream, if any.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		return ancerr.Wrap(ancerr.IO, err, "flushing VCF writer")
	}
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			return ancerr.Wrap(ancerr.IO, err, "closing gzip VCF writer")
		}
	}
	return nil
}
