package params

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// FileContents is the decoded form of a .model file (spec.md §6): ancestry
// and panel names plus a Model. Names are returned as plain strings so the
// caller can intern them into its own nametable.Table and compare them
// against the reference panel map.
type FileContents struct {
	AncestryNames []string
	PanelNames    []string
	Model         *Model
}

// dataLine returns the next non-comment, non-blank line with surrounding
// whitespace trimmed, or ("", false) at EOF.
func dataLine(sc *bufio.Scanner) (string, bool) {
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true
	}
	return "", false
}

func splitFields(line string) []string {
	return strings.Fields(line)
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

// Read parses a .model file per spec.md §6: A ancestry names, P panel
// names, T, A floats for mu, A lines of P floats for theta, A lines of P
// floats for eps, A floats for rho.
func Read(r io.Reader) (*FileContents, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1<<20), 1<<20)

	line, ok := dataLine(sc)
	if !ok {
		return nil, fmt.Errorf("model file: missing ancestry names line")
	}
	ancestryNames := splitFields(line)
	a := len(ancestryNames)
	if a < 2 {
		return nil, fmt.Errorf("model file: need at least 2 ancestry names, got %d", a)
	}

	line, ok = dataLine(sc)
	if !ok {
		return nil, fmt.Errorf("model file: missing panel names line")
	}
	panelNames := splitFields(line)
	p := len(panelNames)
	if p == 0 {
		return nil, fmt.Errorf("model file: need at least 1 panel name")
	}

	line, ok = dataLine(sc)
	if !ok {
		return nil, fmt.Errorf("model file: missing T line")
	}
	tFields := splitFields(line)
	if len(tFields) != 1 {
		return nil, fmt.Errorf("model file: T line must have exactly one value, got %d", len(tFields))
	}
	tVal, err := strconv.ParseFloat(tFields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("model file: invalid T %q: %w", tFields[0], err)
	}

	line, ok = dataLine(sc)
	if !ok {
		return nil, fmt.Errorf("model file: missing mu line")
	}
	muFields := splitFields(line)
	if len(muFields) != a {
		return nil, fmt.Errorf("model file: mu line has %d values, want %d", len(muFields), a)
	}
	mu, err := parseFloats(muFields)
	if err != nil {
		return nil, fmt.Errorf("model file: mu: %w", err)
	}

	theta := mat.NewDense(a, p, nil)
	for i := 0; i < a; i++ {
		line, ok = dataLine(sc)
		if !ok {
			return nil, fmt.Errorf("model file: missing theta row %d", i)
		}
		fields := splitFields(line)
		if len(fields) != p {
			return nil, fmt.Errorf("model file: theta row %d has %d values, want %d", i, len(fields), p)
		}
		vals, err := parseFloats(fields)
		if err != nil {
			return nil, fmt.Errorf("model file: theta row %d: %w", i, err)
		}
		theta.SetRow(i, vals)
	}

	eps := mat.NewDense(a, p, nil)
	for i := 0; i < a; i++ {
		line, ok = dataLine(sc)
		if !ok {
			return nil, fmt.Errorf("model file: missing eps row %d", i)
		}
		fields := splitFields(line)
		if len(fields) != p {
			return nil, fmt.Errorf("model file: eps row %d has %d values, want %d", i, len(fields), p)
		}
		vals, err := parseFloats(fields)
		if err != nil {
			return nil, fmt.Errorf("model file: eps row %d: %w", i, err)
		}
		eps.SetRow(i, vals)
	}

	line, ok = dataLine(sc)
	if !ok {
		return nil, fmt.Errorf("model file: missing rho line")
	}
	rhoFields := splitFields(line)
	if len(rhoFields) != a {
		return nil, fmt.Errorf("model file: rho line has %d values, want %d", len(rhoFields), a)
	}
	rho, err := parseFloats(rhoFields)
	if err != nil {
		return nil, fmt.Errorf("model file: rho: %w", err)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	return &FileContents{
		AncestryNames: ancestryNames,
		PanelNames:    panelNames,
		Model: &Model{
			T:     tVal,
			Mu:    mu,
			Theta: theta,
			Eps:   eps,
			Rho:   rho,
		},
	}, nil
}

// Write emits a .model file in the same format Read accepts, so an
// ancinfer run's <out>.model output can seed a later run unchanged
// (SPEC_FULL.md §3 item 7).
func Write(w io.Writer, fc *FileContents) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# ancinfer model file")
	fmt.Fprintln(bw, strings.Join(fc.AncestryNames, " "))
	fmt.Fprintln(bw, strings.Join(fc.PanelNames, " "))
	fmt.Fprintln(bw, strconv.FormatFloat(fc.Model.T, 'g', 8, 64))
	writeFloats(bw, fc.Model.Mu)
	a, p := fc.Model.Theta.Dims()
	for i := 0; i < a; i++ {
		row := make([]float64, p)
		mat.Row(row, i, fc.Model.Theta)
		writeFloats(bw, row)
	}
	for i := 0; i < a; i++ {
		row := make([]float64, p)
		mat.Row(row, i, fc.Model.Eps)
		writeFloats(bw, row)
	}
	writeFloats(bw, fc.Model.Rho)
	return bw.Flush()
}

func writeFloats(w io.Writer, vals []float64) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', 8, 64)
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}
