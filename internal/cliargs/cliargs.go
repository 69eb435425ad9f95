// Package cliargs parses the `key=value` command-line argument style
// spec.md §6 specifies, rather than flag.FlagSet's `-flag value` style
// the teacher's other commands use. The RunCommand(prog, args, stdin,
// stdout, stderr) int entry-point shape and the deferred
// print-error-to-stderr-on-exit idiom are grounded on the teacher's
// cmd.go/import.go commands.
package cliargs

import (
	"strconv"
	"strings"

	"github.com/arvados/ancinfer/internal/ancerr"
)

// Args is a parsed key=value argument set.
type Args struct {
	values map[string]string
	order  []string
}

// Parse splits each element of argv on the first '=' into a key/value
// pair. An element with no '=' is malformed.
func Parse(argv []string) (*Args, error) {
	a := &Args{values: map[string]string{}}
	for _, tok := range argv {
		i := strings.IndexByte(tok, '=')
		if i < 0 {
			return nil, ancerr.New(ancerr.MalformedInput, "argument %q is not in key=value form", tok)
		}
		key, val := tok[:i], tok[i+1:]
		if _, dup := a.values[key]; !dup {
			a.order = append(a.order, key)
		}
		a.values[key] = val
	}
	return a, nil
}

// Has reports whether key was supplied.
func (a *Args) Has(key string) bool {
	_, ok := a.values[key]
	return ok
}

// String returns key's value, or def if key was not supplied.
func (a *Args) String(key, def string) string {
	if v, ok := a.values[key]; ok {
		return v
	}
	return def
}

// RequireString returns key's value, erroring if it was not supplied
// (spec.md §6 required keys: ref, ref-panel, gt, map, out).
func (a *Args) RequireString(key string) (string, error) {
	v, ok := a.values[key]
	if !ok {
		return "", ancerr.New(ancerr.MalformedInput, "missing required argument %q", key)
	}
	return v, nil
}

// Bool parses key as a bool (accepting true/false/1/0/yes/no), or
// returns def if key was not supplied.
func (a *Args) Bool(key string, def bool) (bool, error) {
	v, ok := a.values[key]
	if !ok {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, ancerr.New(ancerr.MalformedInput, "argument %q: %q is not a bool", key, v)
	}
}

// Int parses key as an int, or returns def if key was not supplied.
func (a *Args) Int(key string, def int) (int, error) {
	v, ok := a.values[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, ancerr.Wrap(ancerr.MalformedInput, err, "argument %q: %q is not an int", key, v)
	}
	return n, nil
}

// Int64 parses key as an int64, or returns def if key was not supplied.
func (a *Args) Int64(key string, def int64) (int64, error) {
	v, ok := a.values[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, ancerr.Wrap(ancerr.MalformedInput, err, "argument %q: %q is not an int64", key, v)
	}
	return n, nil
}

// Float64 parses key as a float64, or returns def if key was not
// supplied.
func (a *Args) Float64(key string, def float64) (float64, error) {
	v, ok := a.values[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, ancerr.Wrap(ancerr.MalformedInput, err, "argument %q: %q is not a float", key, v)
	}
	return f, nil
}

// Keys returns every supplied key in first-seen order, for diagnostics
// (e.g. logging the effective configuration at startup).
func (a *Args) Keys() []string {
	return append([]string(nil), a.order...)
}
