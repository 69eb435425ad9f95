// Package nametable interns chromosome and sample names.
//
// The reference implementation interns names process-wide; per spec.md §9
// ("Global state") this repo localizes interning to a NameTable instance
// owned by the loader and threaded explicitly to every component that needs
// to resolve an index back to a string. The table keys on the plain name
// string; Hash separately gives a blake2b content hash of a name (the hash
// the teacher uses to content-address tile variants in tilelib.go), which
// is the same for the same name in every table and run.
package nametable

import (
	"golang.org/x/crypto/blake2b"
)

// Table interns strings to dense indices, both directions.
type Table struct {
	byName  map[string]int
	byIndex []string
}

// New returns an empty Table.
func New() *Table {
	return &Table{byName: make(map[string]int)}
}

// Intern returns the dense index for name, assigning a new one if this is
// the first time name has been seen.
func (t *Table) Intern(name string) int {
	if idx, ok := t.byName[name]; ok {
		return idx
	}
	idx := len(t.byIndex)
	t.byName[name] = idx
	t.byIndex = append(t.byIndex, name)
	return idx
}

// Lookup returns the index already assigned to name, or (-1, false) if name
// was never interned.
func (t *Table) Lookup(name string) (int, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// Name returns the string for a previously interned index. It panics on an
// out-of-range index, the same way a slice index does, since this is always
// a programming error (indices come from Intern/Lookup, never user input).
func (t *Table) Name(idx int) string {
	return t.byIndex[idx]
}

// Len returns the number of interned names.
func (t *Table) Len() int { return len(t.byIndex) }

// Hash returns a content hash of name, stable across processes and runs.
func Hash(name string) [32]byte {
	return blake2b.Sum256([]byte(name))
}
