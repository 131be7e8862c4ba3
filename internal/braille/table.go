package braille

import "sort"

// Entry is one pattern -> character mapping.
type Entry struct {
	Pattern Pattern `json:"pattern"`
	Char    string  `json:"char"`
}

// Table maps patterns to output characters. It is never mutated after
// construction.
type Table struct {
	entries map[Pattern]string
}

// NewTable builds a table from a copy of entries.
func NewTable(entries map[Pattern]string) *Table {
	m := make(map[Pattern]string, len(entries))
	for p, c := range entries {
		m[p] = c
	}
	return &Table{entries: m}
}

// EmptyTable returns a table with no mappings.
func EmptyTable() *Table {
	return &Table{entries: map[Pattern]string{}}
}

// Resolve returns the character mapped to the pattern of dots.
// The empty set never resolves, whatever the table holds.
func (t *Table) Resolve(dots DotSet) (string, bool) {
	if dots.Empty() {
		return "", false
	}
	return t.Lookup(dots.Pattern())
}

// Lookup returns the character mapped to p.
func (t *Table) Lookup(p Pattern) (string, bool) {
	if t == nil {
		return "", false
	}
	c, ok := t.entries[p]
	return c, ok
}

// Len returns the number of mapped patterns.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Entries returns all mappings sorted by pattern.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.entries))
	for p, c := range t.entries {
		out = append(out, Entry{Pattern: p, Char: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out
}
