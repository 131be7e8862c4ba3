package braille

import (
	"bytes"
	_ "embed"
)

//go:embed tables/en-g1.csv
var defaultTableCSV []byte

// DefaultTable returns the built-in English grade 1 table. It is used when no
// mapping file is configured.
func DefaultTable() *Table {
	t, _, err := Load(bytes.NewReader(defaultTableCSV))
	if err != nil {
		return EmptyTable()
	}
	return t
}
