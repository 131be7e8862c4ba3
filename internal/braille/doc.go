// Package braille models six-dot Braille cells and the pattern table that
// turns a finished chord into output text.
//
// # Cells and patterns
//
// A cell is a set of up to six dots numbered 1-6 in the standard layout:
//
//	1 ● ● 4
//	2 ● ● 5
//	3 ● ● 6
//
// A DotSet stores the set as a bitmask where bit i is dot i+1. The same
// bit order is used by the Unicode Braille block, so DotSet.Cell returns the
// matching U+28xx glyph directly.
//
// A Pattern is the six-character '0'/'1' rendering of a DotSet. Position i
// (0-indexed) is '1' iff dot i+1 is set, so dot 1 is the leftmost character.
// Patterns are compared by exact string equality.
//
// # Mapping tables
//
// Tables are loaded once from a CSV resource whose rows are
// "character,pattern". The first row is a header and is always skipped.
// Malformed rows are skipped and counted in a LoadReport rather than
// failing the load, and a missing resource degrades to an empty table so the
// keyboard keeps its delete, space, and newline controls.
//
// A Table is immutable after construction and safe for concurrent use.
package braille
