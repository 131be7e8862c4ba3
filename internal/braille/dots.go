package braille

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Dot is a logical Braille dot index.
type Dot int

const (
	// MinDot is the lowest valid dot index.
	MinDot Dot = 1
	// MaxDot is the highest valid dot index.
	MaxDot Dot = 6
	// CellSize is the number of dots in one cell and the length of a Pattern.
	CellSize = 6
)

// BlankCell is the Unicode Braille pattern with no raised dots.
// It is distinct from an ASCII space.
const BlankCell = '\u2800'

// Valid reports whether d is in [MinDot, MaxDot].
func (d Dot) Valid() bool {
	return d >= MinDot && d <= MaxDot
}

// DotSet is a set of dots. Bit i is set iff dot i+1 is a member.
type DotSet uint8

const allDots DotSet = 1<<CellSize - 1

// NewDotSet returns the set containing the given dots.
// Dots outside 1-6 are ignored.
func NewDotSet(dots ...Dot) DotSet {
	var s DotSet
	for _, d := range dots {
		s = s.Add(d)
	}
	return s
}

// Add returns s with d added. Adding an invalid dot or a dot already present
// returns s unchanged.
func (s DotSet) Add(d Dot) DotSet {
	if !d.Valid() {
		return s
	}
	return s | 1<<(d-1)
}

// Has reports whether d is in the set.
func (s DotSet) Has(d Dot) bool {
	return d.Valid() && s&(1<<(d-1)) != 0
}

// Union returns the union of s and o.
func (s DotSet) Union(o DotSet) DotSet {
	return (s | o) & allDots
}

// Empty reports whether no dot is set.
func (s DotSet) Empty() bool {
	return s&allDots == 0
}

// Len returns the number of dots in the set.
func (s DotSet) Len() int {
	return bits.OnesCount8(uint8(s & allDots))
}

// Dots returns the members in ascending order.
func (s DotSet) Dots() []Dot {
	out := make([]Dot, 0, s.Len())
	for d := MinDot; d <= MaxDot; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// Pattern renders the set as a six-character '0'/'1' string.
func (s DotSet) Pattern() Pattern {
	var b [CellSize]byte
	for i := range b {
		b[i] = '0'
		if s&(1<<i) != 0 {
			b[i] = '1'
		}
	}
	return Pattern(b[:])
}

// Cell returns the Unicode Braille glyph for the set.
func (s DotSet) Cell() rune {
	return BlankCell + rune(s&allDots)
}

// String formats the set as "{1,3,6}".
func (s DotSet) String() string {
	dots := s.Dots()
	parts := make([]string, len(dots))
	for i, d := range dots {
		parts[i] = strconv.Itoa(int(d))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// ParseDots parses a dot list such as "1,2,5", "1 2 5" or "125".
// An empty string yields the empty set.
func ParseDots(s string) (DotSet, error) {
	var set DotSet
	for _, r := range s {
		switch {
		case r == ',' || r == ' ' || r == '\t':
			continue
		case r >= '0' && r <= '9':
			d := Dot(r - '0')
			if !d.Valid() {
				return 0, fmt.Errorf("%w: %d", ErrInvalidDot, d)
			}
			set = set.Add(d)
		default:
			return 0, fmt.Errorf("%w: unexpected %q in %q", ErrInvalidDot, r, s)
		}
	}
	return set, nil
}

// Pattern is a six-character string over {'0','1'}.
type Pattern string

// EmptyPattern is the pattern of the empty dot set.
const EmptyPattern Pattern = "000000"

// ParsePattern validates s as a pattern.
func ParsePattern(s string) (Pattern, error) {
	p := Pattern(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPattern, s)
	}
	return p, nil
}

// Valid reports whether p is exactly six '0'/'1' characters.
func (p Pattern) Valid() bool {
	if len(p) != CellSize {
		return false
	}
	for i := 0; i < CellSize; i++ {
		if p[i] != '0' && p[i] != '1' {
			return false
		}
	}
	return true
}

// DotSet converts p back to the set it encodes.
func (p Pattern) DotSet() (DotSet, error) {
	if !p.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPattern, string(p))
	}
	var s DotSet
	for i := 0; i < CellSize; i++ {
		if p[i] == '1' {
			s |= 1 << i
		}
	}
	return s, nil
}
