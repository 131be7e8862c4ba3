// Package gesture turns touch samples over the eight-zone chord surface into
// a set of activated Braille dots.
//
// The surface is a 2-column x 4-row grid of zones numbered left to right,
// top to bottom:
//
//	┌───┬───┐
//	│ 1 │ 2 │   -> dots 3, 6
//	├───┼───┤
//	│ 3 │ 4 │   -> dots 1, 4
//	├───┼───┤
//	│ 5 │ 6 │   -> dots 2, 5
//	├───┼───┤
//	│ 7 │ 8 │   -> dots 3, 6
//	└───┴───┘
//
// The top and bottom rows both carry dots 3 and 6 so that the lowest dots of
// the cell can be reached from either end of the surface.
package gesture

import (
	"fmt"

	"swipebraille/internal/braille"
)

// Zone identifies one physical touch target, 1-8.
type Zone int

// ZoneCount is the number of zones on the surface.
const ZoneCount = 8

// Grid dimensions.
const (
	Columns = 2
	Rows    = 4
)

// zoneDots is indexed by zone; index 0 is unused.
var zoneDots = [ZoneCount + 1]braille.Dot{0, 3, 6, 1, 4, 2, 5, 3, 6}

// Valid reports whether z is in 1-8.
func (z Zone) Valid() bool {
	return z >= 1 && z <= ZoneCount
}

// Dot returns the logical dot the zone stands for, or 0 for an invalid zone.
func (z Zone) Dot() braille.Dot {
	if !z.Valid() {
		return 0
	}
	return zoneDots[z]
}

// Row returns the zero-based grid row.
func (z Zone) Row() int { return (int(z) - 1) / Columns }

// Column returns the zero-based grid column.
func (z Zone) Column() int { return (int(z) - 1) % Columns }

// ZonesForDot returns every zone that activates d, in ascending order.
func ZonesForDot(d braille.Dot) []Zone {
	var out []Zone
	for z := Zone(1); z <= ZoneCount; z++ {
		if zoneDots[z] == d {
			out = append(out, z)
		}
	}
	return out
}

// DotsForZones folds a list of zones into the dot set they activate.
func DotsForZones(zones ...Zone) (braille.DotSet, error) {
	var s braille.DotSet
	for _, z := range zones {
		if !z.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidZone, z)
		}
		s = s.Add(z.Dot())
	}
	return s, nil
}
