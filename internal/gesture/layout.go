package gesture

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidZone is returned for zone numbers outside 1-8.
	ErrInvalidZone = errors.New("gesture: invalid zone")

	// ErrInvalidLayout is returned when layout geometry cannot form a grid.
	ErrInvalidLayout = errors.New("gesture: invalid layout")
)

// Point is a position in host view coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. Containment is half-open, so adjacent
// rectangles never both claim a shared edge.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X < r.MaxX &&
		p.Y >= r.MinY && p.Y < r.MaxY
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// Overlaps reports whether r and o share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX &&
		r.MinY < o.MaxY && o.MinY < r.MaxY
}

// LayoutConfig describes the square zone grid supplied by the host.
type LayoutConfig struct {
	// OriginX and OriginY locate the top-left corner of zone 1.
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`

	// DotSize is the side length of each square zone.
	DotSize float64 `json:"dot_size"`

	// Spacing is the gap between neighbouring zones.
	Spacing float64 `json:"spacing"`
}

// DefaultLayoutConfig returns the stock 45pt zones with 15pt gaps.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{DotSize: 45, Spacing: 15}
}

// ZoneRect pairs a zone with its rectangle.
type ZoneRect struct {
	Zone Zone `json:"zone"`
	Dot  int  `json:"dot"`
	Rect Rect `json:"rect"`
}

// Layout holds the fixed rectangles of the eight zones.
type Layout struct {
	rects [ZoneCount]Rect
}

// NewLayout builds the 2x4 grid described by cfg.
func NewLayout(cfg LayoutConfig) (*Layout, error) {
	if cfg.DotSize <= 0 {
		return nil, fmt.Errorf("%w: dot size must be positive, got %g", ErrInvalidLayout, cfg.DotSize)
	}
	if cfg.Spacing < 0 {
		return nil, fmt.Errorf("%w: spacing cannot be negative, got %g", ErrInvalidLayout, cfg.Spacing)
	}
	return grid(cfg), nil
}

// DefaultLayout returns the grid for DefaultLayoutConfig.
func DefaultLayout() *Layout {
	return grid(DefaultLayoutConfig())
}

// grid lays out cfg without checking it.
func grid(cfg LayoutConfig) *Layout {
	var l Layout
	step := cfg.DotSize + cfg.Spacing
	for z := Zone(1); z <= ZoneCount; z++ {
		x := cfg.OriginX + float64(z.Column())*step
		y := cfg.OriginY + float64(z.Row())*step
		l.rects[z-1] = Rect{MinX: x, MinY: y, MaxX: x + cfg.DotSize, MaxY: y + cfg.DotSize}
	}
	return &l
}

// NewLayoutFromRects accepts host-measured rectangles, indexed zone-1.
// Rectangles must be non-empty and must not overlap.
func NewLayoutFromRects(rects [ZoneCount]Rect) (*Layout, error) {
	for i, r := range rects {
		if r.Empty() {
			return nil, fmt.Errorf("%w: zone %d has no area", ErrInvalidLayout, i+1)
		}
		for j := i + 1; j < ZoneCount; j++ {
			if r.Overlaps(rects[j]) {
				return nil, fmt.Errorf("%w: zones %d and %d overlap", ErrInvalidLayout, i+1, j+1)
			}
		}
	}
	return &Layout{rects: rects}, nil
}

// ZoneAt returns the zone containing p. The first match wins.
func (l *Layout) ZoneAt(p Point) (Zone, bool) {
	for i, r := range l.rects {
		if r.Contains(p) {
			return Zone(i + 1), true
		}
	}
	return 0, false
}

// Rect returns the rectangle of z. An invalid zone yields the zero Rect.
func (l *Layout) Rect(z Zone) Rect {
	if !z.Valid() {
		return Rect{}
	}
	return l.rects[z-1]
}

// Center returns the midpoint of z's rectangle.
func (l *Layout) Center(z Zone) Point {
	r := l.Rect(z)
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}

// Bounds returns the smallest rectangle enclosing every zone.
func (l *Layout) Bounds() Rect {
	b := l.rects[0]
	for _, r := range l.rects[1:] {
		b.MinX = min(b.MinX, r.MinX)
		b.MinY = min(b.MinY, r.MinY)
		b.MaxX = max(b.MaxX, r.MaxX)
		b.MaxY = max(b.MaxY, r.MaxY)
	}
	return b
}

// Zones lists every zone with its dot and rectangle.
func (l *Layout) Zones() []ZoneRect {
	out := make([]ZoneRect, 0, ZoneCount)
	for z := Zone(1); z <= ZoneCount; z++ {
		out = append(out, ZoneRect{Zone: z, Dot: int(z.Dot()), Rect: l.rects[z-1]})
	}
	return out
}
