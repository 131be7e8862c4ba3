package gesture

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swipebraille/internal/braille"
)

func defaultLayout(t *testing.T) *Layout {
	t.Helper()
	l, err := NewLayout(DefaultLayoutConfig())
	require.NoError(t, err)
	return l
}

func TestZoneDotMapping(t *testing.T) {
	want := map[Zone]braille.Dot{1: 3, 2: 6, 3: 1, 4: 4, 5: 2, 6: 5, 7: 3, 8: 6}
	for z, d := range want {
		assert.Equal(t, d, z.Dot(), "zone %d", z)
	}
	assert.Equal(t, braille.Dot(0), Zone(0).Dot())
	assert.Equal(t, braille.Dot(0), Zone(9).Dot())
}

func TestEveryDotHasAZone(t *testing.T) {
	for d := braille.MinDot; d <= braille.MaxDot; d++ {
		assert.NotEmpty(t, ZonesForDot(d), "dot %d", d)
	}
	assert.Equal(t, []Zone{1, 7}, ZonesForDot(3))
	assert.Equal(t, []Zone{2, 8}, ZonesForDot(6))
	assert.Equal(t, []Zone{3}, ZonesForDot(1))
}

func TestDefaultLayoutMatchesConfig(t *testing.T) {
	assert.Equal(t, defaultLayout(t).Zones(), DefaultLayout().Zones())
}

func TestDotsForZones(t *testing.T) {
	s, err := DotsForZones(3, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, braille.NewDotSet(1, 2, 3), s)

	_, err = DotsForZones(3, 11)
	assert.ErrorIs(t, err, ErrInvalidZone)
}

func TestNewLayout_Grid(t *testing.T) {
	l := defaultLayout(t)

	assert.Equal(t, Rect{MinX: 0, MinY: 0, MaxX: 45, MaxY: 45}, l.Rect(1))
	assert.Equal(t, Rect{MinX: 60, MinY: 0, MaxX: 105, MaxY: 45}, l.Rect(2))
	assert.Equal(t, Rect{MinX: 0, MinY: 60, MaxX: 45, MaxY: 105}, l.Rect(3))
	assert.Equal(t, Rect{MinX: 60, MinY: 180, MaxX: 105, MaxY: 225}, l.Rect(8))
	assert.Equal(t, Rect{MinX: 0, MinY: 0, MaxX: 105, MaxY: 225}, l.Bounds())
	assert.Len(t, l.Zones(), ZoneCount)
}

func TestNewLayout_Origin(t *testing.T) {
	l, err := NewLayout(LayoutConfig{OriginX: 100, OriginY: 20, DotSize: 10, Spacing: 2})
	require.NoError(t, err)
	assert.Equal(t, Rect{MinX: 112, MinY: 44, MaxX: 122, MaxY: 54}, l.Rect(6))
}

func TestNewLayout_Invalid(t *testing.T) {
	_, err := NewLayout(LayoutConfig{DotSize: 0})
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewLayout(LayoutConfig{DotSize: 10, Spacing: -1})
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestNewLayoutFromRects(t *testing.T) {
	base := defaultLayout(t)
	var rects [ZoneCount]Rect
	for i := range rects {
		rects[i] = base.Rect(Zone(i + 1))
	}

	l, err := NewLayoutFromRects(rects)
	require.NoError(t, err)
	assert.Equal(t, base.Zones(), l.Zones())

	overlapping := rects
	overlapping[1] = overlapping[0]
	_, err = NewLayoutFromRects(overlapping)
	assert.ErrorIs(t, err, ErrInvalidLayout)

	empty := rects
	empty[4] = Rect{}
	_, err = NewLayoutFromRects(empty)
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestZoneAt(t *testing.T) {
	l := defaultLayout(t)

	tests := []struct {
		name string
		p    Point
		zone Zone
		hit  bool
	}{
		{"zone 1 corner", Point{0, 0}, 1, true},
		{"zone 1 center", Point{22, 22}, 1, true},
		{"right edge is exclusive", Point{45, 10}, 0, false},
		{"gap between columns", Point{50, 10}, 0, false},
		{"zone 2", Point{60, 0}, 2, true},
		{"zone 7", Point{10, 200}, 7, true},
		{"zone 8", Point{104.9, 224.9}, 8, true},
		{"below grid", Point{10, 230}, 0, false},
		{"negative", Point{-1, -1}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, ok := l.ZoneAt(tt.p)
			assert.Equal(t, tt.hit, ok)
			assert.Equal(t, tt.zone, z)
		})
	}
}

func TestTracker_TapSingleZone(t *testing.T) {
	l := defaultLayout(t)
	tr := NewTracker(l)

	assert.True(t, tr.Begin(l.Center(3)))
	assert.True(t, tr.Tracking())

	dots, ok := tr.End()
	require.True(t, ok)
	assert.Equal(t, braille.NewDotSet(1), dots)
	assert.Equal(t, StateIdle, tr.State())
	assert.True(t, tr.Active().Empty())
}

func TestTracker_AliasedZonesYieldSameDot(t *testing.T) {
	l := defaultLayout(t)
	table := braille.NewTable(map[braille.Pattern]string{"001000": "'"})

	results := make([]braille.DotSet, 0, 2)
	for _, z := range []Zone{1, 7} {
		tr := NewTracker(l)
		tr.Begin(l.Center(z))
		dots, ok := tr.End()
		require.True(t, ok)
		results = append(results, dots)
	}

	assert.Equal(t, braille.NewDotSet(3), results[0])
	assert.Equal(t, results[0], results[1])

	c0, ok0 := table.Resolve(results[0])
	c1, ok1 := table.Resolve(results[1])
	assert.True(t, ok0)
	assert.Equal(t, ok0, ok1)
	assert.Equal(t, c0, c1)
}

func TestTracker_DragAccumulatesMonotonically(t *testing.T) {
	l := defaultLayout(t)
	tr := NewTracker(l)

	tr.Begin(l.Center(3))
	assert.False(t, tr.Extend(Point{50, 80}), "gap between zones")
	assert.True(t, tr.Extend(l.Center(4)))
	assert.False(t, tr.Extend(l.Center(4)), "already active")
	assert.True(t, tr.Extend(l.Center(6)))
	assert.False(t, tr.Extend(Point{500, 500}), "outside every zone")

	// Leaving zone 3 did not switch dot 1 off.
	assert.True(t, tr.Active().Has(1))

	dots, ok := tr.End()
	require.True(t, ok)
	assert.Equal(t, braille.NewDotSet(1, 4, 5), dots)
}

func TestTracker_OrderDoesNotMatter(t *testing.T) {
	l := defaultLayout(t)
	zones := []Zone{1, 2, 3, 4, 5, 6, 7, 8}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		n := rng.Intn(len(zones)) + 1
		picked := append([]Zone(nil), zones...)
		rng.Shuffle(len(picked), func(a, b int) { picked[a], picked[b] = picked[b], picked[a] })
		picked = picked[:n]

		want, err := DotsForZones(picked...)
		require.NoError(t, err)

		forward := NewTracker(l)
		forward.Begin(l.Center(picked[0]))
		for _, z := range picked[1:] {
			forward.Extend(l.Center(z))
		}
		got, _ := forward.End()
		assert.Equal(t, want, got)

		backward := NewTracker(l)
		backward.Begin(l.Center(picked[len(picked)-1]))
		for j := len(picked) - 2; j >= 0; j-- {
			backward.Extend(l.Center(picked[j]))
		}
		got, _ = backward.End()
		assert.Equal(t, want, got)

		for d := braille.Dot(1); d <= braille.MaxDot; d++ {
			if got.Has(d) {
				assert.True(t, d.Valid())
			}
		}
	}
}

func TestTracker_BeginOutsideZones(t *testing.T) {
	l := defaultLayout(t)
	tr := NewTracker(l)

	assert.False(t, tr.Begin(Point{-50, -50}))
	assert.True(t, tr.Tracking())

	dots, ok := tr.End()
	require.True(t, ok)
	assert.True(t, dots.Empty())
}

func TestTracker_BeginClearsPreviousGesture(t *testing.T) {
	l := defaultLayout(t)
	tr := NewTracker(l)

	tr.Begin(l.Center(3))
	tr.Extend(l.Center(4))
	tr.Begin(l.Center(5))

	dots, _ := tr.End()
	assert.Equal(t, braille.NewDotSet(2), dots)
}

func TestTracker_ExtendWhileIdleIsNoop(t *testing.T) {
	l := defaultLayout(t)
	tr := NewTracker(l)

	assert.False(t, tr.Extend(l.Center(3)))
	assert.True(t, tr.Active().Empty())
	assert.Empty(t, tr.Trail())

	_, ok := tr.End()
	assert.False(t, ok)
}

func TestTracker_Cancel(t *testing.T) {
	l := defaultLayout(t)
	tr := NewTracker(l)

	tr.Begin(l.Center(3))
	tr.Extend(l.Center(4))
	tr.Cancel()

	assert.Equal(t, StateIdle, tr.State())
	assert.True(t, tr.Active().Empty())
	_, ok := tr.End()
	assert.False(t, ok)
}

func TestTracker_TrailAndHighlights(t *testing.T) {
	l := defaultLayout(t)
	tr := NewTracker(l)

	tr.Begin(l.Center(1))
	tr.Extend(Point{50, 50})
	tr.Extend(l.Center(6))

	trail := tr.Trail()
	require.Len(t, trail, 3)
	assert.Equal(t, Point{50, 50}, trail[1])

	// Dot 3 lights zones 1 and 7; dot 5 lights zone 6.
	assert.Equal(t, []Zone{1, 6, 7}, tr.HighlightedZones())

	trail[0] = Point{}
	assert.Equal(t, l.Center(1), tr.Trail()[0], "Trail returns a copy")
}
