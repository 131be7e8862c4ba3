package gesture

import "swipebraille/internal/braille"

// State is the tracker's gesture state.
type State int

const (
	// StateIdle means no gesture is in progress.
	StateIdle State = iota
	// StateTracking means a gesture has begun and not yet ended.
	StateTracking
)

func (s State) String() string {
	if s == StateTracking {
		return "tracking"
	}
	return "idle"
}

// Tracker accumulates the dots visited by one continuous gesture.
//
// Activation is monotonic: once a dot is on it stays on until End or Cancel,
// even if the finger leaves its zone. The trail of sample points is kept for
// drawing feedback only and never affects the result.
//
// A Tracker is not safe for concurrent use.
type Tracker struct {
	layout *Layout
	state  State
	active braille.DotSet
	trail  []Point
}

// NewTracker returns an idle tracker over layout.
func NewTracker(layout *Layout) *Tracker {
	return &Tracker{layout: layout}
}

// Layout returns the zone geometry the tracker tests against.
func (t *Tracker) Layout() *Layout {
	return t.layout
}

// Begin starts a new gesture at p, discarding anything accumulated before.
// It reports whether p activated a dot.
func (t *Tracker) Begin(p Point) bool {
	t.state = StateTracking
	t.active = 0
	t.trail = t.trail[:0]
	return t.sample(p)
}

// Extend adds a sample to the current gesture. It is a no-op when idle.
// It reports whether the sample activated a dot that was not already on.
func (t *Tracker) Extend(p Point) bool {
	if t.state != StateTracking {
		return false
	}
	return t.sample(p)
}

func (t *Tracker) sample(p Point) bool {
	t.trail = append(t.trail, p)
	z, ok := t.layout.ZoneAt(p)
	if !ok {
		return false
	}
	next := t.active.Add(z.Dot())
	if next == t.active {
		return false
	}
	t.active = next
	return true
}

// End finishes the gesture and returns the activated dots. ok is false when
// no gesture was in progress.
func (t *Tracker) End() (dots braille.DotSet, ok bool) {
	if t.state != StateTracking {
		return 0, false
	}
	dots = t.active
	t.reset()
	return dots, true
}

// Cancel abandons the gesture without a result.
func (t *Tracker) Cancel() {
	t.reset()
}

func (t *Tracker) reset() {
	t.state = StateIdle
	t.active = 0
	t.trail = t.trail[:0]
}

// State returns the current gesture state.
func (t *Tracker) State() State {
	return t.state
}

// Tracking reports whether a gesture is in progress.
func (t *Tracker) Tracking() bool {
	return t.state == StateTracking
}

// Active returns the dots activated so far in the current gesture.
func (t *Tracker) Active() braille.DotSet {
	return t.active
}

// Trail returns a copy of the sample points of the current gesture.
func (t *Tracker) Trail() []Point {
	out := make([]Point, len(t.trail))
	copy(out, t.trail)
	return out
}

// HighlightedZones returns every zone whose dot is active, including aliased
// zones the finger never touched.
func (t *Tracker) HighlightedZones() []Zone {
	var out []Zone
	for z := Zone(1); z <= ZoneCount; z++ {
		if t.active.Has(z.Dot()) {
			out = append(out, z)
		}
	}
	return out
}
