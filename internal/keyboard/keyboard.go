// Package keyboard dispatches chord gestures and control presses to a host
// text proxy.
//
// A Keyboard owns one gesture tracker, the immutable mapping table, and the
// delete auto-repeat machine. Hosts feed it touch events and control presses
// from their event loop; it answers with text commands applied to the
// TextProxy. Nothing in the core is fatal: a chord that touches no zone or
// resolves to no character simply produces no output.
package keyboard

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"swipebraille/internal/braille"
	"swipebraille/internal/gesture"
)

// Phase is the lifecycle stage of a touch sample.
type Phase int

const (
	PhaseBegan Phase = iota
	PhaseMoved
	PhaseEnded
	PhaseCancelled
)

var phaseNames = [...]string{"began", "moved", "ended", "cancelled"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// ParsePhase accepts the names produced by Phase.String plus the short
// forms "begin", "move", "end" and "cancel".
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "began", "begin":
		return PhaseBegan, nil
	case "moved", "move":
		return PhaseMoved, nil
	case "ended", "end":
		return PhaseEnded, nil
	case "cancelled", "canceled", "cancel":
		return PhaseCancelled, nil
	}
	return 0, fmt.Errorf("unknown touch phase %q", s)
}

// TouchEvent is one sample of the chord gesture.
type TouchEvent struct {
	Phase Phase
	Point gesture.Point
	At    time.Time
}

// Control identifies a dedicated key outside the chord surface.
type Control int

const (
	ControlDelete Control = iota
	ControlNewline
	ControlSpace
	ControlBlankCell
)

var controlNames = [...]string{"delete", "newline", "space", "blank_cell"}

func (c Control) String() string {
	if c < 0 || int(c) >= len(controlNames) {
		return fmt.Sprintf("Control(%d)", int(c))
	}
	return controlNames[c]
}

// ParseControl maps a control name to its Control.
func ParseControl(s string) (Control, error) {
	for i, name := range controlNames {
		if name == s {
			return Control(i), nil
		}
	}
	return 0, fmt.Errorf("unknown control %q", s)
}

// Option configures a Keyboard.
type Option func(*Keyboard)

// WithScheduler sets the scheduler used for delete auto-repeat.
func WithScheduler(s Scheduler) Option {
	return func(k *Keyboard) { k.sched = s }
}

// WithRepeat overrides the auto-repeat timings.
func WithRepeat(cfg RepeatConfig) Option {
	return func(k *Keyboard) { k.repeat = cfg }
}

// WithLogger sets the logger for chord diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(k *Keyboard) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithObserver registers fn to see every command after it is applied.
func WithObserver(fn func(Command)) Option {
	return func(k *Keyboard) { k.observers = append(k.observers, fn) }
}

// WithControlRect marks r as the on-screen area of control c. Gestures that
// begin inside a control area are not tracked.
func WithControlRect(c Control, r gesture.Rect) Option {
	return func(k *Keyboard) { k.controls[c] = r }
}

// Keyboard turns gestures and control presses into text commands.
type Keyboard struct {
	mu       sync.Mutex
	tracker  *gesture.Tracker
	table    *braille.Table
	controls map[Control]gesture.Rect
	closed   bool

	outMu     sync.Mutex
	proxy     TextProxy
	observers []func(Command)

	sched    Scheduler
	repeat   RepeatConfig
	repeater *DeleteRepeater

	logger *slog.Logger
}

// New returns a keyboard resolving chords drawn over layout against table
// and writing into proxy. A nil table behaves as an empty one.
func New(table *braille.Table, layout *gesture.Layout, proxy TextProxy, opts ...Option) *Keyboard {
	if table == nil {
		table = braille.EmptyTable()
	}
	k := &Keyboard{
		tracker:  gesture.NewTracker(layout),
		table:    table,
		controls: make(map[Control]gesture.Rect),
		proxy:    proxy,
		sched:    SystemScheduler{},
		repeat:   DefaultRepeatConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if err := k.repeat.Validate(); err != nil {
		k.logger.Warn("invalid repeat timings, using defaults", "error", err)
		k.repeat = DefaultRepeatConfig()
	}
	k.repeater = NewDeleteRepeater(k.repeat, k.sched, func() {
		k.emit(Command{Kind: DeleteBackward})
	})
	return k
}

// Table returns the mapping table.
func (k *Keyboard) Table() *braille.Table {
	return k.table
}

// HandleTouch feeds one gesture sample. When the sample ends a chord that
// resolves to a character, the emitted command is returned.
func (k *Keyboard) HandleTouch(ev TouchEvent) (Command, bool) {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return Command{}, false
	}

	switch ev.Phase {
	case PhaseBegan:
		if c, hit := k.controlAt(ev.Point); hit {
			k.logger.Debug("gesture starts on control, ignored", "control", c.String())
			k.mu.Unlock()
			return Command{}, false
		}
		k.tracker.Begin(ev.Point)
		k.mu.Unlock()
		return Command{}, false

	case PhaseMoved:
		k.tracker.Extend(ev.Point)
		k.mu.Unlock()
		return Command{}, false

	case PhaseCancelled:
		k.tracker.Cancel()
		k.mu.Unlock()
		return Command{}, false

	case PhaseEnded:
		dots, ok := k.tracker.End()
		k.mu.Unlock()
		if !ok || dots.Empty() {
			return Command{}, false
		}
		return k.commit(dots)

	default:
		k.mu.Unlock()
		return Command{}, false
	}
}

func (k *Keyboard) commit(dots braille.DotSet) (Command, bool) {
	c, found := k.table.Resolve(dots)
	if !found {
		k.logger.Debug("chord unmapped", "dots", dots.String(), "pattern", string(dots.Pattern()))
		return Command{}, false
	}
	cmd := CharacterCommand(c)
	k.emit(cmd)
	return cmd, true
}

func (k *Keyboard) controlAt(p gesture.Point) (Control, bool) {
	for c, r := range k.controls {
		if r.Contains(p) {
			return c, true
		}
	}
	return 0, false
}

// PressDelete starts a delete hold: one delete now, then auto-repeat.
func (k *Keyboard) PressDelete() {
	if k.isClosed() {
		return
	}
	k.repeater.Press()
}

// ReleaseDelete ends a delete hold.
func (k *Keyboard) ReleaseDelete() {
	k.repeater.Release()
}

// Tap handles a discrete press-and-release of c. Tapping delete issues
// exactly one delete and leaves a delete hold in progress untouched.
func (k *Keyboard) Tap(c Control) {
	if k.isClosed() {
		return
	}
	switch c {
	case ControlDelete:
		if k.repeater.Press() {
			k.repeater.Release()
		} else {
			k.emit(Command{Kind: DeleteBackward})
		}
	case ControlNewline:
		k.emit(ControlCommand(InsertNewline))
	case ControlSpace:
		k.emit(ControlCommand(InsertSpace))
	case ControlBlankCell:
		k.emit(ControlCommand(InsertBlankCell))
	}
}

// Active returns the dots lit by the gesture in progress.
func (k *Keyboard) Active() braille.DotSet {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tracker.Active()
}

// HighlightedZones returns the zones to draw as selected.
func (k *Keyboard) HighlightedZones() []gesture.Zone {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tracker.HighlightedZones()
}

// Trail returns the sample points of the gesture in progress.
func (k *Keyboard) Trail() []gesture.Point {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tracker.Trail()
}

// Tracking reports whether a gesture is in progress.
func (k *Keyboard) Tracking() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tracker.Tracking()
}

// RepeatState returns the delete auto-repeat phase.
func (k *Keyboard) RepeatState() RepeatState {
	return k.repeater.State()
}

// Suspend abandons any gesture and stops auto-repeat, as when the keyboard
// view leaves the screen. The keyboard stays usable.
func (k *Keyboard) Suspend() {
	k.mu.Lock()
	k.tracker.Cancel()
	k.mu.Unlock()
	k.repeater.Release()
}

// Close tears the keyboard down. Later events are ignored.
func (k *Keyboard) Close() {
	k.mu.Lock()
	k.closed = true
	k.tracker.Cancel()
	k.mu.Unlock()
	k.repeater.Release()
}

func (k *Keyboard) isClosed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.closed
}

func (k *Keyboard) emit(cmd Command) {
	k.outMu.Lock()
	defer k.outMu.Unlock()

	if k.proxy != nil {
		cmd.Apply(k.proxy)
	}
	for _, fn := range k.observers {
		fn(cmd)
	}
}
