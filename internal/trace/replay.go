package trace

import (
	"fmt"
	"log/slog"
	"time"

	"swipebraille/internal/braille"
	"swipebraille/internal/gesture"
	"swipebraille/internal/keyboard"
)

// Epoch is the virtual time at which every replay starts.
var Epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// TimedCommand is a command emitted during replay.
type TimedCommand struct {
	AtMs    int64            `json:"t_ms"`
	Command keyboard.Command `json:"command"`
}

// Result summarises a replay.
type Result struct {
	Name     string         `json:"name,omitempty"`
	Text     string         `json:"text"`
	Commands []TimedCommand `json:"commands"`
	// Chords counts finished gestures, mapped or not.
	Chords int `json:"chords"`
	// Unresolved counts finished gestures that produced no character.
	Unresolved int `json:"unresolved"`
	// Matched reports whether Text equals the document's expectation; nil
	// when the document has none.
	Matched *bool `json:"matched,omitempty"`
}

// ReplayOptions adjusts a replay.
type ReplayOptions struct {
	// Layout is used when the document has no layout of its own.
	Layout gesture.LayoutConfig
	// Repeat is used when the document has no repeat timings of its own.
	Repeat keyboard.RepeatConfig
	Logger *slog.Logger
}

// DefaultReplayOptions returns the stock layout and timings.
func DefaultReplayOptions() ReplayOptions {
	return ReplayOptions{
		Layout: gesture.DefaultLayoutConfig(),
		Repeat: keyboard.DefaultRepeatConfig(),
	}
}

// Replay runs doc through a fresh keyboard resolving against table.
//
// Events are applied in order at their timestamps. Timers that fall due at
// or before an event's timestamp fire before that event, so a release at
// exactly the initial delay still yields the second delete. A delete still
// held when the trace ends is released at the last event's time.
func Replay(doc *Document, table *braille.Table, opts ReplayOptions) (*Result, error) {
	layoutCfg := opts.Layout
	if doc.Layout != nil {
		layoutCfg = gesture.LayoutConfig{
			OriginX: doc.Layout.OriginX,
			OriginY: doc.Layout.OriginY,
			DotSize: doc.Layout.DotSize,
			Spacing: doc.Layout.Spacing,
		}
	}
	layout, err := gesture.NewLayout(layoutCfg)
	if err != nil {
		return nil, err
	}

	repeat := opts.Repeat
	if doc.Repeat != nil {
		repeat = keyboard.RepeatConfig{
			InitialDelay: time.Duration(doc.Repeat.InitialDelayMs) * time.Millisecond,
			Interval:     time.Duration(doc.Repeat.IntervalMs) * time.Millisecond,
		}
	}
	if err := repeat.Validate(); err != nil {
		return nil, err
	}

	sched := keyboard.NewVirtualScheduler(Epoch)
	buf := keyboard.NewBuffer(doc.InitialText)
	res := &Result{Name: doc.Name, Commands: []TimedCommand{}}

	kbOpts := []keyboard.Option{
		keyboard.WithScheduler(sched),
		keyboard.WithRepeat(repeat),
		keyboard.WithObserver(func(c keyboard.Command) {
			res.Commands = append(res.Commands, TimedCommand{
				AtMs:    sched.Now().Sub(Epoch).Milliseconds(),
				Command: c,
			})
		}),
	}
	if opts.Logger != nil {
		kbOpts = append(kbOpts, keyboard.WithLogger(opts.Logger))
	}
	for name, r := range doc.Controls {
		c, err := keyboard.ParseControl(name)
		if err != nil {
			return nil, fmt.Errorf("controls: %w", err)
		}
		kbOpts = append(kbOpts, keyboard.WithControlRect(c, gesture.Rect{
			MinX: r.MinX, MinY: r.MinY, MaxX: r.MaxX, MaxY: r.MaxY,
		}))
	}
	kb := keyboard.New(table, layout, buf, kbOpts...)

	for i, ev := range doc.Events {
		at := Epoch.Add(time.Duration(ev.AtMs) * time.Millisecond)
		sched.AdvanceTo(at)

		if err := apply(kb, layout, ev, at, res); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	kb.Close()

	res.Text = buf.String()
	if doc.Expect != nil {
		ok := *doc.Expect == res.Text
		res.Matched = &ok
	}
	return res, nil
}

func apply(kb *keyboard.Keyboard, layout *gesture.Layout, ev Event, at time.Time, res *Result) error {
	switch ev.Type {
	case EventTouch:
		phase, err := keyboard.ParsePhase(ev.Phase)
		if err != nil {
			return err
		}
		_, ok := kb.HandleTouch(keyboard.TouchEvent{Phase: phase, Point: gesture.Point{X: ev.X, Y: ev.Y}, At: at})
		if phase == keyboard.PhaseEnded {
			res.count(ok)
		}

	case EventChord:
		for j, z := range ev.Zones {
			zone := gesture.Zone(z)
			if !zone.Valid() {
				return fmt.Errorf("%w: %d", gesture.ErrInvalidZone, z)
			}
			phase := keyboard.PhaseMoved
			if j == 0 {
				phase = keyboard.PhaseBegan
			}
			kb.HandleTouch(keyboard.TouchEvent{Phase: phase, Point: layout.Center(zone), At: at})
		}
		_, ok := kb.HandleTouch(keyboard.TouchEvent{Phase: keyboard.PhaseEnded, At: at})
		res.count(ok)

	case EventPress, EventRelease:
		c, err := keyboard.ParseControl(ev.Control)
		if err != nil {
			return err
		}
		if c != keyboard.ControlDelete {
			return fmt.Errorf("only delete can be held, got %s", c)
		}
		if ev.Type == EventPress {
			kb.PressDelete()
		} else {
			kb.ReleaseDelete()
		}

	case EventTap:
		c, err := keyboard.ParseControl(ev.Control)
		if err != nil {
			return err
		}
		kb.Tap(c)

	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

func (r *Result) count(inserted bool) {
	r.Chords++
	if !inserted {
		r.Unresolved++
	}
}
