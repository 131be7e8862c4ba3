package trace

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"swipebraille/internal/gesture"
	"swipebraille/internal/keyboard"
)

// Recorder builds a Document from live input. Timestamps are taken
// relative to the first recorded event.
type Recorder struct {
	mu      sync.Mutex
	doc     Document
	started bool
	start   time.Time
}

// NewRecorder returns an empty recorder.
func NewRecorder(name string) *Recorder {
	return &Recorder{doc: Document{Version: 1, Name: name, Events: []Event{}}}
}

// SetLayout records the zone geometry the input was made on.
func (r *Recorder) SetLayout(cfg gesture.LayoutConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Layout = &LayoutSpec{
		OriginX: cfg.OriginX,
		OriginY: cfg.OriginY,
		DotSize: cfg.DotSize,
		Spacing: cfg.Spacing,
	}
}

// SetRepeat records the delete auto-repeat timings.
func (r *Recorder) SetRepeat(cfg keyboard.RepeatConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Repeat = &RepeatSpec{
		InitialDelayMs: cfg.InitialDelay.Milliseconds(),
		IntervalMs:     cfg.Interval.Milliseconds(),
	}
}

// SetControl records the area of control c.
func (r *Recorder) SetControl(c keyboard.Control, rect gesture.Rect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doc.Controls == nil {
		r.doc.Controls = make(map[string]RectSpec)
	}
	r.doc.Controls[c.String()] = RectSpec{MinX: rect.MinX, MinY: rect.MinY, MaxX: rect.MaxX, MaxY: rect.MaxY}
}

func (r *Recorder) add(at time.Time, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		r.started = true
		r.start = at
	}
	ms := at.Sub(r.start).Milliseconds()
	// keep timestamps monotonic if the host clock steps back
	if n := len(r.doc.Events); n > 0 && ms < r.doc.Events[n-1].AtMs {
		ms = r.doc.Events[n-1].AtMs
	}
	ev.AtMs = ms
	r.doc.Events = append(r.doc.Events, ev)
}

// Touch records a touch sample.
func (r *Recorder) Touch(ev keyboard.TouchEvent) {
	out := Event{Type: EventTouch, Phase: ev.Phase.String()}
	if ev.Phase == keyboard.PhaseBegan || ev.Phase == keyboard.PhaseMoved {
		out.X, out.Y = ev.Point.X, ev.Point.Y
	}
	r.add(ev.At, out)
}

// Press records the delete control going down.
func (r *Recorder) Press(at time.Time) {
	r.add(at, Event{Type: EventPress, Control: keyboard.ControlDelete.String()})
}

// Release records the delete control going up.
func (r *Recorder) Release(at time.Time) {
	r.add(at, Event{Type: EventRelease, Control: keyboard.ControlDelete.String()})
}

// Tap records a discrete control press.
func (r *Recorder) Tap(at time.Time, c keyboard.Control) {
	r.add(at, Event{Type: EventTap, Control: c.String()})
}

// Chord records a gesture through the given zones.
func (r *Recorder) Chord(at time.Time, zones ...gesture.Zone) {
	ints := make([]int, len(zones))
	for i, z := range zones {
		ints[i] = int(z)
	}
	r.add(at, Event{Type: EventChord, Zones: ints})
}

// Document returns a copy of the recorded trace.
func (r *Recorder) Document() *Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.doc
	doc.Events = append([]Event(nil), r.doc.Events...)
	if r.doc.Controls != nil {
		doc.Controls = make(map[string]RectSpec, len(r.doc.Controls))
		for k, v := range r.doc.Controls {
			doc.Controls[k] = v
		}
	}
	return &doc
}

// WriteTo encodes the recorded trace as indented JSON.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(r.Document(), "", "  ")
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	n, err := w.Write(data)
	return int64(n), err
}
