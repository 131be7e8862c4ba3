// Package trace records and replays keyboard sessions.
//
// A trace is a JSON document of timestamped touch samples and control
// presses. Documents are checked against an embedded JSON Schema before
// they are decoded. Replay drives a keyboard.Keyboard on a virtual clock,
// so delete auto-repeat produces the same output on every run.
package trace

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaURL identifies the embedded trace schema.
const SchemaURL = "https://swipebraille.dev/schema/trace-v1.schema.json"

//go:embed trace.schema.json
var schemaJSON []byte

// ErrInvalidTrace is returned for documents that fail schema or ordering checks.
var ErrInvalidTrace = errors.New("invalid trace")

// EventType is the kind of a trace event.
type EventType string

const (
	EventTouch   EventType = "touch"
	EventPress   EventType = "press"
	EventRelease EventType = "release"
	EventTap     EventType = "tap"
	// EventChord is shorthand for a gesture drawn through the centres of
	// the listed zones, beginning and ending at the event time.
	EventChord EventType = "chord"
)

// Event is one timestamped input.
type Event struct {
	AtMs    int64     `json:"t_ms"`
	Type    EventType `json:"type"`
	Phase   string    `json:"phase,omitempty"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Control string    `json:"control,omitempty"`
	Zones   []int     `json:"zones,omitempty"`
}

// LayoutSpec overrides the zone geometry for a replay.
type LayoutSpec struct {
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	DotSize float64 `json:"dot_size"`
	Spacing float64 `json:"spacing"`
}

// RepeatSpec overrides the delete auto-repeat timings for a replay.
type RepeatSpec struct {
	InitialDelayMs int64 `json:"initial_delay_ms"`
	IntervalMs     int64 `json:"interval_ms"`
}

// RectSpec is a control button's area, in the layout's coordinates.
type RectSpec struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Document is a decoded trace.
type Document struct {
	Version     int         `json:"version"`
	Name        string      `json:"name,omitempty"`
	InitialText string      `json:"initial_text,omitempty"`
	Expect      *string     `json:"expect,omitempty"`
	Layout      *LayoutSpec `json:"layout,omitempty"`
	Repeat      *RepeatSpec `json:"repeat,omitempty"`
	// Controls maps control names to the areas where a gesture may not start.
	Controls map[string]RectSpec `json:"controls,omitempty"`
	Events   []Event             `json:"events"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the compiled trace schema.
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(SchemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(SchemaURL)
	})
	return schema, schemaErr
}

// SchemaJSON returns the raw schema document.
func SchemaJSON() []byte {
	return append([]byte(nil), schemaJSON...)
}

// Parse validates and decodes a trace document.
func Parse(data []byte) (*Document, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}

	s, err := Schema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}

	var last int64
	for i, ev := range doc.Events {
		if ev.AtMs < last {
			return nil, fmt.Errorf("%w: event %d at %dms precedes %dms", ErrInvalidTrace, i, ev.AtMs, last)
		}
		last = ev.AtMs
	}
	return &doc, nil
}

// Decode reads and parses a trace from r.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return Parse(data)
}

// LoadFile reads and parses the trace at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return Parse(data)
}

// Duration returns the timestamp of the last event in milliseconds.
func (d *Document) Duration() int64 {
	if len(d.Events) == 0 {
		return 0
	}
	return d.Events[len(d.Events)-1].AtMs
}
