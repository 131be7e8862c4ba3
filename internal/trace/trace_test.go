package trace

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swipebraille/internal/braille"
	"swipebraille/internal/gesture"
	"swipebraille/internal/keyboard"
)

func TestSchemaCompiles(t *testing.T) {
	s, err := Schema()
	require.NoError(t, err)
	require.NotNil(t, s)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(SchemaJSON(), &raw))
	assert.Equal(t, SchemaURL, raw["$id"])
}

func TestReplayFixture(t *testing.T) {
	doc, err := LoadFile(filepath.Join("testdata", "hello.json"))
	require.NoError(t, err)
	assert.Equal(t, int64(2400), doc.Duration())

	res, err := Replay(doc, braille.DefaultTable(), DefaultReplayOptions())
	require.NoError(t, err)

	assert.Equal(t, "hel\n⠀", res.Text)
	require.NotNil(t, res.Matched)
	assert.True(t, *res.Matched)
	assert.Equal(t, 6, res.Chords)
	assert.Zero(t, res.Unresolved)

	var deletes []int64
	for _, c := range res.Commands {
		if c.Command.Kind == keyboard.DeleteBackward {
			deletes = append(deletes, c.AtMs)
		}
	}
	// press at 1500, initial delay 500, interval 100, release at 2100
	assert.Equal(t, []int64{1500, 2000, 2100}, deletes)
	assert.Len(t, res.Commands, 11)
}

func TestReplayRepeatOverride(t *testing.T) {
	doc, err := Parse([]byte(`{
		"version": 1,
		"initial_text": "abcdefghij",
		"repeat": {"initial_delay_ms": 200, "interval_ms": 50},
		"events": [
			{"t_ms": 0, "type": "press", "control": "delete"},
			{"t_ms": 320, "type": "release", "control": "delete"}
		]
	}`))
	require.NoError(t, err)

	res, err := Replay(doc, braille.DefaultTable(), DefaultReplayOptions())
	require.NoError(t, err)
	// 0, 200, 250, 300
	assert.Equal(t, "abcdef", res.Text)
	assert.Nil(t, res.Matched)
}

func TestReplayReleasesAtEnd(t *testing.T) {
	doc, err := Parse([]byte(`{"version":1,"initial_text":"abc","events":[
		{"t_ms": 0, "type": "press", "control": "delete"},
		{"t_ms": 100, "type": "tap", "control": "space"}
	]}`))
	require.NoError(t, err)

	res, err := Replay(doc, braille.DefaultTable(), DefaultReplayOptions())
	require.NoError(t, err)
	assert.Equal(t, "ab ", res.Text)
}

func TestReplayCustomLayout(t *testing.T) {
	doc, err := Parse([]byte(`{"version":1,
		"layout": {"origin_x": 0, "origin_y": 0, "dot_size": 10, "spacing": 0},
		"events": [
			{"t_ms": 0, "type": "touch", "phase": "began", "x": 5, "y": 15},
			{"t_ms": 5, "type": "touch", "phase": "ended"}
		]}`))
	require.NoError(t, err)

	res, err := Replay(doc, braille.DefaultTable(), DefaultReplayOptions())
	require.NoError(t, err)
	assert.Equal(t, "a", res.Text)
}

func TestReplayControlAreas(t *testing.T) {
	doc, err := Parse([]byte(`{"version":1,
		"controls": {"delete": {"min_x": 0, "min_y": 0, "max_x": 45, "max_y": 45}},
		"events": [
			{"t_ms": 0, "type": "touch", "phase": "began", "x": 22.5, "y": 22.5},
			{"t_ms": 5, "type": "touch", "phase": "moved", "x": 22.5, "y": 82.5},
			{"t_ms": 10, "type": "touch", "phase": "ended"},
			{"t_ms": 20, "type": "chord", "zones": [3]}
		]}`))
	require.NoError(t, err)

	res, err := Replay(doc, braille.DefaultTable(), DefaultReplayOptions())
	require.NoError(t, err)
	assert.Equal(t, "a", res.Text, "a gesture starting on delete is not a chord")
}

func TestRecorderCarriesSettings(t *testing.T) {
	rec := NewRecorder("settings")
	rec.SetLayout(gesture.LayoutConfig{OriginX: 10, OriginY: 20, DotSize: 30, Spacing: 5})
	rec.SetRepeat(keyboard.RepeatConfig{InitialDelay: 250 * time.Millisecond, Interval: 40 * time.Millisecond})
	rec.SetControl(keyboard.ControlNewline, gesture.Rect{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4})

	var buf bytes.Buffer
	_, err := rec.WriteTo(&buf)
	require.NoError(t, err)
	doc, err := Parse(buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, &LayoutSpec{OriginX: 10, OriginY: 20, DotSize: 30, Spacing: 5}, doc.Layout)
	assert.Equal(t, &RepeatSpec{InitialDelayMs: 250, IntervalMs: 40}, doc.Repeat)
	assert.Equal(t, RectSpec{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}, doc.Controls["newline"])
}

func TestReplayUnresolvedAndCancelled(t *testing.T) {
	doc, err := Parse([]byte(`{"version":1,"events":[
		{"t_ms": 0, "type": "chord", "zones": [1, 2, 3, 4, 5, 6]},
		{"t_ms": 10, "type": "touch", "phase": "began", "x": 22.5, "y": 82.5},
		{"t_ms": 20, "type": "touch", "phase": "cancelled"},
		{"t_ms": 30, "type": "touch", "phase": "began", "x": 300, "y": 300},
		{"t_ms": 40, "type": "touch", "phase": "ended"}
	]}`))
	require.NoError(t, err)

	res, err := Replay(doc, braille.DefaultTable(), DefaultReplayOptions())
	require.NoError(t, err)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, 2, res.Chords)
	assert.Equal(t, 2, res.Unresolved)
	assert.Empty(t, res.Commands)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing events", `{"version":1}`},
		{"wrong version", `{"version":2,"events":[]}`},
		{"unknown field", `{"version":1,"events":[],"speed":3}`},
		{"began without point", `{"version":1,"events":[{"t_ms":0,"type":"touch","phase":"began"}]}`},
		{"hold space", `{"version":1,"events":[{"t_ms":0,"type":"press","control":"space"}]}`},
		{"zone out of range", `{"version":1,"events":[{"t_ms":0,"type":"chord","zones":[9]}]}`},
		{"negative time", `{"version":1,"events":[{"t_ms":-1,"type":"tap","control":"space"}]}`},
		{"unknown control area", `{"version":1,"controls":{"shift":{"min_x":0,"min_y":0,"max_x":1,"max_y":1}},"events":[]}`},
		{"control area missing edge", `{"version":1,"controls":{"space":{"min_x":0,"min_y":0,"max_x":1}},"events":[]}`},
		{"out of order", `{"version":1,"events":[
			{"t_ms":10,"type":"tap","control":"space"},
			{"t_ms":5,"type":"tap","control":"space"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidTrace)
		})
	}
}

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{"version":1,"name":"empty","events":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "empty", doc.Name)
	assert.Zero(t, doc.Duration())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRecorderRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	layout, err := gesture.NewLayout(gesture.DefaultLayoutConfig())
	require.NoError(t, err)

	rec := NewRecorder("recorded")
	rec.Touch(keyboard.TouchEvent{Phase: keyboard.PhaseBegan, Point: layout.Center(3), At: start})
	rec.Touch(keyboard.TouchEvent{Phase: keyboard.PhaseMoved, Point: layout.Center(5), At: start.Add(30 * time.Millisecond)})
	rec.Touch(keyboard.TouchEvent{Phase: keyboard.PhaseEnded, At: start.Add(60 * time.Millisecond)})
	rec.Tap(start.Add(100*time.Millisecond), keyboard.ControlSpace)
	rec.Chord(start.Add(200*time.Millisecond), 3)
	rec.Press(start.Add(300 * time.Millisecond))
	rec.Release(start.Add(350 * time.Millisecond))
	// clock stepped back
	rec.Tap(start.Add(340*time.Millisecond), keyboard.ControlNewline)

	var buf bytes.Buffer
	_, err = rec.WriteTo(&buf)
	require.NoError(t, err)

	doc, err := Parse(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, doc.Events, 8)
	assert.Equal(t, int64(350), doc.Events[7].AtMs)

	res, err := Replay(doc, braille.DefaultTable(), DefaultReplayOptions())
	require.NoError(t, err)
	assert.Equal(t, "b \n", res.Text)
}
