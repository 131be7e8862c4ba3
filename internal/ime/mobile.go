package ime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"swipebraille/internal/braille"
	"swipebraille/internal/gesture"
	"swipebraille/internal/keyboard"
	"swipebraille/internal/logging"
	"swipebraille/internal/trace"
)

// Build commands:
//   gomobile bind -target=android -o swipebraille.aar ./internal/ime
//   gomobile bind -target=ios -o SwipeBraille.xcframework ./internal/ime

// TextDocumentProxy is implemented by the host to edit the focused field.
type TextDocumentProxy interface {
	InsertText(text string)
	DeleteBackward()
}

// Control identifiers accepted by SetControlRect.
const (
	ControlDelete    = int(keyboard.ControlDelete)
	ControlNewline   = int(keyboard.ControlNewline)
	ControlSpace     = int(keyboard.ControlSpace)
	ControlBlankCell = int(keyboard.ControlBlankCell)
)

// MobileKeyboard wraps keyboard.Keyboard for gomobile export.
//
// Geometry, timings, and the mapping table can be changed between gestures;
// each change rebuilds the inner keyboard, abandoning any gesture or delete
// hold in progress.
type MobileKeyboard struct {
	mu       sync.Mutex
	proxy    TextDocumentProxy
	table    *braille.Table
	layout   gesture.LayoutConfig
	repeat   keyboard.RepeatConfig
	controls map[keyboard.Control]gesture.Rect
	sched    keyboard.Scheduler
	logger   *slog.Logger

	kb  *keyboard.Keyboard
	rec *trace.Recorder
}

// NewMobileKeyboard creates a keyboard using the built-in table and the
// default layout. This is the main entry point for Android/iOS.
func NewMobileKeyboard(proxy TextDocumentProxy) *MobileKeyboard {
	m := &MobileKeyboard{
		proxy:    proxy,
		table:    braille.DefaultTable(),
		layout:   gesture.DefaultLayoutConfig(),
		repeat:   keyboard.DefaultRepeatConfig(),
		controls: make(map[keyboard.Control]gesture.Rect),
		sched:    keyboard.SystemScheduler{},
		logger:   logging.Default().WithComponent("ime").Logger,
	}
	m.install(gesture.DefaultLayout())
	return m
}

// rebuild replaces the inner keyboard. Callers hold m.mu.
func (m *MobileKeyboard) rebuild() error {
	layout, err := gesture.NewLayout(m.layout)
	if err != nil {
		return err
	}
	m.install(layout)
	return nil
}

func (m *MobileKeyboard) install(layout *gesture.Layout) {
	opts := []keyboard.Option{
		keyboard.WithScheduler(m.sched),
		keyboard.WithRepeat(m.repeat),
		keyboard.WithLogger(m.logger),
	}
	for c, r := range m.controls {
		opts = append(opts, keyboard.WithControlRect(c, r))
	}

	if m.kb != nil {
		m.kb.Close()
	}
	m.kb = keyboard.New(m.table, layout, m.proxy, opts...)
}

func (m *MobileKeyboard) current() *keyboard.Keyboard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kb
}

// input returns the keyboard, the active recorder if any, and the current
// time on the keyboard's clock.
func (m *MobileKeyboard) input() (*keyboard.Keyboard, *trace.Recorder, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if c, ok := m.sched.(interface{ Now() time.Time }); ok {
		now = c.Now()
	}
	return m.kb, m.rec, now
}

// StartRecording begins capturing input as a replayable trace, replacing
// any recording in progress. The trace carries the current layout, repeat
// timings and control areas so that it replays on the same geometry.
func (m *MobileKeyboard) StartRecording(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := trace.NewRecorder(name)
	rec.SetLayout(m.layout)
	rec.SetRepeat(m.repeat)
	for c, r := range m.controls {
		rec.SetControl(c, r)
	}
	m.rec = rec
}

// StopRecording ends the recording and returns it as trace JSON, or "" if
// nothing was being recorded.
func (m *MobileKeyboard) StopRecording() string {
	m.mu.Lock()
	rec := m.rec
	m.rec = nil
	m.mu.Unlock()

	if rec == nil {
		return ""
	}
	var b strings.Builder
	if _, err := rec.WriteTo(&b); err != nil {
		m.logger.Error("encode recording", "error", err)
		return ""
	}
	return b.String()
}

// SetLayout places the zone grid. Sizes are in the host's points.
func (m *MobileKeyboard) SetLayout(originX, originY, dotSize, spacing float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.layout
	m.layout = gesture.LayoutConfig{OriginX: originX, OriginY: originY, DotSize: dotSize, Spacing: spacing}
	if err := m.rebuild(); err != nil {
		m.layout = prev
		return err
	}
	if m.rec != nil {
		m.rec.SetLayout(m.layout)
	}
	return nil
}

// SetRepeatTimings changes the delete auto-repeat timings in milliseconds.
func (m *MobileKeyboard) SetRepeatTimings(initialDelayMs, intervalMs int64) error {
	cfg := keyboard.RepeatConfig{
		InitialDelay: time.Duration(initialDelayMs) * time.Millisecond,
		Interval:     time.Duration(intervalMs) * time.Millisecond,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeat = cfg
	if m.rec != nil {
		m.rec.SetRepeat(cfg)
	}
	return m.rebuild()
}

// SetControlRect registers the on-screen area of a control button so that
// gestures starting on it are not read as chords.
func (m *MobileKeyboard) SetControlRect(control int, minX, minY, maxX, maxY float64) error {
	c := keyboard.Control(control)
	if c < keyboard.ControlDelete || c > keyboard.ControlBlankCell {
		return fmt.Errorf("unknown control %d", control)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.controls[c] = gesture.Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
	if m.rec != nil {
		m.rec.SetControl(c, m.controls[c])
	}
	return m.rebuild()
}

// LoadTableFile switches to the CSV table at path. A missing or unreadable
// file leaves an empty table in place, so every chord resolves to nothing.
// It returns the number of loaded entries.
func (m *MobileKeyboard) LoadTableFile(path string) int {
	t := braille.LoadFile(path, m.logger)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = t
	_ = m.rebuild()
	return t.Len()
}

// LoadTableCSV switches to a table given as CSV text, for hosts that ship
// tables as bundled resources. It returns the number of loaded entries.
func (m *MobileKeyboard) LoadTableCSV(csv string) (int, error) {
	t, report, err := braille.Load(strings.NewReader(csv))
	if err != nil {
		return 0, err
	}
	for _, issue := range report.Skipped {
		m.logger.Debug("mapping row skipped", "line", issue.Line, "reason", issue.Reason.String())
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = t
	_ = m.rebuild()
	return t.Len(), nil
}

// TableSize returns the number of entries in the active table.
func (m *MobileKeyboard) TableSize() int {
	return m.current().Table().Len()
}

// TouchBegan starts a chord gesture at (x, y).
func (m *MobileKeyboard) TouchBegan(x, y float64) {
	m.touch(keyboard.PhaseBegan, x, y)
}

// TouchMoved extends the chord gesture to (x, y).
func (m *MobileKeyboard) TouchMoved(x, y float64) {
	m.touch(keyboard.PhaseMoved, x, y)
}

// TouchEnded finishes the chord. It returns the inserted text, or "" when
// the chord touched no zone or matched no table entry.
func (m *MobileKeyboard) TouchEnded() string {
	cmd, ok := m.touch(keyboard.PhaseEnded, 0, 0)
	if !ok {
		return ""
	}
	return cmd.Text
}

// TouchCancelled abandons the chord without inserting anything.
func (m *MobileKeyboard) TouchCancelled() {
	m.touch(keyboard.PhaseCancelled, 0, 0)
}

func (m *MobileKeyboard) touch(phase keyboard.Phase, x, y float64) (keyboard.Command, bool) {
	kb, rec, now := m.input()
	ev := keyboard.TouchEvent{Phase: phase, Point: gesture.Point{X: x, Y: y}, At: now}
	if rec != nil {
		rec.Touch(ev)
	}
	return kb.HandleTouch(ev)
}

// DeletePressed issues one delete and starts auto-repeat.
func (m *MobileKeyboard) DeletePressed() {
	kb, rec, now := m.input()
	if rec != nil {
		rec.Press(now)
	}
	kb.PressDelete()
}

// DeleteReleased stops auto-repeat.
func (m *MobileKeyboard) DeleteReleased() {
	kb, rec, now := m.input()
	if rec != nil {
		rec.Release(now)
	}
	kb.ReleaseDelete()
}

// NewlineTapped inserts a line break.
func (m *MobileKeyboard) NewlineTapped() {
	m.tap(keyboard.ControlNewline)
}

// SpaceTapped inserts a space.
func (m *MobileKeyboard) SpaceTapped() {
	m.tap(keyboard.ControlSpace)
}

// BlankCellTapped inserts the empty Braille cell U+2800.
func (m *MobileKeyboard) BlankCellTapped() {
	m.tap(keyboard.ControlBlankCell)
}

func (m *MobileKeyboard) tap(c keyboard.Control) {
	kb, rec, now := m.input()
	if rec != nil {
		rec.Tap(now, c)
	}
	kb.Tap(c)
}

// ActivePattern returns the six-character pattern of the gesture in
// progress, "000000" when idle.
func (m *MobileKeyboard) ActivePattern() string {
	return string(m.current().Active().Pattern())
}

// ActiveCell returns the Braille glyph of the gesture in progress.
func (m *MobileKeyboard) ActiveCell() string {
	return string(m.current().Active().Cell())
}

// IsZoneHighlighted reports whether zone (1-8) should be drawn selected.
func (m *MobileKeyboard) IsZoneHighlighted(zone int) bool {
	z := gesture.Zone(zone)
	if !z.Valid() {
		return false
	}
	return m.current().Active().Has(z.Dot())
}

// HighlightedZonesJSON returns the selected zones as a JSON array.
func (m *MobileKeyboard) HighlightedZonesJSON() string {
	zones := m.current().HighlightedZones()
	if zones == nil {
		zones = []gesture.Zone{}
	}
	return encodeJSON(zones, "[]")
}

// TrailJSON returns the gesture's sample points as a JSON array of
// {"x","y"} objects.
func (m *MobileKeyboard) TrailJSON() string {
	return encodeJSON(m.current().Trail(), "[]")
}

// LayoutJSON returns every zone with its dot and rectangle.
func (m *MobileKeyboard) LayoutJSON() string {
	m.mu.Lock()
	cfg := m.layout
	m.mu.Unlock()

	layout, err := gesture.NewLayout(cfg)
	if err != nil {
		return "[]"
	}
	return encodeJSON(layout.Zones(), "[]")
}

// IsTracking reports whether a chord gesture is in progress.
func (m *MobileKeyboard) IsTracking() bool {
	return m.current().Tracking()
}

// Suspend abandons any gesture and stops auto-repeat. Call it when the
// keyboard view disappears.
func (m *MobileKeyboard) Suspend() {
	m.current().Suspend()
}

// Close releases the keyboard. Later events are ignored.
func (m *MobileKeyboard) Close() {
	m.current().Close()
}

func encodeJSON(v any, fallback string) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fallback
	}
	return string(data)
}
