package ime

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swipebraille/internal/braille"
	"swipebraille/internal/keyboard"
	"swipebraille/internal/trace"
)

// newTestKeyboard returns a keyboard on a virtual clock writing into a Buffer.
func newTestKeyboard(t *testing.T) (*MobileKeyboard, *keyboard.Buffer, *keyboard.VirtualScheduler) {
	t.Helper()
	buf := keyboard.NewBuffer("")
	m := NewMobileKeyboard(buf)
	sched := keyboard.NewVirtualScheduler(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	m.mu.Lock()
	m.sched = sched
	require.NoError(t, m.rebuild())
	m.mu.Unlock()

	t.Cleanup(m.Close)
	return m, buf, sched
}

// Zone centres for the default 45pt/15pt layout.
var centre = map[int][2]float64{
	1: {22.5, 22.5}, 2: {82.5, 22.5},
	3: {22.5, 82.5}, 4: {82.5, 82.5},
	5: {22.5, 142.5}, 6: {82.5, 142.5},
	7: {22.5, 202.5}, 8: {82.5, 202.5},
}

func chord(m *MobileKeyboard, zones ...int) string {
	for i, z := range zones {
		p := centre[z]
		if i == 0 {
			m.TouchBegan(p[0], p[1])
		} else {
			m.TouchMoved(p[0], p[1])
		}
	}
	return m.TouchEnded()
}

func TestMobileChordTyping(t *testing.T) {
	m, buf, _ := newTestKeyboard(t)

	assert.Equal(t, "h", chord(m, 3, 5, 6))
	m.SpaceTapped()
	assert.Equal(t, "i", chord(m, 4, 5))
	m.NewlineTapped()
	m.BlankCellTapped()

	assert.Equal(t, "h i\n⠀", buf.String())
}

func TestMobileUnmappedChordReturnsEmpty(t *testing.T) {
	m, buf, _ := newTestKeyboard(t)

	assert.Equal(t, "", chord(m, 1, 2, 3, 4, 5, 6))
	assert.Equal(t, "", buf.String())
}

func TestMobileFeedback(t *testing.T) {
	m, _, _ := newTestKeyboard(t)

	assert.Equal(t, "000000", m.ActivePattern())
	assert.Equal(t, "[]", m.HighlightedZonesJSON())

	m.TouchBegan(22.5, 22.5) // zone 1, dot 3
	m.TouchMoved(82.5, 82.5) // zone 4, dot 4

	assert.True(t, m.IsTracking())
	assert.Equal(t, "001100", m.ActivePattern())
	assert.Equal(t, "⠌", m.ActiveCell())
	assert.True(t, m.IsZoneHighlighted(7))
	assert.False(t, m.IsZoneHighlighted(3))
	assert.False(t, m.IsZoneHighlighted(12))
	assert.JSONEq(t, "[1,4,7]", m.HighlightedZonesJSON())

	var trail []map[string]float64
	require.NoError(t, json.Unmarshal([]byte(m.TrailJSON()), &trail))
	require.Len(t, trail, 2)
	assert.Equal(t, 82.5, trail[1]["x"])

	m.TouchCancelled()
	assert.False(t, m.IsTracking())
	assert.Equal(t, "000000", m.ActivePattern())
}

func TestMobileDeleteRepeat(t *testing.T) {
	m, buf, sched := newTestKeyboard(t)
	for i := 0; i < 10; i++ {
		chord(m, 3)
	}

	m.DeletePressed()
	assert.Equal(t, 9, buf.Len())
	sched.Advance(499 * time.Millisecond)
	assert.Equal(t, 9, buf.Len())
	sched.Advance(201 * time.Millisecond)
	assert.Equal(t, 6, buf.Len())
	m.DeleteReleased()
	sched.Advance(time.Second)
	assert.Equal(t, 6, buf.Len())
}

func TestMobileSetLayout(t *testing.T) {
	m, _, _ := newTestKeyboard(t)

	require.NoError(t, m.SetLayout(100, 0, 20, 5))
	m.TouchBegan(110, 10) // zone 1 of the moved grid
	assert.Equal(t, "001000", m.ActivePattern())
	m.TouchCancelled()

	assert.Error(t, m.SetLayout(0, 0, 0, 5))
	// previous geometry stays in effect
	m.TouchBegan(110, 10)
	assert.Equal(t, "001000", m.ActivePattern())

	var zones []map[string]any
	require.NoError(t, json.Unmarshal([]byte(m.LayoutJSON()), &zones))
	assert.Len(t, zones, 8)
}

func TestMobileRepeatTimings(t *testing.T) {
	m, buf, sched := newTestKeyboard(t)
	assert.Error(t, m.SetRepeatTimings(0, 100))
	require.NoError(t, m.SetRepeatTimings(200, 50))
	for i := 0; i < 10; i++ {
		chord(m, 3)
	}

	m.DeletePressed()
	sched.Advance(300 * time.Millisecond)
	m.DeleteReleased()
	// 0ms, 200ms, 250ms, 300ms
	assert.Equal(t, 6, buf.Len())
}

func TestMobileControlRect(t *testing.T) {
	m, _, _ := newTestKeyboard(t)
	require.NoError(t, m.SetControlRect(ControlDelete, 0, 0, 45, 45))
	assert.Error(t, m.SetControlRect(9, 0, 0, 1, 1))

	m.TouchBegan(22.5, 22.5)
	assert.False(t, m.IsTracking())
}

func TestMobileLoadTables(t *testing.T) {
	m, buf, _ := newTestKeyboard(t)
	assert.Equal(t, 34, m.TableSize())

	n, err := m.LoadTableCSV("char,pattern\nx,100000\nbad\n")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "x", chord(m, 3))

	path := filepath.Join(t.TempDir(), "t.csv")
	require.NoError(t, os.WriteFile(path, []byte("char,pattern\ny,100000\nz,110000\n"), 0600))
	assert.Equal(t, 2, m.LoadTableFile(path))
	assert.Equal(t, "y", chord(m, 3))

	assert.Equal(t, 0, m.LoadTableFile(filepath.Join(t.TempDir(), "missing.csv")))
	assert.Equal(t, "", chord(m, 3))
	assert.Equal(t, "xy", buf.String())
}

func TestMobileSuspend(t *testing.T) {
	m, buf, sched := newTestKeyboard(t)
	chord(m, 3)
	chord(m, 3)

	m.DeletePressed()
	m.TouchBegan(22.5, 82.5)
	m.Suspend()
	sched.Advance(time.Second)

	assert.Equal(t, "a", buf.String())
	assert.False(t, m.IsTracking())
}

func TestMobileRecording(t *testing.T) {
	m, buf, sched := newTestKeyboard(t)
	assert.Equal(t, "", m.StopRecording())

	m.StartRecording("session")
	chord(m, 3, 5) // b
	sched.Advance(100 * time.Millisecond)
	m.SpaceTapped()
	sched.Advance(100 * time.Millisecond)
	m.DeletePressed()
	sched.Advance(600 * time.Millisecond)
	m.DeleteReleased()
	m.NewlineTapped()

	out := m.StopRecording()
	require.NotEmpty(t, out)
	assert.Equal(t, "\n", buf.String())

	doc, err := trace.Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, "session", doc.Name)
	assert.Equal(t, int64(800), doc.Duration())

	res, err := trace.Replay(doc, braille.DefaultTable(), trace.DefaultReplayOptions())
	require.NoError(t, err)
	assert.Equal(t, buf.String(), res.Text)
}

func TestMobileRecordingKeepsGeometryAndTimings(t *testing.T) {
	m, buf, sched := newTestKeyboard(t)
	require.NoError(t, m.SetLayout(200, 300, 45, 15))
	require.NoError(t, m.SetRepeatTimings(200, 50))
	for i := 0; i < 10; i++ {
		m.TouchBegan(222.5, 382.5) // zone 3 of the moved grid
		m.TouchEnded()
	}

	m.StartRecording("moved")
	require.NoError(t, m.SetControlRect(ControlSpace, 0, 0, 100, 100))
	m.TouchBegan(50, 50) // on the space control, ignored
	m.TouchEnded()
	m.TouchBegan(222.5, 382.5)
	m.TouchMoved(222.5, 442.5) // zones 3 and 5
	assert.Equal(t, "b", m.TouchEnded())
	m.DeletePressed()
	sched.Advance(300 * time.Millisecond)
	m.DeleteReleased()
	out := m.StopRecording()

	// 0ms, 200ms, 250ms, 300ms
	assert.Equal(t, "aaaaaaa", buf.String())

	doc, err := trace.Parse([]byte(out))
	require.NoError(t, err)
	require.NotNil(t, doc.Layout)
	assert.Equal(t, 200.0, doc.Layout.OriginX)
	assert.Equal(t, 300.0, doc.Layout.OriginY)
	require.NotNil(t, doc.Repeat)
	assert.Equal(t, int64(200), doc.Repeat.InitialDelayMs)
	assert.Equal(t, int64(50), doc.Repeat.IntervalMs)
	assert.Contains(t, doc.Controls, "space")

	doc.InitialText = "aaaaaaaaaa"
	res, err := trace.Replay(doc, braille.DefaultTable(), trace.DefaultReplayOptions())
	require.NoError(t, err)
	assert.Equal(t, buf.String(), res.Text)
	assert.Equal(t, 2, res.Chords)
}
