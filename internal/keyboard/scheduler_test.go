package keyboard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVirtualSchedulerOrder(t *testing.T) {
	s := NewVirtualScheduler(epoch)
	var got []string

	s.AfterFunc(30*time.Millisecond, func() { got = append(got, "c") })
	s.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	s.AfterFunc(10*time.Millisecond, func() { got = append(got, "b") })
	assert.Equal(t, 3, s.Pending())

	s.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, epoch.Add(20*time.Millisecond), s.Now())

	s.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Zero(t, s.Pending())
}

func TestVirtualSchedulerCallbackSeesDueTime(t *testing.T) {
	s := NewVirtualScheduler(epoch)
	var at []time.Time

	var tick func()
	tick = func() {
		at = append(at, s.Now())
		if len(at) < 3 {
			s.AfterFunc(10*time.Millisecond, tick)
		}
	}
	s.AfterFunc(10*time.Millisecond, tick)
	s.Advance(time.Second)

	require.Len(t, at, 3)
	for i, ts := range at {
		assert.Equal(t, epoch.Add(time.Duration(i+1)*10*time.Millisecond), ts)
	}
}

func TestVirtualTimerStop(t *testing.T) {
	s := NewVirtualScheduler(epoch)
	fired := false
	timer := s.AfterFunc(time.Millisecond, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	s.Advance(time.Second)
	assert.False(t, fired)

	timer = s.AfterFunc(time.Millisecond, func() {})
	s.Advance(time.Second)
	assert.False(t, timer.Stop(), "already fired")
}

func TestVirtualSchedulerBackwardsNoop(t *testing.T) {
	s := NewVirtualScheduler(epoch)
	s.AdvanceTo(epoch.Add(-time.Hour))
	assert.Equal(t, epoch, s.Now())
}

func TestSystemSchedulerFires(t *testing.T) {
	done := make(chan struct{})
	SystemScheduler{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestDeleteRepeaterStates(t *testing.T) {
	s := NewVirtualScheduler(epoch)
	n := 0
	r := NewDeleteRepeater(DefaultRepeatConfig(), s, func() { n++ })

	assert.Equal(t, RepeatIdle, r.State())
	assert.Equal(t, "idle", r.State().String())

	r.Press()
	assert.Equal(t, "armed", r.State().String())
	s.Advance(500 * time.Millisecond)
	assert.Equal(t, "repeating", r.State().String())
	r.Release()
	r.Release()

	assert.Equal(t, 2, n)
	assert.Equal(t, RepeatIdle, r.State())
}

func TestBufferDeletesWholeRunes(t *testing.T) {
	b := NewBuffer("ab")
	b.InsertText("⠁é")
	assert.Equal(t, 4, b.Len())

	b.DeleteBackward()
	assert.Equal(t, "ab⠁", b.String())
	b.DeleteBackward()
	b.DeleteBackward()
	b.DeleteBackward()
	b.DeleteBackward()
	assert.Equal(t, "", b.String())
	assert.Zero(t, b.Len())
}

func TestCommandApply(t *testing.T) {
	b := NewBuffer("x")

	CharacterCommand("y").Apply(b)
	ControlCommand(InsertSpace).Apply(b)
	ControlCommand(InsertBlankCell).Apply(b)
	ControlCommand(InsertNewline).Apply(b)
	assert.Equal(t, "xy ⠀\n", b.String())

	ControlCommand(DeleteBackward).Apply(b)
	assert.Equal(t, "xy ⠀", b.String())

	// empty text inserts nothing
	Command{Kind: InsertCharacter}.Apply(b)
	assert.Equal(t, 4, b.Len())
}

func TestCommandJSON(t *testing.T) {
	data, err := json.Marshal(ControlCommand(InsertSpace))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"insert_space","text":" "}`, string(data))

	var c Command
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"delete_backward"}`), &c))
	assert.Equal(t, DeleteBackward, c.Kind)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"paste"}`), &c))
	assert.Equal(t, "CommandKind(42)", CommandKind(42).String())
}
