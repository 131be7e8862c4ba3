package keyboard

import (
	"fmt"
	"sync"
	"time"
)

// RepeatState is the phase of the delete auto-repeat machine.
type RepeatState int

const (
	// RepeatIdle means the delete control is not held.
	RepeatIdle RepeatState = iota
	// RepeatArmed means the immediate delete was issued and the initial
	// delay is running.
	RepeatArmed
	// RepeatRepeating means deletes are issued every interval.
	RepeatRepeating
)

func (s RepeatState) String() string {
	switch s {
	case RepeatArmed:
		return "armed"
	case RepeatRepeating:
		return "repeating"
	default:
		return "idle"
	}
}

// RepeatConfig holds the auto-repeat timings.
type RepeatConfig struct {
	// InitialDelay is the hold time before the second delete.
	InitialDelay time.Duration
	// Interval is the time between deletes once repeating.
	Interval time.Duration
}

// DefaultRepeatConfig returns a 500ms initial delay and a 100ms interval.
func DefaultRepeatConfig() RepeatConfig {
	return RepeatConfig{
		InitialDelay: 500 * time.Millisecond,
		Interval:     100 * time.Millisecond,
	}
}

// Validate rejects non-positive timings.
func (c RepeatConfig) Validate() error {
	if c.InitialDelay <= 0 || c.Interval <= 0 {
		return fmt.Errorf("repeat timings must be positive, got %v/%v", c.InitialDelay, c.Interval)
	}
	return nil
}

// DeleteRepeater drives press-and-hold deletion.
//
//	idle --Press--> armed --InitialDelay--> repeating --Interval--> repeating
//	  ^               |                         |
//	  +----Release----+-------------------------+
//
// Press issues one delete immediately. When the initial delay elapses a
// second delete is issued and the machine repeats every Interval until
// Release. Every transition back to idle stops the pending timer and bumps
// a generation counter, so a timer that fires after Release does nothing.
//
// fire is called with the repeater's lock held and must not call back into
// the repeater.
type DeleteRepeater struct {
	mu    sync.Mutex
	cfg   RepeatConfig
	sched Scheduler
	fire  func()

	state RepeatState
	timer Timer
	gen   uint64
}

// NewDeleteRepeater returns an idle repeater that calls fire for every delete.
func NewDeleteRepeater(cfg RepeatConfig, sched Scheduler, fire func()) *DeleteRepeater {
	if sched == nil {
		sched = SystemScheduler{}
	}
	return &DeleteRepeater{cfg: cfg, sched: sched, fire: fire}
}

// Press starts a hold and reports whether it did. A press while already
// held is ignored.
func (r *DeleteRepeater) Press() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RepeatIdle {
		return false
	}
	r.fire()
	r.state = RepeatArmed
	r.schedule(r.cfg.InitialDelay)
	return true
}

// Release ends the hold and cancels any pending repeat.
func (r *DeleteRepeater) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stop()
}

// State returns the current phase.
func (r *DeleteRepeater) State() RepeatState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *DeleteRepeater) schedule(d time.Duration) {
	gen := r.gen
	r.timer = r.sched.AfterFunc(d, func() { r.tick(gen) })
}

func (r *DeleteRepeater) tick(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.gen || r.state == RepeatIdle {
		return
	}
	r.state = RepeatRepeating
	r.fire()
	r.schedule(r.cfg.Interval)
}

func (r *DeleteRepeater) stop() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
	r.state = RepeatIdle
}
