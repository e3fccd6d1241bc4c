// Package session owns the lifecycle of one take: the authoritative clock,
// the capture buffer, and the controller state machine that drives
// recording, playback, and scoring.
package session

import (
	"sync"
	"time"
)

// PositionProvider reports the current playback position of the reference
// audio in seconds. ok is false until audio has actually started flowing.
type PositionProvider func() (posSec float64, ok bool)

// Clock is the authoritative "now" for a take. It free-runs from a
// monotonic wall-clock source until the reference audio reports a strictly
// positive position, then derives time from that position minus a fixed
// output-latency compensation. The switch never moves time backward.
//
// NowSeconds is safe to call from a rendering goroutine concurrently with
// configuration calls.
type Clock struct {
	mu sync.Mutex

	now func() time.Time // injected for tests

	running     bool
	startOffset float64
	startedAt   time.Time
	freeze      bool

	positionFn  PositionProvider
	latencySec  float64
	audioDriven bool

	lastReturned float64
}

// NewClock creates a stopped clock.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// SetLatencyCompensation sets the fixed audio-output buffering delay that is
// subtracted from reported playback positions.
func (c *Clock) SetLatencyCompensation(d time.Duration) {
	c.mu.Lock()
	c.latencySec = d.Seconds()
	c.mu.Unlock()
}

// SetPositionProvider wires the reference player's position callback.
func (c *Clock) SetPositionProvider(fn PositionProvider) {
	c.mu.Lock()
	c.positionFn = fn
	c.mu.Unlock()
}

// Start begins the clock at offsetSec. With freezeUntilPositionAdvances set,
// NowSeconds holds at offsetSec until the first positive playback position,
// so the visual timeline cannot race ahead of audio that has not audibly
// started.
func (c *Clock) Start(offsetSec float64, freezeUntilPositionAdvances bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.startOffset = offsetSec
	c.startedAt = c.now()
	c.freeze = freezeUntilPositionAdvances
	c.audioDriven = false
	c.lastReturned = offsetSec
}

// Pause stops the clock; NowSeconds keeps returning the last value.
func (c *Clock) Pause() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// NowSeconds returns the current take time.
func (c *Clock) NowSeconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return c.lastReturned
	}

	if c.positionFn != nil {
		if pos, ok := c.positionFn(); ok && pos > 0 {
			c.audioDriven = true
			t := pos - c.latencySec
			// Never jump backward at the wall-clock -> audio switch.
			if t < c.lastReturned {
				t = c.lastReturned
			}
			c.lastReturned = t
			return t
		}
	}

	if c.audioDriven {
		// Position went away mid-run (e.g. playback finished); hold.
		return c.lastReturned
	}

	if c.freeze {
		return c.startOffset
	}

	t := c.startOffset + c.now().Sub(c.startedAt).Seconds()
	if t < c.lastReturned {
		t = c.lastReturned
	}
	c.lastReturned = t
	return t
}
