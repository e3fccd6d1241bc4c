package session

import (
	"github.com/tunelab/intone/internal/pitch"
)

// CaptureBuffer is the append-only store of stabilized samples produced
// during one take. Timestamps are monotonically non-decreasing; a sample
// arriving out of order is clamped forward rather than rejected, since a
// late UI-thread handoff must not poke a hole in the take.
//
// Window returns only the rolling display tail; Snapshot retains the full
// take for post-take analysis. The owning controller is the only writer.
type CaptureBuffer struct {
	samples   []pitch.Sample
	windowSec float64
	frozen    bool
}

// NewCaptureBuffer creates a buffer with the given display window length.
func NewCaptureBuffer(windowSec float64) *CaptureBuffer {
	return &CaptureBuffer{windowSec: windowSec}
}

// Append adds one sample. No-op after Freeze.
func (b *CaptureBuffer) Append(s pitch.Sample) {
	if b.frozen {
		return
	}
	if n := len(b.samples); n > 0 && s.TimeSec < b.samples[n-1].TimeSec {
		s.TimeSec = b.samples[n-1].TimeSec
	}
	b.samples = append(b.samples, s)
}

// Len returns the number of captured samples.
func (b *CaptureBuffer) Len() int {
	return len(b.samples)
}

// Window returns the samples inside the rolling display window ending at
// nowSec. The returned slice aliases the buffer; callers must not mutate it.
func (b *CaptureBuffer) Window(nowSec float64) []pitch.Sample {
	cutoff := nowSec - b.windowSec
	lo := 0
	for lo < len(b.samples) && b.samples[lo].TimeSec < cutoff {
		lo++
	}
	return b.samples[lo:]
}

// Freeze marks the buffer immutable and returns the full take as an owned
// snapshot, safe to hand to a scoring worker.
func (b *CaptureBuffer) Freeze() []pitch.Sample {
	b.frozen = true
	out := make([]pitch.Sample, len(b.samples))
	copy(out, b.samples)
	return out
}
