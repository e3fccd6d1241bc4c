package pitch

import (
	"math"
	"sort"
)

// StabilizerConfig holds the tunables for Stabilizer. All durations are in
// seconds to match Reading timestamps.
type StabilizerConfig struct {
	// ConfidenceThreshold gates raw readings; below it a frame is invalid.
	ConfidenceThreshold float64

	// GraceWindowSec is how long an invalid reading keeps returning the
	// previous stabilized value before the stabilizer gives up and goes
	// unvoiced.
	GraceWindowSec float64

	// MedianWindow is the sliding median size (odd).
	MedianWindow int

	// SmoothingAlpha is the one-pole smoothing coefficient applied to the
	// median output and to the cents offset.
	SmoothingAlpha float64

	// MinStableFrames / MinStableDurationSec: a candidate note must persist
	// for both before replacing the stable note.
	MinStableFrames      int
	MinStableDurationSec float64

	// Octave jumps (>= 12 semitones) are the classic autocorrelation failure
	// mode and get a higher bar on all three axes.
	OctaveConfidenceMult    float64
	OctaveStableFrames      int
	OctaveStableDurationSec float64
}

// DefaultStabilizerConfig returns the tuning used by the app.
func DefaultStabilizerConfig() StabilizerConfig {
	return StabilizerConfig{
		ConfidenceThreshold:     0.6,
		GraceWindowSec:          0.25,
		MedianWindow:            5,
		SmoothingAlpha:          0.28,
		MinStableFrames:         1,
		MinStableDurationSec:    0.2,
		OctaveConfidenceMult:    1.5,
		OctaveStableFrames:      4,
		OctaveStableDurationSec: 0.4,
	}
}

// Stabilizer converts noisy frequency readings into a trustworthy note/cents
// signal: confidence gate, sliding median, exponential smoothing, MIDI
// quantization with hysteresis, and octave-jump protection. It is stateful
// across calls within one run; Reset clears everything at run boundaries.
//
// Not safe for concurrent use; one goroutine owns a Stabilizer.
type Stabilizer struct {
	cfg StabilizerConfig

	window []float64
	filled int
	head   int

	ema       float64
	emaSeeded bool

	stable    int
	hasStable bool

	pending       int
	pendingFrames int
	pendingSince  float64
	hasPending    bool

	centsEMA    float64
	centsSeeded bool

	lastValid     Sample
	lastValidTime float64
	hasLast       bool
}

// NewStabilizer creates a stabilizer with the given config. An even
// MedianWindow is bumped to the next odd size.
func NewStabilizer(cfg StabilizerConfig) *Stabilizer {
	if cfg.MedianWindow < 1 {
		cfg.MedianWindow = 1
	}
	if cfg.MedianWindow%2 == 0 {
		cfg.MedianWindow++
	}
	return &Stabilizer{
		cfg:    cfg,
		window: make([]float64, cfg.MedianWindow),
	}
}

// Reset clears all history. Call at run boundaries.
func (s *Stabilizer) Reset() {
	s.filled = 0
	s.head = 0
	s.emaSeeded = false
	s.hasStable = false
	s.hasPending = false
	s.centsSeeded = false
	s.hasLast = false
}

// Update consumes one raw reading and returns the stabilized sample for it.
func (s *Stabilizer) Update(r Reading) Sample {
	if !s.isValid(r) {
		if s.hasLast && r.TimeSec-s.lastValidTime <= s.cfg.GraceWindowSec {
			// Brief dropout: hold the previous value to prevent flicker.
			held := s.lastValid
			held.TimeSec = r.TimeSec
			return held
		}
		s.Reset()
		return Sample{TimeSec: r.TimeSec, Confidence: r.Confidence, RMS: r.RMS}
	}

	med := s.pushMedian(r.Hz)

	if !s.emaSeeded {
		s.ema = med
		s.emaSeeded = true
	} else {
		s.ema += s.cfg.SmoothingAlpha * (med - s.ema)
	}

	contMidi := HzToMidi(s.ema)
	if math.IsNaN(contMidi) {
		// Smoothed frequency collapsed to something unusable.
		s.Reset()
		return Sample{TimeSec: r.TimeSec, Confidence: r.Confidence, RMS: r.RMS}
	}
	candidate := int(math.Round(contMidi))

	s.updateStable(candidate, r)

	cents := (contMidi - float64(s.stable)) * 100
	if !s.centsSeeded {
		s.centsEMA = cents
		s.centsSeeded = true
	} else {
		s.centsEMA += s.cfg.SmoothingAlpha * (cents - s.centsEMA)
	}
	clamped := math.Max(-50, math.Min(50, s.centsEMA))

	out := Sample{
		TimeSec:    r.TimeSec,
		Voiced:     true,
		Midi:       s.stable,
		CentsOff:   clamped,
		Confidence: r.Confidence,
		Hz:         r.Hz,
		RMS:        r.RMS,
	}
	s.lastValid = out
	s.lastValidTime = r.TimeSec
	s.hasLast = true
	return out
}

func (s *Stabilizer) isValid(r Reading) bool {
	if r.Confidence < s.cfg.ConfidenceThreshold {
		return false
	}
	if r.Hz <= 0 || math.IsNaN(r.Hz) || math.IsInf(r.Hz, 0) {
		return false
	}
	return true
}

// updateStable runs the hysteresis gate. A differing candidate must persist
// for a minimum frame count and wall-clock duration before it is accepted;
// apparent octave jumps additionally need higher per-frame confidence and a
// longer run.
func (s *Stabilizer) updateStable(candidate int, r Reading) {
	if !s.hasStable {
		s.stable = candidate
		s.hasStable = true
		s.hasPending = false
		return
	}
	if candidate == s.stable {
		s.hasPending = false
		return
	}

	if !s.hasPending || s.pending != candidate {
		s.pending = candidate
		s.pendingFrames = 0
		s.pendingSince = r.TimeSec
		s.hasPending = true
	}

	octave := abs(candidate-s.stable) >= 12
	needFrames := s.cfg.MinStableFrames
	needDur := s.cfg.MinStableDurationSec
	if octave {
		needFrames = s.cfg.OctaveStableFrames
		needDur = s.cfg.OctaveStableDurationSec
		if r.Confidence < s.cfg.ConfidenceThreshold*s.cfg.OctaveConfidenceMult {
			// Frame not confident enough to count toward an octave jump.
			s.pendingFrames = 0
			s.pendingSince = r.TimeSec
			return
		}
	}

	s.pendingFrames++
	if s.pendingFrames >= needFrames && r.TimeSec-s.pendingSince >= needDur {
		s.stable = s.pending
		s.hasPending = false
		s.centsSeeded = false // cents are relative to the new note
	}
}

func (s *Stabilizer) pushMedian(hz float64) float64 {
	s.window[s.head] = hz
	s.head = (s.head + 1) % len(s.window)
	if s.filled < len(s.window) {
		s.filled++
	}

	tmp := make([]float64, s.filled)
	if s.filled < len(s.window) {
		copy(tmp, s.window[:s.filled])
	} else {
		copy(tmp, s.window)
	}
	sort.Float64s(tmp)
	return tmp[len(tmp)/2]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
