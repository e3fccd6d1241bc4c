package pitch

import (
	"math"
	"strconv"
)

// Reading is one raw frequency estimate from the detector, produced at the
// device's native cadence. Hz <= 0 means the frame carried no usable pitch.
type Reading struct {
	TimeSec    float64
	Hz         float64
	Confidence float64 // 0..1
	RMS        float64
}

// Sample is a stabilized pitch estimate. Midi and CentsOff are only
// meaningful when Voiced is true; Note() makes that explicit for callers.
type Sample struct {
	TimeSec    float64
	Voiced     bool
	Midi       int
	CentsOff   float64
	Confidence float64
	Hz         float64
	RMS        float64
}

// Note returns the stabilized note and cents offset, or ok=false for an
// unvoiced sample.
func (s Sample) Note() (midi int, centsOff float64, ok bool) {
	if !s.Voiced {
		return 0, 0, false
	}
	return s.Midi, s.CentsOff, true
}

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// HzToMidi converts a frequency to a continuous MIDI value (A4 = 69 = 440Hz).
// Returns NaN for non-positive or non-finite input.
func HzToMidi(hz float64) float64 {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return math.NaN()
	}
	return 69 + 12*math.Log2(hz/440.0)
}

// MidiToHz converts a MIDI note number to its frequency.
func MidiToHz(midi float64) float64 {
	return 440.0 * math.Pow(2, (midi-69)/12)
}

// MidiName returns a note name like "C4" or "A#3" (60 = C4).
func MidiName(midi int) string {
	idx := midi % 12
	if idx < 0 {
		idx += 12
	}
	octave := midi/12 - 1
	return noteNames[idx] + strconv.Itoa(octave)
}
