package pitch

import (
	"math"
	"testing"
)

func TestHzToMidi(t *testing.T) {
	cases := []struct {
		hz   float64
		midi float64
	}{
		{440, 69},
		{220, 57},
		{880, 81},
		{261.63, 60},
	}
	for _, c := range cases {
		got := HzToMidi(c.hz)
		if math.Abs(got-c.midi) > 0.01 {
			t.Errorf("HzToMidi(%f) = %f, want %f", c.hz, got, c.midi)
		}
	}

	if !math.IsNaN(HzToMidi(0)) {
		t.Error("HzToMidi(0) should be NaN")
	}
	if !math.IsNaN(HzToMidi(-10)) {
		t.Error("HzToMidi(-10) should be NaN")
	}
}

func TestMidiToHzRoundTrip(t *testing.T) {
	for midi := 40; midi <= 90; midi++ {
		hz := MidiToHz(float64(midi))
		back := HzToMidi(hz)
		if math.Abs(back-float64(midi)) > 1e-9 {
			t.Errorf("midi %d: round trip gave %f", midi, back)
		}
	}
}

func TestMidiName(t *testing.T) {
	cases := []struct {
		midi int
		name string
	}{
		{69, "A4"},
		{60, "C4"},
		{61, "C#4"},
		{21, "A0"},
		{72, "C5"},
	}
	for _, c := range cases {
		if got := MidiName(c.midi); got != c.name {
			t.Errorf("MidiName(%d) = %q, want %q", c.midi, got, c.name)
		}
	}
}

func TestSampleNote(t *testing.T) {
	s := Sample{Voiced: true, Midi: 65, CentsOff: -12}
	midi, cents, ok := s.Note()
	if !ok || midi != 65 || cents != -12 {
		t.Errorf("Note() = (%d, %f, %v), want (65, -12, true)", midi, cents, ok)
	}

	if _, _, ok := (Sample{Voiced: false}).Note(); ok {
		t.Error("unvoiced sample should report ok=false")
	}
}
