package audio

import (
	"math"
	"testing"
)

func TestRenderTonesLength(t *testing.T) {
	tones := []Tone{
		{StartSec: 0, EndSec: 0.5, Hz: 440},
		{StartSec: 0.5, EndSec: 1.0, Hz: 493.88},
	}
	buf := RenderTones(tones, 44100, 0.5)

	if buf.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", buf.SampleRate)
	}
	if want := int(1.5 * 44100); len(buf.Samples) != want {
		t.Errorf("len = %d, want %d", len(buf.Samples), want)
	}
}

func TestRenderTonesContent(t *testing.T) {
	tones := []Tone{{StartSec: 0.2, EndSec: 0.7, Hz: 440}}
	buf := RenderTones(tones, 44100, 0.1)

	rms := func(lo, hi float64) float64 {
		a := int(lo * 44100)
		b := int(hi * 44100)
		sum := 0.0
		for _, s := range buf.Samples[a:b] {
			sum += float64(s) * float64(s)
		}
		return math.Sqrt(sum / float64(b-a))
	}

	if got := rms(0, 0.15); got != 0 {
		t.Errorf("leading gap rms = %f, want silence", got)
	}
	if got := rms(0.3, 0.6); got < 0.2 {
		t.Errorf("tone rms = %f, want audible signal", got)
	}
	if got := rms(0.75, 0.8); got != 0 {
		t.Errorf("tail rms = %f, want silence", got)
	}
}

func TestRenderTonesEnvelope(t *testing.T) {
	tones := []Tone{{StartSec: 0, EndSec: 0.5, Hz: 440}}
	buf := RenderTones(tones, 44100, 0)

	// The first sample starts the attack ramp at zero; no hard edge.
	if buf.Samples[0] != 0 {
		t.Errorf("first sample = %f, want 0", buf.Samples[0])
	}
	last := buf.Samples[len(buf.Samples)-1]
	if math.Abs(float64(last)) > 0.01 {
		t.Errorf("last sample = %f, want near 0 after release", last)
	}
}

func TestRenderTonesSkipsDegenerate(t *testing.T) {
	tones := []Tone{
		{StartSec: 0, EndSec: 0.1, Hz: 0},     // no pitch
		{StartSec: 0.1, EndSec: 0.1, Hz: 440}, // no duration
	}
	buf := RenderTones(tones, 8000, 0)
	for i, s := range buf.Samples {
		if s != 0 {
			t.Fatalf("sample %d = %f, want all silence", i, s)
		}
	}
}

func TestBufferRMS(t *testing.T) {
	buf := &Buffer{Samples: []float32{0.5, -0.5, 0.5, -0.5}, SampleRate: 8000}
	if got := buf.RMS(); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("RMS = %f, want 0.5", got)
	}
	empty := &Buffer{SampleRate: 8000}
	if got := empty.RMS(); got != 0 {
		t.Errorf("empty RMS = %f, want 0", got)
	}
}
