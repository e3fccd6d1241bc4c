package score

import (
	"math"
	"testing"

	"github.com/tunelab/intone/internal/exercise"
	"github.com/tunelab/intone/internal/pitch"
)

func sustain() exercise.Note {
	return exercise.Note{StartSec: 0, EndSec: 3, Midi: 69}
}

func holdFor(t *testing.T, note exercise.Note, captured []pitch.Sample) HoldMetrics {
	t.Helper()
	samples := samplesInNote(captured, note, 0)
	return holdMetrics(note, samples, DefaultConfig())
}

func TestHoldSteadySustain(t *testing.T) {
	note := sustain()
	m := holdFor(t, note, steadySamples(69, 0, 0, 3))

	if math.Abs(m.MaxContinuousOnPitchSec-3) > 0.05 {
		t.Errorf("max continuous = %f, want ~3", m.MaxContinuousOnPitchSec)
	}
	if m.HoldPercent < 99 {
		t.Errorf("hold percent = %f, want ~100", m.HoldPercent)
	}
	if m.StabilityCentsStdDev == nil {
		t.Fatal("stddev missing for an on-pitch sustain")
	}
	if *m.StabilityCentsStdDev > 0.01 {
		t.Errorf("stddev = %f, want ~0 for a flat hold", *m.StabilityCentsStdDev)
	}
	if m.DriftCentsPerSec == nil {
		t.Fatal("drift missing for a long sustain")
	}
	if math.Abs(*m.DriftCentsPerSec) > 0.01 {
		t.Errorf("drift = %f, want ~0 for a flat hold", *m.DriftCentsPerSec)
	}
}

func TestHoldBreakResetsRun(t *testing.T) {
	note := sustain()
	// On pitch for 1s, a dropout, then on pitch for 1.5s: the longest run
	// is the second segment, not the sum.
	var captured []pitch.Sample
	captured = append(captured, steadySamples(69, 0, 0, 1.0)...)
	captured = append(captured, pitch.Sample{TimeSec: 1.05, Voiced: false})
	captured = append(captured, steadySamples(69, 0, 1.1, 2.6)...)
	captured = append(captured, pitch.Sample{TimeSec: 2.61, Voiced: false})

	m := holdFor(t, note, captured)
	if math.Abs(m.MaxContinuousOnPitchSec-1.5) > 0.1 {
		t.Errorf("max continuous = %f, want ~1.5", m.MaxContinuousOnPitchSec)
	}
	if math.Abs(m.HoldPercent-(2.5/3*100)) > 3 {
		t.Errorf("hold percent = %f, want ~83", m.HoldPercent)
	}
}

func TestHoldDetectsDrift(t *testing.T) {
	note := sustain()
	// Going sharp at a steady 10 cents/sec but staying inside tolerance.
	var captured []pitch.Sample
	for t2 := 0.0; t2 < 3; t2 += 0.01 {
		captured = append(captured, pitch.Sample{
			TimeSec: t2, Voiced: true, Midi: 69, CentsOff: 10 * t2 / 1.5, Confidence: 0.95,
		})
	}

	m := holdFor(t, note, captured)
	if m.DriftCentsPerSec == nil {
		t.Fatal("drift missing")
	}
	if math.Abs(*m.DriftCentsPerSec-10.0/1.5) > 0.1 {
		t.Errorf("drift = %f, want ~6.67 cents/sec", *m.DriftCentsPerSec)
	}
	if m.StabilityCentsStdDev == nil || *m.StabilityCentsStdDev < 1 {
		t.Error("a drifting hold should show spread in its cents error")
	}
}

func TestHoldNilMetricsWithoutData(t *testing.T) {
	note := sustain()

	m := holdFor(t, note, nil)
	if m.StabilityCentsStdDev != nil || m.DriftCentsPerSec != nil {
		t.Error("metrics should be nil with no samples")
	}

	// Two voiced samples are under the minimum for a line fit.
	two := []pitch.Sample{
		{TimeSec: 0.5, Voiced: true, Midi: 69, Confidence: 0.95},
		{TimeSec: 0.6, Voiced: true, Midi: 69, Confidence: 0.95},
	}
	m = holdFor(t, note, two)
	if m.DriftCentsPerSec != nil {
		t.Error("drift should be nil under 3 samples")
	}
	if m.StabilityCentsStdDev == nil {
		t.Error("stddev is defined from the first on-pitch sample")
	}
}

func TestHoldOffPitchSamplesBreakRunButFeedDrift(t *testing.T) {
	note := sustain()
	// Wildly off pitch: no on-pitch run at all, but the drift fit still
	// sees the voiced contour.
	captured := steadySamples(64, 0, 0, 3)

	m := holdFor(t, note, captured)
	if m.MaxContinuousOnPitchSec != 0 {
		t.Errorf("max continuous = %f, want 0", m.MaxContinuousOnPitchSec)
	}
	if m.HoldPercent != 0 {
		t.Errorf("hold percent = %f, want 0", m.HoldPercent)
	}
	if m.StabilityCentsStdDev != nil {
		t.Error("stddev should be nil with no on-pitch samples")
	}
	if m.DriftCentsPerSec == nil {
		t.Error("drift fit should still run on voiced samples")
	}
}
