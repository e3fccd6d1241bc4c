package score

import (
	"math"
	"testing"

	"github.com/tunelab/intone/internal/exercise"
	"github.com/tunelab/intone/internal/pitch"
)

func c4Note() *exercise.Exercise {
	return &exercise.Exercise{
		Name:  "c4",
		Notes: []exercise.Note{{StartSec: 0, EndSec: 1.2, Midi: 60}},
	}
}

// steadySamples holds midi with the given cents error from start to end at a
// 10 ms cadence.
func steadySamples(midi int, cents, startSec, endSec float64) []pitch.Sample {
	var out []pitch.Sample
	for t := startSec; t < endSec; t += 0.01 {
		out = append(out, pitch.Sample{
			TimeSec:    t,
			Voiced:     true,
			Midi:       midi,
			CentsOff:   cents,
			Confidence: 0.95,
			Hz:         pitch.MidiToHz(float64(midi)),
			RMS:        0.2,
		})
	}
	return out
}

func TestScorePerfectTake(t *testing.T) {
	ref := c4Note()
	captured := steadySamples(60, 0, 0, 1.2)

	res := Score(ref, captured, OffsetResult{}, DefaultConfig())
	if res.OverallPercent < 99 {
		t.Errorf("overall = %f, want ~100", res.OverallPercent)
	}
	if len(res.PerNote) != 1 {
		t.Fatalf("per-note results = %d, want 1", len(res.PerNote))
	}
	if res.PerNote[0].Percent < 99 {
		t.Errorf("note percent = %f, want ~100", res.PerNote[0].Percent)
	}
	if res.PerNote[0].LockedIn < 99 {
		t.Errorf("locked-in = %f, want ~100 for dead-center pitch", res.PerNote[0].LockedIn)
	}
	if res.Within25Pct != 100 || res.Within50Pct != 100 {
		t.Errorf("tuning buckets = %f/%f, want 100/100", res.Within25Pct, res.Within50Pct)
	}
}

func TestScoreNeverExceeds100(t *testing.T) {
	ref := c4Note()
	// Double-rate samples could over-credit coverage without the cap.
	var captured []pitch.Sample
	for t := 0.0; t < 1.2; t += 0.005 {
		captured = append(captured, pitch.Sample{
			TimeSec: t, Voiced: true, Midi: 60, Confidence: 0.95,
		})
	}

	res := Score(ref, captured, OffsetResult{}, DefaultConfig())
	if res.OverallPercent > 100 {
		t.Errorf("overall = %f, must not exceed 100", res.OverallPercent)
	}
}

func TestScoreEmptyCapture(t *testing.T) {
	ref := c4Note()

	res := Score(ref, nil, OffsetResult{}, DefaultConfig())
	if res.OverallPercent != 0 {
		t.Errorf("empty capture overall = %f, want 0", res.OverallPercent)
	}
	if len(res.PerNote) != 1 || res.PerNote[0].Percent != 0 {
		t.Errorf("per-note = %+v, want one zero entry", res.PerNote)
	}
}

func TestScoreUnvoicedCapture(t *testing.T) {
	ref := c4Note()
	var captured []pitch.Sample
	for t := 0.0; t < 1.2; t += 0.01 {
		captured = append(captured, pitch.Sample{TimeSec: t, RMS: 0.01})
	}

	res := Score(ref, captured, OffsetResult{}, DefaultConfig())
	if res.OverallPercent != 0 {
		t.Errorf("unvoiced capture overall = %f, want 0", res.OverallPercent)
	}
}

func TestScoreOffPitchNote(t *testing.T) {
	ref := c4Note()
	// A semitone sharp the whole way: voiced, confident, and wrong.
	captured := steadySamples(61, 0, 0, 1.2)

	res := Score(ref, captured, OffsetResult{}, DefaultConfig())
	if res.PerNote[0].Percent != 0 {
		t.Errorf("semitone-sharp percent = %f, want 0", res.PerNote[0].Percent)
	}
	if res.Within25Pct != 0 {
		t.Errorf("within-25 = %f, want 0", res.Within25Pct)
	}
}

func TestScoreToleranceEdges(t *testing.T) {
	ref := c4Note()

	// 20 cents off: in tune but not locked in.
	res := Score(ref, steadySamples(60, 20, 0, 1.2), OffsetResult{}, DefaultConfig())
	if res.PerNote[0].Percent < 99 {
		t.Errorf("20 cents off: percent = %f, want ~100", res.PerNote[0].Percent)
	}
	if res.PerNote[0].LockedIn != 0 {
		t.Errorf("20 cents off: locked-in = %f, want 0", res.PerNote[0].LockedIn)
	}

	// 30 cents off: outside the in-tune band entirely.
	res = Score(ref, steadySamples(60, 30, 0, 1.2), OffsetResult{}, DefaultConfig())
	if res.PerNote[0].Percent != 0 {
		t.Errorf("30 cents off: percent = %f, want 0", res.PerNote[0].Percent)
	}
	if res.Within50Pct != 100 {
		t.Errorf("30 cents off: within-50 = %f, want 100", res.Within50Pct)
	}
}

func TestScorePartialCoverage(t *testing.T) {
	ref := c4Note()
	// Sing only the second half of the note.
	captured := steadySamples(60, 0, 0.6, 1.2)

	res := Score(ref, captured, OffsetResult{}, DefaultConfig())
	got := res.PerNote[0].Percent
	if math.Abs(got-50) > 3 {
		t.Errorf("half-coverage percent = %f, want ~50", got)
	}
}

func TestScoreAppliesOffset(t *testing.T) {
	ref := c4Note()
	// Capture is 150 ms late; with the right offset it scores fully.
	captured := steadySamples(60, 0, 0.15, 1.35)

	res := Score(ref, captured, OffsetResult{OffsetMs: 150}, DefaultConfig())
	if res.OverallPercent < 99 {
		t.Errorf("offset-adjusted overall = %f, want ~100", res.OverallPercent)
	}

	res = Score(ref, captured, OffsetResult{}, DefaultConfig())
	if res.OverallPercent > 95 {
		t.Errorf("unadjusted overall = %f, should be penalized", res.OverallPercent)
	}
}

func TestScoreLowConfidenceSamplesIgnored(t *testing.T) {
	ref := c4Note()
	captured := steadySamples(60, 0, 0, 1.2)
	for i := range captured {
		captured[i].Confidence = 0.3
	}

	res := Score(ref, captured, OffsetResult{}, DefaultConfig())
	if res.PerNote[0].Percent != 0 {
		t.Errorf("low-confidence percent = %f, want 0", res.PerNote[0].Percent)
	}
}
