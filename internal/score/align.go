// Package score turns an aligned take into objective performance metrics:
// a temporal offset between the captured recording and the reference, a
// per-note intonation score, and hold-stability metrics for sustains.
package score

import (
	"math"

	"github.com/tunelab/intone/internal/exercise"
	"github.com/tunelab/intone/internal/pitch"
)

// Config holds scoring tolerances and the alignment search window.
type Config struct {
	InTuneCents         float64 // on-pitch tolerance for scoring windows
	LockedInCents       float64 // stricter tolerance for the locked-in indicator
	ConfidenceThreshold float64 // minimum sample confidence to count at all
	SearchWindowMs      float64 // alignment searches +/- this around zero
	SearchStepMs        float64
	MaxSampleGapSec     float64 // cap on per-sample time weight near dropouts
}

// DefaultConfig returns the scoring tuning used by the app.
func DefaultConfig() Config {
	return Config{
		InTuneCents:         25,
		LockedInCents:       10,
		ConfidenceThreshold: 0.6,
		SearchWindowMs:      300,
		SearchStepMs:        10,
		MaxSampleGapSec:     0.1,
	}
}

// Semitone-presence tolerance used only for alignment agreement; beyond
// half a semitone the singer is on a different note, which says nothing
// about timing.
const agreeCents = 50

// OffsetResult is the inferred delay between reference time zero and where
// the captured recording's content actually begins.
type OffsetResult struct {
	OffsetMs   float64 `json:"offset_ms"`
	Confidence float64 `json:"confidence"`
}

// candidate is the evaluation of one trial offset.
type candidate struct {
	offsetSec float64
	agreement int     // voiced samples landing on the right semitone
	meanErr   float64 // mean |cents| of all in-note voiced samples
}

// Align searches a bounded window for the offset that maximizes agreement
// between the captured pitch contour and the reference notes: the count of
// voiced samples whose offset-adjusted time lands inside a reference note
// on the right semitone. Ties break toward lower mean cents error, then
// toward the smaller absolute offset. Confidence reflects how much the best
// offset beats the window average; a flat, ambiguous surface yields low
// confidence.
func Align(ref *exercise.Exercise, captured []pitch.Sample, cfg Config) OffsetResult {
	window := cfg.SearchWindowMs / 1000.0
	step := cfg.SearchStepMs / 1000.0
	if step <= 0 {
		step = 0.01
	}

	var best candidate
	haveBest := false
	sum := 0
	count := 0

	for off := -window; off <= window+1e-9; off += step {
		c := evaluate(ref, captured, off)
		sum += c.agreement
		count++

		if !haveBest || better(c, best) {
			best = c
			haveBest = true
		}
	}

	if !haveBest || best.agreement == 0 {
		return OffsetResult{}
	}

	avg := float64(sum) / float64(count)
	confidence := (float64(best.agreement) - avg) / float64(best.agreement)
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return OffsetResult{OffsetMs: best.offsetSec * 1000, Confidence: confidence}
}

func better(a, b candidate) bool {
	if a.agreement != b.agreement {
		return a.agreement > b.agreement
	}
	if a.meanErr != b.meanErr {
		return a.meanErr < b.meanErr
	}
	return math.Abs(a.offsetSec) < math.Abs(b.offsetSec)
}

// evaluate scores one trial offset against the reference.
func evaluate(ref *exercise.Exercise, captured []pitch.Sample, offsetSec float64) candidate {
	c := candidate{offsetSec: offsetSec}
	total := 0.0
	matched := 0

	for _, s := range captured {
		if !s.Voiced {
			continue
		}
		note, ok := ref.NoteAt(s.TimeSec - offsetSec)
		if !ok {
			continue
		}
		err := math.Abs(centsFromTarget(s, note))
		total += err
		matched++
		if err <= agreeCents {
			c.agreement++
		}
	}

	if matched > 0 {
		c.meanErr = total / float64(matched)
	} else {
		c.meanErr = math.Inf(1)
	}
	return c
}

// centsFromTarget is the sample's deviation from the note's target pitch,
// combining the stabilized note delta and the residual cents offset.
func centsFromTarget(s pitch.Sample, note exercise.Note) float64 {
	return float64(s.Midi-note.Midi)*100 + s.CentsOff
}
