package score

import (
	"math"

	"github.com/tunelab/intone/internal/exercise"
	"github.com/tunelab/intone/internal/pitch"
)

// NoteResult is the scored outcome for one reference note.
type NoteResult struct {
	Index    int     `json:"index"`
	Midi     int     `json:"midi"`
	Lyric    string  `json:"lyric,omitempty"`
	Percent  float64 `json:"percent"`   // on-pitch coverage, 0..100
	LockedIn float64 `json:"locked_in"` // coverage within the strict tolerance

	Hold HoldMetrics `json:"hold"`
}

// Result is the scored outcome for a whole take.
type Result struct {
	OverallPercent float64      `json:"overall_percent"`
	PerNote        []NoteResult `json:"per_note"`

	// Tuning summary over all in-note voiced samples.
	Within25Pct float64 `json:"within_25_pct"`
	Within50Pct float64 `json:"within_50_pct"`
}

// Score applies the discovered offset and computes time-weighted on-pitch
// coverage per reference note. Silence against a note scores 0 for it;
// missing data is a failure to sing the note, not neutral. An empty capture
// scores 0 overall.
func Score(ref *exercise.Exercise, captured []pitch.Sample, offset OffsetResult, cfg Config) Result {
	offsetSec := offset.OffsetMs / 1000.0

	res := Result{PerNote: make([]NoteResult, len(ref.Notes))}
	sumPercent := 0.0
	within25, within50, voicedTotal := 0, 0, 0

	for i, note := range ref.Notes {
		samples := samplesInNote(captured, note, offsetSec)
		nr := scoreNote(note, samples, cfg)
		nr.Index = i
		res.PerNote[i] = nr
		sumPercent += nr.Percent

		for _, ws := range samples {
			if !ws.sample.Voiced {
				continue
			}
			voicedTotal++
			abs := math.Abs(centsFromTarget(ws.sample, note))
			if abs <= 25 {
				within25++
			}
			if abs <= 50 {
				within50++
			}
		}
	}

	if len(ref.Notes) > 0 {
		res.OverallPercent = sumPercent / float64(len(ref.Notes))
	}
	if voicedTotal > 0 {
		res.Within25Pct = float64(within25) / float64(voicedTotal) * 100
		res.Within50Pct = float64(within50) / float64(voicedTotal) * 100
	}
	return res
}

// weighted pairs a sample with the slice of note time it accounts for.
// Sample cadence is irregular near dropouts, so coverage must be
// time-weighted rather than sample-counted.
type weighted struct {
	sample pitch.Sample
	adjT   float64
	weight float64
}

// samplesInNote selects samples whose offset-adjusted time falls within the
// note and assigns each the duration until the next sample (capped, and
// truncated at the note end).
func samplesInNote(captured []pitch.Sample, note exercise.Note, offsetSec float64) []weighted {
	var out []weighted
	for i, s := range captured {
		t := s.TimeSec - offsetSec
		if t < note.StartSec || t >= note.EndSec {
			continue
		}
		w := note.EndSec - t
		if i+1 < len(captured) {
			if dt := captured[i+1].TimeSec - s.TimeSec; dt < w {
				w = dt
			}
		}
		out = append(out, weighted{sample: s, adjT: t, weight: w})
	}
	return out
}

func scoreNote(note exercise.Note, samples []weighted, cfg Config) NoteResult {
	nr := NoteResult{Midi: note.Midi, Lyric: note.Lyric}
	dur := note.Duration()
	if dur <= 0 {
		return nr
	}

	onPitchTime := 0.0
	lockedTime := 0.0
	for _, ws := range samples {
		w := clampWeight(ws.weight, cfg.MaxSampleGapSec)
		if onPitch(ws.sample, note, cfg.InTuneCents, cfg.ConfidenceThreshold) {
			onPitchTime += w
		}
		if onPitch(ws.sample, note, cfg.LockedInCents, cfg.ConfidenceThreshold) {
			lockedTime += w
		}
	}

	nr.Percent = math.Min(100, onPitchTime/dur*100)
	nr.LockedIn = math.Min(100, lockedTime/dur*100)
	nr.Hold = holdMetrics(note, samples, cfg)
	return nr
}

// onPitch is the shared predicate: voiced, confident, and within tolerance
// of the note's target.
func onPitch(s pitch.Sample, note exercise.Note, toleranceCents, confThreshold float64) bool {
	if !s.Voiced || s.Confidence < confThreshold {
		return false
	}
	return math.Abs(centsFromTarget(s, note)) <= toleranceCents
}

func clampWeight(w, maxGap float64) float64 {
	if maxGap > 0 && w > maxGap {
		return maxGap
	}
	if w < 0 {
		return 0
	}
	return w
}
