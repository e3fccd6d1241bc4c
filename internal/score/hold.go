package score

import (
	"math"

	"github.com/tunelab/intone/internal/exercise"
)

// HoldMetrics describes how steadily one sustained note was held.
type HoldMetrics struct {
	MaxContinuousOnPitchSec float64 `json:"max_continuous_sec"`
	HoldPercent             float64 `json:"hold_percent"`

	// StdDev of cents error across on-pitch samples only; catches vibrato
	// and wobble even when technically in tune. Nil without on-pitch data.
	StabilityCentsStdDev *float64 `json:"stability_cents_stddev,omitempty"`

	// Slope of cents error over time across the note; separates a drifting
	// sustain (going sharp or flat) from a merely unstable one. Nil under
	// 3 usable samples or when the fit degenerates.
	DriftCentsPerSec *float64 `json:"drift_cents_per_sec,omitempty"`
}

// holdMetrics walks the note's samples in time order, tracking the longest
// unbroken on-pitch run and accumulating the stability statistics.
func holdMetrics(note exercise.Note, samples []weighted, cfg Config) HoldMetrics {
	var m HoldMetrics
	dur := note.Duration()
	if dur <= 0 {
		return m
	}

	totalOnPitch := 0.0
	run := 0.0
	var onPitchCents []float64
	var driftT, driftC []float64

	for _, ws := range samples {
		w := clampWeight(ws.weight, cfg.MaxSampleGapSec)
		if !ws.sample.Voiced {
			run = 0
			continue
		}
		ce := centsFromTarget(ws.sample, note)
		if math.IsNaN(ce) || math.IsInf(ce, 0) {
			run = 0
			continue
		}
		driftT = append(driftT, ws.adjT-note.StartSec)
		driftC = append(driftC, ce)

		if onPitch(ws.sample, note, cfg.InTuneCents, cfg.ConfidenceThreshold) {
			totalOnPitch += w
			run += w
			if run > m.MaxContinuousOnPitchSec {
				m.MaxContinuousOnPitchSec = run
			}
			onPitchCents = append(onPitchCents, ce)
		} else {
			run = 0
		}
	}

	m.HoldPercent = math.Min(100, totalOnPitch/dur*100)

	if len(onPitchCents) > 0 {
		sd := stdDev(onPitchCents)
		m.StabilityCentsStdDev = &sd
	}
	if slope, ok := slopeFit(driftT, driftC); ok {
		m.DriftCentsPerSec = &slope
	}
	return m
}

func stdDev(xs []float64) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// slopeFit is a least-squares line fit of ys against xs, returning ok=false
// under 3 points or when x has no spread.
func slopeFit(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n < 3 {
		return 0, false
	}
	meanX, meanY := 0.0, 0.0
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	num, den := 0.0, 0.0
	for i := range xs {
		dx := xs[i] - meanX
		num += dx * (ys[i] - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0, false
	}
	slope := num / den
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0, false
	}
	return slope, true
}
