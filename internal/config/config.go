// Package config loads runtime tuning from environment variables. Every
// threshold the pitch pipeline treats as configuration rather than hard law
// lives here, with the defaults the app ships with.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/tunelab/intone/internal/pitch"
	"github.com/tunelab/intone/internal/score"
	"github.com/tunelab/intone/internal/session"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Audio device
	SampleRate int
	BufferSize int
	Channels   int

	// Session
	LatencyCompensationMs int
	DisplayWindowSec      float64

	// Stabilizer
	ConfidenceThreshold  float64
	GraceWindowMs        int
	MedianWindow         int
	SmoothingAlpha       float64
	MinStableFrames      int
	MinStableMs          int
	OctaveConfidenceMult float64
	OctaveStableFrames   int
	OctaveStableMs       int

	// Scoring
	InTuneCents    float64
	LockedInCents  float64
	SearchWindowMs float64
	SearchStepMs   float64

	// Default exercise file (SMF); empty selects the built-in scale.
	ExercisePath string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		SampleRate: envInt("INTONE_SAMPLE_RATE", 44100),
		BufferSize: envInt("INTONE_BUFFER_SIZE", 2048),
		Channels:   envInt("INTONE_CHANNELS", 1),

		LatencyCompensationMs: envInt("INTONE_LATENCY_MS", 80),
		DisplayWindowSec:      envFloat("INTONE_DISPLAY_WINDOW_SEC", 4),

		ConfidenceThreshold:  envFloat("INTONE_CONFIDENCE_THRESHOLD", 0.6),
		GraceWindowMs:        envInt("INTONE_GRACE_WINDOW_MS", 250),
		MedianWindow:         envInt("INTONE_MEDIAN_WINDOW", 5),
		SmoothingAlpha:       envFloat("INTONE_SMOOTHING_ALPHA", 0.28),
		MinStableFrames:      envInt("INTONE_MIN_STABLE_FRAMES", 1),
		MinStableMs:          envInt("INTONE_MIN_STABLE_MS", 200),
		OctaveConfidenceMult: envFloat("INTONE_OCTAVE_CONFIDENCE_MULT", 1.5),
		OctaveStableFrames:   envInt("INTONE_OCTAVE_STABLE_FRAMES", 4),
		OctaveStableMs:       envInt("INTONE_OCTAVE_STABLE_MS", 400),

		InTuneCents:    envFloat("INTONE_IN_TUNE_CENTS", 25),
		LockedInCents:  envFloat("INTONE_LOCKED_IN_CENTS", 10),
		SearchWindowMs: envFloat("INTONE_SEARCH_WINDOW_MS", 300),
		SearchStepMs:   envFloat("INTONE_SEARCH_STEP_MS", 10),

		ExercisePath: envStr("INTONE_EXERCISE", ""),
	}
}

// SessionConfig assembles the controller configuration from the loaded
// values.
func (c Config) SessionConfig() session.Config {
	return session.Config{
		DisplayWindowSec:      c.DisplayWindowSec,
		LatencyCompensation:   time.Duration(c.LatencyCompensationMs) * time.Millisecond,
		FreezeClockUntilAudio: true,
		StopTailSec:           0.5,
		Stabilizer: pitch.StabilizerConfig{
			ConfidenceThreshold:     c.ConfidenceThreshold,
			GraceWindowSec:          float64(c.GraceWindowMs) / 1000,
			MedianWindow:            c.MedianWindow,
			SmoothingAlpha:          c.SmoothingAlpha,
			MinStableFrames:         c.MinStableFrames,
			MinStableDurationSec:    float64(c.MinStableMs) / 1000,
			OctaveConfidenceMult:    c.OctaveConfidenceMult,
			OctaveStableFrames:      c.OctaveStableFrames,
			OctaveStableDurationSec: float64(c.OctaveStableMs) / 1000,
		},
		Score: score.Config{
			InTuneCents:         c.InTuneCents,
			LockedInCents:       c.LockedInCents,
			ConfidenceThreshold: c.ConfidenceThreshold,
			SearchWindowMs:      c.SearchWindowMs,
			SearchStepMs:        c.SearchStepMs,
			MaxSampleGapSec:     0.1,
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
