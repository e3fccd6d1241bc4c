// Package exercise holds reference note sequences: the melodies a take is
// sung against. Content is authored externally (Standard MIDI Files) or
// built in; the rest of the core treats it as read-only.
package exercise

import (
	"errors"
	"fmt"

	"github.com/tunelab/intone/internal/pitch"
)

// Errors
var (
	ErrNoNotes = errors.New("exercise has no notes")
)

// Note is one reference note on the exercise timeline.
type Note struct {
	StartSec float64 `json:"start"`
	EndSec   float64 `json:"end"`
	Midi     int     `json:"midi"`
	Lyric    string  `json:"lyric,omitempty"`
}

// Duration returns the note length in seconds.
func (n Note) Duration() float64 {
	return n.EndSec - n.StartSec
}

// TargetHz returns the note's frequency.
func (n Note) TargetHz() float64 {
	return pitch.MidiToHz(float64(n.Midi))
}

// Exercise is an ordered, non-overlapping reference note sequence.
type Exercise struct {
	Name  string `json:"name"`
	Notes []Note `json:"notes"`
}

// Duration returns the end time of the last note.
func (e *Exercise) Duration() float64 {
	if len(e.Notes) == 0 {
		return 0
	}
	return e.Notes[len(e.Notes)-1].EndSec
}

// NoteAt returns the note active at the given time, or ok=false in a gap.
func (e *Exercise) NoteAt(tSec float64) (Note, bool) {
	for _, n := range e.Notes {
		if tSec >= n.StartSec && tSec < n.EndSec {
			return n, true
		}
		if n.StartSec > tSec {
			break
		}
	}
	return Note{}, false
}

// Validate checks the sequence invariants: at least one note, positive
// durations, sorted by start time, no overlaps.
func (e *Exercise) Validate() error {
	if len(e.Notes) == 0 {
		return ErrNoNotes
	}
	for i, n := range e.Notes {
		if n.EndSec <= n.StartSec {
			return fmt.Errorf("note %d (%s): end %.3f not after start %.3f",
				i, pitch.MidiName(n.Midi), n.EndSec, n.StartSec)
		}
		if i > 0 {
			prev := e.Notes[i-1]
			if n.StartSec < prev.StartSec {
				return fmt.Errorf("note %d starts before note %d", i, i-1)
			}
			if n.StartSec < prev.EndSec {
				return fmt.Errorf("note %d overlaps note %d", i, i-1)
			}
		}
	}
	return nil
}

// CMajorScale returns the built-in warmup: one octave of C major from C4,
// 0.6s per note back to back.
func CMajorScale() *Exercise {
	const noteLen = 0.6
	degrees := []int{60, 62, 64, 65, 67, 69, 71, 72}
	notes := make([]Note, len(degrees))
	for i, m := range degrees {
		// Shared boundaries are computed from one expression so adjacent
		// edges are bit-identical despite float rounding.
		notes[i] = Note{
			StartSec: float64(i) * noteLen,
			EndSec:   float64(i+1) * noteLen,
			Midi:     m,
		}
	}
	return &Exercise{Name: "c-major-scale", Notes: notes}
}
