package exercise

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/gomidi/midi/v2/smf"
)

// LoadSMF reads a Standard MIDI File into an Exercise. Only the first
// sounding channel is used; exercises are monophonic by construction, so an
// overlapping note-on simply ends the previous note.
func LoadSMF(path string) (*Exercise, error) {
	var notes []Note
	openAt := -1.0
	openKey := -1

	rd := smf.ReadTracks(path)
	if rd == nil {
		return nil, fmt.Errorf("read midi file %s: no tracks", path)
	}

	closeOpen := func(endSec float64) {
		if openKey < 0 {
			return
		}
		if endSec > openAt {
			notes = append(notes, Note{StartSec: openAt, EndSec: endSec, Midi: openKey})
		}
		openKey = -1
	}

	err := rd.Do(func(ev smf.TrackEvent) {
		t := float64(ev.AbsMicroSeconds) / 1e6

		var ch, key, vel uint8
		switch {
		case ev.Message.GetNoteStart(&ch, &key, &vel):
			closeOpen(t)
			openAt = t
			openKey = int(key)
		case ev.Message.GetNoteEnd(&ch, &key):
			if int(key) == openKey {
				closeOpen(t)
			}
		}
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("read midi file %s: %w", path, err)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].StartSec < notes[j].StartSec
	})

	ex := &Exercise{
		Name:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Notes: notes,
	}
	if err := ex.Validate(); err != nil {
		return nil, fmt.Errorf("midi file %s: %w", path, err)
	}
	return ex, nil
}
