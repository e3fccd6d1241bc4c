package pitch

import (
	"errors"

	"github.com/tunelab/intone/internal/audio"
)

// Errors
var (
	ErrEmptyBuffer = errors.New("empty audio buffer")
	ErrShortBuffer = errors.New("audio buffer too short for analysis")
)

// Detector estimates the fundamental frequency of an audio buffer and
// reports it as a raw Reading. Silence and noise still yield a Reading
// (Hz = 0, low confidence) so downstream consumers see every frame.
type Detector interface {
	Detect(buffer *audio.Buffer, timeSec float64) (Reading, error)
}
