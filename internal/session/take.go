package session

import (
	"math"

	"github.com/google/uuid"

	"github.com/tunelab/intone/internal/pitch"
	"github.com/tunelab/intone/internal/score"
)

// Frame is the flat serialized form of one captured sample. The shape must
// survive a round trip through external storage and back into scoring.
type Frame struct {
	Time       float64 `json:"time"`
	Hz         float64 `json:"hz"`
	Midi       float64 `json:"midi"` // continuous (note + cents/100); 0 when unvoiced
	VoicedProb float64 `json:"voicedProb"`
	RMS        float64 `json:"rms"`
}

// TakeRecord is everything the core emits for one take. Persistence is the
// caller's concern; the record is plain data with JSON tags.
type TakeRecord struct {
	TakeID    string             `json:"take_id"`
	Exercise  string             `json:"exercise"`
	AudioPath string             `json:"audio_path,omitempty"`
	Offset    score.OffsetResult `json:"offset"`
	Score     score.Result       `json:"score"`
	Frames    []Frame            `json:"frames"`
}

// NewTakeRecord packages a frozen capture with its scoring results.
func NewTakeRecord(exerciseName, audioPath string, samples []pitch.Sample, offset score.OffsetResult, result score.Result) TakeRecord {
	frames := make([]Frame, len(samples))
	for i, s := range samples {
		f := Frame{Time: s.TimeSec, Hz: s.Hz, RMS: s.RMS}
		if s.Voiced {
			f.Midi = float64(s.Midi) + s.CentsOff/100
			f.VoicedProb = s.Confidence
		}
		frames[i] = f
	}
	return TakeRecord{
		TakeID:    uuid.NewString(),
		Exercise:  exerciseName,
		AudioPath: audioPath,
		Offset:    offset,
		Score:     result,
		Frames:    frames,
	}
}

// Samples rebuilds stabilized samples from the stored frames so a persisted
// take can be re-scored on later review.
func (t TakeRecord) Samples() []pitch.Sample {
	out := make([]pitch.Sample, len(t.Frames))
	for i, f := range t.Frames {
		s := pitch.Sample{TimeSec: f.Time, Hz: f.Hz, RMS: f.RMS}
		if f.Midi > 0 {
			nearest := math.Round(f.Midi)
			s.Voiced = true
			s.Midi = int(nearest)
			s.CentsOff = (f.Midi - nearest) * 100
			s.Confidence = f.VoicedProb
		}
		out[i] = s
	}
	return out
}
