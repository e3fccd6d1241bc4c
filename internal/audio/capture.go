package audio

import "math"

// Buffer represents a buffer of mono audio samples.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// RMS returns the root-mean-square level of the buffer, 0 for an empty one.
func (b *Buffer) RMS() float64 {
	if b == nil || len(b.Samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range b.Samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(b.Samples)))
}

// Capturer defines the interface for audio capture.
type Capturer interface {
	// Start begins audio capture
	Start() error

	// Stop ends audio capture
	Stop() error

	// GetBuffer returns a copy of the most recent audio buffer
	GetBuffer() (*Buffer, error)

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}
