package audio

import (
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer implements audio capture using PortAudio. Multi-channel
// input is mixed down to mono.
type PortAudioCapturer struct {
	isCapturing bool
	stream      *portaudio.Stream
	buffer      *Buffer
	bufferSize  int
	sampleRate  int
	channels    int
	bufferMutex sync.Mutex
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio.
func NewPortAudioCapturer(bufferSize, sampleRate, channels int) (*PortAudioCapturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	return &PortAudioCapturer{
		buffer: &Buffer{
			Samples:    make([]float32, 0, bufferSize),
			SampleRate: sampleRate,
		},
		bufferSize: bufferSize,
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// Start begins audio capture
func (c *PortAudioCapturer) Start() error {
	if c.isCapturing {
		return errors.New("audio capture already started")
	}

	var err error
	c.stream, err = portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // no output
		float64(c.sampleRate),
		c.bufferSize/c.channels, // frames per buffer
		c.processAudio,
	)
	if err != nil {
		return err
	}

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		return err
	}

	c.isCapturing = true
	return nil
}

// Stop ends audio capture and releases the stream. The capturer stays
// usable for the next take; Close releases PortAudio itself.
func (c *PortAudioCapturer) Stop() error {
	if !c.isCapturing {
		return errors.New("audio capture not started")
	}

	if err := c.stream.Stop(); err != nil {
		return err
	}
	if err := c.stream.Close(); err != nil {
		return err
	}

	c.isCapturing = false
	return nil
}

// Close releases PortAudio. Call once at program shutdown, after the last
// take; the capturer is unusable afterward.
func (c *PortAudioCapturer) Close() error {
	return portaudio.Terminate()
}

// processAudio is the stream callback. Averages channels down to mono.
func (c *PortAudioCapturer) processAudio(in, _ []float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if c.channels > 1 {
		mono := make([]float32, len(in)/c.channels)
		for i := 0; i < len(mono); i++ {
			sum := float32(0)
			for ch := 0; ch < c.channels; ch++ {
				sum += in[i*c.channels+ch]
			}
			mono[i] = sum / float32(c.channels)
		}
		c.buffer.Samples = mono
	} else {
		c.buffer.Samples = make([]float32, len(in))
		copy(c.buffer.Samples, in)
	}
}

// GetBuffer returns a copy of the current audio buffer.
func (c *PortAudioCapturer) GetBuffer() (*Buffer, error) {
	if !c.isCapturing {
		return nil, errors.New("audio capture not started")
	}

	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	out := &Buffer{
		Samples:    make([]float32, len(c.buffer.Samples)),
		SampleRate: c.buffer.SampleRate,
	}
	copy(out.Samples, c.buffer.Samples)
	return out, nil
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	return c.isCapturing
}
