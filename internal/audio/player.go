package audio

import (
	"errors"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// TonePlayer plays a prerendered buffer through the default output device
// and reports playback position for clock synchronization.
type TonePlayer struct {
	buffer *Buffer

	mu      sync.Mutex
	stream  *portaudio.Stream
	cursor  int // next sample index to write
	playing bool
}

// NewTonePlayer wraps a rendered buffer for playback.
func NewTonePlayer(buffer *Buffer) (*TonePlayer, error) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return nil, errors.New("empty playback buffer")
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &TonePlayer{buffer: buffer}, nil
}

// Start opens the output stream and begins playback from the start.
func (p *TonePlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return errors.New("playback already started")
	}

	stream, err := portaudio.OpenDefaultStream(
		0, // no input
		1, // mono output
		float64(p.buffer.SampleRate),
		1024,
		p.fillOutput,
	)
	if err != nil {
		return err
	}
	p.stream = stream
	p.cursor = 0

	if err := stream.Start(); err != nil {
		stream.Close()
		p.stream = nil
		return err
	}
	p.playing = true
	return nil
}

// Stop halts playback and releases the stream. Safe to call when stopped;
// the player stays usable for the next take. Close releases PortAudio.
func (p *TonePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return nil
	}
	p.playing = false

	if err := p.stream.Stop(); err != nil {
		return err
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	return nil
}

// Close releases PortAudio. Call once at program shutdown.
func (p *TonePlayer) Close() error {
	return portaudio.Terminate()
}

// Position returns the playback position in seconds. ok is false before the
// first audio callback has consumed any samples, and again once the buffer
// is exhausted, so the session clock holds instead of running past the
// reference audio.
func (p *TonePlayer) Position() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos := float64(p.cursor) / float64(p.buffer.SampleRate)
	if p.cursor == 0 || p.cursor >= len(p.buffer.Samples) {
		return pos, false
	}
	return pos, true
}

func (p *TonePlayer) fillOutput(_, out []float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range out {
		if p.cursor < len(p.buffer.Samples) {
			out[i] = p.buffer.Samples[p.cursor]
			p.cursor++
		} else {
			out[i] = 0
		}
	}
}
