// Package mic pumps captured audio through a pitch detector, turning the
// microphone into a stream of raw pitch readings.
package mic

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tunelab/intone/internal/audio"
	"github.com/tunelab/intone/internal/pitch"
)

// Microphone adapts an audio.Capturer plus a pitch.Detector into the
// session's Recorder interface: Start delivers readings at a fixed cadence
// on a background goroutine until Stop.
type Microphone struct {
	capturer audio.Capturer
	detector pitch.Detector
	interval time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// New creates a microphone pumping readings every interval.
func New(capturer audio.Capturer, detector pitch.Detector, interval time.Duration) *Microphone {
	return &Microphone{
		capturer: capturer,
		detector: detector,
		interval: interval,
	}
}

// Start begins capture and reading delivery. Starting an already running
// microphone is a caller bug and returns an error rather than leaking a
// second stream.
func (m *Microphone) Start(onReading func(pitch.Reading)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("microphone already running")
	}
	if err := m.capturer.Start(); err != nil {
		return err
	}
	m.running = true
	m.done = make(chan struct{})
	go m.pump(m.done, onReading)
	return nil
}

// Stop halts delivery and releases the capture device. The microphone does
// not write audio to disk, so the returned path is empty.
func (m *Microphone) Stop() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return "", nil
	}
	m.running = false
	close(m.done)
	if err := m.capturer.Stop(); err != nil {
		return "", err
	}
	return "", nil
}

// pump polls the capture buffer and runs detection at the configured
// cadence. The reading timestamp is provisional; the session clock
// restamps it on arrival.
func (m *Microphone) pump(done chan struct{}, onReading func(pitch.Reading)) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		buffer, err := m.capturer.GetBuffer()
		if err != nil {
			continue
		}
		reading, err := m.detector.Detect(buffer, time.Since(start).Seconds())
		if err != nil {
			if !errors.Is(err, pitch.ErrShortBuffer) {
				slog.Debug("mic: detect", "err", err)
			}
			continue
		}
		onReading(reading)
	}
}
