package mic

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tunelab/intone/internal/audio"
	"github.com/tunelab/intone/internal/pitch"
)

type fakeCapturer struct {
	mu      sync.Mutex
	running bool
	buf     *audio.Buffer
}

func (f *fakeCapturer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	return nil
}

func (f *fakeCapturer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	return nil
}

func (f *fakeCapturer) GetBuffer() (*audio.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf, nil
}

func (f *fakeCapturer) IsCapturing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

type fixedDetector struct {
	reading pitch.Reading
	err     error
}

func (d *fixedDetector) Detect(buffer *audio.Buffer, timeSec float64) (pitch.Reading, error) {
	if d.err != nil {
		return pitch.Reading{}, d.err
	}
	r := d.reading
	r.TimeSec = timeSec
	return r, nil
}

func TestMicrophoneDeliversReadings(t *testing.T) {
	cap := &fakeCapturer{buf: &audio.Buffer{Samples: make([]float32, 2048), SampleRate: 44100}}
	det := &fixedDetector{reading: pitch.Reading{Hz: 440, Confidence: 0.9}}
	m := New(cap, det, 5*time.Millisecond)

	var mu sync.Mutex
	var got []pitch.Reading
	err := m.Start(func(r pitch.Reading) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d readings delivered", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0].Hz != 440 {
		t.Errorf("hz = %f, want 440", got[0].Hz)
	}
	if !cap.IsCapturing() {
		t.Error("capturer not running while delivering")
	}
}

func TestMicrophoneDoubleStart(t *testing.T) {
	cap := &fakeCapturer{buf: &audio.Buffer{Samples: make([]float32, 2048), SampleRate: 44100}}
	m := New(cap, &fixedDetector{}, time.Millisecond)

	if err := m.Start(func(pitch.Reading) {}); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if err := m.Start(func(pitch.Reading) {}); err == nil {
		t.Error("second Start should fail while running")
	}
}

func TestMicrophoneStopHaltsDelivery(t *testing.T) {
	cap := &fakeCapturer{buf: &audio.Buffer{Samples: make([]float32, 2048), SampleRate: 44100}}
	m := New(cap, &fixedDetector{reading: pitch.Reading{Hz: 440, Confidence: 0.9}}, time.Millisecond)

	var mu sync.Mutex
	count := 0
	if err := m.Start(func(pitch.Reading) {
		mu.Lock()
		count++
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond)
	if _, err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	if cap.IsCapturing() {
		t.Error("capturer still running after Stop")
	}

	// Let any in-flight delivery land before sampling the count.
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	before := count
	mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	after := count
	mu.Unlock()
	if after != before {
		t.Errorf("readings kept arriving after Stop (%d -> %d)", before, after)
	}

	// Stop is idempotent.
	if _, err := m.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestMicrophoneSkipsShortBuffers(t *testing.T) {
	cap := &fakeCapturer{buf: &audio.Buffer{Samples: make([]float32, 64), SampleRate: 44100}}
	m := New(cap, &fixedDetector{err: pitch.ErrShortBuffer}, time.Millisecond)

	var delivered atomic.Bool
	if err := m.Start(func(pitch.Reading) { delivered.Store(true) }); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	m.Stop()

	if delivered.Load() {
		t.Error("short-buffer frames must not produce readings")
	}
}
