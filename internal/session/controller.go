package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tunelab/intone/internal/exercise"
	"github.com/tunelab/intone/internal/pitch"
	"github.com/tunelab/intone/internal/score"
)

// Phase is the controller's lifecycle state for one take.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePreparing
	PhaseRecording
	PhaseProcessing
	PhaseReplay
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePreparing:
		return "preparing"
	case PhaseRecording:
		return "recording"
	case PhaseProcessing:
		return "processing"
	case PhaseReplay:
		return "replay"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Errors
var (
	ErrNoExercise = errors.New("no exercise loaded")
)

// Recorder is the external microphone collaborator. Start begins delivering
// raw pitch readings on a background goroutine; Stop releases the device
// and returns the path of the recorded audio, if any.
type Recorder interface {
	Start(onReading func(pitch.Reading)) error
	Stop() (audioPath string, err error)
}

// Player is the external reference-audio collaborator. Position feeds the
// session clock.
type Player interface {
	Start() error
	Stop() error
	Position() (posSec float64, ok bool)
}

// Event is one controller notification: a phase change, optionally carrying
// the error that caused a fallback to Idle.
type Event struct {
	Phase Phase
	Err   error
}

// Config holds the controller's tunables.
type Config struct {
	DisplayWindowSec      float64
	LatencyCompensation   time.Duration
	FreezeClockUntilAudio bool
	StopTailSec           float64 // extra recording time past the exercise end

	Stabilizer pitch.StabilizerConfig
	Score      score.Config
}

// DefaultConfig returns the controller tuning used by the app.
func DefaultConfig() Config {
	return Config{
		DisplayWindowSec:      4,
		LatencyCompensation:   80 * time.Millisecond,
		FreezeClockUntilAudio: true,
		StopTailSec:           0.5,
		Stabilizer:            pitch.DefaultStabilizerConfig(),
		Score:                 score.DefaultConfig(),
	}
}

// Controller owns the session: it is the only component that mutates phase,
// and every piece of shared per-run state (clock, stabilizer, capture
// buffer) funnels through it. Asynchronous continuations are tagged with the
// RunID current when they were scheduled and discard their results if a
// newer run has started; that generation check is the sole protection
// against rapid start/stop cycles racing background work.
type Controller struct {
	cfg      Config
	recorder Recorder
	player   Player

	mu    sync.Mutex
	phase Phase
	runID uint64

	ex    *exercise.Exercise
	clock *Clock
	stab  *pitch.Stabilizer
	buf   *CaptureBuffer
	take  *TakeRecord

	stopTimer *time.Timer

	events  chan Event
	samples chan pitch.Sample
}

// NewController wires the collaborators for a session.
func NewController(cfg Config, recorder Recorder, player Player) *Controller {
	clock := NewClock()
	clock.SetLatencyCompensation(cfg.LatencyCompensation)
	clock.SetPositionProvider(player.Position)
	return &Controller{
		cfg:      cfg,
		recorder: recorder,
		player:   player,
		clock:    clock,
		stab:     pitch.NewStabilizer(cfg.Stabilizer),
		buf:      NewCaptureBuffer(cfg.DisplayWindowSec),
		events:   make(chan Event, 16),
		samples:  make(chan pitch.Sample, 64),
	}
}

// Events returns phase-change notifications. Slow consumers drop events
// rather than blocking the controller.
func (c *Controller) Events() <-chan Event { return c.events }

// Samples returns live stabilized samples for display. Display only; the
// capture buffer keeps the authoritative copy, so drops here are harmless.
func (c *Controller) Samples() <-chan pitch.Sample { return c.samples }

// SetExercise loads the reference content for subsequent takes. Rejected
// mid-run.
func (c *Controller) SetExercise(ex *exercise.Exercise) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhasePreparing || c.phase == PhaseRecording || c.phase == PhaseProcessing {
		return fmt.Errorf("cannot change exercise during %s", c.phase)
	}
	c.ex = ex
	return nil
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// RunID returns the current run generation.
func (c *Controller) RunID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID
}

// Clock exposes the session clock for rendering. The pointer is fixed for
// the controller's lifetime; runs restart the clock rather than replace it,
// so rendering goroutines may hold it without synchronization.
func (c *Controller) Clock() *Clock { return c.clock }

// Take returns the scored record of the last completed take.
func (c *Controller) Take() (TakeRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.take == nil {
		return TakeRecord{}, false
	}
	return *c.take, true
}

// DisplayWindow returns the captured samples inside the rolling display
// window.
func (c *Controller) DisplayWindow() []pitch.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Window(c.clock.NowSeconds())
}

// Start begins a new take: new RunID, fresh buffer/stabilizer/clock, then
// asynchronous resource acquisition. A no-op while a take is already in
// flight.
func (c *Controller) Start() error {
	c.mu.Lock()
	switch c.phase {
	case PhasePreparing, PhaseRecording, PhaseProcessing:
		c.mu.Unlock()
		return nil
	}
	if c.ex == nil {
		c.mu.Unlock()
		return ErrNoExercise
	}

	c.runID++
	run := c.runID
	c.buf = NewCaptureBuffer(c.cfg.DisplayWindowSec)
	c.stab.Reset()
	c.take = nil
	c.setPhaseLocked(PhasePreparing, nil)
	c.mu.Unlock()

	go c.prepare(run)
	return nil
}

// prepare acquires the recorder and player. Every step re-checks the run
// generation before mutating shared state.
func (c *Controller) prepare(run uint64) {
	err := c.recorder.Start(func(r pitch.Reading) {
		c.handleReading(run, r)
	})
	if err != nil {
		c.failPreparing(run, fmt.Errorf("start recorder: %w", err))
		return
	}

	if c.stale(run, PhasePreparing) {
		c.releaseRecorder()
		return
	}

	if err := c.player.Start(); err != nil {
		c.releaseRecorder()
		c.failPreparing(run, fmt.Errorf("start reference playback: %w", err))
		return
	}

	c.mu.Lock()
	if c.runID != run || c.phase != PhasePreparing {
		c.mu.Unlock()
		c.releaseRecorder()
		if err := c.player.Stop(); err != nil {
			slog.Warn("session: player stop after stale prepare", "err", err)
		}
		return
	}

	// Player accepted the stream: audio is confirmed playing (the clock
	// freeze still holds the timeline until audible output).
	c.clock.Start(0, c.cfg.FreezeClockUntilAudio)
	d := time.Duration((c.ex.Duration() + c.cfg.StopTailSec) * float64(time.Second))
	c.stopTimer = time.AfterFunc(d, func() { c.durationReached(run) })
	c.setPhaseLocked(PhaseRecording, nil)
	c.mu.Unlock()
}

// handleReading marshals one raw reading onto the controller's state: it is
// discarded if the run is stale or recording has stopped, otherwise it is
// timestamped off the session clock, stabilized, and captured.
func (c *Controller) handleReading(run uint64, r pitch.Reading) {
	c.mu.Lock()
	if c.runID != run || c.phase != PhaseRecording {
		c.mu.Unlock()
		return
	}
	r.TimeSec = c.clock.NowSeconds()
	s := c.stab.Update(r)
	c.buf.Append(s)
	c.mu.Unlock()

	select {
	case c.samples <- s:
	default:
	}
}

// Stop ends the take and hands the frozen capture to scoring. Idempotent,
// and legal during Preparing: the (empty or partial) take still gets
// scored. Teardown order is fixed: clock ticker, pitch subscription (via
// the phase guard), recorder, playback, buffer finalize, scoring handoff.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.phase != PhasePreparing && c.phase != PhaseRecording {
		c.mu.Unlock()
		return
	}
	run := c.runID
	if c.stopTimer != nil {
		c.stopTimer.Stop()
		c.stopTimer = nil
	}
	c.clock.Pause()
	c.setPhaseLocked(PhaseProcessing, nil)
	c.mu.Unlock()

	audioPath, err := c.recorder.Stop()
	if err != nil {
		// Partial takes still score; the audio file is a bonus.
		slog.Warn("session: recorder stop", "err", err)
		audioPath = ""
	}
	if err := c.player.Stop(); err != nil {
		slog.Warn("session: player stop", "err", err)
	}

	c.mu.Lock()
	if c.runID != run {
		c.mu.Unlock()
		return
	}
	samples := c.buf.Freeze()
	ex := c.ex
	c.mu.Unlock()

	go c.process(run, ex, samples, audioPath)
}

// process is the one-shot scoring worker over the frozen snapshot.
func (c *Controller) process(run uint64, ex *exercise.Exercise, samples []pitch.Sample, audioPath string) {
	offset := score.Align(ex, samples, c.cfg.Score)
	result := score.Score(ex, samples, offset, c.cfg.Score)
	rec := NewTakeRecord(ex.Name, audioPath, samples, offset, result)

	c.mu.Lock()
	if c.runID != run || c.phase != PhaseProcessing {
		c.mu.Unlock()
		return
	}
	c.take = &rec
	c.setPhaseLocked(PhaseReplay, nil)
	c.mu.Unlock()

	slog.Info("session: take scored",
		"take", rec.TakeID,
		"overall", fmt.Sprintf("%.1f%%", result.OverallPercent),
		"offset_ms", fmt.Sprintf("%.0f", offset.OffsetMs),
		"samples", len(samples))
}

// Acknowledge dismisses the replay screen. Calling it in any other phase is
// a programming fault; logged and ignored.
func (c *Controller) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseReplay {
		slog.Error("session: acknowledge outside replay", "phase", c.phase.String())
		return
	}
	c.setPhaseLocked(PhaseDone, nil)
}

func (c *Controller) durationReached(run uint64) {
	if c.stale(run, PhaseRecording) {
		return
	}
	c.Stop()
}

// failPreparing handles a recoverable resource-acquisition failure: phase
// returns to Idle, RunID bookkeeping stays intact, and the error surfaces
// on the events channel so the caller can retry.
func (c *Controller) failPreparing(run uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runID != run || c.phase != PhasePreparing {
		return
	}
	slog.Warn("session: prepare failed", "err", err)
	c.setPhaseLocked(PhaseIdle, err)
}

func (c *Controller) releaseRecorder() {
	if _, err := c.recorder.Stop(); err != nil {
		slog.Warn("session: recorder release", "err", err)
	}
}

// stale reports whether the run generation has moved on or the phase has
// left want.
func (c *Controller) stale(run uint64, want Phase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runID != run || c.phase != want
}

// setPhaseLocked transitions phase and emits the event. Callers hold mu;
// the event send never blocks.
func (c *Controller) setPhaseLocked(p Phase, err error) {
	c.phase = p
	select {
	case c.events <- Event{Phase: p, Err: err}:
	default:
		slog.Debug("session: event dropped", "phase", p.String())
	}
}
