package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tunelab/intone/internal/pitch"
	"github.com/tunelab/intone/internal/session"
)

// Constants for UI behavior
const (
	// Width of the cents meter in characters (odd, center = in tune)
	centsMeterWidth = 21

	// Width of the rolling pitch trace under the meter
	traceWidth = 40
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	noteStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#005F87")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333333")).
			Padding(1, 3).
			MarginBottom(1)

	inTuneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	offPitchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F5F"))

	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFF87"))
)

// PhaseMsg carries a controller phase change.
type PhaseMsg session.Event

// SampleMsg carries a live stabilized sample.
type SampleMsg pitch.Sample

// Model renders the practice session: live note + cents meter while
// recording, the scored report in replay.
type Model struct {
	controller *session.Controller
	exName     string
	exDuration float64

	phase   session.Phase
	lastErr error
	sample  pitch.Sample
	haveS   bool
}

// NewModel creates the UI bound to a session controller.
func NewModel(controller *session.Controller, exName string, exDuration float64) Model {
	return Model{
		controller: controller,
		exName:     exName,
		exDuration: exDuration,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.controller.Stop()
			return m, tea.Quit
		case " ":
			switch m.phase {
			case session.PhaseIdle, session.PhaseDone:
				if err := m.controller.Start(); err != nil {
					m.lastErr = err
				}
			case session.PhasePreparing, session.PhaseRecording:
				m.controller.Stop()
			}
		case "enter":
			if m.phase == session.PhaseReplay {
				m.controller.Acknowledge()
			}
		}

	case PhaseMsg:
		m.phase = msg.Phase
		m.lastErr = msg.Err
		if msg.Phase == session.PhaseRecording {
			m.haveS = false
		}

	case SampleMsg:
		m.sample = pitch.Sample(msg)
		m.haveS = true
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("intone - " + m.exName))
	b.WriteString("\n")

	switch m.phase {
	case session.PhaseIdle, session.PhaseDone:
		if m.lastErr != nil {
			b.WriteString(offPitchStyle.Render("error: " + m.lastErr.Error()))
			b.WriteString("\n")
		}
		b.WriteString(infoStyle.Render("Press SPACE to sing a take"))
	case session.PhasePreparing:
		b.WriteString(infoStyle.Render("Starting microphone and reference..."))
	case session.PhaseRecording:
		b.WriteString(m.recordingView())
	case session.PhaseProcessing:
		b.WriteString(infoStyle.Render("Scoring your take..."))
	case session.PhaseReplay:
		b.WriteString(m.replayView())
	}

	b.WriteString("\n\n")
	b.WriteString(infoStyle.Render("SPACE start/stop | ENTER dismiss score | q quit"))
	return b.String()
}

func (m Model) recordingView() string {
	var b strings.Builder

	now := m.controller.Clock().NowSeconds()
	b.WriteString(infoStyle.Render(fmt.Sprintf("%.1fs / %.1fs", now, m.exDuration)))
	b.WriteString("\n")

	if !m.haveS || !m.sample.Voiced {
		b.WriteString(noteStyle.Render(" -- "))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("Listening..."))
		return b.String()
	}

	b.WriteString(noteStyle.Render(pitch.MidiName(m.sample.Midi)))
	b.WriteString("\n")
	b.WriteString(centsMeter(m.sample.CentsOff))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("%.1f Hz | %+.0f cents", m.sample.Hz, m.sample.CentsOff)))
	if trace := pitchTrace(m.controller.DisplayWindow(), traceWidth); trace != "" {
		b.WriteString("\n")
		b.WriteString(infoStyle.Render(trace))
	}
	return b.String()
}

// pitchTrace renders the recent contour, one character per captured sample,
// newest on the right: '|' in tune, '+' sharp, '-' flat, '.' unvoiced.
func pitchTrace(samples []pitch.Sample, width int) string {
	if len(samples) == 0 {
		return ""
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	var b strings.Builder
	for _, s := range samples {
		switch {
		case !s.Voiced:
			b.WriteString(".")
		case s.CentsOff >= 10:
			b.WriteString("+")
		case s.CentsOff <= -10:
			b.WriteString("-")
		default:
			b.WriteString("|")
		}
	}
	return b.String()
}

func (m Model) replayView() string {
	take, ok := m.controller.Take()
	if !ok {
		return infoStyle.Render("No take data")
	}

	var b strings.Builder
	b.WriteString(scoreStyle.Render(fmt.Sprintf("Score: %.1f%%", take.Score.OverallPercent)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("offset %+.0fms (confidence %.2f)",
		take.Offset.OffsetMs, take.Offset.Confidence)))
	b.WriteString("\n\n")

	for _, nr := range take.Score.PerNote {
		line := fmt.Sprintf("%-4s %5.1f%%  hold %4.1f%%  best run %.2fs",
			pitch.MidiName(nr.Midi), nr.Percent, nr.Hold.HoldPercent, nr.Hold.MaxContinuousOnPitchSec)
		if nr.Hold.DriftCentsPerSec != nil {
			line += fmt.Sprintf("  drift %+.1fc/s", *nr.Hold.DriftCentsPerSec)
		}
		if nr.Percent >= 80 {
			b.WriteString(inTuneStyle.Render(line))
		} else {
			b.WriteString(offPitchStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// centsMeter renders a fixed-width meter with a cursor at the current cents
// offset (-50..+50 maps across the full width).
func centsMeter(cents float64) string {
	pos := int((cents + 50) / 100 * float64(centsMeterWidth-1))
	if pos < 0 {
		pos = 0
	}
	if pos >= centsMeterWidth {
		pos = centsMeterWidth - 1
	}

	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < centsMeterWidth; i++ {
		switch {
		case i == pos:
			b.WriteString("o")
		case i == centsMeterWidth/2:
			b.WriteString("|")
		default:
			b.WriteString("-")
		}
	}
	b.WriteString("]")

	if cents > -10 && cents < 10 {
		return inTuneStyle.Render(b.String())
	}
	return b.String()
}
