package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tunelab/intone/internal/audio"
	"github.com/tunelab/intone/internal/config"
	"github.com/tunelab/intone/internal/exercise"
	"github.com/tunelab/intone/internal/mic"
	"github.com/tunelab/intone/internal/pitch"
	"github.com/tunelab/intone/internal/score"
	"github.com/tunelab/intone/internal/session"
	"github.com/tunelab/intone/internal/ui"
)

// Cadence of pitch readings pumped from the microphone.
const readingInterval = 25 * time.Millisecond

func initLogger() {
	level := slog.LevelInfo
	if os.Getenv("INTONE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(h))
}

func loadExercise(path string) (*exercise.Exercise, error) {
	if path == "" {
		return exercise.CMajorScale(), nil
	}
	return exercise.LoadSMF(path)
}

func referenceTones(ex *exercise.Exercise, sampleRate int) *audio.Buffer {
	tones := make([]audio.Tone, len(ex.Notes))
	for i, n := range ex.Notes {
		tones[i] = audio.Tone{StartSec: n.StartSec, EndSec: n.EndSec, Hz: n.TargetHz()}
	}
	return audio.RenderTones(tones, sampleRate, 0.5)
}

func newPracticeCmd() *cobra.Command {
	var exercisePath string
	var outPath string

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Sing an exercise against a reference melody and get scored",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if exercisePath == "" {
				exercisePath = cfg.ExercisePath
			}

			ex, err := loadExercise(exercisePath)
			if err != nil {
				return err
			}

			capturer, err := audio.NewPortAudioCapturer(cfg.BufferSize, cfg.SampleRate, cfg.Channels)
			if err != nil {
				return fmt.Errorf("open audio capture: %w", err)
			}
			defer capturer.Close()
			microphone := mic.New(capturer, pitch.NewFFTDetector(), readingInterval)

			player, err := audio.NewTonePlayer(referenceTones(ex, cfg.SampleRate))
			if err != nil {
				return fmt.Errorf("prepare reference playback: %w", err)
			}
			defer player.Close()

			ctrl := session.NewController(cfg.SessionConfig(), microphone, player)
			if err := ctrl.SetExercise(ex); err != nil {
				return err
			}

			return runUI(ctrl, ex, outPath)
		},
	}

	cmd.Flags().StringVarP(&exercisePath, "exercise", "e", "", "exercise MIDI file (default: built-in C major scale)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the scored take as JSON to this path")
	return cmd
}

// runUI runs the bubbletea program with pumps feeding controller events and
// live samples into it.
func runUI(ctrl *session.Controller, ex *exercise.Exercise, outPath string) error {
	p := tea.NewProgram(ui.NewModel(ctrl, ex.Name, ex.Duration()), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-ctrl.Events():
				p.Send(ui.PhaseMsg(ev))
				if ev.Phase == session.PhaseReplay && outPath != "" {
					if take, ok := ctrl.Take(); ok {
						if err := writeTake(outPath, take); err != nil {
							slog.Warn("write take", "path", outPath, "err", err)
						}
					}
				}
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case s := <-ctrl.Samples():
				p.Send(ui.SampleMsg(s))
			}
		}
	})

	_, err := p.Run()
	cancel()
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	return err
}

func writeTake(path string, take session.TakeRecord) error {
	data, err := json.MarshalIndent(take, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func newScoreCmd() *cobra.Command {
	var takePath string
	var exercisePath string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Re-score a previously saved take against an exercise",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			data, err := os.ReadFile(takePath)
			if err != nil {
				return err
			}
			var take session.TakeRecord
			if err := json.Unmarshal(data, &take); err != nil {
				return fmt.Errorf("parse take %s: %w", takePath, err)
			}

			if exercisePath == "" {
				exercisePath = cfg.ExercisePath
			}
			ex, err := loadExercise(exercisePath)
			if err != nil {
				return err
			}

			samples := take.Samples()
			scoreCfg := cfg.SessionConfig().Score
			offset := score.Align(ex, samples, scoreCfg)
			result := score.Score(ex, samples, offset, scoreCfg)

			fmt.Printf("take %s vs %s\n", take.TakeID, ex.Name)
			fmt.Printf("offset: %+.0fms (confidence %.2f)\n", offset.OffsetMs, offset.Confidence)
			fmt.Printf("overall: %.1f%%\n", result.OverallPercent)
			for _, nr := range result.PerNote {
				fmt.Printf("  %-4s %5.1f%%  hold %5.1f%%  best run %.2fs\n",
					pitch.MidiName(nr.Midi), nr.Percent, nr.Hold.HoldPercent, nr.Hold.MaxContinuousOnPitchSec)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&takePath, "take", "t", "", "take JSON written by practice --out")
	cmd.Flags().StringVarP(&exercisePath, "exercise", "e", "", "exercise MIDI file (default: built-in C major scale)")
	cmd.MarkFlagRequired("take")
	return cmd
}

func main() {
	initLogger()

	root := &cobra.Command{
		Use:   "intone",
		Short: "Vocal pitch trainer: sing against a reference, get scored",
	}
	root.AddCommand(newPracticeCmd(), newScoreCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
