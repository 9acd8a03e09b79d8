package audio

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/ffmpeg"
)

// Synthesizer turns text into a spoken audio file
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// Narrator synthesizes narration and derives the clip duration from it
type Narrator struct {
	synth   Synthesizer
	probe   ffmpeg.Runner
	minDur  float64
	slack   float64
	timeout time.Duration
}

// New creates a Narrator using TTS_COMMAND or edge-tts
func New(cfg *config.Config, probe ffmpeg.Runner) (*Narrator, error) {
	synth, err := NewCommandSynthesizer(cfg.Audio)
	if err != nil {
		return nil, err
	}
	return NewNarrator(synth, probe, cfg.Audio.MinClipDuration, cfg.Audio.Slack, cfg.Audio.Timeout), nil
}

func NewNarrator(synth Synthesizer, probe ffmpeg.Runner, minDur, slack float64, timeout time.Duration) *Narrator {
	return &Narrator{synth: synth, probe: probe, minDur: minDur, slack: slack, timeout: timeout}
}

// Narrate writes the spoken text to outPath and returns the clip duration it needs
func (n *Narrator) Narrate(ctx context.Context, text, outPath string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("empty narration text")
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.synth.Synthesize(ctx, text, outPath); err != nil {
		return 0, fmt.Errorf("synthesize: %w", err)
	}
	dur, err := n.probe.Duration(ctx, outPath)
	if err != nil {
		return 0, fmt.Errorf("measure narration: %w", err)
	}

	clip := ClipDuration(dur, n.minDur, n.slack)
	log.Printf("[audio] Narration %.2fs -> clip %.2fs (%s)", dur, clip, outPath)
	return clip, nil
}

// ClipDuration pads the narration by slack and enforces the minimum clip length
func ClipDuration(narration, minDur, slack float64) float64 {
	return math.Max(minDur, narration+slack)
}

// CommandSynthesizer shells out to edge-tts or a custom TTS command
type CommandSynthesizer struct {
	command string
	voice   string
	retries int
	backoff time.Duration
}

// NewCommandSynthesizer picks the configured TTS command, falling back to edge-tts on PATH.
// A custom command must accept: --text "..." --output path/to/file.mp3
func NewCommandSynthesizer(ac config.AudioConfig) (*CommandSynthesizer, error) {
	cmd := strings.TrimSpace(ac.TTSCommand)
	if cmd == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			return nil, fmt.Errorf("no TTS engine found. Set TTS_COMMAND in .env or install edge-tts: pip install edge-tts")
		}
		cmd = "edge-tts"
		log.Println("[audio] Using edge-tts as TTS engine")
	}
	retries := ac.Retries
	if retries <= 0 {
		retries = 1
	}
	return &CommandSynthesizer{command: cmd, voice: ac.Voice, retries: retries, backoff: 2 * time.Second}, nil
}

func (s *CommandSynthesizer) Synthesize(ctx context.Context, text, outPath string) error {
	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		name, args := s.commandLine(text, outPath)
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err = cmd.Run(); err == nil {
			if st, statErr := os.Stat(outPath); statErr == nil && st.Size() > 0 {
				return nil
			}
			err = fmt.Errorf("tts produced no audio at %s", outPath)
		}
		if attempt == s.retries {
			break
		}
		log.Printf("[audio] TTS attempt %d failed: %v, retrying...", attempt, err)
		select {
		case <-time.After(time.Duration(attempt) * s.backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (s *CommandSynthesizer) commandLine(text, outPath string) (string, []string) {
	switch {
	case s.command == "edge-tts":
		return "edge-tts", []string{"--voice", s.voice, "--text", text, "--write-media", outPath}
	case strings.HasSuffix(s.command, ".py"):
		return "python3", []string{s.command, "--text", text, "--output", outPath}
	default:
		return s.command, []string{"--text", text, "--output", outPath}
	}
}
