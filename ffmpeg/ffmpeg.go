package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// maxDiagnostic bounds how much of ffmpeg's stderr is kept in errors
const maxDiagnostic = 2000

// Runner is the media encode/inspect primitive every stage shells out through
type Runner interface {
	// Run executes ffmpeg with args and returns stderr diagnostics on failure
	Run(ctx context.Context, args ...string) error
	// Duration returns a media file's duration in seconds
	Duration(ctx context.Context, path string) (float64, error)
}

// Executor runs the real ffmpeg / ffprobe binaries
type Executor struct {
	FFmpegPath  string
	FFprobePath string
}

// New locates ffmpeg and ffprobe on PATH
func New() (*Executor, error) {
	ff, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}
	fp, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found on PATH: %w", err)
	}
	return &Executor{FFmpegPath: ff, FFprobePath: fp}, nil
}

// Run executes ffmpeg. -y and quiet logging are prepended.
func (e *Executor) Run(ctx context.Context, args ...string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, e.FFmpegPath, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &Error{Err: err, Diagnostic: tail(stderr.String(), maxDiagnostic)}
	}
	return nil
}

// Duration uses ffprobe to get accurate duration in seconds
func (e *Executor) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, &Error{Err: err, Diagnostic: tail(stderr.String(), maxDiagnostic)}
	}
	return ParseDuration(string(out))
}

// ParseDuration parses ffprobe's bare duration output
func ParseDuration(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe returned no duration")
	}
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if dur <= 0 {
		return 0, fmt.Errorf("non-positive duration %.3f", dur)
	}
	return dur, nil
}

// Error carries the tool's diagnostic output along with the exit error
type Error struct {
	Err        error
	Diagnostic string
}

func (e *Error) Error() string {
	if e.Diagnostic == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Diagnostic)
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic extracts ffmpeg stderr from an error chain, if any
func Diagnostic(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Diagnostic
	}
	return ""
}

// ConcatLine formats one entry of a concat demuxer list
func ConcatLine(path string) string {
	return fmt.Sprintf("file '%s'", strings.ReplaceAll(path, "'", `'\''`))
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
