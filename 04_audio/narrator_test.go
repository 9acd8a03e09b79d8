package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipDuration(t *testing.T) {
	assert.InDelta(t, 8.7, ClipDuration(7.2, 3, 1.5), 1e-9)
	assert.InDelta(t, 3.0, ClipDuration(0.8, 3, 1.5), 1e-9)
	assert.InDelta(t, 5.0, ClipDuration(2.0, 5, 1.5), 1e-9)
}

type fakeSynth struct {
	err   error
	texts []string
}

func (f *fakeSynth) Synthesize(_ context.Context, text, outPath string) error {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("ID3"), 0644)
}

type fakeProbe struct {
	dur float64
	err error
}

func (p fakeProbe) Run(context.Context, ...string) error { return nil }
func (p fakeProbe) Duration(context.Context, string) (float64, error) {
	return p.dur, p.err
}

func TestNarrate(t *testing.T) {
	synth := &fakeSynth{}
	n := NewNarrator(synth, fakeProbe{dur: 7.2}, 3, 1.5, time.Second)

	got, err := n.Narrate(context.Background(), "Storm hits. Residents told to stay inside.", filepath.Join(t.TempDir(), "audio_0.mp3"))
	require.NoError(t, err)
	assert.InDelta(t, 8.7, got, 1e-9)
	assert.Equal(t, []string{"Storm hits. Residents told to stay inside."}, synth.texts)
}

func TestNarrateFailures(t *testing.T) {
	out := filepath.Join(t.TempDir(), "a.mp3")

	_, err := NewNarrator(&fakeSynth{err: errors.New("voice unavailable")}, fakeProbe{dur: 1}, 3, 1.5, 0).
		Narrate(context.Background(), "text", out)
	assert.ErrorContains(t, err, "voice unavailable")

	_, err = NewNarrator(&fakeSynth{}, fakeProbe{err: errors.New("ffprobe missing")}, 3, 1.5, 0).
		Narrate(context.Background(), "text", out)
	assert.ErrorContains(t, err, "measure narration")

	_, err = NewNarrator(&fakeSynth{}, fakeProbe{dur: 1}, 3, 1.5, 0).
		Narrate(context.Background(), "  ", out)
	assert.Error(t, err)
}

func TestCommandLine(t *testing.T) {
	s := &CommandSynthesizer{command: "edge-tts", voice: "en-US-AriaNeural"}
	name, args := s.commandLine("hello", "/tmp/a.mp3")
	assert.Equal(t, "edge-tts", name)
	assert.Equal(t, []string{"--voice", "en-US-AriaNeural", "--text", "hello", "--write-media", "/tmp/a.mp3"}, args)

	s.command = "/opt/tts/speak.py"
	name, args = s.commandLine("hello", "/tmp/a.mp3")
	assert.Equal(t, "python3", name)
	assert.Equal(t, []string{"/opt/tts/speak.py", "--text", "hello", "--output", "/tmp/a.mp3"}, args)
}

func TestSynthesizeRetriesThenFails(t *testing.T) {
	s := &CommandSynthesizer{command: "/nonexistent/tts-binary", retries: 3, backoff: time.Millisecond}
	err := s.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "a.mp3"))
	assert.Error(t, err)
}
