package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/ffmpeg"
)

// Poster draws large centred lines on a blank canvas
type Poster interface {
	Poster(lines []string, size float64, top, step int, outPath string) error
}

// Speaker synthesizes a short narration line
type Speaker interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// outro layout on a 1920px tall canvas
const (
	outroFontSize = 150
	outroTop      = 400
	outroStep     = 180
)

// Outro builds the closing "like & subscribe" clip
type Outro struct {
	ff           ffmpeg.Runner
	poster       Poster
	speaker      Speaker
	speakTimeout time.Duration
	oc           config.OutroConfig
	renderer     *Renderer
}

// NewOutro wires the outro builder. speakTimeout bounds narration synthesis;
// the encode is bounded by the renderer's timeout. Zero disables either bound.
func NewOutro(ff ffmpeg.Runner, poster Poster, speaker Speaker, speakTimeout time.Duration, oc config.OutroConfig, renderer *Renderer) *Outro {
	return &Outro{ff: ff, poster: poster, speaker: speaker, speakTimeout: speakTimeout, oc: oc, renderer: renderer}
}

// Build writes the outro clip into workDir. It returns "" without error when
// the outro is disabled or its GIF is missing.
func (o *Outro) Build(ctx context.Context, workDir string) (string, error) {
	if !o.oc.Enabled {
		return "", nil
	}
	if _, err := os.Stat(o.oc.GIFPath); errors.Is(err, os.ErrNotExist) {
		log.Printf("[render] Outro GIF %q not found. Skipping outro.", o.oc.GIFPath)
		return "", nil
	}
	log.Println("[render] Creating 'Like & Subscribe' outro clip...")

	audioPath := filepath.Join(workDir, "outro_audio.mp3")
	imagePath := filepath.Join(workDir, "outro_image.png")
	outPath := filepath.Join(workDir, "outro_final.mp4")

	if err := o.speak(ctx, audioPath); err != nil {
		return "", fmt.Errorf("outro narration: %w", err)
	}

	scale := float64(o.renderer.height) / 1920.0
	if err := o.poster.Poster(o.oc.Lines, outroFontSize*scale, int(outroTop*scale), int(outroStep*scale), imagePath); err != nil {
		return "", fmt.Errorf("outro image: %w", err)
	}

	gifWidth := o.oc.GIFWidth
	if gifWidth <= 0 {
		gifWidth = 450
	}
	filter := fmt.Sprintf(
		"[2:v]scale=%d:-1[gif];[0:v][gif]overlay=(W-w)/2:H/2-h/2+100:shortest=1,format=yuv420p[v];[1:a]apad[a]",
		gifWidth,
	)
	duration := strconv.FormatFloat(o.oc.Duration, 'f', 3, 64)

	args := []string{
		"-loop", "1", "-i", imagePath,
		"-i", audioPath,
		"-ignore_loop", "0", "-i", o.oc.GIFPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "[a]",
	}
	args = append(args, o.renderer.encodeArgs()...)
	args = append(args, "-t", duration, outPath)

	if err := o.encode(ctx, args); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("outro encode: %w", err)
	}
	return outPath, nil
}

func (o *Outro) speak(ctx context.Context, audioPath string) error {
	if o.speakTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.speakTimeout)
		defer cancel()
	}
	return o.speaker.Synthesize(ctx, o.oc.Narration, audioPath)
}

func (o *Outro) encode(ctx context.Context, args []string) error {
	if t := o.renderer.rc.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return o.ff.Run(ctx, args...)
}
