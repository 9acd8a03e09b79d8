package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"news-shorts-pipeline/ffmpeg"
)

var ErrNoClips = errors.New("no clips to compile")

// Compiler joins rendered clips with the concat demuxer
type Compiler struct {
	ff      ffmpeg.Runner
	timeout time.Duration
}

func NewCompiler(ff ffmpeg.Runner, timeout time.Duration) *Compiler {
	return &Compiler{ff: ff, timeout: timeout}
}

// Compile concatenates clips (then closing, when it exists) into outPath with
// stream copy. On failure no output file is left behind.
func (c *Compiler) Compile(ctx context.Context, clips []string, closing, outPath string) error {
	if len(clips) == 0 {
		return ErrNoClips
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lines []string
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return err
		}
		lines = append(lines, ffmpeg.ConcatLine(abs))
	}
	if closing != "" {
		if _, err := os.Stat(closing); err != nil {
			log.Printf("[render] Closing clip %s missing, skipping it", closing)
		} else {
			abs, _ := filepath.Abs(closing)
			lines = append(lines, ffmpeg.ConcatLine(abs))
		}
	}

	listFile := filepath.Join(filepath.Dir(clips[0]), "concat_list.txt")
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}

	log.Printf("[render] Concatenating %d clip(s) -> %s", len(lines), outPath)
	err := c.ff.Run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-movflags", "+faststart",
		outPath,
	)
	if err != nil {
		if rmErr := os.Remove(outPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Printf("[render] Could not remove partial output %s: %v", outPath, rmErr)
		}
		return fmt.Errorf("compile final video: %w", err)
	}
	log.Printf("[render] ✅ Final video compiled at: %s", outPath)
	return nil
}
