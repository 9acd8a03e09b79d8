package render

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/ffmpeg"
	"news-shorts-pipeline/types"
)

// audioRate keeps every clip's audio stream identical so concat can stream-copy
const audioRate = "44100"

// Renderer turns a still canvas plus narration into one pan/zoom clip
type Renderer struct {
	ff      ffmpeg.Runner
	rc      config.RenderConfig
	width   int
	height  int
	motions []Motion

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Renderer from config
func New(cfg *config.Config, ff ffmpeg.Runner) (*Renderer, error) {
	return NewRenderer(ff, cfg.Render, cfg.Canvas.Width, cfg.Canvas.Height, rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewRenderer(ff ffmpeg.Runner, rc config.RenderConfig, width, height int, rng *rand.Rand) (*Renderer, error) {
	motions, err := LookupMotions(rc.Motions)
	if err != nil {
		return nil, err
	}
	if rc.FPS <= 0 {
		return nil, fmt.Errorf("render.fps must be positive")
	}
	return &Renderer{ff: ff, rc: rc, width: width, height: height, motions: motions, rng: rng}, nil
}

// RenderClip encodes spec's visual and narration into outPath.
// The clip runs for spec.Duration; narration is padded with silence to fill it.
func (r *Renderer) RenderClip(ctx context.Context, spec types.ClipSpec, outPath string) error {
	if spec.Duration <= 0 {
		return fmt.Errorf("clip %s: non-positive duration %.3f", spec.ItemID, spec.Duration)
	}
	if r.rc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.rc.Timeout)
		defer cancel()
	}

	frames := Frames(spec.Duration, r.rc.FPS)
	motion := r.pick()
	filter := fmt.Sprintf("[0:v]%s,format=yuv420p[v];[1:a]apad[a]",
		ZoompanFilter(motion, frames, r.rc.FPS, r.width, r.height, r.rc.ZoomCeiling))

	log.Printf("[render] Clip %s: %.2fs, %d frames, motion %s", truncate(spec.Title, 50), spec.Duration, frames, motion.Name)

	args := []string{
		"-i", spec.VisualPath,
		"-i", spec.AudioPath,
		"-filter_complex", filter,
		"-map", "[v]",
		"-map", "[a]",
	}
	args = append(args, r.encodeArgs()...)
	args = append(args,
		"-frames:v", strconv.Itoa(frames),
		"-shortest",
		outPath,
	)

	if err := r.ff.Run(ctx, args...); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("render clip %s: %w", spec.ItemID, err)
	}
	return nil
}

// encodeArgs are shared by every clip so they concatenate without re-encoding
func (r *Renderer) encodeArgs() []string {
	return []string{
		"-c:v", r.rc.VideoCodec,
		"-preset", r.rc.Preset,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(r.rc.FPS),
		"-c:a", r.rc.AudioCodec,
		"-b:a", r.rc.AudioBitrate,
		"-ar", audioRate,
		"-ac", "2",
	}
}

func (r *Renderer) pick() Motion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.motions[r.rng.Intn(len(r.motions))]
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "..."
}
