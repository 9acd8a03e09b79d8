package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"news-shorts-pipeline/06_metadata"
	"news-shorts-pipeline/07_upload"
	"news-shorts-pipeline/config"
	"news-shorts-pipeline/scheduler"
	"news-shorts-pipeline/types"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoItems means every source came back empty or already used
var ErrNoItems = errors.New("no new items to process")

type SegmentPicker interface {
	Next() (types.Segment, error)
}

type History interface {
	Seen() (map[string]bool, error)
	Append(ids []string) error
}

type Scraper interface {
	Scrape(ctx context.Context, sources []types.Source, seen map[string]bool, limit int) []types.NewsItem
}

type VisualResolver interface {
	Resolve(ctx context.Context, item types.NewsItem, outPath string) (types.VisualResolutionResult, error)
}

type Narrator interface {
	Narrate(ctx context.Context, text, outPath string) (float64, error)
}

type ClipRenderer interface {
	RenderClip(ctx context.Context, spec types.ClipSpec, outPath string) error
}

type Compiler interface {
	Compile(ctx context.Context, clips []string, closing, outPath string) error
}

type OutroBuilder interface {
	Build(ctx context.Context, workDir string) (string, error)
}

type Describer interface {
	Run(ctx context.Context, titles []string, segment string) (*types.VideoMetadata, error)
}

type Uploader interface {
	Run(ctx context.Context, videoFile string, md *types.VideoMetadata) (string, string, error)
}

// Deps are the stage implementations. Outro and Uploader may be nil.
type Deps struct {
	Segments  SegmentPicker
	History   History
	Scraper   Scraper
	Visuals   VisualResolver
	Narrator  Narrator
	Renderer  ClipRenderer
	Compiler  Compiler
	Outro     OutroBuilder
	Describer Describer
	Uploader  Uploader
}

// Options are the run-level settings taken from config
type Options struct {
	HeadlinesLimit  int
	Workers         int
	OutputDir       string
	WorkDir         string
	LogsDir         string
	StateDir        string
	DescriptionFile string
	DryRun          bool
}

// OptionsFromConfig maps config sections onto run options
func OptionsFromConfig(cfg *config.Config, dryRun bool) Options {
	return Options{
		HeadlinesLimit:  cfg.Research.HeadlinesLimit,
		Workers:         cfg.Pipeline.Workers,
		OutputDir:       cfg.Paths.Output,
		WorkDir:         cfg.Paths.Work,
		LogsDir:         cfg.Paths.Logs,
		StateDir:        cfg.Paths.State,
		DescriptionFile: cfg.Metadata.DescriptionFile,
		DryRun:          dryRun,
	}
}

// Runner executes one end-to-end pipeline run
type Runner struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Runner{deps: deps, opts: opts}
}

// OutputName is the final video file name for a segment
func OutputName(segment string) string {
	return "news_" + strings.ReplaceAll(segment, " ", "_") + ".mp4"
}

// Run produces one video. History is only updated once the final video exists.
func (r *Runner) Run(ctx context.Context) (state *types.PipelineState, err error) {
	release, err := scheduler.Acquire(r.opts.StateDir)
	if err != nil {
		return nil, err
	}
	defer release()

	runID := uuid.NewString()[:8]
	state = &types.PipelineState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	log.Printf("🎬 News Shorts Pipeline starting — Run ID: %s", runID)

	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		if err != nil {
			state.Error = err.Error()
		}
		r.saveState(state)
	}()

	workDir := filepath.Join(r.opts.WorkDir, "news_shorts_"+runID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return state, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Printf("Warning: could not remove work dir %s: %v", workDir, rmErr)
		}
	}()

	// ─────────────────────────────────────────────
	// STAGE 1: Segment
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 1: Segment Rotation ━━━")
	segment, err := r.deps.Segments.Next()
	if err != nil {
		return state, fmt.Errorf("segment rotation: %w", err)
	}
	state.Segment = segment.Name

	// ─────────────────────────────────────────────
	// STAGE 2: Research
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Research ━━━")
	seen, err := r.deps.History.Seen()
	if err != nil {
		return state, fmt.Errorf("load history: %w", err)
	}
	items := r.deps.Scraper.Scrape(ctx, segment.Sources, seen, r.opts.HeadlinesLimit)
	if len(items) == 0 {
		return state, ErrNoItems
	}
	state.Items = items
	for i, it := range items {
		log.Printf("  %d. %s (%s)", i+1, it.Title, it.Source)
	}
	if r.opts.DryRun {
		log.Println("Dry run: stopping after research")
		return state, nil
	}

	// ─────────────────────────────────────────────
	// STAGE 3: Visuals + Narration
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 3: Visuals & Narration ━━━")
	specs := r.prepare(ctx, items, workDir)
	if len(specs) == 0 {
		return state, fmt.Errorf("every item failed preparation: %w", ErrNoItems)
	}

	// ─────────────────────────────────────────────
	// STAGE 4: Render
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 4: Rendering ━━━")
	specs = r.render(ctx, specs)
	if len(specs) == 0 {
		return state, fmt.Errorf("every clip failed to render: %w", ErrNoItems)
	}
	state.Clips = specs

	closing := ""
	if r.deps.Outro != nil {
		path, oerr := r.deps.Outro.Build(ctx, workDir)
		if oerr != nil {
			log.Printf("⚠️  Outro failed: %v — continuing without outro", oerr)
		} else {
			closing = path
		}
	}

	clipPaths := make([]string, len(specs))
	for i, s := range specs {
		clipPaths[i] = s.ClipPath
	}
	if err := os.MkdirAll(r.opts.OutputDir, 0755); err != nil {
		return state, fmt.Errorf("create output dir: %w", err)
	}
	finalVideo := filepath.Join(r.opts.OutputDir, OutputName(segment.Name))
	if err := r.deps.Compiler.Compile(ctx, clipPaths, closing, finalVideo); err != nil {
		return state, err
	}
	state.VideoFile = finalVideo

	ids := make([]string, len(specs))
	titles := make([]string, len(specs))
	for i, s := range specs {
		ids[i] = s.ItemID
		titles[i] = s.Title
	}
	if err := r.deps.History.Append(ids); err != nil {
		return state, fmt.Errorf("record history: %w", err)
	}
	log.Printf("✅ Recorded %d item(s) in history", len(ids))

	// ─────────────────────────────────────────────
	// STAGE 5: Metadata
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 5: Description & Hashtags ━━━")
	md, err := r.deps.Describer.Run(ctx, titles, segment.Name)
	if err != nil {
		log.Printf("⚠️  Description failed: %v", err)
		return state, nil
	}
	descPath := filepath.Join(r.opts.OutputDir, r.opts.DescriptionFile)
	if err := metadata.Write(descPath, md.Description); err != nil {
		log.Printf("⚠️  %v", err)
	} else {
		state.DescriptionFile = descPath
	}

	// ─────────────────────────────────────────────
	// STAGE 6: Upload
	// ─────────────────────────────────────────────
	if r.deps.Uploader == nil {
		return state, nil
	}
	log.Println("\n━━━ STAGE 6: YouTube Upload ━━━")
	videoID, videoURL, err := r.deps.Uploader.Run(ctx, finalVideo, md)
	if err != nil {
		return state, fmt.Errorf("upload: %w", err)
	}
	state.YouTubeID = videoID
	state.YouTubeURL = videoURL
	if err := upload.LogUpload(videoID, videoURL, finalVideo, r.opts.LogsDir, md); err != nil {
		log.Printf("Warning: could not save upload log: %v", err)
	}
	return state, nil
}

// prepare resolves a visual and narration per item. Failed items are dropped;
// the rest keep their selection order.
func (r *Runner) prepare(ctx context.Context, items []types.NewsItem, workDir string) []types.ClipSpec {
	slots := make([]*types.ClipSpec, len(items))
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			spec, err := r.prepareItem(ctx, i, item, workDir)
			if err != nil {
				log.Printf("⚠️  Skipping %s: %v", item.ID, err)
				return nil
			}
			slots[i] = spec
			return nil
		})
	}
	g.Wait()

	var specs []types.ClipSpec
	for _, s := range slots {
		if s != nil {
			specs = append(specs, *s)
		}
	}
	return specs
}

func (r *Runner) prepareItem(ctx context.Context, i int, item types.NewsItem, workDir string) (*types.ClipSpec, error) {
	log.Printf("--- Item %d: %s ---", i+1, item.Title)
	visualPath := filepath.Join(workDir, fmt.Sprintf("visual_%d.png", i))
	res, err := r.deps.Visuals.Resolve(ctx, item, visualPath)
	if err != nil {
		return nil, fmt.Errorf("visuals: %w", err)
	}

	audioPath := filepath.Join(workDir, fmt.Sprintf("audio_%d.mp3", i))
	dur, err := r.deps.Narrator.Narrate(ctx, item.NarrationText(), audioPath)
	if err != nil {
		return nil, fmt.Errorf("narration: %w", err)
	}

	return &types.ClipSpec{
		ItemID:     item.ID,
		Title:      item.Title,
		VisualPath: visualPath,
		AudioPath:  audioPath,
		Duration:   dur,
		Provenance: res.Provenance,
		ClipPath:   filepath.Join(workDir, fmt.Sprintf("clip_%d.mp4", i)),
	}, nil
}

// render encodes every clip. Clips that fail are dropped in place.
func (r *Runner) render(ctx context.Context, specs []types.ClipSpec) []types.ClipSpec {
	ok := make([]bool, len(specs))
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := r.deps.Renderer.RenderClip(ctx, spec, spec.ClipPath); err != nil {
				log.Printf("⚠️  Skipping %s: %v", spec.ItemID, err)
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	g.Wait()

	var out []types.ClipSpec
	for i, s := range specs {
		if ok[i] {
			out = append(out, s)
		}
	}
	return out
}

func (r *Runner) saveState(state *types.PipelineState) {
	if err := os.MkdirAll(r.opts.LogsDir, 0755); err != nil {
		log.Printf("Warning: could not create logs dir: %v", err)
		return
	}
	saveJSON(filepath.Join(r.opts.LogsDir, fmt.Sprintf("pipeline_state_%s.json", state.RunID)), state)
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
