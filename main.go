package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"news-shorts-pipeline/01_segment"
	"news-shorts-pipeline/02_research"
	"news-shorts-pipeline/03_visuals"
	"news-shorts-pipeline/04_audio"
	"news-shorts-pipeline/05_render"
	"news-shorts-pipeline/06_metadata"
	"news-shorts-pipeline/07_upload"
	"news-shorts-pipeline/config"
	"news-shorts-pipeline/ffmpeg"
	"news-shorts-pipeline/nlp"
	"news-shorts-pipeline/pipeline"
	"news-shorts-pipeline/scheduler"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $NEWS_SHORTS_CONFIG or config.yaml)")
	daemon := flag.Bool("schedule", false, "run on the configured cron schedule instead of once")
	dryRun := flag.Bool("dry-run", false, "stop after selecting items")
	initConfig := flag.Bool("init-config", false, "write a starter config and exit")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = os.Getenv("NEWS_SHORTS_CONFIG")
	}
	if path == "" {
		path = config.DefaultPath
	}

	if *initConfig {
		if err := config.WriteTemplate(path); err != nil {
			log.Fatalf("Failed to write config template: %v", err)
		}
		log.Printf("📝 Wrote starter config to %s", path)
		return
	}

	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		if werr := config.WriteTemplate(path); werr != nil {
			log.Fatalf("Config %s missing and template could not be written: %v", path, werr)
		}
		log.Fatalf("Config %s was missing; a template was written. Edit it and re-run.", path)
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	runner, cleanup, err := build(cfg, *dryRun)
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *daemon {
		sched, err := scheduler.New(cfg.Schedule, func(ctx context.Context) { runOnce(ctx, runner) })
		if err != nil {
			log.Fatalf("Invalid schedule: %v", err)
		}
		log.Printf("⏰ Daemon mode: %q (%s)", cfg.Schedule.Cron, sched.Location())
		sched.Run(ctx)
		return
	}

	if err := runOnce(ctx, runner); err != nil {
		cleanup()
		os.Exit(1)
	}
}

// runOnce executes a run and logs its outcome. No new items is not a failure.
func runOnce(ctx context.Context, runner *pipeline.Runner) error {
	state, err := runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrNoItems):
		log.Println("ℹ️  No new items to process. Nothing produced.")
		return nil
	case err != nil:
		log.Printf("❌ Pipeline failed: %v", err)
		return err
	}
	if state.VideoFile != "" {
		log.Printf("✅ Pipeline complete! Video: %s", state.VideoFile)
	}
	if state.YouTubeURL != "" {
		log.Printf("📺 Published: %s", state.YouTubeURL)
	}
	return nil
}

// build wires every stage from config. Missing binaries are fatal here, before any scraping.
func build(cfg *config.Config, dryRun bool) (*pipeline.Runner, func(), error) {
	ff, err := ffmpeg.New()
	if err != nil {
		return nil, nil, err
	}
	extractor, err := nlp.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	scraper, err := research.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	history, err := research.OpenHistory(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := history.Close(); err != nil {
			log.Printf("Warning: closing history: %v", err)
		}
	}

	resolver, err := visuals.New(cfg, extractor)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	narrator, err := audio.New(cfg, ff)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	speaker, err := audio.NewCommandSynthesizer(cfg.Audio)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	renderer, err := render.New(cfg, ff)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	deps := pipeline.Deps{
		Segments:  segment.New(cfg),
		History:   history,
		Scraper:   scraper,
		Visuals:   resolver,
		Narrator:  narrator,
		Renderer:  renderer,
		Compiler:  render.NewCompiler(ff, cfg.Render.Timeout),
		Outro:     render.NewOutro(ff, resolver.Canvas(), speaker, cfg.Audio.Timeout, cfg.Outro, renderer),
		Describer: metadata.New(cfg, extractor),
	}
	if cfg.Upload.Enabled {
		deps.Uploader = upload.New(cfg)
	}
	return pipeline.New(deps, pipeline.OptionsFromConfig(cfg, dryRun)), cleanup, nil
}
