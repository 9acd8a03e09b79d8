package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"news-shorts-pipeline/01_segment"
	"news-shorts-pipeline/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSegment struct{ seg types.Segment }

func (f fixedSegment) Next() (types.Segment, error) { return f.seg, nil }

type memHistory struct {
	mu      sync.Mutex
	ids     []string
	readErr error
}

func (h *memHistory) Seen() (map[string]bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.readErr != nil {
		return nil, h.readErr
	}
	m := make(map[string]bool)
	for _, id := range h.ids {
		m[id] = true
	}
	return m, nil
}

func (h *memHistory) Append(ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, ids...)
	return nil
}

type listScraper struct {
	items []types.NewsItem
	seen  map[string]bool
	calls int
}

func (s *listScraper) Scrape(_ context.Context, _ []types.Source, seen map[string]bool, limit int) []types.NewsItem {
	s.calls++
	s.seen = seen
	var out []types.NewsItem
	for _, it := range s.items {
		if !seen[it.ID] && len(out) < limit {
			out = append(out, it)
		}
	}
	return out
}

type fakeVisuals struct{ fail map[string]bool }

func (f fakeVisuals) Resolve(_ context.Context, item types.NewsItem, outPath string) (types.VisualResolutionResult, error) {
	if f.fail[item.ID] {
		return types.VisualResolutionResult{}, errors.New("canvas write failed")
	}
	return types.VisualResolutionResult{Provenance: types.ProvenanceStockSearch}, os.WriteFile(outPath, []byte("png"), 0644)
}

type fakeNarrator struct{ fail map[string]bool }

func (f fakeNarrator) Narrate(_ context.Context, text, outPath string) (float64, error) {
	for id := range f.fail {
		if strings.Contains(text, id) {
			return 0, errors.New("tts exhausted retries")
		}
	}
	return 5, os.WriteFile(outPath, []byte("mp3"), 0644)
}

type fakeRenderer struct{ fail map[string]bool }

func (f fakeRenderer) RenderClip(_ context.Context, spec types.ClipSpec, outPath string) error {
	if f.fail[spec.ItemID] {
		return errors.New("ffmpeg exited 1")
	}
	return os.WriteFile(outPath, []byte(spec.ItemID), 0644)
}

type fakeCompiler struct {
	err     error
	clips   []string
	closing string
}

func (f *fakeCompiler) Compile(_ context.Context, clips []string, closing, outPath string) error {
	f.clips, f.closing = clips, closing
	if f.err != nil {
		return f.err
	}
	var parts []string
	for _, c := range clips {
		data, err := os.ReadFile(c)
		if err != nil {
			return err
		}
		parts = append(parts, string(data))
	}
	return os.WriteFile(outPath, []byte(strings.Join(parts, ",")), 0644)
}

type fakeOutro struct{ err error }

func (f fakeOutro) Build(_ context.Context, workDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(workDir, "outro_final.mp4"), nil
}

type fakeDescriber struct{ titles []string }

func (f *fakeDescriber) Run(_ context.Context, titles []string, segment string) (*types.VideoMetadata, error) {
	f.titles = titles
	return &types.VideoMetadata{Title: segment + " News Briefing", Description: "Today's " + segment}, nil
}

type fakeUploader struct{ calls int }

func (f *fakeUploader) Run(_ context.Context, _ string, _ *types.VideoMetadata) (string, string, error) {
	f.calls++
	return "vid123", "https://www.youtube.com/shorts/vid123", nil
}

type env struct {
	deps     Deps
	opts     Options
	history  *memHistory
	compiler *fakeCompiler
	desc     *fakeDescriber
}

func newEnv(t *testing.T, n int) *env {
	t.Helper()
	root := t.TempDir()
	var items []types.NewsItem
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("u%d", i)
		items = append(items, types.NewsItem{ID: id, Title: "Title " + id, Summary: "about " + id})
	}
	e := &env{history: &memHistory{}, compiler: &fakeCompiler{}, desc: &fakeDescriber{}}
	e.deps = Deps{
		Segments:  fixedSegment{types.Segment{Name: "Top Stories"}},
		History:   e.history,
		Scraper:   &listScraper{items: items},
		Visuals:   fakeVisuals{},
		Narrator:  fakeNarrator{},
		Renderer:  fakeRenderer{},
		Compiler:  e.compiler,
		Outro:     fakeOutro{},
		Describer: e.desc,
	}
	e.opts = Options{
		HeadlinesLimit:  4,
		Workers:         3,
		OutputDir:       filepath.Join(root, "out"),
		WorkDir:         filepath.Join(root, "work"),
		LogsDir:         filepath.Join(root, "logs"),
		StateDir:        filepath.Join(root, "state"),
		DescriptionFile: "video_description.txt",
	}
	return e
}

func TestRunProducesVideoAndRecordsHistory(t *testing.T) {
	e := newEnv(t, 4)
	state, err := New(e.deps, e.opts).Run(context.Background())
	require.NoError(t, err)

	out := filepath.Join(e.opts.OutputDir, "news_Top_Stories.mp4")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "u1,u2,u3,u4", string(data))
	assert.Equal(t, out, state.VideoFile)

	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, e.history.ids)
	assert.Equal(t, []string{"Title u1", "Title u2", "Title u3", "Title u4"}, e.desc.titles)
	assert.True(t, strings.HasSuffix(e.compiler.closing, "outro_final.mp4"))

	desc, err := os.ReadFile(filepath.Join(e.opts.OutputDir, "video_description.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Today's Top Stories", string(desc))

	entries, err := os.ReadDir(e.opts.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "work dir must be removed")
	assert.NoFileExists(t, filepath.Join(e.opts.StateDir, "run.lock"))

	raw, err := os.ReadFile(filepath.Join(e.opts.LogsDir, "pipeline_state_"+state.RunID+".json"))
	require.NoError(t, err)
	var saved types.PipelineState
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "Top Stories", saved.Segment)
	assert.Len(t, saved.Clips, 4)
	assert.Empty(t, saved.Error)
}

func TestRunSkipsFailedItems(t *testing.T) {
	e := newEnv(t, 4)
	e.deps.Visuals = fakeVisuals{fail: map[string]bool{"u2": true}}
	e.deps.Narrator = fakeNarrator{fail: map[string]bool{"u3": true}}

	_, err := New(e.deps, e.opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u4"}, e.history.ids)
	assert.Len(t, e.compiler.clips, 2)
}

func TestRunSecondPassSkipsUsedItems(t *testing.T) {
	e := newEnv(t, 4)
	e.opts.HeadlinesLimit = 2

	_, err := New(e.deps, e.opts).Run(context.Background())
	require.NoError(t, err)
	_, err = New(e.deps, e.opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, e.history.ids)

	_, err = New(e.deps, e.opts).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Len(t, e.history.ids, 4)
}

func TestRunNoItemsLeavesNoOutput(t *testing.T) {
	e := newEnv(t, 0)
	state, err := New(e.deps, e.opts).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Empty(t, e.history.ids)
	assert.NoFileExists(t, filepath.Join(e.opts.OutputDir, "news_Top_Stories.mp4"))
	assert.Equal(t, ErrNoItems.Error(), state.Error)
}

func TestRunHistoryReadFailureStopsBeforeScraping(t *testing.T) {
	e := newEnv(t, 3)
	e.history.readErr = errors.New("no such table: history")
	scraper := e.deps.Scraper.(*listScraper)

	state, err := New(e.deps, e.opts).Run(context.Background())
	assert.ErrorContains(t, err, "load history")
	assert.NotErrorIs(t, err, ErrNoItems)
	assert.Zero(t, scraper.calls)
	assert.Empty(t, state.Items)
	assert.Empty(t, e.history.ids)
	assert.Nil(t, e.compiler.clips)
}

func TestRunAdvancesRotationWithoutItems(t *testing.T) {
	e := newEnv(t, 0)
	cursor := filepath.Join(e.opts.StateDir, "last_segment.txt")
	require.NoError(t, os.MkdirAll(e.opts.StateDir, 0755))
	require.NoError(t, os.WriteFile(cursor, []byte("Tech"), 0644))
	e.deps.Segments = segment.NewRotator([]types.Segment{
		{Name: "Top Stories"}, {Name: "Tech"}, {Name: "Finance"},
	}, cursor, "Top Stories")

	state, err := New(e.deps, e.opts).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Equal(t, "Finance", state.Segment)

	data, err := os.ReadFile(cursor)
	require.NoError(t, err)
	assert.Equal(t, "Finance", strings.TrimSpace(string(data)))

	_, err = New(e.deps, e.opts).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoItems)
	data, err = os.ReadFile(cursor)
	require.NoError(t, err)
	assert.Equal(t, "Top Stories", strings.TrimSpace(string(data)))
}

func TestRunUploadLogFailureIsNotFatal(t *testing.T) {
	e := newEnv(t, 2)
	uploader := &fakeUploader{}
	e.deps.Uploader = uploader
	// a file where the logs directory should be makes every log write fail
	e.opts.LogsDir = filepath.Join(t.TempDir(), "logs")
	require.NoError(t, os.WriteFile(e.opts.LogsDir, []byte("x"), 0644))

	state, err := New(e.deps, e.opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, uploader.calls)
	assert.Equal(t, "vid123", state.YouTubeID)
	assert.Equal(t, "https://www.youtube.com/shorts/vid123", state.YouTubeURL)
	assert.Len(t, e.history.ids, 2)
}

func TestRunCompileFailureKeepsHistory(t *testing.T) {
	e := newEnv(t, 3)
	e.compiler.err = errors.New("concat failed")

	_, err := New(e.deps, e.opts).Run(context.Background())
	assert.ErrorContains(t, err, "concat failed")
	assert.Empty(t, e.history.ids)
	assert.Nil(t, e.desc.titles)
}

func TestRunRenderFailureSkipsItem(t *testing.T) {
	e := newEnv(t, 3)
	e.deps.Renderer = fakeRenderer{fail: map[string]bool{"u2": true}}

	_, err := New(e.deps, e.opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3"}, e.history.ids)
	assert.Len(t, e.compiler.clips, 2)
}

func TestRunAllRendersFail(t *testing.T) {
	e := newEnv(t, 2)
	e.deps.Renderer = fakeRenderer{fail: map[string]bool{"u1": true, "u2": true}}

	_, err := New(e.deps, e.opts).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Empty(t, e.history.ids)
	assert.Nil(t, e.compiler.clips)
}

func TestRunOutroFailureIsNotFatal(t *testing.T) {
	e := newEnv(t, 2)
	e.deps.Outro = fakeOutro{err: errors.New("gif decode")}

	_, err := New(e.deps, e.opts).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, e.compiler.closing)
	assert.Len(t, e.history.ids, 2)
}

func TestRunDryRunStopsAfterResearch(t *testing.T) {
	e := newEnv(t, 3)
	e.opts.DryRun = true

	state, err := New(e.deps, e.opts).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, state.Items, 3)
	assert.Empty(t, e.history.ids)
	assert.Nil(t, e.compiler.clips)
}

func TestRunRefusesWhenLocked(t *testing.T) {
	e := newEnv(t, 1)
	require.NoError(t, os.MkdirAll(e.opts.StateDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.opts.StateDir, "run.lock"), []byte("1"), 0644))

	_, err := New(e.deps, e.opts).Run(context.Background())
	assert.Error(t, err)
	assert.Empty(t, e.history.ids)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "news_US_National.mp4", OutputName("US National"))
}
