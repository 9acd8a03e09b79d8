package segment

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"news-shorts-pipeline/config"
	"news-shorts-pipeline/types"
)

// Rotator advances a persisted cursor over the configured segments
type Rotator struct {
	segments []types.Segment
	path     string
	resetTo  string
}

// New creates a Rotator from config
func New(cfg *config.Config) *Rotator {
	return NewRotator(cfg.Segments, cfg.Paths.LastSegment, cfg.Rotation.ResetTo)
}

// NewRotator builds a Rotator over segments persisting its cursor at path.
// resetTo names the segment used when no valid cursor exists; empty means the first.
func NewRotator(segments []types.Segment, path, resetTo string) *Rotator {
	return &Rotator{segments: segments, path: path, resetTo: resetTo}
}

// Next selects the segment for this run and persists it before returning
func (r *Rotator) Next() (types.Segment, error) {
	if len(r.segments) == 0 {
		return types.Segment{}, config.ErrNoSegments
	}

	last, err := r.Last()
	if err != nil {
		return types.Segment{}, err
	}

	next := r.successor(last)
	seg := r.segments[next]

	if err := r.save(seg.Name); err != nil {
		return types.Segment{}, fmt.Errorf("persist segment cursor: %w", err)
	}
	log.Printf("[segment] Last: %q -> selected: %q", last, seg.Name)
	return seg, nil
}

// Last returns the persisted cursor value, empty when none exists
func (r *Rotator) Last() (string, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read segment cursor: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (r *Rotator) successor(last string) int {
	idx := r.indexOf(last)
	if idx < 0 {
		if start := r.indexOf(r.resetTo); r.resetTo != "" && start >= 0 {
			return start
		}
		return 0
	}
	return (idx + 1) % len(r.segments)
}

func (r *Rotator) indexOf(name string) int {
	for i, s := range r.segments {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// save replaces the cursor file atomically
func (r *Rotator) save(name string) error {
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(name+"\n"), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
