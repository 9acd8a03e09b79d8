package research

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"news-shorts-pipeline/config"
)

// History is the persisted set of item identifiers already used in a video
type History interface {
	Contains(id string) bool
	// Seen returns a snapshot of every recorded identifier
	Seen() (map[string]bool, error)
	// Append records ids, skipping any already present
	Append(ids []string) error
	Close() error
}

// OpenHistory returns the backend selected by history.backend
func OpenHistory(cfg *config.Config) (History, error) {
	switch cfg.History.Backend {
	case "sqlite":
		return OpenSQLiteHistory(cfg.Paths.HistoryDB)
	case "file", "":
		return OpenFileHistory(cfg.Paths.History)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

// FileHistory stores one identifier per line in a plain text file
type FileHistory struct {
	mu   sync.Mutex
	path string
	ids  map[string]bool
}

// OpenFileHistory loads path. A missing file is an empty history.
func OpenFileHistory(path string) (*FileHistory, error) {
	h := &FileHistory{path: path, ids: make(map[string]bool)}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			h.ids[id] = true
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	log.Printf("[research] Loaded %d used URLs from %s", len(h.ids), path)
	return h, nil
}

func (h *FileHistory) Contains(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ids[id]
}

func (h *FileHistory) Seen() (map[string]bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]bool, len(h.ids))
	for id := range h.ids {
		out[id] = true
	}
	return out, nil
}

func (h *FileHistory) Append(ids []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var b strings.Builder
	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || h.ids[id] || contains(fresh, id) {
			continue
		}
		fresh = append(fresh, id)
		b.WriteString(id)
		b.WriteByte('\n')
	}
	if len(fresh) == 0 {
		return nil
	}

	if dir := filepath.Dir(h.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}
	f, err := os.OpenFile(h.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open history for append: %w", err)
	}
	unterminated, err := lacksTrailingNewline(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("read history tail: %w", err)
	}
	out := b.String()
	if unterminated {
		out = "\n" + out
	}
	if _, err := f.WriteString(out); err != nil {
		f.Close()
		return fmt.Errorf("append history: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}

	for _, id := range fresh {
		h.ids[id] = true
	}
	log.Printf("[research] Saved %d new URLs to history", len(fresh))
	return nil
}

func (h *FileHistory) Close() error { return nil }

// lacksTrailingNewline reports whether a non-empty file ends mid-line
func lacksTrailingNewline(f *os.File) (bool, error) {
	fi, err := f.Stat()
	if err != nil {
		return false, err
	}
	if fi.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, fi.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
