package research

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS history (
	id TEXT PRIMARY KEY,
	added_at DATETIME NOT NULL
);`

// SQLiteHistory keeps used identifiers in a SQLite table
type SQLiteHistory struct {
	db *sql.DB
}

// OpenSQLiteHistory opens (or creates) the database at path
func OpenSQLiteHistory(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &SQLiteHistory{db: db}, nil
}

func (h *SQLiteHistory) Contains(id string) bool {
	query, args, err := sq.Select("1").From("history").Where(sq.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		log.Printf("[research] History query build failed: %v", err)
		return false
	}
	var one int
	err = h.db.QueryRow(query, args...).Scan(&one)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("[research] History lookup failed for %s: %v", id, err)
	}
	return err == nil
}

// Seen fails rather than returning a partial set, which would let used items through
func (h *SQLiteHistory) Seen() (map[string]bool, error) {
	query, args, err := sq.Select("id").From("history").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history rows: %w", err)
	}
	return out, nil
}

func (h *SQLiteHistory) Append(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx := context.Background()
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		query, args, err := sq.Insert("history").
			Columns("id", "added_at").
			Values(id, now).
			Suffix("ON CONFLICT(id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build history insert: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert history %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	log.Printf("[research] Saved %d new URLs to history db", added)
	return nil
}

func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
