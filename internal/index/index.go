// Package index maintains a SQLite summary of the archive directory for
// fast listing and filtering. The index is derived data: it is rebuilt
// wholesale from the archive files and is never the source of truth.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/logger"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// Entry is one indexed workflow summary.
type Entry struct {
	WorkflowID  string
	Mode        string
	CompletedAt time.Time
	IsSynthetic bool
	PhaseCount  int
	TotalTokens uint64
	GitCommits  int
}

// Store defines the archive index operations.
type Store interface {
	Rebuild(workflows []archive.Workflow) error
	List() ([]Entry, error)
	Close() error
}

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the index database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	store := &SQLiteStore{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	logger.Debug().Str("path", dbPath).Msg("Opened archive index")
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workflows (
		workflow_id TEXT PRIMARY KEY,
		mode TEXT,
		completed_at INTEGER NOT NULL,
		is_synthetic INTEGER NOT NULL DEFAULT 0,
		phase_count INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL,
		git_commits INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workflows_completed ON workflows(completed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Rebuild replaces the entire index with the given archives. Drop and
// reinsert keeps the index trivially consistent with the files after any
// repair.
func (s *SQLiteStore) Rebuild(workflows []archive.Workflow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM workflows"); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO workflows (workflow_id, mode, completed_at, is_synthetic, phase_count, total_tokens, git_commits)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare index insert: %w", err)
	}
	defer stmt.Close()

	for _, w := range workflows {
		synthetic := 0
		if w.IsSynthetic {
			synthetic = 1
		}
		_, err := stmt.Exec(
			w.WorkflowID,
			w.Mode,
			w.CompletedAt.Unix(),
			synthetic,
			len(w.Phases),
			w.Totals.Tokens.Total(),
			w.Totals.GitCommits,
		)
		if err != nil {
			return fmt.Errorf("failed to index workflow %s: %w", w.WorkflowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index rebuild: %w", err)
	}

	logger.Debug().Int("workflows", len(workflows)).Msg("Rebuilt archive index")
	return nil
}

// List returns every indexed workflow, oldest first.
func (s *SQLiteStore) List() ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT workflow_id, mode, completed_at, is_synthetic, phase_count, total_tokens, git_commits
		 FROM workflows ORDER BY workflow_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			completed int64
			synthetic int
		)
		if err := rows.Scan(&e.WorkflowID, &e.Mode, &completed, &synthetic, &e.PhaseCount, &e.TotalTokens, &e.GitCommits); err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		e.CompletedAt = time.Unix(completed, 0).UTC()
		e.IsSynthetic = synthetic == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read index rows: %w", err)
	}

	return entries, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
