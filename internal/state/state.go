// Package state owns the session state file and the shared append-only
// logs. Hook and transition records arrive from separate short-lived
// recorder processes, so every mutation here is either an atomic rename or
// a locked append.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/phasetrack/phasetrack/internal/archive"
)

// File and directory names under the state directory.
const (
	HooksLog       = "hooks.jsonl"
	TransitionsLog = "transitions.jsonl"
	StateFile      = "state.json"
	ArchiveDir     = "archive"
)

// SessionMetadata records the most recent agent session seen by the
// recorder.
type SessionMetadata struct {
	SessionID      string    `json:"session_id,omitempty"`
	TranscriptPath string    `json:"transcript_path,omitempty"`
	StartedAt      time.Time `json:"started_at,omitempty"`
}

// WorkflowState identifies the workflow currently in progress.
type WorkflowState struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

// State is the contents of state.json.
type State struct {
	Session          SessionMetadata `json:"session"`
	Workflow         WorkflowState   `json:"workflow"`
	CumulativeTotals archive.Totals  `json:"cumulative_totals"`
}

// Storage reads and writes everything under one state directory.
type Storage struct {
	dir string
}

// NewStorage returns a Storage rooted at dir, creating it if needed.
func NewStorage(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the state directory.
func (s *Storage) Dir() string {
	return s.dir
}

// HooksPath returns the hook log path.
func (s *Storage) HooksPath() string {
	return filepath.Join(s.dir, HooksLog)
}

// TransitionsPath returns the transition log path.
func (s *Storage) TransitionsPath() string {
	return filepath.Join(s.dir, TransitionsLog)
}

// ArchivePath returns the archive directory path.
func (s *Storage) ArchivePath() string {
	return filepath.Join(s.dir, ArchiveDir)
}

func (s *Storage) statePath() string {
	return filepath.Join(s.dir, StateFile)
}

// Load reads state.json. A missing file yields a zero State and no error.
func (s *Storage) Load() (State, error) {
	var st State
	data, err := os.ReadFile(s.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("failed to parse state file: %w", err)
	}
	return st, nil
}

// Save writes state.json via temp file and rename.
func (s *Storage) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".state.tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.statePath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize state file: %w", err)
	}
	return nil
}

// Update loads state.json, applies fn, and saves the result.
func (s *Storage) Update(fn func(*State)) error {
	st, err := s.Load()
	if err != nil {
		return err
	}
	fn(&st)
	return s.Save(st)
}

// RemoveLogs deletes the hook and transition logs. Called only after the
// active workflow has been archived successfully.
func (s *Storage) RemoveLogs() error {
	for _, path := range []string{s.HooksPath(), s.TransitionsPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove log %s: %w", path, err)
		}
	}
	return nil
}
