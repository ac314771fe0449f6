package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phasetrack/phasetrack/internal/logger"
)

// Store reads and writes workflow archives under a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the archive directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the archive file path for a workflow id.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Exists reports whether an archive for id is already present.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Write persists a workflow archive. The document is written to a temp file
// in the same directory and renamed into place, so a crash mid-write never
// leaves a truncated archive. Writing an id that already exists is an
// error; archives are immutable once written and an overwrite means two
// workflows claimed the same start time.
func (s *Store) Write(w Workflow) error {
	if err := ValidateWorkflowID(w.WorkflowID); err != nil {
		return err
	}
	if s.Exists(w.WorkflowID) {
		return fmt.Errorf("archive for workflow %s already exists", w.WorkflowID)
	}
	return s.writeFile(w)
}

// Replace persists a workflow archive, overwriting any existing one with
// the same id. Used by repair when a synthetic archive is rebuilt.
func (s *Store) Replace(w Workflow) error {
	if err := ValidateWorkflowID(w.WorkflowID); err != nil {
		return err
	}
	return s.writeFile(w)
}

func (s *Store) writeFile(w Workflow) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, "."+w.WorkflowID+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp archive: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp archive: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(w.WorkflowID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// Read loads one archive by workflow id.
func (s *Store) Read(id string) (Workflow, error) {
	var w Workflow
	if err := ValidateWorkflowID(id); err != nil {
		return w, err
	}
	data, err := os.ReadFile(s.Path(id))
	if err != nil {
		return w, fmt.Errorf("failed to read archive %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("failed to parse archive %s: %w", id, err)
	}
	return w, nil
}

// Remove deletes the archive for id. Removing an absent archive is not an
// error.
func (s *Store) Remove(id string) error {
	if err := ValidateWorkflowID(id); err != nil {
		return err
	}
	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove archive %s: %w", id, err)
	}
	return nil
}

// ReadAll loads every archive, sorted chronologically by workflow id.
// Files that fail to parse are logged and skipped; one corrupted archive
// must not make the rest of the history unreadable. A missing directory
// yields an empty slice.
func (s *Store) ReadAll() ([]Workflow, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var workflows []Workflow
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			logger.Warn().Str("file", name).Err(err).Msg("Skipping unreadable archive")
			continue
		}

		var w Workflow
		if err := json.Unmarshal(data, &w); err != nil {
			logger.Warn().Str("file", name).Err(err).Msg("Skipping corrupted archive")
			continue
		}
		workflows = append(workflows, w)
	}

	SortWorkflows(workflows)
	return workflows, nil
}
