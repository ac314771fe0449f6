// Package transcripts locates the agent's session transcript files for a
// project. The agent keeps one directory per project under
// ~/.claude/projects, named by an encoding of the project's absolute path.
package transcripts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// EncodePath converts an absolute project path into the agent's directory
// name for it. Every byte outside [A-Za-z0-9] maps to '-'.
func EncodePath(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteByte(c)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ProjectDir returns the transcript directory for projectRoot.
func ProjectDir(projectRoot string) (string, error) {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "projects", EncodePath(abs)), nil
}

// ListSessionFiles returns every session transcript file for projectRoot,
// oldest first by modification time. Workflows span agent sessions, so
// token attribution has to consider all of them, not just the most recent.
// A missing directory yields an empty list and no error.
func ListSessionFiles(projectRoot string) ([]string, error) {
	dir, err := ProjectDir(projectRoot)
	if err != nil {
		return nil, err
	}
	return listDir(dir)
}

func listDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcript directory: %w", err)
	}

	type fileInfo struct {
		path    string
		modTime int64
	}

	var files []fileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime < files[j].modTime })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}
