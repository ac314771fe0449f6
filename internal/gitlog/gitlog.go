// Package gitlog reads commit history and per-commit diff statistics from a
// project's git repository. A missing repository is treated as "no data";
// nothing here ever fails the pipeline.
package gitlog

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/phasetrack/phasetrack/internal/logger"
)

// Commit is one commit with diff statistics against its first parent.
type Commit struct {
	Hash         string    `json:"hash"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	FilesChanged int       `json:"files_changed"`
	Insertions   int       `json:"insertions"`
	Deletions    int       `json:"deletions"`
}

// HasRepository reports whether projectRoot is inside a git work tree.
func HasRepository(projectRoot string) bool {
	dir := projectRoot
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// recordSep separates commits in git log output; fieldSep separates header
// fields. Both are control characters that cannot appear in commit metadata.
const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
)

// ParseCommits reads commit history from since forward (all history when
// since is the zero time). Timestamps are committer dates, so an amended or
// cherry-picked commit is dated by when it landed on this branch, and the
// since cut is applied to the parsed timestamps rather than inside git, so
// filtering and attribution always agree. Each commit carries numstat
// totals computed against its first parent; a root commit diffs against
// the empty tree. A project without a repository yields an empty slice and
// no error.
func ParseCommits(projectRoot string, since time.Time) ([]Commit, error) {
	if !HasRepository(projectRoot) {
		return nil, nil
	}

	args := []string{
		"log",
		"--first-parent",
		"--numstat",
		"--pretty=format:" + recordSep + "%h" + fieldSep + "%cI" + fieldSep + "%an" + fieldSep + "%s",
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = projectRoot
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// An empty repository (no commits yet) is "no data", not failure
		if strings.Contains(stderr.String(), "does not have any commits") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to run git log: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}

	commits := parseLog(stdout.String())
	if since.IsZero() {
		return commits, nil
	}
	return CommitsInRange(commits, since, time.Time{}), nil
}

func parseLog(out string) []Commit {
	var commits []Commit

	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}

		lines := strings.Split(record, "\n")
		header := strings.Split(lines[0], fieldSep)
		if len(header) != 4 {
			logger.Debug().Str("record", lines[0]).Msg("Skipping malformed git log record")
			continue
		}

		ts, err := time.Parse(time.RFC3339, header[1])
		if err != nil {
			logger.Debug().Str("timestamp", header[1]).Msg("Skipping commit with bad timestamp")
			continue
		}

		commit := Commit{
			Hash:      header[0],
			Timestamp: ts.UTC(),
			Author:    header[2],
			Message:   header[3],
		}

		for _, line := range lines[1:] {
			fields := strings.Fields(line)
			if len(fields) < 3 {
				continue
			}
			// Binary files show "-" for both counts; they still count
			// as a changed file
			commit.FilesChanged++
			if n, err := strconv.Atoi(fields[0]); err == nil {
				commit.Insertions += n
			}
			if n, err := strconv.Atoi(fields[1]); err == nil {
				commit.Deletions += n
			}
		}

		commits = append(commits, commit)
	}

	// git log is newest-first; callers want chronological order
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}

	return commits
}

// CommitsInRange filters commits to start <= t < end. A zero end leaves the
// range open.
func CommitsInRange(commits []Commit, start, end time.Time) []Commit {
	var out []Commit
	for _, c := range commits {
		if c.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !c.Timestamp.Before(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}
