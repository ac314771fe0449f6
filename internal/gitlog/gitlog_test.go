package gitlog

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestParseLog(t *testing.T) {
	out := recordSep + "abc1234" + fieldSep + "2025-06-01T10:15:00+00:00" + fieldSep + "Dev" + fieldSep + "Add parser\n" +
		"10\t2\tparser.go\n" +
		"-\t-\tlogo.png\n" +
		recordSep + "def5678" + fieldSep + "2025-06-01T09:00:00+00:00" + fieldSep + "Dev" + fieldSep + "Initial commit\n" +
		"5\t0\tmain.go\n"

	commits := parseLog(out)
	if len(commits) != 2 {
		t.Fatalf("got %d commits, want 2", len(commits))
	}

	// Output is chronological, oldest first
	if commits[0].Hash != "def5678" {
		t.Errorf("got first hash %q, want def5678", commits[0].Hash)
	}

	c := commits[1]
	if c.Hash != "abc1234" || c.Author != "Dev" || c.Message != "Add parser" {
		t.Errorf("unexpected commit: %+v", c)
	}
	if c.FilesChanged != 2 {
		t.Errorf("got FilesChanged=%d, want 2 (binary file counts)", c.FilesChanged)
	}
	if c.Insertions != 10 || c.Deletions != 2 {
		t.Errorf("got +%d/-%d, want +10/-2", c.Insertions, c.Deletions)
	}
	if !c.Timestamp.Equal(time.Date(2025, 6, 1, 10, 15, 0, 0, time.UTC)) {
		t.Errorf("got timestamp %v", c.Timestamp)
	}
}

func TestParseLog_SkipsMalformedRecords(t *testing.T) {
	out := recordSep + "only-two-fields" + fieldSep + "2025-06-01T09:00:00+00:00\n" +
		recordSep + "abc1234" + fieldSep + "not-a-time" + fieldSep + "Dev" + fieldSep + "msg\n"

	commits := parseLog(out)
	if len(commits) != 0 {
		t.Errorf("got %d commits, want 0", len(commits))
	}
}

func TestParseCommits_NoRepository(t *testing.T) {
	commits, err := ParseCommits(t.TempDir(), time.Time{})
	if err != nil {
		t.Fatalf("missing repository must not error, got: %v", err)
	}
	if commits != nil {
		t.Errorf("got %d commits, want none", len(commits))
	}
}

func TestParseCommits_FiltersOnCommitterDate(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	git := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Dev", "GIT_AUTHOR_EMAIL=dev@example.com",
			"GIT_COMMITTER_NAME=Dev", "GIT_COMMITTER_EMAIL=dev@example.com",
			"GIT_AUTHOR_DATE=2025-01-01T09:00:00Z",
			"GIT_COMMITTER_DATE=2025-06-01T09:00:00Z",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	git("init", "-q")
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	git("add", "main.go")
	git("commit", "-q", "-m", "initial")

	// The author date predates since but the committer date does not. The
	// commit must be included, timestamped by its committer date, so the
	// filter matches what phase attribution sees.
	commits, err := ParseCommits(dir, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ParseCommits failed: %v", err)
	}
	if len(commits) != 1 {
		t.Fatalf("got %d commits, want 1", len(commits))
	}
	if !commits[0].Timestamp.Equal(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("got timestamp %v, want the committer date", commits[0].Timestamp)
	}

	later, err := ParseCommits(dir, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ParseCommits failed: %v", err)
	}
	if len(later) != 0 {
		t.Errorf("got %d commits after the committer date, want 0", len(later))
	}
}

func TestHasRepository(t *testing.T) {
	if HasRepository(t.TempDir()) {
		t.Error("empty temp dir reported as repository")
	}
}

func TestCommitsInRange(t *testing.T) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	commits := []Commit{
		{Hash: "a", Timestamp: base},
		{Hash: "b", Timestamp: base.Add(time.Hour)},
		{Hash: "c", Timestamp: base.Add(2 * time.Hour)},
	}

	got := CommitsInRange(commits, base, base.Add(2*time.Hour))
	if len(got) != 2 {
		t.Fatalf("got %d commits, want 2 (end exclusive)", len(got))
	}
	if got[0].Hash != "a" || got[1].Hash != "b" {
		t.Errorf("got %q, %q", got[0].Hash, got[1].Hash)
	}

	open := CommitsInRange(commits, base.Add(time.Hour), time.Time{})
	if len(open) != 2 {
		t.Errorf("got %d commits for open range, want 2", len(open))
	}
}
