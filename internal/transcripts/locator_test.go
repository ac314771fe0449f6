package transcripts

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEncodePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "/home/dev/project", "-home-dev-project"},
		{"dots and underscores", "/home/dev/my_app.v2", "-home-dev-my-app-v2"},
		{"spaces", "/tmp/a b", "-tmp-a-b"},
		{"alnum preserved", "/srv/App123", "-srv-App123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodePath(tt.in); got != tt.want {
				t.Errorf("EncodePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestListDir_SortedByModTime(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "older.jsonl")
	newer := filepath.Join(dir, "newer.jsonl")
	for _, p := range []string{older, newer} {
		if err := os.WriteFile(p, []byte("{}\n"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	// Not a transcript, must be ignored
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, base, base); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	if err := os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	files, err := listDir(dir)
	if err != nil {
		t.Fatalf("listDir failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if files[0] != older || files[1] != newer {
		t.Errorf("wrong order: %v", files)
	}
}

func TestListDir_Missing(t *testing.T) {
	files, err := listDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing dir must not error, got: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}
