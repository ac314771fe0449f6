package analyze

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/state"
)

const hooksContent = `{"timestamp":"2025-06-01T09:00:00Z","session_id":"s1","hook_event_name":"SessionStart"}
{"timestamp":"2025-06-01T09:10:00Z","session_id":"s1","hook_event_name":"PostToolUse","tool_name":"Bash","tool_input":{"command":"go build ./..."}}
{"timestamp":"2025-06-01T10:10:00Z","session_id":"s1","hook_event_name":"PostToolUse","tool_name":"Edit","tool_input":{"file_path":"main.go"}}
{"timestamp":"2025-06-01T10:20:00Z","session_id":"s1","hook_event_name":"Stop"}
`

const transitionsContent = `{"timestamp":"2025-06-01T09:00:00Z","workflow_id":"2025-06-01T09:00:00Z","to_phase":"plan","mode":"guided"}
{"timestamp":"2025-06-01T10:00:00Z","workflow_id":"2025-06-01T09:00:00Z","from_phase":"plan","to_phase":"build"}
`

const transcriptContent = `{"type":"assistant","timestamp":"2025-06-01T09:05:00Z","usage":{"input_tokens":100,"output_tokens":10}}
{"type":"assistant","timestamp":"2025-06-01T10:05:00Z","message":{"usage":{"input_tokens":200,"output_tokens":20}}}
`

// newTestProject lays out a state directory with live logs and a transcript
// reachable through the session metadata fallback.
func newTestProject(t *testing.T) (*state.Storage, string) {
	t.Helper()
	root := t.TempDir()

	storage, err := state.NewStorage(filepath.Join(root, ".phasetrack"))
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}

	if err := os.WriteFile(storage.HooksPath(), []byte(hooksContent), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(storage.TransitionsPath(), []byte(transitionsContent), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	transcript := filepath.Join(root, "session.jsonl")
	if err := os.WriteFile(transcript, []byte(transcriptContent), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := storage.Save(state.State{
		Session: state.SessionMetadata{
			SessionID:      "s1",
			TranscriptPath: transcript,
			StartedAt:      time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		},
		Workflow: state.WorkflowState{WorkflowID: "2025-06-01T09:00:00Z", Mode: "guided"},
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	return storage, root
}

func TestBuildUnified_Live(t *testing.T) {
	storage, root := newTestProject(t)

	res, err := BuildUnified(storage, root, Options{})
	if err != nil {
		t.Fatalf("BuildUnified failed: %v", err)
	}

	u := res.Live
	if u.WorkflowID != "2025-06-01T09:00:00Z" || u.Mode != "guided" {
		t.Errorf("got workflow %q mode %q", u.WorkflowID, u.Mode)
	}
	if len(u.Phases) != 2 {
		t.Fatalf("got %d phases, want 2", len(u.Phases))
	}
	if u.Phases[0].Tokens.InputTokens != 100 || u.Phases[1].Tokens.InputTokens != 200 {
		t.Errorf("token attribution wrong: %d / %d", u.Phases[0].Tokens.InputTokens, u.Phases[1].Tokens.InputTokens)
	}
	if len(u.Phases[0].BashCommands) != 1 || len(u.Phases[1].FileModifications) != 1 {
		t.Errorf("hook attribution wrong: %+v", u.Phases)
	}
	if res.Totals.Tokens.InputTokens != 300 {
		t.Errorf("got total input tokens %d, want 300", res.Totals.Tokens.InputTokens)
	}
}

func TestArchive_NoDoubleCount(t *testing.T) {
	storage, root := newTestProject(t)

	before, err := BuildUnified(storage, root, Options{})
	if err != nil {
		t.Fatalf("BuildUnified failed: %v", err)
	}

	w, err := Archive(storage, root, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	// Archive totals equal the live view taken immediately before
	if w.Totals.Tokens != before.Totals.Tokens {
		t.Errorf("archive tokens %+v != live tokens %+v", w.Totals.Tokens, before.Totals.Tokens)
	}
	if w.Totals.BashCommands != before.Totals.BashCommands {
		t.Errorf("archive bash %d != live %d", w.Totals.BashCommands, before.Totals.BashCommands)
	}
	if w.SessionID != "s1" {
		t.Errorf("got session id %q", w.SessionID)
	}

	// Live logs are gone
	if _, err := os.Stat(storage.HooksPath()); !os.IsNotExist(err) {
		t.Error("hook log survived archiving")
	}
	if _, err := os.Stat(storage.TransitionsPath()); !os.IsNotExist(err) {
		t.Error("transition log survived archiving")
	}

	// Re-running with archives included yields the same totals, once
	after, err := BuildUnified(storage, root, Options{IncludeArchives: true})
	if err != nil {
		t.Fatalf("BuildUnified failed: %v", err)
	}
	if after.Totals.Tokens != before.Totals.Tokens {
		t.Errorf("totals doubled: %+v vs %+v", after.Totals.Tokens, before.Totals.Tokens)
	}
	if len(after.Archived) != 1 {
		t.Errorf("got %d archived workflows, want 1", len(after.Archived))
	}
}

func TestArchive_RecomputesCumulativeTotals(t *testing.T) {
	storage, root := newTestProject(t)

	// Drift the state counter; archiving must replace it with the sum over
	// the archive set, not add on top of the bad value.
	if err := storage.Update(func(s *state.State) {
		s.CumulativeTotals.BashCommands = 999
		s.CumulativeTotals.Tokens.InputTokens = 999999
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	w, err := Archive(storage, root, time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	st, err := storage.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if st.CumulativeTotals != w.Totals {
		t.Errorf("got cumulative %+v, want exactly the archived totals %+v", st.CumulativeTotals, w.Totals)
	}
}

func TestArchive_NoActiveWorkflow(t *testing.T) {
	storage, err := state.NewStorage(filepath.Join(t.TempDir(), ".phasetrack"))
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}

	_, err = Archive(storage, t.TempDir(), time.Now())
	if !errors.Is(err, ErrNoActiveWorkflow) {
		t.Errorf("got %v, want ErrNoActiveWorkflow", err)
	}
}

func TestArchive_FailedWriteLeavesLogs(t *testing.T) {
	storage, root := newTestProject(t)

	// An archive with the same workflow id already exists, so the write is
	// rejected and the live logs must survive untouched.
	store, err := archive.NewStore(storage.ArchivePath())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	existing := archive.Workflow{
		WorkflowID:  "2025-06-01T09:00:00Z",
		CompletedAt: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}
	if err := store.Write(existing); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if _, err := Archive(storage, root, time.Now()); err == nil {
		t.Fatal("Archive must fail on duplicate workflow id")
	}

	if _, err := os.Stat(storage.HooksPath()); err != nil {
		t.Error("hook log lost after failed archive")
	}
	if _, err := os.Stat(storage.TransitionsPath()); err != nil {
		t.Error("transition log lost after failed archive")
	}

	st, err := storage.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if st.Workflow.WorkflowID == "" {
		t.Error("workflow state cleared despite failed archive")
	}
}
