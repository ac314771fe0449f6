package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phasetrack/phasetrack/internal/metrics"
)

func testWorkflow(id string, completed time.Time) Workflow {
	w := Workflow{
		WorkflowID:  id,
		Mode:        "guided",
		CompletedAt: completed,
		Phases: []Phase{
			{PhaseName: "plan", StartTime: completed.Add(-time.Hour), Tokens: metrics.TokenMetrics{InputTokens: 10}},
		},
	}
	w.Totals = ComputeTotals(w.Phases)
	return w
}

func TestStore_WriteReadRoundtrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	w := testWorkflow("2025-06-01T09:00:00Z", time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
	if err := store.Write(w); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := store.Read(w.WorkflowID)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.WorkflowID != w.WorkflowID || got.Mode != w.Mode {
		t.Errorf("got %+v", got)
	}
	if !got.CompletedAt.Equal(w.CompletedAt) {
		t.Errorf("got CompletedAt=%v, want %v", got.CompletedAt, w.CompletedAt)
	}
	if got.Totals.Tokens.InputTokens != 10 {
		t.Errorf("got tokens %d, want 10", got.Totals.Tokens.InputTokens)
	}
}

func TestStore_RejectsDuplicate(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	w := testWorkflow("2025-06-01T09:00:00Z", time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
	if err := store.Write(w); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if err := store.Write(w); err == nil {
		t.Fatal("second Write of same id must fail")
	}
}

func TestStore_ValidatesWorkflowID(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	for _, id := range []string{"", "../escape", "a/b", "not-a-timestamp"} {
		if err := store.Write(Workflow{WorkflowID: id}); err == nil {
			t.Errorf("Write accepted invalid id %q", id)
		}
	}
}

func TestStore_ReadAllSkipsCorrupted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	// Written out of order on purpose; ReadAll must sort
	later := testWorkflow("2025-06-01T11:00:00Z", time.Date(2025, 6, 1, 11, 30, 0, 0, time.UTC))
	earlier := testWorkflow("2025-06-01T09:00:00Z", time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC))
	for _, w := range []Workflow{later, earlier} {
		if err := store.Write(w); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "2025-06-01T10:00:00Z.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	// Leftover temp files must be ignored too
	if err := os.WriteFile(filepath.Join(dir, ".2025-06-01T12:00:00Z.tmp-1"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	all, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d workflows, want 2", len(all))
	}
	if all[0].WorkflowID != earlier.WorkflowID || all[1].WorkflowID != later.WorkflowID {
		t.Errorf("not sorted: %s, %s", all[0].WorkflowID, all[1].WorkflowID)
	}
}

func TestStore_RemoveAbsent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Remove("2025-06-01T09:00:00Z"); err != nil {
		t.Errorf("removing absent archive must not error, got: %v", err)
	}
}

func TestStore_ReadAllMissingDir(t *testing.T) {
	s := &Store{dir: filepath.Join(t.TempDir(), "absent")}
	all, err := s.ReadAll()
	if err != nil {
		t.Fatalf("missing dir must not error, got: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("got %d workflows, want 0", len(all))
	}
}
