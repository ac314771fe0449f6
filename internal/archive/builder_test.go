package archive

import (
	"testing"
	"time"

	"github.com/phasetrack/phasetrack/internal/gitlog"
	"github.com/phasetrack/phasetrack/internal/metrics"
)

func TestFromMetrics(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	completed := start.Add(2 * time.Hour)

	u := metrics.Unified{
		WorkflowID: "2025-06-01T09:00:00Z",
		Mode:       "guided",
		Phases: []metrics.PhaseMetrics{
			{
				Name:      "plan",
				StartTime: start,
				EndTime:   start.Add(time.Hour),
				Tokens:    metrics.TokenMetrics{InputTokens: 100, AssistantTurns: 3},
				BashCommands: []metrics.BashCommand{
					{Command: "go test ./...", Timestamp: start.Add(10 * time.Minute)},
					{Command: "go test ./...", Timestamp: start.Add(20 * time.Minute)},
					{Command: "git status", Timestamp: start.Add(30 * time.Minute)},
				},
				FileModifications: []metrics.FileModification{
					{FilePath: "main.go", Tool: "Edit", Timestamp: start.Add(15 * time.Minute)},
					{FilePath: "main.go", Tool: "Edit", Timestamp: start.Add(25 * time.Minute)},
				},
				Commits: []gitlog.Commit{{Hash: "abc1234", Timestamp: start.Add(40 * time.Minute)}},
			},
			{
				Name:      "build",
				StartTime: start.Add(time.Hour),
				// Open phase, closed at completedAt by the builder
			},
		},
	}

	w := FromMetrics(u, completed)

	if w.WorkflowID != u.WorkflowID || w.Mode != "guided" {
		t.Errorf("header wrong: %+v", w)
	}
	if len(w.Phases) != 2 {
		t.Fatalf("got %d phases, want 2", len(w.Phases))
	}

	plan := w.Phases[0]
	if plan.DurationSeconds != 3600 {
		t.Errorf("got duration %d, want 3600", plan.DurationSeconds)
	}
	if len(plan.BashCommands) != 2 {
		t.Fatalf("got %d command summaries, want 2", len(plan.BashCommands))
	}
	if plan.BashCommands[0].Command != "go test ./..." || plan.BashCommands[0].Count != 2 {
		t.Errorf("bad summary: %+v", plan.BashCommands[0])
	}
	if len(plan.FileModifications) != 1 || plan.FileModifications[0].Count != 2 {
		t.Errorf("bad modification summary: %+v", plan.FileModifications)
	}

	build := w.Phases[1]
	if build.EndTime == nil || !build.EndTime.Equal(completed) {
		t.Errorf("open phase must close at completion, got %v", build.EndTime)
	}

	if w.Totals.BashCommands != 3 || w.Totals.UniqueCommands != 2 {
		t.Errorf("got %d commands / %d unique, want 3/2", w.Totals.BashCommands, w.Totals.UniqueCommands)
	}
	if w.Totals.FileModifications != 2 || w.Totals.UniqueFiles != 1 {
		t.Errorf("got %d mods / %d unique, want 2/1", w.Totals.FileModifications, w.Totals.UniqueFiles)
	}
	if w.Totals.GitCommits != 1 {
		t.Errorf("got %d commits, want 1", w.Totals.GitCommits)
	}
	if w.Totals.Tokens.InputTokens != 100 || w.Totals.Tokens.AssistantTurns != 3 {
		t.Errorf("got tokens %+v", w.Totals.Tokens)
	}
}

func TestValidateWorkflowID(t *testing.T) {
	if err := ValidateWorkflowID("2025-06-01T09:00:00Z"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	if err := ValidateWorkflowID("2025-06-01T09:00:00+02:00"); err != nil {
		t.Errorf("offset timestamp rejected: %v", err)
	}
	if err := ValidateWorkflowID("2025-06-01T09:00:00.5Z"); err != nil {
		t.Errorf("fractional-second id rejected: %v", err)
	}
	for _, id := range []string{"", "..", "a/../b", "x\\y", "June first"} {
		if err := ValidateWorkflowID(id); err == nil {
			t.Errorf("invalid id %q accepted", id)
		}
	}
}

func TestSumTotals(t *testing.T) {
	workflows := []Workflow{
		{Totals: Totals{BashCommands: 2, GitCommits: 1}},
		{Totals: Totals{BashCommands: 3, FileModifications: 4}},
	}
	got := SumTotals(workflows)
	if got.BashCommands != 5 || got.GitCommits != 1 || got.FileModifications != 4 {
		t.Errorf("got %+v", got)
	}
}
