// Package archive persists completed workflows as one JSON document per
// workflow. Archives are the durable record; live logs are deleted once a
// workflow is archived, so everything downstream reads from here.
package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/phasetrack/phasetrack/internal/gitlog"
	"github.com/phasetrack/phasetrack/internal/metrics"
)

// SyntheticPhase is the single phase name used by synthetic archives that
// cover untracked activity between workflows.
const SyntheticPhase = "ride"

// SyntheticMode marks archives reconstructed from gap activity rather than
// recorded transitions.
const SyntheticMode = "cowboy"

// BashCommandSummary folds repeated invocations of one command into a
// count plus occurrence timestamps.
type BashCommandSummary struct {
	Command    string      `json:"command"`
	Count      int         `json:"count"`
	Timestamps []time.Time `json:"timestamps"`
}

// FileModificationSummary folds repeated modifications of one file into a
// count plus occurrence timestamps.
type FileModificationSummary struct {
	FilePath   string      `json:"file_path"`
	Tool       string      `json:"tool"`
	Count      int         `json:"count"`
	Timestamps []time.Time `json:"timestamps"`
}

// Phase is one phase of an archived workflow.
type Phase struct {
	PhaseName         string                    `json:"phase_name"`
	StartTime         time.Time                 `json:"start_time"`
	EndTime           *time.Time                `json:"end_time,omitempty"`
	DurationSeconds   int64                     `json:"duration_seconds"`
	Tokens            metrics.TokenMetrics      `json:"tokens"`
	BashCommands      []BashCommandSummary      `json:"bash_commands,omitempty"`
	FileModifications []FileModificationSummary `json:"file_modifications,omitempty"`
	GitCommits        []gitlog.Commit           `json:"git_commits,omitempty"`
}

// Totals is the rollup of a workflow's activity.
type Totals struct {
	Tokens            metrics.TokenMetrics `json:"tokens"`
	BashCommands      int                  `json:"bash_commands"`
	FileModifications int                  `json:"file_modifications"`
	UniqueFiles       int                  `json:"unique_files"`
	UniqueCommands    int                  `json:"unique_commands"`
	GitCommits        int                  `json:"git_commits"`
}

// Add merges other into t. Unique counts are additive across workflows;
// cross-workflow deduplication is intentionally not attempted.
func (t *Totals) Add(other Totals) {
	t.Tokens.Add(other.Tokens)
	t.BashCommands += other.BashCommands
	t.FileModifications += other.FileModifications
	t.UniqueFiles += other.UniqueFiles
	t.UniqueCommands += other.UniqueCommands
	t.GitCommits += other.GitCommits
}

// Workflow is one archived workflow. WorkflowID is the workflow's start
// timestamp in RFC3339 form and doubles as the archive filename, so
// lexicographic order equals chronological order.
type Workflow struct {
	WorkflowID  string               `json:"workflow_id"`
	Mode        string               `json:"mode"`
	SessionID   string               `json:"session_id,omitempty"`
	CompletedAt time.Time            `json:"completed_at"`
	IsSynthetic bool                 `json:"is_synthetic,omitempty"`
	Phases      []Phase              `json:"phases"`
	Transitions []metrics.Transition `json:"transitions,omitempty"`
	Totals      Totals               `json:"totals"`
}

// StartTime parses the workflow id back into a timestamp.
func (w Workflow) StartTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, w.WorkflowID)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse workflow id %q: %w", w.WorkflowID, err)
	}
	return t, nil
}

// ValidateWorkflowID rejects ids that are not RFC3339 timestamps or would
// escape the archive directory when used as a filename.
func ValidateWorkflowID(id string) error {
	if id == "" {
		return fmt.Errorf("workflow id is empty")
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("workflow id %q contains path separators", id)
	}
	if _, err := time.Parse(time.RFC3339, id); err != nil {
		return fmt.Errorf("workflow id %q is not an RFC3339 timestamp: %w", id, err)
	}
	return nil
}
