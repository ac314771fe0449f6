// Package metrics parses the hook, transition, and transcript streams and
// correlates them into per-phase activity by timestamp. The three streams
// share no identifiers; time ranges are the only join key.
package metrics

import (
	"time"

	"github.com/phasetrack/phasetrack/internal/gitlog"
)

// TokenMetrics accumulates token usage over a set of assistant turns.
type TokenMetrics struct {
	InputTokens         uint64 `json:"input_tokens"`
	OutputTokens        uint64 `json:"output_tokens"`
	CacheCreationTokens uint64 `json:"cache_creation_tokens"`
	CacheReadTokens     uint64 `json:"cache_read_tokens"`
	AssistantTurns      uint64 `json:"assistant_turns"`
}

// Add merges other into m.
func (m *TokenMetrics) Add(other TokenMetrics) {
	m.InputTokens += other.InputTokens
	m.OutputTokens += other.OutputTokens
	m.CacheCreationTokens += other.CacheCreationTokens
	m.CacheReadTokens += other.CacheReadTokens
	m.AssistantTurns += other.AssistantTurns
}

// Total returns the sum of all token categories.
func (m TokenMetrics) Total() uint64 {
	return m.InputTokens + m.OutputTokens + m.CacheCreationTokens + m.CacheReadTokens
}

// BashCommand is one shell invocation observed through a PostToolUse hook.
type BashCommand struct {
	Command   string    `json:"command"`
	Timestamp time.Time `json:"timestamp"`
}

// FileModification is one file-changing tool call observed through a
// PostToolUse hook.
type FileModification struct {
	FilePath  string    `json:"file_path"`
	Tool      string    `json:"tool"`
	Timestamp time.Time `json:"timestamp"`
}

// HookMetrics is everything extracted from one pass over the hook log.
type HookMetrics struct {
	TotalEvents       int
	BashCommands      []BashCommand
	FileModifications []FileModification
	SessionStart      time.Time
	SessionEnd        time.Time
}

// Transition is one phase-transition record from the transition log.
type Transition struct {
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	FromPhase  string    `json:"from_phase"`
	ToPhase    string    `json:"to_phase"`
	Mode       string    `json:"mode,omitempty"`
}

// PhaseMetrics is all activity attributed to one phase interval.
type PhaseMetrics struct {
	Name              string
	StartTime         time.Time
	EndTime           time.Time // zero while the phase is still open
	Tokens            TokenMetrics
	BashCommands      []BashCommand
	FileModifications []FileModification
	Commits           []gitlog.Commit
}

// Duration returns the phase length, using now for an open phase.
func (p PhaseMetrics) Duration(now time.Time) time.Duration {
	end := p.EndTime
	if end.IsZero() {
		end = now
	}
	if end.Before(p.StartTime) {
		return 0
	}
	return end.Sub(p.StartTime)
}

// Unified is the full correlated view of one workflow's activity.
type Unified struct {
	WorkflowID   string
	Mode         string
	SessionStart time.Time
	SessionEnd   time.Time
	TotalEvents  int
	Tokens       TokenMetrics
	Phases       []PhaseMetrics
	Transitions  []Transition
	Commits      []gitlog.Commit
}

// UniqueFiles counts distinct file paths across all phases.
func (u Unified) UniqueFiles() int {
	seen := make(map[string]struct{})
	for _, p := range u.Phases {
		for _, f := range p.FileModifications {
			seen[f.FilePath] = struct{}{}
		}
	}
	return len(seen)
}

// UniqueCommands counts distinct command strings across all phases.
func (u Unified) UniqueCommands() int {
	seen := make(map[string]struct{})
	for _, p := range u.Phases {
		for _, c := range p.BashCommands {
			seen[c.Command] = struct{}{}
		}
	}
	return len(seen)
}
