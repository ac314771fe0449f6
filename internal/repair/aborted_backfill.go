package repair

import (
	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/metrics"
)

// AbortedPhase is the terminal phase recorded for workflows that were
// archived without ever reaching one.
const AbortedPhase = "aborted"

// AbortedBackfill marks workflows that never reached a terminal phase by
// appending a synthetic terminal transition at the completion time. The
// phase history stays intact; the workflow just gains an explicit end.
type AbortedBackfill struct{}

func (s *AbortedBackfill) Name() string { return "aborted_backfill" }

func (s *AbortedBackfill) NeedsRepair(ctx *Context, w *archive.Workflow) bool {
	if w.IsSynthetic || len(w.Transitions) == 0 {
		return false
	}
	return !hasTerminal(w, ctx.terminal())
}

func (s *AbortedBackfill) Repair(ctx *Context, w *archive.Workflow) (bool, error) {
	if hasTerminal(w, ctx.terminal()) {
		return false, nil
	}

	last := w.Transitions[len(w.Transitions)-1]
	w.Transitions = append(w.Transitions, metrics.Transition{
		Timestamp:  w.CompletedAt,
		WorkflowID: w.WorkflowID,
		FromPhase:  last.ToPhase,
		ToPhase:    AbortedPhase,
		Mode:       w.Mode,
	})
	return true, nil
}

func hasTerminal(w *archive.Workflow, terminal func(string) bool) bool {
	for _, tr := range w.Transitions {
		if terminal(tr.ToPhase) {
			return true
		}
	}
	return false
}

