package analyze

import (
	"time"

	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/metrics"
	"github.com/phasetrack/phasetrack/internal/state"
)

// Archive converts the active workflow into a permanent archive and clears
// the live logs. The logs are removed only after the archive file is safely
// on disk; if the write fails they are left untouched so nothing is lost.
func Archive(storage *state.Storage, projectRoot string, now time.Time) (archive.Workflow, error) {
	res, err := BuildUnified(storage, projectRoot, Options{})
	if err != nil {
		return archive.Workflow{}, err
	}
	live := res.Live

	if len(live.Transitions) == 0 {
		return archive.Workflow{}, ErrNoActiveWorkflow
	}

	completedAt := lastActivity(live, now)
	w := archive.FromMetrics(live, completedAt)

	st, err := storage.Load()
	if err != nil {
		return archive.Workflow{}, err
	}
	w.SessionID = st.Session.SessionID

	store, err := archive.NewStore(storage.ArchivePath())
	if err != nil {
		return archive.Workflow{}, err
	}
	if err := store.Write(w); err != nil {
		return archive.Workflow{}, err
	}

	// Cumulative totals are always a pure sum over the archive set, never an
	// incremental counter. If the update below fails, the next archive or
	// repair pass recomputes the same sum and nothing drifts.
	all, err := store.ReadAll()
	if err != nil {
		return archive.Workflow{}, err
	}
	if err := storage.Update(func(s *state.State) {
		s.CumulativeTotals = archive.SumTotals(all)
		s.Workflow = state.WorkflowState{}
	}); err != nil {
		return archive.Workflow{}, err
	}

	if err := storage.RemoveLogs(); err != nil {
		return archive.Workflow{}, err
	}

	logger.Info().
		Str("workflow_id", w.WorkflowID).
		Int("phases", len(w.Phases)).
		Msg("Archived workflow")

	return w, nil
}

// lastActivity picks the workflow completion time: the latest observed hook
// event or transition, falling back to now when the logs carry no usable
// timestamp.
func lastActivity(u metrics.Unified, now time.Time) time.Time {
	last := u.SessionEnd
	if n := len(u.Transitions); n > 0 {
		if ts := u.Transitions[n-1].Timestamp; ts.After(last) {
			last = ts
		}
	}
	if last.IsZero() {
		return now
	}
	return last
}
