package repair

import (
	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/state"
)

// RebuildTotals recomputes the cumulative totals in the state file from
// scratch. Always a full re-sum over every archive; incremental updates
// drift after any repair, so this is the correctness backstop run at the
// end of each pass.
func RebuildTotals(storage *state.Storage, workflows []archive.Workflow) error {
	totals := archive.SumTotals(workflows)
	return storage.Update(func(s *state.State) {
		s.CumulativeTotals = totals
	})
}
