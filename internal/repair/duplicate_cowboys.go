package repair

import (
	"time"

	"github.com/phasetrack/phasetrack/internal/archive"
)

// DuplicateCowboys removes overlapping synthetic archives left behind by
// earlier versions of gap synthesis, which could write a second cowboy over
// a span an existing one already covered. Among synthetic archives whose
// spans overlap, the first is kept and the rest dropped. Disjoint cowboys
// in the same gap are legitimate and untouched.
type DuplicateCowboys struct{}

func (s *DuplicateCowboys) Name() string { return "duplicate_cowboys" }

func (s *DuplicateCowboys) NeedsRepair(ctx *Context, w *archive.Workflow) bool {
	// Detection needs the neighboring archives; handled in PostProcess.
	return false
}

func (s *DuplicateCowboys) Repair(ctx *Context, w *archive.Workflow) (bool, error) {
	return false, nil
}

// PostProcess scans the chronologically sorted archive list and names every
// synthetic archive that starts inside the span of an earlier surviving
// synthetic one.
func (s *DuplicateCowboys) PostProcess(ctx *Context, workflows []archive.Workflow) ([]string, error) {
	var remove []string
	var lastEnd time.Time

	for _, w := range workflows {
		if !w.IsSynthetic {
			continue
		}
		start, err := w.StartTime()
		if err != nil {
			// Bad id means the archive never came from gap synthesis;
			// leave it for a human.
			continue
		}
		if !lastEnd.IsZero() && !start.After(lastEnd) {
			remove = append(remove, w.WorkflowID)
			continue
		}
		if w.CompletedAt.After(lastEnd) {
			lastEnd = w.CompletedAt
		}
	}

	return remove, nil
}
