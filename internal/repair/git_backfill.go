package repair

import (
	"time"

	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/gitlog"
)

// GitBackfill fills in commit data for archives written before commit
// attribution existed, or when git was unavailable at archive time. It only
// touches archives with no commits anywhere; a partially attributed archive
// is assumed intentional.
type GitBackfill struct{}

func (s *GitBackfill) Name() string { return "git_backfill" }

func (s *GitBackfill) NeedsRepair(ctx *Context, w *archive.Workflow) bool {
	if w.IsSynthetic || len(w.Phases) == 0 {
		return false
	}
	for _, p := range w.Phases {
		if len(p.GitCommits) > 0 {
			return false
		}
	}
	return true
}

func (s *GitBackfill) Repair(ctx *Context, w *archive.Workflow) (bool, error) {
	start, err := w.StartTime()
	if err != nil {
		return false, err
	}

	commits := gitlog.CommitsInRange(ctx.Commits, start, w.CompletedAt.Add(time.Nanosecond))
	if len(commits) == 0 {
		return false, nil
	}

	changed := false
	for _, c := range commits {
		if i := phaseIndexFor(w.Phases, c.Timestamp); i >= 0 {
			w.Phases[i].GitCommits = append(w.Phases[i].GitCommits, c)
			changed = true
		}
	}
	if changed {
		w.Totals = archive.ComputeTotals(w.Phases)
	}
	return changed, nil
}

// phaseIndexFor finds the phase owning t. Phases are chronological and the
// earlier phase owns a shared boundary, so the first match wins; every
// phase after the first excludes its own start.
func phaseIndexFor(phases []archive.Phase, t time.Time) int {
	for i, p := range phases {
		if i == 0 {
			if t.Before(p.StartTime) {
				continue
			}
		} else if !t.After(p.StartTime) {
			continue
		}
		if p.EndTime == nil || !t.After(*p.EndTime) {
			return i
		}
	}
	return -1
}
