package metrics

import (
	"fmt"
	"time"

	"github.com/phasetrack/phasetrack/internal/gitlog"
)

// Window bounds an attribution scan. Start is exclusive when StrictStart is
// set, inclusive otherwise. End is inclusive; a zero End leaves the window
// open.
type Window struct {
	Start       time.Time
	End         time.Time
	StrictStart bool
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.StrictStart {
		if !t.After(w.Start) {
			return false
		}
	} else if t.Before(w.Start) {
		return false
	}
	return w.End.IsZero() || !t.After(w.End)
}

// Past reports whether t lies beyond the window end, so a scan over
// monotonic timestamps can stop.
func (w Window) Past(t time.Time) bool {
	return !w.End.IsZero() && t.After(w.End)
}

// phaseWindow returns the attribution window for phases[i]. Adjacent phases
// share a boundary timestamp; the earlier phase owns it, so every phase
// after the first excludes its own start.
func phaseWindow(phases []PhaseMetrics, i int) Window {
	return Window{
		Start:       phases[i].StartTime,
		End:         phases[i].EndTime,
		StrictStart: i > 0,
	}
}

// BuildPhaseMetrics converts a transition sequence into phase intervals and
// attributes hook activity and transcript tokens to each. Phase N runs from
// transition N's timestamp to transition N+1's; the last phase stays open.
// Zero transitions yield zero phases.
func BuildPhaseMetrics(transitions []Transition, hook HookMetrics, transcriptFiles []string) ([]PhaseMetrics, error) {
	if len(transitions) == 0 {
		return nil, nil
	}

	phases := make([]PhaseMetrics, 0, len(transitions))
	for i, tr := range transitions {
		phase := PhaseMetrics{
			Name:      tr.ToPhase,
			StartTime: tr.Timestamp,
		}
		if i+1 < len(transitions) {
			phase.EndTime = transitions[i+1].Timestamp
		}
		phases = append(phases, phase)
	}

	for i := range phases {
		win := phaseWindow(phases, i)
		p := &phases[i]

		for _, cmd := range hook.BashCommands {
			if win.Contains(cmd.Timestamp) {
				p.BashCommands = append(p.BashCommands, cmd)
			}
		}
		for _, mod := range hook.FileModifications {
			if win.Contains(mod.Timestamp) {
				p.FileModifications = append(p.FileModifications, mod)
			}
		}

		tokens, err := AggregateTokens(transcriptFiles, win)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate tokens for phase %q: %w", p.Name, err)
		}
		p.Tokens = tokens
	}

	return phases, nil
}

// AttributeCommits assigns each commit to the phase whose window contains
// its timestamp. Commits outside every phase are dropped.
func AttributeCommits(phases []PhaseMetrics, commits []gitlog.Commit) {
	for _, c := range commits {
		for i := range phases {
			if phaseWindow(phases, i).Contains(c.Timestamp) {
				phases[i].Commits = append(phases[i].Commits, c)
				break
			}
		}
	}
}
