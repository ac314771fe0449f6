package repair

import (
	"fmt"
	"sort"
	"time"

	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/gitlog"
	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/metrics"
)

// DefaultGapThreshold is the proximity window for grouping gap activity
// into one synthetic session.
const DefaultGapThreshold = time.Hour

// Gap is the interval between two adjacent tracked workflows: open after
// the earlier one completed, closed when the later one started.
type Gap struct {
	Start time.Time
	End   time.Time
}

// DetectGaps finds the intervals between adjacent non-synthetic archives.
// Input must be sorted by workflow id.
func DetectGaps(workflows []archive.Workflow) []Gap {
	var real []archive.Workflow
	for _, w := range workflows {
		if !w.IsSynthetic {
			real = append(real, w)
		}
	}

	var gaps []Gap
	for i := 0; i+1 < len(real); i++ {
		nextStart, err := real[i+1].StartTime()
		if err != nil {
			logger.Warn().Str("workflow_id", real[i+1].WorkflowID).Err(err).Msg("Skipping gap after unparseable workflow id")
			continue
		}
		if !nextStart.After(real[i].CompletedAt) {
			continue
		}
		gaps = append(gaps, Gap{Start: real[i].CompletedAt, End: nextStart})
	}
	return gaps
}

// gapActivity is everything observed strictly inside one gap.
type gapActivity struct {
	commits  []gitlog.Commit
	commands []metrics.BashCommand
	mods     []metrics.FileModification
	turns    []time.Time
}

func (a gapActivity) times() []time.Time {
	var out []time.Time
	for _, c := range a.commits {
		out = append(out, c.Timestamp)
	}
	for _, c := range a.commands {
		out = append(out, c.Timestamp)
	}
	for _, m := range a.mods {
		out = append(out, m.Timestamp)
	}
	out = append(out, a.turns...)
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// collectActivity gathers evidence of work strictly inside the gap. Both
// endpoints are excluded: the start belongs to the previous workflow and
// the end to the next.
func collectActivity(ctx *Context, gap Gap, hooks metrics.HookMetrics, transcriptFiles []string) (gapActivity, error) {
	var a gapActivity

	inside := func(t time.Time) bool {
		return t.After(gap.Start) && t.Before(gap.End)
	}

	for _, c := range ctx.Commits {
		if inside(c.Timestamp) {
			a.commits = append(a.commits, c)
		}
	}
	for _, c := range hooks.BashCommands {
		if inside(c.Timestamp) {
			a.commands = append(a.commands, c)
		}
	}
	for _, m := range hooks.FileModifications {
		if inside(m.Timestamp) {
			a.mods = append(a.mods, m)
		}
	}

	win := metrics.Window{
		Start:       gap.Start,
		End:         gap.End.Add(-time.Nanosecond),
		StrictStart: true,
	}
	turns, err := metrics.AssistantTimes(transcriptFiles, win)
	if err != nil {
		return a, err
	}
	a.turns = turns

	return a, nil
}

// cluster splits sorted timestamps into groups where consecutive events are
// at most threshold apart. Each group becomes one synthetic session.
func cluster(times []time.Time, threshold time.Duration) [][2]time.Time {
	if len(times) == 0 {
		return nil
	}

	var spans [][2]time.Time
	start, end := times[0], times[0]
	for _, t := range times[1:] {
		if t.Sub(end) > threshold {
			spans = append(spans, [2]time.Time{start, end})
			start = t
		}
		end = t
	}
	spans = append(spans, [2]time.Time{start, end})
	return spans
}

// synthesize builds the synthetic archive for one activity cluster. The
// workflow spans exactly the first and last attributed event, with a single
// phase covering the whole ride.
func synthesize(a gapActivity, first, last time.Time, transcriptFiles []string) (archive.Workflow, error) {
	within := func(t time.Time) bool {
		return !t.Before(first) && !t.After(last)
	}

	phase := metrics.PhaseMetrics{
		Name:      archive.SyntheticPhase,
		StartTime: first,
		EndTime:   last,
	}
	for _, c := range a.commands {
		if within(c.Timestamp) {
			phase.BashCommands = append(phase.BashCommands, c)
		}
	}
	for _, m := range a.mods {
		if within(m.Timestamp) {
			phase.FileModifications = append(phase.FileModifications, m)
		}
	}
	for _, c := range a.commits {
		if within(c.Timestamp) {
			phase.Commits = append(phase.Commits, c)
		}
	}

	tokens, err := metrics.AggregateTokens(transcriptFiles, metrics.Window{Start: first, End: last})
	if err != nil {
		return archive.Workflow{}, fmt.Errorf("failed to aggregate gap tokens: %w", err)
	}
	phase.Tokens = tokens

	// Nanosecond precision: clusters starting within the same second must
	// not collide on id
	u := metrics.Unified{
		WorkflowID: first.UTC().Format(time.RFC3339Nano),
		Mode:       archive.SyntheticMode,
		Phases:     []metrics.PhaseMetrics{phase},
	}
	w := archive.FromMetrics(u, last)
	w.IsSynthetic = true
	return w, nil
}

// ReconcileGaps makes the synthetic archives match the activity actually
// found in every gap. Cowboys with exactly correct boundaries survive;
// wrong or spurious ones are removed and missing ones created. Running it
// again with no new data creates and removes nothing.
func ReconcileGaps(ctx *Context, store *archive.Store, workflows []archive.Workflow, hooks metrics.HookMetrics, transcriptFiles []string, threshold time.Duration, dryRun bool) (created, removed int, err error) {
	if threshold <= 0 {
		threshold = DefaultGapThreshold
	}

	for _, gap := range DetectGaps(workflows) {
		a, err := collectActivity(ctx, gap, hooks, transcriptFiles)
		if err != nil {
			return created, removed, err
		}

		desired := make(map[string]archive.Workflow)
		for _, span := range cluster(a.times(), threshold) {
			w, err := synthesize(a, span[0], span[1], transcriptFiles)
			if err != nil {
				return created, removed, err
			}
			desired[w.WorkflowID] = w
		}

		for _, existing := range existingCowboys(workflows, gap) {
			want, ok := desired[existing.WorkflowID]
			if ok && want.CompletedAt.Equal(existing.CompletedAt) {
				delete(desired, existing.WorkflowID)
				continue
			}
			logger.Info().Str("workflow_id", existing.WorkflowID).Msg("Removing stale synthetic archive")
			if !dryRun {
				if err := store.Remove(existing.WorkflowID); err != nil {
					return created, removed, err
				}
			}
			removed++
		}

		for _, w := range desired {
			logger.Info().Str("workflow_id", w.WorkflowID).Msg("Creating synthetic archive")
			if !dryRun {
				if err := store.Replace(w); err != nil {
					return created, removed, err
				}
			}
			created++
		}
	}

	return created, removed, nil
}

func existingCowboys(workflows []archive.Workflow, gap Gap) []archive.Workflow {
	var out []archive.Workflow
	for _, w := range workflows {
		if !w.IsSynthetic {
			continue
		}
		start, err := w.StartTime()
		if err != nil {
			continue
		}
		if start.After(gap.Start) && start.Before(gap.End) {
			out = append(out, w)
		}
	}
	return out
}
