package archive

import (
	"sort"
	"time"

	"github.com/phasetrack/phasetrack/internal/metrics"
)

// FromMetrics converts a correlated workflow view into its archive form.
// Open phases are closed at completedAt.
func FromMetrics(u metrics.Unified, completedAt time.Time) Workflow {
	phases := make([]Phase, 0, len(u.Phases))
	for _, p := range u.Phases {
		phases = append(phases, buildPhase(p, completedAt))
	}

	w := Workflow{
		WorkflowID:  u.WorkflowID,
		Mode:        u.Mode,
		CompletedAt: completedAt,
		Phases:      phases,
		Transitions: u.Transitions,
	}
	w.Totals = ComputeTotals(w.Phases)
	return w
}

func buildPhase(p metrics.PhaseMetrics, completedAt time.Time) Phase {
	end := p.EndTime
	if end.IsZero() {
		end = completedAt
	}

	phase := Phase{
		PhaseName:         p.Name,
		StartTime:         p.StartTime,
		DurationSeconds:   int64(end.Sub(p.StartTime).Seconds()),
		Tokens:            p.Tokens,
		BashCommands:      summarizeCommands(p.BashCommands),
		FileModifications: summarizeModifications(p.FileModifications),
		GitCommits:        p.Commits,
	}
	if !end.IsZero() {
		phase.EndTime = &end
	}
	return phase
}

func summarizeCommands(cmds []metrics.BashCommand) []BashCommandSummary {
	byCmd := make(map[string]*BashCommandSummary)
	order := make([]string, 0, len(cmds))
	for _, c := range cmds {
		s, ok := byCmd[c.Command]
		if !ok {
			s = &BashCommandSummary{Command: c.Command}
			byCmd[c.Command] = s
			order = append(order, c.Command)
		}
		s.Count++
		s.Timestamps = append(s.Timestamps, c.Timestamp)
	}

	out := make([]BashCommandSummary, 0, len(order))
	for _, cmd := range order {
		out = append(out, *byCmd[cmd])
	}
	return out
}

func summarizeModifications(mods []metrics.FileModification) []FileModificationSummary {
	type key struct{ path, tool string }
	byFile := make(map[key]*FileModificationSummary)
	order := make([]key, 0, len(mods))
	for _, m := range mods {
		k := key{m.FilePath, m.Tool}
		s, ok := byFile[k]
		if !ok {
			s = &FileModificationSummary{FilePath: m.FilePath, Tool: m.Tool}
			byFile[k] = s
			order = append(order, k)
		}
		s.Count++
		s.Timestamps = append(s.Timestamps, m.Timestamp)
	}

	out := make([]FileModificationSummary, 0, len(order))
	for _, k := range order {
		out = append(out, *byFile[k])
	}
	return out
}

// ComputeTotals rolls phase activity up into workflow totals.
func ComputeTotals(phases []Phase) Totals {
	var t Totals
	files := make(map[string]struct{})
	cmds := make(map[string]struct{})

	for _, p := range phases {
		t.Tokens.Add(p.Tokens)
		t.GitCommits += len(p.GitCommits)
		for _, c := range p.BashCommands {
			t.BashCommands += c.Count
			cmds[c.Command] = struct{}{}
		}
		for _, m := range p.FileModifications {
			t.FileModifications += m.Count
			files[m.FilePath] = struct{}{}
		}
	}

	t.UniqueFiles = len(files)
	t.UniqueCommands = len(cmds)
	return t
}

// SumTotals folds every archive's totals into one rollup.
func SumTotals(workflows []Workflow) Totals {
	var t Totals
	for _, w := range workflows {
		t.Add(w.Totals)
	}
	return t
}

// SortWorkflows orders archives chronologically by workflow id.
func SortWorkflows(workflows []Workflow) {
	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].WorkflowID < workflows[j].WorkflowID
	})
}
