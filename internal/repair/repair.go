package repair

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/gitlog"
	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/metrics"
	"github.com/phasetrack/phasetrack/internal/state"
	"github.com/phasetrack/phasetrack/internal/transcripts"
)

// Options configures a repair pass.
type Options struct {
	ProjectRoot string
	// DryRun performs all detection but writes nothing.
	DryRun bool
	// GapThreshold groups gap activity into synthetic sessions; zero means
	// DefaultGapThreshold.
	GapThreshold time.Duration
	// IsTerminalPhase overrides the default terminal phase set.
	IsTerminalPhase func(phase string) bool
}

// Report summarizes what a repair pass did, or would do under dry run.
type Report struct {
	Checked    int            `json:"checked"`
	Created    int            `json:"created"`
	Modified   int            `json:"modified"`
	Removed    int            `json:"removed"`
	Strategies map[string]int `json:"strategies,omitempty"`
	DryRun     bool           `json:"dry_run,omitempty"`
}

// Run executes the full repair pass: per-archive cleanup strategies, then
// cross-archive post-processing, then gap reconciliation, then a totals
// rebuild. The pass assumes a single writer; a lock file in the state
// directory turns a concurrent invocation into an immediate error instead
// of silent corruption.
func Run(storage *state.Storage, opts Options) (*Report, error) {
	lock := flock.New(filepath.Join(storage.Dir(), "repair.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire repair lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another repair pass is already running")
	}
	defer lock.Unlock()

	store, err := archive.NewStore(storage.ArchivePath())
	if err != nil {
		return nil, err
	}
	workflows, err := store.ReadAll()
	if err != nil {
		return nil, err
	}

	commits, err := gitlog.ParseCommits(opts.ProjectRoot, time.Time{})
	if err != nil {
		logger.Warn().Err(err).Msg("Repairing without git history")
		commits = nil
	}
	ctx := &Context{
		ProjectRoot:     opts.ProjectRoot,
		Commits:         commits,
		IsTerminalPhase: opts.IsTerminalPhase,
	}

	hooks, err := metrics.ParseHooksFile(storage.HooksPath())
	if err != nil {
		return nil, err
	}
	transcriptFiles, err := transcripts.ListSessionFiles(opts.ProjectRoot)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Checked:    len(workflows),
		Strategies: make(map[string]int),
		DryRun:     opts.DryRun,
	}
	strategies := DefaultStrategies()

	for i := range workflows {
		w := &workflows[i]
		changed := false
		for _, s := range strategies {
			if !s.NeedsRepair(ctx, w) {
				continue
			}
			did, err := s.Repair(ctx, w)
			if err != nil {
				return nil, fmt.Errorf("strategy %s failed on %s: %w", s.Name(), w.WorkflowID, err)
			}
			if did {
				report.Strategies[s.Name()]++
				changed = true
			}
		}
		if changed {
			report.Modified++
			if !opts.DryRun {
				if err := store.Replace(*w); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, s := range strategies {
		batch, ok := s.(BatchStrategy)
		if !ok {
			continue
		}
		removeIDs, err := batch.PostProcess(ctx, workflows)
		if err != nil {
			return nil, fmt.Errorf("strategy %s post-process failed: %w", s.Name(), err)
		}
		for _, id := range removeIDs {
			logger.Info().Str("workflow_id", id).Str("strategy", s.Name()).Msg("Removing archive")
			if !opts.DryRun {
				if err := store.Remove(id); err != nil {
					return nil, err
				}
			}
			workflows = dropWorkflow(workflows, id)
			report.Strategies[s.Name()]++
			report.Removed++
		}
	}

	created, removed, err := ReconcileGaps(ctx, store, workflows, hooks, transcriptFiles, opts.GapThreshold, opts.DryRun)
	if err != nil {
		return nil, err
	}
	report.Created += created
	report.Removed += removed

	if !opts.DryRun {
		final, err := store.ReadAll()
		if err != nil {
			return nil, err
		}
		if err := RebuildTotals(storage, final); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Int("checked", report.Checked).
		Int("created", report.Created).
		Int("modified", report.Modified).
		Int("removed", report.Removed).
		Bool("dry_run", report.DryRun).
		Msg("Repair pass complete")

	return report, nil
}

func dropWorkflow(workflows []archive.Workflow, id string) []archive.Workflow {
	out := workflows[:0]
	for _, w := range workflows {
		if w.WorkflowID != id {
			out = append(out, w)
		}
	}
	return out
}
