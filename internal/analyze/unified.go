// Package analyze builds the correlated view of workflow activity from the
// live logs and the archive store, and turns completed workflows into
// archives.
package analyze

import (
	"fmt"
	"time"

	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/gitlog"
	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/metrics"
	"github.com/phasetrack/phasetrack/internal/state"
	"github.com/phasetrack/phasetrack/internal/transcripts"
)

// Result is the full metrics view for one project.
type Result struct {
	Live     metrics.Unified
	Archived []archive.Workflow
	Totals   archive.Totals
}

// Options controls what BuildUnified reads.
type Options struct {
	// IncludeArchives merges archived workflows into the totals. Live logs
	// are deleted at archive time, so live and archived activity never
	// overlap and including both cannot double count.
	IncludeArchives bool
}

// BuildUnified correlates the live logs, transcripts, and git history for
// the active workflow, optionally folding in archived workflows.
func BuildUnified(storage *state.Storage, projectRoot string, opts Options) (*Result, error) {
	st, err := storage.Load()
	if err != nil {
		return nil, err
	}

	live, err := buildLive(storage, projectRoot, st)
	if err != nil {
		return nil, err
	}

	res := &Result{Live: live}
	res.Totals = liveTotals(live)

	if opts.IncludeArchives {
		store, err := archive.NewStore(storage.ArchivePath())
		if err != nil {
			return nil, err
		}
		archived, err := store.ReadAll()
		if err != nil {
			return nil, err
		}
		res.Archived = archived
		for _, w := range archived {
			res.Totals.Add(w.Totals)
		}
	}

	return res, nil
}

func buildLive(storage *state.Storage, projectRoot string, st state.State) (metrics.Unified, error) {
	var u metrics.Unified

	hook, err := metrics.ParseHooksFile(storage.HooksPath())
	if err != nil {
		return u, err
	}
	transitions, err := metrics.ParseTransitionsFile(storage.TransitionsPath())
	if err != nil {
		return u, err
	}

	files, err := transcripts.ListSessionFiles(projectRoot)
	if err != nil {
		return u, err
	}
	if len(files) == 0 && st.Session.TranscriptPath != "" {
		files = []string{st.Session.TranscriptPath}
	}

	phases, err := metrics.BuildPhaseMetrics(transitions, hook, files)
	if err != nil {
		return u, err
	}

	if len(phases) > 0 {
		commits, err := gitlog.ParseCommits(projectRoot, phases[0].StartTime)
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping git attribution")
		} else {
			metrics.AttributeCommits(phases, commits)
			for _, p := range phases {
				u.Commits = append(u.Commits, p.Commits...)
			}
		}
	}

	u.WorkflowID = st.Workflow.WorkflowID
	if u.WorkflowID == "" && len(transitions) > 0 {
		u.WorkflowID = transitions[0].Timestamp.UTC().Format(time.RFC3339)
	}
	u.Mode = st.Workflow.Mode
	if u.Mode == "" && len(transitions) > 0 {
		u.Mode = transitions[0].Mode
	}
	u.SessionStart = hook.SessionStart
	u.SessionEnd = hook.SessionEnd
	u.TotalEvents = hook.TotalEvents
	u.Phases = phases
	u.Transitions = transitions

	for _, p := range phases {
		u.Tokens.Add(p.Tokens)
	}

	return u, nil
}

func liveTotals(u metrics.Unified) archive.Totals {
	t := archive.Totals{
		Tokens:      u.Tokens,
		UniqueFiles: u.UniqueFiles(),
		GitCommits:  len(u.Commits),
	}
	t.UniqueCommands = u.UniqueCommands()
	for _, p := range u.Phases {
		t.BashCommands += len(p.BashCommands)
		t.FileModifications += len(p.FileModifications)
	}
	return t
}

// ErrNoActiveWorkflow is returned by Archive when the transition log is
// empty.
var ErrNoActiveWorkflow = fmt.Errorf("no active workflow to archive")
