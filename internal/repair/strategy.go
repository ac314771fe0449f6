// Package repair detects and fixes defects in the archive history: gaps
// with untracked activity, archives missing commit data, workflows that
// never terminated, and leftovers from earlier buggy repairs. Every fix is
// idempotent; a second pass over unchanged data is a no-op.
package repair

import (
	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/gitlog"
)

// Context carries the shared inputs strategies draw on.
type Context struct {
	ProjectRoot string
	// Commits is the project's full first-parent history, oldest first.
	Commits []gitlog.Commit
	// IsTerminalPhase reports whether a phase name ends a workflow.
	IsTerminalPhase func(phase string) bool
}

func (c *Context) terminal() func(string) bool {
	if c.IsTerminalPhase != nil {
		return c.IsTerminalPhase
	}
	return func(phase string) bool {
		return phase == "done" || phase == AbortedPhase
	}
}

// Strategy inspects and fixes one archive at a time. NeedsRepair is pure
// detection; Repair mutates the archive in memory and reports whether it
// changed anything. The orchestrator persists changed archives unless the
// pass is a dry run.
type Strategy interface {
	Name() string
	NeedsRepair(ctx *Context, w *archive.Workflow) bool
	Repair(ctx *Context, w *archive.Workflow) (bool, error)
}

// BatchStrategy sees the whole sorted archive list after the per-archive
// strategies ran, and names archives to remove. Used for defects that only
// show up across archives.
type BatchStrategy interface {
	Strategy
	PostProcess(ctx *Context, workflows []archive.Workflow) (removeIDs []string, err error)
}

// DefaultStrategies is the registry run by a full repair pass, in order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		&GitBackfill{},
		&AbortedBackfill{},
		&DuplicateCowboys{},
	}
}
