package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phasetrack/phasetrack/internal/analyze"
	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/index"
	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/state"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive the active workflow and clear the live logs",
	Long: `Archive writes the active workflow's correlated metrics to a permanent
archive file and then deletes the live logs. Logs are only removed after
the archive is safely on disk; a failed write leaves everything in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, storage, root, err := setup()
		if err != nil {
			return err
		}

		w, err := analyze.Archive(storage, root, time.Now().UTC())
		if err != nil {
			if errors.Is(err, analyze.ErrNoActiveWorkflow) {
				fmt.Println("No active workflow to archive.")
				return nil
			}
			return err
		}

		refreshIndex(storage)

		fmt.Printf("Archived workflow %s (%d phases, %d commits)\n",
			w.WorkflowID, len(w.Phases), w.Totals.GitCommits)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
}

// refreshIndex rebuilds the sqlite index from the archive files. The index
// is derived data; failure to update it is logged, never fatal.
func refreshIndex(storage *state.Storage) {
	store, err := archive.NewStore(storage.ArchivePath())
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping index refresh")
		return
	}
	workflows, err := store.ReadAll()
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping index refresh")
		return
	}

	idx, err := index.NewSQLiteStore(indexPath(storage))
	if err != nil {
		logger.Warn().Err(err).Msg("Skipping index refresh")
		return
	}
	defer idx.Close()

	if err := idx.Rebuild(workflows); err != nil {
		logger.Warn().Err(err).Msg("Failed to rebuild archive index")
	}
}

func indexPath(storage *state.Storage) string {
	return filepath.Join(storage.Dir(), "index.db")
}
