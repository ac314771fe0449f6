package cli

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/phasetrack/phasetrack/internal/index"
	"github.com/phasetrack/phasetrack/internal/logger"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived workflows",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, storage, _, err := setup()
		if err != nil {
			return err
		}
		if listJSON {
			logger.InitQuiet()
		}

		// The index is rebuilt on every archive and repair; refreshing
		// here too keeps list correct even after manual archive edits.
		refreshIndex(storage)

		idx, err := index.NewSQLiteStore(indexPath(storage))
		if err != nil {
			return err
		}
		defer idx.Close()

		entries, err := idx.List()
		if err != nil {
			return err
		}

		if listJSON {
			out := make([]map[string]interface{}, 0, len(entries))
			for _, e := range entries {
				out = append(out, map[string]interface{}{
					"workflow_id":  e.WorkflowID,
					"mode":         e.Mode,
					"completed_at": e.CompletedAt.Format(time.RFC3339),
					"is_synthetic": e.IsSynthetic,
					"phases":       e.PhaseCount,
					"total_tokens": e.TotalTokens,
					"git_commits":  e.GitCommits,
				})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		tw := newTable(os.Stdout)
		tw.AppendHeader(table.Row{"Workflow", "Mode", "Completed", "Phases", "Tokens", "Commits"})
		for _, e := range entries {
			mode := e.Mode
			if e.IsSynthetic {
				mode += " (synthetic)"
			}
			tw.AppendRow(table.Row{
				e.WorkflowID,
				mode,
				e.CompletedAt.Format(time.RFC3339),
				e.PhaseCount,
				humanize.Comma(int64(e.TotalTokens)),
				e.GitCommits,
			})
		}
		if len(entries) == 0 {
			tw.AppendRow(table.Row{"(no archives)", "-", "-", "-", "-", "-"})
		}
		tw.Render()
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Emit JSON instead of a table")
	rootCmd.AddCommand(listCmd)
}
