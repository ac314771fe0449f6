package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/repair"
)

var (
	repairDryRun bool
	repairJSON   bool
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Detect and fix defects in the archive history",
	Long: `Repair runs the full maintenance pass over the archive directory:
backfills missing commit data, marks workflows that never terminated as
aborted, removes leftover duplicate synthetic sessions, reconciles
synthetic coverage of gaps between workflows, and rebuilds the cumulative
totals. With --dry-run everything is detected but nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, storage, root, err := setup()
		if err != nil {
			return err
		}
		if repairJSON {
			logger.InitQuiet()
		}

		report, err := repair.Run(storage, repair.Options{
			ProjectRoot:     root,
			DryRun:          repairDryRun,
			GapThreshold:    cfg.GapThresholdDuration(),
			IsTerminalPhase: cfg.IsTerminalPhase,
		})
		if err != nil {
			return err
		}

		if !repairDryRun {
			refreshIndex(storage)
		}

		if repairJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		prefix := ""
		if report.DryRun {
			prefix = "[dry-run] "
		}
		fmt.Printf("%sChecked %d archive(s): %d created, %d modified, %d removed\n",
			prefix, report.Checked, report.Created, report.Modified, report.Removed)
		for name, count := range report.Strategies {
			fmt.Printf("  %s: %d\n", name, count)
		}
		return nil
	},
}

func init() {
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "Detect only; write nothing")
	repairCmd.Flags().BoolVar(&repairJSON, "json", false, "Emit the report as JSON")
	rootCmd.AddCommand(repairCmd)
}
