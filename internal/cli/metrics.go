package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/phasetrack/phasetrack/internal/analyze"
	"github.com/phasetrack/phasetrack/internal/archive"
	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/metrics"
)

var (
	metricsIncludeArchives bool
	metricsJSON            bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show phase-attributed metrics for the active workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, storage, root, err := setup()
		if err != nil {
			return err
		}
		if metricsJSON {
			// Keep stderr clean so the command composes in pipelines
			logger.InitQuiet()
		}

		res, err := analyze.BuildUnified(storage, root, analyze.Options{
			IncludeArchives: metricsIncludeArchives,
		})
		if err != nil {
			return err
		}

		if metricsJSON {
			return writeMetricsJSON(res)
		}
		renderMetrics(res)
		return nil
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsIncludeArchives, "include-archives", false, "Fold archived workflows into the totals")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Emit JSON instead of a table")
	rootCmd.AddCommand(metricsCmd)
}

type metricsOutput struct {
	WorkflowID string         `json:"workflow_id,omitempty"`
	Mode       string         `json:"mode,omitempty"`
	Phases     []phaseOutput  `json:"phases"`
	Totals     archive.Totals `json:"totals"`
	Archived   int            `json:"archived_workflows,omitempty"`
	Events     int            `json:"hook_events"`
}

type phaseOutput struct {
	Name              string               `json:"name"`
	StartTime         time.Time            `json:"start_time"`
	EndTime           *time.Time           `json:"end_time,omitempty"`
	DurationSeconds   int64                `json:"duration_seconds"`
	Tokens            metrics.TokenMetrics `json:"tokens"`
	BashCommands      int                  `json:"bash_commands"`
	FileModifications int                  `json:"file_modifications"`
	GitCommits        int                  `json:"git_commits"`
}

func buildMetricsOutput(res *analyze.Result) metricsOutput {
	out := metricsOutput{
		WorkflowID: res.Live.WorkflowID,
		Mode:       res.Live.Mode,
		Totals:     res.Totals,
		Archived:   len(res.Archived),
		Events:     res.Live.TotalEvents,
		Phases:     []phaseOutput{},
	}
	now := time.Now()
	for _, p := range res.Live.Phases {
		po := phaseOutput{
			Name:              p.Name,
			StartTime:         p.StartTime,
			DurationSeconds:   int64(p.Duration(now).Seconds()),
			Tokens:            p.Tokens,
			BashCommands:      len(p.BashCommands),
			FileModifications: len(p.FileModifications),
			GitCommits:        len(p.Commits),
		}
		if !p.EndTime.IsZero() {
			end := p.EndTime
			po.EndTime = &end
		}
		out.Phases = append(out.Phases, po)
	}
	return out
}

func writeMetricsJSON(res *analyze.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(buildMetricsOutput(res))
}

func renderMetrics(res *analyze.Result) {
	out := buildMetricsOutput(res)

	if out.WorkflowID != "" {
		fmt.Printf("Workflow %s", out.WorkflowID)
		if out.Mode != "" {
			fmt.Printf(" (%s)", out.Mode)
		}
		fmt.Println()
	}

	tw := newTable(os.Stdout)
	tw.AppendHeader(table.Row{"Phase", "Duration", "Tokens", "Bash", "Files", "Commits"})
	now := time.Now()
	for _, p := range res.Live.Phases {
		tw.AppendRow(table.Row{
			p.Name,
			formatDuration(p.Duration(now)),
			humanize.Comma(int64(p.Tokens.Total())),
			len(p.BashCommands),
			len(p.FileModifications),
			len(p.Commits),
		})
	}
	if len(res.Live.Phases) == 0 {
		tw.AppendRow(table.Row{"(no active workflow)", "-", "-", "-", "-", "-"})
	}
	tw.AppendFooter(table.Row{
		"total",
		"",
		humanize.Comma(int64(out.Totals.Tokens.Total())),
		out.Totals.BashCommands,
		out.Totals.FileModifications,
		out.Totals.GitCommits,
	})
	tw.Render()

	if out.Archived > 0 {
		fmt.Printf("Includes %d archived workflow(s)\n", out.Archived)
	}
}
