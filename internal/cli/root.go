package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phasetrack/phasetrack/internal/config"
	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/state"
)

// Version information set via ldflags
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	verbose    bool
	projectDir string
)

var rootCmd = &cobra.Command{
	Use:   "phasetrack",
	Short: "Phase-attributed activity metrics for coding agent sessions",
	Long: `Phasetrack correlates coding agent activity logs (hook events, phase
transitions, session transcripts) and git history into per-phase metrics,
archives completed workflows, and repairs the archive history.

State lives in the project's .phasetrack directory:
  - hooks.jsonl and transitions.jsonl (live logs)
  - archive/ (one JSON file per completed workflow)
  - state.json (session metadata and cumulative totals)`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("phasetrack %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", Date)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "Override project directory")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration, initializes logging, and opens the project's
// state directory. Every subcommand starts here.
func setup() (*config.Config, *state.Storage, string, error) {
	root := projectDir
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, nil, "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = cwd
	}

	loader, err := config.NewLoader(root)
	if err != nil {
		return nil, nil, "", err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, "", err
	}

	if verbose {
		_ = logger.Init("debug", cfg.Settings.LogFile)
	} else {
		_ = logger.Init(cfg.Settings.LogLevel, cfg.Settings.LogFile)
	}

	storage, err := state.NewStorage(filepath.Join(root, cfg.Settings.StateDirName))
	if err != nil {
		return nil, nil, "", err
	}

	return cfg, storage, root, nil
}
