package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phasetrack/phasetrack/internal/hooks"
	"github.com/phasetrack/phasetrack/internal/logger"
	"github.com/phasetrack/phasetrack/internal/metrics"
	"github.com/phasetrack/phasetrack/internal/state"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Append an event to the live logs",
	Long: `Record appends one event read from stdin to the project's live logs.
Each agent hook invocation runs a separate phasetrack process, so appends
take an exclusive file lock with bounded retry.`,
}

var recordHookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Record a hook event from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, storage, _, err := setup()
		if err != nil {
			return err
		}

		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read hook event: %w", err)
		}

		var event hooks.Event
		if err := json.Unmarshal(input, &event); err != nil {
			return fmt.Errorf("failed to parse hook event: %w", err)
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		line, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode hook event: %w", err)
		}

		delay, timeout := cfg.LockRetry()
		if err := state.AppendLine(storage.HooksPath(), line, delay, timeout); err != nil {
			return err
		}

		if event.HookEventName == hooks.SessionStart {
			if err := storage.Update(func(s *state.State) {
				s.Session = state.SessionMetadata{
					SessionID:      event.SessionID,
					TranscriptPath: event.TranscriptPath,
					StartedAt:      event.Timestamp,
				}
			}); err != nil {
				return err
			}
		}

		logger.Debug().
			Str("event", string(event.HookEventName)).
			Str("session_id", event.SessionID).
			Msg("Recorded hook event")
		return nil
	},
}

var recordTransitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Record a phase transition from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, storage, _, err := setup()
		if err != nil {
			return err
		}

		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read transition: %w", err)
		}

		var tr metrics.Transition
		if err := json.Unmarshal(input, &tr); err != nil {
			return fmt.Errorf("failed to parse transition: %w", err)
		}
		if tr.ToPhase == "" {
			return fmt.Errorf("transition is missing to_phase")
		}
		if tr.Timestamp.IsZero() {
			tr.Timestamp = time.Now().UTC()
		}

		st, err := storage.Load()
		if err != nil {
			return err
		}
		if tr.WorkflowID == "" {
			tr.WorkflowID = st.Workflow.WorkflowID
		}
		if tr.WorkflowID == "" {
			tr.WorkflowID = tr.Timestamp.UTC().Format(time.RFC3339)
		}

		line, err := json.Marshal(tr)
		if err != nil {
			return fmt.Errorf("failed to encode transition: %w", err)
		}

		delay, timeout := cfg.LockRetry()
		if err := state.AppendLine(storage.TransitionsPath(), line, delay, timeout); err != nil {
			return err
		}

		if st.Workflow.WorkflowID != tr.WorkflowID || (tr.Mode != "" && st.Workflow.Mode != tr.Mode) {
			if err := storage.Update(func(s *state.State) {
				s.Workflow.WorkflowID = tr.WorkflowID
				if tr.Mode != "" {
					s.Workflow.Mode = tr.Mode
				}
			}); err != nil {
				return err
			}
		}

		logger.Debug().
			Str("workflow_id", tr.WorkflowID).
			Str("to_phase", tr.ToPhase).
			Msg("Recorded transition")
		return nil
	},
}

func init() {
	recordCmd.AddCommand(recordHookCmd)
	recordCmd.AddCommand(recordTransitionCmd)
	rootCmd.AddCommand(recordCmd)
}
