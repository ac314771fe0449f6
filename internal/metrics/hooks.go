package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/phasetrack/phasetrack/internal/hooks"
	"github.com/phasetrack/phasetrack/internal/logger"
)

// fileModTools are the tools whose PostToolUse events count as file
// modifications.
var fileModTools = map[string]bool{
	"Edit":         true,
	"Write":        true,
	"MultiEdit":    true,
	"NotebookEdit": true,
}

// ParseHooksFile scans a hook event log and extracts bash commands, file
// modifications, and the observed session time range. A missing file yields
// empty metrics and no error. Lines that fail to decode are logged and
// skipped; one recorder writing garbage must not hide every other event.
func ParseHooksFile(path string) (HookMetrics, error) {
	var m HookMetrics

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("failed to open hook log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*1024)
	scanner.Buffer(buf, 10*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event hooks.Event
		if err := json.Unmarshal(line, &event); err != nil {
			logger.Debug().Int("line", lineNum).Err(err).Msg("Skipping malformed hook event")
			continue
		}
		if event.Timestamp.IsZero() {
			logger.Debug().Int("line", lineNum).Msg("Skipping hook event without timestamp")
			continue
		}

		m.TotalEvents++

		if m.SessionStart.IsZero() || event.Timestamp.Before(m.SessionStart) {
			m.SessionStart = event.Timestamp
		}
		if event.Timestamp.After(m.SessionEnd) {
			m.SessionEnd = event.Timestamp
		}

		if event.HookEventName != hooks.PostToolUse {
			continue
		}

		switch {
		case event.ToolName == "Bash":
			if cmd := event.InputString("command"); cmd != "" {
				m.BashCommands = append(m.BashCommands, BashCommand{
					Command:   cmd,
					Timestamp: event.Timestamp,
				})
			}
		case fileModTools[event.ToolName]:
			if path := event.InputString("file_path"); path != "" {
				m.FileModifications = append(m.FileModifications, FileModification{
					FilePath:  path,
					Tool:      event.ToolName,
					Timestamp: event.Timestamp,
				})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return m, fmt.Errorf("failed to read hook log: %w", err)
	}

	return m, nil
}
