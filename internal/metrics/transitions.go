package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/phasetrack/phasetrack/internal/logger"
)

// ParseTransitionsFile reads the phase-transition log in recorded order.
// A missing file yields an empty slice and no error; malformed lines are
// logged and skipped.
func ParseTransitionsFile(path string) ([]Transition, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open transition log: %w", err)
	}
	defer f.Close()

	var transitions []Transition

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

		var tr Transition
		if err := json.Unmarshal(line, &tr); err != nil {
			logger.Debug().Int("line", lineNum).Err(err).Msg("Skipping malformed transition")
			continue
		}
		if tr.Timestamp.IsZero() || tr.ToPhase == "" {
			logger.Debug().Int("line", lineNum).Msg("Skipping incomplete transition")
			continue
		}

		transitions = append(transitions, tr)
	}

	if err := scanner.Err(); err != nil {
		return transitions, fmt.Errorf("failed to read transition log: %w", err)
	}

	return transitions, nil
}
