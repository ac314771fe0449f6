package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phasetrack/phasetrack/internal/logger"
)

// transcriptUsage is the token-usage block of an assistant turn.
type transcriptUsage struct {
	InputTokens         uint64 `json:"input_tokens"`
	OutputTokens        uint64 `json:"output_tokens"`
	CacheCreationTokens uint64 `json:"cache_creation_input_tokens"`
	CacheReadTokens     uint64 `json:"cache_read_input_tokens"`
}

// transcriptEvent is the subset of a transcript line the aggregator needs.
// Older transcripts put usage at the top level; newer ones nest it under
// message. Both shapes are accepted.
type transcriptEvent struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Usage     *transcriptUsage `json:"usage"`
	Message   *struct {
		Usage *transcriptUsage `json:"usage"`
	} `json:"message"`
}

func (e *transcriptEvent) usage() *transcriptUsage {
	if e.Usage != nil {
		return e.Usage
	}
	if e.Message != nil {
		return e.Message.Usage
	}
	return nil
}

// scanTranscript sums assistant-turn token usage for events inside win in a
// single transcript file. Timestamps within one file are monotonically
// increasing, so the scan stops at the first event past the window end.
// A missing file yields zero usage.
func scanTranscript(path string, win Window) (TokenMetrics, error) {
	var m TokenMetrics

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("failed to open transcript: %w", err)
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

		var event transcriptEvent
		if err := json.Unmarshal(line, &event); err != nil {
			logger.Debug().Str("file", path).Int("line", lineNum).Err(err).Msg("Skipping malformed transcript line")
			continue
		}
		if event.Timestamp.IsZero() {
			continue
		}
		if win.Past(event.Timestamp) {
			break
		}
		if !win.Contains(event.Timestamp) {
			continue
		}
		if event.Type != "assistant" {
			continue
		}

		usage := event.usage()
		if usage == nil {
			continue
		}

		m.InputTokens += usage.InputTokens
		m.OutputTokens += usage.OutputTokens
		m.CacheCreationTokens += usage.CacheCreationTokens
		m.CacheReadTokens += usage.CacheReadTokens
		m.AssistantTurns++
	}

	if err := scanner.Err(); err != nil {
		return m, fmt.Errorf("failed to read transcript: %w", err)
	}

	return m, nil
}

// AssistantTimes collects the timestamps of assistant turns inside win
// across transcript files. The gap detector uses these as activity
// evidence; token amounts are irrelevant there, only that work happened.
func AssistantTimes(files []string, win Window) ([]time.Time, error) {
	var out []time.Time

	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to open transcript: %w", err)
		}

		scanner := bufio.NewScanner(f)
		buf := make([]byte, 0, 1024*1024)
		scanner.Buffer(buf, 10*1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var event transcriptEvent
			if err := json.Unmarshal(line, &event); err != nil {
				continue
			}
			if event.Timestamp.IsZero() || event.Type != "assistant" {
				continue
			}
			if win.Past(event.Timestamp) {
				break
			}
			if win.Contains(event.Timestamp) {
				out = append(out, event.Timestamp)
			}
		}
		err = scanner.Err()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read transcript: %w", err)
		}
	}

	return out, nil
}

// AggregateTokens sums assistant token usage across transcript files for
// events inside win. Files are scanned concurrently; a session spans
// multiple transcript files after context compaction, so the result is the
// union of all of them.
func AggregateTokens(files []string, win Window) (TokenMetrics, error) {
	var (
		total TokenMetrics
		mu    sync.Mutex
	)

	var g errgroup.Group
	g.SetLimit(8)

	for _, file := range files {
		file := file
		g.Go(func() error {
			m, err := scanTranscript(file, win)
			if err != nil {
				return err
			}
			mu.Lock()
			total.Add(m)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return TokenMetrics{}, err
	}

	return total, nil
}
