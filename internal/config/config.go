package config

import "time"

// Config represents the complete phasetrack configuration
type Config struct {
	Version  string   `yaml:"version"`
	Settings Settings `yaml:"settings"`
}

// Settings contains global configuration settings
type Settings struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty"`

	// StateDirName is the per-project directory holding logs, state and
	// archives (relative to the project root).
	StateDirName string `yaml:"state_dir,omitempty"`

	// GapThreshold controls how close two events must be to land in the
	// same synthetic session during gap repair.
	GapThreshold string `yaml:"gap_threshold,omitempty"`

	// TerminalPhases are the phase names that complete a workflow.
	TerminalPhases []string `yaml:"terminal_phases,omitempty"`

	// LockRetryDelay is the wait between attempts to acquire the log
	// append lock. LockTimeout bounds the total wait.
	LockRetryDelay string `yaml:"lock_retry_delay,omitempty"`
	LockTimeout    string `yaml:"lock_timeout,omitempty"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Settings: Settings{
			LogLevel:       "info",
			StateDirName:   ".phasetrack",
			GapThreshold:   "1h",
			TerminalPhases: []string{"done", "aborted"},
			LockRetryDelay: "25ms",
			LockTimeout:    "5s",
		},
	}
}

// GapThresholdDuration parses the configured threshold, falling back to the
// default on an invalid value.
func (c *Config) GapThresholdDuration() time.Duration {
	if d, err := time.ParseDuration(c.Settings.GapThreshold); err == nil && d > 0 {
		return d
	}
	return time.Hour
}

// LockRetry returns the append-lock retry delay and total timeout.
func (c *Config) LockRetry() (delay, timeout time.Duration) {
	delay = 25 * time.Millisecond
	timeout = 5 * time.Second
	if d, err := time.ParseDuration(c.Settings.LockRetryDelay); err == nil && d > 0 {
		delay = d
	}
	if d, err := time.ParseDuration(c.Settings.LockTimeout); err == nil && d > 0 {
		timeout = d
	}
	return delay, timeout
}

// IsTerminalPhase reports whether phase completes a workflow.
func (c *Config) IsTerminalPhase(phase string) bool {
	for _, t := range c.Settings.TerminalPhases {
		if t == phase {
			return true
		}
	}
	return false
}
