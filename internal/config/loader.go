package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	globalConfigDir = ".phasetrack"
	configFileName  = "config.yaml"
)

// Loader handles loading and merging configuration files
type Loader struct {
	globalPath  string
	projectPath string
}

// NewLoader creates a new configuration loader for the given project
// directory (defaults to the working directory).
func NewLoader(projectDir string) (*Loader, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	if projectDir == "" {
		projectDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	return &Loader{
		globalPath:  filepath.Join(homeDir, globalConfigDir, configFileName),
		projectPath: filepath.Join(projectDir, globalConfigDir, configFileName),
	}, nil
}

// Load loads and merges configuration from all sources. Global config is
// applied over defaults, project config over global.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	globalCfg, err := l.loadFile(l.globalPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load global config: %w", err)
	}
	if globalCfg != nil {
		cfg = mergeConfigs(cfg, globalCfg)
	}

	projectCfg, err := l.loadFile(l.projectPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load project config: %w", err)
	}
	if projectCfg != nil {
		cfg = mergeConfigs(cfg, projectCfg)
	}

	return cfg, nil
}

func (l *Loader) loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &cfg, nil
}

// mergeConfigs overlays non-empty fields of overlay onto base
func mergeConfigs(base, overlay *Config) *Config {
	merged := *base

	if overlay.Version != "" {
		merged.Version = overlay.Version
	}
	if overlay.Settings.LogLevel != "" {
		merged.Settings.LogLevel = overlay.Settings.LogLevel
	}
	if overlay.Settings.LogFile != "" {
		merged.Settings.LogFile = overlay.Settings.LogFile
	}
	if overlay.Settings.StateDirName != "" {
		merged.Settings.StateDirName = overlay.Settings.StateDirName
	}
	if overlay.Settings.GapThreshold != "" {
		merged.Settings.GapThreshold = overlay.Settings.GapThreshold
	}
	if len(overlay.Settings.TerminalPhases) > 0 {
		merged.Settings.TerminalPhases = overlay.Settings.TerminalPhases
	}
	if overlay.Settings.LockRetryDelay != "" {
		merged.Settings.LockRetryDelay = overlay.Settings.LockRetryDelay
	}
	if overlay.Settings.LockTimeout != "" {
		merged.Settings.LockTimeout = overlay.Settings.LockTimeout
	}

	return &merged
}
