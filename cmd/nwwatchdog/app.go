package main

import (
	"fmt"

	"github.com/jerkytreats/nwwatchdog/internal/config"
	"github.com/jerkytreats/nwwatchdog/internal/logging"
	"github.com/jerkytreats/nwwatchdog/internal/persistence"
)

func init() {
	registerRequiredKeys()
}

func registerRequiredKeys() {
	config.RegisterRequiredKey(config.TunnelHostKey)
	config.RegisterRequiredKey(config.TunnelPortKey)
	config.RegisterRequiredKey(config.ActionsKey)
}

// loadSettings initializes configuration and logging and returns validated settings.
func loadSettings(opts *rootOptions) (*config.Settings, error) {
	var cfgOpts []config.ConfigOption
	if opts.configPath != "" {
		cfgOpts = append(cfgOpts, config.WithConfigPath(opts.configPath))
	}
	if err := config.InitConfig(cfgOpts...); err != nil {
		return nil, err
	}
	if err := config.CheckRequiredKeys(); err != nil {
		return nil, err
	}

	s, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := s.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logging.Setup(logging.Format(s.LogFormat), level)

	if err := config.Validate(s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if used := config.ConfigFileUsed(); used != "" {
		logging.Debug("Loaded configuration from %s", used)
	}
	return s, nil
}

func counterFiles(s *config.Settings) []persistence.CounterFile {
	files := make([]persistence.CounterFile, 0, len(s.Actions))
	for _, a := range s.Actions {
		files = append(files, persistence.CounterFile{
			Action: a.Name,
			Path:   a.CounterPath(s.Watchdog.StateDir),
		})
	}
	return files
}

func newCounterStore(s *config.Settings) *persistence.CounterStore {
	return persistence.NewCounterStore(counterFiles(s), s.Watchdog.StateBackups)
}
