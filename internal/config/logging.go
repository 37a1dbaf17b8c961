package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/magnifier/internal/logging"
)

// ReadLoggingConfig reads the [logging] section of a TOML config file.
// Module levels may be given inline (capture = "debug") or in a
// [logging.modules] table; the table wins when both name a module.
func ReadLoggingConfig(configPath string) (logging.Config, error) {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	var rawConfig struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &rawConfig); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	var table map[string]any
	for key, value := range rawConfig.Logging {
		switch v := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = v
			case "format":
				cfg.Format = v
			default:
				cfg.Modules[key] = v
			}
		case map[string]any:
			if key == "modules" {
				table = v
			}
		}
	}
	for module, value := range table {
		if level, ok := value.(string); ok {
			cfg.Modules[module] = level
		}
	}

	return cfg, nil
}

// LoadLoggingConfig loads logging configuration from a TOML config file.
// Returns default config if file doesn't exist or can't be parsed.
func LoadLoggingConfig(configPath string) logging.Config {
	if configPath == "" {
		return logging.Config{Level: "info", Format: "text", Modules: make(map[string]string)}
	}
	cfg, err := ReadLoggingConfig(configPath)
	if err != nil {
		return logging.Config{Level: "info", Format: "text", Modules: make(map[string]string)}
	}
	return cfg
}

// WatchLogging starts a watcher that re-initializes logging whenever the
// config file changes. Levels given explicitly on the command line are kept
// by passing them in overrides.
func WatchLogging(configPath string, overrides logging.Config, logger *slog.Logger) (*Watcher[logging.Config], error) {
	w := NewConfigWatcher(configPath, ReadLoggingConfig, logger)
	w.OnReload(func(cfg logging.Config) {
		merged := MergeLogging(cfg, overrides)
		logging.Initialize(merged)
		logger.Info("Logging configuration reloaded", "level", merged.Level, "modules", len(merged.Modules))
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

// MergeLogging overlays non-empty override values onto base.
func MergeLogging(base, overrides logging.Config) logging.Config {
	out := logging.Config{
		Level:   base.Level,
		Format:  base.Format,
		Modules: make(map[string]string, len(base.Modules)+len(overrides.Modules)),
	}
	for k, v := range base.Modules {
		out.Modules[k] = v
	}
	if overrides.Level != "" {
		out.Level = overrides.Level
	}
	if overrides.Format != "" {
		out.Format = overrides.Format
	}
	for k, v := range overrides.Modules {
		if v != "" {
			out.Modules[k] = v
		}
	}
	return out
}
