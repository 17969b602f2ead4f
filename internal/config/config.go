package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name searched for by FindConfig.
const ConfigFileName = "dtypes.yaml"

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Log levels
const (
	LogDebug = "debug"
	LogInfo  = "info"
	LogWarn  = "warn"
	LogError = "error"
)

// Config represents the dtypes.yaml configuration.
type Config struct {
	// DB is the path of the schema history database.
	DB string `yaml:"db,omitempty"`

	// Color controls highlighting of CLI output: auto, always or never.
	// auto highlights only when stdout is a terminal.
	Color string `yaml:"color,omitempty"`

	// LogLevel filters log lines written to stderr.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns the configuration used when no dtypes.yaml exists.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and validates a dtypes.yaml file.
// A missing file is not an error: defaults are returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses dtypes.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.setDefaults()
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig searches for dtypes.yaml starting from dir and walking up
// to parent directories. Returns an empty path and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%s: color: unknown mode %q (want auto, always or never)", path, c.Color)
	}
	switch c.LogLevel {
	case LogDebug, LogInfo, LogWarn, LogError:
	default:
		return fmt.Errorf("%s: log_level: unknown level %q", path, c.LogLevel)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.DB == "" {
		c.DB = "dtypes.db"
	}
	if c.Color == "" {
		c.Color = ColorAuto
	}
	if c.LogLevel == "" {
		c.LogLevel = LogInfo
	}
}
