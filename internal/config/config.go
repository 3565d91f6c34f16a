// Package config loads tabcounter configuration.
//
// Values come from three layers, later ones winning:
//   - built-in defaults
//   - ~/.config/tabcounter/config.yaml (or $XDG_CONFIG_HOME/tabcounter)
//   - TABCOUNTER_* environment variables
//
// Command-line flags are applied on top by main.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lotas/tabcounter/internal/lifecycle"
	"github.com/lotas/tabcounter/internal/schedule"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the WebSocket port the extension connects to.
const DefaultPort = 19192

// Config is the top-level configuration.
type Config struct {
	Port    int    `yaml:"port,omitempty"`
	DBPath  string `yaml:"db_path,omitempty"`
	LogDir  string `yaml:"log_dir,omitempty"`
	Profile string `yaml:"profile,omitempty"` // Firefox profile for offline commands
	Debug   bool   `yaml:"debug,omitempty"`

	StartupGrace   time.Duration `yaml:"startup_grace,omitempty"`
	Settle         time.Duration `yaml:"settle,omitempty"`
	PrioritySettle time.Duration `yaml:"priority_settle,omitempty"`
	RemovalDelay   time.Duration `yaml:"removal_delay,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:           DefaultPort,
		DBPath:         filepath.Join(DataDir(), "tabcounter.db"),
		LogDir:         StateDir(),
		StartupGrace:   lifecycle.DefaultGrace,
		Settle:         schedule.DefaultTiming.Settle,
		PrioritySettle: schedule.DefaultTiming.PrioritySettle,
		RemovalDelay:   schedule.DefaultTiming.RemovalDelay,
	}
}

// Timing returns the scheduler windows.
func (c Config) Timing() schedule.Timing {
	return schedule.Timing{
		Settle:         c.Settle,
		PrioritySettle: c.PrioritySettle,
		RemovalDelay:   c.RemovalDelay,
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	for name, d := range map[string]time.Duration{
		"startup_grace":   c.StartupGrace,
		"settle":          c.Settle,
		"priority_settle": c.PrioritySettle,
		"removal_delay":   c.RemovalDelay,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is empty")
	}
	return nil
}

func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, "tabcounter")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(append([]string{home}, append(fallback, "tabcounter")...)...)
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

// DataDir returns the XDG data directory, home of the settings database.
func DataDir() string { return xdgDir("XDG_DATA_HOME", ".local", "share") }

// StateDir returns the XDG state directory, home of the log file.
func StateDir() string { return xdgDir("XDG_STATE_HOME", ".local", "state") }

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file and environment and validates the result.
func Load() (Config, error) {
	cfg := Default()
	if path := ConfigPath(); path != "" {
		var err error
		if cfg, err = LoadFrom(path); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadFrom reads config from path on top of the defaults. A missing file
// yields the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("TABCOUNTER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TABCOUNTER_PORT has invalid value %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v, ok := os.LookupEnv("TABCOUNTER_DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("TABCOUNTER_LOG_DIR"); ok {
		cfg.LogDir = v
	}
	if v, ok := os.LookupEnv("TABCOUNTER_PROFILE"); ok {
		cfg.Profile = v
	}
	if v, ok := os.LookupEnv("TABCOUNTER_DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TABCOUNTER_DEBUG has invalid value %q: %w", v, err)
		}
		cfg.Debug = b
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"TABCOUNTER_STARTUP_GRACE", &cfg.StartupGrace},
		{"TABCOUNTER_SETTLE", &cfg.Settle},
		{"TABCOUNTER_PRIORITY_SETTLE", &cfg.PrioritySettle},
		{"TABCOUNTER_REMOVAL_DELAY", &cfg.RemovalDelay},
	} {
		v, ok := os.LookupEnv(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s has invalid duration %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}
	return nil
}
