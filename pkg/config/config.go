// Package config loads slox.toml settings.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"github.com/slox-lang/slox/pkg/evaluator"
)

// FileName is the project config file name.
const FileName = "slox.toml"

// Config is the decoded slox.toml.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Budget  BudgetConfig  `toml:"budget"`
	REPL    REPLConfig    `toml:"repl"`
	Check   CheckConfig   `toml:"check"`
	Metrics MetricsConfig `toml:"metrics"`
	Watch   WatchConfig   `toml:"watch"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type BudgetConfig struct {
	MaxDepth int   `toml:"max_depth"`
	MaxSteps int64 `toml:"max_steps"`
}

type REPLConfig struct {
	HistoryFile string `toml:"history_file"`
	Prompt      string `toml:"prompt"`
	// Echo is nil when unset so the default can be on.
	Echo *bool `toml:"echo"`
}

type CheckConfig struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type WatchConfig struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Discover loads the config for projectDir.
// Precedence: project (./slox.toml) → user (~/.slox/slox.toml) → defaults.
// It returns the path that was loaded, or "" for defaults. A file that
// exists but fails to load is an error, not a fallthrough.
func Discover(projectDir string) (*Config, string, error) {
	candidates := []string{filepath.Join(projectDir, FileName)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".slox", FileName))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		cfg, err := Load(path)
		if err != nil {
			return nil, path, err
		}
		return cfg, path, nil
	}
	return Default(), "", nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if strings.TrimSpace(cfg.REPL.Prompt) == "" {
		cfg.REPL.Prompt = "> "
	}
	if strings.TrimSpace(cfg.REPL.HistoryFile) == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.REPL.HistoryFile = filepath.Join(home, ".slox", "history")
		}
	}
	if cfg.REPL.Echo == nil {
		on := true
		cfg.REPL.Echo = &on
	}
	if len(cfg.Check.Include) == 0 {
		cfg.Check.Include = []string{"**.lox"}
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 200
	}
}

func validate(cfg *Config) error {
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Budget.MaxDepth < 0 || cfg.Budget.MaxDepth > evaluator.MaxDepthLimit {
		return fmt.Errorf("budget.max_depth must be between 0 and %d, got %d", evaluator.MaxDepthLimit, cfg.Budget.MaxDepth)
	}
	if cfg.Budget.MaxSteps < 0 {
		return fmt.Errorf("budget.max_steps must be >= 0, got %d", cfg.Budget.MaxSteps)
	}
	if cfg.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must be >= 0, got %d", cfg.Watch.DebounceMS)
	}
	for _, p := range append(append([]string{}, cfg.Check.Include...), cfg.Check.Exclude...) {
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("check pattern %q: %w", p, err)
		}
	}
	return nil
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// EchoEnabled reports whether the REPL echoes expression statement values.
func (c *Config) EchoEnabled() bool {
	return c.REPL.Echo == nil || *c.REPL.Echo
}

// Debounce returns the watcher debounce interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
