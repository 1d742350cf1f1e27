// Package daemon wires configuration, logging, the journal, the
// inventory client, the intake engine, and the HTTP server into one
// long-running station process.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/partflow-io/partflow/internal/domain"
	"github.com/partflow-io/partflow/internal/intake"
)

// Config is the station configuration, loaded from TOML.
type Config struct {
	Workflow  string          `toml:"workflow"` // checkout | receiving | quickcount
	API       APIConfig       `toml:"api"`
	Scanner   ScannerConfig   `toml:"scanner"`
	Inventory InventoryConfig `toml:"inventory"`
	Journal   JournalConfig   `toml:"journal"`
	Log       LogConfig       `toml:"log"`

	// Overrides holds explicit per-workflow scanner tuning, keyed by
	// workflow name. Anything not overridden inherits [scanner].
	Overrides map[string]ScannerConfig `toml:"overrides"`
}

// APIConfig configures the local HTTP surface.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// ScannerConfig holds the framing and debounce thresholds in config
// units (durations in milliseconds).
type ScannerConfig struct {
	MinLength      int `toml:"min_length"`
	FlushTimeoutMS int `toml:"flush_timeout_ms"`
	CooldownMS     int `toml:"cooldown_ms"`
}

// InventoryConfig points at the remote inventory service.
type InventoryConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// JournalConfig configures the local scan/commit audit journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level       string `toml:"level"` // debug | info | warn | error
	Development bool   `toml:"development"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Workflow: string(domain.WorkflowCheckout),
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8084,
			Metrics: true,
		},
		Scanner: ScannerConfig{
			MinLength:      3,
			FlushTimeoutMS: 150,
			CooldownMS:     1500,
		},
		Inventory: InventoryConfig{
			BaseURL:   "http://127.0.0.1:8085",
			TimeoutMS: 10_000,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(configDir(), "journal.db"),
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string { return filepath.Join(configDir(), "config.toml") }

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".partflow"
	}
	return filepath.Join(home, ".partflow")
}

// Load reads the config at path, or returns defaults if the file does
// not exist. Missing keys inherit their defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch domain.Workflow(c.Workflow) {
	case domain.WorkflowCheckout, domain.WorkflowReceiving, domain.WorkflowQuickCount:
	default:
		return fmt.Errorf("unknown workflow %q", c.Workflow)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	return nil
}

// ScannerFor resolves the effective scanner thresholds for a workflow:
// the [scanner] section, with any explicit per-workflow override applied
// field by field (zero fields inherit).
func (c Config) ScannerFor(workflow domain.Workflow) intake.ScannerConfig {
	s := c.Scanner
	if ov, ok := c.Overrides[string(workflow)]; ok {
		if ov.MinLength > 0 {
			s.MinLength = ov.MinLength
		}
		if ov.FlushTimeoutMS > 0 {
			s.FlushTimeoutMS = ov.FlushTimeoutMS
		}
		if ov.CooldownMS > 0 {
			s.CooldownMS = ov.CooldownMS
		}
	}
	return intake.ScannerConfig{
		MinLength:    s.MinLength,
		FlushTimeout: time.Duration(s.FlushTimeoutMS) * time.Millisecond,
		Cooldown:     time.Duration(s.CooldownMS) * time.Millisecond,
	}
}

// WriteDefault writes a commented default config to path, creating the
// directory as needed. Used by `partflow config init`.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(DefaultConfig())
}
