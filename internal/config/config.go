// Package config loads evmboard settings from TOML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// Config holds all evmboard configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Thresholds ThresholdConfig  `toml:"thresholds"`
	Server     ServerConfig     `toml:"server"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
	Log        LogConfig        `toml:"log"`
}

// GeneralConfig holds storage locations and display preferences.
type GeneralConfig struct {
	DataDir   string `toml:"data_dir,omitempty"`
	BackupDir string `toml:"backup_dir,omitempty"`
	Currency  string `toml:"currency"`
	FlowType  string `toml:"flow_type"`
}

// ThresholdConfig holds the EVM index cut-offs used for status labels.
type ThresholdConfig struct {
	AheadSPI   float64 `toml:"ahead_spi"`
	AheadCPI   float64 `toml:"ahead_cpi"`
	OnTrackSPI float64 `toml:"on_track_spi"`
	OnTrackCPI float64 `toml:"on_track_cpi"`
	TrendDelta float64 `toml:"trend_delta"`
}

// ServerConfig holds the status service settings.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	PollIntervalSec int    `toml:"poll_interval_sec"`
	EventsBuffer    int    `toml:"events_buffer"`
}

// PollInterval returns the poll interval as a duration.
func (s ServerConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSec) * time.Second
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// TUIConfig holds dashboard settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json or console
}

// envOverrides are the environment variables that take precedence over the file.
type envOverrides struct {
	DataDir    string `env:"EVMBOARD_DATA_DIR"`
	BackupDir  string `env:"EVMBOARD_BACKUP_DIR"`
	Currency   string `env:"EVMBOARD_CURRENCY"`
	ServerAddr string `env:"EVMBOARD_SERVER_ADDR"`
	LogLevel   string `env:"EVMBOARD_LOG_LEVEL"`
	Theme      string `env:"EVMBOARD_THEME"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Currency: "SAR",
			FlowType: "monthly",
		},
		Thresholds: ThresholdConfig{
			AheadSPI:   1.0,
			AheadCPI:   1.0,
			OnTrackSPI: 0.9,
			OnTrackCPI: 0.9,
			TrendDelta: 0.05,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8787",
			PollIntervalSec: 15,
			EventsBuffer:    200,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "evmboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "evmboard")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultDataDir returns the XDG data directory used when none is configured.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "evmboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "evmboard")
}

// Load reads the config file, returning defaults if it doesn't exist, and
// applies environment overrides.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom is Load with an explicit file path.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // config path is chosen by the local user
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.fillDefaults()
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if ov.DataDir != "" {
		cfg.General.DataDir = ov.DataDir
	}
	if ov.BackupDir != "" {
		cfg.General.BackupDir = ov.BackupDir
	}
	if ov.Currency != "" {
		cfg.General.Currency = ov.Currency
	}
	if ov.ServerAddr != "" {
		cfg.Server.Addr = ov.ServerAddr
	}
	if ov.LogLevel != "" {
		cfg.Log.Level = ov.LogLevel
	}
	if ov.Theme != "" {
		cfg.Appearance.Theme = ov.Theme
	}
	return nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.General.DataDir == "" {
		c.General.DataDir = DefaultDataDir()
	}
	if c.General.BackupDir == "" {
		c.General.BackupDir = filepath.Join(c.General.DataDir, "backups")
	}
	if c.General.Currency == "" {
		c.General.Currency = def.General.Currency
	}
	if c.Thresholds.OnTrackSPI <= 0 {
		c.Thresholds.OnTrackSPI = def.Thresholds.OnTrackSPI
	}
	if c.Thresholds.OnTrackCPI <= 0 {
		c.Thresholds.OnTrackCPI = def.Thresholds.OnTrackCPI
	}
	if c.Thresholds.AheadSPI <= 0 {
		c.Thresholds.AheadSPI = def.Thresholds.AheadSPI
	}
	if c.Thresholds.AheadCPI <= 0 {
		c.Thresholds.AheadCPI = def.Thresholds.AheadCPI
	}
	if c.Thresholds.TrendDelta <= 0 {
		c.Thresholds.TrendDelta = def.Thresholds.TrendDelta
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.TUI.RefreshIntervalSec < 10 {
		c.TUI.RefreshIntervalSec = def.TUI.RefreshIntervalSec
	}
}

// DBPath returns the SQLite database location for cfg.
func DBPath(cfg Config) string {
	return filepath.Join(cfg.General.DataDir, "projects.db")
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}
