// Package config loads expplan's TOML configuration and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that take precedence over the config file.
const (
	EnvDBPath         = "EXPPLAN_DB_PATH"
	EnvLogLevel       = "EXPPLAN_LOG_LEVEL"
	EnvBackupPassword = "EXPPLAN_BACKUP_PASSWORD"
)

// Config holds all expplan configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Backup     BackupConfig     `toml:"backup"`
	Log        LogConfig        `toml:"log"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DBPath string `toml:"db_path,omitempty"`
}

// BackupConfig holds backup retention and scheduling.
type BackupConfig struct {
	Retention    int `toml:"retention"`
	IntervalDays int `toml:"interval_days"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DaemonConfig holds settings for the background daemon.
type DaemonConfig struct {
	Addr            string `toml:"addr"`
	IntervalSeconds int    `toml:"interval_seconds"`
}

// AppearanceConfig holds dashboard preferences.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Backup: BackupConfig{
			Retention:    30,
			IntervalDays: 7,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8787",
			IntervalSeconds: 300,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "expplan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "expplan")
}

// DataDir returns the XDG-compliant data directory holding the ledger.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "expplan")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "expplan")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadDotEnv reads .env from the working directory if present. Variables
// already set in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads the config file, returning defaults if it doesn't exist, and
// applies environment overrides.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		cfg.General.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
}

// Validate rejects values no component can work with.
func (c Config) Validate() error {
	if c.Backup.Retention < 0 {
		return fmt.Errorf("config: backup.retention must be >= 0, got %d", c.Backup.Retention)
	}
	if c.Backup.IntervalDays < 0 {
		return fmt.Errorf("config: backup.interval_days must be >= 0, got %d", c.Backup.IntervalDays)
	}
	if c.Daemon.IntervalSeconds < 0 {
		return fmt.Errorf("config: daemon.interval_seconds must be >= 0, got %d", c.Daemon.IntervalSeconds)
	}
	return nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// DBPath returns the ledger database location.
func (c Config) DBPath() string {
	if c.General.DBPath != "" {
		return c.General.DBPath
	}
	return filepath.Join(DataDir(), "ledger.db")
}

// BackupInterval is how stale the last backup may get. Zero means the
// built-in default.
func (c Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.IntervalDays) * 24 * time.Hour
}

// DaemonInterval is the daemon's tick period.
func (c Config) DaemonInterval() time.Duration {
	if c.Daemon.IntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Daemon.IntervalSeconds) * time.Second
}

// BackupPassword returns the password for encrypted exports from the
// environment, or "" when unset.
func BackupPassword() string {
	return os.Getenv(EnvBackupPassword)
}
