// Package config provides configuration management for larder.
// Configurations are loaded from TOML files with XDG-compliant paths.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Kitchen  KitchenConfig  `toml:"kitchen"`
	Costing  CostingConfig  `toml:"costing"`
	Editor   EditorConfig   `toml:"editor"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Logging  LoggingConfig  `toml:"logging"`
	Database DatabaseConfig `toml:"database"`
}

// KitchenConfig identifies the kitchen the recipes belong to.
type KitchenConfig struct {
	Name     string `toml:"name"`
	Currency string `toml:"currency"`
}

// CostingConfig tunes line costing and batch saves.
type CostingConfig struct {
	// YieldEpsilon is the smallest yield change that is written back to the recipe.
	YieldEpsilon float64 `toml:"yield_epsilon"`
	// MaxReportedErrors bounds the failures listed in a save summary.
	MaxReportedErrors int `toml:"max_reported_errors"`
	// FetchConcurrency bounds rows processed at once during a save.
	FetchConcurrency int `toml:"fetch_concurrency"`
	// CurrencyDecimals is the precision stored line costs are rounded to.
	CurrencyDecimals int `toml:"currency_decimals"`
}

// EditorConfig controls the interactive editor.
type EditorConfig struct {
	DebounceMS           int `toml:"debounce_ms"`
	ReloadTimeoutSeconds int `toml:"reload_timeout_seconds"`
}

// Debounce returns the quantity recompute delay.
func (e *EditorConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMS) * time.Millisecond
}

// ReloadTimeout returns how long a reload may take before it is abandoned.
func (e *EditorConfig) ReloadTimeout() time.Duration {
	return time.Duration(e.ReloadTimeoutSeconds) * time.Second
}

// CatalogConfig points at reference data.
type CatalogConfig struct {
	// SeedFile is an optional YAML file replacing the built-in seed data.
	SeedFile string `toml:"seed_file"`
}

// LoggingConfig controls application logging.
type LoggingConfig struct {
	Level LogLevel `toml:"level"`
	File  string   `toml:"file"`
}

// LogLevel defines logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// DatabaseConfig controls SQLite database settings.
type DatabaseConfig struct {
	Path                string `toml:"path"`
	BackupIntervalHours int    `toml:"backup_interval_hours"`
	BackupRetentionDays int    `toml:"backup_retention_days"`
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Kitchen.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("kitchen: %w", err))
	}

	if err := c.Costing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("costing: %w", err))
	}

	if err := c.Editor.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("editor: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the kitchen configuration is valid.
func (k *KitchenConfig) Validate() error {
	if k.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// Validate checks that the costing configuration is valid.
func (c *CostingConfig) Validate() error {
	var errs []error

	if c.YieldEpsilon < 0 {
		errs = append(errs, errors.New("yield_epsilon must be non-negative"))
	}

	if c.MaxReportedErrors < 1 {
		errs = append(errs, errors.New("max_reported_errors must be positive"))
	}

	if c.FetchConcurrency < 1 {
		errs = append(errs, errors.New("fetch_concurrency must be positive"))
	}

	if c.CurrencyDecimals < 0 || c.CurrencyDecimals > 6 {
		errs = append(errs, errors.New("currency_decimals must be between 0 and 6"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the editor configuration is valid.
func (e *EditorConfig) Validate() error {
	var errs []error

	if e.DebounceMS < 0 {
		errs = append(errs, errors.New("debounce_ms must be non-negative"))
	}

	if e.ReloadTimeoutSeconds < 1 {
		errs = append(errs, errors.New("reload_timeout_seconds must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks that the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}

	if !validLevels[l.Level] && l.Level != "" {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}

	return nil
}

// Validate checks that the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	var errs []error

	if d.Path == "" {
		errs = append(errs, errors.New("path is required"))
	}

	if d.BackupIntervalHours < 0 {
		errs = append(errs, errors.New("backup_interval_hours must be non-negative"))
	}

	if d.BackupRetentionDays < 0 {
		errs = append(errs, errors.New("backup_retention_days must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Kitchen: KitchenConfig{
			Name:     "Main Kitchen",
			Currency: "$",
		},
		Costing: CostingConfig{
			YieldEpsilon:      0.01,
			MaxReportedErrors: 5,
			FetchConcurrency:  4,
			CurrencyDecimals:  2,
		},
		Editor: EditorConfig{
			DebounceMS:           300,
			ReloadTimeoutSeconds: 30,
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
			File:  "logs/larder.log",
		},
		Database: DatabaseConfig{
			Path:                "larder.db",
			BackupIntervalHours: 24,
			BackupRetentionDays: 14,
		},
	}
}
