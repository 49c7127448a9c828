package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultConfigFileName is the standard configuration file name.
	DefaultConfigFileName = "larder.toml"

	// XDGSubdir is the subdirectory under the XDG config and data homes.
	XDGSubdir = "larder"
)

// LoadError represents an error that occurred while loading configuration.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading config from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load attempts to load configuration from multiple sources in order of precedence:
// 1. Explicit path (if provided)
// 2. XDG config path (~/.config/larder/larder.toml)
// 3. Current working directory (./larder.toml)
// 4. Default configuration (if createDefault is true)
//
// Returns the loaded configuration and the path it was loaded from.
func Load(explicitPath string, createDefault bool) (*Config, string, error) {
	if explicitPath != "" {
		cfg, err := loadFromFile(explicitPath)
		if err != nil {
			return nil, "", &LoadError{Path: explicitPath, Err: err}
		}
		return cfg, explicitPath, nil
	}

	candidates := searchPaths()
	for _, path := range candidates {
		if !fileExists(path) {
			continue
		}
		cfg, err := loadFromFile(path)
		if err != nil {
			return nil, "", &LoadError{Path: path, Err: err}
		}
		return cfg, path, nil
	}

	if !createDefault {
		return nil, "", errors.New("no configuration file found; searched: " + strings.Join(candidates, ", "))
	}

	cfg := Default()

	// Prefer the XDG location when its directory can be created.
	target := candidates[len(candidates)-1]
	if len(candidates) > 1 {
		if err := os.MkdirAll(filepath.Dir(candidates[0]), 0750); err == nil {
			target = candidates[0]
		}
	}

	if err := Save(cfg, target); err != nil {
		return cfg, "", nil
	}

	return cfg, target, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// A relative seed file is relative to the config file.
	if cfg.Catalog.SeedFile != "" && !filepath.IsAbs(cfg.Catalog.SeedFile) {
		cfg.Catalog.SeedFile = filepath.Join(filepath.Dir(path), cfg.Catalog.SeedFile)
	}

	return cfg, nil
}

// Save writes a configuration to a TOML file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	header := `# larder configuration
#
# This file was auto-generated. Edit as needed.

`
	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding TOML: %w", err)
	}

	return nil
}

// searchPaths lists config file candidates, XDG first. The last entry is
// always the working-directory path.
func searchPaths() []string {
	var paths []string
	if xdg := xdgConfigPath(); xdg != "" {
		paths = append(paths, xdg)
	}
	return append(paths, filepath.Join(".", DefaultConfigFileName))
}

// xdgConfigPath returns the XDG-compliant config file path.
// Returns empty string if XDG_CONFIG_HOME is not set and HOME is not available.
func xdgConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, XDGSubdir, DefaultConfigFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", XDGSubdir, DefaultConfigFileName)
}

// dataHome returns $XDG_DATA_HOME/larder, or "" when no home is known.
func dataHome() string {
	xdgData := os.Getenv("XDG_DATA_HOME")
	if xdgData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		xdgData = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(xdgData, XDGSubdir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// EnsureDataDir creates the data directory for the database if needed.
// Relative database paths live under the XDG data home. Returns the path to
// the database file.
func EnsureDataDir(cfg *Config) (string, error) {
	dbPath := cfg.Database.Path

	if filepath.IsAbs(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
			return "", fmt.Errorf("creating database directory: %w", err)
		}
		return dbPath, nil
	}

	dir := dataHome()
	if dir == "" {
		return dbPath, nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		// Fall back to the working directory.
		return dbPath, nil
	}
	return filepath.Join(dir, dbPath), nil
}

// EnsureLogDir creates the log directory if needed.
// Returns the log file path, or "" when file logging is disabled.
func EnsureLogDir(cfg *Config) (string, error) {
	logPath := cfg.Logging.File
	if logPath == "" {
		return "", nil
	}

	dir := filepath.Dir(logPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("creating log directory: %w", err)
		}
	}

	return logPath, nil
}

// BackupDir returns the directory for database backups, next to the database.
func BackupDir(dbPath string) (string, error) {
	backupDir := filepath.Join(filepath.Dir(dbPath), "backups")

	if err := os.MkdirAll(backupDir, 0750); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	return backupDir, nil
}
