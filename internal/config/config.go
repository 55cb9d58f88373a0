package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Database contains settings for the canonical SQLite store.
type Database struct {
	// File overrides the database location; empty means
	// <data_dir>/netsight.db.
	File        string `toml:"file"`
	BusyTimeout int    `toml:"busy_timeout_ms"`
}

// WiGLE contains configuration for the authoritative lookup API.
type WiGLE struct {
	// Credential is an API name:token pair; also read from the
	// WIGLE_API_CREDENTIAL environment variable.
	Credential     string `toml:"credential"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Merge contains tunables for the cross-source merge engine.
type Merge struct {
	// CoordinateEpsilon is the degree delta under which two same-day
	// sightings of one entity count as the same physical observation.
	// 0.0001 degrees is roughly ten meters of latitude.
	CoordinateEpsilon float64 `toml:"coordinate_epsilon"`
}

// Queue contains enrichment-queue settings.
type Queue struct {
	// DefaultLimit caps items claimed per processing run.
	DefaultLimit int `toml:"default_limit"`
	// StaleClaimMinutes is the lease length; processing items older than
	// this are eligible for reclaim.
	StaleClaimMinutes int `toml:"stale_claim_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for netsight.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Database: SQLite store location and busy handling
//   - WiGLE: lookup API credential, endpoint, timeout
//   - Merge: duplicate-classification tolerances
//   - Queue: enrichment queue claim limits and lease length
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Database Database `toml:"database"`
	WiGLE    WiGLE    `toml:"wigle"`
	Merge    Merge    `toml:"merge"`
	Queue    Queue    `toml:"queue"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/netsight/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("netsight.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// DatabasePath returns the resolved location of the canonical store.
func (c *Config) DatabasePath() string {
	if strings.TrimSpace(c.Database.File) != "" {
		return c.Database.File
	}
	return filepath.Join(c.Paths.DataDir, "netsight.db")
}

// EnsureDirectories creates the data and log directories when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}
