package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWiGLE()
	c.normalizeMerge()
	c.normalizeQueue()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Database.File) != "" {
		if c.Database.File, err = expandPath(c.Database.File); err != nil {
			return fmt.Errorf("database.file: %w", err)
		}
	}
	if c.Database.BusyTimeout <= 0 {
		c.Database.BusyTimeout = defaultBusyTimeoutMS
	}
	return nil
}

func (c *Config) normalizeWiGLE() {
	if strings.TrimSpace(c.WiGLE.Credential) == "" {
		c.WiGLE.Credential = strings.TrimSpace(os.Getenv("WIGLE_API_CREDENTIAL"))
	}
	c.WiGLE.BaseURL = strings.TrimRight(strings.TrimSpace(c.WiGLE.BaseURL), "/")
	if c.WiGLE.BaseURL == "" {
		c.WiGLE.BaseURL = defaultWiGLEBaseURL
	}
	if c.WiGLE.TimeoutSeconds <= 0 {
		c.WiGLE.TimeoutSeconds = defaultWiGLETimeout
	}
}

func (c *Config) normalizeMerge() {
	if c.Merge.CoordinateEpsilon <= 0 {
		c.Merge.CoordinateEpsilon = defaultCoordinateEpsilon
	}
}

func (c *Config) normalizeQueue() {
	if c.Queue.DefaultLimit <= 0 {
		c.Queue.DefaultLimit = defaultQueueLimit
	}
	if c.Queue.StaleClaimMinutes <= 0 {
		c.Queue.StaleClaimMinutes = defaultStaleClaimMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
