// Package testsupport provides shared helpers for package tests: per-test
// configuration rooted in temp directories and store lifecycle management.
package testsupport

import (
	"path/filepath"
	"testing"

	"netsight/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithCredential sets the lookup API credential on the test config.
func WithCredential(credential string) ConfigOption {
	return func(c *config.Config) {
		c.WiGLE.Credential = credential
	}
}

// WithCoordinateEpsilon overrides the merge duplicate tolerance.
func WithCoordinateEpsilon(epsilon float64) ConfigOption {
	return func(c *config.Config) {
		c.Merge.CoordinateEpsilon = epsilon
	}
}
