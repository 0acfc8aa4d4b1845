package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the notesync CLI.
//
// Fields:
//   - DataDir: directory for the local database and the machine secret.
//   - RequestTimeout: per-request timeout for server calls.
//   - MaxParallelSyncs: upper bound on accounts synchronized concurrently.
type Config struct {
	DataDir          string
	RequestTimeout   time.Duration
	MaxParallelSyncs int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = "."
	c.RequestTimeout = 30 * time.Second
	c.MaxParallelSyncs = 4
}

// DatabasePath is the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "notesync.db")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
