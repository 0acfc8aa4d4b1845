package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ".", c.DataDir)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, 4, c.MaxParallelSyncs)
}

func TestDatabasePath(t *testing.T) {
	c := Config{DataDir: "/var/lib/notesync"}
	assert.Equal(t, filepath.Join("/var/lib/notesync", "notesync.db"), c.DatabasePath())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}
