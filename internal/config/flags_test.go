package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("overrides from flags", func(t *testing.T) {
		os.Args = []string{"testbin", "-d", "/srv/notesync", "-t", "5", "-p", "1"}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFlags(cfg)

		assert.Equal(t, "/srv/notesync", cfg.DataDir)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 1, cfg.MaxParallelSyncs)
	})

	t.Run("subcommand arguments are ignored", func(t *testing.T) {
		os.Args = []string{"testbin", "sync", "--all", "-t", "7"}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFlags(cfg)

		assert.Equal(t, ".", cfg.DataDir)
		assert.Equal(t, 7*time.Second, cfg.RequestTimeout)
	})
}
