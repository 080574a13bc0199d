package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Queue.Backend)
	assert.Equal(t, "queue:library_views", cfg.Queue.ViewQueue)
	assert.Equal(t, 5*time.Second, cfg.Queue.PopTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Queue.RequeueBackoff)
	assert.Equal(t, 3, cfg.Commit.Attempts)
	assert.Equal(t, "libprog:", cfg.Progress.KeyPrefix)
	assert.Equal(t, 5*time.Second, cfg.Progress.ScanInterval)
	assert.Equal(t, 5*time.Minute, cfg.Tracking.ViewDebounce)
	assert.InDelta(t, 0.2, cfg.Recommend.ViewWeight, 1e-9)
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: mysql
  dsn: "root:secret@tcp(localhost:3306)/agenthub?parseTime=true"
commit:
  attempts: 5
`), 0o600))

	t.Setenv("AGENTHUB_QUEUE_VIEW_QUEUE", "queue:views_from_env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Commit.Attempts)
	assert.Equal(t, "queue:views_from_env", cfg.Queue.ViewQueue)
	// untouched keys keep their defaults
	assert.Equal(t, 200*time.Millisecond, cfg.Commit.Backoff)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"unknown driver":      func(c *Config) { c.Database.Driver = "postgres" },
		"unknown backend":     func(c *Config) { c.Queue.Backend = "sqs" },
		"kafka needs brokers": func(c *Config) { c.Queue.Backend = "kafka" },
		"empty view queue":    func(c *Config) { c.Queue.ViewQueue = " " },
		"zero pop timeout":    func(c *Config) { c.Queue.PopTimeout = 0 },
		"zero attempts":       func(c *Config) { c.Commit.Attempts = 0 },
		"zero scan interval":  func(c *Config) { c.Progress.ScanInterval = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	assert.NoError(t, base.Validate())
}
