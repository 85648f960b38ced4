package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draftengine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	config, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", config.Storage.Driver)
	assert.Equal(t, time.Second, config.Draft.TickInterval)
	assert.Equal(t, 300*time.Millisecond, config.Draft.NotifyDebounce)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: postgres
draft:
  think_delay: 500ms
  workers: 2
nats:
  enabled: true
`)
	t.Setenv("PORT", "9090")
	t.Setenv("DRAFT_WORKERS", "6")

	config, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", config.Storage.Driver)
	assert.Equal(t, 500*time.Millisecond, config.Draft.ThinkDelay)
	assert.Equal(t, 6, config.Draft.Workers)
	assert.Equal(t, "9090", config.Server.Port)
	assert.True(t, config.NATS.Enabled)
	// untouched keys keep their defaults
	assert.Equal(t, time.Second, config.Draft.TickInterval)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "storage:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "unknown storage driver")

	_, err = loadConfig(writeConfig(t, "draft:\n  workers: 0\n"))
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "draft:\n  think_delay: -1s\n"))
	assert.ErrorContains(t, err, "think_delay")

	_, err = loadConfig(writeConfig(t, "draft: [\n"))
	assert.Error(t, err)
}
