package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, SessionStoreMemory, cfg.SessionStore)
	assert.Equal(t, BackendLive, cfg.Backend.Mode)
	assert.Equal(t, "https://app.shollu.com", cfg.Backend.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Attendance.DismissAfter())
	assert.Equal(t, PipelineLive, cfg.Cards.Pipeline)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL())
	require.NotNil(t, cfg.Storage.SQLite)
	assert.Contains(t, cfg.Storage.SQLite.Path, "instance/./data/sessions.db")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_MODE", "demo")
	t.Setenv("SCANNER_BACKEND", "manual")
	t.Setenv("ATTENDANCE_DISMISS_MS", "1200")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendDemo, cfg.Backend.Mode)
	assert.Equal(t, ScannerManual, cfg.Scanner.Backend)
	assert.Equal(t, 1200*time.Millisecond, cfg.Attendance.DismissAfter())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("cards:\n  pipeline: fulfilment\nstorage:\n  local:\n    path: \":memory:\"\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, PipelineFulfilment, cfg.Cards.Pipeline)
	assert.Equal(t, ":memory:", cfg.Storage.SQLite.Path)
}

func TestLoadConfig_RejectsUnknownValues(t *testing.T) {
	t.Setenv("SESSION_STORE", "redis")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "session_store")
}
