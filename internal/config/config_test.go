package config_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralflow/internal/config"
	"neuralflow/internal/sink"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "gemini-3-pro-preview", cfg.Gemini.Model)
	assert.Equal(t, 120*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, 20.0, cfg.Editor.GridSize)
	assert.Equal(t, 100, cfg.Editor.UndoLimit)
	assert.Equal(t, 10, cfg.Editor.HistoryLimit)
	assert.Equal(t, "admin@neuralflow.ai", cfg.Leads.OwnerEmail)
	assert.Equal(t, time.Second, cfg.Leads.NotifyDelay)
	assert.Equal(t, config.DefaultSchedule, cfg.Sync.Schedule)
	assert.Equal(t, sink.DefaultTable, cfg.Sync.Table)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
data_dir: /tmp/nf
log:
  level: debug
  format: json
gemini:
  model: gemini-2.5-flash
  timeout: 30s
editor:
  grid_size: 25
sync:
  enabled: true
  driver: sqlite
  path: /tmp/crm.db
  table: waitlist
`)
	t.Setenv("NEURALFLOW_GEMINI_MODEL", "from-env")
	t.Setenv("NEURALFLOW_DATA_DIR", "/srv/neuralflow")
	t.Setenv("NEURALFLOW_LEADS_OWNER_EMAIL", "owner@example.com")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Gemini.Model)
	assert.Equal(t, 30*time.Second, cfg.Gemini.Timeout)
	assert.Equal(t, "/srv/neuralflow", cfg.DataDir)
	assert.Equal(t, "/srv/neuralflow/neuralflow.db", cfg.DBPath())
	assert.Equal(t, "owner@example.com", cfg.Leads.OwnerEmail)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 25.0, cfg.Editor.GridSize)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, sink.DriverSQLite, cfg.Sync.Driver)
	assert.Equal(t, "waitlist", cfg.Sync.Table)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad level", "log:\n  level: loud\n", "log.level must be one of"},
		{"bad owner", "leads:\n  owner_email: nope\n", "leads.owner_email must be a valid email"},
		{"negative grid", "editor:\n  grid_size: -5\n", "editor.grid_size"},
		{"sync without driver", "sync:\n  enabled: true\n", "sync.driver"},
		{"sync bad schedule", "sync:\n  enabled: true\n  driver: mongodb\n  schedule: whenever\n", "sync.schedule"},
		{"sync sqlite without path", "sync:\n  enabled: true\n  driver: sqlite\n", "sync.path"},
		{"not yaml", "log: [\n", "failed to load config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			writeFile(t, path, tt.yaml)
			_, err := config.Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := config.Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "editor:\n  grid_size: 20\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *config.Config, 4)
	stop, err := config.Watch(ctx, path, nil, func(c *config.Config) { got <- c })
	require.NoError(t, err)
	defer stop()

	// Invalid edit is skipped; the valid one that follows is delivered.
	writeFile(t, path, "editor:\n  grid_size: -1\n")
	time.Sleep(700 * time.Millisecond)
	writeFile(t, path, "editor:\n  grid_size: 40\n")

	select {
	case c := <-got:
		assert.Equal(t, 40.0, c.Editor.GridSize)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatch_StopCancelsPendingReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "editor:\n  grid_size: 20\n")

	var calls atomic.Int32
	stop, err := config.Watch(context.Background(), path, nil, func(*config.Config) { calls.Add(1) })
	require.NoError(t, err)

	// Stop inside the debounce window; the queued reload must not run.
	writeFile(t, path, "editor:\n  grid_size: 40\n")
	time.Sleep(100 * time.Millisecond)
	stop()
	stop()

	time.Sleep(time.Second)
	assert.Zero(t, calls.Load())
}
