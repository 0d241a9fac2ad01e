package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/memory-storage/internal/model"
)

// chdir moves into an empty directory so no stray config file is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestDefaults(t *testing.T) {
	chdir(t)
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data", c.DataDir)
	assert.Equal(t, filepath.Join("data", "memory.db"), c.DSN())
	assert.Equal(t, filepath.Join("data", "backups"), c.BackupDir())
	assert.Equal(t, 8000, c.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", c.Addr())
	assert.Equal(t, 15*time.Second, c.Server.ReadTimeout)
	assert.False(t, c.Security.EnableAuth)
	assert.Equal(t, 60*time.Minute, c.BackupInterval())
	assert.True(t, c.Backup.OnStartup)
	assert.Equal(t, 5, c.Backup.MaxBackups)
	assert.Equal(t, int64(1<<20), c.Storage.MaxPayloadBytes)
	assert.Equal(t, model.MemoryTypes, c.MemoryTypes())
	assert.Equal(t, "LONG_TERM", c.Storage.DefaultMemoryType)
	assert.Equal(t, 30*time.Second, c.Storage.AcquireTimeout)
	require.Len(t, c.Storage.DefaultProjects, 1)
	assert.Equal(t, "GLOBAL", c.Storage.DefaultProjects[0].Name)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLegacyEnvNames(t *testing.T) {
	dir := chdir(t)
	t.Setenv("MEMORY_STORAGE_DATA_DIR", dir)
	t.Setenv("MEMORY_STORAGE_PORT", "9001")
	t.Setenv("MEMORY_STORAGE_AUTH_ENABLED", "true")
	t.Setenv("MEMORY_STORAGE_AUTH_KEY", "s3cret")
	t.Setenv("MEMORY_STORAGE_BACKUP_INTERVAL", "0")
	t.Setenv("MEMORY_STORAGE_LOG_LEVEL", "DEBUG")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dir, c.DataDir)
	assert.Equal(t, 9001, c.Server.Port)
	assert.True(t, c.Security.EnableAuth)
	assert.Equal(t, []string{"s3cret"}, c.APIKeys())
	assert.Equal(t, time.Duration(0), c.BackupInterval())
	assert.Equal(t, "DEBUG", c.Log.Level)
}

func TestNestedEnvNames(t *testing.T) {
	chdir(t)
	t.Setenv("MEMORY_STORAGE_SERVER_PORT", "7000")
	t.Setenv("MEMORY_STORAGE_BACKUP_MAX_BACKUPS", "2")
	t.Setenv("MEMORY_STORAGE_DB", "postgres://localhost/memory")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, c.Server.Port)
	assert.Equal(t, 2, c.Backup.MaxBackups)
	assert.Equal(t, "postgres://localhost/memory", c.DSN())
}

func TestYAMLFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/memory
server:
  port: 8100
security:
  enable_auth: true
  api_keys: [one, two]
backup:
  interval_minutes: 15
  max_backups: 3
storage:
  max_payload_bytes: 4096
  default_memory_type: SHORT_TERM
  default_projects:
    - name: GLOBAL
    - name: team
      description: shared team notes
log:
  format: json
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/memory", c.DataDir)
	assert.Equal(t, 8100, c.Server.Port)
	assert.Equal(t, []string{"one", "two"}, c.APIKeys())
	assert.Equal(t, 15*time.Minute, c.BackupInterval())
	assert.Equal(t, 3, c.Backup.MaxBackups)
	assert.Equal(t, int64(4096), c.Storage.MaxPayloadBytes)
	assert.Equal(t, "SHORT_TERM", c.Storage.DefaultMemoryType)
	require.Len(t, c.Storage.DefaultProjects, 2)
	assert.Equal(t, "shared team notes", c.Storage.DefaultProjects[1].Description)
	assert.Equal(t, "json", c.Log.Format)
}

func TestTOMLFileDiscovered(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "memory-storage.toml"), []byte(`
data_dir = "/srv/memory"

[backup]
on_startup = false
`), 0o644))

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/memory", c.DataDir)
	assert.False(t, c.Backup.OnStartup)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8100\n"), 0o644))
	t.Setenv("MEMORY_STORAGE_PORT", "8200")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8200, c.Server.Port)
}

func TestInvalidConfig(t *testing.T) {
	cases := map[string]map[string]string{
		"auth without keys":    {"MEMORY_STORAGE_AUTH_ENABLED": "true"},
		"negative interval":    {"MEMORY_STORAGE_BACKUP_INTERVAL": "-5"},
		"zero retention":       {"MEMORY_STORAGE_BACKUP_MAX_BACKUPS": "0"},
		"unknown default type": {"MEMORY_STORAGE_STORAGE_DEFAULT_MEMORY_TYPE": "FOREVER"},
		"bad log format":       {"MEMORY_STORAGE_LOG_FORMAT": "xml"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			chdir(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestMissingExplicitFile(t *testing.T) {
	chdir(t)
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
