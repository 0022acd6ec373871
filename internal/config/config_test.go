package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, DefaultResolvers, cfg.Resolver.Servers)
	assert.Equal(t, 2*time.Second, cfg.Resolver.Timeout.Duration())
	assert.Equal(t, DefaultWorkers, cfg.Ingest.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfigDoesNotShareResolvers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolver.Servers[0] = "127.0.0.1:53"

	assert.Equal(t, "1.1.1.1:53", DefaultResolvers[0])
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	data := `
log:
  level: debug
  format: json
resolver:
  servers: ["9.9.9.9:53"]
  timeout: 750ms
ingest:
  workers: 4
metrics:
  textfile_path: /tmp/jfscan.prom
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, loadedPath, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, path, loadedPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"9.9.9.9:53"}, cfg.Resolver.Servers)
	assert.Equal(t, 750*time.Millisecond, cfg.Resolver.Timeout.Duration())
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, "/tmp/jfscan.prom", cfg.Metrics.TextfilePath)
	// Unset values fall back to defaults
	assert.Equal(t, DefaultDSN, cfg.Database.DSN)
}

func TestLoadFromPathErrors(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadFromPath(filepath.Join(tmpDir, "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("resolver:\n  timeout: soon\n"), 0644))

		_, _, err := LoadFromPath(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Format = "xml"

	assert.Error(t, cfg.Validate())
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ingest:\n  workers: 2\n"), 0644))

	t.Setenv(EnvConfigPath, path)
	assert.Equal(t, path, FindConfigPath())

	cfg, loadedPath, err := Load()
	require.NoError(t, err)
	assert.Equal(t, path, loadedPath)
	assert.Equal(t, 2, cfg.Ingest.Workers)
}

func TestDuration(t *testing.T) {
	d := Duration(1500 * time.Millisecond)

	out, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", out)
	assert.Equal(t, 1500*time.Millisecond, d.Duration())
}
