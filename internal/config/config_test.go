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
	assert.Equal(t, "kapesync.db", cfg.StorePath)
	assert.Equal(t, "kapesync", cfg.RemoteDB)
	assert.Equal(t, "KS", cfg.DevicePrefix)
	assert.Equal(t, 3*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, 2*time.Second, cfg.ProbeTTL())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.DemoMode())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kapesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_path: /var/lib/kapesync/pos.db
remote_uri: mongodb://localhost:27017
remote_db: shopdata
device_prefix: TILL2
probe_timeout_sec: 5
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/kapesync/pos.db", cfg.StorePath)
	assert.Equal(t, "mongodb://localhost:27017", cfg.RemoteURI)
	assert.Equal(t, "shopdata", cfg.RemoteDB)
	assert.Equal(t, "TILL2", cfg.DevicePrefix)
	assert.Equal(t, 5*time.Second, cfg.ProbeTimeout())
	assert.False(t, cfg.DemoMode())
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kapesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_prefix: TILL2\n"), 0o644))
	t.Setenv("KAPESYNC_DEVICE_PREFIX", "TILL9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TILL9", cfg.DevicePrefix)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "kapesync.db", cfg.StorePath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kapesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kapesync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_path: [\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
