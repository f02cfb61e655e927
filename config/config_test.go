package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Queue.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Queue.LeaseDuration)
}

func TestDSN(t *testing.T) {
	cfg := MySQLConfig{
		Host:     "db.internal",
		Port:     3307,
		User:     "retail",
		Password: "secret",
		Database: "retailstore",
	}
	assert.Equal(t,
		"retail:secret@tcp(db.internal:3307)/retailstore?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DSN())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().NATS.URL, cfg.NATS.URL)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
mysql:
  host: db.example.com
  database: retail_prod
nats:
  url: nats://queue.example.com:4222
queue:
  lease_duration: 45s
  batch_size: 32
share:
  root: /srv/contracts
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "db.example.com", cfg.MySQL.Host)
	assert.Equal(t, "retail_prod", cfg.MySQL.Database)
	assert.Equal(t, "nats://queue.example.com:4222", cfg.NATS.URL)
	assert.Equal(t, 45*time.Second, cfg.Queue.LeaseDuration)
	assert.Equal(t, 32, cfg.Queue.BatchSize)
	assert.Equal(t, "/srv/contracts", cfg.Share.Root)

	// Untouched fields keep their defaults
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nats:\n  url: nats://from-file:4222\n"), 0o600))

	t.Setenv("RETAIL_NATS_URL", "nats://from-env:4222")
	t.Setenv("RETAIL_QUEUE_BATCH_SIZE", "5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://from-env:4222", cfg.NATS.URL)
	assert.Equal(t, 5, cfg.Queue.BatchSize)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mysql: ["), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Queue.BatchSize = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Queue.LeaseDuration = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.NATS.URL = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Share.Root = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.MySQL.Database = ""
	require.Error(t, cfg.Validate())
}
