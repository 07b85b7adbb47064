package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseJSON(t *testing.T) {
	path := writeConfigFile(t, `{
		"server": {
			"server_address": "http://json-server:8080",
			"request_timeout": 12000000000
		},
		"storage": {
			"db": {"database_dsn": "/data/json.db"},
			"vault_dir": "/data/vault"
		},
		"workers": {"sync_interval": 120000000000}
	}`)

	cfg, err := parseJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "http://json-server:8080", cfg.Server.Address)
	assert.Equal(t, 12*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "/data/json.db", cfg.Storage.DB.DSN)
	assert.Equal(t, "/data/vault", cfg.Storage.VaultDir)
	assert.Equal(t, 2*time.Minute, cfg.Workers.SyncInterval)
}

func TestParseJSON_MissingFile(t *testing.T) {
	_, err := parseJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestParseJSON_MalformedBody(t *testing.T) {
	path := writeConfigFile(t, `{"server": `)

	_, err := parseJSON(path)
	assert.Error(t, err)
}
