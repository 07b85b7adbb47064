package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_DefaultsOnly(t *testing.T) {
	b := newBuilder()
	b.configs = append(b.configs, defaults())

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server.Address)
	assert.Equal(t, "notevault.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 5*time.Minute, cfg.Workers.SyncInterval)
	assert.Equal(t, "notevault", cfg.Secret.KeyringService)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestBuilder_HigherPrecedenceSourceWins(t *testing.T) {
	flagsCfg := &StructuredConfig{Server: Server{Address: "http://from-flags:9000"}}
	envCfg := &StructuredConfig{
		Server:  Server{Address: "http://from-env:9001", RequestTimeout: 7 * time.Second},
		Storage: Storage{DB: DB{DSN: "env.db"}},
	}

	b := newBuilder()
	b.configs = append(b.configs, flagsCfg, envCfg, defaults())

	cfg, err := b.build()
	require.NoError(t, err)

	// Flags shadow the env address; env fills what flags left empty;
	// defaults fill the rest.
	assert.Equal(t, "http://from-flags:9000", cfg.Server.Address)
	assert.Equal(t, 7*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "env.db", cfg.Storage.DB.DSN)
	assert.Equal(t, 30*time.Second, cfg.Server.TotalTimeout)
}

func TestBuilder_ValidationFailures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*StructuredConfig)
		wantErr error
	}{
		{"no server address", func(c *StructuredConfig) { c.Server.Address = "" }, ErrNoServerAddress},
		{"no database dsn", func(c *StructuredConfig) { c.Storage.DB.DSN = "" }, ErrNoDatabaseDSN},
		{"negative request timeout", func(c *StructuredConfig) { c.Server.RequestTimeout = -time.Second }, ErrInvalidTimeout},
		{"total shorter than request", func(c *StructuredConfig) {
			c.Server.RequestTimeout = time.Minute
			c.Server.TotalTimeout = time.Second
		}, ErrInvalidTimeout},
		{"zero sync interval", func(c *StructuredConfig) { c.Workers.SyncInterval = 0 }, ErrInvalidSyncInterval},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaults()
			tc.mutate(cfg)

			b := newBuilder()
			b.configs = append(b.configs, cfg)

			_, err := b.build()
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}
