// Package config assembles the client configuration from environment
// variables, command-line flags and an optional JSON file. The three sources
// are parsed independently and merged, flags taking precedence over the
// environment, which takes precedence over the JSON file.
package config

import (
	"fmt"
	"time"
)

// Server holds settings for the remote sync server connection.
type Server struct {
	// Address is the base URL of the sync server.
	Address string `env:"NOTEVAULT_SERVER_ADDRESS" json:"server_address"`

	// RequestTimeout bounds a single request/response exchange.
	RequestTimeout time.Duration `env:"NOTEVAULT_REQUEST_TIMEOUT" json:"request_timeout"`

	// TotalTimeout bounds a whole network operation including retries.
	TotalTimeout time.Duration `env:"NOTEVAULT_TOTAL_TIMEOUT" json:"total_timeout"`
}

// DB contains the local SQLite connection settings.
type DB struct {
	// DSN is the SQLite file path (":memory:" for an in-memory database).
	DSN string `env:"NOTEVAULT_DB_DSN" json:"database_dsn"`
}

// Storage groups local persistence settings.
type Storage struct {
	// DB holds local database settings.
	DB DB `json:"db"`

	// VaultDir is the directory holding the encrypted vault blob and its
	// metadata file.
	VaultDir string `env:"NOTEVAULT_VAULT_DIR" json:"vault_dir"`
}

// Workers contains background job settings.
type Workers struct {
	// SyncInterval defines how often the background sync job runs.
	SyncInterval time.Duration `env:"NOTEVAULT_SYNC_INTERVAL" json:"sync_interval"`
}

// Secret groups access-gated key persistence settings.
type Secret struct {
	// KeyringService is the service name under which the session key is
	// stored in the OS keyring.
	KeyringService string `env:"NOTEVAULT_KEYRING_SERVICE" json:"keyring_service"`
}

// Cache groups fetch-cache settings.
type Cache struct {
	// TTL is the default freshness window for cached network reads.
	TTL time.Duration `env:"NOTEVAULT_CACHE_TTL" json:"cache_ttl"`
}

// StructuredConfig is the merged configuration tree.
type StructuredConfig struct {
	Server  Server  `json:"server"`
	Storage Storage `json:"storage"`
	Workers Workers `json:"workers"`
	Secret  Secret  `json:"secret"`
	Cache   Cache   `json:"cache"`

	// jsonFilePath is only used while building: it points at the optional
	// JSON config file named by flags or environment.
	jsonFilePath string
}

// defaults returns the configuration applied underneath all other sources.
func defaults() *StructuredConfig {
	return &StructuredConfig{
		Server: Server{
			Address:        "http://localhost:8080",
			RequestTimeout: 15 * time.Second,
			TotalTimeout:   30 * time.Second,
		},
		Storage: Storage{
			DB:       DB{DSN: "notevault.db"},
			VaultDir: ".",
		},
		Workers: Workers{SyncInterval: 5 * time.Minute},
		Secret:  Secret{KeyringService: "notevault"},
		Cache:   Cache{TTL: time.Minute},
	}
}

// Get builds and validates the client configuration from flags, environment
// and the optional JSON file.
func Get() (*StructuredConfig, error) {
	cfg, err := newBuilder().
		withFlags().
		withEnv().
		withJSON().
		withDefaults().
		build()
	if err != nil {
		return nil, fmt.Errorf("build config: %w", err)
	}
	return cfg, nil
}

func (c *StructuredConfig) validate() error {
	if c.Server.Address == "" {
		return ErrNoServerAddress
	}
	if c.Server.RequestTimeout <= 0 || c.Server.TotalTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Server.TotalTimeout < c.Server.RequestTimeout {
		return ErrInvalidTimeout
	}
	if c.Storage.DB.DSN == "" {
		return ErrNoDatabaseDSN
	}
	if c.Workers.SyncInterval <= 0 {
		return ErrInvalidSyncInterval
	}
	return nil
}
