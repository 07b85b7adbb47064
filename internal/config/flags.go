package config

import (
	"flag"
	"time"
)

// parseFlags parses all configuration flags.
//
// Flags:
//
//	-a server base URL
//	-d local database DSN (SQLite file path)
//	-vault-dir directory for the encrypted vault blob and metadata
//	-c/-config JSON file path with configs
//	-request-timeout single request timeout (e.g. "15s")
//	-total-timeout whole-operation timeout (e.g. "30s")
//	-sync-interval background sync interval (e.g. "5m")
//	-keyring-service OS keyring service name
//	-cache-ttl fetch cache TTL (e.g. "1m")
func parseFlags() *StructuredConfig {
	var serverAddress string
	var databaseDSN string
	var vaultDir string
	var jsonConfigPath string
	var requestTimeout time.Duration
	var totalTimeout time.Duration
	var syncInterval time.Duration
	var keyringService string
	var cacheTTL time.Duration

	flag.StringVar(&serverAddress, "a", "", "Sync server base URL")
	flag.StringVar(&databaseDSN, "d", "", "Local database DSN")
	flag.StringVar(&vaultDir, "vault-dir", "", "Vault blob directory")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g. 15s)")
	flag.DurationVar(&totalTimeout, "total-timeout", 0, "Total operation timeout (e.g. 30s)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync interval (e.g. 5m)")
	flag.StringVar(&keyringService, "keyring-service", "", "OS keyring service name")
	flag.DurationVar(&cacheTTL, "cache-ttl", 0, "Fetch cache TTL (e.g. 1m)")

	flag.Parse()

	return &StructuredConfig{
		Server: Server{
			Address:        serverAddress,
			RequestTimeout: requestTimeout,
			TotalTimeout:   totalTimeout,
		},
		Storage: Storage{
			DB:       DB{DSN: databaseDSN},
			VaultDir: vaultDir,
		},
		Workers:      Workers{SyncInterval: syncInterval},
		Secret:       Secret{KeyringService: keyringService},
		Cache:        Cache{TTL: cacheTTL},
		jsonFilePath: jsonConfigPath,
	}
}
