package config

import "errors"

var (
	// ErrNoServerAddress is returned when no sync server address is
	// configured by any source.
	ErrNoServerAddress = errors.New("no server address configured")

	// ErrNoDatabaseDSN is returned when the local database DSN is empty.
	ErrNoDatabaseDSN = errors.New("no local database DSN configured")

	// ErrInvalidTimeout is returned when a timeout is non-positive or the
	// total timeout is shorter than the per-request timeout.
	ErrInvalidTimeout = errors.New("invalid timeout configuration")

	// ErrInvalidSyncInterval is returned when the background sync interval
	// is non-positive.
	ErrInvalidSyncInterval = errors.New("invalid sync interval")
)
