// Package adapter provides the transport layer for talking to the notevault
// sync server.
//
// The primary abstraction is [ServerAdapter], which decouples the service
// layer from the wire protocol. The package ships an HTTP/REST
// implementation ([NewHTTPServerAdapter]) built on resty. HTTP status codes
// are mapped to the sentinel errors in errors.go so that callers can use
// [errors.Is] for transport-agnostic handling (e.g. [ErrVersionConflict]
// for 409).
//
// The adapter only consumes an authenticated request-sending capability: it
// attaches the bearer token it is given and plays no part in acquiring it.
package adapter

import (
	"context"

	"github.com/avelesk/notevault/models"
)

// ServerAdapter defines transport-agnostic communication with the sync
// server. Implementations are responsible for serialization, authentication
// header management, and mapping transport errors to this package's
// sentinels.
type ServerAdapter interface {
	// SetToken stores the bearer token attached to all subsequent
	// authenticated requests.
	SetToken(token string)

	// Token returns the currently stored bearer token, or "" if none.
	Token() string

	// ListRecords fetches all encrypted records owned by the account.
	// Reads are served through the fetch cache; force bypasses the
	// freshness check without cancelling an in-flight fetch.
	ListRecords(ctx context.Context, force bool) ([]models.RecordItem, error)

	// UploadRecord creates one record on the server.
	UploadRecord(ctx context.Context, item models.RecordItem) error

	// UpdateRecord replaces one record's content on the server.
	UpdateRecord(ctx context.Context, item models.RecordItem) error

	// DeleteRecord removes one record on the server. Deleting an id the
	// server does not know is not an error (the delete already won).
	DeleteRecord(ctx context.Context, id string) error

	// GetKeyCheck fetches the server-issued key verification vector.
	GetKeyCheck(ctx context.Context) (models.EncryptedPayload, error)

	// PutKeyCheck stores the account's key verification vector. Called
	// once, at account setup.
	PutKeyCheck(ctx context.Context, check models.EncryptedPayload) error

	// GetVault downloads the full encrypted vault blob together with its
	// current server version. Returns ErrNotFound when the account has
	// never uploaded a vault.
	GetVault(ctx context.Context) (models.VaultBlob, error)

	// GetVaultMetadata fetches the vault metadata document only — a cheap
	// staleness probe that avoids downloading the body.
	GetVaultMetadata(ctx context.Context, force bool) (models.VaultMetadata, error)

	// PutVault uploads a new vault body conditioned on expectedVersion.
	// The server applies the write atomically only when its current
	// version equals expectedVersion; otherwise ErrVersionConflict is
	// returned and nothing changes. On success the response carries the
	// new server version (expectedVersion+1).
	PutVault(ctx context.Context, content models.EncryptedPayload, expectedVersion int64) (models.VaultUploadResponse, error)
}
