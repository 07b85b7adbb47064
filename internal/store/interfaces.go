package store

import (
	"context"
	"time"

	"github.com/avelesk/notevault/models"
)

// RecordRepository is the durable local table of encrypted vault items. It
// operates on ciphertext only: the repository never holds a key and cannot
// decrypt anything it stores.
type RecordRepository interface {
	// Save inserts or replaces the given records.
	Save(ctx context.Context, records ...models.EncryptedRecord) error

	// Get returns the record with the given id, or ErrRecordNotFound.
	Get(ctx context.Context, id string) (models.EncryptedRecord, error)

	// List returns all records ordered by creation time, newest first.
	List(ctx context.Context) ([]models.EncryptedRecord, error)

	// ListByIDs returns the records matching the given ids, newest first.
	ListByIDs(ctx context.Context, ids []string) ([]models.EncryptedRecord, error)

	// Delete removes the record with the given id. Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, id string) error

	// MarkSynced records the server acknowledgement time for a record.
	MarkSynced(ctx context.Context, id string, at time.Time) error

	// ReplaceAll swaps the full local set for server truth in one
	// transaction: either every record of the new set is visible afterwards
	// or the store retains its prior state, never a partial mix.
	ReplaceAll(ctx context.Context, records []models.EncryptedRecord) error
}

// JournalRepository persists the ordered queue of local mutations that still
// await server acknowledgement.
type JournalRepository interface {
	// Append durably stores op before returning.
	Append(ctx context.Context, op models.PendingOperation) error

	// ListPending returns all queued operations in replay order (creation
	// order, oldest first).
	ListPending(ctx context.Context) ([]models.PendingOperation, error)

	// Remove deletes the operation with the given id, or returns
	// ErrOperationNotFound.
	Remove(ctx context.Context, opID string) error

	// CompactForDelete drops queued create/update operations for targetID.
	// Called when a delete is queued behind them: the delete supersedes
	// every earlier effect for that target. Returns how many entries were
	// dropped and whether one of them was the target's unsynced create (in
	// which case the delete itself is moot and need not be queued).
	CompactForDelete(ctx context.Context, targetID string) (dropped int64, hadCreate bool, err error)
}

// VaultBlobStore persists the encrypted vault document and its metadata as
// two physically separate files, so metadata can advance (e.g. a
// lastSyncedAt bump) without rewriting the blob body.
type VaultBlobStore interface {
	// Load returns the locally persisted vault, or ErrVaultNotFound when
	// the device has never synced.
	Load(ctx context.Context) (models.VaultBlob, error)

	// LoadMetadata reads the metadata file only.
	LoadMetadata(ctx context.Context) (models.VaultMetadata, error)

	// Store writes body and metadata, each replaced atomically.
	Store(ctx context.Context, blob models.VaultBlob) error

	// StoreMetadata rewrites the metadata file only, leaving the body
	// untouched.
	StoreMetadata(ctx context.Context, meta models.VaultMetadata) error
}
