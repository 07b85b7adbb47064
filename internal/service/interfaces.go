// Package service implements the application logic of the notevault client:
// session unlock, offline-first record CRUD, journal reconciliation and
// vault synchronization.
//
// Services operate on plaintext only transiently. Everything that leaves a
// service towards the store or the adapter is ciphertext; decrypted views
// are ephemeral values owned by the caller.
package service

import (
	"context"
	"time"

	"github.com/avelesk/notevault/models"
)

// RecordView is a decrypted, ephemeral view of one stored record. It is
// never persisted.
type RecordView struct {
	ID        string
	Plaintext []byte
	CreatedAt time.Time
	Synced    bool
}

// PushState is the terminal state of one vault push attempt.
type PushState string

const (
	// PushCommitted means the server accepted the upload and the local
	// base version advanced.
	PushCommitted PushState = "committed"

	// PushConflict means another device moved the vault version forward.
	// The result carries both plaintexts; resolution is the caller's
	// decision.
	PushConflict PushState = "conflict"
)

// PushResult is the outcome of VaultSyncEngine.PushLocalChange.
type PushResult struct {
	State PushState

	// Version is the new server version after a committed push.
	Version int64

	// LocalPlaintext and ServerPlaintext are populated on conflict: the
	// change this device tried to push and the content currently on the
	// server. Neither side is discarded.
	LocalPlaintext  []byte
	ServerPlaintext []byte

	// ServerVersion is the server's current version on conflict.
	ServerVersion int64
}

// SessionService manages the signed-in session key lifecycle.
type SessionService interface {
	// SetupAccount initializes the account's crypto material: generates
	// the per-account salt, derives the key, uploads the key verification
	// vector and installs the key as the session key. Returns the salt,
	// which the caller must persist — it is required for every future
	// password unlock.
	SetupAccount(ctx context.Context, masterPassword string) (salt []byte, err error)

	// UnlockWithPassword derives the account key from the master password
	// and salt, validates it against the server-issued check payload and
	// installs it as the session key. Returns ErrKeyMismatch for a wrong
	// password.
	UnlockWithPassword(ctx context.Context, masterPassword string, salt []byte) error

	// UnlockWithGate restores the session key from the access-gated
	// persisted copy, without the password.
	UnlockWithGate(ctx context.Context, reason string) error

	// EnrollGate persists the current session key behind the access gate
	// so future unlocks can skip password entry.
	EnrollGate(ctx context.Context, reason string) error

	// Lock discards the in-memory key, keeping the gated copy.
	Lock()

	// SignOut discards the in-memory key and purges the gated copy.
	SignOut(ctx context.Context) error
}

// RecordService is the offline-first CRUD surface over encrypted records.
// Every mutation encrypts, persists locally and queues a journal operation;
// it never waits for the network.
type RecordService interface {
	Create(ctx context.Context, plaintext []byte) (models.EncryptedRecord, error)
	Update(ctx context.Context, id string, plaintext []byte) error
	Delete(ctx context.Context, id string) error

	// Read returns the decrypted view of one record.
	Read(ctx context.Context, id string) (RecordView, error)

	// ReadAll returns decrypted views of all records, newest first.
	ReadAll(ctx context.Context) ([]RecordView, error)
}

// JournalService reconciles queued local mutations against the server.
type JournalService interface {
	// Drain replays pending operations strictly in order, removing each
	// only after the server acknowledged it. It stops at the first failure
	// and leaves the failed operation and everything behind it queued.
	// Returns how many operations were applied.
	Drain(ctx context.Context) (applied int, err error)

	// ReplayAll runs Drain under an exponential backoff, retrying only
	// transient network failures. Terminal failures surface immediately.
	ReplayAll(ctx context.Context) error

	// Pending returns the number of queued operations.
	Pending(ctx context.Context) (int, error)

	// FullResync replaces the local record set with server truth. It
	// refuses to run while mutations are still queued (they would be
	// lost) and returns ErrPendingMutations instead.
	FullResync(ctx context.Context) error
}

// VaultSyncEngine synchronizes the single shared vault blob using the
// server's optimistic lock. Pushes are serialized: a second push waits for
// the in-flight one to resolve.
type VaultSyncEngine interface {
	// LoadLocal returns the last locally persisted vault, or
	// store.ErrVaultNotFound when this device has never synced.
	LoadLocal(ctx context.Context) (models.VaultBlob, error)

	// PushLocalChange re-encrypts the full vault content and uploads it
	// conditioned on the local base version. On conflict nothing local is
	// overwritten; both plaintexts are surfaced in the result.
	PushLocalChange(ctx context.Context, plaintext []byte) (PushResult, error)

	// PullIfStale probes the server metadata and downloads the vault body
	// only when the server version is ahead of the local one. Returns the
	// freshly stored blob, or nil when the local copy is current.
	PullIfStale(ctx context.Context) (*models.VaultBlob, error)
}

// SyncJob periodically drains the journal and refreshes the vault in the
// background.
type SyncJob interface {
	// Start launches the background loop. A second Start stops the
	// previous loop first.
	Start(ctx context.Context, interval time.Duration)

	// Stop terminates the loop and waits for it to exit.
	Stop()
}
