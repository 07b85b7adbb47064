package store

import "errors"

// Sentinel errors returned by repository methods. Callers match them with
// [errors.Is]. Every durable-write failure is surfaced; nothing in this
// package discards an error on a best-effort basis.
var (
	// ErrRecordNotFound is returned when a query targets a record id that
	// does not exist locally.
	ErrRecordNotFound = errors.New("record not found")

	// ErrOperationNotFound is returned when removing a journal entry that
	// does not exist.
	ErrOperationNotFound = errors.New("pending operation not found")

	// ErrVaultNotFound is returned by the blob store when no vault has ever
	// been persisted on this device.
	ErrVaultNotFound = errors.New("no local vault blob")

	// ErrInvalidOperation is returned when appending a journal entry whose
	// kind is unknown or whose payload is inconsistent with its kind.
	ErrInvalidOperation = errors.New("invalid pending operation")
)
