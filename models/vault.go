package models

import "time"

// VaultBlob is the single encrypted vault document shared by all devices of
// one account. It is a per-account singleton, not a collection: every
// mutation re-encrypts and re-uploads the whole content.
type VaultBlob struct {
	// Content is the encrypted vault body.
	Content EncryptedPayload

	// Version is the optimistic-lock counter. It is strictly increasing;
	// the server accepts a write only when the writer's base version equals
	// the server's current version.
	Version int64

	// UpdatedAt is when the content was last modified (locally or, for a
	// downloaded copy, on the server).
	UpdatedAt time.Time

	// LastSyncedAt is when this device last exchanged the vault with the
	// server. Local bookkeeping only, never uploaded.
	LastSyncedAt time.Time
}

// VaultMetadata is the JSON metadata document stored alongside the raw
// encrypted vault body, both on disk and on the wire.
type VaultMetadata struct {
	Version      int64      `json:"version"`
	IV           []byte     `json:"iv"`
	UpdatedAt    UnixMillis `json:"updatedAt"`
	LastSyncedAt UnixMillis `json:"lastSyncedAt"`
}
