package models

import "time"

// EncryptedRecord is a single vault item as held by the local record store.
// It is the primary persistence model for all sensitive user data: every
// confidential field is stored as an [EncryptedPayload] and is opaque to the
// database and the server alike.
type EncryptedRecord struct {
	// ID is the client-assigned unique identifier of the record (UUID).
	ID string `json:"id"`

	// Primary holds the encrypted note body or credential content.
	Primary EncryptedPayload `json:"encryptedText"`

	// Attachments lists encrypted file metadata attached to this record.
	Attachments []Attachment `json:"files,omitempty"`

	// CreatedAt is when the record was created on this device.
	CreatedAt time.Time `json:"-"`

	// SyncedAt is when the server last acknowledged this record. Zero for
	// records that exist only locally.
	SyncedAt time.Time `json:"-"`
}

// Synced reports whether the server has acknowledged this record.
func (r *EncryptedRecord) Synced() bool {
	return !r.SyncedAt.IsZero()
}
