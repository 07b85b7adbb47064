package models

import "time"

// OperationKind is the type of a queued local mutation.
type OperationKind string

const (
	OpCreate OperationKind = "create"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

// Valid reports whether k is one of the known operation kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// PendingOperation is one entry of the mutation journal: a local change that
// has not yet been acknowledged by the server. Entries are appended when a
// mutation cannot be confirmed synchronously and removed only after the
// server has applied the corresponding effect.
//
// Ordering invariant: operations for a given TargetID replay in creation
// order. The journal never reorders or skips entries.
type PendingOperation struct {
	// OpID uniquely identifies the journal entry itself (UUID).
	OpID string `json:"op_id"`

	// Kind is the mutation type.
	Kind OperationKind `json:"kind"`

	// TargetID is the ID of the record the mutation applies to.
	TargetID string `json:"target_id"`

	// Payload carries the encrypted record content for create and update
	// operations. Nil for deletes.
	Payload *EncryptedPayload `json:"payload,omitempty"`

	// CreatedAt is when the mutation was queued; it defines replay order.
	CreatedAt time.Time `json:"created_at"`
}
