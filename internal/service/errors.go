package service

import "errors"

var (
	// ErrKeyMismatch is returned when a freshly derived key fails the
	// server-issued verification check: the password is wrong for this
	// account (or the check payload is corrupted).
	ErrKeyMismatch = errors.New("master password does not match account key")

	// ErrPendingMutations is returned when a full resync is requested
	// while journal operations are still queued. Replacing local state
	// now would drop unacknowledged changes.
	ErrPendingMutations = errors.New("journal has pending mutations")

	// ErrEmptyPlaintext is returned for record mutations with no content.
	ErrEmptyPlaintext = errors.New("plaintext must not be empty")
)
