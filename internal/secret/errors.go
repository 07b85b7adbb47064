package secret

import "errors"

var (
	// ErrLocked is returned when the session key is requested but no key is
	// held in memory. The caller must unlock first, either by password
	// derivation or through the access gate.
	ErrLocked = errors.New("secret vault is locked")

	// ErrGateDenied is returned when the local access gate refused or could
	// not complete the presence check. Recoverable by falling back to
	// password re-entry; never retried silently.
	ErrGateDenied = errors.New("access gate denied")

	// ErrNotEnrolled is returned by UnlockWithGate when no persisted key
	// copy exists in the secure store.
	ErrNotEnrolled = errors.New("no persisted key enrolled")
)
