// Package secret holds the active encryption key for the signed-in session.
//
// The key lives in process memory for the foreground lifetime of the app. An
// optional persisted copy sits in the OS keyring so the user can re-enter
// without re-deriving from the password, but releasing that copy always
// requires a fresh pass through the access gate.
package secret

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/99designs/keyring"
)

// keyringEntry is the keyring key under which the session key is persisted.
const keyringEntry = "session-key"

// Vault is the single holder of the active encryption key. It is
// instantiated once per signed-in session and injected into every component
// that needs to encrypt or decrypt; concurrent callers are serialized by an
// internal mutex.
type Vault struct {
	gate AccessGate
	ring keyring.Keyring

	mu  sync.Mutex
	key []byte
}

// New constructs a locked Vault. ring is the access-gated secure store for
// the persisted key copy; gate is consulted before every load or store of
// that copy.
func New(gate AccessGate, ring keyring.Keyring) *Vault {
	return &Vault{gate: gate, ring: ring}
}

// OpenKeyring opens the OS keyring under the given service name.
func OpenKeyring(serviceName string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{ServiceName: serviceName})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// SetKey installs the active session key, replacing any previous one. The
// key is copied; the caller's slice is not retained.
func (v *Vault) SetKey(key []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.zeroKeyLocked()
	v.key = append([]byte(nil), key...)
}

// Key returns a copy of the active session key, or ErrLocked when none is
// held.
func (v *Vault) Key() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.key == nil {
		return nil, ErrLocked
	}
	return append([]byte(nil), v.key...), nil
}

// Unlocked reports whether a session key is currently held in memory.
func (v *Vault) Unlocked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key != nil
}

// Lock zeroes and discards the in-memory key. The persisted gated copy, if
// any, is preserved so UnlockWithGate can restore the session.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.zeroKeyLocked()
}

// LockAndPurge discards both the in-memory key and the persisted copy. Used
// on sign-out; after it returns, only password re-entry can restore access.
// The in-memory key is dropped even when removing the persisted copy fails.
func (v *Vault) LockAndPurge() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.zeroKeyLocked()

	err := v.ring.Remove(keyringEntry)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("purge persisted key: %w", err)
	}
	return nil
}

// Enroll persists the current session key in the secure store so future
// sessions can unlock through the access gate instead of the password.
// Storing is itself gated. Returns ErrLocked when no key is held.
func (v *Vault) Enroll(ctx context.Context, reason string) error {
	key, err := v.Key()
	if err != nil {
		return err
	}

	if err := v.gate.Confirm(ctx, reason); err != nil {
		return fmt.Errorf("%w: %v", ErrGateDenied, err)
	}

	if err := v.ring.Set(keyring.Item{Key: keyringEntry, Data: key, Label: "notevault session key"}); err != nil {
		return fmt.Errorf("persist session key: %w", err)
	}
	return nil
}

// Enrolled reports whether a persisted key copy exists. It inspects the
// keyring's key list only and must not trigger the access gate.
func (v *Vault) Enrolled() (bool, error) {
	keys, err := v.ring.Keys()
	if err != nil {
		return false, fmt.Errorf("list keyring entries: %w", err)
	}
	for _, k := range keys {
		if k == keyringEntry {
			return true, nil
		}
	}
	return false, nil
}

// UnlockWithGate restores the session key from the persisted copy. The
// access gate is passed freshly on every call. Returns ErrNotEnrolled when
// no copy exists and ErrGateDenied when the presence check fails; in both
// cases the vault stays locked.
func (v *Vault) UnlockWithGate(ctx context.Context, reason string) ([]byte, error) {
	enrolled, err := v.Enrolled()
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	if err := v.gate.Confirm(ctx, reason); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateDenied, err)
	}

	item, err := v.ring.Get(keyringEntry)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("load persisted key: %w", err)
	}

	v.SetKey(item.Data)
	return append([]byte(nil), item.Data...), nil
}

// zeroKeyLocked wipes the key bytes before dropping the reference. Callers
// must hold v.mu.
func (v *Vault) zeroKeyLocked() {
	for i := range v.key {
		v.key[i] = 0
	}
	v.key = nil
}
