package crypto

import "github.com/avelesk/notevault/models"

// KeyService owns all client-side cryptography of the zero-knowledge scheme.
// It knows nothing about the network, the database or user accounts; its
// only job is deriving keys and sealing/opening payloads.
//
// Scheme:
//
//	Salt = GenerateSalt()                 (once, at account setup)
//	Key  = DeriveKey(password, Salt)      (every unlock)
//	ok   = VerifyKey(Key, check, want)    (validate without transmitting Key)
//	blob = Encrypt(plaintext, Key)        (every mutation)
type KeyService interface {
	// GenerateSalt returns a random 16-byte salt. The salt is not a secret;
	// it is stored on the server in the clear and is fixed for the lifetime
	// of the account so that the same password always derives the same key.
	GenerateSalt() ([]byte, error)

	// DeriveKey derives the 256-bit account key from the master password
	// and salt. The derivation is deterministic: identical inputs always
	// yield bitwise-identical keys. Returns ErrMalformedSalt if the salt
	// has the wrong length; no other failure mode exists.
	//
	// The derivation is CPU-bound (600,000 PBKDF2 rounds) and should be
	// kept off the interactive path.
	DeriveKey(masterPassword string, salt []byte) ([]byte, error)

	// Encrypt seals plaintext under key with AES-256-GCM using a fresh
	// random 96-bit nonce. Nonces are never reused under a given key.
	Encrypt(plaintext, key []byte) (models.EncryptedPayload, error)

	// Decrypt opens payload with key. Returns ErrDecryptionFailed on an
	// authentication-tag mismatch, which callers must treat as "wrong key
	// or corrupted data" and never paper over with defaults.
	Decrypt(payload models.EncryptedPayload, key []byte) ([]byte, error)

	// VerifyKey decrypts the server-issued check payload with key and
	// reports whether the result equals want, the plaintext fixed at
	// account setup. This validates a just-derived key without the key
	// ever leaving the device.
	VerifyKey(key []byte, check models.EncryptedPayload, want []byte) bool
}
