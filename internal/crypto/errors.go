package crypto

import "errors"

var (
	// ErrMalformedSalt is returned by DeriveKey when the salt is not
	// exactly SaltSize bytes.
	ErrMalformedSalt = errors.New("malformed key derivation salt")

	// ErrDecryptionFailed is returned when a payload fails authentication:
	// the key is wrong or the ciphertext was tampered with. The two cases
	// are indistinguishable.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeyLength is returned when a key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("invalid key length")
)
