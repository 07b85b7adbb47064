package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/avelesk/notevault/models"
)

const (
	// SaltSize is the fixed length of the per-account derivation salt.
	SaltSize = 16

	// KeySize is the length of the derived account key (256 bits).
	KeySize = 32

	// kdfIterations is the PBKDF2-HMAC-SHA256 round count. High enough to
	// make offline guessing expensive on current hardware.
	kdfIterations = 600_000
)

// KeyCheckPlaintext is the fixed plaintext sealed into the account's key
// verification vector at setup. VerifyKey compares decryption output against
// it; both client and server-side setup tooling reference this constant.
var KeyCheckPlaintext = []byte("notevault key check v1")

// keyService is the private implementation of [KeyService].
type keyService struct {
	// iterations is stored in the struct so tests can lower it; production
	// code always uses kdfIterations.
	iterations int
}

// NewKeyService constructs a [KeyService] with production KDF parameters.
func NewKeyService() KeyService {
	return &keyService{iterations: kdfIterations}
}

// GenerateSalt implements [KeyService]. It reads 16 random bytes from the OS
// CSPRNG. Returns an error if the random read fails.
func (k *keyService) GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey implements [KeyService]. It stretches masterPassword through
// PBKDF2-HMAC-SHA256 into a 256-bit key. The result exists only in client
// memory and is never transmitted to the server.
func (k *keyService) DeriveKey(masterPassword string, salt []byte) ([]byte, error) {
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedSalt, len(salt), SaltSize)
	}
	return pbkdf2.Key([]byte(masterPassword), salt, k.iterations, KeySize, sha256.New), nil
}

// Encrypt implements [KeyService]. The nonce is generated fresh from the OS
// CSPRNG for every call; at 96 bits the collision probability over the life
// of one key is negligible.
func (k *keyService) Encrypt(plaintext, key []byte) (models.EncryptedPayload, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return models.EncryptedPayload{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return models.EncryptedPayload{}, fmt.Errorf("generate nonce: %w", err)
	}

	return models.EncryptedPayload{
		Ciphertext:    gcm.Seal(nil, nonce, plaintext, nil),
		Nonce:         nonce,
		SchemaVersion: models.PayloadSchemaVersion,
	}, nil
}

// Decrypt implements [KeyService]. An authentication failure almost always
// means the user entered the wrong master password.
func (k *keyService) Decrypt(payload models.EncryptedPayload, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(payload.Nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce length %d", ErrDecryptionFailed, len(payload.Nonce))
	}

	plaintext, err := gcm.Open(nil, payload.Nonce, payload.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// VerifyKey implements [KeyService].
func (k *keyService) VerifyKey(key []byte, check models.EncryptedPayload, want []byte) bool {
	got, err := k.Decrypt(check, key)
	if err != nil {
		return false
	}
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
