package models

// EncryptedPayload is a self-contained authenticated ciphertext blob. Given
// the matching key it can be decrypted on any device; the server and the
// local database treat it as opaque bytes.
//
// Both byte fields marshal to base64 strings in JSON, which is the form the
// server wire contract expects (`ciphertext` and `iv`).
type EncryptedPayload struct {
	// Ciphertext is the AES-GCM output including the authentication tag.
	Ciphertext []byte `json:"ciphertext"`

	// Nonce is the random 96-bit IV used for this single encryption.
	// A nonce is never reused under the same key.
	Nonce []byte `json:"iv"`

	// SchemaVersion records the layout version of the plaintext that was
	// encrypted, so old blobs stay decodable after schema changes.
	SchemaVersion int `json:"schemaVersion"`
}

// IsZero reports whether the payload carries no ciphertext at all.
func (p EncryptedPayload) IsZero() bool {
	return len(p.Ciphertext) == 0 && len(p.Nonce) == 0
}

// PayloadSchemaVersion is the schema version stamped on newly encrypted
// payloads.
const PayloadSchemaVersion = 1
