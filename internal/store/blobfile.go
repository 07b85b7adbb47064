package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avelesk/notevault/models"
)

const (
	vaultBodyFile = "vault.bin"
	vaultMetaFile = "vault-meta.json"
)

// blobFileStore persists the vault as two files in one directory: the raw
// encrypted body and a small JSON metadata document. Keeping them separate
// lets metadata advance (version, lastSyncedAt) without rewriting the
// potentially large body. Each write replaces its file atomically via a
// temp file and rename.
type blobFileStore struct {
	dir string
}

// NewBlobFileStore constructs a [VaultBlobStore] rooted at dir.
func NewBlobFileStore(dir string) VaultBlobStore {
	return &blobFileStore{dir: dir}
}

func (s *blobFileStore) Load(ctx context.Context) (models.VaultBlob, error) {
	meta, err := s.LoadMetadata(ctx)
	if err != nil {
		return models.VaultBlob{}, err
	}

	body, err := os.ReadFile(filepath.Join(s.dir, vaultBodyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return models.VaultBlob{}, ErrVaultNotFound
		}
		return models.VaultBlob{}, fmt.Errorf("read vault body: %w", err)
	}

	return models.VaultBlob{
		Content: models.EncryptedPayload{
			Ciphertext:    body,
			Nonce:         meta.IV,
			SchemaVersion: models.PayloadSchemaVersion,
		},
		Version:      meta.Version,
		UpdatedAt:    meta.UpdatedAt.Time,
		LastSyncedAt: meta.LastSyncedAt.Time,
	}, nil
}

func (s *blobFileStore) LoadMetadata(_ context.Context) (models.VaultMetadata, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, vaultMetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return models.VaultMetadata{}, ErrVaultNotFound
		}
		return models.VaultMetadata{}, fmt.Errorf("read vault metadata: %w", err)
	}

	var meta models.VaultMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return models.VaultMetadata{}, fmt.Errorf("decode vault metadata: %w", err)
	}
	return meta, nil
}

func (s *blobFileStore) Store(ctx context.Context, blob models.VaultBlob) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	if err := atomicWrite(filepath.Join(s.dir, vaultBodyFile), blob.Content.Ciphertext); err != nil {
		return fmt.Errorf("write vault body: %w", err)
	}

	return s.StoreMetadata(ctx, models.VaultMetadata{
		Version:      blob.Version,
		IV:           blob.Content.Nonce,
		UpdatedAt:    models.MillisFromTime(blob.UpdatedAt),
		LastSyncedAt: models.MillisFromTime(blob.LastSyncedAt),
	})
}

func (s *blobFileStore) StoreMetadata(_ context.Context, meta models.VaultMetadata) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vault metadata: %w", err)
	}
	if err := atomicWrite(filepath.Join(s.dir, vaultMetaFile), raw); err != nil {
		return fmt.Errorf("write vault metadata: %w", err)
	}
	return nil
}

// atomicWrite replaces the file at path with data: write to a temp file in
// the same directory, fsync, then rename over the target.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
