package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avelesk/notevault/internal/adapter"
	"github.com/avelesk/notevault/internal/crypto"
	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/internal/secret"
	"github.com/avelesk/notevault/internal/store"
	"github.com/avelesk/notevault/models"
)

type vaultSyncEngine struct {
	keys    crypto.KeyService
	session *secret.Vault
	blobs   store.VaultBlobStore
	server  adapter.ServerAdapter

	// pushMu serializes push attempts. Two concurrent pushes would race on
	// the same base version and one would always lose; queueing them keeps
	// the loser's conflict honest.
	pushMu sync.Mutex
}

// NewVaultSyncEngine constructs the [VaultSyncEngine] for the account's
// single shared vault blob.
func NewVaultSyncEngine(keys crypto.KeyService, session *secret.Vault, blobs store.VaultBlobStore, server adapter.ServerAdapter) VaultSyncEngine {
	return &vaultSyncEngine{keys: keys, session: session, blobs: blobs, server: server}
}

func (e *vaultSyncEngine) LoadLocal(ctx context.Context) (models.VaultBlob, error) {
	return e.blobs.Load(ctx)
}

// PushLocalChange implements [VaultSyncEngine]. One attempt walks
// Uploading into exactly one of three ends: Committed (local base version
// and lastSyncedAt advance), Conflict (both plaintexts surfaced, local
// state untouched) or a returned error (nothing changed anywhere).
func (e *vaultSyncEngine) PushLocalChange(ctx context.Context, plaintext []byte) (PushResult, error) {
	e.pushMu.Lock()
	defer e.pushMu.Unlock()

	log := logger.FromContext(ctx)

	key, err := e.session.Key()
	if err != nil {
		return PushResult{}, err
	}

	base := int64(0)
	if meta, err := e.blobs.LoadMetadata(ctx); err == nil {
		base = meta.Version
	} else if !errors.Is(err, store.ErrVaultNotFound) {
		return PushResult{}, fmt.Errorf("load local vault metadata: %w", err)
	}

	content, err := e.keys.Encrypt(plaintext, key)
	if err != nil {
		return PushResult{}, fmt.Errorf("encrypt vault content: %w", err)
	}

	res, err := e.server.PutVault(ctx, content, base)
	if errors.Is(err, adapter.ErrVersionConflict) {
		return e.surfaceConflict(ctx, plaintext, key, base)
	}
	if err != nil {
		return PushResult{}, fmt.Errorf("upload vault: %w", err)
	}

	blob := models.VaultBlob{
		Content:      content,
		Version:      res.Version,
		UpdatedAt:    res.UpdatedAt.Time,
		LastSyncedAt: time.Now().UTC(),
	}
	if err = e.blobs.Store(ctx, blob); err != nil {
		// The server accepted the write; failing to record that locally is
		// fatal for this operation and must reach the user.
		return PushResult{}, fmt.Errorf("persist committed vault: %w", err)
	}

	log.Info().Str("func", "PushLocalChange").Int64("version", res.Version).Msg("vault committed")
	return PushResult{State: PushCommitted, Version: res.Version}, nil
}

// surfaceConflict downloads and decrypts the winning server copy so the
// caller holds both sides of the conflict. Local files are deliberately not
// touched: the unsynced local change must survive until a resolution is
// chosen.
func (e *vaultSyncEngine) surfaceConflict(ctx context.Context, localPlaintext, key []byte, base int64) (PushResult, error) {
	serverBlob, err := e.server.GetVault(ctx)
	if err != nil {
		return PushResult{}, fmt.Errorf("fetch conflicting vault: %w", err)
	}

	serverPlaintext, err := e.keys.Decrypt(serverBlob.Content, key)
	if err != nil {
		return PushResult{}, fmt.Errorf("decrypt conflicting vault: %w", err)
	}

	logger.FromContext(ctx).Warn().
		Str("func", "PushLocalChange").
		Int64("base_version", base).
		Int64("server_version", serverBlob.Version).
		Msg("vault version conflict")

	return PushResult{
		State:           PushConflict,
		LocalPlaintext:  localPlaintext,
		ServerPlaintext: serverPlaintext,
		ServerVersion:   serverBlob.Version,
	}, nil
}

// PullIfStale implements [VaultSyncEngine]. The staleness probe reads only
// the metadata document; the body download happens just when the server is
// actually ahead.
func (e *vaultSyncEngine) PullIfStale(ctx context.Context) (*models.VaultBlob, error) {
	localVersion := int64(0)
	localMeta, err := e.blobs.LoadMetadata(ctx)
	switch {
	case err == nil:
		localVersion = localMeta.Version
	case errors.Is(err, store.ErrVaultNotFound):
		// First pull on this device.
	default:
		return nil, fmt.Errorf("load local vault metadata: %w", err)
	}

	serverMeta, err := e.server.GetVaultMetadata(ctx, false)
	if errors.Is(err, adapter.ErrNotFound) {
		// Account has never uploaded a vault; nothing to pull.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("probe vault metadata: %w", err)
	}

	if serverMeta.Version <= localVersion {
		// Local copy is current. Record the successful exchange without
		// rewriting the body.
		if localVersion > 0 {
			localMeta.LastSyncedAt = models.NowMillis()
			if err = e.blobs.StoreMetadata(ctx, localMeta); err != nil {
				return nil, fmt.Errorf("record sync time: %w", err)
			}
		}
		return nil, nil
	}

	blob, err := e.server.GetVault(ctx)
	if err != nil {
		return nil, fmt.Errorf("download vault: %w", err)
	}
	blob.UpdatedAt = serverMeta.UpdatedAt.Time
	blob.LastSyncedAt = time.Now().UTC()

	if err = e.blobs.Store(ctx, blob); err != nil {
		return nil, fmt.Errorf("persist pulled vault: %w", err)
	}

	logger.FromContext(ctx).Info().Str("func", "PullIfStale").Int64("version", blob.Version).Msg("vault refreshed from server")
	return &blob, nil
}
