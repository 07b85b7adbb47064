package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/99designs/keyring"

	"github.com/avelesk/notevault/internal/adapter"
	"github.com/avelesk/notevault/internal/secret"
	"github.com/avelesk/notevault/internal/store"
	"github.com/avelesk/notevault/models"
)

// unlockedSession returns a session vault already holding key.
func unlockedSession(key []byte) *secret.Vault {
	gate := secret.AccessGateFunc(func(ctx context.Context, reason string) error { return nil })
	v := secret.New(gate, keyring.NewArrayKeyring(nil))
	v.SetKey(key)
	return v
}

// memRecords is an in-memory RecordRepository used by service tests.
type memRecords struct {
	mu   sync.Mutex
	rows map[string]models.EncryptedRecord

	failSave error
	failGet  error
}

func newMemRecords() *memRecords {
	return &memRecords{rows: make(map[string]models.EncryptedRecord)}
}

func (m *memRecords) Save(ctx context.Context, records ...models.EncryptedRecord) error {
	if m.failSave != nil {
		return m.failSave
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.rows[r.ID] = r
	}
	return nil
}

func (m *memRecords) Get(ctx context.Context, id string) (models.EncryptedRecord, error) {
	if m.failGet != nil {
		return models.EncryptedRecord{}, m.failGet
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return models.EncryptedRecord{}, store.ErrRecordNotFound
	}
	return r, nil
}

func (m *memRecords) List(ctx context.Context) ([]models.EncryptedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EncryptedRecord, 0, len(m.rows))
	for _, r := range m.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRecords) ListByIDs(ctx context.Context, ids []string) ([]models.EncryptedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.EncryptedRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := m.rows[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRecords) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memRecords) MarkSynced(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return store.ErrRecordNotFound
	}
	r.SyncedAt = at
	m.rows[id] = r
	return nil
}

func (m *memRecords) ReplaceAll(ctx context.Context, records []models.EncryptedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = make(map[string]models.EncryptedRecord, len(records))
	for _, r := range records {
		m.rows[r.ID] = r
	}
	return nil
}

// memJournal is an in-memory JournalRepository preserving append order.
type memJournal struct {
	mu  sync.Mutex
	ops []models.PendingOperation

	failAppend error
}

func newMemJournal() *memJournal { return &memJournal{} }

func (m *memJournal) Append(ctx context.Context, op models.PendingOperation) error {
	if m.failAppend != nil {
		return m.failAppend
	}
	if !op.Kind.Valid() {
		return store.ErrInvalidOperation
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	return nil
}

func (m *memJournal) ListPending(ctx context.Context) ([]models.PendingOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PendingOperation(nil), m.ops...), nil
}

func (m *memJournal) Remove(ctx context.Context, opID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, op := range m.ops {
		if op.OpID == opID {
			m.ops = append(m.ops[:i], m.ops[i+1:]...)
			return nil
		}
	}
	return store.ErrOperationNotFound
}

func (m *memJournal) CompactForDelete(ctx context.Context, targetID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []models.PendingOperation
	var dropped int64
	hadCreate := false
	for _, op := range m.ops {
		if op.TargetID == targetID && (op.Kind == models.OpCreate || op.Kind == models.OpUpdate) {
			dropped++
			if op.Kind == models.OpCreate {
				hadCreate = true
			}
			continue
		}
		kept = append(kept, op)
	}
	m.ops = kept
	return dropped, hadCreate, nil
}

// memBlobs is an in-memory VaultBlobStore tracking write kinds.
type memBlobs struct {
	mu         sync.Mutex
	blob       *models.VaultBlob
	meta       *models.VaultMetadata
	bodyWrites int
	metaWrites int
}

func newMemBlobs() *memBlobs { return &memBlobs{} }

func (m *memBlobs) Load(ctx context.Context) (models.VaultBlob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blob == nil {
		return models.VaultBlob{}, store.ErrVaultNotFound
	}
	return *m.blob, nil
}

func (m *memBlobs) LoadMetadata(ctx context.Context) (models.VaultMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meta == nil {
		return models.VaultMetadata{}, store.ErrVaultNotFound
	}
	return *m.meta, nil
}

func (m *memBlobs) Store(ctx context.Context, blob models.VaultBlob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := blob
	m.blob = &b
	m.meta = &models.VaultMetadata{
		Version:      blob.Version,
		IV:           blob.Content.Nonce,
		UpdatedAt:    models.MillisFromTime(blob.UpdatedAt),
		LastSyncedAt: models.MillisFromTime(blob.LastSyncedAt),
	}
	m.bodyWrites++
	return nil
}

func (m *memBlobs) StoreMetadata(ctx context.Context, meta models.VaultMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt := meta
	m.meta = &mt
	m.metaWrites++
	return nil
}

// stubServer is a scripted ServerAdapter. Every method succeeds unless its
// fail hook is set; calls records the method sequence for order assertions.
type stubServer struct {
	mu    sync.Mutex
	calls []string

	items map[string]models.RecordItem

	uploadErr func(item models.RecordItem) error
	updateErr func(item models.RecordItem) error
	deleteErr func(id string) error

	keyCheck models.EncryptedPayload

	vaultBody    models.EncryptedPayload
	vaultVersion int64
	putVaultErr  error
	metaErr      error
}

func newStubServer() *stubServer {
	return &stubServer{items: make(map[string]models.RecordItem)}
}

func (s *stubServer) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubServer) SetToken(string) {}
func (s *stubServer) Token() string   { return "" }

func (s *stubServer) ListRecords(ctx context.Context, force bool) ([]models.RecordItem, error) {
	s.record("list")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RecordItem, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	return out, nil
}

func (s *stubServer) UploadRecord(ctx context.Context, item models.RecordItem) error {
	s.record("upload:" + item.ID)
	if s.uploadErr != nil {
		if err := s.uploadErr(item); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

func (s *stubServer) UpdateRecord(ctx context.Context, item models.RecordItem) error {
	s.record("update:" + item.ID)
	if s.updateErr != nil {
		if err := s.updateErr(item); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

func (s *stubServer) DeleteRecord(ctx context.Context, id string) error {
	s.record("delete:" + id)
	if s.deleteErr != nil {
		if err := s.deleteErr(id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *stubServer) GetKeyCheck(ctx context.Context) (models.EncryptedPayload, error) {
	s.record("keycheck")
	return s.keyCheck, nil
}

func (s *stubServer) PutKeyCheck(ctx context.Context, check models.EncryptedPayload) error {
	s.record("putkeycheck")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyCheck = check
	return nil
}

func (s *stubServer) GetVault(ctx context.Context) (models.VaultBlob, error) {
	s.record("getvault")
	return models.VaultBlob{Content: s.vaultBody, Version: s.vaultVersion}, nil
}

func (s *stubServer) GetVaultMetadata(ctx context.Context, force bool) (models.VaultMetadata, error) {
	s.record("getmeta")
	if s.metaErr != nil {
		return models.VaultMetadata{}, s.metaErr
	}
	return models.VaultMetadata{Version: s.vaultVersion, IV: s.vaultBody.Nonce, UpdatedAt: models.NowMillis()}, nil
}

func (s *stubServer) PutVault(ctx context.Context, content models.EncryptedPayload, expectedVersion int64) (models.VaultUploadResponse, error) {
	s.record("putvault")
	if s.putVaultErr != nil {
		return models.VaultUploadResponse{}, s.putVaultErr
	}
	if expectedVersion != s.vaultVersion {
		return models.VaultUploadResponse{}, fmt.Errorf("%w: server at %d", adapter.ErrVersionConflict, s.vaultVersion)
	}
	s.mu.Lock()
	s.vaultBody = content
	s.vaultVersion++
	version := s.vaultVersion
	s.mu.Unlock()
	return models.VaultUploadResponse{Version: version, UpdatedAt: models.NowMillis()}, nil
}

func (s *stubServer) callSequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}
