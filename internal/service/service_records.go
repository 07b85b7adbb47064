package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avelesk/notevault/internal/crypto"
	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/internal/secret"
	"github.com/avelesk/notevault/internal/store"
	"github.com/avelesk/notevault/internal/utils"
	"github.com/avelesk/notevault/models"
)

type recordService struct {
	keys    crypto.KeyService
	session *secret.Vault
	records store.RecordRepository
	journal store.JournalRepository
}

// NewRecordService constructs the offline-first [RecordService]. Mutations
// become durable locally (ciphertext row plus journal entry) before the
// call returns; the network is involved only later, when the journal
// drains.
func NewRecordService(keys crypto.KeyService, session *secret.Vault, records store.RecordRepository, journal store.JournalRepository) RecordService {
	return &recordService{keys: keys, session: session, records: records, journal: journal}
}

func (s *recordService) Create(ctx context.Context, plaintext []byte) (models.EncryptedRecord, error) {
	if len(plaintext) == 0 {
		return models.EncryptedRecord{}, ErrEmptyPlaintext
	}

	payload, err := s.seal(plaintext)
	if err != nil {
		return models.EncryptedRecord{}, err
	}

	rec := models.EncryptedRecord{
		ID:        utils.NewID(),
		Primary:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err = s.records.Save(ctx, rec); err != nil {
		return models.EncryptedRecord{}, fmt.Errorf("persist record: %w", err)
	}

	if err = s.enqueue(ctx, models.OpCreate, rec.ID, &payload); err != nil {
		return models.EncryptedRecord{}, err
	}

	logger.FromContext(ctx).Debug().Str("func", "Create").Str("record_id", rec.ID).Msg("record created locally")
	return rec, nil
}

func (s *recordService) Update(ctx context.Context, id string, plaintext []byte) error {
	if len(plaintext) == 0 {
		return ErrEmptyPlaintext
	}

	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load record for update: %w", err)
	}

	payload, err := s.seal(plaintext)
	if err != nil {
		return err
	}

	rec.Primary = payload
	rec.SyncedAt = time.Time{}
	if err = s.records.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist updated record: %w", err)
	}

	return s.enqueue(ctx, models.OpUpdate, id, &payload)
}

func (s *recordService) Delete(ctx context.Context, id string) error {
	// A queued delete supersedes every earlier queued effect for the same
	// target. If one of the dropped entries was the record's unsynced
	// create, the server never heard of the id and the delete itself is
	// moot.
	dropped, hadCreate, err := s.journal.CompactForDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("compact journal for delete: %w", err)
	}

	log := logger.FromContext(ctx)
	if dropped > 0 {
		log.Debug().Str("func", "Delete").Str("record_id", id).Int64("dropped", dropped).Msg("compacted queued operations")
	}

	// The journal entry lands before the local row goes: a lingering row
	// with a queued delete heals on the next drain, while a removed row
	// with no queued delete would resurrect on resync.
	if !hadCreate {
		if err = s.enqueue(ctx, models.OpDelete, id, nil); err != nil {
			return err
		}
	}

	if err = s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete local record: %w", err)
	}
	return nil
}

func (s *recordService) Read(ctx context.Context, id string) (RecordView, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return RecordView{}, fmt.Errorf("load record: %w", err)
	}
	return s.decryptView(rec)
}

func (s *recordService) ReadAll(ctx context.Context) ([]RecordView, error) {
	recs, err := s.records.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	views := make([]RecordView, 0, len(recs))
	for _, rec := range recs {
		view, err := s.decryptView(rec)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *recordService) seal(plaintext []byte) (models.EncryptedPayload, error) {
	key, err := s.session.Key()
	if err != nil {
		return models.EncryptedPayload{}, err
	}

	payload, err := s.keys.Encrypt(plaintext, key)
	if err != nil {
		return models.EncryptedPayload{}, fmt.Errorf("encrypt record content: %w", err)
	}
	return payload, nil
}

func (s *recordService) decryptView(rec models.EncryptedRecord) (RecordView, error) {
	key, err := s.session.Key()
	if err != nil {
		return RecordView{}, err
	}

	plaintext, err := s.keys.Decrypt(rec.Primary, key)
	if err != nil {
		return RecordView{}, fmt.Errorf("decrypt record %s: %w", rec.ID, err)
	}

	return RecordView{
		ID:        rec.ID,
		Plaintext: plaintext,
		CreatedAt: rec.CreatedAt,
		Synced:    rec.Synced(),
	}, nil
}

func (s *recordService) enqueue(ctx context.Context, kind models.OperationKind, targetID string, payload *models.EncryptedPayload) error {
	op := models.PendingOperation{
		OpID:      utils.NewID(),
		Kind:      kind,
		TargetID:  targetID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.journal.Append(ctx, op); err != nil {
		return fmt.Errorf("queue %s for %s: %w", kind, targetID, err)
	}
	return nil
}
