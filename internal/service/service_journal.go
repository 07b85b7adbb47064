package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/avelesk/notevault/internal/adapter"
	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/internal/store"
	"github.com/avelesk/notevault/models"
)

// replay backoff parameters for ReplayAll. Transient failures back off
// exponentially from 500ms, capped at five attempts per call; anything
// still failing stays queued for the next sync cycle.
const (
	replayBaseDelay   = 500 * time.Millisecond
	replayMaxAttempts = 5
)

type journalService struct {
	journal store.JournalRepository
	records store.RecordRepository
	server  adapter.ServerAdapter
}

// NewJournalService constructs the [JournalService] reconciling queued
// mutations against server.
func NewJournalService(journal store.JournalRepository, records store.RecordRepository, server adapter.ServerAdapter) JournalService {
	return &journalService{journal: journal, records: records, server: server}
}

// Drain implements [JournalService]. Operations replay strictly oldest
// first; the first failure stops the drain with everything from the failed
// operation onward still queued. No reordering, no skip-ahead: a later
// operation for the same target must never reach the server before an
// earlier one.
func (s *journalService) Drain(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	ops, err := s.journal.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending operations: %w", err)
	}

	applied := 0
	for _, op := range ops {
		if err = s.apply(ctx, op); err != nil {
			log.Warn().Str("func", "Drain").Str("op_id", op.OpID).Str("kind", string(op.Kind)).Err(err).Msg("drain stopped")
			return applied, fmt.Errorf("apply %s for %s: %w", op.Kind, op.TargetID, err)
		}

		if err = s.journal.Remove(ctx, op.OpID); err != nil {
			// The server applied the effect but the ack was not recorded.
			// Leaving the entry queued is safe: creates and updates are
			// idempotent upserts and deletes tolerate a missing target.
			return applied, fmt.Errorf("remove acknowledged operation %s: %w", op.OpID, err)
		}
		applied++
	}

	if applied > 0 {
		log.Info().Str("func", "Drain").Int("applied", applied).Msg("journal drained")
	}
	return applied, nil
}

func (s *journalService) apply(ctx context.Context, op models.PendingOperation) error {
	switch op.Kind {
	case models.OpCreate, models.OpUpdate:
		if op.Payload == nil {
			return fmt.Errorf("%w: %s without payload", store.ErrInvalidOperation, op.Kind)
		}

		item := models.RecordItem{
			ID:            op.TargetID,
			EncryptedText: *op.Payload,
			CreatedAt:     models.MillisFromTime(op.CreatedAt),
		}
		// Prefer the stored row: it carries the original creation time and
		// any attachments queued after the journal entry was written. Only
		// a missing row falls back to the bare journal payload; a storage
		// failure must not silently ship a record without its attachments.
		rec, err := s.records.Get(ctx, op.TargetID)
		switch {
		case err == nil:
			item = models.ItemFromRecord(rec)
			item.EncryptedText = *op.Payload
		case !errors.Is(err, store.ErrRecordNotFound):
			return fmt.Errorf("load record %s: %w", op.TargetID, err)
		}

		if op.Kind == models.OpCreate {
			err = s.server.UploadRecord(ctx, item)
		} else {
			err = s.server.UpdateRecord(ctx, item)
			// An update whose create never reached the server (e.g. the
			// create was acked by a previous install) degrades to upload.
			if errors.Is(err, adapter.ErrNotFound) {
				err = s.server.UploadRecord(ctx, item)
			}
		}
		if err != nil {
			return err
		}

		if err = s.records.MarkSynced(ctx, op.TargetID, time.Now().UTC()); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}
		return nil

	case models.OpDelete:
		return s.server.DeleteRecord(ctx, op.TargetID)

	default:
		return fmt.Errorf("%w: unknown kind %q", store.ErrInvalidOperation, op.Kind)
	}
}

// ReplayAll implements [JournalService]. Only transient network failures
// are retried; crypto, storage and terminal server failures surface
// immediately with the operation still queued.
func (s *journalService) ReplayAll(ctx context.Context) error {
	backoff := retry.WithMaxRetries(replayMaxAttempts, retry.NewExponential(replayBaseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := s.Drain(ctx)
		if err == nil {
			return nil
		}
		if adapter.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *journalService) Pending(ctx context.Context) (int, error) {
	ops, err := s.journal.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending operations: %w", err)
	}
	return len(ops), nil
}

// FullResync implements [JournalService]: downloads server truth and swaps
// the local record set for it in one transaction.
func (s *journalService) FullResync(ctx context.Context) error {
	pending, err := s.Pending(ctx)
	if err != nil {
		return err
	}
	if pending > 0 {
		return fmt.Errorf("%w: %d queued", ErrPendingMutations, pending)
	}

	items, err := s.server.ListRecords(ctx, true)
	if err != nil {
		return fmt.Errorf("download server records: %w", err)
	}

	now := time.Now().UTC()
	recs := make([]models.EncryptedRecord, 0, len(items))
	for _, item := range items {
		rec := item.ToRecord()
		rec.SyncedAt = now
		recs = append(recs, rec)
	}

	if err = s.records.ReplaceAll(ctx, recs); err != nil {
		return fmt.Errorf("replace local records: %w", err)
	}

	logger.FromContext(ctx).Info().Str("func", "FullResync").Int("records", len(recs)).Msg("local set replaced with server truth")
	return nil
}
