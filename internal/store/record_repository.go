package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/models"
)

type recordRepository struct {
	*DB
	logger *logger.Logger
}

// NewRecordRepository constructs the SQLite-backed [RecordRepository].
func NewRecordRepository(db *DB, log *logger.Logger) RecordRepository {
	return &recordRepository{DB: db, logger: log}
}

func (r *recordRepository) Save(ctx context.Context, records ...models.EncryptedRecord) error {
	log := logger.FromContext(ctx)

	for _, rec := range records {
		payload, attachments, err := encodeRecordColumns(rec)
		if err != nil {
			return fmt.Errorf("encode record (id=%s): %w", rec.ID, err)
		}

		_, err = r.DB.ExecContext(ctx, saveRecord,
			rec.ID,
			payload,
			attachments,
			rec.CreatedAt.UnixMilli(),
			syncedAtMillis(rec.SyncedAt),
		)
		if err != nil {
			log.Err(err).
				Str("func", "recordRepository.Save").
				Str("record_id", rec.ID).
				Msg("failed to execute upsert for record")
			return fmt.Errorf("failed to save record (id=%s): %w", rec.ID, err)
		}
	}

	return nil
}

func (r *recordRepository) Get(ctx context.Context, id string) (models.EncryptedRecord, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, getRecord, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EncryptedRecord{}, fmt.Errorf("%w (id=%s)", ErrRecordNotFound, id)
		}
		log.Err(err).
			Str("func", "recordRepository.Get").
			Str("record_id", id).
			Msg("failed to scan record row")
		return models.EncryptedRecord{}, fmt.Errorf("failed to scan record row: %w", err)
	}

	return rec, nil
}

func (r *recordRepository) List(ctx context.Context) ([]models.EncryptedRecord, error) {
	return r.queryRecords(ctx, "recordRepository.List", listRecords)
}

func (r *recordRepository) ListByIDs(ctx context.Context, ids []string) ([]models.EncryptedRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	// squirrel expands the id slice into the IN (...) placeholder list.
	query, args, err := sq.Select("id", "payload", "attachments", "created_at", "synced_at").
		From("records").
		Where(sq.Eq{"id": ids}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build records query: %w", err)
	}

	return r.queryRecords(ctx, "recordRepository.ListByIDs", query, args...)
}

func (r *recordRepository) queryRecords(ctx context.Context, caller, query string, args ...any) ([]models.EncryptedRecord, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", caller).
			Msg("failed to execute records query")
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.EncryptedRecord
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", caller).
				Msg("failed to scan record row")
			return nil, fmt.Errorf("failed to scan record row: %w", scanErr)
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", caller).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating record rows: %w", rowsErr)
	}

	return records, nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	if _, err := r.DB.ExecContext(ctx, deleteRecord, id); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Delete").
			Str("record_id", id).
			Msg("failed to execute delete for record")
		return fmt.Errorf("failed to delete record (id=%s): %w", id, err)
	}
	return nil
}

func (r *recordRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	log := logger.FromContext(ctx)

	result, err := r.DB.ExecContext(ctx, markRecordSynced, at.UnixMilli(), id)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.MarkSynced").
			Str("record_id", id).
			Msg("failed to execute synced_at update")
		return fmt.Errorf("failed to mark record synced (id=%s): %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected (id=%s): %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w (id=%s)", ErrRecordNotFound, id)
	}
	return nil
}

func (r *recordRepository) ReplaceAll(ctx context.Context, records []models.EncryptedRecord) error {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.ReplaceAll").
			Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin replace transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err = tx.ExecContext(ctx, deleteAllRecords); err != nil {
		return fmt.Errorf("failed to clear records in replace: %w", err)
	}

	for _, rec := range records {
		payload, attachments, encErr := encodeRecordColumns(rec)
		if encErr != nil {
			return fmt.Errorf("encode record (id=%s): %w", rec.ID, encErr)
		}
		if _, err = tx.ExecContext(ctx, saveRecord,
			rec.ID,
			payload,
			attachments,
			rec.CreatedAt.UnixMilli(),
			syncedAtMillis(rec.SyncedAt),
		); err != nil {
			return fmt.Errorf("failed to insert record in replace (id=%s): %w", rec.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		log.Err(err).
			Str("func", "recordRepository.ReplaceAll").
			Msg("failed to commit transaction")
		return fmt.Errorf("failed to commit replace transaction: %w", err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.EncryptedRecord, error) {
	var (
		rec         models.EncryptedRecord
		payload     string
		attachments sql.NullString
		createdAt   int64
		syncedAt    int64
	)

	if err := row.Scan(&rec.ID, &payload, &attachments, &createdAt, &syncedAt); err != nil {
		return models.EncryptedRecord{}, err
	}

	if err := json.Unmarshal([]byte(payload), &rec.Primary); err != nil {
		return models.EncryptedRecord{}, fmt.Errorf("decode record payload: %w", err)
	}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &rec.Attachments); err != nil {
			return models.EncryptedRecord{}, fmt.Errorf("decode record attachments: %w", err)
		}
	}

	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	if syncedAt > 0 {
		rec.SyncedAt = time.UnixMilli(syncedAt).UTC()
	}
	return rec, nil
}

func encodeRecordColumns(rec models.EncryptedRecord) (payload string, attachments any, err error) {
	p, err := json.Marshal(rec.Primary)
	if err != nil {
		return "", nil, fmt.Errorf("encode payload: %w", err)
	}

	if len(rec.Attachments) == 0 {
		return string(p), nil, nil
	}

	a, err := json.Marshal(rec.Attachments)
	if err != nil {
		return "", nil, fmt.Errorf("encode attachments: %w", err)
	}
	return string(p), string(a), nil
}

func syncedAtMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
