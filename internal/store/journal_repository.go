package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/models"
)

type journalRepository struct {
	*DB
	logger *logger.Logger
}

// NewJournalRepository constructs the SQLite-backed [JournalRepository].
func NewJournalRepository(db *DB, log *logger.Logger) JournalRepository {
	return &journalRepository{DB: db, logger: log}
}

func (j *journalRepository) Append(ctx context.Context, op models.PendingOperation) error {
	log := logger.FromContext(ctx)

	if err := validateOperation(op); err != nil {
		return err
	}

	var payload any
	if op.Payload != nil {
		raw, err := json.Marshal(op.Payload)
		if err != nil {
			return fmt.Errorf("encode operation payload (op_id=%s): %w", op.OpID, err)
		}
		payload = string(raw)
	}

	_, err := j.DB.ExecContext(ctx, appendOperation,
		op.OpID,
		string(op.Kind),
		op.TargetID,
		payload,
		op.CreatedAt.UnixMilli(),
	)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.Append").
			Str("op_id", op.OpID).
			Str("target_id", op.TargetID).
			Msg("failed to append pending operation")
		return fmt.Errorf("failed to append operation (op_id=%s): %w", op.OpID, err)
	}

	return nil
}

func (j *journalRepository) ListPending(ctx context.Context) ([]models.PendingOperation, error) {
	log := logger.FromContext(ctx)

	rows, err := j.DB.QueryContext(ctx, listPendingOperations)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.ListPending").
			Msg("failed to query pending operations")
		return nil, fmt.Errorf("failed to query pending operations: %w", err)
	}
	defer rows.Close()

	var ops []models.PendingOperation
	for rows.Next() {
		var (
			op        models.PendingOperation
			kind      string
			payload   sql.NullString
			createdAt int64
		)
		if scanErr := rows.Scan(&op.OpID, &kind, &op.TargetID, &payload, &createdAt); scanErr != nil {
			log.Err(scanErr).
				Str("func", "journalRepository.ListPending").
				Msg("failed to scan pending operation row")
			return nil, fmt.Errorf("failed to scan pending operation row: %w", scanErr)
		}

		op.Kind = models.OperationKind(kind)
		op.CreatedAt = time.UnixMilli(createdAt).UTC()
		if payload.Valid && payload.String != "" {
			var p models.EncryptedPayload
			if decErr := json.Unmarshal([]byte(payload.String), &p); decErr != nil {
				return nil, fmt.Errorf("decode operation payload (op_id=%s): %w", op.OpID, decErr)
			}
			op.Payload = &p
		}

		ops = append(ops, op)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "journalRepository.ListPending").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating pending operation rows: %w", rowsErr)
	}

	return ops, nil
}

func (j *journalRepository) Remove(ctx context.Context, opID string) error {
	log := logger.FromContext(ctx)

	result, err := j.DB.ExecContext(ctx, removeOperation, opID)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.Remove").
			Str("op_id", opID).
			Msg("failed to remove pending operation")
		return fmt.Errorf("failed to remove operation (op_id=%s): %w", opID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected (op_id=%s): %w", opID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w (op_id=%s)", ErrOperationNotFound, opID)
	}
	return nil
}

func (j *journalRepository) CompactForDelete(ctx context.Context, targetID string) (int64, bool, error) {
	log := logger.FromContext(ctx)

	// A queued delete supersedes every earlier queued effect for the same
	// target, so creates and updates for it can be dropped. Whether an
	// unsynced create was among them decides if the delete itself still
	// needs to reach the server.
	hadCreate, err := j.hasQueuedCreate(ctx, targetID)
	if err != nil {
		return 0, false, err
	}

	query, args, err := sq.Delete("journal").
		Where(sq.Eq{
			"target_id": targetID,
			"kind":      []string{string(models.OpCreate), string(models.OpUpdate)},
		}).
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build compaction query: %w", err)
	}

	result, err := j.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "journalRepository.CompactForDelete").
			Str("target_id", targetID).
			Msg("failed to compact journal for delete")
		return 0, false, fmt.Errorf("failed to compact journal (target_id=%s): %w", targetID, err)
	}

	dropped, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to get rows affected (target_id=%s): %w", targetID, err)
	}
	return dropped, hadCreate, nil
}

func (j *journalRepository) hasQueuedCreate(ctx context.Context, targetID string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("journal").
		Where(sq.Eq{"target_id": targetID, "kind": string(models.OpCreate)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build queued-create query: %w", err)
	}

	var count int64
	if err := j.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count queued creates (target_id=%s): %w", targetID, err)
	}
	return count > 0, nil
}

func validateOperation(op models.PendingOperation) error {
	if !op.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidOperation, op.Kind)
	}
	if op.OpID == "" || op.TargetID == "" {
		return fmt.Errorf("%w: missing identifiers", ErrInvalidOperation)
	}
	switch op.Kind {
	case models.OpCreate, models.OpUpdate:
		if op.Payload == nil {
			return fmt.Errorf("%w: %s without payload", ErrInvalidOperation, op.Kind)
		}
	case models.OpDelete:
		if op.Payload != nil {
			return fmt.Errorf("%w: delete with payload", ErrInvalidOperation)
		}
	}
	return nil
}
