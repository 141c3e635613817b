package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/dbx"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rec *models.OutboxRecord) error {
	query := `
		INSERT INTO ledger_outbox (id, kind, cid, creator, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.ID, string(rec.Kind), rec.CID, rec.Creator, string(rec.Status), rec.Attempts, rec.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectColumns = `id, kind, cid, creator, status, tx_hash, attempts, last_error, created_at, updated_at, dispatched_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.OutboxRecord, error) {
	var (
		rec          models.OutboxRecord
		kind, status string
		dispatchedAt sql.NullTime
	)
	if err := s.Scan(&rec.ID, &kind, &rec.CID, &rec.Creator, &status, &rec.TxHash, &rec.Attempts, &rec.LastError, &rec.CreatedAt, &rec.UpdatedAt, &dispatchedAt); err != nil {
		return nil, err
	}
	rec.Kind = models.OutboxKind(kind)
	rec.Status = models.OutboxStatus(status)
	if dispatchedAt.Valid {
		t := dispatchedAt.Time
		rec.DispatchedAt = &t
	}
	return &rec, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.OutboxRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM ledger_outbox WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) MarkDispatched(ctx context.Context, id string, txHash string, at time.Time) error {
	query := `
		UPDATE ledger_outbox
		SET status = 'dispatched', tx_hash = $2, attempts = attempts + 1, last_error = '', dispatched_at = $3, updated_at = $3
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, txHash, at)
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE ledger_outbox
		SET status = 'failed', attempts = attempts + 1, last_error = $2, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, reason)
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status models.OutboxStatus) error {
	query := `
		UPDATE ledger_outbox
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, string(status))
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 0:
		return common.ErrNotFound
	case 1:
		return nil
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status models.OutboxStatus, limit int) ([]models.OutboxRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM ledger_outbox WHERE status = $1 ORDER BY created_at LIMIT $2`
	return r.queryRecords(ctx, query, string(status), limit)
}

func (r *PostgresRepository) Claim(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]models.OutboxRecord, error) {
	query := `
		UPDATE ledger_outbox
		SET status = 'dispatching', updated_at = now()
		WHERE id IN (
			SELECT id FROM ledger_outbox
			WHERE attempts < $1
			  AND (status IN ('pending', 'failed') OR (status = 'dispatching' AND updated_at < $2))
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + selectColumns
	out, err := r.queryRecords(ctx, query, maxAttempts, staleBefore, limit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *PostgresRepository) Abandon(ctx context.Context, maxAttempts int, staleBefore time.Time) (int64, error) {
	query := `
		UPDATE ledger_outbox
		SET status = 'abandoned', updated_at = now()
		WHERE attempts >= $1
		  AND (status IN ('pending', 'failed') OR (status = 'dispatching' AND updated_at < $2))
	`
	res, err := r.db.ExecContext(ctx, query, maxAttempts, staleBefore)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]models.OutboxRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.OutboxRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
