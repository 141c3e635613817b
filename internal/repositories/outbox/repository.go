// Package outbox declares the durable store for pending ledger writes.
package outbox

import (
	"context"
	"time"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

// Repository persists ledger writes across their lifecycle.
type Repository interface {
	// Create stores a new record. The record must carry its ID and status.
	Create(ctx context.Context, rec *models.OutboxRecord) error

	// Get returns the record by ID or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.OutboxRecord, error)

	// MarkDispatched stores the transaction hash and counts an attempt.
	MarkDispatched(ctx context.Context, id string, txHash string, at time.Time) error

	// MarkFailed records a dispatch error and counts an attempt.
	MarkFailed(ctx context.Context, id string, reason string) error

	// SetStatus moves a record to status without counting an attempt.
	SetStatus(ctx context.Context, id string, status models.OutboxStatus) error

	// ListByStatus returns up to limit records in status, oldest first.
	ListByStatus(ctx context.Context, status models.OutboxStatus, limit int) ([]models.OutboxRecord, error)

	// Claim moves up to limit sendable records to dispatching and returns
	// them, oldest first. A record is sendable when it has fewer than
	// maxAttempts attempts and is pending, failed, or dispatching with its
	// last update before staleBefore. Concurrent callers never receive the
	// same record.
	Claim(ctx context.Context, maxAttempts int, staleBefore time.Time, limit int) ([]models.OutboxRecord, error)

	// Abandon moves records that would be sendable but have used
	// maxAttempts attempts to abandoned and reports how many it moved.
	Abandon(ctx context.Context, maxAttempts int, staleBefore time.Time) (int64, error)
}
