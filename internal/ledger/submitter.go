package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	commonerr "github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

// Dispatcher sends contract calls without waiting for them to be mined.
type Dispatcher interface {
	SubmitMeme(ctx context.Context, cid, creator string) (string, error)
	DeclareWinner(ctx context.Context, cid string) (string, error)
}

// DispatchResult identifies a dispatched write. Finality is confirmed later
// by the Reconciler.
type DispatchResult struct {
	RecordID string
	TxHash   string
}

// Submitter records every ledger write in the outbox before sending it.
type Submitter struct {
	dispatcher  Dispatcher
	store       Store
	callTimeout time.Duration
	logger      logging.Logger

	newID func() string
	now   func() time.Time
}

func NewSubmitter(d Dispatcher, store Store, callTimeout time.Duration, logger logging.Logger) *Submitter {
	return &Submitter{
		dispatcher:  d,
		store:       store,
		callTimeout: callTimeout,
		logger:      logger.With("module", "ledger"),
		newID:       func() string { return uuid.NewString() },
		now:         time.Now,
	}
}

// SubmitEntry registers cid for creator. doc, when given, is cached next to
// the outbox record. A dispatch failure leaves the record failed for the
// reconciler to retry and returns ErrLedgerSubmit.
func (s *Submitter) SubmitEntry(ctx context.Context, cid, creator string, doc *models.MetadataDocument) (DispatchResult, error) {
	if cid == "" {
		return DispatchResult{}, fmt.Errorf("%w: %w: empty cid", commonerr.ErrLedgerSubmit, commonerr.ErrInvalidEntry)
	}
	if !common.IsHexAddress(creator) {
		return DispatchResult{}, fmt.Errorf("%w: %w: creator %q", commonerr.ErrLedgerSubmit, commonerr.ErrInvalidEntry, creator)
	}
	return s.write(ctx, models.KindSubmitEntry, cid, creator, doc)
}

// DeclareWinner records cid as the contest winner.
func (s *Submitter) DeclareWinner(ctx context.Context, cid string) (DispatchResult, error) {
	if cid == "" {
		return DispatchResult{}, fmt.Errorf("%w: %w: empty cid", commonerr.ErrLedgerSubmit, commonerr.ErrInvalidEntry)
	}
	return s.write(ctx, models.KindDeclareWinner, cid, "", nil)
}

func (s *Submitter) write(ctx context.Context, kind models.OutboxKind, cid, creator string, doc *models.MetadataDocument) (DispatchResult, error) {
	rec := &models.OutboxRecord{
		ID:        s.newID(),
		Kind:      kind,
		CID:       cid,
		Creator:   creator,
		Status:    models.StatusDispatching,
		CreatedAt: s.now(),
	}
	if err := s.store.Enqueue(ctx, rec, doc); err != nil {
		return DispatchResult{}, fmt.Errorf("%w: outbox: %w", commonerr.ErrLedgerSubmit, err)
	}

	txHash, err := s.dispatch(ctx, rec)
	if err != nil {
		if markErr := s.store.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			s.logger.Error(ctx, "outbox update failed", "id", rec.ID, "error", markErr)
		}
		return DispatchResult{RecordID: rec.ID}, fmt.Errorf("%w: %w", commonerr.ErrLedgerSubmit, err)
	}

	if err := s.store.MarkDispatched(ctx, rec.ID, txHash, s.now()); err != nil {
		// the transaction is out; the reconciler takes the record over once
		// its claim goes stale, and a duplicate submission is preferable to a
		// lost one
		s.logger.Error(ctx, "outbox update failed after dispatch", "id", rec.ID, "tx", txHash, "error", err)
	}

	s.logger.Info(ctx, "ledger write dispatched", "kind", string(kind), "cid", cid, "tx", txHash)
	return DispatchResult{RecordID: rec.ID, TxHash: txHash}, nil
}

func (s *Submitter) dispatch(ctx context.Context, rec *models.OutboxRecord) (string, error) {
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}
	switch rec.Kind {
	case models.KindSubmitEntry:
		return s.dispatcher.SubmitMeme(ctx, rec.CID, rec.Creator)
	case models.KindDeclareWinner:
		return s.dispatcher.DeclareWinner(ctx, rec.CID)
	default:
		return "", fmt.Errorf("unknown outbox kind %q", rec.Kind)
	}
}
