package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

// ReceiptSource reports the on-chain state of a transaction.
type ReceiptSource interface {
	Receipt(ctx context.Context, txHash string) (Receipt, error)
}

type ReconcilerOptions struct {
	// MaxAttempts bounds dispatch attempts per record. Zero means 5.
	MaxAttempts int
	// FinalityTimeout is how long a dispatched record may stay unmined
	// before it is sent again. Zero means 10 minutes.
	FinalityTimeout time.Duration
	// ClaimTimeout is how long a record may stay claimed for dispatch
	// before another sender takes it over. It must exceed the dispatch call
	// timeout. Zero means 2 minutes.
	ClaimTimeout time.Duration
	// BatchSize bounds the records read per step per pass. Zero means 100.
	BatchSize int
}

// Reconciler drives outbox records to a terminal state.
type Reconciler struct {
	store      Store
	dispatcher Dispatcher
	receipts   ReceiptSource
	opts       ReconcilerOptions
	logger     logging.Logger
	now        func() time.Time
}

// PassStats counts what one reconcile pass did.
type PassStats struct {
	Redispatched int
	Finalized    int
	Reverted     int
	Requeued     int
	Failed       int
	Abandoned    int
}

func NewReconciler(store Store, d Dispatcher, receipts ReceiptSource, opts ReconcilerOptions, logger logging.Logger) *Reconciler {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.FinalityTimeout <= 0 {
		opts.FinalityTimeout = 10 * time.Minute
	}
	if opts.ClaimTimeout <= 0 {
		opts.ClaimTimeout = 2 * time.Minute
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Reconciler{
		store:      store,
		dispatcher: d,
		receipts:   receipts,
		opts:       opts,
		logger:     logger.With("module", "reconciler"),
		now:        time.Now,
	}
}

// Run calls Pass every interval until ctx is done. Pass errors are logged.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := r.Pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error(ctx, "reconcile pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Pass checks dispatched records for finality, abandons records that ran out
// of attempts, then claims and resends the rest.
func (r *Reconciler) Pass(ctx context.Context) (PassStats, error) {
	var st PassStats

	dispatched, err := r.store.ListByStatus(ctx, models.StatusDispatched, r.opts.BatchSize)
	if err != nil {
		return st, err
	}
	for _, rec := range dispatched {
		if err := r.checkFinality(ctx, rec, &st); err != nil {
			r.logger.Warn(ctx, "receipt check failed", "id", rec.ID, "tx", rec.TxHash, "error", err)
		}
	}

	staleBefore := r.now().Add(-r.opts.ClaimTimeout)
	abandoned, err := r.store.Abandon(ctx, r.opts.MaxAttempts, staleBefore)
	if err != nil {
		return st, err
	}
	if abandoned > 0 {
		st.Abandoned = int(abandoned)
		r.logger.Error(ctx, "ledger writes abandoned", "count", abandoned, "max_attempts", r.opts.MaxAttempts)
	}

	claimed, err := r.store.Claim(ctx, r.opts.MaxAttempts, staleBefore, r.opts.BatchSize)
	if err != nil {
		return st, err
	}
	for _, rec := range claimed {
		r.redispatch(ctx, rec, &st)
	}

	if st != (PassStats{}) {
		r.logger.Info(ctx, "reconcile pass",
			"redispatched", st.Redispatched, "finalized", st.Finalized,
			"reverted", st.Reverted, "requeued", st.Requeued, "failed", st.Failed,
			"abandoned", st.Abandoned)
	}
	return st, nil
}

func (r *Reconciler) checkFinality(ctx context.Context, rec models.OutboxRecord, st *PassStats) error {
	receipt, err := r.receipts.Receipt(ctx, rec.TxHash)
	if err != nil {
		return err
	}

	switch {
	case receipt.Found && receipt.Success:
		st.Finalized++
		return r.store.SetStatus(ctx, rec.ID, models.StatusFinalized)
	case receipt.Found:
		st.Reverted++
		r.logger.Error(ctx, "ledger write reverted", "id", rec.ID, "kind", string(rec.Kind), "cid", rec.CID, "tx", rec.TxHash)
		return r.store.SetStatus(ctx, rec.ID, models.StatusReverted)
	case rec.DispatchedAt != nil && r.now().Sub(*rec.DispatchedAt) > r.opts.FinalityTimeout:
		st.Requeued++
		return r.store.SetStatus(ctx, rec.ID, models.StatusPending)
	default:
		return nil
	}
}

func (r *Reconciler) redispatch(ctx context.Context, rec models.OutboxRecord, st *PassStats) {
	var (
		txHash string
		err    error
	)
	// the send has to end while the claim is still held
	callCtx, cancel := context.WithTimeout(ctx, r.opts.ClaimTimeout/2)
	defer cancel()
	switch rec.Kind {
	case models.KindSubmitEntry:
		txHash, err = r.dispatcher.SubmitMeme(callCtx, rec.CID, rec.Creator)
	case models.KindDeclareWinner:
		txHash, err = r.dispatcher.DeclareWinner(callCtx, rec.CID)
	default:
		err = fmt.Errorf("unknown outbox kind %q", rec.Kind)
	}

	if err != nil {
		st.Failed++
		if markErr := r.store.MarkFailed(ctx, rec.ID, err.Error()); markErr != nil {
			r.logger.Error(ctx, "outbox update failed", "id", rec.ID, "error", markErr)
		}
		return
	}
	st.Redispatched++
	if err := r.store.MarkDispatched(ctx, rec.ID, txHash, r.now()); err != nil {
		r.logger.Error(ctx, "outbox update failed after dispatch", "id", rec.ID, "tx", txHash, "error", err)
	}
}
