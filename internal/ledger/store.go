package ledger

import (
	"context"
	"database/sql"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/dbx"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/repositories/outbox"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/repositories/repomanager"
)

// Store persists outbox records. Enqueue also caches the entry's metadata
// when doc is non-nil, atomically with the record.
type Store interface {
	outbox.Repository
	Enqueue(ctx context.Context, rec *models.OutboxRecord, doc *models.MetadataDocument) error
}

// SQLStore is the PostgreSQL Store.
type SQLStore struct {
	outbox.Repository
	db *sql.DB
	rm repomanager.RepositoryManager
}

func NewSQLStore(db *sql.DB, rm repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{Repository: rm.Outbox(db), db: db, rm: rm}
}

func (s *SQLStore) Enqueue(ctx context.Context, rec *models.OutboxRecord, doc *models.MetadataDocument) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.rm.Outbox(tx).Create(ctx, rec); err != nil {
			return err
		}
		if doc == nil {
			return nil
		}
		return s.rm.Entries(tx).Upsert(ctx, rec.CID, rec.Creator, *doc)
	})
}
