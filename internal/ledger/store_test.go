package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

func newSQLStoreWithMock(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, repomanager.NewPostgresRepositoryManager()), mock
}

func TestSQLStore_Enqueue_WritesRecordAndCacheInOneTx(t *testing.T) {
	s, mock := newSQLStoreWithMock(t)
	now := time.Now()
	rec := &models.OutboxRecord{ID: "r1", Kind: models.KindSubmitEntry, CID: "bafk1", Creator: creator, Status: models.StatusPending, CreatedAt: now}
	doc := &models.MetadataDocument{Meme: "m", DiscordMessageURL: "d", GifURL: "g"}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+ledger_outbox`).
		WithArgs("r1", "submit_entry", "bafk1", creator, "pending", 0, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+contest_entries`).
		WithArgs("bafk1", creator, "m", "d", "", "g").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Enqueue(context.Background(), rec, doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Enqueue_CacheFailureRollsBack(t *testing.T) {
	s, mock := newSQLStoreWithMock(t)
	rec := &models.OutboxRecord{ID: "r1", Kind: models.KindSubmitEntry, CID: "bafk1", Creator: creator, Status: models.StatusPending}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+ledger_outbox`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+contest_entries`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.Enqueue(context.Background(), rec, &models.MetadataDocument{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Enqueue_WithoutDocument(t *testing.T) {
	s, mock := newSQLStoreWithMock(t)
	rec := &models.OutboxRecord{ID: "r2", Kind: models.KindDeclareWinner, CID: "bafk1", Status: models.StatusPending}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+ledger_outbox`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Enqueue(context.Background(), rec, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}
