package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// a single connection keeps the in-memory database alive across calls
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE outbox (id TEXT PRIMARY KEY, cid TEXT NOT NULL);
		CREATE TABLE entries (cid TEXT PRIMARY KEY, doc TEXT NOT NULL);`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func enqueue(ctx context.Context, tx DBTX, id, cid string) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO outbox(id, cid) VALUES (?, ?)`, id, cid); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO entries(cid, doc) VALUES (?, '{}')`, cid)
	return err
}

func TestWithTx_CommitsBothTables(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return enqueue(ctx, tx, "r1", "bafk1")
	})
	require.NoError(t, err)
	require.Equal(t, 1, count(t, db, "outbox"))
	require.Equal(t, 1, count(t, db, "entries"))
}

func TestWithTx_SecondStatementFailureRollsBackFirst(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`INSERT INTO entries(cid, doc) VALUES ('bafk1', '{}')`)
	require.NoError(t, err)

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return enqueue(ctx, tx, "r1", "bafk1")
	})
	require.Error(t, err)
	require.Equal(t, 0, count(t, db, "outbox"), "outbox row must not survive a failed cache write")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)
	sentinel := errors.New("dispatch refused")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, enqueue(ctx, tx, "r1", "bafk1"))
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 0, count(t, db, "outbox"))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	require.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, enqueue(ctx, tx, "r1", "bafk1"))
			panic("kaput")
		})
	})
	require.Equal(t, 0, count(t, db, "outbox"))
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "begin tx")
	require.False(t, called)
}
