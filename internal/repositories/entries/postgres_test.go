package entries

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

var doc = models.MetadataDocument{
	Meme:              "gm",
	DiscordMessageURL: "https://discord.com/channels/1/2/3",
	TwitterURL:        "https://x.com/u/status/4",
	GifURL:            "https://media.tenor.com/a.gif",
}

func TestUpsert(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+contest_entries\b.*ON\s+CONFLICT\s+\(cid\)\s+DO\s+UPDATE`).
		WithArgs("bafy", "0xabc", doc.Meme, doc.DiscordMessageURL, doc.TwitterURL, doc.GifURL).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), "bafy", "0xabc", doc))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`INSERT\s+INTO\s+contest_entries`).WillReturnError(errors.New("db down"))

	assert.ErrorContains(t, repo.Upsert(context.Background(), "c", "a", doc), "db error: db down")
}

func TestFind(t *testing.T) {
	cols := []string{"cid", "creator", "meme", "discord_message_url", "twitter_url", "gif_url", "engagement_score"}

	t.Run("with score", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`(?s)SELECT\s+cid,.*FROM\s+contest_entries\s+WHERE\s+cid\s*=\s*\$1`).
			WithArgs("bafy").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("bafy", "0xabc", doc.Meme, doc.DiscordMessageURL, doc.TwitterURL, doc.GifURL, 12))

		got, err := repo.Find(context.Background(), "bafy")
		require.NoError(t, err)
		assert.Equal(t, doc, got.Document)
		require.NotNil(t, got.EngagementScore)
		assert.Equal(t, 12, *got.EngagementScore)
	})

	t.Run("without score", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`FROM\s+contest_entries`).
			WithArgs("bafy").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("bafy", "0xabc", doc.Meme, doc.DiscordMessageURL, "", doc.GifURL, nil))

		got, err := repo.Find(context.Background(), "bafy")
		require.NoError(t, err)
		assert.Nil(t, got.EngagementScore)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`FROM\s+contest_entries`).WithArgs("x").WillReturnError(sql.ErrNoRows)

		_, err := repo.Find(context.Background(), "x")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestUpdateScore(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`(?s)UPDATE\s+contest_entries\s+SET\s+engagement_score\s*=\s*\$2`).
		WithArgs("bafy", 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateScore(context.Background(), "bafy", 9))

	mock.ExpectExec(`UPDATE\s+contest_entries`).WithArgs("gone", 1).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateScore(context.Background(), "gone", 1), common.ErrNotFound)
}
