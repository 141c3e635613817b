package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/dbx"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, cid, creator string, doc models.MetadataDocument) error {
	query := `
		INSERT INTO contest_entries (cid, creator, meme, discord_message_url, twitter_url, gif_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (cid) DO UPDATE
		SET creator = EXCLUDED.creator, meme = EXCLUDED.meme, discord_message_url = EXCLUDED.discord_message_url,
		    twitter_url = EXCLUDED.twitter_url, gif_url = EXCLUDED.gif_url, updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, cid, creator, doc.Meme, doc.DiscordMessageURL, doc.TwitterURL, doc.GifURL); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, cid string) (*models.CachedEntry, error) {
	query := `
		SELECT cid, creator, meme, discord_message_url, twitter_url, gif_url, engagement_score
		FROM contest_entries
		WHERE cid = $1
	`
	var (
		e     models.CachedEntry
		score sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, cid).Scan(
		&e.CID, &e.Creator, &e.Document.Meme, &e.Document.DiscordMessageURL, &e.Document.TwitterURL, &e.Document.GifURL, &score,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if score.Valid {
		s := int(score.Int64)
		e.EngagementScore = &s
	}
	return &e, nil
}

func (r *PostgresRepository) UpdateScore(ctx context.Context, cid string, score int) error {
	query := `
		UPDATE contest_entries
		SET engagement_score = $2, updated_at = now()
		WHERE cid = $1
	`
	res, err := r.db.ExecContext(ctx, query, cid, score)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
