// Package entries declares the local cache of contest entry metadata.
package entries

import (
	"context"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

type Repository interface {
	// Upsert stores or replaces the metadata cached for cid.
	Upsert(ctx context.Context, cid, creator string, doc models.MetadataDocument) error

	// Find returns the cached entry or common.ErrNotFound.
	Find(ctx context.Context, cid string) (*models.CachedEntry, error)

	// UpdateScore records the latest tallied engagement for cid.
	UpdateScore(ctx context.Context, cid string, score int) error
}
