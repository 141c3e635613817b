// Package tally scores every entry recorded on the ledger by the live
// reaction count of its chat message.
package tally

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/repositories/entries"
)

// EntrySource lists submitted entries in ledger order.
type EntrySource interface {
	SubmittedEntries(ctx context.Context) ([]models.SubmittedEntry, error)
}

// MetadataSource resolves a CID to its stored document.
type MetadataSource interface {
	Fetch(ctx context.Context, cid string) (models.MetadataDocument, error)
}

type ReactionReader interface {
	ReactionCount(ctx context.Context, ref models.ChatMessageRef) (int, error)
}

type Tally struct {
	ledger      EntrySource
	metadata    MetadataSource
	reactions   ReactionReader
	cache       entries.Repository
	concurrency int
	logger      logging.Logger
}

// New builds a Tally. cache may be nil, in which case every document is
// fetched from storage.
func New(ledger EntrySource, metadata MetadataSource, reactions ReactionReader, cache entries.Repository, concurrency int, logger logging.Logger) *Tally {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Tally{
		ledger:      ledger,
		metadata:    metadata,
		reactions:   reactions,
		cache:       cache,
		concurrency: concurrency,
		logger:      logger.With("module", "tally"),
	}
}

// Run scores every distinct CID on the ledger. One result is returned per
// CID in order of first submission; entries that could not be scored carry
// Err and are kept in the result. Run fails only when the ledger cannot be
// read or ctx ends.
func (t *Tally) Run(ctx context.Context) ([]models.EngagementResult, error) {
	submitted, err := t.ledger.SubmittedEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	submitted = dedupe(submitted)

	results := make([]models.EngagementResult, len(submitted))
	var g errgroup.Group
	g.SetLimit(t.concurrency)
	for i, e := range submitted {
		g.Go(func() error {
			score, err := t.score(ctx, e)
			results[i] = models.EngagementResult{CID: e.CID, Creator: e.Creator, Score: score, Err: err}
			if err != nil {
				t.logger.Warn(ctx, "entry excluded from tally", "cid", e.CID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (t *Tally) score(ctx context.Context, e models.SubmittedEntry) (int, error) {
	doc, err := t.document(ctx, e)
	if err != nil {
		return 0, err
	}
	ref, err := ParseChatMessageRef(doc.DiscordMessageURL)
	if err != nil {
		return 0, err
	}
	n, err := t.reactions.ReactionCount(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("reactions: %w", err)
	}
	if t.cache != nil {
		if err := t.cache.UpdateScore(ctx, e.CID, n); err != nil && !errors.Is(err, common.ErrNotFound) {
			t.logger.Warn(ctx, "score not cached", "cid", e.CID, "error", err)
		}
	}
	return n, nil
}

func (t *Tally) document(ctx context.Context, e models.SubmittedEntry) (models.MetadataDocument, error) {
	if t.cache != nil {
		cached, err := t.cache.Find(ctx, e.CID)
		switch {
		case err == nil:
			return cached.Document, nil
		case !errors.Is(err, common.ErrNotFound):
			t.logger.Warn(ctx, "entry cache read failed", "cid", e.CID, "error", err)
		}
	}

	doc, err := t.metadata.Fetch(ctx, e.CID)
	if err != nil {
		return models.MetadataDocument{}, err
	}
	if t.cache != nil {
		if err := t.cache.Upsert(ctx, e.CID, e.Creator, doc); err != nil {
			t.logger.Warn(ctx, "entry not cached", "cid", e.CID, "error", err)
		}
	}
	return doc, nil
}

// dedupe keeps the first submission of every CID. The outbox may send a
// write more than once.
func dedupe(in []models.SubmittedEntry) []models.SubmittedEntry {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, e := range in {
		if _, ok := seen[e.CID]; ok {
			continue
		}
		seen[e.CID] = struct{}{}
		out = append(out, e)
	}
	return out
}
