// Package archiver packages entry metadata into a JSON document and stores it
// in content-addressed storage, returning the content identifier.
package archiver

import (
	"context"
	"fmt"
	"time"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

// ContentStore is a content-addressed blob store. Put returns the identifier
// derived from data; Get returns the bytes stored under it.
type ContentStore interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, id string) ([]byte, error)
}

type Archiver struct {
	store       ContentStore
	callTimeout time.Duration
	logger      logging.Logger
}

func New(store ContentStore, callTimeout time.Duration, logger logging.Logger) *Archiver {
	return &Archiver{store: store, callTimeout: callTimeout, logger: logger.With("module", "archiver")}
}

// BuildDocument assembles the metadata stored for an entry.
func BuildDocument(content models.Content, dist models.Distribution) models.MetadataDocument {
	return models.MetadataDocument{
		Meme:              content.Caption,
		DiscordMessageURL: dist.ChatMessage.URL(),
		TwitterURL:        dist.SocialPostURL,
		GifURL:            content.ImageURL,
	}
}

// Archive stores the metadata document and returns its CID. Failures are
// ErrStorage.
func (a *Archiver) Archive(ctx context.Context, content models.Content, dist models.Distribution) (string, error) {
	data, err := BuildDocument(content, dist).Encode()
	if err != nil {
		return "", fmt.Errorf("%w: encode metadata: %w", common.ErrStorage, err)
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	id, err := a.store.Put(ctx, "meme-"+dist.ChatMessage.MessageID+".json", data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	a.logger.Info(ctx, "metadata archived", "cid", id)
	return id, nil
}

// Fetch loads and decodes the metadata document stored under id.
func (a *Archiver) Fetch(ctx context.Context, id string) (models.MetadataDocument, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	data, err := a.store.Get(ctx, id)
	if err != nil {
		return models.MetadataDocument{}, fmt.Errorf("%w: fetch %s: %w", common.ErrStorage, id, err)
	}
	doc, err := models.DecodeMetadata(data)
	if err != nil {
		return models.MetadataDocument{}, fmt.Errorf("%w: decode %s: %w", common.ErrStorage, id, err)
	}
	return doc, nil
}

func (a *Archiver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.callTimeout)
}
