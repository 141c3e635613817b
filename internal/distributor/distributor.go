// Package distributor publishes generated content to the chat platform and
// the social network. The chat post is required; the social post is best
// effort.
package distributor

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/netx"
)

// ChatPlatform is the required channel. Its posts are where engagement is
// measured.
type ChatPlatform interface {
	Post(ctx context.Context, caption string, media netx.Media, filename string) (models.ChatMessageRef, error)
	ReactionCount(ctx context.Context, ref models.ChatMessageRef) (int, error)
	Close() error
}

// SocialNetwork is the optional channel.
type SocialNetwork interface {
	Publish(ctx context.Context, caption string, media netx.Media) (string, error)
	Close() error
}

type MediaFetcher interface {
	Download(ctx context.Context, url string, maxBytes int64) (netx.Media, error)
}

// Distributor owns both channel sessions for the lifetime of the process.
// Publishing is serialized; reaction reads may run concurrently.
type Distributor struct {
	chat        ChatPlatform
	social      SocialNetwork
	media       MediaFetcher
	maxBytes    int64
	callTimeout time.Duration
	logger      logging.Logger

	mu     sync.Mutex
	closed bool
}

// New takes ownership of chat and social. social may be nil, in which case
// only the chat platform is used.
func New(chat ChatPlatform, social SocialNetwork, media MediaFetcher, maxBytes int64, callTimeout time.Duration, logger logging.Logger) *Distributor {
	return &Distributor{
		chat:        chat,
		social:      social,
		media:       media,
		maxBytes:    maxBytes,
		callTimeout: callTimeout,
		logger:      logger.With("module", "distributor"),
	}
}

// Distribute posts content to the chat platform, then to the social network.
// A chat failure (including the media download) returns ErrDistribution and
// the social network is not attempted. A social failure is logged and leaves
// SocialPostURL empty.
func (d *Distributor) Distribute(ctx context.Context, content models.Content) (models.Distribution, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return models.Distribution{}, fmt.Errorf("%w: sessions closed", common.ErrDistribution)
	}

	media, err := d.download(ctx, content.ImageURL)
	if err != nil {
		return models.Distribution{}, fmt.Errorf("%w: media download: %w", common.ErrDistribution, err)
	}

	chatCtx, cancel := d.withTimeout(ctx)
	ref, err := d.chat.Post(chatCtx, content.Caption, media, mediaFilename(content.ImageURL))
	cancel()
	if err != nil {
		return models.Distribution{}, fmt.Errorf("%w: chat post: %w", common.ErrDistribution, err)
	}
	d.logger.Info(ctx, "posted to chat", "url", ref.URL())

	out := models.Distribution{ChatMessage: ref}
	if d.social == nil {
		return out, nil
	}

	socialCtx, cancel := d.withTimeout(ctx)
	postURL, err := d.social.Publish(socialCtx, content.Caption, media)
	cancel()
	if err != nil {
		d.logger.Warn(ctx, "social post failed, continuing without it", "error", err)
		return out, nil
	}
	d.logger.Info(ctx, "posted to social", "url", postURL)
	out.SocialPostURL = postURL
	return out, nil
}

// ReactionCount reads the live engagement of a chat message.
func (d *Distributor) ReactionCount(ctx context.Context, ref models.ChatMessageRef) (int, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.chat.ReactionCount(ctx, ref)
}

// Close tears down both sessions. It is safe to call more than once.
func (d *Distributor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var firstErr error
	if d.social != nil {
		firstErr = d.social.Close()
	}
	if err := d.chat.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (d *Distributor) download(ctx context.Context, u string) (netx.Media, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.media.Download(ctx, u, d.maxBytes)
}

func (d *Distributor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.callTimeout)
}

func mediaFilename(raw string) string {
	u, err := url.Parse(raw)
	if err == nil {
		if name := path.Base(u.Path); name != "." && name != "/" && strings.Contains(name, ".") {
			return name
		}
	}
	return "meme.gif"
}
