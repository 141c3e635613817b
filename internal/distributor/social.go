package distributor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	twitterscraper "github.com/imperatrona/twitter-scraper"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/netx"
)

// StoredCookie is one entry of the saved session file.
type StoredCookie struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

type cookieFile struct {
	Cookies []StoredCookie `json:"cookies"`
}

var (
	errNotLoggedIn = errors.New("stored session is not logged in")
	errNoCSRF      = errors.New("stored session has no ct0 cookie")
)

// scraper is the part of *twitterscraper.Scraper the client drives.
type scraper interface {
	SetCookies(cookies []*http.Cookie)
	IsLoggedIn() bool
	UploadMedia(filePath string) (*twitterscraper.Media, error)
	CreateTweet(tweet twitterscraper.NewTweet) (*twitterscraper.Tweet, error)
}

// XClient publishes posts through an authenticated web session restored from
// saved cookies. Every request is sent once: a repeated upload or post can
// leave a duplicate public tweet behind.
type XClient struct {
	s      scraper
	tmpDir string
}

// LoadCookies reads a {"cookies": [...]} session file.
func LoadCookies(path string) ([]StoredCookie, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f cookieFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse cookie file: %w", err)
	}
	return f.Cookies, nil
}

// NewXClient restores the session held in cookies.
func NewXClient(cookies []StoredCookie) (*XClient, error) {
	return newXClient(twitterscraper.New(), cookies)
}

func newXClient(s scraper, cookies []StoredCookie) (*XClient, error) {
	var csrf bool
	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		name := c.Key
		if name == "" {
			name = c.Name
		}
		if name == "ct0" && c.Value != "" {
			csrf = true
		}
		p := c.Path
		if p == "" {
			p = "/"
		}
		httpCookies = append(httpCookies, &http.Cookie{Name: name, Value: c.Value, Domain: c.Domain, Path: p})
	}
	if !csrf {
		return nil, errNoCSRF
	}
	s.SetCookies(httpCookies)
	return &XClient{s: s, tmpDir: os.TempDir()}, nil
}

// call runs fn without blocking past ctx. The scraper has no context support,
// so an abandoned call finishes in the background.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.v, r.err
	}
}

// Verify checks that the restored session is still logged in.
func (c *XClient) Verify(ctx context.Context) error {
	ok, err := call(ctx, func() (bool, error) { return c.s.IsLoggedIn(), nil })
	if err != nil {
		return err
	}
	if !ok {
		return errNotLoggedIn
	}
	return nil
}

// Upload stages media in a temporary file and uploads it.
func (c *XClient) Upload(ctx context.Context, media netx.Media) (*twitterscraper.Media, error) {
	f, err := os.CreateTemp(c.tmpDir, "meme-*"+mediaExt(media.ContentType))
	if err != nil {
		return nil, err
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.Write(media.Data); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	m, err := call(ctx, func() (*twitterscraper.Media, error) { return c.s.UploadMedia(name) })
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	return m, nil
}

// Publish verifies the session, uploads the media and posts the caption.
// It returns the permanent URL of the new post.
func (c *XClient) Publish(ctx context.Context, caption string, media netx.Media) (string, error) {
	if err := c.Verify(ctx); err != nil {
		return "", err
	}

	m, err := c.Upload(ctx, media)
	if err != nil {
		return "", err
	}

	tweet, err := call(ctx, func() (*twitterscraper.Tweet, error) {
		return c.s.CreateTweet(twitterscraper.NewTweet{Text: caption, Medias: []*twitterscraper.Media{m}})
	})
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	if tweet.PermanentURL != "" {
		return tweet.PermanentURL, nil
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", tweet.Username, tweet.ID), nil
}

// Close is a no-op; the session lives in the scraper's cookie jar only.
func (c *XClient) Close() error {
	return nil
}

func mediaExt(contentType string) string {
	switch contentType {
	case "image/gif":
		return ".gif"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "video/mp4":
		return ".mp4"
	}
	return ""
}
