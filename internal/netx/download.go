package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var ErrTooLarge = errors.New("response exceeds size limit")

// Media is a downloaded payload and the content type the server reported.
type Media struct {
	Data        []byte
	ContentType string
}

// Download fetches url with retries. Bodies larger than maxBytes are rejected;
// maxBytes <= 0 disables the limit.
func (e *Executor) Download(ctx context.Context, url string, maxBytes int64) (Media, error) {
	resp, err := e.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return Media{}, err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if maxBytes > 0 {
		r = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Media{}, fmt.Errorf("read body: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return Media{}, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return Media{Data: data, ContentType: ct}, nil
}
