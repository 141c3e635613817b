package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/netx"
)

var errNoImage = errors.New("no gif result")

// TenorClient resolves a search phrase to the URL of the first GIF result.
type TenorClient struct {
	exec      *netx.Executor
	baseURL   string
	apiKey    string
	clientKey string
}

func NewTenorClient(exec *netx.Executor, baseURL, apiKey, clientKey string) *TenorClient {
	return &TenorClient{
		exec:      exec,
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		clientKey: clientKey,
	}
}

type tenorResponse struct {
	Results []struct {
		ID           string `json:"id"`
		MediaFormats map[string]struct {
			URL string `json:"url"`
		} `json:"media_formats"`
	} `json:"results"`
}

func (c *TenorClient) Search(ctx context.Context, phrase string) (string, error) {
	q := url.Values{}
	q.Set("q", phrase)
	q.Set("key", c.apiKey)
	q.Set("client_key", c.clientKey)
	q.Set("limit", "1")
	q.Set("media_filter", "gif")
	endpoint := c.baseURL + "/v2/search?" + q.Encode()

	resp, err := c.exec.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return "", fmt.Errorf("tenor search: %w", err)
	}
	defer resp.Body.Close()

	var out tenorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode tenor response: %w", err)
	}
	if len(out.Results) == 0 {
		return "", errNoImage
	}
	gif, ok := out.Results[0].MediaFormats["gif"]
	if !ok || gif.URL == "" {
		return "", errNoImage
	}
	return gif.URL, nil
}
