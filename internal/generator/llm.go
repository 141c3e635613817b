package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/netx"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionClient talks to an OpenAI-compatible /chat/completions endpoint.
type CompletionClient struct {
	exec    *netx.Executor
	baseURL string
	model   string
	apiKey  string
}

func NewCompletionClient(exec *netx.Executor, baseURL, model, apiKey string) *CompletionClient {
	return &CompletionClient{
		exec:    exec,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
	}
}

type completionRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

var errEmptyCompletion = errors.New("completion has no choices")

// Complete returns the content of the first choice.
func (c *CompletionClient) Complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(completionRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.exec.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return out.Choices[0].Message.Content, nil
}
