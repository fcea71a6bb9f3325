package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient is the default Client/EmbeddingClient implementation: a thin
// REST adapter onto any OpenAI-compatible chat-completions and embeddings
// endpoint. No ecosystem HTTP client library appears anywhere in the
// reference corpus (the teacher's equivalent seam, pkg/llm/client.go, talks
// gRPC to a sibling process), so this follows stdlib net/http directly,
// matching the provider-neutral "just a JSON POST" shape spec.md assumes.
type HTTPClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	EmbedURL   string
	EmbedModel string
	dims       int

	httpClient *http.Client
}

// NewHTTPClient builds an HTTPClient. dims is the embedding vector length the
// Knowledge Store was initialized with (spec.md §4.2); Embed validates the
// provider's response against it.
func NewHTTPClient(baseURL, apiKey, model, embedURL, embedModel string, dims int) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Model:      model,
		EmbedURL:   embedURL,
		EmbedModel: embedModel,
		dims:       dims,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) Dimensions() int { return c.dims }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends req as a single-turn chat completion and returns the first
// choice's raw text.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := chatRequest{Model: c.Model, Messages: messagesFor(req)}
	var resp chatResponse
	if err := c.post(ctx, c.BaseURL+"/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrTransient)
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteJSON sends req expecting a JSON object response, validating it
// against schema before returning (spec.md §7 llm.schema).
func (c *HTTPClient) CompleteJSON(ctx context.Context, req Request, schema []byte) ([]byte, error) {
	text, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	raw := []byte(text)
	if err := ValidateJSON(raw, schema); err != nil {
		return nil, err
	}
	return raw, nil
}

func messagesFor(req Request) []chatMessage {
	var msgs []chatMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.UserPrompt})
	return msgs
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed requests a single embedding vector for text.
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float64, error) {
	body := embedRequest{Model: c.EmbedModel, Input: text}
	var resp embedResponse
	if err := c.post(ctx, c.EmbedURL, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding data", ErrTransient)
	}
	emb := resp.Data[0].Embedding
	if c.dims > 0 && len(emb) != c.dims {
		return nil, fmt.Errorf("llmclient: embedding has %d dimensions, expected %d", len(emb), c.dims)
	}
	return emb, nil
}

func (c *HTTPClient) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("llmclient: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("llmclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("llmclient: read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d: %s", ErrTransient, resp.StatusCode, data)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("llmclient: provider returned status %d: %s", resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("llmclient: unmarshal response: %w", err)
	}
	return nil
}
