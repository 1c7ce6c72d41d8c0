package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/embeddings"
	openAIModel    = "text-embedding-3-small"

	requestTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// OpenAIClient embeds belief statements through the OpenAI embeddings API.
// Statements are short normalized phrases, so the small embedding model is
// enough for same-topic matching.
type OpenAIClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:   apiKey,
		endpoint: openAIEndpoint,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

type embedPayload struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResult struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed returns the vector for one statement. Errors carry enough of the API
// response to diagnose quota and auth failures; callers treat any error as
// "no vector" and fall back to lexical matching.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedPayload{Model: openAIModel, Input: text})
	if err != nil {
		return nil, fmt.Errorf("openai: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var result embedResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("openai: %s", result.Error.Message)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai: empty embedding for input")
	}
	return result.Data[0].Embedding, nil
}
