package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openclaw/forager/internal/httpx"
)

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint through the
// shared retrying client.
type HTTPEmbedder struct {
	client *httpx.Client
	url    string
	model  string
	apiKey string
}

// NewHTTPEmbedder builds an embedder against url.
func NewHTTPEmbedder(client *httpx.Client, url, model, apiKey string) *HTTPEmbedder {
	return &HTTPEmbedder{client: client, url: url, model: model, apiKey: apiKey}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding for text.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	header := http.Header{"Content-Type": {"application/json"}}
	if e.apiKey != "" {
		header.Set("Authorization", "Bearer "+e.apiKey)
	}
	resp, err := e.client.Do(ctx, http.MethodPost, e.url, header, body)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	var parsed embedResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embed response contained no vectors")
	}
	return parsed.Data[0].Embedding, nil
}
