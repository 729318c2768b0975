package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openclaw/forager/internal/httpx"
)

// Intent is the structured reading of a free-text query.
type Intent struct {
	Keywords string `json:"keywords"`
	Category string `json:"category"`
	Chain    string `json:"chain"`
}

// IntentExtractor turns a free-text query into keywords plus optional
// category/chain hints. Callers treat failure as "no hints": the raw query
// becomes the keywords.
type IntentExtractor interface {
	Extract(ctx context.Context, query string) (Intent, error)
}

// HTTPIntentExtractor calls a lightweight extraction model over HTTP.
type HTTPIntentExtractor struct {
	client *httpx.Client
	url    string
	token  string
}

// NewHTTPIntentExtractor builds an extractor against the given endpoint.
func NewHTTPIntentExtractor(client *httpx.Client, url, token string) *HTTPIntentExtractor {
	return &HTTPIntentExtractor{client: client, url: url, token: token}
}

// Extract posts the query and decodes the structured intent.
func (x *HTTPIntentExtractor) Extract(ctx context.Context, query string) (Intent, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return Intent{}, fmt.Errorf("marshal intent request: %w", err)
	}
	header := http.Header{"Content-Type": []string{"application/json"}}
	if x.token != "" {
		header.Set("Authorization", "Bearer "+x.token)
	}
	resp, err := x.client.Do(ctx, http.MethodPost, x.url, header, body)
	if err != nil {
		return Intent{}, fmt.Errorf("intent request: %w", err)
	}
	var intent Intent
	if err := json.Unmarshal(resp.Body, &intent); err != nil {
		return Intent{}, fmt.Errorf("decode intent response: %w", err)
	}
	return intent, nil
}
