// Package vector defines the optional semantic-search collaborators. When no
// index is configured the retrieval service degrades to lexical-only.
package vector

import "context"

// Document is one indexed item with equality-filterable metadata.
type Document struct {
	ID        string
	Embedding []float32
	Metadata  map[string]string
}

// Match is a nearest-neighbor hit.
type Match struct {
	ID    string
	Score float64
}

// Index is the nearest-neighbor index contract.
type Index interface {
	// Upsert inserts or replaces the document with the same ID.
	Upsert(ctx context.Context, doc Document) error
	// Query returns up to limit nearest neighbors whose metadata matches
	// every key/value in filter.
	Query(ctx context.Context, embedding []float32, filter map[string]string, limit int) ([]Match, error)
}

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
