// Package memory implements a cosine-similarity vector index for tests and
// small deployments.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/openclaw/forager/internal/vector"
)

// Index is a mutex-guarded in-memory vector.Index.
type Index struct {
	mu   sync.RWMutex
	docs map[string]vector.Document
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{docs: make(map[string]vector.Document)}
}

// Upsert inserts or replaces the document with the same ID.
func (i *Index) Upsert(_ context.Context, doc vector.Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.docs[doc.ID] = doc
	return nil
}

// Query returns up to limit nearest neighbors by cosine similarity.
func (i *Index) Query(_ context.Context, embedding []float32, filter map[string]string, limit int) ([]vector.Match, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var matches []vector.Match
	for _, doc := range i.docs {
		if !metadataMatches(doc.Metadata, filter) {
			continue
		}
		score := cosine(embedding, doc.Embedding)
		if score > 0 {
			matches = append(matches, vector.Match{ID: doc.ID, Score: score})
		}
	}
	sort.Slice(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, nil
}

func metadataMatches(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for idx := range a {
		dot += float64(a[idx]) * float64(b[idx])
		normA += float64(a[idx]) * float64(a[idx])
		normB += float64(b[idx]) * float64(b[idx])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
