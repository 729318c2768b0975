// Package memory provides in-memory store implementations for tests and
// local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/store"
)

// CatalogStore is a mutex-guarded in-memory store.CatalogStore.
type CatalogStore struct {
	mu      sync.RWMutex
	entries map[string]catalog.Entry // by id
	byURL   map[string]string        // normalized source url -> id
	bySlug  map[string]string
}

// NewCatalogStore creates an empty in-memory catalog store.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		entries: make(map[string]catalog.Entry),
		byURL:   make(map[string]string),
		bySlug:  make(map[string]string),
	}
}

// Insert adds a new entry, failing closed on a source-url collision.
func (s *CatalogStore) Insert(_ context.Context, e catalog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byURL[e.SourceURL]; exists {
		return catalog.ErrDuplicate
	}
	s.entries[e.ID] = e
	s.byURL[e.SourceURL] = e.ID
	s.bySlug[e.Slug] = e.ID
	return nil
}

// Update replaces the stored entry with the same id.
func (s *CatalogStore) Update(_ context.Context, e catalog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.entries[e.ID]
	if !ok {
		return catalog.ErrNotFound
	}
	delete(s.byURL, old.SourceURL)
	delete(s.bySlug, old.Slug)
	s.entries[e.ID] = e
	s.byURL[e.SourceURL] = e.ID
	s.bySlug[e.Slug] = e.ID
	return nil
}

// GetByID returns the entry with the given id.
func (s *CatalogStore) GetByID(_ context.Context, id string) (catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return catalog.Entry{}, catalog.ErrNotFound
	}
	return e, nil
}

// GetBySlug returns the entry with the given slug.
func (s *CatalogStore) GetBySlug(_ context.Context, slug string) (catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return catalog.Entry{}, catalog.ErrNotFound
	}
	return s.entries[id], nil
}

// GetBySourceURL returns the entry stored under the normalized URL.
func (s *CatalogStore) GetBySourceURL(_ context.Context, sourceURL string) (catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byURL[sourceURL]
	if !ok {
		return catalog.Entry{}, catalog.ErrNotFound
	}
	return s.entries[id], nil
}

// List returns filtered entries in the requested order.
func (s *CatalogStore) List(_ context.Context, f store.EntryFilter, order store.Order, page store.Page) ([]catalog.Entry, error) {
	s.mu.RLock()
	matched := s.filtered(f)
	s.mu.RUnlock()

	sortEntries(matched, order)

	if page.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[page.Offset:]
	if page.Limit > 0 && page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

// Count returns the number of entries matching the filter.
func (s *CatalogStore) Count(_ context.Context, f store.EntryFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(f)), nil
}

// SearchLexical scores entries by naive term overlap against name, tagline,
// description, and tags. Good enough to exercise the retrieval waterfall.
func (s *CatalogStore) SearchLexical(_ context.Context, query string, f store.EntryFilter, limit int) ([]store.ScoredEntry, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	candidates := s.filtered(f)
	s.mu.RUnlock()

	var scored []store.ScoredEntry
	for _, e := range candidates {
		haystack := strings.ToLower(e.Name + " " + e.Tagline + " " + e.Description + " " + strings.Join(e.Tags, " "))
		score := 0.0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, store.ScoredEntry{Entry: e, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Entry.Stars > scored[j].Entry.Stars
	})
	if limit > 0 && limit < len(scored) {
		scored = scored[:limit]
	}
	return scored, nil
}

// SetDeadLink flips only the dead flag and verification timestamp.
func (s *CatalogStore) SetDeadLink(_ context.Context, id string, dead bool, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return catalog.ErrNotFound
	}
	e.DeadLink = dead
	e.LastVerifiedAt = verifiedAt
	s.entries[id] = e
	return nil
}

// ListOpaqueNamed returns stored entries whose display name is still a hash.
func (s *CatalogStore) ListOpaqueNamed(_ context.Context, limit int) ([]catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []catalog.Entry
	for _, e := range s.entries {
		if catalog.IsOpaqueID(e.Name) {
			out = append(out, e)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Reindex is a no-op: the in-memory search scans rows directly.
func (s *CatalogStore) Reindex(context.Context) error { return nil }

func (s *CatalogStore) filtered(f store.EntryFilter) []catalog.Entry {
	var out []catalog.Entry
	for _, e := range s.entries {
		if matchEntry(f, e) {
			out = append(out, e)
		}
	}
	return out
}

func matchEntry(f store.EntryFilter, e catalog.Entry) bool {
	if !f.IncludeDead && e.DeadLink {
		return false
	}
	if !f.IncludeOpaque && catalog.IsOpaqueID(e.Name) {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	if f.Runtime != nil && e.Runtime != *f.Runtime {
		return false
	}
	if f.OpenClawReady != nil && e.OpenClawReady != *f.OpenClawReady {
		return false
	}
	if f.SelfHostable != nil && e.SelfHostable != *f.SelfHostable {
		return false
	}
	if f.VerifiedOnly && !e.Verified {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, have := range e.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortEntries(entries []catalog.Entry, order store.Order) {
	sort.SliceStable(entries, func(i, j int) bool {
		switch order {
		case store.OrderByTrending:
			return entries[i].TrendingScore > entries[j].TrendingScore
		case store.OrderByRecency:
			return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
		default:
			return entries[i].Stars > entries[j].Stars
		}
	})
}
