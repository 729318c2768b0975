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

// SkillStore is a mutex-guarded in-memory store.SkillStore.
type SkillStore struct {
	mu     sync.RWMutex
	skills map[string]catalog.Skill
	byURL  map[string]string
	bySlug map[string]string
}

// NewSkillStore creates an empty in-memory skill store.
func NewSkillStore() *SkillStore {
	return &SkillStore{
		skills: make(map[string]catalog.Skill),
		byURL:  make(map[string]string),
		bySlug: make(map[string]string),
	}
}

// Insert adds a new skill, failing closed on a source-url collision.
func (s *SkillStore) Insert(_ context.Context, sk catalog.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byURL[sk.SourceURL]; exists {
		return catalog.ErrDuplicate
	}
	s.skills[sk.ID] = sk
	s.byURL[sk.SourceURL] = sk.ID
	s.bySlug[sk.Slug] = sk.ID
	return nil
}

// Update replaces the stored skill with the same id.
func (s *SkillStore) Update(_ context.Context, sk catalog.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.skills[sk.ID]
	if !ok {
		return catalog.ErrNotFound
	}
	delete(s.byURL, old.SourceURL)
	delete(s.bySlug, old.Slug)
	s.skills[sk.ID] = sk
	s.byURL[sk.SourceURL] = sk.ID
	s.bySlug[sk.Slug] = sk.ID
	return nil
}

// GetByID returns the skill with the given id.
func (s *SkillStore) GetByID(_ context.Context, id string) (catalog.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.skills[id]
	if !ok {
		return catalog.Skill{}, catalog.ErrNotFound
	}
	return sk, nil
}

// GetBySlug returns the skill with the given slug.
func (s *SkillStore) GetBySlug(_ context.Context, slug string) (catalog.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return catalog.Skill{}, catalog.ErrNotFound
	}
	return s.skills[id], nil
}

// GetBySourceURL returns the skill stored under the normalized URL.
func (s *SkillStore) GetBySourceURL(_ context.Context, sourceURL string) (catalog.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byURL[sourceURL]
	if !ok {
		return catalog.Skill{}, catalog.ErrNotFound
	}
	return s.skills[id], nil
}

// List returns filtered skills in the requested order.
func (s *SkillStore) List(_ context.Context, f store.SkillFilter, order store.Order, page store.Page) ([]catalog.Skill, error) {
	s.mu.RLock()
	matched := s.filtered(f)
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if order == store.OrderByRecency {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].Downloads > matched[j].Downloads
	})

	if page.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[page.Offset:]
	if page.Limit > 0 && page.Limit < len(matched) {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

// Count returns the number of skills matching the filter.
func (s *SkillStore) Count(_ context.Context, f store.SkillFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.filtered(f)), nil
}

// SearchLexical scores skills by naive term overlap.
func (s *SkillStore) SearchLexical(_ context.Context, query string, f store.SkillFilter, limit int) ([]store.ScoredSkill, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	candidates := s.filtered(f)
	s.mu.RUnlock()

	var scored []store.ScoredSkill
	for _, sk := range candidates {
		haystack := strings.ToLower(sk.Name + " " + sk.Tagline + " " + sk.Description + " " + strings.Join(sk.Tags, " "))
		score := 0.0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, store.ScoredSkill{Skill: sk, Score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && limit < len(scored) {
		scored = scored[:limit]
	}
	return scored, nil
}

// SetDeadLink flips only the dead flag and verification timestamp.
func (s *SkillStore) SetDeadLink(_ context.Context, id string, dead bool, verifiedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sk, ok := s.skills[id]
	if !ok {
		return catalog.ErrNotFound
	}
	sk.DeadLink = dead
	sk.LastVerifiedAt = verifiedAt
	s.skills[id] = sk
	return nil
}

func (s *SkillStore) filtered(f store.SkillFilter) []catalog.Skill {
	var out []catalog.Skill
	for _, sk := range s.skills {
		if !f.IncludeDead && sk.DeadLink {
			continue
		}
		if f.Category != nil && sk.Category != *f.Category {
			continue
		}
		if !hasAllTags(sk.Tags, f.Tags) {
			continue
		}
		out = append(out, sk)
	}
	return out
}

func hasAllTags(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
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
