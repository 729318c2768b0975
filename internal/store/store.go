// Package store defines the persistence contracts the catalog core requires.
// Implementations live in the postgres and memory subpackages.
package store

import (
	"context"
	"time"

	"github.com/openclaw/forager/internal/catalog"
)

// Order selects the sort applied to list queries.
type Order string

// Supported list orderings.
const (
	OrderByStars    Order = "stars"
	OrderByTrending Order = "trending"
	OrderByRecency  Order = "recency"
)

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
}

// EntryFilter is the shared predicate for list, count, and lexical search.
// The same value must be passed to Count and List when rendering a page so
// the total and the rows cannot drift.
type EntryFilter struct {
	Category      *catalog.Category
	Runtime       *catalog.Runtime
	Tags          []string // AND semantics: every tag must be present
	OpenClawReady *bool
	SelfHostable  *bool
	VerifiedOnly  bool
	// IncludeDead admits deadLink rows; retrieval paths leave it false.
	IncludeDead bool
	// IncludeOpaque admits rows whose display name is an unresolved hash;
	// only the enrichment job sets it.
	IncludeOpaque bool
}

// ScoredEntry pairs an entry with its lexical relevance score. Higher is more
// relevant; results arrive sorted.
type ScoredEntry struct {
	Entry catalog.Entry
	Score float64
}

// CatalogStore persists canonical tool entries.
type CatalogStore interface {
	Insert(ctx context.Context, e catalog.Entry) error
	Update(ctx context.Context, e catalog.Entry) error
	GetByID(ctx context.Context, id string) (catalog.Entry, error)
	GetBySlug(ctx context.Context, slug string) (catalog.Entry, error)
	// GetBySourceURL expects an already-normalized URL; callers go through
	// the catalog service, which normalizes first.
	GetBySourceURL(ctx context.Context, sourceURL string) (catalog.Entry, error)
	List(ctx context.Context, f EntryFilter, order Order, page Page) ([]catalog.Entry, error)
	Count(ctx context.Context, f EntryFilter) (int, error)
	SearchLexical(ctx context.Context, query string, f EntryFilter, limit int) ([]ScoredEntry, error)
	// SetDeadLink touches only the dead flag and verification timestamp.
	SetDeadLink(ctx context.Context, id string, dead bool, verifiedAt time.Time) error
	// ListOpaqueNamed returns stored entries whose name is an unresolved
	// provider hash, for the enrichment job.
	ListOpaqueNamed(ctx context.Context, limit int) ([]catalog.Entry, error)
	// Reindex rebuilds the full-text index after bulk loads that bypass
	// per-row triggers.
	Reindex(ctx context.Context) error
}

// SkillFilter is the predicate for skill list/count/search.
type SkillFilter struct {
	Category    *catalog.SkillCategory
	Tags        []string
	IncludeDead bool
}

// ScoredSkill pairs a skill with its lexical relevance score.
type ScoredSkill struct {
	Skill catalog.Skill
	Score float64
}

// SkillStore persists canonical skill entries.
type SkillStore interface {
	Insert(ctx context.Context, s catalog.Skill) error
	Update(ctx context.Context, s catalog.Skill) error
	GetByID(ctx context.Context, id string) (catalog.Skill, error)
	GetBySlug(ctx context.Context, slug string) (catalog.Skill, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (catalog.Skill, error)
	List(ctx context.Context, f SkillFilter, order Order, page Page) ([]catalog.Skill, error)
	Count(ctx context.Context, f SkillFilter) (int, error)
	SearchLexical(ctx context.Context, query string, f SkillFilter, limit int) ([]ScoredSkill, error)
	SetDeadLink(ctx context.Context, id string, dead bool, verifiedAt time.Time) error
}
