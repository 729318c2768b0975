package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/store"
	"github.com/openclaw/forager/internal/vector"
)

const defaultResultLimit = 20

// SearchRequest parameterizes a lexical search.
type SearchRequest struct {
	Query         string
	Category      *catalog.Category
	Runtime       *catalog.Runtime
	Tags          []string
	OpenClawReady *bool
	SelfHostable  *bool
	VerifiedOnly  bool
	Limit         int
}

// BrowseRequest parameterizes a category browse.
type BrowseRequest struct {
	Category *catalog.Category
	Order    store.Order
	Page     store.Page
}

// BrowseResult is one page plus the total count for the same predicate.
type BrowseResult struct {
	Entries []catalog.Entry
	Total   int
}

// Waterfall stage names reported in QueryResult.
const (
	StageVector          = "vector"
	StageLexical         = "lexical"
	StageLexicalNoFilter = "lexical-unfiltered"
	StageBrowse          = "browse"
	StageEmpty           = "empty"
)

// QueryResult carries hybrid query hits and which stage produced them.
type QueryResult struct {
	Entries []catalog.Entry
	Stage   string
}

// RetrievalService is the read path. It never returns an error for "no
// results" and excludes dead and opaque-named rows everywhere.
type RetrievalService struct {
	entries store.CatalogStore
	skills  store.SkillStore
	index   vector.Index
	embed   vector.Embedder
	intent  IntentExtractor
	logger  *zap.Logger
}

// RetrievalOption configures optional collaborators.
type RetrievalOption func(*RetrievalService)

// WithSemantic enables the vector stage of hybrid queries.
func WithSemantic(idx vector.Index, emb vector.Embedder) RetrievalOption {
	return func(s *RetrievalService) {
		s.index = idx
		s.embed = emb
	}
}

// WithIntentExtractor enables structured intent extraction for hybrid queries.
func WithIntentExtractor(x IntentExtractor) RetrievalOption {
	return func(s *RetrievalService) { s.intent = x }
}

// NewRetrievalService builds the read path over the given stores.
func NewRetrievalService(entries store.CatalogStore, skills store.SkillStore, logger *zap.Logger, opts ...RetrievalOption) *RetrievalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RetrievalService{entries: entries, skills: skills, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs a lexical full-text search over non-dead, non-opaque entries.
func (s *RetrievalService) Search(ctx context.Context, req SearchRequest) ([]store.ScoredEntry, error) {
	f := store.EntryFilter{
		Category:      req.Category,
		Runtime:       req.Runtime,
		Tags:          req.Tags,
		OpenClawReady: req.OpenClawReady,
		SelfHostable:  req.SelfHostable,
		VerifiedOnly:  req.VerifiedOnly,
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultResultLimit
	}
	hits, err := s.entries.SearchLexical(ctx, req.Query, f, limit)
	if err != nil {
		metrics.ObserveSearch("lexical", "error")
		return nil, err
	}
	metrics.ObserveSearch("lexical", outcome(len(hits)))
	return hits, nil
}

// Browse lists one page of entries plus the total for the identical filter.
// The filter value is computed once and reused so the count can never drift
// from the page contents.
func (s *RetrievalService) Browse(ctx context.Context, req BrowseRequest) (BrowseResult, error) {
	f := store.EntryFilter{Category: req.Category}
	order := req.Order
	if order == "" {
		order = store.OrderByStars
	}
	page := req.Page
	if page.Limit <= 0 {
		page.Limit = defaultResultLimit
	}

	total, err := s.entries.Count(ctx, f)
	if err != nil {
		return BrowseResult{}, err
	}
	rows, err := s.entries.List(ctx, f, order, page)
	if err != nil {
		return BrowseResult{}, err
	}
	metrics.ObserveSearch("browse", outcome(len(rows)))
	return BrowseResult{Entries: rows, Total: total}, nil
}

// Query answers a free-text question with a strict waterfall: intent
// extraction, then vector search, then filtered lexical, then unfiltered
// lexical, then a category popularity browse. A stage runs only when every
// prior stage returned zero rows; results are never merged across stages.
func (s *RetrievalService) Query(ctx context.Context, query string, limit int) (QueryResult, error) {
	if limit <= 0 {
		limit = defaultResultLimit
	}
	intent := s.extractIntent(ctx, query)
	category := s.categoryHint(intent)

	if hits := s.vectorStage(ctx, intent, category, limit); len(hits) > 0 {
		metrics.ObserveSearch("hybrid", StageVector)
		return QueryResult{Entries: hits, Stage: StageVector}, nil
	}

	keywords := intent.Keywords
	if strings.TrimSpace(keywords) == "" {
		keywords = query
	}

	if category != nil {
		hits, err := s.entries.SearchLexical(ctx, keywords, store.EntryFilter{Category: category}, limit)
		if err != nil {
			return QueryResult{}, err
		}
		if len(hits) > 0 {
			metrics.ObserveSearch("hybrid", StageLexical)
			return QueryResult{Entries: entriesOf(hits), Stage: StageLexical}, nil
		}
	}

	// The category hint may have been over-specific; retry without it.
	hits, err := s.entries.SearchLexical(ctx, keywords, store.EntryFilter{}, limit)
	if err != nil {
		return QueryResult{}, err
	}
	if len(hits) > 0 {
		metrics.ObserveSearch("hybrid", StageLexicalNoFilter)
		return QueryResult{Entries: entriesOf(hits), Stage: StageLexicalNoFilter}, nil
	}

	if category != nil {
		rows, err := s.entries.List(ctx, store.EntryFilter{Category: category}, store.OrderByStars, store.Page{Limit: limit})
		if err != nil {
			return QueryResult{}, err
		}
		if len(rows) > 0 {
			metrics.ObserveSearch("hybrid", StageBrowse)
			return QueryResult{Entries: rows, Stage: StageBrowse}, nil
		}
	}

	metrics.ObserveSearch("hybrid", StageEmpty)
	return QueryResult{Stage: StageEmpty}, nil
}

// SearchSkills runs a lexical search over the skills catalog.
func (s *RetrievalService) SearchSkills(ctx context.Context, query string, category *catalog.SkillCategory, limit int) ([]store.ScoredSkill, error) {
	if limit <= 0 {
		limit = defaultResultLimit
	}
	return s.skills.SearchLexical(ctx, query, store.SkillFilter{Category: category}, limit)
}

// BrowseSkills lists one page of skills plus the total for the same filter.
func (s *RetrievalService) BrowseSkills(ctx context.Context, category *catalog.SkillCategory, page store.Page) ([]catalog.Skill, int, error) {
	f := store.SkillFilter{Category: category}
	if page.Limit <= 0 {
		page.Limit = defaultResultLimit
	}
	total, err := s.skills.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.skills.List(ctx, f, store.OrderByStars, page)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// extractIntent fails open: any extraction problem degrades to the raw query.
func (s *RetrievalService) extractIntent(ctx context.Context, query string) Intent {
	if s.intent == nil {
		return Intent{Keywords: query}
	}
	intent, err := s.intent.Extract(ctx, query)
	if err != nil {
		s.logger.Debug("intent extraction failed, using raw query", zap.Error(err))
		return Intent{Keywords: query}
	}
	if strings.TrimSpace(intent.Keywords) == "" {
		intent.Keywords = query
	}
	return intent
}

func (s *RetrievalService) categoryHint(intent Intent) *catalog.Category {
	if intent.Category == "" {
		return nil
	}
	c := catalog.Category(strings.ToLower(intent.Category))
	if !c.Valid() {
		return nil
	}
	return &c
}

// vectorStage returns nearest-neighbor hits, or nil when semantic search is
// not configured or yields nothing usable.
func (s *RetrievalService) vectorStage(ctx context.Context, intent Intent, category *catalog.Category, limit int) []catalog.Entry {
	if s.index == nil || s.embed == nil {
		return nil
	}
	emb, err := s.embed.Embed(ctx, intent.Keywords)
	if err != nil {
		s.logger.Debug("embedding failed, skipping vector stage", zap.Error(err))
		return nil
	}
	var filter map[string]string
	if category != nil {
		filter = map[string]string{"category": string(*category)}
	}
	matches, err := s.index.Query(ctx, emb, filter, limit)
	if err != nil {
		s.logger.Debug("vector query failed, skipping vector stage", zap.Error(err))
		return nil
	}

	var out []catalog.Entry
	for _, m := range matches {
		e, err := s.entries.GetByID(ctx, m.ID)
		if err != nil {
			if !errors.Is(err, catalog.ErrNotFound) {
				s.logger.Debug("vector hit lookup failed", zap.String("id", m.ID), zap.Error(err))
			}
			continue
		}
		if e.DeadLink || catalog.IsOpaqueID(e.Name) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func entriesOf(hits []store.ScoredEntry) []catalog.Entry {
	out := make([]catalog.Entry, len(hits))
	for i, h := range hits {
		out[i] = h.Entry
	}
	return out
}

func outcome(n int) string {
	if n == 0 {
		return "empty"
	}
	return "hit"
}
