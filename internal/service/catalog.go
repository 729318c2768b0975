// Package service holds the write path (catalog/skill services) and the read
// path (retrieval service) on top of the store contracts.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/events"
	"github.com/openclaw/forager/internal/store"
	"github.com/openclaw/forager/internal/vector"
)

const sideEffectTimeout = 5 * time.Second

// CatalogService owns every write to the tool catalog. Adapters must go
// through UpsertBySourceURL so re-runs stay idempotent.
type CatalogService struct {
	store     store.CatalogStore
	publisher events.Publisher
	index     vector.Index
	embedder  vector.Embedder
	scorer    Scorer
	logger    *zap.Logger
	now       func() time.Time
}

// CatalogOption configures optional collaborators.
type CatalogOption func(*CatalogService)

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) CatalogOption {
	return func(s *CatalogService) { s.publisher = p }
}

// WithVector sets the vector index and embedder used to mirror upserts.
func WithVector(idx vector.Index, emb vector.Embedder) CatalogOption {
	return func(s *CatalogService) {
		s.index = idx
		s.embedder = emb
	}
}

// WithScorer overrides the trending score implementation.
func WithScorer(sc Scorer) CatalogOption {
	return func(s *CatalogService) { s.scorer = sc }
}

func withNow(now func() time.Time) CatalogOption {
	return func(s *CatalogService) { s.now = now }
}

// NewCatalogService builds a catalog service over the given store.
func NewCatalogService(st store.CatalogStore, logger *zap.Logger, opts ...CatalogOption) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CatalogService{
		store:     st,
		publisher: events.Noop{},
		scorer:    DefaultScorer{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new entry. The normalized source URL is the
// identity key: a concurrent insert of the same URL fails closed with
// catalog.ErrDuplicate rather than producing a second row.
func (s *CatalogService) Create(ctx context.Context, in catalog.EntryInput) (catalog.Entry, error) {
	if err := in.Validate(); err != nil {
		return catalog.Entry{}, err
	}
	sourceURL, err := canonical.NormalizeSourceURL(in.SourceURL)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("%w: source url: %v", catalog.ErrInvalidInput, err)
	}

	now := s.now().UTC()
	e := catalog.Entry{
		ID:          uuid.NewString(),
		Slug:        s.slugFor(in),
		Name:        in.Name,
		Tagline:     in.Tagline,
		Description: in.Description,
		Category:    in.Category,
		Tags:        canonical.Tags(in.Tags),
		SourceURL:   sourceURL,
		DocsURL:     in.DocsURL,
		LicenseType: in.LicenseType,
		Runtime:     in.Runtime,
		Chains:      in.Chains,
		SubmittedBy: in.SubmittedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if e.Runtime == "" {
		e.Runtime = catalog.RuntimeOther
	}
	if in.OpenClawReady != nil {
		e.OpenClawReady = *in.OpenClawReady
	}
	if in.SelfHostable != nil {
		e.SelfHostable = *in.SelfHostable
	}
	if in.Stars != nil {
		e.Stars = *in.Stars
	}
	if in.Downloads != nil {
		e.Downloads = *in.Downloads
	}
	if in.Verified != nil {
		e.Verified = *in.Verified
	}
	e.TrendingScore = s.scorer.Score(e.Stars, e.Downloads, e.UpdatedAt, now)

	if err := s.store.Insert(ctx, e); err != nil {
		return catalog.Entry{}, err
	}
	s.afterWrite(e)
	return e, nil
}

// Update merges the provided fields into the stored entry. Only touched
// fields are sanity-checked; partial inputs legitimately omit fields that
// are required on create.
func (s *CatalogService) Update(ctx context.Context, id string, in catalog.EntryInput) (catalog.Entry, error) {
	e, err := s.store.GetByID(ctx, id)
	if err != nil {
		return catalog.Entry{}, err
	}
	if err := s.merge(&e, in); err != nil {
		return catalog.Entry{}, err
	}
	now := s.now().UTC()
	e.UpdatedAt = now
	e.TrendingScore = s.scorer.Score(e.Stars, e.Downloads, e.UpdatedAt, now)
	if err := s.store.Update(ctx, e); err != nil {
		return catalog.Entry{}, err
	}
	s.afterWrite(e)
	return e, nil
}

// UpsertBySourceURL is the single entry point for ingestion: update the row
// owning the normalized URL if it exists, create it otherwise.
func (s *CatalogService) UpsertBySourceURL(ctx context.Context, in catalog.EntryInput) (catalog.Entry, bool, error) {
	sourceURL, err := canonical.NormalizeSourceURL(in.SourceURL)
	if err != nil {
		return catalog.Entry{}, false, fmt.Errorf("%w: source url: %v", catalog.ErrInvalidInput, err)
	}
	existing, err := s.store.GetBySourceURL(ctx, sourceURL)
	switch {
	case err == nil:
		updated, uerr := s.Update(ctx, existing.ID, in)
		return updated, false, uerr
	case errors.Is(err, catalog.ErrNotFound):
		created, cerr := s.Create(ctx, in)
		if cerr != nil {
			return catalog.Entry{}, false, cerr
		}
		return created, true, nil
	default:
		return catalog.Entry{}, false, err
	}
}

// GetByID returns one entry by id.
func (s *CatalogService) GetByID(ctx context.Context, id string) (catalog.Entry, error) {
	return s.store.GetByID(ctx, id)
}

// GetBySlug returns one entry by slug.
func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (catalog.Entry, error) {
	return s.store.GetBySlug(ctx, slug)
}

// GetBySourceURL normalizes the URL and returns the owning entry.
func (s *CatalogService) GetBySourceURL(ctx context.Context, rawURL string) (catalog.Entry, error) {
	sourceURL, err := canonical.NormalizeSourceURL(rawURL)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("%w: source url: %v", catalog.ErrInvalidInput, err)
	}
	return s.store.GetBySourceURL(ctx, sourceURL)
}

// MarkDeadLink flips only the dead flag and the verification timestamp. It
// must never route through Update: a health sweep may not clobber curated
// fields.
func (s *CatalogService) MarkDeadLink(ctx context.Context, id string, dead bool) error {
	if err := s.store.SetDeadLink(ctx, id, dead, s.now().UTC()); err != nil {
		return err
	}
	if dead {
		s.publish(events.TopicEntryDead, map[string]string{"id": id})
	}
	return nil
}

func (s *CatalogService) slugFor(in catalog.EntryInput) string {
	if in.Slug != "" {
		return canonical.Slug(in.Slug)
	}
	return canonical.Slug(in.Name)
}

func (s *CatalogService) merge(e *catalog.Entry, in catalog.EntryInput) error {
	if in.Name != "" {
		if len(in.Name) > catalog.MaxNameLen {
			return fmt.Errorf("%w: name exceeds %d chars", catalog.ErrInvalidInput, catalog.MaxNameLen)
		}
		e.Name = in.Name
	}
	if in.Slug != "" {
		e.Slug = canonical.Slug(in.Slug)
	}
	if in.Tagline != "" {
		if len(in.Tagline) > catalog.MaxTaglineLen {
			return fmt.Errorf("%w: tagline exceeds %d chars", catalog.ErrInvalidInput, catalog.MaxTaglineLen)
		}
		e.Tagline = in.Tagline
	}
	if in.Description != "" {
		if len(in.Description) > catalog.MaxDescriptionLen {
			return fmt.Errorf("%w: description exceeds %d chars", catalog.ErrInvalidInput, catalog.MaxDescriptionLen)
		}
		e.Description = in.Description
	}
	if in.Category != "" {
		if !in.Category.Valid() {
			return fmt.Errorf("%w: unknown category %q", catalog.ErrInvalidInput, in.Category)
		}
		e.Category = in.Category
	}
	if in.Tags != nil {
		e.Tags = canonical.Tags(in.Tags)
	}
	if in.SourceURL != "" {
		u, err := canonical.NormalizeSourceURL(in.SourceURL)
		if err != nil {
			return fmt.Errorf("%w: source url: %v", catalog.ErrInvalidInput, err)
		}
		e.SourceURL = u
	}
	if in.DocsURL != "" {
		e.DocsURL = in.DocsURL
	}
	if in.LicenseType != "" {
		e.LicenseType = in.LicenseType
	}
	if in.Runtime != "" {
		e.Runtime = in.Runtime
	}
	if in.Chains != nil {
		e.Chains = in.Chains
	}
	if in.OpenClawReady != nil {
		e.OpenClawReady = *in.OpenClawReady
	}
	if in.SelfHostable != nil {
		e.SelfHostable = *in.SelfHostable
	}
	if in.Stars != nil {
		e.Stars = *in.Stars
	}
	if in.Downloads != nil {
		e.Downloads = *in.Downloads
	}
	if in.Verified != nil {
		e.Verified = *in.Verified
	}
	return nil
}

// afterWrite fires the best-effort side effects: event publish and vector
// mirror. Neither can fail the write that triggered it.
func (s *CatalogService) afterWrite(e catalog.Entry) {
	s.publish(events.TopicEntryUpserted, e)
	if s.index == nil || s.embedder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		text := strings.TrimSpace(e.Name + " " + e.Tagline + " " + e.Description)
		emb, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("embed for vector mirror failed", zap.String("id", e.ID), zap.Error(err))
			return
		}
		doc := vector.Document{
			ID:        e.ID,
			Embedding: emb,
			Metadata:  map[string]string{"category": string(e.Category)},
		}
		if err := s.index.Upsert(ctx, doc); err != nil {
			s.logger.Warn("vector upsert failed", zap.String("id", e.ID), zap.Error(err))
		}
	}()
}

func (s *CatalogService) publish(topic string, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if _, err := s.publisher.Publish(ctx, topic, payload); err != nil {
			s.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}
