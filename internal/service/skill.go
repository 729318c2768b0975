package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/events"
	"github.com/openclaw/forager/internal/store"
)

// SkillService owns every write to the skills catalog. It mirrors
// CatalogService; the taxonomies diverge, so the two services stay parallel
// rather than shared.
type SkillService struct {
	store     store.SkillStore
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewSkillService builds a skill service over the given store.
func NewSkillService(st store.SkillStore, publisher events.Publisher, logger *zap.Logger) *SkillService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SkillService{store: st, publisher: publisher, logger: logger, now: time.Now}
}

// Create validates and stores a new skill.
func (s *SkillService) Create(ctx context.Context, in catalog.SkillInput) (catalog.Skill, error) {
	if err := in.Validate(); err != nil {
		return catalog.Skill{}, err
	}
	sourceURL, err := canonical.NormalizeSourceURL(in.SourceURL)
	if err != nil {
		return catalog.Skill{}, fmt.Errorf("%w: source url: %v", catalog.ErrInvalidInput, err)
	}

	now := s.now().UTC()
	sk := catalog.Skill{
		ID:             uuid.NewString(),
		Slug:           s.slugFor(in),
		Name:           in.Name,
		Tagline:        in.Tagline,
		Description:    in.Description,
		Category:       in.Category,
		Tags:           canonical.Tags(in.Tags),
		SourceURL:      sourceURL,
		InstallCommand: in.InstallCommand,
		Author:         in.Author,
		SubmittedBy:    in.SubmittedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Stars != nil {
		sk.Stars = *in.Stars
	}
	if in.Downloads != nil {
		sk.Downloads = *in.Downloads
	}
	if in.Verified != nil {
		sk.Verified = *in.Verified
	}

	if err := s.store.Insert(ctx, sk); err != nil {
		return catalog.Skill{}, err
	}
	s.publish(events.TopicSkillUpserted, sk)
	return sk, nil
}

// Update merges the provided fields into the stored skill.
func (s *SkillService) Update(ctx context.Context, id string, in catalog.SkillInput) (catalog.Skill, error) {
	sk, err := s.store.GetByID(ctx, id)
	if err != nil {
		return catalog.Skill{}, err
	}
	if err := s.merge(&sk, in); err != nil {
		return catalog.Skill{}, err
	}
	sk.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, sk); err != nil {
		return catalog.Skill{}, err
	}
	s.publish(events.TopicSkillUpserted, sk)
	return sk, nil
}

// UpsertBySourceURL updates the skill owning the normalized URL or creates
// it. Every skill adapter goes through here.
func (s *SkillService) UpsertBySourceURL(ctx context.Context, in catalog.SkillInput) (catalog.Skill, bool, error) {
	sourceURL, err := canonical.NormalizeSourceURL(in.SourceURL)
	if err != nil {
		return catalog.Skill{}, false, fmt.Errorf("%w: source url: %v", catalog.ErrInvalidInput, err)
	}
	existing, err := s.store.GetBySourceURL(ctx, sourceURL)
	switch {
	case err == nil:
		updated, uerr := s.Update(ctx, existing.ID, in)
		return updated, false, uerr
	case errors.Is(err, catalog.ErrNotFound):
		created, cerr := s.Create(ctx, in)
		if cerr != nil {
			return catalog.Skill{}, false, cerr
		}
		return created, true, nil
	default:
		return catalog.Skill{}, false, err
	}
}

// GetBySlug returns one skill by slug.
func (s *SkillService) GetBySlug(ctx context.Context, slug string) (catalog.Skill, error) {
	return s.store.GetBySlug(ctx, slug)
}

// MarkDeadLink flips only the dead flag and the verification timestamp.
func (s *SkillService) MarkDeadLink(ctx context.Context, id string, dead bool) error {
	return s.store.SetDeadLink(ctx, id, dead, s.now().UTC())
}

func (s *SkillService) slugFor(in catalog.SkillInput) string {
	if in.Slug != "" {
		return canonical.Slug(in.Slug)
	}
	return canonical.Slug(in.Name)
}

func (s *SkillService) merge(sk *catalog.Skill, in catalog.SkillInput) error {
	if in.Name != "" {
		if len(in.Name) > catalog.MaxNameLen {
			return fmt.Errorf("%w: name exceeds %d chars", catalog.ErrInvalidInput, catalog.MaxNameLen)
		}
		sk.Name = in.Name
	}
	if in.Slug != "" {
		sk.Slug = canonical.Slug(in.Slug)
	}
	if in.Tagline != "" {
		if len(in.Tagline) > catalog.MaxTaglineLen {
			return fmt.Errorf("%w: tagline exceeds %d chars", catalog.ErrInvalidInput, catalog.MaxTaglineLen)
		}
		sk.Tagline = in.Tagline
	}
	if in.Description != "" {
		if len(in.Description) > catalog.MaxDescriptionLen {
			return fmt.Errorf("%w: description exceeds %d chars", catalog.ErrInvalidInput, catalog.MaxDescriptionLen)
		}
		sk.Description = in.Description
	}
	if in.Category != "" {
		if !in.Category.Valid() {
			return fmt.Errorf("%w: unknown skill category %q", catalog.ErrInvalidInput, in.Category)
		}
		sk.Category = in.Category
	}
	if in.Tags != nil {
		sk.Tags = canonical.Tags(in.Tags)
	}
	if in.InstallCommand != "" {
		sk.InstallCommand = in.InstallCommand
	}
	if in.Author != "" {
		sk.Author = in.Author
	}
	if in.Stars != nil {
		sk.Stars = *in.Stars
	}
	if in.Downloads != nil {
		sk.Downloads = *in.Downloads
	}
	if in.Verified != nil {
		sk.Verified = *in.Verified
	}
	return nil
}

func (s *SkillService) publish(topic string, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if _, err := s.publisher.Publish(ctx, topic, payload); err != nil {
			s.logger.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}
