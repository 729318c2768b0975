package normalize

import (
	"fmt"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
)

// SkillRecord is the skills feed's listing shape.
type SkillRecord struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Repository  string   `json:"repository"`
	Install     string   `json:"install"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	Downloads   int      `json:"downloads"`
	Stars       int      `json:"stars"`
}

// Skill maps a skills-feed record to a skill input.
func (n *Normalizer) Skill(rec SkillRecord) (catalog.SkillInput, error) {
	if rec.Name == "" || rec.Repository == "" {
		return catalog.SkillInput{}, fmt.Errorf("%w: skill is missing name or repository", ErrMalformedRecord)
	}

	description := clampDescription(rec.Description)
	if description == "" {
		description = FallbackDescription(rec.Name)
	}

	return catalog.SkillInput{
		Slug:           canonical.NamespacedSlug(rec.Author, rec.Name),
		Name:           rec.Name,
		Tagline:        Tagline(description),
		Description:    description,
		Category:       n.skills.Infer(rec.Tags, description),
		Tags:           rec.Tags,
		SourceURL:      rec.Repository,
		InstallCommand: rec.Install,
		Author:         rec.Author,
		Stars:          intPtr(rec.Stars),
		Downloads:      intPtr(rec.Downloads),
		SubmittedBy:    "skills-ingest",
	}, nil
}
