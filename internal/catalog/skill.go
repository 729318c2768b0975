package catalog

import (
	"fmt"
	"time"
)

// SkillCategory is the closed classification set for the skills catalog. The
// skills taxonomy diverges from the tools taxonomy, so Skill is a parallel
// type rather than a specialization of Entry.
type SkillCategory string

// Skill categories.
const (
	SkillAutomation    SkillCategory = "automation"
	SkillCoding        SkillCategory = "coding"
	SkillResearch      SkillCategory = "research"
	SkillCommunication SkillCategory = "communication"
	SkillData          SkillCategory = "data"
	SkillIntegration   SkillCategory = "integration"
	SkillOther         SkillCategory = "other"
)

// SkillCategories lists every valid skill category.
func SkillCategories() []SkillCategory {
	return []SkillCategory{
		SkillAutomation,
		SkillCoding,
		SkillResearch,
		SkillCommunication,
		SkillData,
		SkillIntegration,
		SkillOther,
	}
}

// Valid reports whether c is a member of the closed set.
func (c SkillCategory) Valid() bool {
	for _, known := range SkillCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// Skill is the canonical unit of the OpenClaw skills catalog.
type Skill struct {
	ID             string        `json:"id"`
	Slug           string        `json:"slug"`
	Name           string        `json:"name"`
	Tagline        string        `json:"tagline"`
	Description    string        `json:"description"`
	Category       SkillCategory `json:"category"`
	Tags           []string      `json:"tags"`
	SourceURL      string        `json:"sourceUrl"`
	InstallCommand string        `json:"installCommand,omitempty"`
	Author         string        `json:"author,omitempty"`
	Stars          int           `json:"stars"`
	Downloads      int           `json:"downloads"`
	DeadLink       bool          `json:"deadLink"`
	LastVerifiedAt time.Time     `json:"lastVerifiedAt"`
	Verified       bool          `json:"verified"`
	SubmittedBy    string        `json:"submittedBy,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// SkillInput carries the fields produced for skill create/upsert.
type SkillInput struct {
	Slug           string
	Name           string
	Tagline        string
	Description    string
	Category       SkillCategory
	Tags           []string
	SourceURL      string
	InstallCommand string
	Author         string
	Stars          *int
	Downloads      *int
	Verified       *bool
	SubmittedBy    string
}

// Validate checks a skill input against create-time constraints.
func (in SkillInput) Validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(in.Name) > MaxNameLen {
		return fmt.Errorf("%w: name exceeds %d chars", ErrInvalidInput, MaxNameLen)
	}
	if len(in.Tagline) > MaxTaglineLen {
		return fmt.Errorf("%w: tagline exceeds %d chars", ErrInvalidInput, MaxTaglineLen)
	}
	if len(in.Description) > MaxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d chars", ErrInvalidInput, MaxDescriptionLen)
	}
	if !in.Category.Valid() {
		return fmt.Errorf("%w: unknown skill category %q", ErrInvalidInput, in.Category)
	}
	if err := validateURL(in.SourceURL); err != nil {
		return fmt.Errorf("%w: source url: %v", ErrInvalidInput, err)
	}
	return nil
}
