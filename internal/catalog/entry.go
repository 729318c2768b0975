// Package catalog defines the canonical entry shapes stored by the service.
package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

// Category is the closed classification set for catalog entries.
type Category string

// Catalog categories, ordered here roughly by inference priority.
const (
	CategoryMCP      Category = "mcp"
	CategoryDeFi     Category = "defi"
	CategoryWeb3     Category = "web3"
	CategoryAIAgents Category = "ai-agents"
	CategoryDevTools Category = "dev-tools"
	CategoryInfra    Category = "infrastructure"
	CategoryData     Category = "data"
	CategorySecurity Category = "security"
	CategoryOther    Category = "other"
)

// Categories lists every valid catalog category.
func Categories() []Category {
	return []Category{
		CategoryMCP,
		CategoryDeFi,
		CategoryWeb3,
		CategoryAIAgents,
		CategoryDevTools,
		CategoryInfra,
		CategoryData,
		CategorySecurity,
		CategoryOther,
	}
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Runtime is the closed runtime/language classification.
type Runtime string

// Known runtimes. Unmapped provider languages land in RuntimeOther.
const (
	RuntimeNode    Runtime = "node"
	RuntimePython  Runtime = "python"
	RuntimeGo      Runtime = "go"
	RuntimeRust    Runtime = "rust"
	RuntimeBrowser Runtime = "browser"
	RuntimeDocker  Runtime = "docker"
	RuntimeBinary  Runtime = "binary"
	RuntimeOther   Runtime = "other"
)

// Field limits enforced on create.
const (
	MaxTaglineLen     = 160
	MaxDescriptionLen = 2000
	MaxNameLen        = 200
)

// Entry is the canonical unit of the tool catalog. Identity is the id; the
// normalized SourceURL is the sole dedup key for upserts.
type Entry struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	Tagline        string    `json:"tagline"`
	Description    string    `json:"description"`
	Category       Category  `json:"category"`
	Tags           []string  `json:"tags"`
	SourceURL      string    `json:"sourceUrl"`
	DocsURL        string    `json:"docsUrl,omitempty"`
	LicenseType    string    `json:"licenseType,omitempty"`
	Runtime        Runtime   `json:"runtime"`
	Chains         []string  `json:"chains,omitempty"`
	OpenClawReady  bool      `json:"openclawReady"`
	SelfHostable   bool      `json:"selfHostable"`
	Stars          int       `json:"stars"`
	Downloads      int       `json:"downloads"`
	TrendingScore  float64   `json:"trendingScore"`
	DeadLink       bool      `json:"deadLink"`
	LastVerifiedAt time.Time `json:"lastVerifiedAt"`
	Verified       bool      `json:"verified"`
	SubmittedBy    string    `json:"submittedBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// EntryInput carries the fields a normalizer produces for create/upsert.
// Pointer fields distinguish "not provided" from zero values on update.
type EntryInput struct {
	Slug          string
	Name          string
	Tagline       string
	Description   string
	Category      Category
	Tags          []string
	SourceURL     string
	DocsURL       string
	LicenseType   string
	Runtime       Runtime
	Chains        []string
	OpenClawReady *bool
	SelfHostable  *bool
	Stars         *int
	Downloads     *int
	Verified      *bool
	SubmittedBy   string
}

// Validate checks an input against create-time constraints.
func (in EntryInput) Validate() error {
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
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, in.Category)
	}
	if err := validateURL(in.SourceURL); err != nil {
		return fmt.Errorf("%w: source url: %v", ErrInvalidInput, err)
	}
	if in.DocsURL != "" {
		if err := validateURL(in.DocsURL); err != nil {
			return fmt.Errorf("%w: docs url: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// opaqueID matches provider-internal hash identifiers: a contiguous run of 20+
// hex characters with no namespace separator. Records named this way are
// unusable until re-resolved to an owner/name form.
var opaqueID = regexp.MustCompile(`^[0-9a-fA-F]{20,}$`)

// IsOpaqueID reports whether id looks like an internal hash rather than a
// human-meaningful identifier.
func IsOpaqueID(id string) bool {
	return opaqueID.MatchString(id)
}
