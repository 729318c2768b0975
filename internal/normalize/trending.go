package normalize

import (
	"fmt"
	"strings"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
)

// TrendingRepo is one block scraped from a trending page. Fields other than
// Link degrade to zero values when the markup drifts; Link is mandatory and
// blocks without it are dropped by the adapter.
type TrendingRepo struct {
	FullName    string
	Link        string
	Description string
	Language    string
	Stars       int
}

// Trending maps a scraped trending block to an entry input.
func (n *Normalizer) Trending(rec TrendingRepo) (catalog.EntryInput, error) {
	if rec.Link == "" {
		return catalog.EntryInput{}, fmt.Errorf("%w: trending block has no link", ErrMalformedRecord)
	}

	owner, name, ok := strings.Cut(rec.FullName, "/")
	owner, name = strings.TrimSpace(owner), strings.TrimSpace(name)
	if !ok || name == "" {
		owner, name = "", strings.TrimPrefix(rec.Link, "https://github.com/")
	}
	if name == "" {
		name = strings.TrimSpace(rec.FullName)
	}

	description := clampDescription(rec.Description)
	if description == "" {
		description = FallbackDescription(name)
	}

	return catalog.EntryInput{
		Slug:        canonical.NamespacedSlug(owner, name),
		Name:        name,
		Tagline:     Tagline(description),
		Description: description,
		Category:    n.categories.Infer([]string{rec.Language}, description),
		SourceURL:   rec.Link,
		Runtime:     MapRuntime(rec.Language),
		Stars:       intPtr(rec.Stars),
		SubmittedBy: "trending-ingest",
	}, nil
}
