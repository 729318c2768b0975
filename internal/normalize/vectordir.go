package normalize

import (
	"fmt"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
)

// VectorDirResult is one hit from the vector-search directory.
type VectorDirResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// VectorDir maps a directory hit to an entry input.
func (n *Normalizer) VectorDir(res VectorDirResult) (catalog.EntryInput, error) {
	if res.Title == "" || res.URL == "" {
		return catalog.EntryInput{}, fmt.Errorf("%w: directory result is missing title or url", ErrMalformedRecord)
	}

	description := clampDescription(res.Text)
	if description == "" {
		description = FallbackDescription(res.Title)
	}

	return catalog.EntryInput{
		Slug:        canonical.Slug(res.Title),
		Name:        res.Title,
		Tagline:     Tagline(description),
		Description: description,
		Category:    n.categories.Infer(nil, description),
		SourceURL:   res.URL,
		Runtime:     catalog.RuntimeOther,
		SubmittedBy: "vectordir-ingest",
	}, nil
}
