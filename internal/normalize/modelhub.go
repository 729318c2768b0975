package normalize

import (
	"fmt"
	"strings"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
)

// ModelHubRecord is the model hub's listing shape.
type ModelHubRecord struct {
	ID          string   `json:"id"`
	Author      string   `json:"author"`
	PipelineTag string   `json:"pipeline_tag"`
	Tags        []string `json:"tags"`
	Downloads   int      `json:"downloads"`
	Likes       int      `json:"likes"`
}

const modelHubBase = "https://huggingface.co"

// ModelHub maps a model hub record to an entry input. Records identified only
// by an internal hash are rejected with ErrOpaqueIdentifier; the enrichment
// job re-resolves previously stored ones.
func (n *Normalizer) ModelHub(rec ModelHubRecord) (catalog.EntryInput, error) {
	if rec.ID == "" {
		return catalog.EntryInput{}, fmt.Errorf("%w: model record has no id", ErrMalformedRecord)
	}
	if catalog.IsOpaqueID(rec.ID) {
		return catalog.EntryInput{}, fmt.Errorf("%w: %q", ErrOpaqueIdentifier, rec.ID)
	}

	owner, name, ok := strings.Cut(rec.ID, "/")
	if !ok {
		owner, name = rec.Author, rec.ID
	}

	signals := append([]string{rec.PipelineTag}, rec.Tags...)
	description := FallbackDescription(name)
	if rec.PipelineTag != "" {
		description = fmt.Sprintf("%s model published by %s.", rec.PipelineTag, owner)
	}

	return catalog.EntryInput{
		Slug:        canonical.NamespacedSlug(owner, name),
		Name:        name,
		Tagline:     Tagline(description),
		Description: description,
		Category:    n.categories.Infer(signals, description),
		Tags:        rec.Tags,
		SourceURL:   modelHubBase + "/" + rec.ID,
		Runtime:     catalog.RuntimePython,
		Downloads:   intPtr(rec.Downloads),
		Stars:       intPtr(rec.Likes),
		SubmittedBy: "modelhub-ingest",
	}, nil
}
