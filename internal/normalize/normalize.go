// Package normalize maps raw provider records into canonical entry inputs.
//
// Each normalizer is a pure function over one provider's shape: it performs a
// minimal structural check, infers a category, maps the provider language to
// the closed runtime set, and synthesizes fallback text. Untyped provider
// data never travels past this boundary.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/classify"
)

// ErrOpaqueIdentifier marks a record whose id is an internal provider hash
// rather than a human-meaningful owner/name form. Adapters count these as
// errors, not successes.
var ErrOpaqueIdentifier = errors.New("record identifier is an opaque hash")

// ErrMalformedRecord marks a raw record missing required fields.
var ErrMalformedRecord = errors.New("malformed source record")

// Normalizer holds the shared classifiers used by every per-source mapping.
type Normalizer struct {
	categories *classify.Inferrer
	skills     *classify.SkillInferrer
}

// New builds a Normalizer.
func New() *Normalizer {
	return &Normalizer{
		categories: classify.NewInferrer(),
		skills:     classify.NewSkillInferrer(),
	}
}

// runtimeByLanguage maps provider language fields to the closed runtime set.
var runtimeByLanguage = map[string]catalog.Runtime{
	"javascript": catalog.RuntimeNode,
	"typescript": catalog.RuntimeNode,
	"node":       catalog.RuntimeNode,
	"python":     catalog.RuntimePython,
	"jupyter":    catalog.RuntimePython,
	"go":         catalog.RuntimeGo,
	"rust":       catalog.RuntimeRust,
	"html":       catalog.RuntimeBrowser,
	"css":        catalog.RuntimeBrowser,
	"dockerfile": catalog.RuntimeDocker,
	"shell":      catalog.RuntimeBinary,
	"c":          catalog.RuntimeBinary,
	"c++":        catalog.RuntimeBinary,
	"zig":        catalog.RuntimeBinary,
}

// MapRuntime resolves a provider language to a runtime. Unknown and absent
// languages land in RuntimeOther rather than nulling silently.
func MapRuntime(language string) catalog.Runtime {
	if rt, ok := runtimeByLanguage[strings.ToLower(strings.TrimSpace(language))]; ok {
		return rt
	}
	return catalog.RuntimeOther
}

// FallbackDescription synthesizes deterministic placeholder text for records
// arriving without one. Empty descriptions are never stored.
func FallbackDescription(name string) string {
	return fmt.Sprintf("No description provided for %s.", name)
}

// Tagline derives the short line from a description by truncation, keeping
// whole words where possible.
func Tagline(description string) string {
	description = strings.TrimSpace(description)
	if len(description) <= catalog.MaxTaglineLen {
		return description
	}
	// Leave room for the 3-byte ellipsis.
	cut := truncateOnRune(description, catalog.MaxTaglineLen-4)
	if idx := strings.LastIndexByte(cut, ' '); idx > catalog.MaxTaglineLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// clampDescription trims an over-long provider description to the storage cap.
func clampDescription(description string) string {
	description = strings.TrimSpace(description)
	if len(description) <= catalog.MaxDescriptionLen {
		return description
	}
	return truncateOnRune(description, catalog.MaxDescriptionLen)
}

// truncateOnRune cuts s to at most limit bytes without splitting a rune.
// A split multi-byte rune is invalid UTF-8, which Postgres rejects.
func truncateOnRune(s string, limit int) string {
	if limit >= len(s) {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
