package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
)

// AwesomeItem is one curated-list row, already split out of the markdown by
// the adapter.
type AwesomeItem struct {
	Name        string
	URL         string
	Description string
	Section     string
}

// Awesome maps a curated-list item to an entry input. The section heading is
// the strongest category signal and is fed to the inferrer ahead of the
// description.
func (n *Normalizer) Awesome(item AwesomeItem) (catalog.EntryInput, error) {
	if item.Name == "" || item.URL == "" {
		return catalog.EntryInput{}, fmt.Errorf("%w: curated item is missing name or url", ErrMalformedRecord)
	}

	description := clampDescription(item.Description)
	if description == "" {
		description = FallbackDescription(item.Name)
	}

	return catalog.EntryInput{
		Slug:        canonical.Slug(item.Name),
		Name:        item.Name,
		Tagline:     Tagline(description),
		Description: description,
		Category:    n.categories.Infer([]string{item.Section}, description),
		Tags:        sectionTags(item.Section),
		SourceURL:   item.URL,
		Runtime:     catalog.RuntimeOther,
		Verified:    boolPtr(true),
		SubmittedBy: "awesome-ingest",
	}, nil
}

var awesomeLine = regexp.MustCompile(`^\s*[-*]\s*\[([^\]]+)\]\(([^)\s]+)\)\s*[-–—:]?\s*(.*)$`)

// ParseAwesomeMarkdown extracts list items from curated-list markdown,
// tracking the nearest section heading for each. Rows that do not carry a
// link are skipped; a missing trailing description is tolerated.
func ParseAwesomeMarkdown(md string) []AwesomeItem {
	var items []AwesomeItem
	section := ""
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(line, "#") {
			section = strings.TrimSpace(strings.TrimLeft(line, "# "))
			continue
		}
		m := awesomeLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		items = append(items, AwesomeItem{
			Name:        strings.TrimSpace(m[1]),
			URL:         m[2],
			Description: strings.TrimSpace(m[3]),
			Section:     section,
		})
	}
	return items
}

func sectionTags(section string) []string {
	if section == "" {
		return nil
	}
	return []string{section}
}
