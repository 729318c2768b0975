package normalize

import (
	"fmt"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
)

// RegistryResult is one hit from the package registry's search endpoint.
type RegistryResult struct {
	Package   RegistryPackage   `json:"package"`
	Downloads RegistryDownloads `json:"downloads"`
}

// RegistryPackage is the package metadata block.
type RegistryPackage struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Keywords    []string          `json:"keywords"`
	Links       RegistryLinks     `json:"links"`
	Publisher   RegistryPublisher `json:"publisher"`
	License     string            `json:"license"`
}

// RegistryLinks carries the package's outbound URLs.
type RegistryLinks struct {
	NPM        string `json:"npm"`
	Homepage   string `json:"homepage"`
	Repository string `json:"repository"`
}

// RegistryPublisher identifies the publishing account.
type RegistryPublisher struct {
	Username string `json:"username"`
}

// RegistryDownloads carries registry download counters.
type RegistryDownloads struct {
	Monthly int `json:"monthly"`
}

// Registry maps a package-registry search hit to an entry input. The
// repository link is preferred as the source URL; the registry page is the
// fallback so scoped packages without a repo still land once.
func (n *Normalizer) Registry(res RegistryResult) (catalog.EntryInput, error) {
	pkg := res.Package
	if pkg.Name == "" {
		return catalog.EntryInput{}, fmt.Errorf("%w: package has no name", ErrMalformedRecord)
	}
	sourceURL := pkg.Links.Repository
	if sourceURL == "" {
		sourceURL = pkg.Links.NPM
	}
	if sourceURL == "" {
		return catalog.EntryInput{}, fmt.Errorf("%w: package %q has no repository or registry link", ErrMalformedRecord, pkg.Name)
	}

	description := clampDescription(pkg.Description)
	if description == "" {
		description = FallbackDescription(pkg.Name)
	}

	return catalog.EntryInput{
		Slug:        canonical.NamespacedSlug(pkg.Publisher.Username, pkg.Name),
		Name:        pkg.Name,
		Tagline:     Tagline(description),
		Description: description,
		Category:    n.categories.Infer(pkg.Keywords, description),
		Tags:        pkg.Keywords,
		SourceURL:   sourceURL,
		DocsURL:     pkg.Links.Homepage,
		LicenseType: pkg.License,
		Runtime:     catalog.RuntimeNode,
		Downloads:   intPtr(res.Downloads.Monthly),
		SubmittedBy: "registry-ingest",
	}, nil
}
