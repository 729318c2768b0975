package normalize

import (
	"fmt"
	"strings"

	"github.com/openclaw/forager/internal/canonical"
	"github.com/openclaw/forager/internal/catalog"
)

// GitHubRepo is the subset of the code-hosting search API's repository shape
// the normalizer consumes.
type GitHubRepo struct {
	FullName        string       `json:"full_name"`
	HTMLURL         string       `json:"html_url"`
	Description     string       `json:"description"`
	Homepage        string       `json:"homepage"`
	Topics          []string     `json:"topics"`
	Language        string       `json:"language"`
	StargazersCount int          `json:"stargazers_count"`
	License         *RepoLicense `json:"license"`
	Owner           RepoOwner    `json:"owner"`
}

// RepoLicense carries the license identifier.
type RepoLicense struct {
	SPDXID string `json:"spdx_id"`
}

// RepoOwner carries the publishing account.
type RepoOwner struct {
	Login string `json:"login"`
}

// GitHub maps a repository search result to an entry input.
func (n *Normalizer) GitHub(repo GitHubRepo) (catalog.EntryInput, error) {
	if repo.FullName == "" || repo.HTMLURL == "" {
		return catalog.EntryInput{}, fmt.Errorf("%w: repo is missing full_name or html_url", ErrMalformedRecord)
	}

	owner, name, ok := strings.Cut(repo.FullName, "/")
	if !ok {
		owner, name = "", repo.FullName
	}

	description := clampDescription(repo.Description)
	if description == "" {
		description = FallbackDescription(name)
	}

	signals := append([]string{}, repo.Topics...)
	signals = append(signals, repo.Language)

	licenseType := ""
	if repo.License != nil {
		licenseType = repo.License.SPDXID
	}

	return catalog.EntryInput{
		Slug:        canonical.NamespacedSlug(owner, name),
		Name:        name,
		Tagline:     Tagline(description),
		Description: description,
		Category:    n.categories.Infer(signals, description),
		Tags:        repo.Topics,
		SourceURL:   repo.HTMLURL,
		DocsURL:     repo.Homepage,
		LicenseType: licenseType,
		Runtime:     MapRuntime(repo.Language),
		Stars:       intPtr(repo.StargazersCount),
		SubmittedBy: "github-ingest",
	}, nil
}
