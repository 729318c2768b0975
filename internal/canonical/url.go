// Package canonical implements slug, URL, and tag canonicalization. The
// normalized source URL produced here is the dedup identity for every upsert,
// so all lookups by URL must pass through NormalizeSourceURL first.
package canonical

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeSourceURL reduces a URL to scheme://host/path. Query string,
// fragment, and trailing slash are stripped; scheme and host are lowercased
// and default ports removed, so cosmetic variants of the same address
// collapse to one identity.
func NormalizeSourceURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is missing scheme or host", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	path := strings.TrimSuffix(u.Path, "/")

	return u.Scheme + "://" + u.Host + path, nil
}
