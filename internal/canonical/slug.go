package canonical

import "strings"

const maxSlugLen = 80

// Slug derives a URL-safe identifier from name: lowercased, with every run of
// non-alphanumeric characters collapsed to a single hyphen, outer hyphens
// stripped, and the result length-capped. Deterministic: the same name always
// yields the same slug.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	slug := b.String()
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}

// NamespacedSlug prefixes the slug with a publisher namespace for sources
// where the same tool name can appear under many authors. Keeps slugs
// globally unique without numeric suffixes.
func NamespacedSlug(namespace, name string) string {
	ns := Slug(namespace)
	s := Slug(name)
	if ns == "" {
		return s
	}
	if s == "" {
		return ns
	}
	combined := ns + "-" + s
	if len(combined) > maxSlugLen {
		combined = strings.TrimRight(combined[:maxSlugLen], "-")
	}
	return combined
}
