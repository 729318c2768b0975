package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSourceURLEquivalence(t *testing.T) {
	variants := []string{
		"https://x.com/a/b/?ref=1",
		"https://x.com/a/b/",
		"https://x.com/a/b",
		"https://X.COM/a/b#readme",
		"https://x.com:443/a/b",
	}
	want := "https://x.com/a/b"
	for _, raw := range variants {
		got, err := NormalizeSourceURL(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestNormalizeSourceURLErrors(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/only", "://x"} {
		_, err := NormalizeSourceURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestNormalizeSourceURLKeepsHTTPDefaultPortRule(t *testing.T) {
	got, err := NormalizeSourceURL("http://example.org:80/tools/")
	require.NoError(t, err)
	assert.Equal(t, "http://example.org/tools", got)

	got, err = NormalizeSourceURL("http://example.org:8080/tools")
	require.NoError(t, err)
	assert.Equal(t, "http://example.org:8080/tools", got)
}

func TestSlug(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"My Cool Tool", "my-cool-tool"},
		{"  hello---world!! ", "hello-world"},
		{"Ünicode Café", "nicode-caf"},
		{"already-slugged", "already-slugged"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.name), tc.name)
	}
	// Deterministic.
	assert.Equal(t, Slug("Same Name"), Slug("Same Name"))
}

func TestSlugLengthCap(t *testing.T) {
	long := ""
	for range 30 {
		long += "abcdefgh "
	}
	s := Slug(long)
	assert.LessOrEqual(t, len(s), maxSlugLen)
	assert.NotEqual(t, byte('-'), s[len(s)-1])
}

func TestNamespacedSlug(t *testing.T) {
	assert.Equal(t, "acme-widget", NamespacedSlug("Acme", "Widget"))
	assert.Equal(t, "widget", NamespacedSlug("", "Widget"))
	assert.Equal(t, "acme", NamespacedSlug("Acme", ""))
}

func TestTagAliasCollapsing(t *testing.T) {
	got := Tags([]string{"MCP", "mcp", "Mcp", "Model Context Protocol", "mcp-server"})
	assert.Equal(t, []string{"mcp"}, got)
}

func TestTagIdempotence(t *testing.T) {
	for _, tag := range []string{"mcp", "defi", "web3", "some-unknown-tag"} {
		assert.Equal(t, tag, Tag(tag))
		assert.Equal(t, Tag(tag), Tag(Tag(tag)))
	}
}

func TestTagsPassThroughUnknown(t *testing.T) {
	got := Tags([]string{"  Fancy   Widgets ", "GoLang", ""})
	assert.Equal(t, []string{"fancy-widgets", "go"}, got)
}
