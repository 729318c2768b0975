package canonical

import "strings"

// tagAliases maps cleaned variant spellings to one canonical tag. Keys are
// the post-clean form (lowercase, hyphenated).
var tagAliases = map[string]string{
	"model-context-protocol": "mcp",
	"mcp-server":             "mcp",
	"mcp-servers":            "mcp",
	"modelcontextprotocol":   "mcp",
	"de-fi":                  "defi",
	"decentralized-finance":  "defi",
	"nodejs":                 "node",
	"node-js":                "node",
	"js":                     "javascript",
	"ts":                     "typescript",
	"golang":                 "go",
	"ai-agent":               "ai-agents",
	"agents":                 "ai-agents",
	"llm-agent":              "ai-agents",
	"k8s":                    "kubernetes",
	"web-3":                  "web3",
	"crypto-currency":        "cryptocurrency",
	"smart-contracts":        "smart-contract",
}

// Tag lowercases the tag, collapses whitespace runs to hyphens, then resolves
// it through the alias table. Unknown tags pass through cleaned. Canonical
// tags are fixed points: Tag(Tag(x)) == Tag(x).
func Tag(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.Join(strings.Fields(cleaned), "-")
	if canonical, ok := tagAliases[cleaned]; ok {
		return canonical
	}
	return cleaned
}

// Tags canonicalizes a tag list and deduplicates the result, preserving
// first-seen order. Empty tags are dropped.
func Tags(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		canonical := Tag(t)
		if canonical == "" {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	return out
}
