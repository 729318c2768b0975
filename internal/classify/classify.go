// Package classify infers a catalog category from source signals.
//
// Matching uses an Aho-Corasick automaton per category, evaluated in a fixed
// specificity order: a DeFi hit must win over a generic Web3 hit because DeFi
// is a semantic subset of Web3, and protocol-specific MCP signals outrank
// everything. Checking in the reverse order misclassifies systematically.
package classify

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/openclaw/forager/internal/catalog"
)

type rule struct {
	category catalog.Category
	matcher  *ahocorasick.Matcher
}

// Inferrer maps free-form signals (topics, keywords, tags, description text)
// to a member of the closed category set.
type Inferrer struct {
	rules []rule
}

// categoryKeywords defines the signal vocabulary per category. Order of the
// outer slice is the priority order.
var categoryKeywords = []struct {
	category catalog.Category
	keywords []string
}{
	{catalog.CategoryMCP, []string{
		"mcp", "model context protocol", "mcp-server", "claude skill", "tool-use protocol",
	}},
	{catalog.CategoryDeFi, []string{
		"defi", "decentralized finance", "dex", "liquidity pool", "yield farming",
		"lending protocol", "amm", "staking", "perpetuals",
	}},
	{catalog.CategoryWeb3, []string{
		"web3", "blockchain", "ethereum", "solana", "smart contract", "nft",
		"crypto", "wallet", "onchain", "evm",
	}},
	{catalog.CategoryAIAgents, []string{
		"ai agent", "llm", "autonomous agent", "agent framework", "chatbot",
		"rag", "prompt", "openai", "anthropic", "inference",
	}},
	{catalog.CategoryDevTools, []string{
		"developer tool", "cli", "sdk", "debugger", "linter", "code generation",
		"testing framework", "ide", "devtools",
	}},
	{catalog.CategoryInfra, []string{
		"infrastructure", "kubernetes", "docker", "terraform", "deployment",
		"observability", "monitoring", "ci/cd", "serverless", "devops",
	}},
	{catalog.CategoryData, []string{
		"database", "data pipeline", "etl", "analytics", "data warehouse",
		"vector database", "search engine", "scraping",
	}},
	{catalog.CategorySecurity, []string{
		"security", "vulnerability", "pentest", "encryption", "audit tool",
		"authentication", "secrets management",
	}},
}

// NewInferrer builds the automatons once; the result is safe for concurrent use.
func NewInferrer() *Inferrer {
	rules := make([]rule, 0, len(categoryKeywords))
	for _, ck := range categoryKeywords {
		rules = append(rules, rule{
			category: ck.category,
			matcher:  ahocorasick.NewStringMatcher(ck.keywords),
		})
	}
	return &Inferrer{rules: rules}
}

// Infer returns the highest-priority category whose keyword set matches the
// combined signals and description, or CategoryOther when nothing matches.
func (i *Inferrer) Infer(signals []string, description string) catalog.Category {
	var b strings.Builder
	for _, s := range signals {
		b.WriteString(strings.ToLower(s))
		b.WriteByte(' ')
	}
	b.WriteString(strings.ToLower(description))
	text := []byte(b.String())

	for _, r := range i.rules {
		if len(r.matcher.Match(text)) > 0 {
			return r.category
		}
	}
	return catalog.CategoryOther
}

// skillKeywords mirrors the tool vocabulary for the skills taxonomy.
var skillKeywords = []struct {
	category catalog.SkillCategory
	keywords []string
}{
	{catalog.SkillCoding, []string{"code", "coding", "refactor", "git", "programming", "debug"}},
	{catalog.SkillResearch, []string{"research", "search", "summarize", "paper", "web browsing"}},
	{catalog.SkillCommunication, []string{"email", "slack", "telegram", "discord", "message", "notify"}},
	{catalog.SkillData, []string{"data", "csv", "spreadsheet", "sql", "chart", "scrape"}},
	{catalog.SkillIntegration, []string{"api", "webhook", "integration", "connector", "oauth"}},
	{catalog.SkillAutomation, []string{"automate", "automation", "schedule", "workflow", "cron", "task"}},
}

// SkillInferrer classifies skills against the skill taxonomy.
type SkillInferrer struct {
	rules []struct {
		category catalog.SkillCategory
		matcher  *ahocorasick.Matcher
	}
}

// NewSkillInferrer builds the skill automatons.
func NewSkillInferrer() *SkillInferrer {
	si := &SkillInferrer{}
	for _, sk := range skillKeywords {
		si.rules = append(si.rules, struct {
			category catalog.SkillCategory
			matcher  *ahocorasick.Matcher
		}{sk.category, ahocorasick.NewStringMatcher(sk.keywords)})
	}
	return si
}

// Infer returns the first matching skill category or SkillOther.
func (i *SkillInferrer) Infer(signals []string, description string) catalog.SkillCategory {
	text := []byte(strings.ToLower(strings.Join(signals, " ") + " " + description))
	for _, r := range i.rules {
		if len(r.matcher.Match(text)) > 0 {
			return r.category
		}
	}
	return catalog.SkillOther
}
