package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openclaw/forager/internal/catalog"
)

func TestInferPriorityOrdering(t *testing.T) {
	inf := NewInferrer()

	// DeFi must win over the generic Web3 bucket when both signals are present.
	got := inf.Infer([]string{"defi", "web3"}, "")
	assert.Equal(t, catalog.CategoryDeFi, got)

	// MCP outranks everything.
	got = inf.Infer([]string{"defi", "web3", "mcp"}, "")
	assert.Equal(t, catalog.CategoryMCP, got)
}

func TestInferFromDescriptionText(t *testing.T) {
	inf := NewInferrer()

	cases := []struct {
		desc string
		want catalog.Category
	}{
		{"An MCP server exposing filesystem tools", catalog.CategoryMCP},
		{"Track liquidity pool positions across chains", catalog.CategoryDeFi},
		{"Mint and trade NFT collections", catalog.CategoryWeb3},
		{"Build an autonomous agent with LLM planning", catalog.CategoryAIAgents},
		{"A fast linter for shell scripts", catalog.CategoryDevTools},
		{"Deploy anything to Kubernetes", catalog.CategoryInfra},
		{"Streaming ETL for event data", catalog.CategoryData},
		{"Scan dependencies for vulnerability reports", catalog.CategorySecurity},
		{"A nice collection of wallpapers", catalog.CategoryOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, inf.Infer(nil, tc.desc), tc.desc)
	}
}

func TestInferCaseInsensitive(t *testing.T) {
	inf := NewInferrer()
	assert.Equal(t, catalog.CategoryDeFi, inf.Infer([]string{"DeFi"}, ""))
	assert.Equal(t, catalog.CategoryWeb3, inf.Infer([]string{"BLOCKCHAIN"}, ""))
}

func TestSkillInferrer(t *testing.T) {
	inf := NewSkillInferrer()

	cases := []struct {
		desc string
		want catalog.SkillCategory
	}{
		{"Refactor code across the repo", catalog.SkillCoding},
		{"Summarize a research paper", catalog.SkillResearch},
		{"Send a Slack message", catalog.SkillCommunication},
		{"Query SQL and build a chart", catalog.SkillData},
		{"Connect any webhook", catalog.SkillIntegration},
		{"Schedule recurring workflow runs", catalog.SkillAutomation},
		{"Tells knock-knock jokes", catalog.SkillOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, inf.Infer(nil, tc.desc), tc.desc)
	}
}
