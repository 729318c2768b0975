package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/service"
	"github.com/openclaw/forager/internal/store"
	storememory "github.com/openclaw/forager/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

func testClient() *httpx.Client {
	return httpx.New(httpx.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    50 * time.Millisecond,
		Timeout:     2 * time.Second,
	}, nil)
}

func testSink(t *testing.T) (*service.CatalogService, *storememory.CatalogStore) {
	t.Helper()
	st := storememory.NewCatalogStore()
	return service.NewCatalogService(st, nil), st
}

const githubFixture = `{
  "total_count": 2,
  "items": [
    {
      "full_name": "acme/mcp-bridge",
      "html_url": "https://github.com/acme/mcp-bridge",
      "description": "Bridge MCP servers to anything.",
      "topics": ["mcp", "ai"],
      "language": "Go",
      "stargazers_count": 120,
      "license": {"spdx_id": "MIT"},
      "owner": {"login": "acme"}
    },
    {
      "full_name": "acme/defi-scan",
      "html_url": "https://github.com/acme/defi-scan",
      "description": "Scan defi protocols.",
      "topics": ["defi", "web3"],
      "language": "TypeScript",
      "stargazers_count": 80,
      "owner": {"login": "acme"}
    }
  ]
}`

func TestGitHubAdapterIsIdempotent(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(githubFixture))
	}))
	defer ts.Close()

	sink, st := testSink(t)
	cfg := config.SourceConfig{BaseURL: ts.URL, MaxResults: 50, PageSize: 100}
	adapter := NewGitHubAdapter(testClient(), sink, cfg, "", nil, "raw", nil)

	for run := 0; run < 2; run++ {
		res, err := adapter.Run(context.Background())
		require.NoError(t, err)
		// Every curated query returns the same fixture page.
		assert.Equal(t, 2*len(githubQueries), res.Processed)
		assert.Zero(t, res.Errors)
	}

	// Re-ingesting refreshed the same two rows, it did not multiply them.
	total, err := st.Count(context.Background(), store.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Greater(t, calls, 0)
}

func TestGitHubAdapterCountsBadRecordsAndContinues(t *testing.T) {
	const fixture = `{
  "total_count": 2,
  "items": [
    {"full_name": "acme/no-url", "html_url": "", "owner": {"login": "acme"}},
    {
      "full_name": "acme/good",
      "html_url": "https://github.com/acme/good",
      "description": "Fine.",
      "language": "Go",
      "owner": {"login": "acme"}
    }
  ]
}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixture))
	}))
	defer ts.Close()

	sink, st := testSink(t)
	cfg := config.SourceConfig{BaseURL: ts.URL, MaxResults: 50, PageSize: 100}
	adapter := NewGitHubAdapter(testClient(), sink, cfg, "", nil, "raw", nil)

	res, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(githubQueries), res.Processed)
	assert.Equal(t, len(githubQueries), res.Errors)

	total, err := st.Count(context.Background(), store.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestModelHubAdapterRejectsOpaqueIDs(t *testing.T) {
	const fixture = `[
  {"id": "6508e2b4a1c5f2d3e4b5a697", "downloads": 10},
  {"id": "acme/agent-model", "author": "acme", "pipeline_tag": "text-generation",
   "tags": ["agents"], "downloads": 500, "likes": 12}
]`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixture))
	}))
	defer ts.Close()

	sink, st := testSink(t)
	cfg := config.SourceConfig{BaseURL: ts.URL, MaxResults: 50, PageSize: 100}
	adapter := NewModelHubAdapter(testClient(), sink, cfg, "", nil, "raw", nil)

	res, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(modelHubSearches), res.Processed)
	assert.Equal(t, len(modelHubSearches), res.Errors)

	total, err := st.Count(context.Background(), store.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestVectorDirAdapterDedupesAcrossQueries(t *testing.T) {
	const fixture = `{"results": [
  {"id": "dir-1", "title": "Chain Watcher", "url": "https://example.com/tools/chain-watcher",
   "text": "Watches defi chains."}
]}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fixture))
	}))
	defer ts.Close()

	sink, st := testSink(t)
	cfg := config.SourceConfig{BaseURL: ts.URL, MaxResults: 50, PageSize: 25, DelayMs: 1}
	adapter := NewVectorDirAdapter(testClient(), sink, cfg, "", nil, "raw", nil)

	res, err := adapter.Run(context.Background())
	require.NoError(t, err)
	// The same provider id came back for every curated query.
	assert.Equal(t, 1, res.Processed)
	assert.Zero(t, res.Errors)

	total, err := st.Count(context.Background(), store.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSkillsAdapterPaginatesUntilShortPage(t *testing.T) {
	pages := map[string]string{
		"1": `{"skills": [
  {"name": "Inbox Triage", "description": "Sorts incoming mail.",
   "repository": "https://github.com/openclaw/inbox-triage",
   "install": "clawhub install inbox-triage", "author": "openclaw",
   "tags": ["email", "automation"], "downloads": 50, "stars": 5},
  {"name": "Repo Summarizer", "description": "Summarizes repositories.",
   "repository": "https://github.com/openclaw/repo-summarizer",
   "install": "clawhub install repo-summarizer", "author": "openclaw",
   "tags": ["coding"], "downloads": 70, "stars": 9}
]}`,
		"2": `{"skills": [
  {"name": "Meeting Notes", "description": "Takes meeting notes.",
   "repository": "https://github.com/openclaw/meeting-notes",
   "install": "clawhub install meeting-notes", "author": "openclaw",
   "tags": ["communication"], "downloads": 30, "stars": 2}
]}`,
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		body, ok := pages[page]
		if !ok {
			body = `{"skills": []}`
		}
		_, _ = w.Write([]byte(body))
	}))
	defer ts.Close()

	skillStore := storememory.NewSkillStore()
	sink := service.NewSkillService(skillStore, nil, nil)
	cfg := config.SourceConfig{BaseURL: ts.URL, MaxResults: 50, PageSize: 2, DelayMs: 1}
	adapter := NewSkillsAdapter(testClient(), sink, cfg, nil, "raw", nil)

	res, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Zero(t, res.Errors)

	total, err := skillStore.Count(context.Background(), store.SkillFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

type stubAdapter struct {
	name string
	res  Result
	err  error
	wait time.Duration
}

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Run(ctx context.Context) (Result, error) {
	if s.wait > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(s.wait):
		}
	}
	return s.res, s.err
}

func TestOrchestratorSurvivesFailingAdapter(t *testing.T) {
	o := NewOrchestrator(nil,
		stubAdapter{name: "good", res: Result{Processed: 7, Errors: 1}},
		stubAdapter{name: "bad", err: errors.New("source exploded")},
		stubAdapter{name: "slow", res: Result{Processed: 2}, wait: 20 * time.Millisecond},
	)

	results, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, Result{Processed: 7, Errors: 1}, results["good"])
	assert.Equal(t, Result{}, results["bad"])
	assert.Equal(t, Result{Processed: 2}, results["slow"])
}
