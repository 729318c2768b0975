package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/store"
)

const trendingFixture = `<!DOCTYPE html>
<html><body>
<article class="Box-row">
  <h2><a href="/acme/hot-tool">acme / hot-tool</a></h2>
  <p>A very popular tool.</p>
  <span itemprop="programmingLanguage">Rust</span>
  <a href="/acme/hot-tool/stargazers">1,234</a>
</article>
<article class="Box-row">
  <h2><a href="/acme/quiet-tool">acme / quiet-tool</a></h2>
</article>
<article class="Box-row">
  <h2><a href="">broken block</a></h2>
  <p>No link, must be dropped.</p>
</article>
</body></html>`

const trendingDriftedFixture = `<!DOCTYPE html>
<html><body>
<ul class="repo-list">
  <li><a href="/acme/drifted-tool">acme / drifted-tool</a>
    <p>Survived a redesign.</p>
  </li>
</ul>
</body></html>`

func TestTrendingAdapterExtractsBlocksWithDegradedFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(trendingFixture))
	}))
	defer ts.Close()

	sink, st := testSink(t)
	cfg := config.SourceConfig{BaseURL: ts.URL, MaxResults: 50}
	adapter := NewTrendingAdapter(sink, cfg, "forager-test/0.1", nil, "raw", nil)

	res, err := adapter.Run(context.Background())
	require.NoError(t, err)
	// Two blocks have a link; the third lacks the one mandatory field.
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Errors)

	total, err := st.Count(context.Background(), store.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Missing description/language/stars degraded instead of dropping the row.
	quiet, err := st.GetBySourceURL(context.Background(), ts.URL+"/acme/quiet-tool")
	require.NoError(t, err)
	assert.Zero(t, quiet.Stars)
	assert.NotEmpty(t, quiet.Description)

	hot, err := st.GetBySourceURL(context.Background(), ts.URL+"/acme/hot-tool")
	require.NoError(t, err)
	assert.Equal(t, 1234, hot.Stars)
}

func TestTrendingAdapterFallsBackToSecondaryExtraction(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(trendingDriftedFixture))
	}))
	defer ts.Close()

	sink, st := testSink(t)
	cfg := config.SourceConfig{BaseURL: ts.URL, MaxResults: 50}
	adapter := NewTrendingAdapter(sink, cfg, "forager-test/0.1", nil, "raw", nil)

	res, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	total, err := st.Count(context.Background(), store.EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestTrendingAdapterReturnsZeroTupleOnFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	sink, _ := testSink(t)
	cfg := config.SourceConfig{BaseURL: ts.URL, MaxResults: 50}
	adapter := NewTrendingAdapter(sink, cfg, "forager-test/0.1", nil, "raw", nil)

	res, err := adapter.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}
