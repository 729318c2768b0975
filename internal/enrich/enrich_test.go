package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/service"
	storememory "github.com/openclaw/forager/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

const opaqueHash = "6508e2b4a1c5f2d3e4b5a697"

func testClient() *httpx.Client {
	return httpx.New(httpx.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
		Timeout:     2 * time.Second,
	}, nil)
}

func seedOpaque(t *testing.T, st *storememory.CatalogStore) catalog.Entry {
	t.Helper()
	e := catalog.Entry{
		ID:        "opaque-1",
		Name:      opaqueHash,
		Category:  catalog.CategoryAIAgents,
		SourceURL: "https://huggingface.co/" + opaqueHash,
	}
	require.NoError(t, st.Insert(context.Background(), e))
	return e
}

func TestResolvesViaSecondEndpointFamily(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/models/" + opaqueHash:
			http.NotFound(w, r)
		case "/api/spaces/" + opaqueHash:
			_, _ = w.Write([]byte(`{"id": "acme/clarity", "author": "acme",
  "pipeline_tag": "text-generation", "tags": ["agents"], "downloads": 900, "likes": 40}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	st := storememory.NewCatalogStore()
	e := seedOpaque(t, st)
	svc := service.NewCatalogService(st, nil)

	r := New(st, svc, testClient(), ts.URL, "", 0, nil)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1, Resolved: 1}, sum)

	got, err := st.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, "clarity", got.Name)
	assert.False(t, got.DeadLink)
	assert.False(t, catalog.IsOpaqueID(got.Name))
}

func TestMarksDeadWhenAllThreeEndpointsMiss(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer ts.Close()

	st := storememory.NewCatalogStore()
	e := seedOpaque(t, st)
	svc := service.NewCatalogService(st, nil)

	r := New(st, svc, testClient(), ts.URL, "", 0, nil)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1, MarkedDead: 1}, sum)

	got, err := st.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, got.DeadLink)
	// Still opaque-named: dead, not rewritten.
	assert.Equal(t, opaqueHash, got.Name)
}

func TestLeavesEntryUntouchedOnAmbiguousOutcome(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream wobble", http.StatusInternalServerError)
	}))
	defer ts.Close()

	st := storememory.NewCatalogStore()
	e := seedOpaque(t, st)
	svc := service.NewCatalogService(st, nil)

	r := New(st, svc, testClient(), ts.URL, "", 0, nil)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Scanned: 1, Ambiguous: 1}, sum)

	got, err := st.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, got.DeadLink)
	assert.Equal(t, opaqueHash, got.Name)
}
