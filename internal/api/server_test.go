package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/clicks"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/service"
	storememory "github.com/openclaw/forager/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*Server, *service.CatalogService) {
	t.Helper()
	entryStore := storememory.NewCatalogStore()
	skillStore := storememory.NewSkillStore()
	catalogSvc := service.NewCatalogService(entryStore, nil)
	retrieval := service.NewRetrievalService(entryStore, skillStore, nil)
	return NewServer(catalogSvc, retrieval, clicks.New(nil, nil), 100, nil), catalogSvc
}

func seedEntry(t *testing.T, svc *service.CatalogService, name, url string, category catalog.Category) catalog.Entry {
	t.Helper()
	e, err := svc.Create(context.Background(), catalog.EntryInput{
		Name:        name,
		Description: "Seeded " + name + " for handler tests.",
		Category:    category,
		SourceURL:   url,
	})
	require.NoError(t, err)
	return e
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSearchReturnsEmptyListNotError(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/search?q=nothing+matches+this")
	require.Equal(t, http.StatusOK, rec.Code)

	var body searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Results)
	assert.Zero(t, body.Total)
}

func TestSearchFindsSeededEntry(t *testing.T) {
	s, svc := newTestServer(t)
	seedEntry(t, svc, "Ledger Inspector", "https://github.com/acme/ledger-inspector", catalog.CategoryDeFi)

	rec := doRequest(t, s, http.MethodGet, "/v1/search?q=ledger&category=defi")
	require.Equal(t, http.StatusOK, rec.Code)

	var body searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Ledger Inspector", body.Results[0].Name)
	assert.Greater(t, body.Results[0].Score, 0.0)
}

func TestSearchRejectsMissingQueryAndBadCategory(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/v1/search?q=x&category=gadgets")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBrowseReturnsTotalAlongsidePage(t *testing.T) {
	s, svc := newTestServer(t)
	for _, n := range []string{"one", "two", "three"} {
		seedEntry(t, svc, "tool "+n, "https://github.com/acme/"+n, catalog.CategoryDevTools)
	}

	rec := doRequest(t, s, http.MethodGet, "/v1/browse?category=dev-tools&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var body browseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Entries, 2)
	assert.Equal(t, 3, body.Total)
}

func TestQueryNeverErrorsOnZeroResults(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/v1/query?q=absolutely+nothing")
	require.Equal(t, http.StatusOK, rec.Code)

	var body queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Entries)
	assert.Equal(t, service.StageEmpty, body.Stage)
}

func TestGetEntryBySlug(t *testing.T) {
	s, svc := newTestServer(t)
	e := seedEntry(t, svc, "Solo Tool", "https://github.com/acme/solo-tool", catalog.CategoryInfra)

	rec := doRequest(t, s, http.MethodGet, "/v1/entries/"+e.Slug)
	require.Equal(t, http.StatusOK, rec.Code)

	var got catalog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, e.ID, got.ID)

	rec = doRequest(t, s, http.MethodGet, "/v1/entries/missing-slug")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClickAcknowledgesWithoutRedis(t *testing.T) {
	s, svc := newTestServer(t)
	e := seedEntry(t, svc, "Clicky", "https://github.com/acme/clicky", catalog.CategoryOther)

	// No redis client configured: recording is a no-op but still accepted.
	rec := doRequest(t, s, http.MethodPost, "/v1/entries/"+e.ID+"/click")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/v1/entries/unknown/click")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSkillEndpoints(t *testing.T) {
	entryStore := storememory.NewCatalogStore()
	skillStore := storememory.NewSkillStore()
	catalogSvc := service.NewCatalogService(entryStore, nil)
	skillSvc := service.NewSkillService(skillStore, nil, nil)
	retrieval := service.NewRetrievalService(entryStore, skillStore, nil)
	s := NewServer(catalogSvc, retrieval, clicks.New(nil, nil), 100, nil)

	_, err := skillSvc.Create(context.Background(), catalog.SkillInput{
		Name:           "Inbox Triage",
		Description:    "Sorts incoming mail into folders.",
		Category:       catalog.SkillAutomation,
		SourceURL:      "https://github.com/openclaw/inbox-triage",
		InstallCommand: "clawhub install inbox-triage",
	})
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/v1/skills/search?q=inbox")
	require.Equal(t, http.StatusOK, rec.Code)
	var search skillSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	require.Len(t, search.Results, 1)
	assert.Equal(t, "clawhub install inbox-triage", search.Results[0].InstallCommand)

	rec = doRequest(t, s, http.MethodGet, "/v1/skills/browse?category=automation")
	require.Equal(t, http.StatusOK, rec.Code)
	var browse skillBrowseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &browse))
	assert.Equal(t, 1, browse.Total)
	require.Len(t, browse.Skills, 1)
}
