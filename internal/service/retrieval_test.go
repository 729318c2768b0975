package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/store"
	storememory "github.com/openclaw/forager/internal/store/memory"
	"github.com/openclaw/forager/internal/vector"
	vectormemory "github.com/openclaw/forager/internal/vector/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

func emptyEntryFilter() store.EntryFilter { return store.EntryFilter{} }

type stubIntent struct {
	intent Intent
	err    error
}

func (s stubIntent) Extract(context.Context, string) (Intent, error) {
	return s.intent, s.err
}

type stubEmbedder struct {
	vectors map[string][]float32
}

func (s stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return nil, errors.New("no vector for text")
}

func seedEntry(t *testing.T, st *storememory.CatalogStore, e catalog.Entry) catalog.Entry {
	t.Helper()
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	require.NoError(t, st.Insert(context.Background(), e))
	return e
}

func TestSearchExcludesDeadAndOpaqueRows(t *testing.T) {
	st := storememory.NewCatalogStore()
	seedEntry(t, st, catalog.Entry{
		ID: "1", Name: "swap router", Category: catalog.CategoryDeFi,
		SourceURL: "https://github.com/a/one",
	})
	seedEntry(t, st, catalog.Entry{
		ID: "2", Name: "swap aggregator", Category: catalog.CategoryDeFi,
		SourceURL: "https://github.com/a/two", DeadLink: true,
	})
	seedEntry(t, st, catalog.Entry{
		ID: "3", Name: "6508e2b4a1c5f2d3e4b5a697", Tagline: "swap thing",
		Category: catalog.CategoryDeFi, SourceURL: "https://github.com/a/three",
	})

	svc := NewRetrievalService(st, storememory.NewSkillStore(), nil)
	hits, err := svc.Search(context.Background(), SearchRequest{Query: "swap"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].Entry.ID)
}

func TestBrowseTotalMatchesUnpaginatedResults(t *testing.T) {
	st := storememory.NewCatalogStore()
	cat := catalog.CategoryDevTools
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		seedEntry(t, st, catalog.Entry{
			ID: id, Name: "tool " + id, Category: cat, Stars: i * 10,
			SourceURL: "https://github.com/t/" + id,
		})
	}

	svc := NewRetrievalService(st, storememory.NewSkillStore(), nil)
	res, err := svc.Browse(context.Background(), BrowseRequest{
		Category: &cat,
		Page:     store.Page{Limit: 2},
	})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.Equal(t, 5, res.Total)
	// Popularity order: highest stars first.
	assert.Equal(t, "e", res.Entries[0].ID)
}

func TestQueryUsesVectorStageFirst(t *testing.T) {
	st := storememory.NewCatalogStore()
	e := seedEntry(t, st, catalog.Entry{
		ID: "vec-1", Name: "onchain analyzer", Category: catalog.CategoryDeFi,
		SourceURL: "https://github.com/v/one",
	})

	idx := vectormemory.NewIndex()
	require.NoError(t, idx.Upsert(context.Background(), vector.Document{
		ID:        e.ID,
		Embedding: []float32{1, 0, 0},
		Metadata:  map[string]string{"category": string(catalog.CategoryDeFi)},
	}))
	emb := stubEmbedder{vectors: map[string][]float32{"onchain analysis": {1, 0, 0}}}

	svc := NewRetrievalService(st, storememory.NewSkillStore(), nil,
		WithSemantic(idx, emb),
		WithIntentExtractor(stubIntent{intent: Intent{Keywords: "onchain analysis", Category: "defi"}}),
	)

	res, err := svc.Query(context.Background(), "find me an onchain analyzer", 10)
	require.NoError(t, err)
	assert.Equal(t, StageVector, res.Stage)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, e.ID, res.Entries[0].ID)
}

func TestQueryFallsBackToUnfilteredLexical(t *testing.T) {
	st := storememory.NewCatalogStore()
	// The only matching row lives outside the hinted category, so the
	// filtered lexical stage comes up empty and the unfiltered retry must
	// return it.
	seedEntry(t, st, catalog.Entry{
		ID: "lex-1", Name: "wallet inspector", Category: catalog.CategoryWeb3,
		SourceURL: "https://github.com/l/one",
	})

	svc := NewRetrievalService(st, storememory.NewSkillStore(), nil,
		WithIntentExtractor(stubIntent{intent: Intent{Keywords: "wallet", Category: "defi"}}),
	)

	res, err := svc.Query(context.Background(), "wallet tools", 10)
	require.NoError(t, err)
	assert.Equal(t, StageLexicalNoFilter, res.Stage)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "lex-1", res.Entries[0].ID)
}

func TestQueryFallsBackToCategoryBrowse(t *testing.T) {
	st := storememory.NewCatalogStore()
	seedEntry(t, st, catalog.Entry{
		ID: "pop-1", Name: "popular thing", Category: catalog.CategoryDeFi, Stars: 500,
		SourceURL: "https://github.com/p/one",
	})

	svc := NewRetrievalService(st, storememory.NewSkillStore(), nil,
		WithIntentExtractor(stubIntent{intent: Intent{Keywords: "zzzz no match", Category: "defi"}}),
	)

	res, err := svc.Query(context.Background(), "zzzz no match", 10)
	require.NoError(t, err)
	assert.Equal(t, StageBrowse, res.Stage)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "pop-1", res.Entries[0].ID)
}

func TestQueryReturnsEmptyWithoutError(t *testing.T) {
	st := storememory.NewCatalogStore()
	svc := NewRetrievalService(st, storememory.NewSkillStore(), nil)

	res, err := svc.Query(context.Background(), "nothing here", 10)
	require.NoError(t, err)
	assert.Equal(t, StageEmpty, res.Stage)
	assert.Empty(t, res.Entries)
}

func TestQueryIntentExtractionFailsOpen(t *testing.T) {
	st := storememory.NewCatalogStore()
	seedEntry(t, st, catalog.Entry{
		ID: "raw-1", Name: "tracer probe", Category: catalog.CategoryDevTools,
		SourceURL: "https://github.com/r/one",
	})

	svc := NewRetrievalService(st, storememory.NewSkillStore(), nil,
		WithIntentExtractor(stubIntent{err: errors.New("model offline")}),
	)

	// Extraction fails, so the raw query text drives the lexical stage.
	res, err := svc.Query(context.Background(), "tracer", 10)
	require.NoError(t, err)
	assert.Equal(t, StageLexicalNoFilter, res.Stage)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "raw-1", res.Entries[0].ID)
}

func TestQueryIgnoresUnknownCategoryHint(t *testing.T) {
	st := storememory.NewCatalogStore()
	seedEntry(t, st, catalog.Entry{
		ID: "u-1", Name: "indexer", Category: catalog.CategoryData,
		SourceURL: "https://github.com/u/one",
	})

	svc := NewRetrievalService(st, storememory.NewSkillStore(), nil,
		WithIntentExtractor(stubIntent{intent: Intent{Keywords: "indexer", Category: "not-a-category"}}),
	)

	res, err := svc.Query(context.Background(), "indexer", 10)
	require.NoError(t, err)
	assert.Equal(t, StageLexicalNoFilter, res.Stage)
	require.Len(t, res.Entries, 1)
}
