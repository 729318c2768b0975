package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/events"
	eventsmemory "github.com/openclaw/forager/internal/events/memory"
	storememory "github.com/openclaw/forager/internal/store/memory"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCatalog(t *testing.T) (*CatalogService, *storememory.CatalogStore) {
	t.Helper()
	st := storememory.NewCatalogStore()
	svc := NewCatalogService(st, nil, withNow(func() time.Time { return testNow }))
	return svc, st
}

func entryInput(name, sourceURL string) catalog.EntryInput {
	return catalog.EntryInput{
		Name:        name,
		Description: "A test tool.",
		Category:    catalog.CategoryDevTools,
		SourceURL:   sourceURL,
	}
}

func TestCreateNormalizesTagsAndURL(t *testing.T) {
	svc, _ := newTestCatalog(t)

	in := entryInput("Widget", "HTTPS://GitHub.com/acme/widget/?ref=1")
	in.Tags = []string{"MCP", "mcp-server", "golang"}

	e, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/acme/widget", e.SourceURL)
	assert.Equal(t, []string{"mcp", "go"}, e.Tags)
	assert.Equal(t, "widget", e.Slug)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, testNow, e.CreatedAt)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestCatalog(t)

	in := entryInput("", "https://github.com/acme/widget")
	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, catalog.ErrInvalidInput)

	in = entryInput("Widget", "ftp://github.com/acme/widget")
	_, err = svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, catalog.ErrInvalidInput)
}

func TestCreateFailsClosedOnDuplicateURL(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, entryInput("Widget", "https://github.com/acme/widget"))
	require.NoError(t, err)

	// Same row under a cosmetically different URL: the normalized form
	// collides and the insert must fail closed, never duplicate.
	_, err = svc.Create(ctx, entryInput("Widget Again", "https://github.com/acme/widget/"))
	assert.ErrorIs(t, err, catalog.ErrDuplicate)
}

func TestUpsertBySourceURLIsIdempotent(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()

	variants := []string{
		"https://github.com/acme/widget",
		"https://github.com/acme/widget/",
		"HTTPS://github.com/acme/widget/?utm=x",
	}

	first, created, err := svc.UpsertBySourceURL(ctx, entryInput("Widget", variants[0]))
	require.NoError(t, err)
	assert.True(t, created)

	for _, v := range variants[1:] {
		in := entryInput("Widget", v)
		stars := 42
		in.Stars = &stars
		e, created, err := svc.UpsertBySourceURL(ctx, in)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, e.ID)
		assert.Equal(t, 42, e.Stars)
	}

	total, err := st.Count(ctx, emptyEntryFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestUpdateMergesOnlyProvidedFields(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	in := entryInput("Widget", "https://github.com/acme/widget")
	in.Tagline = "Original tagline"
	stars := 10
	in.Stars = &stars
	e, err := svc.Create(ctx, in)
	require.NoError(t, err)

	newStars := 99
	updated, err := svc.Update(ctx, e.ID, catalog.EntryInput{Stars: &newStars})
	require.NoError(t, err)

	assert.Equal(t, 99, updated.Stars)
	assert.Equal(t, "Widget", updated.Name)
	assert.Equal(t, "Original tagline", updated.Tagline)
	assert.Equal(t, e.CreatedAt, updated.CreatedAt)
}

func TestUpdateRejectsBadTouchedFields(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, entryInput("Widget", "https://github.com/acme/widget"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, e.ID, catalog.EntryInput{Category: "gadgets"})
	assert.ErrorIs(t, err, catalog.ErrInvalidInput)
}

func TestMarkDeadLinkTouchesOnlyAuditFields(t *testing.T) {
	svc, st := newTestCatalog(t)
	ctx := context.Background()

	in := entryInput("Widget", "https://github.com/acme/widget")
	in.Tagline = "Curated tagline"
	e, err := svc.Create(ctx, in)
	require.NoError(t, err)

	require.NoError(t, svc.MarkDeadLink(ctx, e.ID, true))

	got, err := st.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.DeadLink)
	assert.Equal(t, testNow, got.LastVerifiedAt)
	assert.Equal(t, "Curated tagline", got.Tagline)
	assert.Equal(t, e.UpdatedAt, got.UpdatedAt)
}

func TestWritesPublishCatalogEvents(t *testing.T) {
	st := storememory.NewCatalogStore()
	pub := eventsmemory.New()
	svc := NewCatalogService(st, nil, WithPublisher(pub), withNow(func() time.Time { return testNow }))
	ctx := context.Background()

	e, err := svc.Create(ctx, entryInput("Widget", "https://github.com/acme/widget"))
	require.NoError(t, err)
	require.NoError(t, svc.MarkDeadLink(ctx, e.ID, true))

	// Publishing is fire-and-forget, so the events land asynchronously.
	require.Eventually(t, func() bool {
		return len(pub.Events()) == 2
	}, time.Second, 10*time.Millisecond)

	assert.Len(t, pub.ByTopic(events.TopicEntryUpserted), 1)
	assert.Len(t, pub.ByTopic(events.TopicEntryDead), 1)
}

func TestGetBySourceURLNormalizesLookup(t *testing.T) {
	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, entryInput("Widget", "https://github.com/acme/widget"))
	require.NoError(t, err)

	got, err := svc.GetBySourceURL(ctx, "HTTPS://GitHub.com/acme/widget/")
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
}
