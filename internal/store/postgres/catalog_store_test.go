package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/store"
)

func testEntry(now time.Time) catalog.Entry {
	return catalog.Entry{
		ID:             "id-1",
		Slug:           "acme-widget",
		Name:           "widget",
		Tagline:        "A widget",
		Description:    "A widget that widgets",
		Category:       catalog.CategoryDevTools,
		Tags:           []string{"cli"},
		SourceURL:      "https://github.com/acme/widget",
		Runtime:        catalog.RuntimeGo,
		Stars:          10,
		LastVerifiedAt: time.Unix(0, 0).UTC(),
		SubmittedBy:    "github-ingest",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestInsertEntry(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs, err := NewCatalogStore(mock, "catalog_entries")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	e := testEntry(now)

	mock.ExpectExec("INSERT INTO catalog_entries").
		WithArgs(entryArgs(e)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, cs.Insert(context.Background(), e))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertEntryFailsClosedOnConflict(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs, err := NewCatalogStore(mock, "catalog_entries")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	e := testEntry(now)

	// ON CONFLICT DO NOTHING reports zero affected rows on a duplicate.
	mock.ExpectExec("INSERT INTO catalog_entries").
		WithArgs(entryArgs(e)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err = cs.Insert(context.Background(), e)
	assert.ErrorIs(t, err, catalog.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBySourceURLNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs, err := NewCatalogStore(mock, "catalog_entries")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .* FROM catalog_entries WHERE source_url").
		WithArgs("https://github.com/acme/missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = cs.GetBySourceURL(context.Background(), "https://github.com/acme/missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestSetDeadLinkTouchesOnlyAuditColumns(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs, err := NewCatalogStore(mock, "catalog_entries")
	require.NoError(t, err)

	verifiedAt := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec(`UPDATE catalog_entries SET dead_link=\$2, last_verified_at=\$3 WHERE id=\$1`).
		WithArgs("id-1", true, verifiedAt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, cs.SetDeadLink(context.Background(), "id-1", true, verifiedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUsesSamePredicateShape(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs, err := NewCatalogStore(mock, "catalog_entries")
	require.NoError(t, err)

	cat := catalog.CategoryDeFi
	f := store.EntryFilter{Category: &cat, Tags: []string{"defi", "dex"}}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM catalog_entries WHERE TRUE AND NOT dead_link`).
		WithArgs(string(cat), f.Tags).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	count, err := cs.Count(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReindexRebuildsVectorColumn(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cs, err := NewCatalogStore(mock, "catalog_entries")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE catalog_entries SET tsv = to_tsvector").
		WillReturnResult(pgxmock.NewResult("UPDATE", 42))

	require.NoError(t, cs.Reindex(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectsInvalidTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewCatalogStore(mock, "catalog; DROP TABLE users")
	assert.Error(t, err)
}
