// Package postgres provides Postgres-backed persistence implementations.
//
// Full-text search rides on a trigger-maintained tsvector column; bulk loads
// that bypass the triggers call Reindex afterwards. The source_url column
// carries the uniqueness constraint that keeps concurrent upserts at one
// logical row per normalized URL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// opaqueNameSQL mirrors catalog.IsOpaqueID for in-database filtering.
const opaqueNameSQL = `name !~ '^[0-9a-fA-F]{20,}$'`

// DB is the subset of pgxpool.Pool the stores use; pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	CatalogTable    string
	SkillsTable     string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// CatalogStore implements store.CatalogStore on Postgres.
type CatalogStore struct {
	db    DB
	table string
}

// NewPool builds a pgx pool from config.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// NewCatalogStore constructs a catalog store over db.
func NewCatalogStore(db DB, table string) (*CatalogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if table == "" {
		table = "catalog_entries"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &CatalogStore{db: db, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *CatalogStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// EnsureSchema creates the table, indexes, and tsvector trigger when absent.
func (s *CatalogStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	tagline TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	tags TEXT[] NOT NULL DEFAULT '{}',
	source_url TEXT NOT NULL UNIQUE,
	docs_url TEXT NOT NULL DEFAULT '',
	license_type TEXT NOT NULL DEFAULT '',
	runtime TEXT NOT NULL DEFAULT 'other',
	chains TEXT[] NOT NULL DEFAULT '{}',
	openclaw_ready BOOLEAN NOT NULL DEFAULT FALSE,
	self_hostable BOOLEAN NOT NULL DEFAULT FALSE,
	stars INT NOT NULL DEFAULT 0,
	downloads INT NOT NULL DEFAULT 0,
	trending_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	dead_link BOOLEAN NOT NULL DEFAULT FALSE,
	last_verified_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	submitted_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	tsv tsvector
);
CREATE INDEX IF NOT EXISTS %[1]s_tsv_idx ON %[1]s USING GIN (tsv);
CREATE INDEX IF NOT EXISTS %[1]s_category_idx ON %[1]s (category);
CREATE OR REPLACE FUNCTION %[1]s_tsv_update() RETURNS trigger AS $$
BEGIN
	NEW.tsv := to_tsvector('english',
		coalesce(NEW.name, '') || ' ' ||
		coalesce(NEW.tagline, '') || ' ' ||
		coalesce(NEW.description, '') || ' ' ||
		array_to_string(NEW.tags, ' '));
	RETURN NEW;
END
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS %[1]s_tsv_trigger ON %[1]s;
CREATE TRIGGER %[1]s_tsv_trigger BEFORE INSERT OR UPDATE ON %[1]s
	FOR EACH ROW EXECUTE FUNCTION %[1]s_tsv_update();
`, s.table)
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	return nil
}

const entryColumns = `id, slug, name, tagline, description, category, tags, source_url,
docs_url, license_type, runtime, chains, openclaw_ready, self_hostable, stars,
downloads, trending_score, dead_link, last_verified_at, verified, submitted_by,
created_at, updated_at`

// Insert adds a new entry. A source_url conflict fails closed with
// catalog.ErrDuplicate rather than silently updating.
func (s *CatalogStore) Insert(ctx context.Context, e catalog.Entry) error {
	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
ON CONFLICT (source_url) DO NOTHING`, s.table, entryColumns)

	tag, err := s.db.Exec(ctx, query, entryArgs(e)...)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrDuplicate
	}
	return nil
}

// Update rewrites every column of the entry row identified by id.
func (s *CatalogStore) Update(ctx context.Context, e catalog.Entry) error {
	query := fmt.Sprintf(`
UPDATE %s SET
	slug=$2, name=$3, tagline=$4, description=$5, category=$6, tags=$7,
	source_url=$8, docs_url=$9, license_type=$10, runtime=$11, chains=$12,
	openclaw_ready=$13, self_hostable=$14, stars=$15, downloads=$16,
	trending_score=$17, dead_link=$18, last_verified_at=$19, verified=$20,
	submitted_by=$21, created_at=$22, updated_at=$23
WHERE id=$1`, s.table)

	tag, err := s.db.Exec(ctx, query, entryArgs(e)...)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// GetByID fetches one entry by primary key.
func (s *CatalogStore) GetByID(ctx context.Context, id string) (catalog.Entry, error) {
	return s.getBy(ctx, "id", id)
}

// GetBySlug fetches one entry by slug.
func (s *CatalogStore) GetBySlug(ctx context.Context, slug string) (catalog.Entry, error) {
	return s.getBy(ctx, "slug", slug)
}

// GetBySourceURL fetches one entry by its normalized source URL.
func (s *CatalogStore) GetBySourceURL(ctx context.Context, sourceURL string) (catalog.Entry, error) {
	return s.getBy(ctx, "source_url", sourceURL)
}

func (s *CatalogStore) getBy(ctx context.Context, column, value string) (catalog.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, entryColumns, s.table, column)
	e, err := scanEntry(s.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Entry{}, catalog.ErrNotFound
		}
		return catalog.Entry{}, fmt.Errorf("get entry by %s: %w", column, err)
	}
	return e, nil
}

// List returns filtered entries in the requested order.
func (s *CatalogStore) List(ctx context.Context, f store.EntryFilter, order store.Order, page store.Page) ([]catalog.Entry, error) {
	conds, args := entryConds(f, 1)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s`,
		entryColumns, s.table, strings.Join(conds, " AND "), orderClause(order))
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// Count returns the number of rows matching the same predicate List uses.
func (s *CatalogStore) Count(ctx context.Context, f store.EntryFilter) (int, error) {
	conds, args := entryConds(f, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.table, strings.Join(conds, " AND "))
	var count int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// SearchLexical runs a full-text match ranked by ts_rank_cd, best first.
func (s *CatalogStore) SearchLexical(ctx context.Context, query string, f store.EntryFilter, limit int) ([]store.ScoredEntry, error) {
	conds, args := entryConds(f, 2)
	args = append([]any{query}, args...)
	sql := fmt.Sprintf(`
SELECT %s, ts_rank_cd(tsv, q) AS rank
FROM %s, websearch_to_tsquery('english', $1) AS q
WHERE tsv @@ q AND %s
ORDER BY rank DESC`, entryColumns, s.table, strings.Join(conds, " AND "))
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var out []store.ScoredEntry
	for rows.Next() {
		var (
			e    catalog.Entry
			rank float64
		)
		if err := rows.Scan(entryDests(&e, &rank)...); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, store.ScoredEntry{Entry: e, Score: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

// SetDeadLink touches only dead_link and last_verified_at.
func (s *CatalogStore) SetDeadLink(ctx context.Context, id string, dead bool, verifiedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET dead_link=$2, last_verified_at=$3 WHERE id=$1`, s.table)
	tag, err := s.db.Exec(ctx, query, id, dead, verifiedAt)
	if err != nil {
		return fmt.Errorf("set dead link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// ListOpaqueNamed returns entries whose display name is an unresolved hash.
func (s *CatalogStore) ListOpaqueNamed(ctx context.Context, limit int) ([]catalog.Entry, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE NOT (%s) ORDER BY created_at`,
		entryColumns, s.table, opaqueNameSQL)
	args := []any{}
	if limit > 0 {
		args = append(args, limit)
		query += " LIMIT $1"
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opaque-named entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// Reindex rebuilds the tsvector column for every row, for loads that bypass
// the per-row trigger.
func (s *CatalogStore) Reindex(ctx context.Context) error {
	query := fmt.Sprintf(`
UPDATE %s SET tsv = to_tsvector('english',
	coalesce(name,'') || ' ' || coalesce(tagline,'') || ' ' ||
	coalesce(description,'') || ' ' || array_to_string(tags, ' '))`, s.table)
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("reindex entries: %w", err)
	}
	return nil
}

func entryArgs(e catalog.Entry) []any {
	return []any{
		e.ID, e.Slug, e.Name, e.Tagline, e.Description, string(e.Category),
		e.Tags, e.SourceURL, e.DocsURL, e.LicenseType, string(e.Runtime),
		e.Chains, e.OpenClawReady, e.SelfHostable, e.Stars, e.Downloads,
		e.TrendingScore, e.DeadLink, e.LastVerifiedAt, e.Verified,
		e.SubmittedBy, e.CreatedAt, e.UpdatedAt,
	}
}

func entryDests(e *catalog.Entry, extra ...any) []any {
	dests := []any{
		&e.ID, &e.Slug, &e.Name, &e.Tagline, &e.Description, &e.Category,
		&e.Tags, &e.SourceURL, &e.DocsURL, &e.LicenseType, &e.Runtime,
		&e.Chains, &e.OpenClawReady, &e.SelfHostable, &e.Stars, &e.Downloads,
		&e.TrendingScore, &e.DeadLink, &e.LastVerifiedAt, &e.Verified,
		&e.SubmittedBy, &e.CreatedAt, &e.UpdatedAt,
	}
	return append(dests, extra...)
}

func scanEntry(row pgx.Row) (catalog.Entry, error) {
	var e catalog.Entry
	if err := row.Scan(entryDests(&e)...); err != nil {
		return catalog.Entry{}, err
	}
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]catalog.Entry, error) {
	var out []catalog.Entry
	for rows.Next() {
		var e catalog.Entry
		if err := rows.Scan(entryDests(&e)...); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry rows: %w", err)
	}
	return out, nil
}

// entryConds renders the filter into WHERE conditions with placeholders
// starting at startIdx. Every query path shares this, so a page and its
// count can never disagree on the predicate.
func entryConds(f store.EntryFilter, startIdx int) ([]string, []any) {
	conds := []string{"TRUE"}
	var args []any
	idx := startIdx

	if !f.IncludeDead {
		conds = append(conds, "NOT dead_link")
	}
	if !f.IncludeOpaque {
		conds = append(conds, opaqueNameSQL)
	}
	if f.Category != nil {
		conds = append(conds, fmt.Sprintf("category = $%d", idx))
		args = append(args, string(*f.Category))
		idx++
	}
	if f.Runtime != nil {
		conds = append(conds, fmt.Sprintf("runtime = $%d", idx))
		args = append(args, string(*f.Runtime))
		idx++
	}
	if len(f.Tags) > 0 {
		conds = append(conds, fmt.Sprintf("tags @> $%d", idx))
		args = append(args, f.Tags)
		idx++
	}
	if f.OpenClawReady != nil {
		conds = append(conds, fmt.Sprintf("openclaw_ready = $%d", idx))
		args = append(args, *f.OpenClawReady)
		idx++
	}
	if f.SelfHostable != nil {
		conds = append(conds, fmt.Sprintf("self_hostable = $%d", idx))
		args = append(args, *f.SelfHostable)
		idx++
	}
	if f.VerifiedOnly {
		conds = append(conds, "verified")
	}
	return conds, args
}

func orderClause(order store.Order) string {
	switch order {
	case store.OrderByTrending:
		return "trending_score DESC, stars DESC"
	case store.OrderByRecency:
		return "updated_at DESC"
	default:
		return "stars DESC, downloads DESC"
	}
}
