package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/store"
)

// SkillStore implements store.SkillStore on Postgres.
type SkillStore struct {
	db    DB
	table string
}

// NewSkillStore constructs a skill store over db.
func NewSkillStore(db DB, table string) (*SkillStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if table == "" {
		table = "skill_entries"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SkillStore{db: db, table: table}, nil
}

// EnsureSchema creates the skills table and tsvector trigger when absent.
func (s *SkillStore) EnsureSchema(ctx context.Context) error {
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
	install_command TEXT NOT NULL DEFAULT '',
	author TEXT NOT NULL DEFAULT '',
	stars INT NOT NULL DEFAULT 0,
	downloads INT NOT NULL DEFAULT 0,
	dead_link BOOLEAN NOT NULL DEFAULT FALSE,
	last_verified_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch',
	verified BOOLEAN NOT NULL DEFAULT FALSE,
	submitted_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	tsv tsvector
);
CREATE INDEX IF NOT EXISTS %[1]s_tsv_idx ON %[1]s USING GIN (tsv);
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
		return fmt.Errorf("ensure skills schema: %w", err)
	}
	return nil
}

const skillColumns = `id, slug, name, tagline, description, category, tags, source_url,
install_command, author, stars, downloads, dead_link, last_verified_at,
verified, submitted_by, created_at, updated_at`

// Insert adds a new skill, failing closed on a source_url conflict.
func (s *SkillStore) Insert(ctx context.Context, sk catalog.Skill) error {
	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (source_url) DO NOTHING`, s.table, skillColumns)

	tag, err := s.db.Exec(ctx, query, skillArgs(sk)...)
	if err != nil {
		return fmt.Errorf("insert skill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrDuplicate
	}
	return nil
}

// Update rewrites every column of the skill row identified by id.
func (s *SkillStore) Update(ctx context.Context, sk catalog.Skill) error {
	query := fmt.Sprintf(`
UPDATE %s SET
	slug=$2, name=$3, tagline=$4, description=$5, category=$6, tags=$7,
	source_url=$8, install_command=$9, author=$10, stars=$11, downloads=$12,
	dead_link=$13, last_verified_at=$14, verified=$15, submitted_by=$16,
	created_at=$17, updated_at=$18
WHERE id=$1`, s.table)

	tag, err := s.db.Exec(ctx, query, skillArgs(sk)...)
	if err != nil {
		return fmt.Errorf("update skill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// GetByID fetches one skill by id.
func (s *SkillStore) GetByID(ctx context.Context, id string) (catalog.Skill, error) {
	return s.getBy(ctx, "id", id)
}

// GetBySlug fetches one skill by slug.
func (s *SkillStore) GetBySlug(ctx context.Context, slug string) (catalog.Skill, error) {
	return s.getBy(ctx, "slug", slug)
}

// GetBySourceURL fetches one skill by its normalized source URL.
func (s *SkillStore) GetBySourceURL(ctx context.Context, sourceURL string) (catalog.Skill, error) {
	return s.getBy(ctx, "source_url", sourceURL)
}

func (s *SkillStore) getBy(ctx context.Context, column, value string) (catalog.Skill, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, skillColumns, s.table, column)
	var sk catalog.Skill
	if err := s.db.QueryRow(ctx, query, value).Scan(skillDests(&sk)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Skill{}, catalog.ErrNotFound
		}
		return catalog.Skill{}, fmt.Errorf("get skill by %s: %w", column, err)
	}
	return sk, nil
}

// List returns filtered skills ordered by popularity or recency.
func (s *SkillStore) List(ctx context.Context, f store.SkillFilter, order store.Order, page store.Page) ([]catalog.Skill, error) {
	conds, args := skillConds(f, 1)
	orderSQL := "downloads DESC, stars DESC"
	if order == store.OrderByRecency {
		orderSQL = "updated_at DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY %s`,
		skillColumns, s.table, strings.Join(conds, " AND "), orderSQL)
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
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()
	return collectSkills(rows)
}

// Count returns the number of rows matching the same predicate List uses.
func (s *SkillStore) Count(ctx context.Context, f store.SkillFilter) (int, error) {
	conds, args := skillConds(f, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, s.table, strings.Join(conds, " AND "))
	var count int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count skills: %w", err)
	}
	return count, nil
}

// SearchLexical runs a full-text match ranked by ts_rank_cd, best first.
func (s *SkillStore) SearchLexical(ctx context.Context, query string, f store.SkillFilter, limit int) ([]store.ScoredSkill, error) {
	conds, args := skillConds(f, 2)
	args = append([]any{query}, args...)
	sql := fmt.Sprintf(`
SELECT %s, ts_rank_cd(tsv, q) AS rank
FROM %s, websearch_to_tsquery('english', $1) AS q
WHERE tsv @@ q AND %s
ORDER BY rank DESC`, skillColumns, s.table, strings.Join(conds, " AND "))
	if limit > 0 {
		args = append(args, limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("skill lexical search: %w", err)
	}
	defer rows.Close()

	var out []store.ScoredSkill
	for rows.Next() {
		var (
			sk   catalog.Skill
			rank float64
		)
		if err := rows.Scan(skillDests(&sk, &rank)...); err != nil {
			return nil, fmt.Errorf("scan skill search row: %w", err)
		}
		out = append(out, store.ScoredSkill{Skill: sk, Score: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skill search rows: %w", err)
	}
	return out, nil
}

// SetDeadLink touches only dead_link and last_verified_at.
func (s *SkillStore) SetDeadLink(ctx context.Context, id string, dead bool, verifiedAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET dead_link=$2, last_verified_at=$3 WHERE id=$1`, s.table)
	tag, err := s.db.Exec(ctx, query, id, dead, verifiedAt)
	if err != nil {
		return fmt.Errorf("set skill dead link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func skillArgs(sk catalog.Skill) []any {
	return []any{
		sk.ID, sk.Slug, sk.Name, sk.Tagline, sk.Description, string(sk.Category),
		sk.Tags, sk.SourceURL, sk.InstallCommand, sk.Author, sk.Stars,
		sk.Downloads, sk.DeadLink, sk.LastVerifiedAt, sk.Verified,
		sk.SubmittedBy, sk.CreatedAt, sk.UpdatedAt,
	}
}

func skillDests(sk *catalog.Skill, extra ...any) []any {
	dests := []any{
		&sk.ID, &sk.Slug, &sk.Name, &sk.Tagline, &sk.Description, &sk.Category,
		&sk.Tags, &sk.SourceURL, &sk.InstallCommand, &sk.Author, &sk.Stars,
		&sk.Downloads, &sk.DeadLink, &sk.LastVerifiedAt, &sk.Verified,
		&sk.SubmittedBy, &sk.CreatedAt, &sk.UpdatedAt,
	}
	return append(dests, extra...)
}

func collectSkills(rows pgx.Rows) ([]catalog.Skill, error) {
	var out []catalog.Skill
	for rows.Next() {
		var sk catalog.Skill
		if err := rows.Scan(skillDests(&sk)...); err != nil {
			return nil, fmt.Errorf("scan skill row: %w", err)
		}
		out = append(out, sk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skill rows: %w", err)
	}
	return out, nil
}

func skillConds(f store.SkillFilter, startIdx int) ([]string, []any) {
	conds := []string{"TRUE"}
	var args []any
	idx := startIdx

	if !f.IncludeDead {
		conds = append(conds, "NOT dead_link")
	}
	if f.Category != nil {
		conds = append(conds, fmt.Sprintf("category = $%d", idx))
		args = append(args, string(*f.Category))
		idx++
	}
	if len(f.Tags) > 0 {
		conds = append(conds, fmt.Sprintf("tags @> $%d", idx))
		args = append(args, f.Tags)
	}
	return conds, args
}
