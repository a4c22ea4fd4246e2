package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/entitylink/pkg/entitylink/analysis"
	"github.com/cognicore/entitylink/pkg/entitylink/internalerr"
	"github.com/cognicore/entitylink/pkg/entitylink/site"
)

// DefaultCacheSize is the number of representations kept by the Get cache
const DefaultCacheSize = 1024

// Site implements site.Searcher using SQLite
type Site struct {
	db       *sql.DB
	name     string
	tokenize func(string) []string
	cache    *lru.Cache[string, *site.Representation]
}

// Option configures a Site
type Option func(*options)

type options struct {
	name      string
	tokenize  func(string) []string
	cacheSize int
}

// WithName sets the site name reported by Name
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTokenizer sets the tokenizer used to index labels
func WithTokenizer(fn func(string) []string) Option {
	return func(o *options) {
		if fn != nil {
			o.tokenize = fn
		}
	}
}

// WithCacheSize sets the size of the Get cache
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// OpenSQLite opens a SQLite entity site with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*Site, error) {
	o := options{
		name:      "sqlite",
		tokenize:  analysis.NewAnalyzer(analysis.AnalyzerOptions{}).Tokenize,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize <= 0 {
		o.cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, *site.Representation](o.cacheSize)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize schema
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Site{
		db:       db,
		name:     o.name,
		tokenize: o.tokenize,
		cache:    cache,
	}, nil
}

// Close closes the database connection
func (s *Site) Close() error {
	return s.db.Close()
}

// Name implements site.Searcher
func (s *Site) Name() string { return s.name }

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	rank REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entity_values (
	entity_id TEXT NOT NULL,
	field TEXT NOT NULL,
	position INTEGER NOT NULL,
	kind INTEGER NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	lang TEXT NOT NULL DEFAULT '',
	number REAL NOT NULL DEFAULT 0,
	PRIMARY KEY(entity_id, position),
	FOREIGN KEY(entity_id) REFERENCES entities(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS label_tokens (
	entity_id TEXT NOT NULL,
	field TEXT NOT NULL,
	token TEXT NOT NULL,
	lang TEXT NOT NULL DEFAULT '',
	UNIQUE(entity_id, field, token, lang),
	FOREIGN KEY(entity_id) REFERENCES entities(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_label_tokens_lookup ON label_tokens(field, token);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Put inserts or replaces an entity
func (s *Site) Put(ctx context.Context, rep *site.Representation) error {
	if rep == nil || rep.ID == "" {
		return fmt.Errorf("%w: entity id is required", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rank, _ := rep.Float(site.EntityRankField)
	const stmt = `
INSERT INTO entities (id, rank) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET rank=excluded.rank;
`
	if _, err := tx.ExecContext(ctx, stmt, rep.ID, rank); err != nil {
		return err
	}

	if err := replaceValues(ctx, tx, rep); err != nil {
		return err
	}
	if err := s.replaceTokens(ctx, tx, rep); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.cache.Remove(rep.ID)
	return nil
}

// PutRecords converts and stores records, skipping invalid ones. It returns
// the number of entities stored.
func (s *Site) PutRecords(ctx context.Context, records []site.Record, fields site.Fields) (int, error) {
	n := 0
	for _, rec := range records {
		if rec.Validate() != nil {
			continue
		}
		if err := s.Put(ctx, rec.Representation(fields)); err != nil {
			return n, fmt.Errorf("put %s: %w", rec.ID, err)
		}
		n++
	}
	return n, nil
}

func replaceValues(ctx context.Context, tx *sql.Tx, rep *site.Representation) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entity_values WHERE entity_id=?`, rep.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO entity_values (entity_id, field, position, kind, text, lang, number)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	pos := 0
	for _, field := range rep.FieldNames() {
		if field == site.ResultScoreField {
			continue
		}
		for _, v := range rep.Get(field) {
			if _, err := stmt.ExecContext(ctx, rep.ID, field, pos, int(v.Kind), v.Text, v.Language, v.Number); err != nil {
				return err
			}
			pos++
		}
	}
	return nil
}

func (s *Site) replaceTokens(ctx context.Context, tx *sql.Tx, rep *site.Representation) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM label_tokens WHERE entity_id=?`, rep.ID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO label_tokens (entity_id, field, token, lang) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, field := range rep.FieldNames() {
		for _, label := range rep.Text(field) {
			lang := strings.ToLower(label.Language)
			for _, tok := range s.tokenize(label.Value) {
				tok = strings.ToLower(tok)
				if tok == "" {
					continue
				}
				if _, err := stmt.ExecContext(ctx, rep.ID, field, tok, lang); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Count returns the number of stored entities
func (s *Site) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&n)
	return n, err
}

// Get implements site.Searcher
func (s *Site) Get(ctx context.Context, id string, selected []string) (*site.Representation, error) {
	if rep, ok := s.cache.Get(id); ok {
		return rep.Select(selected), nil
	}

	rep, err := s.loadRepresentation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrSiteUnavailable, err)
	}
	if rep == nil {
		return nil, nil
	}
	s.cache.Add(id, rep)
	return rep.Select(selected), nil
}

// Lookup implements site.Searcher. Entities are ordered by the number of
// distinct terms found in their labels, then by entity rank.
func (s *Site) Lookup(ctx context.Context, q site.Query) ([]*site.Representation, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	terms := uniqueTerms(q.Terms)
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(terms)), ",")

	args := make([]interface{}, 0, len(terms)+4)
	args = append(args, q.Field)
	for _, t := range terms {
		args = append(args, t)
	}

	langFilter := ""
	if q.Language != "" || q.DefaultLanguage != "" {
		var conds []string
		conds = append(conds, "lt.lang = ''")
		for _, lang := range []string{q.Language, q.DefaultLanguage} {
			if lang == "" {
				continue
			}
			lang = strings.ToLower(lang)
			conds = append(conds, "substr(lt.lang, 1, ?) = ?")
			args = append(args, len(lang), lang)
		}
		langFilter = "AND (" + strings.Join(conds, " OR ") + ")"
	}
	args = append(args, q.EffectiveLimit())

	query := fmt.Sprintf(`
SELECT lt.entity_id, COUNT(DISTINCT lt.token) AS hits
FROM label_tokens lt
JOIN entities e ON e.id = lt.entity_id
WHERE lt.field = ? AND lt.token IN (%s) %s
GROUP BY lt.entity_id
ORDER BY hits DESC, e.rank DESC, lt.entity_id ASC
LIMIT ?;
`, placeholders, langFilter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrSiteUnavailable, err)
	}

	type hit struct {
		id    string
		count int
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.id, &h.count); err != nil {
			rows.Close()
			return nil, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]*site.Representation, 0, len(hits))
	for _, h := range hits {
		rep, err := s.Get(ctx, h.id, q.Selected)
		if err != nil {
			return nil, err
		}
		if rep == nil {
			continue
		}
		rep.Set(site.ResultScoreField, site.NumberValue(float64(h.count)))
		out = append(out, rep)
	}
	return out, nil
}

func (s *Site) loadRepresentation(ctx context.Context, id string) (*site.Representation, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM entities WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT field, kind, text, lang, number
FROM entity_values
WHERE entity_id = ?
ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rep := site.NewRepresentation(id)
	for rows.Next() {
		var (
			field string
			kind  int
			v     site.Value
		)
		if err := rows.Scan(&field, &kind, &v.Text, &v.Language, &v.Number); err != nil {
			return nil, err
		}
		v.Kind = site.ValueKind(kind)
		rep.Add(field, v)
	}
	return rep, rows.Err()
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
