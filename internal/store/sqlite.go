package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// slugCacheSize bounds the GetBySlug read cache. The MCP view tool is
// read-heavy and tends to revisit the same handful of pages.
const slugCacheSize = 256

// Store is the SQLite-backed storage engine for one workspace file.
// WAL mode allows a concurrent reader while an indexing run writes.
type Store struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	closed    bool
	slugCache *lru.Cache[string, *Record]
}

// validateIntegrity checks a workspace file before opening. Returns nil if
// the file is absent (it will be created) or healthy.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// Open opens (or creates) the workspace store at path. An empty path opens
// an in-memory store for testing. Corrupt files are cleared and recreated;
// a reindex restores their content.
func Open(path string) (*Store, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("workspace_store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("store corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("workspace_store_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL must be set via PRAGMA for modernc.org/sqlite; DSN params are
	// not reliably honored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	cache, err := lru.New[string, *Record](slugCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, path: path, slugCache: cache}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the base tables and their FTS5 indexes.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS page (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		slug TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_updated TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS database (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL,
		properties TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_updated TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS database_page (
		id TEXT PRIMARY KEY,
		database_id TEXT NOT NULL,
		properties TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL,
		last_updated TEXT NOT NULL
	);

	-- FTS5 indexes over the searchable text of each record kind.
	CREATE VIRTUAL TABLE IF NOT EXISTS page_fts USING fts5(
		id UNINDEXED,
		title,
		content,
		tokenize='unicode61'
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS database_fts USING fts5(
		id UNINDEXED,
		title,
		tokenize='unicode61'
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS database_page_fts USING fts5(
		id UNINDEXED,
		content,
		properties,
		tokenize='unicode61'
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertPages inserts or replaces pages by id in one transaction.
// Re-indexing an unchanged workspace is idempotent.
func (s *Store) UpsertPages(ctx context.Context, pages []*PageRecord) error {
	if len(pages) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	defer s.slugCache.Purge()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	base, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO page (id, title, content, slug, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare page statement: %w", err)
	}
	defer func() { _ = base.Close() }()

	// FTS5 has no REPLACE; delete then insert.
	ftsDel, err := tx.PrepareContext(ctx, `DELETE FROM page_fts WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS delete: %w", err)
	}
	defer func() { _ = ftsDel.Close() }()

	ftsIns, err := tx.PrepareContext(ctx, `INSERT INTO page_fts (id, title, content) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS insert: %w", err)
	}
	defer func() { _ = ftsIns.Close() }()

	for _, p := range pages {
		if _, err := base.ExecContext(ctx, p.ID, p.Title, p.Content, p.Slug, p.CreatedAt, p.LastUpdated); err != nil {
			return fmt.Errorf("failed to upsert page %s: %w", p.ID, err)
		}
		if _, err := ftsDel.ExecContext(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to clear FTS entry for page %s: %w", p.ID, err)
		}
		if _, err := ftsIns.ExecContext(ctx, p.ID, p.Title, p.Content); err != nil {
			return fmt.Errorf("failed to index page %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// UpsertDatabases inserts or replaces databases by id in one transaction.
func (s *Store) UpsertDatabases(ctx context.Context, databases []*DatabaseRecord) error {
	if len(databases) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	defer s.slugCache.Purge()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	base, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO database (id, title, slug, properties, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare database statement: %w", err)
	}
	defer func() { _ = base.Close() }()

	ftsDel, err := tx.PrepareContext(ctx, `DELETE FROM database_fts WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS delete: %w", err)
	}
	defer func() { _ = ftsDel.Close() }()

	ftsIns, err := tx.PrepareContext(ctx, `INSERT INTO database_fts (id, title) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS insert: %w", err)
	}
	defer func() { _ = ftsIns.Close() }()

	for _, d := range databases {
		if _, err := base.ExecContext(ctx, d.ID, d.Title, d.Slug, d.Properties, d.CreatedAt, d.LastUpdated); err != nil {
			return fmt.Errorf("failed to upsert database %s: %w", d.ID, err)
		}
		if _, err := ftsDel.ExecContext(ctx, d.ID); err != nil {
			return fmt.Errorf("failed to clear FTS entry for database %s: %w", d.ID, err)
		}
		if _, err := ftsIns.ExecContext(ctx, d.ID, d.Title); err != nil {
			return fmt.Errorf("failed to index database %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// UpsertDatabasePages inserts or replaces database rows by id in one
// transaction.
func (s *Store) UpsertDatabasePages(ctx context.Context, rows []*DatabasePageRecord) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	defer s.slugCache.Purge()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	base, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO database_page (id, database_id, properties, content, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare database_page statement: %w", err)
	}
	defer func() { _ = base.Close() }()

	ftsDel, err := tx.PrepareContext(ctx, `DELETE FROM database_page_fts WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS delete: %w", err)
	}
	defer func() { _ = ftsDel.Close() }()

	ftsIns, err := tx.PrepareContext(ctx, `INSERT INTO database_page_fts (id, content, properties) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS insert: %w", err)
	}
	defer func() { _ = ftsIns.Close() }()

	for _, r := range rows {
		props, err := json.Marshal(r.Properties)
		if err != nil {
			return fmt.Errorf("failed to encode properties for row %s: %w", r.ID, err)
		}
		propText := flattenedText(r.Properties)

		if _, err := base.ExecContext(ctx, r.ID, r.DatabaseID, string(props), r.Content, r.CreatedAt, r.LastUpdated); err != nil {
			return fmt.Errorf("failed to upsert database row %s: %w", r.ID, err)
		}
		if _, err := ftsDel.ExecContext(ctx, r.ID); err != nil {
			return fmt.Errorf("failed to clear FTS entry for row %s: %w", r.ID, err)
		}
		if _, err := ftsIns.ExecContext(ctx, r.ID, r.Content, propText); err != nil {
			return fmt.Errorf("failed to index database row %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// flattenedText turns a property bag into searchable text.
func flattenedText(props map[string]string) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+props[k])
	}
	return strings.Join(parts, " ")
}

// ftsHit is an unhydrated full-text match.
type ftsHit struct {
	id   string
	kind RecordType
	rank float64 // raw bm25(): more negative is better
}

// Search runs a ranked full-text query over all three record kinds.
// Results are merged and ordered by raw bm25() rank ascending (FTS5 yields
// negative scores, lower = better); the exposed Rank is the negated value.
func (s *Store) Search(ctx context.Context, query string, opts QueryOptions) (*ResultPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	opts = opts.withDefaults()

	if strings.TrimSpace(query) == "" {
		return &ResultPage{Results: []Result{}}, nil
	}
	match := ftsQuery(query)

	type ftsSource struct {
		sql  string
		kind RecordType
	}
	sources := []ftsSource{
		{`SELECT id, bm25(page_fts) FROM page_fts WHERE page_fts MATCH ?`, TypePage},
		{`SELECT id, bm25(database_fts) FROM database_fts WHERE database_fts MATCH ?`, TypeDatabase},
		{`SELECT id, bm25(database_page_fts) FROM database_page_fts WHERE database_page_fts MATCH ?`, TypeDatabasePage},
	}

	var hits []ftsHit
	for _, src := range sources {
		rows, err := s.db.QueryContext(ctx, src.sql, match)
		if err != nil {
			// FTS5 errors on unparsable match expressions; treat as no hits.
			if strings.Contains(err.Error(), "fts5") || strings.Contains(err.Error(), "syntax error") {
				continue
			}
			return nil, fmt.Errorf("search failed: %w", err)
		}
		for rows.Next() {
			var h ftsHit
			if err := rows.Scan(&h.id, &h.rank); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan result: %w", err)
			}
			h.kind = src.kind
			hits = append(hits, h)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, err
		}
		_ = rows.Close()
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })

	total := len(hits)
	page := paginate(hits, opts.Offset, opts.Limit)

	results, err := s.hydrate(ctx, page, opts.IncludeContent)
	if err != nil {
		return nil, err
	}
	return &ResultPage{
		Results:    results,
		TotalCount: total,
		HasMore:    opts.Offset+opts.Limit < total,
	}, nil
}

// ftsQuery quotes each term so user input cannot inject FTS5 operators.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(t, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

// paginate slices hits by offset/limit.
func paginate(hits []ftsHit, offset, limit int) []ftsHit {
	if offset >= len(hits) {
		return nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end]
}

// hydrate loads result rows for a page of hits, preserving hit order.
func (s *Store) hydrate(ctx context.Context, hits []ftsHit, includeContent bool) ([]Result, error) {
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		r := Result{ID: h.id, Type: h.kind, Rank: -h.rank}
		var err error
		switch h.kind {
		case TypePage:
			err = s.db.QueryRowContext(ctx,
				`SELECT title, slug, content, last_updated FROM page WHERE id = ?`, h.id).
				Scan(&r.Title, &r.Slug, &r.Content, &r.LastUpdated)
		case TypeDatabase:
			err = s.db.QueryRowContext(ctx,
				`SELECT title, slug, '', last_updated FROM database WHERE id = ?`, h.id).
				Scan(&r.Title, &r.Slug, &r.Content, &r.LastUpdated)
		case TypeDatabasePage:
			err = s.db.QueryRowContext(ctx,
				`SELECT '', '', content, last_updated FROM database_page WHERE id = ?`, h.id).
				Scan(&r.Title, &r.Slug, &r.Content, &r.LastUpdated)
		}
		if err == sql.ErrNoRows {
			continue // FTS entry without a base row; skip rather than fail
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s %s: %w", h.kind, h.id, err)
		}
		if !includeContent {
			r.Content = ""
		}
		results = append(results, r)
	}
	return results, nil
}

// FindByPattern matches a glob pattern (*, ?, [set]) against the slug or
// title of pages and databases. Matches are unranked, ordered by the
// matched field's natural sort order.
func (s *Store) FindByPattern(ctx context.Context, pattern string, field PatternField, opts QueryOptions) (*ResultPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	opts = opts.withDefaults()

	var column string
	switch field {
	case FieldSlug:
		column = "slug"
	case FieldTitle:
		column = "title"
	default:
		return nil, fmt.Errorf("unsupported pattern field %q", field)
	}

	var total int
	countQuery := fmt.Sprintf(`
		SELECT (SELECT COUNT(*) FROM page WHERE %[1]s GLOB ?) +
		       (SELECT COUNT(*) FROM database WHERE %[1]s GLOB ?)`, column)
	if err := s.db.QueryRowContext(ctx, countQuery, pattern, pattern).Scan(&total); err != nil {
		return nil, fmt.Errorf("pattern count failed: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, type, title, slug, content, last_updated FROM (
			SELECT id, 'page' AS type, title, slug, content, last_updated, %[1]s AS matched FROM page WHERE %[1]s GLOB ?
			UNION ALL
			SELECT id, 'database' AS type, title, slug, '' AS content, last_updated, %[1]s AS matched FROM database WHERE %[1]s GLOB ?
		)
		ORDER BY matched
		LIMIT ? OFFSET ?`, column)

	rows, err := s.db.QueryContext(ctx, query, pattern, pattern, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("pattern query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var r Result
		var kind string
		if err := rows.Scan(&r.ID, &kind, &r.Title, &r.Slug, &r.Content, &r.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Type = RecordType(kind)
		if !opts.IncludeContent {
			r.Content = ""
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &ResultPage{
		Results:    results,
		TotalCount: total,
		HasMore:    opts.Offset+opts.Limit < total,
	}, nil
}

// GetBySlug looks up a record by its slug, checking pages first, then
// databases. Returns nil when nothing matches.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	if cached, ok := s.slugCache.Get(slug); ok {
		return cached, nil
	}

	var p PageRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, content, slug, created_at, last_updated FROM page WHERE slug = ?`, slug).
		Scan(&p.ID, &p.Title, &p.Content, &p.Slug, &p.CreatedAt, &p.LastUpdated)
	if err == nil {
		rec := &Record{Type: TypePage, Page: &p}
		s.slugCache.Add(slug, rec)
		return rec, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("page lookup failed: %w", err)
	}

	var d DatabaseRecord
	err = s.db.QueryRowContext(ctx,
		`SELECT id, title, slug, properties, created_at, last_updated FROM database WHERE slug = ?`, slug).
		Scan(&d.ID, &d.Title, &d.Slug, &d.Properties, &d.CreatedAt, &d.LastUpdated)
	if err == nil {
		rec := &Record{Type: TypeDatabase, Database: &d}
		s.slugCache.Add(slug, rec)
		return rec, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("database lookup failed: %w", err)
	}

	return nil, nil
}

// AllSlugs returns every assigned slug (pages and databases), sorted.
func (s *Store) AllSlugs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT slug FROM page
		UNION
		SELECT slug FROM database
		ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to query slugs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	return slugs, rows.Err()
}

// Counts returns the row count per record kind, for status reporting.
func (s *Store) Counts(ctx context.Context) (pages, databases, databasePages int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, 0, 0, fmt.Errorf("store is closed")
	}

	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM page`).Scan(&pages); err != nil {
		return 0, 0, 0, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM database`).Scan(&databases); err != nil {
		return 0, 0, 0, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM database_page`).Scan(&databasePages); err != nil {
		return 0, 0, 0, err
	}
	return pages, databases, databasePages, nil
}

// Close closes the store. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
