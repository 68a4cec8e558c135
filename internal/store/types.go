// Package store is the persistence layer for an indexed workspace: three
// record kinds in one SQLite file per workspace, with FTS5 full-text
// indexes and glob matching over the slug/title columns.
package store

// RecordType discriminates the three stored record kinds.
type RecordType string

const (
	TypePage         RecordType = "page"
	TypeDatabase     RecordType = "database"
	TypeDatabasePage RecordType = "database_page"
)

// PageRecord is one regular (non-database-child) page.
type PageRecord struct {
	ID          string
	Title       string
	Content     string
	Slug        string
	CreatedAt   string
	LastUpdated string
}

// DatabaseRecord is one database, its title and schema definition.
type DatabaseRecord struct {
	ID          string
	Title       string
	Slug        string
	Properties  string // schema definition, JSON
	CreatedAt   string
	LastUpdated string
}

// DatabasePageRecord is one row of a database.
type DatabasePageRecord struct {
	ID          string
	DatabaseID  string
	Properties  map[string]string
	Content     string
	CreatedAt   string
	LastUpdated string
}

// PatternField selects the column a glob pattern matches against.
type PatternField string

const (
	FieldSlug  PatternField = "slug"
	FieldTitle PatternField = "title"
)

// QueryOptions controls pagination and payload of search/pattern queries.
type QueryOptions struct {
	Limit          int
	Offset         int
	IncludeContent bool
}

// DefaultLimit is applied when QueryOptions.Limit is unset.
const DefaultLimit = 10

// withDefaults normalizes options.
func (o QueryOptions) withDefaults() QueryOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Result is one search or pattern match.
type Result struct {
	ID          string
	Type        RecordType
	Title       string
	Slug        string
	Content     string // populated only when IncludeContent was set
	LastUpdated string

	// Rank is the normalized relevance score for full-text results:
	// the negated raw FTS5 bm25() value, so higher is better. Zero for
	// pattern matches, which are unranked.
	Rank float64
}

// ResultPage is one page of query results.
type ResultPage struct {
	Results    []Result
	TotalCount int
	HasMore    bool
}

// Record is the tagged result of a point lookup: exactly one of Page and
// Database is set.
type Record struct {
	Type     RecordType
	Page     *PageRecord
	Database *DatabaseRecord
}
