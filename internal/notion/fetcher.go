package notion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultConcurrency caps in-flight API requests for a whole run,
	// including per-page conversion fetches.
	DefaultConcurrency = 2

	// interPageDelay is the fixed backoff between successive search pages.
	interPageDelay = 100 * time.Millisecond
)

// Limiter bounds concurrent outbound calls. One Limiter is shared by the
// fetcher and the content converter so the cap holds run-wide.
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter creates a limiter of the given width (DefaultConcurrency when
// width <= 0).
func NewLimiter(width int) *Limiter {
	if width <= 0 {
		width = DefaultConcurrency
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(width))}
}

// Do runs fn while holding one limiter slot.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn()
}

// FetchResult partitions the crawled workspace for downstream handling.
type FetchResult struct {
	// Pages are regular pages (not nested inside a database).
	Pages []*Page

	// DatabaseRows are pages whose parent is database-typed.
	DatabaseRows []*Page

	// Databases are all databases visible to the credential.
	Databases []*Database
}

// Fetcher crawls the workspace via paginated search calls.
type Fetcher struct {
	api     API
	limiter *Limiter
	delay   time.Duration
	logger  *slog.Logger
}

// NewFetcher creates a fetcher. The limiter is shared with the converter;
// logger may be nil for silent operation.
func NewFetcher(api API, limiter *Limiter, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		api:     api,
		limiter: limiter,
		delay:   interPageDelay,
		logger:  logger,
	}
}

// FetchAll crawls pages and databases and partitions the results. Any
// request error aborts the whole fetch; no partial results are returned.
func (f *Fetcher) FetchAll(ctx context.Context) (*FetchResult, error) {
	pages, rows, err := f.FetchPages(ctx)
	if err != nil {
		return nil, err
	}
	databases, err := f.FetchDatabases(ctx)
	if err != nil {
		return nil, err
	}
	return &FetchResult{
		Pages:        pages,
		DatabaseRows: rows,
		Databases:    databases,
	}, nil
}

// FetchPages crawls all pages, split into regular pages and database rows.
func (f *Fetcher) FetchPages(ctx context.Context) (pages, rows []*Page, err error) {
	results, err := f.fetchKind(ctx, KindPage)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range results {
		if r.Page == nil {
			continue // search answers the filter, but don't trust it blindly
		}
		if r.Page.IsDatabaseRow() {
			rows = append(rows, r.Page)
		} else {
			pages = append(pages, r.Page)
		}
	}
	f.logger.Debug("fetched pages",
		slog.Int("regular", len(pages)),
		slog.Int("database_rows", len(rows)))
	return pages, rows, nil
}

// FetchDatabases crawls all databases.
func (f *Fetcher) FetchDatabases(ctx context.Context) ([]*Database, error) {
	results, err := f.fetchKind(ctx, KindDatabase)
	if err != nil {
		return nil, err
	}
	var databases []*Database
	for _, r := range results {
		if r.Database != nil {
			databases = append(databases, r.Database)
		}
	}
	f.logger.Debug("fetched databases", slog.Int("count", len(databases)))
	return databases, nil
}

// fetchKind paginates search for one object kind, accumulating in cursor
// order until the API reports no more pages.
func (f *Fetcher) fetchKind(ctx context.Context, kind ObjectKind) ([]SearchResult, error) {
	var all []SearchResult
	cursor := ""
	for {
		var page *SearchPage
		err := f.limiter.Do(ctx, func() error {
			var reqErr error
			page, reqErr = f.api.Search(ctx, kind, cursor, DefaultPageSize)
			return reqErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %ss: %w", kind, err)
		}

		all = append(all, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
}
