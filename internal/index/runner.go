// Package index orchestrates the crawl-convert-store pipeline and the
// query operations served from a built index.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notora/notora/internal/job"
	"github.com/notora/notora/internal/notion"
	"github.com/notora/notora/internal/slug"
	"github.com/notora/notora/internal/store"
	"github.com/notora/notora/internal/transform"
)

// convertWorkers bounds the markdown conversion pool. Matches the API
// limiter width so conversion fan-out never queues behind it.
const convertWorkers = notion.DefaultConcurrency

// Dependencies contains the injected collaborators for Runner.
type Dependencies struct {
	// API is the Notion client (required).
	API notion.API

	// Limiter is the run-wide request cap shared by fetch and convert
	// stages (required).
	Limiter *notion.Limiter

	// Store is the open index database (required).
	Store *store.Store

	// Tracker records job lifecycle transitions (required).
	Tracker *job.Tracker

	// Logger for structured run logs; nil discards.
	Logger *slog.Logger
}

// Result contains the outcome of an indexing run.
type Result struct {
	// Pages is the number of regular pages indexed.
	Pages int

	// Databases is the number of databases indexed.
	Databases int

	// DatabasePages is the number of database rows indexed.
	DatabasePages int

	// Skipped counts orphaned items excluded from the slug tree.
	Skipped int

	// Duration is the total run time.
	Duration time.Duration
}

// Runner executes indexing runs with injected dependencies.
type Runner struct {
	api     notion.API
	limiter *notion.Limiter
	store   *store.Store
	tracker *job.Tracker
	logger  *slog.Logger
}

// NewRunner creates a Runner, validating required dependencies.
func NewRunner(deps Dependencies) (*Runner, error) {
	if deps.API == nil {
		return nil, fmt.Errorf("notion API is required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Tracker == nil {
		return nil, fmt.Errorf("job tracker is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		api:     deps.API,
		limiter: deps.Limiter,
		store:   deps.Store,
		tracker: deps.Tracker,
		logger:  logger,
	}, nil
}

// Run executes the full pipeline for one job: crawl the workspace,
// resolve slugs, convert to markdown, and upsert into the store. Any
// stage failure marks the job ERROR and aborts the run.
func (r *Runner) Run(ctx context.Context, jobID string) (*Result, error) {
	start := time.Now()

	result, err := r.run(ctx, jobID)
	if err != nil {
		if terr := r.tracker.Update(jobID, job.StateError, err.Error()); terr != nil {
			r.logger.Warn("job status update failed",
				slog.String("job_id", jobID),
				slog.String("error", terr.Error()))
		}
		return nil, err
	}

	result.Duration = time.Since(start)
	summary := fmt.Sprintf("indexed %d pages, %d databases, %d database pages",
		result.Pages, result.Databases, result.DatabasePages)
	if err := r.tracker.Update(jobID, job.StateEnd, summary); err != nil {
		r.logger.Warn("job status update failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}

	r.logger.Info("index_complete",
		slog.String("job_id", jobID),
		slog.Int("pages", result.Pages),
		slog.Int("databases", result.Databases),
		slog.Int("database_pages", result.DatabasePages),
		slog.Int("skipped", result.Skipped),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))

	return result, nil
}

func (r *Runner) run(ctx context.Context, jobID string) (*Result, error) {
	// Stage 1: crawl.
	if err := r.tracker.Update(jobID, job.StateProcessing, "fetching workspace"); err != nil {
		return nil, err
	}
	r.logger.Info("index_fetch_started", slog.String("job_id", jobID))

	fetcher := notion.NewFetcher(r.api, r.limiter, r.logger)
	fetched, err := fetcher.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch workspace: %w", err)
	}
	r.logger.Info("index_fetch_complete",
		slog.Int("pages", len(fetched.Pages)),
		slog.Int("database_rows", len(fetched.DatabaseRows)),
		slog.Int("databases", len(fetched.Databases)))

	// Stage 2: slug resolution.
	slugs, err := slug.Resolve(fetched.Pages, fetched.Databases)
	if err != nil {
		return nil, fmt.Errorf("resolve slugs: %w", err)
	}

	// Stage 3: convert and collect records.
	if err := r.tracker.Update(jobID, job.StateProcessing, "converting pages"); err != nil {
		return nil, err
	}

	result := &Result{}
	converter := transform.NewConverter(r.api, r.limiter, r.logger)

	pageRecords, skippedPages, err := r.convertPages(ctx, converter, fetched.Pages, slugs)
	if err != nil {
		return nil, err
	}
	result.Skipped += skippedPages

	rowRecords, err := r.convertRows(ctx, converter, fetched.DatabaseRows, slugs)
	if err != nil {
		return nil, err
	}

	dbRecords, skippedDBs := databaseRecords(fetched.Databases, slugs)
	result.Skipped += skippedDBs

	// Stage 4: persist.
	if err := r.tracker.Update(jobID, job.StateProcessing, "writing index"); err != nil {
		return nil, err
	}
	if err := r.store.UpsertPages(ctx, pageRecords); err != nil {
		return nil, fmt.Errorf("store pages: %w", err)
	}
	if err := r.store.UpsertDatabases(ctx, dbRecords); err != nil {
		return nil, fmt.Errorf("store databases: %w", err)
	}
	if err := r.store.UpsertDatabasePages(ctx, rowRecords); err != nil {
		return nil, fmt.Errorf("store database pages: %w", err)
	}

	result.Pages = len(pageRecords)
	result.Databases = len(dbRecords)
	result.DatabasePages = len(rowRecords)
	return result, nil
}

// convertPages renders regular pages to markdown with a bounded pool.
// Pages outside the slug tree are skipped.
func (r *Runner) convertPages(ctx context.Context, converter *transform.Converter, pages []*notion.Page, slugs slug.Mapping) ([]*store.PageRecord, int, error) {
	var (
		mu      sync.Mutex
		records []*store.PageRecord
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(convertWorkers)

	for _, page := range pages {
		pageSlug := slugs.SlugFor(page.ID)
		if pageSlug == "" {
			r.logger.Debug("skipping orphaned page", slog.String("page_id", page.ID))
			mu.Lock()
			skipped++
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			converted, err := converter.PageToMarkdown(gctx, page, slugs)
			if err != nil {
				return fmt.Errorf("convert page %s: %w", page.ID, err)
			}
			mu.Lock()
			records = append(records, &store.PageRecord{
				ID:          converted.ID,
				Title:       converted.Title,
				Content:     converted.Content,
				Slug:        pageSlug,
				CreatedAt:   converted.CreatedAt,
				LastUpdated: converted.LastUpdated,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return records, skipped, nil
}

// convertRows renders database rows. Rows carry their flattened property
// bag and have no slug of their own.
func (r *Runner) convertRows(ctx context.Context, converter *transform.Converter, rows []*notion.Page, slugs slug.Mapping) ([]*store.DatabasePageRecord, error) {
	var (
		mu      sync.Mutex
		records []*store.DatabasePageRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(convertWorkers)

	for _, row := range rows {
		g.Go(func() error {
			converted, err := converter.PageToMarkdown(gctx, row, slugs)
			if err != nil {
				return fmt.Errorf("convert database page %s: %w", row.ID, err)
			}
			mu.Lock()
			records = append(records, &store.DatabasePageRecord{
				ID:          converted.ID,
				DatabaseID:  row.Parent.ID(),
				Properties:  converted.Properties,
				Content:     converted.Content,
				CreatedAt:   converted.CreatedAt,
				LastUpdated: converted.LastUpdated,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// databaseRecords maps fetched databases to store records, skipping
// those outside the slug tree.
func databaseRecords(databases []*notion.Database, slugs slug.Mapping) ([]*store.DatabaseRecord, int) {
	var (
		records []*store.DatabaseRecord
		skipped int
	)
	for _, db := range databases {
		dbSlug := slugs.SlugFor(db.ID)
		if dbSlug == "" {
			skipped++
			continue
		}
		records = append(records, &store.DatabaseRecord{
			ID:          db.ID,
			Title:       db.Title(),
			Slug:        dbSlug,
			Properties:  string(db.Properties),
			CreatedAt:   db.CreatedTime.UTC().Format(transform.TimeLayout),
			LastUpdated: db.LastEditedTime.UTC().Format(transform.TimeLayout),
		})
	}
	return records, skipped
}
