package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/notora/notora/internal/config"
	"github.com/notora/notora/internal/index"
	"github.com/notora/notora/internal/job"
	"github.com/notora/notora/internal/logging"
	"github.com/notora/notora/internal/notion"
	"github.com/notora/notora/internal/store"
	"github.com/notora/notora/pkg/version"
)

// Server is the MCP server for notora. Query tools read the offline
// index; index_workspace kicks off a background crawl and returns a job
// id to poll.
type Server struct {
	mcp     *mcp.Server
	cfg     *config.Config
	tracker *job.Tracker
	logger  *slog.Logger

	// apiFactory builds the Notion client for a token; replaced in tests.
	apiFactory func(token string) notion.API

	mu     sync.Mutex
	stores map[string]*store.Store
}

// NewServer creates the MCP server over a workspace registry.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		tracker: job.NewTracker(job.NewFSStore(config.JobsDir())),
		logger:  logger,
		apiFactory: func(token string) notion.API {
			return notion.NewClient(notion.ClientConfig{Token: token})
		},
		stores: make(map[string]*store.Store),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "notora",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_workspace",
		Description: "Crawl a Notion workspace and (re)build its offline index. Returns a job id immediately; poll job_status to track progress. Safe to re-run, existing pages are updated in place.",
	}, s.indexWorkspaceHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_workspace",
		Description: "Full-text search over the indexed workspace: page titles, markdown content and database properties. Results are ranked by relevance. Works offline against the local index.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "glob_workspace",
		Description: "Match pages and databases by glob pattern over their slug paths or titles, e.g. /projects/* or *roadmap*. Use when you know the shape of the path rather than the content.",
	}, s.globHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "view_page",
		Description: "Fetch the full markdown content of a page, or the schema of a database, by its slug path.",
	}, s.viewPageHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_workspace",
		Description: "List the indexed workspace as a slug tree, optionally under a prefix. Truncated branches are marked with ++.",
	}, s.listWorkspaceHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "job_status",
		Description: "Check the status of an indexing job started by index_workspace.",
	}, s.jobStatusHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_jobs",
		Description: "List recent indexing jobs, newest first.",
	}, s.listJobsHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 7))
}

// openStore returns the open index for a workspace, opening it on first
// use. A workspace that was never indexed maps to ErrIndexNotFound.
func (s *Server) openStore(workspace string) (*store.Store, error) {
	_, ws, err := s.cfg.Resolve(workspace)
	if err != nil {
		return nil, MapError(NewInvalidParamsError(err.Error()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stores[ws.DBPath]; ok {
		return st, nil
	}

	if _, err := os.Stat(ws.DBPath); err != nil {
		return nil, MapError(ErrIndexNotFound)
	}
	st, err := store.Open(ws.DBPath)
	if err != nil {
		return nil, MapError(err)
	}
	s.stores[ws.DBPath] = st
	return st, nil
}

func (s *Server) indexWorkspaceHandler(_ context.Context, _ *mcp.CallToolRequest, input IndexWorkspaceInput) (
	*mcp.CallToolResult,
	IndexWorkspaceOutput,
	error,
) {
	name, ws, err := s.cfg.Resolve(input.Workspace)
	if err != nil {
		return nil, IndexWorkspaceOutput{}, NewInvalidParamsError(err.Error())
	}

	jobID, err := s.tracker.Create("mcp")
	if err != nil {
		return nil, IndexWorkspaceOutput{}, MapError(err)
	}

	// Indexing outlives the tool call; the job record carries the
	// outcome.
	go s.runIndex(name, ws, jobID)

	s.logger.Info("index job started",
		slog.String("job_id", jobID),
		slog.String("workspace", name))

	return nil, IndexWorkspaceOutput{
		JobID:   jobID,
		Message: fmt.Sprintf("Indexing workspace %q in the background. Poll job_status with job_id %s.", name, jobID),
	}, nil
}

func (s *Server) runIndex(name string, ws config.Workspace, jobID string) {
	logger, cleanup, err := logging.SetupJob(jobID, "info")
	if err != nil {
		logger = s.logger
	} else {
		defer cleanup()
	}

	// Drop the cached store handle so queries reopen the fresh index.
	s.mu.Lock()
	if st, ok := s.stores[ws.DBPath]; ok {
		_ = st.Close()
		delete(s.stores, ws.DBPath)
	}
	s.mu.Unlock()

	st, err := store.Open(ws.DBPath)
	if err != nil {
		_ = s.tracker.Update(jobID, job.StateError, err.Error())
		logger.Error("index job failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = st.Close() }()

	runner, err := index.NewRunner(index.Dependencies{
		API:     s.apiFactory(ws.Token),
		Limiter: notion.NewLimiter(notion.DefaultConcurrency),
		Store:   st,
		Tracker: s.tracker,
		Logger:  logger,
	})
	if err != nil {
		_ = s.tracker.Update(jobID, job.StateError, err.Error())
		return
	}

	if _, err := runner.Run(context.Background(), jobID); err != nil {
		logger.Error("index job failed",
			slog.String("workspace", name),
			slog.String("error", err.Error()))
	}
}

func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	st, err := s.openStore(input.Workspace)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	start := time.Now()
	page, err := st.Search(ctx, input.Query, store.QueryOptions{
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeContent: input.IncludeContent,
	})
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	s.logger.Info("search completed",
		slog.String("query", input.Query),
		slog.Int("results", len(page.Results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return nil, toSearchOutput(page), nil
}

func (s *Server) globHandler(ctx context.Context, _ *mcp.CallToolRequest, input GlobInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if input.Pattern == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("pattern parameter is required")
	}
	field := store.FieldSlug
	switch input.Field {
	case "", "slug":
	case "title":
		field = store.FieldTitle
	default:
		return nil, SearchOutput{}, NewInvalidParamsError("field must be slug or title")
	}

	st, err := s.openStore(input.Workspace)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	page, err := st.FindByPattern(ctx, input.Pattern, field, store.QueryOptions{
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeContent: input.IncludeContent,
	})
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}
	return nil, toSearchOutput(page), nil
}

func (s *Server) viewPageHandler(ctx context.Context, _ *mcp.CallToolRequest, input ViewPageInput) (
	*mcp.CallToolResult,
	ViewPageOutput,
	error,
) {
	if input.Slug == "" {
		return nil, ViewPageOutput{}, NewInvalidParamsError("slug parameter is required")
	}

	st, err := s.openStore(input.Workspace)
	if err != nil {
		return nil, ViewPageOutput{}, err
	}

	rec, err := index.ViewPage(ctx, st, input.Slug)
	if err != nil {
		return nil, ViewPageOutput{}, MapError(err)
	}

	out := ViewPageOutput{Type: string(rec.Type)}
	switch rec.Type {
	case store.TypePage:
		out.Title = rec.Page.Title
		out.Slug = rec.Page.Slug
		out.Content = rec.Page.Content
		out.LastUpdated = rec.Page.LastUpdated
	case store.TypeDatabase:
		out.Title = rec.Database.Title
		out.Slug = rec.Database.Slug
		out.Content = rec.Database.Properties
		out.LastUpdated = rec.Database.LastUpdated
	}
	return nil, out, nil
}

func (s *Server) listWorkspaceHandler(ctx context.Context, _ *mcp.CallToolRequest, input ListWorkspaceInput) (
	*mcp.CallToolResult,
	ListWorkspaceOutput,
	error,
) {
	st, err := s.openStore(input.Workspace)
	if err != nil {
		return nil, ListWorkspaceOutput{}, err
	}

	rendered, err := index.ListFiles(ctx, st, input.Prefix, input.MaxDepth)
	if err != nil {
		return nil, ListWorkspaceOutput{}, MapError(err)
	}
	return nil, ListWorkspaceOutput{Tree: rendered}, nil
}

func (s *Server) jobStatusHandler(_ context.Context, _ *mcp.CallToolRequest, input JobStatusInput) (
	*mcp.CallToolResult,
	JobStatusOutput,
	error,
) {
	if input.JobID == "" {
		return nil, JobStatusOutput{}, NewInvalidParamsError("job_id parameter is required")
	}

	status, err := s.tracker.Get(input.JobID)
	if err != nil {
		return nil, JobStatusOutput{}, MapError(err)
	}
	if status == nil {
		return nil, JobStatusOutput{}, MapError(ErrJobNotFound)
	}
	return nil, toJobOutput(status), nil
}

func (s *Server) listJobsHandler(_ context.Context, _ *mcp.CallToolRequest, input ListJobsInput) (
	*mcp.CallToolResult,
	ListJobsOutput,
	error,
) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	switch input.Origin {
	case "", "cli", "mcp":
	default:
		return nil, ListJobsOutput{}, NewInvalidParamsError("origin must be cli or mcp")
	}
	statuses, err := s.tracker.ListRecent(limit, input.Origin)
	if err != nil {
		return nil, ListJobsOutput{}, MapError(err)
	}

	out := ListJobsOutput{Jobs: make([]JobStatusOutput, 0, len(statuses))}
	for _, st := range statuses {
		out.Jobs = append(out.Jobs, toJobOutput(st))
	}
	return nil, out, nil
}

// Serve starts the server on the stdio transport and blocks until the
// context is canceled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("MCP server stopped")
	return nil
}

// Close releases cached store handles.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, st := range s.stores {
		_ = st.Close()
		delete(s.stores, path)
	}
	return nil
}

func toSearchOutput(page *store.ResultPage) SearchOutput {
	out := SearchOutput{
		Results:    make([]ResultOutput, 0, len(page.Results)),
		TotalCount: page.TotalCount,
		HasMore:    page.HasMore,
	}
	for _, r := range page.Results {
		out.Results = append(out.Results, ResultOutput{
			ID:          r.ID,
			Type:        string(r.Type),
			Title:       r.Title,
			Slug:        r.Slug,
			Content:     r.Content,
			LastUpdated: r.LastUpdated,
			Rank:        r.Rank,
		})
	}
	return out
}

func toJobOutput(st *job.Status) JobStatusOutput {
	out := JobStatusOutput{
		JobID:     st.JobID,
		State:     string(st.State),
		Message:   st.Message,
		StartTime: st.StartTime.Format(time.RFC3339),
	}
	if st.EndTime != nil {
		out.EndTime = st.EndTime.Format(time.RFC3339)
	}
	return out
}
