package mcp

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notora/notora/internal/config"
	"github.com/notora/notora/internal/notion"
)

type stubAPI struct {
	pages     []notion.SearchResult
	databases []notion.SearchResult
}

func (a *stubAPI) Search(_ context.Context, kind notion.ObjectKind, _ string, _ int) (*notion.SearchPage, error) {
	if kind == notion.KindDatabase {
		return &notion.SearchPage{Results: a.databases}, nil
	}
	return &notion.SearchPage{Results: a.pages}, nil
}

func (a *stubAPI) BlockChildren(_ context.Context, _ string) ([]notion.Block, error) {
	return nil, nil
}

func (a *stubAPI) QueryDatabase(_ context.Context, _ string, _ int) ([]*notion.Page, error) {
	return nil, nil
}

func stubWorkspaceAPI() *stubAPI {
	page := &notion.Page{
		ID:     "p1",
		Parent: notion.Parent{Type: notion.ParentWorkspace, Workspace: true},
		Properties: map[string]notion.Property{
			"Name": {Type: "title", Title: []notion.RichText{{PlainText: "Handbook"}}},
		},
		CreatedTime:    time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		LastEditedTime: time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
	}
	return &stubAPI{pages: []notion.SearchResult{{Object: "page", Page: page}}}
}

// newTestServer wires a server against a temp registry with one
// workspace and a stubbed Notion API.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)

	cfg := config.NewConfig()
	require.NoError(t, cfg.Add("acme", config.Workspace{
		Token:  "secret",
		DBPath: filepath.Join(dir, "acme.db"),
	}))

	s, err := NewServer(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	s.apiFactory = func(string) notion.API { return stubWorkspaceAPI() }
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// indexSynchronously runs the index job inline so queries can follow.
func indexSynchronously(t *testing.T, s *Server) string {
	t.Helper()
	name, ws, err := s.cfg.Resolve("")
	require.NoError(t, err)

	jobID, err := s.tracker.Create("mcp")
	require.NoError(t, err)
	s.runIndex(name, ws, jobID)
	return jobID
}

func TestQueryToolsBeforeIndexing(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.searchHandler(context.Background(), nil, SearchInput{Query: "handbook"})
	require.Error(t, err)
	protoErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeIndexNotFound, protoErr.Code)
}

func TestIndexThenQuery(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	jobID := indexSynchronously(t, s)

	_, status, err := s.jobStatusHandler(ctx, nil, JobStatusInput{JobID: jobID})
	require.NoError(t, err)
	assert.Equal(t, "END", status.State)
	assert.NotEmpty(t, status.EndTime)

	_, searchOut, err := s.searchHandler(ctx, nil, SearchInput{Query: "handbook"})
	require.NoError(t, err)
	require.Len(t, searchOut.Results, 1)
	assert.Equal(t, "Handbook", searchOut.Results[0].Title)
	assert.Equal(t, "/handbook", searchOut.Results[0].Slug)

	_, globOut, err := s.globHandler(ctx, nil, GlobInput{Pattern: "/hand*"})
	require.NoError(t, err)
	require.Len(t, globOut.Results, 1)
	assert.Empty(t, globOut.Results[0].Content)

	_, globOut, err = s.globHandler(ctx, nil, GlobInput{Pattern: "/hand*", IncludeContent: true})
	require.NoError(t, err)
	require.Len(t, globOut.Results, 1)
	assert.Contains(t, globOut.Results[0].Content, "Handbook")

	_, viewOut, err := s.viewPageHandler(ctx, nil, ViewPageInput{Slug: "/handbook"})
	require.NoError(t, err)
	assert.Equal(t, "page", viewOut.Type)
	assert.Contains(t, viewOut.Content, "Handbook")

	_, listOut, err := s.listWorkspaceHandler(ctx, nil, ListWorkspaceInput{})
	require.NoError(t, err)
	assert.Contains(t, listOut.Tree, "handbook")

	_, jobsOut, err := s.listJobsHandler(ctx, nil, ListJobsInput{})
	require.NoError(t, err)
	require.Len(t, jobsOut.Jobs, 1)
	assert.Equal(t, jobID, jobsOut.Jobs[0].JobID)

	_, jobsOut, err = s.listJobsHandler(ctx, nil, ListJobsInput{Origin: "mcp"})
	require.NoError(t, err)
	require.Len(t, jobsOut.Jobs, 1)

	_, jobsOut, err = s.listJobsHandler(ctx, nil, ListJobsInput{Origin: "cli"})
	require.NoError(t, err)
	assert.Empty(t, jobsOut.Jobs)

	_, _, err = s.listJobsHandler(ctx, nil, ListJobsInput{Origin: "daemon"})
	assert.Error(t, err)
}

func TestIndexWorkspaceHandlerReturnsJobID(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.indexWorkspaceHandler(context.Background(), nil, IndexWorkspaceInput{Workspace: "acme"})
	require.NoError(t, err)
	assert.Contains(t, out.JobID, "mcp-")

	// The background goroutine owns the run; wait for a terminal state.
	require.Eventually(t, func() bool {
		st, err := s.tracker.Get(out.JobID)
		return err == nil && st != nil && st.State.Terminal()
	}, 5*time.Second, 20*time.Millisecond)
}

func TestHandlerValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, _, err := s.searchHandler(ctx, nil, SearchInput{})
	assert.Error(t, err)

	_, _, err = s.globHandler(ctx, nil, GlobInput{Pattern: "/x", Field: "bogus"})
	assert.Error(t, err)

	_, _, err = s.viewPageHandler(ctx, nil, ViewPageInput{})
	assert.Error(t, err)

	_, _, err = s.searchHandler(ctx, nil, SearchInput{Query: "x", Workspace: "ghost"})
	assert.Error(t, err)
}

func TestJobStatusUnknownJob(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.jobStatusHandler(context.Background(), nil, JobStatusInput{JobID: "mcp-1"})
	require.Error(t, err)
	protoErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ErrCodeJobNotFound, protoErr.Code)
}

func TestMapError(t *testing.T) {
	assert.Nil(t, MapError(nil))
	assert.Equal(t, ErrCodeIndexNotFound, MapError(ErrIndexNotFound).Code)
	assert.Equal(t, ErrCodeInvalidParams, MapError(NewInvalidParamsError("bad")).Code)
}
