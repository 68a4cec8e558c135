package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Notion REST API endpoint.
	DefaultBaseURL = "https://api.notion.com/v1"

	// apiVersion is sent as the Notion-Version header on every request.
	apiVersion = "2022-06-28"

	// DefaultPageSize is the search/query page size.
	DefaultPageSize = 100
)

// API is the subset of the source API the pipeline consumes. Transport and
// auth failures surface as errors; there is no retry at this layer.
type API interface {
	// Search returns one cursor page of workspace items of the given kind.
	Search(ctx context.Context, kind ObjectKind, cursor string, pageSize int) (*SearchPage, error)

	// BlockChildren returns the direct children of a block or page.
	BlockChildren(ctx context.Context, blockID string) ([]Block, error)

	// QueryDatabase returns up to pageSize rows of a database, ordered by
	// creation time ascending.
	QueryDatabase(ctx context.Context, databaseID string, pageSize int) ([]*Page, error)
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	// Token is the integration credential.
	Token string

	// BaseURL overrides the API endpoint (tests).
	BaseURL string

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration
}

// Client is the HTTP implementation of API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

var _ API = (*Client)(nil)

// NewClient creates a Notion API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
	}
}

// Search issues one paginated search call filtered by object kind.
func (c *Client) Search(ctx context.Context, kind ObjectKind, cursor string, pageSize int) (*SearchPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	body := map[string]any{
		"page_size": pageSize,
		"filter": map[string]string{
			"property": "object",
			"value":    string(kind),
		},
	}
	if cursor != "" {
		body["start_cursor"] = cursor
	}

	var resp struct {
		Results    []SearchResult `json:"results"`
		HasMore    bool           `json:"has_more"`
		NextCursor string         `json:"next_cursor"`
	}
	if err := c.do(ctx, http.MethodPost, "/search", body, &resp); err != nil {
		return nil, fmt.Errorf("search %s failed: %w", kind, err)
	}

	return &SearchPage{
		Results:    resp.Results,
		HasMore:    resp.HasMore,
		NextCursor: resp.NextCursor,
	}, nil
}

// BlockChildren fetches all direct children of a block, following the
// endpoint's own cursor pagination.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		path := fmt.Sprintf("/blocks/%s/children?page_size=%d", blockID, DefaultPageSize)
		if cursor != "" {
			path += "&start_cursor=" + cursor
		}

		var resp struct {
			Results    []Block `json:"results"`
			HasMore    bool    `json:"has_more"`
			NextCursor string  `json:"next_cursor"`
		}
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("block children of %s failed: %w", blockID, err)
		}

		blocks = append(blocks, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return blocks, nil
		}
		cursor = resp.NextCursor
	}
}

// QueryDatabase returns the first pageSize rows by creation time ascending.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, pageSize int) ([]*Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	body := map[string]any{
		"page_size": pageSize,
		"sorts": []map[string]string{
			{"timestamp": "created_time", "direction": "ascending"},
		},
	}

	var resp struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/databases/%s/query", databaseID), body, &resp); err != nil {
		return nil, fmt.Errorf("query database %s failed: %w", databaseID, err)
	}

	rows := make([]*Page, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Page != nil {
			rows = append(rows, r.Page)
		}
	}
	return rows, nil
}

// do issues one API request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("api error %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("api error %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
