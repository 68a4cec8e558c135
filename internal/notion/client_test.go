package notion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(ClientConfig{Token: "secret_abc", BaseURL: srv.URL}), srv
}

func TestClientSearchSendsAuthAndFilter(t *testing.T) {
	var gotAuth, gotVersion string
	var gotBody map[string]any

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{
			"results": [{"object":"page","id":"p1","parent":{"type":"workspace","workspace":true},"properties":{}}],
			"has_more": true,
			"next_cursor": "c2"
		}`))
	})
	defer srv.Close()

	page, err := client.Search(context.Background(), KindPage, "", 50)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret_abc", gotAuth)
	assert.Equal(t, "2022-06-28", gotVersion)
	assert.Equal(t, float64(50), gotBody["page_size"])
	filter := gotBody["filter"].(map[string]any)
	assert.Equal(t, "page", filter["value"])

	assert.True(t, page.HasMore)
	assert.Equal(t, "c2", page.NextCursor)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "p1", page.Results[0].Page.ID)
}

func TestClientSearchPassesCursor(t *testing.T) {
	var gotBody map[string]any
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"results": []}`))
	})
	defer srv.Close()

	_, err := client.Search(context.Background(), KindDatabase, "cursor-7", 0)
	require.NoError(t, err)
	assert.Equal(t, "cursor-7", gotBody["start_cursor"])
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"API token is invalid."}`))
	})
	defer srv.Close()

	_, err := client.Search(context.Background(), KindPage, "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "API token is invalid")
}

func TestClientBlockChildrenPaginates(t *testing.T) {
	calls := 0
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("start_cursor") == "" {
			_, _ = w.Write([]byte(`{
				"results": [{"id":"b1","type":"paragraph","paragraph":{"rich_text":[{"plain_text":"one"}]}}],
				"has_more": true,
				"next_cursor": "b2cursor"
			}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"results": [{"id":"b2","type":"divider","divider":{}}]
		}`))
	})
	defer srv.Close()

	blocks, err := client.BlockChildren(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, blocks, 2)
	assert.Equal(t, "paragraph", blocks[0].Type)
	assert.Equal(t, "one", PlainText(blocks[0].Text))
	assert.Equal(t, "divider", blocks[1].Type)
}

func TestClientQueryDatabaseSortsAscending(t *testing.T) {
	var gotBody map[string]any
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{
			"results": [{"object":"page","id":"r1","parent":{"type":"database_id","database_id":"d1"},"properties":{}}]
		}`))
	})
	defer srv.Close()

	rows, err := client.QueryDatabase(context.Background(), "d1", 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "r1", rows[0].ID)

	assert.Equal(t, float64(3), gotBody["page_size"])
	sorts := gotBody["sorts"].([]any)
	require.Len(t, sorts, 1)
	sort := sorts[0].(map[string]any)
	assert.Equal(t, "created_time", sort["timestamp"])
	assert.Equal(t, "ascending", sort["direction"])
}

func TestSearchResultRejectsMalformedRecords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing id", `{"object":"page","parent":{"type":"workspace"}}`},
		{"missing parent type", `{"object":"page","id":"p1"}`},
		{"unknown object kind", `{"object":"comment","id":"x1","parent":{"type":"workspace"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r SearchResult
			assert.Error(t, json.Unmarshal([]byte(tt.raw), &r))
		})
	}
}

func TestBlockUnmarshalLiftsPayloads(t *testing.T) {
	raw := `{"id":"b1","type":"to_do","has_children":false,"to_do":{"rich_text":[{"plain_text":"task"}],"checked":true}}`
	var b Block
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	assert.Equal(t, "to_do", b.Type)
	assert.True(t, b.Checked)
	assert.Equal(t, "task", PlainText(b.Text))

	raw = `{"id":"b2","type":"child_database","child_database":{"title":"Tasks"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	assert.Equal(t, "Tasks", b.ChildDatabaseTitle)

	raw = `{"id":"b3","type":"image","image":{"external":{"url":"https://img.example/a.png"}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	assert.Equal(t, "https://img.example/a.png", b.ImageURL)
}
