package transform

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notora/notora/internal/notion"
	"github.com/notora/notora/internal/slug"
)

// fakeAPI serves canned block trees and database rows.
type fakeAPI struct {
	blocks   map[string][]notion.Block
	rows     map[string][]*notion.Page
	queryErr error
}

func (a *fakeAPI) Search(context.Context, notion.ObjectKind, string, int) (*notion.SearchPage, error) {
	return &notion.SearchPage{}, nil
}

func (a *fakeAPI) BlockChildren(_ context.Context, blockID string) ([]notion.Block, error) {
	return a.blocks[blockID], nil
}

func (a *fakeAPI) QueryDatabase(_ context.Context, databaseID string, _ int) ([]*notion.Page, error) {
	if a.queryErr != nil {
		return nil, a.queryErr
	}
	return a.rows[databaseID], nil
}

func newTestConverter(api *fakeAPI) *Converter {
	return NewConverter(api, notion.NewLimiter(0), nil)
}

func textBlock(kind, text string) notion.Block {
	return notion.Block{Type: kind, Text: []notion.RichText{{PlainText: text}}}
}

func testPage(id, title string) *notion.Page {
	return &notion.Page{
		ID:     id,
		Parent: notion.Parent{Type: notion.ParentWorkspace, Workspace: true},
		Properties: map[string]notion.Property{
			"Name": {Type: "title", Title: []notion.RichText{{PlainText: title}}},
		},
		CreatedTime:    time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
		LastEditedTime: time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC),
	}
}

func TestPageToMarkdownBlockTypes(t *testing.T) {
	tests := []struct {
		name  string
		block notion.Block
		want  string
	}{
		{"paragraph", textBlock("paragraph", "plain text"), "plain text"},
		{"heading 1", textBlock("heading_1", "Top"), "# Top"},
		{"heading 2", textBlock("heading_2", "Mid"), "## Mid"},
		{"heading 3", textBlock("heading_3", "Low"), "### Low"},
		{"bullet", textBlock("bulleted_list_item", "item"), "- item"},
		{"numbered", textBlock("numbered_list_item", "item"), "1. item"},
		{"todo unchecked", textBlock("to_do", "task"), "- [ ] task"},
		{"quote", textBlock("quote", "wisdom"), "> wisdom"},
		{"divider", notion.Block{Type: "divider"}, "---"},
		{"bookmark", notion.Block{Type: "bookmark", BookmarkURL: "https://example.com"}, "<https://example.com>"},
		{"image", notion.Block{Type: "image", ImageURL: "https://img.example/a.png"}, "![](https://img.example/a.png)"},
		{"unknown renders text", textBlock("callout", "note"), "note"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{blocks: map[string][]notion.Block{"p1": {tt.block}}}
			res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slug.Mapping{})
			require.NoError(t, err)
			assert.Equal(t, "Doc\n\n"+tt.want, res.Content)
		})
	}
}

func TestPageToMarkdownCheckedTodoAndCode(t *testing.T) {
	api := &fakeAPI{blocks: map[string][]notion.Block{"p1": {
		{Type: "to_do", Text: []notion.RichText{{PlainText: "done"}}, Checked: true},
		{Type: "code", Text: []notion.RichText{{PlainText: "fmt.Println(1)"}}, CodeLanguage: "go"},
	}}}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slug.Mapping{})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "- [x] done")
	assert.Contains(t, res.Content, "```go\nfmt.Println(1)\n```")
}

func TestPageToMarkdownTimestamps(t *testing.T) {
	api := &fakeAPI{}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slug.Mapping{})
	require.NoError(t, err)
	assert.Equal(t, "2025-04-01T09:00:00.000Z", res.CreatedAt)
	assert.Equal(t, "2025-04-02T09:30:00.000Z", res.LastUpdated)
}

func TestChildPageLinks(t *testing.T) {
	api := &fakeAPI{blocks: map[string][]notion.Block{"p1": {
		{Type: "child_page", ID: "c1", ChildPageTitle: "Known Child"},
		{Type: "child_page", ID: "c2", ChildPageTitle: "Orphan Child"},
	}}}
	slugs := slug.Mapping{"c1": {Slug: "/doc/known-child", Name: "Known Child"}}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slugs)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "[Known Child](/doc/known-child)")
	assert.Contains(t, res.Content, "[Orphan Child](notion-id:c2)")
}

func TestLinkToPageResolvesName(t *testing.T) {
	api := &fakeAPI{blocks: map[string][]notion.Block{"p1": {
		{Type: "link_to_page", LinkToPageID: "t1"},
	}}}
	slugs := slug.Mapping{"t1": {Slug: "/target", Name: "Target"}}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slugs)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "[Target](/target)")
}

func TestCrossDocumentLinkRewriting(t *testing.T) {
	rawID := "abcdef01234567890000000000000000"
	api := &fakeAPI{blocks: map[string][]notion.Block{"p1": {
		{Type: "paragraph", Text: []notion.RichText{
			{PlainText: "see", Href: "https://www.notion.so/Other-" + rawID},
			{PlainText: " and "},
			{PlainText: "external", Href: "https://example.com/page"},
		}},
	}}}
	slugs := slug.Mapping{"abcdef01-2345-6789-0000-000000000000": {Slug: "/other", Name: "Other"}}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slugs)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "[see](/other)")
	assert.Contains(t, res.Content, "[external](https://example.com/page)")
}

func TestDatabasePreviewTable(t *testing.T) {
	row := func(id, name, status string) *notion.Page {
		return &notion.Page{
			ID:     id,
			Parent: notion.Parent{Type: notion.ParentDatabase, DatabaseID: "d1"},
			Properties: map[string]notion.Property{
				"Name":   {Type: "title", Title: []notion.RichText{{PlainText: name}}},
				"Status": {Type: "select", Select: &notion.SelectOption{Name: status}},
			},
		}
	}
	api := &fakeAPI{
		blocks: map[string][]notion.Block{"p1": {
			{Type: "child_database", ID: "d1", ChildDatabaseTitle: "Tasks"},
		}},
		rows: map[string][]*notion.Page{"d1": {row("r1", "Ship", "Done"), row("r2", "Plan", "Open")}},
	}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slug.Mapping{})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "## Tasks (Database Id: d1)")
	assert.Contains(t, res.Content, "| Name | Status |")
	assert.Contains(t, res.Content, "| Ship | Done |")
	assert.Contains(t, res.Content, "| Plan | Open |")
}

func TestDatabasePreviewQueryFailureDegrades(t *testing.T) {
	api := &fakeAPI{
		blocks: map[string][]notion.Block{"p1": {
			{Type: "child_database", ID: "d1", ChildDatabaseTitle: "Tasks"},
		}},
		queryErr: fmt.Errorf("rate limited"),
	}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slug.Mapping{})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "## Tasks")
	assert.Contains(t, res.Content, "*No entries found*")
}

func TestDatabasePreviewTruncatesCells(t *testing.T) {
	long := strings.Repeat("x", 80)
	api := &fakeAPI{
		blocks: map[string][]notion.Block{"p1": {
			{Type: "child_database", ID: "d1", ChildDatabaseTitle: "Tasks"},
		}},
		rows: map[string][]*notion.Page{"d1": {{
			ID:     "r1",
			Parent: notion.Parent{Type: notion.ParentDatabase, DatabaseID: "d1"},
			Properties: map[string]notion.Property{
				"Name": {Type: "title", Title: []notion.RichText{{PlainText: long}}},
			},
		}}},
	}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slug.Mapping{})
	require.NoError(t, err)
	assert.Contains(t, res.Content, strings.Repeat("x", 47)+"...")
	assert.NotContains(t, res.Content, long)
}

func TestNestedChildrenIndented(t *testing.T) {
	api := &fakeAPI{blocks: map[string][]notion.Block{
		"p1": {{Type: "bulleted_list_item", ID: "b1", HasChildren: true, Text: []notion.RichText{{PlainText: "outer"}}}},
		"b1": {textBlock("bulleted_list_item", "inner")},
	}}

	res, err := newTestConverter(api).PageToMarkdown(context.Background(), testPage("p1", "Doc"), slug.Mapping{})
	require.NoError(t, err)
	assert.Contains(t, res.Content, "- outer\n\n  - inner")
}

func TestDatabaseRowGetsFlattenedProperties(t *testing.T) {
	rowPage := &notion.Page{
		ID:     "r1",
		Parent: notion.Parent{Type: notion.ParentDatabase, DatabaseID: "d1"},
		Properties: map[string]notion.Property{
			"Name": {Type: "title", Title: []notion.RichText{{PlainText: "Ship it"}}},
		},
	}

	res, err := newTestConverter(&fakeAPI{}).PageToMarkdown(context.Background(), rowPage, slug.Mapping{})
	require.NoError(t, err)
	require.NotNil(t, res.Properties)
	assert.Equal(t, "Ship it", res.Properties["Name"])
}

func TestFlattenProperties(t *testing.T) {
	num := 12.5
	checked := true
	props := map[string]notion.Property{
		"Title":  {Type: "title", Title: []notion.RichText{{PlainText: "A"}}},
		"Notes":  {Type: "rich_text", RichText: []notion.RichText{{PlainText: "B"}, {PlainText: "C"}}},
		"Status": {Type: "select", Select: &notion.SelectOption{Name: "Open"}},
		"Tags":   {Type: "multi_select", MultiSelect: []notion.SelectOption{{Name: "x"}, {Name: "y"}}},
		"Due":    {Type: "date", Date: &notion.DateValue{Start: "2025-05-01"}},
		"Count":  {Type: "number", Number: &num},
		"Done":   {Type: "checkbox", Checkbox: &checked},
		"Link":   {Type: "url", URL: "https://example.com"},
		"Mail":   {Type: "email", Email: "a@b.c"},
		"Phone":  {Type: "phone_number", PhoneNumber: "555-1234"},
		"Odd":    {Type: "rollup"},
	}

	got := FlattenProperties(props)
	assert.Equal(t, "A", got["Title"])
	assert.Equal(t, "BC", got["Notes"])
	assert.Equal(t, "Open", got["Status"])
	assert.Equal(t, "x, y", got["Tags"])
	assert.Equal(t, "2025-05-01", got["Due"])
	assert.Equal(t, "12.5", got["Count"])
	assert.Equal(t, "true", got["Done"])
	assert.Equal(t, "https://example.com", got["Link"])
	assert.Equal(t, "a@b.c", got["Mail"])
	assert.Equal(t, "555-1234", got["Phone"])
	assert.Equal(t, "", got["Odd"])
}
