// Package transform renders a page's block tree to markdown. Child pages
// and nested databases are substituted rather than recursed: child pages
// become links into the slug namespace, nested databases become a small
// preview table of their first rows.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/notora/notora/internal/notion"
	"github.com/notora/notora/internal/slug"
)

// PreviewRows is how many rows of a nested database the preview table shows.
const PreviewRows = 3

// previewCellMax caps cell width in preview tables.
const previewCellMax = 50

// TimeLayout is the timestamp format stored with every record.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Result is a converted page.
type Result struct {
	ID          string
	Title       string
	Content     string
	CreatedAt   string
	LastUpdated string

	// Properties is set for database rows only: the flattened key→string
	// property bag.
	Properties map[string]string
}

// Converter turns pages into markdown. Block and database-preview fetches
// go through the shared limiter so the run-wide concurrency cap holds.
type Converter struct {
	api     notion.API
	limiter *notion.Limiter
	logger  *slog.Logger
}

// NewConverter creates a converter; logger may be nil.
func NewConverter(api notion.API, limiter *notion.Limiter, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Converter{api: api, limiter: limiter, logger: logger}
}

// PageToMarkdown renders one page. For database rows the flattened property
// bag is included in the result.
func (c *Converter) PageToMarkdown(ctx context.Context, page *notion.Page, slugs slug.Mapping) (*Result, error) {
	rewriter := newLinkRewriter(slugs)

	body, err := c.renderChildren(ctx, page.ID, slugs, rewriter, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to convert page %s: %w", page.ID, err)
	}

	title := page.Title()
	content := title
	if body != "" {
		content += "\n\n" + body
	}

	res := &Result{
		ID:          page.ID,
		Title:       title,
		Content:     content,
		CreatedAt:   page.CreatedTime.UTC().Format(TimeLayout),
		LastUpdated: page.LastEditedTime.UTC().Format(TimeLayout),
	}
	if page.IsDatabaseRow() {
		res.Properties = FlattenProperties(page.Properties)
	}
	return res, nil
}

// renderChildren fetches and renders the children of a block or page.
func (c *Converter) renderChildren(ctx context.Context, blockID string, slugs slug.Mapping, rw *linkRewriter, depth int) (string, error) {
	var blocks []notion.Block
	err := c.limiter.Do(ctx, func() error {
		var fetchErr error
		blocks, fetchErr = c.api.BlockChildren(ctx, blockID)
		return fetchErr
	})
	if err != nil {
		return "", err
	}

	var parts []string
	for i := range blocks {
		rendered, err := c.renderBlock(ctx, &blocks[i], slugs, rw, depth)
		if err != nil {
			return "", err
		}
		if rendered != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// renderBlock renders one block, recursing into non-substituted children.
func (c *Converter) renderBlock(ctx context.Context, b *notion.Block, slugs slug.Mapping, rw *linkRewriter, depth int) (string, error) {
	text := rw.renderText(b.Text)

	var out string
	switch b.Type {
	case "paragraph":
		out = text
	case "heading_1":
		out = "# " + text
	case "heading_2":
		out = "## " + text
	case "heading_3":
		out = "### " + text
	case "bulleted_list_item":
		out = "- " + text
	case "numbered_list_item":
		out = "1. " + text
	case "to_do":
		box := "[ ]"
		if b.Checked {
			box = "[x]"
		}
		out = "- " + box + " " + text
	case "quote":
		out = "> " + text
	case "code":
		out = "```" + b.CodeLanguage + "\n" + notion.PlainText(b.Text) + "\n```"
	case "divider":
		out = "---"
	case "bookmark":
		out = "<" + b.BookmarkURL + ">"
	case "image":
		out = "![](" + b.ImageURL + ")"
	case "child_page":
		return c.renderChildPageLink(b, slugs), nil
	case "child_database":
		return c.renderDatabasePreview(ctx, b)
	case "link_to_page":
		return renderPageLink(b.LinkToPageID, "", slugs), nil
	default:
		out = text // unknown block types render their text, if any
	}

	// Code blocks carry their own children semantics upstream; everything
	// else recurses normally.
	if b.HasChildren && b.Type != "code" {
		children, err := c.renderChildren(ctx, b.ID, slugs, rw, depth+1)
		if err != nil {
			return "", err
		}
		if children != "" {
			out += "\n\n" + indent(children, "  ")
		}
	}
	return out, nil
}

// renderChildPageLink substitutes a child_page block with a link into the
// slug namespace. Orphans fall back to a raw-id placeholder link.
func (c *Converter) renderChildPageLink(b *notion.Block, slugs slug.Mapping) string {
	title := b.ChildPageTitle
	if title == "" {
		title = "Untitled Page"
	}
	return renderPageLink(b.ID, title, slugs)
}

// renderPageLink builds a [title](slug) link, or a notion-id placeholder
// when the target has no slug.
func renderPageLink(id, title string, slugs slug.Mapping) string {
	if title == "" {
		if entry, ok := slugs[id]; ok && entry.Name != "" {
			title = entry.Name
		} else {
			title = "Untitled Page"
		}
	}
	if s := slugs.SlugFor(id); s != "" {
		return fmt.Sprintf("[%s](%s)", title, s)
	}
	return fmt.Sprintf("[%s](notion-id:%s)", title, id)
}

// renderDatabasePreview replaces a child_database block with a table of the
// database's first rows. A failed query degrades to the empty-state table
// rather than failing the conversion.
func (c *Converter) renderDatabasePreview(ctx context.Context, b *notion.Block) (string, error) {
	title := b.ChildDatabaseTitle
	if title == "" {
		title = "Untitled Database"
	}

	var rows []*notion.Page
	err := c.limiter.Do(ctx, func() error {
		var queryErr error
		rows, queryErr = c.api.QueryDatabase(ctx, b.ID, PreviewRows)
		return queryErr
	})
	if err != nil {
		c.logger.Warn("could not fetch database entries for preview",
			slog.String("database_id", b.ID),
			slog.String("error", err.Error()))
		return databaseTable(title, nil, nil), nil
	}

	flattened := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		flattened = append(flattened, FlattenProperties(row.Properties))
	}

	var headers []string
	if len(flattened) > 0 {
		headers = sortedKeys(flattened[0])
	}
	return databaseTable(fmt.Sprintf("%s (Database Id: %s)", title, b.ID), headers, flattened), nil
}

// databaseTable renders a markdown table, or the empty state when there is
// nothing to show.
func databaseTable(title string, headers []string, rows []map[string]string) string {
	if len(headers) == 0 || len(rows) == 0 {
		return fmt.Sprintf("## %s\n\n*No entries found*", title)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", title)

	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = truncateCell(row[h])
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// truncateCell caps a table cell at previewCellMax runes.
func truncateCell(s string) string {
	runes := []rune(s)
	if len(runes) <= previewCellMax {
		return s
	}
	return string(runes[:previewCellMax-3]) + "..."
}

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable header order for deterministic output.
	sort.Strings(keys)
	return keys
}

// trailingPageID matches a fully-qualified link whose last path element
// ends in a 32-character hex id, the shape of a shared page URL.
var trailingPageID = regexp.MustCompile(`([0-9a-f]{32})(?:\?[^/]*)?$`)

// linkRewriter rewrites cross-document links into the local slug namespace.
type linkRewriter struct {
	slugs   slug.Mapping
	byRawID map[string]string // 32-char hex id to slug
}

func newLinkRewriter(slugs slug.Mapping) *linkRewriter {
	byRawID := make(map[string]string, len(slugs))
	for id, entry := range slugs {
		byRawID[strings.ReplaceAll(id, "-", "")] = entry.Slug
	}
	return &linkRewriter{slugs: slugs, byRawID: byRawID}
}

// rewrite maps a link target to a local slug when its trailing id is known,
// otherwise returns it unchanged.
func (rw *linkRewriter) rewrite(href string) string {
	m := trailingPageID.FindStringSubmatch(href)
	if m == nil {
		return href
	}
	if s, ok := rw.byRawID[m[1]]; ok {
		return s
	}
	return href
}

// renderText renders rich text fragments, linking fragments that carry an
// href and rewriting recognizable cross-document links.
func (rw *linkRewriter) renderText(fragments []notion.RichText) string {
	var sb strings.Builder
	for _, f := range fragments {
		if f.Href != "" {
			fmt.Fprintf(&sb, "[%s](%s)", f.PlainText, rw.rewrite(f.Href))
		} else {
			sb.WriteString(f.PlainText)
		}
	}
	return sb.String()
}

// FlattenProperties reduces a page's property bag to key→string. Types the
// pipeline does not model flatten to "".
func FlattenProperties(props map[string]notion.Property) map[string]string {
	out := make(map[string]string, len(props))
	for key, prop := range props {
		switch prop.Type {
		case "title":
			out[key] = notion.PlainText(prop.Title)
		case "rich_text":
			out[key] = notion.PlainText(prop.RichText)
		case "select":
			if prop.Select != nil {
				out[key] = prop.Select.Name
			} else {
				out[key] = ""
			}
		case "multi_select":
			names := make([]string, len(prop.MultiSelect))
			for i, ms := range prop.MultiSelect {
				names[i] = ms.Name
			}
			out[key] = strings.Join(names, ", ")
		case "date":
			if prop.Date != nil {
				out[key] = prop.Date.Start
			} else {
				out[key] = ""
			}
		case "number":
			if prop.Number != nil {
				out[key] = strconv.FormatFloat(*prop.Number, 'f', -1, 64)
			} else {
				out[key] = ""
			}
		case "checkbox":
			if prop.Checkbox != nil && *prop.Checkbox {
				out[key] = "true"
			} else {
				out[key] = "false"
			}
		case "url":
			out[key] = prop.URL
		case "email":
			out[key] = prop.Email
		case "phone_number":
			out[key] = prop.PhoneNumber
		default:
			out[key] = ""
		}
	}
	return out
}
