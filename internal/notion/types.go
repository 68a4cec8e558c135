// Package notion provides the source API client and the rate-limited
// fetcher that crawls a workspace. All records crossing into the rest of
// the pipeline are validated here into tagged variants; duck-typed shapes
// from the wire never leave this package.
package notion

import (
	"encoding/json"
	"fmt"
	"time"
)

// ObjectKind selects the object filter for search calls.
type ObjectKind string

const (
	KindPage     ObjectKind = "page"
	KindDatabase ObjectKind = "database"
)

// ParentType identifies where an item hangs in the workspace tree.
type ParentType string

const (
	ParentWorkspace ParentType = "workspace"
	ParentPage      ParentType = "page_id"
	ParentDatabase  ParentType = "database_id"
	ParentBlock     ParentType = "block_id"
)

// Parent is a validated parent reference.
type Parent struct {
	Type       ParentType `json:"type"`
	PageID     string     `json:"page_id,omitempty"`
	DatabaseID string     `json:"database_id,omitempty"`
	BlockID    string     `json:"block_id,omitempty"`
	Workspace  bool       `json:"workspace,omitempty"`
}

// ID returns the parent's identifier, or "" for workspace parents.
func (p Parent) ID() string {
	switch p.Type {
	case ParentPage:
		return p.PageID
	case ParentDatabase:
		return p.DatabaseID
	case ParentBlock:
		return p.BlockID
	default:
		return ""
	}
}

// RichText is a single rich-text fragment. Only the plain text and link
// target matter to the pipeline.
type RichText struct {
	PlainText string `json:"plain_text"`
	Href      string `json:"href,omitempty"`
}

// PlainText concatenates the plain-text content of rich text fragments.
func PlainText(fragments []RichText) string {
	var out string
	for _, f := range fragments {
		out += f.PlainText
	}
	return out
}

// SelectOption is a select / multi-select value.
type SelectOption struct {
	Name string `json:"name"`
}

// DateValue is a date property value.
type DateValue struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// Property is one property value on a page. The Type field discriminates
// which of the payload fields is populated.
type Property struct {
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	URL         string         `json:"url,omitempty"`
	Email       string         `json:"email,omitempty"`
	PhoneNumber string         `json:"phone_number,omitempty"`
}

// Page is a validated page object. Database rows are pages whose parent is
// database-typed.
type Page struct {
	ID             string              `json:"id"`
	Parent         Parent              `json:"parent"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]Property `json:"properties"`
	URL            string              `json:"url,omitempty"`
}

// Title returns the page's title property, or "untitled" when absent.
func (p *Page) Title() string {
	for _, prop := range p.Properties {
		if prop.Type == "title" && len(prop.Title) > 0 {
			return PlainText(prop.Title)
		}
	}
	return "untitled"
}

// IsDatabaseRow reports whether the page is a row of a database.
func (p *Page) IsDatabaseRow() bool {
	return p.Parent.Type == ParentDatabase
}

// Database is a validated database object.
type Database struct {
	ID             string          `json:"id"`
	Parent         Parent          `json:"parent"`
	CreatedTime    time.Time       `json:"created_time"`
	LastEditedTime time.Time       `json:"last_edited_time"`
	TitleText      []RichText      `json:"title"`
	Properties     json.RawMessage `json:"properties"` // schema definition, stored verbatim
}

// Title returns the database title, or "untitled" when empty.
func (d *Database) Title() string {
	if t := PlainText(d.TitleText); t != "" {
		return t
	}
	return "untitled"
}

// Block is one node of a page's block tree. Unknown block types carry only
// Type and are rendered best-effort by the transformer.
type Block struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	HasChildren bool       `json:"has_children"`
	Text        []RichText `json:"-"` // rich_text of the typed payload

	// Type-specific payloads the transformer cares about.
	ChildPageTitle     string `json:"-"` // child_page
	ChildDatabaseTitle string `json:"-"` // child_database
	LinkToPageID       string `json:"-"` // link_to_page
	CodeLanguage       string `json:"-"` // code
	BookmarkURL        string `json:"-"` // bookmark
	ImageURL           string `json:"-"` // image
	Checked            bool   `json:"-"` // to_do
}

// SearchResult is one entry of a search response, tagged by object kind.
// Exactly one of Page/Database is set after validation.
type SearchResult struct {
	Object   string
	Page     *Page
	Database *Database
}

// SearchPage is one page of cursor-paginated search results.
type SearchPage struct {
	Results    []SearchResult
	HasMore    bool
	NextCursor string
}

// UnmarshalJSON validates a raw search result into a tagged variant.
// Anything that does not carry an object tag, an id, and a typed parent is
// rejected before it can enter the pipeline.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		Object string `json:"object"`
		ID     string `json:"id"`
		Parent Parent `json:"parent"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.ID == "" {
		return fmt.Errorf("search result missing id")
	}
	if probe.Parent.Type == "" {
		return fmt.Errorf("search result %s missing parent type", probe.ID)
	}

	switch probe.Object {
	case "page":
		var page Page
		if err := json.Unmarshal(data, &page); err != nil {
			return fmt.Errorf("malformed page %s: %w", probe.ID, err)
		}
		r.Object = probe.Object
		r.Page = &page
	case "database":
		var db Database
		if err := json.Unmarshal(data, &db); err != nil {
			return fmt.Errorf("malformed database %s: %w", probe.ID, err)
		}
		r.Object = probe.Object
		r.Database = &db
	default:
		return fmt.Errorf("unknown object kind %q for %s", probe.Object, probe.ID)
	}
	return nil
}

// UnmarshalJSON decodes a block, lifting the type-specific payload into the
// flat Block fields.
func (b *Block) UnmarshalJSON(data []byte) error {
	var env struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if env.Type == "" {
		return fmt.Errorf("block %s missing type", env.ID)
	}

	var full map[string]json.RawMessage
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}

	b.ID = env.ID
	b.Type = env.Type
	b.HasChildren = env.HasChildren

	payload, ok := full[env.Type]
	if !ok {
		return nil
	}

	switch env.Type {
	case "child_page":
		var p struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		b.ChildPageTitle = p.Title
	case "child_database":
		var p struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		b.ChildDatabaseTitle = p.Title
	case "link_to_page":
		var p struct {
			PageID     string `json:"page_id"`
			DatabaseID string `json:"database_id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		b.LinkToPageID = p.PageID
		if b.LinkToPageID == "" {
			b.LinkToPageID = p.DatabaseID
		}
	case "bookmark":
		var p struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		b.BookmarkURL = p.URL
	case "image":
		var p struct {
			External *struct {
				URL string `json:"url"`
			} `json:"external"`
			File *struct {
				URL string `json:"url"`
			} `json:"file"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		if p.External != nil {
			b.ImageURL = p.External.URL
		} else if p.File != nil {
			b.ImageURL = p.File.URL
		}
	default:
		var p struct {
			RichText []RichText `json:"rich_text"`
			Language string     `json:"language"`
			Checked  bool       `json:"checked"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil // payloads we don't model render as empty text
		}
		b.Text = p.RichText
		b.CodeLanguage = p.Language
		b.Checked = p.Checked
	}
	return nil
}
