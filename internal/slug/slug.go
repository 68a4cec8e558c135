// Package slug builds the stable hierarchical path namespace for a crawled
// workspace. Every page and database reachable from the workspace root gets
// a unique /-delimited slug whose prefix is its parent's slug.
package slug

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/notora/notora/internal/notion"
)

// Entry is the resolved naming for one item.
type Entry struct {
	Slug string
	Name string
}

// Mapping maps item id to its resolved slug and display name. Items not
// reachable from the workspace root are absent.
type Mapping map[string]Entry

// SlugFor returns the slug for an id, or "" when the id is unmapped.
func (m Mapping) SlugFor(id string) string {
	return m[id].Slug
}

// node is an item in the resolution forest.
type node struct {
	id       string
	title    string
	parentID string // "" for workspace roots
	order    int    // discovery order, for deterministic sibling traversal
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
var whitespace = regexp.MustCompile(`\s+`)
var dashRuns = regexp.MustCompile(`-+`)

// Sanitize turns a title into a URL-safe slug component: lowercase, strip
// characters outside [a-z0-9 -], collapse whitespace to single dashes, then
// trim leading/trailing dashes. The result may be empty.
func Sanitize(title string) string {
	s := strings.ToLower(title)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Resolve assigns slugs to all pages and databases reachable from the
// workspace root. Sibling order follows discovery order, so duplicate
// titles disambiguate deterministically (-1, -2, ...). A parent cycle in
// the input graph fails fast rather than looping.
func Resolve(pages []*notion.Page, databases []*notion.Database) (Mapping, error) {
	nodes := make([]node, 0, len(pages)+len(databases))
	for _, p := range pages {
		nodes = append(nodes, node{
			id:       p.ID,
			title:    p.Title(),
			parentID: resolvableParent(p.Parent),
			order:    len(nodes),
		})
	}
	for _, d := range databases {
		nodes = append(nodes, node{
			id:       d.ID,
			title:    d.Title(),
			parentID: resolvableParent(d.Parent),
			order:    len(nodes),
		})
	}

	children := make(map[string][]node, len(nodes))
	for _, n := range nodes {
		children[n.parentID] = append(children[n.parentID], n)
	}
	for _, siblings := range children {
		sort.Slice(siblings, func(i, j int) bool { return siblings[i].order < siblings[j].order })
	}

	mapping := make(Mapping, len(nodes))
	used := make(map[string]struct{}, len(nodes))
	visited := make(map[string]struct{}, len(nodes))

	var walk func(parentID, parentSlug string) error
	walk = func(parentID, parentSlug string) error {
		for _, n := range children[parentID] {
			if _, seen := visited[n.id]; seen {
				return fmt.Errorf("cycle detected at item %s", n.id)
			}
			visited[n.id] = struct{}{}

			component := Sanitize(n.title)
			full := parentSlug + "/" + component
			for i := 1; ; i++ {
				if _, taken := used[full]; !taken {
					break
				}
				full = fmt.Sprintf("%s/%s-%d", parentSlug, component, i)
			}

			used[full] = struct{}{}
			mapping[n.id] = Entry{Slug: full, Name: n.title}

			if err := walk(n.id, full); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk("", ""); err != nil {
		return nil, err
	}

	// Nodes the walk never reached are either orphans (parent id absent
	// from the fetched set, excluded silently) or members of a parent
	// cycle, which is a malformed graph and fails fast.
	byID := make(map[string]node, len(nodes))
	for _, n := range nodes {
		byID[n.id] = n
	}
	for _, n := range nodes {
		if _, ok := visited[n.id]; ok {
			continue
		}
		onChain := map[string]struct{}{n.id: {}}
		cur := n
		for {
			parent, ok := byID[cur.parentID]
			if !ok {
				break // orphan: parent never fetched
			}
			if _, looped := onChain[parent.id]; looped {
				return nil, fmt.Errorf("cycle detected at item %s", parent.id)
			}
			onChain[parent.id] = struct{}{}
			cur = parent
		}
	}

	return mapping, nil
}

// resolvableParent maps a parent reference to the id the resolver chases.
// Workspace parents are roots; database-parented rows hang off the database
// node so their slugs nest under it.
func resolvableParent(p notion.Parent) string {
	switch p.Type {
	case notion.ParentWorkspace:
		return ""
	default:
		return p.ID()
	}
}
