// Package tree renders a slug set as a directory-style tree for the ls
// view, capped at a maximum depth with truncation markers.
package tree

import (
	"sort"
	"strings"
)

// TruncatedMarker suffixes a node whose subtree was cut off by the depth
// cap; there are more pages or databases to explore beneath it.
const TruncatedMarker = "++"

// Node is one level of the rendered tree. Child order is insertion order,
// which follows the (sorted) slug input.
type Node struct {
	children  map[string]*Node
	order     []string
	truncated bool
}

func newNode() *Node {
	return &Node{children: make(map[string]*Node)}
}

func (n *Node) child(name string) *Node {
	if c, ok := n.children[name]; ok {
		return c
	}
	c := newNode()
	n.children[name] = c
	n.order = append(n.order, name)
	return c
}

// ExtractPrefix normalizes a listing prefix: trailing slashes are dropped
// (except for the root), and the last path segment becomes the display
// root the filtered slugs are re-rooted under.
func ExtractPrefix(prefix string) (processed, shortened string) {
	processed = strings.TrimSpace(prefix)
	if processed != "/" && strings.HasSuffix(processed, "/") {
		processed = strings.TrimSuffix(processed, "/")
	}
	parts := strings.Split(processed, "/")
	shortened = parts[len(parts)-1]
	return processed, shortened
}

// Build assembles a depth-capped tree from /-delimited slugs. Segments at
// the cap are marked truncated instead of descending further.
func Build(slugs []string, maxDepth int) *Node {
	sorted := make([]string, len(slugs))
	copy(sorted, slugs)
	sort.Strings(sorted)

	root := newNode()
	for _, slug := range sorted {
		parts := strings.Split(strings.Trim(slug, "/"), "/")
		cur := root
		for depth, part := range parts {
			if part == "" {
				continue
			}
			next := cur.child(part)
			if depth >= maxDepth && depth < len(parts)-1 {
				next.truncated = true
				break
			}
			cur = next
		}
	}
	return root
}

// Render writes the tree as indented lines; truncated nodes carry the
// `++` marker.
func Render(root *Node) string {
	var sb strings.Builder
	renderInto(&sb, root, 0)
	return sb.String()
}

func renderInto(sb *strings.Builder, n *Node, depth int) {
	for _, name := range n.order {
		child := n.children[name]
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(name)
		if child.truncated {
			sb.WriteString(" " + TruncatedMarker)
		}
		sb.WriteString("\n")
		renderInto(sb, child, depth+1)
	}
}

// Filter keeps slugs under the processed prefix and re-roots them at the
// shortened prefix, mirroring how the listing displays a subtree.
func Filter(slugs []string, processedPrefix, shortenedPrefix string) []string {
	var out []string
	for _, slug := range slugs {
		if slug == "" || !strings.HasPrefix(slug, processedPrefix) {
			continue
		}
		out = append(out, strings.Replace(slug, processedPrefix, shortenedPrefix, 1))
	}
	return out
}
