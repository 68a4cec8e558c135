package index

import (
	"context"
	"fmt"

	"github.com/notora/notora/internal/store"
	"github.com/notora/notora/internal/tree"
)

// DefaultTreeDepth caps the ls view when no depth is given.
const DefaultTreeDepth = 2

// ListFiles renders the indexed workspace as a slug tree rooted at
// prefix. Depth zero falls back to DefaultTreeDepth.
func ListFiles(ctx context.Context, st *store.Store, prefix string, maxDepth int) (string, error) {
	if prefix == "" {
		prefix = "/"
	}
	if maxDepth <= 0 {
		maxDepth = DefaultTreeDepth
	}

	slugs, err := st.AllSlugs(ctx)
	if err != nil {
		return "", fmt.Errorf("list slugs: %w", err)
	}

	processed, shortened := tree.ExtractPrefix(prefix)
	filtered := tree.Filter(slugs, processed, shortened)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no indexed pages under %s", prefix)
	}
	return tree.Render(tree.Build(filtered, maxDepth)), nil
}

// ViewPage resolves a slug to its stored record. The slug may be given
// with or without the leading slash.
func ViewPage(ctx context.Context, st *store.Store, pageSlug string) (*store.Record, error) {
	if pageSlug == "" {
		return nil, fmt.Errorf("slug is required")
	}
	if pageSlug[0] != '/' {
		pageSlug = "/" + pageSlug
	}
	rec, err := st.GetBySlug(ctx, pageSlug)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("no page or database at %s", pageSlug)
	}
	return rec, nil
}
