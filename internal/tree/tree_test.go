package tree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndRender(t *testing.T) {
	slugs := []string{
		"/projects",
		"/projects/alpha",
		"/projects/alpha/design",
		"/notes",
	}

	root := Build(slugs, 10)
	out := Render(root)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Equal(t, []string{
		"notes",
		"projects",
		"  alpha",
		"    design",
	}, lines)
}

func TestBuildDepthCap(t *testing.T) {
	slugs := []string{
		"/a/b/c/d",
		"/a/b",
	}

	root := Build(slugs, 2)
	out := Render(root)

	assert.Contains(t, out, "c ++")
	assert.NotContains(t, out, "d")
}

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		processed string
		shortened string
	}{
		{"root", "/", "/", ""},
		{"single", "/projects", "/projects", "projects"},
		{"trailing slash", "/projects/", "/projects", "projects"},
		{"nested", "/projects/alpha", "/projects/alpha", "alpha"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processed, shortened := ExtractPrefix(tt.prefix)
			assert.Equal(t, tt.processed, processed)
			assert.Equal(t, tt.shortened, shortened)
		})
	}
}

func TestFilter(t *testing.T) {
	slugs := []string{"/projects/alpha", "/projects/beta", "/notes"}

	got := Filter(slugs, "/projects", "projects")
	assert.Equal(t, []string{"projects/alpha", "projects/beta"}, got)

	got = Filter(slugs, "/", "")
	assert.Equal(t, []string{"projects/alpha", "projects/beta", "notes"}, got)
}
