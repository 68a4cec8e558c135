package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/errors"
	"github.com/notora/notora/internal/store"
)

func newGlobCmd() *cobra.Command {
	var (
		limit          int
		offset         int
		field          string
		format         string
		includeContent bool
	)

	cmd := &cobra.Command{
		Use:   "glob <pattern>",
		Short: "Match pages and databases by slug or title pattern",
		Long: `Match indexed pages and databases with a glob pattern. Patterns use
* and ? wildcards and match the slug path by default.

Examples:
  notora glob "/projects/*"
  notora glob "*roadmap*" --field title
  notora glob "/docs/*" --limit 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patternField store.PatternField
			switch field {
			case "slug":
				patternField = store.FieldSlug
			case "title":
				patternField = store.FieldTitle
			default:
				return errors.ValidationError("field must be slug or title", nil)
			}

			st, err := openIndex()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			page, err := st.FindByPattern(cmd.Context(), args[0], patternField, store.QueryOptions{
				Limit:          limit,
				Offset:         offset,
				IncludeContent: includeContent,
			})
			if err != nil {
				return err
			}
			return renderResults(cmd, page, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of results to skip")
	cmd.Flags().StringVar(&field, "field", "slug", "Column to match: slug, title")
	cmd.Flags().BoolVar(&includeContent, "content", false, "Include full markdown content")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}
