package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/output"
	"github.com/notora/notora/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit          int
	offset         int
	includeContent bool
	format         string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over the indexed workspace",
		Long: `Search page titles, markdown content and database properties in the
local index. Results are ranked by relevance.

Examples:
  notora search "quarterly roadmap"
  notora search onboarding --limit 5 --content
  notora search budget --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			st, err := openIndex()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			page, err := st.Search(cmd.Context(), query, store.QueryOptions{
				Limit:          opts.limit,
				Offset:         opts.offset,
				IncludeContent: opts.includeContent,
			})
			if err != nil {
				return err
			}
			return renderResults(cmd, page, opts.format)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "Number of results to skip")
	cmd.Flags().BoolVar(&opts.includeContent, "content", false, "Include full markdown content")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func renderResults(cmd *cobra.Command, page *store.ResultPage, format string) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	}
	output.New(cmd.OutOrStdout()).SearchResults(page)
	return nil
}
