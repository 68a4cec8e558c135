package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/index"
	"github.com/notora/notora/internal/output"
)

func newLsCmd() *cobra.Command {
	var maxDepth int

	cmd := &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List the indexed workspace as a tree",
		Long: `Render the indexed slugs as a directory-style tree. Branches cut off
by the depth cap are marked with ++.

Examples:
  notora ls
  notora ls /projects
  notora ls --depth 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := "/"
			if len(args) == 1 {
				prefix = args[0]
			}

			st, err := openIndex()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			rendered, err := index.ListFiles(cmd.Context(), st, prefix, maxDepth)
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Printf("%s", rendered)
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxDepth, "depth", "d", index.DefaultTreeDepth, "Tree depth cap")
	return cmd
}
