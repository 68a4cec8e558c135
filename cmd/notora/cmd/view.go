package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/index"
	"github.com/notora/notora/internal/output"
)

func newViewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <slug>",
		Short: "Show the markdown content of an indexed page",
		Long: `Print the stored markdown of a page, or the schema of a database,
addressed by its slug path.

Examples:
  notora view /projects/alpha
  notora view projects/tasks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openIndex()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			rec, err := index.ViewPage(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Record(rec)
			return nil
		},
	}
}
