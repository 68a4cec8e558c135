package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/config"
	"github.com/notora/notora/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Expose the index to MCP clients over stdio. Register the binary with
your client, for example:

  claude mcp add notora -- notora serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			srv, err := mcp.NewServer(cfg, slog.Default())
			if err != nil {
				return err
			}
			defer srv.Close()

			return srv.Serve(cmd.Context())
		},
	}
}
