package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/config"
	"github.com/notora/notora/internal/errors"
	"github.com/notora/notora/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the workspace registry",
		Long: `Register Notion workspaces and their integration tokens. The first
workspace added becomes the default for all commands.

Examples:
  notora config add acme --token secret_abc
  notora config list
  notora config remove acme`,
	}

	cmd.AddCommand(newConfigAddCmd())
	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigRemoveCmd())
	cmd.AddCommand(newConfigDefaultCmd())
	return cmd
}

func newConfigAddCmd() *cobra.Command {
	var (
		token       string
		dbPath      string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Add(args[0], config.Workspace{
				Token:       token,
				DBPath:      dbPath,
				Description: description,
			}); err != nil {
				return errors.ConfigError(err.Error(), err)
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Workspace %q registered", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Notion integration token (required)")
	cmd.Flags().StringVar(&dbPath, "db-path", "", "Index database path (defaults to the notora data directory)")
	cmd.Flags().StringVar(&description, "description", "", "Free-form workspace description")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())

			names := cfg.Names()
			if len(names) == 0 {
				out.Println("No workspaces registered.")
				return nil
			}
			for _, name := range names {
				ws := cfg.Workspaces[name]
				marker := " "
				if name == cfg.DefaultWorkspace {
					marker = "*"
				}
				out.Printf("%s %-20s %s\n", marker, name, ws.Description)
			}
			return nil
		},
	}
}

func newConfigRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a workspace from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Remove(args[0]); err != nil {
				return errors.ConfigError(err.Error(), err)
			}
			if err := cfg.Save(); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Workspace %q removed", args[0])
			return nil
		},
	}
}

func newConfigDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "default <name>",
		Short: "Set the default workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if _, ok := cfg.Workspaces[args[0]]; !ok {
				return errors.ConfigError("unknown workspace "+args[0], nil)
			}
			cfg.DefaultWorkspace = args[0]
			if err := cfg.Save(); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("Default workspace set to %q", args[0])
			return nil
		},
	}
}
