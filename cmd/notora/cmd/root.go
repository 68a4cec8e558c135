// Package cmd provides the CLI commands for notora.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/config"
	"github.com/notora/notora/internal/errors"
	"github.com/notora/notora/internal/logging"
	"github.com/notora/notora/internal/store"
	"github.com/notora/notora/pkg/version"
)

var (
	debugMode      bool
	workspaceFlag  string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the notora CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notora",
		Short: "Index a Notion workspace into a searchable local database",
		Long: `Notora crawls a Notion workspace, converts every page to markdown,
and stores the result in a local SQLite database with full-text search.

All query commands run offline against the local index.

Get started:
  notora config add <name> --token <secret>
  notora index
  notora search "quarterly roadmap"`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("notora version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the notora log directory")
	cmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace name from the registry (default workspace when omitted)")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
	}

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newGlobCmd())
	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newJobsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func setupLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg.Level = "debug"
		cfg.WriteToStderr = true
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatForCLI(err))
		return err
	}
	return nil
}

// resolveWorkspace loads the registry and picks the workspace from the
// persistent flag.
func resolveWorkspace() (string, config.Workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", config.Workspace{}, err
	}
	name, ws, err := cfg.Resolve(workspaceFlag)
	if err != nil {
		return "", config.Workspace{}, errors.New(errors.ErrCodeNoWorkspace, err.Error(), err).
			WithSuggestion("register a workspace with `notora config add <name> --token <secret>`")
	}
	return name, ws, nil
}

// openIndex opens the index database for the selected workspace,
// failing when it was never built.
func openIndex() (*store.Store, error) {
	_, ws, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(ws.DBPath); err != nil {
		return nil, errors.New(errors.ErrCodeIndexOpen, "no index found", err).
			WithSuggestion("run `notora index` first")
	}
	return store.Open(ws.DBPath)
}
