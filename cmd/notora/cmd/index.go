package cmd

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/config"
	"github.com/notora/notora/internal/index"
	"github.com/notora/notora/internal/job"
	"github.com/notora/notora/internal/logging"
	"github.com/notora/notora/internal/notion"
	"github.com/notora/notora/internal/output"
	"github.com/notora/notora/internal/store"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Crawl the workspace and build the local index",
		Long: `Crawl every page and database the integration token can see,
convert them to markdown, and store them in the workspace's index
database. Re-running updates existing records in place.

Examples:
  notora index
  notora index --workspace acme`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd)
		},
	}
}

func runIndex(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	name, ws, err := resolveWorkspace()
	if err != nil {
		return err
	}

	tracker := job.NewTracker(job.NewFSStore(config.JobsDir()))
	jobID, err := tracker.Create("cli")
	if err != nil {
		return err
	}

	logger, cleanup, err := logging.SetupJob(jobID, "info")
	if err != nil {
		logger = slog.Default()
	} else {
		defer cleanup()
	}

	st, err := store.Open(ws.DBPath)
	if err != nil {
		_ = tracker.Update(jobID, job.StateError, err.Error())
		return err
	}
	defer func() { _ = st.Close() }()

	runner, err := index.NewRunner(index.Dependencies{
		API:     notion.NewClient(notion.ClientConfig{Token: ws.Token}),
		Limiter: notion.NewLimiter(notion.DefaultConcurrency),
		Store:   st,
		Tracker: tracker,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	out.Printf("Indexing workspace %q (job %s)...\n", name, jobID)
	result, err := runner.Run(cmd.Context(), jobID)
	if err != nil {
		out.Errorf("Indexing failed: %v", err)
		return err
	}

	out.Successf("Indexed %d pages, %d databases, %d database pages in %s",
		result.Pages, result.Databases, result.DatabasePages, result.Duration.Round(10*time.Millisecond))
	if result.Skipped > 0 {
		out.Warningf("%d orphaned items were excluded", result.Skipped)
	}
	return nil
}
