package cmd

import (
	"github.com/spf13/cobra"

	"github.com/notora/notora/internal/config"
	"github.com/notora/notora/internal/errors"
	"github.com/notora/notora/internal/job"
	"github.com/notora/notora/internal/output"
)

func newJobsCmd() *cobra.Command {
	var (
		limit  int
		origin string
	)

	cmd := &cobra.Command{
		Use:   "jobs [job-id]",
		Short: "Show indexing job history",
		Long: `List recent indexing jobs, or show one job's status in detail.

Examples:
  notora jobs
  notora jobs cli-1741000000000
  notora jobs --limit 20 --origin mcp`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())
			tracker := job.NewTracker(job.NewFSStore(config.JobsDir()))

			if len(args) == 1 {
				status, err := tracker.Get(args[0])
				if err != nil {
					return err
				}
				if status == nil {
					return errors.New(errors.ErrCodeJobState, "unknown job "+args[0], nil)
				}
				out.Jobs([]*job.Status{status})
				return nil
			}

			switch origin {
			case "", "cli", "mcp":
			default:
				return errors.ValidationError("origin must be cli or mcp", nil)
			}
			statuses, err := tracker.ListRecent(limit, origin)
			if err != nil {
				return err
			}
			out.Jobs(statuses)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of jobs to list")
	cmd.Flags().StringVar(&origin, "origin", "", "Filter by job origin: cli, mcp")
	return cmd
}
