package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/checkqueue/internal/audit"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
	Database string
	DocID    string
	Limit    int
}

// NewStatusCommand creates the status command, which reads back the
// audit trail written by a prior `run` (or any controller wired with
// controller.WithAuditLog against the same database file).
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Read back the audit trail for a check queue run",
		Long: `Queries the SQLite audit trail written by a check queue's controller.
Without --doc, shows the most recently recorded events across all
documents; with --doc, shows every event for that document, oldest first.

Example:
  checkqueue status --db ./audit.db
  checkqueue status --db ./audit.db --doc A`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite audit database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.DocID, "doc", "", "restrict to events for a single document id")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of events to show (ignored with --doc)")

	return cmd
}

func runStatus(opts *StatusOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	auditLog, err := audit.Open(opts.Database)
	if err != nil {
		return formatter.Fail(fmt.Errorf("opening audit database: %w", err))
	}
	defer auditLog.Close()

	ctx := context.Background()
	var events []audit.Event
	if opts.DocID != "" {
		events, err = auditLog.ForDocument(ctx, opts.DocID)
	} else {
		events, err = auditLog.Recent(ctx, opts.Limit)
	}
	if err != nil {
		return formatter.Fail(fmt.Errorf("reading audit log: %w", err))
	}

	return formatter.Success(summarizeRun(events))
}
