package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamsafe/gdsl/internal/history"
)

// HistoryOptions holds the history command group's flags.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Limit  int
}

// NewHistoryCommand builds the `gdslv history list|show` group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the SQLite archive of past verify runs",
	}
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the history database (required)")
	cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newHistoryListCommand(opts))
	cmd.AddCommand(newHistoryShowCommand(opts))
	return cmd
}

func newHistoryListCommand(opts *HistoryOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List archived runs, newest first",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(opts, cmd)
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 = unlimited)")
	return cmd
}

func newHistoryShowCommand(opts *HistoryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show one archived run's full report",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(opts, args[0], cmd)
		},
	}
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := history.Open(opts.DBPath)
	if err != nil {
		return outputCLIError(formatter, ErrCodeHistory, fmt.Sprintf("opening history database: %v", err))
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), opts.Limit)
	if err != nil {
		return outputCLIError(formatter, ErrCodeHistory, fmt.Sprintf("listing runs: %v", err))
	}

	return formatter.Success(runs)
}

func runHistoryShow(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	store, err := history.Open(opts.DBPath)
	if err != nil {
		return outputCLIError(formatter, ErrCodeHistory, fmt.Sprintf("opening history database: %v", err))
	}
	defer store.Close()

	detail, err := store.GetRun(context.Background(), runID)
	if err != nil {
		return outputCLIError(formatter, ErrCodeHistory, fmt.Sprintf("fetching run: %v", err))
	}
	if detail == nil {
		return outputCLIError(formatter, ErrCodeHistory, fmt.Sprintf("no such run: %s", runID))
	}

	return formatter.Success(detail)
}
