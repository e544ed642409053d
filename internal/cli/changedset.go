package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streamsafe/gdsl/internal/diffengine"
)

// ChangedSetOptions holds the changed-set command's flags.
type ChangedSetOptions struct {
	*RootOptions
}

// NewChangedSetCommand builds `gdslv changed-set`.
func NewChangedSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChangedSetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "changed-set <diff-file>",
		Short:         "List the page indices a diff manifest touches",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChangedSet(opts, args[0], cmd)
		},
	}

	return cmd
}

func runChangedSet(opts *ChangedSetOptions, diffPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	diffFile, err := os.Open(diffPath)
	if err != nil {
		return outputCLIError(formatter, ErrCodeReadFile, fmt.Sprintf("reading diff file: %v", err))
	}
	defer diffFile.Close()

	result, err := diffengine.Decode(diffFile)
	if err != nil {
		return outputCLIError(formatter, ErrCodeReadFile, fmt.Sprintf("decoding diff manifest: %v", err))
	}

	pages, ok := diffengine.ChangedSet(result, -1)
	if !ok {
		return outputCLIError(formatter, ErrCodeBadLevel, "changed set did not fit")
	}

	return formatter.Success(map[string]any{"pages": pages, "count": len(pages)})
}
