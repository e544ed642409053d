package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streamsafe/gdsl/internal/diffengine"
)

// DiffOptions holds the diff command's flags.
type DiffOptions struct {
	*RootOptions
	Output   string
	PageSize uint32
}

// NewDiffCommand builds `gdslv diff`.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "diff <base-file> <target-file>",
		Short:         "Produce a page-granular binary diff between two images",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "path to write the diff manifest (required)")
	cmd.Flags().Uint32Var(&opts.PageSize, "page-size", diffengine.DefaultPageSize, "page granularity in bytes (must be a power of two)")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runDiff(opts *DiffOptions, basePath, targetPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	base, err := os.ReadFile(basePath)
	if err != nil {
		return outputCLIError(formatter, ErrCodeReadFile, fmt.Sprintf("reading base file: %v", err))
	}
	target, err := os.ReadFile(targetPath)
	if err != nil {
		return outputCLIError(formatter, ErrCodeReadFile, fmt.Sprintf("reading target file: %v", err))
	}

	result, err := diffengine.Diff(base, target, diffengine.WithPageSize(opts.PageSize))
	if err != nil {
		return outputCLIError(formatter, ErrCodeBadLevel, fmt.Sprintf("diffing: %v", err))
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return outputCLIError(formatter, ErrCodeWriteFile, fmt.Sprintf("creating output file: %v", err))
	}
	defer out.Close()

	if err := diffengine.Encode(out, result); err != nil {
		return outputCLIError(formatter, ErrCodeWriteFile, fmt.Sprintf("writing diff manifest: %v", err))
	}

	return formatter.Success(map[string]any{
		"chunk_count":   len(result.Chunks),
		"page_size":     result.Header.PageSize,
		"target_length": result.Header.TargetLength,
		"output":        opts.Output,
	})
}
