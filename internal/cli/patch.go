package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streamsafe/gdsl/internal/diffengine"
)

// PatchOptions holds the patch command's flags.
type PatchOptions struct {
	*RootOptions
	Output string
}

// NewPatchCommand builds `gdslv patch`.
func NewPatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "patch <base-file> <diff-file>",
		Short:         "Reconstruct a target image from a base and a diff manifest",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatch(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "path to write the reconstructed image (required)")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runPatch(opts *PatchOptions, basePath, diffPath string, cmd *cobra.Command) error {
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
	diffFile, err := os.Open(diffPath)
	if err != nil {
		return outputCLIError(formatter, ErrCodeReadFile, fmt.Sprintf("reading diff file: %v", err))
	}
	defer diffFile.Close()

	result, err := diffengine.Decode(diffFile)
	if err != nil {
		return outputCLIError(formatter, ErrCodeReadFile, fmt.Sprintf("decoding diff manifest: %v", err))
	}

	patched, err := diffengine.Patch(base, result)
	if err != nil {
		return outputCLIError(formatter, ErrCodeBadLevel, fmt.Sprintf("patching: %v", err))
	}

	if err := os.WriteFile(opts.Output, patched, 0o644); err != nil {
		return outputCLIError(formatter, ErrCodeWriteFile, fmt.Sprintf("writing output file: %v", err))
	}

	return formatter.Success(map[string]any{
		"output":        opts.Output,
		"target_length": len(patched),
	})
}
