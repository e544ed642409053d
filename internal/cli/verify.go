package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamsafe/gdsl/internal/canon"
	"github.com/streamsafe/gdsl/internal/config"
	"github.com/streamsafe/gdsl/internal/diagnostic"
	"github.com/streamsafe/gdsl/internal/history"
	"github.com/streamsafe/gdsl/internal/verify"
)

// CLI error codes, numbered in the E0xx band shared by every command.
const (
	ErrCodeReadFile  = "E001"
	ErrCodeProfile   = "E002"
	ErrCodeBadLevel  = "E003"
	ErrCodeWriteFile = "E004"
	ErrCodeHistory   = "E005"
)

// VerifyOptions holds the verify command's flags.
type VerifyOptions struct {
	*RootOptions
	Level         string
	ProfilePath   string
	HistoryPath   string
	ForceReverify bool
}

// NewVerifyCommand builds `gdslv verify`.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "verify <stream-file>",
		Short:         "Verify a GDSL instruction stream",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Level, "level", "", "conformance level: syntax|phase|domain (overrides --profile)")
	cmd.Flags().StringVar(&opts.ProfilePath, "profile", "", "path to a YAML configuration profile")
	cmd.Flags().StringVar(&opts.HistoryPath, "history", "", "path to a SQLite archive to record this run into")
	cmd.Flags().BoolVar(&opts.ForceReverify, "force-reverify", false, "bypass the verified-hash cache and always re-run verification (overrides --profile)")

	return cmd
}

func runVerify(opts *VerifyOptions, streamPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	stream, err := os.ReadFile(streamPath)
	if err != nil {
		return outputCLIError(formatter, ErrCodeReadFile, fmt.Sprintf("reading stream file: %v", err))
	}

	profile := config.Default()
	if opts.ProfilePath != "" {
		p, errs := config.Load(opts.ProfilePath)
		if len(errs) > 0 {
			return outputCLIError(formatter, ErrCodeProfile, fmt.Sprintf("loading profile: %v", errs[0]))
		}
		profile = p
	}

	level := profile.Level
	if opts.Level != "" {
		parsed, ok := levelFromFlag(opts.Level)
		if !ok {
			return outputCLIError(formatter, ErrCodeBadLevel, fmt.Sprintf("unrecognized --level %q", opts.Level))
		}
		level = parsed
	}

	formatter.VerboseLog("verifying %s at level %s (%d bytes)", streamPath, level.String(), len(stream))

	streamHash := canon.StreamHash(stream)
	if opts.ForceReverify {
		profile.ForceReverify = true
	}

	var report *diagnostic.Report
	if opts.HistoryPath != "" && !profile.ForceReverify {
		cached, err := lookupVerifiedRun(opts.HistoryPath, streamHash, level.String())
		if err != nil {
			formatter.VerboseLog("verified-hash cache lookup failed: %v", err)
		} else if cached != nil {
			formatter.VerboseLog("verified-hash fast path hit: reusing run %s", cached.RunID)
			report = cached.Report
		}
	}

	if report == nil {
		report = verify.Verify(stream, level, profile.VerifyOptions()...)
		if opts.HistoryPath != "" {
			if err := recordVerifyHistory(opts.HistoryPath, streamHash, level.String(), report); err != nil {
				formatter.VerboseLog("history recording failed: %v", err)
			}
		}
	}

	if err := formatter.Success(report); err != nil {
		return err
	}
	if !report.Success {
		return &ExitError{Code: ExitFailure, Message: "verification failed"}
	}
	return nil
}

func levelFromFlag(s string) (verify.Level, bool) {
	switch s {
	case "syntax":
		return verify.Syntax, true
	case "phase":
		return verify.Phase, true
	case "domain":
		return verify.Domain, true
	default:
		return verify.Syntax, false
	}
}

func outputCLIError(formatter *OutputFormatter, code, message string) error {
	if err := formatter.Error(code, message, nil); err != nil {
		return err
	}
	return &ExitError{Code: ExitCommandError, Message: message}
}

// recordVerifyHistory archives a verify run, keyed by the stream's own
// content hash, under a freshly minted UUIDv7 run id.
func recordVerifyHistory(path string, streamHash, level string, report *diagnostic.Report) error {
	store, err := history.Open(path)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	runID := history.NewRunID()
	return store.RecordRun(context.Background(), runID, streamHash, level, report, time.Now().UTC().Format(time.RFC3339))
}

// cachedRun is a verified-hash fast-path hit: an archived run whose
// report has been decoded back out of its canonical JSON storage.
type cachedRun struct {
	RunID  string
	Report *diagnostic.Report
}

// lookupVerifiedRun consults the history archive at path for a prior
// successful run over streamHash at level, implementing the cached
// verified-hash fast path that force_reverify bypasses. Returns
// (nil, nil) on a cache miss.
func lookupVerifiedRun(path, streamHash, level string) (*cachedRun, error) {
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	detail, err := store.FindVerifiedRun(context.Background(), streamHash, level)
	if err != nil {
		return nil, fmt.Errorf("querying verified-hash cache: %w", err)
	}
	if detail == nil {
		return nil, nil
	}

	var report diagnostic.Report
	if err := json.Unmarshal([]byte(detail.ReportJSON), &report); err != nil {
		return nil, fmt.Errorf("decoding cached report: %w", err)
	}
	return &cachedRun{RunID: detail.RunID, Report: &report}, nil
}
