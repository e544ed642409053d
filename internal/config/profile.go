// Package config loads and validates the YAML profiles operators use to
// pin verifier and diff-engine behavior, unifying them against a CUE
// schema before use.
package config

import (
	"fmt"

	"github.com/streamsafe/gdsl/internal/verify"
)

// Validation error codes, numbered in the E2xx band (the CLI's own
// error codes use E0xx).
const (
	ErrCodeLevel               = "E201" // unrecognized verifier level
	ErrCodePageSizeNotPowerOf2 = "E202" // diff page size not a power of two
	ErrCodeSchema              = "E203" // CUE schema unification failure
	ErrCodeYAML                = "E204" // YAML parse failure
	ErrCodeNotFound            = "E205" // profile file not found
)

// ValidationError reports one problem found while loading a Profile.
type ValidationError struct {
	Field   string
	Message string
	Code    string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Profile bundles the verifier and diff-engine options a single
// operator-authored YAML document can pin.
type Profile struct {
	Level                verify.Level
	IgnoreUnknownOpcodes bool
	ContinueOnError      bool
	ForceReverify        bool
	DiagnosticCapacity   int
	PageSize             uint32
}

// rawProfile is the literal YAML/CUE shape: Level travels as a string
// ("syntax"/"phase"/"domain") on the wire since that is what both the
// CUE schema and a human-authored YAML file use; parseLevel converts
// it to verify.Level once unification has already bounded it to the
// three recognized spellings.
type rawProfile struct {
	Level                string `yaml:"level"`
	IgnoreUnknownOpcodes bool   `yaml:"ignore_unknown_opcodes"`
	ContinueOnError      bool   `yaml:"continue_on_error"`
	ForceReverify        bool   `yaml:"force_reverify"`
	DiagnosticCapacity   int    `yaml:"diagnostic_capacity"`
	PageSize             uint32 `yaml:"page_size"`
}

func parseLevel(s string) (verify.Level, bool) {
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

// Default returns the Profile the CUE schema's own defaults describe,
// for callers that want sane options without loading a file.
func Default() *Profile {
	return &Profile{
		Level:              verify.Domain,
		DiagnosticCapacity: 256,
		PageSize:           4096,
	}
}

// VerifyOptions translates p into the functional options verify.Verify
// accepts.
func (p *Profile) VerifyOptions() []verify.Option {
	return []verify.Option{
		verify.WithDiagnosticCapacity(p.DiagnosticCapacity),
		verify.WithIgnoreUnknownOpcodes(p.IgnoreUnknownOpcodes),
		verify.WithContinueOnError(p.ContinueOnError),
		verify.WithForceReverify(p.ForceReverify),
	}
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// validate applies the checks the CUE schema cannot concisely express
// (power-of-two page size) on top of what unification already
// enforced.
func (p *Profile) validate() []ValidationError {
	var errs []ValidationError
	if !isPowerOfTwo(p.PageSize) {
		errs = append(errs, ValidationError{
			Field:   "page_size",
			Message: fmt.Sprintf("%d is not a power of two", p.PageSize),
			Code:    ErrCodePageSizeNotPowerOf2,
		})
	}
	switch p.Level {
	case verify.Syntax, verify.Phase, verify.Domain:
	default:
		errs = append(errs, ValidationError{
			Field:   "level",
			Message: fmt.Sprintf("unrecognized level %q", p.Level),
			Code:    ErrCodeLevel,
		})
	}
	return errs
}
