package verify

import "github.com/streamsafe/gdsl/internal/diagnostic"

// Level selects which rule families are enforced.
type Level int

const (
	Syntax Level = iota
	Phase
	Domain
)

func (l Level) String() string {
	switch l {
	case Syntax:
		return "syntax"
	case Phase:
		return "phase"
	case Domain:
		return "domain"
	default:
		return "unknown"
	}
}

// options holds the recognized verifier configuration knobs.
type options struct {
	ignoreUnknownOpcodes bool
	continueOnError      bool
	diagnosticCapacity   int
	forceReverify        bool
}

func defaultOptions() options {
	return options{
		ignoreUnknownOpcodes: false,
		continueOnError:      true,
		diagnosticCapacity:   diagnostic.DefaultCapacity,
		forceReverify:        false,
	}
}

// Option configures a Verify call, following the same functional-option
// pattern used throughout this codebase's configurable constructors.
type Option func(*options)

// WithIgnoreUnknownOpcodes treats unrecognized opcodes as
// state-preserving one-byte no-ops instead of Syntax errors.
func WithIgnoreUnknownOpcodes(ignore bool) Option {
	return func(o *options) { o.ignoreUnknownOpcodes = ignore }
}

// WithContinueOnError controls the failure-continuation policy.
// Default true: keep processing past errors to maximize diagnostic
// yield, bounded by the diagnostic buffer's capacity.
func WithContinueOnError(cont bool) Option {
	return func(o *options) { o.continueOnError = cont }
}

// WithDiagnosticCapacity overrides the diagnostic buffer's capacity.
func WithDiagnosticCapacity(n int) Option {
	return func(o *options) { o.diagnosticCapacity = n }
}

// WithForceReverify records whether a cached verified-hash fast path
// should be bypassed. Verify itself always fully
// re-verifies its input regardless of this flag — it has no cache of
// its own — so this only affects the "verify starting" log line; the
// fast path lives in the caller that owns the cache (internal/history,
// driven from internal/cli), which checks this flag before deciding
// whether to call Verify at all.
func WithForceReverify(force bool) Option {
	return func(o *options) { o.forceReverify = force }
}
