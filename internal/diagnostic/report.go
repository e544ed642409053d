// Package diagnostic implements the bounded, deterministic diagnostic
// buffer the verifier writes into. Message formatting uses only
// integers and fixed-table names (never floats, pointers, wall-clock
// time, or locale-dependent functions) so two runs over identical
// input produce byte-identical reports.
package diagnostic

import "fmt"

// Severity classifies a Finding.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Code families: one short string per distinct failure mode, prefixed
// by its family (SYN, PHASE, FENCE, RES, DOMAIN, SNAP, LABEL, TERM).
const (
	CodeUnknownOpcode      = "SYN-UNKNOWN-OPCODE"
	CodeTruncated          = "SYN-TRUNCATED"
	CodeNullStream         = "SYN-NULL-STREAM"
	CodePhaseBadTransition = "PHASE-BAD-TRANSITION"
	CodePhaseSnapshotBusy  = "PHASE-SNAPSHOT-BUSY"
	CodeFenceUnknown       = "FENCE-UNKNOWN"
	CodeFenceOutstanding   = "FENCE-OUTSTANDING"
	CodeResDoubleAlloc     = "RES-DOUBLE-ALLOC"
	CodeResDoubleFree      = "RES-DOUBLE-FREE"
	CodeResUseAfterFree    = "RES-USE-AFTER-FREE"
	CodeResUnknown         = "RES-UNKNOWN"
	CodeResSnapshotAlloc   = "RES-SNAP-ALLOC"
	CodeDomainBarrierLayer = "DOMAIN-BARRIER-LAYERED"
	CodeDomainMismatch     = "DOMAIN-BARRIER-MISMATCH"
	CodeDomainImplicit     = "DOMAIN-BARRIER-IMPLICIT"
	CodeDomainPersistHost  = "DOMAIN-PERSIST-NOT-HOST"
	CodeDomainPersistPend  = "DOMAIN-PERSIST-PENDING"
	CodeSnapNested         = "SNAP-NESTED"
	CodeSnapUnterminated   = "SNAP-UNTERMINATED"
	CodeSnapEndWithoutBeg  = "SNAP-END-WITHOUT-BEGIN"
	CodeLabelDuplicate     = "LABEL-DUPLICATE"
	CodeTermNotFinished    = "TERM-NOT-FINISHED"
	CodeTermEndProgram     = "TERM-END-PROGRAM-PHASE"
)

// Finding is one diagnostic emitted for a single instruction.
type Finding struct {
	InstructionIndex uint64
	Severity         Severity
	Code             string
	Message          string
}

// Finding constructors keep call sites at the rule level free of
// fmt.Sprintf boilerplate and guarantee deterministic formatting.

func Err(index uint64, code, format string, args ...any) Finding {
	return Finding{InstructionIndex: index, Severity: Error, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Warn(index uint64, code, format string, args ...any) Finding {
	return Finding{InstructionIndex: index, Severity: Warning, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Note(index uint64, code, format string, args ...any) Finding {
	return Finding{InstructionIndex: index, Severity: Info, Code: code, Message: fmt.Sprintf(format, args...)}
}

// DefaultCapacity mirrors GDSL_VERIFY_MAX_DIAGNOSTICS from the
// reference implementation.
const DefaultCapacity = 64

// Buffer is a fixed-capacity, append-only collection of Findings.
// Once full, further Findings are dropped, but the severity tallies
// they would have contributed still increment: the caller can tell
// something was lost even though it cannot see what.
type Buffer struct {
	capacity int
	findings []Finding
	errors   uint64
	warnings uint64
	infos    uint64
	dropped  uint64
}

// NewBuffer creates a Buffer with the given capacity. A capacity of 0
// uses DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity, findings: make([]Finding, 0, capacity)}
}

// Add appends a Finding, dropping it (but still tallying severity) if
// the buffer is at capacity.
func (b *Buffer) Add(f Finding) {
	switch f.Severity {
	case Error:
		b.errors++
	case Warning:
		b.warnings++
	default:
		b.infos++
	}
	if len(b.findings) >= b.capacity {
		b.dropped++
		return
	}
	b.findings = append(b.findings, f)
}

// AddAll appends every Finding in fs, in order.
func (b *Buffer) AddAll(fs []Finding) {
	for _, f := range fs {
		b.Add(f)
	}
}

// Findings returns the retained findings in emission order.
func (b *Buffer) Findings() []Finding { return b.findings }

// Dropped returns how many findings were discarded for capacity.
func (b *Buffer) Dropped() uint64 { return b.dropped }

// Report is the caller-facing summary of a verifier run.
type Report struct {
	Success          bool      `json:"success"`
	InstructionCount uint64    `json:"instruction_count"`
	ErrorCount       uint64    `json:"error_count"`
	WarningCount     uint64    `json:"warning_count"`
	InfoCount        uint64    `json:"info_count"`
	DiagnosticCount  uint64    `json:"diagnostic_count"`
	Dropped          uint64    `json:"dropped_count"`
	Diagnostics      []Finding `json:"diagnostics"`
}

// BuildReport finalizes a Buffer into a Report. success is true iff
// no Error-severity finding was recorded.
func BuildReport(b *Buffer, instructionCount uint64) *Report {
	return &Report{
		Success:          b.errors == 0,
		InstructionCount: instructionCount,
		ErrorCount:       b.errors,
		WarningCount:     b.warnings,
		InfoCount:        b.infos,
		DiagnosticCount:  uint64(len(b.findings)),
		Dropped:          b.dropped,
		Diagnostics:      b.findings,
	}
}
