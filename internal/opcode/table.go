// Package opcode holds the static, read-only metadata for every GDSL
// instruction: its mnemonic, its fixed wire size, and the phases in
// which it is legal to appear. The table is built once at program
// start and never mutated, so it can be shared across concurrent
// verifier invocations without synchronization.
package opcode

import "github.com/streamsafe/gdsl/internal/machine"

// Code identifies an instruction's opcode byte.
type Code uint8

// Core opcode bytes. Values above 0xBF are reserved for vendor
// extensions (VendorRangeStart..VendorRangeEnd) and never appear here.
const (
	NOP            Code = 0x00
	BEGIN_STREAM   Code = 0x01
	BARRIER        Code = 0x02
	SUBMIT         Code = 0x03
	FENCE_WAIT     Code = 0x04
	END_STREAM     Code = 0x05
	END_PROGRAM    Code = 0x06
	SNAPSHOT_BEGIN Code = 0x07
	SNAPSHOT_END   Code = 0x08
	CHECKPOINT     Code = 0x09
	ALLOC_BUFFER   Code = 0x0A
	ALLOC_IMAGE    Code = 0x0B
	FREE_BUFFER    Code = 0x0C
	FREE_IMAGE     Code = 0x0D
	ASSERT_IDLE    Code = 0x0E

	DRAW           Code = 0x10
	DISPATCH       Code = 0x11
	COPY_BUFFER    Code = 0x12
	COPY_IMAGE     Code = 0x13
	CLEAR          Code = 0x14
	UPLOAD         Code = 0x15
	DOWNLOAD       Code = 0x16
	PIPE_BIND      Code = 0x17
	PIPE_SET       Code = 0x18
	SET_VIEWPORT   Code = 0x19
	BIND_VERTEX    Code = 0x1A
	BIND_INDEX     Code = 0x1B
	PUSH_CONSTANTS Code = 0x1C
	BEGIN_PASS     Code = 0x1D
	END_PASS       Code = 0x1E
	EVENT_SIGNAL   Code = 0x1F
	MARKER_PUSH    Code = 0x20
	MARKER_POP     Code = 0x21
	LOG            Code = 0x22
	QUERY_BEGIN    Code = 0x23
	QUERY_END      Code = 0x24
	CONST_LOAD     Code = 0x25
	ADD            Code = 0x26
	SUB            Code = 0x27
	MUL            Code = 0x28
	DIV            Code = 0x29
	IF_TRUE        Code = 0x2A
	ELSE           Code = 0x2B
	ENDIF          Code = 0x2C
	LOOP           Code = 0x2D
	ENDLOOP        Code = 0x2E
	CALL           Code = 0x2F
	RET            Code = 0x30
	INCLUDE        Code = 0x31
	TIMESTAMP      Code = 0x32
	SLEEP_MS       Code = 0x33

	// VendorRangeStart and VendorRangeEnd bound the reserved
	// vendor-extension range. No core opcode is assigned in it.
	VendorRangeStart Code = 0xC0
	VendorRangeEnd   Code = 0xFF
)

// Info is the static metadata for one opcode.
type Info struct {
	Name    string
	Size    uint8 // total instruction length in bytes, including the opcode byte
	validIn [machine.PhaseCount]bool
}

// ValidIn reports whether the opcode is legal to issue while Γ is in
// the given phase.
func (i Info) ValidIn(p machine.Phase) bool {
	if int(p) < 0 || int(p) >= machine.PhaseCount {
		return false
	}
	return i.validIn[p]
}

// phases is a small builder for the ValidIn bitsets below, so each
// table entry can name its phases instead of hand-indexing an array.
func phases(ps ...machine.Phase) [machine.PhaseCount]bool {
	var out [machine.PhaseCount]bool
	for _, p := range ps {
		out[p] = true
	}
	return out
}

var allPhases = [machine.PhaseCount]bool{true, true, true, true, true}

// Table is the static opcode table, indexed by opcode byte. An entry
// with an empty Name denotes an opcode that is not recognized.
var Table [256]Info

func init() {
	set := func(c Code, name string, size uint8, valid [machine.PhaseCount]bool) {
		Table[c] = Info{Name: name, Size: size, validIn: valid}
	}

	record := phases(machine.PhaseRecord)
	idle := phases(machine.PhaseIdle)
	idleOrRecord := phases(machine.PhaseIdle, machine.PhaseRecord)
	buildOrIdle := phases(machine.PhaseBuild, machine.PhaseIdle)

	set(NOP, "NOP", 1, allPhases)
	set(BEGIN_STREAM, "BEGIN_STREAM", 1, buildOrIdle)
	set(BARRIER, "BARRIER", 13, record) // resource id(4) + src domain(4) + dst domain(4)
	set(SUBMIT, "SUBMIT", 1, record)
	set(FENCE_WAIT, "FENCE_WAIT", 5, phases(machine.PhaseSubmitted)) // fence id(4)
	set(END_STREAM, "END_STREAM", 1, idleOrRecord)
	set(END_PROGRAM, "END_PROGRAM", 1, phases(machine.PhaseFinished))
	set(SNAPSHOT_BEGIN, "SNAPSHOT_BEGIN", 5, idle) // label id(4)
	set(SNAPSHOT_END, "SNAPSHOT_END", 1, allPhases)
	// label(4) + heap_merkle_root(32) + pipeline_table_merkle_root(32) + stream_ptr(8)
	set(CHECKPOINT, "CHECKPOINT", 77, idle)
	set(ALLOC_BUFFER, "ALLOC_BUFFER", 25, idleOrRecord)
	set(ALLOC_IMAGE, "ALLOC_IMAGE", 25, idleOrRecord)
	set(FREE_BUFFER, "FREE_BUFFER", 5, idleOrRecord) // resource id(4)
	set(FREE_IMAGE, "FREE_IMAGE", 5, idleOrRecord)   // resource id(4)
	set(ASSERT_IDLE, "ASSERT_IDLE", 1, idle)

	// Recording-phase no-op opcodes: all phase-valid only in Record,
	// no state mutation.
	for _, c := range []Code{
		DRAW, DISPATCH, COPY_BUFFER, COPY_IMAGE, CLEAR, UPLOAD, DOWNLOAD,
		PIPE_BIND, PIPE_SET, SET_VIEWPORT, BIND_VERTEX, BIND_INDEX,
		PUSH_CONSTANTS, BEGIN_PASS, END_PASS, EVENT_SIGNAL, MARKER_PUSH,
		MARKER_POP, LOG, QUERY_BEGIN, QUERY_END, CONST_LOAD, ADD, SUB,
		MUL, DIV, IF_TRUE, ELSE, ENDIF, LOOP, ENDLOOP, CALL, RET,
		INCLUDE, TIMESTAMP,
	} {
		set(c, codeName(c), 1, record)
	}
	set(SLEEP_MS, "SLEEP_MS", 5, record) // milliseconds(4)
}

// IsVendorRange reports whether the byte falls in the reserved
// vendor-extension range 0xC0-0xFF.
func IsVendorRange(b uint8) bool {
	return b >= uint8(VendorRangeStart) && b <= uint8(VendorRangeEnd)
}

// Lookup returns the opcode metadata for b and whether it is known.
func Lookup(b uint8) (Info, bool) {
	info := Table[b]
	return info, info.Name != ""
}

var codeNames = map[Code]string{
	DRAW: "DRAW", DISPATCH: "DISPATCH", COPY_BUFFER: "COPY_BUFFER",
	COPY_IMAGE: "COPY_IMAGE", CLEAR: "CLEAR", UPLOAD: "UPLOAD",
	DOWNLOAD: "DOWNLOAD", PIPE_BIND: "PIPE_BIND", PIPE_SET: "PIPE_SET",
	SET_VIEWPORT: "SET_VIEWPORT", BIND_VERTEX: "BIND_VERTEX",
	BIND_INDEX: "BIND_INDEX", PUSH_CONSTANTS: "PUSH_CONSTANTS",
	BEGIN_PASS: "BEGIN_PASS", END_PASS: "END_PASS",
	EVENT_SIGNAL: "EVENT_SIGNAL", MARKER_PUSH: "MARKER_PUSH",
	MARKER_POP: "MARKER_POP", LOG: "LOG", QUERY_BEGIN: "QUERY_BEGIN",
	QUERY_END: "QUERY_END", CONST_LOAD: "CONST_LOAD", ADD: "ADD",
	SUB: "SUB", MUL: "MUL", DIV: "DIV", IF_TRUE: "IF_TRUE", ELSE: "ELSE",
	ENDIF: "ENDIF", LOOP: "LOOP", ENDLOOP: "ENDLOOP", CALL: "CALL",
	RET: "RET", INCLUDE: "INCLUDE", TIMESTAMP: "TIMESTAMP",
}

func codeName(c Code) string {
	return codeNames[c]
}
