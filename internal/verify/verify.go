// Package verify implements the single-pass, deterministic GDSL
// stream verifier: the operational realization of the judgment rules
// Γ ⊢ instr : Γ′.
package verify

import (
	"encoding/binary"
	"log/slog"

	"github.com/streamsafe/gdsl/internal/diagnostic"
	"github.com/streamsafe/gdsl/internal/machine"
	"github.com/streamsafe/gdsl/internal/opcode"
)

// persistFlagBit is the bit of ALLOC_*'s flags operand that marks a
// resource as persistent (the PERSIST flag bit of persist_flag).
const persistFlagBit = uint32(1)

// Verify interprets stream under the given conformance level and
// returns a finished Report. It is pure on (stream, level, opts): no
// environment, clock, random source, or process-global mutable state
// is consulted, so repeated runs over identical input are
// byte-identical.
func Verify(stream []byte, level Level, opts ...Option) *diagnostic.Report {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	buf := diagnostic.NewBuffer(cfg.diagnosticCapacity)
	m := machine.New()

	checkPhase := level >= Phase
	checkDomain := level >= Domain

	slog.Debug("verify starting", "length", len(stream), "level", level.String(), "force_reverify", cfg.forceReverify)

	var offset uint64
	var index uint64            // instruction attempts, including unknown/truncated ones — used for diagnostic attribution
	var instructionCount uint64 // recognized, non-truncated instructions, plus unknown opcodes skipped as no-ops under WithIgnoreUnknownOpcodes
	length := uint64(len(stream))

	for offset < length {
		b := stream[offset]
		info, known := opcode.Lookup(b)

		if !known {
			if cfg.ignoreUnknownOpcodes {
				// State-preserving no-op of length 1.
				instructionCount++
				offset++
				index++
				continue
			}
			buf.Add(diagnostic.Err(index, diagnostic.CodeUnknownOpcode,
				"unknown opcode 0x%02x", b))
			offset++
			index++
			if !cfg.continueOnError {
				break
			}
			continue
		}

		if info.Size == 0 || offset+uint64(info.Size) > length {
			buf.Add(diagnostic.Err(index, diagnostic.CodeTruncated,
				"truncated instruction for %s", info.Name))
			break
		}

		instructionCount++
		operand := stream[offset+1 : offset+uint64(info.Size)]
		findings := dispatch(m, index, opcode.Code(b), info, operand, checkPhase, checkDomain)
		buf.AddAll(findings)

		if !cfg.continueOnError && hasError(findings) {
			offset += uint64(info.Size)
			index++
			break
		}

		offset += uint64(info.Size)
		index++
	}

	if m.SnapshotActive() {
		buf.Add(diagnostic.Err(index, diagnostic.CodeSnapUnterminated,
			"unterminated snapshot region"))
	}
	if m.Phase() != machine.PhaseFinished && m.Phase() != machine.PhaseIdle {
		buf.Add(diagnostic.Err(index, diagnostic.CodeTermNotFinished,
			"stream did not reach Finished/Idle (ended in %s phase)", m.Phase()))
	}
	for _, f := range sortedFences(m.OutstandingFences()) {
		buf.Add(diagnostic.Err(index, diagnostic.CodeFenceOutstanding,
			"fence %d outstanding at end of stream", f))
	}

	report := diagnostic.BuildReport(buf, instructionCount)
	slog.Debug("verify finished",
		"success", report.Success,
		"errors", report.ErrorCount,
		"warnings", report.WarningCount,
		"instructions", report.InstructionCount,
	)
	return report
}

func hasError(fs []diagnostic.Finding) bool {
	for _, f := range fs {
		if f.Severity == diagnostic.Error {
			return true
		}
	}
	return false
}

// sortedFences gives the terminal fence-outstanding diagnostics a
// deterministic order regardless of Go's randomized map iteration.
func sortedFences(ids []uint32) []uint32 {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// dispatch routes one decoded instruction to its judgment rule. This
// is the per-opcode switch the reference implementation's
// gdsl_verify loop hard-codes; unrecognized-but-table-present opcodes
// (the DRAW/DISPATCH/... family with no explicit rule) fall through
// to the meta-rule below: phase-valid opcodes are no-ops, phase-invalid
// ones are a single phase-violation error.
func dispatch(m *machine.Machine, idx uint64, code opcode.Code, info opcode.Info, operand []byte, checkPhase, checkDomain bool) []diagnostic.Finding {
	switch code {
	case opcode.BEGIN_STREAM:
		return m.BeginStream(idx, checkPhase)
	case opcode.END_STREAM:
		return m.EndStream(idx, checkPhase)
	case opcode.SUBMIT:
		findings, _ := m.Submit(idx, checkPhase)
		return findings
	case opcode.FENCE_WAIT:
		fenceID := binary.LittleEndian.Uint32(operand[0:4])
		return m.FenceWait(idx, fenceID, checkPhase)
	case opcode.BARRIER:
		resID := binary.LittleEndian.Uint32(operand[0:4])
		src := machine.Domain(binary.LittleEndian.Uint32(operand[4:8]))
		dst := machine.Domain(binary.LittleEndian.Uint32(operand[8:12]))
		return m.Barrier(idx, resID, src, dst, checkPhase, checkDomain)
	case opcode.ALLOC_BUFFER, opcode.ALLOC_IMAGE:
		id := binary.LittleEndian.Uint32(operand[0:4])
		heapID := binary.LittleEndian.Uint32(operand[4:8])
		// operand[8:16] size, operand[16:20] usage are not interpreted
		// by the abstract machine (it only tracks domain, allocation,
		// persistence, and heap id).
		flags := binary.LittleEndian.Uint32(operand[20:24])
		persist := flags&persistFlagBit != 0
		return m.AllocResource(idx, id, persist, heapID, checkPhase, checkDomain)
	case opcode.FREE_BUFFER, opcode.FREE_IMAGE:
		id := binary.LittleEndian.Uint32(operand[0:4])
		return m.FreeResource(idx, id, checkPhase)
	case opcode.CHECKPOINT:
		cp := machine.Checkpoint{
			LabelID:   binary.LittleEndian.Uint32(operand[0:4]),
			StreamPtr: binary.LittleEndian.Uint64(operand[68:76]),
		}
		copy(cp.HeapMerkleRoot[:], operand[4:36])
		copy(cp.PipelineTableMerkleRoot[:], operand[36:68])
		return m.RegisterCheckpoint(idx, cp, checkPhase)
	case opcode.SNAPSHOT_BEGIN:
		return m.SnapshotBegin(idx, checkPhase, checkDomain)
	case opcode.SNAPSHOT_END:
		return m.SnapshotEnd(idx, checkDomain)
	case opcode.ASSERT_IDLE:
		if checkPhase && m.Phase() != machine.PhaseIdle {
			return []diagnostic.Finding{diagnostic.Err(idx, diagnostic.CodePhaseBadTransition,
				"ASSERT_IDLE failed: phase is %s, not Idle", m.Phase())}
		}
		return nil
	case opcode.END_PROGRAM:
		return m.EndProgram(idx, checkPhase)
	default:
		// Meta-rule: phase-valid opcodes with no explicit rule are
		// no-ops; phase-invalid ones are an error.
		if !checkPhase {
			return nil
		}
		if info.ValidIn(m.Phase()) {
			return nil
		}
		return []diagnostic.Finding{diagnostic.Err(idx, diagnostic.CodePhaseBadTransition,
			"%s not allowed in %s phase", info.Name, m.Phase())}
	}
}
