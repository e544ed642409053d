package opcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamsafe/gdsl/internal/machine"
)

func TestLookup_KnownOpcode(t *testing.T) {
	info, ok := Lookup(byte(BEGIN_STREAM))
	require.True(t, ok)
	assert.Equal(t, "BEGIN_STREAM", info.Name)
	assert.Equal(t, uint8(1), info.Size)
}

func TestLookup_UnknownOpcode(t *testing.T) {
	_, ok := Lookup(0x50) // unassigned byte in the core range
	assert.False(t, ok)
}

func TestLookup_VendorRangeIsUnknownAndFlaggedAsVendor(t *testing.T) {
	_, ok := Lookup(0xC0)
	assert.False(t, ok)
	assert.True(t, IsVendorRange(0xC0))
	assert.True(t, IsVendorRange(0xFF))
	assert.False(t, IsVendorRange(0xBF))
}

func TestFixedSizes_OperandCarryingOpcodes(t *testing.T) {
	cases := map[Code]uint8{
		BARRIER:        13,
		FENCE_WAIT:     5,
		SNAPSHOT_BEGIN: 5,
		CHECKPOINT:     77,
		ALLOC_BUFFER:   25,
		ALLOC_IMAGE:    25,
		FREE_BUFFER:    5,
		FREE_IMAGE:     5,
		SLEEP_MS:       5,
	}
	for code, want := range cases {
		info, ok := Lookup(byte(code))
		require.True(t, ok, "opcode %#x should be known", code)
		assert.Equalf(t, want, info.Size, "opcode %#x size", code)
	}
}

func TestValidIn_PhaseGatingMatchesSpecTable(t *testing.T) {
	beginStream, _ := Lookup(byte(BEGIN_STREAM))
	assert.True(t, beginStream.ValidIn(machine.PhaseBuild))
	assert.True(t, beginStream.ValidIn(machine.PhaseIdle))
	assert.False(t, beginStream.ValidIn(machine.PhaseRecord))
	assert.False(t, beginStream.ValidIn(machine.PhaseSubmitted))

	fenceWait, _ := Lookup(byte(FENCE_WAIT))
	assert.True(t, fenceWait.ValidIn(machine.PhaseSubmitted))
	assert.False(t, fenceWait.ValidIn(machine.PhaseIdle))

	nop, _ := Lookup(byte(NOP))
	for p := machine.PhaseBuild; int(p) < machine.PhaseCount; p++ {
		assert.True(t, nop.ValidIn(p), "NOP should be valid in every phase")
	}

	barrier, _ := Lookup(byte(BARRIER))
	assert.True(t, barrier.ValidIn(machine.PhaseRecord))
	assert.False(t, barrier.ValidIn(machine.PhaseIdle))
}

func TestValidIn_OutOfRangePhaseIsFalse(t *testing.T) {
	info, _ := Lookup(byte(NOP))
	assert.False(t, info.ValidIn(machine.Phase(-1)))
	assert.False(t, info.ValidIn(machine.Phase(machine.PhaseCount)))
}

func TestRecordOnlyOpcodesCarryOneByteUnlessNoted(t *testing.T) {
	for _, c := range []Code{DRAW, DISPATCH, COPY_BUFFER, LOG, ADD, RET} {
		info, ok := Lookup(byte(c))
		require.True(t, ok)
		assert.Equal(t, uint8(1), info.Size)
		assert.True(t, info.ValidIn(machine.PhaseRecord))
		assert.False(t, info.ValidIn(machine.PhaseIdle))
	}
}
