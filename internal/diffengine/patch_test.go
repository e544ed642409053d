package diffengine

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatch_RoundTripsSingleChangedPage(t *testing.T) {
	base := make([]byte, 8192)
	target := make([]byte, 8192)
	target[4096] = 0xAB
	target[8191] = 0xCD

	result, err := Diff(base, target)
	require.NoError(t, err)

	patched, err := Patch(base, result)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(target, patched))
}

func TestPatch_RoundTripsRandomizedImages(t *testing.T) {
	src := rand.New(rand.NewSource(1))
	base := make([]byte, 5*DefaultPageSize+37)
	target := make([]byte, len(base))
	src.Read(base)
	copy(target, base)

	// Mutate a handful of scattered pages.
	for _, off := range []int{10, DefaultPageSize + 5, 3 * DefaultPageSize} {
		target[off] ^= 0xFF
	}

	result, err := Diff(base, target)
	require.NoError(t, err)

	patched, err := Patch(base, result)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(target, patched))
}

func TestPatch_IdentityWhenNoChunks(t *testing.T) {
	base := make([]byte, 4096)
	for i := range base {
		base[i] = byte(i)
	}
	result, err := Diff(base, base)
	require.NoError(t, err)
	require.Empty(t, result.Chunks)

	patched, err := Patch(base, result)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(base, patched))
}

func TestPatch_RejectsNilResult(t *testing.T) {
	_, err := Patch(nil, nil)
	assert.Error(t, err)
}

func TestPatch_RejectsChunkExceedingTargetLength(t *testing.T) {
	result := &Result{
		Header:  Header{PageSize: DefaultPageSize, TargetLength: 10},
		Chunks:  []Chunk{{PageIndex: 0, Length: 20, DataOffset: 0}},
		Payload: make([]byte, 20),
	}
	_, err := Patch(nil, result)
	assert.Error(t, err)
}

func TestPatch_RejectsChunkExceedingPayloadLength(t *testing.T) {
	result := &Result{
		Header:  Header{PageSize: DefaultPageSize, TargetLength: DefaultPageSize},
		Chunks:  []Chunk{{PageIndex: 0, Length: 100, DataOffset: 50}},
		Payload: make([]byte, 100),
	}
	_, err := Patch(nil, result)
	assert.Error(t, err)
}

func TestPatch_RejectsPageIndexOverflow(t *testing.T) {
	result := &Result{
		Header:  Header{PageSize: DefaultPageSize, TargetLength: 1 << 40},
		Chunks:  []Chunk{{PageIndex: 1 << 60, Length: 1, DataOffset: 0}},
		Payload: make([]byte, 1),
	}
	_, err := Patch(nil, result)
	assert.Error(t, err)
}

func TestChangedSet_ReturnsPagesInEmissionOrder(t *testing.T) {
	base := make([]byte, 3*DefaultPageSize)
	target := make([]byte, 3*DefaultPageSize)
	target[0] = 1
	target[2*DefaultPageSize] = 1

	result, err := Diff(base, target)
	require.NoError(t, err)

	pages, ok := ChangedSet(result, -1)
	require.True(t, ok)
	assert.Equal(t, []uint64{0, 2}, pages)
}

func TestChangedSet_CapacityTooSmallReturnsNotOK(t *testing.T) {
	base := make([]byte, 2*DefaultPageSize)
	target := make([]byte, 2*DefaultPageSize)
	target[0] = 1
	target[DefaultPageSize] = 1

	result, err := Diff(base, target)
	require.NoError(t, err)

	pages, ok := ChangedSet(result, 1)
	assert.False(t, ok)
	assert.Nil(t, pages)
}

func TestChangedSet_NilResultIsEmptyAndOK(t *testing.T) {
	pages, ok := ChangedSet(nil, 5)
	assert.True(t, ok)
	assert.Nil(t, pages)
}
