package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_KeyOrdering(t *testing.T) {
	obj := map[string]any{
		"b": int64(2),
		"a": int64(1),
		"c": int64(3),
	}
	got, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(got))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	got, err := Marshal(map[string]any{"tag": "<a>&</a>"})
	require.NoError(t, err)
	assert.Equal(t, `{"tag":"<a>&</a>"}`, string(got))
}

func TestMarshal_RejectsFloat(t *testing.T) {
	_, err := Marshal(map[string]any{"x": 1.5})
	assert.Error(t, err)
}

func TestMarshal_RejectsNil(t *testing.T) {
	_, err := Marshal(nil)
	assert.Error(t, err)
}

func TestMarshal_Deterministic(t *testing.T) {
	obj := map[string]any{
		"z": "last",
		"a": []any{int64(1), int64(2), int64(3)},
		"m": map[string]any{"nested": true},
	}
	first, err := Marshal(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestStreamHash_Deterministic(t *testing.T) {
	stream := []byte{0x01, 0x02, 0x03}
	assert.Equal(t, StreamHash(stream), StreamHash(stream))
	assert.NotEqual(t, StreamHash(stream), StreamHash([]byte{0x01, 0x02, 0x04}))
}

func TestReportHash_StableAcrossKeyOrder(t *testing.T) {
	a := map[string]any{"success": true, "error_count": int64(0)}
	b := map[string]any{"error_count": int64(0), "success": true}
	ha, err := ReportHash(a)
	require.NoError(t, err)
	hb, err := ReportHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}
