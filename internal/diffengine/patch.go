package diffengine

import (
	"fmt"
	"math/bits"
)

// Patch reconstructs the target image from base and a Result produced
// by Diff. Every chunk is validated against the header before any
// bytes are copied.
func Patch(base []byte, result *Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("diffengine: patch: nil diff result")
	}

	pageSize := uint64(result.Header.PageSize)
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	targetLen := result.Header.TargetLength
	payloadLen := uint64(len(result.Payload))

	for i, c := range result.Chunks {
		hi, pageOffset := bits.Mul64(c.PageIndex, pageSize)
		if hi != 0 {
			return nil, fmt.Errorf("diffengine: patch: chunk %d page offset overflow", i)
		}
		if c.Length > pageSize {
			return nil, fmt.Errorf("diffengine: patch: chunk %d length %d exceeds page size %d", i, c.Length, pageSize)
		}
		if pageOffset+c.Length > targetLen {
			return nil, fmt.Errorf("diffengine: patch: chunk %d exceeds target length (%d+%d > %d)", i, pageOffset, c.Length, targetLen)
		}
		if c.DataOffset+c.Length > payloadLen {
			return nil, fmt.Errorf("diffengine: patch: chunk %d exceeds payload length (%d+%d > %d)", i, c.DataOffset, c.Length, payloadLen)
		}
	}

	buffer := make([]byte, targetLen)
	copyLen := uint64(len(base))
	if copyLen > targetLen {
		copyLen = targetLen
	}
	copy(buffer[:copyLen], base[:copyLen])

	for _, c := range result.Chunks {
		pageOffset := c.PageIndex * pageSize
		copy(buffer[pageOffset:pageOffset+c.Length], result.Payload[c.DataOffset:c.DataOffset+c.Length])
	}

	return buffer, nil
}

// ChangedSet enumerates the page indices touched by result, in the
// ascending order the chunks were emitted (mirroring the reference
// read_changed_set). capacity, if non-negative, caps how many indices
// are returned and reports ok=false if the change set would not fit —
// mirroring the reference API's "refuses if supplied capacity is
// insufficient" contract for callers that pre-allocate a fixed buffer.
func ChangedSet(result *Result, capacity int) (pages []uint64, ok bool) {
	if result == nil {
		return nil, true
	}
	if capacity >= 0 && len(result.Chunks) > capacity {
		return nil, false
	}
	pages = make([]uint64, len(result.Chunks))
	for i, c := range result.Chunks {
		pages[i] = c.PageIndex
	}
	return pages, true
}
