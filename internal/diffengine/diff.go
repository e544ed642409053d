// Package diffengine implements a page-granular binary diff/patch
// codec: a deterministic, two-pass size-then-emit algorithm that
// produces a sparse description of the bytes that differ between a
// base and a target image, and reconstructs the target from the base
// plus that description.
package diffengine

import "fmt"

// DefaultPageSize is this implementation's default page granularity.
// The reference C implementation hard-codes 4 KiB; page_size is a
// header field, so other granularities are representable too. See
// DESIGN.md for the reasoning behind keeping 4 KiB as the default.
const DefaultPageSize = 4096

// Version is the on-the-wire diff format version.
const Version = 1

// Header is the fixed-size prefix of the on-the-wire diff format.
type Header struct {
	Version      uint32
	PageSize     uint32
	Flags        uint32
	ChunkCount   uint32
	TargetLength uint64
}

// Chunk describes one changed page's worth of target bytes.
type Chunk struct {
	PageIndex  uint64
	Length     uint64
	DataOffset uint64
}

// Result is a complete diff: header, chunks (sorted by PageIndex,
// non-overlapping), and the concatenated payload of changed-page
// bytes in ascending page-index order.
type Result struct {
	Header  Header
	Chunks  []Chunk
	Payload []byte
}

// Close releases resources owned by a Result. Go's garbage collector
// reclaims Chunks/Payload on its own; this method exists only so
// callers that model a caller-owns-buffers contract (mirroring the
// reference gdsl_diff_result_destroy) have an explicit release point
// to call, e.g. when a Result is held across loop iterations and
// should be dropped early.
func (r *Result) Close() {
	r.Chunks = nil
	r.Payload = nil
	r.Header.ChunkCount = 0
}

type options struct {
	pageSize uint32
}

// Option configures Diff.
type Option func(*options)

// WithPageSize overrides DefaultPageSize. Must be a power of two.
func WithPageSize(n uint32) Option {
	return func(o *options) { o.pageSize = n }
}

func defaultOptions() options {
	return options{pageSize: DefaultPageSize}
}

func isPowerOfTwo(n uint32) bool {
	return n != 0 && n&(n-1) == 0
}

// Diff compares base against target page-by-page and returns a sparse
// description of the changed pages sufficient to reconstruct target
// from base.
func Diff(base, target []byte, opts ...Option) (*Result, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if !isPowerOfTwo(cfg.pageSize) {
		return nil, fmt.Errorf("diffengine: page size %d is not a power of two", cfg.pageSize)
	}

	pageSize := uint64(cfg.pageSize)
	baseLen := uint64(len(base))
	targetLen := uint64(len(target))

	maxLen := baseLen
	if targetLen > maxLen {
		maxLen = targetLen
	}
	totalPages := pageCount(maxLen, pageSize)

	result := &Result{
		Header: Header{
			Version:      Version,
			PageSize:     cfg.pageSize,
			Flags:        0,
			TargetLength: targetLen,
		},
	}

	// First traversal: count changed pages and size the payload, so
	// the second traversal can fill exact-sized slices with no
	// reallocation.
	var chunkCount, payloadSize uint64
	for page := uint64(0); page < totalPages; page++ {
		span, ok := targetSpan(page, pageSize, targetLen)
		if !ok {
			continue
		}
		if pageChanged(base, target, page*pageSize, span) {
			chunkCount++
			payloadSize += span
		}
	}

	if chunkCount == 0 {
		return result, nil
	}

	result.Chunks = make([]Chunk, 0, chunkCount)
	result.Payload = make([]byte, 0, payloadSize)

	for page := uint64(0); page < totalPages; page++ {
		span, ok := targetSpan(page, pageSize, targetLen)
		if !ok {
			continue
		}
		offset := page * pageSize
		if !pageChanged(base, target, offset, span) {
			continue
		}

		dataOffset := uint64(len(result.Payload))
		result.Payload = append(result.Payload, target[offset:offset+span]...)
		result.Chunks = append(result.Chunks, Chunk{
			PageIndex:  page,
			Length:     span,
			DataOffset: dataOffset,
		})
	}

	result.Header.ChunkCount = uint32(len(result.Chunks))
	return result, nil
}

// pageCount returns ceil(length / pageSize), or 0 if length is 0.
func pageCount(length, pageSize uint64) uint64 {
	if length == 0 {
		return 0
	}
	return (length + pageSize - 1) / pageSize
}

// targetSpan returns the byte span of page within target, and false
// if the page lies entirely beyond target_length: bytes beyond
// target_len are never emitted.
func targetSpan(page, pageSize, targetLen uint64) (uint64, bool) {
	offset := page * pageSize
	if offset >= targetLen {
		return 0, false
	}
	remaining := targetLen - offset
	if remaining > pageSize {
		remaining = pageSize
	}
	return remaining, true
}

// pageChanged compares target[offset:offset+span] against base at the
// same offset, treating bytes past either slice's length as zero.
func pageChanged(base, target []byte, offset, span uint64) bool {
	baseLen := uint64(len(base))
	targetLen := uint64(len(target))
	for i := uint64(0); i < span; i++ {
		var baseByte, targetByte byte
		if offset+i < baseLen {
			baseByte = base[offset+i]
		}
		if offset+i < targetLen {
			targetByte = target[offset+i]
		}
		if baseByte != targetByte {
			return true
		}
	}
	return false
}
