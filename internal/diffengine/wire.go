package diffengine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// headerSize is the fixed byte length of the on-the-wire header:
// u32 version, u32 page_size, u32 flags, u32 chunk_count, u64 target_length.
const headerSize = 4 + 4 + 4 + 4 + 8

// chunkSize is the fixed byte length of one on-the-wire chunk record:
// three little-endian u64 fields (the wire width is fixed at 64 bits
// so the format is stable across platforms regardless of host usize).
const chunkSize = 8 + 8 + 8

// Encode writes result in the on-the-wire diff format: fixed header,
// then chunk_count chunk records, then the payload. All multi-byte
// integers are little-endian.
func Encode(w io.Writer, result *Result) error {
	if result == nil {
		return fmt.Errorf("diffengine: encode: nil result")
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(result.Chunks)*chunkSize + len(result.Payload))

	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[0:4], result.Header.Version)
	buf.Write(tmp[0:4])
	binary.LittleEndian.PutUint32(tmp[0:4], result.Header.PageSize)
	buf.Write(tmp[0:4])
	binary.LittleEndian.PutUint32(tmp[0:4], result.Header.Flags)
	buf.Write(tmp[0:4])
	binary.LittleEndian.PutUint32(tmp[0:4], uint32(len(result.Chunks)))
	buf.Write(tmp[0:4])
	binary.LittleEndian.PutUint64(tmp[0:8], result.Header.TargetLength)
	buf.Write(tmp[0:8])

	for _, c := range result.Chunks {
		binary.LittleEndian.PutUint64(tmp[0:8], c.PageIndex)
		buf.Write(tmp[0:8])
		binary.LittleEndian.PutUint64(tmp[0:8], c.Length)
		buf.Write(tmp[0:8])
		binary.LittleEndian.PutUint64(tmp[0:8], c.DataOffset)
		buf.Write(tmp[0:8])
	}

	buf.Write(result.Payload)

	_, err := w.Write(buf.Bytes())
	return err
}

// EncodeBytes is Encode into an in-memory buffer, for callers (history
// archival) that want the wire bytes directly rather than a Writer.
func EncodeBytes(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a Result from the on-the-wire format written by Encode.
func Decode(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("diffengine: decode: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes parses a Result from an in-memory wire-format buffer.
func DecodeBytes(data []byte) (*Result, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("diffengine: decode: truncated header (%d bytes)", len(data))
	}

	header := Header{
		Version:      binary.LittleEndian.Uint32(data[0:4]),
		PageSize:     binary.LittleEndian.Uint32(data[4:8]),
		Flags:        binary.LittleEndian.Uint32(data[8:12]),
		ChunkCount:   binary.LittleEndian.Uint32(data[12:16]),
		TargetLength: binary.LittleEndian.Uint64(data[16:24]),
	}
	if header.Version != Version {
		return nil, fmt.Errorf("diffengine: decode: unsupported version %d", header.Version)
	}

	offset := headerSize
	chunksEnd := offset + int(header.ChunkCount)*chunkSize
	if chunksEnd < offset || len(data) < chunksEnd {
		return nil, fmt.Errorf("diffengine: decode: truncated chunk table (want %d chunks)", header.ChunkCount)
	}

	chunks := make([]Chunk, header.ChunkCount)
	for i := range chunks {
		base := offset + i*chunkSize
		chunks[i] = Chunk{
			PageIndex:  binary.LittleEndian.Uint64(data[base : base+8]),
			Length:     binary.LittleEndian.Uint64(data[base+8 : base+16]),
			DataOffset: binary.LittleEndian.Uint64(data[base+16 : base+24]),
		}
	}

	payload := data[chunksEnd:]

	return &Result{
		Header:  header,
		Chunks:  chunks,
		Payload: payload,
	}, nil
}
