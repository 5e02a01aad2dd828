package ioadapter

import "fmt"

// growthIncrement is the slurp allocation chunk size.
const growthIncrement = 64 * 1024

// IoError wraps an upstream Adapter failure or an allocation failure
// encountered while slurping or seeking the in-memory buffer.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ioadapter: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ioadapter: %s", e.Op)
}

func (e *IoError) Unwrap() error { return e.Err }

// Buffer is the full-file in-memory byte store the SMF parser reads and
// seeks against. It is built once, at decoder-open time, by slurping an
// Adapter handle to EOF.
type Buffer struct {
	data []byte
	pos  int64
}

// Slurp reads h to EOF via adapter, growing in 64 KiB increments, then
// shrinks the backing array to the exact size read.
func Slurp(adapter Adapter, h Handle) (*Buffer, error) {
	data := make([]byte, 0, growthIncrement)
	chunk := make([]byte, growthIncrement)

	for {
		n, err := adapter.Read(h, chunk)
		if err != nil {
			return nil, &IoError{Op: "read", Err: err}
		}
		if n < 0 {
			return nil, &IoError{Op: "read", Err: fmt.Errorf("negative read count")}
		}
		if n == 0 {
			break
		}
		if len(data)+n > cap(data) {
			grown := make([]byte, len(data), cap(data)+growthIncrement)
			copy(grown, data)
			data = grown
		}
		data = append(data, chunk[:n]...)
	}

	exact := make([]byte, len(data))
	copy(exact, data)
	return &Buffer{data: exact}, nil
}

// FromBytes wraps an already-in-memory byte slice as a Buffer, bypassing
// Slurp. Used by tests.
func FromBytes(data []byte) *Buffer {
	exact := make([]byte, len(data))
	copy(exact, data)
	return &Buffer{data: exact}
}

// Len returns the total number of bytes in the buffer.
func (b *Buffer) Len() int64 { return int64(len(b.data)) }

// Tell returns the current byte offset.
func (b *Buffer) Tell() int64 { return b.pos }

// Seek repositions the internal offset relative to whence, clamped to
// [0, Len()]. Seeking outside that range fails.
func (b *Buffer) Seek(offset int64, whence Whence) (int64, error) {
	var target int64
	switch whence {
	case SeekBegin:
		target = offset
	case SeekCurrent:
		target = b.pos + offset
	case SeekEnd:
		target = b.Len() + offset
	default:
		return 0, &IoError{Op: "seek", Err: fmt.Errorf("unknown whence %d", whence)}
	}
	if target < 0 || target > b.Len() {
		return 0, &IoError{Op: "seek", Err: fmt.Errorf("offset %d out of range [0,%d]", target, b.Len())}
	}
	b.pos = target
	return b.pos, nil
}

// Read copies up to len(p) bytes starting at the current offset and
// advances the offset by the number of bytes copied. It never errors;
// reading past the end simply returns 0.
func (b *Buffer) Read(p []byte) int {
	n := copy(p, b.data[b.pos:])
	b.pos += int64(n)
	return n
}

// ReadAt copies up to len(p) bytes starting at the given absolute offset,
// without moving the internal offset. It returns the number of bytes
// copied, which is 0 when off is at or past Len().
func (b *Buffer) ReadAt(off int64, p []byte) int {
	if off < 0 || off >= b.Len() {
		return 0
	}
	return copy(p, b.data[off:])
}
