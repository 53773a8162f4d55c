package variant

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Buffer is a growable, position-addressable byte buffer used both for
// serialized Variant payloads and, via the same helpers, for the bytecode
// writer in package bytecode. All multi-byte primitives are little-endian,
// per the wire format.
type Buffer struct {
	data []byte
	pos  int
}

// NewBinaryBuffer returns an empty writable buffer.
func NewBinaryBuffer() *Buffer {
	return &Buffer{data: make([]byte, 0, 64)}
}

// NewReader wraps existing bytes for sequential reads starting at
// position 0.
func NewReader(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the buffer's full backing slice.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of bytes currently stored.
func (b *Buffer) Len() int { return len(b.data) }

// Pos returns the current read cursor. Writes always append at the end and
// do not use or move it.
func (b *Buffer) Pos() int { return b.pos }

// Seek repositions the read cursor for a subsequent read.
func (b *Buffer) Seek(pos int) { b.pos = pos }

// Remaining reports how many unread bytes are left from the cursor.
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

func (b *Buffer) WriteByte(v byte) {
	b.data = append(b.data, v)
}

func (b *Buffer) WriteBytes(v []byte) {
	b.data = append(b.data, v...)
}

func (b *Buffer) WriteUint32(v uint32) {
	b.data = binary.LittleEndian.AppendUint32(b.data, v)
}

func (b *Buffer) WriteInt32(v int32) {
	b.WriteUint32(uint32(v))
}

func (b *Buffer) WriteUint64(v uint64) {
	b.data = binary.LittleEndian.AppendUint64(b.data, v)
}

func (b *Buffer) WriteInt64(v int64) {
	b.WriteUint64(uint64(v))
}

func (b *Buffer) WriteFloat64(v float64) {
	b.WriteUint64(math.Float64bits(v))
}

// WriteString writes a 4-byte little-endian length prefix followed by the
// UTF-8 bytes, matching the length-prefixed-string operand layout used
// throughout the bytecode format.
func (b *Buffer) WriteString(s string) {
	b.WriteUint32(uint32(len(s)))
	b.data = append(b.data, s...)
}

// PatchByteAt overwrites a single previously-written byte without
// disturbing the append position, used by the bytecode writer's
// forward-jump backfill.
func (b *Buffer) PatchByteAt(offset int, v byte) {
	b.data[offset] = v
}

// PatchUint32At overwrites a 4-byte field written earlier (e.g. a jump
// placeholder) once the real value is known.
func (b *Buffer) PatchUint32At(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.data[offset:offset+4], v)
}

func (b *Buffer) ReadByte() (byte, error) {
	if b.Remaining() < 1 {
		return 0, fmt.Errorf("variant: buffer underrun reading byte at %d", b.pos)
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if b.Remaining() < n {
		return nil, fmt.Errorf("variant: buffer underrun reading %d bytes at %d", n, b.pos)
	}
	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

func (b *Buffer) ReadUint32() (uint32, error) {
	raw, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadUint64() (uint64, error) {
	raw, err := b.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

func (b *Buffer) ReadInt64() (int64, error) {
	v, err := b.ReadUint64()
	return int64(v), err
}

func (b *Buffer) ReadFloat64() (float64, error) {
	v, err := b.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

func (b *Buffer) ReadString() (string, error) {
	n, err := b.ReadUint32()
	if err != nil {
		return "", err
	}
	raw, err := b.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
