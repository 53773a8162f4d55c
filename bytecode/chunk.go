package bytecode

import (
	"fmt"

	"github.com/jboer/jinx/variant"
)

// Magic is the 8-byte marker at the start of every bytecode buffer.
var Magic = [8]byte{'J', 'I', 'N', 'X', 'B', 'C', '0', '1'}

// Version is the current bytecode format version.
const Version uint32 = 1

// Header is the fixed preamble of a bytecode buffer: magic, version, and
// the compiled size (code length, not counting the header itself).
type Header struct {
	Version uint32
	Size    uint32
}

// Chunk is a compiled bytecode buffer: the header plus the instruction
// stream. It is both the parser's emission target and the VM's execution
// input.
type Chunk struct {
	buf *variant.Buffer
}

// NewChunk returns an empty chunk ready for emission.
func NewChunk() *Chunk {
	return &Chunk{buf: variant.NewBinaryBuffer()}
}

// Len returns the number of code bytes emitted so far (not counting the
// header).
func (c *Chunk) Len() int { return c.buf.Len() }

// Code returns the raw instruction bytes.
func (c *Chunk) Code() []byte { return c.buf.Bytes() }

// Tell returns the current append offset, equivalent to Len but named to
// match the read-side Seek/Tell pairing used when backfilling jumps.
func (c *Chunk) Tell() int { return c.buf.Len() }

// EmitOp appends a bare opcode byte with no operand.
func (c *Chunk) EmitOp(op Opcode) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(op))
	return offset
}

// EmitRuntimeID appends an opcode followed by an 8-byte RuntimeID operand.
func (c *Chunk) EmitRuntimeID(op Opcode, id RuntimeID) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(op))
	c.buf.WriteUint64(uint64(id))
	return offset
}

// EmitString appends an opcode followed by a length-prefixed string
// operand.
func (c *Chunk) EmitString(op Opcode, s string) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(op))
	c.buf.WriteString(s)
	return offset
}

// EmitCount appends an opcode followed by a 4-byte count operand.
func (c *Chunk) EmitCount(op Opcode, n uint32) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(op))
	c.buf.WriteUint32(n)
	return offset
}

// EmitValue appends a PushVal instruction for the given Variant.
func (c *Chunk) EmitValue(v variant.Variant) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(OpPushVal))
	v.Serialize(c.buf)
	return offset
}

// EmitCast appends a Cast instruction for the given target kind.
func (c *Chunk) EmitCast(to variant.Kind) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(OpCast))
	c.buf.WriteByte(byte(to))
	return offset
}

// EmitSetIndex appends a SetIndex instruction binding a parameter name to
// a stack index, optionally cast to a declared type.
func (c *Chunk) EmitSetIndex(name string, index int32, typed bool, kind variant.Kind) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(OpSetIndex))
	c.buf.WriteString(name)
	c.buf.WriteInt32(index)
	if typed {
		c.buf.WriteByte(1)
		c.buf.WriteByte(byte(kind))
	} else {
		c.buf.WriteByte(0)
	}
	return offset
}

// EmitFunction appends a Function declaration instruction.
func (c *Chunk) EmitFunction(sig FunctionSignature) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(OpFunction))
	sig.Serialize(c.buf)
	return offset
}

// EmitProperty appends a Property declaration instruction.
func (c *Chunk) EmitProperty(p PropertyName) int {
	offset := c.buf.Len()
	c.buf.WriteByte(byte(OpProperty))
	p.Serialize(c.buf)
	return offset
}

// EmitJump appends a jump instruction with a zero placeholder offset and
// returns the offset of the 4-byte placeholder field, to be backfilled by
// PatchJump once the real target is known.
func (c *Chunk) EmitJump(op Opcode) int {
	c.buf.WriteByte(byte(op))
	placeholder := c.buf.Len()
	c.buf.WriteUint32(0)
	return placeholder
}

// PatchJump overwrites a placeholder written by EmitJump with the current
// end-of-code position, i.e. "jump to right here".
func (c *Chunk) PatchJump(placeholderOffset int) {
	c.PatchJumpTo(placeholderOffset, c.buf.Len())
}

// PatchJumpTo overwrites a placeholder written by EmitJump with an
// explicit absolute target offset.
func (c *Chunk) PatchJumpTo(placeholderOffset int, target int) {
	c.buf.PatchUint32At(placeholderOffset, uint32(target))
}

// EmitLoop appends an unconditional Jump back to loopStart, an absolute
// offset recorded earlier in the same chunk.
func (c *Chunk) EmitLoop(loopStart int) {
	c.buf.WriteByte(byte(OpJump))
	c.buf.WriteUint32(uint32(loopStart))
}

// Serialize returns the full bytecode buffer: header followed by the
// instruction stream.
func (c *Chunk) Serialize() []byte {
	out := variant.NewBinaryBuffer()
	out.WriteBytes(Magic[:])
	out.WriteUint32(Version)
	out.WriteUint32(uint32(c.buf.Len()))
	out.WriteBytes(c.buf.Bytes())
	return out.Bytes()
}

// Deserialize parses a full bytecode buffer (header + stream) into a
// Chunk.
func Deserialize(data []byte) (*Chunk, error) {
	r := variant.NewReader(data)
	magic, err := r.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading magic: %w", err)
	}
	for i := range Magic {
		if magic[i] != Magic[i] {
			return nil, fmt.Errorf("bytecode: bad magic %x", magic)
		}
	}
	version, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading version: %w", err)
	}
	if version > Version {
		return nil, fmt.Errorf("bytecode: version %d is newer than supported version %d", version, Version)
	}
	size, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading size: %w", err)
	}
	code, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("bytecode: reading code section: %w", err)
	}
	buf := variant.NewBinaryBuffer()
	buf.WriteBytes(code)
	return &Chunk{buf: buf}, nil
}
