// Package bytecode defines Jinx's compiled instruction format: the opcode
// enumeration, the header/instruction-stream binary layout, the Chunk
// writer used by the parser during emission, and a disassembler.
//
// # Format
//
// A serialized buffer begins with an 8-byte magic, a 4-byte version, and a
// 4-byte code size, followed by a tight stream of 1-byte opcodes each
// followed by a fixed, opcode-specific operand layout (RuntimeIDs as 8
// bytes, length-prefixed strings, 4-byte absolute jump targets, tagged
// Variant payloads, and so on — see Opcode.Operand).
//
// # Forward jumps
//
// EmitJump writes a zero placeholder and returns its offset; PatchJump or
// PatchJumpTo overwrite that placeholder once the real target is known,
// without disturbing the chunk's append position. This is the only
// two-pass aspect of an otherwise single-pass pipeline — control-flow
// targets are simply not known until the parser reaches the end of the
// construct being compiled.
package bytecode
