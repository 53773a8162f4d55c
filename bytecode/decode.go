package bytecode

import "github.com/jboer/jinx/variant"

// Decoder walks a compiled instruction stream one opcode at a time. It is
// the structured counterpart to the disassembler: where Disassemble
// renders a human-readable listing, Decoder hands the Runtime the raw
// opcode and a way to skip or read its operand, for the one-time walk that
// registers every Function signature a freshly compiled chunk declares.
type Decoder struct {
	r *variant.Buffer
}

// NewDecoder wraps a chunk's raw instruction bytes (as returned by
// Chunk.Code) for sequential decoding.
func NewDecoder(code []byte) *Decoder {
	return &Decoder{r: variant.NewReader(code)}
}

func (d *Decoder) Pos() int       { return d.r.Pos() }
func (d *Decoder) Remaining() int { return d.r.Remaining() }

// ReadOp reads the next opcode byte. ok is false at end of stream.
func (d *Decoder) ReadOp() (op Opcode, ok bool) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, false
	}
	return Opcode(b), true
}

// ReadFunction decodes a serialized FunctionSignature at the current
// position, for use immediately after reading an OpFunction opcode.
func (d *Decoder) ReadFunction() (FunctionSignature, error) {
	return DeserializeFunction(d.r)
}

// ReadProperty decodes a serialized PropertyName at the current position,
// for use immediately after reading an OpProperty opcode.
func (d *Decoder) ReadProperty() (PropertyName, error) {
	return DeserializeProperty(d.r)
}

// SkipOperand advances past op's operand without interpreting it,
// according to its declared OperandKind.
func (d *Decoder) SkipOperand(op Opcode) {
	switch op.Operand() {
	case OperandNone:
	case OperandRuntimeID:
		d.r.ReadUint64()
	case OperandString:
		d.r.ReadString()
	case OperandOffset:
		d.r.ReadUint32()
	case OperandCount:
		d.r.ReadUint32()
	case OperandValue:
		variant.Deserialize(d.r)
	case OperandKindByte:
		d.r.ReadByte()
	case OperandSetIndex:
		d.r.ReadString()
		d.r.ReadInt32()
		typedByte, err := d.r.ReadByte()
		if err == nil && typedByte != 0 {
			d.r.ReadByte()
		}
	case OperandFunction:
		DeserializeFunction(d.r)
	case OperandProperty:
		DeserializeProperty(d.r)
	}
}
