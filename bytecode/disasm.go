package bytecode

import (
	"fmt"
	"strings"

	"github.com/jboer/jinx/variant"
)

// Disassemble returns a human-readable instruction listing.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable instruction listing with a
// name header, the way a host might label a dump of one library's
// compiled bytecode.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder
	if name != "" {
		fmt.Fprintf(&sb, "; === %s ===\n", name)
	}
	fmt.Fprintf(&sb, "; Jinx bytecode v%d, %d bytes\n\n", Version, c.buf.Len())

	r := variant.NewReader(c.buf.Bytes())
	for r.Remaining() > 0 {
		offset := r.Pos()
		line, err := disassembleOne(r)
		if err != nil {
			fmt.Fprintf(&sb, "%04X  <error: %v>\n", offset, err)
			break
		}
		fmt.Fprintf(&sb, "%04X  %s\n", offset, line)
	}
	return sb.String()
}

// disassembleOne reads one instruction from r (advancing it) and renders
// it as one listing line.
func disassembleOne(r *variant.Buffer) (string, error) {
	opByte, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	op := Opcode(opByte)
	if !op.Valid() {
		return fmt.Sprintf("<invalid opcode 0x%02X>", opByte), nil
	}

	switch op.Operand() {
	case OperandNone:
		return op.String(), nil

	case OperandRuntimeID:
		id, err := r.ReadUint64()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-14s 0x%016X", op.String(), id), nil

	case OperandString:
		s, err := r.ReadString()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-14s %q", op.String(), s), nil

	case OperandOffset:
		target, err := r.ReadUint32()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-14s -> %04X", op.String(), target), nil

	case OperandCount:
		n, err := r.ReadUint32()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-14s %d", op.String(), n), nil

	case OperandValue:
		v, err := variant.Deserialize(r)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-14s %s (%s)", op.String(), v.AsString(), v.Kind()), nil

	case OperandKindByte:
		k, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-14s as %s", op.String(), variant.Kind(k)), nil

	case OperandSetIndex:
		name, err := r.ReadString()
		if err != nil {
			return "", err
		}
		idx, err := r.ReadInt32()
		if err != nil {
			return "", err
		}
		typedByte, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if typedByte != 0 {
			kb, err := r.ReadByte()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%-14s %q @%d as %s", op.String(), name, idx, variant.Kind(kb)), nil
		}
		return fmt.Sprintf("%-14s %q @%d", op.String(), name, idx), nil

	case OperandFunction:
		sig, err := DeserializeFunction(r)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-14s %s :: %s", op.String(), sig.Library, sig.String()), nil

	case OperandProperty:
		p, err := DeserializeProperty(r)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%-14s %s.%s (%s)", op.String(), p.Library, p.Name, p.Visibility), nil

	default:
		return op.String(), nil
	}
}
