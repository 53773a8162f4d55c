package bytecode

import (
	"fmt"
	"strings"

	"github.com/jboer/jinx/compiler/hash"
	"github.com/jboer/jinx/variant"
)

// RuntimeID is the 64-bit stable identifier used as the key for properties
// and functions throughout the runtime's registries.
type RuntimeID uint64

// Visibility controls whether a property or function is reachable from
// outside the library that declares it.
type Visibility byte

const (
	VisibilityLocal Visibility = iota
	VisibilityPrivate
	VisibilityPublic
)

func (v Visibility) String() string {
	switch v {
	case VisibilityLocal:
		return "local"
	case VisibilityPrivate:
		return "private"
	case VisibilityPublic:
		return "public"
	default:
		return fmt.Sprintf("Visibility(%d)", byte(v))
	}
}

// PropertyName identifies a registered property.
type PropertyName struct {
	Library    string
	Name       string
	Visibility Visibility
	ReadOnly   bool
}

// ID computes the property's RuntimeID from its owning library and name.
func (p PropertyName) ID() RuntimeID {
	return RuntimeID(hash.RuntimeID(p.Library, []string{p.Name}))
}

// Serialize writes a PropertyName using the Property opcode's operand
// layout: visibility byte, read-only byte, library name, property name.
func (p PropertyName) Serialize(buf *variant.Buffer) {
	buf.WriteByte(byte(p.Visibility))
	if p.ReadOnly {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.WriteString(p.Library)
	buf.WriteString(p.Name)
}

// DeserializeProperty reads a PropertyName written by Serialize.
func DeserializeProperty(buf *variant.Buffer) (PropertyName, error) {
	var p PropertyName
	vis, err := buf.ReadByte()
	if err != nil {
		return p, err
	}
	p.Visibility = Visibility(vis)
	ro, err := buf.ReadByte()
	if err != nil {
		return p, err
	}
	p.ReadOnly = ro != 0
	if p.Library, err = buf.ReadString(); err != nil {
		return p, err
	}
	if p.Name, err = buf.ReadString(); err != nil {
		return p, err
	}
	return p, nil
}

// PartKind distinguishes the two kinds of FunctionSignature part.
type PartKind byte

const (
	PartName PartKind = iota
	PartParameter
)

// SignaturePart is one segment of a function signature: either a name
// part (one or more interchangeable aliases, optionally skippable) or a
// parameter part (a typed or untyped placeholder bound to a local name).
type SignaturePart struct {
	Kind PartKind

	// Name part fields.
	Aliases  []string
	Optional bool

	// Parameter part fields.
	ParamName string
	ParamType variant.Kind // meaningful only when Typed is set; otherwise the parameter is untyped ("any")
	Typed     bool
}

// FunctionSignature identifies a registered function by its ordered part
// list.
type FunctionSignature struct {
	Library      string
	Parts        []SignaturePart
	Visibility   Visibility
	ReturnsValue bool
}

// shape returns the part-list encoding fed to the stable hash: name parts
// contribute their sorted alias set (order-independent, since `a/b fn` and
// `b/a fn` are the same signature), parameter parts contribute a fixed
// wildcard token so the declared local name — which callers never see —
// does not affect the id.
func (s FunctionSignature) shape() []string {
	shape := make([]string, 0, len(s.Parts))
	for _, p := range s.Parts {
		if p.Kind == PartParameter {
			shape = append(shape, "\x00param")
			continue
		}
		aliases := append([]string(nil), p.Aliases...)
		sortStrings(aliases)
		shape = append(shape, strings.Join(aliases, "/"))
	}
	return shape
}

// ID computes the signature's RuntimeID.
func (s FunctionSignature) ID() RuntimeID {
	return RuntimeID(hash.RuntimeID(s.Library, s.shape()))
}

// String renders the signature the way Jinx source would spell it, for
// disassembly and error messages.
func (s FunctionSignature) String() string {
	var sb strings.Builder
	for i, p := range s.Parts {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.Kind == PartParameter {
			sb.WriteByte('{')
			sb.WriteString(p.ParamName)
			sb.WriteByte('}')
			continue
		}
		sb.WriteString(strings.Join(p.Aliases, "/"))
		if p.Optional {
			sb.WriteByte('?')
		}
	}
	return sb.String()
}

// Serialize writes a FunctionSignature using the Function opcode's
// operand layout: visibility byte, returns-flag byte, library name,
// parts count, then each part.
func (s FunctionSignature) Serialize(buf *variant.Buffer) {
	buf.WriteByte(byte(s.Visibility))
	if s.ReturnsValue {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.WriteString(s.Library)
	buf.WriteUint32(uint32(len(s.Parts)))
	for _, p := range s.Parts {
		buf.WriteByte(byte(p.Kind))
		if p.Kind == PartParameter {
			buf.WriteString(p.ParamName)
			if p.Typed {
				buf.WriteByte(1)
				buf.WriteByte(byte(p.ParamType))
			} else {
				buf.WriteByte(0)
			}
			continue
		}
		if p.Optional {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		buf.WriteUint32(uint32(len(p.Aliases)))
		for _, a := range p.Aliases {
			buf.WriteString(a)
		}
	}
}

// DeserializeFunction reads a FunctionSignature written by Serialize.
func DeserializeFunction(buf *variant.Buffer) (FunctionSignature, error) {
	var s FunctionSignature
	vis, err := buf.ReadByte()
	if err != nil {
		return s, err
	}
	s.Visibility = Visibility(vis)
	rv, err := buf.ReadByte()
	if err != nil {
		return s, err
	}
	s.ReturnsValue = rv != 0
	if s.Library, err = buf.ReadString(); err != nil {
		return s, err
	}
	count, err := buf.ReadUint32()
	if err != nil {
		return s, err
	}
	s.Parts = make([]SignaturePart, count)
	for i := range s.Parts {
		kindByte, err := buf.ReadByte()
		if err != nil {
			return s, err
		}
		part := SignaturePart{Kind: PartKind(kindByte)}
		if part.Kind == PartParameter {
			if part.ParamName, err = buf.ReadString(); err != nil {
				return s, err
			}
			typedByte, err := buf.ReadByte()
			if err != nil {
				return s, err
			}
			if typedByte != 0 {
				part.Typed = true
				kb, err := buf.ReadByte()
				if err != nil {
					return s, err
				}
				part.ParamType = variant.Kind(kb)
			}
		} else {
			optByte, err := buf.ReadByte()
			if err != nil {
				return s, err
			}
			part.Optional = optByte != 0
			aliasCount, err := buf.ReadUint32()
			if err != nil {
				return s, err
			}
			part.Aliases = make([]string, aliasCount)
			for j := range part.Aliases {
				if part.Aliases[j], err = buf.ReadString(); err != nil {
					return s, err
				}
			}
		}
		s.Parts[i] = part
	}
	return s, nil
}

// sortStrings is a tiny insertion sort; signature part lists are always
// short (a handful of aliases), so this avoids pulling in sort for one
// call site.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
