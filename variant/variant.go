// Package variant implements Jinx's dynamic value type and the small
// binary primitives (an ordered collection and a positional byte buffer)
// built on top of it.
package variant

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Kind identifies which alternative of the Variant tagged union is active.
type Kind byte

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindNumber
	KindString
	KindCollection
	KindGUID
	KindBuffer
	KindValueType
)

// String returns the lowercase keyword Jinx source uses to name this kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindCollection:
		return "collection"
	case KindGUID:
		return "guid"
	case KindBuffer:
		return "buffer"
	case KindValueType:
		return "type"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// Variant is Jinx's dynamic value: exactly one of the payload fields below
// is meaningful, selected by kind. A plain Go copy of a Variant that holds
// a Collection shares the same *Collection; Clone (see Collection.Clone)
// makes the independent deep copy, which the VM takes when it pushes or
// assigns a variable or property and when it binds a parameter.
type Variant struct {
	kind       Kind
	boolVal    bool
	intVal     int64
	numVal     float64
	stringVal  string
	collVal    *Collection
	guidVal    uuid.UUID
	bufferVal  []byte
	typeVal    Kind
}

// Null is the zero Variant.
var Null = Variant{kind: KindNull}

func NewBoolean(b bool) Variant { return Variant{kind: KindBoolean, boolVal: b} }
func NewInteger(i int64) Variant { return Variant{kind: KindInteger, intVal: i} }
func NewNumber(f float64) Variant { return Variant{kind: KindNumber, numVal: f} }
func NewString(s string) Variant { return Variant{kind: KindString, stringVal: s} }
func NewValueType(k Kind) Variant { return Variant{kind: KindValueType, typeVal: k} }

// NewCollection wraps an existing Collection. The Variant takes ownership;
// callers that still need their own copy should Clone first.
func NewCollection(c *Collection) Variant {
	if c == nil {
		c = NewColl()
	}
	return Variant{kind: KindCollection, collVal: c}
}

// NewGUID generates a fresh random 128-bit identifier, mirroring the
// runtime's use of uuid.New for object identity.
func NewGUID() Variant {
	return Variant{kind: KindGUID, guidVal: uuid.New()}
}

// NewGUIDFrom wraps an existing UUID value (e.g. one parsed from source or
// received from a host call).
func NewGUIDFrom(id uuid.UUID) Variant {
	return Variant{kind: KindGUID, guidVal: id}
}

// NewBuffer wraps a byte slice. The slice is copied so later mutation by
// the caller cannot reach back into the Variant.
func NewBuffer(b []byte) Variant {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Variant{kind: KindBuffer, bufferVal: cp}
}

func (v Variant) Kind() Kind { return v.kind }

func (v Variant) IsNull() bool       { return v.kind == KindNull }
func (v Variant) IsCollection() bool { return v.kind == KindCollection }

// Collection returns the underlying collection pointer. Callers that intend
// to keep the result beyond the current operation must treat it as
// borrowed: mutating it mutates this Variant's value in place.
func (v Variant) Collection() *Collection {
	if v.kind != KindCollection {
		return nil
	}
	return v.collVal
}

func (v Variant) GUID() uuid.UUID {
	return v.guidVal
}

func (v Variant) Buffer() []byte {
	return v.bufferVal
}

func (v Variant) TypeValue() Kind {
	return v.typeVal
}

// IsTruthy reports whether the value counts as true in a conditional.
// Null and false are falsy; the zero integer/number and empty string/
// collection are NOT falsy (Jinx, unlike many scripting languages, only
// treats an explicit boolean false and null as false).
func (v Variant) IsTruthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBoolean:
		return v.boolVal
	default:
		return true
	}
}

// AsString renders the value the way Jinx's `to string` cast and
// string-concatenation operator do.
func (v Variant) AsString() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBoolean:
		if v.boolVal {
			return "true"
		}
		return "false"
	case KindInteger:
		return strconv.FormatInt(v.intVal, 10)
	case KindNumber:
		return strconv.FormatFloat(v.numVal, 'g', -1, 64)
	case KindString:
		return v.stringVal
	case KindGUID:
		return v.guidVal.String()
	case KindBuffer:
		return fmt.Sprintf("<buffer %d bytes>", len(v.bufferVal))
	case KindCollection:
		return v.collVal.String()
	case KindValueType:
		return v.typeVal.String()
	default:
		return ""
	}
}

// AsInt converts to an integer, following numeric promotion rules: numbers
// truncate toward zero, booleans are 0/1, strings parse as decimal, and
// anything else is 0.
func (v Variant) AsInt() int64 {
	switch v.kind {
	case KindInteger:
		return v.intVal
	case KindNumber:
		return int64(v.numVal)
	case KindBoolean:
		if v.boolVal {
			return 1
		}
		return 0
	case KindString:
		n, _ := strconv.ParseInt(v.stringVal, 10, 64)
		return n
	default:
		return 0
	}
}

// AsFloat converts to a number.
func (v Variant) AsFloat() float64 {
	switch v.kind {
	case KindNumber:
		return v.numVal
	case KindInteger:
		return float64(v.intVal)
	case KindBoolean:
		if v.boolVal {
			return 1
		}
		return 0
	case KindString:
		f, _ := strconv.ParseFloat(v.stringVal, 64)
		return f
	default:
		return 0
	}
}

// AsBool converts to a boolean using IsTruthy; kept as a distinct method so
// call sites that specifically want a `to boolean` cast read clearly.
func (v Variant) AsBool() bool {
	return v.IsTruthy()
}

// Clone returns a value-semantics copy: collection payloads are deep
// copied, every other kind is copied by value already (Go's assignment
// does that for free), so Clone only needs to special-case KindCollection.
func (v Variant) Clone() Variant {
	if v.kind == KindCollection && v.collVal != nil {
		return NewCollection(v.collVal.Clone())
	}
	return v
}

// Equal implements structural equality: collections compare by ordered
// key/value sequence, everything else compares by kind-appropriate value.
func (v Variant) Equal(other Variant) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBoolean:
		return v.boolVal == other.boolVal
	case KindInteger:
		return v.intVal == other.intVal
	case KindNumber:
		return v.numVal == other.numVal
	case KindString:
		return v.stringVal == other.stringVal
	case KindGUID:
		return v.guidVal == other.guidVal
	case KindValueType:
		return v.typeVal == other.typeVal
	case KindBuffer:
		if len(v.bufferVal) != len(other.bufferVal) {
			return false
		}
		for i := range v.bufferVal {
			if v.bufferVal[i] != other.bufferVal[i] {
				return false
			}
		}
		return true
	case KindCollection:
		return v.collVal.Equal(other.collVal)
	default:
		return false
	}
}

// isNumeric reports whether a kind participates in numeric promotion.
func isNumeric(k Kind) bool { return k == KindInteger || k == KindNumber }

// Add implements the `+` operator: string concatenation if either operand
// is a string, numeric promotion (integer+integer stays integer, any
// number operand promotes both) otherwise. Returns an error for
// incompatible kinds.
func Add(a, b Variant) (Variant, error) {
	if a.kind == KindString || b.kind == KindString {
		return NewString(a.AsString() + b.AsString()), nil
	}
	if !isNumeric(a.kind) || !isNumeric(b.kind) {
		return Null, fmt.Errorf("variant: cannot add %s and %s", a.kind, b.kind)
	}
	if a.kind == KindInteger && b.kind == KindInteger {
		return NewInteger(a.intVal + b.intVal), nil
	}
	return NewNumber(a.AsFloat() + b.AsFloat()), nil
}

// arith applies a binary numeric operator, promoting to number unless both
// operands are integers.
func arith(a, b Variant, name string, intOp func(int64, int64) int64, fltOp func(float64, float64) float64) (Variant, error) {
	if !isNumeric(a.kind) || !isNumeric(b.kind) {
		return Null, fmt.Errorf("variant: cannot %s %s and %s", name, a.kind, b.kind)
	}
	if a.kind == KindInteger && b.kind == KindInteger {
		return NewInteger(intOp(a.intVal, b.intVal)), nil
	}
	return NewNumber(fltOp(a.AsFloat(), b.AsFloat())), nil
}

func Subtract(a, b Variant) (Variant, error) {
	return arith(a, b, "subtract", func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
}

func Multiply(a, b Variant) (Variant, error) {
	return arith(a, b, "multiply", func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
}

func Divide(a, b Variant) (Variant, error) {
	if a.kind == KindInteger && b.kind == KindInteger {
		if b.intVal == 0 {
			return Null, fmt.Errorf("variant: division by zero")
		}
		return NewInteger(a.intVal / b.intVal), nil
	}
	if !isNumeric(a.kind) || !isNumeric(b.kind) {
		return Null, fmt.Errorf("variant: cannot divide %s and %s", a.kind, b.kind)
	}
	return NewNumber(a.AsFloat() / b.AsFloat()), nil
}

func Modulo(a, b Variant) (Variant, error) {
	if a.kind == KindInteger && b.kind == KindInteger {
		if b.intVal == 0 {
			return Null, fmt.Errorf("variant: modulo by zero")
		}
		return NewInteger(a.intVal % b.intVal), nil
	}
	return Null, fmt.Errorf("variant: cannot modulo %s and %s", a.kind, b.kind)
}

// Compare implements ordering for the relational operators. Strings
// compare byte-wise; numeric kinds compare after promotion. Any other
// combination is a type error, matching the spec's "type errors halt the
// script" rule.
func Compare(a, b Variant) (int, error) {
	if a.kind == KindString && b.kind == KindString {
		switch {
		case a.stringVal < b.stringVal:
			return -1, nil
		case a.stringVal > b.stringVal:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if isNumeric(a.kind) && isNumeric(b.kind) {
		af, bf := a.AsFloat(), b.AsFloat()
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, fmt.Errorf("variant: cannot compare %s and %s", a.kind, b.kind)
}

// Cast converts v to the requested kind, per the `as <type>` expression
// operator. Conversions that don't make sense (e.g. collection as integer)
// are an error.
func Cast(v Variant, to Kind) (Variant, error) {
	switch to {
	case KindInteger:
		if v.kind == KindCollection || v.kind == KindBuffer {
			return Null, fmt.Errorf("variant: cannot cast %s as integer", v.kind)
		}
		return NewInteger(v.AsInt()), nil
	case KindNumber:
		if v.kind == KindCollection || v.kind == KindBuffer {
			return Null, fmt.Errorf("variant: cannot cast %s as number", v.kind)
		}
		return NewNumber(v.AsFloat()), nil
	case KindString:
		return NewString(v.AsString()), nil
	case KindBoolean:
		return NewBoolean(v.IsTruthy()), nil
	case KindCollection, KindGUID, KindBuffer, KindValueType, KindNull:
		if v.kind != to {
			return Null, fmt.Errorf("variant: cannot cast %s as %s", v.kind, to)
		}
		return v, nil
	default:
		return Null, fmt.Errorf("variant: unknown cast target kind %d", byte(to))
	}
}
