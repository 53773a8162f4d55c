package variant

import (
	"fmt"

	"github.com/google/uuid"
)

// Serialize writes v as a 1-byte kind tag followed by its kind-specific
// payload, the same encoding the bytecode writer uses for PushVal operands
// (§6 of the format). Collections serialize recursively.
func (v Variant) Serialize(buf *Buffer) {
	buf.WriteByte(byte(v.kind))
	switch v.kind {
	case KindNull:
		// no payload
	case KindBoolean:
		if v.boolVal {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindInteger:
		buf.WriteInt64(v.intVal)
	case KindNumber:
		buf.WriteFloat64(v.numVal)
	case KindString:
		buf.WriteString(v.stringVal)
	case KindGUID:
		raw, _ := v.guidVal.MarshalBinary()
		buf.WriteBytes(raw)
	case KindBuffer:
		buf.WriteUint32(uint32(len(v.bufferVal)))
		buf.WriteBytes(v.bufferVal)
	case KindValueType:
		buf.WriteByte(byte(v.typeVal))
	case KindCollection:
		keys := v.collVal.Keys()
		buf.WriteUint32(uint32(len(keys)))
		for _, k := range keys {
			val, _ := v.collVal.Get(k)
			k.Serialize(buf)
			val.Serialize(buf)
		}
	}
}

// Deserialize reads a Variant written by Serialize.
func Deserialize(buf *Buffer) (Variant, error) {
	tagByte, err := buf.ReadByte()
	if err != nil {
		return Null, err
	}
	kind := Kind(tagByte)
	switch kind {
	case KindNull:
		return Null, nil
	case KindBoolean:
		b, err := buf.ReadByte()
		if err != nil {
			return Null, err
		}
		return NewBoolean(b != 0), nil
	case KindInteger:
		n, err := buf.ReadInt64()
		if err != nil {
			return Null, err
		}
		return NewInteger(n), nil
	case KindNumber:
		f, err := buf.ReadFloat64()
		if err != nil {
			return Null, err
		}
		return NewNumber(f), nil
	case KindString:
		s, err := buf.ReadString()
		if err != nil {
			return Null, err
		}
		return NewString(s), nil
	case KindGUID:
		raw, err := buf.ReadBytes(16)
		if err != nil {
			return Null, err
		}
		id, err := uuid.FromBytes(raw)
		if err != nil {
			return Null, err
		}
		return NewGUIDFrom(id), nil
	case KindBuffer:
		n, err := buf.ReadUint32()
		if err != nil {
			return Null, err
		}
		raw, err := buf.ReadBytes(int(n))
		if err != nil {
			return Null, err
		}
		return NewBuffer(raw), nil
	case KindValueType:
		t, err := buf.ReadByte()
		if err != nil {
			return Null, err
		}
		return NewValueType(Kind(t)), nil
	case KindCollection:
		count, err := buf.ReadUint32()
		if err != nil {
			return Null, err
		}
		coll := NewColl()
		for i := uint32(0); i < count; i++ {
			key, err := Deserialize(buf)
			if err != nil {
				return Null, err
			}
			val, err := Deserialize(buf)
			if err != nil {
				return Null, err
			}
			if err := coll.Set(key, val); err != nil {
				return Null, err
			}
		}
		return NewCollection(coll), nil
	default:
		return Null, fmt.Errorf("variant: unknown kind tag %d", tagByte)
	}
}
