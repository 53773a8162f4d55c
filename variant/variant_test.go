package variant

import "testing"

func TestIsTruthy(t *testing.T) {
	tests := []struct {
		name string
		v    Variant
		want bool
	}{
		{"null", Null, false},
		{"false", NewBoolean(false), false},
		{"true", NewBoolean(true), true},
		{"zero integer", NewInteger(0), true},
		{"empty string", NewString(""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsTruthy(); got != tt.want {
				t.Errorf("IsTruthy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddPromotion(t *testing.T) {
	sum, err := Add(NewInteger(3), NewInteger(4))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Kind() != KindInteger || sum.AsInt() != 7 {
		t.Errorf("integer+integer = %v, want integer 7", sum)
	}

	sum, err = Add(NewInteger(3), NewNumber(0.5))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Kind() != KindNumber || sum.AsFloat() != 3.5 {
		t.Errorf("integer+number = %v, want number 3.5", sum)
	}

	sum, err = Add(NewString("foo"), NewString("bar"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.AsString() != "foobar" {
		t.Errorf("string+string = %q, want %q", sum.AsString(), "foobar")
	}
}

func TestAddTypeError(t *testing.T) {
	coll := NewCollection(NewColl())
	if _, err := Add(coll, NewInteger(1)); err == nil {
		t.Error("Add(collection, integer) should error")
	}
}

func TestCompare(t *testing.T) {
	cmp, err := Compare(NewInteger(1), NewInteger(2))
	if err != nil || cmp >= 0 {
		t.Errorf("Compare(1, 2) = %d, %v, want negative, nil", cmp, err)
	}
	cmp, err = Compare(NewString("a"), NewString("b"))
	if err != nil || cmp >= 0 {
		t.Errorf("Compare(a, b) = %d, %v, want negative, nil", cmp, err)
	}
	if _, err := Compare(NewString("a"), NewInteger(1)); err == nil {
		t.Error("Compare(string, integer) should error")
	}
}

func TestCastIntegerToString(t *testing.T) {
	out, err := Cast(NewInteger(42), KindString)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if out.AsString() != "42" {
		t.Errorf("Cast(42, string) = %q, want %q", out.AsString(), "42")
	}
}

func TestCastCollectionRejected(t *testing.T) {
	coll := NewCollection(NewColl())
	if _, err := Cast(coll, KindInteger); err == nil {
		t.Error("Cast(collection, integer) should error")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	values := []Variant{
		Null,
		NewBoolean(true),
		NewInteger(-123),
		NewNumber(3.25),
		NewString("hello, jinx"),
		NewGUID(),
		NewBuffer([]byte{1, 2, 3}),
		NewValueType(KindString),
	}
	for _, v := range values {
		buf := NewBinaryBuffer()
		v.Serialize(buf)
		out, err := Deserialize(NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("Deserialize(%v): %v", v, err)
		}
		if !v.Equal(out) {
			t.Errorf("round trip %v != %v", v, out)
		}
	}
}

func TestSerializeCollectionRoundTrip(t *testing.T) {
	coll := NewColl()
	coll.Set(NewString("a"), NewInteger(1))
	coll.Set(NewString("b"), NewInteger(2))
	v := NewCollection(coll)

	buf := NewBinaryBuffer()
	v.Serialize(buf)
	out, err := Deserialize(NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !v.Equal(out) {
		t.Errorf("collection round trip mismatch: %v != %v", v, out)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	coll := NewColl()
	coll.Set(NewString("x"), NewInteger(1))
	original := NewCollection(coll)
	clone := original.Clone()

	clone.Collection().Set(NewString("x"), NewInteger(99))

	v, _ := original.Collection().Get(NewString("x"))
	if v.AsInt() != 1 {
		t.Errorf("mutating clone affected original: got %v, want 1", v.AsInt())
	}
}
