package variant

import "testing"

func TestCollectionInsertionOrder(t *testing.T) {
	c := NewColl()
	c.Set(NewString("a"), NewInteger(1))
	c.Set(NewString("b"), NewInteger(2))
	c.Set(NewString("c"), NewInteger(3))

	want := []string{"a", "b", "c"}
	for i, k := range c.Keys() {
		if k.AsString() != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, k.AsString(), want[i])
		}
	}
}

func TestCollectionUpdateKeepsPosition(t *testing.T) {
	c := NewColl()
	c.Set(NewString("a"), NewInteger(1))
	c.Set(NewString("b"), NewInteger(2))
	c.Set(NewString("a"), NewInteger(100))

	keys := c.Keys()
	if len(keys) != 2 || keys[0].AsString() != "a" {
		t.Errorf("updating an existing key should not move it: keys = %v", keys)
	}
	v, ok := c.Get(NewString("a"))
	if !ok || v.AsInt() != 100 {
		t.Errorf("Get(a) = %v, %v, want 100, true", v, ok)
	}
}

func TestCollectionDelete(t *testing.T) {
	c := NewColl()
	c.Set(NewString("a"), NewInteger(1))
	c.Set(NewString("b"), NewInteger(2))
	c.Set(NewString("c"), NewInteger(3))

	if !c.Delete(NewString("b")) {
		t.Fatal("Delete(b) = false, want true")
	}
	if _, ok := c.Get(NewString("b")); ok {
		t.Error("b should no longer be present")
	}
	want := []string{"a", "c"}
	for i, k := range c.Keys() {
		if k.AsString() != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, k.AsString(), want[i])
		}
	}
}

func TestCollectionLoopOverSum(t *testing.T) {
	c := NewColl()
	c.Set(NewString("a"), NewInteger(1))
	c.Set(NewString("b"), NewInteger(2))
	c.Set(NewString("c"), NewInteger(3))

	total := int64(0)
	for i := 0; i < c.Len(); i++ {
		_, v, ok := c.At(i)
		if !ok {
			t.Fatalf("At(%d) missing", i)
		}
		total += v.AsInt()
	}
	if total != 6 {
		t.Errorf("sum = %d, want 6", total)
	}
}

func TestCollectionKeyCannotBeCollection(t *testing.T) {
	c := NewColl()
	if err := c.Set(NewCollection(NewColl()), NewInteger(1)); err == nil {
		t.Error("Set with a collection key should error")
	}
}

func TestCollectionEqual(t *testing.T) {
	a := NewColl()
	a.Set(NewString("x"), NewInteger(1))
	b := NewColl()
	b.Set(NewString("x"), NewInteger(1))
	if !a.Equal(b) {
		t.Error("structurally identical collections should be Equal")
	}

	b.Set(NewString("y"), NewInteger(2))
	if a.Equal(b) {
		t.Error("collections of different length should not be Equal")
	}
}
