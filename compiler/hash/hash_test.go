package hash

import "testing"

func TestRuntimeIDDeterministic(t *testing.T) {
	a := RuntimeID("core", []string{"print", "*"})
	b := RuntimeID("core", []string{"print", "*"})
	if a != b {
		t.Errorf("RuntimeID should be deterministic: %d != %d", a, b)
	}
}

func TestRuntimeIDDistinguishesLibrary(t *testing.T) {
	a := RuntimeID("core", []string{"x"})
	b := RuntimeID("other", []string{"x"})
	if a == b {
		t.Error("different libraries with the same shape should not collide")
	}
}

func TestRuntimeIDFramingAvoidsConcatenationCollision(t *testing.T) {
	a := RuntimeID("ab", []string{"c"})
	b := RuntimeID("a", []string{"bc"})
	if a == b {
		t.Error("framed encoding should avoid (\"ab\",\"c\") colliding with (\"a\",\"bc\")")
	}
}

func TestRuntimeIDDistinguishesShape(t *testing.T) {
	a := RuntimeID("core", []string{"my", "fn"})
	b := RuntimeID("core", []string{"my", "fn", "extra"})
	if a == b {
		t.Error("different part counts should not collide")
	}
}
