package runtime

import (
	"testing"

	"github.com/jboer/jinx/variant"
)

func TestCompileUnknownImportWarnsNotErrors(t *testing.T) {
	r := New(0)
	_, warnings, err := r.Compile("import nope\nset x to 1\n", "main", []string{"nope"})
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if len(warnings) == 0 {
		t.Error("expected a warning for the unresolved import")
	}
}

func TestCompileRejectsEmptySource(t *testing.T) {
	r := New(0)
	_, _, err := r.Compile("", "main", nil)
	if err == nil {
		t.Fatal("expected an error for empty source")
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	r := New(0)
	_, _, err := r.Compile("library a\npublic p to 1\n", "a", nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	lib, ok := r.GetLibrary("a")
	if !ok {
		t.Fatal("expected library a to be registered")
	}
	decl, ok := lib.Properties["p"]
	if !ok {
		t.Fatal("expected property p to be registered")
	}
	r.SetProperty(decl.ID(), variant.NewInteger(42))
	v, ok := r.GetProperty(decl.ID())
	if !ok || v.AsInt() != 42 {
		t.Errorf("GetProperty = %+v, %v; want 42, true", v, ok)
	}
}

// TestCompileHostSuppliedImportsGrantVisibility confirms that Compile's
// imports parameter seeds the parser's import list the same way an
// in-source `import` line does, so a host can grant a script visibility
// into a dependency library without the script spelling it out itself.
func TestCompileHostSuppliedImportsGrantVisibility(t *testing.T) {
	r := New(0)
	_, _, err := r.Compile("library util\nfunction return my fn {x}\nreturn x\nend\n", "util", nil)
	if err != nil {
		t.Fatalf("compiling util: %v", err)
	}

	mainSrc := "set y to my fn 3\n"

	if _, _, err := r.Compile(mainSrc, "mainNoImports", nil); err == nil {
		t.Fatal("expected a compile error calling an unimported library's function")
	}

	if _, _, err := r.Compile(mainSrc, "mainWithImports", []string{"util"}); err != nil {
		t.Errorf("expected host-supplied imports to resolve the call, got: %v", err)
	}
}

func TestCloseBreaksCollectionCycles(t *testing.T) {
	r := New(0)
	r.SetProperty(1, variant.NewCollection(variant.NewColl()))
	r.Close()
	if _, ok := r.GetProperty(1); ok {
		t.Error("expected properties to be cleared after Close")
	}
}
