package compiler

import (
	"strings"
	"testing"

	"github.com/jboer/jinx/bytecode"
)

// fakeResolver is a minimal Resolver for tests that need cross-library
// function or property lookups without a full Runtime.
type fakeResolver struct {
	libs  map[string]bool
	funcs map[string][]bytecode.FunctionSignature
	props map[string]bytecode.Visibility
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		libs:  make(map[string]bool),
		funcs: make(map[string][]bytecode.FunctionSignature),
		props: make(map[string]bytecode.Visibility),
	}
}

func (r *fakeResolver) Functions(library string) []bytecode.FunctionSignature { return r.funcs[library] }

func (r *fakeResolver) PropertyVisibility(library, name string) (bytecode.Visibility, bool) {
	v, ok := r.props[library+"."+name]
	return v, ok
}

func (r *fakeResolver) LibraryExists(name string) bool { return r.libs[name] }

func compileOK(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	p := NewParser(src, nil)
	chunk, errs := p.Compile()
	if len(errs) > 0 {
		t.Fatalf("compile %q: unexpected errors: %v", src, errs)
	}
	return chunk
}

func TestParserArithmeticPrecedence(t *testing.T) {
	chunk := compileOK(t, "set x to 3 + 4 * 2\n")
	out := chunk.Disassemble()
	addIdx := strings.Index(out, "Add")
	mulIdx := strings.Index(out, "Multiply")
	if addIdx == -1 || mulIdx == -1 {
		t.Fatalf("expected both Add and Multiply in disassembly:\n%s", out)
	}
	if mulIdx > addIdx {
		t.Errorf("expected Multiply emitted before Add (multiplication binds tighter), got:\n%s", out)
	}
	if !strings.Contains(out, "SetVar") {
		t.Errorf("expected SetVar in disassembly:\n%s", out)
	}
}

func TestParserPropertyDeclaration(t *testing.T) {
	chunk := compileOK(t, "library a\npublic p to 1\n")
	out := chunk.Disassemble()
	if !strings.Contains(out, "Property") || !strings.Contains(out, "SetProp") {
		t.Errorf("expected Property/SetProp in disassembly:\n%s", out)
	}
}

func TestParserSetOnDeclaredPropertyEmitsSetProp(t *testing.T) {
	chunk := compileOK(t, "library a\npublic p to 1\nset p to 2\n")
	out := chunk.Disassemble()
	if strings.Count(out, "SetProp") < 2 {
		t.Errorf("expected two SetProp instructions (declaration + set), got:\n%s", out)
	}
	if strings.Contains(out, "SetVar ") {
		t.Errorf("set on a declared property must not fall back to SetVar:\n%s", out)
	}
}

func TestParserSetOnDeclaredPropertyKeyedEmitsSetPropKeyVal(t *testing.T) {
	chunk := compileOK(t, "library a\npublic p to [[\"k\", 1]]\nset p[\"k\"] to 2\n")
	out := chunk.Disassemble()
	if !strings.Contains(out, "SetPropKeyVal") {
		t.Errorf("expected SetPropKeyVal in disassembly:\n%s", out)
	}
}

func TestParserSetOnReadOnlyPropertyErrors(t *testing.T) {
	p := NewParser("library a\npublic readonly p to 1\nset p to 2\n", nil)
	_, errs := p.Compile()
	if len(errs) == 0 {
		t.Fatal("expected an error setting a read-only property")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "read-only") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a 'read-only' error, got: %v", errs)
	}
}

func TestParserReadOnlyPropertyWithoutInitializerErrors(t *testing.T) {
	p := NewParser("library a\npublic readonly p\n", nil)
	_, errs := p.Compile()
	if len(errs) == 0 {
		t.Fatal("expected an error for read-only property without initializer")
	}
}

func TestParserPrivatePropertyAccessAcrossLibraryErrors(t *testing.T) {
	resolver := newFakeResolver()
	resolver.libs["a"] = true
	resolver.props["a.p"] = bytecode.VisibilityPrivate

	src := "import a\nlibrary b\nset q to a p\n"
	p := NewParser(src, resolver)
	_, errs := p.Compile()
	if len(errs) == 0 {
		t.Fatal("expected a compile error accessing a private property from another library")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "private") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a 'private' error, got: %v", errs)
	}
}

func TestParserAmbiguousFunctionCallErrors(t *testing.T) {
	sig := bytecode.FunctionSignature{
		Parts: []bytecode.SignaturePart{
			{Kind: bytecode.PartName, Aliases: []string{"my"}},
			{Kind: bytecode.PartName, Aliases: []string{"fn"}},
			{Kind: bytecode.PartParameter, ParamName: "x"},
		},
		Visibility: bytecode.VisibilityPublic,
	}
	resolver := newFakeResolver()
	resolver.libs["l1"] = true
	resolver.libs["l2"] = true
	sig1 := sig
	sig1.Library = "l1"
	sig2 := sig
	sig2.Library = "l2"
	resolver.funcs["l1"] = []bytecode.FunctionSignature{sig1}
	resolver.funcs["l2"] = []bytecode.FunctionSignature{sig2}

	src := "import l1\nimport l2\nlibrary c\nmy fn 3\n"
	p := NewParser(src, resolver)
	_, errs := p.Compile()
	if len(errs) == 0 {
		t.Fatal("expected an ambiguous function call error")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "ambiguous") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an 'ambiguous' error, got: %v", errs)
	}
}

func TestParserBreakOutsideLoopErrors(t *testing.T) {
	p := NewParser("break\n", nil)
	_, errs := p.Compile()
	if len(errs) == 0 {
		t.Fatal("expected an error for break outside a loop")
	}
}

func TestParserLoopFromToEmitsLoopCount(t *testing.T) {
	chunk := compileOK(t, "set x to 0\nloop i from 1 to 10\nset x to x + 1\nend\n")
	out := chunk.Disassemble()
	if !strings.Contains(out, "LoopCount") {
		t.Errorf("expected LoopCount in disassembly:\n%s", out)
	}
}

func TestParserLoopOverEmitsIteratorOpcodes(t *testing.T) {
	src := "set c to [[\"a\",1],[\"b\",2],[\"c\",3]]\nset total to 0\nloop v over c\nset total to total + v\nend\n"
	chunk := compileOK(t, src)
	out := chunk.Disassemble()
	if !strings.Contains(out, "PushItr") || !strings.Contains(out, "LoopOver") {
		t.Errorf("expected PushItr/LoopOver in disassembly:\n%s", out)
	}
}

func TestParserIfElseBothBranchesReturn(t *testing.T) {
	src := "function return my/fn {x}\nif x\nreturn 1\nelse\nreturn 2\nend\nend\n"
	chunk := compileOK(t, src)
	out := chunk.Disassemble()
	if !strings.Contains(out, "JumpFalse") {
		t.Errorf("expected JumpFalse in disassembly:\n%s", out)
	}
}

func TestParserFunctionMissingReturnOnAllPathsErrors(t *testing.T) {
	src := "function return my/fn {x}\nif x\nreturn 1\nend\nend\n"
	p := NewParser(src, nil)
	_, errs := p.Compile()
	if len(errs) == 0 {
		t.Fatal("expected an error when not all paths return a value")
	}
}

func TestParserIncrementLowersToAddAndStore(t *testing.T) {
	chunk := compileOK(t, "set x to 1\nincrement x by 2\n")
	out := chunk.Disassemble()
	if !strings.Contains(out, "Add") {
		t.Errorf("expected Add lowering for increment:\n%s", out)
	}
}

func TestParserWaitEmitsWaitOpcode(t *testing.T) {
	chunk := compileOK(t, "external done\nwait until done\n")
	out := chunk.Disassemble()
	if !strings.Contains(out, "Wait") {
		t.Errorf("expected Wait in disassembly:\n%s", out)
	}
}
