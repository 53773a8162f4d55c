package bytecode

import (
	"strings"
	"testing"

	"github.com/jboer/jinx/variant"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	c := NewChunk()
	c.EmitValue(variant.NewInteger(3))
	c.EmitValue(variant.NewInteger(4))
	c.EmitOp(OpAdd)
	c.EmitOp(OpExit)

	data := c.Serialize()
	back, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if back.Len() != c.Len() {
		t.Errorf("Len() = %d, want %d", back.Len(), c.Len())
	}
	if string(back.Code()) != string(c.Code()) {
		t.Error("round-tripped code bytes differ")
	}
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	_, err := Deserialize([]byte{0, 1, 2, 3, 4, 5, 6, 7, 0, 0, 0, 1, 0, 0, 0, 0})
	if err == nil {
		t.Error("expected error for bad magic")
	}
}

func TestEmitJumpPatch(t *testing.T) {
	c := NewChunk()
	placeholder := c.EmitJump(OpJumpFalse)
	c.EmitOp(OpPop)
	target := c.Tell()
	c.PatchJump(placeholder)
	c.EmitOp(OpExit)

	r := variant.NewReader(c.Code())
	opByte, _ := r.ReadByte()
	if Opcode(opByte) != OpJumpFalse {
		t.Fatalf("first opcode = %v, want JumpFalse", Opcode(opByte))
	}
	got, _ := r.ReadUint32()
	if int(got) != target {
		t.Errorf("patched jump target = %d, want %d", got, target)
	}
}

func TestEmitLoopBackward(t *testing.T) {
	c := NewChunk()
	loopStart := c.Tell()
	c.EmitOp(OpPop)
	c.EmitLoop(loopStart)

	data := c.Code()
	if Opcode(data[len(data)-5]) != OpJump {
		t.Fatal("expected trailing Jump opcode")
	}
}

func TestDisassembleListsInstructions(t *testing.T) {
	c := NewChunk()
	c.EmitValue(variant.NewInteger(11))
	c.EmitString(OpPushVar, "x")
	c.EmitOp(OpExit)

	out := c.Disassemble()
	if !strings.Contains(out, "PushVal") || !strings.Contains(out, "PushVar") || !strings.Contains(out, "Exit") {
		t.Errorf("disassembly missing expected mnemonics:\n%s", out)
	}
}

func TestFunctionSignatureSerializeRoundTrip(t *testing.T) {
	sig := FunctionSignature{
		Library: "core",
		Parts: []SignaturePart{
			{Kind: PartName, Aliases: []string{"print"}},
			{Kind: PartParameter, ParamName: "value"},
		},
		Visibility:   VisibilityPublic,
		ReturnsValue: false,
	}
	buf := variant.NewBinaryBuffer()
	sig.Serialize(buf)
	back, err := DeserializeFunction(variant.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DeserializeFunction: %v", err)
	}
	if back.ID() != sig.ID() {
		t.Errorf("round-tripped signature id differs: %d != %d", back.ID(), sig.ID())
	}
}

func TestFunctionSignatureAliasOrderIndependent(t *testing.T) {
	a := FunctionSignature{Library: "core", Parts: []SignaturePart{{Kind: PartName, Aliases: []string{"get", "fetch"}}}}
	b := FunctionSignature{Library: "core", Parts: []SignaturePart{{Kind: PartName, Aliases: []string{"fetch", "get"}}}}
	if a.ID() != b.ID() {
		t.Error("alias order should not affect signature id")
	}
}

func TestFunctionSignatureParamNameDoesNotAffectID(t *testing.T) {
	a := FunctionSignature{Library: "core", Parts: []SignaturePart{{Kind: PartName, Aliases: []string{"go"}}, {Kind: PartParameter, ParamName: "x"}}}
	b := FunctionSignature{Library: "core", Parts: []SignaturePart{{Kind: PartName, Aliases: []string{"go"}}, {Kind: PartParameter, ParamName: "y"}}}
	if a.ID() != b.ID() {
		t.Error("parameter part's local name should not affect signature id")
	}
}

func TestPropertyNameSerializeRoundTrip(t *testing.T) {
	p := PropertyName{Library: "a", Name: "p", Visibility: VisibilityPrivate, ReadOnly: true}
	buf := variant.NewBinaryBuffer()
	p.Serialize(buf)
	back, err := DeserializeProperty(variant.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DeserializeProperty: %v", err)
	}
	if back.ID() != p.ID() || back.ReadOnly != p.ReadOnly || back.Visibility != p.Visibility {
		t.Errorf("round trip mismatch: %+v != %+v", back, p)
	}
}
