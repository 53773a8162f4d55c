package bytecode

import "fmt"

// Opcode is a single bytecode instruction. Values are fixed by the
// specification's listed order, not grouped into ranges the way the
// teacher's Smalltalk opcode set is — Jinx's instruction set is small
// enough that a flat enumeration reads better than range comments.
type Opcode byte

const (
	OpNop Opcode = iota

	// Stack manipulation.
	OpPop
	OpPushTop

	// Values and collections.
	OpPushVal
	OpPushColl
	OpPushList
	OpPopCount

	// Variables.
	OpPushVar
	OpPushVarKey
	OpSetVar
	OpSetVarKey
	OpEraseVar
	OpEraseVarElem

	// Properties.
	OpPushProp
	OpPushPropKeyVal
	OpSetProp
	OpSetPropKeyVal
	OpEraseProp
	OpErasePropElem

	// Arithmetic.
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpNegate

	// Comparison.
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual

	// Logical.
	OpAnd
	OpOr
	OpNot

	// Type.
	OpCast
	OpType

	// Control flow.
	OpJump
	OpJumpFalse
	OpJumpTrue

	// Loops.
	OpPushItr
	OpLoopCount
	OpLoopOver

	// Scopes and calls.
	OpScopeBegin
	OpScopeEnd
	OpLibrary
	OpProperty
	OpFunction
	OpSetIndex
	OpCallFunc
	OpReturn
	OpReturnValue

	// Cooperative suspension and program end.
	OpWait
	OpExit

	opcodeCount
)

// OperandKind describes the operand layout that follows an opcode byte, so
// the disassembler and the VM's instruction-pointer advance logic share one
// table instead of duplicating a switch.
type OperandKind byte

const (
	OperandNone OperandKind = iota
	OperandRuntimeID
	OperandString
	OperandOffset
	OperandCount
	OperandValue    // tagged Variant (PushVal)
	OperandKindByte // single value-type byte (Cast)
	OperandSetIndex // string + int32 + value-type byte
	OperandFunction // serialized FunctionSignature
	OperandProperty // serialized PropertyName
)

// opcodeNames and opcodeOperands are parallel tables indexed by Opcode.
var opcodeNames = [opcodeCount]string{
	OpNop:            "Nop",
	OpPop:            "Pop",
	OpPushTop:        "PushTop",
	OpPushVal:        "PushVal",
	OpPushColl:       "PushColl",
	OpPushList:       "PushList",
	OpPopCount:       "PopCount",
	OpPushVar:        "PushVar",
	OpPushVarKey:     "PushVarKey",
	OpSetVar:         "SetVar",
	OpSetVarKey:      "SetVarKey",
	OpEraseVar:       "EraseVar",
	OpEraseVarElem:   "EraseVarElem",
	OpPushProp:       "PushProp",
	OpPushPropKeyVal: "PushPropKeyVal",
	OpSetProp:        "SetProp",
	OpSetPropKeyVal:  "SetPropKeyVal",
	OpEraseProp:      "EraseProp",
	OpErasePropElem:  "ErasePropElem",
	OpAdd:            "Add",
	OpSubtract:       "Subtract",
	OpMultiply:       "Multiply",
	OpDivide:         "Divide",
	OpModulo:         "Modulo",
	OpNegate:         "Negate",
	OpEqual:          "Equal",
	OpNotEqual:       "NotEqual",
	OpLess:           "Less",
	OpLessEqual:      "LessEqual",
	OpGreater:        "Greater",
	OpGreaterEqual:   "GreaterEqual",
	OpAnd:            "And",
	OpOr:             "Or",
	OpNot:            "Not",
	OpCast:           "Cast",
	OpType:           "Type",
	OpJump:           "Jump",
	OpJumpFalse:      "JumpFalse",
	OpJumpTrue:       "JumpTrue",
	OpPushItr:        "PushItr",
	OpLoopCount:      "LoopCount",
	OpLoopOver:       "LoopOver",
	OpScopeBegin:     "ScopeBegin",
	OpScopeEnd:       "ScopeEnd",
	OpLibrary:        "Library",
	OpProperty:       "Property",
	OpFunction:       "Function",
	OpSetIndex:       "SetIndex",
	OpCallFunc:       "CallFunc",
	OpReturn:         "Return",
	OpReturnValue:    "ReturnValue",
	OpWait:           "Wait",
	OpExit:           "Exit",
}

var opcodeOperands = [opcodeCount]OperandKind{
	OpPushVal:        OperandValue,
	OpPushColl:       OperandCount,
	OpPushList:       OperandCount,
	OpPopCount:       OperandCount,
	OpPushVar:        OperandString,
	OpPushVarKey:     OperandString,
	OpSetVar:         OperandString,
	OpSetVarKey:      OperandString,
	OpEraseVar:       OperandString,
	OpEraseVarElem:   OperandString,
	OpPushProp:       OperandRuntimeID,
	OpPushPropKeyVal: OperandRuntimeID,
	OpSetProp:        OperandRuntimeID,
	OpSetPropKeyVal:  OperandRuntimeID,
	OpEraseProp:      OperandRuntimeID,
	OpErasePropElem:  OperandRuntimeID,
	OpCast:           OperandKindByte,
	OpJump:           OperandOffset,
	OpJumpFalse:      OperandOffset,
	OpJumpTrue:       OperandOffset,
	OpLoopCount:      OperandString,
	OpLoopOver:       OperandString,
	OpLibrary:        OperandString,
	OpProperty:       OperandProperty,
	OpFunction:       OperandFunction,
	OpSetIndex:       OperandSetIndex,
	OpCallFunc:       OperandRuntimeID,
}

// String returns the opcode's mnemonic, or a placeholder for an
// out-of-range value.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", byte(op))
}

// Operand reports what operand layout follows this opcode.
func (op Opcode) Operand() OperandKind {
	if int(op) < len(opcodeOperands) {
		return opcodeOperands[op]
	}
	return OperandNone
}

// Valid reports whether op is a recognized opcode value.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}
