package compiler

import "fmt"

// SymbolType identifies the lexical category of a Symbol.
type SymbolType int

const (
	SymEOF SymbolType = iota
	SymInvalid
	SymNewLine

	// Literals.
	SymIntegerValue
	SymNumberValue
	SymStringValue
	SymBooleanValue

	// Identifier.
	SymNameValue

	// Operators.
	SymEquals
	SymNotEquals
	SymLess
	SymLessEqual
	SymGreater
	SymGreaterEqual
	SymPlus
	SymMinus
	SymAsterisk
	SymSlash
	SymPercent

	// Punctuation.
	SymLParen
	SymRParen
	SymLBracket
	SymRBracket
	SymLBrace
	SymRBrace
	SymComma
	SymSlashAlias // never produced by the Lexer; signature aliases are separated by SymSlash

	// Keywords.
	SymLibrary
	SymImport
	SymPublic
	SymPrivate
	SymReadOnly
	SymExternal
	SymFunction
	SymReturn
	SymIf
	SymElse
	SymEnd
	SymLoop
	SymFrom
	SymTo
	SymBy
	SymOver
	SymUntil
	SymWhile
	SymBreak
	SymWait
	SymBegin
	SymSet
	SymIncrement
	SymDecrement
	SymErase
	SymAs
	SymAnd
	SymOr
	SymNot
	SymType

	// Value-type name keywords.
	SymTypeInteger
	SymTypeNumber
	SymTypeString
	SymTypeBoolean
	SymTypeCollection
	SymTypeGUID
	SymTypeNull
)

var symbolNames = map[SymbolType]string{
	SymEOF:            "eof",
	SymInvalid:        "invalid",
	SymNewLine:        "newline",
	SymIntegerValue:   "integer",
	SymNumberValue:    "number",
	SymStringValue:    "string",
	SymBooleanValue:   "boolean",
	SymNameValue:      "name",
	SymEquals:         "=",
	SymNotEquals:      "!=",
	SymLess:           "<",
	SymLessEqual:      "<=",
	SymGreater:        ">",
	SymGreaterEqual:   ">=",
	SymPlus:           "+",
	SymMinus:          "-",
	SymAsterisk:       "*",
	SymSlash:          "/",
	SymPercent:        "%",
	SymLParen:         "(",
	SymRParen:         ")",
	SymLBracket:       "[",
	SymRBracket:       "]",
	SymLBrace:         "{",
	SymRBrace:         "}",
	SymComma:          ",",
	SymLibrary:        "library",
	SymImport:         "import",
	SymPublic:         "public",
	SymPrivate:        "private",
	SymReadOnly:       "readonly",
	SymExternal:       "external",
	SymFunction:       "function",
	SymReturn:         "return",
	SymIf:             "if",
	SymElse:           "else",
	SymEnd:            "end",
	SymLoop:           "loop",
	SymFrom:           "from",
	SymTo:             "to",
	SymBy:             "by",
	SymOver:           "over",
	SymUntil:          "until",
	SymWhile:          "while",
	SymBreak:          "break",
	SymWait:           "wait",
	SymBegin:          "begin",
	SymSet:            "set",
	SymIncrement:      "increment",
	SymDecrement:      "decrement",
	SymErase:          "erase",
	SymAs:             "as",
	SymAnd:            "and",
	SymOr:             "or",
	SymNot:            "not",
	SymType:           "type",
	SymTypeInteger:    "integer",
	SymTypeNumber:     "number",
	SymTypeString:     "string",
	SymTypeBoolean:    "boolean",
	SymTypeCollection: "collection",
	SymTypeGUID:       "guid",
	SymTypeNull:       "null",
}

func (t SymbolType) String() string {
	if name, ok := symbolNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Symbol(%d)", t)
}

// keywords maps the lowercase spelling of every reserved word (including
// the boolean literals and the value-type names, which double as
// keywords) to its SymbolType. Looked up only after an identifier has
// been scanned in full.
var keywords = map[string]SymbolType{
	"library":   SymLibrary,
	"import":    SymImport,
	"public":    SymPublic,
	"private":   SymPrivate,
	"readonly":  SymReadOnly,
	"external":  SymExternal,
	"function":  SymFunction,
	"return":    SymReturn,
	"if":        SymIf,
	"else":      SymElse,
	"end":       SymEnd,
	"loop":      SymLoop,
	"from":      SymFrom,
	"to":        SymTo,
	"by":        SymBy,
	"over":      SymOver,
	"until":     SymUntil,
	"while":     SymWhile,
	"break":     SymBreak,
	"wait":      SymWait,
	"begin":     SymBegin,
	"set":       SymSet,
	"increment": SymIncrement,
	"decrement": SymDecrement,
	"erase":     SymErase,
	"as":        SymAs,
	"and":       SymAnd,
	"or":        SymOr,
	"not":       SymNot,
	"type":      SymType,
	"integer":   SymTypeInteger,
	"number":    SymTypeNumber,
	"string":    SymTypeString,
	"boolean":   SymTypeBoolean,
	"collection": SymTypeCollection,
	"guid":      SymTypeGUID,
	"null":      SymTypeNull,
	"true":      SymBooleanValue,
	"false":     SymBooleanValue,
}

// Position records a symbol's location in the source text, for error
// messages and disassembly annotations.
type Position struct {
	Line   int
	Column int
}

// Symbol is one lexical token produced by the Lexer.
type Symbol struct {
	Type   SymbolType
	Text   string // raw text for identifiers and strings
	NumVal float64
	IntVal int64
	BoolVal bool
	Pos    Position
}

func (s Symbol) String() string {
	switch s.Type {
	case SymNameValue, SymStringValue:
		return fmt.Sprintf("%s(%q)", s.Type, s.Text)
	case SymIntegerValue:
		return fmt.Sprintf("integer(%d)", s.IntVal)
	case SymNumberValue:
		return fmt.Sprintf("number(%g)", s.NumVal)
	case SymBooleanValue:
		return fmt.Sprintf("boolean(%v)", s.BoolVal)
	default:
		return s.Type.String()
	}
}

// IsBinaryOperator reports whether t is one of the binary arithmetic,
// comparison, or logical-keyword operators the parser's function-call scan
// (scanCallParts) stops at.
func (t SymbolType) IsBinaryOperator() bool {
	switch t {
	case SymEquals, SymNotEquals, SymLess, SymLessEqual, SymGreater, SymGreaterEqual,
		SymPlus, SymMinus, SymAsterisk, SymSlash, SymPercent, SymAnd, SymOr:
		return true
	}
	return false
}
