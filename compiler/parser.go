package compiler

import (
	"fmt"
	"strings"

	"github.com/jboer/jinx/bytecode"
	"github.com/jboer/jinx/variant"
)

// ---------------------------------------------------------------------------
// Parser: single-pass recursive descent compiler for Jinx source
// ---------------------------------------------------------------------------

// Resolver is the name-resolution surface a Runtime exposes to the Parser.
// The parser only ever needs to ask two questions of the outside world: what
// functions does a given library declare, and what is the declared
// visibility of a given property. Everything else (the library currently
// being compiled, its local function table, its variable scopes) is owned
// by the Parser itself. Defining the interface here, rather than importing
// the runtime package, keeps the dependency edge pointing the natural way:
// Runtime depends on Parser to compile source, not the reverse.
type Resolver interface {
	Functions(library string) []bytecode.FunctionSignature
	PropertyVisibility(library, name string) (bytecode.Visibility, bool)
	LibraryExists(name string) bool
}

// callPart is one unit produced by scanning a potential function call
// without committing to parsing it as one: either a bare name word or a
// parameter slot (whose actual expression is parsed later, once the
// signature match is known).
type callPart struct {
	kind bytecode.PartKind
	text string // only meaningful for PartName
}

// funcCandidate pairs a signature with the library that declares it, so a
// resolved call can be told apart from a same-shaped signature in another
// library.
type funcCandidate struct {
	sig     bytecode.FunctionSignature
	library string
}

// Parser performs single-pass recursive-descent parsing, emitting bytecode
// directly into chunk as it recognizes each construct.
type Parser struct {
	syms []Symbol
	pos  int

	chunk   *bytecode.Chunk
	vars    *VariableStackFrame
	library string
	imports []string

	localFuncs  []funcCandidate
	properties  map[string]propertyDecl
	resolver    Resolver

	errors   Diagnostics
	Warnings Diagnostics
	lexDiags Diagnostics

	breakTargets [][]int // one slice of pending break-patch offsets per nested loop

	requireReturnValue bool
	returnedValue      bool
}

type propertyDecl struct {
	name     string
	vis      bytecode.Visibility
	readOnly bool
}

// NewParser tokenizes input in full and returns a Parser ready to compile
// it against resolver, which supplies cross-library function and property
// lookups. resolver may be nil when compiling a library with no imports.
// imports seeds the parser's import list before a single source token is
// parsed, granting library visibility the same way an in-source `import`
// line would, for a host that wants to pass a library dependency list in
// directly rather than require it spelled out in the script text.
func NewParser(input string, resolver Resolver, imports ...string) *Parser {
	l := NewLexer(input)
	var syms []Symbol
	for {
		s := l.NextSymbol()
		syms = append(syms, s)
		if s.Type == SymEOF {
			break
		}
	}
	return &Parser{
		syms:       syms,
		chunk:      bytecode.NewChunk(),
		vars:       NewVariableStackFrame(),
		properties: make(map[string]propertyDecl),
		resolver:   resolver,
		lexDiags:   l.Diagnostics,
		imports:    append([]string(nil), imports...),
	}
}

// Errors returns accumulated compile diagnostics (lex and parse errors, not
// warnings), in encounter order.
func (p *Parser) Errors() Diagnostics { return p.errors }

func (p *Parser) cur() Symbol { return p.syms[p.pos] }

func (p *Parser) peek() Symbol {
	if p.pos+1 < len(p.syms) {
		return p.syms[p.pos+1]
	}
	return p.syms[len(p.syms)-1]
}

func (p *Parser) peekAt(n int) Symbol {
	i := p.pos + n
	if i >= len(p.syms) {
		return p.syms[len(p.syms)-1]
	}
	return p.syms[i]
}

func (p *Parser) advance() Symbol {
	s := p.cur()
	if p.pos < len(p.syms)-1 {
		p.pos++
	}
	return s
}

func (p *Parser) curIs(t SymbolType) bool { return p.cur().Type == t }

func (p *Parser) expect(t SymbolType) bool {
	if p.curIs(t) {
		p.advance()
		return true
	}
	p.errorf("expected %s, got %s", t, p.cur().Type)
	return false
}

func (p *Parser) errorf(format string, args ...interface{}) {
	pos := p.cur().Pos
	p.errors = append(p.errors, Diagnostic{
		Kind:    DiagParseError,
		Message: fmt.Sprintf(format, args...),
		Line:    pos.Line,
		Column:  pos.Column,
		Library: p.library,
	})
}

func (p *Parser) skipNewlines() {
	for p.curIs(SymNewLine) {
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Top level
// ---------------------------------------------------------------------------

// Compile runs the parser to completion and returns the emitted bytecode.
// On any error the chunk is discarded and only the accumulated diagnostics
// are returned, matching the base specification's "a failed compilation
// returns no bytecode" rule. Lexical diagnostics collected while tokenizing
// the source are folded in ahead of any parse errors, in encounter order.
func (p *Parser) Compile() (*bytecode.Chunk, Diagnostics) {
	p.skipNewlines()
	for p.curIs(SymImport) {
		p.parseImport()
		p.skipNewlines()
	}

	if p.curIs(SymLibrary) {
		p.advance()
		if !p.curIs(SymNameValue) {
			p.errorf("expected library name after 'library'")
		} else {
			p.library = p.advance().Text
		}
		p.skipNewlines()
	}

	for !p.curIs(SymEOF) {
		p.parseStatement()
		p.skipNewlines()
	}

	p.chunk.EmitOp(bytecode.OpExit)

	p.errors = append(p.lexDiags.WithLibrary(p.library), p.errors...)
	p.Warnings = p.Warnings.WithLibrary(p.library)

	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return p.chunk, nil
}

func (p *Parser) parseImport() {
	p.advance() // 'import'
	if !p.curIs(SymNameValue) {
		p.errorf("expected library name after 'import'")
		return
	}
	name := p.advance().Text
	if p.resolver != nil && !p.resolver.LibraryExists(name) {
		// A link warning, not a parse error: compilation continues.
		pos := p.syms[p.pos-1].Pos
		p.Warnings = append(p.Warnings, Diagnostic{
			Kind:    DiagWarning,
			Message: fmt.Sprintf("imported library %q not found", name),
			Line:    pos.Line,
			Column:  pos.Column,
			Library: p.library,
		})
	}
	p.imports = append(p.imports, name)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() {
	switch p.cur().Type {
	case SymPublic, SymPrivate:
		p.parsePublicOrPrivate()
	case SymSet:
		p.parseSet()
	case SymExternal:
		p.parseExternal()
	case SymFunction:
		p.parseFunction(bytecode.VisibilityPublic)
	case SymIf:
		p.parseIf()
	case SymLoop:
		p.parseLoop()
	case SymBreak:
		p.parseBreak()
	case SymErase:
		p.parseErase()
	case SymIncrement, SymDecrement:
		p.parseIncrementDecrement()
	case SymWait:
		p.parseWait()
	case SymReturn:
		p.parseReturn()
	case SymNewLine:
		p.advance()
	default:
		p.parseCallOrExpressionStatement()
	}
}

// parsePublicOrPrivate disambiguates between a property declaration and a
// visibility-qualified function definition: both start with public/private.
func (p *Parser) parsePublicOrPrivate() {
	vis := bytecode.VisibilityPublic
	if p.curIs(SymPrivate) {
		vis = bytecode.VisibilityPrivate
	}
	p.advance()

	if p.curIs(SymFunction) {
		p.parseFunction(vis)
		return
	}
	p.parseProperty(vis)
}

func (p *Parser) parseProperty(vis bytecode.Visibility) {
	readOnly := false
	if p.curIs(SymReadOnly) {
		readOnly = true
		p.advance()
	}

	name := p.parseRawName()
	if name == "" {
		p.errorf("expected property name")
		return
	}

	prop := bytecode.PropertyName{Library: p.library, Name: name, Visibility: vis, ReadOnly: readOnly}
	p.properties[name] = propertyDecl{name: name, vis: vis, readOnly: readOnly}
	p.chunk.EmitProperty(prop)

	if p.curIs(SymTo) {
		p.advance()
		p.parseExpression()
		p.chunk.EmitRuntimeID(bytecode.OpSetProp, prop.ID())
		return
	}

	if readOnly {
		p.errorf("read-only property %q declared without initializer", name)
	}
}

// parseRawName consumes a greedy run of NameValue tokens, stopping at the
// first other token or after a word followed by 'to', a newline or the end
// of input, used for property and external-variable declarations where the
// name is not yet known to the variable table. Keywords end the name.
func (p *Parser) parseRawName() string {
	var words []string
	for p.curIs(SymNameValue) {
		words = append(words, p.advance().Text)
		if p.curIs(SymTo) || p.curIs(SymNewLine) || p.curIs(SymEOF) {
			break
		}
	}
	return strings.Join(words, " ")
}

// parseSet compiles `set <target> to <expr>` and `set <target>[<key>] to
// <expr>`. A declared property name takes priority over the variable
// table, mirroring parseIncrementDecrement: a property is never shadowed
// by a same-named VM-local, and a read-only property rejects assignment
// outright rather than silently creating a disconnected local.
func (p *Parser) parseSet() {
	p.advance() // 'set'
	// The variable may not exist yet, so its word count can't be bounded by
	// MaxParts; scan plain words up to the delimiter that must follow every
	// set target: '[' (keyed assignment) or 'to'.
	name, words := p.scanNameUntilDelimiter()
	if name == "" {
		p.errorf("expected variable name after 'set'")
		return
	}
	p.pos += words

	decl, isProp := p.properties[name]
	if isProp && decl.readOnly {
		p.errorf("cannot modify read-only property %q", name)
		return
	}
	var prop bytecode.PropertyName
	if isProp {
		prop = bytecode.PropertyName{Library: p.library, Name: name, Visibility: decl.vis, ReadOnly: decl.readOnly}
	}

	if p.curIs(SymLBracket) {
		p.advance()
		p.parseExpression()
		p.expect(SymRBracket)
		p.expect(SymTo)
		p.parseExpression()
		if isProp {
			p.chunk.EmitRuntimeID(bytecode.OpSetPropKeyVal, prop.ID())
		} else {
			p.vars.VariableAssign(name)
			p.chunk.EmitString(bytecode.OpSetVarKey, name)
		}
		p.skipNewlines()
		return
	}

	p.expect(SymTo)
	p.parseExpression()
	if isProp {
		p.chunk.EmitRuntimeID(bytecode.OpSetProp, prop.ID())
	} else {
		p.vars.VariableAssign(name)
		p.chunk.EmitString(bytecode.OpSetVar, name)
	}
}

func (p *Parser) parseExternal() {
	p.advance()
	name := p.parseRawName()
	if name == "" {
		p.errorf("expected variable name after 'external'")
		return
	}
	if len(p.vars.frames) != 1 || len(p.vars.current().scopes) != 1 {
		p.errorf("'external' is only allowed at the top level of a script")
		return
	}
	p.vars.VariableAssign(name)
}

func (p *Parser) parseFunction(vis bytecode.Visibility) {
	p.advance() // 'function'

	requiresReturn := false
	if p.curIs(SymReturn) {
		requiresReturn = true
		p.advance()
	}

	sig, paramNames := p.parseSignature(vis, requiresReturn)

	// The Function opcode is jumped over at run time; Runtime.Compile's
	// decode walk of the finished chunk registers sig in the function table
	// with the chunk offset immediately following it as its entry point.
	skip := p.chunk.EmitJump(bytecode.OpJump)
	p.chunk.EmitFunction(sig)

	p.localFuncs = append(p.localFuncs, funcCandidate{sig: sig, library: p.library})

	var params []bytecode.SignaturePart
	for _, part := range sig.Parts {
		if part.Kind == bytecode.PartParameter {
			params = append(params, part)
		}
	}
	p.vars.FrameBegin()
	for i, pn := range paramNames {
		p.vars.VariableAssign(pn)
		p.chunk.EmitSetIndex(pn, int32(i), params[i].Typed, params[i].ParamType)
	}

	savedRequire, savedReturned := p.requireReturnValue, p.returnedValue
	p.requireReturnValue, p.returnedValue = requiresReturn, false

	p.skipNewlines()
	for !p.curIs(SymEnd) && !p.curIs(SymEOF) {
		p.parseStatement()
		p.skipNewlines()
	}
	p.expect(SymEnd)

	if requiresReturn && !p.returnedValue {
		p.errorf("function declared to return a value but not all paths return one")
	}
	p.requireReturnValue, p.returnedValue = savedRequire, savedReturned

	p.chunk.EmitOp(bytecode.OpReturn)
	p.vars.FrameEnd()
	p.chunk.PatchJump(skip)
}

// parseSignature reads a function signature: a sequence of name words
// (optionally alias-separated by '/') and bracketed parameter slots, e.g.
// `my/your fn {x as integer}`.
func (p *Parser) parseSignature(vis bytecode.Visibility, returnsValue bool) (bytecode.FunctionSignature, []string) {
	var parts []bytecode.SignaturePart
	var paramNames []string

	for {
		switch {
		case p.curIs(SymLBrace):
			p.advance()
			if !p.curIs(SymNameValue) {
				p.errorf("expected parameter name")
				break
			}
			pname := p.advance().Text
			typed := false
			var kind variant.Kind
			if p.curIs(SymAs) {
				p.advance()
				typed = true
				kind = p.parseTypeName()
			}
			p.expect(SymRBrace)
			parts = append(parts, bytecode.SignaturePart{Kind: bytecode.PartParameter, ParamName: pname, Typed: typed, ParamType: kind})
			paramNames = append(paramNames, pname)

		case p.curIs(SymNameValue):
			aliases := []string{p.advance().Text}
			for p.curIs(SymSlash) {
				p.advance()
				if p.curIs(SymNameValue) {
					aliases = append(aliases, p.advance().Text)
				}
			}
			parts = append(parts, bytecode.SignaturePart{Kind: bytecode.PartName, Aliases: aliases})

		default:
			goto done
		}
		if p.curIs(SymNewLine) || p.curIs(SymEOF) {
			break
		}
	}
done:
	return bytecode.FunctionSignature{
		Library:      p.library,
		Parts:        parts,
		Visibility:   vis,
		ReturnsValue: returnsValue,
	}, paramNames
}

func (p *Parser) parseTypeName() variant.Kind {
	switch p.cur().Type {
	case SymTypeInteger:
		p.advance()
		return variant.KindInteger
	case SymTypeNumber:
		p.advance()
		return variant.KindNumber
	case SymTypeString:
		p.advance()
		return variant.KindString
	case SymTypeBoolean:
		p.advance()
		return variant.KindBoolean
	case SymTypeCollection:
		p.advance()
		return variant.KindCollection
	case SymTypeGUID:
		p.advance()
		return variant.KindGUID
	case SymTypeNull:
		p.advance()
		return variant.KindNull
	default:
		p.errorf("expected a type name")
		return variant.KindNull
	}
}

func (p *Parser) parseIf() {
	p.advance() // 'if'
	p.parseExpression()
	p.skipNewlines()

	jumpFalse := p.chunk.EmitJump(bytecode.OpJumpFalse)

	p.vars.ScopeBegin()
	savedReturned := p.returnedValue
	p.returnedValue = false
	for !p.curIs(SymElse) && !p.curIs(SymEnd) && !p.curIs(SymEOF) {
		p.parseStatement()
		p.skipNewlines()
	}
	thenReturned := p.returnedValue
	p.vars.ScopeEnd()

	if p.curIs(SymElse) {
		p.advance()
		jumpEnd := p.chunk.EmitJump(bytecode.OpJump)
		p.chunk.PatchJump(jumpFalse)

		p.vars.ScopeBegin()
		p.returnedValue = false
		p.skipNewlines()
		for !p.curIs(SymEnd) && !p.curIs(SymEOF) {
			p.parseStatement()
			p.skipNewlines()
		}
		elseReturned := p.returnedValue
		p.vars.ScopeEnd()
		p.chunk.PatchJump(jumpEnd)

		p.returnedValue = savedReturned || (thenReturned && elseReturned)
	} else {
		p.chunk.PatchJump(jumpFalse)
		p.returnedValue = savedReturned
	}

	p.expect(SymEnd)
}

func (p *Parser) parseLoop() {
	p.advance() // 'loop'
	p.vars.ScopeBegin()
	p.breakTargets = append(p.breakTargets, nil)

	switch {
	case p.curIs(SymFrom):
		p.parseLoopCount("")
	case p.curIs(SymOver):
		p.parseLoopOver("")
	case p.curIs(SymWhile):
		p.parseLoopPreTest(false)
	case p.curIs(SymUntil):
		p.parseLoopPreTest(true)
	case p.curIs(SymNameValue) && (p.peek().Type == SymFrom || p.peek().Type == SymOver):
		name := p.advance().Text
		if p.curIs(SymFrom) {
			p.parseLoopCount(name)
		} else {
			p.parseLoopOver(name)
		}
	case p.curIs(SymNewLine):
		p.parseLoopPostTest()
	default:
		p.errorf("expected loop form after 'loop'")
	}

	pending := p.breakTargets[len(p.breakTargets)-1]
	p.breakTargets = p.breakTargets[:len(p.breakTargets)-1]
	for _, off := range pending {
		p.chunk.PatchJump(off)
	}
	p.vars.ScopeEnd()
}

func (p *Parser) parseLoopCount(name string) {
	p.advance() // 'from'
	p.parseExpression()
	p.expect(SymTo)
	p.parseExpression()
	if p.curIs(SymBy) {
		p.advance()
		p.parseExpression()
	} else {
		p.chunk.EmitValue(variant.NewInteger(1))
	}
	if name != "" {
		p.vars.VariableAssign(name)
	}
	start := p.chunk.Tell()
	p.chunk.EmitString(bytecode.OpLoopCount, name)
	exitJump := p.chunk.EmitJump(bytecode.OpJumpFalse)

	p.skipNewlines()
	for !p.curIs(SymEnd) && !p.curIs(SymEOF) {
		p.parseStatement()
		p.skipNewlines()
	}
	p.expect(SymEnd)

	p.chunk.EmitLoop(start)
	p.chunk.PatchJump(exitJump)
}

func (p *Parser) parseLoopOver(name string) {
	p.advance() // 'over'
	p.parseExpression()
	if name != "" {
		p.vars.VariableAssign(name)
	}
	p.chunk.EmitOp(bytecode.OpPushItr)
	start := p.chunk.Tell()
	p.chunk.EmitString(bytecode.OpLoopOver, name)
	exitJump := p.chunk.EmitJump(bytecode.OpJumpFalse)

	p.skipNewlines()
	for !p.curIs(SymEnd) && !p.curIs(SymEOF) {
		p.parseStatement()
		p.skipNewlines()
	}
	p.expect(SymEnd)

	p.chunk.EmitLoop(start)
	p.chunk.PatchJump(exitJump)
}

func (p *Parser) parseLoopPreTest(negate bool) {
	p.advance() // 'while' or 'until'
	start := p.chunk.Tell()
	p.parseExpression()
	if negate {
		p.chunk.EmitOp(bytecode.OpNot)
	}
	exitJump := p.chunk.EmitJump(bytecode.OpJumpFalse)

	p.skipNewlines()
	for !p.curIs(SymEnd) && !p.curIs(SymEOF) {
		p.parseStatement()
		p.skipNewlines()
	}
	p.expect(SymEnd)

	p.chunk.EmitLoop(start)
	p.chunk.PatchJump(exitJump)
}

func (p *Parser) parseLoopPostTest() {
	start := p.chunk.Tell()
	p.skipNewlines()
	for !p.curIs(SymEnd) && !p.curIs(SymEOF) {
		p.parseStatement()
		p.skipNewlines()
	}
	p.expect(SymEnd)
	if !p.curIs(SymWhile) && !p.curIs(SymUntil) {
		p.errorf("expected 'while' or 'until' after 'end' of a post-test loop")
		return
	}
	negate := p.curIs(SymUntil)
	p.advance()
	p.parseExpression()
	if negate {
		p.chunk.EmitOp(bytecode.OpNot)
	}
	exitJump := p.chunk.EmitJump(bytecode.OpJumpFalse)
	p.chunk.EmitLoop(start)
	p.chunk.PatchJump(exitJump)
}

func (p *Parser) parseBreak() {
	p.advance()
	if len(p.breakTargets) == 0 {
		p.errorf("'break' outside of a loop")
		return
	}
	off := p.chunk.EmitJump(bytecode.OpJump)
	top := len(p.breakTargets) - 1
	p.breakTargets[top] = append(p.breakTargets[top], off)
}

func (p *Parser) parseErase() {
	p.advance()
	maxParts := p.vars.MaxParts()
	name, words := p.scanGreedyName(maxParts)
	if name == "" {
		p.errorf("expected a name after 'erase'")
		return
	}
	p.pos += words

	keyed := false
	if p.curIs(SymLBracket) {
		p.advance()
		p.parseExpression()
		p.expect(SymRBracket)
		keyed = true
	}

	if decl, ok := p.properties[name]; ok {
		if decl.readOnly {
			p.errorf("cannot erase read-only property %q", name)
			return
		}
		prop := bytecode.PropertyName{Library: p.library, Name: name, Visibility: decl.vis, ReadOnly: decl.readOnly}
		if keyed {
			p.chunk.EmitRuntimeID(bytecode.OpErasePropElem, prop.ID())
		} else {
			p.chunk.EmitRuntimeID(bytecode.OpEraseProp, prop.ID())
		}
		return
	}

	if keyed {
		p.chunk.EmitString(bytecode.OpEraseVarElem, name)
	} else {
		p.chunk.EmitString(bytecode.OpEraseVar, name)
	}
}

// parseIncrementDecrement lowers `increment X [by Y]` / `decrement X [by Y]`
// into the equivalent push-add-store sequence, since the VM has no
// dedicated opcode for it.
func (p *Parser) parseIncrementDecrement() {
	op := p.advance().Type // SymIncrement or SymDecrement
	maxParts := p.vars.MaxParts()
	name, words := p.scanGreedyName(maxParts)
	if name == "" {
		p.errorf("expected a name after increment/decrement")
		return
	}
	p.pos += words

	isProp := false
	var prop bytecode.PropertyName
	if decl, ok := p.properties[name]; ok {
		isProp = true
		prop = bytecode.PropertyName{Library: p.library, Name: name, Visibility: decl.vis, ReadOnly: decl.readOnly}
		if decl.readOnly {
			p.errorf("cannot modify read-only property %q", name)
			return
		}
		p.chunk.EmitRuntimeID(bytecode.OpPushProp, prop.ID())
	} else {
		p.chunk.EmitString(bytecode.OpPushVar, name)
	}

	if p.curIs(SymBy) {
		p.advance()
		p.parseExpression()
	} else {
		p.chunk.EmitValue(variant.NewInteger(1))
	}

	if op == SymIncrement {
		p.chunk.EmitOp(bytecode.OpAdd)
	} else {
		p.chunk.EmitOp(bytecode.OpSubtract)
	}

	if isProp {
		p.chunk.EmitRuntimeID(bytecode.OpSetProp, prop.ID())
	} else {
		p.chunk.EmitString(bytecode.OpSetVar, name)
	}
}

// parseWait compiles `wait [while|until <expr>]`. Wait itself takes no
// operand and unconditionally suspends the script for one execute() quantum
// — the re-check on a guarded wait comes from wrapping it in the same
// pre-test loop shape parseLoopPreTest uses, so the instruction the VM
// resumes at after a suspension is the Jump back to the guard, and the
// guard expression is freshly re-evaluated (reading whatever the host has
// since changed) rather than replaying a stale popped value. A bare `wait`
// has no such wrapper, so the VM simply falls through to the following
// instruction on the next execute() call.
func (p *Parser) parseWait() {
	p.advance()
	if p.curIs(SymWhile) || p.curIs(SymUntil) {
		negate := p.curIs(SymUntil)
		p.advance()
		guardStart := p.chunk.Tell()
		p.parseExpression()
		if negate {
			p.chunk.EmitOp(bytecode.OpNot)
		}
		exitJump := p.chunk.EmitJump(bytecode.OpJumpFalse)
		p.chunk.EmitOp(bytecode.OpWait)
		p.chunk.EmitLoop(guardStart)
		p.chunk.PatchJump(exitJump)
		return
	}
	p.chunk.EmitOp(bytecode.OpWait)
}

func (p *Parser) parseReturn() {
	p.advance()
	if p.curIs(SymNewLine) || p.curIs(SymEOF) || p.curIs(SymEnd) {
		p.chunk.EmitOp(bytecode.OpReturn)
		return
	}
	p.parseExpression()
	p.chunk.EmitOp(bytecode.OpReturnValue)
	p.returnedValue = true
}

// parseCallOrExpressionStatement handles a bare statement that starts with
// neither a keyword nor 'set': either a function call invoked for its
// side effects, or a stray expression (which the VM discards via Pop).
func (p *Parser) parseCallOrExpressionStatement() {
	if cand, consumed, ok := p.tryResolveCall(); ok {
		p.emitCall(cand, consumed)
		if cand.sig.ReturnsValue {
			p.chunk.EmitOp(bytecode.OpPop)
		}
		return
	}
	p.parseExpression()
	p.chunk.EmitOp(bytecode.OpPop)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// parseExpression reads one full expression, multiplicative operators
// binding tighter than additive, additive tighter than comparison, and
// comparison tighter than and/or — ordinary arithmetic precedence, not the
// equal-precedence left-to-right scheme the base grammar describes, since
// `set x to 3 + 4 * 2` must leave x as 11. Each level still evaluates its
// operands fully before emitting its opcode; and/or never short-circuit.
func (p *Parser) parseExpression() {
	p.parseOr()
	if p.curIs(SymAs) {
		p.advance()
		kind := p.parseTypeName()
		p.chunk.EmitCast(kind)
	}
}

func (p *Parser) parseOr() {
	p.parseAnd()
	for p.curIs(SymOr) {
		p.advance()
		p.parseAnd()
		p.chunk.EmitOp(bytecode.OpOr)
	}
}

func (p *Parser) parseAnd() {
	p.parseComparison()
	for p.curIs(SymAnd) {
		p.advance()
		p.parseComparison()
		p.chunk.EmitOp(bytecode.OpAnd)
	}
}

func (p *Parser) parseComparison() {
	p.parseAdditive()
	for isComparisonOp(p.cur().Type) {
		op := p.advance().Type
		p.parseAdditive()
		p.chunk.EmitOp(binaryOpcode(op))
	}
}

func (p *Parser) parseAdditive() {
	p.parseMultiplicative()
	for p.curIs(SymPlus) || p.curIs(SymMinus) {
		op := p.advance().Type
		p.parseMultiplicative()
		p.chunk.EmitOp(binaryOpcode(op))
	}
}

func (p *Parser) parseMultiplicative() {
	p.parseUnary()
	for p.curIs(SymAsterisk) || p.curIs(SymSlash) || p.curIs(SymPercent) {
		op := p.advance().Type
		p.parseUnary()
		p.chunk.EmitOp(binaryOpcode(op))
	}
}

func isComparisonOp(t SymbolType) bool {
	switch t {
	case SymEquals, SymNotEquals, SymLess, SymLessEqual, SymGreater, SymGreaterEqual:
		return true
	}
	return false
}

func binaryOpcode(t SymbolType) bytecode.Opcode {
	switch t {
	case SymPlus:
		return bytecode.OpAdd
	case SymMinus:
		return bytecode.OpSubtract
	case SymAsterisk:
		return bytecode.OpMultiply
	case SymSlash:
		return bytecode.OpDivide
	case SymPercent:
		return bytecode.OpModulo
	case SymEquals:
		return bytecode.OpEqual
	case SymNotEquals:
		return bytecode.OpNotEqual
	case SymLess:
		return bytecode.OpLess
	case SymLessEqual:
		return bytecode.OpLessEqual
	case SymGreater:
		return bytecode.OpGreater
	case SymGreaterEqual:
		return bytecode.OpGreaterEqual
	case SymAnd:
		return bytecode.OpAnd
	case SymOr:
		return bytecode.OpOr
	default:
		return bytecode.OpNop
	}
}

func (p *Parser) parseUnary() {
	if p.curIs(SymNot) {
		p.advance()
		p.parseUnary()
		p.chunk.EmitOp(bytecode.OpNot)
		return
	}
	if p.curIs(SymMinus) {
		p.advance()
		p.parseUnary()
		p.chunk.EmitOp(bytecode.OpNegate)
		return
	}
	p.parsePrimary()
}

func (p *Parser) parsePrimary() {
	switch p.cur().Type {
	case SymIntegerValue:
		p.chunk.EmitValue(variant.NewInteger(p.advance().IntVal))
	case SymNumberValue:
		p.chunk.EmitValue(variant.NewNumber(p.advance().NumVal))
	case SymStringValue:
		p.chunk.EmitValue(variant.NewString(p.advance().Text))
	case SymBooleanValue:
		p.chunk.EmitValue(variant.NewBoolean(p.advance().BoolVal))
	case SymTypeNull:
		p.advance()
		p.chunk.EmitValue(variant.Null)
	case SymLParen:
		p.advance()
		p.parseExpression()
		p.expect(SymRParen)
	case SymLBracket:
		p.parseBracketLiteral()
	default:
		p.parseNameReference()
	}
}

// parseBracketLiteral handles `[]` (empty collection), `[[k1, v1], [k2, v2]]`
// (a key/value pair sequence forming one PushColl), and plain
// comma-separated expression lists such as `[a, b]` (PushList).
func (p *Parser) parseBracketLiteral() {
	p.advance() // '['
	if p.curIs(SymRBracket) {
		p.advance()
		p.chunk.EmitCount(bytecode.OpPushColl, 0)
		return
	}

	// Disambiguate: a nested '[' immediately inside means a key/value pair
	// sequence; anything else is a plain list of expressions.
	if p.curIs(SymLBracket) {
		count := uint32(0)
		for {
			p.expect(SymLBracket)
			p.parseExpression() // key
			p.expect(SymComma)
			p.parseExpression() // value
			p.expect(SymRBracket)
			count++
			if p.curIs(SymComma) {
				p.advance()
				continue
			}
			break
		}
		p.expect(SymRBracket)
		p.chunk.EmitCount(bytecode.OpPushColl, count)
		return
	}

	count := uint32(1)
	p.parseExpression()
	for p.curIs(SymComma) {
		p.advance()
		p.parseExpression()
		count++
	}
	p.expect(SymRBracket)
	p.chunk.EmitCount(bytecode.OpPushList, count)
}

// parseNameReference resolves an identifier-led primary as, in order: a
// known variable, a declared property, a foreign library's property, or a
// function call.
func (p *Parser) parseNameReference() {
	if !p.curIs(SymNameValue) {
		p.errorf("unexpected %s", p.cur().Type)
		p.advance()
		return
	}

	maxParts := p.vars.MaxParts()
	if name, words := p.scanGreedyName(maxParts); name != "" && p.vars.VariableExists(name) {
		p.pos += words
		p.emitReadReference(name, true, bytecode.PropertyName{})
		return
	}

	if name, words := p.scanPropertyName(6); name != "" {
		if decl, ok := p.properties[name]; ok {
			p.pos += words
			prop := bytecode.PropertyName{Library: p.library, Name: name, Visibility: decl.vis, ReadOnly: decl.readOnly}
			p.emitReadReference(name, false, prop)
			return
		}
	}

	if lib, name, words, ok := p.scanForeignProperty(); ok {
		vis, found := p.resolver.PropertyVisibility(lib, name)
		if !found {
			p.errorf("unknown property %q in library %q", name, lib)
			p.pos += words
			return
		}
		if vis != bytecode.VisibilityPublic {
			p.errorf("unable to access private property %q in library %q", name, lib)
			p.pos += words
			return
		}
		p.pos += words
		prop := bytecode.PropertyName{Library: lib, Name: name, Visibility: vis}
		p.emitReadReference(name, false, prop)
		return
	}

	if cand, consumed, ok := p.tryResolveCall(); ok {
		p.emitCall(cand, consumed)
		return
	}

	p.errorf("unresolved name %q", p.cur().Text)
	p.advance()
}

func (p *Parser) emitReadReference(name string, isVar bool, prop bytecode.PropertyName) {
	if p.curIs(SymLBracket) {
		p.advance()
		p.parseExpression()
		p.expect(SymRBracket)
		if isVar {
			p.chunk.EmitString(bytecode.OpPushVarKey, name)
		} else {
			p.chunk.EmitRuntimeID(bytecode.OpPushPropKeyVal, prop.ID())
		}
		return
	}
	if isVar {
		p.chunk.EmitString(bytecode.OpPushVar, name)
	} else {
		p.chunk.EmitRuntimeID(bytecode.OpPushProp, prop.ID())
	}
}

// scanGreedyName tries, longest word-count first up to maxParts, to match a
// run of NameValue tokens against the variable table. When no run is a
// known variable it falls back to the first word alone, so the caller still
// decides whether the name resolves to anything. Returns the matched text
// and how many tokens it covers (0 if none).
func (p *Parser) scanGreedyName(maxParts int) (string, int) {
	var words []string
	limit := maxParts
	if limit < 1 {
		limit = 1
	}
	for i := 0; i < limit; i++ {
		s := p.peekAt(i)
		if s.Type != SymNameValue {
			break
		}
		words = append(words, s.Text)
	}
	for n := len(words); n >= 1; n-- {
		candidate := strings.Join(words[:n], " ")
		if p.vars.VariableExists(candidate) {
			return candidate, n
		}
	}
	if len(words) > 0 {
		return words[0], 1
	}
	return "", 0
}

// scanNameUntilDelimiter consumes plain NameValue tokens up to (not
// including) the first '[' or 'to', the two delimiters that always follow
// a `set` target whether or not it already exists.
func (p *Parser) scanNameUntilDelimiter() (string, int) {
	var words []string
	i := 0
	for {
		s := p.peekAt(i)
		if s.Type != SymNameValue {
			break
		}
		words = append(words, s.Text)
		i++
	}
	if len(words) == 0 {
		return "", 0
	}
	return strings.Join(words, " "), i
}

// scanPropertyName tries up to maxWords plain-word tokens, longest first,
// against this library's own declared properties.
func (p *Parser) scanPropertyName(maxWords int) (string, int) {
	var words []string
	for i := 0; i < maxWords; i++ {
		s := p.peekAt(i)
		if s.Type != SymNameValue {
			break
		}
		words = append(words, s.Text)
	}
	for n := len(words); n >= 1; n-- {
		candidate := strings.Join(words[:n], " ")
		if _, ok := p.properties[candidate]; ok {
			return candidate, n
		}
	}
	return "", 0
}

// scanForeignProperty looks for "<library> <name...>" where library is an
// explicitly imported library name.
func (p *Parser) scanForeignProperty() (library, name string, consumed int, ok bool) {
	if p.resolver == nil || !p.curIs(SymNameValue) {
		return "", "", 0, false
	}
	lib := p.cur().Text
	imported := false
	for _, l := range p.imports {
		if l == lib {
			imported = true
			break
		}
	}
	if !imported {
		return "", "", 0, false
	}

	var words []string
	for i := 1; i < 6; i++ {
		s := p.peekAt(i)
		if s.Type != SymNameValue {
			break
		}
		words = append(words, s.Text)
	}
	if len(words) == 0 {
		return "", "", 0, false
	}
	for n := len(words); n >= 1; n-- {
		candidate := strings.Join(words[:n], " ")
		if _, found := p.resolver.PropertyVisibility(lib, candidate); found {
			return lib, candidate, n + 1, true
		}
	}
	return "", "", 0, false
}

// ---------------------------------------------------------------------------
// Function call resolution
// ---------------------------------------------------------------------------

// tryResolveCall scans forward without consuming, building a parts list,
// then matches it against the local function table, else the current
// library's functions registered with the resolver, else each imported
// library's public functions. An explicit library-name prefix on a call is
// not recognised.
func (p *Parser) tryResolveCall() (funcCandidate, int, bool) {
	parts, consumed := p.scanCallParts()
	if len(parts) == 0 {
		return funcCandidate{}, 0, false
	}

	var matches []funcCandidate
	for _, c := range p.localFuncs {
		if matchSignature(parts, c.sig) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 && p.resolver != nil {
		for _, sig := range p.resolver.Functions(p.library) {
			if matchSignature(parts, sig) {
				matches = append(matches, funcCandidate{sig: sig, library: p.library})
			}
		}
	}
	if len(matches) == 0 && p.resolver != nil {
		for _, lib := range p.imports {
			for _, sig := range p.resolver.Functions(lib) {
				if matchSignature(parts, sig) {
					if sig.Visibility != bytecode.VisibilityPublic {
						continue
					}
					matches = append(matches, funcCandidate{sig: sig, library: lib})
				}
			}
		}
	}

	if len(matches) == 0 {
		return funcCandidate{}, 0, false
	}
	if len(matches) > 1 {
		p.errorf("ambiguous function call")
		return funcCandidate{}, 0, false
	}
	return matches[0], consumed, true
}

// scanCallParts classifies the token run starting at the current position,
// stopping at a binary operator, newline, or end-of-input, without
// consuming any tokens. A parameter slot is one primary-expression unit:
// a literal, a parenthesised group, a bracketed literal, or a bare name
// that is a known variable or property. Any other bare name is taken as a
// name part of the call itself.
func (p *Parser) scanCallParts() ([]callPart, int) {
	var parts []callPart
	i := 0
	for {
		s := p.peekAt(i)
		if s.Type.IsBinaryOperator() || s.Type == SymNewLine || s.Type == SymEOF {
			break
		}
		switch s.Type {
		case SymIntegerValue, SymNumberValue, SymStringValue, SymBooleanValue:
			parts = append(parts, callPart{kind: bytecode.PartParameter})
			i++
		case SymLParen:
			i = skipBalanced(p, i, SymLParen, SymRParen)
			parts = append(parts, callPart{kind: bytecode.PartParameter})
		case SymLBracket:
			i = skipBalanced(p, i, SymLBracket, SymRBracket)
			parts = append(parts, callPart{kind: bytecode.PartParameter})
		case SymNameValue:
			name := s.Text
			if p.vars.VariableExists(name) || p.isKnownProperty(name) {
				parts = append(parts, callPart{kind: bytecode.PartParameter})
			} else {
				parts = append(parts, callPart{kind: bytecode.PartName, text: name})
			}
			i++
		default:
			return parts, i
		}
	}
	return parts, i
}

func (p *Parser) isKnownProperty(name string) bool {
	_, ok := p.properties[name]
	return ok
}

// skipBalanced advances past a balanced open/close token pair starting at
// offset i (which must index the open token), returning the offset one
// past the matching close token.
func skipBalanced(p *Parser, i int, open, close SymbolType) int {
	depth := 0
	for {
		s := p.peekAt(i)
		if s.Type == open {
			depth++
		} else if s.Type == close {
			depth--
			if depth == 0 {
				return i + 1
			}
		} else if s.Type == SymEOF {
			return i
		}
		i++
	}
}

func matchSignature(scanned []callPart, sig bytecode.FunctionSignature) bool {
	if len(scanned) != len(sig.Parts) {
		return false
	}
	for i, sp := range sig.Parts {
		cp := scanned[i]
		if sp.Kind == bytecode.PartName {
			if cp.kind != bytecode.PartName {
				return false
			}
			if !containsAlias(sp.Aliases, cp.text) {
				return false
			}
		} else {
			if cp.kind != bytecode.PartParameter {
				return false
			}
		}
	}
	return true
}

func containsAlias(aliases []string, text string) bool {
	for _, a := range aliases {
		if a == text {
			return true
		}
	}
	return false
}

// emitCall re-walks the already-matched call, consuming name-part tokens
// and emitting real expression bytecode for each parameter part, then
// emits the call itself.
func (p *Parser) emitCall(cand funcCandidate, consumed int) {
	_ = consumed
	for _, part := range cand.sig.Parts {
		if part.Kind == bytecode.PartName {
			p.advance()
			continue
		}
		p.parsePrimary()
	}
	p.chunk.EmitRuntimeID(bytecode.OpCallFunc, cand.sig.ID())
}
