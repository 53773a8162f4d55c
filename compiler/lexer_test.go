package compiler

import "testing"

func TestLexerBasicSymbols(t *testing.T) {
	input := `( ) [ ] { } , = != < <= > >= + - * / %`
	expected := []SymbolType{
		SymLParen, SymRParen, SymLBracket, SymRBracket, SymLBrace, SymRBrace,
		SymComma, SymEquals, SymNotEquals, SymLess, SymLessEqual, SymGreater,
		SymGreaterEqual, SymPlus, SymMinus, SymAsterisk, SymSlash, SymPercent,
		SymEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		s := l.NextSymbol()
		if s.Type != want {
			t.Errorf("symbol[%d] type = %v, want %v", i, s.Type, want)
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	input := "library import public private readonly external function return"
	expected := []SymbolType{
		SymLibrary, SymImport, SymPublic, SymPrivate, SymReadOnly, SymExternal, SymFunction, SymReturn,
	}
	l := NewLexer(input)
	for i, want := range expected {
		s := l.NextSymbol()
		if s.Type != want {
			t.Errorf("keyword[%d] type = %v, want %v", i, s.Type, want)
		}
	}
}

func TestLexerBooleanLiterals(t *testing.T) {
	l := NewLexer("true false")
	a := l.NextSymbol()
	if a.Type != SymBooleanValue || !a.BoolVal {
		t.Errorf("got %+v, want true", a)
	}
	b := l.NextSymbol()
	if b.Type != SymBooleanValue || b.BoolVal {
		t.Errorf("got %+v, want false", b)
	}
}

func TestLexerIntegers(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"42", 42},
		{"0", 0},
	}
	for _, tc := range tests {
		l := NewLexer(tc.input)
		s := l.NextSymbol()
		if s.Type != SymIntegerValue {
			t.Errorf("Lexer(%q): type = %v, want integer", tc.input, s.Type)
			continue
		}
		if s.IntVal != tc.want {
			t.Errorf("Lexer(%q): value = %d, want %d", tc.input, s.IntVal, tc.want)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"3.14", 3.14},
		{"0.5", 0.5},
		{"1e2", 100},
	}
	for _, tc := range tests {
		l := NewLexer(tc.input)
		s := l.NextSymbol()
		if s.Type != SymNumberValue {
			t.Errorf("Lexer(%q): type = %v, want number", tc.input, s.Type)
			continue
		}
		if s.NumVal != tc.want {
			t.Errorf("Lexer(%q): value = %g, want %g", tc.input, s.NumVal, tc.want)
		}
	}
}

// A leading '-' is never folded into the numeric literal that follows: the
// sign is always its own SymMinus token, so a negative literal standing
// alone lexes as Minus, Integer, and whitespace-free subtraction like
// "3-4" lexes as Integer, Minus, Integer rather than two adjacent values.
func TestLexerMinusNeverMergesIntoNumber(t *testing.T) {
	l := NewLexer("-123")
	a := l.NextSymbol()
	if a.Type != SymMinus {
		t.Fatalf("first symbol = %+v, want Minus", a)
	}
	b := l.NextSymbol()
	if b.Type != SymIntegerValue || b.IntVal != 123 {
		t.Errorf("second symbol = %+v, want IntegerValue(123)", b)
	}
}

func TestLexerNoSpaceSubtraction(t *testing.T) {
	l := NewLexer("3-4")
	a := l.NextSymbol()
	if a.Type != SymIntegerValue || a.IntVal != 3 {
		t.Fatalf("first symbol = %+v, want IntegerValue(3)", a)
	}
	b := l.NextSymbol()
	if b.Type != SymMinus {
		t.Fatalf("second symbol = %+v, want Minus", b)
	}
	c := l.NextSymbol()
	if c.Type != SymIntegerValue || c.IntVal != 4 {
		t.Errorf("third symbol = %+v, want IntegerValue(4)", c)
	}
}

func TestLexerStringEscapes(t *testing.T) {
	l := NewLexer(`"line one\nline two\ttab"`)
	s := l.NextSymbol()
	if s.Type != SymStringValue {
		t.Fatalf("type = %v, want string", s.Type)
	}
	want := "line one\nline two\ttab"
	if s.Text != want {
		t.Errorf("text = %q, want %q", s.Text, want)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	l := NewLexer(`"unterminated`)
	s := l.NextSymbol()
	if s.Type != SymInvalid {
		t.Errorf("type = %v, want invalid", s.Type)
	}
	if len(l.Diagnostics) == 0 {
		t.Error("expected a diagnostic for the unterminated string")
	}
}

func TestLexerLineComment(t *testing.T) {
	l := NewLexer("-- this is ignored\n42")
	s := l.NextSymbol()
	if s.Type != SymNewLine {
		t.Fatalf("type = %v, want newline", s.Type)
	}
	s = l.NextSymbol()
	if s.Type != SymIntegerValue || s.IntVal != 42 {
		t.Errorf("got %+v, want integer 42", s)
	}
}

func TestLexerBlockComment(t *testing.T) {
	l := NewLexer("--- spans\nmultiple\nlines ---\nset x to 1")
	s := l.NextSymbol()
	if s.Type != SymNewLine {
		t.Fatalf("type = %v, want newline", s.Type)
	}
	s = l.NextSymbol()
	if s.Type != SymSet {
		t.Errorf("type = %v, want set keyword", s.Type)
	}
}

func TestLexerMultiWordIdentifier(t *testing.T) {
	l := NewLexer("running total")
	a := l.NextSymbol()
	b := l.NextSymbol()
	if a.Type != SymNameValue || a.Text != "running" {
		t.Errorf("first symbol = %+v", a)
	}
	if b.Type != SymNameValue || b.Text != "total" {
		t.Errorf("second symbol = %+v", b)
	}
}

func TestTokenizeIncludesTrailingEOF(t *testing.T) {
	syms := Tokenize("set x to 1")
	if len(syms) == 0 || syms[len(syms)-1].Type != SymEOF {
		t.Error("Tokenize should end with an EOF symbol")
	}
}
