package compiler

import (
	"fmt"
	"strings"
)

// DiagnosticKind classifies a Diagnostic as a lexical error, a parse error,
// or a non-fatal warning such as an unresolved import.
type DiagnosticKind int

const (
	DiagLexError DiagnosticKind = iota
	DiagParseError
	DiagWarning
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagLexError:
		return "lex error"
	case DiagParseError:
		return "parse error"
	case DiagWarning:
		return "warning"
	default:
		return "diagnostic"
	}
}

// Diagnostic is a single structured problem report: enough location and
// ownership context for a host to render or filter it without re-parsing a
// formatted string.
type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
	Line    int
	Column  int
	Library string
}

func (d Diagnostic) String() string {
	prefix := ""
	if d.Library != "" {
		prefix = d.Library + ": "
	}
	return fmt.Sprintf("%sline %d, column %d: %s", prefix, d.Line, d.Column, d.Message)
}

// Diagnostics is an ordered collection of Diagnostic values. It implements
// error so a failed Compile can be returned and handled like any other
// error, while still letting a host walk the individual entries.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	if len(ds) == 0 {
		return "no diagnostics"
	}
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

// HasErrors reports whether any entry is a lex or parse error rather than a
// warning.
func (ds Diagnostics) HasErrors() bool {
	for _, d := range ds {
		if d.Kind != DiagWarning {
			return true
		}
	}
	return false
}

// WithLibrary returns a copy of ds with Library set on every entry that
// doesn't already carry one, used once the parser learns the library name
// declared partway through a source file.
func (ds Diagnostics) WithLibrary(library string) Diagnostics {
	out := make(Diagnostics, len(ds))
	for i, d := range ds {
		if d.Library == "" {
			d.Library = library
		}
		out[i] = d
	}
	return out
}
