package parser

import (
	"fmt"
	"strings"
)

// ErrorType represents different categories of parsing errors
type ErrorType int

const (
	ErrorLexical    ErrorType = iota // malformed quoting, brackets, $-literals
	ErrorSyntax                      // structurally invalid token order
	ErrorUnexpected                  // a token that cannot appear here
	ErrorMissing                     // input ended where a value was required
)

func (e ErrorType) String() string {
	switch e {
	case ErrorLexical:
		return "lexical error"
	case ErrorSyntax:
		return "syntax error"
	case ErrorUnexpected:
		return "unexpected token"
	case ErrorMissing:
		return "missing"
	default:
		return "error"
	}
}

// ParseError is a fatal lexical or syntactic error. Parsing stops at the
// first one.
type ParseError struct {
	Type     ErrorType
	Message  string
	Position int // byte offset into Input
	Input    string
	Cause    error // the lexer error for ErrorLexical
}

// Error returns the formatted error message with a caret snippet
func (e *ParseError) Error() string {
	snippet := e.createCodeSnippet()
	if snippet == "" {
		return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
	}
	return fmt.Sprintf("%s: %s\n%s", e.Type.String(), e.Message, snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// createCodeSnippet points at the error offset inside the command line
func (e *ParseError) createCodeSnippet() string {
	if e.Input == "" || e.Position < 0 || e.Position > len(e.Input) {
		return ""
	}

	column := e.Position + 1
	var snippet strings.Builder
	snippet.WriteString(fmt.Sprintf("  --> column %d\n", column))
	snippet.WriteString("   |\n")
	snippet.WriteString(fmt.Sprintf("   | %s\n", e.Input))
	snippet.WriteString("   | ")
	snippet.WriteString(strings.Repeat(" ", e.Position) + "^")
	return snippet.String()
}
