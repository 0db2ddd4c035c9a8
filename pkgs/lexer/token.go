package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a command-line token
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota

	// Parameter markers
	ParameterName   // -Name
	SwitchParameter // -Name: (explicit value follows as its own token)

	// Literals
	String  // abc, 'a b', "a b"
	Numeric // 12, -3, +4.5
	Boolean // $true, $false
	Null    // $null

	// Structure
	ListStart       // @(
	ListEnd         // )
	DictionaryStart // @{
	DictionaryEnd   // }
	ListSeparator   // , (top-level implicit list only)
)

var tokenNames = [...]string{
	EOF:             "EOF",
	ParameterName:   "PARAMETER_NAME",
	SwitchParameter: "SWITCH_PARAMETER",
	String:          "STRING",
	Numeric:         "NUMERIC",
	Boolean:         "BOOLEAN",
	Null:            "NULL",
	ListStart:       "LIST_START",
	ListEnd:         "LIST_END",
	DictionaryStart: "DICTIONARY_START",
	DictionaryEnd:   "DICTIONARY_END",
	ListSeparator:   "LIST_SEPARATOR",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && int(t) >= 0 {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsValue reports whether a token of this type starts a value.
func (t TokenType) IsValue() bool {
	switch t {
	case String, Numeric, Boolean, Null, ListStart, DictionaryStart:
		return true
	default:
		return false
	}
}

// Token is a single lexical token. Text holds the processed value: string
// content without quotes or escapes, parameter names without the leading
// dash and trailing colon, literal text for everything else. Position and
// Length describe the raw source span in bytes.
type Token struct {
	Type     TokenType
	Text     string
	Position int
	Length   int
}

// End returns the byte offset one past the token's source span.
func (t Token) End() int {
	return t.Position + t.Length
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d+%d", t.Type, t.Text, t.Position, t.Length)
}

// JoinArgs joins argv-style fragments with single spaces. Fragments that
// contained unquoted whitespace do not survive the join as one argument;
// callers that need that must quote before joining.
func JoinArgs(args []string) string {
	return strings.Join(args, " ")
}
