package lexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aledsdavies/argbind/core/invariant"
)

// DefaultBufferSize is the capacity of the producer/consumer handoff queue.
const DefaultBufferSize = 32

// ASCII character lookup tables for fast classification
var (
	isWhitespace [128]bool
	isDelimiter  [128]bool // ends an unquoted run
	isNameStart  [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' || ch == '\v'
		isNameStart[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_' || ch == '?'
	}
	for _, ch := range []byte{',', ';', '=', ')', '}'} {
		isDelimiter[ch] = true
	}
}

// LexerOpt represents a lexer configuration option
type LexerOpt func(*LexerConfig)

// LexerConfig holds lexer configuration
type LexerConfig struct {
	bufferSize int
	logger     *slog.Logger
}

// WithBufferSize sets the capacity of the token handoff queue. Values below
// one are treated as one.
func WithBufferSize(n int) LexerOpt {
	return func(c *LexerConfig) {
		if n < 1 {
			n = 1
		}
		c.bufferSize = n
	}
}

// WithLogger routes token-level debug tracing to logger.
func WithLogger(logger *slog.Logger) LexerOpt {
	return func(c *LexerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Error is a fatal lexical error. Tokenization stops at the first one.
type Error struct {
	Message  string
	Position int // byte offset where the offending construct starts
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Message, e.Position)
}

// errStopped signals that the consumer went away; it never reaches callers.
var errStopped = errors.New("lexer stopped")

// Stream is a single-pass, lazily produced token sequence. A producer
// goroutine lexes the input into a bounded queue; Next blocks until a token
// is available. After EOF or an error the stream keeps returning the same
// result.
type Stream struct {
	tokens    chan Token
	done      chan struct{}
	closeOnce sync.Once
	err       error // written by the producer before tokens is closed

	finished bool
	final    Token
	finalErr error
	inputLen int
}

// Tokenize starts lexing input and returns the consuming end of the handoff.
// The producer stops when it reaches end of input, hits a lexical error,
// ctx is cancelled, or the stream is closed.
func Tokenize(ctx context.Context, input string, opts ...LexerOpt) *Stream {
	invariant.NotNil(ctx, "ctx")

	config := &LexerConfig{
		bufferSize: DefaultBufferSize,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(config)
	}

	s := &Stream{
		tokens:   make(chan Token, config.bufferSize),
		done:     make(chan struct{}),
		inputLen: len(input),
	}
	go s.produce(ctx, input, config)
	return s
}

func (s *Stream) produce(ctx context.Context, input string, config *LexerConfig) {
	defer close(s.tokens)

	l := &lexer{
		input:  input,
		logger: config.logger,
		emit: func(tok Token) bool {
			select {
			case s.tokens <- tok:
				return true
			case <-s.done:
				return false
			case <-ctx.Done():
				return false
			}
		},
	}

	err := l.run()
	if errors.Is(err, errStopped) {
		err = ctx.Err()
	}
	s.err = err
}

// Next returns the next token. When the producer aborted, the original
// lexical error is returned once every token produced before it has been
// consumed.
func (s *Stream) Next() (Token, error) {
	if s.finished {
		return s.final, s.finalErr
	}

	tok, ok := <-s.tokens
	if !ok {
		s.finished = true
		s.final = Token{Type: EOF, Position: s.inputLen}
		s.finalErr = s.err
		if s.finalErr == nil {
			s.finalErr = &Error{Message: "token stream closed before end of input", Position: s.inputLen}
		}
		return s.final, s.finalErr
	}

	if tok.Type == EOF {
		s.finished = true
		s.final = tok
	}
	return tok, nil
}

// Close releases the producer if the consumer stops early. It is safe to
// call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// All drains a fresh stream over input. The returned slice ends with EOF
// unless an error is returned, in which case it holds the tokens produced
// before the error.
func All(input string, opts ...LexerOpt) ([]Token, error) {
	s := Tokenize(context.Background(), input, opts...)
	defer s.Close()

	var tokens []Token
	for {
		tok, err := s.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// lexer holds the producer side state. Every reader step consumes at least
// one byte or fails, so any finite input terminates.
type lexer struct {
	input  string
	pos    int
	logger *slog.Logger
	emit   func(Token) bool
}

func (l *lexer) run() error {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			break
		}

		start := l.pos
		ch := l.input[l.pos]
		var err error
		switch {
		case ch == ',':
			l.pos++
			err = l.send(Token{Type: ListSeparator, Text: ",", Position: start, Length: 1})
		case ch == '-' && l.startsParameter():
			err = l.lexParameter()
		case ch < 128 && isDelimiter[ch]:
			err = l.errorf(start, "unexpected %q", ch)
		default:
			err = l.lexValue()
		}
		if err != nil {
			return err
		}
		invariant.Invariant(l.pos > start, "lexer must advance at offset %d", start)
	}

	return l.send(Token{Type: EOF, Position: len(l.input)})
}

func (l *lexer) send(tok Token) error {
	l.logger.Debug("token", "type", tok.Type.String(), "text", tok.Text, "pos", tok.Position, "len", tok.Length)
	if !l.emit(tok) {
		return errStopped
	}
	return nil
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...), Position: pos}
}

func (l *lexer) peek(offset int) byte {
	if l.pos+offset >= len(l.input) {
		return 0
	}
	return l.input[l.pos+offset]
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch >= 128 || !isWhitespace[ch] {
			return
		}
		l.pos++
	}
}

// atRunEnd reports whether the current byte ends an unquoted run.
func (l *lexer) atRunEnd() bool {
	if l.pos >= len(l.input) {
		return true
	}
	ch := l.input[l.pos]
	return ch < 128 && (isWhitespace[ch] || isDelimiter[ch])
}

func (l *lexer) startsParameter() bool {
	next := l.peek(1)
	return next < 128 && isNameStart[next]
}

// lexParameter reads -Name or -Name: (switch with explicit value).
func (l *lexer) lexParameter() error {
	start := l.pos
	l.pos++ // '-'
	for !l.atRunEnd() && l.input[l.pos] != ':' {
		l.pos++
	}
	name := l.input[start+1 : l.pos]

	if l.pos < len(l.input) && l.input[l.pos] == ':' {
		l.pos++
		return l.send(Token{Type: SwitchParameter, Text: name, Position: start, Length: l.pos - start})
	}
	return l.send(Token{Type: ParameterName, Text: name, Position: start, Length: l.pos - start})
}

// lexValue reads one value: a literal, a list or a dictionary.
func (l *lexer) lexValue() error {
	l.skipWhitespace()
	if l.pos >= len(l.input) {
		return l.errorf(l.pos, "expected value, got end of input")
	}

	switch ch := l.input[l.pos]; {
	case ch == '\'' || ch == '"':
		return l.lexQuoted(ch)
	case ch == '$':
		return l.lexVariable()
	case ch == '@' && l.peek(1) == '(':
		return l.lexList()
	case ch == '@' && l.peek(1) == '{':
		return l.lexDictionary()
	case ch < 128 && isDelimiter[ch]:
		return l.errorf(l.pos, "expected value, found %q", ch)
	default:
		return l.lexBare()
	}
}

// lexQuoted reads a quoted string. A backtick escapes the following byte,
// including the closing quote and another backtick.
func (l *lexer) lexQuoted(quote byte) error {
	start := l.pos
	l.pos++

	var value strings.Builder
	for {
		if l.pos >= len(l.input) {
			return l.errorf(start, "missing closing %c in quoted string", quote)
		}
		ch := l.input[l.pos]
		switch ch {
		case '`':
			if l.pos+1 >= len(l.input) {
				return l.errorf(start, "missing closing %c in quoted string", quote)
			}
			value.WriteByte(l.input[l.pos+1])
			l.pos += 2
			continue
		case quote:
			l.pos++
			return l.send(Token{Type: String, Text: value.String(), Position: start, Length: l.pos - start})
		}
		value.WriteByte(ch)
		l.pos++
	}
}

// lexVariable reads $null, $true or $false. Anything else is unsupported.
func (l *lexer) lexVariable() error {
	start := l.pos
	l.pos++
	for !l.atRunEnd() {
		l.pos++
	}
	text := l.input[start:l.pos]

	switch strings.ToLower(text) {
	case "$null":
		return l.send(Token{Type: Null, Text: text, Position: start, Length: l.pos - start})
	case "$true", "$false":
		return l.send(Token{Type: Boolean, Text: text, Position: start, Length: l.pos - start})
	default:
		return l.errorf(start, "unrecognized literal %q", text)
	}
}

// lexBare reads an unquoted run and classifies it as numeric or string.
func (l *lexer) lexBare() error {
	start := l.pos
	for !l.atRunEnd() {
		l.pos++
	}
	text := l.input[start:l.pos]

	typ := String
	if IsNumeric(text) {
		typ = Numeric
	}
	return l.send(Token{Type: typ, Text: text, Position: start, Length: l.pos - start})
}

// lexList reads @( value, value, ... ).
func (l *lexer) lexList() error {
	start := l.pos
	l.pos += 2
	if err := l.send(Token{Type: ListStart, Text: "@(", Position: start, Length: 2}); err != nil {
		return err
	}

	l.skipWhitespace()
	if l.peek(0) == ')' {
		return l.closeBracket(ListEnd, ")")
	}

	for {
		if err := l.lexValue(); err != nil {
			return err
		}
		l.skipWhitespace()

		if l.pos >= len(l.input) {
			return l.errorf(start, "missing closing ')' for list")
		}
		switch l.input[l.pos] {
		case ',':
			l.pos++
			l.skipWhitespace()
			if l.peek(0) == ')' {
				return l.errorf(l.pos, "expected value after ',' in list")
			}
		case ')':
			return l.closeBracket(ListEnd, ")")
		default:
			return l.errorf(l.pos, "missing ',' between list elements")
		}
	}
}

// lexDictionary reads @{ key = value; key = value }.
func (l *lexer) lexDictionary() error {
	start := l.pos
	l.pos += 2
	if err := l.send(Token{Type: DictionaryStart, Text: "@{", Position: start, Length: 2}); err != nil {
		return err
	}

	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return l.errorf(start, "missing closing '}' for dictionary")
		}
		if l.input[l.pos] == '}' {
			return l.closeBracket(DictionaryEnd, "}")
		}

		if err := l.lexValue(); err != nil {
			return err
		}
		l.skipWhitespace()
		if l.peek(0) != '=' {
			if l.pos >= len(l.input) {
				return l.errorf(start, "missing closing '}' for dictionary")
			}
			return l.errorf(l.pos, "missing '=' after dictionary key")
		}
		l.pos++

		if err := l.lexValue(); err != nil {
			return err
		}
		l.skipWhitespace()

		if l.pos >= len(l.input) {
			return l.errorf(start, "missing closing '}' for dictionary")
		}
		switch l.input[l.pos] {
		case ';':
			l.pos++
		case '}':
			return l.closeBracket(DictionaryEnd, "}")
		default:
			return l.errorf(l.pos, "missing ';' between dictionary entries")
		}
	}
}

func (l *lexer) closeBracket(typ TokenType, text string) error {
	start := l.pos
	l.pos++
	return l.send(Token{Type: typ, Text: text, Position: start, Length: 1})
}

// IsNumeric reports whether text is an optional sign followed by digits
// with at most one decimal point.
func IsNumeric(text string) bool {
	if text == "" {
		return false
	}
	i := 0
	if text[0] == '+' || text[0] == '-' {
		i++
	}

	digits, dots := 0, 0
	for ; i < len(text); i++ {
		switch ch := text[i]; {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return digits > 0
}
