// Package parser turns a command line into an ast.NodeSequence.
//
// The grammar is consumed in a single forward pass over the lexer's token
// stream with one token of lookahead. Each top-level node is either a
// parameter marker or a value; a value directly followed by top-level
// commas folds into one implicit Sequence.
package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aledsdavies/argbind/core/invariant"
	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/lexer"
)

// Tree is the parse result with optional diagnostics.
type Tree struct {
	Sequence    *ast.NodeSequence
	Telemetry   *ParseTelemetry // nil if disabled
	DebugEvents []DebugEvent    // nil if disabled
}

// Parse tokenizes and parses input.
func Parse(ctx context.Context, input string, opts ...ParserOpt) (*ast.NodeSequence, error) {
	tree, err := ParseTree(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return tree.Sequence, nil
}

// ParseString is a convenience wrapper for tests and one-off callers
func ParseString(input string, opts ...ParserOpt) (*ast.NodeSequence, error) {
	return Parse(context.Background(), input, opts...)
}

// ParseTree parses input and returns the sequence together with telemetry
// and debug events when enabled. The returned Tree is non-nil even on
// error so telemetry can be inspected.
func ParseTree(ctx context.Context, input string, opts ...ParserOpt) (*Tree, error) {
	config := &ParserConfig{bufferSize: lexer.DefaultBufferSize}
	for _, opt := range opts {
		opt(config)
	}

	lexOpts := []lexer.LexerOpt{lexer.WithBufferSize(config.bufferSize)}
	if config.debug >= DebugDetailed && config.logger != nil {
		lexOpts = append(lexOpts, lexer.WithLogger(config.logger))
	}

	stream := lexer.Tokenize(ctx, input, lexOpts...)
	defer stream.Close()

	return parseStream(input, stream, config)
}

// ParseStream parses tokens from an already started stream. The stream is
// consumed exactly once and closed on return.
func ParseStream(input string, stream *lexer.Stream, opts ...ParserOpt) (*ast.NodeSequence, error) {
	invariant.NotNil(stream, "stream")
	defer stream.Close()

	config := &ParserConfig{}
	for _, opt := range opts {
		opt(config)
	}
	tree, err := parseStream(input, stream, config)
	if err != nil {
		return nil, err
	}
	return tree.Sequence, nil
}

func parseStream(input string, stream *lexer.Stream, config *ParserConfig) (*Tree, error) {
	var start time.Time
	if config.telemetry >= TelemetryTiming {
		start = time.Now()
	}

	p := &parser{
		stream: stream,
		input:  input,
		config: config,
	}
	if config.debug > DebugOff {
		p.debugEvents = make([]DebugEvent, 0, 32)
	}

	nodes, err := p.sequence()

	tree := &Tree{DebugEvents: p.debugEvents}
	if config.telemetry >= TelemetryBasic {
		tree.Telemetry = &ParseTelemetry{
			TokenCount: p.tokenCount,
			NodeCount:  p.nodeCount,
		}
		if err != nil {
			tree.Telemetry.ErrorCount = 1
		}
		if config.telemetry >= TelemetryTiming {
			tree.Telemetry.ParseTime = time.Since(start)
		}
	}
	if err != nil {
		return tree, err
	}

	tree.Sequence = &ast.NodeSequence{Input: input, Nodes: nodes}
	return tree, nil
}

type parser struct {
	stream *lexer.Stream
	input  string
	cur    lexer.Token
	config *ParserConfig

	tokenCount  int
	nodeCount   int
	debugEvents []DebugEvent
}

// advance loads the next token into p.cur.
func (p *parser) advance() error {
	tok, err := p.stream.Next()
	if err != nil {
		var lexErr *lexer.Error
		if errors.As(err, &lexErr) {
			return &ParseError{
				Type:     ErrorLexical,
				Message:  lexErr.Message,
				Position: lexErr.Position,
				Input:    p.input,
				Cause:    err,
			}
		}
		return err
	}

	p.tokenCount++
	p.cur = tok
	if p.config.debug >= DebugDetailed {
		p.recordDebugEvent("token", tok.String())
	}
	return nil
}

func (p *parser) recordDebugEvent(event, context string) {
	if p.debugEvents == nil {
		return
	}
	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		TokenPos:  p.cur.Position,
		Context:   context,
	})
	if p.config.logger != nil {
		p.config.logger.Debug("parser", slog.String("event", event), slog.Int("pos", p.cur.Position), slog.String("context", context))
	}
}

func (p *parser) errorf(typ ErrorType, pos int, format string, args ...any) error {
	return &ParseError{
		Type:     typ,
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
		Input:    p.input,
	}
}

func (p *parser) sequence() ([]ast.Node, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}

	var nodes []ast.Node
	for p.cur.Type != lexer.EOF {
		before := p.tokenCount

		var node ast.Node
		var err error
		switch p.cur.Type {
		case lexer.ParameterName:
			node = &ast.ParameterName{
				Name: p.cur.Text,
				Pos:  ast.Span{Start: p.cur.Position, End: p.cur.End()},
			}
			p.nodeCount++
			err = p.advance()
		case lexer.SwitchParameter:
			node, err = p.switchParameter()
		default:
			node, err = p.argument()
		}
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
		invariant.Invariant(p.tokenCount > before, "parser must advance at offset %d", p.cur.Position)
	}

	return nodes, nil
}

// switchParameter reads -Name: followed by its explicit value.
func (p *parser) switchParameter() (ast.Node, error) {
	tok := p.cur
	p.recordDebugEvent("enter_switch", tok.Text)
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.Type == lexer.EOF {
		return nil, p.errorf(ErrorMissing, p.cur.Position, "expected value for switch -%s, got end of input", tok.Text)
	}
	value, err := p.value()
	if err != nil {
		return nil, err
	}

	p.nodeCount++
	return &ast.SwitchParameter{
		Name:  tok.Text,
		Value: value,
		Pos:   ast.Span{Start: tok.Position, End: value.Span().End},
	}, nil
}

// argument reads a positional or named value, folding a top-level comma
// run into one implicit Sequence.
func (p *parser) argument() (ast.Node, error) {
	first, err := p.value()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != lexer.ListSeparator {
		return first, nil
	}

	p.recordDebugEvent("enter_implicit_list", "")
	elements := []ast.Node{first}
	for p.cur.Type == lexer.ListSeparator {
		sep := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.cur.Type.IsValue() {
			if p.cur.Type == lexer.EOF {
				return nil, p.errorf(ErrorMissing, sep.Position, "expected value after ',', got end of input")
			}
			return nil, p.errorf(ErrorUnexpected, p.cur.Position, "expected value after ',', got %s", p.cur.Type)
		}
		element, err := p.value()
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}

	p.nodeCount++
	return &ast.Sequence{
		Elements: elements,
		Implicit: true,
		Pos:      first.Span().Join(elements[len(elements)-1].Span()),
	}, nil
}

// value converts the current token (and, for brackets, everything up to
// the matching close) into a node.
func (p *parser) value() (ast.Node, error) {
	tok := p.cur
	if p.config.debug >= DebugPaths {
		p.recordDebugEvent("enter_value", tok.Type.String())
	}

	switch tok.Type {
	case lexer.String, lexer.Numeric, lexer.Boolean, lexer.Null:
		if err := p.advance(); err != nil {
			return nil, err
		}
		p.nodeCount++
		return &ast.Literal{
			Type: literalType(tok.Type),
			Text: tok.Text,
			Pos:  ast.Span{Start: tok.Position, End: tok.End()},
		}, nil
	case lexer.ListStart:
		return p.list()
	case lexer.DictionaryStart:
		return p.dictionary()
	case lexer.EOF:
		return nil, p.errorf(ErrorMissing, tok.Position, "expected value, got end of input")
	case lexer.ListEnd, lexer.DictionaryEnd:
		return nil, p.errorf(ErrorUnexpected, tok.Position, "unexpected %q where a value was expected", tok.Text)
	case lexer.ListSeparator:
		return nil, p.errorf(ErrorUnexpected, tok.Position, "unexpected ',' where a value was expected")
	default:
		return nil, p.errorf(ErrorSyntax, tok.Position, "expected value, got %s", tok.Type)
	}
}

func (p *parser) list() (ast.Node, error) {
	open := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}

	var elements []ast.Node
	for p.cur.Type != lexer.ListEnd {
		if p.cur.Type == lexer.EOF {
			return nil, p.errorf(ErrorMissing, open.Position, "missing closing ')' for list")
		}
		element, err := p.value()
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}

	closeTok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	p.nodeCount++
	return &ast.Sequence{
		Elements: elements,
		Pos:      ast.Span{Start: open.Position, End: closeTok.End()},
	}, nil
}

func (p *parser) dictionary() (ast.Node, error) {
	open := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}

	var entries []ast.Entry
	for p.cur.Type != lexer.DictionaryEnd {
		if p.cur.Type == lexer.EOF {
			return nil, p.errorf(ErrorMissing, open.Position, "missing closing '}' for dictionary")
		}
		key, err := p.value()
		if err != nil {
			return nil, err
		}
		if p.cur.Type == lexer.DictionaryEnd || p.cur.Type == lexer.EOF {
			return nil, p.errorf(ErrorMissing, p.cur.Position, "missing value for dictionary key %s", key)
		}
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.Entry{Key: key, Value: value})
	}

	closeTok := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	p.nodeCount++
	return &ast.AssociativeArray{
		Entries: entries,
		Pos:     ast.Span{Start: open.Position, End: closeTok.End()},
	}, nil
}

func literalType(t lexer.TokenType) ast.LiteralType {
	switch t {
	case lexer.Numeric:
		return ast.LiteralNumeric
	case lexer.Boolean:
		return ast.LiteralBoolean
	case lexer.Null:
		return ast.LiteralNull
	default:
		return ast.LiteralString
	}
}
