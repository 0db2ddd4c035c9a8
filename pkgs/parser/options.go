package parser

import (
	"log/slog"
	"time"
)

// ParserOpt represents a parser configuration option
type ParserOpt func(*ParserConfig)

// TelemetryMode controls telemetry collection (production-safe)
type TelemetryMode int

const (
	TelemetryOff    TelemetryMode = iota // Zero overhead (default)
	TelemetryBasic                       // Token and node counts only
	TelemetryTiming                      // Counts + parse timing
)

// DebugLevel controls debug tracing (development only)
type DebugLevel int

const (
	DebugOff      DebugLevel = iota // No debug info (default)
	DebugPaths                      // Method call tracing
	DebugDetailed                   // Token-level tracing
)

// ParserConfig holds parser configuration
type ParserConfig struct {
	telemetry  TelemetryMode
	debug      DebugLevel
	bufferSize int
	logger     *slog.Logger
}

// WithTelemetryBasic enables basic telemetry (counts only)
func WithTelemetryBasic() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryBasic
	}
}

// WithTelemetryTiming enables timing telemetry (counts + timing)
func WithTelemetryTiming() ParserOpt {
	return func(c *ParserConfig) {
		c.telemetry = TelemetryTiming
	}
}

// WithDebugPaths enables debug path tracing (development only)
func WithDebugPaths() ParserOpt {
	return func(c *ParserConfig) {
		c.debug = DebugPaths
	}
}

// WithDebugDetailed enables detailed debug tracing (development only)
func WithDebugDetailed() ParserOpt {
	return func(c *ParserConfig) {
		c.debug = DebugDetailed
	}
}

// WithBufferSize sets the capacity of the lexer/parser token handoff.
func WithBufferSize(n int) ParserOpt {
	return func(c *ParserConfig) {
		c.bufferSize = n
	}
}

// WithLogger sends debug events to logger in addition to recording them.
func WithLogger(logger *slog.Logger) ParserOpt {
	return func(c *ParserConfig) {
		c.logger = logger
	}
}

// ParseTelemetry holds parser performance metrics (production-safe)
type ParseTelemetry struct {
	ParseTime  time.Duration // Time spent lexing and parsing (they overlap)
	TokenCount int           // Number of tokens consumed, EOF included
	NodeCount  int           // Number of AST nodes built, nested ones included
	ErrorCount int           // Number of parse errors (0 or 1)
}

// DebugEvent holds debug tracing information (development only)
type DebugEvent struct {
	Timestamp time.Time
	Event     string // "enter_value", "exit_value", "token", ...
	TokenPos  int    // Byte offset of the current token
	Context   string // Additional context
}
