package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/aledsdavies/argbind/pkgs/parser"
	"github.com/aledsdavies/argbind/pkgs/resolver"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitFailure    = 1 // usage, I/O or descriptor errors
	ExitNoMatch    = 2
	ExitParseError = 3
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// exitError carries a non-default exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return ExitParseError
	}
	return ExitFailure
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		formatCLIError(w, cliErr, useColor)
		return
	}
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

// noMatchError describes why a resolve found no single parameter set.
func noMatchError(res *resolver.ResolveResult) *CLIError {
	matched := lo.Filter(res.Results, func(r *resolver.ParameterSetResult, _ int) bool { return r.OK() })
	if len(matched) > 1 {
		names := lo.Map(matched, func(r *resolver.ParameterSetResult, _ int) string { return r.Set.Name })
		return &CLIError{
			Message: fmt.Sprintf("command line matches %d parameter sets: %s", len(matched), strings.Join(names, ", ")),
			Hint:    "pass a parameter that only one of them accepts",
		}
	}

	best := res.BestMatch()
	if best == nil {
		return &CLIError{Message: "no parameter sets to resolve against"}
	}

	var details strings.Builder
	fmt.Fprintf(&details, "closest parameter set: %s\n", best.Set)
	for _, e := range best.Errors {
		fmt.Fprintf(&details, "  %s: %s\n", e.Kind, e.Message)
	}
	return &CLIError{
		Message: "no parameter set matched the command line",
		Details: strings.TrimSuffix(details.String(), "\n"),
	}
}
