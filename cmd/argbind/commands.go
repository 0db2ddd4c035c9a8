package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aledsdavies/argbind/internal/descfile"
	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/astfmt"
	"github.com/aledsdavies/argbind/pkgs/lexer"
	"github.com/aledsdavies/argbind/pkgs/params"
	"github.com/aledsdavies/argbind/pkgs/parser"
	"github.com/aledsdavies/argbind/pkgs/resolver"
)

func (a *app) tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens [--] ARGS...",
		Short: "Print the tokens of a command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := lexer.All(lexer.JoinArgs(args), lexer.WithLogger(a.logger))
			for _, tok := range tokens {
				_, _ = fmt.Fprintln(a.stdout, tok)
			}
			if err != nil {
				return &exitError{code: ExitParseError, err: err}
			}
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) parseCmd() *cobra.Command {
	var (
		format string
		hash   bool
	)

	cmd := &cobra.Command{
		Use:   "parse [--format text|json|yaml|cbor] [--hash] [--] ARGS...",
		Short: "Print the syntax tree of a command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := astfmt.ParseFormat(format)
			if err != nil {
				return &CLIError{Message: err.Error(), Hint: fmt.Sprintf("use one of %v", astfmt.Formats)}
			}

			seq, err := parser.Parse(cmd.Context(), lexer.JoinArgs(args), parser.WithLogger(a.logger))
			if err != nil {
				return err
			}

			if hash {
				sum, err := astfmt.Hash(seq)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.stdout, hex.EncodeToString(sum[:]))
				return err
			}
			return astfmt.Encode(a.stdout, seq, f)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&format, "format", string(astfmt.FormatText), "Output format: text, json, yaml or cbor")
	cmd.Flags().BoolVar(&hash, "hash", false, "Print the BLAKE2b-256 hash of the tree instead")
	return cmd
}

func (a *app) resolveCmd() *cobra.Command {
	var (
		setsFile   string
		watch      bool
		noValidate bool
	)

	cmd := &cobra.Command{
		Use:   "resolve --sets FILE [--watch] [--] ARGS...",
		Short: "Bind a command line to the parameter sets in a descriptor file",
		Long: `Bind a command line to the parameter sets in a descriptor file.

On a match the bound values are printed as JSON. Otherwise the errors of
the closest parameter set are printed and the exit code is 2.

With --watch the command line is resolved again each time the descriptor
changes, until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			seq, err := parser.Parse(ctx, lexer.JoinArgs(args), parser.WithLogger(a.logger))
			if err != nil {
				return err
			}

			opts := []resolver.Option{resolver.WithLogger(a.logger)}
			if noValidate {
				opts = append(opts, resolver.WithoutValidation())
			}
			r := resolver.New(opts...)

			if watch {
				return a.watch(ctx, r, seq, setsFile)
			}

			sets, err := descfile.Load(setsFile)
			if err != nil {
				return err
			}
			return a.resolve(ctx, r, seq, sets)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVar(&setsFile, "sets", "", "Descriptor file with the parameter sets (YAML)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Resolve again whenever the descriptor file changes")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "Skip constraint validation")
	_ = cmd.MarkFlagRequired("sets")
	return cmd
}

func (a *app) resolve(ctx context.Context, r *resolver.Resolver, seq *ast.NodeSequence, sets []*params.ParameterSet) error {
	res, err := r.Resolve(ctx, seq, sets...)
	if err != nil {
		return err
	}

	match, ok := res.Match()
	if !ok {
		return &exitError{code: ExitNoMatch, err: noMatchError(res)}
	}
	a.logger.Debug("matched", "set", match.Set.Name)
	return writeMatch(a.stdout, match)
}

// watch resolves seq on every load of the descriptor. Failures are
// reported and the watch goes on.
func (a *app) watch(ctx context.Context, r *resolver.Resolver, seq *ast.NodeSequence, path string) error {
	useColor := ShouldUseColor(a.stderr, a.noColor)
	return descfile.Watch(ctx, path, func(sets []*params.ParameterSet, err error) {
		if err == nil {
			err = a.resolve(ctx, r, seq, sets)
		}
		if err != nil && ctx.Err() == nil {
			FormatError(a.stderr, err, useColor)
		}
	})
}

func (a *app) setsCmd() *cobra.Command {
	var setsFile string

	cmd := &cobra.Command{
		Use:   "sets --sets FILE",
		Short: "Check a descriptor file and print it normalised",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sets, err := descfile.Load(setsFile)
			if err != nil {
				return err
			}
			a.logger.Debug("loaded descriptor", "file", setsFile, "sets", len(sets))

			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(descfile.Describe(sets)); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&setsFile, "sets", "", "Descriptor file with the parameter sets (YAML)")
	_ = cmd.MarkFlagRequired("sets")
	return cmd
}
