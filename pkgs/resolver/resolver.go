// Package resolver matches a parsed command line against candidate
// parameter sets.
//
// Every candidate is resolved independently: the command word is checked,
// named arguments are matched by case-insensitive prefix, the rest fill
// positional parameters in position order, and values are built by the
// binder. Problems are collected as BindErrors on the candidate's result;
// the caller picks the unique error-free candidate or reports the closest.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/aledsdavies/argbind/core/invariant"
	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/binder"
	"github.com/aledsdavies/argbind/pkgs/params"
	"github.com/aledsdavies/argbind/pkgs/parser"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithActivator sets how target instances are created.
func WithActivator(a Activator) Option {
	return func(r *Resolver) {
		if a != nil {
			r.activator = a
		}
	}
}

// WithValidator sets the validator run over explicitly bound values.
func WithValidator(v *params.SchemaValidator) Option {
	return func(r *Resolver) {
		if v != nil {
			r.validator = v
		}
	}
}

// WithoutValidation skips constraint and validator checks.
func WithoutValidation() Option {
	return func(r *Resolver) {
		r.validate = false
	}
}

// WithConcurrency bounds the number of candidates resolved at once. A
// value <= 0 removes the bound.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		r.limit = n
	}
}

// WithBinderOptions configures the binder created for each candidate.
func WithBinderOptions(opts ...binder.Option) Option {
	return func(r *Resolver) {
		r.binderOpts = append(r.binderOpts, opts...)
	}
}

// WithLogger traces resolution at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver resolves command lines against parameter sets. It holds no
// per-call state and is safe for concurrent use.
type Resolver struct {
	activator  Activator
	validator  *params.SchemaValidator
	validate   bool
	limit      int
	binderOpts []binder.Option
	logger     *slog.Logger
}

// New returns a Resolver with the default activator and validation.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		activator: DefaultActivator,
		validator: params.NewSchemaValidator(),
		validate:  true,
		limit:     runtime.GOMAXPROCS(0),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.limit <= 0 {
		r.limit = -1
	}
	return r
}

// Resolve resolves seq against each set with a default Resolver.
func Resolve(ctx context.Context, seq *ast.NodeSequence, sets ...*params.ParameterSet) (*ResolveResult, error) {
	return New().Resolve(ctx, seq, sets...)
}

// Resolve resolves seq against every set concurrently. Results keep the
// order of sets. The error is non-nil only when ctx is done or an
// Activator fails; input problems are reported on the results.
func (r *Resolver) Resolve(ctx context.Context, seq *ast.NodeSequence, sets ...*params.ParameterSet) (*ResolveResult, error) {
	invariant.NotNil(seq, "seq")

	results := make([]*ParameterSetResult, len(sets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, set := range sets {
		invariant.NotNil(set, "set")
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.resolveSet(seq, set)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ResolveResult{Results: results}, nil
}

// ResolveInput parses input and resolves it. Parse failures are returned
// as *parser.ParseError.
func (r *Resolver) ResolveInput(ctx context.Context, input string, sets ...*params.ParameterSet) (*ResolveResult, error) {
	seq, err := parser.Parse(ctx, input, parser.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	return r.Resolve(ctx, seq, sets...)
}

func (r *Resolver) resolveSet(seq *ast.NodeSequence, set *params.ParameterSet) (*ParameterSetResult, error) {
	inst, err := r.activator.Activate(set)
	if err != nil {
		return nil, fmt.Errorf("parameter set %s: %w", set, err)
	}

	s := &state{
		resolver:   r,
		seq:        seq,
		set:        set,
		binder:     binder.New(r.binderOpts...),
		inst:       inst,
		positional: set.Positional(),
		unbound:    make(map[*params.Parameter]bool, len(set.Parameters)),
		bound:      make(map[*params.Parameter]boundValue, len(set.Parameters)),
	}
	for _, p := range set.Parameters {
		s.unbound[p] = true
	}

	s.applyDefaults()
	s.walk(s.matchCommand(seq.Arguments()))
	s.checkRequired()
	if r.validate {
		s.runValidation()
	}

	r.logger.Debug("resolved parameter set",
		slog.String("set", set.Name),
		slog.Int("errors", len(s.errs)))

	return &ParameterSetResult{
		Source:   seq,
		Set:      set,
		Instance: inst.Value(),
		Errors:   s.errs,
	}, nil
}

// state is the resolution of one candidate.
type state struct {
	resolver   *Resolver
	seq        *ast.NodeSequence
	set        *params.ParameterSet
	binder     *binder.Binder
	inst       Instance
	positional []*params.Parameter

	unbound map[*params.Parameter]bool       // not yet matched by an argument
	bound   map[*params.Parameter]boundValue // current value, default or given
	errs    errorList
}

type boundValue struct {
	value    reflect.Value
	node     ast.Node
	complete bool // bound without errors; partial values are not validated
}

// applyDefaults stores the default of every parameter that has one. A
// native slice or map default is copied so results never share it.
func (s *state) applyDefaults() {
	for _, p := range s.set.Parameters {
		if node := s.set.DefaultNode(p); node != nil {
			s.bind(p, node)
			continue
		}
		if p.Default == nil {
			continue
		}
		v, err := s.binder.Registry().Convert(reflect.ValueOf(p.Default), p.Type)
		if err != nil {
			s.errs.add(IncompatibleType, p, nil, err, "default for %s: %v", p, err)
			continue
		}
		s.store(p, cloneValue(v), nil, true)
	}
}

// cloneValue returns a shallow copy of a slice or map value.
func cloneValue(v reflect.Value) reflect.Value {
	switch {
	case v.Kind() == reflect.Slice && !v.IsNil():
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		reflect.Copy(out, v)
		return out
	case v.Kind() == reflect.Map && !v.IsNil():
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out
	}
	return v
}

// matchCommand checks the leading command word and returns the arguments
// after it. The first token is consumed even when it does not match: a
// leading -Name marker is dropped and any value paired with it is left
// as a positional argument.
func (s *state) matchCommand(args []ast.Argument) []ast.Argument {
	command := s.set.Command
	if command == "" {
		return args
	}
	if len(args) == 0 {
		s.errs.add(MissingCommand, nil, nil, nil, "expected command %q", command)
		return args
	}
	if args[0].Name != nil {
		s.errs.add(MissingCommand, nil, args[0].Name, nil, "expected command %q, got %s", command, args[0].Name)
		if args[0].Value == nil {
			return args[1:]
		}
		rest := make([]ast.Argument, len(args))
		copy(rest, args)
		rest[0] = ast.Argument{Value: args[0].Value}
		return rest
	}

	first := args[0].Value
	lit, ok := first.(*ast.Literal)
	if !ok || lit.Type == ast.LiteralNull || params.Fold(lit.Text) != params.Fold(command) {
		s.errs.add(MissingCommand, nil, first, nil, "expected command %q, got %q", command, s.seq.Excerpt(first))
	}
	return args[1:]
}

func (s *state) walk(args []ast.Argument) {
	for _, arg := range args {
		if arg.Name == nil {
			s.bindPositional(arg.Value)
			continue
		}
		s.bindNamed(arg)
	}
}

func (s *state) bindNamed(arg ast.Argument) {
	p, ok := s.lookup(arg.Name)
	if !ok {
		return
	}
	sw, explicit := arg.Name.(*ast.SwitchParameter)

	if !s.unbound[p] {
		s.errs.add(MultipleBindings, p, arg.Name, nil, "parameter %s is bound more than once", p)
		// a bare switch takes no value, so what follows is still an argument
		if p.IsSwitch() && arg.Value != nil {
			s.bindPositional(arg.Value)
		}
		return
	}
	s.unbound[p] = false

	switch {
	case explicit:
		s.bind(p, sw)
	case p.IsSwitch():
		s.store(p, reflect.ValueOf(params.Switch(true)), arg.Name, true)
		if arg.Value != nil {
			s.bindPositional(arg.Value)
		}
	case arg.Value == nil:
		s.errs.add(MissingValue, p, arg.Name, nil, "parameter %s requires a value", p)
	default:
		s.bind(p, arg.Value)
	}
}

// lookup matches a parameter marker by case-insensitive prefix. Unlike
// pure prefix matching, a marker that equals a parameter name exactly
// selects that parameter even when it also prefixes others: -Name binds
// Name with Namespace declared, where pure prefix matching would report
// AmbiguousName.
func (s *state) lookup(marker ast.Named) (*params.Parameter, bool) {
	name := marker.ParameterName()
	folded := params.Fold(name)
	if p, ok := s.set.Lookup(name); ok {
		return p, true
	}

	matches := lo.Filter(s.set.Parameters, func(p *params.Parameter, _ int) bool {
		return strings.HasPrefix(params.Fold(p.Name), folded)
	})
	switch len(matches) {
	case 1:
		return matches[0], true
	case 0:
		names := lo.Map(s.set.Parameters, func(p *params.Parameter, _ int) string { return p.Name })
		s.errs.add(ArgumentNameMismatch, nil, marker, nil, "no parameter named -%s%s", name, didYouMean("-", name, names))
	default:
		s.errs = append(s.errs, &BindError{
			Kind:       AmbiguousName,
			Parameters: matches,
			Nodes:      []ast.Node{marker},
			Message:    fmt.Sprintf("-%s is ambiguous: could be %s", name, joinNames(matches)),
		})
	}
	return nil, false
}

// bindPositional gives node to the unmatched positional parameter with
// the lowest position.
func (s *state) bindPositional(node ast.Node) {
	p, ok := lo.Find(s.positional, func(p *params.Parameter) bool {
		return s.unbound[p]
	})
	if !ok {
		s.errs.add(ArgumentPositionMismatch, nil, node, nil, "no positional parameter accepts %q", s.seq.Excerpt(node))
		return
	}
	s.unbound[p] = false
	s.bind(p, node)
}

// bind binds node to the type of p and stores the result. A partially
// bound value is stored but not validated.
func (s *state) bind(p *params.Parameter, node ast.Node) {
	res := s.binder.Bind(p.Type, node)
	for _, ve := range res.Errors {
		s.errs.add(IncompatibleType, p, ve.Node, ve, "%s: %v", p, ve)
	}
	if !res.OK && len(res.Errors) == 0 {
		s.errs.add(IncompatibleType, p, node, nil, "%s: cannot bind %q to %s", p, s.seq.Excerpt(node), p.Type)
	}
	if !res.Value.IsValid() {
		return
	}
	s.store(p, res.Value, node, res.OK)
}

// store sets p on the instance, replacing any default bound before it.
func (s *state) store(p *params.Parameter, v reflect.Value, node ast.Node, complete bool) {
	if err := s.inst.Set(p, v); err != nil {
		s.errs.add(IncompatibleType, p, node, err, "%s: %v", p, err)
		return
	}
	s.bound[p] = boundValue{value: v, node: node, complete: complete}
}

func (s *state) checkRequired() {
	for _, p := range s.set.Parameters {
		if p.Required && s.unbound[p] {
			s.errs.add(MissingRequiredParameter, p, nil, nil, "missing required parameter %s", p)
		}
	}
}

// runValidation checks the populated instance: every completely bound
// value, whether it came from the command line or a default.
func (s *state) runValidation() {
	for _, p := range s.set.Parameters {
		b, ok := s.bound[p]
		if !ok || !b.complete {
			continue
		}
		if err := s.resolver.validator.Validate(p, b.value.Interface()); err != nil {
			s.errs.add(Validation, p, b.node, err, "%v", err)
		}
	}
}
