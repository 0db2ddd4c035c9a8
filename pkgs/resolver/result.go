package resolver

import (
	"github.com/samber/lo"

	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/params"
)

// ParameterSetResult is the outcome of binding one command line to one
// parameter set.
type ParameterSetResult struct {
	Source   *ast.NodeSequence
	Set      *params.ParameterSet
	Instance any // populated target, possibly partial when Errors is set
	Errors   []*BindError
}

// OK reports whether the set bound without errors.
func (r *ParameterSetResult) OK() bool {
	return len(r.Errors) == 0
}

// ErrorsOf returns the errors of the given kind.
func (r *ParameterSetResult) ErrorsOf(kind ErrorKind) []*BindError {
	return lo.Filter(r.Errors, func(e *BindError, _ int) bool {
		return e.Kind == kind
	})
}

// Into returns the instance of r as T.
func Into[T any](r *ParameterSetResult) (T, bool) {
	v, ok := r.Instance.(T)
	return v, ok
}

// ResolveResult holds one ParameterSetResult per candidate, in candidate
// order.
type ResolveResult struct {
	Results []*ParameterSetResult
}

// IsMatch reports whether exactly one candidate bound without errors.
// Several error-free candidates are as unusable as none.
func (r *ResolveResult) IsMatch() bool {
	return lo.CountBy(r.Results, (*ParameterSetResult).OK) == 1
}

// Match returns the single error-free result when IsMatch holds.
func (r *ResolveResult) Match() (*ParameterSetResult, bool) {
	if !r.IsMatch() {
		return nil, false
	}
	return lo.Find(r.Results, (*ParameterSetResult).OK)
}

// BestMatch returns the result with the fewest errors; the earliest
// candidate wins ties. It returns nil only when there were no candidates.
func (r *ResolveResult) BestMatch() *ParameterSetResult {
	if len(r.Results) == 0 {
		return nil
	}
	return lo.MinBy(r.Results, func(a, b *ParameterSetResult) bool {
		return len(a.Errors) < len(b.Errors)
	})
}
