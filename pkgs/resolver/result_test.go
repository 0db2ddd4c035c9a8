package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func resultWith(errs ...ErrorKind) *ParameterSetResult {
	r := &ParameterSetResult{}
	for _, k := range errs {
		r.Errors = append(r.Errors, &BindError{Kind: k})
	}
	return r
}

func TestResolveResult_Selection(t *testing.T) {
	tests := []struct {
		name    string
		results []*ParameterSetResult
		isMatch bool
		best    int // index into results, -1 for nil
	}{
		{"empty", nil, false, -1},
		{"single_ok", []*ParameterSetResult{resultWith()}, true, 0},
		{"single_failed", []*ParameterSetResult{resultWith(MissingValue)}, false, 0},
		{"one_of_two", []*ParameterSetResult{resultWith(MissingValue), resultWith()}, true, 1},
		{"two_ok_is_no_match", []*ParameterSetResult{resultWith(), resultWith()}, false, 0},
		{"fewest_errors", []*ParameterSetResult{resultWith(MissingValue, Validation), resultWith(AmbiguousName)}, false, 1},
		{"tie_first_wins", []*ParameterSetResult{resultWith(MissingValue), resultWith(Validation), resultWith(MissingValue, Validation)}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &ResolveResult{Results: tt.results}
			assert.Equal(t, tt.isMatch, res.IsMatch())

			best := res.BestMatch()
			if tt.best < 0 {
				assert.Nil(t, best)
			} else {
				assert.Same(t, tt.results[tt.best], best)
			}

			m, ok := res.Match()
			assert.Equal(t, tt.isMatch, ok)
			if ok {
				assert.Same(t, best, m)
			} else {
				assert.Nil(t, m)
			}
		})
	}
}

func TestErrorsOf(t *testing.T) {
	r := resultWith(MissingValue, Validation, MissingValue)
	assert.Len(t, r.ErrorsOf(MissingValue), 2)
	assert.Empty(t, r.ErrorsOf(AmbiguousName))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "missing required parameter", MissingRequiredParameter.String())
	assert.Equal(t, "ErrorKind(42)", ErrorKind(42).String())
}

func TestFindClosestMatch(t *testing.T) {
	candidates := []string{"Name", "Path", "Namespace"}

	tests := []struct {
		target string
		want   string
	}{
		{"nme", "Name"},
		{"nmspc", "Namespace"},
		{"Pth", "Path"},
		{"Nmae", "Name"},
		{"Paht", "Path"},
		{"Colour", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, findClosestMatch(tt.target, candidates))
		})
	}
}
