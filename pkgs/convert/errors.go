package convert

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNoConversion is the cause when no strategy applied to the pair.
	ErrNoConversion = errors.New("no conversion available")
	// ErrNilValue is returned when an absent value is converted.
	ErrNilValue = errors.New("value is nil")
	// ErrNumericRange is returned when a numeric literal fits no natural type.
	ErrNumericRange = errors.New("numeric literal out of range")
	// ErrPanic wraps a panic recovered from an invoked function.
	ErrPanic = errors.New("function panicked")
)

// Error reports a failed conversion of a natural value to a target type.
type Error struct {
	Value any
	From  reflect.Type
	To    reflect.Type
	Cause error // last strategy failure, or ErrNoConversion
}

func (e *Error) Error() string {
	from := "<nil>"
	if e.From != nil {
		from = e.From.String()
	}
	if e.Cause == nil || errors.Is(e.Cause, ErrNoConversion) {
		return fmt.Sprintf("cannot convert %v (%s) to %s", e.Value, from, e.To)
	}
	return fmt.Sprintf("cannot convert %v (%s) to %s: %v", e.Value, from, e.To, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
