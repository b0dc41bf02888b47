package diabicus

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ComputationError.
type ErrorKind int

const (
	ErrComputation ErrorKind = iota
	ErrSyntax
	ErrDivideByZero
	ErrOverflow
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSyntax:
		return "invalid syntax"
	case ErrDivideByZero:
		return "divide by zero"
	case ErrOverflow:
		return "Overflow error"
	default:
		return "computation error"
	}
}

// ComputationError is any parsing or arithmetic failure produced by the
// evaluator. Msg is what the user sees after "Error: ".
type ComputationError struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func newComputationError(kind ErrorKind, cause error) *ComputationError {
	return &ComputationError{Kind: kind, Msg: kind.String(), Cause: cause}
}

func (e *ComputationError) Error() string { return e.Msg }
func (e *ComputationError) Unwrap() error { return e.Cause }

// Is matches another *ComputationError by kind, so callers can write
// errors.Is(err, diabicus.ErrorOf(diabicus.ErrOverflow)).
func (e *ComputationError) Is(target error) bool {
	var t *ComputationError
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// ErrorOf returns a bare ComputationError of the given kind.
func ErrorOf(kind ErrorKind) *ComputationError { return newComputationError(kind, nil) }

// KindOf reports the ComputationError kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ComputationError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return 0, false
}

// Sentinel errors outside the evaluator.
var (
	// ErrTimeout is returned by Runner when the function outlives its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrUnknownPredicate is returned when a case names a predicate that is not registered.
	ErrUnknownPredicate = errors.New("unknown predicate")
	// ErrBadPredicateArgs is returned when a predicate is given arguments it cannot use.
	ErrBadPredicateArgs = errors.New("bad predicate arguments")
	// ErrUnknownTool is returned by HandleToolCall for unrecognised tool names.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrMessageTooLong is reported by CheckCases for messages that would not fit the display.
	ErrMessageTooLong = errors.New("message too long")
)

// CasePhase tells which part of a case faulted.
type CasePhase string

const (
	PhaseTest    CasePhase = "test"
	PhaseMessage CasePhase = "message"
)

// CaseFault wraps an error or recovered panic raised by a case test or
// message. It never reaches the user; the collection logs it and moves on.
type CaseFault struct {
	Case  string
	Phase CasePhase
	Err   error
}

func (f *CaseFault) Error() string {
	return fmt.Sprintf("case %q %s fault: %v", f.Case, f.Phase, f.Err)
}

func (f *CaseFault) Unwrap() error { return f.Err }

// PanicError carries a value recovered from a panicking case function.
type PanicError struct{ Value any }

func (p *PanicError) Error() string { return fmt.Sprintf("panic: %v", p.Value) }
