package eval

import (
	"fmt"

	"github.com/vitruv-tools/oclsharp/pkg/token"
)

// ErrorKind classifies runtime evaluation failures. Each failure is
// scoped to one (constraint, context instance) pair; evaluation of other
// instances and constraints always continues.
type ErrorKind int

const (
	// ArithmeticError is division or modulo by zero.
	ArithmeticError ErrorKind = iota
	// InvalidConditionError is an if condition that did not evaluate to
	// a single Boolean.
	InvalidConditionError
	// InternalEvaluationError covers conditions the type checker should
	// have excluded, such as a missing annotation or an unexpected
	// element type. It indicates a bug, never user input.
	InternalEvaluationError
)

func (k ErrorKind) String() string {
	switch k {
	case ArithmeticError:
		return "arithmetic error"
	case InvalidConditionError:
		return "invalid condition"
	case InternalEvaluationError:
		return "internal evaluation error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// EvalError is a runtime evaluation failure with source position.
type EvalError struct {
	Kind    ErrorKind
	Pos     token.Position
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Message)
}

func newError(kind ErrorKind, pos token.Position, format string, args ...any) *EvalError {
	return &EvalError{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}
