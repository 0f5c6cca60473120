// Package sema provides semantic analysis for OCL# constraints: scope
// resolution (pass one) and static type checking (pass two). Both passes
// collect diagnostics instead of aborting, so a single run over a
// constraint reports every fault it contains, and faults in one
// constraint never affect its siblings.
package sema

import (
	"fmt"

	"github.com/vitruv-tools/oclsharp/pkg/token"
)

// Severity indicates the importance of a diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	// SeverityError marks a fault that makes the constraint uncheckable.
	SeverityError Severity = iota
	// SeverityWarning marks a suspicious construct that still evaluates.
	SeverityWarning
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Code identifies the kind of a diagnostic. The set is closed.
type Code string

// Diagnostic codes emitted by the two analysis passes.
const (
	CodeUnboundVariable     Code = "unbound-variable"
	CodeDuplicateBinding    Code = "duplicate-binding"
	CodeUnresolvedMetamodel Code = "unresolved-metamodel"
	CodeUnresolvedClass     Code = "unresolved-class"
	CodeUnresolvedMember    Code = "unresolved-member"
	CodeTypeMismatch        Code = "type-mismatch"
	CodeInvalidCondition    Code = "invalid-condition"
)

// Diagnostic represents one analysis finding.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Pos      token.Position
}

// String renders the diagnostic for result output.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s at %s: %s", d.Severity, d.Code, d.Pos, d.Message)
}

// errorf appends an error diagnostic to a slice.
func errorf(diags []Diagnostic, code Code, pos token.Position, format string, args ...any) []Diagnostic {
	return append(diags, Diagnostic{
		Code:     code,
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// HasErrors returns true if any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
