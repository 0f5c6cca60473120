package eval

import (
	"fmt"
	"strings"

	"github.com/vitruv-tools/oclsharp/pkg/model"
	"github.com/vitruv-tools/oclsharp/pkg/sema"
)

// Value is the sole runtime value shape: a typed, ordered collection.
// Scalars and null are collections of size at most one. Elements are
// int64, float64, string, bool, or *model.ObjectInstance.
type Value struct {
	Kind  sema.CollectionKind
	Elems []any
}

func emptyValue(kind sema.CollectionKind) Value {
	return Value{Kind: kind}
}

func singleton(elem any) Value {
	return Value{Kind: sema.KindSequence, Elems: []any{elem}}
}

func boolValue(b bool) Value { return singleton(b) }

func objectValue(obj *model.ObjectInstance) Value { return singleton(obj) }

// IsEmpty returns true for the empty (null) collection.
func (v Value) IsEmpty() bool { return len(v.Elems) == 0 }

// Len returns the element count.
func (v Value) Len() int { return len(v.Elems) }

// Single returns the sole element of a one-element collection.
func (v Value) Single() (any, bool) {
	if len(v.Elems) != 1 {
		return nil, false
	}
	return v.Elems[0], true
}

// IsTrue reports whether the value is exactly the one-element collection
// containing Boolean true, the only satisfied shape.
func (v Value) IsTrue() bool {
	if len(v.Elems) != 1 {
		return false
	}
	b, ok := v.Elems[0].(bool)
	return ok && b
}

// Add appends an element, deduplicating for set kinds: structural
// equality for primitives, identity for objects.
func (v *Value) Add(elem any) {
	if v.Kind == sema.KindSet || v.Kind == sema.KindOrderedSet {
		for _, e := range v.Elems {
			if elemEqual(e, elem) {
				return
			}
		}
	}
	v.Elems = append(v.Elems, elem)
}

// elemEqual compares two elements: identity for objects, structural
// equality with Integer to Real widening for primitives.
func elemEqual(a, b any) bool {
	switch x := a.(type) {
	case *model.ObjectInstance:
		y, ok := b.(*model.ObjectInstance)
		return ok && x == y
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
		return false
	default:
		return a == b
	}
}

// valueEqual compares two collections element-wise in order.
func valueEqual(a, b Value) bool {
	if len(a.Elems) != len(b.Elems) {
		return false
	}
	for i, e := range a.Elems {
		if !elemEqual(e, b.Elems[i]) {
			return false
		}
	}
	return true
}

// String renders the value for violation messages.
func (v Value) String() string {
	if len(v.Elems) == 1 {
		return renderElem(v.Elems[0])
	}
	var sb strings.Builder
	sb.WriteString("{")
	for i, e := range v.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(renderElem(e))
	}
	sb.WriteString("}")
	return sb.String()
}

func renderElem(e any) string {
	switch x := e.(type) {
	case *model.ObjectInstance:
		return x.Label()
	case string:
		return fmt.Sprintf("'%s'", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
