package sema

import (
	"fmt"

	"github.com/vitruv-tools/oclsharp/pkg/model"
)

// BaseType is the static element type of a collection.
type BaseType int

// Base element types.
const (
	// BaseInvalid is the error sentinel. It unifies with everything so a
	// failing subexpression does not cascade into spurious diagnostics on
	// its parents; a constraint containing any Invalid node after pass
	// two is a compile error and is never evaluated.
	BaseInvalid BaseType = iota
	// BaseUnresolved is the element type of null and empty literals. It
	// unifies with any expected type.
	BaseUnresolved
	BaseBoolean
	BaseInteger
	BaseReal
	BaseString
	BaseClass
)

// CollectionKind tags the runtime shape of a collection value.
type CollectionKind int

// Collection kinds. Every OCL# value is a collection; scalars and null
// are 0/1-element collections.
const (
	KindSequence CollectionKind = iota
	KindSet
	KindOrderedSet
	KindBag
)

// String returns the OCL spelling of the collection kind.
func (k CollectionKind) String() string {
	switch k {
	case KindSequence:
		return "Sequence"
	case KindSet:
		return "Set"
	case KindOrderedSet:
		return "OrderedSet"
	case KindBag:
		return "Bag"
	default:
		return "Collection"
	}
}

// Type is the static annotation pass two attaches to every AST node:
// base element type, collection kind, and static multiplicity (Many
// false means at most one element).
type Type struct {
	Base  BaseType
	Class *model.ClassRef // set iff Base == BaseClass
	Kind  CollectionKind
	Many  bool
}

// Singleton constructors for the primitive types.
func booleanType() Type { return Type{Base: BaseBoolean, Kind: KindSequence} }
func integerType() Type { return Type{Base: BaseInteger, Kind: KindSequence} }
func realType() Type    { return Type{Base: BaseReal, Kind: KindSequence} }
func stringType() Type  { return Type{Base: BaseString, Kind: KindSequence} }

// invalidType is the error sentinel annotation.
func invalidType() Type { return Type{Base: BaseInvalid, Kind: KindSequence} }

// unresolvedType is the annotation of null/empty literals.
func unresolvedType() Type { return Type{Base: BaseUnresolved, Kind: KindSequence} }

// classType returns a singleton annotation for an object type.
func classType(c *model.ClassRef) Type {
	return Type{Base: BaseClass, Class: c, Kind: KindSequence}
}

// IsInvalid returns true for the error sentinel.
func (t Type) IsInvalid() bool { return t.Base == BaseInvalid }

// IsNumeric returns true for Integer and Real element types.
func (t Type) IsNumeric() bool { return t.Base == BaseInteger || t.Base == BaseReal }

// String renders the annotation for diagnostics, e.g. "Set(Integer)" or
// "spaceMission::Spacecraft[*]".
func (t Type) String() string {
	var elem string
	switch t.Base {
	case BaseInvalid:
		elem = "<invalid>"
	case BaseUnresolved:
		elem = "<unresolved>"
	case BaseBoolean:
		elem = "Boolean"
	case BaseInteger:
		elem = "Integer"
	case BaseReal:
		elem = "Real"
	case BaseString:
		elem = "String"
	case BaseClass:
		elem = t.Class.QualifiedName()
	}
	if t.Many {
		return fmt.Sprintf("%s(%s)", t.Kind, elem)
	}
	return elem
}

// sameElement reports whether two annotations have the same element type.
func sameElement(a, b Type) bool {
	if a.Base != b.Base {
		return false
	}
	if a.Base == BaseClass {
		return a.Class == b.Class
	}
	return true
}

// promotable reports whether operands of element types a and b can feed a
// numeric operator, widening Integer to Real on either side.
func promotable(a, b Type) bool {
	return a.IsNumeric() && b.IsNumeric()
}

// numericResult returns the element type of a numeric operator result:
// Real if either operand is Real, Integer otherwise.
func numericResult(a, b Type) Type {
	if a.Base == BaseReal || b.Base == BaseReal {
		return realType()
	}
	return integerType()
}

// OpKind is the closed enumeration of OCL# operations. Pass two resolves
// every operation name to an OpKind carried on the AST node; the
// evaluator dispatches on the enum and never re-parses the name.
type OpKind int

// Operation kinds.
const (
	OpInvalid OpKind = iota

	// Iterator operations
	OpSelect
	OpReject
	OpCollect
	OpForAll
	OpExists

	// Collection queries
	OpSize
	OpIsEmpty
	OpNotEmpty
	OpFirst
	OpLast
	OpAt

	// Numeric aggregates
	OpSum
	OpAvg
	OpMin
	OpMax

	// Type operations
	OpIsKindOf
	OpIsTypeOf
	OpAsType
)

// callOps maps source operation names to their kinds. Iterator operations
// are recognised syntactically by the parser and resolved separately.
var callOps = map[string]OpKind{
	"size":        OpSize,
	"isEmpty":     OpIsEmpty,
	"notEmpty":    OpNotEmpty,
	"first":       OpFirst,
	"last":        OpLast,
	"at":          OpAt,
	"sum":         OpSum,
	"avg":         OpAvg,
	"min":         OpMin,
	"max":         OpMax,
	"oclIsKindOf": OpIsKindOf,
	"oclIsTypeOf": OpIsTypeOf,
	"oclAsType":   OpAsType,
}

// iteratorKinds maps iterator operation names to their kinds.
var iteratorKinds = map[string]OpKind{
	"select":  OpSelect,
	"reject":  OpReject,
	"collect": OpCollect,
	"forAll":  OpForAll,
	"exists":  OpExists,
}
