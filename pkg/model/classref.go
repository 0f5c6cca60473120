// Package model provides the in-memory class and object graph consumed by
// the OCL# pipeline: metamodel classes, loaded instances, and the
// session-scoped registry that resolves qualified names and instance
// queries. The registry is explicitly passed to every component that
// needs it; there is no process-wide state, so independent evaluation
// sessions never contaminate each other.
package model

import "fmt"

// PrimType represents a primitive attribute type.
type PrimType int

// Primitive attribute types supported by metamodels.
const (
	PrimBool PrimType = iota
	PrimInt
	PrimReal
	PrimString
)

// String returns the metamodel-file spelling of the primitive type.
func (t PrimType) String() string {
	switch t {
	case PrimBool:
		return "bool"
	case PrimInt:
		return "int"
	case PrimReal:
		return "real"
	case PrimString:
		return "string"
	default:
		return "unknown"
	}
}

// Reference describes a typed reference from one class to another.
type Reference struct {
	Target *ClassRef
	Many   bool
}

// ClassRef describes one metamodel class. Immutable after metamodel load.
type ClassRef struct {
	Metamodel  string
	Name       string
	Supertypes []*ClassRef // declared order
	Attributes map[string]PrimType
	References map[string]Reference
}

// QualifiedName returns the metamodel::Class form of the class name.
func (c *ClassRef) QualifiedName() string {
	return fmt.Sprintf("%s::%s", c.Metamodel, c.Name)
}

// ConformsTo returns true if c is other or a transitive subtype of other.
// The supertype graph of a malformed metamodel may contain cycles, so the
// walk carries a visited set.
func (c *ClassRef) ConformsTo(other *ClassRef) bool {
	if other == nil {
		return false
	}
	visited := make(map[*ClassRef]bool)
	stack := []*ClassRef{c}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == other {
			return true
		}
		if visited[cur] {
			continue
		}
		visited[cur] = true
		stack = append(stack, cur.Supertypes...)
	}
	return false
}

// LookupAttribute resolves an attribute on the class or its supertype
// chain. The nearest definition wins: own attributes shadow inherited
// ones, and earlier-declared supertypes shadow later ones.
func (c *ClassRef) LookupAttribute(name string) (PrimType, bool) {
	visited := make(map[*ClassRef]bool)
	queue := []*ClassRef{c}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if t, ok := cur.Attributes[name]; ok {
			return t, true
		}
		queue = append(queue, cur.Supertypes...)
	}
	return 0, false
}

// LookupReference resolves a reference on the class or its supertype
// chain, nearest definition first.
func (c *ClassRef) LookupReference(name string) (Reference, bool) {
	visited := make(map[*ClassRef]bool)
	queue := []*ClassRef{c}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if r, ok := cur.References[name]; ok {
			return r, true
		}
		queue = append(queue, cur.Supertypes...)
	}
	return Reference{}, false
}
