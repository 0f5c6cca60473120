package sema

import "github.com/vitruv-tools/oclsharp/pkg/token"

// BindingKind indicates where a binding was declared.
type BindingKind int

const (
	// BindSelf is the implicit self binding of the root scope.
	BindSelf BindingKind = iota
	// BindLet is a let-expression binding.
	BindLet
	// BindIterator is an iterator lambda parameter. Its type is pending
	// until pass two resolves the receiver's element type.
	BindIterator
)

// Binding represents one declared variable. The Type field is filled in
// by pass two and read by the evaluator; passes one and three share the
// binding by pointer.
type Binding struct {
	Name string
	Kind BindingKind
	Pos  token.Position // declaration site
	Type Type           // inferred by pass two
}

// Scope tracks the variables visible at one point of a constraint body.
// A let block and an iterator lambda each open a nested scope; lookup is
// innermost-first through the parent chain. The parent reference is for
// lookup only, the child does not own it.
type Scope struct {
	parent   *Scope
	bindings map[string]*Binding
}

// NewScope creates a root scope.
func NewScope() *Scope {
	return &Scope{bindings: make(map[string]*Binding)}
}

// Child creates a nested scope.
func (s *Scope) Child() *Scope {
	return &Scope{
		parent:   s,
		bindings: make(map[string]*Binding),
	}
}

// Declare adds a binding to the current scope. It returns false if the
// name is already bound in this same scope; shadowing an outer scope's
// binding is allowed.
func (s *Scope) Declare(b *Binding) bool {
	if _, exists := s.bindings[b.Name]; exists {
		return false
	}
	s.bindings[b.Name] = b
	return true
}

// Lookup finds a binding by name, innermost scope first.
func (s *Scope) Lookup(name string) (*Binding, bool) {
	if b, ok := s.bindings[name]; ok {
		return b, true
	}
	if s.parent != nil {
		return s.parent.Lookup(name)
	}
	return nil, false
}
