package sema

import (
	"github.com/vitruv-tools/oclsharp/pkg/model"
	"github.com/vitruv-tools/oclsharp/pkg/parser"
)

// Info holds the results of pass one: every identifier bound to its
// declaration site. Pass two fills in the binding types; the evaluator
// reads both.
type Info struct {
	Self     *Binding
	Uses     map[*parser.VarRef]*Binding
	IterVars map[*parser.IteratorExpr]*Binding
	LetVars  map[*parser.LetBinding]*Binding
}

// Resolve runs pass one over a constraint body. The root scope binds
// self to the already-resolved context class. Diagnostics are collected;
// resolution continues past faults so one pass reports them all.
func Resolve(decl *parser.ConstraintDecl, context *model.ClassRef) (*Info, []Diagnostic) {
	r := &resolver{
		info: &Info{
			Uses:     make(map[*parser.VarRef]*Binding),
			IterVars: make(map[*parser.IteratorExpr]*Binding),
			LetVars:  make(map[*parser.LetBinding]*Binding),
		},
	}

	root := NewScope()
	self := &Binding{
		Name: "self",
		Kind: BindSelf,
		Pos:  decl.GetSpan().Start,
		Type: classType(context),
	}
	root.Declare(self)
	r.info.Self = self

	r.expr(decl.Body, root)
	return r.info, r.diags
}

type resolver struct {
	info  *Info
	diags []Diagnostic
}

func (r *resolver) expr(e parser.Expr, s *Scope) {
	switch n := e.(type) {
	case *parser.VarRef:
		b, ok := s.Lookup(n.Name)
		if !ok {
			r.diags = errorf(r.diags, CodeUnboundVariable, n.GetSpan().Start,
				"variable %q is not declared in any enclosing scope", n.Name)
			return
		}
		r.info.Uses[n] = b

	case *parser.LetExpr:
		// One nested scope per let block. Each initializer may reference
		// only bindings declared earlier in the same block, so the
		// initializer is resolved before its own name is declared.
		child := s.Child()
		for _, lb := range n.Bindings {
			r.expr(lb.Init, child)
			b := &Binding{Name: lb.Name, Kind: BindLet, Pos: lb.NamePos}
			if !child.Declare(b) {
				r.diags = errorf(r.diags, CodeDuplicateBinding, lb.NamePos,
					"variable %q is already declared in this scope", lb.Name)
				continue
			}
			r.info.LetVars[lb] = b
		}
		r.expr(n.Body, child)

	case *parser.IteratorExpr:
		r.expr(n.Receiver, s)
		// The iterator variable is a pending binding: its concrete type
		// is the receiver's element type, known only after pass two.
		child := s.Child()
		b := &Binding{Name: n.Var, Kind: BindIterator, Pos: n.VarPos}
		child.Declare(b)
		r.info.IterVars[n] = b
		r.expr(n.Body, child)

	case *parser.BinaryExpr:
		r.expr(n.Left, s)
		r.expr(n.Right, s)

	case *parser.UnaryExpr:
		r.expr(n.Expr, s)

	case *parser.NavExpr:
		r.expr(n.Receiver, s)

	case *parser.CallExpr:
		r.expr(n.Receiver, s)
		for _, arg := range n.Args {
			// Qualified type arguments are not value expressions.
			if _, ok := arg.(*parser.TypeRefExpr); ok {
				continue
			}
			r.expr(arg, s)
		}

	case *parser.IfExpr:
		r.expr(n.Cond, s)
		r.expr(n.Then, s)
		r.expr(n.Else, s)

	case *parser.Literal, *parser.TypeRefExpr, *parser.AllInstancesExpr:
		// No identifiers to resolve.
	}
}
