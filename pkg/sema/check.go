package sema

import (
	"errors"
	"fmt"

	"github.com/vitruv-tools/oclsharp/pkg/model"
	"github.com/vitruv-tools/oclsharp/pkg/parser"
	"github.com/vitruv-tools/oclsharp/pkg/token"
)

// Checked is the fully analyzed form of one constraint, the read-only
// input contract of the evaluator. Types and Ops are keyed by AST node;
// the evaluator never re-resolves a name or an operator.
type Checked struct {
	Decl    *parser.ConstraintDecl
	Context *model.ClassRef
	Info    *Info
	Types   map[parser.Expr]Type
	Ops     map[parser.Expr]OpKind
}

// Analyze runs both semantic passes over one constraint. The returned
// diagnostics carry every fault found; the Checked result is nil when
// the constraint must not be evaluated (unresolvable context class or
// pass-one errors) and non-nil otherwise. A non-nil result still must
// not be evaluated if the diagnostics contain errors.
func Analyze(decl *parser.ConstraintDecl, reg *model.Registry) (*Checked, []Diagnostic) {
	context, err := reg.ResolveClass(decl.Metamodel, decl.Class)
	if err != nil {
		var diags []Diagnostic
		diags = errorf(diags, registryCode(err), decl.GetSpan().Start,
			"context class %s::%s: %v", decl.Metamodel, decl.Class, err)
		return nil, diags
	}

	info, diags := Resolve(decl, context)
	if HasErrors(diags) {
		return nil, diags
	}

	c := &checker{
		reg:   reg,
		info:  info,
		types: make(map[parser.Expr]Type),
		ops:   make(map[parser.Expr]OpKind),
		diags: diags,
	}
	c.check(decl.Body)

	return &Checked{
		Decl:    decl,
		Context: context,
		Info:    info,
		Types:   c.types,
		Ops:     c.ops,
	}, c.diags
}

// registryCode maps a registry resolution error to its diagnostic code.
func registryCode(err error) Code {
	if errors.Is(err, model.ErrMetamodelNotFound) {
		return CodeUnresolvedMetamodel
	}
	return CodeUnresolvedClass
}

type checker struct {
	reg   *model.Registry
	info  *Info
	types map[parser.Expr]Type
	ops   map[parser.Expr]OpKind
	diags []Diagnostic
}

func (c *checker) errorf(code Code, pos token.Position, format string, args ...any) Type {
	c.diags = errorf(c.diags, code, pos, format, args...)
	return invalidType()
}

// check assigns a type annotation to the node and returns it. A failing
// subexpression yields the Invalid sentinel and checking continues over
// siblings, so one pass reports every diagnostic in the constraint.
func (c *checker) check(e parser.Expr) Type {
	t := c.typeOf(e)
	c.types[e] = t
	return t
}

func (c *checker) typeOf(e parser.Expr) Type {
	switch n := e.(type) {
	case *parser.Literal:
		return literalType(n)

	case *parser.VarRef:
		b, ok := c.info.Uses[n]
		if !ok {
			return invalidType()
		}
		return b.Type

	case *parser.LetExpr:
		for _, lb := range n.Bindings {
			t := c.check(lb.Init)
			if b, ok := c.info.LetVars[lb]; ok {
				b.Type = t
			}
		}
		return c.check(n.Body)

	case *parser.BinaryExpr:
		return c.binary(n)

	case *parser.UnaryExpr:
		return c.unary(n)

	case *parser.NavExpr:
		return c.navigation(n)

	case *parser.IteratorExpr:
		return c.iterator(n)

	case *parser.CallExpr:
		return c.call(n)

	case *parser.IfExpr:
		return c.conditional(n)

	case *parser.AllInstancesExpr:
		ref, err := c.reg.ResolveClass(n.Metamodel, n.Class)
		if err != nil {
			return c.errorf(registryCode(err), n.GetSpan().Start,
				"%s::%s: %v", n.Metamodel, n.Class, err)
		}
		return Type{Base: BaseClass, Class: ref, Kind: KindOrderedSet, Many: true}

	case *parser.TypeRefExpr:
		return c.errorf(CodeTypeMismatch, n.GetSpan().Start,
			"type reference %s::%s is only valid with allInstances() or as a type argument", n.Metamodel, n.Class)

	default:
		return invalidType()
	}
}

func literalType(n *parser.Literal) Type {
	switch n.Type {
	case parser.LiteralInt:
		return integerType()
	case parser.LiteralReal:
		return realType()
	case parser.LiteralString:
		return stringType()
	case parser.LiteralBool:
		return booleanType()
	case parser.LiteralNull:
		return unresolvedType()
	default:
		return invalidType()
	}
}

// requireSingleton enforces the singleton-required operand policy for
// scalar operators: a statically multi-valued operand is a type error,
// never an implicit element-wise extension.
func (c *checker) requireSingleton(t Type, pos token.Position, what string) bool {
	if t.IsInvalid() {
		return false
	}
	if t.Many {
		c.errorf(CodeTypeMismatch, pos,
			"%s requires a single-valued operand, got %s", what, t)
		return false
	}
	return true
}

func (c *checker) binary(n *parser.BinaryExpr) Type {
	left := c.check(n.Left)
	right := c.check(n.Right)
	if left.IsInvalid() || right.IsInvalid() {
		return invalidType()
	}

	pos := n.GetSpan().Start
	opName := n.Op.String()
	if !c.requireSingleton(left, pos, fmt.Sprintf("operator %s", opName)) ||
		!c.requireSingleton(right, pos, fmt.Sprintf("operator %s", opName)) {
		return invalidType()
	}

	wild := left.Base == BaseUnresolved || right.Base == BaseUnresolved

	switch n.Op {
	case token.AND, token.OR, token.IMPLIES:
		if !wild && (left.Base != BaseBoolean || right.Base != BaseBoolean) {
			return c.errorf(CodeTypeMismatch, pos,
				"operator %s requires Boolean operands, got %s and %s", opName, left, right)
		}
		return booleanType()

	case token.EQ, token.NE:
		if !wild && !sameElement(left, right) && !promotable(left, right) {
			return c.errorf(CodeTypeMismatch, pos,
				"cannot compare %s with %s", left, right)
		}
		return booleanType()

	case token.LT, token.GT, token.LE, token.GE:
		ordered := promotable(left, right) ||
			(left.Base == BaseString && right.Base == BaseString)
		if !wild && !ordered {
			return c.errorf(CodeTypeMismatch, pos,
				"operator %s requires numeric or String operands, got %s and %s", opName, left, right)
		}
		return booleanType()

	case token.PLUS:
		if left.Base == BaseString && right.Base == BaseString {
			return stringType()
		}
		fallthrough

	case token.MINUS, token.STAR:
		if wild {
			return numericResult(left, right)
		}
		if !promotable(left, right) {
			return c.errorf(CodeTypeMismatch, pos,
				"operator %s requires numeric operands, got %s and %s", opName, left, right)
		}
		return numericResult(left, right)

	case token.SLASH:
		if !wild && !promotable(left, right) {
			return c.errorf(CodeTypeMismatch, pos,
				"operator / requires numeric operands, got %s and %s", left, right)
		}
		return realType()

	case token.DIV, token.MOD:
		intOK := func(t Type) bool { return t.Base == BaseInteger || t.Base == BaseUnresolved }
		if !intOK(left) || !intOK(right) {
			return c.errorf(CodeTypeMismatch, pos,
				"operator %s requires Integer operands, got %s and %s", opName, left, right)
		}
		return integerType()

	default:
		return c.errorf(CodeTypeMismatch, pos, "unsupported operator %s", opName)
	}
}

func (c *checker) unary(n *parser.UnaryExpr) Type {
	operand := c.check(n.Expr)
	if operand.IsInvalid() {
		return invalidType()
	}
	pos := n.GetSpan().Start

	switch n.Op {
	case token.NOT:
		if !c.requireSingleton(operand, pos, "operator not") {
			return invalidType()
		}
		if operand.Base != BaseBoolean && operand.Base != BaseUnresolved {
			return c.errorf(CodeTypeMismatch, pos,
				"operator not requires a Boolean operand, got %s", operand)
		}
		return booleanType()

	case token.MINUS:
		if !c.requireSingleton(operand, pos, "unary -") {
			return invalidType()
		}
		if !operand.IsNumeric() && operand.Base != BaseUnresolved {
			return c.errorf(CodeTypeMismatch, pos,
				"unary - requires a numeric operand, got %s", operand)
		}
		if operand.Base == BaseReal {
			return realType()
		}
		return integerType()

	default:
		return invalidType()
	}
}

// navigation types obj.member against the receiver's class graph.
// Attributes shadow references of the same name; both resolve through
// the supertype chain with the nearest definition winning. The result
// multiplicity is many if either the source or the reference is many;
// multi-valued navigation flattens one level and never nests. Navigating
// from a many receiver is implicit collect and yields a Bag.
func (c *checker) navigation(n *parser.NavExpr) Type {
	recv := c.check(n.Receiver)
	if recv.IsInvalid() {
		return invalidType()
	}
	if recv.Base == BaseUnresolved {
		// Navigating from null stays null-typed and null-safe.
		return Type{Base: BaseUnresolved, Kind: recv.Kind, Many: recv.Many}
	}
	if recv.Base != BaseClass {
		return c.errorf(CodeTypeMismatch, n.MemberPos,
			"cannot navigate %q on non-object type %s", n.Member, recv)
	}

	if attrType, ok := recv.Class.LookupAttribute(n.Member); ok {
		kind := recv.Kind
		if recv.Many {
			// Navigation over a collection is implicit collect: equal
			// values from distinct objects must all survive.
			kind = KindBag
		}
		t := Type{Kind: kind, Many: recv.Many}
		switch attrType {
		case model.PrimBool:
			t.Base = BaseBoolean
		case model.PrimInt:
			t.Base = BaseInteger
		case model.PrimReal:
			t.Base = BaseReal
		case model.PrimString:
			t.Base = BaseString
		}
		return t
	}

	if ref, ok := recv.Class.LookupReference(n.Member); ok {
		kind := recv.Kind
		switch {
		case recv.Many:
			// Implicit collect again: targets shared between receiver
			// elements must not collapse.
			kind = KindBag
		case ref.Many:
			// A multi-valued reference holds ordered, distinct targets.
			kind = KindOrderedSet
		}
		return Type{
			Base:  BaseClass,
			Class: ref.Target,
			Kind:  kind,
			Many:  recv.Many || ref.Many,
		}
	}

	return c.errorf(CodeUnresolvedMember, n.MemberPos,
		"%s has no attribute or reference %q", recv.Class.QualifiedName(), n.Member)
}

func (c *checker) iterator(n *parser.IteratorExpr) Type {
	kind, ok := iteratorKinds[n.Op]
	if !ok {
		return c.errorf(CodeUnresolvedMember, n.GetSpan().Start,
			"unknown iterator operation %q", n.Op)
	}
	c.ops[n] = kind

	recv := c.check(n.Receiver)
	if recv.IsInvalid() {
		return invalidType()
	}

	// The lambda parameter's concrete type is the receiver's element type.
	if b, ok := c.info.IterVars[n]; ok {
		b.Type = Type{Base: recv.Base, Class: recv.Class, Kind: KindSequence, Many: false}
	}

	body := c.check(n.Body)
	if body.IsInvalid() {
		return invalidType()
	}
	pos := n.GetSpan().Start

	switch kind {
	case OpSelect, OpReject:
		if !boolean(body) {
			return c.errorf(CodeTypeMismatch, pos,
				"%s requires a Boolean lambda body, got %s", n.Op, body)
		}
		return recv

	case OpCollect:
		// Mapping can introduce duplicates, so collect yields a Bag.
		// A collection-valued lambda body is flattened exactly one level.
		return Type{Base: body.Base, Class: body.Class, Kind: KindBag, Many: true}

	case OpForAll, OpExists:
		if !boolean(body) {
			return c.errorf(CodeTypeMismatch, pos,
				"%s requires a Boolean lambda body, got %s", n.Op, body)
		}
		return booleanType()

	default:
		return invalidType()
	}
}

// boolean reports whether a lambda body type is acceptable as Boolean.
func boolean(t Type) bool {
	return (t.Base == BaseBoolean || t.Base == BaseUnresolved) && !t.Many
}

func (c *checker) call(n *parser.CallExpr) Type {
	kind, ok := callOps[n.Name]
	if !ok {
		return c.errorf(CodeUnresolvedMember, n.NamePos,
			"unknown operation %q", n.Name)
	}
	c.ops[n] = kind

	recv := c.check(n.Receiver)
	if recv.IsInvalid() {
		return invalidType()
	}

	switch kind {
	case OpSize:
		if !c.wantArgs(n, 0) {
			return invalidType()
		}
		return integerType()

	case OpIsEmpty, OpNotEmpty:
		if !c.wantArgs(n, 0) {
			return invalidType()
		}
		return booleanType()

	case OpFirst, OpLast:
		if !c.wantArgs(n, 0) {
			return invalidType()
		}
		return Type{Base: recv.Base, Class: recv.Class, Kind: KindSequence, Many: false}

	case OpAt:
		if !c.wantArgs(n, 1) {
			return invalidType()
		}
		idx := c.check(n.Args[0])
		if idx.IsInvalid() {
			return invalidType()
		}
		if idx.Base != BaseInteger || idx.Many {
			return c.errorf(CodeTypeMismatch, n.NamePos,
				"at requires a single Integer index, got %s", idx)
		}
		return Type{Base: recv.Base, Class: recv.Class, Kind: KindSequence, Many: false}

	case OpSum:
		if !c.wantArgs(n, 0) || !c.wantNumericElems(n, recv) {
			return invalidType()
		}
		if recv.Base == BaseReal {
			return realType()
		}
		return integerType()

	case OpAvg:
		if !c.wantArgs(n, 0) || !c.wantNumericElems(n, recv) {
			return invalidType()
		}
		return realType()

	case OpMin, OpMax:
		if !c.wantArgs(n, 0) || !c.wantNumericElems(n, recv) {
			return invalidType()
		}
		return Type{Base: recv.Base, Class: recv.Class, Kind: KindSequence, Many: false}

	case OpIsKindOf, OpIsTypeOf, OpAsType:
		return c.typeOp(n, kind, recv)

	default:
		return invalidType()
	}
}

// typeOp checks oclIsKindOf/oclIsTypeOf/oclAsType: a Class-typed operand
// and one resolvable qualified type argument.
func (c *checker) typeOp(n *parser.CallExpr, kind OpKind, recv Type) Type {
	if recv.Base != BaseClass && recv.Base != BaseUnresolved {
		return c.errorf(CodeTypeMismatch, n.NamePos,
			"%s requires an object operand, got %s", n.Name, recv)
	}
	if len(n.Args) != 1 {
		return c.errorf(CodeTypeMismatch, n.NamePos,
			"%s requires exactly one type argument", n.Name)
	}
	tr, ok := n.Args[0].(*parser.TypeRefExpr)
	if !ok {
		return c.errorf(CodeTypeMismatch, n.NamePos,
			"%s requires a qualified type argument (metamodel::Class)", n.Name)
	}
	target, err := c.reg.ResolveClass(tr.Metamodel, tr.Class)
	if err != nil {
		return c.errorf(registryCode(err), tr.GetSpan().Start,
			"%s::%s: %v", tr.Metamodel, tr.Class, err)
	}
	c.types[n.Args[0]] = classType(target)

	switch kind {
	case OpIsKindOf, OpIsTypeOf:
		if !c.requireSingleton(recv, n.NamePos, n.Name) {
			return invalidType()
		}
		return booleanType()
	default: // OpAsType
		return Type{Base: BaseClass, Class: target, Kind: recv.Kind, Many: recv.Many}
	}
}

func (c *checker) wantArgs(n *parser.CallExpr, count int) bool {
	if len(n.Args) == count {
		return true
	}
	c.errorf(CodeTypeMismatch, n.NamePos,
		"%s takes %d argument(s), got %d", n.Name, count, len(n.Args))
	return false
}

func (c *checker) wantNumericElems(n *parser.CallExpr, recv Type) bool {
	if recv.IsNumeric() || recv.Base == BaseUnresolved {
		return true
	}
	c.errorf(CodeTypeMismatch, n.NamePos,
		"%s requires numeric elements, got %s", n.Name, recv)
	return false
}

// conditional checks if/then/else: the condition must be a Boolean
// collection of static multiplicity at most one, and the branch types
// must unify.
func (c *checker) conditional(n *parser.IfExpr) Type {
	cond := c.check(n.Cond)
	thenT := c.check(n.Then)
	elseT := c.check(n.Else)

	if !cond.IsInvalid() {
		if cond.Many || (cond.Base != BaseBoolean && cond.Base != BaseUnresolved) {
			c.errorf(CodeInvalidCondition, n.Cond.GetSpan().Start,
				"if condition must be a single Boolean, got %s", cond)
		}
	}

	if thenT.IsInvalid() || elseT.IsInvalid() {
		return invalidType()
	}
	return c.unifyBranches(n, thenT, elseT)
}

// unifyBranches merges the types of the two branches of a conditional.
func (c *checker) unifyBranches(n *parser.IfExpr, a, b Type) Type {
	many := a.Many || b.Many
	switch {
	case a.Base == BaseUnresolved:
		b.Many = many
		return b
	case b.Base == BaseUnresolved:
		a.Many = many
		return a
	case sameElement(a, b):
		a.Many = many
		return a
	case promotable(a, b):
		t := numericResult(a, b)
		t.Many = many
		return t
	case a.Base == BaseClass && b.Base == BaseClass:
		if a.Class.ConformsTo(b.Class) {
			b.Many = many
			return b
		}
		if b.Class.ConformsTo(a.Class) {
			a.Many = many
			return a
		}
	}
	return c.errorf(CodeTypeMismatch, n.GetSpan().Start,
		"if branches have incompatible types %s and %s", a, b)
}
