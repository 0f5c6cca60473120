// Package eval walks type-checked constraint bodies over loaded object
// models. Every expression yields a collection Value; the null-safety
// contract turns out-of-range access and empty aggregates into empty
// results instead of failures.
package eval

import (
	"fmt"
	"strconv"

	"github.com/vitruv-tools/oclsharp/pkg/model"
	"github.com/vitruv-tools/oclsharp/pkg/parser"
	"github.com/vitruv-tools/oclsharp/pkg/sema"
	"github.com/vitruv-tools/oclsharp/pkg/token"
)

// Evaluator runs one analyzed constraint against the instances of a
// registry. The registry must be fully loaded and is treated as
// read-only, so one Evaluator per constraint can run concurrently with
// others over the same registry.
type Evaluator struct {
	reg     *model.Registry
	checked *sema.Checked
}

// New creates an Evaluator for an analyzed constraint. The Checked value
// must carry no error diagnostics.
func New(reg *model.Registry, checked *sema.Checked) *Evaluator {
	return &Evaluator{reg: reg, checked: checked}
}

// InstanceResult is the outcome of evaluating the constraint body for
// one context object. Exactly one of Satisfied, Message, or Err applies:
// a satisfied instance has Satisfied true, a violated one carries a
// shape-specific Message, and a runtime failure carries Err.
type InstanceResult struct {
	Object     *model.ObjectInstance
	SourceFile string
	Satisfied  bool
	Message    string
	Err        *EvalError
}

type env map[*sema.Binding]Value

// Evaluate runs the constraint body over every loaded context object
// whose runtime class conforms to the context class, in load order. A
// runtime error on one instance is recorded in its slot and evaluation
// of the remaining instances continues.
func (ev *Evaluator) Evaluate() []InstanceResult {
	var results []InstanceResult
	for _, obj := range ev.reg.ContextObjects() {
		if !obj.Class.ConformsTo(ev.checked.Context) {
			continue
		}
		res := InstanceResult{Object: obj, SourceFile: ev.reg.SourceFile(obj)}
		v, err := ev.eval(ev.checked.Decl.Body, env{ev.checked.Info.Self: objectValue(obj)})
		if err != nil {
			res.Err = err
		} else {
			res.Satisfied, res.Message = verdict(v)
		}
		results = append(results, res)
	}
	return results
}

// EvalObject evaluates the constraint body for a single object, returning
// the raw body value instead of a verdict. Used by the REPL.
func (ev *Evaluator) EvalObject(obj *model.ObjectInstance) (Value, *EvalError) {
	return ev.eval(ev.checked.Decl.Body, env{ev.checked.Info.Self: objectValue(obj)})
}

// verdict maps the body value to satisfied or a violation message. Only
// the exact one-element collection {true} satisfies.
func verdict(v Value) (bool, string) {
	switch {
	case v.IsTrue():
		return true, ""
	case v.IsEmpty():
		return false, "constraint body evaluated to an empty collection"
	case v.Len() > 1:
		return false, fmt.Sprintf("constraint body evaluated to a %d-element collection %s", v.Len(), v)
	default:
		if b, ok := v.Elems[0].(bool); ok && !b {
			return false, "constraint body evaluated to false"
		}
		return false, fmt.Sprintf("constraint body evaluated to non-Boolean value %s", v)
	}
}

func (ev *Evaluator) eval(e parser.Expr, vars env) (Value, *EvalError) {
	switch n := e.(type) {
	case *parser.Literal:
		return ev.literal(n)

	case *parser.VarRef:
		b, ok := ev.checked.Info.Uses[n]
		if !ok {
			return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
				"variable %q has no resolved binding", n.Name)
		}
		v, ok := vars[b]
		if !ok {
			return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
				"variable %q has no bound value", n.Name)
		}
		return v, nil

	case *parser.LetExpr:
		for _, lb := range n.Bindings {
			v, err := ev.eval(lb.Init, vars)
			if err != nil {
				return Value{}, err
			}
			if b, ok := ev.checked.Info.LetVars[lb]; ok {
				vars[b] = v
			}
		}
		return ev.eval(n.Body, vars)

	case *parser.UnaryExpr:
		return ev.unary(n, vars)

	case *parser.BinaryExpr:
		return ev.binary(n, vars)

	case *parser.NavExpr:
		return ev.navigate(n, vars)

	case *parser.IteratorExpr:
		return ev.iterate(n, vars)

	case *parser.CallExpr:
		return ev.call(n, vars)

	case *parser.IfExpr:
		return ev.conditional(n, vars)

	case *parser.AllInstancesExpr:
		t, ok := ev.checked.Types[n]
		if !ok || t.Class == nil {
			return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
				"%s::%s.allInstances() has no resolved class", n.Metamodel, n.Class)
		}
		out := Value{Kind: sema.KindOrderedSet}
		for _, obj := range ev.reg.AllInstances(t.Class) {
			out.Add(obj)
		}
		return out, nil

	default:
		return Value{}, newError(InternalEvaluationError, e.GetSpan().Start,
			"unexpected expression node %T", e)
	}
}

func (ev *Evaluator) literal(n *parser.Literal) (Value, *EvalError) {
	switch n.Type {
	case parser.LiteralInt:
		i, err := strconv.ParseInt(n.Value, 10, 64)
		if err != nil {
			return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
				"malformed integer literal %q", n.Value)
		}
		return singleton(i), nil
	case parser.LiteralReal:
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
				"malformed real literal %q", n.Value)
		}
		return singleton(f), nil
	case parser.LiteralString:
		return singleton(n.Value), nil
	case parser.LiteralBool:
		return boolValue(n.Value == "true"), nil
	case parser.LiteralNull:
		return emptyValue(sema.KindSequence), nil
	default:
		return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
			"unknown literal kind %d", n.Type)
	}
}

func (ev *Evaluator) unary(n *parser.UnaryExpr, vars env) (Value, *EvalError) {
	operand, err := ev.eval(n.Expr, vars)
	if err != nil {
		return Value{}, err
	}
	if operand.IsEmpty() {
		return emptyValue(sema.KindSequence), nil
	}
	elem, ok := operand.Single()
	if !ok {
		return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
			"operator %s over %d-element collection", n.Op, operand.Len())
	}

	switch n.Op {
	case token.NOT:
		b, ok := elem.(bool)
		if !ok {
			return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
				"operator not over non-Boolean value %s", operand)
		}
		return boolValue(!b), nil
	case token.MINUS:
		switch x := elem.(type) {
		case int64:
			return singleton(-x), nil
		case float64:
			return singleton(-x), nil
		}
	}
	return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
		"operator %s over value %s", n.Op, operand)
}

func (ev *Evaluator) binary(n *parser.BinaryExpr, vars env) (Value, *EvalError) {
	switch n.Op {
	case token.AND, token.OR, token.IMPLIES:
		return ev.logical(n, vars)
	}

	left, err := ev.eval(n.Left, vars)
	if err != nil {
		return Value{}, err
	}
	right, err := ev.eval(n.Right, vars)
	if err != nil {
		return Value{}, err
	}

	switch n.Op {
	case token.EQ:
		return boolValue(valueEqual(left, right)), nil
	case token.NE:
		return boolValue(!valueEqual(left, right)), nil
	}

	// Remaining operators are empty-propagating scalars.
	if left.IsEmpty() || right.IsEmpty() {
		return emptyValue(sema.KindSequence), nil
	}
	le, lok := left.Single()
	re, rok := right.Single()
	if !lok || !rok {
		return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
			"operator %s over multi-element operand", n.Op)
	}

	switch n.Op {
	case token.LT, token.GT, token.LE, token.GE:
		return ev.compare(n, le, re)
	default:
		return ev.arithmetic(n, le, re)
	}
}

// logical evaluates and/or/implies with short-circuiting. A determining
// left operand skips the right entirely; empty operands propagate so a
// null-valued condition surfaces as a violation rather than a crash.
func (ev *Evaluator) logical(n *parser.BinaryExpr, vars env) (Value, *EvalError) {
	left, err := ev.eval(n.Left, vars)
	if err != nil {
		return Value{}, err
	}
	lb, lok := boolOperand(left)
	if left.IsEmpty() {
		return emptyValue(sema.KindSequence), nil
	}
	if !lok {
		return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
			"operator %s over non-Boolean operand %s", n.Op, left)
	}

	switch n.Op {
	case token.AND:
		if !lb {
			return boolValue(false), nil
		}
	case token.OR:
		if lb {
			return boolValue(true), nil
		}
	case token.IMPLIES:
		if !lb {
			return boolValue(true), nil
		}
	}

	right, err := ev.eval(n.Right, vars)
	if err != nil {
		return Value{}, err
	}
	if right.IsEmpty() {
		return emptyValue(sema.KindSequence), nil
	}
	rb, rok := boolOperand(right)
	if !rok {
		return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
			"operator %s over non-Boolean operand %s", n.Op, right)
	}
	return boolValue(rb), nil
}

func boolOperand(v Value) (bool, bool) {
	e, ok := v.Single()
	if !ok {
		return false, false
	}
	b, ok := e.(bool)
	return b, ok
}

func (ev *Evaluator) compare(n *parser.BinaryExpr, le, re any) (Value, *EvalError) {
	var cmp int
	ls, lstr := le.(string)
	rs, rstr := re.(string)
	switch {
	case lstr && rstr:
		switch {
		case ls < rs:
			cmp = -1
		case ls > rs:
			cmp = 1
		}
	default:
		lf, lok := numericOperand(le)
		rf, rok := numericOperand(re)
		if !lok || !rok {
			return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
				"operator %s over non-ordered operands", n.Op)
		}
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	}

	switch n.Op {
	case token.LT:
		return boolValue(cmp < 0), nil
	case token.GT:
		return boolValue(cmp > 0), nil
	case token.LE:
		return boolValue(cmp <= 0), nil
	default:
		return boolValue(cmp >= 0), nil
	}
}

func numericOperand(e any) (float64, bool) {
	switch x := e.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func (ev *Evaluator) arithmetic(n *parser.BinaryExpr, le, re any) (Value, *EvalError) {
	pos := n.GetSpan().Start

	if n.Op == token.PLUS {
		if ls, ok := le.(string); ok {
			rs, ok := re.(string)
			if !ok {
				return Value{}, newError(InternalEvaluationError, pos,
					"operator + over string and non-string")
			}
			return singleton(ls + rs), nil
		}
	}

	li, lInt := le.(int64)
	ri, rInt := re.(int64)

	switch n.Op {
	case token.DIV, token.MOD:
		if !lInt || !rInt {
			return Value{}, newError(InternalEvaluationError, pos,
				"operator %s over non-Integer operands", n.Op)
		}
		if ri == 0 {
			return Value{}, newError(ArithmeticError, pos,
				"%s by zero", n.Op)
		}
		if n.Op == token.DIV {
			return singleton(li / ri), nil
		}
		return singleton(li % ri), nil
	}

	lf, lok := numericOperand(le)
	rf, rok := numericOperand(re)
	if !lok || !rok {
		return Value{}, newError(InternalEvaluationError, pos,
			"operator %s over non-numeric operands", n.Op)
	}

	if n.Op == token.SLASH {
		if rf == 0 {
			return Value{}, newError(ArithmeticError, pos, "division by zero")
		}
		return singleton(lf / rf), nil
	}

	if lInt && rInt {
		switch n.Op {
		case token.PLUS:
			return singleton(li + ri), nil
		case token.MINUS:
			return singleton(li - ri), nil
		case token.STAR:
			return singleton(li * ri), nil
		}
	}
	switch n.Op {
	case token.PLUS:
		return singleton(lf + rf), nil
	case token.MINUS:
		return singleton(lf - rf), nil
	case token.STAR:
		return singleton(lf * rf), nil
	}
	return Value{}, newError(InternalEvaluationError, pos,
		"unexpected arithmetic operator %s", n.Op)
}

// navigate evaluates receiver.member over every element of the receiver,
// flattening multi-valued references one level. An empty receiver or an
// unset member yields an empty result.
func (ev *Evaluator) navigate(n *parser.NavExpr, vars env) (Value, *EvalError) {
	recv, err := ev.eval(n.Receiver, vars)
	if err != nil {
		return Value{}, err
	}
	t := ev.checked.Types[n]
	out := Value{Kind: t.Kind}
	for _, e := range recv.Elems {
		obj, ok := e.(*model.ObjectInstance)
		if !ok {
			return Value{}, newError(InternalEvaluationError, n.MemberPos,
				"navigation of %q on non-object value %s", n.Member, renderElem(e))
		}
		if attr, ok := obj.Attribute(n.Member); ok {
			out.Add(attr)
			continue
		}
		for _, target := range obj.Referenced(n.Member) {
			out.Add(target)
		}
	}
	return out, nil
}

func (ev *Evaluator) iterate(n *parser.IteratorExpr, vars env) (Value, *EvalError) {
	recv, err := ev.eval(n.Receiver, vars)
	if err != nil {
		return Value{}, err
	}
	kind, ok := ev.checked.Ops[n]
	if !ok {
		return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
			"iterator %q has no resolved operation", n.Op)
	}
	binding, ok := ev.checked.Info.IterVars[n]
	if !ok {
		return Value{}, newError(InternalEvaluationError, n.VarPos,
			"iterator variable %q has no resolved binding", n.Var)
	}

	body := func(elem any) (Value, *EvalError) {
		vars[binding] = singleton(elem)
		return ev.eval(n.Body, vars)
	}
	defer delete(vars, binding)

	switch kind {
	case sema.OpSelect, sema.OpReject:
		out := Value{Kind: ev.checked.Types[n].Kind}
		for _, elem := range recv.Elems {
			v, err := body(elem)
			if err != nil {
				return Value{}, err
			}
			if v.IsTrue() == (kind == sema.OpSelect) {
				out.Add(elem)
			}
		}
		return out, nil

	case sema.OpCollect:
		out := Value{Kind: ev.checked.Types[n].Kind}
		for _, elem := range recv.Elems {
			v, err := body(elem)
			if err != nil {
				return Value{}, err
			}
			for _, r := range v.Elems {
				out.Add(r)
			}
		}
		return out, nil

	case sema.OpForAll:
		for _, elem := range recv.Elems {
			v, err := body(elem)
			if err != nil {
				return Value{}, err
			}
			if !v.IsTrue() {
				return boolValue(false), nil
			}
		}
		return boolValue(true), nil

	case sema.OpExists:
		for _, elem := range recv.Elems {
			v, err := body(elem)
			if err != nil {
				return Value{}, err
			}
			if v.IsTrue() {
				return boolValue(true), nil
			}
		}
		return boolValue(false), nil

	default:
		return Value{}, newError(InternalEvaluationError, n.GetSpan().Start,
			"unexpected iterator operation %q", n.Op)
	}
}

func (ev *Evaluator) call(n *parser.CallExpr, vars env) (Value, *EvalError) {
	recv, err := ev.eval(n.Receiver, vars)
	if err != nil {
		return Value{}, err
	}
	kind, ok := ev.checked.Ops[n]
	if !ok {
		return Value{}, newError(InternalEvaluationError, n.NamePos,
			"operation %q has no resolved kind", n.Name)
	}

	switch kind {
	case sema.OpSize:
		return singleton(int64(recv.Len())), nil

	case sema.OpIsEmpty:
		return boolValue(recv.IsEmpty()), nil

	case sema.OpNotEmpty:
		return boolValue(!recv.IsEmpty()), nil

	case sema.OpFirst:
		if recv.IsEmpty() {
			return emptyValue(sema.KindSequence), nil
		}
		return singleton(recv.Elems[0]), nil

	case sema.OpLast:
		if recv.IsEmpty() {
			return emptyValue(sema.KindSequence), nil
		}
		return singleton(recv.Elems[recv.Len()-1]), nil

	case sema.OpAt:
		return ev.at(n, recv, vars)

	case sema.OpSum, sema.OpAvg, sema.OpMin, sema.OpMax:
		return ev.aggregate(n, kind, recv)

	case sema.OpIsKindOf, sema.OpIsTypeOf, sema.OpAsType:
		return ev.typeOp(n, kind, recv)

	default:
		return Value{}, newError(InternalEvaluationError, n.NamePos,
			"unexpected operation %q", n.Name)
	}
}

// at returns the 1-based element, an empty collection when the index is
// out of range or itself empty.
func (ev *Evaluator) at(n *parser.CallExpr, recv Value, vars env) (Value, *EvalError) {
	arg, err := ev.eval(n.Args[0], vars)
	if err != nil {
		return Value{}, err
	}
	if arg.IsEmpty() {
		return emptyValue(sema.KindSequence), nil
	}
	e, ok := arg.Single()
	if !ok {
		return Value{}, newError(InternalEvaluationError, n.NamePos,
			"at index is a %d-element collection", arg.Len())
	}
	idx, ok := e.(int64)
	if !ok {
		return Value{}, newError(InternalEvaluationError, n.NamePos,
			"at index is non-Integer value %s", renderElem(e))
	}
	if idx < 1 || idx > int64(recv.Len()) {
		return emptyValue(sema.KindSequence), nil
	}
	return singleton(recv.Elems[idx-1]), nil
}

// aggregate computes sum/avg/min/max over numeric elements. Sum of an
// empty collection is zero; avg, min, and max of an empty collection are
// the empty collection.
func (ev *Evaluator) aggregate(n *parser.CallExpr, kind sema.OpKind, recv Value) (Value, *EvalError) {
	if recv.IsEmpty() {
		if kind != sema.OpSum {
			return emptyValue(sema.KindSequence), nil
		}
		if ev.checked.Types[n].Base == sema.BaseReal {
			return singleton(float64(0)), nil
		}
		return singleton(int64(0)), nil
	}

	allInt := true
	var sumF float64
	var sumI int64
	minIdx, maxIdx := 0, 0
	minV, maxV := 0.0, 0.0
	for i, e := range recv.Elems {
		f, ok := numericOperand(e)
		if !ok {
			return Value{}, newError(InternalEvaluationError, n.NamePos,
				"%s over non-numeric element %s", n.Name, renderElem(e))
		}
		if _, isInt := e.(int64); !isInt {
			allInt = false
		}
		sumF += f
		if i == 0 || f < minV {
			minV, minIdx = f, i
		}
		if i == 0 || f > maxV {
			maxV, maxIdx = f, i
		}
		if v, isInt := e.(int64); isInt {
			sumI += v
		}
	}

	switch kind {
	case sema.OpSum:
		if allInt {
			return singleton(sumI), nil
		}
		return singleton(sumF), nil
	case sema.OpAvg:
		return singleton(sumF / float64(recv.Len())), nil
	case sema.OpMin:
		return singleton(recv.Elems[minIdx]), nil
	default:
		return singleton(recv.Elems[maxIdx]), nil
	}
}

// typeOp evaluates oclIsKindOf/oclIsTypeOf/oclAsType against the class
// resolved in pass two. Empty operands stay empty; oclAsType filters by
// conformance and yields an empty result on failure.
func (ev *Evaluator) typeOp(n *parser.CallExpr, kind sema.OpKind, recv Value) (Value, *EvalError) {
	target := ev.checked.Types[n.Args[0]].Class
	if target == nil {
		return Value{}, newError(InternalEvaluationError, n.NamePos,
			"%s has no resolved type argument", n.Name)
	}

	if kind == sema.OpAsType {
		out := Value{Kind: recv.Kind}
		for _, e := range recv.Elems {
			obj, ok := e.(*model.ObjectInstance)
			if !ok {
				return Value{}, newError(InternalEvaluationError, n.NamePos,
					"%s over non-object value %s", n.Name, renderElem(e))
			}
			if obj.Class.ConformsTo(target) {
				out.Add(obj)
			}
		}
		return out, nil
	}

	if recv.IsEmpty() {
		return emptyValue(sema.KindSequence), nil
	}
	e, ok := recv.Single()
	if !ok {
		return Value{}, newError(InternalEvaluationError, n.NamePos,
			"%s over %d-element collection", n.Name, recv.Len())
	}
	obj, ok := e.(*model.ObjectInstance)
	if !ok {
		return Value{}, newError(InternalEvaluationError, n.NamePos,
			"%s over non-object value %s", n.Name, renderElem(e))
	}
	if kind == sema.OpIsKindOf {
		return boolValue(obj.Class.ConformsTo(target)), nil
	}
	return boolValue(obj.Class == target), nil
}

func (ev *Evaluator) conditional(n *parser.IfExpr, vars env) (Value, *EvalError) {
	cond, err := ev.eval(n.Cond, vars)
	if err != nil {
		return Value{}, err
	}
	if cond.IsEmpty() {
		return Value{}, newError(InvalidConditionError, n.Cond.GetSpan().Start,
			"if condition evaluated to an empty collection")
	}
	b, ok := boolOperand(cond)
	if !ok {
		return Value{}, newError(InvalidConditionError, n.Cond.GetSpan().Start,
			"if condition evaluated to %s, expected a single Boolean", cond)
	}
	if b {
		return ev.eval(n.Then, vars)
	}
	return ev.eval(n.Else, vars)
}
