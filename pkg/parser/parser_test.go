package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitruv-tools/oclsharp/pkg/parser"
	"github.com/vitruv-tools/oclsharp/pkg/token"
)

// ---------- Constraint Declaration Tests ----------

func TestParseConstraintDecl(t *testing.T) {
	src := `context spaceMission::Spacecraft inv positiveMass: self.mass > 0`

	file, errs := parser.ParseFile(src, "test.ocl")
	require.Empty(t, errs)
	require.Len(t, file.Constraints, 1)

	c := file.Constraints[0]
	assert.Equal(t, "spaceMission", c.Metamodel)
	assert.Equal(t, "Spacecraft", c.Class)
	assert.Equal(t, "positiveMass", c.Name)

	bin, ok := c.Body.(*parser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.GT, bin.Op)

	nav, ok := bin.Left.(*parser.NavExpr)
	require.True(t, ok)
	assert.Equal(t, "mass", nav.Member)

	self, ok := nav.Receiver.(*parser.VarRef)
	require.True(t, ok)
	assert.Equal(t, "self", self.Name)
}

func TestParseMultipleConstraints(t *testing.T) {
	src := `
context fleet::Ship inv named: self.name <> ''
context fleet::Ship inv crewed: self.crew->size() >= 1
`
	file, errs := parser.ParseFile(src, "fleet.ocl")
	require.Empty(t, errs)
	require.Len(t, file.Constraints, 2)
	assert.Equal(t, "named", file.Constraints[0].Name)
	assert.Equal(t, "crewed", file.Constraints[1].Name)
}

func TestParseRecoversAfterBadConstraint(t *testing.T) {
	src := `
context fleet::Ship inv broken: self.mass >
context fleet::Ship inv ok: self.mass > 0
`
	file, errs := parser.ParseFile(src, "fleet.ocl")
	require.NotEmpty(t, errs)
	require.Len(t, file.Constraints, 1)
	assert.Equal(t, "ok", file.Constraints[0].Name)
}

// ---------- Expression Tests ----------

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		name string
		src  string
		op   token.TokenType // expected root operator
	}{
		{name: "implies binds loosest", src: "self.a > 0 implies self.b > 0", op: token.IMPLIES},
		{name: "or over and", src: "self.a and self.b or self.c", op: token.OR},
		{name: "comparison over arithmetic", src: "self.a + 1 < self.b * 2", op: token.LT},
		{name: "additive over multiplicative", src: "self.a + self.b * self.c", op: token.PLUS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, errs := parser.ParseExpr(tt.src)
			require.Empty(t, errs)
			bin, ok := expr.(*parser.BinaryExpr)
			require.True(t, ok)
			assert.Equal(t, tt.op, bin.Op)
		})
	}
}

func TestParseIteratorExpr(t *testing.T) {
	expr, errs := parser.ParseExpr("self.crew->select(c | c.age >= 18)")
	require.Empty(t, errs)

	it, ok := expr.(*parser.IteratorExpr)
	require.True(t, ok)
	assert.Equal(t, "select", it.Op)
	assert.Equal(t, "c", it.Var)

	body, ok := it.Body.(*parser.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.GE, body.Op)
}

func TestParseAllInstances(t *testing.T) {
	expr, errs := parser.ParseExpr("satelliteSystem::Satellite.allInstances()")
	require.Empty(t, errs)

	ai, ok := expr.(*parser.AllInstancesExpr)
	require.True(t, ok)
	assert.Equal(t, "satelliteSystem", ai.Metamodel)
	assert.Equal(t, "Satellite", ai.Class)
}

func TestParseAllInstancesChain(t *testing.T) {
	expr, errs := parser.ParseExpr("satelliteSystem::Satellite.allInstances()->collect(s | s.massKg)->sum()")
	require.Empty(t, errs)

	call, ok := expr.(*parser.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "sum", call.Name)

	it, ok := call.Receiver.(*parser.IteratorExpr)
	require.True(t, ok)
	assert.Equal(t, "collect", it.Op)

	_, ok = it.Receiver.(*parser.AllInstancesExpr)
	assert.True(t, ok)
}

func TestParseLetExpr(t *testing.T) {
	expr, errs := parser.ParseExpr("let x = self.mass, y = x + 1 in y > 0")
	require.Empty(t, errs)

	let, ok := expr.(*parser.LetExpr)
	require.True(t, ok)
	require.Len(t, let.Bindings, 2)
	assert.Equal(t, "x", let.Bindings[0].Name)
	assert.Equal(t, "y", let.Bindings[1].Name)

	_, ok = let.Body.(*parser.BinaryExpr)
	assert.True(t, ok)
}

func TestParseIfExpr(t *testing.T) {
	expr, errs := parser.ParseExpr("if self.manned then self.crew->size() > 0 else true endif")
	require.Empty(t, errs)

	ifx, ok := expr.(*parser.IfExpr)
	require.True(t, ok)
	require.NotNil(t, ifx.Cond)
	require.NotNil(t, ifx.Then)
	require.NotNil(t, ifx.Else)
}

func TestParseTypeOperations(t *testing.T) {
	expr, errs := parser.ParseExpr("self.oclIsKindOf(spaceMission::Vehicle)")
	require.Empty(t, errs)

	call, ok := expr.(*parser.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "oclIsKindOf", call.Name)
	require.Len(t, call.Args, 1)

	tr, ok := call.Args[0].(*parser.TypeRefExpr)
	require.True(t, ok)
	assert.Equal(t, "spaceMission", tr.Metamodel)
	assert.Equal(t, "Vehicle", tr.Class)
}

func TestParseLiterals(t *testing.T) {
	tests := []struct {
		src  string
		typ  parser.LiteralType
		want string
	}{
		{src: "42", typ: parser.LiteralInt, want: "42"},
		{src: "3.14", typ: parser.LiteralReal, want: "3.14"},
		{src: "1e10", typ: parser.LiteralReal, want: "1e10"},
		{src: "'hello ''world'''", typ: parser.LiteralString, want: "hello 'world'"},
		{src: "true", typ: parser.LiteralBool, want: "true"},
		{src: "null", typ: parser.LiteralNull, want: "null"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr, errs := parser.ParseExpr(tt.src)
			require.Empty(t, errs)
			lit, ok := expr.(*parser.Literal)
			require.True(t, ok)
			assert.Equal(t, tt.typ, lit.Type)
			assert.Equal(t, tt.want, lit.Value)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, errs := parser.ParseFile("context fleet::Ship inv x:\n  self.mass >", "bad.ocl")
	require.NotEmpty(t, errs)

	perr, ok := errs[0].(*parser.ParseError)
	require.True(t, ok)
	assert.Equal(t, 2, perr.Pos.Line)
}

// ---------- Lexer Tests ----------

func TestTokenizeComments(t *testing.T) {
	toks := parser.Tokenize("-- a line comment\nself /* block */ .mass")
	types := make([]token.TokenType, 0, len(toks))
	for _, tk := range toks {
		types = append(types, tk.Type)
	}
	assert.Equal(t, []token.TokenType{token.SELF, token.DOT, token.IDENT, token.EOF}, types)
}

func TestTokenizeOperators(t *testing.T) {
	toks := parser.Tokenize("-> :: <> <= >= < > = | ,")
	want := []token.TokenType{
		token.ARROW, token.DCOLON, token.NE, token.LE, token.GE,
		token.LT, token.GT, token.EQ, token.PIPE, token.COMMA, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, tk := range toks {
		assert.Equal(t, want[i], tk.Type, "token %d", i)
	}
}
