package parser

import "github.com/vitruv-tools/oclsharp/pkg/token"

// Node is the common interface for all AST nodes.
type Node interface {
	GetSpan() token.Span
}

// Expr represents an expression in a constraint body.
type Expr interface {
	Node
	exprNode()
}

// NodeInfo provides common fields for all AST nodes.
// Embed this in node types that need position tracking.
type NodeInfo struct {
	Span token.Span
}

// GetSpan returns the node's source span.
func (n *NodeInfo) GetSpan() token.Span {
	return n.Span
}

// File represents one parsed constraint source file.
type File struct {
	Filename    string
	Constraints []*ConstraintDecl
}

// ConstraintDecl represents a single invariant declaration:
//
//	context mm::Class inv name: body
type ConstraintDecl struct {
	NodeInfo
	Metamodel string // context metamodel name
	Class     string // context class name
	Name      string // invariant name
	Body      Expr
}

// ---------- Expression Types ----------

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants for OCL# literal value types.
const (
	LiteralInt LiteralType = iota
	LiteralReal
	LiteralString
	LiteralBool
	LiteralNull
)

// Literal represents a literal value.
type Literal struct {
	NodeInfo
	Type  LiteralType
	Value string
}

func (*Literal) exprNode() {}

// VarRef represents a variable reference (self, let bindings, iterator vars).
type VarRef struct {
	NodeInfo
	Name string
}

func (*VarRef) exprNode() {}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	NodeInfo
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression (not, -).
type UnaryExpr struct {
	NodeInfo
	Op   token.TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// NavExpr represents attribute or reference navigation: receiver.member.
type NavExpr struct {
	NodeInfo
	Receiver  Expr
	Member    string
	MemberPos token.Position
}

func (*NavExpr) exprNode() {}

// IteratorExpr represents an iterator operation with a lambda body:
//
//	receiver->select(x | body)
//
// Op is the source operation name (select, reject, collect, forAll, exists).
type IteratorExpr struct {
	NodeInfo
	Receiver Expr
	Op       string
	Var      string
	VarPos   token.Position
	Body     Expr
}

func (*IteratorExpr) exprNode() {}

// CallExpr represents a call of a fixed operation without a lambda:
//
//	receiver->sum()  receiver->at(2)  obj.oclIsKindOf(mm::Class)
type CallExpr struct {
	NodeInfo
	Receiver Expr
	Name     string
	NamePos  token.Position
	Args     []Expr
}

func (*CallExpr) exprNode() {}

// TypeRefExpr represents a qualified type reference: mm::Class.
// Valid only as the receiver of allInstances() or as the type
// argument of oclIsKindOf/oclIsTypeOf/oclAsType.
type TypeRefExpr struct {
	NodeInfo
	Metamodel string
	Class     string
}

func (*TypeRefExpr) exprNode() {}

// AllInstancesExpr represents mm::Class.allInstances(). The qualified
// name resolves against the session registry independent of the enclosing
// constraint's context metamodel.
type AllInstancesExpr struct {
	NodeInfo
	Metamodel string
	Class     string
}

func (*AllInstancesExpr) exprNode() {}

// LetBinding represents one binding inside a let expression.
type LetBinding struct {
	Name    string
	NamePos token.Position
	Init    Expr
}

// LetExpr represents a let expression with one or more ordered bindings:
//
//	let a = e1, b = e2 in body
type LetExpr struct {
	NodeInfo
	Bindings []*LetBinding
	Body     Expr
}

func (*LetExpr) exprNode() {}

// IfExpr represents a conditional expression: if c then t else e endif.
type IfExpr struct {
	NodeInfo
	Cond Expr
	Then Expr
	Else Expr
}

func (*IfExpr) exprNode() {}
