package parser

import (
	"github.com/vitruv-tools/oclsharp/pkg/token"
)

// Expression precedence parsing using a Pratt parser.
//
// Precedence levels (lowest to highest):
//
//	PrecedenceNone     = 0
//	PrecedenceImplies  = 1  (implies)
//	PrecedenceOr       = 2  (or)
//	PrecedenceAnd      = 3  (and)
//	PrecedenceCompare  = 4  (=, <>, <, >, <=, >=)
//	PrecedenceAdditive = 5  (+, -)
//	PrecedenceMultiply = 6  (*, /, div, mod)
//	PrecedenceUnary    = 7  (-, not)
//
// Navigation (.) and collection operations (->) bind tighter than any
// operator and are handled in the postfix loop in parser_primary.go.
const (
	PrecedenceNone = iota
	PrecedenceImplies
	PrecedenceOr
	PrecedenceAnd
	PrecedenceCompare
	PrecedenceAdditive
	PrecedenceMultiply
	PrecedenceUnary
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(PrecedenceNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := infixPrecedence(p.token.Type)
		if prec < minPrecedence {
			break
		}

		op := p.token.Type
		p.nextToken()

		// Binary operators are left-associative except implies,
		// which associates to the right per OCL convention.
		nextMin := prec + 1
		if op == token.IMPLIES {
			nextMin = prec
		}

		right := p.parseExpressionWithPrecedence(nextMin)
		if right == nil {
			return nil
		}

		left = &BinaryExpr{
			NodeInfo: NodeInfo{Span: token.Span{Start: left.GetSpan().Start, End: right.GetSpan().End}},
			Left:     left,
			Op:       op,
			Right:    right,
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case token.NOT:
		start := p.token.Pos
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceUnary)
		if expr == nil {
			return nil
		}
		return &UnaryExpr{
			NodeInfo: NodeInfo{Span: token.Span{Start: start, End: expr.GetSpan().End}},
			Op:       token.NOT,
			Expr:     expr,
		}

	case token.MINUS:
		start := p.token.Pos
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceUnary)
		if expr == nil {
			return nil
		}
		return &UnaryExpr{
			NodeInfo: NodeInfo{Span: token.Span{Start: start, End: expr.GetSpan().End}},
			Op:       token.MINUS,
			Expr:     expr,
		}

	default:
		return p.parsePostfix()
	}
}

// infixPrecedence returns the precedence of a token as an infix operator,
// or PrecedenceNone if the token is not an infix operator.
func infixPrecedence(t token.TokenType) int {
	switch t {
	case token.IMPLIES:
		return PrecedenceImplies
	case token.OR:
		return PrecedenceOr
	case token.AND:
		return PrecedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return PrecedenceCompare
	case token.PLUS, token.MINUS:
		return PrecedenceAdditive
	case token.STAR, token.SLASH, token.DIV, token.MOD:
		return PrecedenceMultiply
	default:
		return PrecedenceNone
	}
}
