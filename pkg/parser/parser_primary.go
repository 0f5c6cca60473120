package parser

import (
	"fmt"

	"github.com/vitruv-tools/oclsharp/pkg/token"
)

// iteratorOps are the operations that take an iterator lambda:
// receiver->op(x | body).
var iteratorOps = map[string]bool{
	"select":  true,
	"reject":  true,
	"collect": true,
	"forAll":  true,
	"exists":  true,
}

// parsePostfix parses a primary expression followed by any number of
// navigation (.) and collection operation (->) suffixes.
func (p *Parser) parsePostfix() Expr {
	left := p.parsePrimary()
	if left == nil {
		return nil
	}

	for p.check(token.DOT) || p.check(token.ARROW) {
		p.nextToken()

		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, token.IDENT))
			return nil
		}
		name := p.token.Literal
		namePos := p.token.Pos
		p.nextToken()

		if !p.check(token.LPAREN) {
			// Plain member navigation.
			left = &NavExpr{
				NodeInfo:  NodeInfo{Span: token.Span{Start: left.GetSpan().Start, End: namePos}},
				Receiver:  left,
				Member:    name,
				MemberPos: namePos,
			}
			continue
		}

		call := p.parseCallSuffix(left, name, namePos)
		if call == nil {
			return nil
		}
		left = call
	}

	return left
}

// parseCallSuffix parses the parenthesised part of an operation call on
// the given receiver. The current token is LPAREN.
func (p *Parser) parseCallSuffix(receiver Expr, name string, namePos token.Position) Expr {
	p.nextToken() // consume '('

	// mm::Class.allInstances() is a qualified-type query, not a member call.
	if tr, ok := receiver.(*TypeRefExpr); ok && name == "allInstances" {
		end := p.token.Pos
		if !p.expect(token.RPAREN) {
			return nil
		}
		return &AllInstancesExpr{
			NodeInfo:  NodeInfo{Span: token.Span{Start: tr.GetSpan().Start, End: end}},
			Metamodel: tr.Metamodel,
			Class:     tr.Class,
		}
	}

	// Iterator lambda form: op(x | body).
	if iteratorOps[name] && p.check(token.IDENT) && p.checkPeek(token.PIPE) {
		varName := p.token.Literal
		varPos := p.token.Pos
		p.nextToken() // consume iterator variable
		p.nextToken() // consume '|'

		body := p.parseExpression()
		if body == nil {
			return nil
		}

		end := p.token.Pos
		if !p.expect(token.RPAREN) {
			return nil
		}

		return &IteratorExpr{
			NodeInfo: NodeInfo{Span: token.Span{Start: receiver.GetSpan().Start, End: end}},
			Receiver: receiver,
			Op:       name,
			Var:      varName,
			VarPos:   varPos,
			Body:     body,
		}
	}

	// Regular argument list.
	var args []Expr
	for !p.check(token.RPAREN) && !p.check(token.EOF) {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
		if !p.match(token.COMMA) {
			break
		}
	}

	end := p.token.Pos
	if !p.expect(token.RPAREN) {
		return nil
	}

	return &CallExpr{
		NodeInfo: NodeInfo{Span: token.Span{Start: receiver.GetSpan().Start, End: end}},
		Receiver: receiver,
		Name:     name,
		NamePos:  namePos,
		Args:     args,
	}
}

// parsePrimary parses a primary expression.
func (p *Parser) parsePrimary() Expr {
	pos := p.token.Pos

	switch p.token.Type {
	case token.INT:
		lit := &Literal{NodeInfo: NodeInfo{Span: token.Span{Start: pos, End: pos}}, Type: LiteralInt, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.REAL:
		lit := &Literal{NodeInfo: NodeInfo{Span: token.Span{Start: pos, End: pos}}, Type: LiteralReal, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.STRING:
		lit := &Literal{NodeInfo: NodeInfo{Span: token.Span{Start: pos, End: pos}}, Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.TRUE, token.FALSE:
		lit := &Literal{NodeInfo: NodeInfo{Span: token.Span{Start: pos, End: pos}}, Type: LiteralBool, Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.NULL:
		lit := &Literal{NodeInfo: NodeInfo{Span: token.Span{Start: pos, End: pos}}, Type: LiteralNull, Value: "null"}
		p.nextToken()
		return lit

	case token.SELF:
		ref := &VarRef{NodeInfo: NodeInfo{Span: token.Span{Start: pos, End: pos}}, Name: "self"}
		p.nextToken()
		return ref

	case token.IDENT:
		if p.checkPeek(token.DCOLON) {
			metamodel, class, ok := p.parseQualName()
			if !ok {
				return nil
			}
			return &TypeRefExpr{
				NodeInfo:  NodeInfo{Span: token.Span{Start: pos, End: p.token.Pos}},
				Metamodel: metamodel,
				Class:     class,
			}
		}
		ref := &VarRef{NodeInfo: NodeInfo{Span: token.Span{Start: pos, End: pos}}, Name: p.token.Literal}
		p.nextToken()
		return ref

	case token.LET:
		return p.parseLet()

	case token.IF:
		return p.parseIf()

	case token.LPAREN:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		return expr

	default:
		p.addError(fmt.Sprintf(ErrExpectedExpression, p.token.Type))
		return nil
	}
}

// parseLet parses: "let" IDENT "=" expr { "," IDENT "=" expr } "in" expr
func (p *Parser) parseLet() Expr {
	start := p.token.Pos
	p.nextToken() // consume 'let'

	var bindings []*LetBinding
	for {
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, token.IDENT))
			return nil
		}
		name := p.token.Literal
		namePos := p.token.Pos
		p.nextToken()

		if !p.expect(token.EQ) {
			return nil
		}

		init := p.parseExpression()
		if init == nil {
			return nil
		}

		bindings = append(bindings, &LetBinding{Name: name, NamePos: namePos, Init: init})

		if !p.match(token.COMMA) {
			break
		}
	}

	if len(bindings) == 0 {
		p.addError(ErrEmptyLet)
		return nil
	}

	if !p.expect(token.IN) {
		return nil
	}

	body := p.parseExpression()
	if body == nil {
		return nil
	}

	return &LetExpr{
		NodeInfo: NodeInfo{Span: token.Span{Start: start, End: body.GetSpan().End}},
		Bindings: bindings,
		Body:     body,
	}
}

// parseIf parses: "if" expr "then" expr "else" expr "endif"
func (p *Parser) parseIf() Expr {
	start := p.token.Pos
	p.nextToken() // consume 'if'

	cond := p.parseExpression()
	if cond == nil {
		return nil
	}

	if !p.expect(token.THEN) {
		return nil
	}

	thenExpr := p.parseExpression()
	if thenExpr == nil {
		return nil
	}

	if !p.expect(token.ELSE) {
		return nil
	}

	elseExpr := p.parseExpression()
	if elseExpr == nil {
		return nil
	}

	end := p.token.Pos
	if !p.expect(token.ENDIF) {
		return nil
	}

	return &IfExpr{
		NodeInfo: NodeInfo{Span: token.Span{Start: start, End: end}},
		Cond:     cond,
		Then:     thenExpr,
		Else:     elseExpr,
	}
}
