// Package parser provides lexing and parsing of OCL# constraint files.
//
// # Usage
//
//	file, errs := parser.ParseFile(src, "constraints.ocl")
//	for _, c := range file.Constraints { ... }
//
// # Grammar Overview
//
// The parser implements a recursive descent parser for OCL#:
//
//	file        → { constraint }
//	constraint  → "context" qualName "inv" IDENT ":" expr
//	qualName    → IDENT "::" IDENT
//	expr        → letExpr | ifExpr | binary
//	letExpr     → "let" IDENT "=" expr { "," IDENT "=" expr } "in" expr
//	ifExpr      → "if" expr "then" expr "else" expr "endif"
//
// Expressions use Pratt parsing with a fixed precedence table; see
// parser_expr.go. Parse errors accumulate per file: a malformed
// constraint is skipped and parsing resumes at the next "context"
// keyword, so sibling constraints are parsed independently.
package parser

import (
	"fmt"

	"github.com/vitruv-tools/oclsharp/pkg/token"
)

// Parser parses OCL# constraint source into an AST.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // lookahead token
	errors []error
}

// NewParser creates a new parser for the given constraint source.
func NewParser(src string) *Parser {
	p := &Parser{
		lexer: NewLexer(src),
	}
	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()
	return p
}

// ParseFile parses a constraint source file and returns the AST together
// with every parse error encountered. Constraints that parsed cleanly are
// returned even when sibling constraints failed.
func ParseFile(src, filename string) (*File, []error) {
	p := NewParser(src)
	file := &File{Filename: filename}

	for !p.check(token.EOF) {
		decl := p.parseConstraint()
		if decl != nil {
			file.Constraints = append(file.Constraints, decl)
		} else {
			p.syncToConstraint()
		}
	}

	return file, p.errors
}

// ParseExpr parses a single expression, as used by the REPL.
func ParseExpr(src string) (Expr, []error) {
	p := NewParser(src)
	expr := p.parseExpression()
	if expr != nil && !p.check(token.EOF) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, token.EOF))
	}
	if len(p.errors) > 0 {
		return nil, p.errors
	}
	return expr, nil
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, t))
	return false
}

// addError adds a parse error at the current token.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// syncToConstraint skips tokens until the next constraint declaration
// or end of input, so one bad constraint does not poison its siblings.
func (p *Parser) syncToConstraint() {
	for !p.check(token.EOF) && !p.check(token.CONTEXT) {
		p.nextToken()
	}
}

// ---------- Constraint Declarations ----------

// parseConstraint parses: "context" qualName "inv" IDENT ":" expr
func (p *Parser) parseConstraint() *ConstraintDecl {
	start := p.token.Pos

	if !p.expect(token.CONTEXT) {
		return nil
	}

	metamodel, class, ok := p.parseQualName()
	if !ok {
		return nil
	}

	if !p.expect(token.INV) {
		return nil
	}

	if !p.check(token.IDENT) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, token.IDENT))
		return nil
	}
	name := p.token.Literal
	p.nextToken()

	if !p.expect(token.COLON) {
		return nil
	}

	body := p.parseExpression()
	if body == nil {
		return nil
	}

	return &ConstraintDecl{
		NodeInfo:  NodeInfo{Span: token.Span{Start: start, End: body.GetSpan().End}},
		Metamodel: metamodel,
		Class:     class,
		Name:      name,
		Body:      body,
	}
}

// parseQualName parses a qualified class name: IDENT "::" IDENT.
func (p *Parser) parseQualName() (metamodel, class string, ok bool) {
	if !p.check(token.IDENT) {
		p.addError(ErrExpectedQualName)
		return "", "", false
	}
	metamodel = p.token.Literal
	p.nextToken()

	if !p.expect(token.DCOLON) {
		return "", "", false
	}

	if !p.check(token.IDENT) {
		p.addError(ErrExpectedQualName)
		return "", "", false
	}
	class = p.token.Literal
	p.nextToken()

	return metamodel, class, true
}
