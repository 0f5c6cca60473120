// Package token defines the token types for OCL# constraint parsing.
//
// The OCL# token set is closed: unlike SQL dialects there are no
// dynamically registered keywords, so every token is a constant here.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier
	INT    // 123
	REAL   // 45.67, 1e10
	STRING // 'hello'

	// Operators
	PLUS   // +
	MINUS  // -
	STAR   // *
	SLASH  // /
	EQ     // =
	NE     // <>
	LT     // <
	GT     // >
	LE     // <=
	GE     // >=
	DOT    // .
	ARROW  // ->
	COMMA  // ,
	PIPE   // |
	COLON  // :
	DCOLON // ::
	LPAREN // (
	RPAREN // )

	// Keywords
	AND
	CONTEXT
	DIV
	ELSE
	ENDIF
	FALSE
	IF
	IMPLIES
	IN
	INV
	LET
	MOD
	NOT
	NULL
	OR
	SELF
	THEN
	TRUE
)

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	IDENT:   "IDENT",
	INT:     "INT",
	REAL:    "REAL",
	STRING:  "STRING",
	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	EQ:      "=",
	NE:      "<>",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",
	DOT:     ".",
	ARROW:   "->",
	COMMA:   ",",
	PIPE:    "|",
	COLON:   ":",
	DCOLON:  "::",
	LPAREN:  "(",
	RPAREN:  ")",
	AND:     "and",
	CONTEXT: "context",
	DIV:     "div",
	ELSE:    "else",
	ENDIF:   "endif",
	FALSE:   "false",
	IF:      "if",
	IMPLIES: "implies",
	IN:      "in",
	INV:     "inv",
	LET:     "let",
	MOD:     "mod",
	NOT:     "not",
	NULL:    "null",
	OR:      "or",
	SELF:    "self",
	THEN:    "then",
	TRUE:    "true",
}

// String returns the display name of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int32(t))
}

var keywords = map[string]TokenType{
	"and":     AND,
	"context": CONTEXT,
	"div":     DIV,
	"else":    ELSE,
	"endif":   ENDIF,
	"false":   FALSE,
	"if":      IF,
	"implies": IMPLIES,
	"in":      IN,
	"inv":     INV,
	"let":     LET,
	"mod":     MOD,
	"not":     NOT,
	"null":    NULL,
	"or":      OR,
	"self":    SELF,
	"then":    THEN,
	"true":    TRUE,
}

// LookupIdent returns the keyword token type for an identifier,
// or IDENT if it is not a keyword. OCL# keywords are case-sensitive.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
