package asm

import "dcpu16lisp/isa"

// LexError reports a malformed token: a digit-leading lexeme that doesn't
// parse as a decimal or 0x-prefixed hex integer.
type LexError struct {
	Pos     isa.Position
	Lexeme  string
	Message string
}

func (e *LexError) Error() string {
	return e.Pos.String() + ": lex error: " + e.Message + ": " + e.Lexeme
}

// ParseError reports unbalanced parentheses or an unexpected token while
// building the expression tree.
type ParseError struct {
	Pos     isa.Position
	Message string
}

func (e *ParseError) Error() string {
	return e.Pos.String() + ": parse error: " + e.Message
}

// AssembleError reports an unknown opcode, wrong arity, an unrecognised
// operand shape, or a literal out of range during lowering.
type AssembleError struct {
	Pos     isa.Position
	Message string
}

func (e *AssembleError) Error() string {
	return e.Pos.String() + ": assemble error: " + e.Message
}
