package asm

import "dcpu16lisp/isa"

// Parse consumes a token sequence left-to-right and builds the tree of
// top-level s-expressions. Each top-level '(' opens a new expression that
// becomes one element of the returned slice; a nested '(' starts a child
// expression that becomes a leaf Val of its parent. Symbols and numbers
// append as leaf Vals. An unmatched ')' or EOF with expressions still open
// is a ParseError.
func Parse(tokens []isa.Token) ([]*isa.SExp, error) {
	var top []*isa.SExp
	var stack []*isa.SExp

	for _, tok := range tokens {
		switch tok.Kind {
		case isa.TokLParen:
			stack = append(stack, &isa.SExp{Pos: tok.Pos})
		case isa.TokRParen:
			if len(stack) == 0 {
				return nil, &ParseError{Pos: tok.Pos, Message: "unmatched ')'"}
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				top = append(top, closed)
			} else {
				parent := stack[len(stack)-1]
				parent.Values = append(parent.Values, isa.Val{Kind: isa.ValExpr, Expr: closed})
			}
		case isa.TokSymbol:
			if len(stack) == 0 {
				return nil, &ParseError{Pos: tok.Pos, Message: "symbol outside of any expression: " + tok.Sym}
			}
			cur := stack[len(stack)-1]
			cur.Values = append(cur.Values, isa.Val{Kind: isa.ValSymbol, Sym: tok.Sym})
		case isa.TokNumber:
			if len(stack) == 0 {
				return nil, &ParseError{Pos: tok.Pos, Message: "number outside of any expression"}
			}
			cur := stack[len(stack)-1]
			cur.Values = append(cur.Values, isa.Val{Kind: isa.ValNumber, Num: tok.Num})
		}
	}

	if len(stack) > 0 {
		return nil, &ParseError{Pos: stack[len(stack)-1].Pos, Message: "unclosed '('"}
	}
	return top, nil
}
