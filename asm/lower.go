package asm

import (
	"strconv"
	"strings"

	"dcpu16lisp/isa"
)

type opcodeInfo struct {
	op      isa.OpCode
	special bool
	arity   int // 1 or 2
}

var opcodeTable = map[string]opcodeInfo{
	"set": {isa.OpSET, false, 2},
	"add": {isa.OpADD, false, 2},
	"sub": {isa.OpSUB, false, 2},
	"mul": {isa.OpMUL, false, 2},
	"mli": {isa.OpMLI, false, 2},
	"div": {isa.OpDIV, false, 2},
	"dvi": {isa.OpDVI, false, 2},
	"mod": {isa.OpMOD, false, 2},
	"mdi": {isa.OpMDI, false, 2},
	"and": {isa.OpAND, false, 2},
	"bor": {isa.OpBOR, false, 2},
	"xor": {isa.OpXOR, false, 2},
	"shr": {isa.OpSHR, false, 2},
	"asr": {isa.OpASR, false, 2},
	"shl": {isa.OpSHL, false, 2},
	"ifb": {isa.OpIFB, false, 2},
	"ifc": {isa.OpIFC, false, 2},
	"ife": {isa.OpIFE, false, 2},
	"ifn": {isa.OpIFN, false, 2},
	"ifg": {isa.OpIFG, false, 2},
	"ifa": {isa.OpIFA, false, 2},
	"ifl": {isa.OpIFL, false, 2},
	"ifu": {isa.OpIFU, false, 2},
	"adx": {isa.OpADX, false, 2},
	"sbx": {isa.OpSBX, false, 2},
	"sti": {isa.OpSTI, false, 2},
	"std": {isa.OpSTD, false, 2},

	"jsr": {isa.OpJSR, true, 1},
	"int": {isa.OpINT, true, 1},
	"iag": {isa.OpIAG, true, 1},
	"ias": {isa.OpIAS, true, 1},
	"rfi": {isa.OpRFI, true, 1},
	"iaq": {isa.OpIAQ, true, 1},
	"hwn": {isa.OpHWN, true, 1},
	"hwq": {isa.OpHWQ, true, 1},
	"hwi": {isa.OpHWI, true, 1},
}

var registerTable = map[string]isa.Register{
	"a": isa.A, "b": isa.B, "c": isa.C, "x": isa.X,
	"y": isa.Y, "z": isa.Z, "i": isa.I, "j": isa.J,
}

// Lower lowers each top-level expression into exactly one Instruction. The
// leading symbol names the opcode (case-insensitive). A binary opcode
// consumes two operand expressions in source order B then A — the
// destination operand appears first in source syntax, matching DCPU-16
// assembly convention.
func Lower(exprs []*isa.SExp) ([]isa.Instruction, error) {
	out := make([]isa.Instruction, 0, len(exprs))
	for _, e := range exprs {
		inst, err := lowerOne(e)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func lowerOne(e *isa.SExp) (isa.Instruction, error) {
	if len(e.Values) == 0 {
		return isa.Instruction{}, &AssembleError{Pos: e.Pos, Message: "empty expression"}
	}
	head := e.Values[0]
	if head.Kind != isa.ValSymbol {
		return isa.Instruction{}, &AssembleError{Pos: e.Pos, Message: "expected opcode symbol"}
	}
	info, ok := opcodeTable[strings.ToLower(head.Sym)]
	if !ok {
		return isa.Instruction{}, &AssembleError{Pos: e.Pos, Message: "unknown opcode: " + head.Sym}
	}

	args := e.Values[1:]
	if len(args) != info.arity {
		return isa.Instruction{}, &AssembleError{
			Pos:     e.Pos,
			Message: "wrong number of operands for " + head.Sym,
		}
	}

	if info.arity == 1 {
		a, wordA, err := lowerOperand(args[0], true)
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.Instruction{Op: info.op, Special: true, A: a, WordA: wordA}, nil
	}

	// Binary: source syntax is (OP dest src) i.e. B then A.
	b, wordB, err := lowerOperand(args[0], false)
	if err != nil {
		return isa.Instruction{}, err
	}
	a, wordA, err := lowerOperand(args[1], true)
	if err != nil {
		return isa.Instruction{}, err
	}
	return isa.Instruction{Op: info.op, A: a, B: b, WordA: wordA, WordB: wordB}, nil
}

// lowerOperand lowers one operand expression, matching its syntactic shape
// against the DCPU-16 operand field table. isA selects the operand-A rules
// (short literals, PUSH/POP as POP) versus operand-B rules (no short
// literals, PUSH/POP as PUSH).
func lowerOperand(v isa.Val, isA bool) (isa.Operand, uint16, error) {
	switch v.Kind {
	case isa.ValSymbol:
		return lowerSymbolOperand(v.Sym, isA)
	case isa.ValNumber:
		return literalOperand(int64(v.Num), isA)
	case isa.ValExpr:
		return lowerRefOperand(v.Expr, isA)
	default:
		return isa.Operand{}, 0, &AssembleError{Message: "malformed operand"}
	}
}

func lowerSymbolOperand(sym string, isA bool) (isa.Operand, uint16, error) {
	lower := strings.ToLower(sym)
	if reg, ok := registerTable[lower]; ok {
		return isa.Operand{Kind: isa.KindReg, Reg: reg}, 0, nil
	}
	switch lower {
	case "push", "pop":
		return isa.Operand{Kind: isa.KindPushPop}, 0, nil
	case "peek":
		return isa.Operand{Kind: isa.KindPeek}, 0, nil
	case "sp":
		return isa.Operand{Kind: isa.KindSP}, 0, nil
	case "pc":
		return isa.Operand{Kind: isa.KindPC}, 0, nil
	case "ex":
		return isa.Operand{Kind: isa.KindEX}, 0, nil
	}
	// A bare symbol that looks like a (possibly negative or hex) integer
	// literal, e.g. "-1": the tokeniser only classifies digit-leading
	// lexemes as numbers, so signed literals arrive here as symbols.
	if n, err := strconv.ParseInt(normalizeSign(lower), 0, 64); err == nil {
		return literalOperand(n, isA)
	}
	return isa.Operand{}, 0, &AssembleError{Message: "unrecognised operand: " + sym}
}

// normalizeSign strips a leading '+' before the text goes to
// strconv.ParseInt with base 0; a leading '-' and a 0x prefix (e.g. "-0x10")
// are left as they are, since ParseInt(base 0) accepts them directly.
func normalizeSign(s string) string {
	return strings.TrimPrefix(s, "+")
}

func literalOperand(n int64, isA bool) (isa.Operand, uint16, error) {
	if isA && n >= -1 && n <= 30 {
		return isa.Operand{Kind: isa.KindInlineLiteral, Literal: int16(n)}, 0, nil
	}
	if n < -0x8000 || n > 0xFFFF {
		return isa.Operand{}, 0, &AssembleError{Message: "literal out of range: " + strconv.FormatInt(n, 10)}
	}
	return isa.Operand{Kind: isa.KindNextLiteral}, uint16(n), nil
}

// lowerRefOperand handles the nested forms: (ref R), (ref R N), (ref N R),
// (ref N), and (ref sp N) — i.e. everything spelled as a parenthesised
// "ref" expression.
func lowerRefOperand(e *isa.SExp, isA bool) (isa.Operand, uint16, error) {
	if len(e.Values) == 0 || e.Values[0].Kind != isa.ValSymbol || strings.ToLower(e.Values[0].Sym) != "ref" {
		return isa.Operand{}, 0, &AssembleError{Pos: e.Pos, Message: "unrecognised operand shape"}
	}
	args := e.Values[1:]

	switch len(args) {
	case 1:
		if reg, ok := symbolRegister(args[0]); ok {
			return isa.Operand{Kind: isa.KindRegRef, Reg: reg}, 0, nil
		}
		n, ok := resolveIntLiteral(args[0])
		if !ok {
			return isa.Operand{}, 0, &AssembleError{Pos: e.Pos, Message: "(ref N) requires a register or integer"}
		}
		return isa.Operand{Kind: isa.KindNextRef}, uint16(n), nil
	case 2:
		// (ref R N) or (ref N R); also (ref sp N) for PICK.
		reg0, isReg0 := symbolRegister(args[0])
		reg1, isReg1 := symbolRegister(args[1])
		if isSPSymbol(args[0]) {
			n, ok := resolveIntLiteral(args[1])
			if !ok {
				return isa.Operand{}, 0, &AssembleError{Pos: e.Pos, Message: "(ref sp N) requires an integer offset"}
			}
			return isa.Operand{Kind: isa.KindPick}, uint16(n), nil
		}
		switch {
		case isReg0 && !isReg1:
			n, ok := resolveIntLiteral(args[1])
			if !ok {
				return isa.Operand{}, 0, &AssembleError{Pos: e.Pos, Message: "(ref R N) requires an integer offset"}
			}
			return isa.Operand{Kind: isa.KindRegNextRef, Reg: reg0}, uint16(n), nil
		case isReg1 && !isReg0:
			n, ok := resolveIntLiteral(args[0])
			if !ok {
				return isa.Operand{}, 0, &AssembleError{Pos: e.Pos, Message: "(ref N R) requires an integer offset"}
			}
			return isa.Operand{Kind: isa.KindRegNextRef, Reg: reg1}, uint16(n), nil
		default:
			return isa.Operand{}, 0, &AssembleError{Pos: e.Pos, Message: "(ref ...) requires exactly one register"}
		}
	default:
		return isa.Operand{}, 0, &AssembleError{Pos: e.Pos, Message: "malformed (ref ...) form"}
	}
}

func symbolRegister(v isa.Val) (isa.Register, bool) {
	if v.Kind != isa.ValSymbol {
		return 0, false
	}
	reg, ok := registerTable[strings.ToLower(v.Sym)]
	return reg, ok
}

func isSPSymbol(v isa.Val) bool {
	return v.Kind == isa.ValSymbol && strings.ToLower(v.Sym) == "sp"
}

// resolveIntLiteral extracts an integer from a Val that is either a Number
// (tokeniser-recognised) or a Symbol shaped like a signed/hex integer.
func resolveIntLiteral(v isa.Val) (int64, bool) {
	switch v.Kind {
	case isa.ValNumber:
		return int64(v.Num), true
	case isa.ValSymbol:
		n, err := strconv.ParseInt(normalizeSign(strings.ToLower(v.Sym)), 0, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
