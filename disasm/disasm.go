// Package disasm renders decoded isa.Instruction values back to the
// s-expression source syntax asm accepts, so `Decode` output and hand-written
// source share one textual notation.
package disasm

import (
	"fmt"
	"strconv"
	"strings"

	"dcpu16lisp/codec"
	"dcpu16lisp/isa"
)

var mnemonics = map[isa.OpCode]string{
	isa.OpSET: "set", isa.OpADD: "add", isa.OpSUB: "sub", isa.OpMUL: "mul",
	isa.OpMLI: "mli", isa.OpDIV: "div", isa.OpDVI: "dvi", isa.OpMOD: "mod",
	isa.OpMDI: "mdi", isa.OpAND: "and", isa.OpBOR: "bor", isa.OpXOR: "xor",
	isa.OpSHR: "shr", isa.OpASR: "asr", isa.OpSHL: "shl", isa.OpIFB: "ifb",
	isa.OpIFC: "ifc", isa.OpIFE: "ife", isa.OpIFN: "ifn", isa.OpIFG: "ifg",
	isa.OpIFA: "ifa", isa.OpIFL: "ifl", isa.OpIFU: "ifu", isa.OpADX: "adx",
	isa.OpSBX: "sbx", isa.OpSTI: "sti", isa.OpSTD: "std",
}

var specialMnemonics = map[isa.OpCode]string{
	isa.OpJSR: "jsr", isa.OpINT: "int", isa.OpIAG: "iag", isa.OpIAS: "ias",
	isa.OpRFI: "rfi", isa.OpIAQ: "iaq", isa.OpHWN: "hwn", isa.OpHWQ: "hwq",
	isa.OpHWI: "hwi",
}

// Disassemble decodes a DCPU-16 word stream and renders each instruction as
// one s-expression per line, source syntax (dest, src) order.
func Disassemble(code []byte) (string, error) {
	instructions, err := codec.Decode(code)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, inst := range instructions {
		sb.WriteString(Format(inst))
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// Format renders a single instruction as the s-expression form asm.Lower
// would have consumed to produce it.
func Format(inst isa.Instruction) string {
	if inst.Special {
		name, ok := specialMnemonics[inst.Op]
		if !ok {
			name = fmt.Sprintf("op%#02x", inst.Op)
		}
		return fmt.Sprintf("(%s %s)", name, formatOperand(inst.A, inst.WordA, true))
	}
	name, ok := mnemonics[inst.Op]
	if !ok {
		name = fmt.Sprintf("op%#02x", inst.Op)
	}
	return fmt.Sprintf("(%s %s %s)", name, formatOperand(inst.B, inst.WordB, false), formatOperand(inst.A, inst.WordA, true))
}

// formatOperand renders one operand field. isA disambiguates KindPushPop,
// which means POP in A-position and PUSH in B-position — the field encoding
// is identical, only the operand's position in the instruction carries the
// distinction.
func formatOperand(op isa.Operand, word uint16, isA bool) string {
	switch op.Kind {
	case isa.KindReg:
		return strings.ToLower(op.Reg.String())
	case isa.KindRegRef:
		return fmt.Sprintf("(ref %s)", strings.ToLower(op.Reg.String()))
	case isa.KindRegNextRef:
		return fmt.Sprintf("(ref %s %s)", strings.ToLower(op.Reg.String()), hex(word))
	case isa.KindPushPop:
		if isA {
			return "pop"
		}
		return "push"
	case isa.KindPeek:
		return "peek"
	case isa.KindPick:
		return fmt.Sprintf("(ref sp %s)", hex(word))
	case isa.KindSP:
		return "sp"
	case isa.KindPC:
		return "pc"
	case isa.KindEX:
		return "ex"
	case isa.KindNextRef:
		return fmt.Sprintf("(ref %s)", hex(word))
	case isa.KindNextLiteral:
		return hex(word)
	default: // KindInlineLiteral
		return strconv.Itoa(int(op.Literal))
	}
}

func hex(v uint16) string {
	return fmt.Sprintf("0x%x", v)
}
