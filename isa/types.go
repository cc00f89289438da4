// Package isa holds the data types shared by the assembler, codec, and CPU
// packages: opcodes, operand kinds, registers, tokens, expression trees, and
// the structured Instruction they all agree on.
package isa

// OpCode identifies a basic or special DCPU-16 operation. Special opcodes
// (JSR, INT, ...) are distinguished from basic ones by the Instruction's
// Special flag, not by a disjoint OpCode range: both share this type so
// lowering and the codec can treat "which opcode" uniformly.
type OpCode uint16

// Basic opcodes (bits 0..4 of the instruction word).
const (
	OpSpecial OpCode = iota // 0 means "the next 5 bits are a special opcode"
	OpSET
	OpADD
	OpSUB
	OpMUL
	OpMLI
	OpDIV
	OpDVI
	OpMOD
	OpMDI
	OpAND
	OpBOR
	OpXOR
	OpSHR
	OpASR
	OpSHL
	OpIFB
	OpIFC
	OpIFE
	OpIFN
	OpIFG
	OpIFA
	OpIFL
	OpIFU
	_ // 0x18 reserved
	_ // 0x19 reserved
	OpADX
	OpSBX
	_ // 0x1c reserved
	_ // 0x1d reserved
	OpSTI
	OpSTD
)

// Special opcodes (carried in the B field when the basic opcode is OpSpecial).
const (
	_ = iota
	OpJSR
	_
	_
	_
	_
	_
	_
	OpINT
	OpIAG
	OpIAS
	OpRFI
	OpIAQ
	_
	_
	_
	OpHWN
	OpHWQ
	OpHWI
)

// IsConditional reports whether op is one of IFB..IFU, the skip-chain opcodes.
func (op OpCode) IsConditional() bool {
	return op >= OpIFB && op <= OpIFU
}

// Register indexes one of the eight general-purpose registers.
type Register uint8

const (
	A Register = iota
	B
	C
	X
	Y
	Z
	I
	J
	NumRegisters = iota
)

var registerNames = [NumRegisters]string{"A", "B", "C", "X", "Y", "Z", "I", "J"}

func (r Register) String() string {
	if int(r) < len(registerNames) {
		return registerNames[r]
	}
	return "?"
}

// OperandKind classifies what an Operand descriptor refers to.
type OperandKind uint8

const (
	KindReg        OperandKind = iota // register
	KindRegRef                        // [register]
	KindRegNextRef                    // [register + next word]
	KindPushPop                       // PUSH (as B) / POP (as A)
	KindPeek                          // PEEK == [SP]
	KindPick                          // PICK n == [SP + next word]
	KindSP                            // SP
	KindPC                            // PC
	KindEX                            // EX
	KindNextRef                       // [next word]
	KindNextLiteral                   // next word (literal)
	KindInlineLiteral                 // -1..30 encoded inline in the operand field
)

// Operand is a fully-resolved operand descriptor: a kind, plus the register
// it names (for the register-shaped kinds) or the inline literal's value
// (for KindInlineLiteral, stored sign-extended into Literal).
type Operand struct {
	Kind    OperandKind
	Reg     Register
	Literal int16 // only meaningful for KindInlineLiteral
}

// Instruction is the lowered, structured form produced by the assembler and
// consumed by the codec. WordA/WordB are meaningful only when the matching
// operand is one of KindRegNextRef, KindPick, KindNextRef, or
// KindNextLiteral; the codec preserves but never interprets them otherwise.
//
// Special form: when Special is true, Op holds a special opcode (OpJSR..
// OpHWI) rather than a basic one, only A is meaningful, and B/WordB stay
// zero. The two opcode tables' numeric ranges overlap (OpSET == 1 == OpJSR),
// so Special is what disambiguates which table applies.
type Instruction struct {
	Op      OpCode
	Special bool
	A, B    Operand
	WordA   uint16
	WordB   uint16
}

// NeedsNextWord reports whether operand resolution for this kind consumes an
// extra word from the instruction stream.
func (k OperandKind) NeedsNextWord() bool {
	switch k {
	case KindRegNextRef, KindPick, KindNextRef, KindNextLiteral:
		return true
	default:
		return false
	}
}
