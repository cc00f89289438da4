// Package codec encodes structured isa.Instruction values to the DCPU-16
// little-endian word stream and decodes them back. Encoding and decoding are
// mutual inverses on any byte stream produced by Encode.
package codec

import (
	"dcpu16lisp/isa"
)

const (
	opcodeShift  = 0
	bFieldShift  = 5
	aFieldShift  = 10
	aFieldMask   = 0x3f // A operand: 6 bits, bits [10..15]
	bFieldMask   = 0x1f // B operand / special opcode: 5 bits, bits [5..9]
	opcodeMask16 = 0x1f
)

// Encode packs each instruction into one, two, or three 16-bit words and
// serialises the stream little-endian (low byte first).
func Encode(instructions []isa.Instruction) []byte {
	var words []uint16
	for _, inst := range instructions {
		words = append(words, encodeWords(inst)...)
	}
	return wordsToBytes(words)
}

func encodeWords(inst isa.Instruction) []uint16 {
	aField := encodeOperandField(inst.A, true)
	var head uint16
	if inst.Special {
		head = (aField << aFieldShift) | (uint16(inst.Op) << bFieldShift)
	} else {
		bField := encodeOperandField(inst.B, false)
		head = (aField << aFieldShift) | (bField << bFieldShift) | (uint16(inst.Op) & opcodeMask16)
	}

	out := []uint16{head}
	if inst.A.Kind.NeedsNextWord() {
		out = append(out, inst.WordA)
	}
	if !inst.Special && inst.B.Kind.NeedsNextWord() {
		out = append(out, inst.WordB)
	}
	return out
}

// encodeOperandField renders an Operand descriptor as the raw 5- or 6-bit
// field value from the operand encoding table. isA controls whether short
// inline literals and POP (vs PUSH) are legal.
func encodeOperandField(op isa.Operand, isA bool) uint16 {
	switch op.Kind {
	case isa.KindReg:
		return uint16(op.Reg)
	case isa.KindRegRef:
		return 0x08 + uint16(op.Reg)
	case isa.KindRegNextRef:
		return 0x10 + uint16(op.Reg)
	case isa.KindPushPop:
		return 0x18
	case isa.KindPeek:
		return 0x19
	case isa.KindPick:
		return 0x1a
	case isa.KindSP:
		return 0x1b
	case isa.KindPC:
		return 0x1c
	case isa.KindEX:
		return 0x1d
	case isa.KindNextRef:
		return 0x1e
	case isa.KindNextLiteral:
		return 0x1f
	case isa.KindInlineLiteral:
		return uint16(op.Literal+1) + 0x20
	default:
		return 0
	}
}

func wordsToBytes(words []uint16) []byte {
	bytes := make([]byte, 0, len(words)*2)
	for _, w := range words {
		bytes = append(bytes, byte(w&0xff), byte(w>>8))
	}
	return bytes
}

// Decode inverts Encode, reading words from a little-endian byte stream and
// reconstructing the structured instructions, including whichever follow-up
// words each operand's descriptor requires.
func Decode(code []byte) ([]isa.Instruction, error) {
	words := BytesToWords(code)
	var out []isa.Instruction
	i := 0
	for i < len(words) {
		inst, consumed, err := decodeOne(words[i:])
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
		i += consumed
	}
	return out, nil
}

// BytesToWords packs a little-endian byte stream into 16-bit words, e.g. to
// load an already-encoded program straight into a CPU's memory.
func BytesToWords(code []byte) []uint16 {
	words := make([]uint16, 0, len(code)/2)
	for i := 0; i+1 < len(code); i += 2 {
		words = append(words, uint16(code[i])|uint16(code[i+1])<<8)
	}
	return words
}

func decodeOne(words []uint16) (isa.Instruction, int, error) {
	head := words[0]
	aField := (head >> aFieldShift) & aFieldMask
	basicOp := head & opcodeMask16
	consumed := 1

	if basicOp == 0 {
		specialOp := (head >> bFieldShift) & bFieldMask
		a, wordA, n := decodeOperandField(aField, true, words[consumed:])
		consumed += n
		return isa.Instruction{Op: isa.OpCode(specialOp), Special: true, A: a, WordA: wordA}, consumed, nil
	}

	bField := (head >> bFieldShift) & bFieldMask
	a, wordA, n := decodeOperandField(aField, true, words[consumed:])
	consumed += n
	b, wordB, n2 := decodeOperandField(bField, false, words[consumed:])
	consumed += n2
	return isa.Instruction{Op: isa.OpCode(basicOp), A: a, B: b, WordA: wordA, WordB: wordB}, consumed, nil
}

// decodeOperandField is the inverse of encodeOperandField: it classifies the
// 5/6-bit field and, if that kind needs a follow-up word, reads it from the
// front of rest.
func decodeOperandField(field uint16, isA bool, rest []uint16) (isa.Operand, uint16, int) {
	switch {
	case field <= 0x07:
		return isa.Operand{Kind: isa.KindReg, Reg: isa.Register(field)}, 0, 0
	case field <= 0x0f:
		return isa.Operand{Kind: isa.KindRegRef, Reg: isa.Register(field - 0x08)}, 0, 0
	case field <= 0x17:
		return isa.Operand{Kind: isa.KindRegNextRef, Reg: isa.Register(field - 0x10)}, nextOf(rest), 1
	case field == 0x18:
		return isa.Operand{Kind: isa.KindPushPop}, 0, 0
	case field == 0x19:
		return isa.Operand{Kind: isa.KindPeek}, 0, 0
	case field == 0x1a:
		return isa.Operand{Kind: isa.KindPick}, nextOf(rest), 1
	case field == 0x1b:
		return isa.Operand{Kind: isa.KindSP}, 0, 0
	case field == 0x1c:
		return isa.Operand{Kind: isa.KindPC}, 0, 0
	case field == 0x1d:
		return isa.Operand{Kind: isa.KindEX}, 0, 0
	case field == 0x1e:
		return isa.Operand{Kind: isa.KindNextRef}, nextOf(rest), 1
	case field == 0x1f:
		return isa.Operand{Kind: isa.KindNextLiteral}, nextOf(rest), 1
	default: // 0x20..0x3f, A-only short literal -1..30
		return isa.Operand{Kind: isa.KindInlineLiteral, Literal: int16(field) - 0x20 - 1}, 0, 0
	}
}

func nextOf(rest []uint16) uint16 {
	if len(rest) == 0 {
		return 0
	}
	return rest[0]
}
