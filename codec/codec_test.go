package codec

import (
	"reflect"
	"testing"

	"dcpu16lisp/isa"
)

func TestEncodeDecodeRoundTripBasic(t *testing.T) {
	instructions := []isa.Instruction{
		{Op: isa.OpSET, A: isa.Operand{Kind: isa.KindInlineLiteral, Literal: 5}, B: isa.Operand{Kind: isa.KindReg, Reg: isa.A}},
		{Op: isa.OpADD, A: isa.Operand{Kind: isa.KindNextLiteral}, WordA: 0x1234, B: isa.Operand{Kind: isa.KindReg, Reg: isa.B}},
		{Op: isa.OpSET, A: isa.Operand{Kind: isa.KindNextRef}, WordA: 0x2000, B: isa.Operand{Kind: isa.KindRegNextRef, Reg: isa.C}, WordB: 4},
	}
	code := Encode(instructions)
	got, err := Decode(code)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(instructions, got) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", instructions, got)
	}
}

func TestEncodeDecodeRoundTripSpecial(t *testing.T) {
	instructions := []isa.Instruction{
		{Op: isa.OpJSR, Special: true, A: isa.Operand{Kind: isa.KindNextLiteral}, WordA: 0x8000},
		{Op: isa.OpINT, Special: true, A: isa.Operand{Kind: isa.KindInlineLiteral, Literal: 1}},
	}
	code := Encode(instructions)
	got, err := Decode(code)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(instructions, got) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", instructions, got)
	}
}

func TestDecodeDoesNotConfuseBFieldWithAField(t *testing.T) {
	// SET B, 0x1234 has a 6-bit A field of 0x1f (next word literal) and a
	// 5-bit B field of 1 (register B). Bit 10 (the low bit of the A field,
	// set here) must never leak into the B field's 5-bit window.
	instructions := []isa.Instruction{
		{Op: isa.OpSET, A: isa.Operand{Kind: isa.KindNextLiteral}, WordA: 0x1234, B: isa.Operand{Kind: isa.KindReg, Reg: isa.B}},
	}
	words := encodeWords(instructions[0])
	head := words[0]
	bField := (head >> bFieldShift) & bFieldMask
	if bField != 1 {
		t.Fatalf("expected raw B field to read register B (1), got %#x", bField)
	}
	got, _, err := decodeOne(words)
	if err != nil {
		t.Fatal(err)
	}
	if got.B.Kind != isa.KindReg || got.B.Reg != isa.B {
		t.Errorf("B operand decoded wrong: %+v", got.B)
	}
}

func TestInlineLiteralRoundTrip(t *testing.T) {
	for n := int16(-1); n <= 30; n++ {
		field := encodeOperandField(isa.Operand{Kind: isa.KindInlineLiteral, Literal: n}, true)
		if field < 0x20 || field > 0x3f {
			t.Fatalf("literal %d encoded out of inline range: %#x", n, field)
		}
		op, _, consumed := decodeOperandField(field, true, nil)
		if consumed != 0 || op.Kind != isa.KindInlineLiteral || op.Literal != n {
			t.Errorf("literal %d round trip failed: got %+v", n, op)
		}
	}
}

