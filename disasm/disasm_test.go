package disasm

import (
	"strings"
	"testing"

	"dcpu16lisp/asm"
	"dcpu16lisp/codec"
)

// assembleRoundTrip runs source through the full asm -> codec pipeline and
// returns the resulting bytes, the way dcpu16.Assemble does.
func assembleRoundTrip(t *testing.T, src string) []byte {
	t.Helper()
	tokens, err := asm.Tokenize(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	exprs, err := asm.Parse(tokens)
	if err != nil {
		t.Fatal(err)
	}
	instructions, err := asm.Lower(exprs)
	if err != nil {
		t.Fatal(err)
	}
	return codec.Encode(instructions)
}

func TestDisassembleRendersSetWithLiteral(t *testing.T) {
	code := assembleRoundTrip(t, "(set a 0x30)")
	out, err := Disassemble(code)
	if err != nil {
		t.Fatal(err)
	}
	want := "(set a 0x30)\n"
	if out != want {
		t.Errorf("want %q, got %q", want, out)
	}
}

func TestDisassembleRoundTripsThroughAssembler(t *testing.T) {
	src := "(set a 0x30)\n(add a 1)\n(set (ref 0x1000) a)\n(ife a b)\n(set pc pop)\n"
	code := assembleRoundTrip(t, src)
	out, err := Disassemble(code)
	if err != nil {
		t.Fatal(err)
	}
	again := assembleRoundTrip(t, out)
	if string(code) != string(again) {
		t.Errorf("disassembled source did not re-encode identically:\nfirst:  % x\nsecond: % x", code, again)
	}
}

func TestFormatSpecialOpcode(t *testing.T) {
	code := assembleRoundTrip(t, "(jsr 0x1000)")
	out, err := Disassemble(code)
	if err != nil {
		t.Fatal(err)
	}
	want := "(jsr 0x1000)\n"
	if out != want {
		t.Errorf("want %q, got %q", want, out)
	}
}
