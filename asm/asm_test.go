package asm

import (
	"strings"
	"testing"

	"dcpu16lisp/isa"
)

func lowerSource(t *testing.T, src string) []isa.Instruction {
	t.Helper()
	tokens, err := Tokenize(strings.NewReader(src))
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	exprs, err := Parse(tokens)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	instructions, err := Lower(exprs)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return instructions
}

func TestLowerSetRegisterToLiteral(t *testing.T) {
	got := lowerSource(t, "(set a 0x30)")
	want := isa.Instruction{
		Op: isa.OpSET,
		B:  isa.Operand{Kind: isa.KindReg, Reg: isa.A},
		A:  isa.Operand{Kind: isa.KindNextLiteral},
		WordA: 0x30,
	}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("want %+v, got %+v", want, got)
	}
}

func TestLowerShortInlineLiteral(t *testing.T) {
	got := lowerSource(t, "(set a 5)")
	if got[0].A.Kind != isa.KindInlineLiteral || got[0].A.Literal != 5 {
		t.Errorf("expected inline literal 5, got %+v", got[0].A)
	}
}

func TestLowerNegativeLiteralStaysSymbolShaped(t *testing.T) {
	got := lowerSource(t, "(set a -1)")
	if got[0].A.Kind != isa.KindInlineLiteral || got[0].A.Literal != -1 {
		t.Errorf("expected inline literal -1, got %+v", got[0].A)
	}
}

func TestLowerRefForms(t *testing.T) {
	cases := []struct {
		src      string
		wantKind isa.OperandKind
	}{
		{"(set a (ref c))", isa.KindRegRef},
		{"(set a (ref 0x1000))", isa.KindNextRef},
		{"(set a (ref c 4))", isa.KindRegNextRef},
		{"(set a (ref sp 2))", isa.KindPick},
	}
	for _, tc := range cases {
		got := lowerSource(t, tc.src)
		if got[0].A.Kind != tc.wantKind {
			t.Errorf("%s: want kind %v, got %v", tc.src, tc.wantKind, got[0].A.Kind)
		}
	}
}

func TestLowerPushPopPositions(t *testing.T) {
	got := lowerSource(t, "(set push a)")
	if got[0].B.Kind != isa.KindPushPop {
		t.Errorf("expected B-position push/pop, got %+v", got[0].B)
	}
	got = lowerSource(t, "(set a pop)")
	if got[0].A.Kind != isa.KindPushPop {
		t.Errorf("expected A-position push/pop, got %+v", got[0].A)
	}
}

func TestLowerSpecialOpcode(t *testing.T) {
	got := lowerSource(t, "(jsr 0x1000)")
	if !got[0].Special || got[0].Op != isa.OpJSR {
		t.Errorf("expected special JSR, got %+v", got[0])
	}
}

func TestLowerUnknownOpcode(t *testing.T) {
	_, err := Lower(mustParse(t, "(frobnicate a b)"))
	if err == nil {
		t.Fatal("expected an error for an unknown opcode")
	}
	var ae *AssembleError
	if !errorsAs(err, &ae) {
		t.Errorf("expected an *AssembleError, got %T: %v", err, err)
	}
}

func TestLowerWrongArity(t *testing.T) {
	_, err := Lower(mustParse(t, "(set a)"))
	if err == nil {
		t.Fatal("expected an arity error")
	}
}

func mustParse(t *testing.T, src string) []*isa.SExp {
	t.Helper()
	tokens, err := Tokenize(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	exprs, err := Parse(tokens)
	if err != nil {
		t.Fatal(err)
	}
	return exprs
}

// errorsAs avoids importing "errors" just for this one assertion style used
// across the assembler's error-kind tests.
func errorsAs(err error, target **AssembleError) bool {
	ae, ok := err.(*AssembleError)
	if ok {
		*target = ae
	}
	return ok
}
