// Package dcpu16 is the toolchain's external interface: source text in,
// executable words out, and a machine that can run them. It wires together
// asm (source -> structured instructions), codec (structured instructions
// <-> the word stream), and cpu (the machine that executes that stream) the
// way a small compiler driver wires together its front end, its object
// format, and its runtime.
package dcpu16

import (
	"io"
	"strings"

	"dcpu16lisp/asm"
	"dcpu16lisp/codec"
	"dcpu16lisp/cpu"
	"dcpu16lisp/disasm"
)

// Assemble reads s-expression assembly source and returns the encoded
// little-endian word stream ready to load into a CPU.
func Assemble(r io.Reader) ([]byte, error) {
	tokens, err := asm.Tokenize(r)
	if err != nil {
		return nil, err
	}
	exprs, err := asm.Parse(tokens)
	if err != nil {
		return nil, err
	}
	instructions, err := asm.Lower(exprs)
	if err != nil {
		return nil, err
	}
	return codec.Encode(instructions), nil
}

// AssembleString is Assemble for source already held in memory.
func AssembleString(src string) ([]byte, error) {
	return Assemble(strings.NewReader(src))
}

// Disassemble decodes an encoded word stream back to s-expression source.
func Disassemble(code []byte) (string, error) {
	return disasm.Disassemble(code)
}

// Execute loads code into a fresh machine and runs it to completion,
// returning the machine so the caller can inspect final register and memory
// state. It returns an error if the program ran out of its step budget or
// the interrupt queue overflowed; the machine's state up to that point is
// still valid and inspectable.
func Execute(code []byte) (*cpu.CPU, error) {
	words := codec.BytesToWords(code)
	c := cpu.New()
	c.Load(words)
	if err := c.Run(); err != nil {
		return c, err
	}
	return c, nil
}

// AssembleAndRun is the common case: compile source and run it to
// completion in one call.
func AssembleAndRun(src string) (*cpu.CPU, error) {
	code, err := AssembleString(src)
	if err != nil {
		return nil, err
	}
	return Execute(code)
}
