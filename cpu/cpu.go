// Package cpu implements the DCPU-16 v1.7 virtual machine: register file,
// 65536-word memory, fetch/decode/execute, the skip-chain state machine, and
// the software interrupt queue. There is no global state — every machine is
// a *CPU value, and nothing here blocks, sleeps, or throttles.
package cpu

import (
	"errors"

	"github.com/rs/zerolog"

	"dcpu16lisp/isa"
)

const (
	memSize  = 0x10000
	maxQueue = 256 // the interrupt queue is bounded, not infinite

	// maxSteps bounds Run so a program that never halts (DCPU-16 has no halt
	// opcode) cannot loop this call forever. Step itself is unbounded.
	maxSteps = 10_000_000
)

var (
	errQueueFull  = errors.New("cpu: interrupt queue full")
	errStepBudget = errors.New("cpu: exceeded maximum step budget")
)

// CPU is one DCPU-16 machine: eight general registers, a 65536-word address
// space, the special registers (PC, SP, EX, IA), the skip flag, and the
// bounded software interrupt queue.
type CPU struct {
	Reg [isa.NumRegisters]uint16
	Mem [memSize]uint16

	pc, sp, ex, ia uint16
	skip           bool // true between a failed IFx and the end of its chain
	intQueue       []uint16

	programLen uint16 // words loaded by Load; Run stops once pc reaches this

	Cycles uint64 // running cycle count, per the v1.7 per-instruction costs
	Steps  uint64

	err error // sticky fault: once set, Step and Run become no-ops

	Logger zerolog.Logger // defaults to a disabled logger; callers may replace it
}

// New returns a freshly reset machine with logging disabled.
func New() *CPU {
	return &CPU{Logger: zerolog.Nop()}
}

// Load copies code into memory starting at address 0 and resets every
// register, the skip flag, the interrupt queue, and the fault. It does not
// reset Cycles or Steps — start from a fresh New() for clean accounting.
func (c *CPU) Load(words []uint16) {
	c.Reg = [isa.NumRegisters]uint16{}
	c.Mem = [memSize]uint16{}
	c.pc, c.sp, c.ex, c.ia = 0, 0, 0, 0
	c.skip = false
	c.intQueue = nil
	c.err = nil
	copy(c.Mem[:], words)
	c.programLen = uint16(len(words))
}

// PC, SP, EX, and IA report the special registers.
func (c *CPU) PC() uint16 { return c.pc }
func (c *CPU) SP() uint16 { return c.sp }
func (c *CPU) EX() uint16 { return c.ex }
func (c *CPU) IA() uint16 { return c.ia }

// Err reports the machine's sticky fault, if any. Once set, Step and Run
// stop making progress: this is the fault channel that stands in for the
// reference implementation's panic on interrupt-queue overflow.
func (c *CPU) Err() error { return c.err }

// Interrupt enqueues a software interrupt carrying message. If the queue is
// already at its bound the machine faults instead of panicking.
func (c *CPU) Interrupt(message uint16) {
	if c.err != nil {
		return
	}
	if len(c.intQueue) >= maxQueue {
		c.err = errQueueFull
		c.Logger.Error().Msg("interrupt queue overflow")
		return
	}
	c.intQueue = append(c.intQueue, message)
}

// Run steps the machine until pc has carried past the loaded program and the
// interrupt queue has drained, a fault occurs, or maxSteps is exceeded.
func (c *CPU) Run() error {
	for c.pc < c.programLen || len(c.intQueue) > 0 {
		if c.Steps >= maxSteps {
			c.err = errStepBudget
			return c.err
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes exactly one instruction slot.
//
// When the skip flag is set, Step decodes — but does not execute — the
// instruction at pc, just to learn how many words it occupies, and advances
// pc past it. The flag clears once a non-conditional instruction has been
// skipped; skipping an IFx instead re-sets the flag, so a run of IFx
// instructions chains and only the instruction after the last one is a
// candidate to execute.
//
// Otherwise Step drains one queued interrupt first, if IA is set and the
// queue is not empty, then decodes and fully executes the instruction at pc
// (after a delivery, the first instruction at IA).
func (c *CPU) Step() error {
	if c.err != nil {
		return c.err
	}
	c.Steps++

	if !c.skip && c.ia != 0 && len(c.intQueue) > 0 {
		msg := c.intQueue[0]
		c.intQueue = c.intQueue[1:]
		c.triggerInterrupt(msg)
	}

	inst, words := decodeAt(&c.Mem, c.pc)
	c.pc += words

	if c.skip {
		c.skip = inst.Op.IsConditional() && !inst.Special
		return nil
	}

	c.execute(inst)
	return c.err
}

// triggerInterrupt performs the dispatch shared by INT and by a queued
// message reaching the front of the queue: push PC then A, jump to the
// interrupt handler, and load message into A.
func (c *CPU) triggerInterrupt(message uint16) {
	if c.ia == 0 {
		return
	}
	c.pushValue(c.pc)
	c.pushValue(c.Reg[isa.A])
	c.pc = c.ia
	c.Reg[isa.A] = message
}

func (c *CPU) pushValue(v uint16) {
	c.sp--
	c.Mem[c.sp] = v
}

func (c *CPU) popValue() uint16 {
	v := c.Mem[c.sp]
	c.sp++
	return v
}

// decodeAt reads the instruction starting at pc directly from memory,
// without side effects, and reports how many words it occupies. Step uses
// this both for ordinary fetch and to walk over a skipped multi-word
// instruction at its true width — unlike a fixed one-or-two-word skip, an
// operand like [next word + register] still has to be counted.
func decodeAt(mem *[memSize]uint16, pc uint16) (isa.Instruction, uint16) {
	head := mem[pc]
	aField := (head >> 10) & 0x3f
	basicOp := head & 0x1f
	consumed := uint16(1)

	if basicOp == 0 {
		specialOp := (head >> 5) & 0x1f
		a, wordA, n := decodeField(mem, pc+consumed, aField)
		consumed += n
		return isa.Instruction{Op: isa.OpCode(specialOp), Special: true, A: a, WordA: wordA}, consumed
	}

	bField := (head >> 5) & 0x1f
	a, wordA, n := decodeField(mem, pc+consumed, aField)
	consumed += n
	b, wordB, n2 := decodeField(mem, pc+consumed, bField)
	consumed += n2
	return isa.Instruction{Op: isa.OpCode(basicOp), A: a, B: b, WordA: wordA, WordB: wordB}, consumed
}

// decodeField mirrors codec.decodeOperandField's classification table but
// reads directly from CPU memory (already materialised as words, not a byte
// stream) at the given address.
func decodeField(mem *[memSize]uint16, at uint16, field uint16) (isa.Operand, uint16, uint16) {
	switch {
	case field <= 0x07:
		return isa.Operand{Kind: isa.KindReg, Reg: isa.Register(field)}, 0, 0
	case field <= 0x0f:
		return isa.Operand{Kind: isa.KindRegRef, Reg: isa.Register(field - 0x08)}, 0, 0
	case field <= 0x17:
		return isa.Operand{Kind: isa.KindRegNextRef, Reg: isa.Register(field - 0x10)}, mem[at], 1
	case field == 0x18:
		return isa.Operand{Kind: isa.KindPushPop}, 0, 0
	case field == 0x19:
		return isa.Operand{Kind: isa.KindPeek}, 0, 0
	case field == 0x1a:
		return isa.Operand{Kind: isa.KindPick}, mem[at], 1
	case field == 0x1b:
		return isa.Operand{Kind: isa.KindSP}, 0, 0
	case field == 0x1c:
		return isa.Operand{Kind: isa.KindPC}, 0, 0
	case field == 0x1d:
		return isa.Operand{Kind: isa.KindEX}, 0, 0
	case field == 0x1e:
		return isa.Operand{Kind: isa.KindNextRef}, mem[at], 1
	case field == 0x1f:
		return isa.Operand{Kind: isa.KindNextLiteral}, mem[at], 1
	default: // 0x20..0x3f, A-only short literal -1..30
		return isa.Operand{Kind: isa.KindInlineLiteral, Literal: int16(field) - 0x20 - 1}, 0, 0
	}
}

// resolve returns a host pointer to the storage an operand names: a
// register, a memory cell, a special register, or — for the literal kinds —
// scratch, so a write lands nowhere and the instruction otherwise runs
// normally, matching "assigning to a literal fails silently" without
// skipping the rest of the instruction's side effects.
func (c *CPU) resolve(op isa.Operand, word uint16, isA bool, scratch *uint16) *uint16 {
	switch op.Kind {
	case isa.KindReg:
		return &c.Reg[op.Reg]
	case isa.KindRegRef:
		return &c.Mem[c.Reg[op.Reg]]
	case isa.KindRegNextRef:
		return &c.Mem[c.Reg[op.Reg]+word]
	case isa.KindPushPop:
		if isA {
			v := c.popValue()
			*scratch = v
			return scratch
		}
		c.sp--
		return &c.Mem[c.sp]
	case isa.KindPeek:
		return &c.Mem[c.sp]
	case isa.KindPick:
		return &c.Mem[c.sp+word]
	case isa.KindSP:
		return &c.sp
	case isa.KindPC:
		return &c.pc
	case isa.KindEX:
		return &c.ex
	case isa.KindNextRef:
		return &c.Mem[word]
	case isa.KindNextLiteral:
		*scratch = word
		return scratch
	default: // KindInlineLiteral
		*scratch = uint16(op.Literal)
		return scratch
	}
}

// cycleCost returns the extra cycles a basic opcode costs beyond the shared
// base of 1, per the v1.7 timing table.
func cycleCost(op isa.OpCode) uint64 {
	switch op {
	case isa.OpSET, isa.OpAND, isa.OpBOR, isa.OpXOR, isa.OpSHR, isa.OpASR, isa.OpSHL:
		return 0
	case isa.OpADD, isa.OpSUB, isa.OpMUL, isa.OpMLI:
		return 1
	case isa.OpDIV, isa.OpDVI, isa.OpMOD, isa.OpMDI:
		return 2
	case isa.OpADX, isa.OpSBX:
		return 2
	case isa.OpSTI, isa.OpSTD:
		return 1
	default:
		if op.IsConditional() {
			return 1
		}
		return 0
	}
}

func specialCycleCost(op isa.OpCode) uint64 {
	switch op {
	case isa.OpJSR:
		return 2
	case isa.OpINT:
		return 3
	case isa.OpIAQ:
		return 1
	case isa.OpHWQ, isa.OpHWI:
		return 3
	case isa.OpRFI:
		return 2
	default: // IAG, IAS, HWN
		return 0
	}
}

// execute carries out one already-decoded, non-skipped instruction: operand
// resolution (with side effects — PUSH/POP move SP), the opcode's semantics,
// and cycle accounting. A-position is resolved before B-position, matching
// DCPU-16's evaluation order (SET PUSH, POP pops then pushes).
func (c *CPU) execute(inst isa.Instruction) {
	var aScratch, bScratch uint16
	a := c.resolve(inst.A, inst.WordA, true, &aScratch)

	if inst.Special {
		c.Cycles += 1 + specialCycleCost(inst.Op)
		c.executeSpecial(inst.Op, a)
		return
	}

	b := c.resolve(inst.B, inst.WordB, false, &bScratch)
	c.Cycles += 1 + cycleCost(inst.Op)

	switch inst.Op {
	case isa.OpSET:
		*b = *a
	case isa.OpADD:
		v := uint32(*b) + uint32(*a)
		*b = uint16(v)
		c.ex = overflowFlag(v > 0xffff)
	case isa.OpSUB:
		v := int32(*b) - int32(*a)
		*b = uint16(v)
		if v < 0 {
			c.ex = 0xffff
		} else {
			c.ex = 0
		}
	case isa.OpMUL:
		v := uint32(*b) * uint32(*a)
		*b = uint16(v)
		c.ex = uint16(v >> 16)
	case isa.OpMLI:
		v := int32(int16(*b)) * int32(int16(*a))
		*b = uint16(v)
		c.ex = uint16(uint32(v) >> 16)
	case isa.OpDIV:
		if *a == 0 {
			*b, c.ex = 0, 0
		} else {
			bv := uint32(*b)
			*b = uint16(bv / uint32(*a))
			c.ex = uint16((bv << 16) / uint32(*a))
		}
	case isa.OpDVI:
		if *a == 0 {
			*b, c.ex = 0, 0
		} else {
			bv, av := int32(int16(*b)), int32(int16(*a))
			*b = uint16(bv / av)
			c.ex = uint16(uint32((bv<<16)/av) & 0xffff)
		}
	case isa.OpMOD:
		if *a == 0 {
			*b = 0
		} else {
			*b %= *a
		}
	case isa.OpMDI:
		if *a == 0 {
			*b = 0
		} else {
			bv, av := int32(int16(*b)), int32(int16(*a))
			*b = uint16(bv % av)
		}
	case isa.OpAND:
		*b &= *a
	case isa.OpBOR:
		*b |= *a
	case isa.OpXOR:
		*b ^= *a
	case isa.OpSHR:
		*b, c.ex = *b>>*a, uint16((uint32(*b)<<16)>>*a)
	case isa.OpASR:
		shifted := int32(int16(*b)) >> *a
		c.ex = uint16((uint32(int32(int16(*b))<<16) >> *a))
		*b = uint16(shifted)
	case isa.OpSHL:
		v := uint32(*b) << *a
		*b = uint16(v)
		c.ex = uint16(v >> 16)
	case isa.OpIFB:
		c.setSkip((*b & *a) == 0)
	case isa.OpIFC:
		c.setSkip((*b & *a) != 0)
	case isa.OpIFE:
		c.setSkip(*b != *a)
	case isa.OpIFN:
		c.setSkip(*b == *a)
	case isa.OpIFG:
		c.setSkip(*b <= *a)
	case isa.OpIFA:
		c.setSkip(int16(*b) <= int16(*a))
	case isa.OpIFL:
		c.setSkip(*b >= *a)
	case isa.OpIFU:
		c.setSkip(int16(*b) >= int16(*a))
	case isa.OpADX:
		v := uint32(*b) + uint32(*a) + uint32(c.ex)
		*b = uint16(v)
		c.ex = overflowFlag(v > 0xffff)
	case isa.OpSBX:
		v := int32(*b) - int32(*a) + int32(int16(c.ex))
		*b = uint16(v)
		if v < 0 {
			c.ex = 0xffff
		} else if v > 0xffff {
			c.ex = 1
		} else {
			c.ex = 0
		}
	case isa.OpSTI:
		*b = *a
		c.Reg[isa.I]++
		c.Reg[isa.J]++
	case isa.OpSTD:
		*b = *a
		c.Reg[isa.I]--
		c.Reg[isa.J]--
	}
}

func (c *CPU) executeSpecial(op isa.OpCode, a *uint16) {
	switch op {
	case isa.OpJSR:
		c.pushValue(c.pc)
		c.pc = *a
	case isa.OpINT:
		c.Interrupt(*a)
	case isa.OpIAG:
		*a = c.ia
	case isa.OpIAS:
		c.ia = *a
	case isa.OpRFI:
		c.Reg[isa.A] = c.popValue()
		c.pc = c.popValue()
	case isa.OpIAQ:
		// queueing on/off toggling is a no-op here: Step already serialises
		// interrupt delivery to one per instruction boundary.
	case isa.OpHWN:
		*a = 0
	case isa.OpHWQ, isa.OpHWI:
		// no attached hardware devices.
	}
}

func (c *CPU) setSkip(shouldSkip bool) {
	c.skip = shouldSkip
}

func overflowFlag(cond bool) uint16 {
	if cond {
		return 1
	}
	return 0
}
