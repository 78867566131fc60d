// Package z80asm is a programmatic Z80 instruction builder: callers invoke
// typed methods per addressing mode instead of assembling textual source,
// since every caller in this repository is generated code, not a human
// author. It performs a two-pass label resolution: pass one appends real
// opcode bytes and placeholder operand bytes while recording a fixup for
// any forward-referenced label; Link (pass two)
// patches every fixup once all labels are bound.
package z80asm

import "fmt"

// Reg8 identifies one of the eight 8-bit operand encodings share by most
// Z80 opcodes. RM stands for (HL), the "register" slot the encoding table
// treats identically to a real register (original_source/src/z80.rs).
type Reg8 byte

const (
	RB Reg8 = iota
	RC
	RD
	RE
	RH
	RL
	RM // (HL)
	RA
)

// RegPair identifies a 16-bit register pair as used by LD rr,nn / INC rr /
// DEC rr / ADD HL,rr.
type RegPair byte

const (
	BC RegPair = iota
	DE
	HL
	SP
)

// PushPair identifies a register pair as used by PUSH/POP, which encode AF
// where LD rr,nn-style instructions would encode SP.
type PushPair byte

const (
	PushBC PushPair = iota
	PushDE
	PushHL
	PushAF
)

// Cond identifies one of the four condition codes this runtime uses for
// conditional jumps, calls, and returns.
type Cond byte

const (
	CondNZ Cond = iota
	CondZ
	CondNC
	CondC
)

// Error reports a Builder.Link failure: an unresolved label or a relative
// branch whose target is out of an 8-bit displacement's range.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "z80asm: " + e.Msg }

type fixupKind int

const (
	fixAbs16 fixupKind = iota
	fixRel8
)

type fixup struct {
	offset int
	label  string
	kind   fixupKind
}

// Builder accumulates a byte stream starting at address 0, matching this
// ROM's memory map: byte 0 is the first instruction executed after reset.
// Every emitted instruction lands at len(buf), so Builder never needs a
// separate address counter.
type Builder struct {
	buf    []byte
	labels map[string]uint16
	fixups []fixup
}

func NewBuilder() *Builder {
	return &Builder{labels: make(map[string]uint16)}
}

// Here returns the address the next emitted byte will occupy.
func (b *Builder) Here() uint16 { return uint16(len(b.buf)) }

// Len returns the number of bytes emitted so far.
func (b *Builder) Len() int { return len(b.buf) }

// Label binds name to the current address. Labels are single-assignment;
// binding the same name twice is a programming error in the caller (the
// generated program has a fixed, enumerable label set) and panics rather
// than surfacing as a compile error a user could trigger.
func (b *Builder) Label(name string) *Builder {
	if _, exists := b.labels[name]; exists {
		panic("z80asm: duplicate label " + name)
	}
	b.labels[name] = b.Here()
	return b
}

// Addr returns the address bound to name, if any.
func (b *Builder) Addr(name string) (uint16, bool) {
	addr, ok := b.labels[name]
	return addr, ok
}

func (b *Builder) emit8(v byte) { b.buf = append(b.buf, v) }

func (b *Builder) emitImm16(v uint16) {
	b.buf = append(b.buf, byte(v), byte(v>>8))
}

// Byte appends a single raw byte.
func (b *Builder) Byte(v byte) *Builder { b.emit8(v); return b }

// Bytes appends raw bytes in order.
func (b *Builder) Bytes(vs ...byte) *Builder {
	b.buf = append(b.buf, vs...)
	return b
}

// DB is an alias for Bytes matching the runtime's assembly-source naming
// for a data-byte directive.
func (b *Builder) DB(vs ...byte) *Builder { return b.Bytes(vs...) }

// DW appends 16-bit little-endian words.
func (b *Builder) DW(vs ...uint16) *Builder {
	for _, v := range vs {
		b.emitImm16(v)
	}
	return b
}

// Pad appends n bytes of fill.
func (b *Builder) Pad(n int, fill byte) *Builder {
	for i := 0; i < n; i++ {
		b.emit8(fill)
	}
	return b
}

// PadTo appends fill bytes until Here() reaches addr. addr must not be
// behind the current position.
func (b *Builder) PadTo(addr uint16, fill byte) *Builder {
	if b.Here() > addr {
		panic(fmt.Sprintf("z80asm: PadTo(%#04x) is behind current position %#04x", addr, b.Here()))
	}
	for b.Here() < addr {
		b.emit8(fill)
	}
	return b
}

func (b *Builder) abs16Fixup(label string) {
	b.fixups = append(b.fixups, fixup{offset: len(b.buf), label: label, kind: fixAbs16})
	b.emitImm16(0)
}

func (b *Builder) rel8Fixup(label string) {
	b.fixups = append(b.fixups, fixup{offset: len(b.buf), label: label, kind: fixRel8})
	b.emit8(0)
}

//  8-bit loads

// LD_r_r encodes `LD dst, src` (0x40 + dst*8 + src). (HL),(HL) is not a
// valid load — that encoding is HALT.
func (b *Builder) LD_r_r(dst, src Reg8) *Builder {
	if dst == RM && src == RM {
		panic("z80asm: LD (HL),(HL) is HALT, not a valid load")
	}
	return b.Byte(0x40 + byte(dst)*8 + byte(src))
}

// LD_r_n encodes `LD r, n` (0x06 + r*8).
func (b *Builder) LD_r_n(dst Reg8, n byte) *Builder {
	return b.Bytes(0x06+byte(dst)*8, n)
}

func (b *Builder) LD_A_BC() *Builder { return b.Byte(0x0A) }
func (b *Builder) LD_A_DE() *Builder { return b.Byte(0x1A) }
func (b *Builder) LD_BC_A() *Builder { return b.Byte(0x02) }
func (b *Builder) LD_DE_A() *Builder { return b.Byte(0x12) }

// LD_A_NN encodes `LD A, (label)`.
func (b *Builder) LD_A_NN(label string) *Builder {
	b.Byte(0x3A)
	b.abs16Fixup(label)
	return b
}

// LD_NN_A encodes `LD (label), A`.
func (b *Builder) LD_NN_A(label string) *Builder {
	b.Byte(0x32)
	b.abs16Fixup(label)
	return b
}

//  16-bit loads

// LD_rr_nn encodes `LD rr, nn` (0x01 + rr*16).
func (b *Builder) LD_rr_nn(rr RegPair, nn uint16) *Builder {
	b.Byte(0x01 + byte(rr)*16)
	b.emitImm16(nn)
	return b
}

// LD_rr_label encodes `LD rr, label` (the label's address as the
// immediate).
func (b *Builder) LD_rr_label(rr RegPair, label string) *Builder {
	b.Byte(0x01 + byte(rr)*16)
	b.abs16Fixup(label)
	return b
}

// LD_NN_HL encodes `LD (label), HL`.
func (b *Builder) LD_NN_HL(label string) *Builder {
	b.Byte(0x22)
	b.abs16Fixup(label)
	return b
}

// LD_HL_NNInd encodes `LD HL, (label)`.
func (b *Builder) LD_HL_NNInd(label string) *Builder {
	b.Byte(0x2A)
	b.abs16Fixup(label)
	return b
}

// LD_rr_NNInd encodes the ED-prefixed `LD rr, (label)` form used for
// BC/DE/SP (HL has the shorter LD_HL_NNInd encoding above, but the ED form
// works for it too if ever needed uniformly).
func (b *Builder) LD_rr_NNInd(rr RegPair, label string) *Builder {
	b.Bytes(0xED, 0x4B+byte(rr)*16)
	b.abs16Fixup(label)
	return b
}

// LD_NN_rr encodes the ED-prefixed `LD (label), rr` form used for
// BC/DE/SP (mirrors LD_NN_HL for HL).
func (b *Builder) LD_NN_rr(rr RegPair, label string) *Builder {
	b.Bytes(0xED, 0x43+byte(rr)*16)
	b.abs16Fixup(label)
	return b
}

// LD_SP_HL encodes `LD SP, HL`.
func (b *Builder) LD_SP_HL() *Builder { return b.Byte(0xF9) }

// The *Addr variants below take a numeric address directly instead of a
// label, for RAM cells whose address is a Go-side constant rather than
// something Link needs to resolve (the fixed variable bank, scale cell,
// value-stack pointer, and similar zero-allocation state).

func (b *Builder) LD_A_NNAddr(addr uint16) *Builder     { b.Byte(0x3A); b.emitImm16(addr); return b }
func (b *Builder) LD_NNAddr_A(addr uint16) *Builder     { b.Byte(0x32); b.emitImm16(addr); return b }
func (b *Builder) LD_HL_NNIndAddr(addr uint16) *Builder { b.Byte(0x2A); b.emitImm16(addr); return b }
func (b *Builder) LD_NNAddr_HL(addr uint16) *Builder    { b.Byte(0x22); b.emitImm16(addr); return b }

func (b *Builder) LD_rr_NNIndAddr(rr RegPair, addr uint16) *Builder {
	b.Bytes(0xED, 0x4B+byte(rr)*16)
	b.emitImm16(addr)
	return b
}

func (b *Builder) LD_NNAddr_rr(rr RegPair, addr uint16) *Builder {
	b.Bytes(0xED, 0x43+byte(rr)*16)
	b.emitImm16(addr)
	return b
}

//  Arithmetic / logic (accumulator ops)

func (b *Builder) ADD_A_r(r Reg8) *Builder { return b.Byte(0x80 + byte(r)) }
func (b *Builder) ADD_A_n(n byte) *Builder { return b.Bytes(0xC6, n) }
func (b *Builder) ADC_A_r(r Reg8) *Builder { return b.Byte(0x88 + byte(r)) }
func (b *Builder) ADC_A_n(n byte) *Builder { return b.Bytes(0xCE, n) }
func (b *Builder) SUB_r(r Reg8) *Builder   { return b.Byte(0x90 + byte(r)) }
func (b *Builder) SUB_n(n byte) *Builder   { return b.Bytes(0xD6, n) }
func (b *Builder) SBC_A_r(r Reg8) *Builder { return b.Byte(0x98 + byte(r)) }
func (b *Builder) SBC_A_n(n byte) *Builder { return b.Bytes(0xDE, n) }
func (b *Builder) AND_r(r Reg8) *Builder   { return b.Byte(0xA0 + byte(r)) }
func (b *Builder) AND_n(n byte) *Builder   { return b.Bytes(0xE6, n) }
func (b *Builder) XOR_r(r Reg8) *Builder   { return b.Byte(0xA8 + byte(r)) }
func (b *Builder) XOR_n(n byte) *Builder   { return b.Bytes(0xEE, n) }
func (b *Builder) OR_r(r Reg8) *Builder    { return b.Byte(0xB0 + byte(r)) }
func (b *Builder) OR_n(n byte) *Builder    { return b.Bytes(0xF6, n) }
func (b *Builder) CP_r(r Reg8) *Builder    { return b.Byte(0xB8 + byte(r)) }
func (b *Builder) CP_n(n byte) *Builder    { return b.Bytes(0xFE, n) }

// ADD_HL_rr encodes `ADD HL, rr` (0x09 + rr*16).
func (b *Builder) ADD_HL_rr(rr RegPair) *Builder { return b.Byte(0x09 + byte(rr)*16) }

func (b *Builder) INC_r(r Reg8) *Builder    { return b.Byte(0x04 + byte(r)*8) }
func (b *Builder) DEC_r(r Reg8) *Builder    { return b.Byte(0x05 + byte(r)*8) }
func (b *Builder) INC_rr(rr RegPair) *Builder { return b.Byte(0x03 + byte(rr)*16) }
func (b *Builder) DEC_rr(rr RegPair) *Builder { return b.Byte(0x0B + byte(rr)*16) }

func (b *Builder) DAA() *Builder  { return b.Byte(0x27) }
func (b *Builder) CPL() *Builder  { return b.Byte(0x2F) }
func (b *Builder) NEG() *Builder  { return b.Bytes(0xED, 0x44) }
func (b *Builder) SCF() *Builder  { return b.Byte(0x37) }
func (b *Builder) CCF() *Builder  { return b.Byte(0x3F) }
func (b *Builder) NOP() *Builder  { return b.Byte(0x00) }
func (b *Builder) HALT() *Builder { return b.Byte(0x76) }
func (b *Builder) DI() *Builder   { return b.Byte(0xF3) }
func (b *Builder) EI() *Builder   { return b.Byte(0xFB) }

func (b *Builder) EX_DE_HL() *Builder { return b.Byte(0xEB) }

func (b *Builder) RLCA() *Builder { return b.Byte(0x07) }
func (b *Builder) RRCA() *Builder { return b.Byte(0x0F) }
func (b *Builder) RLA() *Builder  { return b.Byte(0x17) }
func (b *Builder) RRA() *Builder  { return b.Byte(0x1F) }

// SRL_r encodes the CB-prefixed `SRL r` (logical shift right, bit 0 into
// carry, 0 into bit 7). Used by the BCD runtime for digit-index/2 math.
func (b *Builder) SRL_r(r Reg8) *Builder { return b.Bytes(0xCB, 0x38+byte(r)) }

// SLA_r encodes the CB-prefixed `SLA r` (arithmetic shift left).
func (b *Builder) SLA_r(r Reg8) *Builder { return b.Bytes(0xCB, 0x20+byte(r)) }

// SBC_HL_rr encodes the ED-prefixed `SBC HL, rr`.
func (b *Builder) SBC_HL_rr(rr RegPair) *Builder { return b.Bytes(0xED, 0x42+byte(rr)*16) }

// ADC_HL_rr encodes the ED-prefixed `ADC HL, rr`.
func (b *Builder) ADC_HL_rr(rr RegPair) *Builder { return b.Bytes(0xED, 0x4A+byte(rr)*16) }

//  Control flow

// JP encodes `JP label` (unconditional absolute jump).
func (b *Builder) JP(label string) *Builder {
	b.Byte(0xC3)
	b.abs16Fixup(label)
	return b
}

// JP_cc encodes `JP cc, label` (0xC2 + cc*8).
func (b *Builder) JP_cc(cc Cond, label string) *Builder {
	b.Byte(0xC2 + byte(cc)*8)
	b.abs16Fixup(label)
	return b
}

func (b *Builder) JP_HL() *Builder { return b.Byte(0xE9) }

// JR encodes `JR label` (unconditional relative jump, -128..127 range).
func (b *Builder) JR(label string) *Builder {
	b.Byte(0x18)
	b.rel8Fixup(label)
	return b
}

// JR_cc encodes `JR cc, label` (0x20 + cc*8). Only NZ/Z/NC/C are valid
// conditions for JR on real Z80 hardware.
func (b *Builder) JR_cc(cc Cond, label string) *Builder {
	b.Byte(0x20 + byte(cc)*8)
	b.rel8Fixup(label)
	return b
}

// DJNZ encodes `DJNZ label`: decrement B, jump relative if nonzero.
func (b *Builder) DJNZ(label string) *Builder {
	b.Byte(0x10)
	b.rel8Fixup(label)
	return b
}

// CALL encodes `CALL label` (unconditional).
func (b *Builder) CALL(label string) *Builder {
	b.Byte(0xCD)
	b.abs16Fixup(label)
	return b
}

// CALL_cc encodes `CALL cc, label` (0xC4 + cc*8).
func (b *Builder) CALL_cc(cc Cond, label string) *Builder {
	b.Byte(0xC4 + byte(cc)*8)
	b.abs16Fixup(label)
	return b
}

func (b *Builder) RET() *Builder          { return b.Byte(0xC9) }
func (b *Builder) RET_cc(cc Cond) *Builder { return b.Byte(0xC0 + byte(cc)*8) }

func (b *Builder) PUSH(p PushPair) *Builder { return b.Byte(0xC5 + byte(p)*16) }
func (b *Builder) POP(p PushPair) *Builder  { return b.Byte(0xC1 + byte(p)*16) }

//  I/O

func (b *Builder) OUT_N_A(n byte) *Builder { return b.Bytes(0xD3, n) }
func (b *Builder) IN_A_N(n byte) *Builder  { return b.Bytes(0xDB, n) }

// Link patches every recorded fixup now that all labels are bound and
// returns the finished byte stream. It is an error for any referenced
// label to remain unbound, or for a relative branch's target to fall
// outside an 8-bit signed displacement.
func (b *Builder) Link() ([]byte, error) {
	for _, fx := range b.fixups {
		addr, ok := b.labels[fx.label]
		if !ok {
			return nil, &Error{Msg: fmt.Sprintf("unresolved label %q", fx.label)}
		}
		switch fx.kind {
		case fixAbs16:
			b.buf[fx.offset] = byte(addr)
			b.buf[fx.offset+1] = byte(addr >> 8)
		case fixRel8:
			instrEnd := fx.offset + 1
			rel := int(addr) - instrEnd
			if rel < -128 || rel > 127 {
				return nil, &Error{Msg: fmt.Sprintf("relative branch to %q out of range (%d)", fx.label, rel)}
			}
			b.buf[fx.offset] = byte(int8(rel))
		}
	}
	return b.buf, nil
}
