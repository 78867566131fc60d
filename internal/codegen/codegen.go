// Package codegen translates an internal/bytecode Program into Z80
// instructions against an internal/z80asm Builder. It is grounded on the
// teacher's pkg/compiler/codegen.go: a single stateful walker that turns a
// linear intermediate form into assembly, one instruction at a time, using
// "L<n>" labels for every jump target.
//
// Every bytecode value lives as a 28-byte record either on the runtime's
// value stack (internal/runtime's VSPPtr-relative region) or in a fixed
// RAM cell (a global variable, or a frame slot addressed through FPPtr).
// Codegen never keeps a value in a Z80 register across instructions — each
// opcode pops its operands off the value stack into the runtime's scratch
// OpA/OpB cells, calls the matching internal/runtime routine, and pushes
// the result back.
package codegen

import (
	"fmt"

	"github.com/ajokela/kz80-bc/internal/bcd"
	"github.com/ajokela/kz80-bc/internal/bytecode"
	"github.com/ajokela/kz80-bc/internal/runtime"
	"github.com/ajokela/kz80-bc/internal/z80asm"
)

// Error reports an instruction codegen does not know how to translate. In
// practice this only fires on a malformed bytecode.Program, since
// internal/lower enumerates every AST shape.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "codegen: " + e.Msg }

// CodeGen holds the state threaded through one Emit pass.
type CodeGen struct {
	b    *z80asm.Builder
	prog *bytecode.Program

	funcByEntry map[bytecode.LabelID]*bytecode.Func
	cur         *bytecode.Func // nil at top level
	slots       map[byte]int   // letter -> frame slot index, valid only while cur != nil

	tmp int // counter for codegen-internal branch labels
}

// Emit translates prog's whole instruction stream onto b, starting at
// whatever address b.Here() currently is (internal/rom positions this
// after the runtime library and binds runtime.LblProgram to it).
func Emit(b *z80asm.Builder, prog *bytecode.Program) error {
	cg := &CodeGen{
		b:           b,
		prog:        prog,
		funcByEntry: make(map[bytecode.LabelID]*bytecode.Func),
	}
	for i := range prog.Funcs {
		cg.funcByEntry[prog.Funcs[i].Entry] = &prog.Funcs[i]
	}

	b.Label(runtime.LblProgram)
	for i, instr := range prog.Instrs {
		if i == prog.TopLevelCount {
			// The emitted program runs to completion and halts; without
			// this, falling off the top-level segment would execute
			// straight into the first function's body.
			b.HALT()
		}
		if err := cg.emit(instr); err != nil {
			return err
		}
	}
	if prog.TopLevelCount >= len(prog.Instrs) {
		b.HALT()
	}
	return nil
}

func labelName(id bytecode.LabelID) string {
	return fmt.Sprintf("L%d", id)
}

func (cg *CodeGen) newBranchLabel(tag string) string {
	cg.tmp++
	return fmt.Sprintf("cg_%s_%d", tag, cg.tmp)
}

func varAddr(letter byte) uint16 {
	return uint16(runtime.VarBase) + uint16(letter-'a')*bcd.Size
}

// frameSlot reports whether letter names a parameter or auto local of the
// function currently being lowered, and its slot index if so. Params come
// before autos, matching bytecode.Func's field order — the same order
// internal/lower used when it recorded EnterFrame's Locals count.
func (cg *CodeGen) frameSlot(letter byte) (int, bool) {
	if cg.cur == nil {
		return 0, false
	}
	idx, ok := cg.slots[letter]
	return idx, ok
}

func (cg *CodeGen) emit(instr bytecode.Instr) error {
	switch instr.Op {
	case bytecode.Label:
		b := cg.b
		b.Label(labelName(instr.Label))
		if fn, ok := cg.funcByEntry[instr.Label]; ok {
			cg.enterFunc(fn)
		}
		return nil

	case bytecode.PushConst:
		cg.b.LD_rr_label(z80asm.HL, ConstLabel(instr.Const))
		cg.b.CALL(runtime.LblVPushCopy)
		return nil

	case bytecode.LoadVar:
		return cg.emitLoadVar(instr.Letter)

	case bytecode.StoreVar:
		return cg.emitStoreVar(instr.Letter)

	case bytecode.LoadScale:
		cg.b.LD_A_NNAddr(runtime.ScaleAddr)
		cg.b.CALL(runtime.LblIntToBcd)
		cg.b.LD_rr_nn(z80asm.HL, runtime.OpA)
		cg.b.CALL(runtime.LblVPushCopy)
		return nil

	case bytecode.StoreScale:
		cg.b.LD_rr_nn(z80asm.DE, runtime.ReplTemp)
		cg.b.CALL(runtime.LblVPop)
		cg.b.LD_rr_nn(z80asm.HL, runtime.ReplTemp)
		cg.b.CALL(runtime.LblBcdToScale)
		cg.b.LD_NNAddr_A(runtime.ScaleAddr)
		return nil

	case bytecode.Add:
		cg.emitBinOp(runtime.LblBcdAdd)
		return nil
	case bytecode.Sub:
		cg.emitBinOp(runtime.LblBcdSub)
		return nil
	case bytecode.Mul:
		cg.emitBinOp(runtime.LblBcdMul)
		return nil
	case bytecode.Div:
		cg.emitBinOp(runtime.LblBcdDiv)
		return nil

	case bytecode.Neg:
		cg.b.LD_rr_nn(z80asm.DE, runtime.OpA)
		cg.b.CALL(runtime.LblVPop)
		cg.b.LD_rr_nn(z80asm.HL, runtime.OpA)
		cg.b.CALL(runtime.LblBcdNeg)
		cg.b.LD_rr_nn(z80asm.HL, runtime.OpA)
		cg.b.CALL(runtime.LblVPushCopy)
		return nil

	case bytecode.CmpLT:
		cg.emitCompare(0xFF, true)
		return nil
	case bytecode.CmpGT:
		cg.emitCompare(0x01, true)
		return nil
	case bytecode.CmpEQ:
		cg.emitCompare(0x00, true)
		return nil
	case bytecode.CmpNE:
		cg.emitCompare(0x00, false)
		return nil
	case bytecode.CmpLE:
		cg.emitCompare(0x01, false)
		return nil
	case bytecode.CmpGE:
		cg.emitCompare(0xFF, false)
		return nil

	case bytecode.JumpIfFalse:
		cg.b.LD_rr_nn(z80asm.DE, runtime.ReplTemp)
		cg.b.CALL(runtime.LblVPop)
		cg.b.LD_rr_nn(z80asm.HL, runtime.ReplTemp)
		cg.b.CALL(runtime.LblSign)
		cg.b.CP_n(0)
		cg.b.JP_cc(z80asm.CondZ, labelName(instr.Label))
		return nil

	case bytecode.Jump:
		cg.b.JP(labelName(instr.Label))
		return nil

	case bytecode.Call:
		fn := cg.prog.Funcs[instr.Func]
		cg.b.CALL(labelName(fn.Entry))
		return nil

	case bytecode.Return:
		cg.b.RET()
		return nil

	case bytecode.Print:
		cg.b.LD_rr_nn(z80asm.DE, runtime.ReplTemp)
		cg.b.CALL(runtime.LblVPop)
		cg.b.LD_rr_nn(z80asm.HL, runtime.ReplTemp)
		cg.b.CALL(runtime.LblBcdPrint)
		return nil

	case bytecode.Pop:
		cg.b.LD_rr_nn(z80asm.DE, runtime.ReplTemp)
		cg.b.CALL(runtime.LblVPop)
		return nil

	case bytecode.EnterFrame:
		cg.emitEnterFrame()
		return nil

	case bytecode.LeaveFrame:
		cg.emitLeaveFrame()
		return nil

	default:
		return &Error{Msg: fmt.Sprintf("unhandled bytecode op %s", instr.Op)}
	}
}

func ConstLabel(idx int) string { return fmt.Sprintf("const_%d", idx) }

// enterFunc switches codegen into fn's frame-slot context. Called the
// instant fn's entry label is bound, since EnterFrame (the very next
// instruction) already needs the slot map to size the frame.
func (cg *CodeGen) enterFunc(fn *bytecode.Func) {
	cg.cur = fn
	cg.slots = make(map[byte]int, len(fn.Params)+len(fn.Autos))
	for i, letter := range fn.Params {
		cg.slots[letter] = i
	}
	for i, letter := range fn.Autos {
		cg.slots[letter] = len(fn.Params) + i
	}
}

func (cg *CodeGen) emitLoadVar(letter byte) error {
	if idx, ok := cg.frameSlot(letter); ok {
		cg.emitFrameAddrToHL(idx)
		cg.b.CALL(runtime.LblVPushCopy)
		return nil
	}
	cg.b.LD_rr_nn(z80asm.HL, varAddr(letter))
	cg.b.CALL(runtime.LblVPushCopy)
	return nil
}

func (cg *CodeGen) emitStoreVar(letter byte) error {
	if idx, ok := cg.frameSlot(letter); ok {
		cg.emitFrameAddrToHL(idx)
		cg.b.EX_DE_HL()
		cg.b.CALL(runtime.LblVPop)
		return nil
	}
	cg.b.LD_rr_nn(z80asm.DE, varAddr(letter))
	cg.b.CALL(runtime.LblVPop)
	return nil
}

// emitFrameAddrToHL leaves the address of frame slot idx (relative to the
// currently executing function's base) in HL.
func (cg *CodeGen) emitFrameAddrToHL(idx int) {
	cg.b.LD_rr_NNIndAddr(z80asm.HL, runtime.FPPtr)
	cg.b.LD_rr_nn(z80asm.DE, uint16(idx*bcd.Size))
	cg.b.ADD_HL_rr(z80asm.DE)
}

func (cg *CodeGen) emitBinOp(routine string) {
	cg.b.LD_rr_nn(z80asm.DE, runtime.OpB)
	cg.b.CALL(runtime.LblVPop)
	cg.b.LD_rr_nn(z80asm.DE, runtime.OpA)
	cg.b.CALL(runtime.LblVPop)
	cg.b.CALL(routine)
	cg.b.LD_rr_nn(z80asm.HL, runtime.OpA)
	cg.b.CALL(runtime.LblVPushCopy)
}

// emitCompare computes lhs-rhs's sign (0, 1, or 0xFF) via rt_sign and
// derives a 0/1 boolean: when matchIsTrue, the comparison is true exactly
// when the sign equals want; otherwise it's true exactly when the sign
// differs from want. All six comparison operators reduce to one of these
// two shapes.
func (cg *CodeGen) emitCompare(want byte, matchIsTrue bool) {
	cg.b.LD_rr_nn(z80asm.DE, runtime.OpB)
	cg.b.CALL(runtime.LblVPop)
	cg.b.LD_rr_nn(z80asm.DE, runtime.OpA)
	cg.b.CALL(runtime.LblVPop)
	cg.b.CALL(runtime.LblBcdSub) // OpA -= OpB
	cg.b.LD_rr_nn(z80asm.HL, runtime.OpA)
	cg.b.CALL(runtime.LblSign)

	branch := cg.newBranchLabel("cmp")
	end := cg.newBranchLabel("cmpend")
	cg.b.CP_n(want)
	cg.b.JP_cc(z80asm.CondZ, branch)
	if matchIsTrue {
		cg.b.LD_r_n(z80asm.RA, 0)
	} else {
		cg.b.LD_r_n(z80asm.RA, 1)
	}
	cg.b.JP(end)
	cg.b.Label(branch)
	if matchIsTrue {
		cg.b.LD_r_n(z80asm.RA, 1)
	} else {
		cg.b.LD_r_n(z80asm.RA, 0)
	}
	cg.b.Label(end)

	cg.b.CALL(runtime.LblIntToBcd)
	cg.b.LD_rr_nn(z80asm.HL, runtime.OpA)
	cg.b.CALL(runtime.LblVPushCopy)
}

// emitEnterFrame lays out the currently-entered function's frame: the
// caller's frame pointer is saved on the hardware stack (mirroring how
// CALL just saved the return address there), the new frame's base is the
// locals stack's current high-water mark, arguments already sitting on the
// value stack are popped into the parameter slots (in reverse push order,
// since the value stack is LIFO), the auto-local slots are zeroed, and the
// locals stack pointer is bumped past the whole frame.
func (cg *CodeGen) emitEnterFrame() {
	b := cg.b
	numParams := len(cg.cur.Params)
	numLocals := len(cg.cur.Params) + len(cg.cur.Autos)

	b.LD_rr_NNIndAddr(z80asm.HL, runtime.FPPtr)
	b.PUSH(z80asm.PushHL)
	b.LD_rr_NNIndAddr(z80asm.HL, runtime.LSPPtr)
	b.LD_NNAddr_HL(runtime.FPPtr)

	for i := numParams - 1; i >= 0; i-- {
		cg.emitFrameAddrToHL(i)
		b.EX_DE_HL()
		b.CALL(runtime.LblVPop)
	}

	if autoBytes := (numLocals - numParams) * bcd.Size; autoBytes > 0 {
		b.LD_rr_NNIndAddr(z80asm.HL, runtime.FPPtr)
		b.LD_rr_nn(z80asm.DE, uint16(numParams*bcd.Size))
		b.ADD_HL_rr(z80asm.DE)
		b.LD_rr_nn(z80asm.BC, uint16(autoBytes))
		loop := cg.newBranchLabel("zeroautos")
		b.Label(loop)
		b.XOR_r(z80asm.RA)
		b.LD_r_r(z80asm.RM, z80asm.RA)
		b.INC_rr(z80asm.HL)
		b.DEC_rr(z80asm.BC)
		b.LD_r_r(z80asm.RA, z80asm.RB)
		b.OR_r(z80asm.RC)
		b.JP_cc(z80asm.CondNZ, loop)
	}

	b.LD_rr_NNIndAddr(z80asm.HL, runtime.FPPtr)
	b.LD_rr_nn(z80asm.DE, uint16(numLocals*bcd.Size))
	b.ADD_HL_rr(z80asm.DE)
	b.LD_NNAddr_HL(runtime.LSPPtr)
}

// emitLeaveFrame tears down the current frame: the locals stack shrinks
// back to this frame's base, then the caller's frame pointer is restored
// from the hardware stack. It does not touch the value stack — the return
// expression's already-pushed result rides through it untouched.
func (cg *CodeGen) emitLeaveFrame() {
	b := cg.b
	b.LD_rr_NNIndAddr(z80asm.HL, runtime.FPPtr)
	b.LD_NNAddr_HL(runtime.LSPPtr)
	b.POP(z80asm.PushHL)
	b.LD_NNAddr_HL(runtime.FPPtr)
}
