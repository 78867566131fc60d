// Package runtime emits the fixed-address BCD arithmetic library and
// polled-serial I/O that every compiled program calls into: addition,
// subtraction, multiplication, division, negation, decimal printing, and
// the value-stack/frame-stack primitives internal/codegen builds
// expressions and calls on top of. It is grounded on
// original_source/src/z80.rs's emit_bcd_add_routine / emit_bcd_sub_routine
// / emit_bcd_mul_routine / emit_bcd_div_routine / emit_bcd_mul10_routine —
// the prior implementation this specification was distilled from used the
// same DAA-per-byte and repeated-addition/repeated-subtraction techniques.
package runtime

import "github.com/ajokela/kz80-bc/internal/bcd"

// RAM layout. ROM occupies 0x0000..0x7FFF; RAM starts at 0x8000. Every
// region is a fixed address baked into the emitted code, matching the
// teacher's fixed zero-page conventions in
// pkg/cpu — there is no dynamic memory allocator here.
const (
	RAMBase = 0x8000

	// 26 single-letter global variables, a-z, one 28-byte BCD record each.
	VarBase   = RAMBase
	varSlots  = 26
	varsBytes = varSlots * bcd.Size

	// The `scale` pseudo-variable, range 0-50.
	ScaleAddr = VarBase + varsBytes

	// Scratch operand buffers shared by every arithmetic opcode's codegen:
	// operands are copied in, the runtime routine computes in place, the
	// codegen pushes OpA (now holding the result) back onto the value
	// stack. REPL_TEMP mirrors the original's multiply/divide scratch
	// copy area.
	OpA      = ScaleAddr + 1
	OpB      = OpA + bcd.Size
	ReplTemp = OpB + bcd.Size

	// Misc scratch cells for runtime-internal state (multiply/divide
	// binary counters, digit-conversion temporaries).
	ScratchBase = ReplTemp + bcd.Size
	ScratchSize = 24

	// Frame bookkeeping. FPPtr is the base address of the currently
	// executing function's param+auto slots; LSPPtr is the bump
	// allocator's high-water mark within LocalsStack. Both are 16-bit
	// cells rather than CPU registers because Z80 has no spare register
	// pair free across nested CALLs.
	FPPtr  = ScratchBase + ScratchSize
	LSPPtr = FPPtr + 2
	VSPPtr = LSPPtr + 2

	// Per-call local storage, a LIFO bump-allocated region distinct from
	// the hardware call stack (which only ever holds return addresses and
	// saved frame pointers) and from the expression value stack.
	LocalsStackBase  = VSPPtr + 2
	LocalsStackSlots = 64
	LocalsStackSize  = LocalsStackSlots * bcd.Size

	// The expression value stack: every PushConst/LoadVar/arithmetic
	// result lives here as a 28-byte record, growing upward from
	// ValueStackBase: pushing/popping the value stack copies 28 bytes.
	ValueStackBase  = LocalsStackBase + LocalsStackSize
	ValueStackSlots = 64
	ValueStackSize  = ValueStackSlots * bcd.Size

	// Z80 hardware stack (CALL/RET return addresses, saved frame
	// pointers around Call). Grows down from the top of a 32K RAM.
	StackPointerInit = 0xFFFE
)

// I/O ports for the MC6850-style ACIA.
const (
	AciaStatusPort = 0x80
	AciaDataPort   = 0x81
	aciaTxReadyBit = 1 << 1
)

// Well-known label names. EmitInit binds "init", internal/codegen binds
// "program", internal/rom binds "const_pool", and EmitRuntime binds the rt_*
// routines. internal/codegen and internal/rom CALL or JP to these by name; they never need the numeric address, only the
// symbol, since internal/z80asm resolves it at Link time.
const (
	LblInit     = "init"
	LblProgram  = "program"
	LblConstPool = "const_pool"

	LblCopy28      = "rt_copy28"
	LblVPushCopy   = "rt_vpush_copy"
	LblVPop        = "rt_vpop"
	LblShiftLeft1  = "rt_shift_left1"
	LblUnpackLast2 = "rt_unpack_last2"
	LblPackLast2   = "rt_pack_last2"
	LblBcdAdd      = "rt_bcd_add"
	LblBcdSub      = "rt_bcd_sub"
	LblBcdMul      = "rt_bcd_mul"
	LblBcdDiv      = "rt_bcd_div"
	LblBcdNeg      = "rt_bcd_neg"
	LblBcdPrint    = "rt_bcd_print"
	LblPutChar     = "rt_putchar"
)
