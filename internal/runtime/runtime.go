package runtime

import "github.com/ajokela/kz80-bc/internal/z80asm"

// Scratch cell offsets. Distinct routines get non-overlapping ranges even
// where their lifetimes never truly overlap, since the CALL graph makes
// "this routine's scratch is dead by the time that one runs" hard to audit
// by eye.
const (
	scAlignA    = ScratchBase + 0  // rt_align_scales: operand A's scale
	scAlignB    = ScratchBase + 1  // rt_align_scales: operand B's scale
	scAlignTgt  = ScratchBase + 2  // rt_align_scales: the winning (max) scale
	scSign      = ScratchBase + 3  // rt_bcd_mul/rt_bcd_div: stashed result sign
	scScale     = ScratchBase + 4  // rt_bcd_mul: lhsScale+rhsScale before truncation
	scQuotLo    = ScratchBase + 5  // rt_bcd_div: binary quotient, low byte
	scQuotHi    = ScratchBase + 6  // rt_bcd_div: binary quotient, high byte
	scParity    = ScratchBase + 7  // rt_get_digit: 1 if the target nibble is the low one
	scRecPtrLo  = ScratchBase + 8  // rt_bcd_print: record pointer, low byte
	scRecPtrHi  = ScratchBase + 9  // rt_bcd_print: record pointer, high byte
	scIntDigits = ScratchBase + 10 // rt_bcd_print: MaxDigits - scale
	scStarted   = ScratchBase + 11 // rt_bcd_print: has a non-suppressed digit printed yet
	scIsLast    = ScratchBase + 12 // rt_bcd_print: is the current index the final integer digit
	scDigit     = ScratchBase + 13 // rt_bcd_print: the digit just fetched

	scToScaleRec       = ScratchBase + 14 // rt_bcd_to_scale: record pointer, 2 bytes
	scToScaleIntDigits = ScratchBase + 16 // rt_bcd_to_scale: MaxDigits - record's scale
	scToScaleValue     = ScratchBase + 17 // rt_bcd_to_scale: accumulated integer value, truncated to a byte
	scToScaleIdx       = ScratchBase + 18 // rt_bcd_to_scale: digit index into the integer part

	scPackDigits = ScratchBase + 19 // rt_pack_last2: thousands, hundreds, tens, units digits, 4 bytes
)

const maxDigits = 50 // bcd.MaxDigits, duplicated to avoid importing bcd for one constant

// Labels of routines defined here rather than in layout.go; internal/codegen
// calls rt_sign, rt_int_to_bcd and rt_bcd_to_scale directly.
const (
	LblShiftRight1 = "rt_shift_right1"
	LblUnpackByte  = "rt_unpack_byte"
	LblMagAdd      = "rt_mag_add"
	LblMagSub      = "rt_mag_sub"
	LblCanonZero   = "rt_canon_zero"
	LblAlignScales = "rt_align_scales"
	LblGetDigit    = "rt_get_digit"
	LblSign        = "rt_sign"
	LblIntToBcd    = "rt_int_to_bcd"
	LblBcdToScale  = "rt_bcd_to_scale"
)

// EmitRuntime lays down the BCD runtime library: every routine
// internal/codegen calls into for arithmetic, printing and serial I/O.
// Order doesn't matter for correctness (internal/z80asm resolves labels at
// Link time), so some routines, such as rt_putchar, are emitted after
// their callers.
func EmitRuntime(b *z80asm.Builder) {
	emitCopy28(b)
	emitVPushCopy(b)
	emitVPop(b)
	emitShiftLeft1(b)
	emitShiftRight1(b)
	emitUnpackByte(b)
	emitUnpackLast2(b)
	emitPackLast2(b)
	emitMagAdd(b)
	emitMagSub(b)
	emitCanonZero(b)
	emitAlignScales(b)
	emitBcdNeg(b)
	emitBcdAdd(b)
	emitBcdSub(b)
	emitBcdMul(b)
	emitBcdDiv(b)
	emitGetDigit(b)
	emitBcdPrint(b)
	emitPutChar(b)
	emitSign(b)
	emitIntToBcd(b)
	emitBcdToScale(b)
}

// EmitInit emits the reset entry point: initializes the hardware stack,
// zeroes the variable bank, sets scale to 0, sets up the value-stack and
// locals-stack pointers, then jumps to programEntry. Grounded on the
// teacher's pkg/cpu reset conventions: fixed addresses, no allocator.
func EmitInit(b *z80asm.Builder, programEntry string) {
	b.Label(LblInit)
	b.LD_rr_nn(z80asm.SP, StackPointerInit)

	b.LD_rr_nn(z80asm.HL, VarBase)
	b.LD_rr_nn(z80asm.BC, varsBytes)
	loop := LblInit + "_zerovars"
	b.Label(loop)
	b.XOR_r(z80asm.RA)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.INC_rr(z80asm.HL)
	b.DEC_rr(z80asm.BC)
	b.LD_r_r(z80asm.RA, z80asm.RB)
	b.OR_r(z80asm.RC)
	b.JP_cc(z80asm.CondNZ, loop)

	b.XOR_r(z80asm.RA)
	b.LD_NNAddr_A(ScaleAddr)

	b.LD_rr_nn(z80asm.HL, ValueStackBase)
	b.LD_NNAddr_HL(VSPPtr)
	b.LD_rr_nn(z80asm.HL, LocalsStackBase)
	b.LD_NNAddr_HL(LSPPtr)
	b.LD_NNAddr_HL(FPPtr)

	b.JP(programEntry)
}

// emitCopy28 copies the 28-byte record at HL to DE. Clobbers A, B, HL, DE.
func emitCopy28(b *z80asm.Builder) {
	b.Label(LblCopy28)
	b.LD_r_n(z80asm.RB, bcdSize)
	loop := LblCopy28 + "_loop"
	b.Label(loop)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.LD_DE_A()
	b.INC_rr(z80asm.HL)
	b.INC_rr(z80asm.DE)
	b.DJNZ(loop)
	b.RET()
}

const bcdSize = 28

// emitVPushCopy appends the record at HL onto the value stack and advances
// VSPPtr by 28 bytes. Clobbers A, B, HL, DE.
func emitVPushCopy(b *z80asm.Builder) {
	b.Label(LblVPushCopy)
	b.PUSH(z80asm.PushHL) // src, saved across the DE load below
	b.LD_rr_NNIndAddr(z80asm.DE, VSPPtr)
	b.POP(z80asm.PushHL)
	b.CALL(LblCopy28)

	b.LD_rr_NNIndAddr(z80asm.HL, VSPPtr)
	b.LD_rr_nn(z80asm.DE, bcdSize)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_NNAddr_HL(VSPPtr)
	b.RET()
}

// emitVPop copies the top of the value stack into the record at DE and
// retreats VSPPtr by 28 bytes. Clobbers A, B, HL, DE.
func emitVPop(b *z80asm.Builder) {
	b.Label(LblVPop)
	b.PUSH(z80asm.PushDE) // dst, saved across the pointer bookkeeping below
	b.LD_rr_NNIndAddr(z80asm.HL, VSPPtr)
	b.LD_rr_nn(z80asm.DE, uint16(0x10000-bcdSize))
	b.ADD_HL_rr(z80asm.DE)
	b.LD_NNAddr_HL(VSPPtr) // HL is now also the popped slot's address (src)
	b.POP(z80asm.PushDE)   // restore dst
	b.CALL(LblCopy28)
	b.RET()
}

// emitShiftLeft1 multiplies the 50-digit value at HL by 10 in place,
// silently dropping the digit shifted out of the top. Grounded
// on original_source's emit_bcd_mul10_routine: right-to-left nibble
// rotation with an inter-byte carry, no RLD/RRD. Processes least-significant
// byte first; C carries the previous byte's high digit into this byte's low
// nibble, D stashes the byte's original value since (HL) gets overwritten
// before its high nibble is needed for the next iteration's carry.
// Clobbers A, B, C, D, E, HL.
func emitShiftLeft1(b *z80asm.Builder) {
	b.Label(LblShiftLeft1)
	b.LD_rr_nn(z80asm.DE, 27)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_n(z80asm.RB, 25)
	b.LD_r_n(z80asm.RC, 0) // carry-in nibble, right-justified; 0 for the least-significant byte
	loop := LblShiftLeft1 + "_loop"
	b.Label(loop)
	b.LD_r_r(z80asm.RA, z80asm.RM) // A = original byte
	b.LD_r_r(z80asm.RD, z80asm.RA) // D = stash of original byte
	b.AND_n(0x0F)                  // A = original low nibble, right-justified
	b.RLCA()
	b.RLCA()
	b.RLCA()
	b.RLCA() // A = original low nibble, now left-justified (this byte's new high digit)
	b.OR_r(z80asm.RC)
	b.LD_r_r(z80asm.RM, z80asm.RA) // store new byte = (orig low nibble)<<4 | carry-in
	b.LD_r_r(z80asm.RA, z80asm.RD) // A = original byte again, from the stash
	b.RRCA()
	b.RRCA()
	b.RRCA()
	b.RRCA()
	b.AND_n(0x0F) // A = original high nibble, right-justified: next byte's carry-in
	b.LD_r_r(z80asm.RC, z80asm.RA)
	b.DEC_rr(z80asm.HL)
	b.DJNZ(loop)
	b.RET()
}

// emitShiftRight1 divides the 50-digit value at HL by 10 in place,
// discarding the least-significant digit (used to truncate a multiply
// result down to the global scale). Left-to-right nibble rotation, the
// mirror image of emitShiftLeft1: C carries the previous byte's low digit
// into this byte's high nibble, D stashes the byte's original value, E
// holds this byte's own new low nibble while C is shifted into position.
// Clobbers A, B, C, D, E, HL.
func emitShiftRight1(b *z80asm.Builder) {
	b.Label(LblShiftRight1)
	b.LD_rr_nn(z80asm.DE, 3)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_n(z80asm.RB, 25)
	b.LD_r_n(z80asm.RC, 0) // carry-in nibble, right-justified; 0 for the most-significant byte
	loop := LblShiftRight1 + "_loop"
	b.Label(loop)
	b.LD_r_r(z80asm.RA, z80asm.RM) // A = original byte
	b.LD_r_r(z80asm.RD, z80asm.RA) // D = stash of original byte
	b.RRCA()
	b.RRCA()
	b.RRCA()
	b.RRCA()
	b.AND_n(0x0F)                  // A = original high nibble, right-justified: this byte's new low digit
	b.LD_r_r(z80asm.RE, z80asm.RA) // E = new low nibble
	b.LD_r_r(z80asm.RA, z80asm.RC) // A = carry-in, right-justified
	b.RLCA()
	b.RLCA()
	b.RLCA()
	b.RLCA() // A = carry-in, now left-justified (this byte's new high digit)
	b.OR_r(z80asm.RE)
	b.LD_r_r(z80asm.RM, z80asm.RA) // store new byte
	b.LD_r_r(z80asm.RA, z80asm.RD) // A = original byte again
	b.AND_n(0x0F)                  // A = original low nibble, right-justified: next byte's carry-in
	b.LD_r_r(z80asm.RC, z80asm.RA)
	b.INC_rr(z80asm.HL)
	b.DJNZ(loop)
	b.RET()
}

// emitUnpackByte converts a packed BCD byte in A (two digits) into its
// binary value 0-99. Clobbers B, C.
func emitUnpackByte(b *z80asm.Builder) {
	b.Label(LblUnpackByte)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.AND_n(0x0F)
	b.LD_r_r(z80asm.RC, z80asm.RA) // C = low digit
	b.LD_r_r(z80asm.RA, z80asm.RB)
	b.RRCA()
	b.RRCA()
	b.RRCA()
	b.RRCA()
	b.AND_n(0x0F) // A = high digit
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.ADD_A_r(z80asm.RA) // 2*high
	b.ADD_A_r(z80asm.RA) // 4*high
	b.ADD_A_r(z80asm.RB) // 5*high
	b.ADD_A_r(z80asm.RA) // 10*high
	b.ADD_A_r(z80asm.RC) // 10*high + low
	b.RET()
}

// emitUnpackLast2 reads the record at HL's last two packed bytes (its
// least-significant 4 decimal digits) and returns their binary value,
// 0-9999, in HL. Multiply uses this to turn the multiplier into a
// repeated-addition loop count. Clobbers A, B, C, D, E.
func emitUnpackLast2(b *z80asm.Builder) {
	b.Label(LblUnpackLast2)
	b.LD_rr_nn(z80asm.DE, 26)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_r(z80asm.RD, z80asm.RM) // D = packed byte 26
	b.INC_rr(z80asm.HL)
	b.LD_r_r(z80asm.RE, z80asm.RM) // E = packed byte 27
	b.PUSH(z80asm.PushDE)

	b.LD_r_r(z80asm.RA, z80asm.RE)
	b.CALL(LblUnpackByte) // A = units/tens as binary, 0-99
	b.LD_r_r(z80asm.RE, z80asm.RA)

	b.POP(z80asm.PushHL)  // H = packed byte 26, L = packed byte 27 (unused now)
	b.PUSH(z80asm.PushDE) // stash the low-pair binary value across the next unpack

	b.LD_r_r(z80asm.RA, z80asm.RH)
	b.CALL(LblUnpackByte) // A = hundreds/thousands as binary, 0-99

	b.LD_r_r(z80asm.RL, z80asm.RA)
	b.LD_r_n(z80asm.RH, 0) // HL = high-pair value
	b.ADD_HL_rr(z80asm.HL) // *2
	b.ADD_HL_rr(z80asm.HL) // *4
	b.PUSH(z80asm.PushHL)
	b.ADD_HL_rr(z80asm.HL) // *8
	b.ADD_HL_rr(z80asm.HL) // *16
	b.ADD_HL_rr(z80asm.HL) // *32
	b.PUSH(z80asm.PushHL)
	b.ADD_HL_rr(z80asm.HL) // *64
	b.POP(z80asm.PushBC)   // BC = *32
	b.ADD_HL_rr(z80asm.BC) // *96
	b.POP(z80asm.PushBC)   // BC = *4
	b.ADD_HL_rr(z80asm.BC) // HL = high*100

	b.POP(z80asm.PushDE)  // DE = (garbage, low-pair value)
	b.LD_r_n(z80asm.RD, 0)
	b.ADD_HL_rr(z80asm.DE) // HL = high*100 + low, 0-9999
	b.RET()
}

// emitPackLast2 takes a binary value 0-9999 in HL and a destination record
// pointer in DE: it zeroes the record's 25 packed-digit bytes, then writes
// the value's decimal digits into the last two of them. The header bytes
// (sign, length, scale) are left untouched; callers set sign/scale
// afterward. Divide uses this to turn its binary quotient counter back
// into packed digits. Clobbers everything but the stack.
func emitPackLast2(b *z80asm.Builder) {
	b.Label(LblPackLast2)
	b.PUSH(z80asm.PushHL) // value
	b.PUSH(z80asm.PushDE) // record base

	b.EX_DE_HL() // HL = record base, DE = value
	b.LD_rr_nn(z80asm.BC, 3)
	b.ADD_HL_rr(z80asm.BC) // HL = record+3
	b.EX_DE_HL()           // DE = record+3, HL = value

	b.LD_r_n(z80asm.RB, 25)
	b.XOR_r(z80asm.RA)
	zloop := LblPackLast2 + "_zero"
	b.Label(zloop)
	b.LD_DE_A()
	b.INC_rr(z80asm.DE)
	b.DJNZ(zloop)

	// Extract 4 decimal digits from HL (0-9999) via repeated subtraction
	// against each place value.
	places := []struct {
		val uint16
		sc  uint16
	}{
		{1000, scPackDigits + 0},
		{100, scPackDigits + 1},
		{10, scPackDigits + 2},
		{1, scPackDigits + 3},
	}
	for i, p := range places {
		b.LD_rr_nn(z80asm.BC, p.val)
		b.LD_r_n(z80asm.RA, 0)
		dloop := LblPackLast2 + "_digit" + itoaSuffix(i)
		ddone := LblPackLast2 + "_ddone" + itoaSuffix(i)
		b.Label(dloop)
		b.OR_r(z80asm.RA) // clears carry; leaves the running digit count in A
		b.SBC_HL_rr(z80asm.BC)
		b.JR_cc(z80asm.CondC, ddone)
		b.INC_r(z80asm.RA)
		b.JR(dloop)
		b.Label(ddone)
		b.ADD_HL_rr(z80asm.BC) // undo the failed subtraction
		b.LD_NNAddr_A(p.sc)
	}

	// Pack thousands/hundreds into one byte, tens/units into the other.
	b.LD_A_NNAddr(scPackDigits + 0)
	b.RLCA()
	b.RLCA()
	b.RLCA()
	b.RLCA()
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_A_NNAddr(scPackDigits + 1)
	b.OR_r(z80asm.RB)
	b.LD_r_r(z80asm.RB, z80asm.RA) // B = packed byte26

	b.LD_A_NNAddr(scPackDigits + 2)
	b.RLCA()
	b.RLCA()
	b.RLCA()
	b.RLCA()
	b.LD_r_r(z80asm.RC, z80asm.RA)
	b.LD_A_NNAddr(scPackDigits + 3)
	b.OR_r(z80asm.RC)
	b.LD_r_r(z80asm.RC, z80asm.RA) // C = packed byte27

	b.POP(z80asm.PushDE) // DE = record base
	b.POP(z80asm.PushHL) // HL = value (discarded)
	b.LD_r_r(z80asm.RH, z80asm.RD)
	b.LD_r_r(z80asm.RL, z80asm.RE)
	b.LD_rr_nn(z80asm.DE, 26)
	b.ADD_HL_rr(z80asm.DE) // HL = record+26
	b.LD_r_r(z80asm.RA, z80asm.RB)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.INC_rr(z80asm.HL)
	b.LD_r_r(z80asm.RA, z80asm.RC)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.RET()
}

func itoaSuffix(n int) string {
	const digits = "0123456789"
	if n < 10 {
		return string(digits[n])
	}
	return string(digits[n/10]) + string(digits[n%10])
}

// emitMagAdd adds the 25 packed digit bytes at DE into the record at HL in
// place, right-to-left with DAA. Grounded directly on original_source's
// emit_bcd_add_routine. Clobbers A, B, C, HL, DE.
func emitMagAdd(b *z80asm.Builder) {
	b.Label(LblMagAdd)
	// in: HL = accumulator record, DE = operand record
	b.LD_rr_nn(z80asm.BC, 27)
	b.ADD_HL_rr(z80asm.BC) // HL = acc+27
	b.EX_DE_HL()           // DE = acc+27, HL = operand
	b.ADD_HL_rr(z80asm.BC) // HL = operand+27
	b.EX_DE_HL()           // HL = acc+27, DE = operand+27
	b.LD_r_n(z80asm.RB, 25)
	b.OR_r(z80asm.RA)
	loop := LblMagAdd + "_loop"
	b.Label(loop)
	b.LD_A_DE()
	b.ADC_A_r(z80asm.RM)
	b.DAA()
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.DEC_rr(z80asm.HL)
	b.DEC_rr(z80asm.DE)
	b.DJNZ(loop)
	b.RET()
}

// emitMagSub subtracts the 25 packed digit bytes at DE from the record at
// HL in place, right-to-left with DAA. Grounded on original_source's
// emit_bcd_sub_routine, but reads the minuend via LD A,(DE) and writes back
// via LD (DE),A instead of the EX DE,HL dance the original used (SBC A,(HL)
// is the only indirect SBC form, so the subtrahend has to sit behind HL;
// nothing requires swapping the accumulator pointer too). On return, A=1 if
// the true result went negative — read straight off the final DAA's carry,
// which DJNZ never disturbs — else A=0. Clobbers A, B, C, HL, DE.
func emitMagSub(b *z80asm.Builder) {
	b.Label(LblMagSub)
	// in: HL = accumulator (minuend) record, DE = subtrahend record
	b.LD_rr_nn(z80asm.BC, 27)
	b.ADD_HL_rr(z80asm.BC) // HL = acc+27
	b.EX_DE_HL()           // DE = acc+27, HL = subtrahend
	b.ADD_HL_rr(z80asm.BC) // HL = subtrahend+27
	b.LD_r_n(z80asm.RB, 25)
	b.OR_r(z80asm.RA)
	loop := LblMagSub + "_loop"
	b.Label(loop)
	b.LD_A_DE()
	b.SBC_A_r(z80asm.RM)
	b.DAA()
	b.LD_DE_A()
	b.DEC_rr(z80asm.HL)
	b.DEC_rr(z80asm.DE)
	b.DJNZ(loop)
	noborrow := LblMagSub + "_noborrow"
	b.LD_r_n(z80asm.RA, 1)
	b.JR_cc(z80asm.CondNC, noborrow)
	b.RET()
	b.Label(noborrow)
	b.LD_r_n(z80asm.RA, 0)
	b.RET()
}

// emitCanonZero forces the sign byte of the record at HL to positive if
// every digit byte is zero. Clobbers A, B, DE; HL is preserved.
func emitCanonZero(b *z80asm.Builder) {
	b.Label(LblCanonZero)
	b.PUSH(z80asm.PushHL)
	b.LD_rr_nn(z80asm.DE, 3)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_n(z80asm.RB, 25)
	loop := LblCanonZero + "_loop"
	done := LblCanonZero + "_done"
	b.Label(loop)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondNZ, done)
	b.INC_rr(z80asm.HL)
	b.DJNZ(loop)
	b.POP(z80asm.PushHL)
	b.XOR_r(z80asm.RA)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.RET()
	b.Label(done)
	b.POP(z80asm.PushHL)
	b.RET()
}

// emitBcdNeg flips the sign byte of the record at HL unless it is
// canonical zero. Clobbers A, B, DE; HL is preserved.
func emitBcdNeg(b *z80asm.Builder) {
	b.Label(LblBcdNeg)
	b.PUSH(z80asm.PushHL)
	b.LD_rr_nn(z80asm.DE, 3)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_n(z80asm.RB, 25)
	loop := LblBcdNeg + "_loop"
	nonzero := LblBcdNeg + "_nonzero"
	b.Label(loop)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondNZ, nonzero)
	b.INC_rr(z80asm.HL)
	b.DJNZ(loop)
	b.POP(z80asm.PushHL)
	b.RET()
	b.Label(nonzero)
	b.POP(z80asm.PushHL)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.XOR_n(0x80)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.RET()
}

// emitAlignScales makes OpA and OpB's scale bytes equal by shifting
// whichever has fewer fractional digits left by the difference, appending
// trailing zero digits. Clobbers A, B, C, HL, DE.
func emitAlignScales(b *z80asm.Builder) {
	b.Label(LblAlignScales)
	b.LD_A_NNAddr(OpA + 2)
	b.LD_NNAddr_A(scAlignA)
	b.LD_A_NNAddr(OpB + 2)
	b.LD_NNAddr_A(scAlignB)

	b.LD_r_r(z80asm.RB, z80asm.RA) // B = scaleB
	b.LD_A_NNAddr(scAlignA)        // A = scaleA
	b.CP_r(z80asm.RB)
	done := LblAlignScales + "_done"
	bSmaller := LblAlignScales + "_bsmaller"
	b.JR_cc(z80asm.CondZ, done)
	b.JR_cc(z80asm.CondC, bSmaller) // scaleA < scaleB: shift OpA up

	// scaleB < scaleA: shift OpB up by (scaleA-scaleB); OpB.scale := scaleA
	b.LD_A_NNAddr(scAlignA)
	b.SUB_r(z80asm.RB) // A = scaleA - scaleB (B still holds scaleB)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	loopB := LblAlignScales + "_loopB"
	b.Label(loopB)
	b.PUSH(z80asm.PushBC)
	b.LD_rr_nn(z80asm.HL, OpB)
	b.CALL(LblShiftLeft1)
	b.POP(z80asm.PushBC)
	b.DJNZ(loopB)
	b.LD_A_NNAddr(scAlignA)
	b.LD_NNAddr_A(OpB + 2)
	b.JR(done)

	// scaleA < scaleB: shift OpA up by (scaleB-scaleA); OpA.scale := scaleB
	b.Label(bSmaller)
	b.LD_A_NNAddr(scAlignB)
	b.LD_NNAddr_A(scAlignTgt)
	b.LD_A_NNAddr(scAlignA)
	b.LD_r_r(z80asm.RB, z80asm.RA) // B = scaleA
	b.LD_A_NNAddr(scAlignB)
	b.SUB_r(z80asm.RB) // A = scaleB - scaleA
	b.LD_r_r(z80asm.RB, z80asm.RA)
	loopA := LblAlignScales + "_loopA"
	b.Label(loopA)
	b.PUSH(z80asm.PushBC)
	b.LD_rr_nn(z80asm.HL, OpA)
	b.CALL(LblShiftLeft1)
	b.POP(z80asm.PushBC)
	b.DJNZ(loopA)
	b.LD_A_NNAddr(scAlignTgt)
	b.LD_NNAddr_A(OpA + 2)

	b.Label(done)
	b.RET()
}

// emitBcdAdd computes OpA += OpB: scales are aligned first, same-sign
// operands add magnitudes directly,
// differing signs subtract the smaller magnitude from the larger (using
// rt_mag_sub's borrow flag to discover which is larger) and take the
// larger's sign, and the result is zero-canonicalized. Clobbers everything.
func emitBcdAdd(b *z80asm.Builder) {
	b.Label(LblBcdAdd)
	b.CALL(LblAlignScales)

	b.LD_A_NNAddr(OpA)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_A_NNAddr(OpB)
	b.CP_r(z80asm.RB)
	diffsign := LblBcdAdd + "_diffsign"
	canon := LblBcdAdd + "_canon"
	aWins := LblBcdAdd + "_awins"
	b.JR_cc(z80asm.CondNZ, diffsign)

	b.LD_rr_nn(z80asm.HL, OpA)
	b.LD_rr_nn(z80asm.DE, OpB)
	b.CALL(LblMagAdd)
	b.JR(canon)

	b.Label(diffsign)
	b.LD_rr_nn(z80asm.HL, OpA)
	b.LD_rr_nn(z80asm.DE, ReplTemp)
	b.CALL(LblCopy28)
	b.LD_rr_nn(z80asm.HL, ReplTemp)
	b.LD_rr_nn(z80asm.DE, OpB)
	b.CALL(LblMagSub) // ReplTemp -= OpB; A = underflow
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondZ, aWins)

	// |OpB| > |OpA|: ReplTemp = OpB - OpA, sign = OpB's sign
	b.LD_rr_nn(z80asm.HL, OpB)
	b.LD_rr_nn(z80asm.DE, ReplTemp)
	b.CALL(LblCopy28)
	b.LD_rr_nn(z80asm.HL, ReplTemp)
	b.LD_rr_nn(z80asm.DE, OpA)
	b.CALL(LblMagSub)
	b.LD_A_NNAddr(OpB)
	b.LD_NNAddr_A(ReplTemp)
	b.LD_rr_nn(z80asm.HL, ReplTemp)
	b.LD_rr_nn(z80asm.DE, OpA)
	b.CALL(LblCopy28)
	b.JR(canon)

	b.Label(aWins)
	b.LD_rr_nn(z80asm.HL, ReplTemp)
	b.LD_rr_nn(z80asm.DE, OpA)
	b.CALL(LblCopy28)

	b.Label(canon)
	b.LD_rr_nn(z80asm.HL, OpA)
	b.CALL(LblCanonZero)
	b.RET()
}

// emitBcdSub computes OpA -= OpB as OpA += (-OpB), reusing rt_bcd_add's
// scale-alignment and sign-resolution logic.
func emitBcdSub(b *z80asm.Builder) {
	b.Label(LblBcdSub)
	b.LD_rr_nn(z80asm.HL, OpB)
	b.CALL(LblBcdNeg)
	b.CALL(LblBcdAdd)
	b.RET()
}

// emitBcdMul computes OpA *= OpB by repeated addition: the multiplier is
// read as a 4-digit binary loop count, the multiplicand
// is added into a zeroed accumulator that many times, the result sign is
// the XOR of the operand signs, and the result scale is lhsScale+rhsScale,
// truncated down to the global scale (never up) if it exceeds it. Grounded
// on original_source's emit_bcd_mul_routine.
func emitBcdMul(b *z80asm.Builder) {
	b.Label(LblBcdMul)
	b.LD_A_NNAddr(OpA)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_A_NNAddr(OpB)
	b.XOR_r(z80asm.RB)
	b.AND_n(0x80)
	b.LD_NNAddr_A(scSign)

	b.LD_A_NNAddr(OpA + 2)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_A_NNAddr(OpB + 2)
	b.ADD_A_r(z80asm.RB)
	b.LD_NNAddr_A(scScale)

	b.LD_rr_nn(z80asm.HL, OpA)
	b.LD_rr_nn(z80asm.DE, ReplTemp)
	b.CALL(LblCopy28) // ReplTemp = multiplicand

	b.LD_rr_nn(z80asm.HL, OpB)
	b.CALL(LblUnpackLast2) // HL = multiplier, 0-9999
	b.PUSH(z80asm.PushHL)

	// zero the accumulator (OpA): sign=0, len=50, scale=0 (temporary), digits=0
	b.LD_rr_nn(z80asm.HL, OpA)
	b.XOR_r(z80asm.RA)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.INC_rr(z80asm.HL)
	b.LD_r_n(z80asm.RM, maxDigits) // len byte, always MaxDigits
	b.INC_rr(z80asm.HL)
	b.XOR_r(z80asm.RA)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.INC_rr(z80asm.HL)
	b.LD_r_n(z80asm.RB, 25)
	zloop := LblBcdMul + "_zero"
	b.Label(zloop)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.INC_rr(z80asm.HL)
	b.DJNZ(zloop)

	b.POP(z80asm.PushBC) // BC = multiplier count
	b.LD_r_r(z80asm.RA, z80asm.RB)
	b.OR_r(z80asm.RC)
	mdone := LblBcdMul + "_done"
	b.JR_cc(z80asm.CondZ, mdone)

	mloop := LblBcdMul + "_loop"
	b.Label(mloop)
	b.PUSH(z80asm.PushBC)
	b.LD_rr_nn(z80asm.HL, OpA)
	b.LD_rr_nn(z80asm.DE, ReplTemp)
	b.CALL(LblMagAdd)
	b.POP(z80asm.PushBC)
	b.DEC_rr(z80asm.BC)
	b.LD_r_r(z80asm.RA, z80asm.RB)
	b.OR_r(z80asm.RC)
	b.JR_cc(z80asm.CondNZ, mloop)

	b.Label(mdone)
	b.LD_A_NNAddr(scSign)
	b.LD_NNAddr_A(OpA)

	b.LD_A_NNAddr(scScale)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_A_NNAddr(ScaleAddr)
	b.CP_r(z80asm.RB)
	useSum := LblBcdMul + "_usesum"
	storeDone := LblBcdMul + "_storedone"
	b.JR_cc(z80asm.CondNC, useSum) // global >= sum: no truncation

	b.LD_r_r(z80asm.RC, z80asm.RA) // C = global scale
	b.LD_A_NNAddr(scScale)
	b.SUB_r(z80asm.RC) // A = sum - global
	b.LD_r_r(z80asm.RB, z80asm.RA)
	shloop := LblBcdMul + "_shr"
	b.Label(shloop)
	b.PUSH(z80asm.PushBC)
	b.LD_rr_nn(z80asm.HL, OpA)
	b.CALL(LblShiftRight1)
	b.POP(z80asm.PushBC)
	b.DJNZ(shloop)
	b.LD_A_NNAddr(ScaleAddr)
	b.LD_NNAddr_A(OpA + 2)
	b.JR(storeDone)

	b.Label(useSum)
	b.LD_A_NNAddr(scScale)
	b.LD_NNAddr_A(OpA + 2)

	b.Label(storeDone)
	b.LD_rr_nn(z80asm.HL, OpA)
	b.CALL(LblCanonZero)
	b.RET()
}

// emitBcdDiv computes OpA /= OpB by repeated subtraction: division by
// zero prints 'E' and halts; otherwise scales are aligned, the
// dividend is pre-multiplied by 10^scale so the quotient carries exactly
// `scale` fractional digits, and a binary counter (capped at 9999, matching
// original_source's own overflow guard) counts successful subtractions of
// the divisor before converting back to packed digits. Grounded on
// original_source's emit_bcd_div_routine.
func emitBcdDiv(b *z80asm.Builder) {
	b.Label(LblBcdDiv)

	b.LD_rr_nn(z80asm.HL, OpB+3)
	b.LD_r_n(z80asm.RB, 25)
	b.XOR_r(z80asm.RA)
	dzloop := LblBcdDiv + "_dzloop"
	b.Label(dzloop)
	b.OR_r(z80asm.RM)
	b.INC_rr(z80asm.HL)
	b.DJNZ(dzloop)
	nonzero := LblBcdDiv + "_nonzero"
	b.JR_cc(z80asm.CondNZ, nonzero)
	b.LD_r_n(z80asm.RA, 'E')
	b.CALL(LblPutChar)
	b.HALT()

	b.Label(nonzero)
	b.CALL(LblAlignScales)

	b.LD_A_NNAddr(OpA)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_A_NNAddr(OpB)
	b.XOR_r(z80asm.RB)
	b.AND_n(0x80)
	b.LD_NNAddr_A(scSign)

	b.LD_A_NNAddr(ScaleAddr)
	b.OR_r(z80asm.RA)
	noshift := LblBcdDiv + "_noshift"
	b.JR_cc(z80asm.CondZ, noshift)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	shloop := LblBcdDiv + "_shift"
	b.Label(shloop)
	b.PUSH(z80asm.PushBC)
	b.LD_rr_nn(z80asm.HL, OpA)
	b.CALL(LblShiftLeft1)
	b.POP(z80asm.PushBC)
	b.DJNZ(shloop)

	b.Label(noshift)
	b.LD_rr_nn(z80asm.HL, OpA)
	b.LD_rr_nn(z80asm.DE, ReplTemp)
	b.CALL(LblCopy28)

	b.LD_rr_nn(z80asm.HL, 0)
	b.LD_NNAddr_HL(scQuotLo)

	dloop := LblBcdDiv + "_loop"
	ddone := LblBcdDiv + "_done"
	b.Label(dloop)
	b.LD_rr_nn(z80asm.HL, ReplTemp)
	b.LD_rr_nn(z80asm.DE, OpB)
	b.CALL(LblMagSub)
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondNZ, ddone) // underflow: stop, don't count this attempt

	b.LD_rr_NNIndAddr(z80asm.HL, scQuotLo)
	b.INC_rr(z80asm.HL)
	b.LD_NNAddr_HL(scQuotLo)
	b.LD_rr_nn(z80asm.DE, 9999)
	b.OR_r(z80asm.RA)
	b.SBC_HL_rr(z80asm.DE)
	b.JR_cc(z80asm.CondZ, ddone) // quotient hit the overflow cap
	b.JR(dloop)

	b.Label(ddone)
	b.LD_rr_NNIndAddr(z80asm.HL, scQuotLo)
	b.LD_rr_nn(z80asm.DE, OpA)
	b.CALL(LblPackLast2)

	b.LD_A_NNAddr(scSign)
	b.LD_NNAddr_A(OpA)
	b.LD_A_NNAddr(ScaleAddr)
	b.LD_NNAddr_A(OpA + 2)

	b.LD_rr_nn(z80asm.HL, OpA)
	b.CALL(LblCanonZero)
	b.RET()
}

// emitGetDigit returns the decimal digit at index E (0-49, most significant
// first) of the record at HL, in A. Clobbers A, B, C, HL; D and E are
// preserved, so callers can keep a loop index in E across the call.
func emitGetDigit(b *z80asm.Builder) {
	b.Label(LblGetDigit)
	b.LD_r_r(z80asm.RA, z80asm.RE)
	b.AND_n(1)
	b.LD_NNAddr_A(scParity)
	b.LD_r_r(z80asm.RA, z80asm.RE)
	b.SRL_r(z80asm.RA)
	b.LD_r_r(z80asm.RC, z80asm.RA)
	b.LD_r_n(z80asm.RB, 0)
	b.INC_rr(z80asm.HL) // skip the 3 header bytes without touching DE
	b.INC_rr(z80asm.HL)
	b.INC_rr(z80asm.HL)
	b.ADD_HL_rr(z80asm.BC)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_A_NNAddr(scParity)
	b.OR_r(z80asm.RA)
	highnib := LblGetDigit + "_high"
	b.JR_cc(z80asm.CondZ, highnib)
	b.LD_r_r(z80asm.RA, z80asm.RB)
	b.AND_n(0x0F)
	b.RET()
	b.Label(highnib)
	b.LD_r_r(z80asm.RA, z80asm.RB)
	b.RRCA()
	b.RRCA()
	b.RRCA()
	b.RRCA()
	b.AND_n(0x0F)
	b.RET()
}

// emitBcdPrint prints the record at HL: sign, integer part (leading zeros
// suppressed; a bare "0" only when there is no fractional part), a '.' and
// exactly Scale() fractional digits when scale>0, then CR LF. Matches
// bcd.Record.String()'s formatting rules exactly. Clobbers everything.
func emitBcdPrint(b *z80asm.Builder) {
	b.Label(LblBcdPrint)
	b.LD_NNAddr_HL(scRecPtrLo)

	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.OR_r(z80asm.RA)
	nosign := LblBcdPrint + "_nosign"
	b.JR_cc(z80asm.CondZ, nosign)
	b.LD_r_n(z80asm.RA, '-')
	b.CALL(LblPutChar)

	b.Label(nosign)
	b.LD_HL_NNIndAddr(scRecPtrLo)
	b.LD_rr_nn(z80asm.DE, 2)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_r(z80asm.RA, z80asm.RM) // scale
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_r_n(z80asm.RA, maxDigits)
	b.SUB_r(z80asm.RB)
	b.LD_NNAddr_A(scIntDigits)

	skipint := LblBcdPrint + "_skipint"
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondZ, skipint)

	b.XOR_r(z80asm.RA)
	b.LD_NNAddr_A(scStarted)
	b.LD_r_n(z80asm.RE, 0)

	intloop := LblBcdPrint + "_intloop"
	notlast := LblBcdPrint + "_notlast"
	setlast := LblBcdPrint + "_setlast"
	doprint := LblBcdPrint + "_doprint"
	becomestarted := LblBcdPrint + "_becomestarted"
	skipdigit := LblBcdPrint + "_skipdigit"
	b.Label(intloop)
	b.LD_HL_NNIndAddr(scRecPtrLo)
	b.CALL(LblGetDigit)
	b.LD_NNAddr_A(scDigit)

	b.LD_A_NNAddr(scIntDigits)
	b.DEC_r(z80asm.RA)
	b.CP_r(z80asm.RE)
	b.JR_cc(z80asm.CondNZ, notlast)
	b.LD_r_n(z80asm.RA, 1)
	b.JR(setlast)
	b.Label(notlast)
	b.XOR_r(z80asm.RA)
	b.Label(setlast)
	b.LD_NNAddr_A(scIsLast)

	b.LD_A_NNAddr(scStarted)
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondNZ, doprint)

	b.LD_A_NNAddr(scDigit)
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondNZ, becomestarted)

	// digit==0, not started yet: only force a print if this is the final
	// integer digit AND there is no fractional part (a lone "0" still
	// prints; String()'s ".5" case must print nothing here, only a fractional part).
	b.LD_A_NNAddr(scIsLast)
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondZ, skipdigit)
	b.LD_HL_NNIndAddr(scRecPtrLo)
	b.LD_rr_nn(z80asm.DE, 2)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondNZ, skipdigit) // scale>0: still suppress

	b.Label(becomestarted)
	b.LD_r_n(z80asm.RA, 1)
	b.LD_NNAddr_A(scStarted)

	b.Label(doprint)
	b.LD_A_NNAddr(scDigit)
	b.ADD_A_n('0')
	b.CALL(LblPutChar)

	b.Label(skipdigit)
	b.INC_r(z80asm.RE)
	b.LD_A_NNAddr(scIntDigits)
	b.CP_r(z80asm.RE)
	b.JR_cc(z80asm.CondNZ, intloop)

	b.Label(skipint)
	b.LD_HL_NNIndAddr(scRecPtrLo)
	b.LD_rr_nn(z80asm.DE, 2)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	nofrac := LblBcdPrint + "_nofrac"
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondZ, nofrac)

	b.LD_r_n(z80asm.RA, '.')
	b.CALL(LblPutChar)
	b.LD_A_NNAddr(scIntDigits)
	b.LD_r_r(z80asm.RE, z80asm.RA)
	fracloop := LblBcdPrint + "_fracloop"
	b.Label(fracloop)
	b.LD_HL_NNIndAddr(scRecPtrLo)
	b.CALL(LblGetDigit)
	b.ADD_A_n('0')
	b.CALL(LblPutChar)
	b.INC_r(z80asm.RE)
	b.LD_r_n(z80asm.RA, maxDigits)
	b.CP_r(z80asm.RE)
	b.JR_cc(z80asm.CondNZ, fracloop)

	b.Label(nofrac)
	b.LD_r_n(z80asm.RA, 13)
	b.CALL(LblPutChar)
	b.LD_r_n(z80asm.RA, 10)
	b.CALL(LblPutChar)
	b.RET()
}

// emitPutChar writes A to the ACIA after polling its transmit-ready bit.
func emitPutChar(b *z80asm.Builder) {
	b.Label(LblPutChar)
	b.PUSH(z80asm.PushAF)
	poll := LblPutChar + "_poll"
	b.Label(poll)
	b.IN_A_N(AciaStatusPort)
	b.AND_n(aciaTxReadyBit)
	b.JR_cc(z80asm.CondZ, poll)
	b.POP(z80asm.PushAF)
	b.OUT_N_A(AciaDataPort)
	b.RET()
}

// emitSign returns the record at HL's sign as a small signed value in A:
// 0 for canonical zero, 1 for positive, 0xFF for negative. internal/codegen
// uses this to turn a subtraction result into a comparison outcome.
// Clobbers A, B, DE; HL is preserved.
func emitSign(b *z80asm.Builder) {
	b.Label(LblSign)
	b.PUSH(z80asm.PushHL)
	b.LD_rr_nn(z80asm.DE, 3)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_n(z80asm.RB, 25)
	loop := LblSign + "_loop"
	nonzero := LblSign + "_nonzero"
	b.Label(loop)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.OR_r(z80asm.RA)
	b.JR_cc(z80asm.CondNZ, nonzero)
	b.INC_rr(z80asm.HL)
	b.DJNZ(loop)
	b.POP(z80asm.PushHL)
	b.LD_r_n(z80asm.RA, 0)
	b.RET()
	b.Label(nonzero)
	b.POP(z80asm.PushHL)
	b.LD_r_r(z80asm.RA, z80asm.RM)
	b.AND_n(0x80)
	positive := LblSign + "_positive"
	b.JR_cc(z80asm.CondZ, positive)
	b.LD_r_n(z80asm.RA, 0xFF)
	b.RET()
	b.Label(positive)
	b.LD_r_n(z80asm.RA, 1)
	b.RET()
}

// emitIntToBcd builds a positive, scale-0 record at OpA out of the small
// binary value (0-99) in A. Used for the `scale` pseudo-variable's rvalue
// and for materializing a comparison's boolean result as a BCD value.
// Clobbers everything.
func emitIntToBcd(b *z80asm.Builder) {
	b.Label(LblIntToBcd)
	b.LD_r_r(z80asm.RL, z80asm.RA)
	b.LD_r_n(z80asm.RH, 0)
	b.LD_rr_nn(z80asm.DE, OpA)
	b.CALL(LblPackLast2)

	b.LD_rr_nn(z80asm.HL, OpA)
	b.XOR_r(z80asm.RA)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.INC_rr(z80asm.HL)
	b.LD_r_n(z80asm.RM, maxDigits)
	b.INC_rr(z80asm.HL)
	b.XOR_r(z80asm.RA)
	b.LD_r_r(z80asm.RM, z80asm.RA)
	b.RET()
}

// emitBcdToScale converts the record at HL into a scale value 0-50: it
// accumulates the integer part's digits as value*10 + digit (truncating
// overflow to a single byte) and clamps the result to 50. Used by the `scale` pseudo-
// variable's assignment. Clobbers everything.
func emitBcdToScale(b *z80asm.Builder) {
	b.Label(LblBcdToScale)
	b.LD_NNAddr_HL(scToScaleRec)

	b.LD_rr_nn(z80asm.DE, 2)
	b.ADD_HL_rr(z80asm.DE)
	b.LD_r_r(z80asm.RA, z80asm.RM) // record's own scale
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_r_n(z80asm.RA, maxDigits)
	b.SUB_r(z80asm.RB)
	b.LD_NNAddr_A(scToScaleIntDigits)

	b.XOR_r(z80asm.RA)
	b.LD_NNAddr_A(scToScaleValue)
	b.LD_NNAddr_A(scToScaleIdx)

	loop := LblBcdToScale + "_loop"
	done := LblBcdToScale + "_done"
	b.Label(loop)
	b.LD_A_NNAddr(scToScaleIdx)
	b.LD_r_r(z80asm.RB, z80asm.RA)
	b.LD_A_NNAddr(scToScaleIntDigits)
	b.CP_r(z80asm.RB)
	b.JR_cc(z80asm.CondZ, done)

	b.LD_HL_NNIndAddr(scToScaleRec)
	b.LD_A_NNAddr(scToScaleIdx)
	b.LD_r_r(z80asm.RE, z80asm.RA)
	b.CALL(LblGetDigit) // A = digit
	b.LD_r_r(z80asm.RB, z80asm.RA)

	b.LD_A_NNAddr(scToScaleValue)
	b.LD_r_r(z80asm.RC, z80asm.RA)
	b.ADD_A_r(z80asm.RA) // *2
	b.ADD_A_r(z80asm.RA) // *4
	b.ADD_A_r(z80asm.RA) // *8
	b.ADD_A_r(z80asm.RC) // *9
	b.ADD_A_r(z80asm.RC) // *10
	b.ADD_A_r(z80asm.RB) // + digit
	b.LD_NNAddr_A(scToScaleValue)

	b.LD_A_NNAddr(scToScaleIdx)
	b.INC_r(z80asm.RA)
	b.LD_NNAddr_A(scToScaleIdx)
	b.JR(loop)

	b.Label(done)
	b.LD_A_NNAddr(scToScaleValue)
	b.CP_n(51)
	ok := LblBcdToScale + "_ok"
	b.JR_cc(z80asm.CondC, ok)
	b.LD_r_n(z80asm.RA, 50)
	b.Label(ok)
	b.RET()
}
