package runtime

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ajokela/kz80-bc/internal/z80asm"
)

// TestEmitRuntimeLinks builds the full runtime library plus a fake init/
// program pair and checks it links cleanly: every CALL/JP target the
// routines reference by label must resolve, which is the closest thing to
// a compile check available without running the Z80 code itself.
func TestEmitRuntimeLinks(t *testing.T) {
	b := z80asm.NewBuilder()
	EmitInit(b, LblProgram)
	EmitRuntime(b)
	b.Label(LblProgram)
	b.HALT()
	if _, err := b.Link(); err != nil {
		t.Fatalf("Link: %v", err)
	}
}

// TestEmitRuntimeDefinesExpectedLabels checks that every label
// internal/codegen and internal/rom are expected to CALL or JP to actually
// gets bound by EmitRuntime/EmitInit. A missing one would surface as an
// "unresolved label" error at Link time in any caller, but this pins the
// exact set down.
func TestEmitRuntimeDefinesExpectedLabels(t *testing.T) {
	for _, lbl := range []string{
		LblInit,
		LblCopy28,
		LblVPushCopy,
		LblVPop,
		LblShiftLeft1,
		LblUnpackLast2,
		LblPackLast2,
		LblBcdAdd,
		LblBcdSub,
		LblBcdMul,
		LblBcdDiv,
		LblBcdNeg,
		LblBcdPrint,
		LblPutChar,
		LblSign,
		LblIntToBcd,
		LblBcdToScale,
	} {
		b := z80asm.NewBuilder()
		EmitInit(b, LblProgram)
		EmitRuntime(b)
		b.Label(LblProgram)
		b.HALT()
		b.JP(lbl) // fails to link only if lbl was never bound
		if _, err := b.Link(); err != nil {
			t.Errorf("label %q not resolvable: %v", lbl, err)
		}
	}
}

// TestEmitCopy28Bytes pins the exact encoding of the simplest routine, the
// way z80asm_test.go pins opcode encodings.
func TestEmitCopy28Bytes(t *testing.T) {
	b := z80asm.NewBuilder()
	emitCopy28(b)
	out, err := b.Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	want := []byte{
		0x06, 0x1C, // LD B,28
		0x7E,       // loop: LD A,(HL)
		0x12,       // LD (DE),A
		0x23,       // INC HL
		0x13,       // INC DE
		0x10, 0xFA, // DJNZ loop (-6)
		0xC9, // RET
	}
	if !bytes.Equal(out, want) {
		t.Fatalf("got % X, want % X", out, want)
	}
}

// TestScratchRegionFitsBeforeFPPtr guards against the scratch cell offsets
// defined in this file outgrowing the ScratchSize reserved for them in
// layout.go, which would silently make the highest cells alias FPPtr.
func TestScratchRegionFitsBeforeFPPtr(t *testing.T) {
	highest := scPackDigits + 3
	if highest >= FPPtr {
		t.Fatalf("scratch cell at %#x overruns FPPtr at %#x; grow ScratchSize", highest, FPPtr)
	}
}

// TestEmitBcdPrintLinks is a basic smoke test for the print routine, whose
// leading-zero-suppression logic mirrors bcd.Record.String() (see the
// doc comment on emitBcdPrint) but can't be exercised without running the
// emitted Z80 code.
func TestEmitBcdPrintLinks(t *testing.T) {
	b := z80asm.NewBuilder()
	emitBcdPrint(b)
	emitGetDigit(b) // the routines rt_bcd_print calls
	emitPutChar(b)
	out, err := b.Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if len(out) == 0 {
		t.Fatalf("rt_bcd_print emitted no code")
	}
}

// TestLabelNamesAreUnique is a sanity net: distinct routines derive their
// internal loop-label names from the routine's own label as a prefix, so a
// typo'd shared prefix would produce a Label panic at build time rather
// than silently reusing a jump target. Exercised here by building the
// whole library once, which would already panic on a real collision; this
// documents the invariant the panic protects.
func TestLabelNamesAreUnique(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("EmitRuntime panicked on duplicate label: %v", r)
		}
	}()
	b := z80asm.NewBuilder()
	EmitRuntime(b)
}

// TestEmitInitZeroesScaleAndJumpsToProgram checks the tail of EmitInit: the
// scale cell is cleared and control transfers to the caller-supplied entry
// label, not into the runtime library that follows it in the image.
func TestEmitInitZeroesScaleAndJumpsToProgram(t *testing.T) {
	b := z80asm.NewBuilder()
	EmitInit(b, "my_program")
	b.Label("my_program")
	b.HALT() // the single final byte of this stream, by construction
	out, err := b.Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	haltOffset := len(out) - 1
	if out[haltOffset] != 0x76 {
		t.Fatalf("expected HALT (0x76) as the final byte, got %#x", out[haltOffset])
	}
	// XOR A; LD (ScaleAddr),A clears the scale cell.
	scaleStore := []byte{0xAF, 0x32, byte(ScaleAddr & 0xFF), byte(ScaleAddr >> 8)}
	if !bytes.Contains(out, scaleStore) {
		t.Fatalf("expected XOR A; LD (%#x),A to zero scale, not found in % X", ScaleAddr, out)
	}
	// EmitInit's only unconditional JP is its tail transfer to programEntry;
	// its resolved target must be the HALT's offset.
	jpOffset := bytes.LastIndexByte(out, 0xC3)
	if jpOffset < 0 {
		t.Fatalf("could not find an unconditional JP in emitted code")
	}
	got := int(out[jpOffset+1]) | int(out[jpOffset+2])<<8
	if got != haltOffset {
		t.Fatalf("JP target = %#x, want %#x (the HALT offset)", got, haltOffset)
	}
}

// TestPackLast2LabelsDontCollideAcrossDigits guards the digit-loop label
// generation in emitPackLast2 against reusing the same label for more than
// one of the four place-value iterations.
func TestPackLast2LabelsDontCollideAcrossDigits(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		lbl := LblPackLast2 + "_digit" + itoaSuffix(i)
		if seen[lbl] {
			t.Fatalf("duplicate label %q", lbl)
		}
		seen[lbl] = true
	}
}

func TestItoaSuffix(t *testing.T) {
	cases := map[int]string{0: "0", 3: "3", 9: "9", 10: "10", 23: "23"}
	for n, want := range cases {
		if got := itoaSuffix(n); got != want {
			t.Errorf("itoaSuffix(%d) = %q, want %q", n, got, want)
		}
	}
}

// TestRuntimeUsesFixedZeroPageLayout is a smoke test that the address
// constants stay non-overlapping and ordered, matching the fixed zero-page
// convention described in layout.go's package comment.
func TestRuntimeUsesFixedZeroPageLayout(t *testing.T) {
	regions := []struct {
		name string
		addr int
	}{
		{"VarBase", VarBase},
		{"ScaleAddr", ScaleAddr},
		{"OpA", OpA},
		{"OpB", OpB},
		{"ReplTemp", ReplTemp},
		{"ScratchBase", ScratchBase},
		{"FPPtr", FPPtr},
		{"LSPPtr", LSPPtr},
		{"VSPPtr", VSPPtr},
		{"LocalsStackBase", LocalsStackBase},
		{"ValueStackBase", ValueStackBase},
	}
	for i := 1; i < len(regions); i++ {
		if regions[i].addr <= regions[i-1].addr {
			t.Fatalf("%s (%#x) does not come after %s (%#x)",
				regions[i].name, regions[i].addr, regions[i-1].name, regions[i-1].addr)
		}
	}
	if ValueStackBase+ValueStackSize > 0x10000 {
		t.Fatalf("value stack overruns 16-bit address space")
	}
}

// helper to make label-prefix assumptions explicit in one place.
func hasPrefix(s, prefix string) bool { return strings.HasPrefix(s, prefix) }

func TestLoopLabelsShareRoutinePrefix(t *testing.T) {
	if !hasPrefix(LblMagAdd+"_loop", LblMagAdd) {
		t.Fatalf("loop label lost its routine prefix")
	}
}
