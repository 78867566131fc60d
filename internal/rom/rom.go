// Package rom lays out the final ROM image: reset vector, RST slots, init
// code, the BCD runtime library, the translated program body, and the
// constant pool, all assembled through one internal/z80asm.Builder and
// linked in a single pass. It is grounded on the teacher's
// pkg/compiler/compile.go, which drives Lex/Parse/Generate/Assemble as one
// straight-line pipeline the way Build below drives lower/codegen/z80asm.
package rom

import (
	"fmt"
	"strings"

	"github.com/ajokela/kz80-bc/internal/bcd"
	"github.com/ajokela/kz80-bc/internal/bytecode"
	"github.com/ajokela/kz80-bc/internal/codegen"
	"github.com/ajokela/kz80-bc/internal/runtime"
	"github.com/ajokela/kz80-bc/internal/z80asm"
)

// Error reports a ROM build failure: an oversized image or a codegen/link
// failure surfaced from the layers underneath.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return "rom: " + e.Msg }

// restartVectorStride is the fixed spacing between the Z80 RST entry
// points. The seven at 0x0008..0x0038 are not used by generated programs;
// each is filled with a bare RET.
const restartVectorStride = 0x08

// firstRestartVector and lastRestartVector bound the slots this ROM fills;
// RST 00h at 0x0000 is the reset vector itself and is handled separately.
const (
	firstRestartVector = 0x08
	lastRestartVector  = 0x38
	initAddr           = 0x40
)

// minImageSize is the smallest power-of-two ROM the fixed prelude (reset
// vector through init) can possibly fit in.
const minImageSize = 0x100

// Build assembles prog into a complete ROM image: reset vector, RST slots,
// init, runtime library, translated program, constant pool, padded to the
// next power-of-two boundary with 0xFF.
func Build(prog *bytecode.Program) ([]byte, error) {
	b := z80asm.NewBuilder()

	b.JP(runtime.LblInit)
	b.PadTo(firstRestartVector, 0x00)

	for addr := firstRestartVector; addr <= lastRestartVector; addr += restartVectorStride {
		b.PadTo(uint16(addr), 0x00)
		b.RET()
	}
	b.PadTo(initAddr, 0x00)

	runtime.EmitInit(b, runtime.LblProgram)
	runtime.EmitRuntime(b)

	if err := codegen.Emit(b, prog); err != nil {
		return nil, &Error{Msg: fmt.Sprintf("codegen: %v", err)}
	}

	b.Label(runtime.LblConstPool)
	for i, c := range prog.Consts {
		// Const digit strings keep the literal's '.'; bcd.New takes bare digits.
		rec := bcd.New(strings.ReplaceAll(c.Digits, ".", ""), c.Scale, false)
		b.Label(codegen.ConstLabel(i))
		b.Bytes(rec[:]...)
	}

	out, err := b.Link()
	if err != nil {
		return nil, &Error{Msg: fmt.Sprintf("link: %v", err)}
	}
	if len(out) > runtime.RAMBase {
		return nil, &Error{Msg: fmt.Sprintf("image is %d bytes, larger than the %d-byte ROM region", len(out), runtime.RAMBase)}
	}

	return padToPowerOfTwo(out), nil
}

// padToPowerOfTwo grows out with trailing 0xFF bytes until its length is a
// power of two.
func padToPowerOfTwo(out []byte) []byte {
	size := minImageSize
	for size < len(out) {
		size *= 2
	}
	padded := make([]byte, size)
	copy(padded, out)
	for i := len(out); i < size; i++ {
		padded[i] = 0xFF
	}
	return padded
}
