package codegen

import (
	"fmt"
	"testing"

	"github.com/ajokela/kz80-bc/internal/bytecode"
	"github.com/ajokela/kz80-bc/internal/lexer"
	"github.com/ajokela/kz80-bc/internal/lower"
	"github.com/ajokela/kz80-bc/internal/parser"
	"github.com/ajokela/kz80-bc/internal/runtime"
	"github.com/ajokela/kz80-bc/internal/z80asm"
)

func mustLower(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q): %v", src, err)
	}
	prog, err := parser.Parse(toks, src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	bc, err := lower.Lower(prog)
	if err != nil {
		t.Fatalf("Lower(%q): %v", src, err)
	}
	return bc
}

// buildAndLink assembles runtime.EmitInit + EmitRuntime + Emit(prog), plus a
// placeholder const_N label per constant pool entry (internal/rom's actual
// job in the finished ROM), and links the whole thing. This is the closest
// codegen can get to an execution check without running the emitted Z80
// code (never permitted here): every CALL/JP codegen emits must resolve.
func buildAndLink(t *testing.T, prog *bytecode.Program) []byte {
	t.Helper()
	b := z80asm.NewBuilder()
	runtime.EmitInit(b, runtime.LblProgram)
	runtime.EmitRuntime(b)
	if err := Emit(b, prog); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for i := range prog.Consts {
		b.Label(ConstLabel(i))
		b.Bytes(make([]byte, 28)...)
	}
	out, err := b.Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	return out
}

func TestEmitSimpleExpressionStatementLinks(t *testing.T) {
	prog := mustLower(t, "1+2")
	buildAndLink(t, prog)
}

func TestEmitVariablesAndAssignmentLinks(t *testing.T) {
	prog := mustLower(t, "x = 5; y = x * 2; y")
	buildAndLink(t, prog)
}

func TestEmitScaleAssignmentLinks(t *testing.T) {
	prog := mustLower(t, "scale = 4; 1/3")
	buildAndLink(t, prog)
}

func TestEmitControlFlowLinks(t *testing.T) {
	prog := mustLower(t, "i = 0; while (i < 5) { i = i + 1; }")
	buildAndLink(t, prog)
}

func TestEmitForLoopWithBreakContinueLinks(t *testing.T) {
	prog := mustLower(t, `
		for (i = 0; i < 10; i = i + 1) {
			if (i == 3) continue;
			if (i == 7) break;
			i;
		}
	`)
	buildAndLink(t, prog)
}

func TestEmitFunctionCallLinks(t *testing.T) {
	prog := mustLower(t, `
		define add(a, b) {
			auto c;
			c = a + b;
			return c;
		}
		add(2, 3)
	`)
	buildAndLink(t, prog)
}

func TestEmitRecursiveFunctionLinks(t *testing.T) {
	prog := mustLower(t, `
		define fact(n) {
			if (n <= 1) return 1;
			return n * fact(n - 1);
		}
		fact(5)
	`)
	buildAndLink(t, prog)
}

func TestEmitAllComparisonOperatorsLink(t *testing.T) {
	for _, op := range []string{"<", "<=", ">", ">=", "==", "!="} {
		src := fmt.Sprintf("1 %s 2", op)
		t.Run(op, func(t *testing.T) {
			prog := mustLower(t, src)
			buildAndLink(t, prog)
		})
	}
}

// TestTopLevelHaltsBeforeFunctionBodies checks that codegen inserts a HALT
// between the top-level segment and the function bodies that follow it: a
// program with both must not fall through from the former into the latter.
func TestTopLevelHaltsBeforeFunctionBodies(t *testing.T) {
	prog := mustLower(t, `
		define one() { return 1; }
		one()
	`)
	b := z80asm.NewBuilder()
	runtime.EmitInit(b, runtime.LblProgram)
	runtime.EmitRuntime(b)
	if err := Emit(b, prog); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for i := range prog.Consts {
		b.Label(ConstLabel(i))
		b.Bytes(make([]byte, 28)...)
	}
	out, err := b.Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	progAddr, ok := b.Addr(runtime.LblProgram)
	if !ok {
		t.Fatalf("program label never bound")
	}
	funcAddr, ok := b.Addr(labelName(prog.Funcs[0].Entry))
	if !ok {
		t.Fatalf("function entry label never bound")
	}
	haltFound := false
	for i := int(progAddr); i < int(funcAddr); i++ {
		if out[i] == 0x76 {
			haltFound = true
			break
		}
	}
	if !haltFound {
		t.Fatalf("no HALT between top-level code and the first function body")
	}
}

// TestFrameSlotsShadowGlobals checks that a parameter named the same as a
// global letter resolves to the frame slot inside the function body: the
// codegen emits an FPPtr-relative address, not the fixed global address,
// for a LoadVar whose letter is in scope as a parameter.
func TestFrameSlotsShadowGlobals(t *testing.T) {
	prog := mustLower(t, `
		define f(x) {
			return x;
		}
		x = 9;
		f(1)
	`)
	b := z80asm.NewBuilder()
	runtime.EmitInit(b, runtime.LblProgram)
	runtime.EmitRuntime(b)
	if err := Emit(b, prog); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	for i := range prog.Consts {
		b.Label(ConstLabel(i))
		b.Bytes(make([]byte, 28)...)
	}
	out, err := b.Link()
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	funcAddr, ok := b.Addr(labelName(prog.Funcs[0].Entry))
	if !ok {
		t.Fatalf("function entry label never bound")
	}
	// f is the last thing codegen emits, so everything from its entry label
	// onward is its own body.
	body := out[funcAddr:]

	globalX := varAddr('x')
	for i := 0; i+1 < len(body); i++ {
		if uint16(body[i])|uint16(body[i+1])<<8 == globalX {
			t.Fatalf("f's body references x's global address %#04x; its parameter x should shadow the global and resolve through FPPtr instead", globalX)
		}
	}
}

func TestConstLabelIsStablePerIndex(t *testing.T) {
	if ConstLabel(0) == ConstLabel(1) {
		t.Fatalf("distinct constant indices produced the same label")
	}
	if ConstLabel(3) != "const_3" {
		t.Fatalf("ConstLabel(3) = %q, want const_3", ConstLabel(3))
	}
}
