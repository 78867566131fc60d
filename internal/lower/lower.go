// Package lower walks an internal/ast tree and produces an internal/bytecode
// Program: it allocates constant-pool entries, resolves function calls, and
// linearizes control flow into labeled jumps.
package lower

import (
	"fmt"
	"strings"

	"github.com/ajokela/kz80-bc/internal/ast"
	"github.com/ajokela/kz80-bc/internal/bytecode"
	"github.com/ajokela/kz80-bc/internal/token"
)

// Error is a semantic error: unknown function, invalid assignment target
// reaching this stage, or return/break/continue used outside their legal
// context.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

func errf(pos token.Position, format string, args ...any) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

type loopCtx struct {
	Start bytecode.LabelID // topmost re-entry point (unused by break/continue directly, kept for clarity)
	End   bytecode.LabelID // break target
	Post  bytecode.LabelID // continue target: step-then-cond for `for`, cond for `while`
}

// Lowerer holds all state accumulated across one Program lowering pass.
// Grounded on the teacher's SymbolTable (pkg/compiler/symtable.go): a
// single mutable table threaded through the whole walk rather than one
// context object per node.
type Lowerer struct {
	instrs []bytecode.Instr

	constIndex map[string]int
	consts     []bytecode.Const

	funcIndex map[string]bytecode.FuncID
	funcs     []bytecode.Func

	nextLabel  bytecode.LabelID
	loopStack  []loopCtx
	inFunction bool
}

func New() *Lowerer {
	return &Lowerer{
		constIndex: make(map[string]int),
		funcIndex:  make(map[string]bytecode.FuncID),
	}
}

func (lo *Lowerer) newLabel() bytecode.LabelID {
	l := lo.nextLabel
	lo.nextLabel++
	return l
}

func (lo *Lowerer) emit(i bytecode.Instr) {
	lo.instrs = append(lo.instrs, i)
}

// internConst interns a literal by its canonical (digits, scale) key,
// mirroring the teacher's dataCache/dataPool "look up by key, allocate on
// miss" pattern in codegen.go.
func (lo *Lowerer) internConst(digits string, scale int) int {
	// Canonical form: no leading zeros and no trailing '.', so "01" and "1",
	// or "0.5" and ".5", share one entry.
	digits = strings.TrimSuffix(strings.TrimLeft(digits, "0"), ".")
	if digits == "" {
		digits = "0"
	}
	key := fmt.Sprintf("%s/%d", digits, scale)
	if idx, ok := lo.constIndex[key]; ok {
		return idx
	}
	idx := len(lo.consts)
	lo.consts = append(lo.consts, bytecode.Const{Digits: digits, Scale: scale})
	lo.constIndex[key] = idx
	return idx
}

// Lower converts a whole parsed Program into bytecode. Function definitions
// are hoisted into the function table in source order as they're
// encountered, top-level statements are lowered in one left-to-right pass,
// and function bodies are lowered after that pass. A top-level Call
// resolves against only the functions already registered, so a top-level
// call to a function defined later in the source is rejected as a semantic
// error. Function bodies are lowered once every Define is registered, so a
// call inside a body resolves against every function in the program,
// including ones defined later in the source.
func Lower(prog *ast.Program) (*bytecode.Program, error) {
	lo := New()

	// Single left-to-right pass over top-level statements. A Define is
	// registered in the function table the moment it's reached — so a
	// later Call (whether at top level or inside another function's body)
	// resolves — but its body is only queued for emission after the whole
	// top-level segment, so that segment stays contiguous and function
	// bodies land after it. Forward-reference rejection falls out
	// naturally for top-level statements: a Call reached before its Define
	// is registered still fails.
	var defines []*ast.Define
	for _, stmt := range prog.Stmts {
		if d, ok := stmt.(*ast.Define); ok {
			if err := lo.declareFunc(d); err != nil {
				return nil, err
			}
			defines = append(defines, d)
			continue
		}
		if err := lo.lowerStmt(stmt); err != nil {
			return nil, err
		}
	}
	topLevelCount := len(lo.instrs)

	for _, d := range defines {
		if err := lo.emitFuncBody(d); err != nil {
			return nil, err
		}
	}

	return &bytecode.Program{
		Instrs:        lo.instrs,
		Consts:        lo.consts,
		Funcs:         lo.funcs,
		TopLevelCount: topLevelCount,
		NumLabels:     int(lo.nextLabel),
	}, nil
}

// declareFunc allocates d's entry label and registers it in the function
// table without emitting any instructions, so calls reached later in the
// same pass (from top level or from another function body) can resolve
// against it before its own body is lowered.
func (lo *Lowerer) declareFunc(d *ast.Define) error {
	if _, exists := lo.funcIndex[d.Name]; exists {
		return errf(d.Pos, "function %q redefined", d.Name)
	}
	entry := lo.newLabel()
	id := bytecode.FuncID(len(lo.funcs))
	lo.funcs = append(lo.funcs, bytecode.Func{Name: d.Name, Entry: entry, Params: d.Params, Autos: d.Autos})
	lo.funcIndex[d.Name] = id
	return nil
}

// emitFuncBody lowers d's body into instructions at its previously
// declared entry label.
func (lo *Lowerer) emitFuncBody(d *ast.Define) error {
	id := lo.funcIndex[d.Name]
	entry := lo.funcs[id].Entry

	lo.emit(bytecode.Instr{Op: bytecode.Label, Label: entry})
	lo.emit(bytecode.Instr{Op: bytecode.EnterFrame, Locals: len(d.Params) + len(d.Autos)})

	wasInFunction := lo.inFunction
	lo.inFunction = true
	for _, stmt := range d.Body {
		if err := lo.lowerStmt(stmt); err != nil {
			return err
		}
	}
	lo.inFunction = wasInFunction

	// Fall off the end of a body with no explicit return: pop the frame
	// and return zero.
	lo.emit(bytecode.Instr{Op: bytecode.PushConst, Const: lo.internConst("0", 0)})
	lo.emit(bytecode.Instr{Op: bytecode.LeaveFrame})
	lo.emit(bytecode.Instr{Op: bytecode.Return})
	return nil
}

func (lo *Lowerer) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.ExprStmt:
		if err := lo.lowerExpr(st.Expr); err != nil {
			return err
		}
		lo.emit(bytecode.Instr{Op: bytecode.Print})
		return nil

	case *ast.Block:
		for _, inner := range st.Stmts {
			if err := lo.lowerStmt(inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.If:
		return lo.lowerIf(st)

	case *ast.While:
		return lo.lowerWhile(st)

	case *ast.For:
		return lo.lowerFor(st)

	case *ast.Return:
		if !lo.inFunction {
			return errf(st.Pos, "return outside function")
		}
		if st.Expr != nil {
			if err := lo.lowerExpr(st.Expr); err != nil {
				return err
			}
		} else {
			lo.emit(bytecode.Instr{Op: bytecode.PushConst, Const: lo.internConst("0", 0)})
		}
		lo.emit(bytecode.Instr{Op: bytecode.LeaveFrame})
		lo.emit(bytecode.Instr{Op: bytecode.Return})
		return nil

	case *ast.Break:
		if len(lo.loopStack) == 0 {
			return errf(st.Pos, "break outside loop")
		}
		top := lo.loopStack[len(lo.loopStack)-1]
		lo.emit(bytecode.Instr{Op: bytecode.Jump, Label: top.End})
		return nil

	case *ast.Continue:
		if len(lo.loopStack) == 0 {
			return errf(st.Pos, "continue outside loop")
		}
		top := lo.loopStack[len(lo.loopStack)-1]
		lo.emit(bytecode.Instr{Op: bytecode.Jump, Label: top.Post})
		return nil

	case *ast.Define:
		// Reached only for a nested `define`, which the grammar does not
		// produce inside a statement position.
		return errf(st.Pos, "nested function definitions are not supported")

	default:
		return errf(token.Position{}, "unhandled statement type %T", s)
	}
}

func (lo *Lowerer) lowerIf(st *ast.If) error {
	if err := lo.lowerExpr(st.Cond); err != nil {
		return err
	}
	lElse := lo.newLabel()
	lEnd := lo.newLabel()
	lo.emit(bytecode.Instr{Op: bytecode.JumpIfFalse, Label: lElse})
	if err := lo.lowerStmt(st.Then); err != nil {
		return err
	}
	lo.emit(bytecode.Instr{Op: bytecode.Jump, Label: lEnd})
	lo.emit(bytecode.Instr{Op: bytecode.Label, Label: lElse})
	if st.Else != nil {
		if err := lo.lowerStmt(st.Else); err != nil {
			return err
		}
	}
	lo.emit(bytecode.Instr{Op: bytecode.Label, Label: lEnd})
	return nil
}

func (lo *Lowerer) lowerWhile(st *ast.While) error {
	lTop := lo.newLabel()
	lEnd := lo.newLabel()
	lo.loopStack = append(lo.loopStack, loopCtx{Start: lTop, End: lEnd, Post: lTop})
	defer lo.popLoop()

	lo.emit(bytecode.Instr{Op: bytecode.Label, Label: lTop})
	if err := lo.lowerExpr(st.Cond); err != nil {
		return err
	}
	lo.emit(bytecode.Instr{Op: bytecode.JumpIfFalse, Label: lEnd})
	if err := lo.lowerStmt(st.Body); err != nil {
		return err
	}
	lo.emit(bytecode.Instr{Op: bytecode.Jump, Label: lTop})
	lo.emit(bytecode.Instr{Op: bytecode.Label, Label: lEnd})
	return nil
}

func (lo *Lowerer) lowerFor(st *ast.For) error {
	if st.Init != nil {
		if err := lo.lowerExpr(st.Init); err != nil {
			return err
		}
		lo.emit(bytecode.Instr{Op: bytecode.Pop})
	}

	lTop := lo.newLabel()
	lStep := lo.newLabel()
	lEnd := lo.newLabel()
	lo.loopStack = append(lo.loopStack, loopCtx{Start: lTop, End: lEnd, Post: lStep})
	defer lo.popLoop()

	lo.emit(bytecode.Instr{Op: bytecode.Label, Label: lTop})
	if st.Cond != nil {
		if err := lo.lowerExpr(st.Cond); err != nil {
			return err
		}
		lo.emit(bytecode.Instr{Op: bytecode.JumpIfFalse, Label: lEnd})
	}
	if err := lo.lowerStmt(st.Body); err != nil {
		return err
	}
	lo.emit(bytecode.Instr{Op: bytecode.Label, Label: lStep})
	if st.Step != nil {
		if err := lo.lowerExpr(st.Step); err != nil {
			return err
		}
		lo.emit(bytecode.Instr{Op: bytecode.Pop})
	}
	lo.emit(bytecode.Instr{Op: bytecode.Jump, Label: lTop})
	lo.emit(bytecode.Instr{Op: bytecode.Label, Label: lEnd})
	return nil
}

func (lo *Lowerer) popLoop() {
	lo.loopStack = lo.loopStack[:len(lo.loopStack)-1]
}

var binaryOps = map[token.Type]bytecode.Op{
	token.PLUS:  bytecode.Add,
	token.MINUS: bytecode.Sub,
	token.STAR:  bytecode.Mul,
	token.SLASH: bytecode.Div,
	token.LT:    bytecode.CmpLT,
	token.LE:    bytecode.CmpLE,
	token.GT:    bytecode.CmpGT,
	token.GE:    bytecode.CmpGE,
	token.EQ:    bytecode.CmpEQ,
	token.NE:    bytecode.CmpNE,
}

func (lo *Lowerer) lowerExpr(e ast.Expr) error {
	switch ex := e.(type) {
	case *ast.Number:
		lo.emit(bytecode.Instr{Op: bytecode.PushConst, Const: lo.internConst(ex.Digits, ex.Scale)})
		return nil

	case *ast.Var:
		lo.emit(bytecode.Instr{Op: bytecode.LoadVar, Letter: ex.Letter})
		return nil

	case *ast.ScaleRef:
		lo.emit(bytecode.Instr{Op: bytecode.LoadScale})
		return nil

	case *ast.Unary:
		if err := lo.lowerExpr(ex.Operand); err != nil {
			return err
		}
		lo.emit(bytecode.Instr{Op: bytecode.Neg})
		return nil

	case *ast.Binary:
		if err := lo.lowerExpr(ex.Lhs); err != nil {
			return err
		}
		if err := lo.lowerExpr(ex.Rhs); err != nil {
			return err
		}
		op, ok := binaryOps[ex.Op]
		if !ok {
			return errf(ex.Pos, "unhandled binary operator %s", ex.Op)
		}
		lo.emit(bytecode.Instr{Op: op})
		return nil

	case *ast.Call:
		id, ok := lo.funcIndex[ex.Name]
		if !ok {
			return errf(ex.Pos, "call to undefined function %q", ex.Name)
		}
		fn := lo.funcs[id]
		if len(ex.Args) != len(fn.Params) {
			return errf(ex.Pos, "function %q expects %d argument(s), got %d", ex.Name, len(fn.Params), len(ex.Args))
		}
		for _, arg := range ex.Args {
			if err := lo.lowerExpr(arg); err != nil {
				return err
			}
		}
		lo.emit(bytecode.Instr{Op: bytecode.Call, Func: id, Argc: len(ex.Args)})
		return nil

	case *ast.Assign:
		if err := lo.lowerExpr(ex.Rhs); err != nil {
			return err
		}
		switch target := ex.Target.(type) {
		case *ast.Var:
			lo.emit(bytecode.Instr{Op: bytecode.StoreVar, Letter: target.Letter})
			lo.emit(bytecode.Instr{Op: bytecode.LoadVar, Letter: target.Letter})
		case *ast.ScaleRef:
			lo.emit(bytecode.Instr{Op: bytecode.StoreScale})
			lo.emit(bytecode.Instr{Op: bytecode.LoadScale})
		default:
			return errf(ex.Pos, "invalid assignment target")
		}
		return nil

	default:
		return errf(token.Position{}, "unhandled expression type %T", e)
	}
}
