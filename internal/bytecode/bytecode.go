// Package bytecode defines the flat instruction stream produced by
// internal/lower and consumed by internal/codegen. It is the stack-machine
// IR interposed between the AST and Z80 machine code.
package bytecode

import "fmt"

// Op identifies one bytecode instruction. The set is closed: internal/lower
// only ever emits these, and internal/codegen switches over all of them
// exhaustively, so an "unknown opcode" case cannot occur.
type Op byte

const (
	PushConst Op = iota // operand: constant pool index
	LoadVar             // operand: letter 'a'-'z'
	StoreVar            // operand: letter 'a'-'z'
	LoadScale
	StoreScale
	Add
	Sub
	Mul
	Div
	Neg
	CmpLT
	CmpLE
	CmpGT
	CmpGE
	CmpEQ
	CmpNE
	JumpIfFalse // operand: label id
	Jump        // operand: label id
	Label       // operand: label id
	Call        // operand: FuncID; Argc: argument count
	Return
	Print
	Pop
	EnterFrame // operand: number of locals (params+autos)
	LeaveFrame
)

var opNames = [...]string{
	PushConst:   "PushConst",
	LoadVar:     "LoadVar",
	StoreVar:    "StoreVar",
	LoadScale:   "LoadScale",
	StoreScale:  "StoreScale",
	Add:         "Add",
	Sub:         "Sub",
	Mul:         "Mul",
	Div:         "Div",
	Neg:         "Neg",
	CmpLT:       "CmpLT",
	CmpLE:       "CmpLE",
	CmpGT:       "CmpGT",
	CmpGE:       "CmpGE",
	CmpEQ:       "CmpEQ",
	CmpNE:       "CmpNE",
	JumpIfFalse: "JumpIfFalse",
	Jump:        "Jump",
	Label:       "Label",
	Call:        "Call",
	Return:      "Return",
	Print:       "Print",
	Pop:         "Pop",
	EnterFrame:  "EnterFrame",
	LeaveFrame:  "LeaveFrame",
}

func (o Op) String() string {
	if int(o) >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", byte(o))
}

// LabelID names a bytecode-level jump target. Labels are resolved to Z80
// addresses by internal/codegen; the bytecode layer only tracks identity.
type LabelID int

// FuncID indexes into a Program's FuncTable.
type FuncID int

// Instr is one bytecode instruction. Not every field is meaningful for
// every Op; see the Op's doc comment above for which fields it reads.
type Instr struct {
	Op     Op
	Const  int     // PushConst: index into Program.Consts
	Letter byte    // LoadVar/StoreVar: variable letter
	Label  LabelID // Jump/JumpIfFalse/Label: target
	Func   FuncID  // Call: callee
	Argc   int     // Call: argument count
	Locals int     // EnterFrame: slot count
}

func (i Instr) String() string {
	switch i.Op {
	case PushConst:
		return fmt.Sprintf("PushConst %d", i.Const)
	case LoadVar, StoreVar:
		return fmt.Sprintf("%s %c", i.Op, i.Letter)
	case JumpIfFalse, Jump, Label:
		return fmt.Sprintf("%s L%d", i.Op, i.Label)
	case Call:
		return fmt.Sprintf("Call F%d/%d", i.Func, i.Argc)
	case EnterFrame:
		return fmt.Sprintf("EnterFrame %d", i.Locals)
	default:
		return i.Op.String()
	}
}

// Const is one entry of the constant pool: a literal BCD value identified
// by its canonicalized digit string and scale.
type Const struct {
	Digits string
	Scale  int
}

// Func describes one defined function: its entry label, its parameter
// letters (in call order) and its auto-local letters.
type Func struct {
	Name   string
	Entry  LabelID
	Params []byte
	Autos  []byte
}

// Program is the complete lowered output for one source file: the flat
// instruction stream for top-level statements followed by every function
// body, plus the side tables the codegen needs to resolve PushConst and
// Call operands.
type Program struct {
	Instrs []Instr
	Consts []Const
	Funcs  []Func

	// TopLevelCount is the number of leading Instrs belonging to top-level
	// statements, before any function body begins. Execution must not fall
	// through past this point into a function body, which is reachable
	// only via Call; internal/codegen emits a HALT at this boundary.
	TopLevelCount int

	NumLabels int // total labels allocated; codegen names labels on demand and does not read this
}
