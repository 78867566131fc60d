package bytecode

import "testing"

func TestOpString(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{PushConst, "PushConst"},
		{Add, "Add"},
		{CmpNE, "CmpNE"},
		{LeaveFrame, "LeaveFrame"},
		{Op(255), "Op(255)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Op(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestInstrString(t *testing.T) {
	tests := []struct {
		name  string
		instr Instr
		want  string
	}{
		{"push const", Instr{Op: PushConst, Const: 3}, "PushConst 3"},
		{"load var", Instr{Op: LoadVar, Letter: 'x'}, "LoadVar x"},
		{"store var", Instr{Op: StoreVar, Letter: 'a'}, "StoreVar a"},
		{"jump", Instr{Op: Jump, Label: 2}, "Jump L2"},
		{"jump if false", Instr{Op: JumpIfFalse, Label: 5}, "JumpIfFalse L5"},
		{"label", Instr{Op: Label, Label: 1}, "Label L1"},
		{"call", Instr{Op: Call, Func: 4, Argc: 2}, "Call F4/2"},
		{"enter frame", Instr{Op: EnterFrame, Locals: 3}, "EnterFrame 3"},
		{"return", Instr{Op: Return}, "Return"},
		{"add", Instr{Op: Add}, "Add"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.instr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
