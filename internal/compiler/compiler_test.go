package compiler

import (
	"errors"
	"testing"
)

func TestCompileSimpleExpression(t *testing.T) {
	res, err := Compile("1+2")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(res.ROM) == 0 {
		t.Fatalf("empty ROM")
	}
	n := len(res.ROM)
	if n&(n-1) != 0 {
		t.Fatalf("ROM size %d not a power of two", n)
	}
}

func TestCompileFunctionsAndControlFlow(t *testing.T) {
	src := `
		define fact(n) {
			if (n <= 1) return 1;
			return n * fact(n - 1);
		}
		i = 0;
		while (i < 5) {
			fact(i);
			i = i + 1;
		}
	`
	res, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(res.Bytecode.Funcs) != 1 {
		t.Fatalf("expected 1 function, got %d", len(res.Bytecode.Funcs))
	}
}

func TestCompileLexErrorIsClassified(t *testing.T) {
	_, err := Compile("1 + `")
	if err == nil {
		t.Fatalf("expected an error")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *compiler.Error, got %T", err)
	}
	if cerr.Kind != LexError {
		t.Fatalf("Kind = %v, want LexError", cerr.Kind)
	}
}

func TestCompileParseErrorIsClassified(t *testing.T) {
	_, err := Compile("1 +")
	if err == nil {
		t.Fatalf("expected an error")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *compiler.Error, got %T", err)
	}
	if cerr.Kind != ParseError {
		t.Fatalf("Kind = %v, want ParseError", cerr.Kind)
	}
}

func TestCompileSemanticErrorIsClassified(t *testing.T) {
	_, err := Compile("return 1;")
	if err == nil {
		t.Fatalf("expected an error for return outside a function")
	}
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *compiler.Error, got %T", err)
	}
	if cerr.Kind != SemanticError {
		t.Fatalf("Kind = %v, want SemanticError", cerr.Kind)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		LexError:      "LexError",
		ParseError:    "ParseError",
		SemanticError: "SemanticError",
		CodegenError:  "CodegenError",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
