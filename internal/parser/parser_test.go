package parser

import (
	"testing"

	"github.com/ajokela/kz80-bc/internal/lexer"
)

// parseString lexes and parses src, failing the test on any error.
func parseString(t *testing.T, src string) string {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex(%q): %v", src, err)
	}
	prog, err := Parse(toks, src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	out := ""
	for i, s := range prog.Stmts {
		if i > 0 {
			out += "; "
		}
		out += s.String()
	}
	return out
}

func TestParseExpressions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"number literal", "1.5", "1.5"},
		{"assignment", "a = 2", "(a = 2)"},
		{"scale assignment", "scale = 4", "(scale = 4)"},
		{"precedence", "a = 1 + 2 * 3", "(a = (1 + (2 * 3)))"},
		{"parens override precedence", "a = (1 + 2) * 3", "(a = ((1 + 2) * 3))"},
		{"unary minus", "a = -b", "(a = (-b))"},
		{"comparison", "a = b < c", "(a = (b < c))"},
		{"right assoc assignment", "a = b = 1", "(a = (b = 1))"},
		{"function call", "fact(5)", "fact(5)"},
		{"function call multi-arg", "add(a, b)", "add(a, b)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseString(t, tt.input)
			if got != tt.want {
				t.Fatalf("parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"if without else", "if (a < b) a = 1", "if ((a < b)) (a = 1)"},
		{"if with else", "if (a < b) a = 1 else a = 2", "if ((a < b)) (a = 1) else (a = 2)"},
		{"while", "while (a < 10) a = a + 1", "while ((a < 10)) (a = (a + 1))"},
		{"block", "{ a = 1 a = 2 }", "{ (a = 1); (a = 2) }"},
		{"bare return", "define f() { return }", "define f(0 params, 0 autos)"},
		{"break", "while (1) break", "while (1) break"},
		{"continue", "while (1) continue", "while (1) continue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseString(t, tt.input)
			if got != tt.want {
				t.Fatalf("parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseForHeader(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"all clauses", "for (i = 0; i < 10; i = i + 1) a = a + i"},
		{"empty clauses", "for (;;) break"},
		{"missing init", "for (; i < 10; i = i + 1) break"},
		{"missing step", "for (i = 0; i < 10;) break"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lexer.Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex(%q): %v", tt.input, err)
			}
			if _, err := Parse(toks, tt.input); err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
		})
	}
}

func TestParseOptionalSemicolons(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStmts int
	}{
		{"semicolon between statements", "a = 1; b = 2", 2},
		{"trailing semicolon", "a = 1;", 1},
		{"leading semicolon", ";a = 1", 1},
		{"repeated semicolons", "a = 1;; b = 2", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lexer.Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex(%q): %v", tt.input, err)
			}
			prog, err := Parse(toks, tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if len(prog.Stmts) != tt.wantStmts {
				t.Fatalf("Parse(%q) produced %d statements, want %d", tt.input, len(prog.Stmts), tt.wantStmts)
			}
		})
	}

	t.Run("semicolons inside block", func(t *testing.T) {
		got := parseString(t, "{ a = 1; b = 2; }")
		want := "{ (a = 1); (b = 2) }"
		if got != want {
			t.Fatalf("parse = %q, want %q", got, want)
		}
	})
}

func TestParseDefine(t *testing.T) {
	got := parseString(t, "define add(a, b) { auto c; c = a + b; return c }")
	want := "define add(2 params, 1 autos)"
	if got != want {
		t.Fatalf("parse define = %q, want %q", got, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing for separator", "for (i = 0 i < 10; i = i + 1) break"},
		{"bad assignment target", "1 = 2"},
		{"unterminated block", "{ a = 1"},
		{"multi-letter variable", "define f(ab) { return ab }"},
	}
	// break/continue outside a loop still parses fine; rejecting that is
	// internal/lower's job, not the parser's.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lexer.Lex(tt.input)
			if err != nil {
				return
			}
			if _, err := Parse(toks, tt.input); err == nil {
				t.Fatalf("Parse(%q) expected an error, got none", tt.input)
			}
		})
	}
}
