// Package compiler drives the whole pipeline from source text to a linked
// ROM image: lex, parse, lower, emit, link. It is grounded on the teacher's
// pkg/compiler/compile.go, which chains Lex/Parse/Generate/Assemble the same
// straight-line way and stops at the first stage that fails.
package compiler

import (
	"fmt"

	"github.com/ajokela/kz80-bc/internal/bytecode"
	"github.com/ajokela/kz80-bc/internal/lexer"
	"github.com/ajokela/kz80-bc/internal/lower"
	"github.com/ajokela/kz80-bc/internal/parser"
	"github.com/ajokela/kz80-bc/internal/rom"
)

// Kind classifies which stage of the pipeline an Error came from.
type Kind int

const (
	LexError Kind = iota
	ParseError
	SemanticError
	CodegenError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "LexError"
	case ParseError:
		return "ParseError"
	case SemanticError:
		return "SemanticError"
	case CodegenError:
		return "CodegenError"
	default:
		return "Error"
	}
}

// Error wraps a failure from any pipeline stage with the stage it came
// from. Propagation is fail-fast: the first error aborts compilation, so
// callers only ever see one of these per Compile call.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Result is everything a caller might want out of a successful compile: the
// final ROM bytes plus the intermediate bytecode, kept around for
// diagnostics even though this package's own CLI surface doesn't dump it;
// token/AST/bytecode dumps are an out-of-scope collaborator surface.
type Result struct {
	ROM      []byte
	Bytecode *bytecode.Program
}

// Compile turns bc source into a linked ROM image. It is a pure function of
// src: no filesystem access, no shared state across calls.
func Compile(src string) (*Result, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, &Error{Kind: LexError, Err: err}
	}

	prog, err := parser.Parse(toks, src)
	if err != nil {
		return nil, &Error{Kind: ParseError, Err: err}
	}

	bc, err := lower.Lower(prog)
	if err != nil {
		return nil, &Error{Kind: SemanticError, Err: err}
	}

	image, err := rom.Build(bc)
	if err != nil {
		return nil, &Error{Kind: CodegenError, Err: err}
	}

	return &Result{ROM: image, Bytecode: bc}, nil
}
