// Command bc80 compiles a bc-style source file into a Z80 ROM image:
// "bc80 <file> -rom <out>". The -repl, -tokens, -ast and -bytecode flags
// are accepted but ignored; their help text marks them as unimplemented.
// There is no -storage flag.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajokela/kz80-bc/internal/compiler"
)

func main() {
	romPath := flag.String("rom", "", "output ROM path (default: <file>.rom)")
	flag.Bool("repl", false, "emit the bundled REPL ROM (unimplemented external collaborator)")
	flag.Bool("tokens", false, "dump tokens (unimplemented external collaborator)")
	flag.Bool("ast", false, "dump the AST (unimplemented external collaborator)")
	flag.Bool("bytecode", false, "dump bytecode (unimplemented external collaborator)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatalf("usage: bc80 <file> -rom <out>")
	}
	srcPath := flag.Arg(0)
	out := *romPath
	if out == "" {
		out = strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + ".rom"
	}

	src, err := os.ReadFile(srcPath)
	if err != nil {
		log.Fatalf("read source file: %v", err)
	}

	result, err := compiler.Compile(string(src))
	if err != nil {
		log.Fatalf("compile %s: %v", srcPath, err)
	}

	if err := os.WriteFile(out, result.ROM, 0o644); err != nil {
		log.Fatalf("write ROM file: %v", err)
	}
}
