// Command uoocc reads C source from stdin and writes x86-64 AT&T assembly
// to stdout: lexer -> parser -> analyzer -> codegen (spec.md §2, §6.3).
//
// There are no flags, environment variables or file arguments — source in
// on stdin, assembly out on stdout, exit 0 on success and 1 on any error
// (message on stderr), exactly per spec.md §6.3's CLI contract.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"

	"hmny.dev/uoocc/pkg/analyzer"
	"hmny.dev/uoocc/pkg/codegen"
	"hmny.dev/uoocc/pkg/parser"
)

var Description = strings.ReplaceAll(`
uoocc compiles a strict int/pointer/array-typed subset of C to x86-64
System V assembly. It reads one translation unit from stdin and writes the
assembly text to stdout; it has no `+"`"+`return`+"`"+` statement, so a function's
value is whatever its last statement evaluates to.
`, "\n", " ")

var App = cli.New(Description).WithAction(Handler)

// Handler runs the full pipeline once over stdin. It never consults args
// or options — this command takes none.
func Handler(args []string, options map[string]string) int {
	p, err := parser.NewParser(os.Stdin)
	if err != nil {
		return fail(err)
	}

	decls, err := p.Parse()
	if err != nil {
		return fail(err)
	}

	if err := analyzer.New().Analyze(decls); err != nil {
		return fail(err)
	}

	asm, err := codegen.New().Generate(decls)
	if err != nil {
		return fail(err)
	}

	fmt.Fprint(os.Stdout, asm)
	return 0
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err.Error())
	return 1
}

func main() { os.Exit(App.Run(os.Args, os.Stdout)) }
