package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/slox-lang/slox/pkg/ast"
	"github.com/slox-lang/slox/pkg/formatter"
	"github.com/slox-lang/slox/pkg/help"
	"github.com/slox-lang/slox/pkg/lexer"
	"github.com/slox-lang/slox/pkg/parser"
	"github.com/slox-lang/slox/pkg/runtime"
)

func (a *app) cmdFmt(args []string) int {
	var file string
	write := false

	for _, arg := range args {
		switch arg {
		case "--write", "-w":
			write = true
		default:
			if arg == "-" || !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.stderr, "usage: slox fmt <file|-> [--write]")
		return runtime.ExitUsage
	}
	if write && file == "-" {
		fmt.Fprintln(a.stderr, "--write needs a file, not stdin")
		return runtime.ExitUsage
	}

	source, ok := a.readSource(file)
	if !ok {
		return runtime.ExitUsage
	}

	formatted, err := a.newRuntime().Format(source)
	if err != nil {
		a.printDiagnostics(runtime.Diagnostics(err), false)
		return runtime.ExitDataErr
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(a.stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			return a.ioError("cannot write file: %s", file)
		}
		return runtime.ExitOK
	}
	fmt.Fprint(a.stdout, formatted)
	return runtime.ExitOK
}

func (a *app) cmdAst(args []string) int {
	pretty := slices.Contains(args, "--pretty")
	file := positional(args)
	if file == "" {
		fmt.Fprintln(a.stderr, "usage: slox ast <file|-> [--pretty]")
		return runtime.ExitUsage
	}
	source, ok := a.readSource(file)
	if !ok {
		return runtime.ExitUsage
	}

	stmts, diags := parser.ParseSource(source)
	if len(diags) > 0 {
		a.printDiagnostics(diags, pretty)
		return runtime.ExitDataErr
	}
	if len(stmts) > 0 {
		fmt.Fprintln(a.stdout, ast.SexprAll(stmts))
	}
	return runtime.ExitOK
}

// cmdTokens prints one token per line. The stream is printed even when
// scanning reports errors.
func (a *app) cmdTokens(args []string) int {
	pretty := slices.Contains(args, "--pretty")
	file := positional(args)
	if file == "" {
		fmt.Fprintln(a.stderr, "usage: slox tokens <file|-> [--pretty]")
		return runtime.ExitUsage
	}
	source, ok := a.readSource(file)
	if !ok {
		return runtime.ExitUsage
	}

	tokens, diags := lexer.Tokenize(source)
	for _, tok := range tokens {
		fmt.Fprintf(a.stdout, "%4d  %s\n", tok.Line, tok)
	}
	if len(diags) > 0 {
		a.printDiagnostics(diags, pretty)
		return runtime.ExitDataErr
	}
	return runtime.ExitOK
}

func (a *app) cmdHelp(args []string) int {
	topic := positional(args)
	if topic == "" {
		fmt.Fprint(a.stdout, help.QUICKREF)
		return runtime.ExitOK
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return runtime.ExitUsage
	}
	fmt.Fprint(a.stdout, content)
	return runtime.ExitOK
}
