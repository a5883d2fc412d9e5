package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slox-lang/slox/pkg/diagnostics"
	"github.com/slox-lang/slox/pkg/evaluator"
	"github.com/slox-lang/slox/pkg/runtime"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	var stdout, stderr bytes.Buffer
	code := Main(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func decodeDiags(t *testing.T, s string) []diagnostics.Diagnostic {
	t.Helper()
	var diags []diagnostics.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(s)), &diags), s)
	return diags
}

func TestRunFile(t *testing.T) {
	path := writeScript(t, t.TempDir(), "hello.lox", `var greeting = "hello"; print greeting; 1 + 2;`)
	res := run(t, "", "run", path)
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "hello\n", res.stdout, "expression statements do not echo in files")
	assert.Empty(t, res.stderr)
}

func TestRunBareFileArgument(t *testing.T) {
	path := writeScript(t, t.TempDir(), "main.lox", "print 42;")
	res := run(t, "", path)
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "42\n", res.stdout)
}

func TestRunStdin(t *testing.T) {
	res := run(t, "print 1 + 1;", "run", "-")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "2\n", res.stdout)
}

func TestRunRuntimeError(t *testing.T) {
	path := writeScript(t, t.TempDir(), "bad.lox", "print 1;\nprint -\"x\";\nprint 2;")
	res := run(t, "", "run", path)
	assert.Equal(t, runtime.ExitSoftware, res.code)
	assert.Equal(t, "1\n", res.stdout)

	diags := decodeDiags(t, res.stderr)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.EType, diags[0].Code)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, "Operand must be a number.", diags[0].Message)
}

func TestRunParseErrorPretty(t *testing.T) {
	path := writeScript(t, t.TempDir(), "bad.lox", "print 1;\nprint ;\nvar = 3;")
	res := run(t, "", "run", path, "--pretty")
	assert.Equal(t, runtime.ExitDataErr, res.code)
	assert.Empty(t, res.stdout)
	assert.Equal(t,
		"[line 2] Error at ';': Expect expression.\n[line 3] Error at '=': Expect variable name.\n",
		res.stderr)
}

func TestRunDefineAndDumpGlobals(t *testing.T) {
	path := writeScript(t, t.TempDir(), "g.lox", "var total = base * 2;")
	res := run(t, "", "run", path, "--define", "base=21", "--dump-globals")
	require.Equal(t, runtime.ExitOK, res.code, res.stderr)

	var globals map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &globals))
	assert.Equal(t, map[string]any{"base": float64(21), "total": float64(42)}, globals)
}

func TestRunRejectsBadDefine(t *testing.T) {
	res := run(t, "", "run", "-", "--define", "novalue")
	assert.Equal(t, runtime.ExitUsage, res.code)
	assert.Contains(t, res.stderr, "want name=json")
}

func TestRunBudgetFlags(t *testing.T) {
	path := writeScript(t, t.TempDir(), "loop.lox", "fun f(n) { return f(n + 1); } f(0);")
	res := run(t, "", "run", path, "--max-depth", "16", "--pretty")
	assert.Equal(t, runtime.ExitSoftware, res.code)
	assert.Contains(t, res.stderr, "Stack overflow.")

	path = writeScript(t, t.TempDir(), "spin.lox", "while true {}")
	res = run(t, "", "run", path, "--max-steps", "100")
	assert.Equal(t, runtime.ExitSoftware, res.code)
	assert.Equal(t, diagnostics.EBudget, decodeDiags(t, res.stderr)[0].Code)
}

func TestRunTraceFileAndSummary(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "calls.lox", "fun sq(x) { return x * x; }\nprint sq(2);\nprint sq(3);")
	tracePath := filepath.Join(dir, "trace.jsonl")

	res := run(t, "", "run", path, "--trace", tracePath)
	require.Equal(t, runtime.ExitOK, res.code, res.stderr)
	assert.Equal(t, "4\n9\n", res.stdout)

	res = run(t, "", "trace", tracePath)
	require.Equal(t, runtime.ExitOK, res.code)
	var summary TraceSummary
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Runs)
	assert.Equal(t, 2, summary.Calls)
	assert.Equal(t, map[string]int{"sq": 2}, summary.CallsByName)
	assert.Equal(t, 1, summary.MaxDepth)
	assert.GreaterOrEqual(t, summary.Statements, 5)

	res = run(t, "", "trace", tracePath, "--text")
	require.Equal(t, runtime.ExitOK, res.code)
	assert.Contains(t, res.stdout, "Calls: 2 (max depth 1)")
	assert.Contains(t, res.stdout, "  sq: 2")
}

func TestComputeTraceSummarySkipsGarbage(t *testing.T) {
	input := `{"runId":"r1","ts":"2026-01-02T03:04:05Z","event":"run_start","line":0,"depth":0}
not json
{"runId":"r1","ts":"2026-01-02T03:04:05.5Z","event":"stmt_start","line":1,"kind":"PrintStmt","depth":0}

{"runId":"r1","ts":"2026-01-02T03:04:06Z","event":"run_end","line":0,"depth":0}
`
	s := computeTraceSummary(strings.NewReader(input))
	assert.Equal(t, "r1", s.RunID)
	assert.Equal(t, 3, s.TotalEvents)
	assert.Equal(t, 1, s.Statements)
	assert.InDelta(t, 1000, s.DurationMs, 0.001)
}

func TestCheckFile(t *testing.T) {
	dir := t.TempDir()
	good := writeScript(t, dir, "good.lox", "print 1;")
	res := run(t, "", "check", good)
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "[]\n", res.stdout)

	res = run(t, "", "check", good, "--pretty")
	assert.Equal(t, "No errors found.\n", res.stdout)

	bad := writeScript(t, dir, "dup.lox", "fun f(a, a) { return a; }")
	res = run(t, "", "check", bad)
	assert.Equal(t, runtime.ExitDataErr, res.code)
	assert.Equal(t, diagnostics.EDupParam, decodeDiags(t, res.stderr)[0].Code)
}

func TestCheckWarningsDoNotFail(t *testing.T) {
	path := writeScript(t, t.TempDir(), "shadow.lox", "var a = 1; { var a = a; }")
	res := run(t, "", "check", path, "--pretty")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Contains(t, res.stderr, "Warning")
	assert.Equal(t, "No errors found.\n", res.stdout)
}

func TestCheckDirectory(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lox", "print 1;")
	writeScript(t, dir, "nested/b.lox", "print ;")
	writeScript(t, dir, "notes.txt", "this is not slox")

	res := run(t, "", "check", dir)
	assert.Equal(t, runtime.ExitDataErr, res.code)
	var results []fileDiagnostics
	require.NoError(t, json.Unmarshal([]byte(res.stderr), &results))
	require.Len(t, results, 1)
	assert.Equal(t, filepath.Join(dir, "nested", "b.lox"), results[0].File)

	require.NoError(t, os.Remove(filepath.Join(dir, "nested", "b.lox")))
	res = run(t, "", "check", dir, "--pretty")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "No errors found in 1 files.\n", res.stdout)
}

func TestCheckHonoursConfigExclude(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "src/ok.lox", "print 1;")
	writeScript(t, dir, "src/gen/broken.lox", "print ;")
	cfg := writeScript(t, t.TempDir(), "slox.toml", "[check]\nexclude = [\"gen/**\"]\n")

	res := run(t, "", "--config", cfg, "check", filepath.Join(dir, "src"))
	assert.Equal(t, runtime.ExitOK, res.code, res.stderr)
}

func TestFmt(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "messy.lox", "// note\nvar x=1;if x>0{print x;}")
	res := run(t, "", "fmt", path)
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "var x = 1;\nif x > 0 {\n  print x;\n}\n", res.stdout)
	assert.Contains(t, res.stderr, "comments are not preserved")

	res = run(t, "", "fmt", path, "--write")
	assert.Equal(t, runtime.ExitOK, res.code)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "var x = 1;\nif x > 0 {\n  print x;\n}\n", string(data))

	res = run(t, "var", "fmt", "-")
	assert.Equal(t, runtime.ExitDataErr, res.code)
}

func TestAstAndTokens(t *testing.T) {
	res := run(t, "print 1 + 2 * 3;", "ast", "-")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "(print (+ 1 (* 2 3)))\n", res.stdout)

	res = run(t, "var x;\n@", "tokens", "-")
	assert.Equal(t, runtime.ExitDataErr, res.code)
	assert.Contains(t, res.stdout, "   1  var\n")
	assert.Contains(t, res.stdout, "identifier(x)")
	assert.Contains(t, decodeDiags(t, res.stderr)[0].Message, "Unexpected character.")
}

func TestHelp(t *testing.T) {
	res := run(t, "", "help")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Contains(t, res.stdout, "quick reference")

	res = run(t, "", "help", "sco")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.NotEmpty(t, res.stdout)

	res = run(t, "", "help", "nosuchtopic")
	assert.Equal(t, runtime.ExitUsage, res.code)
	assert.Contains(t, res.stderr, "Available topics")
}

func TestUnknownCommandAndOptions(t *testing.T) {
	res := run(t, "", "frobnicate")
	assert.Equal(t, runtime.ExitUsage, res.code)
	assert.Contains(t, res.stderr, "Unknown command: frobnicate")

	res = run(t, "", "--bogus")
	assert.Equal(t, runtime.ExitUsage, res.code)

	res = run(t, "", "--version")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.True(t, strings.HasPrefix(res.stdout, "slox "))
}

func TestBrokenConfigIsReported(t *testing.T) {
	cfg := writeScript(t, t.TempDir(), "slox.toml", "[log]\nlevel = \"loud\"\n")
	res := run(t, "", "--config", cfg, "help")
	assert.Equal(t, runtime.ExitUsage, res.code)
	assert.Equal(t, diagnostics.EConfig, decodeDiags(t, res.stderr)[0].Code)
}

func TestReplSession(t *testing.T) {
	input := strings.Join([]string{
		"var a = 1;",
		"a + 1;",
		"fun add(x, y) {",
		"  return x + y;",
		"}",
		"print add(a, 41);",
		"print nope;",
		":env",
		":reset",
		":env",
		":bogus",
		"print \"still here\";",
		":quit",
		"print \"never\";",
	}, "\n")
	res := run(t, input, "repl")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t,
		"2\n42\na = 1\nadd = <fn add>\nEnvironment cleared.\n(no globals)\nstill here\n",
		res.stdout)
	assert.Contains(t, res.stderr, "[line 1] Error at 'nope': Undefined variable 'nope'.")
	assert.Contains(t, res.stderr, "Unknown command: :bogus")
}

func TestReplNoEcho(t *testing.T) {
	res := run(t, "1 + 1;\nprint 3;\n", "repl", "--no-echo")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "3\n", res.stdout)
}

func TestReplLoad(t *testing.T) {
	path := writeScript(t, t.TempDir(), "lib.lox", "fun twice(n) { return n * 2; }")
	res := run(t, ":load "+path+"\nprint twice(4);\n", "repl")
	assert.Equal(t, runtime.ExitOK, res.code)
	assert.Equal(t, "8\n", res.stdout)
}

type lines []string

func (l *lines) Prompt(string) (string, error) {
	if len(*l) == 0 {
		return "", io.EOF
	}
	line := (*l)[0]
	*l = (*l)[1:]
	return line, nil
}

func TestReadInputContinuesIncompleteEntries(t *testing.T) {
	in := &lines{"fun f() {", "  return 1;", "}", "print \"a", "b\";", "print 1", "", "print 2;"}

	src, err := readInput(in, "> ")
	require.NoError(t, err)
	assert.Equal(t, "fun f() {\n  return 1;\n}\n", src)

	src, err = readInput(in, "> ")
	require.NoError(t, err)
	assert.Equal(t, "print \"a\nb\";\n", src)

	src, err = readInput(in, "> ")
	require.NoError(t, err)
	assert.Equal(t, "print 1\n", src, "a blank line submits an unfinished entry")

	src, err = readInput(in, "> ")
	require.NoError(t, err)
	assert.Equal(t, "print 2;\n", src)

	_, err = readInput(in, "> ")
	assert.ErrorIs(t, err, io.EOF)
}

func TestIncomplete(t *testing.T) {
	assert.True(t, incomplete("{ print 1;"))
	assert.True(t, incomplete(`print "open`))
	assert.True(t, incomplete("if x"))
	assert.False(t, incomplete("print 1;"))
	assert.False(t, incomplete("print ;"))
	assert.False(t, incomplete("@"))
}

func TestParseDefines(t *testing.T) {
	got, err := parseDefines([]string{`name="slox"`, "on=true", "n=2.5", "none=null"})
	require.NoError(t, err)
	assert.Equal(t, evaluator.NewString("slox"), got["name"])
	assert.Equal(t, evaluator.NewBool(true), got["on"])
	assert.Equal(t, evaluator.NewNumber(2.5), got["n"])
	assert.Equal(t, evaluator.NewNil(), got["none"])

	_, err = parseDefines([]string{"list=[1,2]"})
	assert.Error(t, err)
}

func TestParseRunOptions(t *testing.T) {
	opts, err := parseRunOptions([]string{"--pretty", "main.lox", "--max-steps", "10", "--define", "a=1", "--define", "b=2"})
	require.NoError(t, err)
	assert.Equal(t, "main.lox", opts.file)
	assert.True(t, opts.pretty)
	assert.Equal(t, int64(10), opts.maxSteps)
	assert.Equal(t, []string{"a=1", "b=2"}, opts.defines)

	bad := [][]string{
		{},
		{"a.lox", "b.lox"},
		{"a.lox", "--trace"},
		{"a.lox", "--max-depth", "deep"},
		{"a.lox", "--max-depth", "100000000"},
		{"a.lox", "--max-steps", "-1"},
		{"a.lox", "--frobnicate"},
		{"-", "--watch"},
	}
	for _, args := range bad {
		_, err := parseRunOptions(args)
		assert.Error(t, err, "%v", args)
	}
}
