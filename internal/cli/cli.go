// Package cli implements the slox command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/slox-lang/slox/pkg/config"
	"github.com/slox-lang/slox/pkg/diagnostics"
	"github.com/slox-lang/slox/pkg/evaluator"
	"github.com/slox-lang/slox/pkg/help"
	"github.com/slox-lang/slox/pkg/runtime"
)

const usage = `usage: slox [--config <path>] [--verbose] <command> [options]
commands: run, repl, check, fmt, ast, tokens, trace, help
  slox <file>      run a script
  slox             start the REPL
`

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
)

type app struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    *config.Config
	logger *slog.Logger
	color  bool
}

// Main runs the slox command line with args (without the program name)
// and returns the process exit code.
func Main(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	configPath := ""
	verbose := false
	for len(args) > 0 && strings.HasPrefix(args[0], "-") && args[0] != "-" {
		switch {
		case args[0] == "--config" && len(args) > 1:
			configPath = args[1]
			args = args[1:]
		case strings.HasPrefix(args[0], "--config="):
			configPath = strings.TrimPrefix(args[0], "--config=")
		case args[0] == "--verbose" || args[0] == "-v":
			verbose = true
		case args[0] == "--help" || args[0] == "-h":
			args = append([]string{"help"}, args[1:]...)
			continue
		case args[0] == "--version":
			fmt.Fprintf(stdout, "slox %s\n", help.Version)
			return runtime.ExitOK
		default:
			fmt.Fprintf(stderr, "Unknown option: %s\n%s", args[0], usage)
			return runtime.ExitUsage
		}
		args = args[1:]
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EConfig, 0, "", err.Error())
		fmt.Fprintln(stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
		return runtime.ExitUsage
	}

	level, _ := config.ParseLevel(cfg.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	a := &app{
		ctx:    ctx,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
		color:  colorEnabled(stderr),
	}

	if len(args) == 0 {
		return a.cmdRepl(nil)
	}

	cmd := args[0]
	switch cmd {
	case "run":
		return a.cmdRun(args[1:])
	case "repl":
		return a.cmdRepl(args[1:])
	case "check":
		return a.cmdCheck(args[1:])
	case "fmt":
		return a.cmdFmt(args[1:])
	case "ast":
		return a.cmdAst(args[1:])
	case "tokens":
		return a.cmdTokens(args[1:])
	case "trace":
		return a.cmdTrace(args[1:])
	case "help":
		return a.cmdHelp(args[1:])
	}
	if info, err := os.Stat(cmd); err == nil && !info.IsDir() {
		return a.cmdRun(args)
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n%s", cmd, usage)
	return runtime.ExitUsage
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, _, err := config.Discover(cwd)
	return cfg, err
}

// colorEnabled reports whether w is a terminal that accepts ANSI styling.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *app) newRuntime(opts ...runtime.Option) *runtime.Runtime {
	base := []runtime.Option{
		runtime.WithOutput(a.stdout),
		runtime.WithLogger(a.logger),
		runtime.WithBudget(evaluator.Budget{
			MaxDepth: a.cfg.Budget.MaxDepth,
			MaxSteps: a.cfg.Budget.MaxSteps,
		}),
	}
	return runtime.New(append(base, opts...)...)
}

// printDiagnostics writes diags to stderr, one styled line each in pretty
// mode and as a JSON array otherwise.
func (a *app) printDiagnostics(diags []diagnostics.Diagnostic, pretty bool) {
	if len(diags) == 0 {
		return
	}
	if !pretty {
		fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(diags, false))
		return
	}
	for _, d := range diags {
		fmt.Fprintln(a.stderr, a.styleDiagnostic(d))
	}
}

func (a *app) styleDiagnostic(d diagnostics.Diagnostic) string {
	line := diagnostics.FormatDiagnostic(d, true)
	if !a.color {
		return line
	}
	if d.IsError() {
		return errorStyle.Render(line)
	}
	return warningStyle.Render(line)
}

func (a *app) success(msg string) string {
	if !a.color {
		return msg
	}
	return successStyle.Render(msg)
}

func (a *app) ioError(format string, args ...any) int {
	diag := diagnostics.MakeDiag(diagnostics.EIO, 0, "", fmt.Sprintf(format, args...))
	fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, false))
	return runtime.ExitUsage
}

// readSource reads file, or stdin when file is "-".
func (a *app) readSource(file string) (string, bool) {
	if file == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			a.ioError("cannot read stdin: %v", err)
			return "", false
		}
		return string(data), true
	}
	data, err := os.ReadFile(file)
	if err != nil {
		a.ioError("cannot read file: %s", file)
		return "", false
	}
	return string(data), true
}

// positional returns the first non-flag argument.
func positional(args []string) string {
	for _, arg := range args {
		if arg == "-" || !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return ""
}
