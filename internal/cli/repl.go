package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slox-lang/slox/pkg/diagnostics"
	"github.com/slox-lang/slox/pkg/evaluator"
	"github.com/slox-lang/slox/pkg/help"
	"github.com/slox-lang/slox/pkg/lexer"
	"github.com/slox-lang/slox/pkg/parser"
	"github.com/slox-lang/slox/pkg/runtime"
)

const continuationPrompt = "... "

// lineReader is satisfied by *liner.State.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// scanReader reads lines from a non-interactive stream without prompting.
type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if r.sc.Scan() {
		return r.sc.Text(), nil
	}
	if err := r.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

type replSession struct {
	app *app
	rt  *runtime.Runtime
	env *evaluator.Env
}

func (a *app) cmdRepl(args []string) int {
	metricsAddr := a.cfg.Metrics.Addr
	noEcho := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--metrics-addr":
			if i+1 >= len(args) {
				fmt.Fprintln(a.stderr, "usage: slox repl [--metrics-addr <host:port>] [--no-echo]")
				return runtime.ExitUsage
			}
			i++
			metricsAddr = args[i]
		case "--no-echo":
			noEcho = true
		default:
			fmt.Fprintf(a.stderr, "Unknown option: %s\n", args[i])
			return runtime.ExitUsage
		}
	}

	opts := []runtime.Option{runtime.WithEcho(a.cfg.EchoEnabled() && !noEcho)}
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, runtime.WithMetrics(runtime.NewMetrics(reg)))
		srv := newMetricsServer(metricsAddr, reg, a.logger)
		if err := srv.Start(); err != nil {
			return a.ioError("cannot start metrics server on %s: %v", metricsAddr, err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Stop(ctx)
		}()
	}

	s := &replSession{app: a, rt: a.newRuntime(opts...), env: evaluator.NewEnv(nil)}

	if f, ok := a.stdin.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return s.interactive()
	}
	return s.loop(&scanReader{sc: bufio.NewScanner(a.stdin)}, "", nil)
}

// interactive runs the session with line editing and persistent history.
func (s *replSession) interactive() int {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	historyFile := s.app.cfg.REPL.HistoryFile
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = ln.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Fprintf(s.app.stdout, "slox %s. Type :help for help, :quit to exit.\n", help.Version)
	code := s.loop(ln, s.app.cfg.REPL.Prompt, ln.AppendHistory)

	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0o755); err == nil {
			if f, err := os.Create(historyFile); err == nil {
				_, _ = ln.WriteHistory(f)
				f.Close()
			}
		}
	}
	return code
}

func (s *replSession) loop(r lineReader, prompt string, remember func(string)) int {
	for {
		src, err := readInput(r, prompt)
		if errors.Is(err, io.EOF) {
			if prompt != "" {
				fmt.Fprintln(s.app.stdout)
			}
			return runtime.ExitOK
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			return s.app.ioError("cannot read input: %v", err)
		}

		trimmed := strings.TrimSpace(src)
		if trimmed == "" {
			continue
		}
		if remember != nil {
			remember(strings.TrimRight(src, "\n"))
		}
		if strings.HasPrefix(trimmed, ":") {
			if quit := s.command(trimmed); quit {
				return runtime.ExitOK
			}
			continue
		}

		_, err = s.rt.Run(s.app.ctx, src, s.env)
		s.app.printDiagnostics(runtime.Diagnostics(err), true)
		if s.app.ctx.Err() != nil {
			return runtime.ExitCode(err)
		}
	}
}

// command handles a ':' REPL command and reports whether to quit.
func (s *replSession) command(line string) bool {
	fields := strings.Fields(line)
	out := s.app.stdout
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		if len(fields) == 1 {
			fmt.Fprint(out, help.Topics["repl"])
			return false
		}
		_, content, err := help.MatchTopic(fields[1])
		if err != nil {
			fmt.Fprintf(s.app.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
			return false
		}
		fmt.Fprint(out, content)
	case ":env":
		names := s.env.Names()
		if len(names) == 0 {
			fmt.Fprintln(out, "(no globals)")
		}
		for _, name := range names {
			v, _ := s.env.Get(name)
			fmt.Fprintf(out, "%s = %s\n", name, evaluator.Stringify(v))
		}
	case ":reset":
		s.env = evaluator.NewEnv(nil)
		fmt.Fprintln(out, "Environment cleared.")
	case ":load":
		if len(fields) != 2 {
			fmt.Fprintln(s.app.stderr, "usage: :load <file>")
			return false
		}
		source, ok := s.app.readSource(fields[1])
		if !ok {
			return false
		}
		_, err := s.rt.Run(s.app.ctx, source, s.env)
		s.app.printDiagnostics(runtime.Diagnostics(err), true)
	default:
		fmt.Fprintf(s.app.stderr, "Unknown command: %s (try :help)\n", fields[0])
	}
	return false
}

// readInput reads one logical entry, continuing onto further lines while
// the text so far only fails because it ends too early. A blank
// continuation line submits what was typed.
func readInput(r lineReader, prompt string) (string, error) {
	var buf strings.Builder
	p := prompt
	for {
		line, err := r.Prompt(p)
		if err != nil {
			if errors.Is(err, io.EOF) && buf.Len() > 0 {
				return buf.String(), nil
			}
			return "", err
		}
		if buf.Len() > 0 && strings.TrimSpace(line) == "" {
			return buf.String(), nil
		}
		buf.WriteString(line)
		buf.WriteByte('\n')

		src := buf.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") || !incomplete(src) {
			return src, nil
		}
		if prompt != "" {
			p = continuationPrompt
		}
	}
}

// incomplete reports whether src fails only because input ended early: an
// unterminated string or a parse error at end of input.
func incomplete(src string) bool {
	tokens, scanDiags := lexer.Tokenize(src)
	for _, d := range scanDiags {
		if d.Message == "Unterminated string." {
			return true
		}
	}
	if len(scanDiags) > 0 {
		return false
	}
	_, diags := parser.Parse(tokens)
	if len(diags) == 0 {
		return false
	}
	for _, d := range diags {
		if d.Code != diagnostics.EParse || d.Where != " at end" {
			return false
		}
	}
	return true
}
