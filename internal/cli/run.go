package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slox-lang/slox/internal/watch"
	"github.com/slox-lang/slox/pkg/evaluator"
	"github.com/slox-lang/slox/pkg/runtime"
)

const runUsage = "usage: slox run <file|-> [--pretty] [--watch] [--dump-globals] [--trace <file.jsonl>] [--define name=json] [--max-depth N] [--max-steps N]"

type runOptions struct {
	file        string
	pretty      bool
	watch       bool
	dumpGlobals bool
	tracePath   string
	defines     []string
	maxDepth    int
	maxSteps    int64
}

func parseRunOptions(args []string) (runOptions, error) {
	var opts runOptions
	next := func(i *int, flag string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		*i++
		return args[*i], nil
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--pretty":
			opts.pretty = true
		case "--watch":
			opts.watch = true
		case "--dump-globals":
			opts.dumpGlobals = true
		case "--trace":
			v, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.tracePath = v
		case "--define":
			v, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			opts.defines = append(opts.defines, v)
		case "--max-depth":
			v, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 || n > evaluator.MaxDepthLimit {
				return opts, fmt.Errorf("invalid --max-depth %q (max %d)", v, evaluator.MaxDepthLimit)
			}
			opts.maxDepth = n
		case "--max-steps":
			v, err := next(&i, arg)
			if err != nil {
				return opts, err
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return opts, fmt.Errorf("invalid --max-steps %q", v)
			}
			opts.maxSteps = n
		default:
			if arg != "-" && strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown option %s", arg)
			}
			if opts.file != "" {
				return opts, fmt.Errorf("unexpected argument %s", arg)
			}
			opts.file = arg
		}
	}
	if opts.file == "" {
		return opts, errors.New("missing file")
	}
	if opts.watch && opts.file == "-" {
		return opts, errors.New("--watch needs a file, not stdin")
	}
	return opts, nil
}

// parseDefines turns name=json pairs into global bindings.
func parseDefines(defs []string) (map[string]evaluator.Value, error) {
	out := make(map[string]evaluator.Value, len(defs))
	for _, def := range defs {
		name, raw, ok := strings.Cut(def, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --define %q, want name=json", def)
		}
		v, err := evaluator.ParseJSONToValue(json.RawMessage(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid --define %q: %w", def, err)
		}
		out[name] = v
	}
	return out, nil
}

func (a *app) cmdRun(args []string) int {
	opts, err := parseRunOptions(args)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s\n%s\n", err, runUsage)
		return runtime.ExitUsage
	}
	globals, err := parseDefines(opts.defines)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return runtime.ExitUsage
	}

	runOpts := []runtime.Option{runtime.WithEcho(false)}
	if opts.maxDepth > 0 || opts.maxSteps > 0 {
		budget := evaluator.Budget{MaxDepth: a.cfg.Budget.MaxDepth, MaxSteps: a.cfg.Budget.MaxSteps}
		if opts.maxDepth > 0 {
			budget.MaxDepth = opts.maxDepth
		}
		if opts.maxSteps > 0 {
			budget.MaxSteps = opts.maxSteps
		}
		runOpts = append(runOpts, runtime.WithBudget(budget))
	}
	runID := uuid.NewString()
	runOpts = append(runOpts, runtime.WithRunID(runID))

	var tw *traceWriter
	if opts.tracePath != "" {
		f, err := os.Create(opts.tracePath)
		if err != nil {
			return a.ioError("cannot create trace file: %s", opts.tracePath)
		}
		defer f.Close()
		tw = newTraceWriter(f, runID)
		runOpts = append(runOpts, runtime.WithTrace(tw.write))
	}
	rt := a.newRuntime(runOpts...)

	runOnce := func() int {
		source, ok := a.readSource(opts.file)
		if !ok {
			return runtime.ExitUsage
		}
		env := evaluator.NewEnv(nil)
		for name, v := range globals {
			env.Define(name, v)
		}
		tw.mark("run_start")
		_, err := rt.Run(a.ctx, source, env)
		tw.mark("run_end")
		a.printDiagnostics(runtime.Diagnostics(err), opts.pretty)
		code := runtime.ExitCode(err)
		if opts.dumpGlobals && code != runtime.ExitDataErr {
			data, jerr := evaluator.EnvToJSON(env)
			if jerr != nil {
				fmt.Fprintf(a.stderr, "error serializing globals: %s\n", jerr)
				return runtime.ExitUsage
			}
			fmt.Fprintln(a.stdout, string(data))
		}
		return code
	}

	code := runOnce()
	if !opts.watch {
		return code
	}
	return a.watchAndRerun(opts.file, runOnce)
}

// watchAndRerun reruns the script whenever it changes on disk, until the
// context is canceled.
func (a *app) watchAndRerun(file string, runOnce func() int) int {
	var mu sync.Mutex
	w, err := watch.New(a.cfg.Debounce(), []string{"*~", ".#*", "*.swp"}, a.logger, func(paths []string) {
		mu.Lock()
		defer mu.Unlock()
		a.logger.Info("file changed, rerunning", "file", file, "paths", paths)
		fmt.Fprintf(a.stderr, "--- %s changed, rerunning\n", file)
		runOnce()
	})
	if err != nil {
		return a.ioError("cannot watch %s: %v", file, err)
	}
	defer w.Close()
	if err := w.Add(file); err != nil {
		return a.ioError("cannot watch %s: %v", file, err)
	}
	a.logger.Info("watching for changes", "file", file)
	if err := w.Run(a.ctx); err != nil && !errors.Is(err, a.ctx.Err()) {
		return a.ioError("watch failed: %v", err)
	}
	return runtime.ExitOK
}

// traceEvent is one line of a trace file.
type traceEvent struct {
	RunID string `json:"runId"`
	evaluator.TraceEvent
}

// traceWriter writes interpreter trace events as JSON lines. A nil
// traceWriter discards everything.
type traceWriter struct {
	mu    sync.Mutex
	enc   *json.Encoder
	runID string
}

func newTraceWriter(w io.Writer, runID string) *traceWriter {
	return &traceWriter{enc: json.NewEncoder(w), runID: runID}
}

func (t *traceWriter) write(ev evaluator.TraceEvent) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.enc.Encode(traceEvent{RunID: t.runID, TraceEvent: ev})
}

func (t *traceWriter) mark(event string) {
	if t == nil {
		return
	}
	t.write(evaluator.TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Event:     evaluator.TraceEventType(event),
	})
}
