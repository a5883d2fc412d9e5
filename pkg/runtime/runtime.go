// Package runtime provides the top-level slox runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/slox-lang/slox/pkg/ast"
	"github.com/slox-lang/slox/pkg/diagnostics"
	"github.com/slox-lang/slox/pkg/evaluator"
	"github.com/slox-lang/slox/pkg/formatter"
	"github.com/slox-lang/slox/pkg/lexer"
	"github.com/slox-lang/slox/pkg/parser"
	"github.com/slox-lang/slox/pkg/validator"
)

const tracerName = "github.com/slox-lang/slox/pkg/runtime"

// Result holds the outcome of a program execution.
type Result struct {
	Statements int
	Steps      int64
	Warnings   []diagnostics.Diagnostic
}

// Runtime wires together all slox components for program execution.
type Runtime struct {
	out     io.Writer
	logger  *slog.Logger
	budget  evaluator.Budget
	echo    bool
	trace   func(event evaluator.TraceEvent)
	tracer  trace.Tracer
	metrics *Metrics
	runID   string
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithOutput sets the writer that receives print output.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.out = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithBudget sets the call depth and step limits.
func WithBudget(b evaluator.Budget) Option {
	return func(rt *Runtime) {
		rt.budget = b
	}
}

// WithEcho prints the value of every expression statement.
func WithEcho(on bool) Option {
	return func(rt *Runtime) {
		rt.echo = on
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithTracer sets the OpenTelemetry tracer used for run spans.
func WithTracer(t trace.Tracer) Option {
	return func(rt *Runtime) {
		rt.tracer = t
	}
}

// WithMetrics records run metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(rt *Runtime) {
		rt.metrics = m
	}
}

// WithRunID sets the run ID attached to logs and spans.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// New creates a new Runtime with the given options.
// By default output goes to stdout, logs are discarded, spans go to the
// global tracer provider, and the run ID is a fresh UUID.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		out:    os.Stdout,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer(tracerName),
		runID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// RunID returns the run ID attached to logs and spans.
func (rt *Runtime) RunID() string {
	return rt.runID
}

// Run scans, parses, validates, and executes a slox program against env.
// Scan, parse, and validation errors are returned as *DiagnosticError and
// nothing executes. A runtime failure is returned as
// *evaluator.RuntimeError after earlier statements have taken effect.
// Validation warnings are logged and returned in the Result.
func (rt *Runtime) Run(ctx context.Context, source string, env *evaluator.Env) (*Result, error) {
	start := time.Now()
	ctx, span := rt.tracer.Start(ctx, "slox.run", trace.WithAttributes(
		attribute.String("slox.run_id", rt.runID),
		attribute.Int("slox.source_bytes", len(source)),
	))
	defer span.End()
	log := rt.logger.With("run_id", rt.runID)

	res, err := rt.run(ctx, source, env, log, span)

	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if res != nil {
		span.SetAttributes(attribute.Int64("slox.steps", res.Steps))
	}
	rt.metrics.observe(res, err, elapsed)
	log.Debug("run finished", "elapsed", elapsed, "error", err)
	return res, err
}

func (rt *Runtime) run(ctx context.Context, source string, env *evaluator.Env, log *slog.Logger, span trace.Span) (*Result, error) {
	tokens, scanDiags := lexer.Tokenize(source)
	span.AddEvent("scan", trace.WithAttributes(attribute.Int("slox.tokens", len(tokens))))
	log.Debug("scanned", "tokens", len(tokens), "diagnostics", len(scanDiags))

	stmts, parseDiags := parser.Parse(tokens)
	span.AddEvent("parse", trace.WithAttributes(attribute.Int("slox.statements", len(stmts))))
	log.Debug("parsed", "statements", len(stmts), "diagnostics", len(parseDiags))

	if diags := append(scanDiags, parseDiags...); len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	warnings, errs := split(validator.Validate(stmts))
	for _, w := range warnings {
		log.Warn("validation warning", "code", w.Code, "line", w.Line, "message", w.Message)
	}
	if len(errs) > 0 {
		return &Result{Warnings: warnings}, &DiagnosticError{Diagnostics: errs}
	}

	in := evaluator.New(evaluator.Options{
		Out:    rt.out,
		Echo:   rt.echo,
		Budget: rt.budget,
		Trace:  rt.trace,
	})
	span.AddEvent("execute")
	err := in.Execute(ctx, stmts, env)
	res := &Result{Statements: len(stmts), Steps: in.Steps(), Warnings: warnings}
	log.Debug("executed", "steps", res.Steps)
	return res, err
}

// Check scans, parses, and validates a slox program without executing it.
// Validation runs only when the program parses cleanly.
func (rt *Runtime) Check(source string) []diagnostics.Diagnostic {
	stmts, diags := parser.ParseSource(source)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(stmts)
}

// Parse scans and parses a slox program.
func (rt *Runtime) Parse(source string) ([]ast.Stmt, error) {
	stmts, diags := parser.ParseSource(source)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return stmts, nil
}

// Format parses and formats a slox program.
func (rt *Runtime) Format(source string) (string, error) {
	stmts, err := rt.Parse(source)
	if err != nil {
		return "", err
	}
	return formatter.Format(stmts), nil
}

func split(diags []diagnostics.Diagnostic) (warnings, errs []diagnostics.Diagnostic) {
	for _, d := range diags {
		if d.IsError() {
			errs = append(errs, d)
		} else {
			warnings = append(warnings, d)
		}
	}
	return warnings, errs
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// Diagnostics converts any error returned by Run into diagnostics.
func Diagnostics(err error) []diagnostics.Diagnostic {
	if err == nil {
		return nil
	}
	var de *DiagnosticError
	if errors.As(err, &de) {
		return de.Diagnostics
	}
	if rerr, ok := evaluator.AsRuntimeError(err); ok {
		return []diagnostics.Diagnostic{rerr.Diagnostic()}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ERuntime, 0, "", err.Error())}
}

// Process exit codes used by the slox driver.
const (
	ExitOK       = 0
	ExitUsage    = 1
	ExitDataErr  = 65
	ExitSoftware = 70
)

// ExitCode maps an error returned by Run to a process exit code: scan,
// parse, and validation failures are data errors, runtime failures are
// software errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var de *DiagnosticError
	if errors.As(err, &de) {
		return ExitDataErr
	}
	if _, ok := evaluator.AsRuntimeError(err); ok {
		return ExitSoftware
	}
	return ExitUsage
}
