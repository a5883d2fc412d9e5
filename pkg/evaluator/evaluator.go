package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/slox-lang/slox/pkg/ast"
	"github.com/slox-lang/slox/pkg/diagnostics"
	"github.com/slox-lang/slox/pkg/lexer"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceStmtStart   TraceEventType = "stmt_start"
	TraceFnCallStart TraceEventType = "fn_call_start"
	TraceFnCallEnd   TraceEventType = "fn_call_end"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	Event     TraceEventType `json:"event"`
	Line      int            `json:"line"`
	Kind      string         `json:"kind,omitempty"`
	Name      string         `json:"name,omitempty"`
	Depth     int            `json:"depth"`
}

// Options configures an Interpreter.
type Options struct {
	// Out receives print output. Nil discards it.
	Out io.Writer
	// Echo prints the value of every expression statement.
	Echo   bool
	Budget Budget
	Trace  func(event TraceEvent)
}

// RuntimeError represents a runtime error during slox execution.
// Token locates the operator, name, or closing paren that failed.
type RuntimeError struct {
	Code    string
	Token   lexer.Token
	Message string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a located diagnostic. Errors raised
// by the host (budget, cancellation) carry only a line.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	where := ""
	if e.Token.Type != lexer.TokEOF {
		where = e.Token.Where()
	}
	return diagnostics.MakeDiag(e.Code, e.Token.Line, where, e.Message)
}

func runtimeErr(code string, tok lexer.Token, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Token: tok, Message: fmt.Sprintf(format, args...)}
}

// flow is the outcome of executing a statement: either it completed, or a
// return statement fired and the value is on its way to the enclosing call.
type flow struct {
	returning bool
	value     Value
	keyword   lexer.Token
}

var completed = flow{}

// Interpreter walks statement lists against an environment.
// An Interpreter is not safe for concurrent use; a REPL reuses one
// Interpreter and one global Env across inputs.
type Interpreter struct {
	opts    Options
	ctx     context.Context
	tracker BudgetTracker
}

// New creates an interpreter.
func New(opts Options) *Interpreter {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Interpreter{
		opts:    opts,
		ctx:     context.Background(),
		tracker: BudgetTracker{MaxDepth: opts.Budget.maxDepth()},
	}
}

// Steps returns the number of steps taken by the most recent Execute.
func (in *Interpreter) Steps() int64 {
	return in.tracker.Steps
}

// Execute runs stmts in order against env. The first runtime error aborts
// the remaining statements; side effects of statements already executed
// stay in place. The returned error is a *RuntimeError.
func (in *Interpreter) Execute(ctx context.Context, stmts []ast.Stmt, env *Env) error {
	if ctx == nil {
		ctx = context.Background()
	}
	in.ctx = ctx
	in.tracker = BudgetTracker{MaxDepth: in.opts.Budget.maxDepth()}

	for _, stmt := range stmts {
		f, err := in.execStmt(stmt, env)
		if err != nil {
			return err
		}
		if f.returning {
			return runtimeErr(diagnostics.EReturnTopLevel, f.keyword, "Can't return from top-level code.")
		}
	}
	return nil
}

// Eval evaluates a single expression against env.
func (in *Interpreter) Eval(expr ast.Expr, env *Env) (Value, error) {
	return in.evalExpr(expr, env)
}

func (in *Interpreter) emit(event TraceEventType, line int, kind, name string) {
	if in.opts.Trace == nil {
		return
	}
	in.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Event:     event,
		Line:      line,
		Kind:      kind,
		Name:      name,
		Depth:     in.tracker.Depth,
	})
}

// step charges one unit against MaxSteps.
func (in *Interpreter) step(line int) error {
	in.tracker.Steps++
	if limit := in.opts.Budget.MaxSteps; limit > 0 && in.tracker.Steps > limit {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Token:   lexer.Token{Type: lexer.TokEOF, Line: line},
			Message: fmt.Sprintf("Step budget of %d exceeded.", limit),
		}
	}
	return nil
}

// --- Statements ---

func (in *Interpreter) execStmt(stmt ast.Stmt, env *Env) (flow, error) {
	line := stmt.NodeLine()
	if err := in.ctx.Err(); err != nil {
		return completed, &RuntimeError{
			Code:    diagnostics.ECanceled,
			Token:   lexer.Token{Type: lexer.TokEOF, Line: line},
			Message: fmt.Sprintf("Execution canceled: %v.", err),
		}
	}
	if err := in.step(line); err != nil {
		return completed, err
	}
	in.emit(TraceStmtStart, line, stmt.Kind(), "")

	switch s := stmt.(type) {
	case *ast.ExprStmt:
		v, err := in.evalExpr(s.Expr, env)
		if err != nil {
			return completed, err
		}
		if in.opts.Echo {
			fmt.Fprintln(in.opts.Out, Stringify(v))
		}
		return completed, nil

	case *ast.PrintStmt:
		v, err := in.evalExpr(s.Expr, env)
		if err != nil {
			return completed, err
		}
		fmt.Fprintln(in.opts.Out, Stringify(v))
		return completed, nil

	case *ast.VarStmt:
		v, err := in.evalExpr(s.Initializer, env)
		if err != nil {
			return completed, err
		}
		env.Define(s.Name.Text, v)
		return completed, nil

	case *ast.BlockStmt:
		return in.execBlock(s.Statements, env.Child())

	case *ast.IfStmt:
		cond, err := in.evalExpr(s.Cond, env)
		if err != nil {
			return completed, err
		}
		if Truthiness(cond) {
			return in.execStmt(s.Then, env)
		}
		if s.Else != nil {
			return in.execStmt(s.Else, env)
		}
		return completed, nil

	case *ast.WhileStmt:
		for {
			cond, err := in.evalExpr(s.Cond, env)
			if err != nil {
				return completed, err
			}
			if !Truthiness(cond) {
				return completed, nil
			}
			f, err := in.execStmt(s.Body, env)
			if err != nil || f.returning {
				return f, err
			}
		}

	case *ast.FunStmt:
		env.Define(s.Name.Text, &Closure{
			Name:   s.Name,
			Params: s.Params,
			Body:   s.Body,
			Env:    env,
		})
		return completed, nil

	case *ast.ReturnStmt:
		v, err := in.evalExpr(s.Value, env)
		if err != nil {
			return completed, err
		}
		return flow{returning: true, value: v, keyword: s.Keyword}, nil

	default:
		return completed, &RuntimeError{
			Code:    diagnostics.ERuntime,
			Token:   lexer.Token{Type: lexer.TokEOF, Line: line},
			Message: fmt.Sprintf("Unknown statement kind: %s.", stmt.Kind()),
		}
	}
}

// execBlock runs stmts against env, stopping at the first error or return.
func (in *Interpreter) execBlock(stmts []ast.Stmt, env *Env) (flow, error) {
	for _, stmt := range stmts {
		f, err := in.execStmt(stmt, env)
		if err != nil || f.returning {
			return f, err
		}
	}
	return completed, nil
}

// --- Expressions ---

func (in *Interpreter) evalExpr(expr ast.Expr, env *Env) (Value, error) {
	if err := in.step(expr.NodeLine()); err != nil {
		return nil, err
	}

	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return NewNumber(e.Value), nil
	case *ast.StringLiteral:
		return NewString(e.Value), nil
	case *ast.BoolLiteral:
		return NewBool(e.Value), nil
	case *ast.NilLiteral:
		return NewNil(), nil

	case *ast.Grouping:
		return in.evalExpr(e.Expr, env)

	case *ast.Variable:
		v, ok := env.Get(e.Name.Text)
		if !ok {
			return nil, runtimeErr(diagnostics.EUndefined, e.Name, "Undefined variable '%s'.", e.Name.Text)
		}
		return v, nil

	case *ast.Assign:
		v, err := in.evalExpr(e.Value, env)
		if err != nil {
			return nil, err
		}
		if !env.Assign(e.Name.Text, v) {
			return nil, runtimeErr(diagnostics.EUndefined, e.Name, "Undefined variable '%s'.", e.Name.Text)
		}
		return v, nil

	case *ast.Unary:
		return in.evalUnary(e, env)
	case *ast.Binary:
		return in.evalBinary(e, env)
	case *ast.Logical:
		return in.evalLogical(e, env)
	case *ast.Call:
		return in.evalCall(e, env)

	default:
		return nil, &RuntimeError{
			Code:    diagnostics.ERuntime,
			Token:   lexer.Token{Type: lexer.TokEOF, Line: expr.NodeLine()},
			Message: fmt.Sprintf("Unknown expression kind: %s.", expr.Kind()),
		}
	}
}

func (in *Interpreter) evalUnary(e *ast.Unary, env *Env) (Value, error) {
	operand, err := in.evalExpr(e.Operand, env)
	if err != nil {
		return nil, err
	}
	switch e.Op.Type {
	case lexer.TokMinus:
		n, ok := operand.(Number)
		if !ok {
			return nil, runtimeErr(diagnostics.EType, e.Op, "Operand must be a number.")
		}
		return NewNumber(-n.Value), nil
	case lexer.TokBang:
		b, ok := operand.(Bool)
		if !ok {
			return nil, runtimeErr(diagnostics.EType, e.Op, "Operand must be a boolean.")
		}
		return NewBool(!b.Value), nil
	}
	return nil, runtimeErr(diagnostics.ERuntime, e.Op, "Unknown unary operator '%s'.", e.Op.Lexeme())
}

func (in *Interpreter) evalBinary(e *ast.Binary, env *Env) (Value, error) {
	left, err := in.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := in.evalExpr(e.Right, env)
	if err != nil {
		return nil, err
	}

	switch e.Op.Type {
	case lexer.TokEqEq:
		return NewBool(Equal(left, right)), nil
	case lexer.TokBangEq:
		return NewBool(!Equal(left, right)), nil
	case lexer.TokPlus:
		return addValues(e.Op, left, right)
	case lexer.TokMinus, lexer.TokStar, lexer.TokSlash:
		return arith(e.Op, left, right)
	case lexer.TokGt, lexer.TokGtEq, lexer.TokLt, lexer.TokLtEq:
		return compare(e.Op, left, right)
	}
	return nil, runtimeErr(diagnostics.ERuntime, e.Op, "Unknown binary operator '%s'.", e.Op.Lexeme())
}

func addValues(op lexer.Token, left, right Value) (Value, error) {
	switch l := left.(type) {
	case Number:
		if r, ok := right.(Number); ok {
			return NewNumber(l.Value + r.Value), nil
		}
	case String:
		if r, ok := right.(String); ok {
			return NewString(l.Value + r.Value), nil
		}
	}
	return nil, runtimeErr(diagnostics.EType, op,
		"Operands must be two numbers or two strings, got %s and %s.", typeNameOf(left), typeNameOf(right))
}

// arith handles - * /. Division follows IEEE-754, so x / 0 is ±Inf or NaN.
func arith(op lexer.Token, left, right Value) (Value, error) {
	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, runtimeErr(diagnostics.EType, op, "Operands must be numbers.")
	}
	switch op.Type {
	case lexer.TokMinus:
		return NewNumber(l.Value - r.Value), nil
	case lexer.TokStar:
		return NewNumber(l.Value * r.Value), nil
	default:
		return NewNumber(l.Value / r.Value), nil
	}
}

// compare orders two numbers or two strings; any other pairing is an error.
func compare(op lexer.Token, left, right Value) (Value, error) {
	var c int
	switch l := left.(type) {
	case Number:
		r, ok := right.(Number)
		if !ok {
			return nil, compareErr(op, left, right)
		}
		switch {
		case l.Value < r.Value:
			c = -1
		case l.Value > r.Value:
			c = 1
		case l.Value == r.Value:
			c = 0
		default:
			// NaN is unordered: every comparison is false.
			return NewBool(false), nil
		}
	case String:
		r, ok := right.(String)
		if !ok {
			return nil, compareErr(op, left, right)
		}
		switch {
		case l.Value < r.Value:
			c = -1
		case l.Value > r.Value:
			c = 1
		}
	default:
		return nil, compareErr(op, left, right)
	}

	switch op.Type {
	case lexer.TokGt:
		return NewBool(c > 0), nil
	case lexer.TokGtEq:
		return NewBool(c >= 0), nil
	case lexer.TokLt:
		return NewBool(c < 0), nil
	default:
		return NewBool(c <= 0), nil
	}
}

func compareErr(op lexer.Token, left, right Value) error {
	return runtimeErr(diagnostics.EType, op,
		"Operands must be two numbers or two strings, got %s and %s.", typeNameOf(left), typeNameOf(right))
}

func (in *Interpreter) evalLogical(e *ast.Logical, env *Env) (Value, error) {
	left, err := in.evalExpr(e.Left, env)
	if err != nil {
		return nil, err
	}
	if e.Op.Type == lexer.TokOr {
		if Truthiness(left) {
			return left, nil
		}
	} else if !Truthiness(left) {
		return left, nil
	}
	return in.evalExpr(e.Right, env)
}

func (in *Interpreter) evalCall(e *ast.Call, env *Env) (Value, error) {
	callee, err := in.evalExpr(e.Callee, env)
	if err != nil {
		return nil, err
	}
	args := make([]Value, 0, len(e.Args))
	for _, a := range e.Args {
		v, err := in.evalExpr(a, env)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	fn, ok := callee.(*Closure)
	if !ok {
		return nil, runtimeErr(diagnostics.ENotCallable, e.Paren, "Can only call functions.")
	}
	if len(args) != fn.Arity() {
		return nil, runtimeErr(diagnostics.EArity, e.Paren,
			"Expected %d arguments but got %d.", fn.Arity(), len(args))
	}
	return in.callFunction(fn, args, e.Paren)
}

// callFunction binds args in a fresh scope whose parent is the closure's
// captured environment and runs the body there. A return inside the body
// stops here; falling off the end yields nil.
func (in *Interpreter) callFunction(fn *Closure, args []Value, paren lexer.Token) (Value, error) {
	if in.tracker.Depth >= in.tracker.MaxDepth {
		return nil, runtimeErr(diagnostics.EStackOverflow, paren, "Stack overflow.")
	}
	in.tracker.Depth++
	defer func() { in.tracker.Depth-- }()

	in.emit(TraceFnCallStart, paren.Line, "", fn.Name.Text)
	defer in.emit(TraceFnCallEnd, paren.Line, "", fn.Name.Text)

	callEnv := NewEnv(fn.Env)
	for i, p := range fn.Params {
		callEnv.Define(p.Text, args[i])
	}

	f, err := in.execBlock(fn.Body, callEnv)
	if err != nil {
		return nil, err
	}
	if f.returning {
		return f.value, nil
	}
	return NewNil(), nil
}

// AsRuntimeError extracts a *RuntimeError from err.
func AsRuntimeError(err error) (*RuntimeError, bool) {
	var rerr *RuntimeError
	if errors.As(err, &rerr) {
		return rerr, true
	}
	return nil, false
}
