// Package formatter implements the slox source code formatter.
package formatter

import (
	"strconv"
	"strings"

	"github.com/slox-lang/slox/pkg/ast"
)

const indent = "  "

// Format pretty-prints a slox AST back to source code.
// Groupings are kept as written, so no parentheses are added or removed and
// the output parses back to the same tree.
func Format(stmts []ast.Stmt) string {
	if len(stmts) == 0 {
		return ""
	}
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = formatStmt(s, 0)
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains slox comments (// prefix).
// Strings may span lines, so quote state is tracked across the whole source.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch {
		case source[i] == '"':
			inString = !inString
		case !inString && source[i] == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	return strings.Repeat(indent, depth) + stmtBody(s, depth)
}

// stmtBody renders s without leading indentation. Lines after the first
// are indented relative to depth.
func stmtBody(s ast.Stmt, depth int) string {
	switch stmt := s.(type) {
	case *ast.ExprStmt:
		return formatExpr(stmt.Expr) + ";"
	case *ast.PrintStmt:
		return "print " + formatExpr(stmt.Expr) + ";"
	case *ast.VarStmt:
		return "var " + stmt.Name.Text + " = " + formatExpr(stmt.Initializer) + ";"
	case *ast.BlockStmt:
		return formatBlock(stmt.Statements, depth)
	case *ast.IfStmt:
		out := "if " + formatExpr(stmt.Cond) + " " + stmtBody(stmt.Then, depth)
		if stmt.Else != nil {
			out += " else " + stmtBody(stmt.Else, depth)
		}
		return out
	case *ast.WhileStmt:
		return "while " + formatExpr(stmt.Cond) + " " + stmtBody(stmt.Body, depth)
	case *ast.FunStmt:
		params := make([]string, len(stmt.Params))
		for i, p := range stmt.Params {
			params[i] = p.Text
		}
		return "fun " + stmt.Name.Text + "(" + strings.Join(params, ", ") + ") " + formatBlock(stmt.Body, depth)
	case *ast.ReturnStmt:
		return "return " + formatExpr(stmt.Value) + ";"
	}
	return ""
}

func formatBlock(stmts []ast.Stmt, depth int) string {
	if len(stmts) == 0 {
		return "{}"
	}
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.NumberLiteral:
		return strconv.FormatFloat(expr.Value, 'f', -1, 64)
	case *ast.StringLiteral:
		// slox strings have no escapes.
		return `"` + expr.Value + `"`
	case *ast.BoolLiteral:
		if expr.Value {
			return "true"
		}
		return "false"
	case *ast.NilLiteral:
		return "nil"
	case *ast.Grouping:
		return "(" + formatExpr(expr.Expr) + ")"
	case *ast.Variable:
		return expr.Name.Text
	case *ast.Assign:
		return expr.Name.Text + " = " + formatExpr(expr.Value)
	case *ast.Unary:
		return expr.Op.Lexeme() + formatExpr(expr.Operand)
	case *ast.Binary:
		return formatExpr(expr.Left) + " " + expr.Op.Lexeme() + " " + formatExpr(expr.Right)
	case *ast.Logical:
		return formatExpr(expr.Left) + " " + expr.Op.Lexeme() + " " + formatExpr(expr.Right)
	case *ast.Call:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a)
		}
		return formatExpr(expr.Callee) + "(" + strings.Join(args, ", ") + ")"
	}
	return ""
}
