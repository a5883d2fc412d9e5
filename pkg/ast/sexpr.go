package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Sexpr renders a node as a parenthesized prefix expression, e.g.
// "(* 3 (group (+ 4 2)))". Statements render as "(print ...)",
// "(var x ...)", "(block ...)" and so on.
func Sexpr(n Node) string {
	var b strings.Builder
	writeSexpr(&b, n)
	return b.String()
}

// SexprAll renders a statement list, one statement per line.
func SexprAll(stmts []Stmt) string {
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = Sexpr(s)
	}
	return strings.Join(lines, "\n")
}

func parenthesize(b *strings.Builder, name string, parts ...Node) {
	b.WriteByte('(')
	b.WriteString(name)
	for _, p := range parts {
		b.WriteByte(' ')
		writeSexpr(b, p)
	}
	b.WriteByte(')')
}

func writeSexpr(b *strings.Builder, n Node) {
	switch e := n.(type) {
	case *NumberLiteral:
		b.WriteString(strconv.FormatFloat(e.Value, 'f', -1, 64))
	case *StringLiteral:
		b.WriteString(strconv.Quote(e.Value))
	case *BoolLiteral:
		b.WriteString(strconv.FormatBool(e.Value))
	case *NilLiteral:
		b.WriteString("nil")
	case *Grouping:
		parenthesize(b, "group", e.Expr)
	case *Unary:
		parenthesize(b, e.Op.Lexeme(), e.Operand)
	case *Binary:
		parenthesize(b, e.Op.Lexeme(), e.Left, e.Right)
	case *Logical:
		parenthesize(b, e.Op.Lexeme(), e.Left, e.Right)
	case *Variable:
		b.WriteString(e.Name.Text)
	case *Assign:
		parenthesize(b, "= "+e.Name.Text, e.Value)
	case *Call:
		parts := make([]Node, 0, len(e.Args)+1)
		parts = append(parts, e.Callee)
		for _, a := range e.Args {
			parts = append(parts, a)
		}
		parenthesize(b, "call", parts...)

	case *ExprStmt:
		parenthesize(b, ";", e.Expr)
	case *PrintStmt:
		parenthesize(b, "print", e.Expr)
	case *VarStmt:
		parenthesize(b, "var "+e.Name.Text, e.Initializer)
	case *BlockStmt:
		parenthesize(b, "block", stmtNodes(e.Statements)...)
	case *IfStmt:
		if e.Else != nil {
			parenthesize(b, "if", e.Cond, e.Then, e.Else)
		} else {
			parenthesize(b, "if", e.Cond, e.Then)
		}
	case *WhileStmt:
		parenthesize(b, "while", e.Cond, e.Body)
	case *FunStmt:
		names := make([]string, len(e.Params))
		for i, p := range e.Params {
			names[i] = p.Text
		}
		head := fmt.Sprintf("fun %s(%s)", e.Name.Text, strings.Join(names, " "))
		parenthesize(b, head, stmtNodes(e.Body)...)
	case *ReturnStmt:
		parenthesize(b, "return", e.Value)
	case nil:
		b.WriteString("<nil>")
	default:
		fmt.Fprintf(b, "<%T>", n)
	}
}

func stmtNodes(stmts []Stmt) []Node {
	out := make([]Node, len(stmts))
	for i, s := range stmts {
		out[i] = s
	}
	return out
}
