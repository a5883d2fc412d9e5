// Package validator implements static checks over slox AST programs.
//
// There is no name resolution: lookups stay dynamic at run time. The
// validator only reports mistakes visible from the tree shape alone.
package validator

import (
	"fmt"

	"github.com/slox-lang/slox/pkg/ast"
	"github.com/slox-lang/slox/pkg/diagnostics"
)

type validator struct {
	diags []diagnostics.Diagnostic
	// fnDepth counts enclosing function bodies.
	fnDepth int
	// blockDepth counts enclosing blocks, including function bodies.
	blockDepth int
}

// Validate performs static analysis on a parsed program and returns
// diagnostics. Warnings do not block execution; errors do.
func Validate(stmts []ast.Stmt) []diagnostics.Diagnostic {
	v := &validator{}
	v.validateStatements(stmts)
	return v.diags
}

func (v *validator) validateStatements(stmts []ast.Stmt) {
	for _, s := range stmts {
		v.validateStmt(s)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt, *ast.PrintStmt:
		// Expressions carry nothing to check.

	case *ast.VarStmt:
		if v.blockDepth > 0 && references(s.Initializer, s.Name.Text) {
			v.diags = append(v.diags, diagnostics.MakeWarning(diagnostics.ESelfInit, s.Name.Line, s.Name.Where(),
				fmt.Sprintf("Initializer of local '%s' reads the enclosing '%s', not itself.", s.Name.Text, s.Name.Text)))
		}

	case *ast.BlockStmt:
		v.blockDepth++
		v.validateStatements(s.Statements)
		v.blockDepth--

	case *ast.IfStmt:
		v.validateStmt(s.Then)
		if s.Else != nil {
			v.validateStmt(s.Else)
		}

	case *ast.WhileStmt:
		v.validateStmt(s.Body)

	case *ast.FunStmt:
		v.validateFunction(s)

	case *ast.ReturnStmt:
		if v.fnDepth == 0 {
			v.diags = append(v.diags, diagnostics.MakeDiag(diagnostics.EReturnTopLevel, s.Keyword.Line,
				s.Keyword.Where(), "Can't return from top-level code."))
		}
	}
}

func (v *validator) validateFunction(fn *ast.FunStmt) {
	seen := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		if seen[p.Text] {
			v.diags = append(v.diags, diagnostics.MakeDiag(diagnostics.EDupParam, p.Line, p.Where(),
				fmt.Sprintf("Duplicate parameter '%s' in function '%s'.", p.Text, fn.Name.Text)))
			continue
		}
		seen[p.Text] = true
	}

	v.fnDepth++
	v.blockDepth++
	v.validateStatements(fn.Body)
	v.blockDepth--
	v.fnDepth--
}

// references reports whether expr reads the variable name.
func references(expr ast.Expr, name string) bool {
	switch e := expr.(type) {
	case *ast.Variable:
		return e.Name.Text == name
	case *ast.Grouping:
		return references(e.Expr, name)
	case *ast.Unary:
		return references(e.Operand, name)
	case *ast.Binary:
		return references(e.Left, name) || references(e.Right, name)
	case *ast.Logical:
		return references(e.Left, name) || references(e.Right, name)
	case *ast.Assign:
		return references(e.Value, name)
	case *ast.Call:
		if references(e.Callee, name) {
			return true
		}
		for _, a := range e.Args {
			if references(a, name) {
				return true
			}
		}
	}
	return false
}
