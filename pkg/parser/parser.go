// Package parser implements the slox recursive-descent parser.
//
// Parse functions return nil after recording a diagnostic. A failed
// declaration is discarded and the parser resynchronizes at the next
// statement boundary, so one parse can report many errors.
package parser

import (
	"github.com/slox-lang/slox/pkg/ast"
	"github.com/slox-lang/slox/pkg/diagnostics"
	"github.com/slox-lang/slox/pkg/lexer"
)

// MaxArgs is the largest number of call arguments or function parameters.
const MaxArgs = 255

// MaxNesting bounds how deeply statements and expressions may nest,
// counting each left-folded operator as one level.
const MaxNesting = 10000

const (
	errStmtTooDeep = "Statement nested too deeply."
	errExprTooDeep = "Expression nested too deeply."
)

type parser struct {
	tokens  []lexer.Token
	pos     int
	diags   []diagnostics.Diagnostic
	depth   int
	tooDeep bool
}

func newParser(tokens []lexer.Token) *parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != lexer.TokEOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, lexer.Token{Type: lexer.TokEOF, Line: line})
	}
	return &parser{tokens: tokens}
}

// Parse parses a token stream into a statement list. Statements that
// failed to parse are left out; their diagnostics are returned.
func Parse(tokens []lexer.Token) ([]ast.Stmt, []diagnostics.Diagnostic) {
	p := newParser(tokens)
	var stmts []ast.Stmt
	for !p.atEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, p.diags
}

// ParseExpression parses a single expression that must span the whole
// token stream. There is no recovery: on error the result is nil.
func ParseExpression(tokens []lexer.Token) (ast.Expr, []diagnostics.Diagnostic) {
	p := newParser(tokens)
	expr := p.expression()
	if expr != nil && !p.atEnd() {
		p.errorAt(p.current(), "Expect end of expression.")
		return nil, p.diags
	}
	return expr, p.diags
}

// ParseSource scans and parses source text. Scan diagnostics come first.
func ParseSource(source string) ([]ast.Stmt, []diagnostics.Diagnostic) {
	tokens, scanDiags := lexer.Tokenize(source)
	stmts, parseDiags := Parse(tokens)
	return stmts, append(scanDiags, parseDiags...)
}

func (p *parser) current() lexer.Token {
	return p.tokens[p.pos]
}

func (p *parser) previous() lexer.Token {
	return p.tokens[p.pos-1]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) atEnd() bool {
	return p.peek() == lexer.TokEOF
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if !p.atEnd() {
		p.pos++
	}
	return tok
}

func (p *parser) check(typ lexer.TokenType) bool {
	return !p.atEnd() && p.peek() == typ
}

// match consumes the current token if it has one of the given types.
func (p *parser) match(types ...lexer.TokenType) bool {
	for _, typ := range types {
		if p.check(typ) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *parser) expect(typ lexer.TokenType, msg string) (lexer.Token, bool) {
	if p.check(typ) {
		return p.advance(), true
	}
	p.errorAt(p.current(), msg)
	return p.current(), false
}

func (p *parser) errorAt(tok lexer.Token, msg string) {
	if p.tooDeep {
		return
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, tok.Line, tok.Where(), msg))
}

// nest enters one nesting level. Past MaxNesting it reports msg once,
// skips to the end of input and silences every later diagnostic, so the
// unwinding callers add nothing.
func (p *parser) nest(msg string) bool {
	if p.depth >= MaxNesting {
		if !p.tooDeep {
			p.errorAt(p.current(), msg)
			p.tooDeep = true
			p.pos = len(p.tokens) - 1
		}
		return false
	}
	p.depth++
	return true
}

func (p *parser) unnest() {
	p.depth--
}

// synchronize discards tokens until a statement boundary: just past a
// semicolon, or before a keyword that starts a declaration or statement.
func (p *parser) synchronize() {
	p.advance()
	for !p.atEnd() {
		if p.previous().Type == lexer.TokSemicolon {
			return
		}
		switch p.peek() {
		case lexer.TokClass, lexer.TokFor, lexer.TokFun, lexer.TokIf,
			lexer.TokPrint, lexer.TokReturn, lexer.TokVar, lexer.TokWhile:
			return
		}
		p.advance()
	}
}

// --- Declarations ---

func (p *parser) declaration() ast.Stmt {
	var stmt ast.Stmt
	switch {
	case p.match(lexer.TokFun):
		if fn := p.funDecl(); fn != nil {
			stmt = fn
		}
	case p.match(lexer.TokVar):
		if v := p.varDecl(); v != nil {
			stmt = v
		}
	default:
		stmt = p.statement()
	}
	if stmt == nil {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *parser) funDecl() *ast.FunStmt {
	if !p.nest(errStmtTooDeep) {
		return nil
	}
	defer p.unnest()
	name, ok := p.expect(lexer.TokIdent, "Expect function name.")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen, "Expect '(' after function name."); !ok {
		return nil
	}
	var params []lexer.Token
	if !p.check(lexer.TokRParen) {
		for {
			if len(params) >= MaxArgs {
				p.errorAt(p.current(), "Can't have more than 255 parameters.")
			}
			param, ok := p.expect(lexer.TokIdent, "Expect parameter name.")
			if !ok {
				return nil
			}
			params = append(params, param)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	if _, ok := p.expect(lexer.TokRParen, "Expect ')' after parameters."); !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLBrace, "Expect '{' before function body."); !ok {
		return nil
	}
	body, ok := p.block()
	if !ok {
		return nil
	}
	return &ast.FunStmt{Name: name, Params: params, Body: body}
}

func (p *parser) varDecl() *ast.VarStmt {
	name, ok := p.expect(lexer.TokIdent, "Expect variable name.")
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokEquals, "Expect '=' after variable name."); !ok {
		return nil
	}
	init := p.expression()
	if init == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after variable declaration."); !ok {
		return nil
	}
	return &ast.VarStmt{Name: name, Initializer: init}
}

// --- Statements ---

func (p *parser) statement() ast.Stmt {
	if !p.nest(errStmtTooDeep) {
		return nil
	}
	defer p.unnest()
	switch {
	case p.match(lexer.TokPrint):
		if s := p.printStmt(); s != nil {
			return s
		}
	case p.match(lexer.TokReturn):
		if s := p.returnStmt(); s != nil {
			return s
		}
	case p.match(lexer.TokIf):
		if s := p.ifStmt(); s != nil {
			return s
		}
	case p.match(lexer.TokWhile):
		if s := p.whileStmt(); s != nil {
			return s
		}
	case p.match(lexer.TokLBrace):
		line := p.previous().Line
		if stmts, ok := p.block(); ok {
			return &ast.BlockStmt{Line: line, Statements: stmts}
		}
	default:
		if s := p.exprStmt(); s != nil {
			return s
		}
	}
	return nil
}

func (p *parser) printStmt() *ast.PrintStmt {
	keyword := p.previous()
	value := p.expression()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after value."); !ok {
		return nil
	}
	return &ast.PrintStmt{Keyword: keyword, Expr: value}
}

func (p *parser) returnStmt() *ast.ReturnStmt {
	keyword := p.previous()
	value := p.expression()
	if value == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after return value."); !ok {
		return nil
	}
	return &ast.ReturnStmt{Keyword: keyword, Value: value}
}

// ifStmt parses an unparenthesized condition followed by a statement.
func (p *parser) ifStmt() *ast.IfStmt {
	line := p.previous().Line
	cond := p.expression()
	if cond == nil {
		return nil
	}
	then := p.statement()
	if then == nil {
		return nil
	}
	var elseBranch ast.Stmt
	if p.match(lexer.TokElse) {
		elseBranch = p.statement()
		if elseBranch == nil {
			return nil
		}
	}
	return &ast.IfStmt{Line: line, Cond: cond, Then: then, Else: elseBranch}
}

func (p *parser) whileStmt() *ast.WhileStmt {
	line := p.previous().Line
	cond := p.expression()
	if cond == nil {
		return nil
	}
	body := p.statement()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{Line: line, Cond: cond, Body: body}
}

func (p *parser) exprStmt() *ast.ExprStmt {
	expr := p.expression()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon, "Expect ';' after expression."); !ok {
		return nil
	}
	return &ast.ExprStmt{Expr: expr}
}

// --- Block ---

// block parses declarations up to the closing brace; the opening brace is
// already consumed. Failed declarations inside the block are recovered
// individually.
func (p *parser) block() ([]ast.Stmt, bool) {
	stmts := []ast.Stmt{}
	for !p.check(lexer.TokRBrace) && !p.atEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if _, ok := p.expect(lexer.TokRBrace, "Expect '}' after block."); !ok {
		return nil, false
	}
	return stmts, true
}
