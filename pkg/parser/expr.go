package parser

import (
	"github.com/slox-lang/slox/pkg/ast"
	"github.com/slox-lang/slox/pkg/lexer"
)

// --- Expressions ---

func (p *parser) expression() ast.Expr {
	return p.assignment()
}

// assignment is right-associative and only accepts a plain variable on the
// left. An invalid target is reported without unwinding.
func (p *parser) assignment() ast.Expr {
	if !p.nest(errExprTooDeep) {
		return nil
	}
	defer p.unnest()
	expr := p.logicOr()
	if expr == nil {
		return nil
	}
	if p.match(lexer.TokEquals) {
		equals := p.previous()
		value := p.assignment()
		if value == nil {
			return nil
		}
		if v, ok := expr.(*ast.Variable); ok {
			return &ast.Assign{Name: v.Name, Value: value}
		}
		p.errorAt(equals, "Invalid assignment target.")
	}
	return expr
}

func (p *parser) logicOr() ast.Expr {
	left := p.logicAnd()
	if left == nil {
		return nil
	}
	defer p.unfold(p.depth)
	for p.match(lexer.TokOr) {
		op := p.previous()
		if !p.nest(errExprTooDeep) {
			return nil
		}
		right := p.logicAnd()
		if right == nil {
			return nil
		}
		left = &ast.Logical{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *parser) logicAnd() ast.Expr {
	left := p.equality()
	if left == nil {
		return nil
	}
	defer p.unfold(p.depth)
	for p.match(lexer.TokAnd) {
		op := p.previous()
		if !p.nest(errExprTooDeep) {
			return nil
		}
		right := p.equality()
		if right == nil {
			return nil
		}
		left = &ast.Logical{Left: left, Op: op, Right: right}
	}
	return left
}

// --- Precedence climbing ---

// unfold restores the nesting depth saved before a left-fold loop. Each
// fold deepens the tree by one, so it counts as a level.
func (p *parser) unfold(depth int) {
	p.depth = depth
}

// binaryLevel left-folds operand (op operand)* for one precedence level.
func (p *parser) binaryLevel(operand func() ast.Expr, ops ...lexer.TokenType) ast.Expr {
	left := operand()
	if left == nil {
		return nil
	}
	defer p.unfold(p.depth)
	for p.match(ops...) {
		op := p.previous()
		if !p.nest(errExprTooDeep) {
			return nil
		}
		right := operand()
		if right == nil {
			return nil
		}
		left = &ast.Binary{Left: left, Op: op, Right: right}
	}
	return left
}

func (p *parser) equality() ast.Expr {
	return p.binaryLevel(p.comparison, lexer.TokBangEq, lexer.TokEqEq)
}

func (p *parser) comparison() ast.Expr {
	return p.binaryLevel(p.term, lexer.TokGt, lexer.TokGtEq, lexer.TokLt, lexer.TokLtEq)
}

func (p *parser) term() ast.Expr {
	return p.binaryLevel(p.factor, lexer.TokMinus, lexer.TokPlus)
}

func (p *parser) factor() ast.Expr {
	return p.binaryLevel(p.unary, lexer.TokSlash, lexer.TokStar)
}

func (p *parser) unary() ast.Expr {
	if p.match(lexer.TokBang, lexer.TokMinus) {
		op := p.previous()
		if !p.nest(errExprTooDeep) {
			return nil
		}
		defer p.unnest()
		operand := p.unary()
		if operand == nil {
			return nil
		}
		return &ast.Unary{Op: op, Operand: operand}
	}
	return p.call()
}

func (p *parser) call() ast.Expr {
	expr := p.primary()
	if expr == nil {
		return nil
	}
	defer p.unfold(p.depth)
	for p.match(lexer.TokLParen) {
		if !p.nest(errExprTooDeep) {
			return nil
		}
		expr = p.finishCall(expr)
		if expr == nil {
			return nil
		}
	}
	return expr
}

func (p *parser) finishCall(callee ast.Expr) ast.Expr {
	args := []ast.Expr{}
	if !p.check(lexer.TokRParen) {
		for {
			if len(args) >= MaxArgs {
				p.errorAt(p.current(), "Can't have more than 255 arguments.")
			}
			arg := p.expression()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.match(lexer.TokComma) {
				break
			}
		}
	}
	paren, ok := p.expect(lexer.TokRParen, "Expect ')' after arguments.")
	if !ok {
		return nil
	}
	return &ast.Call{Callee: callee, Paren: paren, Args: args}
}

func (p *parser) primary() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.TokFalse:
		p.advance()
		return &ast.BoolLiteral{Line: tok.Line, Value: false}
	case lexer.TokTrue:
		p.advance()
		return &ast.BoolLiteral{Line: tok.Line, Value: true}
	case lexer.TokNil:
		p.advance()
		return &ast.NilLiteral{Line: tok.Line}
	case lexer.TokNumber:
		p.advance()
		return &ast.NumberLiteral{Line: tok.Line, Value: tok.Number}
	case lexer.TokString:
		p.advance()
		return &ast.StringLiteral{Line: tok.Line, Value: tok.Text}
	case lexer.TokIdent:
		p.advance()
		return &ast.Variable{Name: tok}
	case lexer.TokLParen:
		p.advance()
		expr := p.expression()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen, "Expect ')' after expression."); !ok {
			return nil
		}
		return &ast.Grouping{Line: tok.Line, Expr: expr}
	}
	p.errorAt(tok, "Expect expression.")
	return nil
}
