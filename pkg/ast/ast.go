// Package ast defines the slox AST node types.
//
// Nodes are immutable once the parser builds them and each node owns its
// children exclusively: the tree has no sharing and no cycles.
package ast

import "github.com/slox-lang/slox/pkg/lexer"

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeLine() int
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type NumberLiteral struct {
	Line  int
	Value float64
}

func (n *NumberLiteral) Kind() string  { return "NumberLiteral" }
func (n *NumberLiteral) NodeLine() int { return n.Line }
func (n *NumberLiteral) exprNode()     {}

type StringLiteral struct {
	Line  int
	Value string
}

func (n *StringLiteral) Kind() string  { return "StringLiteral" }
func (n *StringLiteral) NodeLine() int { return n.Line }
func (n *StringLiteral) exprNode()     {}

type BoolLiteral struct {
	Line  int
	Value bool
}

func (n *BoolLiteral) Kind() string  { return "BoolLiteral" }
func (n *BoolLiteral) NodeLine() int { return n.Line }
func (n *BoolLiteral) exprNode()     {}

type NilLiteral struct {
	Line int
}

func (n *NilLiteral) Kind() string  { return "NilLiteral" }
func (n *NilLiteral) NodeLine() int { return n.Line }
func (n *NilLiteral) exprNode()     {}

// --- Compound Expressions ---

type Grouping struct {
	Line int
	Expr Expr
}

func (n *Grouping) Kind() string  { return "Grouping" }
func (n *Grouping) NodeLine() int { return n.Line }
func (n *Grouping) exprNode()     {}

type Unary struct {
	Op      lexer.Token
	Operand Expr
}

func (n *Unary) Kind() string  { return "Unary" }
func (n *Unary) NodeLine() int { return n.Op.Line }
func (n *Unary) exprNode()     {}

type Binary struct {
	Left  Expr
	Op    lexer.Token
	Right Expr
}

func (n *Binary) Kind() string  { return "Binary" }
func (n *Binary) NodeLine() int { return n.Op.Line }
func (n *Binary) exprNode()     {}

// Logical is a short-circuiting "and" / "or".
type Logical struct {
	Left  Expr
	Op    lexer.Token
	Right Expr
}

func (n *Logical) Kind() string  { return "Logical" }
func (n *Logical) NodeLine() int { return n.Op.Line }
func (n *Logical) exprNode()     {}

type Variable struct {
	Name lexer.Token
}

func (n *Variable) Kind() string  { return "Variable" }
func (n *Variable) NodeLine() int { return n.Name.Line }
func (n *Variable) exprNode()     {}

type Assign struct {
	Name  lexer.Token
	Value Expr
}

func (n *Assign) Kind() string  { return "Assign" }
func (n *Assign) NodeLine() int { return n.Name.Line }
func (n *Assign) exprNode()     {}

// Call applies Callee to Args. Paren is the closing parenthesis, used to
// locate runtime errors raised by the call itself.
type Call struct {
	Callee Expr
	Paren  lexer.Token
	Args   []Expr
}

func (n *Call) Kind() string  { return "Call" }
func (n *Call) NodeLine() int { return n.Paren.Line }
func (n *Call) exprNode()     {}

// --- Statements ---

type ExprStmt struct {
	Expr Expr
}

func (n *ExprStmt) Kind() string  { return "ExprStmt" }
func (n *ExprStmt) NodeLine() int { return n.Expr.NodeLine() }
func (n *ExprStmt) stmtNode()     {}

type PrintStmt struct {
	Keyword lexer.Token
	Expr    Expr
}

func (n *PrintStmt) Kind() string  { return "PrintStmt" }
func (n *PrintStmt) NodeLine() int { return n.Keyword.Line }
func (n *PrintStmt) stmtNode()     {}

// VarStmt declares Name in the current scope. The grammar makes
// Initializer mandatory.
type VarStmt struct {
	Name        lexer.Token
	Initializer Expr
}

func (n *VarStmt) Kind() string  { return "VarStmt" }
func (n *VarStmt) NodeLine() int { return n.Name.Line }
func (n *VarStmt) stmtNode()     {}

type BlockStmt struct {
	Line       int
	Statements []Stmt
}

func (n *BlockStmt) Kind() string  { return "BlockStmt" }
func (n *BlockStmt) NodeLine() int { return n.Line }
func (n *BlockStmt) stmtNode()     {}

// IfStmt has an optional Else branch (nil when absent).
type IfStmt struct {
	Line int
	Cond Expr
	Then Stmt
	Else Stmt
}

func (n *IfStmt) Kind() string  { return "IfStmt" }
func (n *IfStmt) NodeLine() int { return n.Line }
func (n *IfStmt) stmtNode()     {}

type WhileStmt struct {
	Line int
	Cond Expr
	Body Stmt
}

func (n *WhileStmt) Kind() string  { return "WhileStmt" }
func (n *WhileStmt) NodeLine() int { return n.Line }
func (n *WhileStmt) stmtNode()     {}

type FunStmt struct {
	Name   lexer.Token
	Params []lexer.Token
	Body   []Stmt
}

func (n *FunStmt) Kind() string  { return "FunStmt" }
func (n *FunStmt) NodeLine() int { return n.Name.Line }
func (n *FunStmt) stmtNode()     {}

type ReturnStmt struct {
	Keyword lexer.Token
	Value   Expr
}

func (n *ReturnStmt) Kind() string  { return "ReturnStmt" }
func (n *ReturnStmt) NodeLine() int { return n.Keyword.Line }
func (n *ReturnStmt) stmtNode()     {}
