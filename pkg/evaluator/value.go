// Package evaluator implements the slox tree-walking interpreter.
package evaluator

import (
	"fmt"
	"strconv"

	"github.com/slox-lang/slox/pkg/ast"
	"github.com/slox-lang/slox/pkg/lexer"
)

// Value is the interface for all slox runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Nil represents the nil value.
type Nil struct{}

func (Nil) value() {}

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) value() {}

// Number represents a numeric value.
type Number struct {
	Value float64
}

func (Number) value() {}

// String represents a string value.
type String struct {
	Value string
}

func (String) value() {}

// Closure is a function value: a declaration plus the environment that was
// active when the declaration executed. Closures compare by identity.
type Closure struct {
	Name   lexer.Token
	Params []lexer.Token
	Body   []ast.Stmt
	Env    *Env
}

func (*Closure) value() {}

// Arity returns the number of parameters the function expects.
func (c *Closure) Arity() int {
	return len(c.Params)
}

func (c *Closure) String() string {
	return fmt.Sprintf("<fn %s>", c.Name.Text)
}

// NewNil creates a nil value.
func NewNil() Value {
	return Nil{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) Value {
	return Number{Value: n}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// Truthiness returns the boolean interpretation of a value.
// A number is truthy only when strictly greater than zero, so 0 and every
// negative number are falsy. Strings are truthy when non-empty.
func Truthiness(v Value) bool {
	switch val := v.(type) {
	case Nil:
		return false
	case Bool:
		return val.Value
	case Number:
		return val.Value > 0
	case String:
		return val.Value != ""
	default:
		return true
	}
}

// Equal compares two values structurally; functions compare by identity
// and values of different types are never equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	case *Closure:
		bv, ok := b.(*Closure)
		return ok && av == bv
	}
	return false
}

// Stringify renders a value the way print shows it.
func Stringify(v Value) string {
	switch val := v.(type) {
	case nil, Nil:
		return "nil"
	case Bool:
		return strconv.FormatBool(val.Value)
	case Number:
		return strconv.FormatFloat(val.Value, 'f', -1, 64)
	case String:
		return val.Value
	case *Closure:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// typeNameOf returns the slox type name for error messages.
func typeNameOf(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case *Closure:
		return "function"
	default:
		return "unknown"
	}
}
