package lexer

import (
	"fmt"
	"strconv"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Single-character punctuation
	TokLParen TokenType = iota // (
	TokRParen                  // )
	TokLBrace                  // {
	TokRBrace                  // }
	TokComma                   // ,
	TokDot                     // .
	TokMinus                   // -
	TokPlus                    // +
	TokSemicolon               // ;
	TokSlash                   // /
	TokStar                    // *

	// One or two character operators
	TokBang   // !
	TokBangEq // !=
	TokEquals // =
	TokEqEq   // ==
	TokGt     // >
	TokGtEq   // >=
	TokLt     // <
	TokLtEq   // <=

	// Literals
	TokIdent
	TokString
	TokNumber

	// Keywords
	TokAnd
	TokClass
	TokElse
	TokFalse
	TokFor
	TokFun
	TokIf
	TokNil
	TokOr
	TokPrint
	TokReturn
	TokSuper
	TokThis
	TokTrue
	TokVar
	TokWhile

	// Special
	TokEOF
)

var keywords = map[string]TokenType{
	"and":    TokAnd,
	"class":  TokClass,
	"else":   TokElse,
	"false":  TokFalse,
	"for":    TokFor,
	"fun":    TokFun,
	"if":     TokIf,
	"nil":    TokNil,
	"or":     TokOr,
	"print":  TokPrint,
	"return": TokReturn,
	"super":  TokSuper,
	"this":   TokThis,
	"true":   TokTrue,
	"var":    TokVar,
	"while":  TokWhile,
}

var fixedLexemes = map[TokenType]string{
	TokLParen:    "(",
	TokRParen:    ")",
	TokLBrace:    "{",
	TokRBrace:    "}",
	TokComma:     ",",
	TokDot:       ".",
	TokMinus:     "-",
	TokPlus:      "+",
	TokSemicolon: ";",
	TokSlash:     "/",
	TokStar:      "*",
	TokBang:      "!",
	TokBangEq:    "!=",
	TokEquals:    "=",
	TokEqEq:      "==",
	TokGt:        ">",
	TokGtEq:      ">=",
	TokLt:        "<",
	TokLtEq:      "<=",
	TokEOF:       "",
}

func init() {
	for word, typ := range keywords {
		fixedLexemes[typ] = word
	}
}

// Token represents a single lexer token. Text carries the payload of
// identifier and string tokens, Number the payload of number tokens.
// Tokens are comparable with ==; Line is diagnostic-only.
type Token struct {
	Type   TokenType
	Text   string
	Number float64
	Line   int
}

// Keyword returns the token type for a reserved word.
func Keyword(word string) (TokenType, bool) {
	t, ok := keywords[word]
	return t, ok
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokAnd && t <= TokWhile
}

// String returns a readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokIdent:
		return "identifier"
	case TokString:
		return "string"
	case TokNumber:
		return "number"
	case TokEOF:
		return "eof"
	}
	if lex, ok := fixedLexemes[t]; ok {
		return lex
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Lexeme renders the token the way it would appear in source.
func (t Token) Lexeme() string {
	switch t.Type {
	case TokIdent:
		return t.Text
	case TokString:
		return `"` + t.Text + `"`
	case TokNumber:
		return strconv.FormatFloat(t.Number, 'f', -1, 64)
	}
	return fixedLexemes[t.Type]
}

// Where locates the token for diagnostics: " at end" for EOF,
// otherwise " at '<lexeme>'".
func (t Token) Where() string {
	if t.Type == TokEOF {
		return " at end"
	}
	return fmt.Sprintf(" at '%s'", t.Lexeme())
}

// String implements fmt.Stringer.
func (t Token) String() string {
	switch t.Type {
	case TokIdent, TokNumber:
		return fmt.Sprintf("%s(%s)", t.Type, t.Lexeme())
	case TokString:
		return fmt.Sprintf("string(%q)", t.Text)
	}
	return t.Type.String()
}

// Ident builds an identifier token.
func Ident(name string, line int) Token {
	return Token{Type: TokIdent, Text: name, Line: line}
}
