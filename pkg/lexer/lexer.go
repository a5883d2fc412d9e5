// Package lexer implements the slox tokenizer.
package lexer

import (
	"strconv"
	"unicode/utf8"

	"github.com/slox-lang/slox/pkg/diagnostics"
)

type scanner struct {
	source string
	start  int
	pos    int
	line   int
	tokens []Token
	diags  []diagnostics.Diagnostic
}

func newScanner(source string) *scanner {
	return &scanner{
		source: source,
		line:   1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	return ch
}

// match consumes the next byte if it equals want.
func (s *scanner) match(want byte) bool {
	if s.atEnd() || s.source[s.pos] != want {
		return false
	}
	s.pos++
	return true
}

func (s *scanner) add(typ TokenType) {
	s.tokens = append(s.tokens, Token{Type: typ, Line: s.line})
}

func (s *scanner) lexError(line int, msg string) {
	s.diags = append(s.diags, diagnostics.MakeDiag(diagnostics.EScan, line, "", msg))
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}

// scanString consumes a string literal whose opening quote is already
// consumed. The token keeps the line the literal started on.
func (s *scanner) scanString() {
	startLine := s.line
	for !s.atEnd() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		s.lexError(s.line, "Unterminated string.")
		return
	}
	s.advance() // closing "
	text := s.source[s.start+1 : s.pos-1]
	s.tokens = append(s.tokens, Token{Type: TokString, Text: text, Line: startLine})
}

func (s *scanner) scanNumber() {
	for isDigit(s.peek()) {
		s.advance()
	}
	// A fractional part needs at least one digit after the dot.
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	val, _ := strconv.ParseFloat(s.source[s.start:s.pos], 64)
	s.tokens = append(s.tokens, Token{Type: TokNumber, Number: val, Line: s.line})
}

func (s *scanner) scanIdentOrKeyword() {
	for isAlphaNumeric(s.peek()) {
		s.advance()
	}
	text := s.source[s.start:s.pos]
	if typ, ok := keywords[text]; ok {
		s.add(typ)
		return
	}
	s.tokens = append(s.tokens, Token{Type: TokIdent, Text: text, Line: s.line})
}

func (s *scanner) scanToken() {
	ch := s.advance()
	switch ch {
	case '(':
		s.add(TokLParen)
	case ')':
		s.add(TokRParen)
	case '{':
		s.add(TokLBrace)
	case '}':
		s.add(TokRBrace)
	case ',':
		s.add(TokComma)
	case '.':
		s.add(TokDot)
	case '-':
		s.add(TokMinus)
	case '+':
		s.add(TokPlus)
	case ';':
		s.add(TokSemicolon)
	case '*':
		s.add(TokStar)

	case '!':
		if s.match('=') {
			s.add(TokBangEq)
		} else {
			s.add(TokBang)
		}
	case '=':
		if s.match('=') {
			s.add(TokEqEq)
		} else {
			s.add(TokEquals)
		}
	case '<':
		if s.match('=') {
			s.add(TokLtEq)
		} else {
			s.add(TokLt)
		}
	case '>':
		if s.match('=') {
			s.add(TokGtEq)
		} else {
			s.add(TokGt)
		}

	case '/':
		if s.match('/') {
			// Comment runs to end of line
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			s.add(TokSlash)
		}

	case ' ', '\r', '\t':
	case '\n':
		s.line++

	case '"':
		s.scanString()

	default:
		switch {
		case isDigit(ch):
			s.scanNumber()
		case isAlpha(ch):
			s.scanIdentOrKeyword()
		default:
			// Skip the whole rune so a multi-byte character is reported once.
			if ch >= utf8.RuneSelf {
				_, size := utf8.DecodeRuneInString(s.source[s.start:])
				s.pos = s.start + size
			}
			s.lexError(s.line, "Unexpected character.")
		}
	}
}

// Tokenize breaks source code into a slice of tokens. Scanning is
// best-effort: unexpected characters and unterminated strings are reported
// as diagnostics and scanning continues. The result always ends with EOF.
func Tokenize(source string) ([]Token, []diagnostics.Diagnostic) {
	s := newScanner(source)
	for !s.atEnd() {
		s.start = s.pos
		s.scanToken()
	}
	s.tokens = append(s.tokens, Token{Type: TokEOF, Line: s.line})
	return s.tokens, s.diags
}
