// Package lexer turns Evochora assembly source text into a Token stream
// (spec.md §4.1).
//
// The teacher lexes with the stdlib text/scanner (asm/parser.go), whose
// built-in identifier rule ("letter/symbol/punct/digit") is wide enough for
// a Forth-like word-based language where everything not a number is an
// opcode, label reference, or directive resolved by context. This module's
// source has register sigils (%DR0), dotted directives (.INCLUDE), typed
// vector literals, and quoted strings with escapes that text/scanner's
// generic identifier rule can't distinguish without ambiguity, so the
// lexer is hand-rolled over the source bytes instead, in the same
// single-pass, diagnostics-accumulating style as the teacher's scanner
// loop (no early return on the first bad character; keep going and report
// everything).
package lexer

import (
	"strconv"
	"strings"

	"github.com/rainco77/evochora-sub013/internal/diag"
	"github.com/rainco77/evochora-sub013/internal/token"
	"github.com/rainco77/evochora-sub013/isa"
)

// Lexer scans one file's source into Tokens.
type Lexer struct {
	file string
	src  string
	pos  int
	line int
	col  int
	diag *diag.Engine
}

// New creates a Lexer for the named file's contents.
func New(file, src string, d *diag.Engine) *Lexer {
	return &Lexer{file: file, src: src, line: 1, col: 1, diag: d}
}

func (l *Lexer) here() diag.Pos {
	return diag.Pos{File: l.file, Line: l.line, Column: l.col}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.src) {
		return 0
	}
	return l.src[l.pos+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

// Tokenize scans the whole file and returns its Tokens, always terminated
// by an EOF token. Lexical errors are recorded on the Engine and scanning
// continues (spec.md's diagnostics-accumulation convention, §4.1).
func (l *Lexer) Tokenize() []token.Token {
	var out []token.Token
	for {
		t, ok := l.next()
		if ok {
			out = append(out, t)
		}
		if t.Kind == token.EOF {
			break
		}
	}
	return out
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// next scans and returns the next token. ok is false for whitespace/comment
// runs that produced no token (the caller's loop just continues).
func (l *Lexer) next() (token.Token, bool) {
	l.skipSpacesAndComments()
	pos := l.here()

	if l.pos >= len(l.src) {
		return token.Token{Kind: token.EOF, Pos: pos}, true
	}

	c := l.peek()
	switch {
	case c == '\n':
		l.advance()
		return token.Token{Kind: token.Newline, Text: "\n", Pos: pos}, true
	case c == ':':
		l.advance()
		return token.Token{Kind: token.Colon, Text: ":", Pos: pos}, true
	case c == ',':
		l.advance()
		return token.Token{Kind: token.Comma, Text: ",", Pos: pos}, true
	case c == '|':
		l.advance()
		return token.Token{Kind: token.VecSep, Text: "|", Pos: pos}, true
	case c == '"':
		return l.scanString(pos)
	case c == '.' && l.peekAt(1) == '.':
		l.advance()
		l.advance()
		return token.Token{Kind: token.Identifier, Text: "..", Pos: pos}, true
	case c == '*':
		l.advance()
		return token.Token{Kind: token.Identifier, Text: "*", Pos: pos}, true
	case c == '.':
		return l.scanDirective(pos)
	case c == '%':
		return l.scanRegister(pos)
	case c == '-' && isDigit(l.peekAt(1)):
		return l.scanNumber(pos)
	case isDigit(c):
		return l.scanNumber(pos)
	case isIdentStart(c):
		return l.scanWord(pos)
	default:
		l.diag.Errorf(pos, "unexpected character %q", c)
		l.advance()
		return token.Token{}, false
	}
}

func (l *Lexer) skipSpacesAndComments() {
	for l.pos < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			l.advance()
		case c == '#':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) scanDirective(pos diag.Pos) (token.Token, bool) {
	start := l.pos
	l.advance() // '.'
	for l.pos < len(l.src) && isIdentCont(l.peek()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	if len(text) == 1 {
		l.diag.Errorf(pos, "empty directive name")
		return token.Token{}, false
	}
	return token.Token{Kind: token.Directive, Text: text, Pos: pos}, true
}

func (l *Lexer) scanRegister(pos diag.Pos) (token.Token, bool) {
	start := l.pos
	l.advance() // '%'
	for l.pos < len(l.src) && isIdentCont(l.peek()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	if len(text) == 1 {
		l.diag.Errorf(pos, "empty register name")
		return token.Token{}, false
	}
	return token.Token{Kind: token.Register, Text: text, Pos: pos}, true
}

func (l *Lexer) scanWord(pos diag.Pos) (token.Token, bool) {
	start := l.pos
	for l.pos < len(l.src) {
		if isIdentCont(l.peek()) {
			l.advance()
			continue
		}
		// A '.' inside a word (not at word start, already excluded since
		// isIdentStart never matches '.') joins a cross-file qualified name
		// like LIB.INC, as long as another identifier char follows.
		if l.peek() == '.' && isIdentStart(l.peekAt(1)) {
			l.advance()
			continue
		}
		break
	}
	text := l.src[start:l.pos]
	if _, ok := isa.Lookup(strings.ToUpper(text)); ok {
		return token.Token{Kind: token.Opcode, Text: text, Pos: pos}, true
	}
	return token.Token{Kind: token.Identifier, Text: text, Pos: pos}, true
}

func (l *Lexer) scanNumber(pos diag.Pos) (token.Token, bool) {
	start := l.pos
	if l.peek() == '-' {
		l.advance()
	}
	if l.peek() == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.advance()
		l.advance()
		for l.pos < len(l.src) && isHex(l.peek()) {
			l.advance()
		}
	} else {
		for l.pos < len(l.src) && isDigit(l.peek()) {
			l.advance()
		}
	}
	text := l.src[start:l.pos]
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		l.diag.Errorf(pos, "invalid number literal %q: %v", text, err)
		return token.Token{}, false
	}
	return token.Token{Kind: token.Number, Text: text, Value: v, Pos: pos}, true
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (l *Lexer) scanString(pos diag.Pos) (token.Token, bool) {
	l.advance() // opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			l.diag.Errorf(pos, "unterminated string literal")
			return token.Token{Kind: token.String, Text: b.String(), Pos: pos}, true
		}
		c := l.peek()
		if c == '"' {
			l.advance()
			break
		}
		if c == '\n' {
			l.diag.Errorf(pos, "unterminated string literal")
			break
		}
		if c == '\\' {
			l.advance()
			esc := l.peek()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"', '\\':
				b.WriteByte(esc)
			default:
				l.diag.Errorf(l.here(), "unknown escape sequence \\%c", esc)
				b.WriteByte(esc)
			}
			l.advance()
			continue
		}
		b.WriteByte(c)
		l.advance()
	}
	return token.Token{Kind: token.String, Text: b.String(), Pos: pos}, true
}
