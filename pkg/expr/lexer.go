package expr

import (
	"fmt"
	"strings"
)

// The lexer turns an expression string into numbers, strings, identifiers
// and punctuation/operator tokens.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokFloat
	tokString
	tokIdent
	tokOp // operators and punctuation
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokInt, tokFloat:
		return "number"
	case tokString:
		return "string"
	case tokIdent:
		return "identifier"
	default:
		return "operator"
	}
}

type token struct {
	kind tokenKind
	val  string
	pos  int // byte offset in the expression
}

// Longest operators first so that "===" wins over "==" and "=".
var operators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||", "??",
	"+", "-", "*", "/", "%", "<", ">", "!",
	"(", ")", "[", "]", "{", "}", ",", ".", ":", "?",
}

type lexer struct {
	src string
	i   int
	n   int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, n: len(src)}
}

// SyntaxError reports a malformed expression. Pos is a byte offset into
// the expression text.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at column %d: %s", e.Pos+1, e.Msg)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *lexer) skipSpace() {
	for l.i < l.n {
		switch l.src[l.i] {
		case ' ', '\t', '\n', '\r':
			l.i++
		default:
			return
		}
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.i >= l.n {
		return token{kind: tokEOF, pos: l.i}, nil
	}
	start := l.i
	c := l.src[l.i]
	switch {
	case isIdentStart(c):
		for l.i < l.n && (isIdentStart(l.src[l.i]) || isDigit(l.src[l.i])) {
			l.i++
		}
		return token{kind: tokIdent, val: l.src[start:l.i], pos: start}, nil
	case isDigit(c) || (c == '.' && l.i+1 < l.n && isDigit(l.src[l.i+1])):
		return l.number()
	case c == '"' || c == '\'':
		return l.str(c)
	}
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.i:], op) {
			l.i += len(op)
			return token{kind: tokOp, val: op, pos: start}, nil
		}
	}
	return token{}, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
}

func (l *lexer) number() (token, error) {
	start := l.i
	kind := tokInt
	for l.i < l.n && isDigit(l.src[l.i]) {
		l.i++
	}
	if l.i < l.n && l.src[l.i] == '.' && l.i+1 < l.n && isDigit(l.src[l.i+1]) {
		kind = tokFloat
		l.i++
		for l.i < l.n && isDigit(l.src[l.i]) {
			l.i++
		}
	}
	if l.i < l.n && (l.src[l.i] == 'e' || l.src[l.i] == 'E') {
		j := l.i + 1
		if j < l.n && (l.src[j] == '+' || l.src[j] == '-') {
			j++
		}
		if j < l.n && isDigit(l.src[j]) {
			kind = tokFloat
			l.i = j
			for l.i < l.n && isDigit(l.src[l.i]) {
				l.i++
			}
		}
	}
	if l.i < l.n && isIdentStart(l.src[l.i]) {
		return token{}, &SyntaxError{Pos: l.i, Msg: "invalid number literal"}
	}
	return token{kind: kind, val: l.src[start:l.i], pos: start}, nil
}

func (l *lexer) str(quote byte) (token, error) {
	start := l.i
	l.i++ // opening quote
	var b strings.Builder
	for l.i < l.n {
		c := l.src[l.i]
		switch c {
		case quote:
			l.i++
			return token{kind: tokString, val: b.String(), pos: start}, nil
		case '\\':
			if l.i+1 >= l.n {
				return token{}, &SyntaxError{Pos: l.i, Msg: "unterminated escape sequence"}
			}
			l.i++
			switch e := l.src[l.i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte(e)
			}
			l.i++
		default:
			b.WriteByte(c)
			l.i++
		}
	}
	return token{}, &SyntaxError{Pos: start, Msg: "unterminated string literal"}
}

// tokenize scans the whole expression up front; expressions are short.
func tokenize(src string) ([]token, error) {
	l := newLexer(src)
	var toks []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == tokEOF {
			return toks, nil
		}
	}
}
