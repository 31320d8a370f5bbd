// Package exprlang implements the closed, pure expression grammar
// workflow steps use for `expr` and `when`: literals, numeric ops,
// comparisons, boolean logic, member access, a small built-in function
// set, and a conditional. No function definitions, no loops, no I/O —
// deliberately hand-rolled rather than embedding a general-purpose
// scripting language, since the closed-grammar invariant (bounded time,
// bounded memory, no loops) is exactly what a general embeddable
// language does not give you for free.
package exprlang

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokDot
	tokComma
	tokQuestion
	tokColon
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokAnd
	tokOr
	tokNot
	tokTrue
	tokFalse
	tokNull
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"true":  tokTrue,
	"false": tokFalse,
	"null":  tokNull,
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}
	c := l.src[l.pos]

	switch {
	case c >= '0' && c <= '9':
		return l.lexNumber(), nil
	case c == '"' || c == '\'':
		return l.lexString(c)
	case isIdentStart(c):
		return l.lexIdent(), nil
	}

	single := map[rune]tokenKind{
		'[': tokLBracket, ']': tokRBracket,
		'(': tokLParen, ')': tokRParen,
		'.': tokDot, ',': tokComma,
		'?': tokQuestion, ':': tokColon,
		'+': tokPlus, '-': tokMinus,
		'*': tokStar, '%': tokPercent,
	}

	switch c {
	case '/':
		l.pos++
		return token{kind: tokSlash}, nil
	case '=':
		l.pos++
		if l.peekRune() == '=' {
			l.pos++
			return token{kind: tokEq}, nil
		}
		return token{}, fmt.Errorf("unexpected '=' at position %d", l.pos-1)
	case '!':
		l.pos++
		if l.peekRune() == '=' {
			l.pos++
			return token{kind: tokNeq}, nil
		}
		return token{}, fmt.Errorf("unexpected '!' at position %d", l.pos-1)
	case '<':
		l.pos++
		if l.peekRune() == '=' {
			l.pos++
			return token{kind: tokLte}, nil
		}
		return token{kind: tokLt}, nil
	case '>':
		l.pos++
		if l.peekRune() == '=' {
			l.pos++
			return token{kind: tokGte}, nil
		}
		return token{kind: tokGt}, nil
	}

	if k, ok := single[c]; ok {
		l.pos++
		return token{kind: k}, nil
	}
	return token{}, fmt.Errorf("unexpected character %q at position %d", c, l.pos)
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\n' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

func (l *lexer) lexNumber() token {
	start := l.pos
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	n, _ := strconv.ParseFloat(text, 64)
	return token{kind: tokNumber, num: n, text: text}
}

func (l *lexer) lexString(quote rune) (token, error) {
	l.pos++ // consume opening quote
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("unterminated string literal")
		}
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{kind: tokString, text: b.String()}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			b.WriteRune(l.src[l.pos])
			l.pos++
			continue
		}
		b.WriteRune(c)
		l.pos++
	}
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	if kind, ok := keywords[text]; ok {
		return token{kind: kind, text: text}
	}
	return token{kind: tokIdent, text: text}
}

func isDigit(c rune) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c rune) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c rune) bool  { return isIdentStart(c) || isDigit(c) }
