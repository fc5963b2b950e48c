package engine

import (
	"bytes"
	"fmt"
	"io"
)

type lexState uint8

const (
	stValue      lexState = iota // a value
	stValueOrEnd                 // after '['
	stKeyOrEnd                   // after '{'
	stKey                        // after ',' inside an object
	stColon
	stCommaOrEnd
	stDone
)

// Lexer is a TokenSource over input that arrives in chunks. It never splits
// a token: when the buffered input ends inside one, NextToken returns
// ErrNeedMore without consuming anything and the token is produced again
// after Feed. Punctuation between tokens is consumed as it is seen.
type Lexer struct {
	buf   []byte
	pos   int
	base  int64
	line  int
	final bool
	state lexState
	stack []byte
	err   error
}

// NewLexer returns an empty lexer; Feed it before reading.
func NewLexer() *Lexer { return &Lexer{line: 1} }

// Feed appends p to the unread input. Tokens returned earlier must not be
// used after Feed.
func (l *Lexer) Feed(p []byte) {
	if l.pos > 0 {
		n := copy(l.buf, l.buf[l.pos:])
		clear(l.buf[n:])
		l.buf = l.buf[:n]
		l.base += int64(l.pos)
		l.pos = 0
	}
	l.buf = append(l.buf, p...)
}

// Finish marks the end of input. Afterwards an incomplete token is a syntax
// error instead of ErrNeedMore.
func (l *Lexer) Finish() { l.final = true }

// Done reports whether a complete top-level value has been read.
func (l *Lexer) Done() bool { return l.state == stDone }

// Location returns the absolute offset of the next unread byte.
func (l *Lexer) Location() int64 { return l.base + int64(l.pos) }

func (l *Lexer) NextToken() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	for {
		if !l.skipSpace() {
			switch {
			case !l.final:
				return Token{}, ErrNeedMore
			case l.state == stDone:
				return Token{}, io.EOF
			}
			return Token{}, l.fail(l.pos, "unexpected end of input")
		}
		c := l.buf[l.pos]
		switch l.state {
		case stDone:
			return Token{}, l.fail(l.pos, fmt.Sprintf("invalid character %q after top-level value", c))
		case stColon:
			if c != ':' {
				return Token{}, l.fail(l.pos, "expected ':' after property name")
			}
			l.pos++
			l.state = stValue
			continue
		case stCommaOrEnd:
			switch c {
			case ',':
				l.pos++
				l.state = stValue
				if l.stack[len(l.stack)-1] == '{' {
					l.state = stKey
				}
				continue
			case '}', ']':
				return l.end(c)
			}
			return Token{}, l.fail(l.pos, fmt.Sprintf("invalid character %q after value", c))
		case stKeyOrEnd:
			if c == '}' {
				return l.end(c)
			}
			fallthrough
		case stKey:
			if c != '"' {
				return Token{}, l.fail(l.pos, "expected property name")
			}
			return l.scanString(KindKey)
		case stValueOrEnd:
			if c == ']' {
				return l.end(c)
			}
		}
		return l.scanValue(c)
	}
}

func (l *Lexer) skipSpace() bool {
	for l.pos < len(l.buf) {
		switch l.buf[l.pos] {
		case ' ', '\t', '\r':
		case '\n':
			l.line++
		default:
			return true
		}
		l.pos++
	}
	return false
}

func (l *Lexer) token(k Kind, start int) Token {
	return Token{Kind: k, Offset: l.base + int64(start), Line: l.line}
}

func (l *Lexer) afterValue() {
	if len(l.stack) == 0 {
		l.state = stDone
		return
	}
	l.state = stCommaOrEnd
}

func (l *Lexer) end(c byte) (Token, error) {
	open, kind := byte('{'), KindEndObject
	if c == ']' {
		open, kind = '[', KindEndArray
	}
	if n := len(l.stack); n == 0 || l.stack[n-1] != open {
		return Token{}, l.fail(l.pos, fmt.Sprintf("unexpected %q", c))
	}
	l.stack = l.stack[:len(l.stack)-1]
	tok := l.token(kind, l.pos)
	l.pos++
	l.afterValue()
	return tok, nil
}

func (l *Lexer) scanValue(c byte) (Token, error) {
	switch {
	case c == '{' || c == '[':
		kind, next := KindBeginObject, stKeyOrEnd
		if c == '[' {
			kind, next = KindBeginArray, stValueOrEnd
		}
		tok := l.token(kind, l.pos)
		l.stack = append(l.stack, c)
		l.pos++
		l.state = next
		return tok, nil
	case c == '"':
		return l.scanString(KindString)
	case c == '-' || (c >= '0' && c <= '9'):
		return l.scanNumber()
	case c == 't':
		return l.scanLiteral("true", KindBool, true)
	case c == 'f':
		return l.scanLiteral("false", KindBool, false)
	case c == 'n':
		return l.scanLiteral("null", KindNull, false)
	}
	return Token{}, l.fail(l.pos, fmt.Sprintf("invalid character %q looking for value", c))
}

func (l *Lexer) scanString(kind Kind) (Token, error) {
	start := l.pos
	escaped := false
	for i := start + 1; i < len(l.buf); {
		switch c := l.buf[i]; {
		case c == '"':
			tok := l.token(kind, start)
			tok.Raw = l.buf[start+1 : i]
			tok.Escaped = escaped
			l.pos = i + 1
			if kind == KindKey {
				l.state = stColon
			} else {
				l.afterValue()
			}
			return tok, nil
		case c == '\\':
			escaped = true
			i += 2
		case c < 0x20:
			return Token{}, l.fail(i, "invalid control character in string")
		default:
			i++
		}
	}
	if l.final {
		return Token{}, l.fail(start, "unterminated string")
	}
	return Token{}, ErrNeedMore
}

// scanNumber validates the RFC 8259 number grammar. A number that reaches
// the end of a non-final buffer may continue in the next chunk.
func (l *Lexer) scanNumber() (Token, error) {
	start, b := l.pos, l.buf
	i := start
	if b[i] == '-' {
		i++
	}
	digits := func() int {
		n := 0
		for i < len(b) && b[i] >= '0' && b[i] <= '9' {
			i++
			n++
		}
		return n
	}
	incomplete := func() (Token, error) {
		if l.final {
			return Token{}, l.fail(start, "unterminated number")
		}
		return Token{}, ErrNeedMore
	}
	switch {
	case i == len(b):
		return incomplete()
	case b[i] == '0':
		i++
	case b[i] >= '1' && b[i] <= '9':
		digits()
	default:
		return Token{}, l.fail(i, "invalid character in number")
	}
	if i < len(b) && b[i] == '.' {
		i++
		if digits() == 0 {
			if i == len(b) {
				return incomplete()
			}
			return Token{}, l.fail(i, "missing digits after decimal point")
		}
	}
	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		i++
		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}
		if digits() == 0 {
			if i == len(b) {
				return incomplete()
			}
			return Token{}, l.fail(i, "missing digits in exponent")
		}
	}
	if i == len(b) && !l.final {
		return Token{}, ErrNeedMore
	}
	tok := l.token(KindNumber, start)
	tok.Raw = b[start:i]
	l.pos = i
	l.afterValue()
	return tok, nil
}

func (l *Lexer) scanLiteral(lit string, kind Kind, v bool) (Token, error) {
	avail := l.buf[l.pos:]
	n := min(len(avail), len(lit))
	if !bytes.Equal(avail[:n], []byte(lit[:n])) {
		return Token{}, l.fail(l.pos, "invalid literal")
	}
	if n < len(lit) {
		if l.final {
			return Token{}, l.fail(l.pos, "unterminated literal")
		}
		return Token{}, ErrNeedMore
	}
	tok := l.token(kind, l.pos)
	tok.Bool = v
	l.pos += len(lit)
	l.afterValue()
	return tok, nil
}

func (l *Lexer) fail(at int, msg string) error {
	l.err = &SyntaxError{Msg: msg, Offset: l.base + int64(at), Line: l.line}
	return l.err
}
