package textcodec

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Policy decides which characters outside the mandatory RFC 8259 set
// (control characters, quote and backslash) are written escaped.
type Policy interface {
	NeedsEscape(r rune) bool
}

// Mapper is optionally implemented by a Policy that wants to choose the
// escape text for the characters it selects. AppendEscape must append a
// valid JSON escape sequence for r of at most six bytes per encoded input
// byte.
type Mapper interface {
	AppendEscape(dst []byte, r rune) []byte
}

// PolicyFunc adapts a predicate to the Policy interface.
type PolicyFunc func(r rune) bool

func (f PolicyFunc) NeedsEscape(r rune) bool { return f(r) }

type relaxedPolicy struct{}

func (relaxedPolicy) NeedsEscape(rune) bool { return false }

type webSafePolicy struct{}

func (webSafePolicy) NeedsEscape(r rune) bool {
	switch r {
	case '<', '>', '&', '\'', '+', '`', '\u2028', '\u2029':
		return true
	}
	return false
}

type asciiPolicy struct{}

func (asciiPolicy) NeedsEscape(r rune) bool {
	return r >= utf8.RuneSelf || webSafePolicy{}.NeedsEscape(r)
}

var (
	// Relaxed escapes only the mandatory set.
	Relaxed Policy = relaxedPolicy{}
	// WebSafe additionally escapes characters that are significant inside
	// HTML and script contexts, and the JavaScript line terminators.
	WebSafe Policy = webSafePolicy{}
	// ASCII escapes everything WebSafe does plus every non-ASCII character,
	// writing astral characters as surrogate pairs.
	ASCII Policy = asciiPolicy{}
)

const hexDigits = "0123456789ABCDEF"

// maxEscapeExpansion is the worst case number of output bytes per input
// byte: a single byte control character becomes \u00XX.
const maxEscapeExpansion = 6

// MaxEscapedLen returns the largest possible escaped length of n input bytes.
func MaxEscapedLen(n int) int { return n * maxEscapeExpansion }

// IndexEscape returns the byte index of the first character in src that must
// be escaped under p, or -1 when src can be written verbatim.
func IndexEscape(src []byte, p Policy) int {
	if p == nil {
		p = Relaxed
	}
	for i := 0; i < len(src); {
		c := src[i]
		if c < utf8.RuneSelf {
			if c < 0x20 || c == '"' || c == '\\' || p.NeedsEscape(rune(c)) {
				return i
			}
			i++
			continue
		}
		r, size := utf8.DecodeRune(src[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		if p.NeedsEscape(r) {
			return i
		}
		i += size
	}
	return -1
}

// Escape writes src escaped under p into dst and returns the number of bytes
// written. dst must hold at least MaxEscapedLen(len(src)) bytes. Invalid
// UTF-8 is written as the escaped replacement character U+FFFD.
func Escape(dst, src []byte, p Policy) int {
	if p == nil {
		p = Relaxed
	}
	n := 0
	for i := 0; i < len(src); {
		c := src[i]
		if c < utf8.RuneSelf {
			switch {
			case c == '"' || c == '\\':
				dst[n], dst[n+1] = '\\', c
				n += 2
			case c < 0x20:
				n += putControl(dst[n:], c)
			case p.NeedsEscape(rune(c)):
				n += putMapped(dst[n:], rune(c), p)
			default:
				dst[n] = c
				n++
			}
			i++
			continue
		}
		r, size := utf8.DecodeRune(src[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			n += putUnicode(dst[n:], 0xFFFD)
		case p.NeedsEscape(r):
			n += putMapped(dst[n:], r, p)
		default:
			n += copy(dst[n:], src[i:i+size])
		}
		i += size
	}
	return n
}

// AppendEscaped appends src escaped under p to dst.
func AppendEscaped(dst, src []byte, p Policy) []byte {
	i := IndexEscape(src, p)
	if i < 0 {
		return append(dst, src...)
	}
	dst = append(dst, src[:i]...)
	need := MaxEscapedLen(len(src) - i)
	start := len(dst)
	dst = grow(dst, need)
	n := Escape(dst[start:start+need], src[i:], p)
	return dst[:start+n]
}

// EscapeString returns s escaped under p. The worst-case expansion decides
// between a stack scratch buffer and a pooled one.
func EscapeString(s string, p Policy) string {
	src := []byte(s)
	i := IndexEscape(src, p)
	if i < 0 {
		return s
	}
	need := MaxEscapedLen(len(src))
	if need <= stackUnescapeLimit {
		var buf [stackUnescapeLimit]byte
		n := Escape(buf[:], src, p)
		return string(buf[:n])
	}
	bp := getScratch(need)
	defer putScratch(bp)
	n := Escape(*bp, src, p)
	return string((*bp)[:n])
}

func grow(b []byte, n int) []byte {
	if cap(b)-len(b) >= n {
		return b[:len(b)+n]
	}
	nb := make([]byte, len(b)+n, 2*cap(b)+n)
	copy(nb, b)
	return nb
}

func putControl(dst []byte, c byte) int {
	var short byte
	switch c {
	case '\b':
		short = 'b'
	case '\f':
		short = 'f'
	case '\n':
		short = 'n'
	case '\r':
		short = 'r'
	case '\t':
		short = 't'
	default:
		return putUnicode(dst, rune(c))
	}
	dst[0], dst[1] = '\\', short
	return 2
}

func putMapped(dst []byte, r rune, p Policy) int {
	if m, ok := p.(Mapper); ok {
		return len(m.AppendEscape(dst[:0], r))
	}
	if r > 0xFFFF {
		r1, r2 := utf16.EncodeRune(r)
		n := putUnicode(dst, r1)
		return n + putUnicode(dst[n:], r2)
	}
	return putUnicode(dst, r)
}

func putUnicode(dst []byte, r rune) int {
	dst[0], dst[1] = '\\', 'u'
	dst[2] = hexDigits[(r>>12)&0xF]
	dst[3] = hexDigits[(r>>8)&0xF]
	dst[4] = hexDigits[(r>>4)&0xF]
	dst[5] = hexDigits[r&0xF]
	return 6
}
