package textcodec

import (
	"bytes"
	"sync"
	"unicode/utf8"
)

// stackUnescapeLimit is the largest payload UnescapeString decodes through
// an on-stack scratch array; longer payloads borrow from scratchPool.
const stackUnescapeLimit = 256

var scratchPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 1024)
		return &b
	},
}

func getScratch(n int) *[]byte {
	bp := scratchPool.Get().(*[]byte)
	if cap(*bp) < n {
		*bp = make([]byte, n)
	}
	*bp = (*bp)[:n]
	return bp
}

func putScratch(bp *[]byte) {
	clear(*bp)
	if cap(*bp) > 1<<20 {
		return
	}
	*bp = (*bp)[:0]
	scratchPool.Put(bp)
}

// Unescape decodes the escaped payload of a JSON string literal (without the
// surrounding quotes) into dst and returns the number of bytes written.
//
// The decoded form is never longer than src, so dst must provide at least
// len(src) bytes. Unpaired or out-of-order surrogates are errors.
func Unescape(dst, src []byte) (int, error) {
	idx := bytes.IndexByte(src, '\\')
	if idx < 0 {
		return copy(dst, src), nil
	}
	dst = dst[:len(src)]
	n := copy(dst, src[:idx])
	i := idx
	for {
		if i+1 >= len(src) {
			return n, syntaxErr(i, "truncated escape sequence")
		}
		if c := src[i+1]; c == 'u' {
			r, w, err := decodeUnicodeEscape(src, i)
			if err != nil {
				return n, err
			}
			n += utf8.EncodeRune(dst[n:], r)
			i += w
		} else {
			b, ok := shortEscape(c)
			if !ok {
				return n, syntaxErr(i, "invalid escape character '"+string(c)+"'")
			}
			dst[n] = b
			n++
			i += 2
		}
		j := bytes.IndexByte(src[i:], '\\')
		if j < 0 {
			n += copy(dst[n:], src[i:])
			return n, nil
		}
		n += copy(dst[n:], src[i:i+j])
		i += j
	}
}

func shortEscape(c byte) (byte, bool) {
	switch c {
	case '"', '\\', '/':
		return c, true
	case 'b':
		return '\b', true
	case 'f':
		return '\f', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	}
	return 0, false
}

// decodeUnicodeEscape decodes the \uXXXX escape at src[i:] and, for a high
// surrogate, the mandatory low surrogate escape that follows. It returns the
// scalar and the number of source bytes consumed.
func decodeUnicodeEscape(src []byte, i int) (rune, int, error) {
	hi, ok := hex4(src, i+2)
	if !ok {
		return 0, 0, syntaxErr(i, "invalid \\u escape")
	}
	switch {
	case hi >= 0xDC00 && hi <= 0xDFFF:
		return 0, 0, syntaxErr(i, "unexpected low surrogate")
	case hi < 0xD800 || hi > 0xDBFF:
		return rune(hi), 6, nil
	}
	j := i + 6
	if j+1 >= len(src) || src[j] != '\\' || src[j+1] != 'u' {
		return 0, 0, syntaxErr(j, "unpaired high surrogate")
	}
	lo, ok := hex4(src, j+2)
	if !ok {
		return 0, 0, syntaxErr(j, "invalid \\u escape")
	}
	if lo < 0xDC00 || lo > 0xDFFF {
		return 0, 0, syntaxErr(j, "high surrogate not followed by low surrogate")
	}
	r := 0x10000 + (rune(hi)-0xD800)<<10 + (rune(lo) - 0xDC00)
	return r, 12, nil
}

func hex4(src []byte, at int) (uint16, bool) {
	if at+4 > len(src) {
		return 0, false
	}
	var v uint16
	for _, c := range src[at : at+4] {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, false
		}
		v = v<<4 | uint16(d)
	}
	return v, true
}

// UnescapeString decodes src into a new string. Short payloads are decoded
// through a stack buffer; longer ones borrow a pooled scratch buffer.
func UnescapeString(src []byte) (string, error) {
	if bytes.IndexByte(src, '\\') < 0 {
		return string(src), nil
	}
	if len(src) <= stackUnescapeLimit {
		var buf [stackUnescapeLimit]byte
		n, err := Unescape(buf[:], src)
		if err != nil {
			return "", err
		}
		return string(buf[:n]), nil
	}
	bp := getScratch(len(src))
	defer putScratch(bp)
	n, err := Unescape(*bp, src)
	if err != nil {
		return "", err
	}
	return string((*bp)[:n]), nil
}
