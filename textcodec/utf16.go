package textcodec

import (
	"unicode/utf16"
	"unicode/utf8"
)

// UTF16ToUTF8 transcodes src into dst and returns the bytes written. dst
// must hold at least 3*len(src) bytes. Unpaired surrogates are errors;
// Offset in the returned SyntaxError counts code units.
func UTF16ToUTF8(dst []byte, src []uint16) (int, error) {
	n := 0
	for i := 0; i < len(src); i++ {
		u := rune(src[i])
		switch {
		case !utf16.IsSurrogate(u):
			n += utf8.EncodeRune(dst[n:], u)
		case u <= 0xDBFF && i+1 < len(src):
			r := utf16.DecodeRune(u, rune(src[i+1]))
			if r == utf8.RuneError {
				return n, syntaxErr(i, "high surrogate not followed by low surrogate")
			}
			n += utf8.EncodeRune(dst[n:], r)
			i++
		default:
			return n, syntaxErr(i, "unpaired surrogate")
		}
	}
	return n, nil
}

// UTF8ToUTF16 transcodes src into dst and returns the code units written.
// dst must hold at least len(src) units. Invalid UTF-8 is an error.
func UTF8ToUTF16(dst []uint16, src []byte) (int, error) {
	n := 0
	for i := 0; i < len(src); {
		c := src[i]
		if c < utf8.RuneSelf {
			dst[n] = uint16(c)
			n++
			i++
			continue
		}
		r, size := utf8.DecodeRune(src[i:])
		if r == utf8.RuneError && size == 1 {
			return n, syntaxErr(i, "invalid UTF-8")
		}
		if r > 0xFFFF {
			r1, r2 := utf16.EncodeRune(r)
			dst[n], dst[n+1] = uint16(r1), uint16(r2)
			n += 2
		} else {
			dst[n] = uint16(r)
			n++
		}
		i += size
	}
	return n, nil
}
