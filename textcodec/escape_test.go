package textcodec

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEscapeString_MandatorySet(t *testing.T) {
	got := EscapeString("a\"b\\c\n\x01/", Relaxed)
	want := `a\"b\\c\n` + u("0001") + `/`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEscapeString_WebSafe(t *testing.T) {
	got := EscapeString("<a href='x'>& \u2028", WebSafe)
	want := u("003C") + "a href=" + u("0027") + "x" + u("0027") + u("003E") + u("0026") + " " + u("2028")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := EscapeString("<é>", Relaxed); got != "<é>" {
		t.Fatalf("relaxed should not escape, got %q", got)
	}
}

func TestEscapeString_ASCIIUsesSurrogatePairs(t *testing.T) {
	got := EscapeString("\u00e9\U0001F600", ASCII)
	want := u("00E9") + u("D83D") + u("DE00")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestEscapeString_InvalidUTF8(t *testing.T) {
	got := EscapeString("a\xffb", Relaxed)
	if got != "a"+u("FFFD")+"b" {
		t.Fatalf("got %q", got)
	}
}

// lowerHexPolicy escapes e-acute with lower-case hex digits.
type lowerHexPolicy struct{}

func (lowerHexPolicy) NeedsEscape(r rune) bool { return r == 0xE9 }
func (lowerHexPolicy) AppendEscape(dst []byte, r rune) []byte {
	return append(dst, u("00e9")...)
}

func TestEscape_CustomMapper(t *testing.T) {
	if got := EscapeString("caf\u00e9", lowerHexPolicy{}); got != "caf"+u("00e9") {
		t.Fatalf("got %q", got)
	}
	if got := EscapeString("caf\u00e9", ASCII); got != "caf"+u("00E9") {
		t.Fatalf("got %q", got)
	}
}

func TestIndexEscape(t *testing.T) {
	if i := IndexEscape([]byte("plain text"), Relaxed); i != -1 {
		t.Fatalf("got %d", i)
	}
	if i := IndexEscape([]byte("ab<c"), WebSafe); i != 2 {
		t.Fatalf("got %d", i)
	}
	if i := IndexEscape([]byte("ab\tc"), nil); i != 2 {
		t.Fatalf("got %d", i)
	}
}

func TestAppendEscaped_PreservesPrefix(t *testing.T) {
	dst := []byte(`"`)
	dst = AppendEscaped(dst, []byte("x\"y"), Relaxed)
	dst = append(dst, '"')
	if string(dst) != `"x\"y"` {
		t.Fatalf("got %s", dst)
	}
}

func TestEscape_UnescapeIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune{'a', 'Z', '0', ' ', '"', '\\', '/', '\b', '\f', '\n', '\r', '\t', 0x00, 0x1f, '<', '&', 'é', '€', '😀', 0x2028, 0xFFFD}
	policies := []Policy{Relaxed, WebSafe, ASCII}
	for iter := 0; iter < 500; iter++ {
		var sb strings.Builder
		n := rng.Intn(40)
		for i := 0; i < n; i++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		s := sb.String()
		for _, p := range policies {
			esc := EscapeString(s, p)
			back, err := UnescapeString([]byte(esc))
			if err != nil {
				t.Fatalf("unescape(%q): %v", esc, err)
			}
			if back != s {
				t.Fatalf("round trip mismatch: %q -> %q -> %q", s, esc, back)
			}
		}
	}
}

func TestMaxEscapedLen_CoversWorstCase(t *testing.T) {
	src := []byte("\x01😀\xff")
	dst := make([]byte, MaxEscapedLen(len(src)))
	n := Escape(dst, src, ASCII)
	if !utf8.Valid(dst[:n]) || n > len(dst) {
		t.Fatalf("bad output %q", dst[:n])
	}
}
