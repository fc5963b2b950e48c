package typeinfo

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Naming converts declared member names into wire names.
type Naming uint8

const (
	// AsDeclared keeps member names unchanged.
	AsDeclared Naming = iota
	CamelCase
	SnakeCase
)

// Apply returns the wire form of name.
func (n Naming) Apply(name string) string {
	switch n {
	case CamelCase:
		return camelCase(name)
	case SnakeCase:
		return snakeCase(name)
	}
	return name
}

func (n Naming) String() string {
	switch n {
	case CamelCase:
		return "camel_case"
	case SnakeCase:
		return "snake_case"
	}
	return "as_declared"
}

func (n Naming) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

func (n *Naming) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "as_declared", "none":
		*n = AsDeclared
	case "camel_case", "camel":
		*n = CamelCase
	case "snake_case", "snake":
		*n = SnakeCase
	default:
		return fmt.Errorf("typeinfo: unknown naming policy %q", b)
	}
	return nil
}

// camelCase lowers the leading run of upper case letters, keeping the last
// one upper when it starts the next word: "URLValue" becomes "urlValue".
func camelCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	for i := 0; i < len(runes) && unicode.IsUpper(runes[i]); i++ {
		if i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			break
		}
		runes[i] = unicode.ToLower(runes[i])
	}
	return string(runes)
}

func snakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	prev := rune(-1)
	for i, r := range s {
		if unicode.IsUpper(r) {
			next, _ := utf8.DecodeRuneInString(s[i+utf8.RuneLen(r):])
			boundary := prev != -1 && prev != '_' &&
				(unicode.IsLower(prev) || unicode.IsDigit(prev) || unicode.IsLower(next))
			if boundary {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
