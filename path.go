package jsonflow

import (
	"strconv"
	"strings"
)

// segment is what a frame contributes to the path of its child.
type segment uint8

const (
	segNone segment = iota
	segName
	segIndex
)

// Path returns the JSONPath of the value the current frame is processing.
// It is rebuilt from the parked frames on every call.
func (s *Stack) Path() string {
	var b strings.Builder
	b.WriteByte('$')
	for i := 0; i < s.count-1; i++ {
		appendSegment(&b, &s.frames[i])
	}
	return b.String()
}

func appendSegment(b *strings.Builder, f *Frame) {
	switch f.segment {
	case segName:
		if isIdentifier(f.name) {
			b.WriteByte('.')
			b.WriteString(f.name)
			return
		}
		b.WriteString("['")
		for i := 0; i < len(f.name); i++ {
			if c := f.name[i]; c == '\'' || c == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(f.name[i])
		}
		b.WriteString("']")
	case segIndex:
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(f.index))
		b.WriteByte(']')
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
