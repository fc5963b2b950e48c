package engine

import (
	"errors"
	"strconv"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

var kindNames = [...]string{
	KindBeginObject: "'{'",
	KindEndObject:   "'}'",
	KindBeginArray:  "'['",
	KindEndArray:    "']'",
	KindKey:         "property name",
	KindString:      "string",
	KindNumber:      "number",
	KindBool:        "bool",
	KindNull:        "null",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Token is one lexical unit. For keys and strings Raw holds the payload
// between the quotes, still escaped when Escaped is set; for numbers it holds
// the literal text. Raw may alias the source's buffer and is only valid
// until the source is fed or advanced again.
type Token struct {
	Kind    Kind
	Raw     []byte
	Escaped bool
	Bool    bool
	Offset  int64 // -1 when unknown
	Line    int   // 0 when unknown
}

// TokenSource is a minimal interface required by the engine.
//
// NextToken returns io.EOF after the last token of a complete document and
// ErrNeedMore when a chunked source has to be fed before it can produce the
// next token.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// ErrNeedMore signals that the input ended inside a token or between tokens
// of an unfinished document and more data may follow.
var ErrNeedMore = errors.New("engine: need more input")

// ErrMalformed is wrapped by every SyntaxError.
var ErrMalformed = errors.New("engine: malformed JSON")

// SyntaxError describes invalid JSON at a byte offset.
type SyntaxError struct {
	Msg    string
	Offset int64
	Line   int
}

func (e *SyntaxError) Error() string {
	return "engine: " + e.Msg + " at offset " + strconv.FormatInt(e.Offset, 10) +
		" (line " + strconv.Itoa(e.Line) + ")"
}

func (e *SyntaxError) Unwrap() error { return ErrMalformed }
