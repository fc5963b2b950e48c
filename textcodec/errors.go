package textcodec

import (
	"errors"
	"strconv"
)

// ErrMalformed is the sentinel wrapped by every SyntaxError.
var ErrMalformed = errors.New("textcodec: malformed input")

// SyntaxError reports malformed text. Offset is relative to the start of the
// input passed to the failing function.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return "textcodec: " + e.Msg + " at offset " + strconv.Itoa(e.Offset)
}

func (e *SyntaxError) Unwrap() error { return ErrMalformed }

func syntaxErr(off int, msg string) error { return &SyntaxError{Offset: off, Msg: msg} }
