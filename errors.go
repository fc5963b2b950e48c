package jsonflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/jsonflow/i18n"
	"github.com/reoring/jsonflow/internal/bufpool"
	"github.com/reoring/jsonflow/internal/engine"
	"github.com/reoring/jsonflow/textcodec"
	"github.com/reoring/jsonflow/typeinfo"
)

// Issue codes.
const (
	CodeMalformedInput   = "malformed_input"
	CodeSchemaMismatch   = "schema_mismatch"
	CodeAmbiguousMapping = "ambiguous_polymorphic_mapping"
	CodeDepthExceeded    = "depth_exceeded"
	CodeReferenceCycle   = "reference_cycle"
	CodeUnsupportedType  = "unsupported_type"
	CodeInvalidState     = "invalid_state"
	CodeLimitExceeded    = "limit_exceeded"
)

// Sentinels matching every Issues error carrying the corresponding code:
// errors.Is(err, ErrSchemaMismatch).
var (
	ErrMalformedInput   error = codeError(CodeMalformedInput)
	ErrSchemaMismatch   error = codeError(CodeSchemaMismatch)
	ErrAmbiguousMapping error = codeError(CodeAmbiguousMapping)
	ErrDepthExceeded    error = codeError(CodeDepthExceeded)
	ErrReferenceCycle   error = codeError(CodeReferenceCycle)
	ErrUnsupportedType  error = codeError(CodeUnsupportedType)
	ErrInvalidState     error = codeError(CodeInvalidState)
	ErrLimitExceeded    error = codeError(CodeLimitExceeded)
)

type codeError string

func (e codeError) Error() string { return "jsonflow: " + string(e) }

// Issue describes one failure.
type Issue struct {
	Path    string // JSONPath of the value being processed, e.g. $.items[2].price.
	Code    string // One of the codes listed above.
	Message string
	Cause   error // Optional: underlying error.
	Offset  int64 // Byte offset in the input (-1 when unknown).
	Line    int   // Line in the input (0 when unknown).
}

// Issues is a collection of errors that implements error. Operations in this
// package fail with Issues holding a single entry.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. schema_mismatch at $.a: missing required property "b"
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" {
			b.WriteString(": ")
			b.WriteString(it.Message)
		}
		if it.Offset >= 0 && it.Line > 0 {
			fmt.Fprintf(b, " (line %d, offset %d)", it.Line, it.Offset)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Is matches the code sentinels.
func (iss Issues) Is(target error) bool {
	ce, ok := target.(codeError)
	if !ok {
		return false
	}
	for _, it := range iss {
		if it.Code == string(ce) {
			return true
		}
	}
	return false
}

// Unwrap exposes the causes to errors.Is and errors.As.
func (iss Issues) Unwrap() []error {
	var errs []error
	for _, it := range iss {
		if it.Cause != nil {
			errs = append(errs, it.Cause)
		}
	}
	return errs
}

// Localized returns a copy whose messages are rendered by tr, keeping the
// original message as the detail. A nil tr uses the package translator.
func (iss Issues) Localized(tr i18n.Translator) Issues {
	out := make(Issues, len(iss))
	for i, it := range iss {
		data := map[string]string{"path": it.Path, "detail": it.Message}
		if tr != nil {
			it.Message = tr.Message(it.Code, data)
		} else {
			it.Message = i18n.T(it.Code, data)
		}
		out[i] = it
	}
	return out
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// classify picks the issue code for an error raised below the root package.
func classify(err error) string {
	var (
		amb   *typeinfo.AmbiguousMappingError
		uns   *typeinfo.UnsupportedTypeError
		unk   *typeinfo.UnknownDerivedError
		mis   *typeinfo.MismatchError
		limit *engine.LimitError
	)
	switch {
	case errors.As(err, &amb):
		return CodeAmbiguousMapping
	case errors.As(err, &mis):
		return CodeSchemaMismatch
	case errors.As(err, &limit), errors.Is(err, bufpool.ErrTooLarge):
		return CodeLimitExceeded
	case errors.Is(err, textcodec.ErrMalformed), errors.Is(err, engine.ErrMalformed):
		return CodeMalformedInput
	case errors.As(err, &uns), errors.As(err, &unk):
		return CodeUnsupportedType
	}
	return CodeMalformedInput
}

// toIssues wraps err into Issues unless it already is one.
func toIssues(err error, path string, tok *engine.Token) error {
	if err == nil {
		return nil
	}
	if iss, ok := AsIssues(err); ok {
		return iss
	}
	it := Issue{Path: path, Code: classify(err), Message: err.Error(), Cause: err, Offset: -1}
	var (
		se *engine.SyntaxError
		le *engine.LimitError
	)
	if errors.As(err, &se) {
		it.Offset, it.Line = se.Offset, se.Line
	} else if errors.As(err, &le) {
		it.Offset = le.Offset
	} else if tok != nil {
		it.Offset, it.Line = tok.Offset, tok.Line
	}
	return Issues{it}
}

func newIssue(code, path, msg string, tok *engine.Token) error {
	it := Issue{Path: path, Code: code, Message: msg, Offset: -1}
	if tok != nil {
		it.Offset, it.Line = tok.Offset, tok.Line
	}
	return Issues{it}
}
