package jsonflow

import (
	"errors"
	"io"
	"sort"
	"sync"

	eng "github.com/reoring/jsonflow/internal/engine"
)

// Token kinds and transport types, re-exported so that token sources can be
// implemented outside this module.
type (
	Token       = eng.Token
	TokenKind   = eng.Kind
	TokenSource = eng.TokenSource
)

const (
	TokenBeginObject = eng.KindBeginObject
	TokenEndObject   = eng.KindEndObject
	TokenBeginArray  = eng.KindBeginArray
	TokenEndArray    = eng.KindEndArray
	TokenKey         = eng.KindKey
	TokenString      = eng.KindString
	TokenNumber      = eng.KindNumber
	TokenBool        = eng.KindBool
	TokenNull        = eng.KindNull
)

// ErrNeedMore is returned by chunked token sources that have to be fed
// before they can produce the next token.
var ErrNeedMore = eng.ErrNeedMore

// Driver turns JSON input into a TokenSource. The builtin "lexer" driver is
// always registered; others register themselves from init.
type Driver interface {
	Name() string
	NewReader(r io.Reader) TokenSource
	NewBytes(b []byte) TokenSource
}

// DefaultDriver is the name of the builtin driver.
const DefaultDriver = "lexer"

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{DefaultDriver: lexerDriver{}}
)

// RegisterDriver makes d available to LookupDriver; nil values are ignored.
// A later registration under the same name replaces the earlier one.
func RegisterDriver(d Driver) {
	if d == nil {
		return
	}
	driversMu.Lock()
	drivers[d.Name()] = d
	driversMu.Unlock()
}

// LookupDriver returns the driver registered under name.
func LookupDriver(name string) (Driver, bool) {
	driversMu.RLock()
	d, ok := drivers[name]
	driversMu.RUnlock()
	return d, ok
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	driversMu.RLock()
	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	driversMu.RUnlock()
	sort.Strings(names)
	return names
}

type lexerDriver struct{}

func (lexerDriver) Name() string { return DefaultDriver }

func (lexerDriver) NewBytes(b []byte) TokenSource {
	lex := eng.NewLexer()
	lex.Feed(b)
	lex.Finish()
	return lex
}

func (lexerDriver) NewReader(r io.Reader) TokenSource {
	return &readerSource{r: r, lex: eng.NewLexer(), buf: make([]byte, DefaultReadBufferSize)}
}

// readerSource feeds a Lexer from an io.Reader whenever it runs dry, so
// callers never see ErrNeedMore.
type readerSource struct {
	r   io.Reader
	lex *eng.Lexer
	buf []byte
	err error
}

func (s *readerSource) NextToken() (Token, error) {
	for {
		tok, err := s.lex.NextToken()
		if !errors.Is(err, eng.ErrNeedMore) {
			return tok, err
		}
		if s.err != nil {
			return Token{}, s.err
		}
		n, rerr := s.r.Read(s.buf)
		if n > 0 {
			s.lex.Feed(s.buf[:n])
		}
		switch {
		case rerr == io.EOF:
			s.lex.Finish()
		case rerr != nil:
			s.err = rerr
		}
	}
}

func (s *readerSource) Location() int64 { return s.lex.Location() }
