// Package gojson provides a jsonflow driver backed by goccy/go-json.
// Importing it registers the driver under the name "gojson":
//
//	import _ "github.com/reoring/jsonflow/source/gojson"
package gojson

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	"github.com/reoring/jsonflow"
	eng "github.com/reoring/jsonflow/internal/engine"
)

// Name is the registered driver name.
const Name = "gojson"

func init() { jsonflow.RegisterDriver(Driver()) }

// Driver returns a jsonflow.Driver backed by goccy/go-json.
func Driver() jsonflow.Driver { return driverGoJSON{} }

type driverGoJSON struct{}

func (driverGoJSON) NewReader(r io.Reader) jsonflow.TokenSource { return NewReader(r) }
func (driverGoJSON) NewBytes(b []byte) jsonflow.TokenSource     { return NewBytes(b) }
func (driverGoJSON) Name() string                               { return Name }

// ---- engine.TokenSource implementation using go-json Decoder ----

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

// source reads the whole document through the go-json decoder. Tokens carry
// unescaped text and no offsets; Location reports the decoder's input offset.
type source struct {
	dec   *j.Decoder
	stack []frame
}

// NewReader wraps an io.Reader into an engine.TokenSource for JSON using go-json.
func NewReader(r io.Reader) eng.TokenSource {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &source{dec: dec}
}

// NewBytes wraps a byte slice into an engine.TokenSource for JSON using go-json.
func NewBytes(b []byte) eng.TokenSource { return NewReader(bytes.NewReader(b)) }

func (s *source) NextToken() (eng.Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		if err == io.EOF {
			return eng.Token{}, io.EOF
		}
		return eng.Token{}, fmt.Errorf("gojson: %w: %v", eng.ErrMalformed, err)
	}
	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return token(eng.KindBeginObject), nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return token(eng.KindBeginArray), nil
		case '}', ']':
			if n := len(s.stack); n > 0 {
				s.stack = s.stack[:n-1]
			}
			s.afterValue()
			if v == '}' {
				return token(eng.KindEndObject), nil
			}
			return token(eng.KindEndArray), nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			if top := &s.stack[n-1]; top.kind == kindObject && top.expectingKey {
				top.expectingKey = false
				t := token(eng.KindKey)
				t.Raw = []byte(v)
				return t, nil
			}
		}
		s.afterValue()
		t := token(eng.KindString)
		t.Raw = []byte(v)
		return t, nil
	case bool:
		s.afterValue()
		t := token(eng.KindBool)
		t.Bool = v
		return t, nil
	case j.Number:
		s.afterValue()
		t := token(eng.KindNumber)
		t.Raw = []byte(v)
		return t, nil
	case float64:
		s.afterValue()
		t := token(eng.KindNumber)
		t.Raw = strconv.AppendFloat(nil, v, 'g', -1, 64)
		return t, nil
	case nil:
		s.afterValue()
		return token(eng.KindNull), nil
	}
	return eng.Token{}, fmt.Errorf("gojson: %w: unexpected token %T", eng.ErrMalformed, tok)
}

// afterValue flips the enclosing object back to expecting a key.
func (s *source) afterValue() {
	if n := len(s.stack); n > 0 {
		if top := &s.stack[n-1]; top.kind == kindObject && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

func (s *source) Location() int64 { return s.dec.InputOffset() }

func token(k eng.Kind) eng.Token { return eng.Token{Kind: k, Offset: -1} }
