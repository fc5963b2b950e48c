package jsonflow

import (
	"bytes"
	"context"
	"io"
	"reflect"

	"go.uber.org/zap"

	"github.com/reoring/jsonflow/internal/bufpool"
	"github.com/reoring/jsonflow/internal/engine"
	"github.com/reoring/jsonflow/typeinfo"
)

const (
	initialBufferSize = 256
	// pooledBufferLimit is the largest output buffer kept for reuse.
	pooledBufferLimit = 1 << 20
)

// Serializer converts values described by a typeinfo.Provider to and from
// JSON. It is safe for concurrent use; the Encoders and Decoders it creates
// are not.
type Serializer struct {
	opts    Options
	cache   *typeinfo.Cache
	log     *zap.Logger
	buffers *bufpool.Pool[*output]
}

// output pairs a buffer with the writer appending to it.
type output struct {
	buf *bufpool.Buffer
	w   *engine.Writer
}

// New returns a Serializer for the types known to p.
func New(p typeinfo.Provider, opts ...Options) *Serializer {
	var o Options
	if len(opts) > 0 {
		o = opts[len(opts)-1]
	}
	o = o.withDefaults()
	s := &Serializer{
		opts:  o,
		cache: typeinfo.NewCache(p, typeinfo.Config{Naming: o.Naming, Logger: o.Logger}),
		log:   o.Logger,
	}
	s.buffers = bufpool.NewPool(func() *output {
		buf := bufpool.NewBuffer(initialBufferSize)
		return &output{buf: buf, w: engine.NewWriter(buf, o.Policy)}
	}, func(out *output) bool {
		out.buf.Reset()
		out.w.Reset(out.buf, o.Policy)
		return out.buf.Cap() <= pooledBufferLimit
	})
	return s
}

// Options returns the effective options.
func (s *Serializer) Options() Options { return s.opts }

// Cache returns the descriptor cache.
func (s *Serializer) Cache() *typeinfo.Cache { return s.cache }

// Clear drops every cached descriptor. Operations already in flight keep
// the descriptors they resolved.
func (s *Serializer) Clear() { s.cache.Clear() }

// Marshal returns the JSON encoding of v, described by its runtime type.
func (s *Serializer) Marshal(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return s.MarshalAs(v, reflect.TypeOf(v))
}

// MarshalAs returns the JSON encoding of v described as nominal type t, so
// polymorphic values carry their discriminator.
func (s *Serializer) MarshalAs(v any, t reflect.Type) ([]byte, error) {
	d, err := s.resolve(t)
	if err != nil {
		return nil, err
	}
	lease := s.buffers.Rent()
	defer s.buffers.Return(lease)
	out := lease.Value

	var ws writeState
	ws.init(s, out.w, d, v, 0)
	if _, err := ws.run(); err != nil {
		return nil, err
	}
	if err := out.w.Err(); err != nil {
		return nil, toIssues(err, "$", nil)
	}
	return bytes.Clone(out.buf.Bytes()), nil
}

// Encode writes the JSON encoding of v to w in chunks of roughly
// Options.FlushThreshold bytes. ctx is checked between chunks.
func (s *Serializer) Encode(ctx context.Context, w io.Writer, v any) error {
	enc, err := s.NewEncoder(v)
	if err != nil {
		return err
	}
	defer enc.Close()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, more, err := enc.Next()
		if err != nil {
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// Unmarshal decodes data into a new value of type t.
func (s *Serializer) Unmarshal(data []byte, t reflect.Type) (any, error) {
	if s.opts.MaxBytes > 0 && int64(len(data)) > s.opts.MaxBytes {
		return nil, toIssues(&engine.LimitError{Limit: s.opts.MaxBytes, Offset: int64(len(data))}, "$", nil)
	}
	lex := engine.NewLexer()
	lex.Feed(data)
	lex.Finish()
	return s.DecodeSource(lex, t)
}

// Unmarshal decodes data into a T. A JSON null yields the zero T.
func Unmarshal[T any](s *Serializer, data []byte) (T, error) {
	var zero T
	v, err := s.Unmarshal(data, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil || v == nil {
		return zero, err
	}
	return v.(T), nil
}

// Decode reads one JSON value of type t from r, Options.ReadBufferSize
// bytes at a time. ctx is checked between reads.
func (s *Serializer) Decode(ctx context.Context, r io.Reader, t reflect.Type) (any, error) {
	dec, err := s.NewDecoder(t)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, s.opts.ReadBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if err := dec.Feed(buf[:n]); err != nil {
				return nil, err
			}
		}
		if rerr == io.EOF {
			return dec.Finish()
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}

// DecodeSource reads one value of type t from a token source that holds
// the whole document. The source must be exhausted afterwards.
func (s *Serializer) DecodeSource(src TokenSource, t reflect.Type) (any, error) {
	d, err := s.resolve(t)
	if err != nil {
		return nil, err
	}
	var rs readState
	rs.init(s, engine.Limit(src, s.opts.MaxBytes), d)
	ok, err := rs.run()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newIssue(CodeMalformedInput, rs.st.Path(), "unexpected end of input", &rs.last)
	}
	if err := rs.expectEnd(); err != nil {
		return nil, err
	}
	return rs.result, nil
}

func (s *Serializer) resolve(t reflect.Type) (*typeinfo.Descriptor, error) {
	if t == nil {
		t = anyType
	}
	d, err := s.cache.Resolve(t)
	if err != nil {
		return nil, toIssues(err, "$", nil)
	}
	return d, nil
}
