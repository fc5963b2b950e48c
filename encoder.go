package jsonflow

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/reoring/jsonflow/internal/bufpool"
)

// Encoder writes one value in chunks. Each call to Next resumes the
// traversal where the previous one suspended.
type Encoder struct {
	s      *Serializer
	lease  bufpool.Lease[*output]
	ws     writeState
	chunks int
	err    error
	closed bool
}

// NewEncoder returns an Encoder for v, described by its runtime type. The
// Encoder holds the Serializer's cached output buffer until Close.
func (s *Serializer) NewEncoder(v any) (*Encoder, error) {
	var t reflect.Type
	if v != nil {
		t = reflect.TypeOf(v)
	}
	return s.NewEncoderAs(v, t)
}

// NewEncoderAs returns an Encoder for v described as nominal type t.
func (s *Serializer) NewEncoderAs(v any, t reflect.Type) (*Encoder, error) {
	d, err := s.resolve(t)
	if err != nil {
		return nil, err
	}
	e := &Encoder{s: s, lease: s.buffers.Rent()}
	e.ws.init(s, e.lease.Value.w, d, v, s.opts.FlushThreshold)
	return e, nil
}

// Next writes the next chunk. more reports whether another call is needed.
// The chunk is only valid until the next call to Next or Close.
func (e *Encoder) Next() (chunk []byte, more bool, err error) {
	switch {
	case e.err != nil:
		return nil, false, e.err
	case e.closed:
		return nil, false, newIssue(CodeInvalidState, "$", "encoder is closed", nil)
	}
	out := e.lease.Value
	out.buf.Reset()
	resumed := e.ws.st.State() == StateSuspended
	done, err := e.ws.run()
	if err == nil {
		if werr := out.w.Err(); werr != nil {
			err = toIssues(werr, "$", nil)
		}
	}
	if err != nil {
		e.err = err
		return nil, false, err
	}
	e.chunks++
	if resumed {
		e.s.log.Debug("jsonflow: encoder resumed", zap.Int("chunk", e.chunks))
	}
	if !done {
		e.s.log.Debug("jsonflow: encoder suspended",
			zap.Int("buffered", out.buf.Len()),
			zap.Int("depth", e.ws.st.continuation))
	}
	return out.buf.Bytes(), !done, nil
}

// State returns the state of the underlying stack.
func (e *Encoder) State() State { return e.ws.st.State() }

// Close returns the pooled buffer. It is safe to call more than once.
func (e *Encoder) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.s.buffers.Return(e.lease)
	e.lease = bufpool.Lease[*output]{}
}
