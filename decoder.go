package jsonflow

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/reoring/jsonflow/internal/engine"
)

// Decoder reads one value from input supplied in chunks. Chunk boundaries
// may fall anywhere, including inside a token.
type Decoder struct {
	s        *Serializer
	lex      *engine.Lexer
	rs       readState
	fed      int64
	feeds    int
	err      error
	finished bool
}

// NewDecoder returns a Decoder producing a value of type t.
func (s *Serializer) NewDecoder(t reflect.Type) (*Decoder, error) {
	d, err := s.resolve(t)
	if err != nil {
		return nil, err
	}
	dec := &Decoder{s: s, lex: engine.NewLexer()}
	dec.rs.init(s, dec.lex, d)
	return dec, nil
}

// Feed supplies the next chunk and advances the read as far as it allows.
// p is copied.
func (d *Decoder) Feed(p []byte) error {
	switch {
	case d.err != nil:
		return d.err
	case d.finished:
		return newIssue(CodeInvalidState, "$", "decoder is finished", nil)
	}
	d.fed += int64(len(p))
	if limit := d.s.opts.MaxBytes; limit > 0 && d.fed > limit {
		d.err = toIssues(&engine.LimitError{Limit: limit, Offset: d.fed}, d.rs.st.Path(), nil)
		return d.err
	}
	d.lex.Feed(p)
	d.feeds++
	if d.rs.st.State() == StateCompleted {
		return nil
	}
	return d.resume()
}

func (d *Decoder) resume() error {
	resumed := d.rs.st.State() == StateSuspended
	done, err := d.rs.run()
	if err != nil {
		d.err = err
		return err
	}
	if resumed {
		d.s.log.Debug("jsonflow: decoder resumed", zap.Int("feed", d.feeds))
	}
	if !done {
		d.s.log.Debug("jsonflow: decoder suspended",
			zap.Int64("offset", d.lex.Location()),
			zap.Int("depth", d.rs.st.continuation))
	}
	return nil
}

// Done reports whether a complete value has been read.
func (d *Decoder) Done() bool { return d.rs.st.State() == StateCompleted }

// Finish marks the end of input and returns the value. Anything but
// whitespace after the value is an error.
func (d *Decoder) Finish() (any, error) {
	switch {
	case d.err != nil:
		return nil, d.err
	case d.finished:
		return nil, newIssue(CodeInvalidState, "$", "decoder is finished", nil)
	}
	d.finished = true
	d.lex.Finish()
	if !d.Done() {
		if err := d.resume(); err != nil {
			return nil, err
		}
		if !d.Done() {
			d.err = newIssue(CodeMalformedInput, "$", "unexpected end of input", &d.rs.last)
			return nil, d.err
		}
	}
	if err := d.rs.expectEnd(); err != nil {
		d.err = err
		return nil, err
	}
	return d.rs.result, nil
}
