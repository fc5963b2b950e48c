package engine

import (
	"github.com/reoring/jsonflow/internal/bufpool"
	"github.com/reoring/jsonflow/textcodec"
)

// Writer is the token sink of the write path. It appends JSON text to a
// Buffer and tracks separators itself, so the buffer can be drained between
// any two calls without affecting the output. Errors are sticky and reported
// by Err.
type Writer struct {
	buf       *bufpool.Buffer
	policy    textcodec.Policy
	comma     []bool
	afterName bool
	err       error
}

// NewWriter returns a Writer appending to buf and escaping strings under p.
func NewWriter(buf *bufpool.Buffer, p textcodec.Policy) *Writer {
	w := &Writer{}
	w.Reset(buf, p)
	return w
}

// Reset discards the separator state and retargets the writer.
func (w *Writer) Reset(buf *bufpool.Buffer, p textcodec.Policy) {
	if p == nil {
		p = textcodec.Relaxed
	}
	w.buf, w.policy = buf, p
	w.comma = w.comma[:0]
	w.afterName = false
	w.err = nil
}

// Buffer returns the buffer the writer appends to.
func (w *Writer) Buffer() *bufpool.Buffer { return w.buf }

// Buffered returns the number of bytes waiting in the buffer.
func (w *Writer) Buffered() int { return w.buf.Len() }

// Depth returns the number of open containers.
func (w *Writer) Depth() int { return len(w.comma) }

func (w *Writer) Err() error { return w.err }

func (w *Writer) BeginObject() { w.begin('{') }
func (w *Writer) EndObject()   { w.end('}') }
func (w *Writer) BeginArray()  { w.begin('[') }
func (w *Writer) EndArray()    { w.end(']') }

// Name writes a property name and its colon.
func (w *Writer) Name(name string) {
	w.separator()
	w.quoted(name)
	w.put(':')
	w.afterName = true
}

func (w *Writer) String(s string) {
	w.beforeValue()
	w.quoted(s)
	w.afterValue()
}

// Number writes text verbatim; callers pass valid number literals.
func (w *Writer) Number(text string) {
	w.beforeValue()
	w.raw(text)
	w.afterValue()
}

func (w *Writer) Bool(v bool) {
	w.beforeValue()
	if v {
		w.raw("true")
	} else {
		w.raw("false")
	}
	w.afterValue()
}

func (w *Writer) Null() {
	w.beforeValue()
	w.raw("null")
	w.afterValue()
}

func (w *Writer) begin(c byte) {
	w.beforeValue()
	w.put(c)
	w.comma = append(w.comma, false)
}

func (w *Writer) end(c byte) {
	if n := len(w.comma); n > 0 {
		w.comma = w.comma[:n-1]
	}
	w.put(c)
	w.afterValue()
}

func (w *Writer) separator() {
	if n := len(w.comma); n > 0 && w.comma[n-1] {
		w.put(',')
	}
}

func (w *Writer) beforeValue() {
	if w.afterName {
		w.afterName = false
		return
	}
	w.separator()
}

func (w *Writer) afterValue() {
	if n := len(w.comma); n > 0 {
		w.comma[n-1] = true
	}
}

func (w *Writer) put(c byte) {
	if w.err == nil {
		w.err = w.buf.WriteByte(c)
	}
}

func (w *Writer) raw(s string) {
	if w.err == nil {
		_, w.err = w.buf.WriteString(s)
	}
}

func (w *Writer) quoted(s string) {
	if w.err != nil {
		return
	}
	src := []byte(s)
	i := textcodec.IndexEscape(src, w.policy)
	if i < 0 {
		w.put('"')
		if w.err == nil {
			_, w.err = w.buf.Write(src)
		}
		w.put('"')
		return
	}
	tail, err := w.buf.Extend(textcodec.MaxEscapedLen(len(src)) + 2)
	if err != nil {
		w.err = err
		return
	}
	tail[0] = '"'
	n := 1 + copy(tail[1:], src[:i])
	n += textcodec.Escape(tail[n:], src[i:], w.policy)
	tail[n] = '"'
	w.buf.Commit(n + 1)
}
