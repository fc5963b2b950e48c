package bufpool

import "errors"

// MaxLen caps the capacity a Buffer may grow to. It matches the largest
// byte array length the engine is willing to address.
const MaxLen = 0x7FFFFFC7

const minGrow = 256

// ErrTooLarge is returned when a write would grow a Buffer past MaxLen.
var ErrTooLarge = errors.New("bufpool: buffer exceeds maximum length")

// Buffer is an append-only byte buffer that doubles on growth and clears
// any storage it abandons.
type Buffer struct {
	b []byte
}

// NewBuffer returns a Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{b: make([]byte, 0, capacity)}
}

func (b *Buffer) Len() int      { return len(b.b) }
func (b *Buffer) Cap() int      { return cap(b.b) }
func (b *Buffer) Bytes() []byte { return b.b }

// Grow ensures room for n more bytes.
func (b *Buffer) Grow(n int) error {
	if cap(b.b)-len(b.b) >= n {
		return nil
	}
	need := len(b.b) + n
	if need > MaxLen || need < 0 {
		return ErrTooLarge
	}
	newCap := max(2*cap(b.b), need, minGrow)
	if newCap > MaxLen {
		newCap = MaxLen
	}
	nb := make([]byte, len(b.b), newCap)
	copy(nb, b.b)
	clear(b.b)
	b.b = nb
	return nil
}

// Extend grows the buffer by n bytes and returns the new tail for the
// caller to fill. Commit must follow with the number of bytes actually used.
func (b *Buffer) Extend(n int) ([]byte, error) {
	if err := b.Grow(n); err != nil {
		return nil, err
	}
	start := len(b.b)
	return b.b[start : start+n], nil
}

// Commit records that n bytes of the last Extend were written.
func (b *Buffer) Commit(n int) {
	b.b = b.b[:len(b.b)+n]
}

func (b *Buffer) Write(p []byte) (int, error) {
	if err := b.Grow(len(p)); err != nil {
		return 0, err
	}
	b.b = append(b.b, p...)
	return len(p), nil
}

func (b *Buffer) WriteString(s string) (int, error) {
	if err := b.Grow(len(s)); err != nil {
		return 0, err
	}
	b.b = append(b.b, s...)
	return len(s), nil
}

func (b *Buffer) WriteByte(c byte) error {
	if err := b.Grow(1); err != nil {
		return err
	}
	b.b = append(b.b, c)
	return nil
}

// Reset clears the written bytes and empties the buffer, keeping capacity.
func (b *Buffer) Reset() {
	clear(b.b)
	b.b = b.b[:0]
}

// Release clears the buffer and drops its storage.
func (b *Buffer) Release() {
	clear(b.b)
	b.b = nil
}
