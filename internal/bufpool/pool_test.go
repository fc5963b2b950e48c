package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(created *int) *Pool[*Buffer] {
	return NewPool(func() *Buffer {
		*created++
		return NewBuffer(32)
	}, func(b *Buffer) bool {
		b.Reset()
		return b.Cap() <= 1024
	})
}

func TestPoolReusesSlot(t *testing.T) {
	created := 0
	p := newTestPool(&created)

	l1 := p.Rent()
	require.True(t, l1.Cached())
	_, _ = l1.Value.WriteString("one")
	p.Return(l1)

	l2 := p.Rent()
	require.True(t, l2.Cached())
	assert.Same(t, l1.Value, l2.Value)
	assert.Equal(t, 0, l2.Value.Len(), "returned value must be reset")
	p.Return(l2)
	assert.Equal(t, 1, created)
}

func TestPoolReentrantRenterGetsOverflow(t *testing.T) {
	created := 0
	p := newTestPool(&created)

	outer := p.Rent()
	_, _ = outer.Value.WriteString("outer")
	require.True(t, p.Rented())

	inner := p.Rent()
	require.False(t, inner.Cached())
	require.NotSame(t, outer.Value, inner.Value)
	_, _ = inner.Value.WriteString("inner")
	p.Return(inner)

	assert.Equal(t, "outer", string(outer.Value.Bytes()), "cached value must not be disturbed")
	p.Return(outer)
	assert.False(t, p.Rented())
}

func TestPoolDropsOversizedSlot(t *testing.T) {
	created := 0
	p := newTestPool(&created)

	l := p.Rent()
	_, _ = l.Value.Write(make([]byte, 4096))
	p.Return(l)

	l2 := p.Rent()
	assert.NotSame(t, l.Value, l2.Value)
	assert.LessOrEqual(t, l2.Value.Cap(), 1024)
	p.Return(l2)
}

func TestPoolConcurrentRenters(t *testing.T) {
	p := NewPool(func() *Buffer { return NewBuffer(8) }, func(b *Buffer) bool {
		b.Reset()
		return true
	})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l := p.Rent()
				_ = l.Value.WriteByte(byte(i))
				if l.Value.Len() != 1 {
					t.Errorf("lease shared between renters: len=%d", l.Value.Len())
				}
				p.Return(l)
			}
		}(i)
	}
	wg.Wait()
}
