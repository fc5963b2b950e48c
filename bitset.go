package jsonflow

import "math/bits"

// bitset tracks up to n flags inline for n <= 64.
type bitset struct {
	n    int
	lo   uint64
	rest []uint64
}

func newBitset(n int) bitset {
	b := bitset{n: n}
	if n > 64 {
		b.rest = make([]uint64, (n-64+63)/64)
	}
	return b
}

func (b *bitset) set(i int) {
	if i < 64 {
		b.lo |= 1 << uint(i)
		return
	}
	i -= 64
	b.rest[i/64] |= 1 << uint(i%64)
}

func (b *bitset) has(i int) bool {
	if i < 64 {
		return b.lo&(1<<uint(i)) != 0
	}
	i -= 64
	return b.rest[i/64]&(1<<uint(i%64)) != 0
}

func (b *bitset) count() int {
	c := bits.OnesCount64(b.lo)
	for _, w := range b.rest {
		c += bits.OnesCount64(w)
	}
	return c
}

func (b *bitset) full() bool { return b.count() == b.n }

// firstMissing returns the lowest unset index, or -1.
func (b *bitset) firstMissing() int {
	for i := 0; i < b.n; i++ {
		if !b.has(i) {
			return i
		}
	}
	return -1
}
