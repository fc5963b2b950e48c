// Package bufpool lends reusable output buffers to the serializer.
//
// A Pool keeps one cached value that is handed out to a single renter at a
// time. A renter that arrives while the slot is taken, for example a
// re-entrant serialization from inside a custom converter, gets a value
// from the overflow pool instead of sharing the cached one.
package bufpool

import (
	"sync"
	"sync/atomic"
)

// Lease is a value lent by a Pool. It must be handed back with Return.
type Lease[T any] struct {
	Value  T
	cached bool
}

// Cached reports whether the lease holds the pool's single cached value.
func (l Lease[T]) Cached() bool { return l.cached }

// Pool is a single-slot lender with an overflow pool.
type Pool[T any] struct {
	newFn   func() T
	resetFn func(T) bool

	rented   atomic.Int32
	slot     T
	slotInit bool
	overflow sync.Pool
}

// NewPool creates a pool. reset clears a returned value and reports whether
// it is still worth keeping; values it rejects are dropped.
func NewPool[T any](newFn func() T, reset func(T) bool) *Pool[T] {
	p := &Pool[T]{newFn: newFn, resetFn: reset}
	p.overflow.New = func() any { return newFn() }
	return p
}

// Rent lends the cached value when the slot is free, or an overflow value
// otherwise.
func (p *Pool[T]) Rent() Lease[T] {
	if p.rented.CompareAndSwap(0, 1) {
		if !p.slotInit {
			p.slot = p.newFn()
			p.slotInit = true
		}
		return Lease[T]{Value: p.slot, cached: true}
	}
	return Lease[T]{Value: p.overflow.Get().(T)}
}

// Return resets the leased value and gives it back.
func (p *Pool[T]) Return(l Lease[T]) {
	keep := p.resetFn(l.Value)
	if l.cached {
		if !keep {
			p.slot = p.newFn()
		}
		p.rented.Store(0)
		return
	}
	if keep {
		p.overflow.Put(l.Value)
	}
}

// Rented reports whether the cached slot is currently lent out.
func (p *Pool[T]) Rented() bool { return p.rented.Load() != 0 }
