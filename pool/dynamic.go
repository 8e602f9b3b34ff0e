package pool

import "sync"

// Dynamic is an unbounded pool backed by sync.Pool.
// Values may be dropped by the garbage collector at any time.
type Dynamic[T any] struct {
	p sync.Pool
}

// NewDynamic creates a pool that calls newFn when it has nothing to hand out.
func NewDynamic[T any](newFn func() T) *Dynamic[T] {
	d := &Dynamic[T]{}
	d.p.New = func() any { return newFn() }
	return d
}

// Get returns a pooled value, or a new one from newFn.
func (d *Dynamic[T]) Get() T {
	return d.p.Get().(T)
}

// Put makes v available to a later Get. The pool may drop it at any garbage collection.
func (d *Dynamic[T]) Put(v T) {
	d.p.Put(v)
}
