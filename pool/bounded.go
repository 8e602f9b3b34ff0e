package pool

import (
	"errors"
	"runtime"
	"strconv"
	"sync/atomic"

	"github.com/ygrebnov/errorc"
)

// ErrInvalidCapacity is returned by NewBounded when capacity is not a positive power of two.
var ErrInvalidCapacity = errors.New("pool: capacity must be a positive power of two")

// Bounded is a fixed-capacity, lock-free pool of *T.
//
// A monotonically moving cursor counts the values held by the pool and is mapped
// onto a slot with cursor&mask. Get never fails: whenever it drains the pool to
// zero it seeds a freshly constructed value back, so at least one value is always
// obtainable. Put drops values once the pool holds capacity of them.
//
// Both Get and Put spin (yielding the processor) while a concurrent peer finishes
// publishing or emptying the slot they were assigned; neither ever blocks in the kernel.
type Bounded[T any] struct {
	_      [64]byte
	cursor atomic.Int64
	_      [56]byte

	slots    []atomic.Pointer[T]
	mask     int64
	capacity int64
	newFn    func() *T
}

// NewBounded creates a pool holding at most capacity values, pre-seeded with one value.
// A nil newFn allocates zero values.
func NewBounded[T any](capacity int, newFn func() *T) (*Bounded[T], error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, errorc.With(ErrInvalidCapacity, errorc.String("capacity", strconv.Itoa(capacity)))
	}
	if newFn == nil {
		newFn = func() *T { return new(T) }
	}

	p := &Bounded[T]{
		slots:    make([]atomic.Pointer[T], capacity),
		mask:     int64(capacity - 1),
		capacity: int64(capacity),
		newFn:    newFn,
	}
	p.slots[0].Store(newFn())
	p.cursor.Store(1)
	return p, nil
}

// Get removes and returns one value.
func (p *Bounded[T]) Get() *T {
	pos := p.cursor.Add(-1)
	v := p.take(pos)
	if pos <= 0 {
		// keep at least one value in circulation for the next Get
		p.Put(p.newFn())
	}
	return v
}

// Put returns v to the pool, silently dropping it when the pool is full.
func (p *Bounded[T]) Put(v *T) {
	if v == nil {
		return
	}
	for {
		pos := p.cursor.Load()
		if pos >= p.capacity {
			return
		}
		if p.cursor.CompareAndSwap(pos, pos+1) {
			p.place(pos, v)
			return
		}
	}
}

// Len reports how many values the pool currently holds.
func (p *Bounded[T]) Len() int {
	n := p.cursor.Load()
	switch {
	case n < 0:
		return 0
	case n > p.capacity:
		return int(p.capacity)
	}
	return int(n)
}

// Cap reports the maximum number of values the pool retains.
func (p *Bounded[T]) Cap() int { return int(p.capacity) }

func (p *Bounded[T]) take(pos int64) *T {
	slot := &p.slots[pos&p.mask]
	for {
		if v := slot.Swap(nil); v != nil {
			return v
		}
		runtime.Gosched()
	}
}

func (p *Bounded[T]) place(pos int64, v *T) {
	slot := &p.slots[pos&p.mask]
	for !slot.CompareAndSwap(nil, v) {
		runtime.Gosched()
	}
}
