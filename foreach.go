package forkjoin

// localBatcher gives every participating goroutine its own local value.
// init runs when the goroutine claims its first batch; finish runs once,
// after its last batch, only if init ran.
type localBatcher[L any] struct {
	init     func() L
	body     func(i int, local L)
	finalize func(local L)
}

func (b localBatcher[L]) open() (func(start, end int), func()) {
	var (
		local  L
		opened bool
	)
	process := func(start, end int) {
		if !opened {
			if b.init != nil {
				local = b.init()
			}
			opened = true
		}
		for i := start; i < end; i++ {
			b.body(i, local)
		}
	}
	finish := func() {
		if opened && b.finalize != nil {
			b.finalize(local)
		}
	}
	return process, finish
}

// ForWithLocal calls body(i, local) for every i in [from, to), where local is
// produced by init once per participating goroutine and handed to finalize after
// that goroutine's last batch. init and finalize may be nil.
//
// L is commonly a pointer, so body can accumulate into it.
func ForWithLocal[L any](d *Dispatcher, from, to int, init func() L, body func(i int, local L), finalize func(local L)) error {
	if body == nil {
		return ErrNilFunc
	}
	return d.dispatch(from, to, localBatcher[L]{init: init, body: body, finalize: finalize})
}

// ForEach calls fn for every element of items.
func ForEach[T any](d *Dispatcher, items []T, fn func(item T)) error {
	if fn == nil {
		return ErrNilFunc
	}
	return d.dispatch(0, len(items), jobBatcher{job: BatchFunc(func(start, end int) {
		for _, item := range items[start:end] {
			fn(item)
		}
	})})
}

// ForEachWithLocal calls fn for every element of items with a per-goroutine local value, see ForWithLocal.
func ForEachWithLocal[T, L any](d *Dispatcher, items []T, init func() L, fn func(item T, local L), finalize func(local L)) error {
	if fn == nil {
		return ErrNilFunc
	}
	return d.dispatch(0, len(items), localBatcher[L]{
		init:     init,
		body:     func(i int, local L) { fn(items[i], local) },
		finalize: finalize,
	})
}

// Indexed is a random-access sequence.
type Indexed[T any] interface {
	Len() int
	At(i int) T
}

// ForEachIndexed calls fn for every element of items.
// At must be safe to call from multiple goroutines.
func ForEachIndexed[T any](d *Dispatcher, items Indexed[T], fn func(item T)) error {
	if fn == nil || items == nil {
		return ErrNilFunc
	}
	return d.dispatch(0, items.Len(), jobBatcher{job: BatchFunc(func(start, end int) {
		for i := start; i < end; i++ {
			fn(items.At(i))
		}
	})})
}
