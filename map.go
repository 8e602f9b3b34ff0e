package forkjoin

// mapEntry is one key/value pair of a map snapshot.
type mapEntry[K comparable, V any] struct {
	key   K
	value V
}

// ForEachMap calls fn for every entry of m.
//
// Map iteration order is not stable, so the entries are snapshotted first and the
// snapshot is what gets batched. m must not be written to during the call.
func ForEachMap[K comparable, V any](d *Dispatcher, m map[K]V, fn func(key K, value V)) error {
	if fn == nil {
		return ErrNilFunc
	}
	entries := mapEntries(m)
	return d.dispatch(0, len(entries), jobBatcher{job: BatchFunc(func(start, end int) {
		for _, e := range entries[start:end] {
			fn(e.key, e.value)
		}
	})})
}

// ForEachMapWithLocal calls fn for every entry of m with a per-goroutine local value, see ForWithLocal.
func ForEachMapWithLocal[K comparable, V, L any](
	d *Dispatcher,
	m map[K]V,
	init func() L,
	fn func(key K, value V, local L),
	finalize func(local L),
) error {
	if fn == nil {
		return ErrNilFunc
	}
	entries := mapEntries(m)
	return d.dispatch(0, len(entries), localBatcher[L]{
		init:     init,
		body:     func(i int, local L) { fn(entries[i].key, entries[i].value, local) },
		finalize: finalize,
	})
}

func mapEntries[K comparable, V any](m map[K]V) []mapEntry[K, V] {
	entries := make([]mapEntry[K, V], 0, len(m))
	for k, v := range m {
		entries = append(entries, mapEntry[K, V]{key: k, value: v})
	}
	return entries
}
