package forkjoin

import (
	"runtime"
	"runtime/debug"
	"slices"
	"time"

	"golang.org/x/exp/constraints"
)

// Partitions smaller than this are sorted sequentially.
const sequentialSortThreshold = 2048

// Sort sorts items in place in ascending order as determined by compare,
// which must be a strict weak ordering returning a negative number when a < b,
// zero when a == b and a positive number when a > b. The sort is not stable.
//
// Large ranges are split with a median-of-three quicksort partition; every
// partition below a threshold is finished sequentially. Partitions are shared
// between participating goroutines through a lock-free stack.
func Sort[T any](d *Dispatcher, items []T, compare func(a, b T) int) error {
	return SortRange(d, items, 0, len(items), compare)
}

// SortRange sorts items[index:index+length] in place, see Sort.
func SortRange[T any](d *Dispatcher, items []T, index, length int, compare func(a, b T) int) error {
	if compare == nil {
		return ErrNilFunc
	}
	if index < 0 || length < 0 || index > len(items)-length {
		return ErrOutOfRange
	}
	if length < 2 {
		return nil
	}

	began := time.Now()
	defer func() { d.metrics.callDuration.Record(time.Since(began).Seconds()) }()

	dop := d.MaxDegreeOfParallelism()
	if dop <= 1 || length <= sequentialSortThreshold {
		return sortInline(d, items, index, index+length, compare)
	}

	s := acquireSortState(d.sortStates, index, index+length-1)
	s.addRef()
	sortPartitions(d, s, items, compare, dop)
	s.wait(d.workers.TryCooperate)

	err := s.err()
	s.release()
	return err
}

// SortOrdered sorts items in ascending order. NaNs sort before other values.
func SortOrdered[T constraints.Ordered](d *Dispatcher, items []T) error {
	return Sort(d, items, compareOrdered[T])
}

func compareOrdered[T constraints.Ordered](a, b T) int {
	aNaN, bNaN := isNaN(a), isNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN || a < b:
		return -1
	case bNaN || a > b:
		return 1
	}
	return 0
}

// isNaN reports whether x is a floating-point NaN, the only value not equal to itself.
func isNaN[T constraints.Ordered](x T) bool {
	return x != x
}

func sortInline[T any](d *Dispatcher, items []T, from, to int, compare func(a, b T) int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.panics.Add(1)
			err = newPanicError(r, from, to, debug.Stack())
		}
	}()
	slices.SortFunc(items[from:to], compare)
	d.metrics.partitions.Add(1)
	return nil
}

// sortPartitions takes part in s until every partition is sorted. The first time
// it splits a partition it submits one more participant, while parallelism remains.
// The caller hands sortPartitions one reference, which it releases.
func sortPartitions[T any](d *Dispatcher, s *sortState, items []T, compare func(a, b T) int, parallelism int) {
	defer s.release()
	if !s.running() {
		return
	}

	s.enter()
	defer s.exit()

	var current sortRange
	defer func() {
		if r := recover(); r != nil {
			d.metrics.panics.Add(1)
			s.fail(newPanicError(r, current.left, current.right+1, debug.Stack()))
		}
	}()

	forked := false
	for s.running() {
		var ok bool
		if current, ok = s.partitions.pop(); !ok {
			// another participant is still splitting a partition
			runtime.Gosched()
			continue
		}
		d.metrics.partitions.Add(1)

		if current.right-current.left < sequentialSortThreshold {
			slices.SortFunc(items[current.left:current.right+1], compare)
			s.pending.Add(-1)
			continue
		}

		lo, hi := partition(items, current.left, current.right, compare)
		children := int64(0)
		if lo > current.left {
			children++
		}
		if hi < current.right {
			children++
		}
		s.pending.Add(children - 1)
		if lo > current.left {
			s.partitions.push(sortRange{left: current.left, right: lo})
		}
		if hi < current.right {
			s.partitions.push(sortRange{left: hi, right: current.right})
		}

		if !forked && parallelism > 1 {
			forked = true
			s.addRef()
			if err := d.workers.Submit(func() { sortPartitions(d, s, items, compare, parallelism-1) }); err != nil {
				s.release()
			}
		}
	}
}

// partition rearranges items[left:right+1] around the median of its first, middle
// and last elements. On return items[left:lo+1] hold no element greater than the
// pivot, items[hi:right+1] hold no element less than it and anything in between
// equals it. lo < hi always holds.
func partition[T any](items []T, left, right int, compare func(a, b T) int) (lo, hi int) {
	mid := left + (right-left)/2
	if compare(items[right], items[left]) < 0 {
		items[left], items[right] = items[right], items[left]
	}
	if compare(items[mid], items[left]) < 0 {
		items[left], items[mid] = items[mid], items[left]
	}
	if compare(items[right], items[mid]) < 0 {
		items[mid], items[right] = items[right], items[mid]
	}
	pivot := items[mid]

	i, j := left, right
	for i <= j {
		for compare(items[i], pivot) < 0 {
			i++
		}
		for compare(items[j], pivot) > 0 {
			j--
		}
		if i <= j {
			items[i], items[j] = items[j], items[i]
			i++
			j--
		}
	}
	return j, i
}
