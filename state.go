package forkjoin

import (
	"sync/atomic"

	"github.com/ygrebnov/forkjoin/pool"
)

// completion tracks the goroutines taking part in one parallel call.
//
// refs counts holders of the state: the caller and every fork closure, queued or
// running. The state goes back to its pool when the last holder releases it.
// active counts holders that are currently processing work; the one that brings
// it to zero leaves a token in done.
type completion struct {
	active  atomic.Int32
	refs    atomic.Int32
	done    chan struct{}
	failure atomic.Pointer[PanicError]
}

func (c *completion) reset() {
	c.active.Store(0)
	c.refs.Store(1)
	c.failure.Store(nil)
	if c.done == nil {
		c.done = make(chan struct{}, 1)
	}
	select {
	case <-c.done:
	default:
	}
}

func (c *completion) addRef() { c.refs.Add(1) }

// dropRef reports whether the last reference was dropped.
func (c *completion) dropRef() bool { return c.refs.Add(-1) == 0 }

func (c *completion) enter() { c.active.Add(1) }

func (c *completion) exit() {
	if c.active.Add(-1) == 0 {
		select {
		case c.done <- struct{}{}:
		default:
		}
	}
}

// fail records pe unless an earlier panic is already recorded.
func (c *completion) fail(pe *PanicError) bool {
	return c.failure.CompareAndSwap(nil, pe)
}

func (c *completion) failed() bool { return c.failure.Load() != nil }

// wait returns once no goroutine is processing work. While waiting it runs
// queued actions through cooperate, so a call made from inside a worker still
// makes progress when every worker is busy.
func (c *completion) wait(cooperate func() bool) {
	for c.active.Load() != 0 {
		if cooperate() {
			continue
		}
		<-c.done
	}
}

func (c *completion) err() error {
	if pe := c.failure.Load(); pe != nil {
		return pe
	}
	return nil
}

// forkState is shared by the goroutines running one For-style call.
type forkState struct {
	_      [64]byte
	cursor atomic.Int64
	_      [56]byte

	completion

	end       int64
	batchSize int64
	job       batcher
	owner     pool.Pool[*forkState]
}

func acquireForkState(p pool.Pool[*forkState], from, to, batchSize int, job batcher) *forkState {
	s := p.Get()
	s.reset()
	s.owner = p
	s.cursor.Store(int64(from))
	s.end = int64(to)
	s.batchSize = int64(batchSize)
	s.job = job
	return s
}

// next claims the following batch. ok is false once the range is exhausted.
// The cursor never moves past end, so ranges ending near math.MaxInt cannot wrap it.
func (s *forkState) next() (start, end int64, ok bool) {
	for {
		cur := s.cursor.Load()
		if cur >= s.end {
			return 0, 0, false
		}
		hi := cur + min(s.batchSize, s.end-cur)
		if s.cursor.CompareAndSwap(cur, hi) {
			return cur, hi, true
		}
	}
}

func (s *forkState) exhausted() bool { return s.cursor.Load() >= s.end }

func (s *forkState) remaining() int64 { return s.end - s.cursor.Load() }

// abort records pe and moves the cursor to the end so no further batch is claimed.
func (s *forkState) abort(pe *PanicError) {
	s.fail(pe)
	s.cursor.Store(s.end)
}

func (s *forkState) release() {
	if s.dropRef() {
		s.job = nil
		s.owner.Put(s)
	}
}

// sortRange is an inclusive range of indices awaiting partitioning.
type sortRange struct {
	left, right int
}

// sortState is shared by the goroutines running one Sort call.
type sortState struct {
	completion

	partitions lifo[sortRange]
	// pending counts partitions queued or being partitioned; zero means sorted.
	pending atomic.Int64
	owner   pool.Pool[*sortState]
}

func acquireSortState(p pool.Pool[*sortState], left, right int) *sortState {
	s := p.Get()
	s.reset()
	s.owner = p
	s.partitions.clear()
	s.pending.Store(1)
	s.partitions.push(sortRange{left: left, right: right})
	return s
}

// running reports whether partitions remain and no panic was recorded.
func (s *sortState) running() bool {
	return s.pending.Load() > 0 && !s.failed()
}

func (s *sortState) release() {
	if s.dropRef() {
		s.owner.Put(s)
	}
}

// newStatePool returns a bounded pool of the given capacity, or a sync.Pool-backed one for 0.
func newStatePool[T any](capacity int) (pool.Pool[*T], error) {
	if capacity == 0 {
		return pool.NewDynamic(func() *T { return new(T) }), nil
	}
	p, err := pool.NewBounded[T](capacity, nil)
	if err != nil {
		return nil, err
	}
	return p, nil
}
