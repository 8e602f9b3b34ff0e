package forkjoin

import (
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/ygrebnov/forkjoin/pool"
)

// BatchJob processes one contiguous batch of items, [start, endExclusive).
type BatchJob interface {
	Process(start, endExclusive int)
}

// BatchFunc adapts a function to BatchJob.
type BatchFunc func(start, endExclusive int)

func (f BatchFunc) Process(start, endExclusive int) { f(start, endExclusive) }

// batcher hands each participating goroutine its own batch processor.
// finish, when non-nil, runs once after the goroutine stops claiming batches.
type batcher interface {
	open() (process func(start, end int), finish func())
}

type jobBatcher struct{ job BatchJob }

func (b jobBatcher) open() (func(start, end int), func()) { return b.job.Process, nil }

// Dispatcher runs data-parallel loops and sorts on a WorkerPool.
//
// Each call splits its range into at most MaxDegreeOfParallelism batches which the
// calling goroutine and up to MaxDegreeOfParallelism-1 workers claim through a
// shared atomic cursor. The calling goroutine always takes part and the call returns
// only after every claimed batch completed. A Dispatcher is safe for concurrent use.
type Dispatcher struct {
	parallelism atomic.Int32

	workers    *WorkerPool
	forkStates pool.Pool[*forkState]
	sortStates pool.Pool[*sortState]

	logger  logr.Logger
	metrics *instruments
}

// Stats is a point-in-time view of a Dispatcher and its WorkerPool.
type Stats struct {
	MaxDegreeOfParallelism int
	Workers                int
	Queued                 int
}

// New creates a Dispatcher. Unless WithWorkerPool is given it creates its own WorkerPool.
func New(opts ...Option) (*Dispatcher, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}

	forkStates, err := newStatePool[forkState](cfg.StatePoolCapacity)
	if err != nil {
		return nil, err
	}
	sortStates, err := newStatePool[sortState](cfg.StatePoolCapacity)
	if err != nil {
		return nil, err
	}

	workers := cfg.WorkerPool
	if workers == nil {
		workers = newWorkerPool(cfg)
	}

	d := &Dispatcher{
		workers:    workers,
		forkStates: forkStates,
		sortStates: sortStates,
		logger:     cfg.Logger.WithName("dispatcher"),
		metrics:    newInstruments(cfg.Metrics),
	}
	d.parallelism.Store(int32(cfg.MaxDegreeOfParallelism))
	return d, nil
}

// MaxDegreeOfParallelism returns the number of goroutines, the caller included, a call may use.
func (d *Dispatcher) MaxDegreeOfParallelism() int { return int(d.parallelism.Load()) }

// SetMaxDegreeOfParallelism changes the limit for calls started afterwards. Values below 1 are treated as 1.
func (d *Dispatcher) SetMaxDegreeOfParallelism(n int) {
	d.parallelism.Store(int32(max(1, n)))
}

// WorkerPool returns the pool the Dispatcher submits to.
func (d *Dispatcher) WorkerPool() *WorkerPool { return d.workers }

// Stats returns the current parallelism limit together with the pool's live workers and queued actions.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		MaxDegreeOfParallelism: d.MaxDegreeOfParallelism(),
		Workers:                d.workers.Workers(),
		Queued:                 d.workers.Queued(),
	}
}

// For calls body(i) for every i in [from, to). A reversed range is normalized
// to [to, from). A range holding more than math.MaxInt indices fails with ErrOutOfRange.
// A panic in body stops further batches from being claimed and is returned as a
// *PanicError once every running batch has finished.
func (d *Dispatcher) For(from, to int, body func(i int)) error {
	if body == nil {
		return ErrNilFunc
	}
	return d.dispatch(from, to, jobBatcher{job: BatchFunc(func(start, end int) {
		for i := start; i < end; i++ {
			body(i)
		}
	})})
}

// ForBatched hands job whole batches covering [0, items).
func (d *Dispatcher) ForBatched(items int, job BatchJob) error {
	if job == nil {
		return ErrNilFunc
	}
	if items < 0 {
		return ErrOutOfRange
	}
	return d.dispatch(0, items, jobBatcher{job: job})
}

func (d *Dispatcher) dispatch(from, to int, job batcher) error {
	if from > to {
		from, to = to, from
	}
	count := to - from
	if count == 0 {
		return nil
	}
	if count < 0 {
		// the range is wider than an int can count
		return ErrOutOfRange
	}

	began := time.Now()
	defer func() { d.metrics.callDuration.Record(time.Since(began).Seconds()) }()

	dop := d.MaxDegreeOfParallelism()
	if dop <= 1 || count <= 1 {
		return d.runInline(job, from, to)
	}

	batchCount := min(dop, count)
	batchSize := count / batchCount
	if count%batchCount != 0 {
		batchSize++
	}

	s := acquireForkState(d.forkStates, from, to, batchSize, job)
	s.addRef()
	d.fork(s, batchCount)
	s.wait(d.workers.TryCooperate)

	err := s.err()
	s.release()
	if err != nil {
		d.logger.V(1).Info("parallel call failed", "error", err.Error())
	}
	return err
}

// fork takes part in s: it submits one more fork while parallelism and unclaimed
// batches remain, then claims batches until the range is exhausted.
// The caller hands fork one reference, which fork releases.
func (d *Dispatcher) fork(s *forkState, parallelism int) {
	defer s.release()
	if s.exhausted() {
		return
	}

	s.enter()
	defer s.exit()

	if parallelism > 1 && s.remaining() > s.batchSize {
		s.addRef()
		if err := d.workers.Submit(func() { d.fork(s, parallelism-1) }); err != nil {
			s.release()
		}
	}
	d.runBatches(s)
}

func (d *Dispatcher) runBatches(s *forkState) {
	var start, end int64
	defer func() {
		if r := recover(); r != nil {
			d.metrics.panics.Add(1)
			s.abort(newPanicError(r, int(start), int(end), debug.Stack()))
		}
	}()

	process, finish := s.job.open()
	if finish != nil {
		defer finish()
	}

	for {
		var ok bool
		if start, end, ok = s.next(); !ok {
			return
		}
		process(int(start), int(end))
		d.metrics.batches.Add(1)
	}
}

// runInline processes [from, to) as a single batch on the calling goroutine.
func (d *Dispatcher) runInline(job batcher, from, to int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.panics.Add(1)
			err = newPanicError(r, from, to, debug.Stack())
		}
	}()

	process, finish := job.open()
	if finish != nil {
		defer finish()
	}
	process(from, to)
	d.metrics.batches.Add(1)
	return nil
}
