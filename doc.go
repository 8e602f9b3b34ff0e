// Package forkjoin provides lock-free fork-join data parallelism: parallel loops
// over integer ranges, slices, random-access sequences and maps, and a parallel
// in-place sort.
//
// Constructors
//   - New(opts ...Option): creates a Dispatcher, and a WorkerPool unless one is shared via WithWorkerPool.
//   - NewWorkerPool(opts ...Option): creates a WorkerPool that several Dispatchers can share.
//
// Defaults
// Unless overridden, the following defaults apply:
//   - MaxDegreeOfParallelism: GOMAXPROCS, or 1 when the host reports less than 1 GiB of memory
//   - MaxWorkers: GOMAXPROCS-1, at least 1
//   - IdleTimeout: 5s
//   - SpinCount: 30
//   - StatePoolCapacity: 64 (0 selects an unbounded sync.Pool-backed pool)
//
// Execution
// A call splits its range into at most MaxDegreeOfParallelism batches of equal size.
// The calling goroutine always takes part; helpers are forked onto the WorkerPool one
// at a time, each forking the next while batches remain. Batches are claimed through a
// single atomic cursor, so every index is processed exactly once. A caller waiting for
// helpers runs queued actions itself, which keeps nested calls from starving the pool.
//
// Panics
// A panic in a loop body or comparator stops further batches from being claimed.
// The call returns a *PanicError, which unwraps to ErrWorkerPanicked, after all running
// batches finished and all local finalizers ran. Panics escaping actions passed to
// WorkerPool.Submit go to the handler set with WithPanicHandler.
//
// Pools
//   - pool.Bounded: fixed-capacity lock-free pool; recycles the per-call state.
//   - pool.Dynamic: unbounded pool via sync.Pool.
package forkjoin
