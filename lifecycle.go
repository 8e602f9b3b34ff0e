package forkjoin

import (
	"sync"
	"sync/atomic"
)

// lifecycleCoordinator owns the start/stop sequencing of worker goroutines.
// Starting a goroutine and closing are serialized by mu, so no worker can be
// added to the wait group once Close has begun waiting on it.
//
// Close() is safe for concurrent calls; the sequence executes exactly once.
type lifecycleCoordinator struct {
	mu      sync.Mutex
	closed  atomic.Bool
	quit    chan struct{}
	workers sync.WaitGroup
	once    sync.Once
}

func newLifecycleCoordinator() *lifecycleCoordinator {
	return &lifecycleCoordinator{quit: make(chan struct{})}
}

// start runs fn on a new goroutine unless the coordinator is closed.
// admit is evaluated under the lock and may veto the start.
func (lc *lifecycleCoordinator) start(admit func() bool, fn func()) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.closed.Load() || !admit() {
		return false
	}
	lc.workers.Add(1)
	go func() {
		defer lc.workers.Done()
		fn()
	}()
	return true
}

func (lc *lifecycleCoordinator) isClosed() bool { return lc.closed.Load() }

// done is closed when shutdown begins.
func (lc *lifecycleCoordinator) done() <-chan struct{} { return lc.quit }

// Close executes the shutdown sequence exactly once:
// 1) reject further starts
// 2) close quit so blocked workers wake up
// 3) wait for every started goroutine to return
// 4) run drain on the calling goroutine
func (lc *lifecycleCoordinator) Close(drain func()) {
	lc.once.Do(func() {
		lc.mu.Lock()
		lc.closed.Store(true)
		close(lc.quit)
		lc.mu.Unlock()

		lc.workers.Wait()
		if drain != nil {
			drain()
		}
	})
}
