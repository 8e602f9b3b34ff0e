package forkjoin

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
)

// WorkerPool is a process-wide pool of worker goroutines consuming a lock-free LIFO queue of actions.
//
// Workers are started on demand, up to MaxWorkers. An idle worker polls the queue
// SpinCount times, then blocks until new work is signalled or IdleTimeout elapses,
// at which point it exits. The zero value is not usable; construct with NewWorkerPool.
type WorkerPool struct {
	queue lifo[func()]

	// wake carries at most one pending signal per worker.
	wake chan struct{}

	alive  atomic.Int32
	nextID atomic.Int64

	maxWorkers   int32
	idleTimeout  time.Duration
	spinCount    int
	panicHandler func(any)

	lifecycle *lifecycleCoordinator
	logger    logr.Logger
	metrics   *instruments
}

// NewWorkerPool creates a WorkerPool. No goroutine is started until the first Submit.
func NewWorkerPool(opts ...Option) (*WorkerPool, error) {
	cfg, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return newWorkerPool(cfg), nil
}

func newWorkerPool(cfg *config) *WorkerPool {
	return &WorkerPool{
		wake:         make(chan struct{}, cfg.MaxWorkers),
		maxWorkers:   int32(cfg.MaxWorkers),
		idleTimeout:  cfg.IdleTimeout,
		spinCount:    cfg.SpinCount,
		panicHandler: cfg.PanicHandler,
		lifecycle:    newLifecycleCoordinator(),
		logger:       cfg.Logger.WithName("workerpool"),
		metrics:      newInstruments(cfg.Metrics),
	}
}

// Submit queues action for execution on a worker goroutine.
//
// A panic escaping action is passed to the configured panic handler; without one
// it is logged and re-raised on the worker goroutine, terminating the process.
// Submit returns ErrPoolClosed after Close and ErrNilFunc for a nil action.
func (p *WorkerPool) Submit(action func()) error {
	if action == nil {
		return ErrNilFunc
	}
	if p.lifecycle.isClosed() {
		return ErrPoolClosed
	}

	p.queue.push(action)
	p.metrics.submitted.Add(1)

	if p.lifecycle.isClosed() {
		// Close may have finished draining before the push landed.
		p.drain()
		return nil
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.spawn()
	return nil
}

// TryCooperate runs one queued action on the calling goroutine.
// It reports false if the queue was empty.
func (p *WorkerPool) TryCooperate() bool {
	action, ok := p.queue.pop()
	if !ok {
		return false
	}
	p.execute(action)
	return true
}

// Workers returns the number of live worker goroutines.
func (p *WorkerPool) Workers() int { return int(p.alive.Load()) }

// Queued returns the approximate number of actions waiting for a worker.
func (p *WorkerPool) Queued() int { return p.queue.len() }

// Close stops accepting actions, lets running workers finish the queue,
// waits for them to exit and runs whatever is left on the caller. Safe to call multiple times.
func (p *WorkerPool) Close() {
	p.lifecycle.Close(p.drain)
}

func (p *WorkerPool) drain() {
	for p.TryCooperate() {
	}
}

// spawn starts a worker while fewer than maxWorkers are alive.
func (p *WorkerPool) spawn() {
	if p.alive.Load() >= p.maxWorkers {
		return
	}
	admit := func() bool {
		for {
			n := p.alive.Load()
			if n >= p.maxWorkers {
				return false
			}
			if p.alive.CompareAndSwap(n, n+1) {
				// recorded before the goroutine exists so its exit can never be counted first
				p.metrics.spawns.Add(1)
				p.metrics.alive.Add(1)
				return true
			}
		}
	}
	w := &worker{id: p.nextID.Add(1), pool: p}
	p.lifecycle.start(admit, w.run)
}

// rejoin takes back a slot for a worker that gave it up, if one is free.
func (p *WorkerPool) rejoin() bool {
	for {
		n := p.alive.Load()
		if n >= p.maxWorkers {
			return false
		}
		if p.alive.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (p *WorkerPool) execute(action func()) {
	defer func() {
		if r := recover(); r != nil {
			p.metrics.panics.Add(1)
			p.handlePanic(r)
		}
	}()
	action()
	p.metrics.executed.Add(1)
}

func (p *WorkerPool) handlePanic(r any) {
	if p.panicHandler != nil {
		p.panicHandler(r)
		return
	}
	p.logger.Error(fmt.Errorf("%w: %v", ErrWorkerPanicked, r), "unhandled panic in submitted action",
		"stack", string(debug.Stack()))
	panic(r)
}
