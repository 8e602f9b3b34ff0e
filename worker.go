package forkjoin

import (
	"runtime"
	"time"
)

// worker is one goroutine consuming the WorkerPool queue.
type worker struct {
	id   int64
	pool *WorkerPool
}

// run executes queued actions until the worker stays idle for IdleTimeout
// or the pool is closed.
func (w *worker) run() {
	p := w.pool
	log := p.logger.WithValues("worker", w.id)
	log.V(1).Info("worker started")

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		if p.TryCooperate() || w.spin() {
			continue
		}

		timer.Reset(p.idleTimeout)
		select {
		case <-p.wake:
			timer.Stop()
		case <-p.lifecycle.done():
			p.drain()
			w.exit()
			log.V(1).Info("worker stopped", "reason", "closed")
			return
		case <-timer.C:
			if w.retire() {
				log.V(1).Info("worker stopped", "reason", "idle")
				return
			}
		}
	}
}

// spin polls the queue SpinCount times, yielding between polls.
func (w *worker) spin() bool {
	p := w.pool
	for range p.spinCount {
		if p.TryCooperate() {
			return true
		}
		runtime.Gosched()
	}
	return false
}

// retire gives up the worker's slot. Work queued after the last poll may have
// seen every slot taken and skipped spawning, so the worker takes its slot back
// when the queue is not empty.
func (w *worker) retire() bool {
	p := w.pool
	p.alive.Add(-1)
	if !p.queue.empty() && p.rejoin() {
		return false
	}
	p.metrics.alive.Add(-1)
	return true
}

func (w *worker) exit() {
	w.pool.alive.Add(-1)
	w.pool.metrics.alive.Add(-1)
}
