package forkjoin

import (
	"runtime"
	"time"

	"github.com/pbnjay/memory"
)

const (
	defaultIdleTimeout       = 5 * time.Second
	defaultSpinCount         = 30
	defaultStatePoolCapacity = 64

	// Hosts reporting less memory than this run every call inline.
	constrainedMemoryBytes = 1 << 30
)

// defaultConfig centralizes default values for config.
// These defaults are applied by New and NewWorkerPool before options run.
func defaultConfig() config {
	return config{
		MaxDegreeOfParallelism: defaultParallelism(),
		MaxWorkers:             defaultMaxWorkers(),
		IdleTimeout:            defaultIdleTimeout,
		SpinCount:              defaultSpinCount,
		StatePoolCapacity:      defaultStatePoolCapacity,
	}
}

// defaultParallelism is the number of usable processors, or 1 on memory-constrained hosts.
func defaultParallelism() int {
	if total := memory.TotalMemory(); total != 0 && total < constrainedMemoryBytes {
		return 1
	}
	return max(1, runtime.GOMAXPROCS(0))
}

// defaultMaxWorkers leaves one processor for the goroutine calling into the dispatcher.
func defaultMaxWorkers() int {
	return max(1, runtime.GOMAXPROCS(0)-1)
}
