package forkjoin

import (
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/forkjoin/metrics"
)

// config holds Dispatcher and WorkerPool configuration.
type config struct {
	// MaxDegreeOfParallelism bounds how many goroutines, the caller included,
	// take part in one parallel call. 1 runs every call inline.
	// Default: GOMAXPROCS, or 1 on memory-constrained hosts.
	MaxDegreeOfParallelism int

	// MaxWorkers bounds the number of live worker goroutines.
	// Default: max(1, GOMAXPROCS-1).
	MaxWorkers int

	// IdleTimeout is how long a blocked worker waits for work before exiting.
	// Default: 5s.
	IdleTimeout time.Duration

	// SpinCount is the number of polls an idle worker makes before blocking.
	// Default: 30.
	SpinCount int

	// StatePoolCapacity is the capacity of each fork-join state pool. Must be a power
	// of two, or 0 for an unbounded sync.Pool-backed pool.
	// Default: 64.
	StatePoolCapacity int

	// WorkerPool is a shared pool to dispatch onto. Nil makes New create one.
	WorkerPool *WorkerPool

	// PanicHandler receives panics escaping actions passed to WorkerPool.Submit.
	// Nil logs and re-panics.
	PanicHandler func(any)

	Logger  logr.Logger
	Metrics metrics.Provider
}

// validateConfig checks invariants that options cannot check in isolation.
func validateConfig(cfg *config) error {
	if cfg.StatePoolCapacity < 0 || cfg.StatePoolCapacity&(cfg.StatePoolCapacity-1) != 0 {
		return invalidConfig("StatePoolCapacity", strconv.Itoa(cfg.StatePoolCapacity))
	}
	if cfg.MaxWorkers < 1 {
		return invalidConfig("MaxWorkers", strconv.Itoa(cfg.MaxWorkers))
	}
	if cfg.MaxDegreeOfParallelism < 1 {
		return invalidConfig("MaxDegreeOfParallelism", strconv.Itoa(cfg.MaxDegreeOfParallelism))
	}
	if cfg.IdleTimeout <= 0 {
		return invalidConfig("IdleTimeout", cfg.IdleTimeout.String())
	}
	if cfg.SpinCount < 0 {
		return invalidConfig("SpinCount", strconv.Itoa(cfg.SpinCount))
	}
	return nil
}

func invalidConfig(field, value string) error {
	return errorc.With(ErrInvalidConfig, errorc.String(field, value))
}

// buildConfig applies opts over the defaults and validates the result.
func buildConfig(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopProvider()
	}
	return &cfg, nil
}

// Option configures a Dispatcher or a WorkerPool.
type Option func(*config) error

// WithMaxDegreeOfParallelism sets how many goroutines, the caller included, may work on one call (must be >= 1).
func WithMaxDegreeOfParallelism(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMaxDegreeOfParallelism requires n >= 1"))
		}
		cfg.MaxDegreeOfParallelism = n
		return nil
	}
}

// WithMaxWorkers caps the number of live worker goroutines (must be >= 1).
func WithMaxWorkers(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithMaxWorkers requires n >= 1"))
		}
		cfg.MaxWorkers = n
		return nil
	}
}

// WithIdleTimeout sets how long an idle worker blocks before exiting (must be > 0).
func WithIdleTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithIdleTimeout requires d > 0"))
		}
		cfg.IdleTimeout = d
		return nil
	}
}

// WithSpinCount sets how many times an idle worker polls the queue before blocking.
func WithSpinCount(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithSpinCount requires n >= 0"))
		}
		cfg.SpinCount = n
		return nil
	}
}

// WithStatePoolCapacity sets the capacity of the fork-join state pools (power of two, 0 for unbounded).
func WithStatePoolCapacity(n int) Option {
	return func(cfg *config) error { cfg.StatePoolCapacity = n; return nil }
}

// WithWorkerPool makes a Dispatcher share an existing WorkerPool instead of creating its own.
func WithWorkerPool(p *WorkerPool) Option {
	return func(cfg *config) error {
		if p == nil {
			return errorc.With(ErrInvalidConfig, errorc.String("", "WithWorkerPool requires a non-nil pool"))
		}
		cfg.WorkerPool = p
		return nil
	}
}

// WithPanicHandler sets the handler for panics escaping actions passed to WorkerPool.Submit.
func WithPanicHandler(fn func(any)) Option {
	return func(cfg *config) error { cfg.PanicHandler = fn; return nil }
}

// WithLogger sets the logger. Worker lifecycle events are logged at V(1).
func WithLogger(l logr.Logger) Option {
	return func(cfg *config) error { cfg.Logger = l; return nil }
}

// WithMetrics sets the metrics provider. Default: metrics.NoopProvider.
func WithMetrics(p metrics.Provider) Option {
	return func(cfg *config) error { cfg.Metrics = p; return nil }
}
