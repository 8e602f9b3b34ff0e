// Package metrics defines the instruments the forkjoin dispatcher and worker pool record into,
// with an in-memory provider, a Prometheus provider and a no-op provider.
package metrics

// Provider hands out named instruments.
//
// A Dispatcher or WorkerPool resolves every instrument once, when it is constructed, and
// records on the hot path afterwards: instruments must be cheap and safe to call from many
// goroutines at once. Asking twice for the same name returns an instrument feeding the
// same series, so a shared Provider aggregates across pools and dispatchers.
type Provider interface {
	Counter(name string, opts ...InstrumentOption) Counter
	UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter
	Histogram(name string, opts ...InstrumentOption) Histogram
}

// Counter accumulates event counts: submitted and executed actions, batches, partitions, panics.
// forkjoin only ever passes positive deltas.
type Counter interface {
	Add(n int64)
}

// UpDownCounter tracks a level that rises and falls, such as the number of live workers.
// A worker's +1 is recorded before its goroutine starts, so the level never dips below zero.
type UpDownCounter interface {
	Add(n int64)
}

// Histogram receives one measurement per parallel call: its wall time in seconds.
type Histogram interface {
	Record(v float64)
}

// InstrumentConfig is the metadata an instrument is created with.
// Only the first request for a name decides it; later options for that name are ignored.
type InstrumentConfig struct {
	Description string
	Unit        string
	// Attributes become constant labels. Keep them few and static.
	Attributes map[string]string
}

type InstrumentOption func(*InstrumentConfig)

// WithDescription sets the help text.
func WithDescription(desc string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Description = desc }
}

// WithUnit sets the unit ("1", "seconds").
func WithUnit(unit string) InstrumentOption {
	return func(c *InstrumentConfig) { c.Unit = unit }
}

// WithAttributes merges attrs into the instrument's constant labels. attrs is copied.
func WithAttributes(attrs map[string]string) InstrumentOption {
	return func(c *InstrumentConfig) {
		if len(attrs) == 0 {
			return
		}
		if c.Attributes == nil {
			c.Attributes = make(map[string]string, len(attrs))
		}
		for k, v := range attrs {
			c.Attributes[k] = v
		}
	}
}

func applyOptions(opts []InstrumentOption) InstrumentConfig {
	var cfg InstrumentConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return cfg
}

var (
	_ Provider = NoopProvider{}
	_ Provider = (*BasicProvider)(nil)
	_ Provider = (*PrometheusProvider)(nil)
)
