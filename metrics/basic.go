package metrics

import (
	"math"
	"sync"
	"sync/atomic"
)

// BasicProvider keeps instruments in memory. Recording is lock-free; only the
// first lookup of a name takes a slot in the registry.
// It suits tests, examples and applications that poll values themselves.
type BasicProvider struct {
	counters   sync.Map // name -> *BasicCounter
	updowns    sync.Map // name -> *BasicUpDownCounter
	histograms sync.Map // name -> *BasicHistogram
	meta       sync.Map // name -> InstrumentConfig
}

func NewBasicProvider() *BasicProvider {
	return &BasicProvider{}
}

// Counter returns the counter registered under name, creating it on first use.
func (p *BasicProvider) Counter(name string, opts ...InstrumentOption) Counter {
	return lookup(&p.counters, &p.meta, name, opts, func() *BasicCounter { return &BasicCounter{} })
}

// UpDownCounter returns the up/down counter registered under name, creating it on first use.
func (p *BasicProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	return lookup(&p.updowns, &p.meta, name, opts, func() *BasicUpDownCounter { return &BasicUpDownCounter{} })
}

// Histogram returns the histogram registered under name, creating it on first use.
func (p *BasicProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	return lookup(&p.histograms, &p.meta, name, opts, newBasicHistogram)
}

// Config returns the options the instrument called name was created with.
func (p *BasicProvider) Config(name string) (InstrumentConfig, bool) {
	v, ok := p.meta.Load(name)
	if !ok {
		return InstrumentConfig{}, false
	}
	return v.(InstrumentConfig), true
}

func lookup[I any](instruments, meta *sync.Map, name string, opts []InstrumentOption, newFn func() I) I {
	if v, ok := instruments.Load(name); ok {
		return v.(I)
	}
	v, loaded := instruments.LoadOrStore(name, newFn())
	if !loaded {
		meta.Store(name, applyOptions(opts))
	}
	return v.(I)
}

// BasicCounter is a monotonic counter.
type BasicCounter struct {
	val atomic.Int64
}

func (c *BasicCounter) Add(n int64) { c.val.Add(n) }

func (c *BasicCounter) Snapshot() int64 { return c.val.Load() }

// BasicUpDownCounter is a counter that moves both ways.
type BasicUpDownCounter struct {
	val atomic.Int64
}

func (u *BasicUpDownCounter) Add(n int64) { u.val.Add(n) }

func (u *BasicUpDownCounter) Snapshot() int64 { return u.val.Load() }

// BasicHistogram tracks count, sum, min and max of its measurements. It keeps no buckets.
// Each field is updated atomically on its own, so a snapshot taken during
// concurrent Record calls may mix measurements.
type BasicHistogram struct {
	count atomic.Int64
	sum   atomic.Uint64 // float64 bits
	min   atomic.Uint64 // float64 bits
	max   atomic.Uint64 // float64 bits
}

func newBasicHistogram() *BasicHistogram {
	h := &BasicHistogram{}
	h.min.Store(math.Float64bits(math.Inf(1)))
	h.max.Store(math.Float64bits(math.Inf(-1)))
	return h
}

// Record adds a measurement.
func (h *BasicHistogram) Record(v float64) {
	updateFloat(&h.sum, func(cur float64) (float64, bool) { return cur + v, true })
	updateFloat(&h.min, func(cur float64) (float64, bool) { return v, v < cur })
	updateFloat(&h.max, func(cur float64) (float64, bool) { return v, v > cur })
	h.count.Add(1)
}

func updateFloat(bits *atomic.Uint64, next func(cur float64) (float64, bool)) {
	for {
		old := bits.Load()
		v, ok := next(math.Float64frombits(old))
		if !ok || bits.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}

// HistSnapshot is a copy of a BasicHistogram's state.
type HistSnapshot struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
}

// Snapshot returns the histogram state. Min and Max are ±Inf before the first Record.
func (h *BasicHistogram) Snapshot() HistSnapshot {
	s := HistSnapshot{
		Count: h.count.Load(),
		Sum:   math.Float64frombits(h.sum.Load()),
		Min:   math.Float64frombits(h.min.Load()),
		Max:   math.Float64frombits(h.max.Load()),
	}
	if s.Count > 0 {
		s.Mean = s.Sum / float64(s.Count)
	}
	return s
}
