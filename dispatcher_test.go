package forkjoin_test

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ygrebnov/forkjoin"
	"github.com/ygrebnov/forkjoin/metrics"
)

func newDispatcher(t *testing.T, opts ...forkjoin.Option) *forkjoin.Dispatcher {
	t.Helper()
	d, err := forkjoin.New(opts...)
	require.NoError(t, err)
	t.Cleanup(d.WorkerPool().Close)
	return d
}

func TestDispatcher_For_EachIndexExactlyOnce(t *testing.T) {
	sizes := []int{0, 1, 2, 3, 7, 64, 1000, 4097}
	degrees := []int{1, 2, 3, 4, 8, 16}

	for _, dop := range degrees {
		d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(dop), forkjoin.WithMaxWorkers(4))
		for _, n := range sizes {
			t.Run(fmt.Sprintf("dop=%d/n=%d", dop, n), func(t *testing.T) {
				counts := make([]atomic.Int32, n)
				require.NoError(t, d.For(0, n, func(i int) { counts[i].Add(1) }))
				for i := range counts {
					require.Equal(t, int32(1), counts[i].Load(), "index %d", i)
				}
			})
		}
	}
}

func TestDispatcher_For_Ranges(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4))

	tests := []struct {
		name     string
		from, to int
		want     []int
	}{
		{name: "empty", from: 5, to: 5, want: nil},
		{name: "single", from: 5, to: 6, want: []int{5}},
		{name: "reversed", from: 10, to: 4, want: []int{4, 5, 6, 7, 8, 9}},
		{name: "negative", from: -3, to: 2, want: []int{-3, -2, -1, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen [32]atomic.Int32
			const offset = 16
			require.NoError(t, d.For(tt.from, tt.to, func(i int) { seen[i+offset].Add(1) }))

			var got []int
			for i := range seen {
				for range seen[i].Load() {
					got = append(got, i-offset)
				}
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDispatcher_For_RangeEndingAtMaxInt(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4))

	const from = math.MaxInt - 10
	var counts [10]atomic.Int32
	err := d.For(from, math.MaxInt, func(i int) {
		if i < from {
			panic(fmt.Sprintf("index %d below range", i))
		}
		counts[i-from].Add(1)
	})
	require.NoError(t, err)
	for i := range counts {
		require.Equal(t, int32(1), counts[i].Load(), "index %d", from+i)
	}
}

func TestDispatcher_For_HugeRangeStartsInside(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4))

	var (
		mu   sync.Mutex
		seen []int
	)
	err := d.For(0, math.MaxInt, func(i int) {
		mu.Lock()
		seen = append(seen, i)
		mu.Unlock()
		panic("stop")
	})
	require.ErrorIs(t, err, forkjoin.ErrWorkerPanicked)

	require.NotEmpty(t, seen)
	require.LessOrEqual(t, len(seen), 4)
	for _, i := range seen {
		require.GreaterOrEqual(t, i, 0)
	}
}

func TestDispatcher_For_RangeWiderThanInt(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4))

	err := d.For(math.MinInt, math.MaxInt, func(int) { t.Error("body called") })
	require.ErrorIs(t, err, forkjoin.ErrOutOfRange)
}

func TestDispatcher_For_NilBody(t *testing.T) {
	d := newDispatcher(t)
	require.ErrorIs(t, d.For(0, 10, nil), forkjoin.ErrNilFunc)
}

func TestDispatcher_For_RunsOnCallerAtParallelismOne(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(1))

	var order []int
	require.NoError(t, d.For(0, 100, func(i int) { order = append(order, i) }))
	require.Len(t, order, 100)
	for i, v := range order {
		require.Equal(t, i, v)
	}
	require.Equal(t, 0, d.WorkerPool().Workers())
}

func TestDispatcher_ForBatched(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4))

	var (
		batches atomic.Int32
		items   atomic.Int32
	)
	err := d.ForBatched(103, forkjoin.BatchFunc(func(start, end int) {
		assert.Less(t, start, end)
		assert.LessOrEqual(t, end-start, 26)
		batches.Add(1)
		items.Add(int32(end - start))
	}))
	require.NoError(t, err)
	require.Equal(t, int32(4), batches.Load())
	require.Equal(t, int32(103), items.Load())

	require.ErrorIs(t, d.ForBatched(-1, forkjoin.BatchFunc(func(int, int) {})), forkjoin.ErrOutOfRange)
	require.ErrorIs(t, d.ForBatched(10, nil), forkjoin.ErrNilFunc)
}

func TestDispatcher_For_Panic(t *testing.T) {
	for _, dop := range []int{1, 4} {
		t.Run(fmt.Sprintf("dop=%d", dop), func(t *testing.T) {
			d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(dop))

			err := d.For(0, 1000, func(i int) {
				if i == 500 {
					panic("bad index")
				}
			})
			require.ErrorIs(t, err, forkjoin.ErrWorkerPanicked)

			var pe *forkjoin.PanicError
			require.True(t, errors.As(err, &pe))
			require.Equal(t, "bad index", pe.Value)
			require.NotEmpty(t, pe.Stack)

			start, end, ok := forkjoin.ExtractBatchRange(err)
			require.True(t, ok)
			require.LessOrEqual(t, start, 500)
			require.Greater(t, end, 500)

			// the dispatcher stays usable after a failed call
			var n atomic.Int32
			require.NoError(t, d.For(0, 100, func(int) { n.Add(1) }))
			require.Equal(t, int32(100), n.Load())
		})
	}
}

func TestDispatcher_For_PanicWithError(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4))
	sentinel := errors.New("sentinel")

	err := d.For(0, 100, func(i int) {
		if i == 42 {
			panic(sentinel)
		}
	})
	require.ErrorIs(t, err, forkjoin.ErrWorkerPanicked)
	require.ErrorIs(t, err, sentinel)
}

func TestDispatcher_For_Nested(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4), forkjoin.WithMaxWorkers(2))

	var total atomic.Int64
	err := d.For(0, 16, func(int) {
		assert.NoError(t, d.For(0, 100, func(int) { total.Add(1) }))
	})
	require.NoError(t, err)
	require.Equal(t, int64(1600), total.Load())
}

func TestDispatcher_For_ConcurrentCalls(t *testing.T) {
	calls := 10000
	if testing.Short() {
		calls = 500
	}

	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4))

	var total atomic.Int64
	var g errgroup.Group
	g.SetLimit(64)
	for range calls {
		g.Go(func() error {
			return d.For(0, 1000, func(int) { total.Add(1) })
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int64(calls)*1000, total.Load())
}

func TestDispatcher_For_AfterPoolClosed(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(4))
	d.WorkerPool().Close()

	var n atomic.Int32
	require.NoError(t, d.For(0, 1000, func(int) { n.Add(1) }))
	require.Equal(t, int32(1000), n.Load())
}

func TestDispatcher_SharedWorkerPool(t *testing.T) {
	wp, err := forkjoin.NewWorkerPool(forkjoin.WithMaxWorkers(2))
	require.NoError(t, err)
	t.Cleanup(wp.Close)

	d1 := newDispatcher(t, forkjoin.WithWorkerPool(wp), forkjoin.WithMaxDegreeOfParallelism(3))
	d2 := newDispatcher(t, forkjoin.WithWorkerPool(wp), forkjoin.WithMaxDegreeOfParallelism(3))
	require.Same(t, wp, d1.WorkerPool())
	require.Same(t, wp, d2.WorkerPool())

	var n atomic.Int32
	var g errgroup.Group
	for _, d := range []*forkjoin.Dispatcher{d1, d2} {
		g.Go(func() error { return d.For(0, 500, func(int) { n.Add(1) }) })
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int32(1000), n.Load())
	require.LessOrEqual(t, wp.Workers(), 2)
}

func TestDispatcher_SetMaxDegreeOfParallelism(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithMaxDegreeOfParallelism(2))
	require.Equal(t, 2, d.MaxDegreeOfParallelism())

	d.SetMaxDegreeOfParallelism(6)
	require.Equal(t, 6, d.MaxDegreeOfParallelism())
	require.Equal(t, 6, d.Stats().MaxDegreeOfParallelism)

	d.SetMaxDegreeOfParallelism(-3)
	require.Equal(t, 1, d.MaxDegreeOfParallelism())
}

func TestDispatcher_UnboundedStatePool(t *testing.T) {
	d := newDispatcher(t, forkjoin.WithStatePoolCapacity(0), forkjoin.WithMaxDegreeOfParallelism(4))

	var n atomic.Int32
	for range 50 {
		require.NoError(t, d.For(0, 100, func(int) { n.Add(1) }))
	}
	require.Equal(t, int32(5000), n.Load())
}

func TestDispatcher_Metrics(t *testing.T) {
	provider := metrics.NewBasicProvider()
	d := newDispatcher(t, forkjoin.WithMetrics(provider), forkjoin.WithMaxDegreeOfParallelism(4))

	require.NoError(t, d.For(0, 100, func(int) {}))
	_ = d.For(0, 10, func(i int) {
		if i == 3 {
			panic("x")
		}
	})

	batches := provider.Counter("forkjoin_batches_total").(*metrics.BasicCounter).Snapshot()
	require.GreaterOrEqual(t, batches, int64(4))
	panics := provider.Counter("forkjoin_panics_total").(*metrics.BasicCounter).Snapshot()
	require.Equal(t, int64(1), panics)
	duration := provider.Histogram("forkjoin_call_duration_seconds").(*metrics.BasicHistogram).Snapshot()
	require.Equal(t, int64(2), duration.Count)
}

func TestDispatcher_WorkersRetireAfterCalls(t *testing.T) {
	d := newDispatcher(t,
		forkjoin.WithMaxDegreeOfParallelism(4),
		forkjoin.WithIdleTimeout(20*time.Millisecond),
		forkjoin.WithSpinCount(1),
	)

	require.NoError(t, d.For(0, 10000, func(int) {}))
	require.Eventually(t, func() bool { return d.Stats().Workers == 0 }, 2*time.Second, 5*time.Millisecond)
}
