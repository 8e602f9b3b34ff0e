package forkjoin

import "github.com/ygrebnov/forkjoin/metrics"

const (
	metricTasksSubmitted = "forkjoin_tasks_submitted_total"
	metricTasksExecuted  = "forkjoin_tasks_executed_total"
	metricWorkerSpawns   = "forkjoin_worker_spawns_total"
	metricWorkersAlive   = "forkjoin_workers_alive"
	metricPanics         = "forkjoin_panics_total"
	metricBatches        = "forkjoin_batches_total"
	metricPartitions     = "forkjoin_partitions_total"
	metricCallDuration   = "forkjoin_call_duration_seconds"
)

type instruments struct {
	submitted    metrics.Counter
	executed     metrics.Counter
	spawns       metrics.Counter
	alive        metrics.UpDownCounter
	panics       metrics.Counter
	batches      metrics.Counter
	partitions   metrics.Counter
	callDuration metrics.Histogram
}

func newInstruments(p metrics.Provider) *instruments {
	return &instruments{
		submitted: p.Counter(metricTasksSubmitted,
			metrics.WithDescription("Actions queued on the worker pool."), metrics.WithUnit("1")),
		executed: p.Counter(metricTasksExecuted,
			metrics.WithDescription("Queued actions that ran to completion."), metrics.WithUnit("1")),
		spawns: p.Counter(metricWorkerSpawns,
			metrics.WithDescription("Worker goroutines started."), metrics.WithUnit("1")),
		alive: p.UpDownCounter(metricWorkersAlive,
			metrics.WithDescription("Worker goroutines currently alive."), metrics.WithUnit("1")),
		panics: p.Counter(metricPanics,
			metrics.WithDescription("Panics recovered from batches, partitions and queued actions."), metrics.WithUnit("1")),
		batches: p.Counter(metricBatches,
			metrics.WithDescription("Batches processed by For and ForEach calls."), metrics.WithUnit("1")),
		partitions: p.Counter(metricPartitions,
			metrics.WithDescription("Partitions processed by Sort calls."), metrics.WithUnit("1")),
		callDuration: p.Histogram(metricCallDuration,
			metrics.WithDescription("Wall time of parallel calls."), metrics.WithUnit("seconds")),
	}
}
