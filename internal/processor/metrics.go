package processor

import (
	"sync/atomic"
	"time"
)

// Metrics holds the monotonic counters the processor accumulates during a
// run. Derived values (average query time, queries per second) are
// computed only when Snapshot is read, never maintained incrementally.
type Metrics struct {
	totalDomains      int64
	successfulQueries int64
	failedQueries     int64
	totalQueryTimeMs  int64
	batchesProcessed  int64
	errors            int64
	retries           int64

	startedAt time.Time
}

// NewMetrics returns a zeroed Metrics with its clock started now.
func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

func (m *Metrics) recordSuccess(queryTimeMs int64) {
	atomic.AddInt64(&m.totalDomains, 1)
	atomic.AddInt64(&m.successfulQueries, 1)
	atomic.AddInt64(&m.totalQueryTimeMs, queryTimeMs)
}

func (m *Metrics) recordFailure() {
	atomic.AddInt64(&m.totalDomains, 1)
	atomic.AddInt64(&m.failedQueries, 1)
	atomic.AddInt64(&m.errors, 1)
}

func (m *Metrics) recordRetry() {
	atomic.AddInt64(&m.retries, 1)
}

// RecordRetry is the exported entry point external collaborators use to
// report a retry they performed on the processor's behalf — the resolver
// pool calls this on every attempt beyond a resolver's first, since the
// processor has no visibility into per-resolver retry behavior otherwise.
func (m *Metrics) RecordRetry() {
	m.recordRetry()
}

func (m *Metrics) recordBatch() {
	atomic.AddInt64(&m.batchesProcessed, 1)
}

// Snapshot is an immutable read of Metrics at a point in time, including
// the derived values computed from the counters at the moment of the read.
type Snapshot struct {
	TotalDomains      int64
	SuccessfulQueries int64
	FailedQueries     int64
	BatchesProcessed  int64
	Errors            int64
	Retries           int64
	AverageQueryTime  time.Duration
	QueriesPerSecond  float64
	Elapsed           time.Duration
}

// Snapshot reads every counter and computes the derived fields.
func (m *Metrics) Snapshot() Snapshot {
	successful := atomic.LoadInt64(&m.successfulQueries)
	totalQueryTimeMs := atomic.LoadInt64(&m.totalQueryTimeMs)
	elapsed := time.Since(m.startedAt)

	var avg time.Duration
	if successful > 0 {
		avg = time.Duration(totalQueryTimeMs/successful) * time.Millisecond
	}

	var qps float64
	if elapsed > 0 {
		qps = float64(atomic.LoadInt64(&m.totalDomains)) / elapsed.Seconds()
	}

	return Snapshot{
		TotalDomains:      atomic.LoadInt64(&m.totalDomains),
		SuccessfulQueries: successful,
		FailedQueries:     atomic.LoadInt64(&m.failedQueries),
		BatchesProcessed:  atomic.LoadInt64(&m.batchesProcessed),
		Errors:            atomic.LoadInt64(&m.errors),
		Retries:           atomic.LoadInt64(&m.retries),
		AverageQueryTime:  avg,
		QueriesPerSecond:  qps,
		Elapsed:           elapsed,
	}
}
