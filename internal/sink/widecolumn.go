package sink

import (
	"context"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/cybersapien/dnsrecon/internal/errs"
	"github.com/cybersapien/dnsrecon/internal/records"
)

// WideColumnSink is the time-series backing store, implemented against
// Cassandra. Rows are partitioned by (domain, record_type), clustered by
// timestamp descending. num_workers goroutines fan writes out over
// per-worker channels rather than sharing a mutex; Flush closes every
// worker's input channel and waits for drain.
type WideColumnSink struct {
	session *gocql.Session
	keyspace,
	table string

	insertStmt string

	workers   []chan records.DnsRecord
	wg        sync.WaitGroup
	next      uint64
	nextMu    sync.Mutex
	writeErrs chan error

	retryAttempts int
	retryDelay    time.Duration
	runID         string
}

// WideColumnConfig configures a WideColumnSink.
type WideColumnConfig struct {
	Keyspace      string
	Table         string
	NumWorkers    int
	RetryAttempts int
	RetryDelay    time.Duration
	RunID         string
}

// NewWideColumnSink prepares the insert statement for cfg.Keyspace/Table
// and starts cfg.NumWorkers fan-out goroutines.
func NewWideColumnSink(session *gocql.Session, cfg WideColumnConfig) (*WideColumnSink, error) {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 4
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Keyspace == "" || cfg.Table == "" {
		return nil, errs.New(errs.Validation, "sink.NewWideColumnSink", errors.New("keyspace and table are required"))
	}

	s := &WideColumnSink{
		session:       session,
		keyspace:      cfg.Keyspace,
		table:         cfg.Table,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		writeErrs:     make(chan error, cfg.NumWorkers),
		runID:         cfg.RunID,
	}
	// gocql caches the prepared query itself, keyed by statement text; this
	// statement is built once per (keyspace, table) and reused by every
	// worker, so the cache entry is shared rather than re-prepared per call.
	s.insertStmt = "INSERT INTO " + cfg.Keyspace + "." + cfg.Table +
		" (domain, record_type, timestamp, value, resolver, ttl, response_code, query_time_ms, run_id) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

	s.workers = make([]chan records.DnsRecord, cfg.NumWorkers)
	for i := range s.workers {
		ch := make(chan records.DnsRecord, 64)
		s.workers[i] = ch
		s.wg.Add(1)
		go s.worker(ch)
	}

	return s, nil
}

var _ Sink = (*WideColumnSink)(nil)

// worker drains its channel, writing each record with bounded retry.
func (s *WideColumnSink) worker(ch <-chan records.DnsRecord) {
	defer s.wg.Done()
	for rec := range ch {
		if err := s.writeWithRetry(context.Background(), rec); err != nil {
			select {
			case s.writeErrs <- err:
			default:
			}
		}
	}
}

func (s *WideColumnSink) writeWithRetry(ctx context.Context, rec records.DnsRecord) error {
	out := rec.ToOutputJSON()
	var lastErr error
	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		err := s.session.Query(s.insertStmt,
			out.Domain, out.RecordType, rec.Timestamp, out.Value, out.Resolver,
			out.TTL, out.RCode, out.QueryTimeMs, s.runID,
		).WithContext(ctx).Exec()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(s.retryDelay)
	}
	return errs.New(errs.Export, "sink.WideColumnSink.writeWithRetry", errors.Wrap(lastErr, "insert exhausted retries"))
}

// Export round-robins rec to the next worker's channel.
func (s *WideColumnSink) Export(ctx context.Context, rec records.DnsRecord) error {
	s.nextMu.Lock()
	idx := s.next % uint64(len(s.workers))
	s.next++
	s.nextMu.Unlock()

	select {
	case s.workers[idx] <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush closes every worker's input channel and waits for all in-flight
// writes to finish, then surfaces the first worker error observed, if any.
func (s *WideColumnSink) Flush(ctx context.Context) error {
	for _, ch := range s.workers {
		close(ch)
	}
	s.wg.Wait()

	select {
	case err := <-s.writeErrs:
		return err
	default:
		return nil
	}
}
