// Package processor implements the bounded-concurrency scheduler that
// drives an arbitrary per-item operation over a stream of input items,
// with per-item timeout, optional rate limiting, adaptive batch sizing,
// and run metrics.
package processor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/cybersapien/dnsrecon/internal/records"
)

// Op is the per-item operation the processor drives: given an item, it
// returns the records produced or an error. Both outcomes are handled
// identically at the caller's level — a failure never aborts the run.
type Op[T any] func(ctx context.Context, item T) ([]records.DnsRecord, error)

// Config parameterizes a Processor.
type Config struct {
	MaxConcurrent int
	BatchSize     int
	Timeout       time.Duration
	RateLimit     int // items per second; 0 = unlimited
	TargetQPS     float64
	MinBatchSize  int
	MaxBatchSize  int
}

// Processor runs Op over a stream of items with bounded concurrency.
type Processor[T any] struct {
	cfg     Config
	sem     *semaphore.Weighted
	limiter *RateLimiter
	sizer   *BatchSizer
	metrics *Metrics
	log     zerolog.Logger
}

// New builds a Processor with the given configuration, filling in
// reasonable defaults for zero-valued fields.
func New[T any](cfg Config, log zerolog.Logger) *Processor[T] {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 100
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MinBatchSize <= 0 {
		cfg.MinBatchSize = 1
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = cfg.BatchSize * 10
	}

	return &Processor[T]{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		limiter: NewRateLimiter(cfg.RateLimit),
		sizer:   NewBatchSizer(cfg.BatchSize, cfg.MinBatchSize, cfg.MaxBatchSize, cfg.TargetQPS),
		metrics: NewMetrics(),
		log:     log,
	}
}

// Metrics returns the processor's running metrics.
func (p *Processor[T]) Metrics() *Metrics { return p.metrics }

// Run consumes items from the channel, feeding each through op under the
// configured concurrency bound, rate limiter and timeout, and forwards
// every produced record onto the returned channel. The output channel is
// closed once items is drained and every in-flight operation has
// completed. Results arrive out of order relative to items.
func (p *Processor[T]) Run(ctx context.Context, items <-chan T, op Op[T]) <-chan records.DnsRecord {
	out := make(chan records.DnsRecord)

	go func() {
		defer close(out)

		batch := make([]T, 0, p.sizer.Current())
		flushBatch := func() {
			if len(batch) == 0 {
				return
			}
			p.runBatch(ctx, batch, op, out)
			batch = batch[:0]
		}

		for {
			select {
			case <-ctx.Done():
				flushBatch()
				return
			case item, ok := <-items:
				if !ok {
					flushBatch()
					return
				}
				batch = append(batch, item)
				if len(batch) >= p.sizer.Current() {
					flushBatch()
				}
			}
		}
	}()

	return out
}

// runBatch drives one batch of items concurrently and measures the
// resulting throughput to feed the adaptive batch sizer.
func (p *Processor[T]) runBatch(ctx context.Context, batch []T, op Op[T], out chan<- records.DnsRecord) {
	start := time.Now()
	done := make(chan struct{}, len(batch))

	for _, item := range batch {
		item := item
		go func() {
			defer func() { done <- struct{}{} }()
			p.runItem(ctx, item, op, out)
		}()
	}

	for range batch {
		<-done
	}

	p.metrics.recordBatch()
	elapsed := time.Since(start).Seconds()
	if elapsed > 0 {
		p.sizer.Observe(float64(len(batch)) / elapsed)
	}
}

// runItem executes the per-item contract: acquire a permit, gate on the
// rate limiter, run op under a timeout, emit results or log-and-emit-empty,
// release the permit.
func (p *Processor[T]) runItem(ctx context.Context, item T, op Op[T], out chan<- records.DnsRecord) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.sem.Release(1)

	if err := p.limiter.Wait(ctx); err != nil {
		p.metrics.recordFailure()
		return
	}

	itemCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	recs, err := op(itemCtx, item)
	elapsedMs := time.Since(start).Milliseconds()

	if err != nil {
		p.log.Warn().Err(err).Msg("processor: item failed")
		p.metrics.recordFailure()
		return
	}

	p.metrics.recordSuccess(elapsedMs)
	for _, r := range recs {
		select {
		case out <- r:
		case <-ctx.Done():
			return
		}
	}
}
