// Package sink implements the Sink Exporter interface and its three
// backing-store implementations, sharing a common batch-buffer pattern:
// a lock-protected buffer that is drained and flushed to the backing
// store without holding the lock during I/O.
package sink

import (
	"context"
	"sync"

	"github.com/cybersapien/dnsrecon/internal/records"
)

// Sink is the uniform interface every exporter satisfies.
type Sink interface {
	Export(ctx context.Context, rec records.DnsRecord) error
	Flush(ctx context.Context) error
}

// buffer is the shared batch-accumulation primitive embedded by every
// concrete sink. It is safe for concurrent Export calls; the configured
// write function runs outside the buffer lock.
type buffer struct {
	mu        sync.Mutex
	batchSize int
	pending   []records.DnsRecord
	write     func(ctx context.Context, batch []records.DnsRecord) error
}

func newBuffer(batchSize int, write func(ctx context.Context, batch []records.DnsRecord) error) *buffer {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &buffer{batchSize: batchSize, write: write}
}

// add appends rec to the pending batch, flushing to the backing store if
// capacity is reached.
func (b *buffer) add(ctx context.Context, rec records.DnsRecord) error {
	b.mu.Lock()
	b.pending = append(b.pending, rec)
	full := len(b.pending) >= b.batchSize
	var toWrite []records.DnsRecord
	if full {
		toWrite = b.pending
		b.pending = nil
	}
	b.mu.Unlock()

	if full {
		return b.write(ctx, toWrite)
	}
	return nil
}

// drain flushes whatever is pending, regardless of batch size. Idempotent
// when there is nothing pending.
func (b *buffer) drain(ctx context.Context) error {
	b.mu.Lock()
	toWrite := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(toWrite) == 0 {
		return nil
	}
	return b.write(ctx, toWrite)
}
