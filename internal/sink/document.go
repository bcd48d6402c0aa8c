package sink

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cybersapien/dnsrecon/internal/errs"
	"github.com/cybersapien/dnsrecon/internal/records"
)

// DocumentSink is the append-only JSON-document backing store, implemented
// against MongoDB. Each record is stored with the fixed field schema
// {timestamp, domain, record_type, value, resolver, ttl, response_code,
// query_time_ms}.
type DocumentSink struct {
	coll          *mongo.Collection
	buf           *buffer
	retryAttempts int
	retryDelay    time.Duration
	runID         string
}

// DocumentConfig configures a DocumentSink.
type DocumentConfig struct {
	Database      string
	Collection    string
	BatchSize     int
	RetryAttempts int
	RetryDelay    time.Duration
	// RunID stamps every document with the scan run that produced it,
	// distinguishing overlapping runs against the same collection.
	RunID string
}

// NewDocumentSink ensures the target collection exists and returns a sink
// writing to it. An index on {domain, record_type} is created if absent.
func NewDocumentSink(ctx context.Context, client *mongo.Client, cfg DocumentConfig) (*DocumentSink, error) {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "domain", Value: 1}, {Key: "record_type", Value: 1}},
	})
	if err != nil {
		return nil, errs.New(errs.Export, "sink.NewDocumentSink", errors.Wrap(err, "ensure index"))
	}

	s := &DocumentSink{retryAttempts: cfg.RetryAttempts, retryDelay: cfg.RetryDelay, coll: coll, runID: cfg.RunID}
	s.buf = newBuffer(cfg.BatchSize, s.writeBatch)
	return s, nil
}

var _ Sink = (*DocumentSink)(nil)

// Export buffers rec, flushing to MongoDB once the batch is full.
func (s *DocumentSink) Export(ctx context.Context, rec records.DnsRecord) error {
	return s.buf.add(ctx, rec)
}

// Flush drains any buffered records unconditionally.
func (s *DocumentSink) Flush(ctx context.Context) error {
	return s.buf.drain(ctx)
}

// writeBatch performs a bulk insert, retried as a single unit on failure.
func (s *DocumentSink) writeBatch(ctx context.Context, batch []records.DnsRecord) error {
	docs := make([]interface{}, len(batch))
	for i, r := range batch {
		out := r.ToOutputJSON()
		docs[i] = bson.M{
			"timestamp":     out.Timestamp,
			"domain":        out.Domain,
			"record_type":   out.RecordType,
			"value":         out.Value,
			"resolver":      out.Resolver,
			"ttl":           out.TTL,
			"response_code": out.RCode,
			"query_time_ms": out.QueryTimeMs,
			"run_id":        s.runID,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		_, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		if err == nil {
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return errs.New(errs.Export, "sink.DocumentSink.writeBatch", ctx.Err())
		case <-time.After(s.retryDelay):
		}
	}
	return errs.New(errs.Export, "sink.DocumentSink.writeBatch", errors.Wrap(lastErr, "bulk insert exhausted retries"))
}
