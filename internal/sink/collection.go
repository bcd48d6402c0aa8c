package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/pkg/errors"

	"github.com/cybersapien/dnsrecon/internal/errs"
	"github.com/cybersapien/dnsrecon/internal/records"
)

// CollectionSink is the BSON-like backing store, implemented against
// Elasticsearch. When the index is created it gets keyword mappings for
// {domain} and {record_type} and a date mapping for {timestamp}; there is
// no compound {domain, record_type} field, so such lookups combine the two
// keyword fields.
type CollectionSink struct {
	client        *elasticsearch.Client
	index         string
	buf           *buffer
	retryAttempts int
	retryDelay    time.Duration
	runID         string
}

// CollectionConfig configures a CollectionSink.
type CollectionConfig struct {
	Index         string
	BatchSize     int
	RetryAttempts int
	RetryDelay    time.Duration
	RunID         string
}

// collectionDoc is the indexed document shape: the flattened record plus
// the run identifier of the scan that produced it.
type collectionDoc struct {
	records.OutputJSON
	RunID string `json:"run_id"`
}

// indexMapping declares keyword/date fields so {domain}, {record_type} and
// {timestamp} sort and filter exactly. It declares no compound or runtime
// field for {domain, record_type}.
const indexMapping = `{
  "mappings": {
    "properties": {
      "domain":        {"type": "keyword"},
      "record_type":   {"type": "keyword"},
      "value":         {"type": "keyword"},
      "resolver":      {"type": "keyword"},
      "response_code": {"type": "keyword"},
      "ttl":           {"type": "integer"},
      "query_time_ms": {"type": "long"},
      "timestamp":     {"type": "date"}
    }
  }
}`

// NewCollectionSink creates cfg.Index with indexMapping if it does not
// exist (an existing index is used as is) and returns a sink writing to it.
func NewCollectionSink(ctx context.Context, client *elasticsearch.Client, cfg CollectionConfig) (*CollectionSink, error) {
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	exists, err := (esapi.IndicesExistsRequest{Index: []string{cfg.Index}}).Do(ctx, client)
	if err != nil {
		return nil, errs.New(errs.Export, "sink.NewCollectionSink", errors.Wrap(err, "check index"))
	}
	defer exists.Body.Close()

	if exists.StatusCode == 404 {
		resp, err := (esapi.IndicesCreateRequest{
			Index: cfg.Index,
			Body:  strings.NewReader(indexMapping),
		}).Do(ctx, client)
		if err != nil {
			return nil, errs.New(errs.Export, "sink.NewCollectionSink", errors.Wrap(err, "create index"))
		}
		defer resp.Body.Close()
		if resp.IsError() {
			return nil, errs.New(errs.Export, "sink.NewCollectionSink", fmt.Errorf("create index: %s", resp.Status()))
		}
	}

	s := &CollectionSink{client: client, index: cfg.Index, retryAttempts: cfg.RetryAttempts, retryDelay: cfg.RetryDelay, runID: cfg.RunID}
	s.buf = newBuffer(cfg.BatchSize, s.writeBatch)
	return s, nil
}

var _ Sink = (*CollectionSink)(nil)

// Export buffers rec, flushing to Elasticsearch once the batch is full.
func (s *CollectionSink) Export(ctx context.Context, rec records.DnsRecord) error {
	return s.buf.add(ctx, rec)
}

// Flush drains any buffered records unconditionally.
func (s *CollectionSink) Flush(ctx context.Context) error {
	return s.buf.drain(ctx)
}

// writeBatch submits one Elasticsearch _bulk request, retried as a whole
// on transport failure or an HTTP error status. Per-item failures reported
// inside a successful bulk response are not inspected.
func (s *CollectionSink) writeBatch(ctx context.Context, batch []records.DnsRecord) error {
	var body bytes.Buffer
	for _, r := range batch {
		meta := map[string]interface{}{"index": map[string]string{"_index": s.index}}
		metaLine, _ := json.Marshal(meta)
		body.Write(metaLine)
		body.WriteByte('\n')
		docLine, err := json.Marshal(collectionDoc{OutputJSON: r.ToOutputJSON(), RunID: s.runID})
		if err != nil {
			return errs.New(errs.Serialization, "sink.CollectionSink.writeBatch", err)
		}
		body.Write(docLine)
		body.WriteByte('\n')
	}

	var lastErr error
	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		resp, err := (esapi.BulkRequest{Body: bytes.NewReader(body.Bytes())}).Do(ctx, s.client)
		if err == nil && !resp.IsError() {
			resp.Body.Close()
			return nil
		}
		if err == nil {
			lastErr = fmt.Errorf("bulk request: %s", resp.Status())
			resp.Body.Close()
		} else {
			lastErr = err
		}
		select {
		case <-ctx.Done():
			return errs.New(errs.Export, "sink.CollectionSink.writeBatch", ctx.Err())
		case <-time.After(s.retryDelay):
		}
	}
	return errs.New(errs.Export, "sink.CollectionSink.writeBatch", errors.Wrap(lastErr, "bulk index exhausted retries"))
}
