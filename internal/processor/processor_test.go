package processor

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
)

func drain(out <-chan records.DnsRecord) []records.DnsRecord {
	var got []records.DnsRecord
	for r := range out {
		got = append(got, r)
	}
	return got
}

func TestProcessor_Run_EmitsRecordForEachItem(t *testing.T) {
	p := New[string](Config{MaxConcurrent: 4, BatchSize: 2, Timeout: time.Second}, zerolog.Nop())

	items := make(chan string, 3)
	items <- "a.example.com"
	items <- "b.example.com"
	items <- "c.example.com"
	close(items)

	op := func(ctx context.Context, item string) ([]records.DnsRecord, error) {
		rec, err := records.New(item, recordtype.A, records.NewIP(net.ParseIP("192.0.2.1")),
			300, recordtype.NoError, "8.8.8.8", time.Now(), 1)
		if err != nil {
			return nil, err
		}
		return []records.DnsRecord{rec}, nil
	}

	out := p.Run(context.Background(), items, op)
	got := drain(out)

	assert.Len(t, got, 3)
	assert.Equal(t, int64(3), p.Metrics().Snapshot().SuccessfulQueries)
}

func TestProcessor_Run_FailureNeverAbortsRun(t *testing.T) {
	p := New[string](Config{MaxConcurrent: 4, BatchSize: 2, Timeout: time.Second}, zerolog.Nop())

	items := make(chan string, 2)
	items <- "fails.example.com"
	items <- "ok.example.com"
	close(items)

	op := func(ctx context.Context, item string) ([]records.DnsRecord, error) {
		if item == "fails.example.com" {
			return nil, errors.New("boom")
		}
		rec, err := records.New(item, recordtype.A, records.NewIP(net.ParseIP("192.0.2.1")),
			300, recordtype.NoError, "8.8.8.8", time.Now(), 1)
		require.NoError(t, err)
		return []records.DnsRecord{rec}, nil
	}

	out := p.Run(context.Background(), items, op)
	got := drain(out)

	assert.Len(t, got, 1)
	snap := p.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.SuccessfulQueries)
	assert.Equal(t, int64(1), snap.FailedQueries)
}

func TestProcessor_Run_StopsOnContextCancellation(t *testing.T) {
	p := New[string](Config{MaxConcurrent: 1, BatchSize: 1, Timeout: time.Second}, zerolog.Nop())

	items := make(chan string)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := func(ctx context.Context, item string) ([]records.DnsRecord, error) {
		return nil, nil
	}

	out := p.Run(ctx, items, op)
	got := drain(out)
	assert.Empty(t, got)
}
