package orchestrator

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybersapien/dnsrecon/internal/output"
	"github.com/cybersapien/dnsrecon/internal/processor"
	"github.com/cybersapien/dnsrecon/internal/records"
	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/resolverpool"
	"github.com/cybersapien/dnsrecon/internal/sink"
)

func startServer(t *testing.T, answers map[string][]dns.RR) string {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{PacketConn: conn, Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		if len(r.Question) == 1 {
			name := r.Question[0].Name
			if recs, ok := answers[name]; ok {
				m.Answer = recs
			} else {
				m.SetRcode(r, dns.RcodeNameError)
			}
		}
		w.WriteMsg(m)
	})}

	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	return conn.LocalAddr().String()
}

type fakeSink struct {
	exported []records.DnsRecord
	flushed  bool
}

func (f *fakeSink) Export(ctx context.Context, rec records.DnsRecord) error {
	f.exported = append(f.exported, rec)
	return nil
}

func (f *fakeSink) Flush(ctx context.Context) error {
	f.flushed = true
	return nil
}

var _ sink.Sink = (*fakeSink)(nil)

func TestOrchestrator_Run_ResolvesWritesAndExports(t *testing.T) {
	aRR, err := dns.NewRR("example.com. 300 IN A 192.0.2.1")
	require.NoError(t, err)

	addr := startServer(t, map[string][]dns.RR{"example.com.": {aRR}})

	var buf bytes.Buffer
	w := output.New(&buf, output.Plain)
	fs := &fakeSink{}

	oc, err := New(Config{
		Pool:        resolverpool.Config{Resolvers: []string{addr}, Timeout: time.Second},
		Processor:   processor.Config{MaxConcurrent: 4, BatchSize: 1, Timeout: time.Second},
		RecordTypes: []recordtype.Type{recordtype.A},
		RunID:       "test-run",
	}, w, []sink.Sink{fs}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "test-run", oc.RunID())

	domains := make(chan string, 1)
	domains <- "example.com"
	close(domains)

	snap, err := oc.Run(context.Background(), domains)
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.SuccessfulQueries)
	assert.Contains(t, buf.String(), "example.com [192.0.2.1]")
	require.Len(t, fs.exported, 1)
	assert.True(t, fs.flushed)
}

func TestOrchestrator_Run_SkipsRecordsFilteredByRcode(t *testing.T) {
	aRR, err := dns.NewRR("example.com. 300 IN A 192.0.2.1")
	require.NoError(t, err)

	// The server answers NOERROR; the filter keeps only NXDOMAIN records.
	addr := startServer(t, map[string][]dns.RR{"example.com.": {aRR}})

	var buf bytes.Buffer
	w := output.New(&buf, output.Plain)

	nxOnly := recordtype.NxDomain
	oc, err := New(Config{
		Pool:        resolverpool.Config{Resolvers: []string{addr}, Timeout: time.Second},
		Processor:   processor.Config{MaxConcurrent: 4, BatchSize: 1, Timeout: time.Second},
		RecordTypes: []recordtype.Type{recordtype.A},
		RcodeFilter: &nxOnly,
	}, w, nil, zerolog.Nop())
	require.NoError(t, err)

	domains := make(chan string, 1)
	domains <- "example.com"
	close(domains)

	_, err = oc.Run(context.Background(), domains)
	require.NoError(t, err)

	assert.Empty(t, buf.String())
}

func startFailingServer(t *testing.T) string {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{PacketConn: conn, Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		m.SetRcode(r, dns.RcodeServerFailure)
		w.WriteMsg(m)
	})}

	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	return conn.LocalAddr().String()
}

func TestOrchestrator_Run_CountsDomainAsFailedWhenEveryTypeErrors(t *testing.T) {
	addr := startFailingServer(t)

	var buf bytes.Buffer
	w := output.New(&buf, output.Plain)

	oc, err := New(Config{
		Pool:        resolverpool.Config{Resolvers: []string{addr}, Timeout: time.Second, Retries: 0},
		Processor:   processor.Config{MaxConcurrent: 4, BatchSize: 1, Timeout: time.Second},
		RecordTypes: []recordtype.Type{recordtype.A},
	}, w, nil, zerolog.Nop())
	require.NoError(t, err)

	domains := make(chan string, 1)
	domains <- "example.com"
	close(domains)

	snap, err := oc.Run(context.Background(), domains)
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.FailedQueries)
	assert.Equal(t, int64(0), snap.SuccessfulQueries)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Empty(t, buf.String())
}

func TestOrchestrator_New_GeneratesRunIDWhenAbsent(t *testing.T) {
	addr := startServer(t, nil)
	oc, err := New(Config{
		Pool: resolverpool.Config{Resolvers: []string{addr}, Timeout: time.Second},
	}, nil, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.NotEmpty(t, oc.RunID())
}
