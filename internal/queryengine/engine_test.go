package queryengine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/resolverpool"
)

func startServer(t *testing.T, answer []dns.RR, rcode int) string {
	t.Helper()

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{PacketConn: conn, Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		if rcode != dns.RcodeSuccess {
			m.SetRcode(r, rcode)
		} else {
			m.Answer = answer
		}
		w.WriteMsg(m)
	})}

	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })

	return conn.LocalAddr().String()
}

func TestEngine_Query_DecodesARecord(t *testing.T) {
	rr, err := dns.NewRR("example.com. 300 IN A 192.0.2.1")
	require.NoError(t, err)

	addr := startServer(t, []dns.RR{rr}, dns.RcodeSuccess)
	pool, err := resolverpool.New(resolverpool.Config{Resolvers: []string{addr}, Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)

	e := New(pool, zerolog.Nop())
	recs, err := e.Query(context.Background(), "example.com", recordtype.A)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	ip, ok := recs[0].Value.IP()
	require.True(t, ok)
	assert.Equal(t, "192.0.2.1", ip.String())
	assert.Equal(t, uint32(300), recs[0].TTL)
	assert.Equal(t, recordtype.NoError, recs[0].ResponseCode)
}

func TestEngine_Query_EmptyAnswerYieldsSyntheticRecord(t *testing.T) {
	addr := startServer(t, nil, dns.RcodeSuccess)
	pool, err := resolverpool.New(resolverpool.Config{Resolvers: []string{addr}, Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)

	e := New(pool, zerolog.Nop())
	recs, err := e.Query(context.Background(), "example.com", recordtype.A)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, uint32(0), recs[0].TTL)
}

func TestEngine_Query_NxDomainYieldsNoRecords(t *testing.T) {
	addr := startServer(t, nil, dns.RcodeNameError)
	pool, err := resolverpool.New(resolverpool.Config{Resolvers: []string{addr}, Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)

	e := New(pool, zerolog.Nop())
	recs, err := e.Query(context.Background(), "nope.example.com", recordtype.A)
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestDecodeRR_MX(t *testing.T) {
	rr, err := dns.NewRR("example.com. 300 IN MX 10 mail.example.com.")
	require.NoError(t, err)

	v := decodeRR(rr)
	mx, ok := v.MX()
	require.True(t, ok)
	assert.Equal(t, uint16(10), mx.Priority)
	assert.Equal(t, "mail.example.com.", mx.Exchange)
}

func TestDecodeRR_UnknownFallsBackToOther(t *testing.T) {
	rr, err := dns.NewRR("example.com. 300 IN NSEC a.example.com. A")
	require.NoError(t, err)

	v := decodeRR(rr)
	assert.NotEmpty(t, v.RawText())
}
