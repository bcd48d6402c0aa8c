package output

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
)

func mustRecord(t *testing.T) records.DnsRecord {
	t.Helper()
	rec, err := records.New("example.com", recordtype.A, records.NewIP(net.ParseIP("192.0.2.1")),
		300, recordtype.NoError, "8.8.8.8", time.Now(), 5)
	require.NoError(t, err)
	return rec
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("plain")
	require.NoError(t, err)
	assert.Equal(t, Plain, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, Plain, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, JSON, f)

	f, err = ParseFormat("response")
	require.NoError(t, err)
	assert.Equal(t, ResponseOnly, f)

	_, err = ParseFormat("bogus")
	assert.Error(t, err)
}

func TestWriter_Plain(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Plain)
	require.NoError(t, w.Write(mustRecord(t)))
	assert.Equal(t, "example.com [192.0.2.1]\n", buf.String())
}

func TestWriter_ResponseOnly(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, ResponseOnly)
	require.NoError(t, w.Write(mustRecord(t)))
	assert.Equal(t, "192.0.2.1\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, JSON)
	require.NoError(t, w.Write(mustRecord(t)))
	assert.True(t, strings.Contains(buf.String(), `"domain":"example.com"`))
}
