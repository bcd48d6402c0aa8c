// Package output implements the Output Writer: renders a DnsRecord stream
// in one of the supported wire formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cybersapien/dnsrecon/internal/records"
)

// Format selects the rendering applied to each record.
type Format int

const (
	// Plain renders "<domain> [<value>]".
	Plain Format = iota
	// JSON renders one OutputJSON object per line.
	JSON
	// ResponseOnly renders just "<value>".
	ResponseOnly
)

// ParseFormat maps a config/flag string to a Format. "response" is the
// `--format` value documented on the CLI; it selects ResponseOnly.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "plain", "":
		return Plain, nil
	case "json":
		return JSON, nil
	case "response":
		return ResponseOnly, nil
	default:
		return Plain, fmt.Errorf("output: unknown format %q", s)
	}
}

// Writer serializes records to an underlying io.Writer under a format.
// Safe for concurrent Write calls: one record's output is never
// interleaved with another's.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
}

// New builds a Writer over w rendering in format.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// Write renders one record according to the configured format.
func (wr *Writer) Write(rec records.DnsRecord) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	switch wr.format {
	case JSON:
		enc := json.NewEncoder(wr.w)
		return enc.Encode(rec.ToOutputJSON())
	case ResponseOnly:
		_, err := fmt.Fprintln(wr.w, rec.Value.RawText())
		return err
	default:
		_, err := fmt.Fprintf(wr.w, "%s [%s]\n", rec.Domain, rec.Value.RawText())
		return err
	}
}
