// Package streamer implements the lazy, one-shot Domain Streamer: a
// sequence of trimmed, non-blank, non-comment lines read from a
// line-oriented byte source.
package streamer

import (
	"bufio"
	"io"
	"strings"
)

// Stream is a single-pass, finite sequence over r. Each call to Next
// advances the underlying scanner; it is not safe for concurrent use.
type Stream struct {
	scanner *bufio.Scanner
	done    bool
}

// New wraps r as a Stream of domain labels.
func New(r io.Reader) *Stream {
	return &Stream{scanner: bufio.NewScanner(r)}
}

// Next returns the next non-blank, non-comment line, trimmed of leading and
// trailing whitespace, and true. It returns false once the source is
// exhausted.
func (s *Stream) Next() (string, bool) {
	if s.done {
		return "", false
	}
	for s.scanner.Scan() {
		trimmed := strings.TrimSpace(s.scanner.Text())
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return trimmed, true
	}
	s.done = true
	return "", false
}

// Err returns the first non-EOF error encountered by the underlying
// scanner, if any.
func (s *Stream) Err() error {
	return s.scanner.Err()
}

// All drains the stream into a channel, closing it once the stream is
// exhausted. There is no cancellation: the feeding goroutine blocks on each
// send until the receiver takes the line. This is the adapter the
// Concurrent Processor consumes directly.
func (s *Stream) All() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			line, ok := s.Next()
			if !ok {
				return
			}
			out <- line
		}
	}()
	return out
}
