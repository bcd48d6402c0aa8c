// Package resolverpool owns a primary and ordered list of backup recursive
// resolvers and performs one DNS query with timeout and failover.
package resolverpool

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/cybersapien/dnsrecon/internal/errs"
)

// Result is one resolver's answer to a query: the raw reply message plus
// which resolver produced it.
type Result struct {
	Msg        *dns.Msg
	ResolverID string
}

// resolverEntry is one configured resolver, addressed as host:port.
type resolverEntry struct {
	addr   string
	client *dns.Client
}

// Pool holds an ordered list of resolvers and bounds global in-flight
// queries with a semaphore of fixed size.
type Pool struct {
	resolvers []resolverEntry
	sem       *semaphore.Weighted
	timeout   time.Duration
	retries   int
	onRetry   func()
	log       zerolog.Logger
}

// Config configures a Pool's construction.
type Config struct {
	Resolvers   []string // host or host:port, in fallback order
	Concurrency int
	Timeout     time.Duration
	Retries     int

	// OnRetry, if set, is called once for every attempt beyond a
	// resolver's first against one domain — the processor's retries
	// counter has no other way to observe resolver-level retries.
	OnRetry func()
}

// New validates cfg and builds a Pool. An empty resolver list is a
// Validation error: the pool has nothing to serve queries with.
func New(cfg Config, log zerolog.Logger) (*Pool, error) {
	if len(cfg.Resolvers) == 0 {
		return nil, errs.New(errs.Validation, "resolverpool.New", fmt.Errorf("no resolvers configured"))
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	entries := make([]resolverEntry, 0, len(cfg.Resolvers))
	for _, addr := range cfg.Resolvers {
		normalized, err := normalizeResolverAddr(addr)
		if err != nil {
			return nil, errs.New(errs.ResolverConfig, "resolverpool.New", err)
		}
		entries = append(entries, resolverEntry{
			addr:   normalized,
			client: &dns.Client{Net: "udp", Timeout: cfg.Timeout},
		})
	}

	return &Pool{
		resolvers: entries,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		timeout:   cfg.Timeout,
		retries:   cfg.Retries,
		onRetry:   cfg.OnRetry,
		log:       log,
	}, nil
}

// normalizeResolverAddr accepts "ip" or "ip:port" and defaults to port 53.
func normalizeResolverAddr(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("empty resolver address")
	}
	if strings.Contains(addr, ":") && !strings.HasPrefix(addr, "[") {
		// host:port already, or an unbracketed IPv6 literal — only the
		// former is a valid host:port; net.SplitHostPort disambiguates.
		if _, _, err := net.SplitHostPort(addr); err == nil {
			return addr, nil
		}
	}
	if ip := net.ParseIP(addr); ip != nil {
		// Bare IP literal: JoinHostPort brackets an IPv6 address.
		return net.JoinHostPort(addr, "53"), nil
	}
	return addr + ":53", nil
}

// normalizeDomain lowercases domain and gives it a single trailing dot.
func normalizeDomain(domain string) string {
	return dns.Fqdn(strings.ToLower(strings.TrimSuffix(domain, ".")))
}

// Query performs one DNS query, trying resolvers in list order. NxDomain is
// a successful response and returns immediately. Any other non-success
// response, a transport error, or a deadline falls through to the next
// resolver. Exhausting all resolvers is a Resolve error. One semaphore
// permit bounds this call alongside every other in-flight query in the pool.
func (p *Pool) Query(ctx context.Context, domain string, qtype uint16) (Result, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Result{}, errs.New(errs.Timeout, "resolverpool.Query", err)
	}
	defer p.sem.Release(1)

	fqdn := normalizeDomain(domain)

	var lastErr error
	for _, r := range p.resolvers {
		for attempt := 0; attempt <= p.retries; attempt++ {
			if attempt > 0 && p.onRetry != nil {
				p.onRetry()
			}

			msg := new(dns.Msg)
			msg.SetQuestion(fqdn, qtype)
			msg.RecursionDesired = true

			qctx, cancel := context.WithTimeout(ctx, p.timeout)
			reply, _, err := r.client.ExchangeContext(qctx, msg, r.addr)
			cancel()

			if err != nil {
				lastErr = err
				p.log.Debug().Str("resolver", r.addr).Str("domain", fqdn).
					Int("attempt", attempt).Err(err).Msg("resolver attempt failed")
				continue
			}

			if reply.Rcode == dns.RcodeNameError {
				// NxDomain is a successful, authoritative answer.
				return Result{Msg: reply, ResolverID: r.addr}, nil
			}
			if reply.Rcode != dns.RcodeSuccess {
				lastErr = fmt.Errorf("resolver %s returned rcode %s", r.addr, dns.RcodeToString[reply.Rcode])
				break // try next resolver, not another retry against a server answer
			}

			return Result{Msg: reply, ResolverID: r.addr}, nil
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no resolvers configured")
	}
	return Result{}, errs.New(errs.Resolve, "resolverpool.Query", fmt.Errorf("all resolvers failed: %w", lastErr))
}

// ResolverCount returns the number of configured resolvers.
func (p *Pool) ResolverCount() int { return len(p.resolvers) }
