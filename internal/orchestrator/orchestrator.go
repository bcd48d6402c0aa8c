// Package orchestrator wires the resolver pool, cache, wildcard filter,
// processor and sinks together and drives a scan over an input stream.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cybersapien/dnsrecon/internal/cache"
	"github.com/cybersapien/dnsrecon/internal/errs"
	"github.com/cybersapien/dnsrecon/internal/output"
	"github.com/cybersapien/dnsrecon/internal/processor"
	"github.com/cybersapien/dnsrecon/internal/queryengine"
	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/records"
	"github.com/cybersapien/dnsrecon/internal/resolverpool"
	"github.com/cybersapien/dnsrecon/internal/sink"
	"github.com/cybersapien/dnsrecon/internal/wildcard"
)

// Config parameterizes an Orchestrator's construction.
type Config struct {
	Pool      resolverpool.Config
	Processor processor.Config
	CacheSize int
	CacheTTL  time.Duration // 0 lets the cache use its own default

	WildcardThreshold int
	ApplyWildcard     bool
	RcodeFilter       *recordtype.ResponseCode // nil disables the rcode filter

	RecordTypes []recordtype.Type

	// RunID stamps every exported record with this run's identifier. Left
	// empty, one is generated. Callers that build sinks before the
	// Orchestrator (to stamp the same run_id into each) should generate the
	// id themselves and pass it here so both sides agree.
	RunID string
}

// Orchestrator drives one scan run: input stream -> processor -> cache ->
// query engine -> resolver pool -> network, then wildcard filter, output
// writer, and each configured sink.
type Orchestrator struct {
	runID   string
	pool    *resolverpool.Pool
	query   queryengine.DnsQuery // the cached wrapper, if a cache is configured
	filter  *wildcard.Filter
	proc    *processor.Processor[string]
	writer  *output.Writer
	sinks   []sink.Sink
	rcode   *recordtype.ResponseCode
	applyWC bool
	types   []recordtype.Type
	log     zerolog.Logger
}

// New constructs every long-lived component for one run. sinks may be
// empty; writer may be nil to suppress direct output.
func New(cfg Config, writer *output.Writer, sinks []sink.Sink, log zerolog.Logger) (*Orchestrator, error) {
	proc := processor.New[string](cfg.Processor, log)

	poolCfg := cfg.Pool
	poolCfg.OnRetry = func() { proc.Metrics().RecordRetry() }

	pool, err := resolverpool.New(poolCfg, log)
	if err != nil {
		return nil, err
	}

	engine := queryengine.New(pool, log)

	var query queryengine.DnsQuery = engine
	if cfg.CacheSize > 0 {
		c := cache.New(cfg.CacheSize, cfg.CacheTTL)
		query = cache.NewCachedQuery(c, engine)
	}

	filter := wildcard.New(query, cfg.WildcardThreshold, log)

	types := cfg.RecordTypes
	if len(types) == 0 {
		types = []recordtype.Type{recordtype.A}
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	o := &Orchestrator{
		runID:   runID,
		pool:    pool,
		query:   query,
		filter:  filter,
		proc:    proc,
		writer:  writer,
		sinks:   sinks,
		rcode:   cfg.RcodeFilter,
		applyWC: cfg.ApplyWildcard,
		types:   types,
		log:     log,
	}

	return o, nil
}

// RunID returns the identifier stamped into every sink document for this
// run.
func (o *Orchestrator) RunID() string { return o.runID }

// Run drains domains, pushing every produced record through the filter
// pipeline, the output writer, and every configured sink. It returns the
// processor's final metrics snapshot. A single record's export failure is
// logged and does not halt the run; the first sink flush failure becomes
// the returned error (later ones are only logged), and a failure does not
// prevent later sinks from flushing.
func (o *Orchestrator) Run(ctx context.Context, domains <-chan string) (processor.Snapshot, error) {
	op := func(ctx context.Context, domain string) ([]records.DnsRecord, error) {
		var out []records.DnsRecord
		var lastErr error
		for _, rt := range o.types {
			recs, err := o.query.Query(ctx, domain, rt)
			if err != nil {
				lastErr = err
				o.log.Warn().Err(err).Str("domain", domain).Str("type", rt.String()).Msg("query failed")
				continue
			}
			out = append(out, recs...)
		}
		// A domain for which every configured type came back with a real
		// error (as opposed to a clean NXDOMAIN, which Query reports as
		// (nil, nil)) is a failed item, not a quiet empty success — the
		// processor's failure counters must see it.
		if len(out) == 0 && lastErr != nil {
			return nil, errs.New(errs.Resolve, "orchestrator.Run",
				fmt.Errorf("domain %s: all %d record type(s) failed: %w", domain, len(o.types), lastErr))
		}
		return out, nil
	}

	stream := o.proc.Run(ctx, domains, op)

	var pending []records.DnsRecord
	const flushEvery = 256

	flush := func() {
		if len(pending) == 0 {
			return
		}
		filtered := pending
		if o.applyWC {
			filtered = o.filter.Apply(ctx, pending)
		}
		for _, r := range filtered {
			o.route(ctx, r)
		}
		pending = pending[:0]
	}

	for r := range stream {
		if o.rcode != nil && r.ResponseCode != *o.rcode {
			continue
		}
		pending = append(pending, r)
		if len(pending) >= flushEvery {
			flush()
		}
	}
	flush()

	return o.proc.Metrics().Snapshot(), o.flushSinks(ctx)
}

// route applies the output writer and every sink to one filtered record.
func (o *Orchestrator) route(ctx context.Context, r records.DnsRecord) {
	if o.writer != nil {
		if err := o.writer.Write(r); err != nil {
			o.log.Warn().Err(err).Msg("output write failed")
		}
	}
	for _, s := range o.sinks {
		if err := s.Export(ctx, r); err != nil {
			o.log.Warn().Err(err).Str("domain", r.Domain).Msg("sink export failed")
		}
	}
}

// flushSinks flushes every sink in declared order, collecting the first
// error but still attempting every sink.
func (o *Orchestrator) flushSinks(ctx context.Context) error {
	var firstErr error
	for i, s := range o.sinks {
		if err := s.Flush(ctx); err != nil {
			o.log.Error().Err(err).Int("sink_index", i).Msg("sink flush failed")
			if firstErr == nil {
				firstErr = errs.New(errs.Export, "orchestrator.flushSinks", fmt.Errorf("sink %d: %w", i, err))
			}
		}
	}
	return firstErr
}
