// Command dnsrecon is a DNS reconnaissance scanner: it resolves a stream
// of domains against a pool of resolvers, classifies and exports every
// record it sees, and optionally filters out wildcard-zone noise.
package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/miekg/dns"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/cybersapien/dnsrecon/internal/config"
	"github.com/cybersapien/dnsrecon/internal/errs"
	"github.com/cybersapien/dnsrecon/internal/input"
	"github.com/cybersapien/dnsrecon/internal/logging"
	"github.com/cybersapien/dnsrecon/internal/orchestrator"
	"github.com/cybersapien/dnsrecon/internal/output"
	"github.com/cybersapien/dnsrecon/internal/processor"
	"github.com/cybersapien/dnsrecon/internal/recordtype"
	"github.com/cybersapien/dnsrecon/internal/resolverpool"
	"github.com/cybersapien/dnsrecon/internal/sink"
	"github.com/cybersapien/dnsrecon/internal/streamer"
)

// flags collects the options shared by query, bruteforce and ptr — the
// three subcommands that all end up driving an Orchestrator.
type flags struct {
	input          string
	output         string
	resolvers      []string
	resolversFile  string
	types          []string
	format         string
	qps            int
	timeout        int
	retries        int
	concurrency    int
	batchSize      int
	wildcardFilter bool
	sinks          []string
	configFile     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dnsrecon",
		Short: "DNS reconnaissance scanner",
	}

	f := &flags{}
	registerScanFlags(root, f)

	root.AddCommand(newQueryCmd(f))
	root.AddCommand(newBruteforceCmd(f))
	root.AddCommand(newPTRCmd(f))

	return root
}

func registerScanFlags(cmd *cobra.Command, f *flags) {
	fs := cmd.PersistentFlags()
	fs.StringVarP(&f.input, "input", "i", "", "file of domains to scan, one per line (default stdin)")
	fs.StringVarP(&f.output, "output", "o", "", "file to write results to (default stdout)")
	fs.StringSliceVarP(&f.resolvers, "resolvers", "r", nil, "recursive resolvers to query, in fallback order")
	fs.StringVar(&f.resolversFile, "resolvers-file", "", "file of resolvers, one per line")
	fs.StringSliceVarP(&f.types, "types", "t", []string{"A"}, "record types to query per domain")
	fs.StringVarP(&f.format, "format", "f", "plain", "output format: plain|json|response")
	fs.IntVar(&f.qps, "qps", 0, "global query rate limit, 0 = unlimited")
	fs.IntVar(&f.timeout, "timeout", 5, "per-query timeout in seconds")
	fs.IntVar(&f.retries, "retries", 3, "per-resolver retry attempts")
	fs.IntVar(&f.concurrency, "concurrency", 100, "maximum in-flight queries")
	fs.IntVar(&f.batchSize, "batch-size", 50, "initial batch size for the adaptive scheduler")
	fs.BoolVar(&f.wildcardFilter, "wildcard-filter", false, "discard records that match a detected wildcard zone")
	fs.StringArrayVar(&f.sinks, "sink", nil, "export destination DSN (mongo://, es://, cassandra://); repeatable")
	fs.StringVar(&f.configFile, "config", "", "path to a YAML/JSON config file")
}

func newQueryCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "resolve a stream of domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, f, nil)
		},
	}
}

func newBruteforceCmd(f *flags) *cobra.Command {
	var wordlist string
	var base string
	cmd := &cobra.Command{
		Use:   "bruteforce",
		Short: "expand a wordlist of subdomain labels against a base domain and resolve each",
		RunE: func(cmd *cobra.Command, args []string) error {
			if base == "" {
				return errs.New(errs.Bruteforce, "main.bruteforce", fmt.Errorf("--base is required"))
			}
			if wordlist == "" {
				return errs.New(errs.Bruteforce, "main.bruteforce", fmt.Errorf("--wordlist is required"))
			}
			wl, err := os.Open(wordlist)
			if err != nil {
				return errs.New(errs.Bruteforce, "main.bruteforce", err)
			}
			defer wl.Close()

			labels := streamer.New(wl)
			domains := make(chan string)
			go func() {
				defer close(domains)
				for {
					label, ok := labels.Next()
					if !ok {
						return
					}
					domains <- label + "." + base
				}
			}()

			return runScan(cmd, f, domains)
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "base domain to prepend wordlist labels to")
	cmd.Flags().StringVar(&wordlist, "wordlist", "", "file of subdomain labels, one per line")
	return cmd
}

func newPTRCmd(f *flags) *cobra.Command {
	var cidr string
	var asn string
	cmd := &cobra.Command{
		Use:   "ptr",
		Short: "expand a CIDR block or ASN into addresses and resolve PTR records for each",
		RunE: func(cmd *cobra.Command, args []string) error {
			var addrs []string
			var err error
			switch {
			case cidr != "":
				addrs, err = input.ExpandCIDR(cidr)
			case asn != "":
				addrs, err = input.ExpandASN(asn)
			default:
				return errs.New(errs.InvalidInput, "main.ptr", fmt.Errorf("one of --cidr or --asn is required"))
			}
			if err != nil {
				return err
			}

			f.types = []string{"PTR"}
			domains := make(chan string)
			go func() {
				defer close(domains)
				for _, a := range addrs {
					rev, err := dns.ReverseAddr(a)
					if err != nil {
						continue
					}
					domains <- rev
				}
			}()
			return runScan(cmd, f, domains)
		},
	}
	cmd.Flags().StringVar(&cidr, "cidr", "", "CIDR block to expand")
	cmd.Flags().StringVar(&asn, "asn", "", "ASN to expand (requires a routing-registry client, unavailable in this build)")
	return cmd
}

// runScan loads configuration, wires the Orchestrator, and drains domains
// (or, if domains is nil, the --input stream) through it. A non-nil return
// here is the only thing that changes the process exit code: operational
// failures mid-scan are logged, not surfaced as a CLI error.
func runScan(cmd *cobra.Command, f *flags, domains <-chan string) error {
	log := logging.New()

	cfg, err := config.Load(f.configFile, cmd.Flags())
	if err != nil {
		return err
	}

	resolvers := cfg.Resolvers
	if f.resolversFile != "" {
		rf, err := os.Open(f.resolversFile)
		if err != nil {
			return errs.New(errs.ResolverConfig, "main.runScan", err)
		}
		defer rf.Close()
		resolvers = nil
		rs := streamer.New(rf)
		for {
			r, ok := rs.Next()
			if !ok {
				break
			}
			resolvers = append(resolvers, r)
		}
	}

	types, err := parseTypes(f.types)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(f.format)
	if err != nil {
		return err
	}

	out := os.Stdout
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return errs.New(errs.InvalidInput, "main.runScan", err)
		}
		defer file.Close()
		writer := output.New(file, format)
		return scanWith(cmd, f, cfg, resolvers, types, writer, log, domains)
	}

	writer := output.New(out, format)
	return scanWith(cmd, f, cfg, resolvers, types, writer, log, domains)
}

func scanWith(cmd *cobra.Command, f *flags, cfg *config.Config, resolvers []string,
	types []recordtype.Type, writer *output.Writer, log zerolog.Logger, domains <-chan string) error {

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Warn().Msg("signal received, draining in-flight queries")
		cancel()
	}()

	// Generated once here rather than left to the Orchestrator, so sinks
	// (constructed before the Orchestrator exists) stamp the same run_id.
	runID := uuid.NewString()

	sinks, closeSinks, err := buildSinks(ctx, f.sinks, runID, cfg)
	if err != nil {
		return err
	}
	defer closeSinks()

	oc, err := orchestrator.New(orchestrator.Config{
		Pool: resolverpool.Config{
			Resolvers:   resolvers,
			Concurrency: f.concurrency,
			Timeout:     time.Duration(f.timeout) * time.Second,
			Retries:     f.retries,
		},
		Processor: processor.Config{
			MaxConcurrent: f.concurrency,
			BatchSize:     f.batchSize,
			Timeout:       time.Duration(f.timeout) * time.Second,
			RateLimit:     f.qps,
			TargetQPS:     float64(f.qps),
		},
		CacheSize:         cfg.CacheMaxSize,
		CacheTTL:          cfg.CacheDefaultTTL,
		WildcardThreshold: cfg.WildcardThreshold,
		ApplyWildcard:     f.wildcardFilter,
		RecordTypes:       types,
		RunID:             runID,
	}, writer, sinks, log)
	if err != nil {
		return err
	}

	if domains == nil {
		in := os.Stdin
		if f.input != "" {
			file, err := os.Open(f.input)
			if err != nil {
				return errs.New(errs.InvalidInput, "main.scanWith", err)
			}
			defer file.Close()
			in = file
		}
		domains = streamer.New(in).All()
	}

	snapshot, err := oc.Run(ctx, domains)
	if err != nil {
		log.Error().Err(err).Msg("one or more sinks failed to flush")
	}
	log.Info().
		Int64("domains", snapshot.TotalDomains).
		Int64("successful", snapshot.SuccessfulQueries).
		Int64("failed", snapshot.FailedQueries).
		Dur("elapsed", snapshot.Elapsed).
		Msg("scan complete")

	return nil
}

func parseTypes(names []string) ([]recordtype.Type, error) {
	out := make([]recordtype.Type, 0, len(names))
	for _, n := range names {
		t, err := recordtype.Parse(n)
		if err != nil {
			return nil, errs.New(errs.InvalidInput, "main.parseTypes", err)
		}
		out = append(out, t)
	}
	return out, nil
}

// buildSinks parses each --sink DSN and constructs the matching backend.
// The returned closer releases every underlying client connection.
func buildSinks(ctx context.Context, dsns []string, runID string, cfg *config.Config) ([]sink.Sink, func(), error) {
	var sinks []sink.Sink
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	for _, dsn := range dsns {
		u, err := url.Parse(dsn)
		if err != nil {
			closeAll()
			return nil, nil, errs.New(errs.Validation, "main.buildSinks", fmt.Errorf("parse sink DSN %q: %w", dsn, err))
		}

		switch u.Scheme {
		case "mongo":
			client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
			if err != nil {
				closeAll()
				return nil, nil, errs.New(errs.Export, "main.buildSinks", err)
			}
			closers = append(closers, func() { _ = client.Disconnect(context.Background()) })

			database := strings.TrimPrefix(u.Path, "/")
			if database == "" {
				database = cfg.Mongo.Database
			}
			s, err := sink.NewDocumentSink(ctx, client, sink.DocumentConfig{
				Database:   database,
				Collection: cfg.Mongo.Collection,
				BatchSize:  cfg.ExportBatchSize,
				RunID:      runID,
			})
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, s)

		case "es":
			addr := "http://" + u.Host
			client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{addr}})
			if err != nil {
				closeAll()
				return nil, nil, errs.New(errs.Export, "main.buildSinks", err)
			}
			index := strings.TrimPrefix(u.Path, "/")
			if index == "" {
				index = cfg.Elastic.Index
			}
			s, err := sink.NewCollectionSink(ctx, client, sink.CollectionConfig{
				Index:     index,
				BatchSize: cfg.ExportBatchSize,
				RunID:     runID,
			})
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, s)

		case "cassandra":
			hosts := []string{u.Host}
			cluster := gocql.NewCluster(hosts...)
			keyspace := strings.TrimPrefix(u.Path, "/")
			if keyspace == "" {
				keyspace = cfg.Cassandra.Keyspace
			}
			cluster.Keyspace = keyspace
			session, err := cluster.CreateSession()
			if err != nil {
				closeAll()
				return nil, nil, errs.New(errs.Export, "main.buildSinks", err)
			}
			closers = append(closers, session.Close)

			s, err := sink.NewWideColumnSink(session, sink.WideColumnConfig{
				Keyspace:   keyspace,
				Table:      cfg.Cassandra.Table,
				NumWorkers: cfg.Cassandra.NumWorkers,
				RunID:      runID,
			})
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sinks = append(sinks, s)

		default:
			closeAll()
			return nil, nil, errs.New(errs.Validation, "main.buildSinks", fmt.Errorf("unknown sink scheme %q", u.Scheme))
		}
	}

	return sinks, closeAll, nil
}
