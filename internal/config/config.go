// Package config loads the scanner's configuration from a YAML/JSON file,
// CLI flags, and DNSRECON_* environment variables, via viper.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cybersapien/dnsrecon/internal/errs"
)

// Config is the flat configuration record the scanner operates from.
type Config struct {
	Resolvers       []string      `mapstructure:"resolvers"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Retries         int           `mapstructure:"retries"`
	Concurrency     int           `mapstructure:"concurrency"`
	RateLimit       int           `mapstructure:"rate_limit"`
	ExportBatchSize int           `mapstructure:"export_batch_size"`

	CacheMaxSize   int           `mapstructure:"cache_max_size"`
	CacheDefaultTTL time.Duration `mapstructure:"cache_default_ttl"`

	WildcardThreshold int `mapstructure:"wildcard_threshold"`

	OutputFormat string `mapstructure:"output_format"`

	Mongo      MongoConfig      `mapstructure:"mongo"`
	Elastic    ElasticConfig    `mapstructure:"elastic"`
	Cassandra  CassandraConfig  `mapstructure:"cassandra"`
	SinksEnabled []string       `mapstructure:"sinks_enabled"`
}

// MongoConfig configures the Document Store sink.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// ElasticConfig configures the Collection Store sink.
type ElasticConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
}

// CassandraConfig configures the Wide-Column Store sink.
type CassandraConfig struct {
	Hosts      []string `mapstructure:"hosts"`
	Keyspace   string   `mapstructure:"keyspace"`
	Table      string   `mapstructure:"table"`
	NumWorkers int      `mapstructure:"num_workers"`
}

// defaults are the spec's documented defaults.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"resolvers":          []string{"8.8.8.8", "8.8.4.4", "1.1.1.1", "1.0.0.1", "9.9.9.9"},
		"timeout":            5 * time.Second,
		"retries":            3,
		"concurrency":        100,
		"rate_limit":         0,
		"export_batch_size":  1000,
		"cache_max_size":     10000,
		"cache_default_ttl":  300 * time.Second,
		"wildcard_threshold": 10,
		"output_format":      "plain",
	}
}

// Load builds a Config by merging, in increasing priority: built-in
// defaults, an optional config file, and flags already bound to fs.
// Environment variables prefixed DNSRECON_ override the file but not
// explicitly-set flags, matching viper's standard precedence.
func Load(configFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix("DNSRECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.New(errs.Validation, "config.Load", errors.Wrap(err, "read config file"))
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, errs.New(errs.Validation, "config.Load", errors.Wrap(err, "bind flags"))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.New(errs.Validation, "config.Load", errors.Wrap(err, "unmarshal config"))
	}

	if len(cfg.Resolvers) == 0 {
		return nil, errs.New(errs.Validation, "config.Load", errors.New("no resolvers configured"))
	}

	return &cfg, nil
}
