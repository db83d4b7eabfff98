// Package dataset wires ingestion, session building and partitioning for
// each supported log dataset shape.
//
//	HDFS       multi-id:    sessions keyed by every blk_ id in Content
//	OpenStack  time-bucket: sessions keyed by 30 second Date+Time buckets
//	BGL        segment:     one flat sequence split by row index
package dataset

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/bimmerbailey/logsplit/internal/ingest"
	"github.com/bimmerbailey/logsplit/internal/partition"
	"github.com/bimmerbailey/logsplit/internal/session"
)

// Strategy names a session grouping strategy.
type Strategy string

const (
	StrategyMultiID    Strategy = "multi-id"
	StrategyTimeBucket Strategy = "time-bucket"
	StrategySegment    Strategy = "segment"
)

// Kind describes a supported dataset.
type Kind struct {
	Name       string
	Strategy   Strategy
	NeedsLabel bool
}

var kinds = map[string]Kind{
	"hdfs":      {Name: "HDFS", Strategy: StrategyMultiID, NeedsLabel: true},
	"openstack": {Name: "OpenStack", Strategy: StrategyTimeBucket, NeedsLabel: true},
	"bgl":       {Name: "BGL", Strategy: StrategySegment},
}

// Lookup returns the dataset kind for a case-insensitive name.
func Lookup(name string) (Kind, error) {
	k, ok := kinds[strings.ToLower(name)]
	if !ok {
		return Kind{}, fmt.Errorf("unknown dataset %q (must be one of %s)", name, strings.Join(Names(), ", "))
	}
	return k, nil
}

// Names lists the supported dataset names.
func Names() []string {
	names := make([]string, 0, len(kinds))
	for n := range kinds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Options locates a dataset's files and controls its split.
type Options struct {
	LogFile   string
	LabelFile string
	// IDPattern overrides the block id pattern for multi-id datasets.
	IDPattern string
	Partition partition.Options
}

// Load runs the pipeline for the named dataset.
func Load(name string, opts Options, rng partition.RNG, logger *slog.Logger) (*partition.Result, error) {
	k, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	switch k.Strategy {
	case StrategyMultiID:
		return LoadHDFS(opts, rng, logger)
	case StrategyTimeBucket:
		return LoadOpenStack(opts, rng, logger)
	default:
		return LoadBGL(opts, rng, logger)
	}
}

// LoadHDFS groups records by block id and splits the sessions.
func LoadHDFS(opts Options, rng partition.RNG, logger *slog.Logger) (*partition.Result, error) {
	logger = orDiscard(logger)
	p, err := partition.New(opts.Partition, rng, logger)
	if err != nil {
		return nil, err
	}
	strategy, err := session.NewMultiID(opts.IDPattern)
	if err != nil {
		return nil, err
	}

	logger.Info("loading HDFS logs", "file", opts.LogFile)
	return buildAndSplit(p, opts, ingest.MultiIDSchema(), ingest.ColumnBlockID, strategy, nil, logger)
}

// LoadOpenStack groups records into 30 second buckets and splits the
// sessions.
func LoadOpenStack(opts Options, rng partition.RNG, logger *slog.Logger) (*partition.Result, error) {
	logger = orDiscard(logger)
	p, err := partition.New(opts.Partition, rng, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("loading OpenStack logs", "file", opts.LogFile)
	return buildAndSplit(p, opts, ingest.TimeBucketSchema(), ingest.ColumnDatetime, session.TimeBucket{}, stripBrackets, logger)
}

// LoadBGL splits a flat labeled log by row index.
func LoadBGL(opts Options, rng partition.RNG, logger *slog.Logger) (*partition.Result, error) {
	logger = orDiscard(logger)
	p, err := partition.New(opts.Partition, rng, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("loading BGL logs", "file", opts.LogFile)
	records, err := ingest.ReadFile(opts.LogFile, ingest.FlatSchema())
	if err != nil {
		return nil, err
	}
	logger.Info("lines loaded", "count", len(records))

	return p.Rows(records)
}

func buildAndSplit(
	p *partition.Partitioner,
	opts Options,
	schema ingest.Schema,
	labelKey string,
	strategy session.KeyStrategy,
	clean func(string) string,
	logger *slog.Logger,
) (*partition.Result, error) {
	records, err := ingest.ReadFile(opts.LogFile, schema)
	if err != nil {
		return nil, err
	}
	logger.Info("lines loaded", "count", len(records))

	table, err := ingest.LoadLabelTableFile(opts.LabelFile, labelKey, ingest.ColumnLabel, ingest.AnomalyTokenRule("Anomaly"))
	if err != nil {
		return nil, err
	}

	b := session.NewBuilder()
	for _, rec := range records {
		template := rec.Template
		if clean != nil {
			template = clean(template)
		}
		if err := b.AppendTemplate(strategy, rec, template); err != nil {
			return nil, err
		}
	}

	sessions, err := b.Finalize(session.ScalarLabels(table))
	if err != nil {
		return nil, err
	}
	logger.Info("sessions built", "total", sessions.Len())

	return p.Sessions(sessions)
}

func stripBrackets(s string) string {
	return strings.ReplaceAll(s, "[", "")
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
