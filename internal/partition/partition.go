// Package partition splits sessions or rows into training and test sets.
//
// Both modes take a head window for training and a tail window for testing
// over the (optionally shuffled) order. Anomalous training items are kept
// with probability TrainAnomalyRatio, one independent coin flip per item.
// Row partitioning can additionally drop normal test rows whose template
// never occurs in the final training rows.
//
// All randomness comes from the RNG passed to New; the package never seeds
// or falls back to a global source.
package partition

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/bimmerbailey/logsplit/internal/ingest"
	"github.com/bimmerbailey/logsplit/internal/session"
)

// RNG is the random source used for shuffling and coin flips.
// *math/rand/v2.Rand satisfies it.
type RNG interface {
	Shuffle(n int, swap func(i, j int))
	Float64() float64
}

// Coin returns true with probability p.
func Coin(rng RNG, p float64) bool {
	return rng.Float64() < p
}

// Result is a complete train/test split.
type Result struct {
	Train *session.Collection
	Test  *session.Collection
	Stats Stats
}

// Partitioner splits collections under fixed options.
type Partitioner struct {
	opts   Options
	rng    RNG
	logger *slog.Logger
}

// New validates opts and returns a Partitioner drawing from rng.
func New(opts Options, rng RNG, logger *slog.Logger) (*Partitioner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, &ConfigError{Field: "rng", Reason: "must not be nil"}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Partitioner{opts: opts, rng: rng, logger: logger}, nil
}

// Sessions splits a collection by session id. Training ids are the first
// floor(train_ratio*N) ids and test ids the last floor(test_ratio*N) ids of
// the build order, or of a shuffled order when RandomPartition is set.
func (p *Partitioner) Sessions(c *session.Collection) (*Result, error) {
	ids := c.IDs()
	if p.opts.RandomPartition {
		p.logger.Info("using random partition")
		p.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	}

	trainN, testN, err := p.opts.counts(len(ids))
	if err != nil {
		return nil, err
	}
	trainIDs := ids[:trainN]
	testIDs := ids[len(ids)-testN:]

	kept := make([]string, 0, len(trainIDs))
	for _, id := range trainIDs {
		s, _ := c.Get(id)
		if s.Label == 0 || Coin(p.rng, p.opts.TrainAnomalyRatio) {
			kept = append(kept, id)
		}
	}

	train, err := c.Subset(kept)
	if err != nil {
		return nil, fmt.Errorf("building train partition: %w", err)
	}
	test, err := c.Subset(testIDs)
	if err != nil {
		return nil, fmt.Errorf("building test partition: %w", err)
	}

	stats := newStats(UnitSessions, len(ids),
		train.Len(), train.Anomalies(),
		test.Len(), test.Anomalies())
	p.report(stats)

	return &Result{Train: train, Test: test, Stats: stats}, nil
}

// Rows splits a flat labeled sequence by row index. Each partition is a
// collection holding one pre-segmented session with per-row labels.
func (p *Partitioner) Rows(records []ingest.Record) (*Result, error) {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	if p.opts.RandomPartition {
		p.logger.Info("using random partition")
		p.rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	trainN, testN, err := p.opts.counts(len(idx))
	if err != nil {
		return nil, err
	}
	trainIdx := idx[:trainN]
	testIdx := idx[len(idx)-testN:]

	kept := make([]int, 0, len(trainIdx))
	for _, i := range trainIdx {
		if records[i].Label == 0 || Coin(p.rng, p.opts.TrainAnomalyRatio) {
			kept = append(kept, i)
		}
	}

	if p.opts.FilterUnseen {
		p.logger.Info("filtering unseen normal templates", "test_lines", len(testIdx))
		testIdx = filterUnseen(records, kept, testIdx)
	}

	train, err := segment(records, kept)
	if err != nil {
		return nil, fmt.Errorf("building train partition: %w", err)
	}
	test, err := segment(records, testIdx)
	if err != nil {
		return nil, fmt.Errorf("building test partition: %w", err)
	}

	stats := newStats(UnitLines, len(idx),
		len(kept), countAnomalies(records, kept),
		len(testIdx), countAnomalies(records, testIdx))
	p.report(stats)

	return &Result{Train: train, Test: test, Stats: stats}, nil
}

// filterUnseen keeps every anomalous test row and the normal test rows
// whose template occurs among the training rows.
func filterUnseen(records []ingest.Record, trainIdx, testIdx []int) []int {
	seen := make(map[string]struct{}, len(trainIdx))
	for _, i := range trainIdx {
		seen[records[i].Template] = struct{}{}
	}

	out := make([]int, 0, len(testIdx))
	for _, i := range testIdx {
		if records[i].Label == 0 {
			if _, ok := seen[records[i].Template]; !ok {
				continue
			}
		}
		out = append(out, i)
	}
	return out
}

func segment(records []ingest.Record, idx []int) (*session.Collection, error) {
	templates := make([]string, len(idx))
	labels := make([]int, len(idx))
	for k, i := range idx {
		templates[k] = records[i].Template
		labels[k] = records[i].Label
	}
	return session.NewCollection(session.NewSegment(session.DefaultSegmentID, templates, labels))
}

func countAnomalies(records []ingest.Record, idx []int) int {
	n := 0
	for _, i := range idx {
		n += records[i].Label
	}
	return n
}

func (p *Partitioner) report(s Stats) {
	p.logger.Info("partition complete",
		"unit", s.Unit,
		"total", s.Total,
		"train", s.TrainCount,
		"train_anomaly_pct", fmt.Sprintf("%.2f", s.TrainAnomalyPct),
		"test", s.TestCount,
		"test_anomaly_pct", fmt.Sprintf("%.2f", s.TestAnomalyPct),
	)
	if s.TrainEmpty {
		p.logger.Warn("train partition is empty", "unit", s.Unit)
	}
	if s.TestEmpty {
		p.logger.Warn("test partition is empty", "unit", s.Unit)
	}
}
