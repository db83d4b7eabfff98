// Package analyzer summarizes session collections and train/test splits:
// sizes, anomaly ratios, template frequencies, and how many test templates
// were never seen in training.
package analyzer

import (
	"sort"
	"time"

	"github.com/bimmerbailey/logsplit/internal/partition"
	"github.com/bimmerbailey/logsplit/internal/session"
)

// Summary holds aggregate statistics for one collection.
type Summary struct {
	Sessions        int             `json:"sessions"`
	Anomalies       int             `json:"anomalies"`
	AnomalyPct      float64         `json:"anomaly_pct"`
	Events          int             `json:"events"`
	AnomalousRows   int             `json:"anomalous_rows,omitempty"`
	UniqueTemplates int             `json:"unique_templates"`
	MinLength       int             `json:"min_length"`
	MaxLength       int             `json:"max_length"`
	MeanLength      float64         `json:"mean_length"`
	TopTemplates    []TemplateCount `json:"top_templates,omitempty"`
}

// TemplateCount tracks a template and how often it occurs.
type TemplateCount struct {
	Template string  `json:"template"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// SplitReport compares the two halves of a split.
type SplitReport struct {
	Train Summary `json:"train"`
	Test  Summary `json:"test"`
	// UnseenTemplates counts distinct test templates absent from training.
	UnseenTemplates int `json:"unseen_templates"`
	// UnseenEvents counts test events whose template is absent from training.
	UnseenEvents int `json:"unseen_events"`
}

// WindowStats holds session counts for one time window.
type WindowStats struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Sessions   int       `json:"sessions"`
	Anomalies  int       `json:"anomalies"`
	AnomalyPct float64   `json:"anomaly_pct"`
	ChangePct  float64   `json:"change_pct"` // Change in sessions from previous window
}

// Analyzer computes summaries of session collections.
type Analyzer struct{}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{}
}

// Summarize computes statistics for c, keeping the topN most frequent
// templates.
func (a *Analyzer) Summarize(c *session.Collection, topN int) Summary {
	s := Summary{Sessions: c.Len(), Anomalies: c.Anomalies()}
	s.AnomalyPct = partition.Percent(s.Anomalies, s.Sessions)
	if s.Sessions == 0 {
		return s
	}

	counts := templateCounts(c)
	s.MinLength = -1
	for _, sess := range c.All() {
		n := len(sess.Templates)
		s.Events += n
		for _, l := range sess.RowLabels {
			s.AnomalousRows += l
		}
		if s.MinLength < 0 || n < s.MinLength {
			s.MinLength = n
		}
		if n > s.MaxLength {
			s.MaxLength = n
		}
	}
	s.MeanLength = float64(s.Events) / float64(s.Sessions)
	s.UniqueTemplates = len(counts)
	s.TopTemplates = topTemplates(counts, s.Events, topN)

	return s
}

// CompareSplit summarizes both partitions and counts test templates never
// seen in training.
func (a *Analyzer) CompareSplit(train, test *session.Collection, topN int) SplitReport {
	r := SplitReport{
		Train: a.Summarize(train, topN),
		Test:  a.Summarize(test, topN),
	}

	seen := templateCounts(train)
	unseen := make(map[string]struct{})
	for _, sess := range test.All() {
		for _, t := range sess.Templates {
			if _, ok := seen[t]; !ok {
				unseen[t] = struct{}{}
				r.UnseenEvents++
			}
		}
	}
	r.UnseenTemplates = len(unseen)
	return r
}

// AnalyzeByWindow groups time-bucket sessions into windows of the given
// width. Sessions whose id is not a datetime are skipped.
func (a *Analyzer) AnalyzeByWindow(c *session.Collection, window time.Duration) []WindowStats {
	if c.Len() == 0 || window <= 0 {
		return nil
	}

	type stamped struct {
		t     time.Time
		label int
	}
	var items []stamped
	var minTime, maxTime time.Time
	for id, sess := range c.All() {
		t, err := session.ParseDatetime(id)
		if err != nil {
			continue
		}
		items = append(items, stamped{t: t, label: sess.Label})
		if minTime.IsZero() || t.Before(minTime) {
			minTime = t
		}
		if maxTime.IsZero() || t.After(maxTime) {
			maxTime = t
		}
	}
	if len(items) == 0 {
		return nil
	}

	start := minTime.Truncate(window)
	var windows []WindowStats
	for cur := start; !cur.After(maxTime); cur = cur.Add(window) {
		windows = append(windows, WindowStats{Start: cur, End: cur.Add(window)})
	}

	for _, it := range items {
		i := int(it.t.Sub(start) / window)
		if i >= 0 && i < len(windows) {
			windows[i].Sessions++
			windows[i].Anomalies += it.label
		}
	}

	for i := range windows {
		windows[i].AnomalyPct = partition.Percent(windows[i].Anomalies, windows[i].Sessions)
		if i > 0 && windows[i-1].Sessions > 0 {
			windows[i].ChangePct = float64(windows[i].Sessions-windows[i-1].Sessions) * 100 / float64(windows[i-1].Sessions)
		}
	}

	return windows
}

func templateCounts(c *session.Collection) map[string]int {
	counts := make(map[string]int)
	for _, sess := range c.All() {
		for _, t := range sess.Templates {
			counts[t]++
		}
	}
	return counts
}

// topTemplates returns the n most frequent templates, ties broken by
// template text so output is stable.
func topTemplates(counts map[string]int, total, n int) []TemplateCount {
	out := make([]TemplateCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TemplateCount{Template: t, Count: c, Percent: partition.Percent(c, total)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Template < out[j].Template
	})

	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
