// Package output renders split results, split reports and structuring
// summaries. It supports text, JSON, and table formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bimmerbailey/logsplit/internal/analyzer"
	"github.com/bimmerbailey/logsplit/internal/config"
	"github.com/bimmerbailey/logsplit/internal/partition"
	"github.com/bimmerbailey/logsplit/internal/preprocess"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	default:
		return FormatText
	}
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
	color  bool
}

// New creates a new output Writer without color.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// WithColor enables color for text and table output according to mode.
func (wr *Writer) WithColor(mode ColorMode) *Writer {
	wr.color = shouldColorize(mode, wr.w) && wr.format != FormatJSON
	return wr
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v any) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// SplitResult is the outcome of one split run.
type SplitResult struct {
	RunID   string          `json:"run_id,omitempty"`
	Dataset string          `json:"dataset"`
	Dir     string          `json:"dir,omitempty"`
	Stats   partition.Stats `json:"stats"`
}

// WriteSplit outputs the sizes and anomaly ratios of a split.
func (wr *Writer) WriteSplit(r SplitResult) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(r)
	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "PARTITION\t%s\tANOMALIES\tANOMALY%%\n", strings.ToUpper(string(r.Stats.Unit)))
		fmt.Fprintln(tw, "---------\t-----\t---------\t--------")
		fmt.Fprintf(tw, "train\t%d\t%s\t%.2f\n", r.Stats.TrainCount,
			wr.paint(anomalyLevel(r.Stats.TrainAnomalies), fmt.Sprint(r.Stats.TrainAnomalies)), r.Stats.TrainAnomalyPct)
		fmt.Fprintf(tw, "test\t%d\t%s\t%.2f\n", r.Stats.TestCount,
			wr.paint(anomalyLevel(r.Stats.TestAnomalies), fmt.Sprint(r.Stats.TestAnomalies)), r.Stats.TestAnomalyPct)
		fmt.Fprintf(tw, "total\t%d\t\t\n", r.Stats.Total)
		return tw.Flush()
	default:
		fmt.Fprintf(wr.w, "%s split by %s", r.Dataset, r.Stats.Unit)
		if r.Dir != "" {
			fmt.Fprintf(wr.w, " -> %s", r.Dir)
		}
		fmt.Fprintln(wr.w)
		if r.RunID != "" {
			fmt.Fprintf(wr.w, "  run:    %s\n", r.RunID)
		}
		fmt.Fprintf(wr.w, "  total:  %d\n", r.Stats.Total)
		wr.partitionLine("train", r.Stats.TrainCount, r.Stats.TrainAnomalies, r.Stats.TrainAnomalyPct)
		wr.partitionLine("test", r.Stats.TestCount, r.Stats.TestAnomalies, r.Stats.TestAnomalyPct)
		if r.Stats.TrainEmpty {
			fmt.Fprintln(wr.w, wr.paint(config.LevelWarn, "  warning: train partition is empty"))
		}
		if r.Stats.TestEmpty {
			fmt.Fprintln(wr.w, wr.paint(config.LevelWarn, "  warning: test partition is empty"))
		}
		return nil
	}
}

func (wr *Writer) partitionLine(name string, count, anomalies int, pct float64) {
	anom := wr.paint(anomalyLevel(anomalies), fmt.Sprintf("%d anomalies", anomalies))
	fmt.Fprintf(wr.w, "  %-6s  %d (%s, %.2f%%)\n", name+":", count, anom, pct)
}

// Report is a persisted split as shown by the stats command.
type Report struct {
	Dir     string                 `json:"dir"`
	Dataset string                 `json:"dataset,omitempty"`
	RunID   string                 `json:"run_id,omitempty"`
	Split   analyzer.SplitReport   `json:"split"`
	Windows []analyzer.WindowStats `json:"windows,omitempty"`
}

// WriteReport outputs a split report.
func (wr *Writer) WriteReport(r Report) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(r)
	case FormatTable:
		return wr.writeReportTable(r)
	default:
		return wr.writeReportText(r)
	}
}

func (wr *Writer) writeReportText(r Report) error {
	title := r.Dir
	if r.Dataset != "" {
		title = fmt.Sprintf("%s (%s)", r.Dir, r.Dataset)
	}
	fmt.Fprintf(wr.w, "Split: %s\n", title)
	if r.RunID != "" {
		fmt.Fprintf(wr.w, "Run:   %s\n", r.RunID)
	}

	for _, part := range []struct {
		name string
		s    analyzer.Summary
	}{{"Train", r.Split.Train}, {"Test", r.Split.Test}} {
		fmt.Fprintf(wr.w, "\n%s\n", part.name)
		fmt.Fprintf(wr.w, "  sessions:   %d (%s, %.2f%%)\n", part.s.Sessions,
			wr.paint(anomalyLevel(part.s.Anomalies), fmt.Sprintf("%d anomalous", part.s.Anomalies)), part.s.AnomalyPct)
		if part.s.AnomalousRows > 0 {
			fmt.Fprintf(wr.w, "  rows:       %d anomalous of %d\n", part.s.AnomalousRows, part.s.Events)
		}
		fmt.Fprintf(wr.w, "  events:     %d (%d templates)\n", part.s.Events, part.s.UniqueTemplates)
		fmt.Fprintf(wr.w, "  length:     min %d, max %d, mean %.1f\n", part.s.MinLength, part.s.MaxLength, part.s.MeanLength)
		if len(part.s.TopTemplates) > 0 {
			fmt.Fprintln(wr.w, "  top templates:")
			for _, t := range part.s.TopTemplates {
				fmt.Fprintf(wr.w, "    %6d  %5.1f%%  %s\n", t.Count, t.Percent, truncate(t.Template, 100))
			}
		}
	}

	unseen := fmt.Sprintf("\nUnseen in training: %d templates, %d events\n", r.Split.UnseenTemplates, r.Split.UnseenEvents)
	if r.Split.UnseenTemplates > 0 {
		unseen = wr.paint(config.LevelWarn, unseen)
	}
	fmt.Fprint(wr.w, unseen)

	if len(r.Windows) > 0 {
		fmt.Fprintln(wr.w, "\nTest windows:")
		for _, w := range r.Windows {
			fmt.Fprintf(wr.w, "  %s  %4d sessions  %4d anomalous  %+7.1f%%\n",
				w.Start.Format("2006-01-02 15:04:05"), w.Sessions, w.Anomalies, w.ChangePct)
		}
	}
	return nil
}

func (wr *Writer) writeReportTable(r Report) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTITION\tSESSIONS\tANOMALIES\tANOMALY%\tEVENTS\tTEMPLATES\tMEAN LEN")
	fmt.Fprintln(tw, "---------\t--------\t---------\t--------\t------\t---------\t--------")
	for _, part := range []struct {
		name string
		s    analyzer.Summary
	}{{"train", r.Split.Train}, {"test", r.Split.Test}} {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f\t%d\t%d\t%.1f\n",
			part.name, part.s.Sessions,
			wr.paint(anomalyLevel(part.s.Anomalies), fmt.Sprint(part.s.Anomalies)),
			part.s.AnomalyPct, part.s.Events, part.s.UniqueTemplates, part.s.MeanLength)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(wr.w, "\nunseen test templates: %d (%d events)\n", r.Split.UnseenTemplates, r.Split.UnseenEvents)
	return nil
}

// WriteStructure outputs a structuring summary with the topN templates.
func (wr *Writer) WriteStructure(out string, st preprocess.Stats, clusters []*preprocess.Cluster, topN int) error {
	if topN >= 0 && len(clusters) > topN {
		clusters = clusters[:topN]
	}

	switch wr.format {
	case FormatJSON:
		type tmpl struct {
			ID       string `json:"event_id"`
			Template string `json:"template"`
			Count    int    `json:"count"`
		}
		templates := make([]tmpl, len(clusters))
		for i, c := range clusters {
			templates[i] = tmpl{ID: c.ID, Template: c.Template(), Count: c.Count}
		}
		return wr.WriteJSON(struct {
			Output    string           `json:"output"`
			Stats     preprocess.Stats `json:"stats"`
			Templates []tmpl           `json:"templates"`
		}{out, st, templates})
	case FormatTable:
		tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EVENT\tCOUNT\tTEMPLATE")
		fmt.Fprintln(tw, "-----\t-----\t--------")
		for _, c := range clusters {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", c.ID, c.Count, truncate(c.Template(), 80))
		}
		return tw.Flush()
	default:
		fmt.Fprintf(wr.w, "Structured %d lines from %d files into %d templates -> %s\n",
			st.Lines, st.Files, st.Templates, out)
		if st.Unmatched > 0 {
			fmt.Fprintln(wr.w, wr.paint(config.LevelWarn, fmt.Sprintf("  %d lines did not match the layout", st.Unmatched)))
		}
		if st.Filtered > 0 {
			fmt.Fprintf(wr.w, "  %d lines outside the time window\n", st.Filtered)
		}
		if st.Redacted > 0 {
			fmt.Fprintf(wr.w, "  %d values redacted (%d distinct)\n", st.Redacted, st.RedactedValues)
		}
		if mix := wr.levelMix(st.Levels); mix != "" {
			fmt.Fprintf(wr.w, "  levels: %s\n", mix)
		}
		for _, c := range clusters {
			fmt.Fprintf(wr.w, "  %-6s %8d  %s\n", c.ID, c.Count, truncate(c.Template(), 100))
		}
		return nil
	}
}

// levelMix lists severity counts from DEBUG to FATAL, each in its level's
// color. Lines without a recognized severity are left out.
func (wr *Writer) levelMix(levels map[string]int) string {
	var parts []string
	for l := config.LevelDebug; l < config.LevelUnknown; l++ {
		if n := levels[l.String()]; n > 0 {
			parts = append(parts, wr.paint(l, fmt.Sprintf("%s %d", l, n)))
		}
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
