package preprocess

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"strconv"

	"github.com/bimmerbailey/logsplit/internal/config"
	"github.com/bimmerbailey/logsplit/internal/parser"
)

// Column names added to the layout headers in structured output.
const (
	ColumnLineID        = "LineId"
	ColumnDate          = "Date"
	ColumnTime          = "Time"
	ColumnLevel         = "Level"
	ColumnEventID       = "EventId"
	ColumnEventTemplate = "EventTemplate"
	ColumnOccurrences   = "Occurrences"
)

// Structurer turns raw log files into a structured log table.
//
// Lines are split by the layout, filtered by the time window, redacted and
// then clustered with Drain. Rows keep their input order and are written
// with the final template of their cluster.
type Structurer struct {
	layout   *parser.Layout
	parser   *parser.Parser
	redactor *Redactor
	drain    *Drain
	window   config.Window
	logger   *slog.Logger

	rows   []row
	stats  Stats
	levels map[string]int
}

type row struct {
	fields  map[string]string
	content string
	cluster *Cluster
}

// Stats summarizes a structuring run.
type Stats struct {
	Files     int `json:"files"`
	Lines     int `json:"lines"`
	Unmatched int `json:"unmatched"`
	Filtered  int `json:"filtered"`
	Redacted  int `json:"redacted"`
	// RedactedValues counts distinct values behind the Redacted replacements
	RedactedValues int `json:"redacted_values"`
	Templates      int `json:"templates"`
	// Levels counts kept lines per severity name
	Levels map[string]int `json:"levels,omitempty"`
}

// Option configures a Structurer.
type Option func(*Structurer)

// WithRedaction enables redaction with the named patterns. Matches of
// protect are left untouched.
func WithRedaction(patterns []string, protect string) Option {
	return func(s *Structurer) {
		s.redactor = NewRedactor(true, patterns)
		if err := s.redactor.Protect(protect); err != nil {
			s.logger.Warn("ignoring protected pattern", "error", err)
		}
	}
}

// WithDrainConfig configures the Drain parameters.
func WithDrainConfig(cfg DrainConfig) Option {
	return func(s *Structurer) {
		s.drain = NewDrain(cfg)
	}
}

// WithWindow keeps only lines whose timestamp falls inside w.
func WithWindow(w config.Window) Option {
	return func(s *Structurer) {
		s.window = w
	}
}

// WithTimestampFormats overrides the parser's timestamp formats.
func WithTimestampFormats(formats []string) Option {
	return func(s *Structurer) {
		s.parser = parser.New(s.layout, formats)
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Structurer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Structurer. A nil layout parses free-form lines, JSON
// objects included, and writes their timestamp and severity alongside
// Content.
func New(layout *parser.Layout, opts ...Option) *Structurer {
	s := &Structurer{
		layout:   layout,
		parser:   parser.New(layout, nil),
		redactor: NewRedactor(false, nil),
		drain:    NewDrain(DefaultDrainConfig),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		levels:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddFile structures every line of the file at path.
func (s *Structurer) AddFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	before := len(s.rows)
	if err := s.Add(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.stats.Files++
	s.logger.Info("structured file", "file", path, "lines", len(s.rows)-before, "unmatched", s.parser.Unmatched())
	return nil
}

// Add structures every line read from r.
func (s *Structurer) Add(r io.Reader) error {
	err := s.parser.ParseStream(r, func(e config.LogEntry) error {
		if !s.window.Contains(e.Timestamp) {
			s.stats.Filtered++
			return nil
		}
		s.levels[e.Level.String()]++
		if s.layout == nil {
			e.Fields = genericFields(e)
		}
		content := s.redactor.Redact(e.Content)
		s.rows = append(s.rows, row{
			fields:  e.Fields,
			content: content,
			cluster: s.drain.Add(content),
		})
		return nil
	})
	s.stats.Unmatched += s.parser.Unmatched()
	return err
}

// Stats returns the counts so far.
func (s *Structurer) Stats() Stats {
	st := s.stats
	st.Lines = len(s.rows)
	st.Redacted = s.redactor.Replaced()
	st.RedactedValues = s.redactor.Distinct()
	st.Templates = s.drain.Len()
	st.Levels = maps.Clone(s.levels)
	return st
}

// Free-form lines carry their timestamp and severity in Date, Time and
// Level columns so the time-bucket grouping can read them back.
func genericFields(e config.LogEntry) map[string]string {
	fields := e.Fields
	if fields == nil {
		fields = make(map[string]string, 3)
	}
	if !e.Timestamp.IsZero() {
		fields[ColumnDate] = e.Timestamp.Format("2006-01-02")
		fields[ColumnTime] = e.Timestamp.Format("15:04:05.000")
	}
	fields[ColumnLevel] = e.Level.String()
	return fields
}

// Headers returns the structured table columns.
func (s *Structurer) Headers() []string {
	cols := []string{ColumnLineID}
	if s.layout != nil {
		cols = append(cols, s.layout.Headers...)
	} else {
		cols = append(cols, ColumnDate, ColumnTime, ColumnLevel, parser.HeaderContent)
	}
	return append(cols, ColumnEventID, ColumnEventTemplate)
}

// WriteCSV writes the structured table. LineId counts kept rows from 1.
func (s *Structurer) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	headers := s.Headers()
	if err := cw.Write(headers); err != nil {
		return err
	}

	rec := make([]string, len(headers))
	for i, r := range s.rows {
		for j, h := range headers {
			switch h {
			case ColumnLineID:
				rec[j] = strconv.Itoa(i + 1)
			case parser.HeaderContent:
				rec[j] = r.content
			case ColumnEventID:
				rec[j] = r.cluster.ID
			case ColumnEventTemplate:
				rec[j] = r.cluster.Template()
			default:
				rec[j] = r.fields[h]
			}
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTemplates writes one row per template, most frequent first.
func (s *Structurer) WriteTemplates(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnEventID, ColumnEventTemplate, ColumnOccurrences}); err != nil {
		return err
	}
	for _, c := range s.drain.Clusters() {
		if err := cw.Write([]string{c.ID, c.Template(), strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Templates returns the mined clusters, most frequent first.
func (s *Structurer) Templates() []*Cluster {
	return s.drain.Clusters()
}
