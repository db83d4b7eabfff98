// Package ingest reads structured log tables into typed records.
//
// A structured log is a delimited text file whose header names the columns
// (EventTemplate, Content, Date, Time, Label, ...). Ingestion validates that
// the columns a grouping strategy needs are present and coerces raw label
// tokens into 0/1. No other transformation is applied.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Column names used by the structured log formats.
const (
	ColumnTemplate = "EventTemplate"
	ColumnContent  = "Content"
	ColumnDate     = "Date"
	ColumnTime     = "Time"
	ColumnLabel    = "Label"
	ColumnBlockID  = "BlockId"
	ColumnDatetime = "Datetime"
)

// Record is one ingested log line.
type Record struct {
	Template string `json:"template"`
	Content  string `json:"content,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	RawLabel string `json:"raw_label,omitempty"`
	Label    int    `json:"label"`
	Line     int    `json:"line"`
}

// LabelRule normalizes a raw label token to 0 or 1.
//
// When AnomalyToken is set a token is anomalous only if it equals it exactly.
// Otherwise every token other than NormalToken is anomalous.
type LabelRule struct {
	AnomalyToken string
	NormalToken  string
}

// AnomalyTokenRule marks exactly the given token as anomalous.
func AnomalyTokenRule(token string) LabelRule {
	return LabelRule{AnomalyToken: token}
}

// NormalTokenRule marks every token except the given one as anomalous.
func NormalTokenRule(token string) LabelRule {
	return LabelRule{NormalToken: token}
}

// Apply returns the binary label for a raw token.
func (r LabelRule) Apply(token string) int {
	if r.AnomalyToken != "" {
		if token == r.AnomalyToken {
			return 1
		}
		return 0
	}
	if token != r.NormalToken {
		return 1
	}
	return 0
}

// Schema describes the columns to read from a structured log.
type Schema struct {
	Delimiter      rune
	Required       []string
	TemplateColumn string
	ContentColumn  string
	DateColumn     string
	TimeColumn     string
	LabelColumn    string
	Label          LabelRule
}

// MultiIDSchema is the schema for logs grouped by identifiers found in Content.
func MultiIDSchema() Schema {
	return Schema{
		Required:       []string{ColumnTemplate, ColumnContent},
		TemplateColumn: ColumnTemplate,
		ContentColumn:  ColumnContent,
	}
}

// TimeBucketSchema is the schema for logs grouped by rounded timestamps.
func TimeBucketSchema() Schema {
	return Schema{
		Required:       []string{ColumnDate, ColumnTime, ColumnTemplate},
		TemplateColumn: ColumnTemplate,
		DateColumn:     ColumnDate,
		TimeColumn:     ColumnTime,
	}
}

// FlatSchema is the schema for a single labeled sequence with inline labels.
// A "-" label means normal.
func FlatSchema() Schema {
	return Schema{
		Required:       []string{ColumnTemplate, ColumnLabel},
		TemplateColumn: ColumnTemplate,
		LabelColumn:    ColumnLabel,
		Label:          NormalTokenRule("-"),
	}
}

// ReadFile opens a structured log and reads all records from it.
func ReadFile(path string, s Schema) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := Read(f, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Read parses a structured log from r. The first row must be the header.
func Read(r io.Reader, s Schema) ([]Record, error) {
	cr := newReader(r, s.Delimiter)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(s.Required) == 0 {
				return nil, nil
			}
			return nil, &SchemaError{Missing: s.Required}
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	idx := indexColumns(header)
	if err := requireColumns(idx, s.Required); err != nil {
		return nil, err
	}

	get := func(row []string, col string) string {
		if col == "" {
			return ""
		}
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []Record
	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		line++

		rec := Record{
			Template: get(row, s.TemplateColumn),
			Content:  get(row, s.ContentColumn),
			Date:     get(row, s.DateColumn),
			Time:     get(row, s.TimeColumn),
			Line:     line,
		}
		if s.LabelColumn != "" {
			rec.RawLabel = get(row, s.LabelColumn)
			rec.Label = s.Label.Apply(rec.RawLabel)
		}
		records = append(records, rec)
	}

	return records, nil
}

func newReader(r io.Reader, delim rune) *csv.Reader {
	cr := csv.NewReader(r)
	if delim != 0 {
		cr.Comma = delim
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := idx[name]; !ok {
			idx[name] = i
		}
	}
	return idx
}

func requireColumns(idx map[string]int, required []string) error {
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}
