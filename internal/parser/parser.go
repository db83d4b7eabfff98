// Package parser splits raw log lines into header fields.
//
// With a Layout each line is matched against the layout's header pattern
// and lines that do not fit are skipped. Without one, the parser falls back
// to JSON or generic lines, taking the timestamp from the start of the line
// and the whole line as Content.
package parser

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bimmerbailey/logsplit/internal/config"
)

// maxLineSize bounds a single log line.
const maxLineSize = 4 * 1024 * 1024

// DefaultTimestampFormats covers generic lines and the Date/Time headers of
// the built-in layouts.
var DefaultTimestampFormats = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"060102 150405",
	"2006-01-02-15.04.05.000000",
	"Jan 02 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
}

// Parser reads and parses log files into entries.
type Parser struct {
	layout           *Layout
	timestampFormats []string
	unmatched        int
}

// New creates a Parser. A nil layout selects generic parsing; empty
// timestampFormats selects DefaultTimestampFormats.
func New(layout *Layout, timestampFormats []string) *Parser {
	if len(timestampFormats) == 0 {
		timestampFormats = DefaultTimestampFormats
	}
	return &Parser{layout: layout, timestampFormats: timestampFormats}
}

// Unmatched returns how many lines the last parse skipped because they did
// not fit the layout.
func (p *Parser) Unmatched() int {
	return p.unmatched
}

// ParseFile opens a file and parses all log entries from it.
func (p *Parser) ParseFile(path string) ([]config.LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse reads log entries from the given reader.
func (p *Parser) Parse(r io.Reader) ([]config.LogEntry, error) {
	var entries []config.LogEntry
	err := p.ParseStream(r, func(e config.LogEntry) error {
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

// ParseStream calls fn for each entry in r. Line numbers count every line,
// including blank and skipped ones. An error from fn stops the scan.
func (p *Parser) ParseStream(r io.Reader, fn func(config.LogEntry) error) error {
	p.unmatched = 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, ok := p.ParseLine(line, lineNum)
		if !ok {
			p.unmatched++
			continue
		}
		if err := fn(entry); err != nil {
			return err
		}
	}

	return scanner.Err()
}

// ParseLine parses a single line. It returns false when a layout is set and
// the line does not fit it.
func (p *Parser) ParseLine(line string, lineNum int) (config.LogEntry, bool) {
	if p.layout != nil {
		return p.parseLayout(line, lineNum)
	}
	return p.parseGeneric(line, lineNum), true
}

func (p *Parser) parseLayout(line string, lineNum int) (config.LogEntry, bool) {
	fields, ok := p.layout.Split(line)
	if !ok {
		return config.LogEntry{}, false
	}

	entry := config.LogEntry{
		Raw:     line,
		Line:    lineNum,
		Content: fields[HeaderContent],
		Fields:  fields,
		Level:   config.LevelUnknown,
	}

	if lvl, ok := fields["Level"]; ok {
		entry.Level = config.ParseLevel(lvl)
	}
	if entry.Level == config.LevelUnknown {
		entry.Level = extractLevel(entry.Content)
	}
	entry.Timestamp = p.fieldTimestamp(fields)

	return entry, true
}

// fieldTimestamp derives a timestamp from the Date and Time headers, the
// Time header alone, or a unix Timestamp header, in that order.
func (p *Parser) fieldTimestamp(fields map[string]string) time.Time {
	date, hasDate := fields["Date"]
	tm, hasTime := fields["Time"]

	if hasDate && hasTime {
		if t := p.parseTimestamp(date + " " + tm); !t.IsZero() {
			return t
		}
	}
	if hasTime {
		if t := p.parseTimestamp(tm); !t.IsZero() {
			return t
		}
	}
	if raw, ok := fields["Timestamp"]; ok {
		if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return time.Unix(sec, 0).UTC()
		}
	}
	return time.Time{}
}

// parseGeneric handles lines outside any layout: JSON objects, or plain
// text with an optional timestamp prefix.
func (p *Parser) parseGeneric(line string, lineNum int) config.LogEntry {
	entry := config.LogEntry{
		Raw:     line,
		Line:    lineNum,
		Content: line,
		Fields:  make(map[string]string),
	}
	if obj, ok := decodeObject(line); ok {
		p.fillFromObject(&entry, obj)
		return entry
	}
	entry.Timestamp = p.prefixTimestamp(line)
	entry.Level = extractLevel(line)
	return entry
}

// Keys that structured loggers commonly use for the well-known fields. The
// first present key wins.
var (
	messageKeys = []string{"msg", "message", "text"}
	levelKeys   = []string{"level", "severity", "lvl"}
	timeKeys    = []string{"time", "timestamp", "ts", "@timestamp"}
)

func decodeObject(line string) (map[string]any, bool) {
	if !strings.HasPrefix(line, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func (p *Parser) fillFromObject(entry *config.LogEntry, obj map[string]any) {
	entry.Content = ""
	entry.Level = config.LevelUnknown
	if v, ok := firstString(obj, messageKeys); ok {
		entry.Content = v
	}
	if v, ok := firstString(obj, levelKeys); ok {
		entry.Level = config.ParseLevel(v)
	}
	if v, ok := firstString(obj, timeKeys); ok {
		entry.Timestamp = p.parseTimestamp(v)
	}

	for k, v := range obj {
		if isWellKnownKey(k) {
			continue
		}
		if s, ok := v.(string); ok {
			entry.Fields[k] = s
		}
	}
}

func firstString(obj map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k].(string); ok {
			return v, true
		}
	}
	return "", false
}

func isWellKnownKey(k string) bool {
	return slices.Contains(messageKeys, k) || slices.Contains(levelKeys, k) || slices.Contains(timeKeys, k)
}

var levelPattern = regexp.MustCompile(`(?i)\b(DEBUG|INFO|WARN(?:ING)?|ERROR|FATAL|CRITICAL|SEVERE|FAILURE)\b`)

// extractLevel returns the first severity word found in text.
func extractLevel(text string) config.LogLevel {
	return config.ParseLevel(levelPattern.FindString(text))
}

// prefixTimestamp tries each format against the start of the line.
func (p *Parser) prefixTimestamp(line string) time.Time {
	for _, format := range p.timestampFormats {
		if len(line) < len(format) {
			continue
		}
		if t, err := time.Parse(format, line[:len(format)]); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (p *Parser) parseTimestamp(s string) time.Time {
	for _, format := range p.timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
