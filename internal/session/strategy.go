package session

import (
	"fmt"
	"regexp"
	"time"

	"github.com/bimmerbailey/logsplit/internal/ingest"
)

// KeyStrategy maps a record to the sessions it belongs to.
// Implementations are deterministic and never reorder records.
type KeyStrategy interface {
	Keys(rec ingest.Record) ([]string, error)
}

// DefaultIDPattern matches HDFS block identifiers such as blk_-123.
const DefaultIDPattern = `blk_-?\d+`

// MultiID groups records by every identifier found in their content.
// A record that mentions several identifiers belongs to each of them.
type MultiID struct {
	Pattern *regexp.Regexp
}

// NewMultiID compiles pattern, or DefaultIDPattern when empty.
func NewMultiID(pattern string) (*MultiID, error) {
	if pattern == "" {
		pattern = DefaultIDPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ParseError{Input: pattern, Err: err}
	}
	return &MultiID{Pattern: re}, nil
}

// Keys returns the distinct identifiers in rec.Content in first-occurrence
// order. A record without identifiers yields no keys.
func (m *MultiID) Keys(rec ingest.Record) ([]string, error) {
	matches := m.Pattern.FindAllString(rec.Content, -1)
	if len(matches) <= 1 {
		return matches, nil
	}

	seen := make(map[string]struct{}, len(matches))
	keys := matches[:0]
	for _, id := range matches {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id)
	}
	return keys, nil
}

// BucketKeyLayout is the layout of time-bucket session keys and of the
// Datetime column in time-bucket label tables.
const BucketKeyLayout = "2006-01-02 15:04:05"

var datetimePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)

// TimeBucket groups records into 30 second buckets of their Date and Time
// columns.
type TimeBucket struct{}

// Keys returns the single bucket key of rec.
func (TimeBucket) Keys(rec ingest.Record) ([]string, error) {
	t, err := ParseDatetime(rec.Date + " " + rec.Time)
	if err != nil {
		return nil, &ParseError{Line: rec.Line, Input: rec.Date + " " + rec.Time, Err: err}
	}
	return []string{BucketKey(t)}, nil
}

// ParseDatetime finds the first "YYYY-MM-DD hh:mm:ss" in s and parses it.
func ParseDatetime(s string) (time.Time, error) {
	match := datetimePattern.FindString(s)
	if match == "" {
		return time.Time{}, fmt.Errorf("no datetime matching %s", BucketKeyLayout)
	}
	return time.Parse(BucketKeyLayout, match)
}

// BucketKey rounds t down to its bucket: seconds up to and including 30
// map to :00, later seconds map to :30.
func BucketKey(t time.Time) string {
	sec := 0
	if t.Second() > 30 {
		sec = 30
	}
	b := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), sec, 0, t.Location())
	return b.Format(BucketKeyLayout)
}

// DefaultSegmentID is the session id used by Identity.
const DefaultSegmentID = "all"

// Identity treats the whole corpus as one pre-segmented session.
type Identity struct {
	ID string
}

// Keys always returns the constant segment id.
func (i Identity) Keys(ingest.Record) ([]string, error) {
	if i.ID == "" {
		return []string{DefaultSegmentID}, nil
	}
	return []string{i.ID}, nil
}
