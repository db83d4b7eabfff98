package session

import (
	"errors"
	"testing"
	"time"

	"github.com/bimmerbailey/logsplit/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		label RawLabel
		want  int
	}{
		{"scalar zero", Scalar(0), 0},
		{"scalar one", Scalar(1), 1},
		{"empty sub-labels", SubLabels(nil), 0},
		{"all normal", SubLabels([]int{0, 0, 0}), 0},
		{"single anomaly", SubLabels([]int{0, 1, 0}), 1},
		{"many anomalies", SubLabels([]int{1, 1, 1}), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.label)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, []int{0, 1}, got)
		})
	}
}

func TestRawLabelKind(t *testing.T) {
	assert.Equal(t, KindScalar, Scalar(1).Kind())
	assert.Equal(t, KindSubLabels, SubLabels([]int{0, 1}).Kind())

	seg := NewSegment("all", []string{"a", "b"}, []int{0, 1})
	assert.Equal(t, Resolve(SubLabels(seg.RowLabels)), seg.Label)
}

func TestMultiIDFanOut(t *testing.T) {
	strategy, err := NewMultiID("")
	require.NoError(t, err)

	b := NewBuilder()
	rec := ingest.Record{
		Template: "T1",
		Content:  "Receiving blk_-123 src blk_456 dest blk_-123",
		Line:     1,
	}
	require.NoError(t, b.AppendRecord(strategy, rec))

	c, err := b.Finalize(ScalarLabels(map[string]int{"blk_-123": 0, "blk_456": 1}))
	require.NoError(t, err)

	assert.Equal(t, []string{"blk_-123", "blk_456"}, c.IDs())

	first, ok := c.Get("blk_-123")
	require.True(t, ok)
	assert.Equal(t, []string{"T1"}, first.Templates)
	assert.Equal(t, 0, first.Label)

	second, ok := c.Get("blk_456")
	require.True(t, ok)
	assert.Equal(t, []string{"T1"}, second.Templates)
	assert.Equal(t, 1, second.Label)
}

func TestMultiIDNoMatch(t *testing.T) {
	strategy, err := NewMultiID("")
	require.NoError(t, err)

	keys, err := strategy.Keys(ingest.Record{Content: "no identifiers here"})
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMultiIDInvalidPattern(t *testing.T) {
	_, err := NewMultiID(`blk_(`)
	assert.ErrorIs(t, err, ErrParse)
}

func TestBuilderOrdering(t *testing.T) {
	strategy, err := NewMultiID("")
	require.NoError(t, err)

	records := []ingest.Record{
		{Template: "A", Content: "blk_2"},
		{Template: "B", Content: "blk_1"},
		{Template: "C", Content: "blk_2 blk_3"},
		{Template: "A", Content: "blk_1"},
	}

	b := NewBuilder()
	for _, rec := range records {
		require.NoError(t, b.AppendRecord(strategy, rec))
	}
	assert.Equal(t, 3, b.Len())

	c, err := b.Finalize(ScalarLabels(map[string]int{"blk_1": 0, "blk_2": 0, "blk_3": 1}))
	require.NoError(t, err)

	assert.Equal(t, []string{"blk_2", "blk_1", "blk_3"}, c.IDs())
	s, _ := c.Get("blk_2")
	assert.Equal(t, []string{"A", "C"}, s.Templates)
	s, _ = c.Get("blk_1")
	assert.Equal(t, []string{"B", "A"}, s.Templates)
	assert.Equal(t, 1, c.Anomalies())
}

func TestBuilderMissingLabel(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Append("blk_1", "A"))
	require.NoError(t, b.Append("blk_2", "B"))

	c, err := b.Finalize(ScalarLabels(map[string]int{"blk_1": 0}))
	assert.Nil(t, c)
	require.ErrorIs(t, err, ErrLabelLookup)

	var le *LabelLookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "blk_2", le.Key)
}

func TestBuilderAppendAfterFinalize(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Append("s0", "A"))
	_, err := b.Finalize(ScalarLabels(map[string]int{"s0": 0}))
	require.NoError(t, err)

	assert.ErrorIs(t, b.Append("s0", "B"), ErrFinalized)
	assert.ErrorIs(t, b.AppendRecord(Identity{}, ingest.Record{Template: "B"}), ErrFinalized)
	_, err = b.Finalize(ScalarLabels(nil))
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		second int
		want   string
	}{
		{0, "2017-05-16 00:00:00"},
		{15, "2017-05-16 00:00:00"},
		{30, "2017-05-16 00:00:00"},
		{31, "2017-05-16 00:00:30"},
		{59, "2017-05-16 00:00:30"},
	}

	for _, tt := range tests {
		ts := time.Date(2017, 5, 16, 0, 0, tt.second, 0, time.UTC)
		assert.Equal(t, tt.want, BucketKey(ts), "second %d", tt.second)
	}
}

func TestTimeBucketKeys(t *testing.T) {
	tb := TimeBucket{}

	keys, err := tb.Keys(ingest.Record{Date: "2017-05-16", Time: "00:00:31.008", Line: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"2017-05-16 00:00:30"}, keys)

	keys, err = tb.Keys(ingest.Record{Date: "2017-05-16", Time: "13:59:30", Line: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"2017-05-16 13:59:00"}, keys)
}

func TestTimeBucketParseError(t *testing.T) {
	tb := TimeBucket{}

	tests := []ingest.Record{
		{Date: "16/05/2017", Time: "00:00:00", Line: 3},
		{Date: "2017-13-45", Time: "00:00:00", Line: 4},
		{Date: "", Time: "", Line: 5},
	}
	for _, rec := range tests {
		_, err := tb.Keys(rec)
		require.ErrorIs(t, err, ErrParse)

		var pe *ParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, rec.Line, pe.Line)
	}
}

func TestTimeBucketSessions(t *testing.T) {
	records := []ingest.Record{
		{Template: "A", Date: "2017-05-16", Time: "00:00:01"},
		{Template: "B", Date: "2017-05-16", Time: "00:00:45"},
		{Template: "C", Date: "2017-05-16", Time: "00:00:30"},
		{Template: "D", Date: "2017-05-16", Time: "00:00:59"},
	}

	b := NewBuilder()
	for _, rec := range records {
		require.NoError(t, b.AppendRecord(TimeBucket{}, rec))
	}
	c, err := b.Finalize(ScalarLabels(map[string]int{
		"2017-05-16 00:00:00": 0,
		"2017-05-16 00:00:30": 1,
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"2017-05-16 00:00:00", "2017-05-16 00:00:30"}, c.IDs())
	s, _ := c.Get("2017-05-16 00:00:00")
	assert.Equal(t, []string{"A", "C"}, s.Templates)
	s, _ = c.Get("2017-05-16 00:00:30")
	assert.Equal(t, []string{"B", "D"}, s.Templates)
}

func TestIdentity(t *testing.T) {
	keys, err := Identity{}.Keys(ingest.Record{Template: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"all"}, keys)

	keys, err = Identity{ID: "segment-1"}.Keys(ingest.Record{})
	require.NoError(t, err)
	assert.Equal(t, []string{"segment-1"}, keys)
}

func TestSessionClone(t *testing.T) {
	s := NewSegment("all", []string{"a", "b"}, []int{0, 1})
	cp := s.Clone()
	assert.Equal(t, s, cp)

	cp.Templates[0] = "z"
	cp.RowLabels[0] = 1
	assert.Equal(t, []string{"a", "b"}, s.Templates)
	assert.Equal(t, []int{0, 1}, s.RowLabels)
}

func TestNewSegment(t *testing.T) {
	s := NewSegment("all", []string{"a", "b", "c"}, []int{0, 0, 1})
	assert.Equal(t, 1, s.Label)
	assert.Equal(t, []int{0, 0, 1}, s.RowLabels)

	s = NewSegment("all", []string{"a"}, []int{0})
	assert.Equal(t, 0, s.Label)
}

func TestCollection(t *testing.T) {
	a := &Session{ID: "a", Templates: []string{"x"}}
	b := &Session{ID: "b", Templates: []string{"y"}, Label: 1}

	c, err := NewCollection(a, b)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Same(t, b, c.At(1))

	var ids []string
	for id := range c.All() {
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"a", "b"}, ids)

	sub, err := c.Subset([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, sub.IDs())

	sub.At(0).Templates[0] = "changed"
	assert.Equal(t, []string{"y"}, b.Templates, "Subset must copy sessions")

	_, err = c.Subset([]string{"z"})
	assert.ErrorIs(t, err, ErrUnknownID)

	_, err = NewCollection(a, a)
	assert.ErrorIs(t, err, ErrDuplicateID)

	var empty *Collection
	assert.Equal(t, 0, empty.Len())
}
