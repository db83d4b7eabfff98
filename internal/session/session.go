// Package session groups log records into labeled sessions.
//
// A session is an ordered sequence of event templates sharing a grouping
// key: a block identifier, a 30 second time bucket, or the whole corpus.
// Records are mapped to keys by a KeyStrategy, accumulated by a Builder in
// arrival order, and labeled once at Finalize through a LabelSource.
//
//	b := session.NewBuilder()
//	for _, rec := range records {
//	    if err := b.AppendRecord(strategy, rec); err != nil {
//	        return err
//	    }
//	}
//	sessions, err := b.Finalize(session.ScalarLabels(labels))
package session

import (
	"fmt"
	"iter"
	"slices"
)

// Session is a labeled, ordered group of templates.
type Session struct {
	ID        string   `json:"id"`
	Templates []string `json:"templates"`
	Label     int      `json:"label"`
	RowLabels []int    `json:"row_labels,omitempty"`
}

// NewSegment builds a pre-segmented session whose label aggregates the
// per-row labels.
func NewSegment(id string, templates []string, rowLabels []int) *Session {
	return &Session{
		ID:        id,
		Templates: templates,
		Label:     Resolve(SubLabels(rowLabels)),
		RowLabels: rowLabels,
	}
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	return &Session{
		ID:        s.ID,
		Templates: slices.Clone(s.Templates),
		Label:     s.Label,
		RowLabels: slices.Clone(s.RowLabels),
	}
}

// Collection is an ordered set of sessions keyed by id.
// It is not modified after construction. Get, At and All hand out the
// stored sessions themselves, so callers must treat them as read-only;
// Subset copies.
type Collection struct {
	ids  []string
	byID map[string]*Session
}

// NewCollection builds a collection in the given order.
func NewCollection(sessions ...*Session) (*Collection, error) {
	c := &Collection{
		ids:  make([]string, 0, len(sessions)),
		byID: make(map[string]*Session, len(sessions)),
	}
	for _, s := range sessions {
		if _, ok := c.byID[s.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		c.ids = append(c.ids, s.ID)
		c.byID[s.ID] = s
	}
	return c, nil
}

// Len returns the number of sessions.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ids)
}

// IDs returns a copy of the session ids in collection order.
func (c *Collection) IDs() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.ids...)
}

// Get returns the session with the given id.
func (c *Collection) Get(id string) (*Session, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.byID[id]
	return s, ok
}

// At returns the i-th session in collection order.
func (c *Collection) At(i int) *Session {
	return c.byID[c.ids[i]]
}

// All iterates sessions in collection order.
func (c *Collection) All() iter.Seq2[string, *Session] {
	return func(yield func(string, *Session) bool) {
		if c == nil {
			return
		}
		for _, id := range c.ids {
			if !yield(id, c.byID[id]) {
				return
			}
		}
	}
}

// Subset returns a collection holding copies of the sessions with the given
// ids, in the given order. Unknown ids are an error.
func (c *Collection) Subset(ids []string) (*Collection, error) {
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, ok := c.Get(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownID, id)
		}
		sessions = append(sessions, s.Clone())
	}
	return NewCollection(sessions...)
}

// Anomalies counts sessions labeled 1.
func (c *Collection) Anomalies() int {
	n := 0
	for _, s := range c.All() {
		n += s.Label
	}
	return n
}
