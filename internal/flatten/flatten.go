// Package flatten turns windowed sessions into a flat, indexable sample
// sequence for model training.
//
// Sessions are enumerated in collection order and their windows in window
// order. Each sample carries the position of its session in that
// enumeration, not the session id. Samples are materialized on access; the
// dataset itself only stores window offsets.
package flatten

import (
	"errors"
	"fmt"
	"iter"
	"sort"
)

var (
	// ErrFeatureView is returned when a session lacks the requested view.
	ErrFeatureView = errors.New("flatten: feature view not found")

	// ErrWindowMismatch is returned when a session's features, window
	// labels and window anomalies differ in length.
	ErrWindowMismatch = errors.New("flatten: window length mismatch")

	// ErrIndexOutOfRange is returned by At for indexes outside [0, Len).
	ErrIndexOutOfRange = errors.New("flatten: index out of range")
)

// Windowed is a session after downstream feature extraction.
// Features maps a view name (e.g. "sequentials", "semantics") to one
// feature value per window.
type Windowed[F any] struct {
	ID              string
	Features        map[string][]F
	WindowLabels    []int
	WindowAnomalies []int
}

// Sample is one window of one session.
type Sample[F any] struct {
	SessionIndex  int
	Features      F
	WindowLabel   int
	WindowAnomaly int
}

// Dataset is a flat view over windowed sessions.
type Dataset[F any] struct {
	sessions []Windowed[F]
	view     string
	// offsets[i] is the flat index of session i's first window;
	// offsets[len(sessions)] is the total length.
	offsets []int
}

// New validates sessions against the feature view and builds the index.
func New[F any](sessions []Windowed[F], view string) (*Dataset[F], error) {
	offsets := make([]int, len(sessions)+1)
	for i, s := range sessions {
		features, ok := s.Features[view]
		if !ok {
			return nil, fmt.Errorf("%w: %q in session %d (%s)", ErrFeatureView, view, i, s.ID)
		}
		n := len(s.WindowLabels)
		if len(features) != n || len(s.WindowAnomalies) != n {
			return nil, fmt.Errorf("%w: session %d (%s) has %d features, %d labels, %d anomalies",
				ErrWindowMismatch, i, s.ID, len(features), n, len(s.WindowAnomalies))
		}
		offsets[i+1] = offsets[i] + n
	}

	return &Dataset[F]{sessions: sessions, view: view, offsets: offsets}, nil
}

// Len returns the total number of windows across all sessions.
func (d *Dataset[F]) Len() int {
	return d.offsets[len(d.offsets)-1]
}

// View returns the feature view name.
func (d *Dataset[F]) View() string {
	return d.view
}

// At returns the sample at flat index i.
func (d *Dataset[F]) At(i int) (Sample[F], error) {
	if i < 0 || i >= d.Len() {
		return Sample[F]{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, d.Len())
	}
	// First session whose end offset is past i; sessions with no windows
	// share an offset with their successor and are skipped.
	s := sort.Search(len(d.sessions), func(k int) bool { return d.offsets[k+1] > i })
	return d.sample(s, i-d.offsets[s]), nil
}

// All yields every sample in order. The sequence can be iterated again.
func (d *Dataset[F]) All() iter.Seq2[int, Sample[F]] {
	return func(yield func(int, Sample[F]) bool) {
		for s := range d.sessions {
			for w := 0; w < d.offsets[s+1]-d.offsets[s]; w++ {
				if !yield(d.offsets[s]+w, d.sample(s, w)) {
					return
				}
			}
		}
	}
}

func (d *Dataset[F]) sample(s, w int) Sample[F] {
	ws := d.sessions[s]
	return Sample[F]{
		SessionIndex:  s,
		Features:      ws.Features[d.view][w],
		WindowLabel:   ws.WindowLabels[w],
		WindowAnomaly: ws.WindowAnomalies[w],
	}
}
