package session

import (
	"fmt"

	"github.com/bimmerbailey/logsplit/internal/ingest"
)

// Builder accumulates templates per session key. Session ids keep the
// position of their first append; templates keep arrival order.
// Only Append, AppendRecord and Finalize are exposed so a finalized
// builder cannot be mutated.
type Builder struct {
	ids       []string
	templates map[string][]string
	finalized bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{templates: make(map[string][]string)}
}

// Append adds template to the session id.
func (b *Builder) Append(id, template string) error {
	if b.finalized {
		return ErrFinalized
	}
	seq, ok := b.templates[id]
	if !ok {
		b.ids = append(b.ids, id)
	}
	b.templates[id] = append(seq, template)
	return nil
}

// AppendRecord appends rec.Template to every session the strategy maps
// rec to.
func (b *Builder) AppendRecord(strategy KeyStrategy, rec ingest.Record) error {
	return b.AppendTemplate(strategy, rec, rec.Template)
}

// AppendTemplate is AppendRecord with a caller-supplied template, for
// datasets whose templates need cleanup before grouping.
func (b *Builder) AppendTemplate(strategy KeyStrategy, rec ingest.Record, template string) error {
	if b.finalized {
		return ErrFinalized
	}
	keys, err := strategy.Keys(rec)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := b.Append(key, template); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of distinct sessions appended so far.
func (b *Builder) Len() int {
	return len(b.ids)
}

// Finalize resolves every session label through labels and freezes the
// builder. On error no collection is returned, and the builder stays
// finalized.
func (b *Builder) Finalize(labels LabelSource) (*Collection, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	b.finalized = true

	sessions := make([]*Session, 0, len(b.ids))
	for _, id := range b.ids {
		label, err := ResolveKey(labels, id)
		if err != nil {
			return nil, fmt.Errorf("finalizing sessions: %w", err)
		}
		sessions = append(sessions, &Session{
			ID:        id,
			Templates: b.templates[id],
			Label:     label,
		})
	}
	b.templates = nil

	return NewCollection(sessions...)
}
