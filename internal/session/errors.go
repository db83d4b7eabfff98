package session

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks identifier or timestamp text that does not match the
	// expected grammar. Offending records are never skipped silently.
	ErrParse = errors.New("session: parse error")

	// ErrLabelLookup marks a session key with no entry in the label source.
	ErrLabelLookup = errors.New("session: label not found")

	// ErrFinalized is returned when appending to a finalized Builder.
	ErrFinalized = errors.New("session: builder already finalized")

	// ErrDuplicateID is returned when a collection would hold two sessions
	// with the same id.
	ErrDuplicateID = errors.New("session: duplicate session id")

	// ErrUnknownID is returned when a subset names an id not in the collection.
	ErrUnknownID = errors.New("session: unknown session id")
)

// ParseError describes a record whose text failed to parse.
type ParseError struct {
	Line  int
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	msg := ErrParse.Error()
	if e.Line > 0 {
		msg += fmt.Sprintf(": line %d", e.Line)
	}
	msg += fmt.Sprintf(": %q", e.Input)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// LabelLookupError names the key that had no label.
type LabelLookupError struct {
	Key string
}

func (e *LabelLookupError) Error() string {
	return fmt.Sprintf("%s: %q", ErrLabelLookup, e.Key)
}

func (e *LabelLookupError) Unwrap() error {
	return ErrLabelLookup
}
