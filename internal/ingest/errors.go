package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is returned, wrapped in a *SchemaError, when a required column
// is absent from a structured log or label table.
var ErrSchema = errors.New("ingest: missing required column")

// SchemaError lists the required columns that were not found in a header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSchema, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}
