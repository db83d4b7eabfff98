package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// LoadLabelTableFile reads an external label table from disk.
func LoadLabelTableFile(path, keyColumn, labelColumn string, rule LabelRule) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	labels, err := LoadLabelTable(f, keyColumn, labelColumn, rule)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return labels, nil
}

// LoadLabelTable reads a two-column label table (e.g. BlockId,Label) and
// returns key -> 0/1. Later rows override earlier rows for the same key.
func LoadLabelTable(r io.Reader, keyColumn, labelColumn string, rule LabelRule) (map[string]int, error) {
	cr := newReader(r, 0)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Missing: []string{keyColumn, labelColumn}}
		}
		return nil, fmt.Errorf("reading label header: %w", err)
	}

	idx := indexColumns(header)
	if err := requireColumns(idx, []string{keyColumn, labelColumn}); err != nil {
		return nil, err
	}
	ki, li := idx[keyColumn], idx[labelColumn]

	labels := make(map[string]int)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading label row: %w", err)
		}
		if ki >= len(row) || li >= len(row) {
			continue
		}
		labels[row[ki]] = rule.Apply(row[li])
	}

	return labels, nil
}
