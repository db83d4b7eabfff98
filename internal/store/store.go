// Package store persists train/test session collections and loads
// pre-built ones.
//
// A split directory holds:
//
//	session_train.json.zst   zstd-compressed JSON array of sessions
//	session_test.json.zst    same, for the test partition
//	data_desc.yaml           provenance descriptor (optional on load)
//
// Sessions are stored as an array so collection order survives the round
// trip.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/bimmerbailey/logsplit/internal/partition"
	"github.com/bimmerbailey/logsplit/internal/session"
)

// File names inside a split directory.
const (
	TrainFile      = "session_train.json.zst"
	TestFile       = "session_test.json.zst"
	DescriptorFile = "data_desc.yaml"
)

// Split is a loaded train/test pair.
type Split struct {
	Train      *session.Collection
	Test       *session.Collection
	Descriptor *Descriptor
}

// Save writes both collections and the descriptor to dir, creating it if
// needed. Every file is first written to a temporary. The temporaries then
// replace their targets one by one, with any previous version kept aside
// until all of them are in place. If a write or a rename fails, Save
// restores the previous split before returning the error. A crash during
// the renames can still leave a mix of old and new files.
func Save(dir string, train, test *session.Collection, desc *Descriptor) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var staged []string
	defer func() {
		for _, final := range staged {
			os.Remove(final + ".tmp")
		}
	}()

	stage := func(name string, fn func(io.Writer) error) error {
		final := filepath.Join(dir, name)
		f, err := os.Create(final + ".tmp")
		if err != nil {
			return err
		}
		staged = append(staged, final)
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", name, err)
		}
		return f.Close()
	}

	if err := stage(TrainFile, func(w io.Writer) error { return WriteCollection(w, train) }); err != nil {
		return err
	}
	if err := stage(TestFile, func(w io.Writer) error { return WriteCollection(w, test) }); err != nil {
		return err
	}
	if desc != nil {
		if err := stage(DescriptorFile, desc.Write); err != nil {
			return err
		}
	}
	return commit(staged)
}

// commit moves each "<final>.tmp" onto final. On failure the files already
// moved are undone and their previous versions restored.
func commit(finals []string) error {
	type move struct {
		final     string
		hadBackup bool
	}
	var done []move
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			m := done[i]
			os.Remove(m.final)
			if m.hadBackup {
				os.Rename(m.final+".bak", m.final)
			}
		}
	}

	for _, final := range finals {
		m := move{final: final}
		if _, err := os.Lstat(final); err == nil {
			if err := os.Rename(final, final+".bak"); err != nil {
				rollback()
				return fmt.Errorf("replacing %s: %w", filepath.Base(final), err)
			}
			m.hadBackup = true
		}
		if err := os.Rename(final+".tmp", final); err != nil {
			if m.hadBackup {
				os.Rename(final+".bak", final)
			}
			rollback()
			return fmt.Errorf("replacing %s: %w", filepath.Base(final), err)
		}
		done = append(done, m)
	}

	for _, m := range done {
		if m.hadBackup {
			os.Remove(m.final + ".bak")
		}
	}
	return nil
}

// WriteCollection encodes c as a zstd-compressed JSON array.
func WriteCollection(w io.Writer, c *session.Collection) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}

	sessions := make([]*session.Session, 0, c.Len())
	for _, s := range c.All() {
		sessions = append(sessions, s)
	}
	if err := json.NewEncoder(enc).Encode(sessions); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadCollection decodes a collection written by WriteCollection.
// Sessions carrying row labels have their label re-aggregated from them.
func ReadCollection(r io.Reader) (*session.Collection, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var sessions []*session.Session
	if err := json.NewDecoder(dec).Decode(&sessions); err != nil {
		return nil, fmt.Errorf("decoding sessions: %w", err)
	}
	for _, s := range sessions {
		if len(s.RowLabels) > 0 {
			s.Label = session.Resolve(session.SubLabels(s.RowLabels))
		} else {
			s.Label = session.Resolve(session.Scalar(s.Label))
		}
	}
	return session.NewCollection(sessions...)
}

// LoadSessions reads a split directory written by Save. A missing
// descriptor is tolerated; missing session files are not.
func LoadSessions(dir string, logger *slog.Logger) (*Split, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	train, err := readCollectionFile(filepath.Join(dir, TrainFile))
	if err != nil {
		return nil, err
	}
	test, err := readCollectionFile(filepath.Join(dir, TestFile))
	if err != nil {
		return nil, err
	}

	split := &Split{Train: train, Test: test}
	desc, err := ReadDescriptorFile(filepath.Join(dir, DescriptorFile))
	switch {
	case err == nil:
		split.Descriptor = desc
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	logger.Info("loaded sessions", "dir", dir)
	if desc != nil {
		logger.Info("dataset descriptor", "run_id", desc.RunID, "dataset", desc.Dataset, "strategy", desc.Strategy)
	}
	logger.Info("train sessions", "count", train.Len(),
		"anomaly_pct", fmt.Sprintf("%.2f", partition.Percent(train.Anomalies(), train.Len())))
	logger.Info("test sessions", "count", test.Len(),
		"anomaly_pct", fmt.Sprintf("%.2f", partition.Percent(test.Anomalies(), test.Len())))

	return split, nil
}

func readCollectionFile(path string) (*session.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := ReadCollection(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
