package store

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bimmerbailey/logsplit/internal/session"
)

// PlainTextOptions names the three sequence files and the index ceilings
// applied to the test files.
type PlainTextOptions struct {
	TrainFile        string
	TestNormalFile   string
	TestAbnormalFile string

	// NormalCeiling is the last index read from the normal test file.
	NormalCeiling int
	// AbnormalCeiling is the last index read from the abnormal test file;
	// its indexes continue after the normal test sessions.
	AbnormalCeiling int
}

// DefaultPlainTextOptions matches the HDFS sequence file layout.
func DefaultPlainTextOptions() PlainTextOptions {
	return PlainTextOptions{
		TrainFile:        "hdfs_train",
		TestNormalFile:   "hdfs_test_normal",
		TestAbnormalFile: "hdfs_test_abnormal",
		NormalCeiling:    50000,
		AbnormalCeiling:  100000,
	}
}

// LoadPlainText reads pre-segmented sequence files. Each line is a
// whitespace-separated template sequence. Train and normal test lines are
// labeled 0, abnormal test lines 1. Session ids are the line indexes.
func LoadPlainText(dir string, opts PlainTextOptions, logger *slog.Logger) (*Split, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var trainSessions []*session.Session
	err := scanSequences(filepath.Join(dir, opts.TrainFile), 0, -1, func(idx int, templates []string) {
		trainSessions = append(trainSessions, &session.Session{ID: strconv.Itoa(idx), Templates: templates})
	})
	if err != nil {
		return nil, err
	}

	var testSessions []*session.Session
	err = scanSequences(filepath.Join(dir, opts.TestNormalFile), 0, opts.NormalCeiling, func(idx int, templates []string) {
		testSessions = append(testSessions, &session.Session{ID: strconv.Itoa(idx), Templates: templates})
	})
	if err != nil {
		return nil, err
	}
	err = scanSequences(filepath.Join(dir, opts.TestAbnormalFile), len(testSessions), opts.AbnormalCeiling, func(idx int, templates []string) {
		testSessions = append(testSessions, &session.Session{ID: strconv.Itoa(idx), Templates: templates, Label: 1})
	})
	if err != nil {
		return nil, err
	}

	train, err := session.NewCollection(trainSessions...)
	if err != nil {
		return nil, err
	}
	test, err := session.NewCollection(testSessions...)
	if err != nil {
		return nil, err
	}

	logger.Info("loaded plain text sessions", "dir", dir, "train", train.Len(), "test", test.Len())
	return &Split{Train: train, Test: test}, nil
}

// scanSequences calls fn for each line of path, numbering lines from start.
// Reading stops once the index exceeds ceiling; a negative ceiling reads
// the whole file.
func scanSequences(path string, start, ceiling int, fn func(idx int, templates []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	const maxScanTokenSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	idx := start
	for scanner.Scan() {
		if ceiling >= 0 && idx > ceiling {
			break
		}
		fn(idx, strings.Fields(scanner.Text()))
		idx++
	}
	return scanner.Err()
}
