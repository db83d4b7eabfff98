package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "HDFS.log_structured.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return path
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, opts Options) (*atomic.Int32, context.CancelFunc, <-chan error) {
	t.Helper()
	var calls atomic.Int32
	opts.Run = func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(opts).Run(ctx)
	}()

	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 1 }) {
		cancel()
		t.Fatal("initial run did not happen")
	}
	// Give fsnotify a moment to settle.
	time.Sleep(50 * time.Millisecond)
	return &calls, cancel, done
}

func TestWatcher_InitialRunAndCancel(t *testing.T) {
	path := createTempFile(t, "a\n")
	calls, cancel, done := startWatcher(t, Options{Paths: []string{path}, Debounce: 20 * time.Millisecond})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestWatcher_RerunsOnWrite(t *testing.T) {
	path := createTempFile(t, "a\n")
	calls, cancel, done := startWatcher(t, Options{Paths: []string{path}, Debounce: 20 * time.Millisecond})
	defer func() {
		cancel()
		<-done
	}()

	if err := os.WriteFile(path, []byte("a\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 2 }) {
		t.Errorf("expected a re-run after write, calls = %d", calls.Load())
	}
}

func TestWatcher_DebounceCoalesces(t *testing.T) {
	path := createTempFile(t, "a\n")
	calls, cancel, done := startWatcher(t, Options{Paths: []string{path}, Debounce: 300 * time.Millisecond})
	defer func() {
		cancel()
		<-done
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.WriteString("line\n"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	f.Close()

	if !waitFor(t, 3*time.Second, func() bool { return calls.Load() >= 2 }) {
		t.Fatalf("expected a re-run, calls = %d", calls.Load())
	}
	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (burst should be coalesced)", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := createTempFile(t, "a\n")
	calls, cancel, done := startWatcher(t, Options{Paths: []string{path}, Debounce: 20 * time.Millisecond})
	defer func() {
		cancel()
		<-done
	}()

	other := filepath.Join(filepath.Dir(path), "other.csv")
	if err := os.WriteFile(other, []byte("x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestWatcher_RotationWithoutFollow(t *testing.T) {
	path := createTempFile(t, "a\n")
	_, cancel, done := startWatcher(t, Options{Paths: []string{path}, Debounce: 20 * time.Millisecond})
	defer cancel()

	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrRotated) {
			t.Errorf("Run() error = %v, want ErrRotated", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after rotation")
	}
}

func TestWatcher_FollowRotate(t *testing.T) {
	path := createTempFile(t, "a\n")
	calls, cancel, done := startWatcher(t, Options{
		Paths:        []string{path},
		Debounce:     20 * time.Millisecond,
		FollowRotate: true,
	})
	defer func() {
		cancel()
		<-done
	}()

	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("b\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 3*time.Second, func() bool { return calls.Load() >= 2 }) {
		t.Errorf("expected a re-run after rotation, calls = %d", calls.Load())
	}
}

func TestWatcher_FirstRunErrorReturned(t *testing.T) {
	path := createTempFile(t, "a\n")
	boom := errors.New("boom")
	w := New(Options{
		Paths: []string{path},
		Run:   func(context.Context) error { return boom },
	})

	if err := w.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want %v", err, boom)
	}
	if w.Runs() != 1 {
		t.Errorf("Runs() = %d, want 1", w.Runs())
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	w := New(Options{
		Paths: []string{filepath.Join(t.TempDir(), "missing.csv")},
		Run:   func(context.Context) error { return nil },
	})
	if err := w.Run(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWatcher_NoPathsOrJob(t *testing.T) {
	if err := New(Options{Run: func(context.Context) error { return nil }}).Run(context.Background()); err == nil {
		t.Error("expected error without paths")
	}
	if err := New(Options{Paths: []string{"x"}}).Run(context.Background()); err == nil {
		t.Error("expected error without job")
	}
}

func TestNewDefaults(t *testing.T) {
	w := New(Options{Paths: []string{"./a/../b.csv"}})
	if w.opts.Debounce != DefaultDebounce {
		t.Errorf("Debounce = %v, want %v", w.opts.Debounce, DefaultDebounce)
	}
	if !w.tracked["b.csv"] {
		t.Errorf("paths should be cleaned, got %v", w.tracked)
	}
}
