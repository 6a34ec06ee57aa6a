package testhelpers

import (
	"io"
	"strings"
	"sync"
	"testing"
)

// Writer sends every written line to t.Log so that logs only show up for failing tests.
type Writer struct {
	t    *testing.T
	mu   sync.Mutex
	done bool
}

// NewWriter creates a Writer bound to t.
func NewWriter(t *testing.T) io.Writer {
	w := &Writer{t: t, mu: sync.Mutex{}, done: false}
	t.Cleanup(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.done = true
	})
	return w
}

// Write panics after the test has finished because t.Log is no longer valid then. Background goroutines that log
// must be stopped in t.Cleanup.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		panic("testhelpers: log written after test completion, stop background work in t.Cleanup: " + string(p))
	}
	if line := strings.TrimSuffix(string(p), "\n"); line != "" {
		w.t.Log(line)
	}
	return len(p), nil
}
