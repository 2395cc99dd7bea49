package lspclient

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracer receives diagnostic output from the client. It is injected rather
// than global so tests and embedders can capture it without touching
// process-wide state.
type Tracer interface {
	Tracef(format string, args ...any)
}

// nopTracer discards everything. The default.
type nopTracer struct{}

func (nopTracer) Tracef(string, ...any) {}

// writerTracer writes timestamped lines to w, serialized across goroutines.
type writerTracer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterTracer returns a Tracer that writes timestamped lines to w.
func NewWriterTracer(w io.Writer) Tracer {
	return &writerTracer{w: w}
}

func (t *writerTracer) Tracef(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, "[%s] %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}
