package lspclient

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriterTracer(t *testing.T) {
	var buf bytes.Buffer
	tr := NewWriterTracer(&buf)
	tr.Tracef("sent %s (id %d)", "initialize", 1)

	out := buf.String()
	if !strings.Contains(out, "sent initialize (id 1)") {
		t.Errorf("Expected the formatted message in the output, got %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Errorf("Expected a trailing newline, got %q", out)
	}
}
