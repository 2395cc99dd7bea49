package lspclient

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id := int64(7)
	msg := &Message{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  "textDocument/hover",
		Params:  []byte(`{"position":{"line":1,"character":2}}`),
	}

	frame, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}
	if !bytes.HasPrefix(frame, []byte("Content-Length: ")) {
		t.Errorf("Expected frame to start with length header, got %q", frame[:20])
	}

	decoded, err := ReadFrame(bufio.NewReader(bytes.NewReader(frame)))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if decoded.ID == nil || *decoded.ID != 7 {
		t.Errorf("Expected id 7, got %v", decoded.ID)
	}
	if decoded.Method != "textDocument/hover" {
		t.Errorf("Expected method 'textDocument/hover', got '%s'", decoded.Method)
	}
	if string(decoded.Params) != `{"position":{"line":1,"character":2}}` {
		t.Errorf("Params did not survive the round trip: %s", decoded.Params)
	}
}

func TestReadFrameBackToBack(t *testing.T) {
	var stream bytes.Buffer
	for _, method := range []string{"first", "second", "third"} {
		frame, err := EncodeMessage(&Message{JSONRPC: "2.0", Method: method})
		if err != nil {
			t.Fatalf("EncodeMessage failed: %v", err)
		}
		stream.Write(frame)
	}

	br := bufio.NewReader(&stream)
	for _, want := range []string{"first", "second", "third"} {
		msg, err := ReadFrame(br)
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		if msg.Method != want {
			t.Errorf("Expected method '%s', got '%s'", want, msg.Method)
		}
	}
	if _, err := ReadFrame(br); err != io.EOF {
		t.Errorf("Expected io.EOF at stream end, got %v", err)
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(strings.NewReader("")))
	if err != io.EOF {
		t.Errorf("Expected io.EOF on empty stream, got %v", err)
	}
}

func TestReadFrameEOFInsideHeaders(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(strings.NewReader("Content-Length: 10\r\n")))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Expected ErrMalformedFrame when stream ends inside headers, got %v", err)
	}
}

func TestReadFrameBadHeaderLine(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(strings.NewReader("not a header\r\n\r\n")))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Expected ErrMalformedFrame for a header line with no colon, got %v", err)
	}
}

func TestReadFrameMissingLengthHeader(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(strings.NewReader("Content-Type: application/json\r\n\r\n{}")))
	if !errors.Is(err, ErrMalformedFrame) {
		t.Errorf("Expected ErrMalformedFrame without a length header, got %v", err)
	}
}

func TestReadFrameBadLengthValue(t *testing.T) {
	for _, value := range []string{"abc", "-5", ""} {
		_, err := ReadFrame(bufio.NewReader(strings.NewReader("Content-Length: " + value + "\r\n\r\n")))
		if !errors.Is(err, ErrMalformedFrame) {
			t.Errorf("Expected ErrMalformedFrame for length %q, got %v", value, err)
		}
	}
}

func TestReadFrameCaseInsensitiveHeader(t *testing.T) {
	msg, err := ReadFrame(bufio.NewReader(strings.NewReader("content-length: 27\r\n\r\n{\"jsonrpc\":\"2.0\",\"id\":null}")))
	if err != nil {
		t.Fatalf("ReadFrame failed on lowercase header: %v", err)
	}
	if msg.JSONRPC != "2.0" {
		t.Errorf("Expected jsonrpc '2.0', got '%s'", msg.JSONRPC)
	}
}

func TestReadFrameIgnoresExtraHeaders(t *testing.T) {
	body := `{"jsonrpc":"2.0","method":"extra/ok"}`
	raw := "Content-Type: application/vscode-jsonrpc\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
	msg, err := ReadFrame(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if msg.Method != "extra/ok" {
		t.Errorf("Expected method 'extra/ok', got '%s'", msg.Method)
	}
}

func TestReadFrameTruncatedBody(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(strings.NewReader("Content-Length: 100\r\n\r\n{\"jsonrpc\":\"2.0\"}")))
	if !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("Expected ErrTruncatedFrame for a short body, got %v", err)
	}
}

func TestReadFrameInvalidPayloadDoesNotPoisonStream(t *testing.T) {
	bad := "Content-Length: 8\r\n\r\nnot json"
	good, err := EncodeMessage(&Message{JSONRPC: "2.0", Method: "after/bad"})
	if err != nil {
		t.Fatalf("EncodeMessage failed: %v", err)
	}

	br := bufio.NewReader(strings.NewReader(bad + string(good)))
	_, err = ReadFrame(br)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("Expected ErrInvalidPayload for the bad body, got %v", err)
	}
	var payloadErr *PayloadError
	if !errors.As(err, &payloadErr) {
		t.Fatalf("Expected a *PayloadError, got %T", err)
	}
	if string(payloadErr.Body) != "not json" {
		t.Errorf("Expected the offending body to be preserved, got %q", payloadErr.Body)
	}

	msg, err := ReadFrame(br)
	if err != nil {
		t.Fatalf("Expected the next frame to decode cleanly, got %v", err)
	}
	if msg.Method != "after/bad" {
		t.Errorf("Expected method 'after/bad', got '%s'", msg.Method)
	}
}

func TestReadFrameZeroLengthBody(t *testing.T) {
	_, err := ReadFrame(bufio.NewReader(strings.NewReader("Content-Length: 0\r\n\r\n")))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Expected ErrInvalidPayload for an empty body, got %v", err)
	}
}
