package lspclient

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// lengthHeader declares the exact byte length of the frame body. The key match
// is case-insensitive on decode.
const lengthHeader = "Content-Length"

// EncodeMessage serializes a message into wire framing: a header block
// declaring the body length, a blank line, then the JSON body. Pure function,
// no side effects.
func EncodeMessage(msg *Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %d\r\n\r\n", lengthHeader, len(body))
	buf.Write(body)
	return buf.Bytes(), nil
}

// ReadFrame consumes exactly one frame from r and decodes its body.
//
// Errors distinguish three failure levels. io.EOF means the stream ended
// cleanly at a frame boundary. ErrMalformedFrame and ErrTruncatedFrame mean
// the byte boundaries of the stream can no longer be trusted. A *PayloadError
// means the frame itself was sound but the body did not parse; the declared
// byte count has already been consumed, so the next frame still decodes.
func ReadFrame(r *bufio.Reader) (*Message, error) {
	contentLength := -1
	sawHeader := false
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF && line == "" && !sawHeader {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%w: stream ended inside header block", ErrMalformedFrame)
		}
		sawHeader = true
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			break
		}
		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header line %q", ErrMalformedFrame, trimmed)
		}
		if strings.EqualFold(strings.TrimSpace(key), lengthHeader) {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad content length %q", ErrMalformedFrame, strings.TrimSpace(value))
			}
			contentLength = n
		}
		// Other headers (Content-Type and friends) are ignored.
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("%w: missing %s header", ErrMalformedFrame, lengthHeader)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: declared %d bytes: %v", ErrTruncatedFrame, contentLength, err)
	}

	// A zero-length body still goes through the decode attempt so the caller
	// can observe and count it as a malformed payload.
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, &PayloadError{Body: body, Err: err}
	}
	return &msg, nil
}
