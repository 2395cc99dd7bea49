package lspclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Standard errors returned by the LSP client.
var (
	// ErrMalformedFrame indicates framing-level corruption in the header block.
	// Byte boundaries can no longer be trusted, so the reader loop stops.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrTruncatedFrame indicates the stream ended before the declared body
	// length was read. Fatal to the reader loop for the same reason.
	ErrTruncatedFrame = errors.New("truncated frame")

	// ErrInvalidPayload indicates a well-framed message whose body could not
	// be parsed. Frame boundaries are intact and the stream continues.
	ErrInvalidPayload = errors.New("invalid message payload")

	// ErrTransportClosed indicates a write was attempted after the server
	// process exited or the input stream was closed.
	ErrTransportClosed = errors.New("transport closed")

	// ErrConnectionClosed indicates the connection ended while requests were
	// still pending. Every pending request resolves with this error.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSessionClosed indicates an operation was attempted outside the Ready
	// state. No bytes are written to the transport.
	ErrSessionClosed = errors.New("session closed")

	// ErrTimeout indicates a pending request exceeded its deadline. The caller
	// may retry with a fresh id.
	ErrTimeout = errors.New("request timed out")

	// ErrDuplicateID indicates a request id was registered twice. Ids are
	// allocated monotonically, so this is a defect rather than a recoverable
	// condition.
	ErrDuplicateID = errors.New("duplicate request id")

	// ErrAlreadyInitialized indicates Initialize was called more than once.
	ErrAlreadyInitialized = errors.New("session already initialized")
)

// SpawnError indicates the language server process could not be started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// PayloadError carries the body of a well-framed message that failed to parse.
// It matches ErrInvalidPayload under errors.Is.
type PayloadError struct {
	Body []byte
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("invalid message payload (%d bytes): %v", len(e.Body), e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

func (e *PayloadError) Is(target error) bool { return target == ErrInvalidPayload }

// RPCError represents a JSON-RPC error object from the server.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
)
