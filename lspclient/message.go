package lspclient

import "encoding/json"

// Message is one JSON-RPC payload exchanged after frame decoding. Requests and
// responses carry an id; notifications carry only a method. Result and Error
// are mutually exclusive on responses.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// MessageKind classifies a decoded message for routing.
type MessageKind int

const (
	// KindInvalid is a message that fits none of the protocol shapes.
	KindInvalid MessageKind = iota
	// KindResponse carries an id and a result or error, no method.
	KindResponse
	// KindNotification carries a method and no id. Never answered.
	KindNotification
	// KindServerRequest carries both a method and an id. The server expects
	// a correlated reply.
	KindServerRequest
)

// String returns the kind name for trace output.
func (k MessageKind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	case KindServerRequest:
		return "server request"
	default:
		return "invalid"
	}
}

// Kind classifies the message by which fields are present.
func (m *Message) Kind() MessageKind {
	switch {
	case m.Method != "" && m.ID != nil:
		return KindServerRequest
	case m.Method != "":
		return KindNotification
	case m.ID != nil && (m.Result != nil || m.Error != nil):
		return KindResponse
	default:
		return KindInvalid
	}
}
