package lspclient

import "testing"

func TestMessageKind(t *testing.T) {
	id := int64(1)
	cases := []struct {
		name string
		msg  Message
		want MessageKind
	}{
		{"response with result", Message{JSONRPC: "2.0", ID: &id, Result: []byte(`{}`)}, KindResponse},
		{"response with error", Message{JSONRPC: "2.0", ID: &id, Error: &RPCError{Code: CodeInternalError}}, KindResponse},
		{"notification", Message{JSONRPC: "2.0", Method: "textDocument/publishDiagnostics", Params: []byte(`{}`)}, KindNotification},
		{"server request", Message{JSONRPC: "2.0", ID: &id, Method: "workspace/configuration"}, KindServerRequest},
		{"id without result or error", Message{JSONRPC: "2.0", ID: &id}, KindInvalid},
		{"empty", Message{JSONRPC: "2.0"}, KindInvalid},
	}
	for _, c := range cases {
		if got := c.msg.Kind(); got != c.want {
			t.Errorf("%s: expected %s, got %s", c.name, c.want, got)
		}
	}
}
