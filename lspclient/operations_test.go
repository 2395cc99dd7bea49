package lspclient

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestHoverOperation(t *testing.T) {
	sess, stub := readySession(t)
	stub.handle(func(msg *Message) *Message {
		if msg.Method != "textDocument/hover" {
			t.Errorf("Expected method 'textDocument/hover', got '%s'", msg.Method)
		}
		var params TextDocumentPositionParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			t.Errorf("Failed to decode hover params: %v", err)
		}
		if params.TextDocument.URI != "file:///a.go" {
			t.Errorf("Expected uri 'file:///a.go', got '%s'", params.TextDocument.URI)
		}
		if params.Position.Line != 10 || params.Position.Character != 4 {
			t.Errorf("Unexpected position: %+v", params.Position)
		}
		return stub.reply(*msg.ID, `{"contents":{"kind":"markdown","value":"func Foo()"}}`)
	})

	hover, err := sess.Hover(context.Background(), "file:///a.go", Position{Line: 10, Character: 4})
	if err != nil {
		t.Fatalf("Hover failed: %v", err)
	}
	if got := hover.HoverText(); got != "func Foo()" {
		t.Errorf("Expected hover text 'func Foo()', got %q", got)
	}
}

func TestDefinitionOperation(t *testing.T) {
	sess, stub := readySession(t)
	stub.handle(func(msg *Message) *Message {
		// A single bare Location, not a list.
		return stub.reply(*msg.ID, `{"uri":"file:///b.go","range":{"start":{"line":3,"character":0},"end":{"line":3,"character":7}}}`)
	})

	locs, err := sess.Definition(context.Background(), "file:///a.go", Position{Line: 1})
	if err != nil {
		t.Fatalf("Definition failed: %v", err)
	}
	if len(locs) != 1 || locs[0].URI != "file:///b.go" {
		t.Errorf("Expected one location in file:///b.go, got %+v", locs)
	}
}

func TestReferencesOperation(t *testing.T) {
	sess, stub := readySession(t)
	stub.handle(func(msg *Message) *Message {
		var params struct {
			Context struct {
				IncludeDeclaration bool `json:"includeDeclaration"`
			} `json:"context"`
		}
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			t.Errorf("Failed to decode references params: %v", err)
		}
		if !params.Context.IncludeDeclaration {
			t.Error("Expected includeDeclaration to be true")
		}
		return stub.reply(*msg.ID, `[{"uri":"file:///c.go","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}}}]`)
	})

	locs, err := sess.References(context.Background(), "file:///a.go", Position{}, true)
	if err != nil {
		t.Fatalf("References failed: %v", err)
	}
	if len(locs) != 1 || locs[0].URI != "file:///c.go" {
		t.Errorf("Expected one reference in file:///c.go, got %+v", locs)
	}
}

func TestCompletionOperation(t *testing.T) {
	sess, stub := readySession(t)
	stub.handle(func(msg *Message) *Message {
		return stub.reply(*msg.ID, `{"isIncomplete":false,"items":[{"label":"Println","kind":3}]}`)
	})

	list, err := sess.Completion(context.Background(), "file:///a.go", Position{Line: 2, Character: 6})
	if err != nil {
		t.Fatalf("Completion failed: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Label != "Println" {
		t.Errorf("Unexpected completion items: %+v", list.Items)
	}
}

func TestDocumentSyncNotifications(t *testing.T) {
	sess, stub := readySession(t)

	if err := sess.DidOpen("file:///a.go", "go", "package main\n"); err != nil {
		t.Fatalf("DidOpen failed: %v", err)
	}
	if err := sess.DidChange("file:///a.go", 2, []TextDocumentContentChangeEvent{{Text: "package main\n\nfunc main() {}\n"}}); err != nil {
		t.Fatalf("DidChange failed: %v", err)
	}
	if err := sess.DidClose("file:///a.go"); err != nil {
		t.Fatalf("DidClose failed: %v", err)
	}

	want := []string{"textDocument/didOpen", "textDocument/didChange", "textDocument/didClose"}
	deadline := time.After(time.Second)
	for {
		methods := stub.notificationMethods()
		// Skip the handshake notifications at the front.
		if len(methods) >= 2+len(want) {
			got := methods[len(methods)-len(want):]
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("Expected notification %d to be %s, got %s", i, want[i], got[i])
				}
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("Document sync notifications never arrived, got %v", methods)
		case <-time.After(time.Millisecond):
		}
	}
}
