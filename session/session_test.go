package session

import (
	"os"
	"testing"
)

func TestSessionSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(oldWd)

	sess, err := New("roundtrip")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	sess.Mode = "auto"
	sess.Toolset = "default"
	sess.AddMessage(Message{Role: "user", Content: "hello"})
	sess.AddMessage(Message{
		Role:    "assistant",
		Content: "",
		ToolCalls: []ToolCall{
			{ToolCallID: "call_1", Name: "read_file", Args: map[string]interface{}{"path": "main.go"}},
		},
	})

	if err := sess.Save(); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	loaded, err := Load("roundtrip")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	if loaded.Mode != "auto" || loaded.Toolset != "default" {
		t.Errorf("Session metadata did not survive: mode=%s toolset=%s", loaded.Mode, loaded.Toolset)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(loaded.Messages))
	}
	tc := loaded.Messages[1].ToolCalls
	if len(tc) != 1 || tc[0].Name != "read_file" {
		t.Errorf("Tool calls did not survive: %+v", tc)
	}
	if tc[0].Args["path"] != "main.go" {
		t.Errorf("Expected args to survive, got %v", tc[0].Args)
	}
}

func TestLoadMissingSession(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(oldWd)

	if _, err := Load("does-not-exist"); err == nil {
		t.Error("Expected an error loading a missing session")
	}
}

func TestHistoryCap(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(oldWd)

	sess, err := New("capped")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	for i := 0; i < maxHistory+10; i++ {
		sess.AddMessage(Message{Role: "user", Content: "m"})
	}
	if len(sess.Messages) != maxHistory {
		t.Errorf("Expected history capped at %d, got %d", maxHistory, len(sess.Messages))
	}
}
