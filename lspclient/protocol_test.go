package lspclient

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHoverText(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		want     string
	}{
		{"plain string", `"func Foo() error"`, "func Foo() error"},
		{"markup content", `{"kind":"markdown","value":"**Foo** does things"}`, "**Foo** does things"},
		{"array of strings", `["line one","line two"]`, "line one\nline two"},
		{"array of markup", `[{"kind":"plaintext","value":"a"},{"kind":"plaintext","value":"b"}]`, "a\nb"},
		{"mixed array", `["plain",{"kind":"markdown","value":"rich"}]`, "plain\nrich"},
	}
	for _, c := range cases {
		h := &Hover{Contents: json.RawMessage(c.contents)}
		if got := h.HoverText(); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.name, c.want, got)
		}
	}

	var nilHover *Hover
	if got := nilHover.HoverText(); got != "" {
		t.Errorf("Expected empty text for nil hover, got %q", got)
	}
	empty := &Hover{}
	if got := empty.HoverText(); got != "" {
		t.Errorf("Expected empty text for empty contents, got %q", got)
	}
}

func TestParseLocations(t *testing.T) {
	single := `{"uri":"file:///a.go","range":{"start":{"line":1,"character":2},"end":{"line":1,"character":5}}}`

	locs, err := parseLocations(json.RawMessage(`null`))
	if err != nil {
		t.Fatalf("parseLocations(null) failed: %v", err)
	}
	if len(locs) != 0 {
		t.Errorf("Expected no locations for null, got %d", len(locs))
	}

	locs, err = parseLocations(json.RawMessage(single))
	if err != nil {
		t.Fatalf("parseLocations(single) failed: %v", err)
	}
	if len(locs) != 1 || locs[0].URI != "file:///a.go" {
		t.Errorf("Expected one location for file:///a.go, got %+v", locs)
	}
	if locs[0].Range.Start.Line != 1 || locs[0].Range.Start.Character != 2 {
		t.Errorf("Unexpected range start: %+v", locs[0].Range.Start)
	}

	locs, err = parseLocations(json.RawMessage(`[` + single + `,` + single + `]`))
	if err != nil {
		t.Fatalf("parseLocations(list) failed: %v", err)
	}
	if len(locs) != 2 {
		t.Errorf("Expected two locations, got %d", len(locs))
	}
}

func TestParseCompletions(t *testing.T) {
	list, err := parseCompletions(json.RawMessage(`{"isIncomplete":true,"items":[{"label":"Foo"},{"label":"Bar"}]}`))
	if err != nil {
		t.Fatalf("parseCompletions(list) failed: %v", err)
	}
	if !list.IsIncomplete {
		t.Error("Expected isIncomplete to be true")
	}
	if len(list.Items) != 2 || list.Items[0].Label != "Foo" {
		t.Errorf("Unexpected items: %+v", list.Items)
	}

	list, err = parseCompletions(json.RawMessage(`[{"label":"Baz"}]`))
	if err != nil {
		t.Fatalf("parseCompletions(bare array) failed: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Label != "Baz" {
		t.Errorf("Unexpected items from bare array: %+v", list.Items)
	}

	list, err = parseCompletions(json.RawMessage(`null`))
	if err != nil {
		t.Fatalf("parseCompletions(null) failed: %v", err)
	}
	if len(list.Items) != 0 {
		t.Errorf("Expected no items for null, got %d", len(list.Items))
	}
}

func TestFileURI(t *testing.T) {
	uri := FileURI("/tmp/project/main.go")
	if uri != "file:///tmp/project/main.go" {
		t.Errorf("Expected 'file:///tmp/project/main.go', got %q", uri)
	}
	if !strings.HasPrefix(FileURI("relative.go"), "file:///") {
		t.Errorf("Expected relative paths to be made absolute, got %q", FileURI("relative.go"))
	}
}

func TestWorkspaceName(t *testing.T) {
	if name := workspaceName("file:///home/user/project/"); name != "project" {
		t.Errorf("Expected 'project', got %q", name)
	}
	if name := workspaceName("file:///srv/code"); name != "code" {
		t.Errorf("Expected 'code', got %q", name)
	}
}
