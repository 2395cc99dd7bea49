package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigProjectLevel(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(oldWd)

	configDir := filepath.Join(dir, ".pollux")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	yamlContent := `llm: openai
model: gpt-4o
command_timeout_seconds: 30
relay_addr: "localhost:9090"
allowed_commands:
  - "^go (test|build|vet).*"
language_servers:
  go:
    command: gopls
  python:
    command: pyright-langserver
    args: ["--stdio"]
toolsets:
  - name: default
    tools: [read_file]
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.LLMClient != "openai" {
		t.Errorf("Expected llm 'openai', got '%s'", cfg.LLMClient)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("Expected model 'gpt-4o', got '%s'", cfg.Model)
	}
	if cfg.CommandTimeoutSecs != 30 {
		t.Errorf("Expected command timeout 30, got %d", cfg.CommandTimeoutSecs)
	}
	if cfg.RelayAddr != "localhost:9090" {
		t.Errorf("Expected relay addr 'localhost:9090', got '%s'", cfg.RelayAddr)
	}

	ls, ok := cfg.GetLanguageServer("python")
	if !ok {
		t.Fatal("Expected a language server for 'python'")
	}
	if ls.Command != "pyright-langserver" || len(ls.Args) != 1 || ls.Args[0] != "--stdio" {
		t.Errorf("Unexpected python language server: %+v", ls)
	}
	if _, ok := cfg.GetLanguageServer("rust"); ok {
		t.Error("Expected no language server for 'rust'")
	}

	// The .pollux directory is hidden by default.
	found := false
	for _, pattern := range cfg.FilesystemAccess.Hidden {
		if pattern == ".pollux" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected '.pollux' in hidden patterns, got %v", cfg.FilesystemAccess.Hidden)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	oldWd, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(oldWd)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.CommandTimeoutSecs != 60 {
		t.Errorf("Expected default command timeout 60, got %d", cfg.CommandTimeoutSecs)
	}
	if cfg.RelayAddr != "localhost:8080" {
		t.Errorf("Expected default relay addr 'localhost:8080', got '%s'", cfg.RelayAddr)
	}
}

func TestGetToolset(t *testing.T) {
	cfg := &Config{
		Toolsets: []Toolset{
			{Name: "default", Tools: []string{"read_file"}},
			{Name: "full", Tools: []string{"read_file", "write_file", "execute_command"}},
		},
	}

	ts, err := cfg.GetToolset("full")
	if err != nil {
		t.Fatalf("GetToolset failed: %v", err)
	}
	if ts.Name != "full" || len(ts.Tools) != 3 {
		t.Errorf("Unexpected toolset: %+v", ts)
	}

	// Empty name and unknown names fall back to default.
	ts, err = cfg.GetToolset("")
	if err != nil || ts.Name != "default" {
		t.Errorf("Expected default toolset for empty name, got %+v (err %v)", ts, err)
	}
	ts, err = cfg.GetToolset("nonexistent")
	if err != nil || ts.Name != "default" {
		t.Errorf("Expected default toolset fallback, got %+v (err %v)", ts, err)
	}
}

func TestGetToolsetMissingDefault(t *testing.T) {
	cfg := &Config{}
	if _, err := cfg.GetToolset("default"); err == nil {
		t.Error("Expected an error when no default toolset exists")
	}
}
