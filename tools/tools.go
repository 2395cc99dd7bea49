package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/atharvparlikar/pollux/config"
	"github.com/atharvparlikar/pollux/tools/lsp"
	"github.com/atharvparlikar/pollux/tools/mcp"
	"github.com/bmatcuk/doublestar/v4"
)

// Tool defines the interface for any action the agent can take.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// ToolRegistry holds all available tools, both built-in and those discovered
// from MCP servers.
type ToolRegistry struct {
	tools      map[string]Tool
	mcpClients map[string]*mcp.MCPClient
	lspManager *lsp.Manager
}

func NewToolRegistry(cfg *config.Config) *ToolRegistry {
	r := &ToolRegistry{
		tools:      make(map[string]Tool),
		mcpClients: make(map[string]*mcp.MCPClient),
	}

	// Register built-in tools
	r.Register(&ReadFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&WriteFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&EditFileTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&ListFilesTool{fsAccess: &cfg.FilesystemAccess})
	r.Register(&ExecuteCommandTool{
		allowedCommands: cfg.AllowedCommands,
		timeoutSecs:     cfg.CommandTimeoutSecs,
	})

	// Code-intelligence tools are only available when language servers
	// are configured.
	if len(cfg.LanguageServers) > 0 {
		r.lspManager = lsp.NewManager(cfg.LanguageServers, cfg.Trace)
		r.Register(lsp.NewHoverTool(r.lspManager))
		r.Register(lsp.NewDefinitionTool(r.lspManager))
		r.Register(lsp.NewReferencesTool(r.lspManager))
	}

	// Start configured MCP server subprocesses and adopt their tools.
	for _, server := range cfg.AdditionalMCPServers {
		client, err := mcp.NewMCPClient(server.Name, server.Command, server.Args)
		if err != nil {
			fmt.Printf("Warning: could not start MCP server '%s': %v\n", server.Name, err)
			continue
		}
		r.mcpClients[server.Name] = client
	}

	return r
}

func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *ToolRegistry) GetTool(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Stop terminates every subprocess the registry started: MCP servers and
// language servers.
func (r *ToolRegistry) Stop() {
	for _, client := range r.mcpClients {
		if err := client.Stop(); err != nil {
			fmt.Printf("Warning: error stopping MCP server '%s': %v\n", client.Name, err)
		}
	}
	if r.lspManager != nil {
		r.lspManager.Stop()
	}
}

// GetActiveTools returns the tool instances for a given toolset. MCP tools
// are addressed as "<server>.<tool>"; "<server>.*" selects every tool the
// server provides.
func (r *ToolRegistry) GetActiveTools(ts *config.Toolset) ([]Tool, error) {
	var activeTools []Tool
	for _, toolName := range ts.Tools {
		if serverName, mcpTool, ok := strings.Cut(toolName, "."); ok {
			client, found := r.mcpClients[serverName]
			if !found {
				return nil, fmt.Errorf("MCP server '%s' for tool '%s' is not configured", serverName, toolName)
			}
			if mcpTool == "*" {
				for _, t := range client.AllTools() {
					activeTools = append(activeTools, t)
				}
				continue
			}
			t, found := client.GetTool(mcpTool)
			if !found {
				return nil, fmt.Errorf("MCP server '%s' does not provide tool '%s'", serverName, mcpTool)
			}
			activeTools = append(activeTools, t)
			continue
		}

		if t, ok := r.GetTool(toolName); ok {
			activeTools = append(activeTools, t)
		} else {
			return nil, fmt.Errorf("tool '%s' from toolset '%s' is not registered", toolName, ts.Name)
		}
	}
	return activeTools, nil
}

// isPathRestricted checks if a path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, fmt.Errorf("invalid glob pattern '%s': %w", pattern, err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

// isCommandAllowed checks if a command is in the allowlist (with regex support).
func isCommandAllowed(command string, allowed []string) (bool, error) {
	cmdParts := strings.Fields(command)
	if len(cmdParts) == 0 {
		return false, nil
	}

	for _, pattern := range allowed {
		re, err := regexp.Compile(pattern)
		if err != nil {
			fmt.Printf("Warning: Invalid regex in allowed_commands '%s': %v\n", pattern, err)
			// Fallback to simple string comparison if regex is invalid
			if command == pattern {
				return true, nil
			}
			continue
		}
		if re.MatchString(command) {
			return true, nil
		}
	}
	return false, nil
}
