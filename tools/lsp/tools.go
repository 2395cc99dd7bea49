package lsp

import (
	"context"
	"fmt"
	"strings"

	"github.com/atharvparlikar/pollux/lspclient"
)

// HoverTool shows type and documentation info at a position.
type HoverTool struct {
	manager *Manager
}

func NewHoverTool(m *Manager) *HoverTool { return &HoverTool{manager: m} }

func (t *HoverTool) Name() string {
	return "hover"
}

func (t *HoverTool) Description() string {
	return "Shows type information and documentation for the symbol at a position in a source file. " +
		"Args: path (string), line (integer, zero-based), character (integer, zero-based)."
}

func (t *HoverTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	sess, uri, pos, err := t.manager.resolve(ctx, args)
	if err != nil {
		return "", err
	}

	hover, err := sess.Hover(ctx, uri, pos)
	if err != nil {
		return "", err
	}
	if hover == nil {
		return "No hover information available at this position.", nil
	}
	text := hover.HoverText()
	if text == "" {
		return "No hover information available at this position.", nil
	}
	return text, nil
}

// DefinitionTool jumps to where the symbol at a position is defined.
type DefinitionTool struct {
	manager *Manager
}

func NewDefinitionTool(m *Manager) *DefinitionTool { return &DefinitionTool{manager: m} }

func (t *DefinitionTool) Name() string {
	return "definition"
}

func (t *DefinitionTool) Description() string {
	return "Finds where the symbol at a position is defined. " +
		"Args: path (string), line (integer, zero-based), character (integer, zero-based)."
}

func (t *DefinitionTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	sess, uri, pos, err := t.manager.resolve(ctx, args)
	if err != nil {
		return "", err
	}

	locations, err := sess.Definition(ctx, uri, pos)
	if err != nil {
		return "", err
	}
	if len(locations) == 0 {
		return "No definition found for this position.", nil
	}
	return formatLocations(locations), nil
}

// ReferencesTool lists every reference to the symbol at a position.
type ReferencesTool struct {
	manager *Manager
}

func NewReferencesTool(m *Manager) *ReferencesTool { return &ReferencesTool{manager: m} }

func (t *ReferencesTool) Name() string {
	return "references"
}

func (t *ReferencesTool) Description() string {
	return "Lists all references to the symbol at a position, including its declaration. " +
		"Args: path (string), line (integer, zero-based), character (integer, zero-based)."
}

func (t *ReferencesTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	sess, uri, pos, err := t.manager.resolve(ctx, args)
	if err != nil {
		return "", err
	}

	locations, err := sess.References(ctx, uri, pos, true)
	if err != nil {
		return "", err
	}
	if len(locations) == 0 {
		return "No references found for this position.", nil
	}
	return formatLocations(locations), nil
}

// formatLocations renders locations one per line as uri:line:character,
// zero-based, matching the positions the tools accept.
func formatLocations(locations []lspclient.Location) string {
	var b strings.Builder
	for _, loc := range locations {
		fmt.Fprintf(&b, "%s:%d:%d\n", loc.URI, loc.Range.Start.Line, loc.Range.Start.Character)
	}
	return strings.TrimRight(b.String(), "\n")
}
