package lspclient

import (
	"encoding/json"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location is a range within a document identified by URI.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// TextDocumentIdentifier names a document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// TextDocumentPositionParams is the common request payload for positional
// queries (hover, definition, references, signature help).
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// TextDocumentItem is a document transferred to the server on open.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// VersionedTextDocumentIdentifier names a document plus its version.
type VersionedTextDocumentIdentifier struct {
	TextDocumentIdentifier
	Version int `json:"version"`
}

// TextDocumentContentChangeEvent describes a document change. A nil Range
// means full-content replacement.
type TextDocumentContentChangeEvent struct {
	Range *Range `json:"range,omitempty"`
	Text  string `json:"text"`
}

// Hover is the server's hover answer. Contents stays raw because servers
// return several shapes (string, MarkedString, MarkupContent, arrays).
type Hover struct {
	Contents json.RawMessage `json:"contents"`
	Range    *Range          `json:"range,omitempty"`
}

// MarkupContent is the modern hover/documentation payload shape.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// HoverText extracts a plain-text rendering of the hover contents,
// tolerating the shapes servers actually send.
func (h *Hover) HoverText() string {
	if h == nil || len(h.Contents) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(h.Contents, &s) == nil {
		return s
	}
	var m MarkupContent
	if json.Unmarshal(h.Contents, &m) == nil && m.Value != "" {
		return m.Value
	}
	var parts []json.RawMessage
	if json.Unmarshal(h.Contents, &parts) == nil {
		var out []string
		for _, p := range parts {
			var ps string
			if json.Unmarshal(p, &ps) == nil {
				out = append(out, ps)
				continue
			}
			var pm MarkupContent
			if json.Unmarshal(p, &pm) == nil {
				out = append(out, pm.Value)
			}
		}
		return strings.Join(out, "\n")
	}
	return string(h.Contents)
}

// CompletionItem is one completion candidate.
type CompletionItem struct {
	Label  string `json:"label"`
	Kind   int    `json:"kind,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// CompletionList is the server's completion answer.
type CompletionList struct {
	IsIncomplete bool             `json:"isIncomplete"`
	Items        []CompletionItem `json:"items"`
}

// SignatureInformation describes one callable signature.
type SignatureInformation struct {
	Label         string          `json:"label"`
	Documentation json.RawMessage `json:"documentation,omitempty"`
}

// SignatureHelp is the server's signature-help answer.
type SignatureHelp struct {
	Signatures      []SignatureInformation `json:"signatures"`
	ActiveSignature int                    `json:"activeSignature,omitempty"`
	ActiveParameter int                    `json:"activeParameter,omitempty"`
}

// ServerInfo identifies the server from the initialize response.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// InitializeResult is the server's half of capability negotiation.
// Capabilities stays raw: the session does not interpret them, it hands them
// to the caller unmodified.
type InitializeResult struct {
	Capabilities json.RawMessage `json:"capabilities"`
	ServerInfo   *ServerInfo     `json:"serverInfo,omitempty"`
}

// workspaceFolder is one root the server should consider.
type workspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// newInitializeParams declares the client's capabilities: hover, completion,
// go-to-definition, references, signature help, document synchronization and
// workspace folders, with the root supplied as a URI.
func newInitializeParams(rootURI string) map[string]any {
	return map[string]any{
		"processId": nil,
		"rootUri":   rootURI,
		"capabilities": map[string]any{
			"textDocument": map[string]any{
				"hover": map[string]any{},
				"completion": map[string]any{
					"completionItem": map[string]any{
						"snippetSupport": true,
					},
				},
				"definition": map[string]any{},
				"references": map[string]any{},
				"signatureHelp": map[string]any{
					"signatureInformation": map[string]any{
						"documentationFormat": []string{"markdown", "plaintext"},
					},
				},
				"synchronization": map[string]any{
					"didOpen":   true,
					"didChange": true,
					"didClose":  true,
				},
			},
			"workspace": map[string]any{
				"workspaceFolders": true,
				"didChangeWatchedFiles": map[string]any{
					"dynamicRegistration": true,
				},
			},
		},
		"trace": "off",
	}
}

// newWorkspaceFoldersParams registers rootURI as an added workspace folder.
func newWorkspaceFoldersParams(rootURI string) map[string]any {
	return map[string]any{
		"event": map[string]any{
			"added": []workspaceFolder{
				{URI: rootURI, Name: workspaceName(rootURI)},
			},
			"removed": []workspaceFolder{},
		},
	}
}

func workspaceName(rootURI string) string {
	trimmed := strings.TrimRight(rootURI, "/")
	return path.Base(trimmed)
}

// FileURI converts a filesystem path into a file:// URI.
func FileURI(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
