package lspclient

import (
	"context"
	"encoding/json"
)

// Typed steady-state operations. Each one constructs the method-specific
// payload, correlates through the registry, and returns the resolved result.
// All of them require the session to be Ready.

// Hover returns hover information at a position.
func (s *Session) Hover(ctx context.Context, uri string, pos Position) (*Hover, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
	var result *Hover
	if err := s.Call(ctx, "textDocument/hover", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Definition returns the definition location(s) for the symbol at a position.
// Servers answer with a single Location, a list, or null; all are accepted.
func (s *Session) Definition(ctx context.Context, uri string, pos Position) ([]Location, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
	var raw json.RawMessage
	if err := s.Call(ctx, "textDocument/definition", params, &raw); err != nil {
		return nil, err
	}
	return parseLocations(raw)
}

// References returns every reference to the symbol at a position.
func (s *Session) References(ctx context.Context, uri string, pos Position, includeDecl bool) ([]Location, error) {
	params := struct {
		TextDocumentPositionParams
		Context struct {
			IncludeDeclaration bool `json:"includeDeclaration"`
		} `json:"context"`
	}{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
			Position:     pos,
		},
	}
	params.Context.IncludeDeclaration = includeDecl

	var result []Location
	if err := s.Call(ctx, "textDocument/references", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Completion returns completion candidates at a position. Servers answer with
// either a CompletionList or a bare item array.
func (s *Session) Completion(ctx context.Context, uri string, pos Position) (*CompletionList, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
	var raw json.RawMessage
	if err := s.Call(ctx, "textDocument/completion", params, &raw); err != nil {
		return nil, err
	}
	return parseCompletions(raw)
}

// SignatureHelp returns signature help at a position.
func (s *Session) SignatureHelp(ctx context.Context, uri string, pos Position) (*SignatureHelp, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
	var result *SignatureHelp
	if err := s.Call(ctx, "textDocument/signatureHelp", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DidOpen announces an opened document.
func (s *Session) DidOpen(uri, languageID, text string) error {
	return s.Notify("textDocument/didOpen", map[string]any{
		"textDocument": TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    1,
			Text:       text,
		},
	})
}

// DidChange announces document changes.
func (s *Session) DidChange(uri string, version int, changes []TextDocumentContentChangeEvent) error {
	return s.Notify("textDocument/didChange", map[string]any{
		"textDocument": VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		"contentChanges": changes,
	})
}

// DidClose announces a closed document.
func (s *Session) DidClose(uri string) error {
	return s.Notify("textDocument/didClose", map[string]any{
		"textDocument": TextDocumentIdentifier{URI: uri},
	})
}

// parseLocations accepts the shapes servers return for location results:
// null, a single Location, or a list.
func parseLocations(raw json.RawMessage) ([]Location, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []Location
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var one Location
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, &PayloadError{Body: raw, Err: err}
	}
	return []Location{one}, nil
}

// parseCompletions accepts either a CompletionList or a bare item array.
func parseCompletions(raw json.RawMessage) (*CompletionList, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return &CompletionList{}, nil
	}
	if raw[0] == '[' {
		var items []CompletionItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &PayloadError{Body: raw, Err: err}
		}
		return &CompletionList{Items: items}, nil
	}
	var list CompletionList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &PayloadError{Body: raw, Err: err}
	}
	return &list, nil
}
