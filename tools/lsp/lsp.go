// Package lsp exposes language-server code intelligence (hover, definition,
// references) as agent tools. Sessions are started lazily per language from
// the configured server commands and shared across tool calls.
package lsp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/atharvparlikar/pollux/config"
	"github.com/atharvparlikar/pollux/lspclient"
)

// connectFunc matches lspclient.Connect. Tests swap it to avoid spawning
// real server processes.
type connectFunc func(ctx context.Context, command string, args []string, opts ...lspclient.SessionOption) (*lspclient.Session, error)

// Manager owns one language-server session per language id.
type Manager struct {
	mu          sync.Mutex
	servers     map[string]config.LanguageServer
	sessions    map[string]*lspclient.Session
	opened      map[string]map[string]bool
	rootURI     string
	connect     connectFunc
	sessionOpts []lspclient.SessionOption
}

// NewManager creates a manager for the configured language servers. The
// workspace root defaults to the current directory. With trace enabled,
// every session's protocol traffic is logged to stderr.
func NewManager(servers map[string]config.LanguageServer, trace bool) *Manager {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	m := &Manager{
		servers:  servers,
		sessions: make(map[string]*lspclient.Session),
		opened:   make(map[string]map[string]bool),
		rootURI:  lspclient.FileURI(wd),
		connect:  lspclient.Connect,
	}
	if trace {
		m.sessionOpts = append(m.sessionOpts, lspclient.WithTracer(lspclient.NewWriterTracer(os.Stderr)))
	}
	return m
}

// Stop shuts down every running language-server session.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for lang, sess := range m.sessions {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		sess.Shutdown(ctx)
		cancel()
		delete(m.sessions, lang)
		delete(m.opened, lang)
	}
}

// session returns the running session for a language, starting and
// initializing one on first use.
func (m *Manager) session(ctx context.Context, languageID string) (*lspclient.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[languageID]; ok {
		if sess.State() == lspclient.StateReady {
			return sess, nil
		}
		// Server died or was shut down; forget it and respawn.
		delete(m.sessions, languageID)
		delete(m.opened, languageID)
	}

	server, ok := m.servers[languageID]
	if !ok {
		return nil, fmt.Errorf("no language server configured for '%s'", languageID)
	}

	sess, err := m.connect(ctx, server.Command, server.Args, m.sessionOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start language server for '%s': %w", languageID, err)
	}
	if _, err := sess.Initialize(ctx, m.rootURI); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to initialize language server for '%s': %w", languageID, err)
	}

	m.sessions[languageID] = sess
	m.opened[languageID] = make(map[string]bool)
	return sess, nil
}

// openDocument makes sure the server has seen the file's current content.
func (m *Manager) openDocument(sess *lspclient.Session, languageID, path, uri string) error {
	m.mu.Lock()
	alreadyOpen := m.opened[languageID][uri]
	m.mu.Unlock()
	if alreadyOpen {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read '%s': %w", path, err)
	}
	if err := sess.DidOpen(uri, languageID, string(content)); err != nil {
		return err
	}

	m.mu.Lock()
	m.opened[languageID][uri] = true
	m.mu.Unlock()
	return nil
}

// languageForPath maps a file extension to a language id.
func languageForPath(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go", true
	case ".py":
		return "python", true
	case ".ts", ".tsx":
		return "typescript", true
	case ".js", ".jsx":
		return "javascript", true
	case ".rs":
		return "rust", true
	case ".c", ".h":
		return "c", true
	case ".cpp", ".cc", ".hpp":
		return "cpp", true
	case ".java":
		return "java", true
	default:
		return "", false
	}
}

// resolve turns tool args into the session, uri and position for a request.
func (m *Manager) resolve(ctx context.Context, args map[string]interface{}) (*lspclient.Session, string, lspclient.Position, error) {
	var pos lspclient.Position

	path, ok := args["path"].(string)
	if !ok {
		return nil, "", pos, fmt.Errorf("missing or invalid 'path' argument")
	}
	line, ok := toInt(args["line"])
	if !ok {
		return nil, "", pos, fmt.Errorf("missing or invalid 'line' argument")
	}
	character, ok := toInt(args["character"])
	if !ok {
		return nil, "", pos, fmt.Errorf("missing or invalid 'character' argument")
	}

	languageID, ok := languageForPath(path)
	if !ok {
		return nil, "", pos, fmt.Errorf("unsupported file type '%s'", filepath.Ext(path))
	}

	sess, err := m.session(ctx, languageID)
	if err != nil {
		return nil, "", pos, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", pos, err
	}
	uri := lspclient.FileURI(abs)

	if err := m.openDocument(sess, languageID, path, uri); err != nil {
		return nil, "", pos, err
	}

	pos = lspclient.Position{Line: line, Character: character}
	return sess, uri, pos, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
