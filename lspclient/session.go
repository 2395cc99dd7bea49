package lspclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// State is the session's lifecycle position. Requests other than the
// handshake's initial one are only valid in StateReady.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateShuttingDown
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting down"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NotificationHandler receives unsolicited server notifications.
type NotificationHandler func(method string, params json.RawMessage)

// ServerRequestHandler receives server-initiated requests (method and id both
// present). Producing a correlated reply, where the protocol mandates one, is
// the handler's responsibility.
type ServerRequestHandler func(msg *Message)

// SessionConfig holds the session's tunables.
type SessionConfig struct {
	// RequestTimeout bounds steady-state requests.
	RequestTimeout time.Duration

	// HandshakeTimeout bounds the initialize request, which servers answer
	// slower than steady-state calls.
	HandshakeTimeout time.Duration

	// SettleTimeout bounds the wait for server activity after each handshake
	// notification. Notifications never receive replies by protocol
	// definition; this wait only keeps the client from racing ahead of a
	// server that has not processed them yet. Expiry is logged, never fatal.
	SettleTimeout time.Duration

	// InboundBuffer is the capacity of the channel between the output-stream
	// reader and the router.
	InboundBuffer int
}

// DefaultSessionConfig returns defaults suitable for interactive use.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RequestTimeout:   5 * time.Second,
		HandshakeTimeout: 15 * time.Second,
		SettleTimeout:    500 * time.Millisecond,
		InboundBuffer:    64,
	}
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithTracer sets the diagnostic sink.
func WithTracer(t Tracer) SessionOption {
	return func(s *Session) { s.tracer = t }
}

// WithRequestTimeout sets the steady-state request timeout.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.cfg.RequestTimeout = d }
}

// WithHandshakeTimeout sets the initialize request timeout.
func WithHandshakeTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.cfg.HandshakeTimeout = d }
}

// WithSettleTimeout sets the bounded wait after handshake notifications.
func WithSettleTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.cfg.SettleTimeout = d }
}

// WithNotificationHandler sets the handler for unsolicited notifications.
func WithNotificationHandler(h NotificationHandler) SessionOption {
	return func(s *Session) { s.onNotification = h }
}

// WithServerRequestHandler sets the handler for server-initiated requests.
func WithServerRequestHandler(h ServerRequestHandler) SessionOption {
	return func(s *Session) { s.onServerRequest = h }
}

// Session is the public-facing client. It drives the initialization
// handshake, exposes request and notification operations, and owns the
// lifetime of the connection, the reader loops, and the pending-request
// registry.
//
// Requests may be issued concurrently once Ready; correlation is by id, so
// responses arriving out of order still reach the caller that issued them.
type Session struct {
	conn *Conn // nil when constructed over raw streams

	w       io.Writer
	writeMu sync.Mutex

	cfg    SessionConfig
	tracer Tracer

	state  atomic.Int32
	nextID atomic.Int64

	reg     *registry
	inbound chan *Message

	// activity is pulsed by the router on every inbound message; the
	// handshake's settle wait listens on it.
	activity chan struct{}

	onNotification  NotificationHandler
	onServerRequest ServerRequestHandler

	done      chan struct{}
	closeOnce sync.Once
}

// NewSession builds a session over explicit streams: r is the server's output
// stream, w its input stream, stderr (optional, may be nil) its diagnostic
// stream. Used directly in tests; production callers use Connect.
func NewSession(r io.Reader, w io.Writer, stderr io.Reader, opts ...SessionOption) *Session {
	s := &Session{
		w:        w,
		cfg:      DefaultSessionConfig(),
		tracer:   nopTracer{},
		activity: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reg = newRegistry(s.tracer)
	s.inbound = make(chan *Message, s.cfg.InboundBuffer)
	s.state.Store(int32(StateUninitialized))

	go s.readOutput(r)
	go s.route()
	if stderr != nil {
		go s.drainDiagnostics(stderr)
	}
	return s
}

// Connect spawns the language server and binds a session to its streams.
func Connect(ctx context.Context, command string, args []string, opts ...SessionOption) (*Session, error) {
	conn, err := Spawn(ctx, command, args...)
	if err != nil {
		return nil, err
	}
	s := NewSession(conn.Stdout(), nil, conn.Stderr(), opts...)
	s.conn = conn
	return s, nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// setState stores next and returns true only if the session was in want.
func (s *Session) setState(want, next State) bool {
	return s.state.CompareAndSwap(int32(want), int32(next))
}

// send writes one encoded frame, serialized so concurrent senders cannot
// interleave partial frames. The underlying pipe is unbuffered, so the frame
// reaches the child before send returns.
func (s *Session) send(frame []byte) error {
	if s.conn != nil {
		return s.conn.Write(frame)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.done:
		return ErrTransportClosed
	default:
	}
	if _, err := s.w.Write(frame); err != nil {
		return ErrTransportClosed
	}
	return nil
}

// --- Reader loops ---

// readOutput decodes frames off the output stream for the life of the
// connection and hands them to the router. Framing corruption is
// unrecoverable mid-stream, so it stops the loop; a bad payload inside a
// sound frame does not.
func (s *Session) readOutput(r io.Reader) {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		msg, err := ReadFrame(br)
		if err != nil {
			if errors.Is(err, ErrInvalidPayload) {
				s.tracer.Tracef("discarding frame: %v", err)
				continue
			}
			if err == io.EOF {
				s.tracer.Tracef("output stream ended")
			} else {
				s.tracer.Tracef("reader stopped: %v", err)
			}
			s.closeNow()
			return
		}
		select {
		case s.inbound <- msg:
		case <-s.done:
			return
		}
	}
}

// route is the single consumer of decoded messages. Responses resolve their
// pending entry; everything else surfaces to the registered handlers.
func (s *Session) route() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.inbound:
			s.pulseActivity()
			switch msg.Kind() {
			case KindResponse:
				s.reg.resolve(*msg.ID, msg)
			case KindNotification:
				s.tracer.Tracef("notification %s", msg.Method)
				if h := s.onNotification; h != nil {
					// Handlers run off the router goroutine so a slow one
					// cannot stall response delivery.
					go h(msg.Method, msg.Params)
				}
			case KindServerRequest:
				s.tracer.Tracef("server request %s (id %d)", msg.Method, *msg.ID)
				if h := s.onServerRequest; h != nil {
					go h(msg)
				}
			default:
				s.tracer.Tracef("dropping message of no recognizable kind")
			}
		}
	}
}

// drainDiagnostics consumes the diagnostic stream continuously so the child
// never blocks on a full pipe. Content goes to the tracer only; it takes no
// part in request correlation. Lines of any length must be tolerated: the
// loop may only stop at EOF, never on an oversized line.
func (s *Session) drainDiagnostics(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			s.tracer.Tracef("[server] %s", strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) pulseActivity() {
	select {
	case s.activity <- struct{}{}:
	default:
	}
}

// --- Requests and notifications ---

// Call sends a request and blocks until its matching response arrives, the
// deadline expires, or the connection closes. Valid in Ready only.
func (s *Session) Call(ctx context.Context, method string, params, result any) error {
	if s.State() != StateReady {
		return ErrSessionClosed
	}
	return s.call(ctx, method, params, result, s.cfg.RequestTimeout)
}

// CallWithTimeout is Call with an explicit deadline for this one request.
func (s *Session) CallWithTimeout(ctx context.Context, method string, params, result any, timeout time.Duration) error {
	if s.State() != StateReady {
		return ErrSessionClosed
	}
	return s.call(ctx, method, params, result, timeout)
}

// call registers a pending slot, sends the frame, and waits for resolution.
// The id is allocated monotonically, so registration cannot collide.
func (s *Session) call(ctx context.Context, method string, params, result any, timeout time.Duration) error {
	id := s.nextID.Add(1)

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	ch, err := s.reg.register(id, deadline)
	if err != nil {
		return err
	}

	frame, err := s.encodeRequest(id, method, params)
	if err != nil {
		s.reg.fail(id, err)
		return err
	}
	if err := s.send(frame); err != nil {
		s.reg.fail(id, err)
		return err
	}

	select {
	case out := <-ch:
		if out.err != nil {
			return out.err
		}
		if out.msg.Error != nil {
			return out.msg.Error
		}
		if result != nil && len(out.msg.Result) > 0 {
			if err := json.Unmarshal(out.msg.Result, result); err != nil {
				return fmt.Errorf("unmarshal %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		// The caller abandons the wait; the entry is removed so a late
		// response is dropped rather than delivered to nobody.
		s.reg.fail(id, ctx.Err())
		return ctx.Err()
	case <-s.done:
		return ErrConnectionClosed
	}
}

func (s *Session) encodeRequest(id int64, method string, params any) ([]byte, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return EncodeMessage(&Message{JSONRPC: "2.0", ID: &id, Method: method, Params: raw})
}

// Notify sends a notification. No response will ever arrive. Valid in Ready
// only.
func (s *Session) Notify(method string, params any) error {
	if s.State() != StateReady {
		return ErrSessionClosed
	}
	return s.notify(method, params)
}

// notify skips the state check; the handshake uses it before Ready.
func (s *Session) notify(method string, params any) error {
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	frame, err := EncodeMessage(&Message{JSONRPC: "2.0", Method: method, Params: raw})
	if err != nil {
		return err
	}
	return s.send(frame)
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return raw, nil
}

// --- Handshake ---

// Initialize drives the capability-negotiation handshake: the initialize
// request, then the initialized and workspace-folder notifications. On
// success the session is Ready and arbitrary requests are permitted.
func (s *Session) Initialize(ctx context.Context, rootURI string) (*InitializeResult, error) {
	if !s.setState(StateUninitialized, StateInitializing) {
		if s.State() == StateInitializing || s.State() == StateReady {
			return nil, ErrAlreadyInitialized
		}
		return nil, ErrSessionClosed
	}

	var result InitializeResult
	err := s.call(ctx, "initialize", newInitializeParams(rootURI), &result, s.cfg.HandshakeTimeout)
	if err != nil {
		s.setState(StateInitializing, StateUninitialized)
		return nil, fmt.Errorf("initialize request: %w", err)
	}

	if err := s.notifyAndSettle("initialized", struct{}{}); err != nil {
		s.setState(StateInitializing, StateUninitialized)
		return nil, err
	}
	if err := s.notifyAndSettle("workspace/didChangeWorkspaceFolders", newWorkspaceFoldersParams(rootURI)); err != nil {
		s.setState(StateInitializing, StateUninitialized)
		return nil, err
	}

	if !s.setState(StateInitializing, StateReady) {
		return nil, ErrSessionClosed
	}
	s.tracer.Tracef("session ready")
	return &result, nil
}

// notifyAndSettle sends a notification and then waits, bounded, for the next
// inbound message as an implicit sign the server has caught up. The wait is a
// compatibility accommodation for slow servers, not a protocol guarantee;
// expiry is logged and ignored.
func (s *Session) notifyAndSettle(method string, params any) error {
	select {
	case <-s.activity: // clear a stale pulse
	default:
	}
	if err := s.notify(method, params); err != nil {
		return fmt.Errorf("%s notification: %w", method, err)
	}
	select {
	case <-s.activity:
	case <-time.After(s.cfg.SettleTimeout):
		s.tracer.Tracef("no server activity within %s after %s", s.cfg.SettleTimeout, method)
	case <-s.done:
	}
	return nil
}

// --- Shutdown ---

// Shutdown requests an orderly server exit, then closes the connection.
// Every still-pending request resolves with ErrConnectionClosed. Idempotent.
func (s *Session) Shutdown(ctx context.Context) error {
	if !s.setState(StateReady, StateShuttingDown) {
		// Never reached Ready, or already on the way down: just tear down.
		s.closeNow()
		return nil
	}

	// Best effort: a server that has already died cannot acknowledge.
	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.call(shutdownCtx, "shutdown", nil, nil, 2*time.Second); err != nil {
		s.tracer.Tracef("shutdown request: %v", err)
	}
	if err := s.notify("exit", nil); err != nil {
		s.tracer.Tracef("exit notification: %v", err)
	}

	s.closeNow()
	return nil
}

// Close tears the session down without the shutdown exchange.
func (s *Session) Close() error {
	s.closeNow()
	return nil
}

// closeNow is the single teardown path: terminal state, streams closed,
// every pending request abandoned. Whoever gets here first wins; later
// callers are no-ops.
func (s *Session) closeNow() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
		s.reg.abandonAll(ErrConnectionClosed)
		s.reg.close()
		s.tracer.Tracef("session closed")
	})
}

// PendingRequests reports how many requests are awaiting responses.
func (s *Session) PendingRequests() int {
	return s.reg.pendingCount()
}
