// Package lspclient implements an asynchronous client for JSON-RPC spoken
// over a child process's standard streams with Content-Length framing, the
// base protocol of language servers such as pyright, gopls and
// typescript-language-server.
//
// # Architecture
//
// The package is organized leaf-first:
//
//   - Frame codec (frame.go): encodes a message into header block + body and
//     decodes discrete frames off a byte stream.
//   - Conn (transport.go): owns the spawned server process and its three
//     streams; writes are serialized and unbuffered.
//   - Reader loops (session.go): one goroutine per stream. Decoded output
//     frames flow through a bounded channel into a single router goroutine;
//     the diagnostic stream is drained continuously into the tracer.
//   - Registry (registry.go): maps in-flight request ids to one-shot
//     completion slots with per-request deadlines.
//   - Session (session.go): the public client. Drives the initialize
//     handshake, exposes request/notification operations, and owns the
//     lifecycle of everything above.
//
// # Usage
//
//	sess, err := lspclient.Connect(ctx, "pyright-langserver", []string{"--stdio"})
//	if err != nil {
//	    // handle error
//	}
//	defer sess.Close()
//
//	if _, err := sess.Initialize(ctx, lspclient.FileURI(projectDir)); err != nil {
//	    // handle error
//	}
//
//	sess.DidOpen(lspclient.FileURI(file), "python", content)
//	hover, err := sess.Hover(ctx, lspclient.FileURI(file), lspclient.Position{Line: 2, Character: 4})
//
// # Concurrency
//
// Requests may be issued from any number of goroutines once the session is
// Ready. Correlation is by request id, not issuance order, so responses that
// arrive out of order still reach their own callers. A caller that stops
// waiting (context cancellation, timeout) does not disturb the reader loop or
// other pending requests. On connection closure every pending request
// resolves with ErrConnectionClosed; none hangs.
//
// # Diagnostics
//
// Components report through an injected Tracer rather than a global logger,
// so embedders and tests can capture output without process-wide state.
package lspclient
