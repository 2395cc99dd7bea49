package lspclient

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
)

// Conn owns a spawned language server process and its three byte streams.
// The streams belong solely to the Conn for its lifetime: the session binds
// one reader loop to stdout and one to stderr, and all writes to stdin go
// through Write.
type Conn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	writeMu sync.Mutex
	closed  atomic.Bool

	exitOnce sync.Once
	exitCh   chan error
}

// Spawn launches the language server with its standard streams captured.
// The pipes are plain OS pipes, so writes reach the child without any
// intermediate buffering.
func Spawn(ctx context.Context, command string, args ...string) (*Conn, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &SpawnError{Command: command, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, &SpawnError{Command: command, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, &SpawnError{Command: command, Err: err}
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, &SpawnError{Command: command, Err: err}
	}

	c := &Conn{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		exitCh: make(chan error, 1),
	}
	go c.reap()
	return c, nil
}

// reap waits for the process so it does not linger as a zombie, and records
// the exit result for Wait.
func (c *Conn) reap() {
	err := c.cmd.Wait()
	c.exitOnce.Do(func() { c.exitCh <- err })
}

// Write sends one encoded frame down the child's input stream. Writes are
// serialized so concurrent senders cannot interleave partial frames.
func (c *Conn) Write(frame []byte) error {
	if c.closed.Load() {
		return ErrTransportClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(frame); err != nil {
		return ErrTransportClosed
	}
	return nil
}

// Stdout returns the child's output stream.
func (c *Conn) Stdout() io.Reader { return c.stdout }

// Stderr returns the child's diagnostic stream.
func (c *Conn) Stderr() io.Reader { return c.stderr }

// Wait returns a channel receiving the process exit result.
func (c *Conn) Wait() <-chan error { return c.exitCh }

// Close shuts the streams and kills the process if it is still running.
// Safe to call more than once.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.stdin.Close()
	c.stdout.Close()
	c.stderr.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return nil
}
