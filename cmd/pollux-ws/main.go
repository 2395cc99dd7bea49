// pollux-ws bridges a spawned agent subprocess to WebSocket clients. The
// agent's stdout and stderr lines are broadcast to every connected client;
// messages from any client are written to the agent's stdin.
//
// Usage:
//
//	pollux-ws [-addr host:port] <agent-command> [args...]
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"

	"github.com/atharvparlikar/pollux/config"
	"github.com/atharvparlikar/pollux/relay"
)

func main() {
	addrFlag := flag.String("addr", "", "Listen address (defaults to the configured relay address)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: pollux-ws [-addr host:port] <agent-command> [args...]")
		os.Exit(1)
	}

	addr := *addrFlag
	if addr == "" {
		cfg, err := config.LoadConfig()
		if err == nil && cfg.RelayAddr != "" {
			addr = cfg.RelayAddr
		} else {
			addr = "localhost:8080"
		}
	}

	cmd := exec.Command(flag.Arg(0), flag.Args()[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting stdin: %v\n", err)
		os.Exit(1)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting stdout: %v\n", err)
		os.Exit(1)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting stderr: %v\n", err)
		os.Exit(1)
	}

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting agent: %v\n", err)
		os.Exit(1)
	}

	hub := relay.NewHub(
		relay.WithInbound(func(msg []byte) {
			// Client message -> agent stdin, one line per message.
			if _, err := stdin.Write(append(msg, '\n')); err != nil {
				fmt.Fprintf(os.Stderr, "Stdin write error: %v\n", err)
			}
		}),
		relay.WithTrace(func(msg string) {
			fmt.Fprintf(os.Stderr, "relay: %s\n", msg)
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	go pumpLines(hub, stdout, "stdout")
	go pumpLines(hub, stderr, "stderr")

	// Exit when the agent exits.
	go func() {
		err := cmd.Wait()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Agent exited: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)

	fmt.Printf("WebSocket server running on ws://%s/ws\n", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		fmt.Fprintf(os.Stderr, "Server stopped: %v\n", err)
		os.Exit(1)
	}
}

// pumpLines broadcasts each line from the agent's output stream, tagged
// with the stream it came from.
func pumpLines(hub *relay.Hub, r io.Reader, stream string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		payload, err := json.Marshal(map[string]string{
			"type": stream,
			"data": scanner.Text(),
		})
		if err != nil {
			continue
		}
		hub.Broadcast(payload)
	}
}
