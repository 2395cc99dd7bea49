package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T, opts ...Option) (*Hub, string) {
	t.Helper()

	hub := NewHub(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return hub, wsURL
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub, wsURL := newTestHub(t)

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	// Give the hub time to register the clients.
	waitForClients(t, hub, 3)

	hub.Broadcast([]byte("hello everyone"))

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Client %d read failed: %v", i, err)
		}
		if string(msg) != "hello everyone" {
			t.Errorf("Client %d: expected 'hello everyone', got %q", i, msg)
		}
	}
}

func TestInboundHandler(t *testing.T) {
	var mu sync.Mutex
	var received []string

	_, wsURL := newTestHub(t, WithInbound(func(msg []byte) {
		mu.Lock()
		received = append(received, string(msg))
		mu.Unlock()
	}))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("from client")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0] != "from client" {
		t.Errorf("Expected ['from client'], got %v", received)
	}
}

func TestBroadcastWithNoClients(t *testing.T) {
	hub, _ := newTestHub(t)
	// Should not block or panic.
	hub.Broadcast([]byte("into the void"))
}

func TestDisconnectUnregistersClient(t *testing.T) {
	hub, wsURL := newTestHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

// waitForClients polls until the hub reports the wanted number of clients.
func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients, got %d", want, hub.ClientCount())
}

func TestStoppedHubRefusesConnections(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	cancel()
	<-hub.done

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		// The upgrade itself may already fail once the hub is stopped.
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the stopped hub to close the connection")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients on a stopped hub, got %d", hub.ClientCount())
	}
}
