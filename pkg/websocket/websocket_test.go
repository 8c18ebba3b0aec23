package websocketPkg

import (
	"SkinDetect/pkg/log"
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/context"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := append([]byte("echo:"), msg...)
			if err := conn.WriteMessage(mt, reply); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestExchange(t *testing.T) {
	srv := echoServer(t)
	client := NewAIWebSocketClient(log.NewNopLogger(), wsURL(srv), WithTimeouts(2*time.Second, 2*time.Second))
	defer client.Close()

	for i := 0; i < 3; i++ {
		reply, err := client.Exchange(context.Background(), []byte("frame"))
		if err != nil {
			t.Fatalf("exchange %d: %v", i, err)
		}
		if !bytes.Equal(reply, []byte("echo:frame")) {
			t.Fatalf("reply = %q", reply)
		}
	}

	if !client.IsConnected() {
		t.Error("client should stay connected between exchanges")
	}
}

func TestExchange_ReconnectsAfterClose(t *testing.T) {
	srv := echoServer(t)
	client := NewAIWebSocketClient(log.NewNopLogger(), wsURL(srv))
	defer client.Close()

	if _, err := client.Exchange(context.Background(), []byte("a")); err != nil {
		t.Fatalf("first exchange: %v", err)
	}

	client.Close()
	if client.IsConnected() {
		t.Fatal("client still connected after Close")
	}

	if _, err := client.Exchange(context.Background(), []byte("b")); err != nil {
		t.Fatalf("exchange after close should reconnect: %v", err)
	}
}

func TestExchange_Unreachable(t *testing.T) {
	client := NewAIWebSocketClient(log.NewNopLogger(), "ws://127.0.0.1:1/nowhere")
	defer client.Close()

	if _, err := client.Exchange(context.Background(), []byte("a")); err == nil {
		t.Fatal("expected an error for an unreachable service")
	}
}
