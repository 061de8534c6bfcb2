package verify

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newVerifyServer starts an httptest server that upgrades connections on
// RequestPath and hands them to handle.
func newVerifyServer(t *testing.T, handle func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RequestPath {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
}

func clientForServer(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	client := NewClient(u.Hostname(), port)
	client.SetTimeout(2 * time.Second)
	return client
}

func TestNewClient(t *testing.T) {
	client := NewClient("verify.local", 9000)
	if got := client.URL(); got != "ws://verify.local:9000/verify" {
		t.Errorf("URL() = %q, want %q", got, "ws://verify.local:9000/verify")
	}

	client = NewClient("verify.local", 0)
	if got := client.URL(); got != "ws://verify.local:7460/verify" {
		t.Errorf("URL() with default port = %q, want %q", got, "ws://verify.local:7460/verify")
	}
}

func TestClientVerify_Accepted(t *testing.T) {
	srv := newVerifyServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req, err := ParseRequest(data)
		if err != nil {
			t.Errorf("server parse: %v", err)
			return
		}
		if req.User != "alice" || req.Code != "123456" {
			t.Errorf("server saw user=%q code=%q", req.User, req.Code)
		}
		resp, _ := BuildResponse(req.ID, StatusOK, "", 3)
		_ = conn.WriteMessage(websocket.TextMessage, resp)
	})
	defer srv.Close()

	client := clientForServer(t, srv)
	defer client.Close()

	resp, err := client.Verify(context.Background(), "alice", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if resp.Status != StatusOK {
		t.Errorf("status = %q, want %q", resp.Status, StatusOK)
	}
	if resp.AttemptsLeft != 3 {
		t.Errorf("attempts_left = %d, want 3", resp.AttemptsLeft)
	}
}

func TestClientVerify_ReusesConnection(t *testing.T) {
	upgrades := 0
	srv := newVerifyServer(t, func(conn *websocket.Conn) {
		upgrades++
		for attempts := 2; attempts >= 0; attempts-- {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req, err := ParseRequest(data)
			if err != nil {
				return
			}
			resp, _ := BuildResponse(req.ID, StatusDenied, "code mismatch", attempts)
			_ = conn.WriteMessage(websocket.TextMessage, resp)
		}
	})
	defer srv.Close()

	client := clientForServer(t, srv)
	defer client.Close()

	first, err := client.Verify(context.Background(), "bob", "0000")
	if err != nil {
		t.Fatalf("first Verify() error = %v", err)
	}
	second, err := client.Verify(context.Background(), "bob", "1111")
	if err != nil {
		t.Fatalf("second Verify() error = %v", err)
	}

	if first.AttemptsLeft != 2 || second.AttemptsLeft != 1 {
		t.Errorf("attempts_left = %d then %d, want 2 then 1",
			first.AttemptsLeft, second.AttemptsLeft)
	}
	if upgrades != 1 {
		t.Errorf("server saw %d upgrades, want 1 (connection should be reused)", upgrades)
	}
}

func TestClientVerify_SkipsStaleResponses(t *testing.T) {
	srv := newVerifyServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req, err := ParseRequest(data)
		if err != nil {
			return
		}
		stale, _ := BuildResponse(req.ID+100, StatusDenied, "stale", 0)
		_ = conn.WriteMessage(websocket.TextMessage, stale)
		fresh, _ := BuildResponse(req.ID, StatusOK, "", 3)
		_ = conn.WriteMessage(websocket.TextMessage, fresh)
	})
	defer srv.Close()

	client := clientForServer(t, srv)
	defer client.Close()

	resp, err := client.Verify(context.Background(), "alice", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if resp.Status != StatusOK {
		t.Errorf("status = %q, want %q (stale response should be skipped)", resp.Status, StatusOK)
	}
}

func TestClientVerify_MalformedResponse(t *testing.T) {
	srv := newVerifyServer(t, func(conn *websocket.Conn) {
		_, _, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	})
	defer srv.Close()

	client := clientForServer(t, srv)
	defer client.Close()

	_, err := client.Verify(context.Background(), "alice", "123456")
	if err == nil {
		t.Fatal("Verify() should fail on a malformed response")
	}
	var verr *VerifyError
	if !errors.As(err, &verr) || verr.Kind != ErrKindProtocol {
		t.Errorf("Verify() error = %v, want protocol VerifyError", err)
	}
}

func TestClientVerify_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := clientForServer(t, srv)
	defer client.Close()

	_, err := client.Verify(context.Background(), "alice", "123456")
	if err == nil {
		t.Fatal("Verify() should fail when the upgrade is rejected")
	}
	var verr *VerifyError
	if !errors.As(err, &verr) || verr.Kind != ErrKindHandshake {
		t.Errorf("Verify() error = %v, want handshake VerifyError", err)
	}
}

func TestClientVerify_ConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	client := NewClient("127.0.0.1", port)
	client.SetTimeout(500 * time.Millisecond)

	_, err = client.Verify(context.Background(), "alice", "123456")
	if err == nil {
		t.Fatal("Verify() should fail when nothing is listening")
	}
	if !IsNetworkError(err) {
		t.Errorf("Verify() error should be a network error, got %T: %v", err, err)
	}
}

func TestClientClose_Unconnected(t *testing.T) {
	client := NewClient("verify.local", 0)
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v, want nil", err)
	}
}

func TestVerifyOnce(t *testing.T) {
	srv := newVerifyServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req, err := ParseRequest(data)
		if err != nil {
			return
		}
		resp, _ := BuildResponse(req.ID, StatusDenied, "code mismatch", 2)
		_ = conn.WriteMessage(websocket.TextMessage, resp)
	})
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	port, _ := strconv.Atoi(u.Port())

	resp, err := VerifyOnce(context.Background(), u.Hostname(), port, "bob", "4321")
	if err != nil {
		t.Fatalf("VerifyOnce() error = %v", err)
	}
	if resp.Status != StatusDenied {
		t.Errorf("status = %q, want %q", resp.Status, StatusDenied)
	}
}
