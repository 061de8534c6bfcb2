package server

import (
	"context"
	"net"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/tversen/pinpane/internal/verify"
)

// newTestDaemon builds a Server with a known user and serves its handler
// from an httptest server, returning a connected-ready client.
func newTestDaemon(t *testing.T, users map[string]string, attemptLimit int) (*Server, *verify.Client) {
	t.Helper()

	srv, err := New(&Config{
		Users:        users,
		AttemptLimit: attemptLimit,
		LogLevel:     "error",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}

	client := verify.NewClient(u.Hostname(), port)
	client.SetTimeout(2 * time.Second)
	t.Cleanup(func() { _ = client.Close() })

	return srv, client
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServerAcceptsCorrectCode(t *testing.T) {
	_, client := newTestDaemon(t, map[string]string{"alice": "123456"}, 3)

	resp, err := client.Verify(context.Background(), "alice", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if resp.Status != verify.StatusOK {
		t.Errorf("status = %q, want %q", resp.Status, verify.StatusOK)
	}
	if resp.AttemptsLeft != 3 {
		t.Errorf("attempts_left = %d, want 3", resp.AttemptsLeft)
	}
}

func TestServerAttemptBudget(t *testing.T) {
	_, client := newTestDaemon(t, map[string]string{"alice": "123456"}, 3)
	ctx := context.Background()

	// Two misses burn two attempts
	for i, want := range []int{2, 1} {
		resp, err := client.Verify(ctx, "alice", "000000")
		if err != nil {
			t.Fatalf("Verify() #%d error = %v", i+1, err)
		}
		if resp.Status != verify.StatusDenied {
			t.Fatalf("Verify() #%d status = %q, want %q", i+1, resp.Status, verify.StatusDenied)
		}
		if resp.AttemptsLeft != want {
			t.Errorf("Verify() #%d attempts_left = %d, want %d", i+1, resp.AttemptsLeft, want)
		}
	}

	// The third miss locks the connection
	resp, err := client.Verify(ctx, "alice", "000000")
	if err != nil {
		t.Fatalf("Verify() #3 error = %v", err)
	}
	if resp.Status != verify.StatusLocked {
		t.Errorf("Verify() #3 status = %q, want %q", resp.Status, verify.StatusLocked)
	}
	if resp.AttemptsLeft != 0 {
		t.Errorf("Verify() #3 attempts_left = %d, want 0", resp.AttemptsLeft)
	}

	// Even the correct code is refused on a locked connection
	resp, err = client.Verify(ctx, "alice", "123456")
	if err != nil {
		t.Fatalf("Verify() #4 error = %v", err)
	}
	if resp.Status != verify.StatusLocked {
		t.Errorf("Verify() #4 status = %q, want %q (lock is per-connection)", resp.Status, verify.StatusLocked)
	}
}

func TestServerSuccessRestoresBudget(t *testing.T) {
	_, client := newTestDaemon(t, map[string]string{"alice": "123456"}, 3)
	ctx := context.Background()

	if resp, err := client.Verify(ctx, "alice", "000000"); err != nil || resp.Status != verify.StatusDenied {
		t.Fatalf("miss: resp = %v, err = %v", resp, err)
	}

	resp, err := client.Verify(ctx, "alice", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if resp.Status != verify.StatusOK {
		t.Fatalf("status = %q, want %q", resp.Status, verify.StatusOK)
	}
	if resp.AttemptsLeft != 3 {
		t.Errorf("attempts_left after success = %d, want full budget 3", resp.AttemptsLeft)
	}
}

func TestServerFreshConnectionResetsLock(t *testing.T) {
	srv, client := newTestDaemon(t, map[string]string{"alice": "1234"}, 1)
	ctx := context.Background()

	resp, err := client.Verify(ctx, "alice", "0000")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if resp.Status != verify.StatusLocked {
		t.Fatalf("status = %q, want %q with a budget of 1", resp.Status, verify.StatusLocked)
	}

	// Reconnect and try the correct code
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	waitFor(t, "old connection teardown", func() bool {
		return srv.GetActiveConnections() == 0
	})

	resp, err = client.Verify(ctx, "alice", "1234")
	if err != nil {
		t.Fatalf("Verify() after reconnect error = %v", err)
	}
	if resp.Status != verify.StatusOK {
		t.Errorf("status after reconnect = %q, want %q", resp.Status, verify.StatusOK)
	}
}

func TestServerUnknownUser(t *testing.T) {
	_, client := newTestDaemon(t, map[string]string{"alice": "123456"}, 3)

	resp, err := client.Verify(context.Background(), "mallory", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if resp.Status != verify.StatusDenied {
		t.Errorf("status = %q, want %q", resp.Status, verify.StatusDenied)
	}
}

func TestServerTracksConnections(t *testing.T) {
	srv, client := newTestDaemon(t, map[string]string{"alice": "123456"}, 3)

	if got := srv.GetActiveConnections(); got != 0 {
		t.Fatalf("GetActiveConnections() = %d before any dial, want 0", got)
	}

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	waitFor(t, "connection tracking", func() bool {
		return srv.GetActiveConnections() == 1
	})

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	waitFor(t, "connection teardown", func() bool {
		return srv.GetActiveConnections() == 0
	})
}

func TestServerStartBackground(t *testing.T) {
	srv, err := New(&Config{
		Host:     "127.0.0.1",
		Users:    map[string]string{"alice": "123456"},
		LogLevel: "error",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	addr, err := srv.StartBackground()
	if err != nil {
		t.Fatalf("StartBackground() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("SplitHostPort(%q) error = %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	client := verify.NewClient(host, port)
	client.SetTimeout(2 * time.Second)
	defer func() { _ = client.Close() }()

	resp, err := client.Verify(context.Background(), "alice", "123456")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if resp.Status != verify.StatusOK {
		t.Errorf("status = %q, want %q", resp.Status, verify.StatusOK)
	}
}

func TestNewRejectsBlankStaticEntries(t *testing.T) {
	_, err := New(&Config{
		Users:    map[string]string{"alice": ""},
		LogLevel: "error",
	})
	if err == nil {
		t.Error("New() should reject a static entry with an empty code")
	}
}
