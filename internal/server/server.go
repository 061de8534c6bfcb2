package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tversen/pinpane/internal/discovery"
	"github.com/tversen/pinpane/internal/logging"
	"github.com/tversen/pinpane/internal/verify"
	"github.com/tversen/pinpane/internal/version"
)

// DefaultAttemptLimit is the per-connection verification budget before a
// connection is locked.
const DefaultAttemptLimit = 3

// demoCodeLength is the length of generated codes when no users are
// configured.
const demoCodeLength = 6

// Config holds the daemon configuration
type Config struct {
	Host         string
	Port         int
	Users        map[string]string // Static user → code entries
	CodesFile    string            // Optional YAML codes file (merged over Users)
	AttemptLimit int               // Per-connection attempts before lockout (0 = default)
	Announce     bool              // Advertise the daemon via mDNS
	Instance     string            // mDNS instance name ("" derives one from the hostname)
	LogLevel     string
}

// Server represents the pinpane verification daemon
type Server struct {
	config       *Config
	codes        *CodeRegistry
	attemptLimit int
	upgrader     websocket.Upgrader
	listener     net.Listener
	httpServer   *http.Server
	announcer    *discovery.Announcer
	wg           sync.WaitGroup
	mu           sync.Mutex
	activeConns  map[string]*websocket.Conn
}

// New creates a new Server instance and loads its code registry. If the
// registry ends up empty a demo user with a generated code is added so a
// bare daemon is still usable; the code is logged at startup.
func New(config *Config) (*Server, error) {
	// Initialize logging
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	codes := NewCodeRegistry()
	for user, code := range config.Users {
		if user == "" || code == "" {
			return nil, fmt.Errorf("static code entries must have a user and a code")
		}
		codes.Set(user, code)
	}
	if config.CodesFile != "" {
		if err := codes.LoadFile(config.CodesFile); err != nil {
			return nil, err
		}
		logging.Info("Loaded codes file",
			zap.String("path", config.CodesFile),
			zap.Int("users", codes.Len()),
		)
	}
	if codes.Len() == 0 {
		code, err := codes.GenerateFor("demo", demoCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate demo code: %w", err)
		}
		logging.Info("No users configured, generated demo credentials",
			zap.String("user", "demo"),
			zap.String("code", code),
		)
		fmt.Printf("No users configured. Accepting user %q with code %s\n", "demo", code)
	}

	attemptLimit := config.AttemptLimit
	if attemptLimit <= 0 {
		attemptLimit = DefaultAttemptLimit
	}

	return &Server{
		config:       config,
		codes:        codes,
		attemptLimit: attemptLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		activeConns: make(map[string]*websocket.Conn),
	}, nil
}

// Codes exposes the daemon's code registry
func (s *Server) Codes() *CodeRegistry {
	return s.codes
}

// Handler returns the daemon's HTTP handler. Exposed so tests and
// embedders can serve it without the Start lifecycle.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(verify.RequestPath, s.handleUpgrade)
	return mux
}

// Start starts the daemon and blocks until shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	logging.Info("Starting pinpane verification daemon",
		zap.String("addr", addr),
		zap.Int("users", s.codes.Len()),
		zap.Int("attempt_limit", s.attemptLimit),
		zap.String("log_level", s.config.LogLevel),
	)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	port := listener.Addr().(*net.TCPAddr).Port
	logging.Info("Daemon listening for connections",
		zap.String("addr", listener.Addr().String()),
	)

	s.announceService(port)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Serve in a goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping daemon...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(ctx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// StartBackground binds the listener and serves in a goroutine, for
// embedding the daemon in another process. It returns the bound address;
// stop the daemon with Shutdown.
func (s *Server) StartBackground() (string, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Daemon listening in background",
		zap.String("addr", listener.Addr().String()),
	)

	s.announceService(listener.Addr().(*net.TCPAddr).Port)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Background daemon stopped unexpectedly", zap.Error(err))
		}
	}()

	return listener.Addr().String(), nil
}

// announceService advertises the daemon over mDNS when configured. An
// announcement failure is logged and swallowed so the daemon still serves
// clients that know its address.
func (s *Server) announceService(port int) {
	if !s.config.Announce {
		return
	}

	txt := []string{
		"ver=" + version.Version,
		"path=" + verify.RequestPath,
	}
	announcer, err := discovery.Announce(s.config.Instance, port, txt)
	if err != nil {
		logging.Warn("mDNS announcement failed, continuing without discovery",
			zap.Error(err),
		)
		return
	}
	s.announcer = announcer
	logging.Info("Announced daemon via mDNS",
		zap.String("service", discovery.ServiceType),
		zap.Int("port", port),
	)
}

// handleUpgrade upgrades an HTTP request to a WebSocket session
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	// Track active connection
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	logging.LogConnection(remoteAddr, "connection_accepted")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = conn.Close()
			s.mu.Lock()
			delete(s.activeConns, remoteAddr)
			s.mu.Unlock()
			logging.LogConnection(remoteAddr, "connection_closed")
		}()
		s.handleSession(conn, remoteAddr)
	}()
}

// Shutdown gracefully shuts down the daemon
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down daemon...")

	// Withdraw the mDNS advertisement first
	if s.announcer != nil {
		s.announcer.Shutdown()
		s.announcer = nil
	}

	// Stop accepting new connections. Upgraded connections are hijacked,
	// so httpServer.Shutdown does not wait for them.
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.Error("Error stopping HTTP server", zap.Error(err))
		}
	}

	// Close all active connections
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active connection", zap.String("remote_addr", addr))
		deadline := time.Now().Add(writeWait)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"), deadline)
		_ = conn.Close()
	}
	s.mu.Unlock()

	// Wait for all session goroutines to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		logging.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	// Sync logger
	logging.Sync()

	return nil
}

// GetActiveConnections returns the number of active connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}
