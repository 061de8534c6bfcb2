package server

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tversen/pinpane/internal/logging"
	"github.com/tversen/pinpane/internal/verify"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message or pong from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// handleSession runs the verification loop for one upgraded connection.
// Each connection carries its own attempt budget; once the budget is spent
// every further request on the connection is answered with a locked
// verdict.
func (s *Server) handleSession(conn *websocket.Conn, remoteAddr string) {
	logging.LogConnection(remoteAddr, "websocket_upgraded")

	conn.SetReadLimit(verify.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Keep the connection alive while a login screen sits idle
	stopPing := make(chan struct{})
	defer close(stopPing)
	go s.pingLoop(conn, remoteAddr, stopPing)

	attemptsLeft := s.attemptLimit

	// Main message receive loop
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info("Connection closed by client",
					zap.String("remote_addr", remoteAddr),
				)
			} else {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if msgType != websocket.TextMessage {
			logging.Warn("Ignoring non-text frame",
				zap.String("remote_addr", remoteAddr),
				zap.Int("message_type", msgType),
			)
			continue
		}
		logging.LogWSMessage(remoteAddr, "received", "text", len(data))

		req, err := verify.ParseRequest(data)
		if err != nil {
			logging.Warn("Dropping malformed request",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			continue
		}

		var status verify.Status
		var reason string
		switch {
		case attemptsLeft <= 0:
			status, reason = verify.StatusLocked, "too many attempts"
		case s.codes.Check(req.User, req.Code):
			// A success restores the budget for the next login on this
			// connection
			attemptsLeft = s.attemptLimit
			status = verify.StatusOK
		default:
			attemptsLeft--
			if attemptsLeft <= 0 {
				status, reason = verify.StatusLocked, "too many attempts"
			} else {
				status, reason = verify.StatusDenied, "code mismatch"
			}
		}

		logging.LogVerifyAttempt(remoteAddr, req.User, string(status), len(req.Code), attemptsLeft)

		resp, err := verify.BuildResponse(req.ID, status, reason, attemptsLeft)
		if err != nil {
			logging.Error("Failed to build response",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			continue
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, resp); err != nil {
			logging.Error("Failed to write response",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			return
		}
		logging.LogWSMessage(remoteAddr, "sent", "text", len(resp))
	}
}

// pingLoop sends periodic pings until stop closes or a write fails.
// WriteControl is safe to call concurrently with the session's writes.
func (s *Server) pingLoop(conn *websocket.Conn, remoteAddr string, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logging.Debug("Ping failed, abandoning keepalive",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
				return
			}
		case <-stop:
			return
		}
	}
}
