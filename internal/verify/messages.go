package verify

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

const (
	// DefaultPort is the port pinpane-verifyd listens on unless configured
	// otherwise.
	DefaultPort = 7460

	// RequestPath is the HTTP path the WebSocket upgrade is served on.
	RequestPath = "/verify"

	// MaxCodeLength bounds the code field of a request. Real codes are far
	// shorter.
	MaxCodeLength = 64

	// MaxMessageSize bounds a single wire message in bytes.
	MaxMessageSize = 4096
)

// Message type discriminators carried in the "type" field.
const (
	TypeVerifyRequest  = "verify_request"
	TypeVerifyResponse = "verify_response"
)

// Status is the daemon's verdict on one verification attempt.
type Status string

const (
	// StatusOK means the code matched.
	StatusOK Status = "ok"
	// StatusDenied means the code did not match; the client may retry.
	StatusDenied Status = "denied"
	// StatusLocked means the connection exhausted its attempts and the
	// daemon will refuse further requests on it.
	StatusLocked Status = "locked"
)

// Valid reports whether s is a status this protocol version knows.
func (s Status) Valid() bool {
	switch s {
	case StatusOK, StatusDenied, StatusLocked:
		return true
	}
	return false
}

// Request is one verification attempt sent client to daemon.
type Request struct {
	Type string `json:"type"`
	ID   uint32 `json:"id"`
	User string `json:"user,omitempty"`
	Code string `json:"code"`
}

// Response is the daemon's answer to a Request, correlated by ID.
type Response struct {
	Type         string `json:"type"`
	ID           uint32 `json:"id"`
	Status       Status `json:"status"`
	Reason       string `json:"reason,omitempty"`
	AttemptsLeft int    `json:"attempts_left"`
}

// Global message ID counter (thread-safe)
var messageIDCounter uint32

// GenerateMessageID returns the next request ID. IDs only need to be
// unique per connection; a process-wide counter is more than enough.
func GenerateMessageID() uint32 {
	return atomic.AddUint32(&messageIDCounter, 1)
}

// BuildRequest constructs the wire form of one verification attempt.
func BuildRequest(id uint32, user, code string) ([]byte, error) {
	if code == "" {
		return nil, fmt.Errorf("code must not be empty")
	}
	if len(code) > MaxCodeLength {
		return nil, fmt.Errorf("code too long: %d bytes (max %d)", len(code), MaxCodeLength)
	}
	req := Request{
		Type: TypeVerifyRequest,
		ID:   id,
		User: user,
		Code: code,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}
	return data, nil
}

// ParseRequest parses and validates a client message on the daemon side.
func ParseRequest(data []byte) (*Request, error) {
	if len(data) > MaxMessageSize {
		return nil, NewProtocolError(fmt.Sprintf("message too large: %d bytes (max %d)", len(data), MaxMessageSize), nil)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, NewProtocolError("malformed verify request", err)
	}
	if req.Type != TypeVerifyRequest {
		return nil, NewProtocolError(fmt.Sprintf("unexpected message type %q", req.Type), nil)
	}
	if req.Code == "" {
		return nil, NewProtocolError("verify request carries no code", nil)
	}
	if len(req.Code) > MaxCodeLength {
		return nil, NewProtocolError(fmt.Sprintf("code too long: %d bytes (max %d)", len(req.Code), MaxCodeLength), nil)
	}
	return &req, nil
}

// BuildResponse constructs the wire form of the daemon's verdict.
func BuildResponse(id uint32, status Status, reason string, attemptsLeft int) ([]byte, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	resp := Response{
		Type:         TypeVerifyResponse,
		ID:           id,
		Status:       status,
		Reason:       reason,
		AttemptsLeft: attemptsLeft,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal verify response: %w", err)
	}
	return data, nil
}

// ParseResponse parses and validates a daemon message on the client side.
func ParseResponse(data []byte) (*Response, error) {
	if len(data) > MaxMessageSize {
		return nil, NewProtocolError(fmt.Sprintf("message too large: %d bytes (max %d)", len(data), MaxMessageSize), nil)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, NewProtocolError("malformed verify response", err)
	}
	if resp.Type != TypeVerifyResponse {
		return nil, NewProtocolError(fmt.Sprintf("unexpected message type %q", resp.Type), nil)
	}
	if !resp.Status.Valid() {
		return nil, NewProtocolError(fmt.Sprintf("unknown status %q", resp.Status), nil)
	}
	return &resp, nil
}
