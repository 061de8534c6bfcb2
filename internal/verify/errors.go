package verify

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind represents the category of failure a verification exchange hit.
type ErrorKind int

const (
	// ErrKindNetwork indicates a generic network-level error.
	ErrKindNetwork ErrorKind = iota
	// ErrKindTimeout indicates a dial or read deadline expired.
	ErrKindTimeout
	// ErrKindConnectionRefused indicates the daemon refused the connection.
	ErrKindConnectionRefused
	// ErrKindDNS indicates the daemon host did not resolve.
	ErrKindDNS
	// ErrKindHandshake indicates the WebSocket upgrade failed.
	ErrKindHandshake
	// ErrKindProtocol indicates a malformed or unexpected wire message.
	ErrKindProtocol
	// ErrKindUnknown indicates an unclassified error.
	ErrKindUnknown
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindNetwork:
		return "Network Error"
	case ErrKindTimeout:
		return "Timeout"
	case ErrKindConnectionRefused:
		return "Connection Refused"
	case ErrKindDNS:
		return "DNS Error"
	case ErrKindHandshake:
		return "Handshake Error"
	case ErrKindProtocol:
		return "Protocol Error"
	case ErrKindUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// VerifyError represents an error that occurred while talking to the
// verification daemon.
type VerifyError struct {
	Kind      ErrorKind // Category of error
	Message   string    // Human-readable error message
	Err       error     // Underlying error (if any)
	Endpoint  string    // Daemon endpoint (for context)
	Retryable bool      // Whether the operation is worth retrying
}

// Error implements the error interface
func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *VerifyError) Unwrap() error {
	return e.Err
}

// ClassifyNetError analyzes a dial or IO error and returns a VerifyError
// with a more specific kind.
func ClassifyNetError(err error, endpoint string) *VerifyError {
	if err == nil {
		return nil
	}

	// Check for timeout errors
	if os.IsTimeout(err) {
		return &VerifyError{
			Kind:      ErrKindTimeout,
			Message:   "request timed out",
			Err:       err,
			Endpoint:  endpoint,
			Retryable: true,
		}
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &VerifyError{
			Kind:      ErrKindDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Endpoint:  endpoint,
			Retryable: false,
		}
	}

	// Check for connection refused and unreachable hosts
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &VerifyError{
				Kind:      ErrKindConnectionRefused,
				Message:   "daemon refused connection",
				Err:       err,
				Endpoint:  endpoint,
				Retryable: true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) || errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &VerifyError{
				Kind:      ErrKindNetwork,
				Message:   "daemon unreachable",
				Err:       err,
				Endpoint:  endpoint,
				Retryable: true,
			}
		}
	}

	// Check for URL errors and classify the cause instead
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetError(urlErr.Err, endpoint)
	}

	// Generic network error
	return &VerifyError{
		Kind:      ErrKindNetwork,
		Message:   "network error occurred",
		Err:       err,
		Endpoint:  endpoint,
		Retryable: true,
	}
}

// NewHandshakeError creates a WebSocket upgrade error
func NewHandshakeError(message string, err error) *VerifyError {
	return &VerifyError{
		Kind:      ErrKindHandshake,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewProtocolError creates a wire protocol error
func NewProtocolError(message string, err error) *VerifyError {
	return &VerifyError{
		Kind:      ErrKindProtocol,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// IsNetworkError checks if an error is a network-level error (including
// timeout, connection refused and DNS failures).
func IsNetworkError(err error) bool {
	var verr *VerifyError
	if errors.As(err, &verr) {
		return verr.Kind == ErrKindNetwork ||
			verr.Kind == ErrKindTimeout ||
			verr.Kind == ErrKindConnectionRefused ||
			verr.Kind == ErrKindDNS
	}
	return false
}
