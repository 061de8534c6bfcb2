package verify

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

func TestClassifyNetError_Timeout(t *testing.T) {
	err := &url.Error{
		Op:  "Get",
		URL: "ws://verify.local:7460/verify",
		Err: &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: &timeoutError{},
		},
	}

	verr := ClassifyNetError(err, "verify.local:7460")

	if verr == nil {
		t.Fatal("Expected VerifyError, got nil")
	}
	if verr.Kind != ErrKindTimeout {
		t.Errorf("Expected kind %v, got %v", ErrKindTimeout, verr.Kind)
	}
	if !verr.Retryable {
		t.Error("Expected timeout error to be retryable")
	}
}

func TestClassifyNetError_ConnectionRefused(t *testing.T) {
	err := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: syscall.ECONNREFUSED,
	}

	verr := ClassifyNetError(err, "127.0.0.1:7460")

	if verr == nil {
		t.Fatal("Expected VerifyError, got nil")
	}
	if verr.Kind != ErrKindConnectionRefused {
		t.Errorf("Expected kind %v, got %v", ErrKindConnectionRefused, verr.Kind)
	}
	if !verr.Retryable {
		t.Error("Expected connection refused error to be retryable")
	}
}

func TestClassifyNetError_DNS(t *testing.T) {
	err := &net.DNSError{
		Err:        "no such host",
		Name:       "nowhere.local",
		IsNotFound: true,
	}

	verr := ClassifyNetError(err, "nowhere.local:7460")

	if verr == nil {
		t.Fatal("Expected VerifyError, got nil")
	}
	if verr.Kind != ErrKindDNS {
		t.Errorf("Expected kind %v, got %v", ErrKindDNS, verr.Kind)
	}
	if verr.Retryable {
		t.Error("Expected DNS error to be non-retryable")
	}
	if !strings.Contains(verr.Message, "nowhere.local") {
		t.Errorf("Expected message to name the host, got %q", verr.Message)
	}
}

func TestClassifyNetError_HostUnreachable(t *testing.T) {
	err := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: syscall.EHOSTUNREACH,
	}

	verr := ClassifyNetError(err, "10.0.0.99:7460")

	if verr == nil {
		t.Fatal("Expected VerifyError, got nil")
	}
	if verr.Kind != ErrKindNetwork {
		t.Errorf("Expected kind %v, got %v", ErrKindNetwork, verr.Kind)
	}
	if !verr.Retryable {
		t.Error("Expected host unreachable error to be retryable")
	}
}

func TestClassifyNetError_Generic(t *testing.T) {
	verr := ClassifyNetError(errors.New("wire fell out"), "somewhere")

	if verr == nil {
		t.Fatal("Expected VerifyError, got nil")
	}
	if verr.Kind != ErrKindNetwork {
		t.Errorf("Expected kind %v, got %v", ErrKindNetwork, verr.Kind)
	}
	if verr.Endpoint != "somewhere" {
		t.Errorf("Expected endpoint to be preserved, got %q", verr.Endpoint)
	}
}

func TestClassifyNetError_Nil(t *testing.T) {
	if verr := ClassifyNetError(nil, "anywhere"); verr != nil {
		t.Errorf("Expected nil for nil input, got %v", verr)
	}
}

func TestVerifyErrorError(t *testing.T) {
	tests := []struct {
		name         string
		err          *VerifyError
		expectedText string
	}{
		{
			name: "with cause",
			err: &VerifyError{
				Kind:    ErrKindHandshake,
				Message: "upgrade rejected with status 404",
				Err:     errors.New("bad handshake"),
			},
			expectedText: "caused by: bad handshake",
		},
		{
			name: "without cause",
			err: &VerifyError{
				Kind:    ErrKindProtocol,
				Message: "malformed verify response",
			},
			expectedText: "Protocol Error: malformed verify response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); !strings.Contains(got, tt.expectedText) {
				t.Errorf("Error() = %q, want it to contain %q", got, tt.expectedText)
			}
		})
	}
}

func TestVerifyErrorUnwrap(t *testing.T) {
	cause := syscall.ECONNREFUSED
	verr := ClassifyNetError(&net.OpError{Op: "dial", Net: "tcp", Err: cause}, "host")

	if !errors.Is(verr, syscall.ECONNREFUSED) {
		t.Error("Expected errors.Is to find the wrapped syscall error")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrKindNetwork, "Network Error"},
		{ErrKindTimeout, "Timeout"},
		{ErrKindConnectionRefused, "Connection Refused"},
		{ErrKindDNS, "DNS Error"},
		{ErrKindHandshake, "Handshake Error"},
		{ErrKindProtocol, "Protocol Error"},
		{ErrKindUnknown, "Unknown Error"},
		{ErrorKind(99), "ErrorKind(99)"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "timeout counts",
			err:  &VerifyError{Kind: ErrKindTimeout},
			want: true,
		},
		{
			name: "connection refused counts",
			err:  &VerifyError{Kind: ErrKindConnectionRefused},
			want: true,
		},
		{
			name: "DNS counts",
			err:  &VerifyError{Kind: ErrKindDNS},
			want: true,
		},
		{
			name: "protocol does not count",
			err:  &VerifyError{Kind: ErrKindProtocol},
			want: false,
		},
		{
			name: "handshake does not count",
			err:  &VerifyError{Kind: ErrKindHandshake},
			want: false,
		},
		{
			name: "plain error does not count",
			err:  errors.New("nope"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetworkError(tt.err); got != tt.want {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// timeoutError is a mock error that implements timeout behavior
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
