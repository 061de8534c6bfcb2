package discovery

import (
	"testing"
	"time"
)

func TestEndpoint_String(t *testing.T) {
	endpoint := &Endpoint{
		Instance: "pinpane-verifyd on buildbox",
		Hostname: "buildbox.local.",
		IP:       "192.168.1.40",
		Port:     7460,
	}

	expected := `pinpane daemon "pinpane-verifyd on buildbox" at 192.168.1.40:7460`
	if endpoint.String() != expected {
		t.Errorf("Endpoint.String() = %v, want %v", endpoint.String(), expected)
	}
}

func TestEndpoint_Addr(t *testing.T) {
	tests := []struct {
		name     string
		endpoint *Endpoint
		expected string
	}{
		{
			name: "IPv4 address",
			endpoint: &Endpoint{
				IP:   "192.168.1.40",
				Port: 7460,
			},
			expected: "192.168.1.40:7460",
		},
		{
			name: "IPv6 address gets bracketed",
			endpoint: &Endpoint{
				IP:   "fe80::1",
				Port: 7460,
			},
			expected: "[fe80::1]:7460",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.Addr(); got != tt.expected {
				t.Errorf("Endpoint.Addr() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEndpoint_URL(t *testing.T) {
	endpoint := &Endpoint{
		IP:   "10.0.0.5",
		Port: 9090,
	}

	expected := "ws://10.0.0.5:9090/verify"
	if got := endpoint.URL(); got != expected {
		t.Errorf("Endpoint.URL() = %v, want %v", got, expected)
	}
}

func TestEndpoint_GetMetadata(t *testing.T) {
	endpoint := &Endpoint{
		Metadata: map[string]string{
			"ver":  "0.3.0",
			"path": "/verify",
		},
	}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "existing key",
			key:      "ver",
			expected: "0.3.0",
		},
		{
			name:     "another existing key",
			key:      "path",
			expected: "/verify",
		},
		{
			name:     "non-existent key",
			key:      "missing",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := endpoint.GetMetadata(tt.key); got != tt.expected {
				t.Errorf("Endpoint.GetMetadata(%v) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEndpoint_GetMetadata_NilMap(t *testing.T) {
	endpoint := &Endpoint{
		Metadata: nil,
	}

	if got := endpoint.GetMetadata("anything"); got != "" {
		t.Errorf("Endpoint.GetMetadata() with nil map = %v, want empty string", got)
	}
}

func TestEndpoint_DiscoveredAt(t *testing.T) {
	now := time.Now()
	endpoint := &Endpoint{
		Instance:     "pinpane-verifyd on buildbox",
		DiscoveredAt: now,
	}

	if endpoint.DiscoveredAt != now {
		t.Errorf("Endpoint.DiscoveredAt = %v, want %v", endpoint.DiscoveredAt, now)
	}
}
