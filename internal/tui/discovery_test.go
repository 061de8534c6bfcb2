package tui

import (
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{
			name:     "hostname only uses default port",
			input:    "verify.local",
			wantHost: "verify.local",
			wantPort: 7460,
		},
		{
			name:     "hostname with port",
			input:    "verify.local:8000",
			wantHost: "verify.local",
			wantPort: 8000,
		},
		{
			name:     "ipv4 with port",
			input:    "192.168.1.20:7460",
			wantHost: "192.168.1.20",
			wantPort: 7460,
		},
		{
			name:     "bracketed ipv6 with port",
			input:    "[::1]:7460",
			wantHost: "::1",
			wantPort: 7460,
		},
		{
			name:     "bare ipv6 uses default port",
			input:    "::1",
			wantHost: "::1",
			wantPort: 7460,
		},
		{
			name:     "surrounding whitespace is trimmed",
			input:    "  10.0.0.5:7461  ",
			wantHost: "10.0.0.5",
			wantPort: 7461,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "missing host",
			input:   ":7460",
			wantErr: true,
		},
		{
			name:    "trailing colon without port",
			input:   "verify.local:",
			wantErr: true,
		},
		{
			name:    "port zero",
			input:   "verify.local:0",
			wantErr: true,
		},
		{
			name:    "port out of range",
			input:   "verify.local:99999",
			wantErr: true,
		},
		{
			name:    "non numeric port",
			input:   "verify.local:abc",
			wantErr: true,
		},
		{
			name:    "bracketed ipv6 without port",
			input:   "[::1]",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint, err := ParseEndpoint(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseEndpoint(%q) expected error, got %+v", tt.input, endpoint)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseEndpoint(%q) unexpected error: %v", tt.input, err)
			}
			if endpoint.IP != tt.wantHost {
				t.Errorf("IP = %q, want %q", endpoint.IP, tt.wantHost)
			}
			if endpoint.Hostname != tt.wantHost {
				t.Errorf("Hostname = %q, want %q", endpoint.Hostname, tt.wantHost)
			}
			if endpoint.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", endpoint.Port, tt.wantPort)
			}
			if endpoint.Instance != "manual" {
				t.Errorf("Instance = %q, want %q", endpoint.Instance, "manual")
			}
			if endpoint.DiscoveredAt.IsZero() {
				t.Error("DiscoveredAt not set")
			}
		})
	}
}
