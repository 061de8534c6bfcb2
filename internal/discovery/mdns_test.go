package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantInstance string
		wantIP       string
		wantPort     int
	}{
		{
			name: "valid daemon with IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{
					Instance: "pinpane-verifyd on buildbox",
				},
				HostName: "buildbox.local.",
				Port:     7460,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.40")},
				Text:     []string{"ver=0.3.0", "path=/verify"},
			},
			wantNil:      false,
			wantInstance: "pinpane-verifyd on buildbox",
			wantIP:       "192.168.1.40",
			wantPort:     7460,
		},
		{
			name: "daemon with custom port",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{
					Instance: "pinpane-verifyd on lab",
				},
				HostName: "lab.local.",
				Port:     9090,
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantNil:      false,
			wantInstance: "pinpane-verifyd on lab",
			wantIP:       "10.0.0.5",
			wantPort:     9090,
		},
		{
			name: "daemon with no port specified (should default to 7460)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{
					Instance: "pinpane-verifyd on closet",
				},
				HostName: "closet.local.",
				Port:     0,
				AddrIPv4: []net.IP{net.ParseIP("172.16.0.1")},
			},
			wantNil:      false,
			wantInstance: "pinpane-verifyd on closet",
			wantIP:       "172.16.0.1",
			wantPort:     7460,
		},
		{
			name: "no IP address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{
					Instance: "pinpane-verifyd on ghost",
				},
				HostName: "ghost.local.",
				Port:     7460,
				AddrIPv4: []net.IP{},
				AddrIPv6: []net.IP{},
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
		{
			name: "IPv6 only daemon",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{
					Instance: "pinpane-verifyd on v6box",
				},
				HostName: "v6box.local.",
				Port:     7460,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantNil:      false,
			wantInstance: "pinpane-verifyd on v6box",
			wantIP:       "fe80::1",
			wantPort:     7460,
		},
		{
			name: "daemon with both IPv4 and IPv6 (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{
					Instance: "pinpane-verifyd on dual",
				},
				HostName: "dual.local.",
				Port:     7460,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantNil:      false,
			wantInstance: "pinpane-verifyd on dual",
			wantIP:       "192.168.1.50",
			wantPort:     7460,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if endpoint != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", endpoint)
				}
				return
			}

			if endpoint == nil {
				t.Fatal("parseServiceEntry() = nil, want non-nil endpoint")
			}

			if endpoint.Instance != tt.wantInstance {
				t.Errorf("endpoint.Instance = %v, want %v", endpoint.Instance, tt.wantInstance)
			}

			if endpoint.IP != tt.wantIP {
				t.Errorf("endpoint.IP = %v, want %v", endpoint.IP, tt.wantIP)
			}

			if endpoint.Port != tt.wantPort {
				t.Errorf("endpoint.Port = %v, want %v", endpoint.Port, tt.wantPort)
			}

			if endpoint.Hostname != tt.entry.HostName {
				t.Errorf("endpoint.Hostname = %v, want %v", endpoint.Hostname, tt.entry.HostName)
			}

			// Check that DiscoveredAt is recent (within last second)
			if time.Since(endpoint.DiscoveredAt) > time.Second {
				t.Errorf("endpoint.DiscoveredAt is not recent: %v", endpoint.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: "pinpane-verifyd on buildbox",
		},
		HostName: "buildbox.local.",
		Port:     7460,
		AddrIPv4: []net.IP{net.ParseIP("192.168.1.40")},
		Text:     []string{"ver=0.3.0", "path=/verify", "flag", "commit=abc123"},
	}

	endpoint := scanner.parseServiceEntry(entry)
	if endpoint == nil {
		t.Fatal("parseServiceEntry() = nil, want endpoint")
	}

	// Check metadata parsing
	expectedMetadata := map[string]string{
		"ver":    "0.3.0",
		"path":   "/verify",
		"flag":   "", // Key without value
		"commit": "abc123",
	}

	if len(endpoint.Metadata) != len(expectedMetadata) {
		t.Errorf("endpoint.Metadata has %d entries, want %d", len(endpoint.Metadata), len(expectedMetadata))
	}

	for key, expectedValue := range expectedMetadata {
		if actualValue, ok := endpoint.Metadata[key]; !ok {
			t.Errorf("endpoint.Metadata missing key %q", key)
		} else if actualValue != expectedValue {
			t.Errorf("endpoint.Metadata[%q] = %q, want %q", key, actualValue, expectedValue)
		}
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}

	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

// Note: Integration tests with live mDNS discovery require network access
// and should be run manually with:
// go test -tags=integration ./internal/discovery/
