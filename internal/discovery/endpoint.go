package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tversen/pinpane/internal/verify"
)

// Endpoint represents a discovered verification daemon on the network
type Endpoint struct {
	// Instance is the mDNS instance name (e.g., "pinpane-verifyd on buildbox")
	Instance string

	// Hostname is the mDNS hostname (e.g., "buildbox.local.")
	Hostname string

	// IP is the address the daemon is reachable on (IPv4 preferred)
	IP string

	// Port is the WebSocket port (typically 7460)
	Port int

	// Metadata contains additional mDNS TXT record data
	// Common fields: "ver=0.3.0", "path=/verify"
	Metadata map[string]string

	// DiscoveredAt is when the daemon was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the endpoint
func (e *Endpoint) String() string {
	return fmt.Sprintf("pinpane daemon %q at %s:%d", e.Instance, e.IP, e.Port)
}

// Addr returns the host:port address of the endpoint
func (e *Endpoint) Addr() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}

// URL returns the WebSocket URL for the endpoint's verify service
func (e *Endpoint) URL() string {
	return fmt.Sprintf("ws://%s%s", e.Addr(), verify.RequestPath)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (e *Endpoint) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}
