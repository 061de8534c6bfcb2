package discovery

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/tversen/pinpane/internal/verify"
)

const (
	// ServiceType is the mDNS service type pinpane-verifyd advertises under
	ServiceType = "_pinpane-verify._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for daemon discovery
	DefaultScanTimeout = 5 * time.Second
)

// Announcer keeps a daemon's mDNS advertisement alive until Shutdown.
type Announcer struct {
	server *zeroconf.Server
}

// Announce registers a verification daemon on the local network. An empty
// instance name derives one from the machine's hostname. txt carries TXT
// record metadata in "key=value" form.
func Announce(instance string, port int, txt []string) (*Announcer, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "pinpane"
		}
		instance = "pinpane-verifyd on " + host
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	return &Announcer{server: server}, nil
}

// Shutdown withdraws the advertisement. Safe to call more than once.
func (a *Announcer) Shutdown() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// Scanner handles mDNS daemon discovery
type Scanner struct {
	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan discovers all verification daemons on the local network
// Returns a list of discovered endpoints or an error
func (s *Scanner) Scan() ([]*Endpoint, error) {
	return s.ScanWithContext(context.Background())
}

// ScanWithContext discovers daemons with a custom context
func (s *Scanner) ScanWithContext(ctx context.Context) ([]*Endpoint, error) {
	// Create a context with timeout
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	// Channel to receive service entries
	entries := make(chan *zeroconf.ServiceEntry)
	endpoints := make([]*Endpoint, 0)

	// Start the resolver
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// Collect entries until the resolver closes the channel
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			endpoint := s.parseServiceEntry(entry)
			if endpoint != nil {
				endpoints = append(endpoints, endpoint)
			}
		}
	}()

	// Start browsing for verification daemons
	err = resolver.Browse(ctx, ServiceType, ServiceDomain, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for the collector to drain (the resolver closes entries when
	// the context completes)
	<-done

	return endpoints, nil
}

// WaitForEndpoint waits for a daemon to appear on the network. An empty
// instance name accepts the first daemon found; otherwise only the named
// instance matches.
func (s *Scanner) WaitForEndpoint(instance string) (*Endpoint, error) {
	return s.WaitForEndpointWithContext(context.Background(), instance)
}

// WaitForEndpointWithContext waits for a daemon with a custom context
func (s *Scanner) WaitForEndpointWithContext(ctx context.Context, instance string) (*Endpoint, error) {
	// Create a context with timeout
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	// Channel to receive service entries
	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Endpoint, 1)

	// Start the resolver
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	// Watch for a matching daemon in a goroutine
	go func() {
		for entry := range entries {
			endpoint := s.parseServiceEntry(entry)
			if endpoint == nil {
				continue
			}
			if instance != "" && endpoint.Instance != instance {
				continue
			}
			found <- endpoint
			cancel() // Found a daemon, cancel context
			return
		}
	}()

	// Start browsing for verification daemons
	err = resolver.Browse(ctx, ServiceType, ServiceDomain, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	// Wait for a daemon or timeout
	select {
	case endpoint := <-found:
		return endpoint, nil
	case <-ctx.Done():
		// A match right at the deadline lands in the buffered channel
		select {
		case endpoint := <-found:
			return endpoint, nil
		default:
		}
		if instance != "" {
			return nil, fmt.Errorf("daemon %q not found within timeout", instance)
		}
		return nil, fmt.Errorf("no verification daemon found within timeout")
	}
}

// parseServiceEntry converts a zeroconf service entry to an Endpoint
// Returns nil if the entry carries no usable address
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Endpoint {
	if entry == nil {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}

	// Fallback to IPv6 if no IPv4
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	if ip == "" {
		return nil
	}

	// Get port (default if not specified)
	port := entry.Port
	if port == 0 {
		port = verify.DefaultPort
	}

	// Parse TXT records into metadata
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		// TXT records are in "key=value" format
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			// Key without value
			metadata[parts[0]] = ""
		}
	}

	return &Endpoint{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Scan is a convenience function to scan for daemons with a custom timeout
func Scan(timeout time.Duration) ([]*Endpoint, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.Scan()
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan() ([]*Endpoint, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.Scan()
}

// FindEndpoint waits for the first daemon to appear with the default timeout
func FindEndpoint() (*Endpoint, error) {
	scanner := NewScanner()
	return scanner.WaitForEndpoint("")
}
