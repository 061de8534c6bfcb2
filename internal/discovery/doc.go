// Package discovery provides mDNS-based discovery of pinpane verification daemons.
//
// This package implements multicast DNS (mDNS) service discovery so pinpane
// clients can locate a pinpane-verifyd instance on the local network without
// configuration. Daemons advertise themselves using the "_pinpane-verify._tcp"
// service type; the same package carries the daemon-side Announce call.
//
// # Discovery Process
//
// The discovery process works as follows:
//  1. Broadcasts mDNS queries on the local network
//  2. Listens for service advertisements from verification daemons
//  3. Collects endpoint information (instance name, IP, port, TXT metadata)
//  4. Returns the discovered endpoints after the timeout period
//
// # Usage Example
//
//	// Discover daemons with a 5-second timeout
//	endpoints, err := discovery.Scan(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, ep := range endpoints {
//	    fmt.Printf("Found: %s\n", ep)
//	}
//
// A daemon announces itself with:
//
//	ann, err := discovery.Announce("", 7460, []string{"ver=0.3.0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ann.Shutdown()
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Client and daemon must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// This package is safe for concurrent use. Multiple discovery sessions can run
// simultaneously without interference.
package discovery
