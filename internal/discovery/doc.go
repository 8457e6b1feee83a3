// Package discovery provides mDNS-based discovery of cast receivers.
//
// Receivers advertise themselves with the "_googlecast._tcp" service type.
// The TXT record carries the receiver id ("id"), friendly name ("fn"),
// model ("md") and the status text of the running app ("rs").
//
// # Discovery Process
//
// The discovery process works as follows:
//  1. Broadcasts mDNS queries on the local network
//  2. Listens for service advertisements from receivers
//  3. Collects device information (id, name, model, IP, port)
//  4. Returns the discovered receivers after the timeout period
//
// # Usage Example
//
//	devices, err := discovery.ScanForDevices(5 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, device := range devices {
//	    fmt.Printf("Found: %s\n", device)
//	}
//
// A discovered Device converts to the value cast.NewClient expects with
// CastDevice.
//
// # Network Requirements
//
// mDNS uses UDP port 5353 on the local segment. Receivers on other subnets
// are not found; connect to them by address instead.
package discovery
