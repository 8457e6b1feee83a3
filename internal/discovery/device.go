package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/castcore/internal/cast"
)

// Device represents a receiver discovered on the network
type Device struct {
	// ID is the receiver's stable identifier (TXT "id")
	ID string

	// Name is the friendly name (TXT "fn", e.g. "Living Room TV")
	Name string

	// Model is the model name (TXT "md", e.g. "Chromecast Ultra")
	Model string

	// Hostname is the mDNS hostname
	Hostname string

	// IP is the address to connect to, IPv4 preferred
	IP string

	// Port is the TLS port (typically 8009)
	Port int

	// Metadata contains all mDNS TXT record data
	// Common fields: "id", "fn", "md", "ve", "ca", "st", "rs"
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Name, d.Model, d.Addr())
}

// Addr returns host:port for dialing
func (d *Device) Addr() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// Status returns the receiver's advertised status text (TXT "rs"), e.g. the
// name of the running app
func (d *Device) Status() string {
	return d.GetMetadata("rs")
}

// CastDevice converts the record into the value a cast.Client dials
func (d *Device) CastDevice() cast.Device {
	return cast.Device{
		ID:   d.ID,
		Name: d.Name,
		Host: d.IP,
		Port: d.Port,
	}
}
