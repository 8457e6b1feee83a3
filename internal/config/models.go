package config

import (
	"sort"
	"strings"
	"time"
)

// Registry represents the entire user configuration file.
// This stores known receivers and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by receiver id (TXT "id")
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents a receiver remembered from discovery or a connection.
type Device struct {
	Name     string    `yaml:"name,omitempty"`      // Friendly name (TXT "fn")
	Host     string    `yaml:"host"`                // Last known host or IP
	Port     int       `yaml:"port,omitempty"`      // TLS port, 8009 when zero
	Model    string    `yaml:"model,omitempty"`     // Model name (TXT "md")
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last discovery/connection time
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DiscoverTimeout   int    `yaml:"discover_timeout"`         // mDNS browse time in seconds
	HeartbeatInterval int    `yaml:"heartbeat_interval"`       // Seconds between PINGs
	HeartbeatTimeout  int    `yaml:"heartbeat_timeout"`        // Seconds of silence before giving up
	DefaultApp        string `yaml:"default_app,omitempty"`    // App id used by launch/load when none given
	DefaultDevice     string `yaml:"default_device,omitempty"` // Receiver id or name used when --device is empty
}

func defaultPreferences() *Preferences {
	return &Preferences{
		DiscoverTimeout:   5,
		HeartbeatInterval: 5,
		HeartbeatTimeout:  10,
		DefaultApp:        "CC1AD845",
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

// GetDevice retrieves a receiver by id.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(id string) *Device {
	return r.Devices[id]
}

// EnsureDevice ensures a device entry exists in the registry.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(id string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[id]; exists {
		return device
	}

	device := &Device{}
	r.Devices[id] = device
	return device
}

// RememberDevice records where a receiver was last seen.
func (r *Registry) RememberDevice(id, name, host string, port int) {
	device := r.EnsureDevice(id)
	if name != "" {
		device.Name = name
	}
	device.Host = host
	device.Port = port
	device.LastSeen = time.Now()
}

// FindDevice resolves a receiver by id, then by case-insensitive name.
// Returns the id alongside the entry.
func (r *Registry) FindDevice(ref string) (string, *Device) {
	if d, ok := r.Devices[ref]; ok {
		return ref, d
	}
	for _, id := range r.DeviceIDs() {
		if strings.EqualFold(r.Devices[id].Name, ref) {
			return id, r.Devices[id]
		}
	}
	return "", nil
}

// DeviceIDs returns the known receiver ids in sorted order.
func (r *Registry) DeviceIDs() []string {
	ids := make([]string, 0, len(r.Devices))
	for id := range r.Devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HeartbeatIntervalDuration returns the preferred ping interval, zero when unset.
func (p *Preferences) HeartbeatIntervalDuration() time.Duration {
	if p == nil || p.HeartbeatInterval <= 0 {
		return 0
	}
	return time.Duration(p.HeartbeatInterval) * time.Second
}

// HeartbeatTimeoutDuration returns the preferred liveness timeout, zero when unset.
func (p *Preferences) HeartbeatTimeoutDuration() time.Duration {
	if p == nil || p.HeartbeatTimeout <= 0 {
		return 0
	}
	return time.Duration(p.HeartbeatTimeout) * time.Second
}

// DiscoverTimeoutDuration returns the mDNS browse time, 5s when unset.
func (p *Preferences) DiscoverTimeoutDuration() time.Duration {
	if p == nil || p.DiscoverTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.DiscoverTimeout) * time.Second
}
