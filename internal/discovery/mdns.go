package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/logging"
)

const (
	// ServiceType is the mDNS service type receivers advertise
	ServiceType = "_googlecast._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default TLS port for receivers
	DefaultPort = 8009
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all receivers on the local network
// Returns a list of discovered devices or an error
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background())
}

// ScanForDevicesWithContext discovers devices with a custom context.
// Each receiver is reported once even when it answers repeatedly.
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context) ([]*Device, error) {
	var (
		mu      sync.Mutex
		devices = make([]*Device, 0)
		seen    = make(map[string]bool)
	)

	err := s.Browse(ctx, func(device *Device) bool {
		mu.Lock()
		defer mu.Unlock()
		if !seen[device.ID] {
			seen[device.ID] = true
			devices = append(devices, device)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

// WaitForDevice waits for a receiver by id or friendly name
// Returns the device or an error if not found within timeout
func (s *Scanner) WaitForDevice(ref string) (*Device, error) {
	return s.WaitForDeviceWithContext(context.Background(), ref)
}

// WaitForDeviceWithContext waits for a specific device with a custom context
func (s *Scanner) WaitForDeviceWithContext(ctx context.Context, ref string) (*Device, error) {
	found := make(chan *Device, 1)

	err := s.Browse(ctx, func(device *Device) bool {
		if device.ID == ref || strings.EqualFold(device.Name, ref) {
			select {
			case found <- device:
			default:
			}
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	select {
	case device := <-found:
		return device, nil
	default:
		return nil, fmt.Errorf("device %s not found within timeout", ref)
	}
}

// Browse calls fn for every receiver answer until the timeout passes, ctx
// ends, or fn returns false
func (s *Scanner) Browse(ctx context.Context, fn func(*Device) bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				device := s.parseServiceEntry(entry)
				if device == nil {
					continue
				}
				logging.Debug("Discovered receiver",
					zap.String("id", device.ID),
					zap.String("name", device.Name),
					zap.String("addr", device.Addr()),
				)
				if !fn(device) {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done
	return nil
}

// parseServiceEntry converts a zeroconf service entry to a Device
// Returns nil if the entry has no usable address
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
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

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	id := metadata["id"]
	if id == "" {
		id = entry.Instance
	}
	if id == "" {
		return nil
	}

	name := metadata["fn"]
	if name == "" {
		name = entry.Instance
	}

	return &Device{
		ID:           id,
		Name:         name,
		Model:        metadata["md"],
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ScanForDevices is a convenience function to scan for devices with a custom timeout
func ScanForDevices(timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = timeout
	return scanner.ScanForDevices()
}

// FindDevice searches for a receiver by id or name with default timeout
func FindDevice(ref string) (*Device, error) {
	scanner := NewScanner()
	return scanner.WaitForDevice(ref)
}
