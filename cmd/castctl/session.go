package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/cast"
	"github.com/muurk/castcore/internal/config"
	"github.com/muurk/castcore/internal/discovery"
	"github.com/muurk/castcore/internal/logging"
)

// loadRegistry returns the user registry, or an empty one when the file is unreadable
func loadRegistry() *config.Registry {
	reg, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Ignoring unreadable config file", zap.Error(err))
		return config.NewRegistry()
	}
	return reg
}

// isAddress reports whether ref names a host rather than a remembered id or name
func isAddress(ref string) bool {
	if net.ParseIP(ref) != nil {
		return true
	}
	if _, _, err := net.SplitHostPort(ref); err == nil {
		return true
	}
	return len(ref) > 6 && ref[len(ref)-6:] == ".local"
}

// addressDevice builds a device from host or host:port
func addressDevice(ref string, port int) cast.Device {
	if host, p, err := net.SplitHostPort(ref); err == nil {
		var n int
		if _, err := fmt.Sscanf(p, "%d", &n); err == nil {
			return cast.Device{Host: host, Port: n, Name: ref}
		}
	}
	return cast.Device{Host: ref, Port: port, Name: ref}
}

// resolveDevice picks the receiver to talk to: --device, then the default
// device preference, then a discovery scan that must find exactly one
func resolveDevice(ctx context.Context, reg *config.Registry) (cast.Device, error) {
	ref := deviceRef
	if ref == "" {
		ref = reg.Preferences.DefaultDevice
	}

	if ref != "" {
		if isAddress(ref) {
			return addressDevice(ref, devicePort), nil
		}
		if id, d := reg.FindDevice(ref); d != nil {
			return cast.Device{ID: id, Name: d.Name, Host: d.Host, Port: d.Port}, nil
		}

		fmt.Fprintf(os.Stderr, "Looking for %q on the network...\n", ref)
		scanner := discovery.NewScanner()
		scanner.Timeout = reg.Preferences.DiscoverTimeoutDuration()
		found, err := scanner.WaitForDeviceWithContext(ctx, ref)
		if err != nil {
			return cast.Device{}, fmt.Errorf("%w. Use --device with an address instead", err)
		}
		remember(reg, found)
		return found.CastDevice(), nil
	}

	fmt.Fprintln(os.Stderr, "No device specified, attempting auto-discovery...")
	scanner := discovery.NewScanner()
	scanner.Timeout = reg.Preferences.DiscoverTimeoutDuration()
	devices, err := scanner.ScanForDevicesWithContext(ctx)
	if err != nil {
		return cast.Device{}, fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return cast.Device{}, fmt.Errorf("no receivers found. Use --device flag to specify one")
	case 1:
		remember(reg, devices[0])
		fmt.Fprintf(os.Stderr, "Found receiver: %s\n\n", devices[0])
		return devices[0].CastDevice(), nil
	default:
		fmt.Fprintf(os.Stderr, "Found %d receivers:\n", len(devices))
		for i, d := range devices {
			fmt.Fprintf(os.Stderr, "%d. %s\n", i+1, d)
		}
		return cast.Device{}, fmt.Errorf("multiple receivers found. Use --device flag to specify which one")
	}
}

// remember records a discovered receiver; failures only cost convenience
func remember(reg *config.Registry, d *discovery.Device) {
	reg.RememberDevice(d.ID, d.Name, d.IP, d.Port)
	if err := reg.Save(); err != nil {
		logging.Warn("Failed to save config", zap.Error(err))
	}
}

// clientConfig applies heartbeat preferences to the engine defaults
func clientConfig(reg *config.Registry) cast.Config {
	cfg := cast.DefaultConfig()
	if d := reg.Preferences.HeartbeatIntervalDuration(); d > 0 {
		cfg.HeartbeatInterval = d
	}
	if d := reg.Preferences.HeartbeatTimeoutDuration(); d > 0 {
		cfg.HeartbeatTimeout = d
	}
	cfg.DialTimeout = operationTimeout()
	return cfg
}

func operationTimeout() time.Duration {
	if opTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(opTimeout) * time.Second
}

// withClient connects to the resolved receiver, runs fn and disconnects
func withClient(ctx context.Context, fn func(ctx context.Context, c *cast.Client) error) error {
	reg := loadRegistry()
	device, err := resolveDevice(ctx, reg)
	if err != nil {
		return err
	}

	client := cast.NewClient(device, clientConfig(reg))
	defer client.Close()

	connectCtx, cancel := context.WithTimeout(ctx, operationTimeout())
	err = client.Connect(connectCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", device, err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	opCtx, cancel := context.WithTimeout(ctx, operationTimeout())
	defer cancel()
	return fn(opCtx, client)
}

// printJSON writes v as indented JSON to stdout
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
