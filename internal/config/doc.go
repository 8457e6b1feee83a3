// Package config provides user configuration management for castcore.
//
// This package manages a YAML-based configuration file that remembers
// receivers found by discovery or used with --device, and CLI preferences
// such as heartbeat timings and the default app. The configuration follows
// OS-specific conventions for storage location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/castcore/config.yaml or $HOME/.config/castcore/config.yaml
//   - macOS: $HOME/.config/castcore/config.yaml
//   - Windows: %LOCALAPPDATA%\castcore\config.yaml
//
// SetConfigPath overrides the location (the CLI's --config flag).
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.RememberDevice("4d2f1c", "Living Room TV", "192.168.1.20", 8009)
//
//	// Save changes atomically
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
