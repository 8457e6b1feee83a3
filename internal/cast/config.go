package cast

import (
	"time"

	"github.com/google/uuid"

	"github.com/muurk/castcore/internal/protocol"
)

// DefaultPort is the TLS port receivers listen on
const DefaultPort = 8009

// Config controls timing and identity of a Client
type Config struct {
	// HeartbeatInterval is the time between PINGs to transport-0
	HeartbeatInterval time.Duration
	// HeartbeatTimeout is how long the connection may go without any inbound traffic
	HeartbeatTimeout time.Duration
	// DialTimeout bounds opening the transport
	DialTimeout time.Duration
	// WriteTimeout bounds each frame write
	WriteTimeout time.Duration
	// EventBuffer is the capacity of the Events channel
	EventBuffer int
	// SenderID is our endpoint name; empty means sender-<uuid>
	SenderID string
	// Dialer opens the transport; nil means TLS with certificate checks disabled
	Dialer Dialer

	// firstRequestID overrides the random first request id (tests)
	firstRequestID int
}

// DefaultConfig returns the timings receivers expect
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 5 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
		DialTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		EventBuffer:       32,
	}
}

// withDefaults fills zero fields
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = d.HeartbeatTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	if c.SenderID == "" {
		c.SenderID = protocol.SenderPrefix + uuid.NewString()
	}
	if c.Dialer == nil {
		c.Dialer = &TLSDialer{Timeout: c.DialTimeout}
	}
	return c
}
