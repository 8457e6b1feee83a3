package cast

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/protocol"
)

// EventKind identifies what happened
type EventKind int

const (
	EventConnecting EventKind = iota
	EventConnected
	EventDisconnected
	EventConnectionFailed
	EventStatusChanged
	EventMediaStatusChanged
	EventMultizoneStatusChanged
)

// String returns the event name
func (k EventKind) String() string {
	switch k {
	case EventConnecting:
		return "connecting"
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventConnectionFailed:
		return "connection_failed"
	case EventStatusChanged:
		return "status_changed"
	case EventMediaStatusChanged:
		return "media_status_changed"
	case EventMultizoneStatusChanged:
		return "multizone_status_changed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered on Client.Events. Only the field matching Kind is set;
// a StatusChanged or MediaStatusChanged event with a nil value means the
// state was cleared. Values are snapshots owned by the receiver of the event.
type Event struct {
	Kind        EventKind
	Time        time.Time
	Err         error
	Status      *protocol.DeviceStatus
	MediaStatus *protocol.MediaStatus
	Multizone   *protocol.MultizoneStatus
}

// String returns a short description of the event
func (e Event) String() string {
	switch e.Kind {
	case EventDisconnected, EventConnectionFailed:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
	case EventStatusChanged:
		if e.Status != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.Status)
		}
	case EventMediaStatusChanged:
		if e.MediaStatus != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.MediaStatus)
		}
	}
	return e.Kind.String()
}

// emit must be called from the loop. Events are dropped rather than
// blocking the connection when the consumer falls behind.
func (c *Client) emit(e Event) {
	e.Time = time.Now()
	select {
	case c.events <- e:
	default:
		logging.Warn("Event channel full, dropping event",
			zap.String("event", e.Kind.String()),
			zap.String("device", c.device.String()),
		)
	}
}
