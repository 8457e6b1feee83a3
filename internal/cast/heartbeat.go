package cast

import (
	"time"

	"github.com/muurk/castcore/internal/protocol"
)

// heartbeatChannel keeps the connection alive. It has no timers of its own:
// the client loop asks nextWake for the earliest deadline and calls tick
// when it passes.
type heartbeatChannel struct {
	baseChannel
	interval time.Duration
	timeout  time.Duration

	nextPing time.Time
	deadline time.Time
}

func newHeartbeatChannel(interval, timeout time.Duration) *heartbeatChannel {
	return &heartbeatChannel{
		baseChannel: baseChannel{ns: protocol.NamespaceHeartbeat},
		interval:    interval,
		timeout:     timeout,
	}
}

// attach sends the first PING and arms both deadlines
func (h *heartbeatChannel) attach(d dispatcher) {
	h.baseChannel.attach(d)
	now := time.Now()
	h.deadline = now.Add(h.timeout)
	h.ping(now)
}

func (h *heartbeatChannel) detach() {
	h.baseChannel.detach()
	h.nextPing = time.Time{}
	h.deadline = time.Time{}
}

func (h *heartbeatChannel) ping(now time.Time) {
	h.send(protocol.TransportID, protocol.NewPing(), nil)
	h.nextPing = now.Add(h.interval)
}

// touch pushes the liveness deadline out; called for any inbound traffic
func (h *heartbeatChannel) touch(now time.Time) {
	if !h.attached() {
		return
	}
	h.deadline = now.Add(h.timeout)
}

// nextWake returns the earliest pending deadline, or zero when detached
func (h *heartbeatChannel) nextWake() time.Time {
	if !h.attached() {
		return time.Time{}
	}
	if h.nextPing.Before(h.deadline) {
		return h.nextPing
	}
	return h.deadline
}

// tick fires whatever deadlines have passed at now
func (h *heartbeatChannel) tick(now time.Time) {
	if !h.attached() {
		return
	}
	if !now.Before(h.deadline) {
		h.d.heartbeatTimeout()
		return
	}
	if !now.Before(h.nextPing) {
		h.ping(now)
	}
}

func (h *heartbeatChannel) handleText(msg *protocol.Message, hdr protocol.InboundHeader, payload []byte) {
	if !h.attached() {
		return
	}
	switch hdr.Type {
	case protocol.TypePing:
		h.send(msg.SourceID, protocol.NewPong(), nil)
	case protocol.TypePong:
		h.d.pong(msg.SourceID)
	default:
		h.baseChannel.handleText(msg, hdr, payload)
	}
}
