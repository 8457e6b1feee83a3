package cast

import (
	"github.com/muurk/castcore/internal/protocol"
)

// connectionChannel manages virtual connections to the receiver and to
// app transports
type connectionChannel struct {
	baseChannel
}

func newConnectionChannel() *connectionChannel {
	return &connectionChannel{baseChannel{ns: protocol.NamespaceConnection}}
}

// attach opens the virtual connection to the receiver platform
func (c *connectionChannel) attach(d dispatcher) {
	c.baseChannel.attach(d)
	c.send(protocol.ReceiverID, protocol.NewConnect(), nil)
}

// connectTo opens a virtual connection to an app session
func (c *connectionChannel) connectTo(app protocol.App) {
	c.send(app.TransportID, protocol.NewConnect(), nil)
}

// leave closes the virtual connection to an app session
func (c *connectionChannel) leave(app protocol.App) {
	c.send(app.TransportID, protocol.NewClose(), nil)
}

// closeReceiver closes the virtual connection to the receiver platform
func (c *connectionChannel) closeReceiver() {
	c.send(protocol.ReceiverID, protocol.NewClose(), nil)
}

func (c *connectionChannel) handleText(msg *protocol.Message, hdr protocol.InboundHeader, payload []byte) {
	if !c.attached() {
		return
	}
	if hdr.Type == protocol.TypeClose {
		c.d.remoteClose(msg.SourceID)
		return
	}
	c.baseChannel.handleText(msg, hdr, payload)
}
