package cast

import (
	"github.com/muurk/castcore/internal/protocol"
)

// discoveryChannel answers device info queries
type discoveryChannel struct {
	baseChannel
}

func newDiscoveryChannel() *discoveryChannel {
	return &discoveryChannel{baseChannel{ns: protocol.NamespaceDiscovery}}
}

func (c *discoveryChannel) handleText(msg *protocol.Message, hdr protocol.InboundHeader, payload []byte) {
	if hdr.Type == protocol.TypeDeviceInfo {
		// Replies are consumed by the correlated request
		return
	}
	c.baseChannel.handleText(msg, hdr, payload)
}

func (c *discoveryChannel) deviceInfo(fn continuation) {
	c.send(protocol.ReceiverID, protocol.NewGetDeviceInfo(), fn)
}

// setupChannel answers eureka_info and app device id queries
type setupChannel struct {
	baseChannel
}

func newSetupChannel() *setupChannel {
	return &setupChannel{baseChannel{ns: protocol.NamespaceSetup}}
}

func (c *setupChannel) handleText(msg *protocol.Message, hdr protocol.InboundHeader, payload []byte) {
	switch hdr.Type {
	case protocol.TypeGetDeviceConfig, protocol.TypeGetAppDeviceID:
		return
	}
	c.baseChannel.handleText(msg, hdr, payload)
}

func (c *setupChannel) deviceConfig(params []string, fn continuation) {
	c.send(protocol.ReceiverID, protocol.NewGetDeviceConfig(params), fn)
}

func (c *setupChannel) appDeviceID(appID string, fn continuation) {
	c.send(protocol.ReceiverID, protocol.NewGetAppDeviceID(appID), fn)
}
