package cast

import (
	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/protocol"
)

// multizoneChannel tracks speaker group membership
type multizoneChannel struct {
	baseChannel
	status *protocol.MultizoneStatus
}

func newMultizoneChannel() *multizoneChannel {
	return &multizoneChannel{baseChannel: baseChannel{ns: protocol.NamespaceMultizone}}
}

func (m *multizoneChannel) detach() {
	m.baseChannel.detach()
	m.status = nil
}

func (m *multizoneChannel) handleText(msg *protocol.Message, hdr protocol.InboundHeader, payload []byte) {
	if !m.attached() {
		return
	}
	switch hdr.Type {
	case protocol.TypeMultizoneStatus:
		s, err := protocol.ParseMultizoneStatus(payload)
		if err != nil {
			logging.Warn("Dropping malformed multizone status", zap.Error(err))
			return
		}
		m.status = s
	case protocol.TypeDeviceAdded, protocol.TypeDeviceUpdated, protocol.TypeDeviceRemoved:
		d, err := protocol.ParseMultizoneDevice(payload)
		if err != nil {
			logging.Warn("Dropping malformed multizone device", zap.Error(err))
			return
		}
		if m.status == nil {
			m.status = &protocol.MultizoneStatus{}
		}
		if hdr.Type == protocol.TypeDeviceRemoved {
			m.status.Remove(d.DeviceID)
		} else {
			m.status.Upsert(d)
		}
	default:
		m.baseChannel.handleText(msg, hdr, payload)
		return
	}
	m.d.multizoneStatus(m.status.Clone())
}

func (m *multizoneChannel) requestStatus(fn continuation) {
	m.send(protocol.ReceiverID, protocol.NewGetMultizoneStatus(), fn)
}
