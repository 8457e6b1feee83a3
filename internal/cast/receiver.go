package cast

import (
	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/protocol"
)

// receiverChannel controls the receiver platform: status, apps and volume
type receiverChannel struct {
	baseChannel
}

func newReceiverChannel() *receiverChannel {
	return &receiverChannel{baseChannel{ns: protocol.NamespaceReceiver}}
}

// attach asks for the current status right away
func (r *receiverChannel) attach(d dispatcher) {
	r.baseChannel.attach(d)
	r.requestStatus(nil)
}

func (r *receiverChannel) handleText(msg *protocol.Message, hdr protocol.InboundHeader, payload []byte) {
	if !r.attached() {
		return
	}
	switch hdr.Type {
	case protocol.TypeReceiverStatus:
		status, err := protocol.ParseDeviceStatus(payload)
		if err != nil {
			logging.Warn("Dropping malformed receiver status", zap.Error(err))
			return
		}
		r.d.receiverStatus(status)
	case protocol.TypeInvalidRequest, protocol.TypeLaunchError:
		logging.Debug("Receiver error reply",
			zap.String("type", string(hdr.Type)),
			zap.String("reason", hdr.Reason),
			zap.Int("request_id", hdr.RequestID),
		)
	default:
		r.baseChannel.handleText(msg, hdr, payload)
	}
}

func (r *receiverChannel) requestStatus(fn continuation) {
	r.send(protocol.ReceiverID, protocol.NewGetStatus(), fn)
}

func (r *receiverChannel) getAppAvailability(appIDs []string, fn continuation) {
	r.send(protocol.ReceiverID, protocol.NewGetAppAvailability(appIDs), fn)
}

func (r *receiverChannel) launch(appID string, fn continuation) {
	r.send(protocol.ReceiverID, protocol.NewLaunch(appID), fn)
}

func (r *receiverChannel) stop(app protocol.App, fn continuation) {
	r.send(protocol.ReceiverID, protocol.NewStop(app.SessionID), fn)
}

func (r *receiverChannel) setVolume(level float64, fn continuation) {
	r.send(protocol.ReceiverID, protocol.NewSetVolume(level), fn)
}

func (r *receiverChannel) setMuted(muted bool, fn continuation) {
	r.send(protocol.ReceiverID, protocol.NewSetMuted(muted), fn)
}
