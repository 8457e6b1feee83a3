package cast

import (
	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/protocol"
)

// dispatcher is the handle a channel holds while attached. It is the only
// way a channel reaches the socket or the session state.
type dispatcher interface {
	// sendText assigns a request id when the type needs one, writes the
	// message, and registers fn for the reply. A write failure resolves fn
	// before sendText returns.
	sendText(namespace, destination string, req protocol.Request, fn continuation)
	// sendBinary writes a binary payload; binary messages carry no request id
	sendBinary(namespace, destination string, payload []byte) error

	pong(source string)
	remoteClose(source string)
	heartbeatTimeout()
	receiverStatus(s *protocol.DeviceStatus)
	mediaStatus(source string, m *protocol.MediaStatus)
	multizoneStatus(s *protocol.MultizoneStatus)
}

// channel handles one namespace
type channel interface {
	namespace() string
	attach(d dispatcher)
	detach()
	handleText(msg *protocol.Message, hdr protocol.InboundHeader, payload []byte)
	handleBinary(msg *protocol.Message)
}

// baseChannel holds the namespace and the dispatcher handle. A nil handle
// means detached and every side effect is skipped.
type baseChannel struct {
	ns string
	d  dispatcher
}

func (b *baseChannel) namespace() string { return b.ns }

func (b *baseChannel) attached() bool { return b.d != nil }

func (b *baseChannel) attach(d dispatcher) { b.d = d }

func (b *baseChannel) detach() { b.d = nil }

// send is sendText with failure reporting for detached channels
func (b *baseChannel) send(destination string, req protocol.Request, fn continuation) {
	if b.d == nil {
		if fn != nil {
			fn(response{err: newError(KindConnection, "channel detached", ErrNotConnected)})
		}
		return
	}
	b.d.sendText(b.ns, destination, req, fn)
}

func (b *baseChannel) handleText(msg *protocol.Message, hdr protocol.InboundHeader, _ []byte) {
	logging.Debug("Unhandled message type",
		zap.String("namespace", b.ns),
		zap.String("type", string(hdr.Type)),
		zap.String("source", msg.SourceID),
	)
}

func (b *baseChannel) handleBinary(msg *protocol.Message) {
	logging.Warn("Unexpected binary payload",
		zap.String("namespace", b.ns),
		zap.String("source", msg.SourceID),
		zap.Int("length", len(msg.PayloadBinary)),
	)
}
