package cast

import (
	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/protocol"
)

// mediaChannel talks to the media namespace of a joined app
type mediaChannel struct {
	baseChannel
}

func newMediaChannel() *mediaChannel {
	return &mediaChannel{baseChannel{ns: protocol.NamespaceMedia}}
}

func (m *mediaChannel) handleText(msg *protocol.Message, hdr protocol.InboundHeader, payload []byte) {
	if !m.attached() {
		return
	}
	switch hdr.Type {
	case protocol.TypeMediaStatus:
		status, ok, err := protocol.ParseMediaStatus(payload)
		if err != nil {
			logging.Warn("Dropping malformed media status", zap.Error(err))
			return
		}
		if !ok {
			// Empty status array: nothing is loaded
			return
		}
		m.d.mediaStatus(msg.SourceID, status)
	case protocol.TypeLoadFailed, protocol.TypeLoadCancelled, protocol.TypeInvalidRequest:
		logging.Debug("Media error reply",
			zap.String("type", string(hdr.Type)),
			zap.String("reason", hdr.Reason),
			zap.Int("request_id", hdr.RequestID),
		)
	default:
		m.baseChannel.handleText(msg, hdr, payload)
	}
}

func (m *mediaChannel) requestMediaStatus(app protocol.App, mediaSessionID *int, fn continuation) {
	m.send(app.TransportID, protocol.NewGetMediaStatus(app.SessionID, mediaSessionID), fn)
}

func (m *mediaChannel) load(media protocol.Media, app protocol.App, fn continuation) {
	m.send(app.TransportID, protocol.NewLoad(media, app.SessionID), fn)
}

func (m *mediaChannel) play(app protocol.App, mediaSessionID int, fn continuation) {
	m.send(app.TransportID, protocol.NewMediaCommand(protocol.TypePlay, mediaSessionID), fn)
}

func (m *mediaChannel) pause(app protocol.App, mediaSessionID int, fn continuation) {
	m.send(app.TransportID, protocol.NewMediaCommand(protocol.TypePause, mediaSessionID), fn)
}

func (m *mediaChannel) stop(app protocol.App, mediaSessionID int, fn continuation) {
	m.send(app.TransportID, protocol.NewMediaCommand(protocol.TypeMediaStop, mediaSessionID), fn)
}

func (m *mediaChannel) seek(app protocol.App, mediaSessionID int, seconds float64, fn continuation) {
	m.send(app.TransportID, protocol.NewSeek(mediaSessionID, seconds), fn)
}
