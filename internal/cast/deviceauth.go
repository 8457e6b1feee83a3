package cast

import (
	"crypto/rand"
	"errors"

	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/protocol"
)

// authNonceSize is the sender nonce length sent with a challenge
const authNonceSize = 16

type authResult func(*protocol.DeviceAuthMessage, error)

// deviceAuthChannel sends binary challenges. The namespace has no request
// ids, so only one challenge may be outstanding.
type deviceAuthChannel struct {
	baseChannel
	pending authResult
}

func newDeviceAuthChannel() *deviceAuthChannel {
	return &deviceAuthChannel{baseChannel: baseChannel{ns: protocol.NamespaceDeviceAuth}}
}

var errChallengePending = errors.New("auth challenge already pending")

// challenge sends an AuthChallenge with a fresh nonce
func (a *deviceAuthChannel) challenge(fn authResult) {
	if !a.attached() {
		fn(nil, newError(KindConnection, "channel detached", ErrNotConnected))
		return
	}
	if a.pending != nil {
		fn(nil, newError(KindRequest, "device auth", errChallengePending))
		return
	}

	nonce := make([]byte, authNonceSize)
	_, _ = rand.Read(nonce)
	msg := &protocol.DeviceAuthMessage{Challenge: &protocol.AuthChallenge{
		SignatureAlgorithm: protocol.SignatureRSASSAPKCS1v15,
		SenderNonce:        nonce,
		HashAlgorithm:      protocol.HashSHA256,
	}}

	a.pending = fn
	if err := a.d.sendBinary(a.ns, protocol.ReceiverID, protocol.EncodeDeviceAuth(msg)); err != nil {
		a.pending = nil
		fn(nil, err)
	}
}

func (a *deviceAuthChannel) detach() {
	a.baseChannel.detach()
	if a.pending != nil {
		fn := a.pending
		a.pending = nil
		fn(nil, newError(KindConnection, "connection closed", ErrConnectionClosed))
	}
}

func (a *deviceAuthChannel) handleBinary(msg *protocol.Message) {
	if !a.attached() {
		return
	}
	reply, err := protocol.DecodeDeviceAuth(msg.PayloadBinary)
	if err != nil {
		logging.Warn("Dropping malformed device auth message", zap.Error(err))
		if a.pending != nil {
			fn := a.pending
			a.pending = nil
			fn(nil, newError(KindDecode, "device auth reply", err))
		}
		return
	}
	if a.pending == nil {
		logging.Debug("Unsolicited device auth message", zap.String("source", msg.SourceID))
		return
	}
	fn := a.pending
	a.pending = nil
	fn(reply, nil)
}
