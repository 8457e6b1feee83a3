package cast

import (
	"context"
	"fmt"

	"github.com/muurk/castcore/internal/protocol"
)

// RequestStatus asks the receiver for its current status
func (c *Client) RequestStatus(ctx context.Context) (*protocol.DeviceStatus, error) {
	return call(ctx, c, func(done func(*protocol.DeviceStatus, error)) {
		if err := c.requireConnected(KindRequest, "status request"); err != nil {
			done(nil, err)
			return
		}
		c.receiver.requestStatus(func(r response) {
			if err := r.replyError(KindRequest, "status request"); err != nil {
				done(nil, err)
				return
			}
			s, err := protocol.ParseDeviceStatus(r.payload)
			if err != nil {
				done(nil, newError(KindDecode, "receiver status", err))
				return
			}
			done(s, nil)
		})
	})
}

// GetAppAvailability reports which of appIDs the receiver can launch
func (c *Client) GetAppAvailability(ctx context.Context, appIDs ...string) (protocol.AppAvailability, error) {
	return call(ctx, c, func(done func(protocol.AppAvailability, error)) {
		if err := c.requireConnected(KindRequest, "app availability"); err != nil {
			done(nil, err)
			return
		}
		c.receiver.getAppAvailability(appIDs, func(r response) {
			if err := r.replyError(KindRequest, "app availability"); err != nil {
				done(nil, err)
				return
			}
			avail, err := protocol.ParseAppAvailability(r.payload)
			if err != nil {
				done(nil, newError(KindDecode, "app availability", err))
				return
			}
			done(avail, nil)
		})
	})
}

// Launch starts appID and joins the new session
func (c *Client) Launch(ctx context.Context, appID string) (protocol.App, error) {
	return call(ctx, c, func(done func(protocol.App, error)) {
		if err := c.requireConnected(KindLaunch, "launch "+appID); err != nil {
			done(protocol.App{}, err)
			return
		}
		c.receiver.launch(appID, func(r response) {
			if err := r.replyError(KindLaunch, "launch "+appID); err != nil {
				done(protocol.App{}, err)
				return
			}
			s, err := protocol.ParseDeviceStatus(r.payload)
			if err != nil {
				done(protocol.App{}, newError(KindLaunch, "launch "+appID, newError(KindDecode, "receiver status", err)))
				return
			}
			app, ok := s.FirstApp()
			if !ok {
				done(protocol.App{}, newError(KindLaunch, "unable to get launched app instance", nil))
				return
			}
			c.joinApp(app)
			done(app, nil)
		})
	})
}

// Join opens a virtual connection to a running app. With a nil app the
// first running app is joined. The cached status is used when it has the
// app; otherwise the receiver is asked first.
func (c *Client) Join(ctx context.Context, app *protocol.App) (protocol.App, error) {
	return call(ctx, c, func(done func(protocol.App, error)) {
		if err := c.requireConnected(KindSession, "join"); err != nil {
			done(protocol.App{}, err)
			return
		}

		pick := func(s *protocol.DeviceStatus) (protocol.App, bool) {
			if s == nil {
				return protocol.App{}, false
			}
			if app == nil {
				return s.FirstApp()
			}
			return s.FindApp(app.SessionID)
		}
		join := func(target protocol.App) {
			if c.connectedApp == nil || *c.connectedApp != target {
				c.joinApp(target)
			}
			done(target, nil)
		}

		if target, ok := pick(c.curStatus); ok {
			join(target)
			return
		}

		c.receiver.requestStatus(func(r response) {
			if err := r.replyError(KindSession, "join"); err != nil {
				done(protocol.App{}, err)
				return
			}
			s, err := protocol.ParseDeviceStatus(r.payload)
			if err != nil {
				done(protocol.App{}, newError(KindSession, "join", newError(KindDecode, "receiver status", err)))
				return
			}
			target, ok := pick(s)
			if !ok {
				if app == nil {
					done(protocol.App{}, newError(KindSession, "nothing to join", ErrNoApps))
				} else {
					done(protocol.App{}, newError(KindSession, fmt.Sprintf("session %s is not running", app.SessionID), ErrNoApps))
				}
				return
			}
			join(target)
		})
	})
}

// Leave closes the virtual connection to the joined app, if any. The app
// keeps running.
func (c *Client) Leave(ctx context.Context) error {
	_, err := call(ctx, c, func(done func(struct{}, error)) {
		if c.connectedApp != nil {
			c.connection.leave(*c.connectedApp)
			c.connectedApp = nil
			c.clearMedia()
		}
		done(struct{}{}, nil)
	})
	return err
}

// StopApp stops app on the receiver. With a nil app the joined app is
// stopped, or the first running app when nothing is joined.
func (c *Client) StopApp(ctx context.Context, app *protocol.App) error {
	_, err := call(ctx, c, func(done func(struct{}, error)) {
		if err := c.requireConnected(KindRequest, "stop app"); err != nil {
			done(struct{}{}, err)
			return
		}

		var target protocol.App
		switch {
		case app != nil:
			target = *app
		case c.connectedApp != nil:
			target = *c.connectedApp
		default:
			first, ok := c.curStatus.FirstApp()
			if !ok {
				done(struct{}{}, newError(KindSession, "nothing to stop", ErrNoApps))
				return
			}
			target = first
		}

		c.receiver.stop(target, func(r response) {
			if err := r.replyError(KindRequest, "stop app"); err != nil {
				done(struct{}{}, err)
				return
			}
			if c.connectedApp != nil && c.connectedApp.SessionID == target.SessionID {
				c.connectedApp = nil
				c.clearMedia()
			}
			done(struct{}{}, nil)
		})
	})
	return err
}

// Load plays media in app, or in the joined app when app is nil. It returns
// the media status the receiver replies with.
func (c *Client) Load(ctx context.Context, media protocol.Media, app *protocol.App) (*protocol.MediaStatus, error) {
	return call(ctx, c, func(done func(*protocol.MediaStatus, error)) {
		if err := c.requireConnected(KindLoad, "load"); err != nil {
			done(nil, err)
			return
		}

		var target protocol.App
		switch {
		case app != nil:
			target = *app
		case c.connectedApp != nil:
			target = *c.connectedApp
		default:
			done(nil, newError(KindSession, "no app joined", ErrNoApps))
			return
		}
		if c.connectedApp == nil || c.connectedApp.SessionID != target.SessionID {
			c.joinApp(target)
		}

		c.media.load(media, target, func(r response) {
			if err := r.replyError(KindLoad, "load"); err != nil {
				done(nil, err)
				return
			}
			m, ok, err := protocol.ParseMediaStatus(r.payload)
			if err != nil {
				done(nil, newError(KindLoad, "load", newError(KindDecode, "media status", err)))
				return
			}
			if !ok {
				done(nil, newError(KindLoad, "receiver returned no media status", nil))
				return
			}
			done(m, nil)
		})
	})
}

// RequestMediaStatus asks app, or the joined app, for its media status. A
// nil status with a nil error means nothing is loaded.
func (c *Client) RequestMediaStatus(ctx context.Context, app *protocol.App, mediaSessionID *int) (*protocol.MediaStatus, error) {
	return call(ctx, c, func(done func(*protocol.MediaStatus, error)) {
		if err := c.requireConnected(KindRequest, "media status"); err != nil {
			done(nil, err)
			return
		}

		var target protocol.App
		switch {
		case app != nil:
			target = *app
		case c.connectedApp != nil:
			target = *c.connectedApp
		default:
			done(nil, newError(KindSession, "no app joined", ErrNoApps))
			return
		}

		c.media.requestMediaStatus(target, mediaSessionID, func(r response) {
			if err := r.replyError(KindRequest, "media status"); err != nil {
				done(nil, err)
				return
			}
			m, ok, err := protocol.ParseMediaStatus(r.payload)
			if err != nil {
				done(nil, newError(KindDecode, "media status", err))
				return
			}
			if !ok {
				done(nil, nil)
				return
			}
			done(m, nil)
		})
	})
}

type mediaCommand func(app protocol.App, mediaSessionID int, fn continuation)

// Play resumes playback. Media controls do nothing when no app is joined.
func (c *Client) Play(ctx context.Context) error {
	return c.mediaControl(ctx, "play", c.media.play)
}

// Pause pauses playback
func (c *Client) Pause(ctx context.Context) error {
	return c.mediaControl(ctx, "pause", c.media.pause)
}

// StopMedia stops playback. The app stays running.
func (c *Client) StopMedia(ctx context.Context) error {
	return c.mediaControl(ctx, "stop", c.media.stop)
}

// Seek moves playback to seconds from the start
func (c *Client) Seek(ctx context.Context, seconds float64) error {
	return c.mediaControl(ctx, "seek", func(app protocol.App, id int, fn continuation) {
		c.media.seek(app, id, seconds, fn)
	})
}

// mediaControl sends cmd to the joined app's current media session,
// fetching the media status first when none is cached
func (c *Client) mediaControl(ctx context.Context, name string, cmd mediaCommand) error {
	_, err := call(ctx, c, func(done func(struct{}, error)) {
		if c.connectedApp == nil {
			done(struct{}{}, nil)
			return
		}
		app := *c.connectedApp

		send := func(mediaSessionID int) {
			cmd(app, mediaSessionID, func(r response) {
				done(struct{}{}, r.replyError(KindLoad, name))
			})
		}

		if c.curMedia != nil {
			send(c.curMedia.MediaSessionID)
			return
		}
		c.media.requestMediaStatus(app, nil, func(r response) {
			if err := r.replyError(KindLoad, name); err != nil {
				done(struct{}{}, err)
				return
			}
			m, ok, err := protocol.ParseMediaStatus(r.payload)
			if err != nil {
				done(struct{}{}, newError(KindLoad, name, newError(KindDecode, "media status", err)))
				return
			}
			if !ok {
				done(struct{}{}, newError(KindLoad, name+": no active media session", nil))
				return
			}
			send(m.MediaSessionID)
		})
	})
	return err
}

// SetVolume sets the receiver volume; level is clamped to [0, 1]
func (c *Client) SetVolume(ctx context.Context, level float64) error {
	_, err := call(ctx, c, func(done func(struct{}, error)) {
		if err := c.requireConnected(KindRequest, "set volume"); err != nil {
			done(struct{}{}, err)
			return
		}
		c.receiver.setVolume(level, func(r response) {
			done(struct{}{}, r.replyError(KindRequest, "set volume"))
		})
	})
	return err
}

// SetMuted mutes or unmutes the receiver
func (c *Client) SetMuted(ctx context.Context, muted bool) error {
	_, err := call(ctx, c, func(done func(struct{}, error)) {
		if err := c.requireConnected(KindRequest, "set muted"); err != nil {
			done(struct{}{}, err)
			return
		}
		c.receiver.setMuted(muted, func(r response) {
			done(struct{}{}, r.replyError(KindRequest, "set muted"))
		})
	})
	return err
}

// documentRequest issues a request whose reply is returned as a loose document
func (c *Client) documentRequest(ctx context.Context, name string, issue func(fn continuation)) (protocol.Document, error) {
	return call(ctx, c, func(done func(protocol.Document, error)) {
		if err := c.requireConnected(KindRequest, name); err != nil {
			done(nil, err)
			return
		}
		issue(func(r response) {
			if err := r.replyError(KindRequest, name); err != nil {
				done(nil, err)
				return
			}
			doc, err := protocol.ParseDocument(r.payload)
			if err != nil {
				done(nil, newError(KindDecode, name, err))
				return
			}
			done(doc, nil)
		})
	})
}

// RequestDeviceInfo asks the discovery namespace for device details
func (c *Client) RequestDeviceInfo(ctx context.Context) (protocol.Document, error) {
	return c.documentRequest(ctx, "device info", c.discovery.deviceInfo)
}

// RequestDeviceConfig asks the setup namespace for eureka_info. With no
// params, DefaultDeviceConfigParams is used.
func (c *Client) RequestDeviceConfig(ctx context.Context, params ...string) (protocol.Document, error) {
	if len(params) == 0 {
		params = protocol.DefaultDeviceConfigParams
	}
	return c.documentRequest(ctx, "device config", func(fn continuation) {
		c.setup.deviceConfig(params, fn)
	})
}

// RequestAppDeviceID asks for the per-app device identifier
func (c *Client) RequestAppDeviceID(ctx context.Context, appID string) (protocol.Document, error) {
	return c.documentRequest(ctx, "app device id", func(fn continuation) {
		c.setup.appDeviceID(appID, fn)
	})
}

// RequestMultizoneStatus asks for speaker group membership
func (c *Client) RequestMultizoneStatus(ctx context.Context) (*protocol.MultizoneStatus, error) {
	return call(ctx, c, func(done func(*protocol.MultizoneStatus, error)) {
		if err := c.requireConnected(KindRequest, "multizone status"); err != nil {
			done(nil, err)
			return
		}
		c.multizone.requestStatus(func(r response) {
			if err := r.replyError(KindRequest, "multizone status"); err != nil {
				done(nil, err)
				return
			}
			s, err := protocol.ParseMultizoneStatus(r.payload)
			if err != nil {
				done(nil, newError(KindDecode, "multizone status", err))
				return
			}
			done(s, nil)
		})
	})
}

// AuthChallenge sends a device authentication challenge and returns the
// receiver's signed response. The signature is not verified.
func (c *Client) AuthChallenge(ctx context.Context) (*protocol.AuthResponse, error) {
	return call(ctx, c, func(done func(*protocol.AuthResponse, error)) {
		if err := c.requireConnected(KindRequest, "device auth"); err != nil {
			done(nil, err)
			return
		}
		c.auth.challenge(func(m *protocol.DeviceAuthMessage, err error) {
			switch {
			case err != nil:
				done(nil, wrapOp(KindRequest, "device auth", err))
			case m.Error != nil:
				done(nil, newError(KindRequest, "device auth: "+m.Error.ErrorType.String(), protocol.ErrAuthRejected))
			case m.Response == nil:
				done(nil, newError(KindDecode, "device auth reply carries no response", nil))
			default:
				done(m.Response, nil)
			}
		})
	})
}
