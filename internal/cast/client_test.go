package cast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/muurk/castcore/internal/protocol"
)

const testAppStatus = `{"type":"RECEIVER_STATUS","requestId":%d,"status":{"volume":{"level":0.5,"muted":false},` +
	`"applications":[{"appId":"CC1AD845","displayName":"Default Media Receiver","sessionId":"session-1","transportId":"transport-42"}]}}`

func TestClient_Connect(t *testing.T) {
	c, fr := newTestClient(t, Config{})

	if got := c.State(); got != StateIdle {
		t.Errorf("State() before Connect = %v, want idle", got)
	}

	connect(t, c, fr)

	if !c.IsConnected() {
		t.Error("IsConnected() = false after handshake")
	}
	if got := c.State(); got != StateOpen {
		t.Errorf("State() = %v, want open", got)
	}
	waitEvent(t, c, EventConnecting)
	waitEvent(t, c, EventConnected)

	// Status is requested on attach and again once open
	fr.expect(protocol.NamespaceReceiver, protocol.TypeGetStatus)
	fr.expect(protocol.NamespaceReceiver, protocol.TypeGetStatus)

	// Connecting again while open is a no-op
	if err := c.Connect(context.Background()); err != nil {
		t.Errorf("second Connect() error = %v", err)
	}
}

func TestClient_ConnectDialFailure(t *testing.T) {
	dialErr := errors.New("boom")
	c := NewClient(Device{Host: "127.0.0.1"}, Config{
		Dialer: DialerFunc(func(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
			return nil, dialErr
		}),
	})
	defer c.Close()

	err := c.Connect(context.Background())
	if !IsKind(err, KindConnection) {
		t.Fatalf("Connect() error = %v, want connection error", err)
	}
	if !errors.Is(err, dialErr) {
		t.Errorf("Connect() error does not wrap the dial error: %v", err)
	}
	e := waitEvent(t, c, EventConnectionFailed)
	if e.Err == nil {
		t.Error("ConnectionFailed event carries no error")
	}
	if got := c.State(); got != StateClosed {
		t.Errorf("State() = %v, want closed", got)
	}
}

func TestClient_AnswersPingFromAnySource(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)

	fr.send("transport-123", protocol.NamespaceHeartbeat, `{"type":"PING"}`)

	msg, _ := fr.expect(protocol.NamespaceHeartbeat, protocol.TypePong)
	if msg.DestinationID != "transport-123" {
		t.Errorf("PONG sent to %q, want transport-123", msg.DestinationID)
	}
	if msg.SourceID != c.SenderID() {
		t.Errorf("PONG source = %q, want %q", msg.SourceID, c.SenderID())
	}
}

func TestClient_OperationsBeforeConnect(t *testing.T) {
	c, _ := newTestClient(t, Config{})
	ctx := context.Background()

	if _, err := c.RequestStatus(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("RequestStatus() error = %v, want ErrNotConnected", err)
	}
	if _, err := c.Launch(ctx, protocol.AppDefaultMediaPlayer); !IsKind(err, KindLaunch) {
		t.Errorf("Launch() error = %v, want launch error", err)
	}
	if _, err := c.Load(ctx, protocol.Media{URL: "http://example.com/a.mp4"}, nil); !IsKind(err, KindLoad) {
		t.Errorf("Load() error = %v, want load error", err)
	}

	// Media controls without a joined app do nothing
	if err := c.Play(ctx); err != nil {
		t.Errorf("Play() error = %v, want nil", err)
	}
	if err := c.Seek(ctx, 10); err != nil {
		t.Errorf("Seek() error = %v, want nil", err)
	}
	if err := c.Disconnect(ctx); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
}

func TestClient_RequestStatus(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)
	fr.expect(protocol.NamespaceReceiver, protocol.TypeGetStatus)
	fr.expect(protocol.NamespaceReceiver, protocol.TypeGetStatus)

	type result struct {
		s   *protocol.DeviceStatus
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := c.RequestStatus(context.Background())
		done <- result{s, err}
	}()

	_, hdr := fr.expect(protocol.NamespaceReceiver, protocol.TypeGetStatus)
	fr.send(protocol.ReceiverID, protocol.NamespaceReceiver, fmt.Sprintf(testAppStatus, hdr.RequestID))

	r := <-done
	if r.err != nil {
		t.Fatalf("RequestStatus() error = %v", r.err)
	}
	if r.s.Volume != 0.5 || len(r.s.Apps) != 1 || r.s.Apps[0].TransportID != "transport-42" {
		t.Errorf("RequestStatus() = %v", r.s)
	}

	e := waitEvent(t, c, EventStatusChanged)
	if e.Status == nil || len(e.Status.Apps) != 1 {
		t.Errorf("StatusChanged event = %v", e)
	}
	if s := c.Status(); s == nil || s.Apps[0].SessionID != "session-1" {
		t.Errorf("Status() = %v", s)
	}
}

func TestClient_ErrorReply(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)

	done := make(chan error, 1)
	go func() {
		_, err := c.Launch(context.Background(), "BADAPP")
		done <- err
	}()

	_, hdr := fr.expect(protocol.NamespaceReceiver, protocol.TypeLaunch)
	fr.send(protocol.ReceiverID, protocol.NamespaceReceiver,
		fmt.Sprintf(`{"type":"LAUNCH_ERROR","requestId":%d,"reason":"NOT_FOUND"}`, hdr.RequestID))

	err := <-done
	if !IsKind(err, KindLaunch) {
		t.Fatalf("Launch() error = %v, want launch error", err)
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("Launch() error %q does not carry the reason", err)
	}
}

func TestClient_JoinWithNoApps(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)

	empty := `{"type":"RECEIVER_STATUS","requestId":%d,"status":{"applications":[]}}`
	for i := 0; i < 2; i++ {
		_, hdr := fr.expect(protocol.NamespaceReceiver, protocol.TypeGetStatus)
		fr.send(protocol.ReceiverID, protocol.NamespaceReceiver, fmt.Sprintf(empty, hdr.RequestID))
	}
	e := waitEvent(t, c, EventStatusChanged)
	if e.Status == nil || len(e.Status.Apps) != 0 {
		t.Fatalf("StatusChanged event = %v, want empty apps", e)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Join(context.Background(), nil)
		done <- err
	}()

	_, hdr := fr.expect(protocol.NamespaceReceiver, protocol.TypeGetStatus)
	fr.send(protocol.ReceiverID, protocol.NamespaceReceiver, fmt.Sprintf(empty, hdr.RequestID))

	err := <-done
	if !errors.Is(err, ErrNoApps) || !IsKind(err, KindSession) {
		t.Errorf("Join() error = %v, want session error wrapping ErrNoApps", err)
	}
	if _, ok := c.ConnectedApp(); ok {
		t.Error("ConnectedApp() reports an app after failed join")
	}
}

// launchApp launches the default media receiver against the fake and
// returns the joined app
func launchApp(t *testing.T, c *Client, fr *fakeReceiver) protocol.App {
	t.Helper()
	type result struct {
		app protocol.App
		err error
	}
	done := make(chan result, 1)
	go func() {
		app, err := c.Launch(context.Background(), protocol.AppDefaultMediaPlayer)
		done <- result{app, err}
	}()

	msg, hdr := fr.expect(protocol.NamespaceReceiver, protocol.TypeLaunch)
	if !strings.Contains(msg.PayloadUTF8, `"appId":"CC1AD845"`) {
		t.Errorf("LAUNCH payload = %s", msg.PayloadUTF8)
	}
	fr.send(protocol.ReceiverID, protocol.NamespaceReceiver, fmt.Sprintf(testAppStatus, hdr.RequestID))

	r := <-done
	if r.err != nil {
		t.Fatalf("Launch() error = %v", r.err)
	}
	return r.app
}

func TestClient_LaunchJoinsApp(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)

	app := launchApp(t, c, fr)
	if app.TransportID != "transport-42" || app.SessionID != "session-1" {
		t.Errorf("Launch() = %v", app)
	}

	msg, _ := fr.expect(protocol.NamespaceConnection, protocol.TypeConnect)
	if msg.DestinationID != "transport-42" {
		t.Errorf("CONNECT sent to %q, want transport-42", msg.DestinationID)
	}

	got, ok := c.ConnectedApp()
	if !ok || got != app {
		t.Errorf("ConnectedApp() = %v, %t; want %v", got, ok, app)
	}
}

func TestClient_AppCloseClearsSession(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)
	launchApp(t, c, fr)
	waitEvent(t, c, EventStatusChanged)

	fr.send("transport-42", protocol.NamespaceConnection, `{"type":"CLOSE"}`)

	e := waitEvent(t, c, EventStatusChanged)
	if e.Status != nil {
		t.Errorf("StatusChanged after app close = %v, want nil", e.Status)
	}
	if _, ok := c.ConnectedApp(); ok {
		t.Error("ConnectedApp() still set after app CLOSE")
	}
	if !c.IsConnected() {
		t.Error("app CLOSE tore down the connection")
	}
}

func TestClient_ReceiverCloseTearsDown(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)

	fr.send(protocol.ReceiverID, protocol.NamespaceConnection, `{"type":"CLOSE"}`)

	e := waitEvent(t, c, EventDisconnected)
	if !errors.Is(e.Err, ErrConnectionClosed) {
		t.Errorf("Disconnected error = %v, want ErrConnectionClosed", e.Err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after receiver CLOSE")
	}
}

func TestClient_EmptyMediaStatusIgnored(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)
	waitEvent(t, c, EventConnected)

	fr.send("transport-42", protocol.NamespaceMedia, `{"type":"MEDIA_STATUS","requestId":0,"status":[]}`)
	fr.send(protocol.ReceiverID, protocol.NamespaceReceiver,
		`{"type":"RECEIVER_STATUS","requestId":0,"status":{"volume":{"level":0.2},"applications":[]}}`)

	select {
	case e := <-c.Events():
		if e.Kind != EventStatusChanged {
			t.Errorf("next event = %v, want status_changed", e)
		}
	case <-time.After(testWait):
		t.Fatal("no event after receiver status")
	}
	if m := c.MediaStatus(); m != nil {
		t.Errorf("MediaStatus() = %v, want nil", m)
	}
}

func TestClient_PauseUsesCurrentMediaSession(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)
	launchApp(t, c, fr)

	fr.send("transport-42", protocol.NamespaceMedia,
		`{"type":"MEDIA_STATUS","requestId":0,"status":[{"mediaSessionId":7,"playerState":"PLAYING","currentTime":12.5}]}`)
	e := waitEvent(t, c, EventMediaStatusChanged)
	if e.MediaStatus == nil || e.MediaStatus.MediaSessionID != 7 {
		t.Fatalf("MediaStatusChanged = %v", e)
	}

	done := make(chan error, 1)
	go func() { done <- c.Pause(context.Background()) }()

	msg, hdr := fr.expect(protocol.NamespaceMedia, protocol.TypePause)
	if msg.DestinationID != "transport-42" {
		t.Errorf("PAUSE sent to %q, want transport-42", msg.DestinationID)
	}
	if !strings.Contains(msg.PayloadUTF8, `"mediaSessionId":7`) {
		t.Errorf("PAUSE payload = %s", msg.PayloadUTF8)
	}
	fr.send("transport-42", protocol.NamespaceMedia, fmt.Sprintf(
		`{"type":"MEDIA_STATUS","requestId":%d,"status":[{"mediaSessionId":7,"playerState":"PAUSED"}]}`, hdr.RequestID))

	if err := <-done; err != nil {
		t.Errorf("Pause() error = %v", err)
	}
	if m := c.MediaStatus(); m == nil || m.PlayerState != protocol.PlayerPaused {
		t.Errorf("MediaStatus() = %v, want PAUSED", m)
	}
}

func TestClient_DisconnectTwice(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)

	ctx := context.Background()
	if err := c.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	msg, _ := fr.expect(protocol.NamespaceConnection, protocol.TypeClose)
	if msg.DestinationID != protocol.ReceiverID {
		t.Errorf("CLOSE sent to %q, want %q", msg.DestinationID, protocol.ReceiverID)
	}
	if err := c.Disconnect(ctx); err != nil {
		t.Fatalf("second Disconnect() error = %v", err)
	}

	_ = c.Close()
	disconnected := 0
	for e := range c.Events() {
		if e.Kind == EventDisconnected {
			disconnected++
			if e.Err != nil {
				t.Errorf("explicit disconnect reported error %v", e.Err)
			}
		}
	}
	if disconnected != 1 {
		t.Errorf("got %d Disconnected events, want 1", disconnected)
	}
}

func TestClient_HeartbeatTimeoutFailsPending(t *testing.T) {
	c, fr := newTestClient(t, Config{
		HeartbeatInterval: 20 * time.Millisecond,
		HeartbeatTimeout:  150 * time.Millisecond,
	})
	connect(t, c, fr)

	done := make(chan error, 1)
	go func() {
		_, err := c.GetAppAvailability(context.Background(), protocol.AppYouTube)
		done <- err
	}()
	fr.expect(protocol.NamespaceReceiver, protocol.TypeGetAppAvailability)

	select {
	case err := <-done:
		if !errors.Is(err, ErrConnectionClosed) {
			t.Errorf("GetAppAvailability() error = %v, want ErrConnectionClosed", err)
		}
	case <-time.After(testWait):
		t.Fatal("pending request not failed after heartbeat timeout")
	}

	e := waitEvent(t, c, EventDisconnected)
	if !errors.Is(e.Err, ErrHeartbeatTimeout) {
		t.Errorf("Disconnected error = %v, want ErrHeartbeatTimeout", e.Err)
	}
}

func TestClient_ContextOnlyStopsWaiting(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.RequestDeviceInfo(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RequestDeviceInfo() error = %v, want deadline exceeded", err)
	}
	fr.expect(protocol.NamespaceDiscovery, protocol.TypeGetDeviceInfo)

	if !c.IsConnected() {
		t.Error("abandoned request affected the connection")
	}
}

func TestClient_ReconnectAfterClose(t *testing.T) {
	c, fr := newTestClient(t, Config{})
	connect(t, c, fr)

	fr.send(protocol.ReceiverID, protocol.NamespaceConnection, `{"type":"CLOSE"}`)
	waitEvent(t, c, EventDisconnected)

	if got := c.State(); got != StateClosed {
		t.Errorf("State() = %v, want closed", got)
	}
	// The dialer keeps handing back the same closed pipe, so the second
	// attempt fails without hanging
	ctx, cancel := context.WithTimeout(context.Background(), testWait)
	defer cancel()
	if err := c.Connect(ctx); err == nil {
		t.Error("Connect() over a closed transport succeeded")
	}
}
