package cast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/logging"
	"github.com/muurk/castcore/internal/protocol"
)

// State is the connection state of a Client
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type dialResult struct {
	gen  uint64
	conn io.ReadWriteCloser
	err  error
}

type readResult struct {
	gen  uint64
	data []byte
	err  error
}

// readBufferSize is the size of each transport read
const readBufferSize = 16 * 1024

// Client is a connection to one receiver.
//
// All state lives on a single loop goroutine. Public methods hand a closure
// to the loop and wait for its answer; socket reads and dials run on helper
// goroutines that report back tagged with the connection generation, so
// results from a torn-down connection are recognised and dropped.
type Client struct {
	device Device
	cfg    Config

	ops    chan func()
	events chan Event
	dials  chan dialResult
	reads  chan readResult

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc

	// Owned by the loop goroutine
	state      State
	gen        uint64
	conn       io.ReadWriteCloser
	dialCancel context.CancelFunc
	reader     *protocol.FrameReader
	corr       *correlator
	waiters    []func(error)

	channels   map[string]channel
	order      []channel
	connection *connectionChannel
	heartbeat  *heartbeatChannel
	receiver   *receiverChannel
	media      *mediaChannel
	auth       *deviceAuthChannel
	discovery  *discoveryChannel
	setup      *setupChannel
	multizone  *multizoneChannel

	connected    bool
	curStatus    *protocol.DeviceStatus
	curMedia     *protocol.MediaStatus
	connectedApp *protocol.App
}

// NewClient creates a client for device and starts its loop. Call Close to
// release it.
func NewClient(device Device, cfg Config) *Client {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		device: device,
		cfg:    cfg,
		ops:    make(chan func()),
		events: make(chan Event, cfg.EventBuffer),
		dials:  make(chan dialResult),
		reads:  make(chan readResult),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		state:  StateIdle,
		reader: protocol.NewFrameReader(),
		corr:   newCorrelator(cfg.firstRequestID),

		connection: newConnectionChannel(),
		heartbeat:  newHeartbeatChannel(cfg.HeartbeatInterval, cfg.HeartbeatTimeout),
		receiver:   newReceiverChannel(),
		media:      newMediaChannel(),
		auth:       newDeviceAuthChannel(),
		discovery:  newDiscoveryChannel(),
		setup:      newSetupChannel(),
		multizone:  newMultizoneChannel(),
	}

	// Attach order matters: CONNECT must precede everything else on the wire
	c.order = []channel{c.connection, c.heartbeat, c.receiver, c.media, c.auth, c.discovery, c.setup, c.multizone}
	c.channels = make(map[string]channel, len(c.order))
	for _, ch := range c.order {
		c.channels[ch.namespace()] = ch
	}

	go c.run()
	return c
}

// Events returns the event stream. It is closed when the client is closed.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Device returns the receiver this client talks to
func (c *Client) Device() Device {
	return c.device
}

// SenderID returns our endpoint name
func (c *Client) SenderID() string {
	return c.cfg.SenderID
}

// Close tears down any connection and stops the loop. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
	return nil
}

func (c *Client) run() {
	defer close(c.done)
	defer close(c.events)
	defer c.cancel()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		c.armTimer(timer)

		select {
		case <-c.quit:
			c.teardown(newError(KindConnection, "client closed", ErrClientClosed), true)
			return
		case op := <-c.ops:
			op()
		case r := <-c.dials:
			c.handleDial(r)
		case r := <-c.reads:
			c.handleRead(r)
		case now := <-timer.C:
			c.heartbeat.tick(now)
		}
	}
}

// armTimer points the loop timer at the heartbeat's next deadline
func (c *Client) armTimer(t *time.Timer) {
	wake := c.heartbeat.nextWake()
	if wake.IsZero() {
		t.Stop()
		return
	}
	t.Reset(time.Until(wake))
}

type result[T any] struct {
	v   T
	err error
}

// call runs fn on the loop and waits for it to report through done. The
// context only bounds the wait; work already handed to the receiver is not
// cancelled.
func call[T any](ctx context.Context, c *Client, fn func(done func(T, error))) (T, error) {
	var zero T
	ch := make(chan result[T], 1)
	op := func() {
		finished := false
		fn(func(v T, err error) {
			if finished {
				return
			}
			finished = true
			ch <- result[T]{v: v, err: err}
		})
	}

	select {
	case c.ops <- op:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.done:
		return zero, newError(KindConnection, "client closed", ErrClientClosed)
	}

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.done:
		select {
		case r := <-ch:
			return r.v, r.err
		default:
		}
		return zero, newError(KindConnection, "client closed", ErrClientClosed)
	}
}

// Connection lifecycle

// Connect opens the connection and waits until the receiver answers the
// first heartbeat. It is a no-op when already open; when a connection
// attempt is in progress it waits for that attempt.
func (c *Client) Connect(ctx context.Context) error {
	_, err := call(ctx, c, func(done func(struct{}, error)) {
		if c.state == StateOpen {
			done(struct{}{}, nil)
			return
		}
		c.waiters = append(c.waiters, func(err error) { done(struct{}{}, err) })
		if c.state != StateConnecting {
			c.startConnect()
		}
	})
	return err
}

// Disconnect closes the connection. Safe to call in any state and more than once.
func (c *Client) Disconnect(ctx context.Context) error {
	_, err := call(ctx, c, func(done func(struct{}, error)) {
		c.teardown(newError(KindConnection, "disconnected", ErrConnectionClosed), true)
		done(struct{}{}, nil)
	})
	if errors.Is(err, ErrClientClosed) {
		return nil
	}
	return err
}

func (c *Client) startConnect() {
	c.gen++
	c.state = StateConnecting
	gen := c.gen
	addr := c.device.Addr()

	logging.Info("Connecting to receiver",
		zap.String("device", c.device.String()),
		zap.String("addr", addr),
		zap.String("sender_id", c.cfg.SenderID),
	)
	c.emit(Event{Kind: EventConnecting})

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.DialTimeout)
	c.dialCancel = cancel
	go func() {
		conn, err := c.cfg.Dialer.Dial(ctx, addr)
		select {
		case c.dials <- dialResult{gen: gen, conn: conn, err: err}:
		case <-c.done:
			if conn != nil {
				_ = conn.Close()
			}
		}
	}()
}

func (c *Client) handleDial(r dialResult) {
	if r.gen != c.gen || c.state != StateConnecting {
		if r.conn != nil {
			_ = r.conn.Close()
		}
		return
	}
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}

	if r.err != nil {
		err := classifyDialError(r.err, c.device.Addr())
		logging.Error("Connection failed",
			zap.String("device", c.device.String()),
			zap.Error(err),
		)
		c.state = StateClosed
		c.emit(Event{Kind: EventConnectionFailed, Err: err})
		c.resolveWaiters(err)
		return
	}

	c.conn = r.conn
	c.reader.Reset()
	logging.LogConnection(c.device.Addr(), "transport_open")

	go c.readLoop(c.gen, r.conn)

	for _, ch := range c.order {
		ch.attach(c)
	}
}

func (c *Client) readLoop(gen uint64, conn io.Reader) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		var data []byte
		if n > 0 {
			data = append([]byte(nil), buf[:n]...)
		}
		select {
		case c.reads <- readResult{gen: gen, data: data, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) handleRead(r readResult) {
	if r.gen != c.gen || c.conn == nil {
		return
	}

	if len(r.data) > 0 {
		c.heartbeat.touch(time.Now())
		c.reader.Feed(r.data)
		for r.gen == c.gen {
			frame, ok := c.reader.Next()
			if !ok {
				break
			}
			c.handleFrame(frame)
		}
		if r.gen != c.gen {
			return
		}
		if err := c.reader.Err(); err != nil {
			c.fail(newError(KindDecode, "framing lost", err))
			return
		}
	}

	if r.err != nil {
		msg := "read failed"
		if errors.Is(r.err, io.EOF) {
			msg = "receiver closed the socket"
		}
		c.fail(newError(KindConnection, msg, r.err))
	}
}

// handleFrame routes one decoded message. Per-channel handling runs before
// correlation so push state is current when a continuation observes it.
func (c *Client) handleFrame(frame []byte) {
	msg, err := protocol.DecodeMessage(frame)
	if err != nil {
		logging.Warn("Dropping malformed frame", zap.Error(err))
		logging.LogRawBytes("Malformed frame", frame)
		return
	}

	ch, ok := c.channels[msg.Namespace]
	if !ok {
		logging.Warn("Dropping message for unknown namespace",
			zap.String("namespace", msg.Namespace),
			zap.String("source", msg.SourceID),
		)
		return
	}

	if msg.PayloadType == protocol.PayloadBinary {
		logging.LogFrame("received", msg.Namespace, msg.SourceID, msg.DestinationID, "", msg.PayloadBinary)
		ch.handleBinary(msg)
		return
	}

	logging.LogFrame("received", msg.Namespace, msg.SourceID, msg.DestinationID, msg.PayloadUTF8, nil)
	payload := []byte(msg.PayloadUTF8)
	hdr, err := protocol.ParseHeader(payload)
	if err != nil {
		logging.Warn("Dropping undecodable payload",
			zap.String("namespace", msg.Namespace),
			zap.Error(err),
		)
		return
	}

	if !c.corr.accept(hdr.RequestID) {
		logging.Debug("Dropping stale response",
			zap.String("type", string(hdr.Type)),
			zap.Int("request_id", hdr.RequestID),
		)
		return
	}

	ch.handleText(msg, hdr, payload)

	if hdr.RequestID > 0 {
		c.corr.resolve(hdr.RequestID, response{header: hdr, payload: payload})
	}
}

func (c *Client) fail(reason error) {
	c.teardown(reason, false)
}

// teardown closes the connection and clears all session state. Explicit
// teardowns say goodbye to the receiver first and only notify observers when
// the connection had been confirmed open.
func (c *Client) teardown(reason error, explicit bool) {
	if c.state == StateIdle || c.state == StateClosed {
		return
	}
	wasConnected := c.connected

	if explicit && c.conn != nil && c.connection.attached() {
		c.connection.closeReceiver()
	}
	for _, ch := range c.order {
		ch.detach()
	}
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}

	c.gen++
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.reader.Reset()
	c.corr.failAll(newError(KindConnection, "connection closed", ErrConnectionClosed))

	c.connected = false
	c.curStatus = nil
	c.curMedia = nil
	c.connectedApp = nil
	c.state = StateClosed

	logging.Info("Connection closed",
		zap.String("device", c.device.String()),
		zap.Bool("was_connected", wasConnected),
		zap.Error(reason),
	)

	switch {
	case wasConnected && explicit:
		c.emit(Event{Kind: EventDisconnected})
	case wasConnected:
		c.emit(Event{Kind: EventDisconnected, Err: reason})
	case !explicit:
		c.emit(Event{Kind: EventConnectionFailed, Err: reason})
	}
	c.resolveWaiters(reason)
}

func (c *Client) resolveWaiters(err error) {
	waiters := c.waiters
	c.waiters = nil
	for _, w := range waiters {
		w(err)
	}
}

// dispatcher

func (c *Client) sendText(namespace, destination string, req protocol.Request, fn continuation) {
	id := 0
	if protocol.NeedsRequestID(req.MessageType()) {
		id = c.corr.nextID()
		req.SetRequestID(id)
	}

	body, err := protocol.MarshalRequest(req)
	if err != nil {
		if fn != nil {
			fn(response{err: newError(KindRequest, "failed to build request", err)})
		}
		return
	}

	if fn != nil && id > 0 {
		c.corr.register(id, fn)
	}

	err = c.write(protocol.NewTextMessage(c.cfg.SenderID, destination, namespace, body))
	if err != nil {
		logging.Warn("Write failed",
			zap.String("namespace", namespace),
			zap.String("type", string(req.MessageType())),
			zap.Error(err),
		)
	}

	switch {
	case fn == nil:
	case id > 0 && err != nil:
		c.corr.reject(id, err)
	case id == 0:
		fn(response{err: err})
	}
}

func (c *Client) sendBinary(namespace, destination string, payload []byte) error {
	return c.write(protocol.NewBinaryMessage(c.cfg.SenderID, destination, namespace, payload))
}

func (c *Client) write(msg *protocol.Message) error {
	if c.conn == nil {
		return newError(KindWrite, "no transport", ErrNotConnected)
	}
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return newError(KindRequest, "failed to encode message", err)
	}
	frame, err := protocol.AppendFrame(make([]byte, 0, protocol.HeaderSize+len(data)), data)
	if err != nil {
		return newError(KindRequest, "failed to frame message", err)
	}

	setWriteDeadline(c.conn, c.cfg.WriteTimeout)
	if _, err := c.conn.Write(frame); err != nil {
		return newError(KindWrite, "failed to write to "+msg.DestinationID, err)
	}

	logging.LogFrame("sent", msg.Namespace, msg.SourceID, msg.DestinationID, msg.PayloadUTF8, msg.PayloadBinary)
	return nil
}

func (c *Client) pong(source string) {
	if c.connected || c.state != StateConnecting {
		return
	}
	if source != protocol.ReceiverID && source != protocol.TransportID {
		logging.Debug("Ignoring PONG from non-platform endpoint", zap.String("source", source))
		return
	}

	c.connected = true
	c.state = StateOpen
	logging.Info("Connected to receiver", zap.String("device", c.device.String()))
	c.emit(Event{Kind: EventConnected})
	c.resolveWaiters(nil)
	c.receiver.requestStatus(nil)
}

func (c *Client) remoteClose(source string) {
	if source == protocol.ReceiverID {
		c.fail(newError(KindConnection, "receiver closed the connection", ErrConnectionClosed))
		return
	}
	if c.connectedApp != nil && source == c.connectedApp.TransportID {
		logging.Info("App session closed by receiver",
			zap.String("app", c.connectedApp.DisplayName),
			zap.String("transport_id", source),
		)
		c.connectedApp = nil
		if c.curStatus != nil {
			c.curStatus = nil
			c.emit(Event{Kind: EventStatusChanged})
		}
		c.clearMedia()
	}
}

func (c *Client) heartbeatTimeout() {
	logging.Warn("Heartbeat timeout",
		zap.String("device", c.device.String()),
		zap.Duration("timeout", c.cfg.HeartbeatTimeout),
	)
	c.fail(newError(KindConnection, "no traffic from receiver", ErrHeartbeatTimeout))
}

func (c *Client) receiverStatus(s *protocol.DeviceStatus) {
	if !c.connected {
		logging.Debug("Ignoring receiver status before connection is open")
		return
	}

	// Keep the joined app in step with the receiver's view of it
	if c.connectedApp != nil {
		if app, ok := s.FindApp(c.connectedApp.SessionID); ok {
			c.connectedApp = &app
		} else {
			c.connectedApp = nil
			c.clearMedia()
		}
	}

	if c.curStatus.Equal(s) {
		return
	}
	c.curStatus = s
	c.emit(Event{Kind: EventStatusChanged, Status: s.Clone()})
}

// mediaStatus keeps only statuses from the joined app's transport, so a late
// push from an app we left cannot bring its media back
func (c *Client) mediaStatus(source string, m *protocol.MediaStatus) {
	if !c.connected {
		return
	}
	if c.connectedApp == nil || source != c.connectedApp.TransportID {
		logging.Debug("Ignoring media status from unjoined transport",
			zap.String("source", source),
		)
		return
	}
	c.curMedia = m
	c.emit(Event{Kind: EventMediaStatusChanged, MediaStatus: m.Clone()})
}

func (c *Client) multizoneStatus(s *protocol.MultizoneStatus) {
	if !c.connected {
		return
	}
	c.emit(Event{Kind: EventMultizoneStatusChanged, Multizone: s})
}

func (c *Client) clearMedia() {
	if c.curMedia == nil {
		return
	}
	c.curMedia = nil
	c.emit(Event{Kind: EventMediaStatusChanged})
}

// joinApp opens a virtual connection to app, leaving any other joined app
func (c *Client) joinApp(app protocol.App) {
	if c.connectedApp != nil && c.connectedApp.SessionID != app.SessionID {
		c.connection.leave(*c.connectedApp)
		c.clearMedia()
	}
	c.connection.connectTo(app)
	c.connectedApp = &app
	logging.Info("Joined app",
		zap.String("app", app.DisplayName),
		zap.String("session_id", app.SessionID),
		zap.String("transport_id", app.TransportID),
	)
}

func (c *Client) requireConnected(kind Kind, op string) error {
	if !c.connected {
		return newError(kind, op, newError(KindConnection, "not connected", ErrNotConnected))
	}
	return nil
}

// Snapshots

// State returns the connection state
func (c *Client) State() State {
	s, err := call(context.Background(), c, func(done func(State, error)) {
		done(c.state, nil)
	})
	if err != nil {
		return StateClosed
	}
	return s
}

// IsConnected reports whether the receiver has answered a heartbeat
func (c *Client) IsConnected() bool {
	ok, _ := call(context.Background(), c, func(done func(bool, error)) {
		done(c.connected, nil)
	})
	return ok
}

// Status returns a copy of the last receiver status, or nil
func (c *Client) Status() *protocol.DeviceStatus {
	s, _ := call(context.Background(), c, func(done func(*protocol.DeviceStatus, error)) {
		done(c.curStatus.Clone(), nil)
	})
	return s
}

// MediaStatus returns a copy of the last media status, or nil
func (c *Client) MediaStatus() *protocol.MediaStatus {
	m, _ := call(context.Background(), c, func(done func(*protocol.MediaStatus, error)) {
		done(c.curMedia.Clone(), nil)
	})
	return m
}

// ConnectedApp returns the joined app, if any
func (c *Client) ConnectedApp() (protocol.App, bool) {
	app, err := call(context.Background(), c, func(done func(*protocol.App, error)) {
		if c.connectedApp == nil {
			done(nil, nil)
			return
		}
		a := *c.connectedApp
		done(&a, nil)
	})
	if err != nil || app == nil {
		return protocol.App{}, false
	}
	return *app, true
}
