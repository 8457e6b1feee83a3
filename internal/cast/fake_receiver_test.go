package cast

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/castcore/internal/protocol"
)

const testWait = 2 * time.Second

// fakeReceiver is the far end of a net.Pipe. Everything the client writes
// is decoded onto msgs; tests script replies with send.
type fakeReceiver struct {
	t    *testing.T
	conn net.Conn
	msgs chan *protocol.Message
}

func (f *fakeReceiver) readLoop() {
	defer close(f.msgs)
	reader := protocol.NewFrameReader()
	buf := make([]byte, 4096)
	for {
		n, err := f.conn.Read(buf)
		if n > 0 {
			reader.Feed(buf[:n])
			for {
				frame, ok := reader.Next()
				if !ok {
					break
				}
				msg, derr := protocol.DecodeMessage(frame)
				if derr != nil {
					f.t.Errorf("client sent undecodable frame: %v", derr)
					continue
				}
				f.msgs <- msg
			}
		}
		if err != nil {
			return
		}
	}
}

// expect returns the next message with the given namespace and type,
// skipping anything else (heartbeat PINGs in particular)
func (f *fakeReceiver) expect(namespace string, typ protocol.MessageType) (*protocol.Message, protocol.InboundHeader) {
	f.t.Helper()
	timeout := time.After(testWait)
	for {
		select {
		case msg, ok := <-f.msgs:
			if !ok {
				f.t.Fatalf("connection closed while waiting for %s", typ)
			}
			if msg.Namespace != namespace {
				continue
			}
			hdr, err := protocol.ParseHeader([]byte(msg.PayloadUTF8))
			if err != nil {
				f.t.Fatalf("client sent bad payload %q: %v", msg.PayloadUTF8, err)
			}
			if hdr.Type == typ {
				return msg, hdr
			}
		case <-timeout:
			f.t.Fatalf("timed out waiting for %s on %s", typ, namespace)
		}
	}
}

// send writes a text message from source
func (f *fakeReceiver) send(source, namespace, payload string) {
	f.t.Helper()
	msg := protocol.NewTextMessage(source, "*", namespace, []byte(payload))
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		f.t.Fatalf("EncodeMessage: %v", err)
	}
	f.sendFrame(data)
}

// sendFrame writes data behind a length prefix without encoding it
func (f *fakeReceiver) sendFrame(data []byte) {
	f.t.Helper()
	frame, err := protocol.AppendFrame(nil, data)
	if err != nil {
		f.t.Fatalf("AppendFrame: %v", err)
	}
	_ = f.conn.SetWriteDeadline(time.Now().Add(testWait))
	if _, err := f.conn.Write(frame); err != nil {
		f.t.Fatalf("write to client: %v", err)
	}
}

// failingConn passes reads through and fails writes while failWrites is set
type failingConn struct {
	net.Conn
	failWrites atomic.Bool
}

func (c *failingConn) Write(b []byte) (int, error) {
	if c.failWrites.Load() {
		return 0, errors.New("broken pipe")
	}
	return c.Conn.Write(b)
}

func newTestClient(t *testing.T, cfg Config) (*Client, *fakeReceiver) {
	t.Helper()
	clientSide, receiverSide := net.Pipe()
	fr := &fakeReceiver{t: t, conn: receiverSide, msgs: make(chan *protocol.Message, 128)}
	go fr.readLoop()

	cfg.Dialer = DialerFunc(func(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
		return clientSide, nil
	})
	if cfg.firstRequestID == 0 {
		cfg.firstRequestID = 1
	}
	c := NewClient(Device{Name: "Test", Host: "127.0.0.1"}, cfg)
	t.Cleanup(func() {
		_ = c.Close()
		_ = receiverSide.Close()
	})
	return c, fr
}

// newFailingTestClient is newTestClient over a conn whose writes can be
// switched off
func newFailingTestClient(t *testing.T) (*Client, *fakeReceiver, *failingConn) {
	t.Helper()
	clientSide, receiverSide := net.Pipe()
	conn := &failingConn{Conn: clientSide}
	fr := &fakeReceiver{t: t, conn: receiverSide, msgs: make(chan *protocol.Message, 128)}
	go fr.readLoop()

	c := NewClient(Device{Name: "Test", Host: "127.0.0.1"}, Config{
		Dialer: DialerFunc(func(ctx context.Context, addr string) (io.ReadWriteCloser, error) {
			return conn, nil
		}),
		firstRequestID: 1,
	})
	t.Cleanup(func() {
		_ = c.Close()
		_ = receiverSide.Close()
	})
	return c, fr, conn
}

// connect drives the handshake until the client reports open
func connect(t *testing.T, c *Client, fr *fakeReceiver) {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- c.Connect(context.Background()) }()

	msg, _ := fr.expect(protocol.NamespaceConnection, protocol.TypeConnect)
	if msg.DestinationID != protocol.ReceiverID {
		t.Fatalf("CONNECT sent to %q, want %q", msg.DestinationID, protocol.ReceiverID)
	}
	fr.expect(protocol.NamespaceHeartbeat, protocol.TypePing)
	fr.send(protocol.TransportID, protocol.NamespaceHeartbeat, `{"type":"PONG"}`)

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
	case <-time.After(testWait):
		t.Fatal("Connect() did not return")
	}
}

// waitEvent returns the next event of kind, skipping others
func waitEvent(t *testing.T, c *Client, kind EventKind) Event {
	t.Helper()
	timeout := time.After(testWait)
	for {
		select {
		case e, ok := <-c.Events():
			if !ok {
				t.Fatalf("events closed while waiting for %s", kind)
			}
			if e.Kind == kind {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}
