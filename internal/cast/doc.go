// Package cast implements a sender for CASTV2 receivers.
//
// A Client owns one TLS connection to a receiver and multiplexes the
// protocol namespaces over it: virtual connections, heartbeat, receiver
// control, media control, device authentication, device info and
// multizone status.
//
// # Connection Lifecycle
//
// The client moves through Idle, Connecting, Open and Closed:
//  1. Connect dials the receiver and sends CONNECT, PING and GET_STATUS
//  2. The first PONG from the platform marks the connection open
//  3. A PING is sent every HeartbeatInterval; no inbound traffic for
//     HeartbeatTimeout tears the connection down
//  4. Disconnect, a CLOSE from the receiver, or a socket error closes it
//
// Every outstanding request fails with ErrConnectionClosed on teardown.
// A closed client can Connect again.
//
// # Usage Example
//
//	client := cast.NewClient(cast.Device{Host: "192.168.1.20"}, cast.DefaultConfig())
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	app, err := client.Launch(ctx, protocol.AppDefaultMediaPlayer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, err = client.Load(ctx, protocol.Media{URL: "http://example.com/a.mp4"}, &app)
//
// # Events
//
// Connection changes and pushed status updates are delivered on Events.
// The channel is buffered; when the consumer falls behind, events are
// dropped with a warning rather than stalling the connection.
//
// # Concurrency
//
// All methods are safe for concurrent use. Internally a single goroutine
// owns the connection state, so replies, pushes and timers are processed
// one at a time in arrival order.
package cast
