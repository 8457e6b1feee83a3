// Package protocol implements the CASTV2 wire format.
//
// This package handles framing, envelope encoding, and JSON payload models
// for the protocol spoken by cast receivers over TLS on port 8009. It has no
// I/O of its own; the cast package drives it from its connection loop.
//
// # Wire Format
//
// Every message on the socket is a frame:
//   - Length: 4 bytes (big-endian, payload only)
//   - Payload: a protobuf CastMessage envelope
//
// The envelope carries:
//   - protocol_version (1): always CASTV2_1_0
//   - source_id (2) and destination_id (3): endpoint names such as
//     "sender-0", "receiver-0" or an app's transport id
//   - namespace (4): selects the channel that handles the message
//   - payload_type (5): STRING or BINARY
//   - payload_utf8 (6) or payload_binary (7)
//
// String payloads are JSON documents with a "type" key and, for correlated
// requests, a "requestId" key. The setup namespace spells the id "request_id".
// Binary payloads are only used by the device auth namespace.
//
// # Usage Example - Reading
//
//	reader := protocol.NewFrameReader()
//	reader.Feed(buf[:n])
//	for {
//	    frame, ok := reader.Next()
//	    if !ok {
//	        break
//	    }
//	    msg, err := protocol.DecodeMessage(frame)
//	    if err != nil {
//	        continue // malformed frames are dropped
//	    }
//	    hdr, _ := protocol.ParseHeader([]byte(msg.PayloadUTF8))
//	    fmt.Println(msg.Namespace, hdr.Type)
//	}
//
// # Usage Example - Writing
//
//	req := protocol.NewLaunch(protocol.AppDefaultMediaPlayer)
//	req.SetRequestID(42)
//	body, _ := protocol.MarshalRequest(req)
//	msg := protocol.NewTextMessage("sender-0", protocol.ReceiverID, protocol.NamespaceReceiver, body)
//	data, _ := protocol.EncodeMessage(msg)
//	frame, _ := protocol.AppendFrame(nil, data)
//
// # Thread Safety
//
// FrameReader guards its buffer with a mutex. Everything else is a pure
// function over its arguments.
package protocol
