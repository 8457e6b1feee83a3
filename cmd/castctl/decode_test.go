package main

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/muurk/castcore/internal/protocol"
)

func encodeFrame(t *testing.T, m *protocol.Message) []byte {
	t.Helper()
	payload, err := protocol.EncodeMessage(m)
	if err != nil {
		t.Fatalf("EncodeMessage() error = %v", err)
	}
	frame, err := protocol.AppendFrame(nil, payload)
	if err != nil {
		t.Fatalf("AppendFrame() error = %v", err)
	}
	return frame
}

func TestParseHexDump(t *testing.T) {
	got, err := parseHexDump("0x00 0x01\n0a:ff, 10")
	if err != nil {
		t.Fatalf("parseHexDump() error = %v", err)
	}
	if !bytes.Equal(got, []byte{0x00, 0x01, 0x0a, 0xff, 0x10}) {
		t.Errorf("parseHexDump() = %x", got)
	}

	if _, err := parseHexDump("zz"); err == nil {
		t.Error("parseHexDump(zz) should fail")
	}
}

func TestDecodeFrames(t *testing.T) {
	var data []byte
	data = append(data, encodeFrame(t, protocol.NewTextMessage("sender-0", protocol.TransportID,
		protocol.NamespaceHeartbeat, []byte(`{"type":"PING"}`)))...)
	challenge := protocol.EncodeDeviceAuth(&protocol.DeviceAuthMessage{
		Challenge: &protocol.AuthChallenge{SenderNonce: make([]byte, 16)},
	})
	data = append(data, encodeFrame(t, protocol.NewBinaryMessage("sender-0", protocol.ReceiverID,
		protocol.NamespaceDeviceAuth, challenge))...)
	data = append(data, 0x00, 0x00)

	// Round trip through the textual form
	parsed, err := parseHexDump(hex.EncodeToString(data))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := decodeFrames(&out, parsed); err != nil {
		t.Fatalf("decodeFrames() error = %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"#1: ",
		`{"type":"PING"}`,
		"#2: ",
		"auth challenge: nonce 16 bytes",
		"2 trailing byte(s)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}
