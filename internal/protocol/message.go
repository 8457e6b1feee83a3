package protocol

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// ProtocolVersion is the CastMessage protocol_version enum
type ProtocolVersion uint64

// CASTV2_1_0 is the only protocol version receivers speak
const CASTV2_1_0 ProtocolVersion = 0

// PayloadType is the CastMessage payload_type enum
type PayloadType uint64

const (
	PayloadString PayloadType = 0
	PayloadBinary PayloadType = 1
)

// String returns the wire enum name
func (p PayloadType) String() string {
	switch p {
	case PayloadString:
		return "STRING"
	case PayloadBinary:
		return "BINARY"
	default:
		return fmt.Sprintf("PayloadType(%d)", uint64(p))
	}
}

// CastMessage field numbers
const (
	fieldProtocolVersion protowire.Number = 1
	fieldSourceID        protowire.Number = 2
	fieldDestinationID   protowire.Number = 3
	fieldNamespace       protowire.Number = 4
	fieldPayloadType     protowire.Number = 5
	fieldPayloadUTF8     protowire.Number = 6
	fieldPayloadBinary   protowire.Number = 7
)

// Message is the decoded wire envelope
type Message struct {
	ProtocolVersion ProtocolVersion
	SourceID        string
	DestinationID   string
	Namespace       string
	PayloadType     PayloadType
	PayloadUTF8     string
	PayloadBinary   []byte
}

// NewTextMessage builds a STRING envelope around a JSON document
func NewTextMessage(source, destination, namespace string, payload []byte) *Message {
	return &Message{
		ProtocolVersion: CASTV2_1_0,
		SourceID:        source,
		DestinationID:   destination,
		Namespace:       namespace,
		PayloadType:     PayloadString,
		PayloadUTF8:     string(payload),
	}
}

// NewBinaryMessage builds a BINARY envelope
func NewBinaryMessage(source, destination, namespace string, payload []byte) *Message {
	return &Message{
		ProtocolVersion: CASTV2_1_0,
		SourceID:        source,
		DestinationID:   destination,
		Namespace:       namespace,
		PayloadType:     PayloadBinary,
		PayloadBinary:   payload,
	}
}

// String returns a debug representation of the envelope
func (m *Message) String() string {
	size := len(m.PayloadUTF8)
	if m.PayloadType == PayloadBinary {
		size = len(m.PayloadBinary)
	}
	return fmt.Sprintf("Message{src=%s, dst=%s, ns=%s, type=%s, len=%d}",
		m.SourceID, m.DestinationID, m.Namespace, m.PayloadType, size)
}

// DecodeError reports a malformed envelope or payload
type DecodeError struct {
	Field string
	Err   error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("decode: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error
func (e *DecodeError) Unwrap() error {
	return e.Err
}

var (
	errMissingField = errors.New("required field missing")
	errWireType     = errors.New("unexpected wire type")
	errInvalidUTF8  = errors.New("invalid UTF-8")
)

// EncodeMessage serializes m to CastMessage wire bytes (without length prefix).
// Field order follows the field numbers; payload_utf8 is written for STRING
// payloads and payload_binary for BINARY ones.
func EncodeMessage(m *Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("encode: nil message")
	}
	if m.PayloadType != PayloadString && m.PayloadType != PayloadBinary {
		return nil, fmt.Errorf("encode: unknown payload type %d", uint64(m.PayloadType))
	}

	size := 16 + len(m.SourceID) + len(m.DestinationID) + len(m.Namespace) +
		len(m.PayloadUTF8) + len(m.PayloadBinary)
	b := make([]byte, 0, size)

	b = protowire.AppendTag(b, fieldProtocolVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.ProtocolVersion))
	b = protowire.AppendTag(b, fieldSourceID, protowire.BytesType)
	b = protowire.AppendString(b, m.SourceID)
	b = protowire.AppendTag(b, fieldDestinationID, protowire.BytesType)
	b = protowire.AppendString(b, m.DestinationID)
	b = protowire.AppendTag(b, fieldNamespace, protowire.BytesType)
	b = protowire.AppendString(b, m.Namespace)
	b = protowire.AppendTag(b, fieldPayloadType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.PayloadType))

	switch m.PayloadType {
	case PayloadString:
		b = protowire.AppendTag(b, fieldPayloadUTF8, protowire.BytesType)
		b = protowire.AppendString(b, m.PayloadUTF8)
	case PayloadBinary:
		b = protowire.AppendTag(b, fieldPayloadBinary, protowire.BytesType)
		b = protowire.AppendBytes(b, m.PayloadBinary)
	}

	return b, nil
}

// DecodeMessage parses CastMessage wire bytes. All five required fields must
// be present; unknown fields are skipped. An empty binary payload decodes as
// nil.
func DecodeMessage(b []byte) (*Message, error) {
	m := &Message{}
	var seen uint8

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, &DecodeError{Field: "tag", Err: protowire.ParseError(n)}
		}
		b = b[n:]

		switch num {
		case fieldProtocolVersion, fieldPayloadType:
			if typ != protowire.VarintType {
				return nil, &DecodeError{Field: fieldName(num), Err: errWireType}
			}
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, &DecodeError{Field: fieldName(num), Err: protowire.ParseError(n)}
			}
			b = b[n:]
			if num == fieldProtocolVersion {
				m.ProtocolVersion = ProtocolVersion(v)
			} else {
				m.PayloadType = PayloadType(v)
			}
			seen |= 1 << num

		case fieldSourceID, fieldDestinationID, fieldNamespace, fieldPayloadUTF8:
			if typ != protowire.BytesType {
				return nil, &DecodeError{Field: fieldName(num), Err: errWireType}
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, &DecodeError{Field: fieldName(num), Err: protowire.ParseError(n)}
			}
			b = b[n:]
			if !utf8.Valid(v) {
				return nil, &DecodeError{Field: fieldName(num), Err: errInvalidUTF8}
			}
			switch num {
			case fieldSourceID:
				m.SourceID = string(v)
			case fieldDestinationID:
				m.DestinationID = string(v)
			case fieldNamespace:
				m.Namespace = string(v)
			case fieldPayloadUTF8:
				m.PayloadUTF8 = string(v)
			}
			seen |= 1 << num

		case fieldPayloadBinary:
			if typ != protowire.BytesType {
				return nil, &DecodeError{Field: fieldName(num), Err: errWireType}
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, &DecodeError{Field: fieldName(num), Err: protowire.ParseError(n)}
			}
			b = b[n:]
			if len(v) > 0 {
				m.PayloadBinary = append([]byte(nil), v...)
			}

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, &DecodeError{Field: "unknown", Err: protowire.ParseError(n)}
			}
			b = b[n:]
		}
	}

	for _, num := range []protowire.Number{fieldProtocolVersion, fieldSourceID, fieldDestinationID, fieldNamespace, fieldPayloadType} {
		if seen&(1<<num) == 0 {
			return nil, &DecodeError{Field: fieldName(num), Err: errMissingField}
		}
	}

	return m, nil
}

func fieldName(num protowire.Number) string {
	switch num {
	case fieldProtocolVersion:
		return "protocol_version"
	case fieldSourceID:
		return "source_id"
	case fieldDestinationID:
		return "destination_id"
	case fieldNamespace:
		return "namespace"
	case fieldPayloadType:
		return "payload_type"
	case fieldPayloadUTF8:
		return "payload_utf8"
	case fieldPayloadBinary:
		return "payload_binary"
	default:
		return fmt.Sprintf("field_%d", num)
	}
}
