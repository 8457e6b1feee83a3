package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// SignatureAlgorithm is the DeviceAuth signature algorithm enum
type SignatureAlgorithm uint64

const (
	SignatureUnspecified    SignatureAlgorithm = 0
	SignatureRSASSAPKCS1v15 SignatureAlgorithm = 1
	SignatureRSASSAPSS      SignatureAlgorithm = 2
)

// HashAlgorithm is the DeviceAuth hash algorithm enum
type HashAlgorithm uint64

const (
	HashSHA1   HashAlgorithm = 0
	HashSHA256 HashAlgorithm = 1
)

// AuthErrorType is the DeviceAuth error enum
type AuthErrorType uint64

const (
	AuthErrorInternal            AuthErrorType = 0
	AuthErrorNoTLS               AuthErrorType = 1
	AuthErrorSignatureAlgUnavail AuthErrorType = 2
)

// String returns the wire enum name
func (e AuthErrorType) String() string {
	switch e {
	case AuthErrorInternal:
		return "INTERNAL_ERROR"
	case AuthErrorNoTLS:
		return "NO_TLS"
	case AuthErrorSignatureAlgUnavail:
		return "SIGNATURE_ALGORITHM_UNAVAILABLE"
	default:
		return fmt.Sprintf("AuthErrorType(%d)", uint64(e))
	}
}

// AuthChallenge is sent by the sender to request a signed response
type AuthChallenge struct {
	SignatureAlgorithm SignatureAlgorithm
	SenderNonce        []byte
	HashAlgorithm      HashAlgorithm
}

// AuthResponse carries the receiver's certificate chain and signature
type AuthResponse struct {
	Signature                []byte
	ClientAuthCertificate    []byte
	IntermediateCertificates [][]byte
	SignatureAlgorithm       SignatureAlgorithm
	SenderNonce              []byte
	HashAlgorithm            HashAlgorithm
	CRL                      []byte
}

// AuthError is reported by the receiver when it cannot answer a challenge
type AuthError struct {
	ErrorType AuthErrorType
}

// DeviceAuthMessage is the binary payload of the device auth namespace.
// Exactly one of the three members is normally set.
type DeviceAuthMessage struct {
	Challenge *AuthChallenge
	Response  *AuthResponse
	Error     *AuthError
}

const (
	authFieldChallenge protowire.Number = 1
	authFieldResponse  protowire.Number = 2
	authFieldError     protowire.Number = 3
)

// EncodeDeviceAuth serializes a DeviceAuthMessage
func EncodeDeviceAuth(m *DeviceAuthMessage) []byte {
	var b []byte
	if m.Challenge != nil {
		var c []byte
		if m.Challenge.SignatureAlgorithm != SignatureUnspecified {
			c = protowire.AppendTag(c, 1, protowire.VarintType)
			c = protowire.AppendVarint(c, uint64(m.Challenge.SignatureAlgorithm))
		}
		if m.Challenge.SenderNonce != nil {
			c = protowire.AppendTag(c, 2, protowire.BytesType)
			c = protowire.AppendBytes(c, m.Challenge.SenderNonce)
		}
		if m.Challenge.HashAlgorithm != HashSHA1 {
			c = protowire.AppendTag(c, 3, protowire.VarintType)
			c = protowire.AppendVarint(c, uint64(m.Challenge.HashAlgorithm))
		}
		b = protowire.AppendTag(b, authFieldChallenge, protowire.BytesType)
		b = protowire.AppendBytes(b, c)
	}
	if m.Response != nil {
		r := m.Response
		var c []byte
		c = protowire.AppendTag(c, 1, protowire.BytesType)
		c = protowire.AppendBytes(c, r.Signature)
		c = protowire.AppendTag(c, 2, protowire.BytesType)
		c = protowire.AppendBytes(c, r.ClientAuthCertificate)
		for _, cert := range r.IntermediateCertificates {
			c = protowire.AppendTag(c, 3, protowire.BytesType)
			c = protowire.AppendBytes(c, cert)
		}
		if r.SignatureAlgorithm != SignatureUnspecified {
			c = protowire.AppendTag(c, 4, protowire.VarintType)
			c = protowire.AppendVarint(c, uint64(r.SignatureAlgorithm))
		}
		if r.SenderNonce != nil {
			c = protowire.AppendTag(c, 5, protowire.BytesType)
			c = protowire.AppendBytes(c, r.SenderNonce)
		}
		if r.HashAlgorithm != HashSHA1 {
			c = protowire.AppendTag(c, 6, protowire.VarintType)
			c = protowire.AppendVarint(c, uint64(r.HashAlgorithm))
		}
		if r.CRL != nil {
			c = protowire.AppendTag(c, 7, protowire.BytesType)
			c = protowire.AppendBytes(c, r.CRL)
		}
		b = protowire.AppendTag(b, authFieldResponse, protowire.BytesType)
		b = protowire.AppendBytes(b, c)
	}
	if m.Error != nil {
		var c []byte
		c = protowire.AppendTag(c, 1, protowire.VarintType)
		c = protowire.AppendVarint(c, uint64(m.Error.ErrorType))
		b = protowire.AppendTag(b, authFieldError, protowire.BytesType)
		b = protowire.AppendBytes(b, c)
	}
	return b
}

// DecodeDeviceAuth parses a DeviceAuthMessage
func DecodeDeviceAuth(b []byte) (*DeviceAuthMessage, error) {
	m := &DeviceAuthMessage{}
	err := walkFields(b, "device_auth", func(num protowire.Number, v field) error {
		switch num {
		case authFieldChallenge:
			c, err := decodeChallenge(v.bytes)
			if err != nil {
				return err
			}
			m.Challenge = c
		case authFieldResponse:
			r, err := decodeResponse(v.bytes)
			if err != nil {
				return err
			}
			m.Response = r
		case authFieldError:
			e := &AuthError{}
			err := walkFields(v.bytes, "auth_error", func(num protowire.Number, v field) error {
				if num == 1 {
					e.ErrorType = AuthErrorType(v.varint)
				}
				return nil
			})
			if err != nil {
				return err
			}
			m.Error = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func decodeChallenge(b []byte) (*AuthChallenge, error) {
	c := &AuthChallenge{}
	err := walkFields(b, "auth_challenge", func(num protowire.Number, v field) error {
		switch num {
		case 1:
			c.SignatureAlgorithm = SignatureAlgorithm(v.varint)
		case 2:
			c.SenderNonce = append([]byte{}, v.bytes...)
		case 3:
			c.HashAlgorithm = HashAlgorithm(v.varint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func decodeResponse(b []byte) (*AuthResponse, error) {
	r := &AuthResponse{}
	var seen uint8
	err := walkFields(b, "auth_response", func(num protowire.Number, v field) error {
		switch num {
		case 1:
			r.Signature = append([]byte{}, v.bytes...)
		case 2:
			r.ClientAuthCertificate = append([]byte{}, v.bytes...)
		case 3:
			r.IntermediateCertificates = append(r.IntermediateCertificates, append([]byte{}, v.bytes...))
		case 4:
			r.SignatureAlgorithm = SignatureAlgorithm(v.varint)
		case 5:
			r.SenderNonce = append([]byte{}, v.bytes...)
		case 6:
			r.HashAlgorithm = HashAlgorithm(v.varint)
		case 7:
			r.CRL = append([]byte{}, v.bytes...)
		}
		if num == 1 || num == 2 {
			seen |= 1 << num
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if seen&(1<<1) == 0 {
		return nil, &DecodeError{Field: "auth_response.signature", Err: errMissingField}
	}
	if seen&(1<<2) == 0 {
		return nil, &DecodeError{Field: "auth_response.client_auth_certificate", Err: errMissingField}
	}
	return r, nil
}

// field holds one decoded value; only the member matching the wire type is set
type field struct {
	varint uint64
	bytes  []byte
}

// walkFields iterates the top-level fields of a message, calling fn for
// varint and length-delimited values and skipping everything else.
func walkFields(b []byte, msg string, fn func(protowire.Number, field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return &DecodeError{Field: msg, Err: protowire.ParseError(n)}
		}
		b = b[n:]

		var v field
		switch typ {
		case protowire.VarintType:
			v.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			v.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return &DecodeError{Field: msg, Err: protowire.ParseError(n)}
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return &DecodeError{Field: msg, Err: protowire.ParseError(n)}
		}
		b = b[n:]

		if err := fn(num, v); err != nil {
			return err
		}
	}
	return nil
}

// ErrAuthRejected is returned when the receiver answers a challenge with an error
var ErrAuthRejected = errors.New("device auth rejected")
