package cast

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Kind represents the category of error that occurred
type Kind int

const (
	// KindConnection indicates the transport could not be opened or failed mid-stream
	KindConnection Kind = iota
	// KindWrite indicates a frame could not be written
	KindWrite
	// KindSession indicates no app session is available for the operation
	KindSession
	// KindRequest indicates a request could not be built or dispatched
	KindRequest
	// KindLaunch indicates the receiver did not launch the app
	KindLaunch
	// KindLoad indicates media load or control failed
	KindLoad
	// KindDecode indicates a malformed frame, envelope or payload
	KindDecode
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "Connection Error"
	case KindWrite:
		return "Write Error"
	case KindSession:
		return "Session Error"
	case KindRequest:
		return "Request Error"
	case KindLaunch:
		return "Launch Error"
	case KindLoad:
		return "Load Error"
	case KindDecode:
		return "Decode Error"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Error is returned by every Client operation
type Error struct {
	Kind    Kind   // Category of error
	Message string // Human-readable error message
	Err     error  // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Sentinel causes wrapped by Error
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrNotConnected     = errors.New("not connected")
	ErrHeartbeatTimeout = errors.New("heartbeat timeout")
	ErrClientClosed     = errors.New("client closed")
	ErrNoApps           = errors.New("no apps running")
)

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether any Error in err's chain has the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// wrapOp re-kinds an inner failure for a public operation while keeping the
// chain intact for errors.Is. Errors already of the wanted kind pass through.
func wrapOp(kind Kind, message string, err error) error {
	if err == nil {
		return nil
	}
	if IsKind(err, kind) {
		return err
	}
	return newError(kind, message, err)
}

// classifyDialError names the common ways a receiver can be unreachable
func classifyDialError(err error, addr string) *Error {
	if os.IsTimeout(err) {
		return newError(KindConnection, fmt.Sprintf("timed out connecting to %s", addr), err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return newError(KindConnection, fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name), err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return newError(KindConnection, fmt.Sprintf("%s refused connection", addr), err)
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return newError(KindConnection, "host unreachable", err)
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return newError(KindConnection, "network unreachable", err)
		}
	}

	return newError(KindConnection, fmt.Sprintf("failed to connect to %s", addr), err)
}
