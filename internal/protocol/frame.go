package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

const (
	// HeaderSize is the size of the big-endian length prefix
	HeaderSize = 4

	// MaxFrameSize is the largest frame payload the receiver will send or accept
	MaxFrameSize = 64 * 1024

	// compactThreshold is the buffer high-water mark past which consumed bytes are dropped
	compactThreshold = 8192
)

// ErrFrameTooLarge is reported when a length prefix exceeds MaxFrameSize
var ErrFrameTooLarge = errors.New("protocol: frame exceeds maximum size")

// FrameReader reassembles length-prefixed frames from a byte stream.
//
// Feed appends whatever the transport delivered; Next pulls one complete
// frame at a time and leaves partial data buffered for the next Feed.
type FrameReader struct {
	mu     sync.Mutex
	buf    []byte
	pos    int
	maxLen int
	err    error
}

// NewFrameReader creates a reader enforcing MaxFrameSize
func NewFrameReader() *FrameReader {
	return &FrameReader{
		buf:    make([]byte, 0, compactThreshold),
		maxLen: MaxFrameSize,
	}
}

// Feed appends transport bytes to the buffer
func (r *FrameReader) Feed(data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	r.buf = append(r.buf, data...)
}

// Next extracts the next complete frame payload. It returns false when the
// buffer does not yet hold a whole frame, or after an oversized header was
// seen (see Err).
func (r *FrameReader) Next() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, false
	}

	if len(r.buf)-r.pos < HeaderSize {
		return nil, false
	}

	length := int(binary.BigEndian.Uint32(r.buf[r.pos : r.pos+HeaderSize]))
	if length > r.maxLen {
		r.err = fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, length, r.maxLen)
		r.buf = r.buf[:0]
		r.pos = 0
		return nil, false
	}

	end := r.pos + HeaderSize + length
	if len(r.buf) < end {
		// Header stays unread until the payload arrives
		return nil, false
	}

	frame := make([]byte, length)
	copy(frame, r.buf[r.pos+HeaderSize:end])
	r.pos = end

	r.compact()
	return frame, true
}

// Err returns the sticky error that stopped the reader, if any
func (r *FrameReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Buffered returns the number of unread bytes
func (r *FrameReader) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) - r.pos
}

// Reset drops all buffered data and clears the sticky error
func (r *FrameReader) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = r.buf[:0]
	r.pos = 0
	r.err = nil
}

// compact must be called with mu held
func (r *FrameReader) compact() {
	if r.pos == len(r.buf) {
		r.buf = r.buf[:0]
		r.pos = 0
		return
	}
	if len(r.buf) < compactThreshold {
		return
	}
	n := copy(r.buf, r.buf[r.pos:])
	r.buf = r.buf[:n]
	r.pos = 0
}

// AppendFrame appends the length prefix and payload to dst
func AppendFrame(dst []byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameSize {
		return dst, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, len(payload), MaxFrameSize)
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}
