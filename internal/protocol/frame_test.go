package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"
)

func buildStream(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var out []byte
	for _, p := range payloads {
		var err error
		out, err = AppendFrame(out, p)
		if err != nil {
			t.Fatalf("AppendFrame() error = %v", err)
		}
	}
	return out
}

func drain(r *FrameReader) [][]byte {
	var frames [][]byte
	for {
		f, ok := r.Next()
		if !ok {
			return frames
		}
		frames = append(frames, f)
	}
}

func TestFrameReader_Next(t *testing.T) {
	tests := []struct {
		name   string
		feeds  [][]byte
		want   [][]byte
		buffer int
	}{
		{
			name:  "empty buffer",
			feeds: nil,
			want:  nil,
		},
		{
			name:   "partial header",
			feeds:  [][]byte{{0x00, 0x00}},
			want:   nil,
			buffer: 2,
		},
		{
			name:   "header without payload is not consumed",
			feeds:  [][]byte{{0x00, 0x00, 0x00, 0x05, 'P', 'I'}},
			want:   nil,
			buffer: 6,
		},
		{
			name:  "single frame",
			feeds: [][]byte{{0x00, 0x00, 0x00, 0x05, 'h', 'e', 'l', 'l', 'o'}},
			want:  [][]byte{[]byte("hello")},
		},
		{
			name:  "zero length frame",
			feeds: [][]byte{{0x00, 0x00, 0x00, 0x00}},
			want:  [][]byte{{}},
		},
		{
			name: "two frames in one feed",
			feeds: [][]byte{{
				0x00, 0x00, 0x00, 0x01, 'a',
				0x00, 0x00, 0x00, 0x02, 'b', 'c',
			}},
			want: [][]byte{[]byte("a"), []byte("bc")},
		},
		{
			name: "frame completed by second feed",
			feeds: [][]byte{
				{0x00, 0x00, 0x00, 0x03, 'x'},
				{'y', 'z', 0x00},
			},
			want:   [][]byte{[]byte("xyz")},
			buffer: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewFrameReader()
			var got [][]byte
			for _, f := range tt.feeds {
				r.Feed(f)
				got = append(got, drain(r)...)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("got %d frames, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if !bytes.Equal(got[i], tt.want[i]) {
					t.Errorf("frame %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
			if r.Buffered() != tt.buffer {
				t.Errorf("Buffered() = %d, want %d", r.Buffered(), tt.buffer)
			}
		})
	}
}

func TestFrameReader_SplitInvariant(t *testing.T) {
	payloads := [][]byte{
		[]byte(`{"type":"PING"}`),
		{},
		bytes.Repeat([]byte{0xAB}, 300),
		[]byte(`{"type":"RECEIVER_STATUS","requestId":7}`),
		bytes.Repeat([]byte("z"), 9000),
		{0x01},
	}
	stream := buildStream(t, payloads...)

	whole := NewFrameReader()
	whole.Feed(stream)
	want := drain(whole)
	if len(want) != len(payloads) {
		t.Fatalf("single feed produced %d frames, want %d", len(want), len(payloads))
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		r := NewFrameReader()
		var got [][]byte
		rest := stream
		for len(rest) > 0 {
			n := 1 + rng.Intn(64)
			if trial%5 == 0 {
				n = 1 + rng.Intn(10000)
			}
			if n > len(rest) {
				n = len(rest)
			}
			r.Feed(rest[:n])
			rest = rest[n:]
			got = append(got, drain(r)...)
		}

		if len(got) != len(want) {
			t.Fatalf("trial %d: got %d frames, want %d", trial, len(got), len(want))
		}
		for i := range got {
			if !bytes.Equal(got[i], want[i]) {
				t.Fatalf("trial %d: frame %d differs", trial, i)
			}
		}
		if r.Buffered() != 0 {
			t.Errorf("trial %d: Buffered() = %d, want 0", trial, r.Buffered())
		}
	}
}

func TestFrameReader_CompactionKeepsUnreadBytes(t *testing.T) {
	big := bytes.Repeat([]byte("q"), compactThreshold)
	stream := buildStream(t, big, []byte("tail"))

	r := NewFrameReader()
	// Whole first frame plus half of the second header
	r.Feed(stream[:HeaderSize+len(big)+2])
	f, ok := r.Next()
	if !ok || len(f) != len(big) {
		t.Fatalf("first frame not extracted")
	}
	if r.Buffered() != 2 {
		t.Fatalf("Buffered() = %d, want 2", r.Buffered())
	}

	r.Feed(stream[HeaderSize+len(big)+2:])
	f, ok = r.Next()
	if !ok {
		t.Fatal("second frame not extracted after compaction")
	}
	if string(f) != "tail" {
		t.Errorf("second frame = %q, want %q", f, "tail")
	}
}

func TestFrameReader_FrameTooLarge(t *testing.T) {
	r := NewFrameReader()
	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, MaxFrameSize+1)
	r.Feed(header)

	if _, ok := r.Next(); ok {
		t.Fatal("Next() returned a frame for an oversized header")
	}
	if !errors.Is(r.Err(), ErrFrameTooLarge) {
		t.Errorf("Err() = %v, want ErrFrameTooLarge", r.Err())
	}

	// Sticky until Reset
	r.Feed(buildStream(t, []byte("ok")))
	if _, ok := r.Next(); ok {
		t.Error("Next() should stay stopped after an oversized header")
	}

	r.Reset()
	r.Feed(buildStream(t, []byte("ok")))
	if f, ok := r.Next(); !ok || string(f) != "ok" {
		t.Errorf("after Reset Next() = %q, %v", f, ok)
	}
}

func TestAppendFrame(t *testing.T) {
	got, err := AppendFrame([]byte{0xFF}, []byte("abc"))
	if err != nil {
		t.Fatalf("AppendFrame() error = %v", err)
	}
	want := []byte{0xFF, 0x00, 0x00, 0x00, 0x03, 'a', 'b', 'c'}
	if !bytes.Equal(got, want) {
		t.Errorf("AppendFrame() = %x, want %x", got, want)
	}

	if _, err := AppendFrame(nil, make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("AppendFrame(oversized) error = %v, want ErrFrameTooLarge", err)
	}
}
