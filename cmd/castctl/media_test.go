package main

import (
	"testing"

	"github.com/muurk/castcore/internal/protocol"
)

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "90", want: 90},
		{in: "12.5", want: 12.5},
		{in: "1:30", want: 90},
		{in: "1:02:03", want: 3723},
		{in: "1m30s", want: 90},
		{in: "-4", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
		{in: "a:10", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePosition(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePosition(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parsePosition(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "0.4", want: 0.4},
		{in: "1", want: 1},
		{in: "40", want: 0.4},
		{in: "40%", want: 0.4},
		{in: "0", want: 0},
		{in: "150", wantErr: true},
		{in: "-0.1", wantErr: true},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseVolume(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVolume(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseVolume(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGuessContentType(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "http://host/stream.m3u8", want: "application/x-mpegURL"},
		{url: "http://host/a.mpd?token=1", want: "application/dash+xml"},
		{url: "http://host/movie.MKV", want: "video/x-matroska"},
		{url: "http://host/clip.mp4", want: "video/mp4"},
		{url: "http://host/noext", want: "video/mp4"},
	}

	for _, tt := range tests {
		if got := guessContentType(tt.url); got != tt.want {
			t.Errorf("guessContentType(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestBuildMedia(t *testing.T) {
	defer func() {
		loadTitle, loadLive, loadStart, loadPaused = "", false, "", false
	}()

	loadLive = true
	loadStart = "1:00"
	loadPaused = true

	m, err := buildMedia("http://host/videos/big%20buck.mp4?x=1")
	if err != nil {
		t.Fatalf("buildMedia() error = %v", err)
	}
	if m.Title != "big%20buck.mp4" {
		t.Errorf("Title = %q", m.Title)
	}
	if m.StreamType != protocol.StreamLive {
		t.Errorf("StreamType = %v, want LIVE", m.StreamType)
	}
	if m.CurrentTime != 60 || m.Autoplay {
		t.Errorf("CurrentTime = %v, Autoplay = %v", m.CurrentTime, m.Autoplay)
	}

	loadStart = "never"
	if _, err := buildMedia("http://host/a.mp4"); err == nil {
		t.Error("buildMedia() with bad start should fail")
	}
}
