package protocol

import (
	"encoding/json"
	"testing"
)

func marshalMap(t *testing.T, r Request) map[string]any {
	t.Helper()
	data, err := MarshalRequest(r)
	if err != nil {
		t.Fatalf("MarshalRequest() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return m
}

func TestMarshalRequest_RequestID(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		id     int
		key    string
		absent string
	}{
		{name: "ping carries no id", req: NewPing(), id: 0, absent: KeyRequestID},
		{name: "receiver request", req: NewGetStatus(), id: 17, key: KeyRequestID, absent: KeySetupRequestID},
		{name: "launch", req: NewLaunch(AppBackdrop), id: 18, key: KeyRequestID},
		{name: "setup uses snake case", req: NewGetDeviceConfig(nil), id: 19, key: KeySetupRequestID, absent: KeyRequestID},
		{name: "app device id", req: NewGetAppDeviceID(AppYouTube), id: 20, key: KeySetupRequestID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.id != 0 {
				tt.req.SetRequestID(tt.id)
			}
			m := marshalMap(t, tt.req)
			if m[KeyType] != string(tt.req.MessageType()) {
				t.Errorf("type = %v, want %s", m[KeyType], tt.req.MessageType())
			}
			if tt.key != "" && m[tt.key] != float64(tt.id) {
				t.Errorf("%s = %v, want %d", tt.key, m[tt.key], tt.id)
			}
			if tt.absent != "" {
				if _, ok := m[tt.absent]; ok {
					t.Errorf("%s should be absent in %v", tt.absent, m)
				}
			}
		})
	}
}

func TestNewSetVolume_OnlyChangedField(t *testing.T) {
	level := marshalMap(t, NewSetVolume(0.25))[KeyVolume].(map[string]any)
	if level[KeyLevel] != 0.25 {
		t.Errorf("level = %v", level[KeyLevel])
	}
	if _, ok := level[KeyMuted]; ok {
		t.Error("muted should be absent from a level change")
	}

	muted := marshalMap(t, NewSetMuted(false))[KeyVolume].(map[string]any)
	if muted[KeyMuted] != false {
		t.Errorf("muted = %v", muted[KeyMuted])
	}
	if _, ok := muted[KeyLevel]; ok {
		t.Error("level should be absent from a mute change")
	}

	clamped := marshalMap(t, NewSetVolume(3))[KeyVolume].(map[string]any)
	if clamped[KeyLevel] != 1.0 {
		t.Errorf("clamped level = %v, want 1", clamped[KeyLevel])
	}
}

func TestNewLoad(t *testing.T) {
	req := NewLoad(Media{
		Title:       "Big Buck Bunny",
		URL:         "http://example.com/bbb.mp4",
		PosterURL:   "http://example.com/bbb.jpg",
		ContentType: "video/mp4",
		Autoplay:    true,
	}, "session-1")
	req.SetRequestID(3)
	m := marshalMap(t, req)

	if m[KeySessionID] != "session-1" {
		t.Errorf("sessionId = %v", m[KeySessionID])
	}
	if m["repeatMode"] != "REPEAT_OFF" || m["autoplay"] != true {
		t.Errorf("repeatMode/autoplay = %v/%v", m["repeatMode"], m["autoplay"])
	}
	if tracks, ok := m["activeTrackIds"].([]any); !ok || len(tracks) != 0 {
		t.Errorf("activeTrackIds = %v", m["activeTrackIds"])
	}
	media := m["media"].(map[string]any)
	if media["contentId"] != "http://example.com/bbb.mp4" || media["streamType"] != "BUFFERED" {
		t.Errorf("media = %v", media)
	}
	meta := media["metadata"].(map[string]any)
	images := meta["images"].([]any)
	if meta["title"] != "Big Buck Bunny" || len(images) != 1 {
		t.Errorf("metadata = %v", meta)
	}
}

func TestMediaRequests(t *testing.T) {
	id := 4
	m := marshalMap(t, NewGetMediaStatus("s", &id))
	if m[KeyMediaSessionID] != 4.0 || m[KeySessionID] != "s" {
		t.Errorf("GetMediaStatus = %v", m)
	}
	m = marshalMap(t, NewGetMediaStatus("s", nil))
	if _, ok := m[KeyMediaSessionID]; ok {
		t.Errorf("mediaSessionId should be omitted: %v", m)
	}

	m = marshalMap(t, NewSeek(7, 30.5))
	if m[KeyType] != "SEEK" || m[KeyMediaSessionID] != 7.0 || m[KeyCurrentTime] != 30.5 {
		t.Errorf("Seek = %v", m)
	}

	m = marshalMap(t, NewMediaCommand(TypePause, 7))
	if m[KeyType] != "PAUSE" || m[KeyMediaSessionID] != 7.0 {
		t.Errorf("Pause = %v", m)
	}
}

func TestNewGetAppAvailability(t *testing.T) {
	m := marshalMap(t, NewGetAppAvailability([]string{AppDefaultMediaPlayer, AppYouTube}))
	ids, ok := m[KeyAppID].([]any)
	if !ok || len(ids) != 2 || ids[0] != AppDefaultMediaPlayer {
		t.Errorf("appId = %v", m[KeyAppID])
	}

	m = marshalMap(t, NewGetAppAvailability(nil))
	if ids, ok := m[KeyAppID].([]any); !ok || len(ids) != 0 {
		t.Errorf("nil ids should marshal as empty array, got %v", m[KeyAppID])
	}
}

func TestNewGetDeviceConfig_DefaultParams(t *testing.T) {
	m := marshalMap(t, NewGetDeviceConfig(nil))
	data := m["data"].(map[string]any)
	params := data["params"].([]any)
	if len(params) != len(DefaultDeviceConfigParams) {
		t.Errorf("params = %v", params)
	}
}

func TestNeedsRequestID(t *testing.T) {
	for _, typ := range []MessageType{TypePing, TypePong, TypeConnect, TypeClose} {
		if NeedsRequestID(typ) {
			t.Errorf("NeedsRequestID(%s) = true", typ)
		}
	}
	for _, typ := range []MessageType{TypeLaunch, TypeLoad, TypeGetStatus, TypeGetDeviceConfig} {
		if !NeedsRequestID(typ) {
			t.Errorf("NeedsRequestID(%s) = false", typ)
		}
	}
	if !IsErrorReply(TypeLoadFailed) || IsErrorReply(TypeMediaStatus) {
		t.Error("IsErrorReply mismatch")
	}
}
