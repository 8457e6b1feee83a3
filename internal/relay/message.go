package relay

import (
	"encoding/json"
	"time"

	"github.com/muurk/castcore/internal/cast"
	"github.com/muurk/castcore/internal/protocol"
)

// Message is one engine event as sent to websocket clients
type Message struct {
	Type      string                    `json:"type"`
	Time      time.Time                 `json:"time"`
	Device    string                    `json:"device"`
	Error     string                    `json:"error,omitempty"`
	Status    *Status                   `json:"status,omitempty"`
	Media     *Media                    `json:"media,omitempty"`
	Multizone *protocol.MultizoneStatus `json:"multizone,omitempty"`
	// Cleared is set when a status or media event reports the state was dropped
	Cleared bool `json:"cleared,omitempty"`
}

// Status is the JSON view of a receiver status
type Status struct {
	Volume float64        `json:"volume"`
	Muted  bool           `json:"muted"`
	Apps   []protocol.App `json:"apps"`
}

// Media is the JSON view of a media status
type Media struct {
	MediaSessionID int             `json:"mediaSessionId"`
	PlayerState    string          `json:"playerState"`
	PlaybackRate   float64         `json:"playbackRate"`
	CurrentTime    float64         `json:"currentTime"`
	IdleReason     string          `json:"idleReason,omitempty"`
	ContentID      string          `json:"contentId,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// NewMessage converts an engine event
func NewMessage(device string, e cast.Event) Message {
	m := Message{
		Type:   e.Kind.String(),
		Time:   e.Time,
		Device: device,
	}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}

	switch e.Kind {
	case cast.EventStatusChanged:
		if e.Status == nil {
			m.Cleared = true
			break
		}
		m.Status = NewStatus(e.Status)
	case cast.EventMediaStatusChanged:
		if e.MediaStatus == nil {
			m.Cleared = true
			break
		}
		m.Media = NewMedia(e.MediaStatus)
	case cast.EventMultizoneStatusChanged:
		m.Multizone = e.Multizone
	}
	return m
}

// NewStatus returns the JSON view of s, or nil
func NewStatus(s *protocol.DeviceStatus) *Status {
	if s == nil {
		return nil
	}
	return &Status{Volume: s.Volume, Muted: s.Muted, Apps: s.Apps}
}

// NewMedia returns the JSON view of ms, or nil
func NewMedia(ms *protocol.MediaStatus) *Media {
	if ms == nil {
		return nil
	}
	return &Media{
		MediaSessionID: ms.MediaSessionID,
		PlayerState:    string(ms.PlayerState),
		PlaybackRate:   ms.PlaybackRate,
		CurrentTime:    ms.CurrentTime,
		IdleReason:     ms.IdleReason,
		ContentID:      ms.ContentID,
		Metadata:       ms.Metadata,
	}
}
