package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultVolume is reported until the receiver sends a volume level
const DefaultVolume = 0.976

// InboundHeader is the part of every JSON payload used for routing
type InboundHeader struct {
	Type      MessageType
	RequestID int
	Reason    string
}

type rawHeader struct {
	Type           MessageType `json:"type"`
	RequestID      *int        `json:"requestId"`
	SetupRequestID *int        `json:"request_id"`
	Reason         string      `json:"reason"`
}

// ParseHeader extracts the message type and correlation id from a payload.
// Both the camelCase and the setup namespace's snake_case id keys are read;
// a missing id is reported as 0 (push).
func ParseHeader(payload []byte) (InboundHeader, error) {
	var raw rawHeader
	if err := json.Unmarshal(payload, &raw); err != nil {
		return InboundHeader{}, &DecodeError{Field: "payload", Err: err}
	}
	h := InboundHeader{Type: raw.Type, Reason: raw.Reason}
	switch {
	case raw.RequestID != nil:
		h.RequestID = *raw.RequestID
	case raw.SetupRequestID != nil:
		h.RequestID = *raw.SetupRequestID
	}
	return h, nil
}

// App describes a running receiver application
type App struct {
	AppID        string `json:"appId"`
	DisplayName  string `json:"displayName"`
	IsIdleScreen bool   `json:"isIdleScreen"`
	SessionID    string `json:"sessionId"`
	StatusText   string `json:"statusText"`
	TransportID  string `json:"transportId"`
}

// String returns a short description of the app
func (a App) String() string {
	return fmt.Sprintf("App{id=%s, name=%q, session=%s, transport=%s}",
		a.AppID, a.DisplayName, a.SessionID, a.TransportID)
}

// DeviceStatus is the receiver's RECEIVER_STATUS snapshot
type DeviceStatus struct {
	Volume float64
	Muted  bool
	Apps   []App
}

type rawVolume struct {
	Level *float64 `json:"level"`
	Muted *bool    `json:"muted"`
}

type rawReceiverStatus struct {
	Status struct {
		Volume       rawVolume `json:"volume"`
		Applications []App     `json:"applications"`
	} `json:"status"`
}

// ParseDeviceStatus decodes a RECEIVER_STATUS (or LAUNCH reply) payload
func ParseDeviceStatus(payload []byte) (*DeviceStatus, error) {
	var raw rawReceiverStatus
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &DecodeError{Field: "receiver status", Err: err}
	}
	s := &DeviceStatus{Volume: DefaultVolume, Apps: []App{}}
	if raw.Status.Volume.Level != nil {
		s.Volume = *raw.Status.Volume.Level
	}
	if raw.Status.Volume.Muted != nil {
		s.Muted = *raw.Status.Volume.Muted
	}
	if raw.Status.Applications != nil {
		s.Apps = raw.Status.Applications
	}
	return s, nil
}

// FirstApp returns the foreground application, if any
func (s *DeviceStatus) FirstApp() (App, bool) {
	if s == nil || len(s.Apps) == 0 {
		return App{}, false
	}
	return s.Apps[0], true
}

// FindApp looks up an app by session id
func (s *DeviceStatus) FindApp(sessionID string) (App, bool) {
	if s == nil {
		return App{}, false
	}
	for _, a := range s.Apps {
		if a.SessionID == sessionID {
			return a, true
		}
	}
	return App{}, false
}

// Equal compares every field
func (s *DeviceStatus) Equal(o *DeviceStatus) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Volume != o.Volume || s.Muted != o.Muted || len(s.Apps) != len(o.Apps) {
		return false
	}
	for i := range s.Apps {
		if s.Apps[i] != o.Apps[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy
func (s *DeviceStatus) Clone() *DeviceStatus {
	if s == nil {
		return nil
	}
	c := *s
	c.Apps = append([]App{}, s.Apps...)
	return &c
}

// String returns a short description of the status
func (s *DeviceStatus) String() string {
	names := make([]string, 0, len(s.Apps))
	for _, a := range s.Apps {
		names = append(names, a.DisplayName)
	}
	return fmt.Sprintf("DeviceStatus{volume=%.3f, muted=%t, apps=[%s]}", s.Volume, s.Muted, strings.Join(names, ", "))
}

// PlayerState is the media player state
type PlayerState string

const (
	PlayerIdle      PlayerState = "IDLE"
	PlayerBuffering PlayerState = "BUFFERING"
	PlayerPlaying   PlayerState = "PLAYING"
	PlayerPaused    PlayerState = "PAUSED"
	PlayerStopped   PlayerState = "STOPPED"
)

// MediaStatus is the first entry of a MEDIA_STATUS payload
type MediaStatus struct {
	MediaSessionID int
	PlaybackRate   float64
	PlayerState    PlayerState
	CurrentTime    float64
	IdleReason     string
	Metadata       json.RawMessage
	ContentID      string
}

type rawMediaEntry struct {
	MediaSessionID *int        `json:"mediaSessionId"`
	PlaybackRate   *float64    `json:"playbackRate"`
	PlayerState    PlayerState `json:"playerState"`
	CurrentTime    float64     `json:"currentTime"`
	IdleReason     string      `json:"idleReason"`
	Media          struct {
		ContentID string          `json:"contentId"`
		Metadata  json.RawMessage `json:"metadata"`
	} `json:"media"`
}

type rawMediaStatus struct {
	Status []rawMediaEntry `json:"status"`
}

// ParseMediaStatus decodes a MEDIA_STATUS payload. An empty or missing
// status array means no active media and yields (nil, false, nil).
func ParseMediaStatus(payload []byte) (*MediaStatus, bool, error) {
	var raw rawMediaStatus
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, false, &DecodeError{Field: "media status", Err: err}
	}
	if len(raw.Status) == 0 {
		return nil, false, nil
	}
	e := raw.Status[0]

	m := &MediaStatus{
		PlaybackRate: 1,
		PlayerState:  PlayerBuffering,
		CurrentTime:  e.CurrentTime,
		IdleReason:   e.IdleReason,
		ContentID:    unwrapContentID(e.Media.ContentID),
	}
	if e.MediaSessionID != nil {
		m.MediaSessionID = *e.MediaSessionID
	}
	if e.PlaybackRate != nil {
		m.PlaybackRate = *e.PlaybackRate
	}
	if e.PlayerState != "" {
		m.PlayerState = e.PlayerState
	}
	if len(e.Media.Metadata) > 0 && string(e.Media.Metadata) != "null" {
		m.Metadata = append(json.RawMessage{}, e.Media.Metadata...)
	}
	return m, true, nil
}

// unwrapContentID handles apps that stuff a JSON document into contentId
func unwrapContentID(id string) string {
	if !strings.HasPrefix(strings.TrimSpace(id), "{") {
		return id
	}
	var inner struct {
		ContentID string `json:"contentId"`
	}
	if err := json.Unmarshal([]byte(id), &inner); err != nil || inner.ContentID == "" {
		return id
	}
	return inner.ContentID
}

// Clone returns a deep copy
func (m *MediaStatus) Clone() *MediaStatus {
	if m == nil {
		return nil
	}
	c := *m
	if m.Metadata != nil {
		c.Metadata = append(json.RawMessage{}, m.Metadata...)
	}
	return &c
}

// String returns a short description of the media status
func (m *MediaStatus) String() string {
	return fmt.Sprintf("MediaStatus{session=%d, state=%s, rate=%g, time=%.1f}",
		m.MediaSessionID, m.PlayerState, m.PlaybackRate, m.CurrentTime)
}

// AppAvailability maps app id to installed state
type AppAvailability map[string]bool

// ParseAppAvailability decodes a GET_APP_AVAILABILITY reply
func ParseAppAvailability(payload []byte) (AppAvailability, error) {
	var raw struct {
		Availability map[string]string `json:"availability"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &DecodeError{Field: "availability", Err: err}
	}
	out := make(AppAvailability, len(raw.Availability))
	for id, v := range raw.Availability {
		out[id] = v == AppAvailable
	}
	return out, nil
}

// MultizoneDevice is one member of a speaker group
type MultizoneDevice struct {
	DeviceID     string  `json:"deviceId"`
	Name         string  `json:"name"`
	Volume       float64 `json:"volume"`
	Muted        bool    `json:"muted"`
	Capabilities int     `json:"capabilities"`
}

type rawMultizoneDevice struct {
	DeviceID     string    `json:"deviceId"`
	Name         string    `json:"name"`
	Volume       rawVolume `json:"volume"`
	Capabilities int       `json:"capabilities"`
}

func (r rawMultizoneDevice) device() MultizoneDevice {
	d := MultizoneDevice{DeviceID: r.DeviceID, Name: r.Name, Capabilities: r.Capabilities}
	if r.Volume.Level != nil {
		d.Volume = *r.Volume.Level
	}
	if r.Volume.Muted != nil {
		d.Muted = *r.Volume.Muted
	}
	return d
}

// MultizoneStatus lists the devices of a group
type MultizoneStatus struct {
	Devices []MultizoneDevice
}

// ParseMultizoneStatus decodes a MULTIZONE_STATUS payload
func ParseMultizoneStatus(payload []byte) (*MultizoneStatus, error) {
	var raw struct {
		Status struct {
			Devices []rawMultizoneDevice `json:"devices"`
		} `json:"status"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, &DecodeError{Field: "multizone status", Err: err}
	}
	s := &MultizoneStatus{Devices: make([]MultizoneDevice, 0, len(raw.Status.Devices))}
	for _, d := range raw.Status.Devices {
		s.Devices = append(s.Devices, d.device())
	}
	return s, nil
}

// ParseMultizoneDevice decodes the device of a DEVICE_ADDED, DEVICE_UPDATED
// or DEVICE_REMOVED payload. Removal messages carry only deviceId.
func ParseMultizoneDevice(payload []byte) (MultizoneDevice, error) {
	var raw struct {
		Device   *rawMultizoneDevice `json:"device"`
		DeviceID string              `json:"deviceId"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return MultizoneDevice{}, &DecodeError{Field: "multizone device", Err: err}
	}
	if raw.Device != nil {
		return raw.Device.device(), nil
	}
	if raw.DeviceID == "" {
		return MultizoneDevice{}, &DecodeError{Field: "multizone device", Err: errMissingField}
	}
	return MultizoneDevice{DeviceID: raw.DeviceID}, nil
}

// Upsert adds d or replaces the device with the same id
func (s *MultizoneStatus) Upsert(d MultizoneDevice) {
	for i := range s.Devices {
		if s.Devices[i].DeviceID == d.DeviceID {
			s.Devices[i] = d
			return
		}
	}
	s.Devices = append(s.Devices, d)
}

// Remove drops the device with the given id
func (s *MultizoneStatus) Remove(deviceID string) {
	out := s.Devices[:0]
	for _, d := range s.Devices {
		if d.DeviceID != deviceID {
			out = append(out, d)
		}
	}
	s.Devices = out
}

// Clone returns a deep copy
func (s *MultizoneStatus) Clone() *MultizoneStatus {
	if s == nil {
		return nil
	}
	return &MultizoneStatus{Devices: append([]MultizoneDevice{}, s.Devices...)}
}

// Document is an untyped JSON reply (device info, device config)
type Document map[string]any

// ParseDocument decodes any JSON object payload
func ParseDocument(payload []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, &DecodeError{Field: "document", Err: err}
	}
	return d, nil
}

// String returns the string value at a dotted path, e.g. "data.app_device_id"
func (d Document) String(path string) (string, bool) {
	var cur any = map[string]any(d)
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[key]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}
