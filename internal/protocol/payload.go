package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is a typed outbound JSON payload. The dispatcher assigns the
// request id just before serializing.
type Request interface {
	MessageType() MessageType
	SetRequestID(id int)
}

// Header is the envelope common to every JSON request
type Header struct {
	Type      MessageType `json:"type"`
	RequestID int         `json:"requestId,omitempty"`
}

// MessageType returns the payload type
func (h *Header) MessageType() MessageType { return h.Type }

// SetRequestID stamps the correlation id
func (h *Header) SetRequestID(id int) { h.RequestID = id }

// SetupHeader is Header spelled the way the setup namespace expects
type SetupHeader struct {
	Type      MessageType `json:"type"`
	RequestID int         `json:"request_id,omitempty"`
}

func (h *SetupHeader) MessageType() MessageType { return h.Type }
func (h *SetupHeader) SetRequestID(id int)      { h.RequestID = id }

// MarshalRequest serializes a request once at the boundary
func MarshalRequest(r Request) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", r.MessageType(), err)
	}
	return data, nil
}

// Connection and heartbeat

// NewPing builds a heartbeat PING
func NewPing() *Header { return &Header{Type: TypePing} }

// NewPong builds a heartbeat PONG
func NewPong() *Header { return &Header{Type: TypePong} }

// NewConnect builds a virtual connection CONNECT
func NewConnect() *Header { return &Header{Type: TypeConnect} }

// NewClose builds a virtual connection CLOSE
func NewClose() *Header { return &Header{Type: TypeClose} }

// Receiver control

// NewGetStatus builds a GET_STATUS request for the receiver namespace
func NewGetStatus() *Header { return &Header{Type: TypeGetStatus} }

// AppAvailabilityRequest asks which of AppIDs are installed
type AppAvailabilityRequest struct {
	Header
	AppIDs []string `json:"appId"`
}

// NewGetAppAvailability builds a GET_APP_AVAILABILITY request
func NewGetAppAvailability(appIDs []string) *AppAvailabilityRequest {
	if appIDs == nil {
		appIDs = []string{}
	}
	return &AppAvailabilityRequest{Header: Header{Type: TypeGetAppAvailability}, AppIDs: appIDs}
}

// LaunchRequest starts an application on the receiver
type LaunchRequest struct {
	Header
	AppID string `json:"appId"`
}

// NewLaunch builds a LAUNCH request
func NewLaunch(appID string) *LaunchRequest {
	return &LaunchRequest{Header: Header{Type: TypeLaunch}, AppID: appID}
}

// StopRequest terminates an application session
type StopRequest struct {
	Header
	SessionID string `json:"sessionId"`
}

// NewStop builds a receiver STOP request
func NewStop(sessionID string) *StopRequest {
	return &StopRequest{Header: Header{Type: TypeStop}, SessionID: sessionID}
}

// VolumeSetting carries only the sub-field being changed
type VolumeSetting struct {
	Level *float64 `json:"level,omitempty"`
	Muted *bool    `json:"muted,omitempty"`
}

// SetVolumeRequest changes the receiver volume or mute state
type SetVolumeRequest struct {
	Header
	Volume VolumeSetting `json:"volume"`
}

// NewSetVolume builds a SET_VOLUME request carrying only the level.
// The level is clamped to [0, 1].
func NewSetVolume(level float64) *SetVolumeRequest {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	return &SetVolumeRequest{Header: Header{Type: TypeSetVolume}, Volume: VolumeSetting{Level: &level}}
}

// NewSetMuted builds a SET_VOLUME request carrying only the muted flag
func NewSetMuted(muted bool) *SetVolumeRequest {
	return &SetVolumeRequest{Header: Header{Type: TypeSetVolume}, Volume: VolumeSetting{Muted: &muted}}
}

// Media control

// StreamType describes how the receiver buffers content
type StreamType string

const (
	StreamNone     StreamType = "NONE"
	StreamBuffered StreamType = "BUFFERED"
	StreamLive     StreamType = "LIVE"
)

// Media describes content to load on the default media receiver
type Media struct {
	Title       string
	URL         string
	PosterURL   string
	ContentType string
	StreamType  StreamType
	Autoplay    bool
	CurrentTime float64
}

// MediaImage is one metadata image
type MediaImage struct {
	URL string `json:"url"`
}

// MediaMetadata is the generic metadata block sent with LOAD
type MediaMetadata struct {
	Type         int          `json:"type"`
	MetadataType int          `json:"metadataType"`
	Title        string       `json:"title"`
	Images       []MediaImage `json:"images"`
}

// MediaInformation is the media block of a LOAD request
type MediaInformation struct {
	ContentID   string        `json:"contentId"`
	ContentType string        `json:"contentType"`
	StreamType  StreamType    `json:"streamType"`
	Metadata    MediaMetadata `json:"metadata"`
}

// LoadRequest asks an app session to load media
type LoadRequest struct {
	Header
	SessionID      string           `json:"sessionId"`
	Autoplay       bool             `json:"autoplay"`
	ActiveTrackIDs []int            `json:"activeTrackIds"`
	RepeatMode     string           `json:"repeatMode"`
	CurrentTime    float64          `json:"currentTime"`
	Media          MediaInformation `json:"media"`
}

// NewLoad builds a LOAD request for the given app session
func NewLoad(m Media, sessionID string) *LoadRequest {
	streamType := m.StreamType
	if streamType == "" {
		streamType = StreamBuffered
	}
	images := []MediaImage{}
	if m.PosterURL != "" {
		images = append(images, MediaImage{URL: m.PosterURL})
	}
	return &LoadRequest{
		Header:         Header{Type: TypeLoad},
		SessionID:      sessionID,
		Autoplay:       m.Autoplay,
		ActiveTrackIDs: []int{},
		RepeatMode:     "REPEAT_OFF",
		CurrentTime:    m.CurrentTime,
		Media: MediaInformation{
			ContentID:   m.URL,
			ContentType: m.ContentType,
			StreamType:  streamType,
			Metadata: MediaMetadata{
				Title:  m.Title,
				Images: images,
			},
		},
	}
}

// MediaStatusRequest is a media namespace GET_STATUS, optionally scoped to
// one media session
type MediaStatusRequest struct {
	Header
	SessionID      string `json:"sessionId,omitempty"`
	MediaSessionID *int   `json:"mediaSessionId,omitempty"`
}

// NewGetMediaStatus builds a media GET_STATUS request
func NewGetMediaStatus(sessionID string, mediaSessionID *int) *MediaStatusRequest {
	return &MediaStatusRequest{
		Header:         Header{Type: TypeGetStatus},
		SessionID:      sessionID,
		MediaSessionID: mediaSessionID,
	}
}

// MediaCommand is PLAY, PAUSE or STOP for a media session
type MediaCommand struct {
	Header
	MediaSessionID int `json:"mediaSessionId"`
}

// NewMediaCommand builds a transport control request
func NewMediaCommand(t MessageType, mediaSessionID int) *MediaCommand {
	return &MediaCommand{Header: Header{Type: t}, MediaSessionID: mediaSessionID}
}

// SeekRequest moves playback to CurrentTime seconds
type SeekRequest struct {
	Header
	MediaSessionID int     `json:"mediaSessionId"`
	CurrentTime    float64 `json:"currentTime"`
}

// NewSeek builds a SEEK request
func NewSeek(mediaSessionID int, seconds float64) *SeekRequest {
	return &SeekRequest{Header: Header{Type: TypeSeek}, MediaSessionID: mediaSessionID, CurrentTime: seconds}
}

// Discovery, setup and multizone

// NewGetDeviceInfo builds a discovery GET_DEVICE_INFO request
func NewGetDeviceInfo() *Header { return &Header{Type: TypeGetDeviceInfo} }

// DefaultDeviceConfigParams are the eureka_info fields requested when the
// caller names none
var DefaultDeviceConfigParams = []string{
	"version",
	"name",
	"build_info.cast_build_revision",
	"net.ip_address",
	"net.online",
	"net.ssid",
	"wifi.signal_level",
	"wifi.noise_level",
}

// DeviceConfigData is the data block of eureka_info
type DeviceConfigData struct {
	Params []string `json:"params"`
}

// DeviceConfigRequest is the setup namespace eureka_info query
type DeviceConfigRequest struct {
	SetupHeader
	Data DeviceConfigData `json:"data"`
}

// NewGetDeviceConfig builds an eureka_info request
func NewGetDeviceConfig(params []string) *DeviceConfigRequest {
	if len(params) == 0 {
		params = DefaultDeviceConfigParams
	}
	return &DeviceConfigRequest{
		SetupHeader: SetupHeader{Type: TypeGetDeviceConfig},
		Data:        DeviceConfigData{Params: params},
	}
}

// AppDeviceIDData is the data block of get_app_device_id
type AppDeviceIDData struct {
	AppID string `json:"app_id"`
}

// AppDeviceIDRequest asks for the device id scoped to an application
type AppDeviceIDRequest struct {
	SetupHeader
	Data AppDeviceIDData `json:"data"`
}

// NewGetAppDeviceID builds a get_app_device_id request
func NewGetAppDeviceID(appID string) *AppDeviceIDRequest {
	return &AppDeviceIDRequest{
		SetupHeader: SetupHeader{Type: TypeGetAppDeviceID},
		Data:        AppDeviceIDData{AppID: appID},
	}
}

// NewGetMultizoneStatus builds a multizone GET_STATUS request
func NewGetMultizoneStatus() *Header { return &Header{Type: TypeGetStatus} }
