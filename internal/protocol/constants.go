package protocol

// Namespaces select which channel handles a message.
const (
	NamespaceConnection = "urn:x-cast:com.google.cast.tp.connection"
	NamespaceHeartbeat  = "urn:x-cast:com.google.cast.tp.heartbeat"
	NamespaceReceiver   = "urn:x-cast:com.google.cast.receiver"
	NamespaceMedia      = "urn:x-cast:com.google.cast.media"
	NamespaceDeviceAuth = "urn:x-cast:com.google.cast.tp.deviceauth"
	NamespaceDiscovery  = "urn:x-cast:com.google.cast.receiver.discovery"
	NamespaceSetup      = "urn:x-cast:com.google.cast.setup"
	NamespaceMultizone  = "urn:x-cast:com.google.cast.multizone"
)

// Well-known endpoint identifiers
const (
	// ReceiverID is the receiver platform's own address
	ReceiverID = "receiver-0"

	// TransportID is the platform transport broadcast address (heartbeat target)
	TransportID = "transport-0"

	// SenderPrefix prefixes generated sender identifiers
	SenderPrefix = "sender-"

	// DefaultMediaReceiverAppID is the stock media player app
	DefaultMediaReceiverAppID = "CC1AD845"
)

// MessageType is the value of the "type" key of a JSON payload
type MessageType string

// Message types exchanged with the receiver. The lowercase ones are the
// setup namespace's own spelling and must be sent verbatim.
const (
	TypePing               MessageType = "PING"
	TypePong               MessageType = "PONG"
	TypeConnect            MessageType = "CONNECT"
	TypeClose              MessageType = "CLOSE"
	TypeReceiverStatus     MessageType = "RECEIVER_STATUS"
	TypeLaunch             MessageType = "LAUNCH"
	TypeStop               MessageType = "STOP"
	TypeLoad               MessageType = "LOAD"
	TypeGetStatus          MessageType = "GET_STATUS"
	TypeGetAppAvailability MessageType = "GET_APP_AVAILABILITY"
	TypeMediaStatus        MessageType = "MEDIA_STATUS"
	TypeGetDeviceInfo      MessageType = "GET_DEVICE_INFO"
	TypeDeviceInfo         MessageType = "DEVICE_INFO"
	TypeGetDeviceConfig    MessageType = "eureka_info"
	TypeGetAppDeviceID     MessageType = "get_app_device_id"
	TypeSetVolume          MessageType = "SET_VOLUME"
	TypePause              MessageType = "PAUSE"
	TypePlay               MessageType = "PLAY"
	TypeMediaStop          MessageType = "STOP"
	TypeSeek               MessageType = "SEEK"
	TypeMultizoneStatus    MessageType = "MULTIZONE_STATUS"
	TypeDeviceAdded        MessageType = "DEVICE_ADDED"
	TypeDeviceUpdated      MessageType = "DEVICE_UPDATED"
	TypeDeviceRemoved      MessageType = "DEVICE_REMOVED"
	TypeInvalidRequest     MessageType = "INVALID_REQUEST"
	TypeLaunchError        MessageType = "LAUNCH_ERROR"
	TypeLoadFailed         MessageType = "LOAD_FAILED"
	TypeLoadCancelled      MessageType = "LOAD_CANCELLED"
	TypeMdxSessionStatus   MessageType = "mdxSessionStatus"
)

// NeedsRequestID reports whether a request of this type carries a requestId.
// Connection-level and heartbeat messages are never correlated.
func NeedsRequestID(t MessageType) bool {
	switch t {
	case TypePing, TypePong, TypeConnect, TypeClose:
		return false
	default:
		return true
	}
}

// IsErrorReply reports whether t is one of the receiver's failure replies
func IsErrorReply(t MessageType) bool {
	switch t {
	case TypeInvalidRequest, TypeLaunchError, TypeLoadFailed, TypeLoadCancelled:
		return true
	default:
		return false
	}
}

// JSON payload keys
const (
	KeyType           = "type"
	KeyRequestID      = "requestId"
	KeySetupRequestID = "request_id"
	KeyStatus         = "status"
	KeyApplications   = "applications"
	KeyAppID          = "appId"
	KeyDisplayName    = "displayName"
	KeySessionID      = "sessionId"
	KeyTransportID    = "transportId"
	KeyStatusText     = "statusText"
	KeyIsIdleScreen   = "isIdleScreen"
	KeyVolume         = "volume"
	KeyLevel          = "level"
	KeyMuted          = "muted"
	KeyMediaSessionID = "mediaSessionId"
	KeyAvailability   = "availability"
	KeyCurrentTime    = "currentTime"
)

// Well-known application identifiers
const (
	AppDefaultMediaPlayer = "CC1AD845"
	AppBackdrop           = "E8C28D3C"
	AppYouTube            = "233637DE"
)

// AppAvailable is the availability value reported for an installed app
const AppAvailable = "APP_AVAILABLE"
