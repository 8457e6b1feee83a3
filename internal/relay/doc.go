// Package relay republishes a cast.Client's events to websocket clients.
//
// Each event becomes one JSON text message:
//
//	{"type":"media_status_changed","time":"...","device":"Living Room TV",
//	 "media":{"mediaSessionId":1,"playerState":"PLAYING",...}}
//
// Clients connecting mid-session first receive the most recent status and
// media status. The relay is read-only; anything a client sends is ignored.
package relay
