package model

import "encoding/json"

// Event statuses reported by devices over MQTT.
const (
	EventReceived = "received" // ack topic: command received
	EventDone     = "done"     // event topic: playback finished
	EventFailed   = "failed"   // event topic: device-side failure
)

// Command kinds.
const (
	KindGreeting = "greeting"
)

// CommandMessage is the JSON envelope published to device/{id}/cmd.
type CommandMessage struct {
	TrackID   string `json:"track_id"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	Category  string `json:"category,omitempty"`
	Timestamp int64  `json:"ts"`
}

// DeviceEvent is the JSON envelope devices publish on device/{id}/ack and
// device/{id}/event.
type DeviceEvent struct {
	TrackID   string `json:"track_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"ts"`
}

// WebSocket control frames bracketing an audio stream. Binary frames in
// between carry raw audio.
const (
	WSTypeAudioStart = "audio_start"
	WSTypeAudioEnd   = "audio_end"
	WSTypePong       = "pong"
)

// AudioStart is the JSON header sent before the binary frames of one track.
type AudioStart struct {
	Type       string `json:"type"` // WSTypeAudioStart
	TrackID    string `json:"track_id"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
}

// AudioEnd is the JSON trailer closing the stream for one track.
type AudioEnd struct {
	Type    string `json:"type"` // WSTypeAudioEnd
	TrackID string `json:"track_id"`
	Frames  int    `json:"frames"`
}

// ParseDeviceEvent decodes and validates a device event payload.
func ParseDeviceEvent(payload []byte) (DeviceEvent, bool) {
	var ev DeviceEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return DeviceEvent{}, false
	}
	if ev.TrackID == "" {
		return DeviceEvent{}, false
	}
	switch ev.Status {
	case EventReceived, EventDone, EventFailed:
		return ev, true
	}
	return DeviceEvent{}, false
}
