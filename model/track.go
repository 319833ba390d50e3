package model

import "time"

// TrackState is the lifecycle state of a dispatched command.
type TrackState string

const (
	TrackDispatched TrackState = "DISPATCHED" // command published, waiting for ack
	TrackAcked      TrackState = "ACKED"      // device confirmed receipt
	TrackAudioSent  TrackState = "AUDIO_SENT" // audio streamed to the device
	TrackDone       TrackState = "DONE"       // device reported playback complete
	TrackFailed     TrackState = "FAILED"     // synthesis, delivery or device failure
	TrackExpired    TrackState = "EXPIRED"    // no ack/event within the window
)

// Terminal reports whether the state admits no further transitions.
func (s TrackState) Terminal() bool {
	switch s {
	case TrackDone, TrackFailed, TrackExpired:
		return true
	}
	return false
}

// Track is the correlation record linking a dispatched command to its
// acknowledgment and completion events.
type Track struct {
	ID        string     `json:"trackId"`
	DeviceID  string     `json:"deviceId"`
	Kind      string     `json:"kind"`
	Text      string     `json:"text"`
	Category  string     `json:"category"`
	State     TrackState `json:"state"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
