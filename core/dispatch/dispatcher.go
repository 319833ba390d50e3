package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"GreetFM/core/track"
	"GreetFM/logger"
	"GreetFM/model"
	"GreetFM/mqtt"

	"github.com/google/uuid"
)

// ErrDeviceUnreachable means the device has no live session. Dispatch
// fails fast and no track is created.
var ErrDeviceUnreachable = errors.New("device unreachable")

// SessionChecker answers whether a device is connected right now.
type SessionChecker interface {
	Connected(deviceID string) bool
}

// Dispatcher publishes command envelopes and registers the pending track.
type Dispatcher struct {
	pub      mqtt.Publisher
	tracker  *track.Tracker
	sessions SessionChecker
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(pub mqtt.Publisher, tracker *track.Tracker, sessions SessionChecker) *Dispatcher {
	return &Dispatcher{pub: pub, tracker: tracker, sessions: sessions}
}

// Dispatch publishes a greeting command to the device and returns the
// registered track.
func (d *Dispatcher) Dispatch(deviceID, text, category string) (model.Track, error) {
	if !d.sessions.Connected(deviceID) {
		return model.Track{}, fmt.Errorf("%w: %s", ErrDeviceUnreachable, deviceID)
	}

	trk := model.Track{
		ID:       uuid.NewString(),
		DeviceID: deviceID,
		Kind:     model.KindGreeting,
		Text:     text,
		Category: category,
		State:    model.TrackDispatched,
	}
	if err := d.tracker.Register(trk); err != nil {
		return model.Track{}, fmt.Errorf("register track: %w", err)
	}

	msg := model.CommandMessage{
		TrackID:   trk.ID,
		Kind:      trk.Kind,
		Text:      trk.Text,
		Category:  trk.Category,
		Timestamp: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		d.tracker.Advance(trk.ID, model.TrackFailed, "encode command: "+err.Error())
		return model.Track{}, fmt.Errorf("encode command: %w", err)
	}

	if err := d.pub.Publish(mqtt.CommandTopic(deviceID), payload); err != nil {
		failed, _, _ := d.tracker.Advance(trk.ID, model.TrackFailed, "publish: "+err.Error())
		return failed, fmt.Errorf("publish command: %w", err)
	}

	logger.Info("command dispatched",
		logger.String("track", trk.ID),
		logger.String("device", deviceID),
		logger.String("category", category))

	registered, _ := d.tracker.Get(trk.ID)
	return registered, nil
}
