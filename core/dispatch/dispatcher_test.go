package dispatch

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"GreetFM/core/track"
	"GreetFM/model"

	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeSessions map[string]bool

func (f fakeSessions) Connected(deviceID string) bool { return f[deviceID] }

func TestDispatch_PublishesAndRegisters(t *testing.T) {
	pub := &fakePublisher{}
	tr := track.New(15*time.Second, time.Minute)
	d := NewDispatcher(pub, tr, fakeSessions{"dev-a": true})

	trk, err := d.Dispatch("dev-a", "good morning", "morning")
	require.NoError(t, err)
	require.NotEmpty(t, trk.ID)
	require.Equal(t, model.TrackDispatched, trk.State)

	require.Equal(t, []string{"device/dev-a/cmd"}, pub.topics)

	var msg model.CommandMessage
	require.NoError(t, json.Unmarshal(pub.payloads[0], &msg))
	require.Equal(t, trk.ID, msg.TrackID)
	require.Equal(t, model.KindGreeting, msg.Kind)
	require.Equal(t, "good morning", msg.Text)
	require.Equal(t, "morning", msg.Category)
	require.NotZero(t, msg.Timestamp)

	stored, ok := tr.Get(trk.ID)
	require.True(t, ok)
	require.Equal(t, model.TrackDispatched, stored.State)
}

func TestDispatch_UnreachableCreatesNoTrack(t *testing.T) {
	pub := &fakePublisher{}
	tr := track.New(15*time.Second, time.Minute)
	d := NewDispatcher(pub, tr, fakeSessions{})

	_, err := d.Dispatch("dev-ghost", "hello", "")
	require.ErrorIs(t, err, ErrDeviceUnreachable)
	require.Empty(t, pub.topics)
	require.Empty(t, tr.ByDevice("dev-ghost"))
}

func TestDispatch_PublishErrorFailsTrack(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	tr := track.New(15*time.Second, time.Minute)
	d := NewDispatcher(pub, tr, fakeSessions{"dev-a": true})

	trk, err := d.Dispatch("dev-a", "hello", "")
	require.Error(t, err)
	require.Equal(t, model.TrackFailed, trk.State)

	stored, ok := tr.Get(trk.ID)
	require.True(t, ok)
	require.Equal(t, model.TrackFailed, stored.State)
	require.Contains(t, stored.Error, "broker down")
}

func TestDispatch_UniqueTrackIDs(t *testing.T) {
	pub := &fakePublisher{}
	tr := track.New(15*time.Second, time.Minute)
	d := NewDispatcher(pub, tr, fakeSessions{"dev-a": true})

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		trk, err := d.Dispatch("dev-a", "hi", "")
		require.NoError(t, err)
		require.False(t, seen[trk.ID])
		seen[trk.ID] = true
	}
}
