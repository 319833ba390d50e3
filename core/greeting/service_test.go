package greeting

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"GreetFM/core/audio"
	"GreetFM/core/dispatch"
	"GreetFM/core/track"
	"GreetFM/model"

	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, []byte) error { return nil }

type fakeSessions map[string]bool

func (f fakeSessions) Connected(deviceID string) bool { return f[deviceID] }

type fakeDeliverer struct {
	calls atomic.Int32
	err   error
	block chan struct{} // when set, Deliver waits on it
}

func (f *fakeDeliverer) Deliver(ctx context.Context, trk model.Track) error {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.err
}

type memArchive struct {
	mu     sync.Mutex
	tracks map[string]model.Track
}

func newMemArchive() *memArchive {
	return &memArchive{tracks: make(map[string]model.Track)}
}

func (m *memArchive) Save(trk model.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks[trk.ID] = trk
	return nil
}

func (m *memArchive) GetByID(id string) (*model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trk, ok := m.tracks[id]; ok {
		return &trk, nil
	}
	return nil, nil
}

func (m *memArchive) ListByDevice(deviceID string, limit int) ([]model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Track
	for _, trk := range m.tracks {
		if trk.DeviceID == deviceID && len(out) < limit {
			out = append(out, trk)
		}
	}
	return out, nil
}

func (m *memArchive) get(id string) (model.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	trk, ok := m.tracks[id]
	return trk, ok
}

type testEnv struct {
	tracker   *track.Tracker
	deliverer *fakeDeliverer
	archive   *memArchive
	svc       *Service
}

func newEnv(t *testing.T, sessions fakeSessions) *testEnv {
	t.Helper()
	tracker := track.New(15*time.Second, time.Minute)
	deliverer := &fakeDeliverer{}
	archive := newMemArchive()
	dispatcher := dispatch.NewDispatcher(nopPublisher{}, tracker, sessions)
	svc := NewService(tracker, dispatcher, deliverer, archive, nil, 5*time.Second)
	t.Cleanup(svc.Stop)
	return &testEnv{tracker: tracker, deliverer: deliverer, archive: archive, svc: svc}
}

func waitState(t *testing.T, tracker *track.Tracker, id string, want model.TrackState) {
	t.Helper()
	require.Eventually(t, func() bool {
		trk, ok := tracker.Get(id)
		return ok && trk.State == want
	}, 2*time.Second, 5*time.Millisecond, "track %s never reached %s", id, want)
}

func TestService_FullCycle(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})

	id, err := env.svc.Greet("dev-a", "good morning", "morning")
	require.NoError(t, err)

	env.svc.HandleDeviceEvent("dev-a", model.DeviceEvent{TrackID: id, Status: model.EventReceived})
	waitState(t, env.tracker, id, model.TrackAudioSent)
	require.Equal(t, int32(1), env.deliverer.calls.Load())

	env.svc.HandleDeviceEvent("dev-a", model.DeviceEvent{TrackID: id, Status: model.EventDone})
	waitState(t, env.tracker, id, model.TrackDone)

	archived, ok := env.archive.get(id)
	require.True(t, ok, "terminal track must be archived")
	require.Equal(t, model.TrackDone, archived.State)
}

func TestService_DuplicateAckDeliversOnce(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})

	id, err := env.svc.Greet("dev-a", "hi", "")
	require.NoError(t, err)

	ack := model.DeviceEvent{TrackID: id, Status: model.EventReceived}
	env.svc.HandleDeviceEvent("dev-a", ack)
	env.svc.HandleDeviceEvent("dev-a", ack)
	env.svc.HandleDeviceEvent("dev-a", ack)

	waitState(t, env.tracker, id, model.TrackAudioSent)
	require.Equal(t, int32(1), env.deliverer.calls.Load(), "one delivery per track")
}

func TestService_DeliveryFailureMarksTrackFailed(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})
	env.deliverer.err = audio.ErrDeliveryFailure

	id, err := env.svc.Greet("dev-a", "hi", "")
	require.NoError(t, err)

	env.svc.HandleDeviceEvent("dev-a", model.DeviceEvent{TrackID: id, Status: model.EventReceived})
	waitState(t, env.tracker, id, model.TrackFailed)

	archived, ok := env.archive.get(id)
	require.True(t, ok)
	require.Equal(t, model.TrackFailed, archived.State)
	require.Contains(t, archived.Error, "delivery failure")
}

func TestService_EventFromWrongDeviceIgnored(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})

	id, err := env.svc.Greet("dev-a", "hi", "")
	require.NoError(t, err)

	env.svc.HandleDeviceEvent("dev-b", model.DeviceEvent{TrackID: id, Status: model.EventReceived})
	trk, ok := env.tracker.Get(id)
	require.True(t, ok)
	require.Equal(t, model.TrackDispatched, trk.State)
	require.Zero(t, env.deliverer.calls.Load())
}

func TestService_DeviceFailureEvent(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})

	id, err := env.svc.Greet("dev-a", "hi", "")
	require.NoError(t, err)

	env.svc.HandleDeviceEvent("dev-a", model.DeviceEvent{TrackID: id, Status: model.EventFailed, Error: "speaker busy"})
	waitState(t, env.tracker, id, model.TrackFailed)

	archived, _ := env.archive.get(id)
	require.Equal(t, "speaker busy", archived.Error)
}

func TestService_SweepExpiresAndArchives(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env.tracker.SetClock(func() time.Time { return base })

	id, err := env.svc.Greet("dev-a", "hi", "")
	require.NoError(t, err)

	env.svc.sweepOnce(base.Add(16 * time.Second))

	trk, ok := env.tracker.Get(id)
	require.True(t, ok)
	require.Equal(t, model.TrackExpired, trk.State)

	archived, ok := env.archive.get(id)
	require.True(t, ok)
	require.Equal(t, model.TrackExpired, archived.State)

	// Second sweep archives nothing new.
	env.svc.sweepOnce(base.Add(17 * time.Second))
	require.Len(t, env.archive.tracks, 1)
}

func TestService_DisconnectFailsInFlight(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})

	id, err := env.svc.Greet("dev-a", "hi", "")
	require.NoError(t, err)

	env.svc.DeviceDisconnected("dev-a")
	waitState(t, env.tracker, id, model.TrackFailed)

	archived, _ := env.archive.get(id)
	require.Contains(t, archived.Error, "disconnected")
}

func TestService_GreetUnreachable(t *testing.T) {
	env := newEnv(t, fakeSessions{})

	_, err := env.svc.Greet("dev-ghost", "hi", "")
	require.ErrorIs(t, err, dispatch.ErrDeviceUnreachable)
}

func TestService_LookupFallsBackToArchive(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})

	old := model.Track{ID: "old-1", DeviceID: "dev-a", State: model.TrackDone}
	require.NoError(t, env.archive.Save(old))

	trk, ok := env.svc.Lookup("old-1")
	require.True(t, ok)
	require.Equal(t, model.TrackDone, trk.State)

	_, ok = env.svc.Lookup("nope")
	require.False(t, ok)
}

func TestService_TracksForDeviceMergesLiveAndArchive(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})

	require.NoError(t, env.archive.Save(model.Track{ID: "old-1", DeviceID: "dev-a", State: model.TrackDone}))

	id, err := env.svc.Greet("dev-a", "hi", "")
	require.NoError(t, err)

	tracks := env.svc.TracksForDevice("dev-a")
	require.Len(t, tracks, 2)
	ids := map[string]bool{}
	for _, trk := range tracks {
		ids[trk.ID] = true
	}
	require.True(t, ids[id])
	require.True(t, ids["old-1"])
}

func TestService_UnknownTrackEventIgnored(t *testing.T) {
	env := newEnv(t, fakeSessions{"dev-a": true})
	require.NotPanics(t, func() {
		env.svc.HandleDeviceEvent("dev-a", model.DeviceEvent{TrackID: "ghost", Status: model.EventDone})
	})
	require.Zero(t, env.deliverer.calls.Load())
}
