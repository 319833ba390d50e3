package track

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"GreetFM/model"
)

// ErrUnknownTrack is returned when a track id has no live record.
var ErrUnknownTrack = errors.New("unknown track")

const shardCount = 32

// stateRank orders the forward chain. FAILED/EXPIRED are handled
// separately: reachable from any non-terminal state, never from a
// terminal one.
var stateRank = map[model.TrackState]int{
	model.TrackDispatched: 1,
	model.TrackAcked:      2,
	model.TrackAudioSent:  3,
	model.TrackDone:       4,
}

type shard struct {
	mu     sync.RWMutex
	tracks map[string]*model.Track
}

// Tracker is the correlation map from track id to pending-request state.
// Access is sharded by track id so cycles on distinct devices never
// contend on the same lock.
type Tracker struct {
	shards     [shardCount]*shard
	ackTimeout time.Duration
	retention  time.Duration
	now        func() time.Time
}

// New creates a tracker. ackTimeout is the window before an unresolved
// track expires; retention is how long terminal tracks stay queryable.
func New(ackTimeout, retention time.Duration) *Tracker {
	t := &Tracker{
		ackTimeout: ackTimeout,
		retention:  retention,
		now:        time.Now,
	}
	for i := range t.shards {
		t.shards[i] = &shard{tracks: make(map[string]*model.Track)}
	}
	return t
}

func (t *Tracker) shardFor(id string) *shard {
	h := fnv.New32a()
	h.Write([]byte(id))
	return t.shards[h.Sum32()%shardCount]
}

// Register stores a new track. The track must carry a fresh unique id.
func (t *Tracker) Register(trk model.Track) error {
	s := t.shardFor(trk.ID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tracks[trk.ID]; exists {
		return fmt.Errorf("track %s already registered", trk.ID)
	}
	now := t.now()
	trk.CreatedAt = now
	trk.UpdatedAt = now
	s.tracks[trk.ID] = &trk
	return nil
}

// Get returns a copy of the track.
func (t *Tracker) Get(id string) (model.Track, bool) {
	s := t.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()

	trk, ok := s.tracks[id]
	if !ok {
		return model.Track{}, false
	}
	return *trk, true
}

// Resolve applies a device event to the track. Duplicate or stale events
// are idempotent no-ops: changed is false and the current record is
// returned unchanged.
func (t *Tracker) Resolve(id string, ev model.DeviceEvent) (trk model.Track, changed bool, err error) {
	var to model.TrackState
	var detail string
	switch ev.Status {
	case model.EventReceived:
		to = model.TrackAcked
	case model.EventDone:
		to = model.TrackDone
	case model.EventFailed:
		to = model.TrackFailed
		detail = ev.Error
		if detail == "" {
			detail = "device reported failure"
		}
	default:
		return model.Track{}, false, fmt.Errorf("unknown event status %q", ev.Status)
	}
	return t.Advance(id, to, detail)
}

// Advance moves a track to a new state, enforcing monotonic transitions.
// Backward or repeated transitions are no-ops, not errors.
func (t *Tracker) Advance(id string, to model.TrackState, detail string) (model.Track, bool, error) {
	s := t.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	trk, ok := s.tracks[id]
	if !ok {
		return model.Track{}, false, ErrUnknownTrack
	}
	if !t.advanceLocked(trk, to, detail) {
		return *trk, false, nil
	}
	return *trk, true, nil
}

// advanceLocked applies the transition rules. Caller holds the shard lock.
func (t *Tracker) advanceLocked(trk *model.Track, to model.TrackState, detail string) bool {
	if trk.State.Terminal() {
		return false
	}
	if to == model.TrackFailed || to == model.TrackExpired {
		trk.State = to
		trk.Error = detail
		trk.UpdatedAt = t.now()
		return true
	}
	if stateRank[to] <= stateRank[trk.State] {
		return false
	}
	trk.State = to
	trk.UpdatedAt = t.now()
	return true
}

// ExpireStale transitions tracks unresolved past the ack window to
// EXPIRED and purges terminal tracks past the retention window. It
// returns copies of the tracks expired by this sweep, each exactly once.
func (t *Tracker) ExpireStale(now time.Time) []model.Track {
	var expired []model.Track
	for _, s := range t.shards {
		s.mu.Lock()
		for id, trk := range s.tracks {
			if trk.State.Terminal() {
				if now.Sub(trk.UpdatedAt) > t.retention {
					delete(s.tracks, id)
				}
				continue
			}
			if now.Sub(trk.UpdatedAt) > t.ackTimeout {
				if t.advanceLocked(trk, model.TrackExpired, "no response within ack window") {
					expired = append(expired, *trk)
				}
			}
		}
		s.mu.Unlock()
	}
	return expired
}

// FailDevice fails every non-terminal track for a device, returning the
// tracks that transitioned. Used when a device session drops mid-cycle.
func (t *Tracker) FailDevice(deviceID, detail string) []model.Track {
	var failed []model.Track
	for _, s := range t.shards {
		s.mu.Lock()
		for _, trk := range s.tracks {
			if trk.DeviceID != deviceID || trk.State.Terminal() {
				continue
			}
			if t.advanceLocked(trk, model.TrackFailed, detail) {
				failed = append(failed, *trk)
			}
		}
		s.mu.Unlock()
	}
	return failed
}

// ByDevice returns copies of all live tracks for a device.
func (t *Tracker) ByDevice(deviceID string) []model.Track {
	var out []model.Track
	for _, s := range t.shards {
		s.mu.RLock()
		for _, trk := range s.tracks {
			if trk.DeviceID == deviceID {
				out = append(out, *trk)
			}
		}
		s.mu.RUnlock()
	}
	return out
}

// SetClock overrides the time source. Test hook.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}
