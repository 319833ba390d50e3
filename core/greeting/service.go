package greeting

import (
	"context"
	"sync"
	"time"

	"GreetFM/core/dispatch"
	"GreetFM/core/track"
	"GreetFM/logger"
	"GreetFM/model"
)

// Deliverer streams synthesized audio for an acknowledged track.
type Deliverer interface {
	Deliver(ctx context.Context, trk model.Track) error
}

// Archive persists terminal tracks and serves historical queries.
type Archive interface {
	Save(trk model.Track) error
	GetByID(id string) (*model.Track, error)
	ListByDevice(deviceID string, limit int) ([]model.Track, error)
}

// TrackCache mirrors live track state to a shared cache.
type TrackCache interface {
	SaveTrack(ctx context.Context, trk model.Track) error
}

const archiveQueryLimit = 100

// Service orchestrates the greeting lifecycle: dispatch, ack-triggered
// audio delivery, completion, expiry and archival.
type Service struct {
	tracker    *track.Tracker
	dispatcher *dispatch.Dispatcher
	deliverer  Deliverer
	archive    Archive    // may be nil
	cache      TrackCache // may be nil

	sweepInterval time.Duration
	done          chan struct{}
	wg            sync.WaitGroup
}

// NewService wires the orchestrator.
func NewService(tracker *track.Tracker, dispatcher *dispatch.Dispatcher, deliverer Deliverer, archive Archive, cache TrackCache, sweepInterval time.Duration) *Service {
	return &Service{
		tracker:       tracker,
		dispatcher:    dispatcher,
		deliverer:     deliverer,
		archive:       archive,
		cache:         cache,
		sweepInterval: sweepInterval,
		done:          make(chan struct{}),
	}
}

// Start launches the expiry sweep.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.sweepLoop()
}

// Stop stops the sweep and waits for in-flight delivery workers.
func (s *Service) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Greet dispatches a greeting command to a device and returns the track id.
func (s *Service) Greet(deviceID, text, category string) (string, error) {
	trk, err := s.dispatcher.Dispatch(deviceID, text, category)
	if err != nil {
		return "", err
	}
	s.cacheTrack(trk)
	return trk.ID, nil
}

// HandleDeviceEvent applies an ack or completion event from the ingress.
// The first ack starts the audio delivery worker; duplicates are no-ops.
func (s *Service) HandleDeviceEvent(deviceID string, ev model.DeviceEvent) {
	existing, ok := s.tracker.Get(ev.TrackID)
	if !ok {
		logger.Warn("event for unknown track",
			logger.String("track", ev.TrackID),
			logger.String("device", deviceID),
			logger.String("status", ev.Status))
		return
	}
	if existing.DeviceID != deviceID {
		logger.Warn("event device does not own track",
			logger.String("track", ev.TrackID),
			logger.String("device", deviceID),
			logger.String("owner", existing.DeviceID))
		return
	}

	trk, changed, err := s.tracker.Resolve(ev.TrackID, ev)
	if err != nil {
		logger.Warn("resolve event", logger.ErrorField(err), logger.String("track", ev.TrackID))
		return
	}
	if !changed {
		return
	}

	switch trk.State {
	case model.TrackAcked:
		s.cacheTrack(trk)
		s.wg.Add(1)
		go s.deliver(trk)
	case model.TrackDone, model.TrackFailed:
		s.finalize(trk)
	default:
		s.cacheTrack(trk)
	}
}

// DeviceDisconnected fails every in-flight track for the device. Wired to
// the session hub's disconnect hook.
func (s *Service) DeviceDisconnected(deviceID string) {
	failed := s.tracker.FailDevice(deviceID, "device disconnected")
	for _, trk := range failed {
		logger.Warn("track failed on disconnect",
			logger.String("track", trk.ID),
			logger.String("device", deviceID))
		s.finalize(trk)
	}
}

// Lookup returns a track by id, live state first, archive second.
func (s *Service) Lookup(id string) (model.Track, bool) {
	if trk, ok := s.tracker.Get(id); ok {
		return trk, true
	}
	if s.archive != nil {
		if trk, err := s.archive.GetByID(id); err == nil && trk != nil {
			return *trk, true
		}
	}
	return model.Track{}, false
}

// TracksForDevice merges live and archived tracks for a device. Live
// state wins on id collision.
func (s *Service) TracksForDevice(deviceID string) []model.Track {
	live := s.tracker.ByDevice(deviceID)
	seen := make(map[string]bool, len(live))
	for _, trk := range live {
		seen[trk.ID] = true
	}

	if s.archive != nil {
		archived, err := s.archive.ListByDevice(deviceID, archiveQueryLimit)
		if err != nil {
			logger.Warn("archive query", logger.ErrorField(err), logger.String("device", deviceID))
		}
		for _, trk := range archived {
			if !seen[trk.ID] {
				live = append(live, trk)
			}
		}
	}
	return live
}

func (s *Service) deliver(trk model.Track) {
	defer s.wg.Done()

	err := s.deliverer.Deliver(context.Background(), trk)
	if err != nil {
		logger.Error("delivery failed",
			logger.ErrorField(err),
			logger.String("track", trk.ID),
			logger.String("device", trk.DeviceID))
		if failed, changed, aerr := s.tracker.Advance(trk.ID, model.TrackFailed, err.Error()); aerr == nil && changed {
			s.finalize(failed)
		}
		return
	}

	sent, changed, aerr := s.tracker.Advance(trk.ID, model.TrackAudioSent, "")
	if aerr != nil {
		logger.Warn("mark audio sent", logger.ErrorField(aerr), logger.String("track", trk.ID))
		return
	}
	if changed {
		s.cacheTrack(sent)
	}
}

func (s *Service) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.sweepOnce(now)
		case <-s.done:
			return
		}
	}
}

func (s *Service) sweepOnce(now time.Time) {
	for _, trk := range s.tracker.ExpireStale(now) {
		logger.Warn("track expired",
			logger.String("track", trk.ID),
			logger.String("device", trk.DeviceID))
		s.finalize(trk)
	}
}

// finalize records a terminal track in the archive and the cache.
func (s *Service) finalize(trk model.Track) {
	if s.archive != nil {
		if err := s.archive.Save(trk); err != nil {
			logger.Error("archive track", logger.ErrorField(err), logger.String("track", trk.ID))
		}
	}
	s.cacheTrack(trk)
}

func (s *Service) cacheTrack(trk model.Track) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveTrack(context.Background(), trk); err != nil {
		logger.Warn("cache track", logger.ErrorField(err), logger.String("track", trk.ID))
	}
}
