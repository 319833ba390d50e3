package audio

import (
	"context"
	"errors"
	"fmt"

	"GreetFM/core/session"
	"GreetFM/logger"
	"GreetFM/model"
)

// Error kinds. Callers distinguish "bad content" (synthesis) from "no
// connection" (delivery).
var (
	ErrSynthesisFailure = errors.New("synthesis failure")
	ErrDeliveryFailure  = errors.New("delivery failure")
)

// FrameArchiver persists delivered frames (object storage).
type FrameArchiver interface {
	ArchiveFrame(ctx context.Context, trackID string, seq int, data []byte) error
}

// FrameCache keeps recent frames for replay/debugging (Redis).
type FrameCache interface {
	CacheFrame(ctx context.Context, trackID string, seq int, data []byte) error
}

// Deliverer synthesizes audio for an acknowledged track and streams the
// frames to the device's WebSocket session. Archive and cache writes are
// best effort and never fail a delivery.
type Deliverer struct {
	hub        *session.DeviceHub
	synth      Synthesizer
	archive    FrameArchiver
	frames     FrameCache
	format     string
	sampleRate int
}

// NewDeliverer creates a deliverer. archive and frames may be nil.
func NewDeliverer(hub *session.DeviceHub, synth Synthesizer, archive FrameArchiver, frames FrameCache, format string, sampleRate int) *Deliverer {
	return &Deliverer{
		hub:        hub,
		synth:      synth,
		archive:    archive,
		frames:     frames,
		format:     format,
		sampleRate: sampleRate,
	}
}

// Deliver streams audio for the track. Returns ErrDeliveryFailure when the
// session is gone or a frame cannot be written, ErrSynthesisFailure when
// audio generation fails. A device disconnect mid-stream aborts promptly.
func (d *Deliverer) Deliver(ctx context.Context, trk model.Track) error {
	client := d.hub.Get(trk.DeviceID)
	if client == nil {
		return fmt.Errorf("%w: no session for device %s", ErrDeliveryFailure, trk.DeviceID)
	}

	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(client.Context(), cancel)
	defer stop()

	header := model.AudioStart{
		Type:       model.WSTypeAudioStart,
		TrackID:    trk.ID,
		Format:     d.format,
		SampleRate: d.sampleRate,
	}
	if err := client.SendJSON(header); err != nil {
		return fmt.Errorf("%w: send header: %v", ErrDeliveryFailure, err)
	}

	frames := 0
	err := d.synth.Synthesize(cctx, trk.Text, func(frame []byte) error {
		if err := client.SendBinary(cctx, frame); err != nil {
			return fmt.Errorf("%w: frame %d: %v", ErrDeliveryFailure, frames, err)
		}
		seq := frames
		frames++

		if d.archive != nil {
			if err := d.archive.ArchiveFrame(cctx, trk.ID, seq, frame); err != nil {
				logger.Warn("archive frame",
					logger.ErrorField(err),
					logger.String("track", trk.ID),
					logger.Int("seq", seq))
			}
		}
		if d.frames != nil {
			if err := d.frames.CacheFrame(cctx, trk.ID, seq, frame); err != nil {
				logger.Warn("cache frame",
					logger.ErrorField(err),
					logger.String("track", trk.ID),
					logger.Int("seq", seq))
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDeliveryFailure) {
			return err
		}
		if cctx.Err() != nil && ctx.Err() == nil {
			// Synthesis died because the session did.
			return fmt.Errorf("%w: session closed mid-stream for device %s", ErrDeliveryFailure, trk.DeviceID)
		}
		return fmt.Errorf("%w: %v", ErrSynthesisFailure, err)
	}

	trailer := model.AudioEnd{Type: model.WSTypeAudioEnd, TrackID: trk.ID, Frames: frames}
	if err := client.SendJSON(trailer); err != nil {
		return fmt.Errorf("%w: send trailer: %v", ErrDeliveryFailure, err)
	}

	logger.Info("audio delivered",
		logger.String("track", trk.ID),
		logger.String("device", trk.DeviceID),
		logger.Int("frames", frames))
	return nil
}
