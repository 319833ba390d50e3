package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GreetFM/db"
	"GreetFM/model"

	"github.com/redis/go-redis/v9"
)

// TrackCache mirrors track state into Redis so other instances and
// operators can read it without hitting the orchestrator, and caches the
// most recent audio frames per track.
type TrackCache struct {
	retention time.Duration
	frameTTL  time.Duration
}

// NewTrackCache creates a cache. Track entries live for the retention
// window; frames are short-lived debugging material.
func NewTrackCache(retention time.Duration) *TrackCache {
	return &TrackCache{retention: retention, frameTTL: 5 * time.Minute}
}

func trackKey(id string) string {
	return fmt.Sprintf("track:%s", id)
}

func frameKey(trackID string, seq int) string {
	return fmt.Sprintf("frame:%s:%03d", trackID, seq)
}

// SaveTrack writes the track state with the retention TTL.
func (c *TrackCache) SaveTrack(ctx context.Context, trk model.Track) error {
	if db.RedisClient == nil {
		return nil
	}
	data, err := json.Marshal(trk)
	if err != nil {
		return fmt.Errorf("marshal track: %w", err)
	}
	if err := db.RedisClient.Set(ctx, trackKey(trk.ID), data, c.retention).Err(); err != nil {
		return fmt.Errorf("cache track %s: %w", trk.ID, err)
	}
	return nil
}

// GetTrack reads a track from the cache. Returns ok=false on a miss.
func (c *TrackCache) GetTrack(ctx context.Context, id string) (model.Track, bool, error) {
	if db.RedisClient == nil {
		return model.Track{}, false, nil
	}
	data, err := db.RedisClient.Get(ctx, trackKey(id)).Bytes()
	if err == redis.Nil {
		return model.Track{}, false, nil
	}
	if err != nil {
		return model.Track{}, false, fmt.Errorf("read track %s: %w", id, err)
	}
	var trk model.Track
	if err := json.Unmarshal(data, &trk); err != nil {
		return model.Track{}, false, fmt.Errorf("decode track %s: %w", id, err)
	}
	return trk, true, nil
}

// CacheFrame stores one delivered audio frame.
func (c *TrackCache) CacheFrame(ctx context.Context, trackID string, seq int, data []byte) error {
	if db.RedisClient == nil {
		return nil
	}
	if err := db.RedisClient.Set(ctx, frameKey(trackID, seq), data, c.frameTTL).Err(); err != nil {
		return fmt.Errorf("cache frame %s/%d: %w", trackID, seq, err)
	}
	return nil
}
