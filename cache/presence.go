package cache

import (
	"context"
	"fmt"
	"time"

	"GreetFM/db"

	"github.com/redis/go-redis/v9"
)

// Presence tracks device last-seen timestamps in Redis with a TTL, so a
// device that goes silent ages out of "online" without explicit cleanup.
type Presence struct {
	ttl time.Duration
}

// NewPresence creates a presence tracker.
func NewPresence() *Presence {
	return &Presence{ttl: 90 * time.Second}
}

func presenceKey(deviceID string) string {
	return fmt.Sprintf("presence:%s", deviceID)
}

// Touch records device activity.
func (p *Presence) Touch(ctx context.Context, deviceID string) error {
	if db.RedisClient == nil {
		return nil
	}
	ts := time.Now().UnixMilli()
	if err := db.RedisClient.Set(ctx, presenceKey(deviceID), ts, p.ttl).Err(); err != nil {
		return fmt.Errorf("touch presence %s: %w", deviceID, err)
	}
	return nil
}

// Remove clears a device's presence on disconnect.
func (p *Presence) Remove(ctx context.Context, deviceID string) error {
	if db.RedisClient == nil {
		return nil
	}
	if err := db.RedisClient.Del(ctx, presenceKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("remove presence %s: %w", deviceID, err)
	}
	return nil
}

// LastSeen returns the device's last activity, if present.
func (p *Presence) LastSeen(ctx context.Context, deviceID string) (time.Time, bool, error) {
	if db.RedisClient == nil {
		return time.Time{}, false, nil
	}
	ms, err := db.RedisClient.Get(ctx, presenceKey(deviceID)).Int64()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read presence %s: %w", deviceID, err)
	}
	return time.UnixMilli(ms), true, nil
}
