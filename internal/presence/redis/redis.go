// Package redis mirrors user presence into Redis hashes so profile
// services can read a user's online flag and last-seen time.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bittu292021/chatbox/internal/core"
)

const (
	// KeyPrefix is the Redis key prefix for presence hashes.
	KeyPrefix = "presence:"

	// DefaultTTL bounds how long a stale record survives a crashed server.
	DefaultTTL = 24 * time.Hour
)

// Presence is the mirrored state of one user.
type Presence struct {
	Online   bool
	LastSeen time.Time
}

// Mirror is a core.PresenceSink writing presence:<userID> hashes.
type Mirror struct {
	client *goredis.Client
	ttl    time.Duration
}

var _ core.PresenceSink = (*Mirror)(nil)

// NewMirror connects to Redis and verifies the connection.
func NewMirror(addr string, ttl time.Duration) (*Mirror, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("presence: redis connection failed: %w", err)
	}
	return newMirror(client, ttl), nil
}

func newMirror(client *goredis.Client, ttl time.Duration) *Mirror {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Mirror{client: client, ttl: ttl}
}

// PublishPresence implements core.PresenceSink.
func (m *Mirror) PublishPresence(ctx context.Context, userID string, state core.PresenceState, at time.Time) error {
	key := KeyPrefix + userID

	pipe := m.client.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"online":    state == core.PresenceOnline,
		"last_seen": at.UnixMilli(),
	})
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("presence: mirror %s: %w", userID, err)
	}
	return nil
}

// Get returns the mirrored presence for userID. ok is false when no record
// exists.
func (m *Mirror) Get(ctx context.Context, userID string) (Presence, bool, error) {
	vals, err := m.client.HGetAll(ctx, KeyPrefix+userID).Result()
	if err != nil {
		return Presence{}, false, fmt.Errorf("presence: get %s: %w", userID, err)
	}
	if len(vals) == 0 {
		return Presence{}, false, nil
	}

	p := Presence{Online: vals["online"] == "1"}
	if ms, err := strconv.ParseInt(vals["last_seen"], 10, 64); err == nil {
		p.LastSeen = time.UnixMilli(ms)
	}
	return p, true, nil
}

// Close releases the Redis client.
func (m *Mirror) Close() error {
	return m.client.Close()
}
