package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultMirrorTimeout = 250 * time.Millisecond

var offlineScript = redis.NewScript(`
local remaining = redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
if remaining <= 0 then
  redis.call('HDEL', KEYS[1], ARGV[1])
end
return remaining
`)

// PresenceMirror publishes per-node online transitions into a Redis hash so
// that nodes can answer presence for users connected elsewhere. The hash value
// is the number of nodes the user is connected to.
type PresenceMirror struct {
	client *redis.Client
	key    string
	logger zerolog.Logger
}

// NewPresenceMirror builds a mirror stored under "<channelBase>:presence".
func NewPresenceMirror(client *redis.Client, channelBase string, logger zerolog.Logger) *PresenceMirror {
	return &PresenceMirror{
		client: client,
		key:    channelBase + ":presence",
		logger: logger.With().Str("component", "presence_mirror").Logger(),
	}
}

// MarkOnline records that this node now holds a connection for userID.
func (m *PresenceMirror) MarkOnline(ctx context.Context, userID UserID) error {
	return m.client.HIncrBy(ctx, m.key, userID.String(), 1).Err()
}

// MarkOffline records that this node released its last connection for userID.
func (m *PresenceMirror) MarkOffline(ctx context.Context, userID UserID) error {
	return offlineScript.Run(ctx, m.client, []string{m.key}, userID.String()).Err()
}

// IsOnline reports whether any node holds a connection for userID.
func (m *PresenceMirror) IsOnline(ctx context.Context, userID UserID) (bool, error) {
	count, err := m.client.HGet(ctx, m.key, userID.String()).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ClusterPresence answers IsActive from the local registry first and falls
// back to the Redis mirror.
type ClusterPresence struct {
	Local   *Registry
	Mirror  *PresenceMirror
	Timeout time.Duration
}

func (p ClusterPresence) IsActive(userID UserID) bool {
	if p.Local != nil && p.Local.IsActive(userID) {
		return true
	}
	if p.Mirror == nil {
		return false
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultMirrorTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	online, err := p.Mirror.IsOnline(ctx, userID)
	if err != nil {
		p.Mirror.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("presence mirror lookup failed")
		return false
	}
	return online
}
