// Package wizardredis provides a Redis-backed wizard session store. Sessions
// are stored as JSON under a prefixed per-user key with an idle TTL that is
// refreshed on every write, so abandoned flows expire on their own.
package wizardredis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/volunteerhub/eventbot/core/wizard"
)

const keyPrefix = "wizard:session:"

// Store persists wizard sessions in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a Store. ttl <= 0 disables expiry and keys persist until
// an explicit leave.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, userID)
}

// Get loads the session for a user, or (nil, nil) when none exists.
func (s *Store) Get(ctx context.Context, userID int64) (*wizard.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get session: %v", wizard.ErrStoreUnavailable, err)
	}

	var sess wizard.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", wizard.ErrStoreUnavailable, err)
	}
	if sess.Bag == nil {
		sess.Bag = make(map[string]any)
	}
	return &sess, nil
}

// Put upserts the session and refreshes the idle TTL.
func (s *Store) Put(ctx context.Context, sess *wizard.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", wizard.ErrStoreUnavailable, err)
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, sessionKey(sess.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: put session: %v", wizard.ErrStoreUnavailable, err)
	}
	return nil
}

// Delete removes the session for a user.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: delete session: %v", wizard.ErrStoreUnavailable, err)
	}
	return nil
}

// HealthCheck pings the Redis server.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", wizard.ErrStoreUnavailable, err)
	}
	return nil
}
