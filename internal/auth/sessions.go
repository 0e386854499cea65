package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/huddlehq/huddle/internal/cache"
)

// SessionStore keeps the current access token per user in redis so a
// login elsewhere invalidates older tokens. With the cache disabled,
// tokens are accepted on signature alone.
type SessionStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewSessionStore creates a session store
func NewSessionStore(redisCache *cache.Cache, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: redisCache, ttl: ttl}
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("huddle:session:%d", userID)
}

// Put records a user's current token
func (s *SessionStore) Put(ctx context.Context, userID int64, token string) error {
	err := s.cache.Set(ctx, sessionKey(userID), token, s.ttl)
	if err == cache.ErrCacheDisabled {
		return nil
	}
	return err
}

// Check reports whether the presented token is the user's current one and
// refreshes its TTL when it is. A missing session denies; a Redis failure
// is returned as an error so callers do not mistake an outage for a
// revoked token.
func (s *SessionStore) Check(ctx context.Context, userID int64, token string) (bool, error) {
	current, err := s.cache.Get(ctx, sessionKey(userID))
	switch {
	case err == cache.ErrCacheDisabled:
		return true, nil
	case err == cache.ErrCacheMiss:
		return false, nil
	case err != nil:
		return false, err
	}
	if current != token {
		return false, nil
	}
	if err := s.cache.Expire(ctx, sessionKey(userID), s.ttl); err != nil && err != cache.ErrCacheDisabled {
		return true, err
	}
	return true, nil
}

// Drop removes a user's session
func (s *SessionStore) Drop(ctx context.Context, userID int64) error {
	err := s.cache.Delete(ctx, sessionKey(userID))
	if err == cache.ErrCacheDisabled {
		return nil
	}
	return err
}
