package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"compass/internal/session"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/sentinel"
)

// RedisStore persists sessions in Redis. Each session lives under its own
// key with a TTL matching its expiry; a per-user set indexes session IDs so
// revocation can sweep every device at once.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(sessionID id.SessionID) string {
	return "session:" + uuid.UUID(sessionID).String()
}

func userSessionsKey(userID id.UserID) string {
	return "user_sessions:" + uuid.UUID(userID).String()
}

// Create stores the session and indexes it under its user atomically.
func (s *RedisStore) Create(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return fmt.Errorf("session is required")
	}
	ttl := sess.TTL(time.Now())
	if ttl <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "session already expired")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), payload, ttl)
	pipe.SAdd(ctx, userSessionsKey(sess.UserID), uuid.UUID(sess.ID).String())
	pipe.Expire(ctx, userSessionsKey(sess.UserID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// FindByID returns the session or sentinel.ErrNotFound. Expired sessions
// vanish with their key, so absence covers both revoked and expired.
func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*session.Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Active reports whether the session key still exists.
func (s *RedisStore) Active(ctx context.Context, sessionID id.SessionID) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check session: %w", err)
	}
	return n > 0, nil
}

// RevokeAllForUser deletes every session of the user and the index set.
// Returns how many live sessions were actually removed.
func (s *RedisStore) RevokeAllForUser(ctx context.Context, userID id.UserID) (int, error) {
	members, err := s.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(members)+1)
	for _, member := range members {
		keys = append(keys, "session:"+member)
	}
	removed, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	if err := s.client.Del(ctx, userSessionsKey(userID)).Err(); err != nil {
		return 0, fmt.Errorf("delete user session index: %w", err)
	}
	return int(removed), nil
}
